package jpegr

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/bhouston/hdrforge/gainmap"
)

// hdrgm XMP handling. Writers emit scalar attributes when all three
// channels agree and rdf:Seq triples otherwise; readers accept both and
// broadcast scalars to triples.

var (
	reItemLength = regexp.MustCompile(`Item:Length="(\d+)"`)
	reHdrgmAttr  = regexp.MustCompile(`hdrgm:(\w+)="([^"]+)"`)
	reHdrgmSeq   = regexp.MustCompile(`(?s)<hdrgm:(\w+)>\s*<rdf:Seq>(.*?)</rdf:Seq>\s*</hdrgm:(\w+)>`)
	reRdfLi      = regexp.MustCompile(`(?s)<rdf:li>([^<]+)</rdf:li>`)
)

func xmpPayload(xml string) []byte {
	out := make([]byte, 0, len(xmpSig)+len(xml))
	out = append(out, xmpSig...)
	out = append(out, xml...)
	return out
}

func fmtFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 9, 64)
}

func uniform(t [3]float64) bool {
	return t[0] == t[1] && t[1] == t[2]
}

// hdrgmField renders one metadata field, scalar or rdf:Seq.
func hdrgmField(name string, t [3]float64) (attr, element string) {
	if uniform(t) {
		return fmt.Sprintf(` hdrgm:%s="%s"`, name, fmtFloat(t[0])), ""
	}
	return "", fmt.Sprintf(
		`<hdrgm:%s><rdf:Seq><rdf:li>%s</rdf:li><rdf:li>%s</rdf:li><rdf:li>%s</rdf:li></rdf:Seq></hdrgm:%s>`,
		name, fmtFloat(t[0]), fmtFloat(t[1]), fmtFloat(t[2]), name)
}

// buildGainMapXMP produces the hdrgm APP1 payload stored with the
// secondary (gain map) image.
func buildGainMapXMP(m *gainmap.Metadata) []byte {
	var attrs, elements strings.Builder
	for _, f := range []struct {
		name string
		val  [3]float64
	}{
		{"GainMapMin", m.GainMapMin},
		{"GainMapMax", m.GainMapMax},
		{"Gamma", m.Gamma},
		{"OffsetSDR", m.OffsetSDR},
		{"OffsetHDR", m.OffsetHDR},
	} {
		a, e := hdrgmField(f.name, f.val)
		attrs.WriteString(a)
		elements.WriteString(e)
	}

	body := fmt.Sprintf(
		`<rdf:Description xmlns:hdrgm="%s" hdrgm:Version="1.0"%s hdrgm:HDRCapacityMin="%s" hdrgm:HDRCapacityMax="%s" hdrgm:BaseRenditionIsHDR="False"`,
		hdrgmNamespaceURI, attrs.String(), fmtFloat(m.HDRCapacityMin), fmtFloat(m.HDRCapacityMax))
	if elements.Len() == 0 {
		body += "/>"
	} else {
		body += ">" + elements.String() + "</rdf:Description>"
	}

	xml := `<x:xmpmeta xmlns:x="adobe:ns:meta/" x:xmptk="hdrforge">` +
		`<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#">` +
		body + `</rdf:RDF></x:xmpmeta>`
	return xmpPayload(xml)
}

// buildContainerXMP produces the primary image's APP1 payload carrying
// the Google Container:Directory that advertises the gain map image and
// its byte length.
func buildContainerXMP(secondaryLength int) []byte {
	xml := fmt.Sprintf(
		`<x:xmpmeta xmlns:x="adobe:ns:meta/" x:xmptk="hdrforge">`+
			`<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#">`+
			`<rdf:Description xmlns:Container="%s" xmlns:Item="%sitem/" xmlns:hdrgm="%s" hdrgm:Version="1.0">`+
			`<Container:Directory><rdf:Seq>`+
			`<rdf:li rdf:parseType="Resource"><Container:Item Item:Semantic="Primary" Item:Mime="image/jpeg"/></rdf:li>`+
			`<rdf:li rdf:parseType="Resource"><Container:Item Item:Semantic="GainMap" Item:Mime="image/jpeg" Item:Length="%d"/></rdf:li>`+
			`</rdf:Seq></Container:Directory></rdf:Description></rdf:RDF></x:xmpmeta>`,
		containerNamespaceURI, containerNamespaceURI, hdrgmNamespaceURI, secondaryLength)
	return xmpPayload(xml)
}

// containerGainMapLength extracts Item:Length from a Container:Directory
// XMP payload; ok is false when the payload is not a container directory.
func containerGainMapLength(payload []byte) (int, bool) {
	s := string(payload)
	if !strings.Contains(s, containerNamespaceURI) {
		return 0, false
	}
	m := reItemLength.FindStringSubmatch(s)
	if len(m) != 2 {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// updateContainerLength rewrites Item:Length in an existing container
// XMP payload so a reassembled file advertises the new gain map size.
func updateContainerLength(payload []byte, newLength int) []byte {
	s := reItemLength.ReplaceAllString(string(payload), `Item:Length="`+strconv.Itoa(newLength)+`"`)
	return []byte(s)
}

// parseGainMapXMP extracts hdrgm metadata from an XMP APP1 payload.
func parseGainMapXMP(payload []byte) (*gainmap.Metadata, error) {
	if !strings.HasPrefix(string(payload), xmpNamespace+"\x00") {
		return nil, ErrNoMetadata
	}
	xml := string(payload[len(xmpSig):])
	if !strings.Contains(xml, hdrgmNamespaceURI) {
		return nil, ErrNoMetadata
	}

	m := &gainmap.Metadata{
		Gamma:          [3]float64{1, 1, 1},
		OffsetSDR:      [3]float64{1.0 / 64, 1.0 / 64, 1.0 / 64},
		OffsetHDR:      [3]float64{1.0 / 64, 1.0 / 64, 1.0 / 64},
		HDRCapacityMax: 1,
	}
	triples := map[string]*[3]float64{
		"GainMapMin": &m.GainMapMin,
		"GainMapMax": &m.GainMapMax,
		"Gamma":      &m.Gamma,
		"OffsetSDR":  &m.OffsetSDR,
		"OffsetHDR":  &m.OffsetHDR,
	}
	sawCapacityMax := false

	for _, match := range reHdrgmAttr.FindAllStringSubmatch(xml, -1) {
		name, raw := match[1], match[2]
		if dst, ok := triples[name]; ok {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("jpegr: bad hdrgm:%s value %q", name, raw)
			}
			dst[0], dst[1], dst[2] = v, v, v
			continue
		}
		switch name {
		case "HDRCapacityMin":
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("jpegr: bad hdrgm:HDRCapacityMin value %q", raw)
			}
			m.HDRCapacityMin = v
		case "HDRCapacityMax":
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("jpegr: bad hdrgm:HDRCapacityMax value %q", raw)
			}
			m.HDRCapacityMax = v
			sawCapacityMax = true
		}
	}

	for _, match := range reHdrgmSeq.FindAllStringSubmatch(xml, -1) {
		name := match[1]
		dst, ok := triples[name]
		if !ok || name != match[3] {
			continue
		}
		items := reRdfLi.FindAllStringSubmatch(match[2], -1)
		for i, it := range items {
			if i >= 3 {
				break
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(it[1]), 64)
			if err != nil {
				return nil, fmt.Errorf("jpegr: bad hdrgm:%s sequence value %q", name, it[1])
			}
			dst[i] = v
		}
		// A one-item sequence broadcasts like a scalar.
		if len(items) == 1 {
			dst[1], dst[2] = dst[0], dst[0]
		}
	}

	if !sawCapacityMax {
		return nil, ErrNoMetadata
	}
	return m, nil
}
