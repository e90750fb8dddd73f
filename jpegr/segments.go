// Package jpegr assembles and parses JPEG files that carry a gain map
// as a second full JPEG: the Ultra HDR layout (MPF + Google container
// XMP) and the plain Adobe gain map layout (secondary image appended
// after the primary). Baseline entropy coding is delegated to
// image/jpeg; this package works on the container bytes.
package jpegr

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
)

const (
	markerPrefix = 0xFF
	markerSOI    = 0xD8
	markerEOI    = 0xD9
	markerSOS    = 0xDA
	markerAPP0   = 0xE0
	markerAPP1   = 0xE1
	markerAPP2   = 0xE2
	markerCOM    = 0xFE
)

const (
	xmpNamespace = "http://ns.adobe.com/xap/1.0/"
	isoNamespace = "urn:iso:std:iso:ts:21496:-1"

	containerNamespaceURI = "http://ns.google.com/photos/1.0/container/"
	hdrgmNamespaceURI     = "http://ns.adobe.com/hdr-gain-map/1.0/"
)

var (
	exifSig = []byte{'E', 'x', 'i', 'f', 0, 0}
	iccSig  = []byte{'I', 'C', 'C', '_', 'P', 'R', 'O', 'F', 'I', 'L', 'E', 0}
	xmpSig  = append([]byte(xmpNamespace), 0)
	isoSig  = append([]byte(isoNamespace), 0)
)

// Errors surfaced by container parsing and assembly.
var (
	ErrNotJPEG        = errors.New("jpegr: not a JPEG stream")
	ErrNoGainMap      = errors.New("jpegr: gain map image not found")
	ErrNoMetadata     = errors.New("jpegr: no gain map metadata found")
	ErrDuplicateEXIF  = errors.New("jpegr: duplicate_exif")
	ErrTruncatedScan  = errors.New("jpegr: truncated marker segment")
	ErrInvalidSegment = errors.New("jpegr: invalid marker segment length")
)

// writeSegment emits an APPn/COM marker segment: FF marker len-hi len-lo
// payload, with len = payload length + 2.
func writeSegment(out *bytes.Buffer, marker byte, payload []byte) {
	out.WriteByte(markerPrefix)
	out.WriteByte(marker)
	length := uint16(len(payload) + 2)
	out.WriteByte(byte(length >> 8))
	out.WriteByte(byte(length))
	out.Write(payload)
}

func writeSOI(out *bytes.Buffer) {
	out.WriteByte(markerPrefix)
	out.WriteByte(markerSOI)
}

func hasSOI(data []byte) bool {
	return len(data) >= 2 && data[0] == markerPrefix && data[1] == markerSOI
}

// walkSegments calls fn for each marker segment between SOI and SOS/EOI.
// fn returns false to stop the walk early.
func walkSegments(data []byte, fn func(marker byte, payload []byte) bool) error {
	if !hasSOI(data) {
		return ErrNotJPEG
	}
	pos := 2
	for pos+3 < len(data) {
		if data[pos] != markerPrefix {
			pos++
			continue
		}
		for pos < len(data) && data[pos] == markerPrefix {
			pos++
		}
		if pos >= len(data) {
			break
		}
		marker := data[pos]
		pos++
		if marker == markerSOS || marker == markerEOI {
			return nil
		}
		if marker >= 0xD0 && marker <= 0xD7 || marker == 0x01 {
			continue
		}
		if pos+1 >= len(data) {
			return ErrTruncatedScan
		}
		segLen := int(binary.BigEndian.Uint16(data[pos:]))
		if segLen < 2 || pos+segLen > len(data) {
			return ErrInvalidSegment
		}
		if !fn(marker, data[pos+2:pos+segLen]) {
			return nil
		}
		pos += segLen
	}
	return nil
}

// appSegments collects copies of every APP1 and APP2 payload before the
// first SOS.
func appSegments(data []byte) (app1, app2 [][]byte, err error) {
	err = walkSegments(data, func(marker byte, payload []byte) bool {
		switch marker {
		case markerAPP1:
			app1 = append(app1, append([]byte(nil), payload...))
		case markerAPP2:
			app2 = append(app2, append([]byte(nil), payload...))
		}
		return true
	})
	return app1, app2, err
}

func findXMP(app1 [][]byte) []byte {
	for _, seg := range app1 {
		if bytes.HasPrefix(seg, xmpSig) {
			return seg
		}
	}
	return nil
}

func findISO(app2 [][]byte) []byte {
	for _, seg := range app2 {
		if bytes.HasPrefix(seg, isoSig) {
			return seg
		}
	}
	return nil
}

func hasEXIF(data []byte) bool {
	found := false
	_ = walkSegments(data, func(marker byte, payload []byte) bool {
		if marker == markerAPP1 && bytes.HasPrefix(payload, exifSig) {
			found = true
			return false
		}
		return true
	})
	return found
}

// ExtractEXIFAndICC returns the EXIF APP1 payload (if any) and the ICC
// APP2 payloads of a JPEG, in chunk order.
func ExtractEXIFAndICC(data []byte) (exif []byte, icc [][]byte, err error) {
	app1, app2, err := appSegments(data)
	if err != nil {
		return nil, nil, err
	}
	for _, seg := range app1 {
		if bytes.HasPrefix(seg, exifSig) {
			exif = append([]byte(nil), seg...)
			break
		}
	}
	type chunk struct {
		seq  int
		data []byte
	}
	var chunks []chunk
	for _, seg := range app2 {
		if bytes.HasPrefix(seg, iccSig) && len(seg) >= len(iccSig)+2 {
			chunks = append(chunks, chunk{seq: int(seg[len(iccSig)]), data: append([]byte(nil), seg...)})
		}
	}
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].seq < chunks[j].seq })
	for _, c := range chunks {
		icc = append(icc, c.data)
	}
	return exif, icc, nil
}

// jpegEnd returns the offset one past the EOI of the JPEG starting at
// start, walking entropy-coded data and restart markers.
func jpegEnd(data []byte, start int) (int, error) {
	if start+1 >= len(data) || data[start] != markerPrefix || data[start+1] != markerSOI {
		return 0, ErrNotJPEG
	}
	pos := start + 2
	inScan := false
	for pos+1 < len(data) {
		if !inScan {
			if data[pos] != markerPrefix {
				pos++
				continue
			}
			for pos < len(data) && data[pos] == markerPrefix {
				pos++
			}
			if pos >= len(data) {
				break
			}
			marker := data[pos]
			pos++
			switch {
			case marker == markerSOI || marker == 0x01 || (marker >= 0xD0 && marker <= 0xD7):
				continue
			case marker == markerEOI:
				return pos, nil
			}
			if pos+1 >= len(data) {
				return 0, ErrTruncatedScan
			}
			segLen := int(binary.BigEndian.Uint16(data[pos:]))
			if segLen < 2 {
				return 0, ErrInvalidSegment
			}
			pos += segLen
			if marker == markerSOS {
				inScan = true
			}
			continue
		}
		if data[pos] != markerPrefix {
			pos++
			continue
		}
		if pos+1 >= len(data) {
			return 0, ErrTruncatedScan
		}
		next := data[pos+1]
		switch {
		case next == 0x00 || (next >= 0xD0 && next <= 0xD7):
			pos += 2
		case next == markerEOI:
			return pos + 2, nil
		case next == markerPrefix:
			pos++
		default:
			// A non-scan marker inside entropy data ends the scan.
			pos += 2
			if pos+1 >= len(data) {
				return 0, ErrTruncatedScan
			}
			segLen := int(binary.BigEndian.Uint16(data[pos:]))
			if segLen < 2 {
				return 0, ErrInvalidSegment
			}
			pos += segLen
			inScan = false
		}
	}
	return 0, fmt.Errorf("jpegr: no EOI found after offset %d", start)
}

// scanImages returns the byte ranges of the JPEG images in data: via the
// MPF index when present and trustworthy, else by walking SOI/EOI pairs.
func scanImages(data []byte) ([][2]int, error) {
	if r, ok := imagesFromMPF(data); ok {
		return r, nil
	}
	var ranges [][2]int
	i := 0
	for i+1 < len(data) {
		if data[i] == markerPrefix && data[i+1] == markerSOI {
			end, err := jpegEnd(data, i)
			if err != nil {
				return nil, err
			}
			ranges = append(ranges, [2]int{i, end})
			i = end
			continue
		}
		i++
	}
	if len(ranges) == 0 {
		return nil, ErrNotJPEG
	}
	return ranges, nil
}

func imagesFromMPF(data []byte) ([][2]int, bool) {
	if !hasSOI(data) {
		return nil, false
	}
	var info *mpfIndex
	tiffHeaderAbs := -1
	pos := 2
	for pos+3 < len(data) {
		if data[pos] != markerPrefix {
			pos++
			continue
		}
		for pos < len(data) && data[pos] == markerPrefix {
			pos++
		}
		if pos >= len(data) {
			break
		}
		marker := data[pos]
		pos++
		if marker == markerSOS || marker == markerEOI {
			break
		}
		if marker >= 0xD0 && marker <= 0xD7 || marker == 0x01 || marker == markerSOI {
			continue
		}
		if pos+1 >= len(data) {
			return nil, false
		}
		segLen := int(binary.BigEndian.Uint16(data[pos:]))
		if segLen < 2 || pos+segLen > len(data) {
			return nil, false
		}
		payload := data[pos+2 : pos+segLen]
		if marker == markerAPP2 && bytes.HasPrefix(payload, mpfSig) {
			idx, err := parseMPF(payload)
			if err != nil {
				return nil, false
			}
			info = idx
			tiffHeaderAbs = pos + 2 + len(mpfSig)
			break
		}
		pos += segLen
	}
	if info == nil {
		return nil, false
	}
	primaryEnd := info.primarySize
	secondaryStart := tiffHeaderAbs + info.secondaryOffset
	secondaryEnd := secondaryStart + info.secondarySize
	if primaryEnd <= 0 || primaryEnd > len(data) ||
		secondaryStart < 0 || secondaryEnd > len(data) ||
		secondaryStart+1 >= len(data) ||
		data[secondaryStart] != markerPrefix || data[secondaryStart+1] != markerSOI {
		return nil, false
	}
	return [][2]int{{0, primaryEnd}, {secondaryStart, secondaryEnd}}, true
}

// stripMetadataSegments removes APP0-APP15 and COM segments, keeping
// frame and scan data intact.
func stripMetadataSegments(data []byte) ([]byte, error) {
	if !hasSOI(data) {
		return nil, ErrNotJPEG
	}
	var out bytes.Buffer
	writeSOI(&out)
	pos := 2
	for pos+3 < len(data) {
		if data[pos] != markerPrefix {
			out.WriteByte(data[pos])
			pos++
			continue
		}
		for pos < len(data) && data[pos] == markerPrefix {
			pos++
		}
		if pos >= len(data) {
			break
		}
		marker := data[pos]
		pos++
		if marker == markerSOS || marker == markerEOI {
			out.WriteByte(markerPrefix)
			out.WriteByte(marker)
			out.Write(data[pos:])
			return out.Bytes(), nil
		}
		if marker >= 0xD0 && marker <= 0xD7 {
			out.WriteByte(markerPrefix)
			out.WriteByte(marker)
			continue
		}
		if pos+1 >= len(data) {
			return nil, ErrTruncatedScan
		}
		segLen := int(binary.BigEndian.Uint16(data[pos:]))
		if segLen < 2 || pos+segLen > len(data) {
			return nil, ErrInvalidSegment
		}
		if marker == markerCOM || (marker >= markerAPP0 && marker <= 0xEF) {
			pos += segLen
			continue
		}
		out.WriteByte(markerPrefix)
		out.WriteByte(marker)
		out.Write(data[pos : pos+segLen])
		pos += segLen
	}
	return out.Bytes(), nil
}

// Dimensions parses the SOF segment of a baseline or progressive JPEG
// and returns its pixel dimensions.
func Dimensions(data []byte) (width, height int, err error) {
	found := false
	walkErr := walkSegments(data, func(marker byte, payload []byte) bool {
		// SOF0..SOF15 except DHT(0xC4), JPG(0xC8), DAC(0xCC).
		if marker >= 0xC0 && marker <= 0xCF && marker != 0xC4 && marker != 0xC8 && marker != 0xCC {
			if len(payload) >= 5 {
				height = int(binary.BigEndian.Uint16(payload[1:]))
				width = int(binary.BigEndian.Uint16(payload[3:]))
				found = true
			}
			return false
		}
		return true
	})
	if walkErr != nil {
		return 0, 0, walkErr
	}
	if !found {
		return 0, 0, errors.New("jpegr: SOF segment not found")
	}
	return width, height, nil
}
