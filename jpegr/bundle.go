package jpegr

import (
	"bytes"
	"errors"

	"github.com/bhouston/hdrforge/gainmap"
)

const bundleFormat = "hdrforge-meta-1"

// MetadataBundle captures everything needed to reassemble a container
// around re-encoded images. Byte fields are base64 in JSON.
type MetadataBundle struct {
	Format       string   `json:"format"`
	ContainerFmt string   `json:"container_format"`
	PrimaryXMP   []byte   `json:"primary_xmp,omitempty"`
	GainMapXMP   []byte   `json:"gainmap_xmp,omitempty"`
	GainMapISO   []byte   `json:"gainmap_iso,omitempty"`
	EXIF         []byte   `json:"exif,omitempty"`
	ICC          [][]byte `json:"icc,omitempty"`
}

// Split pulls the primary JPEG, gain map JPEG, metadata, and raw
// container segments out of a gain map container.
func Split(data []byte) (*File, *MetadataBundle, error) {
	f, err := Read(data)
	if err != nil {
		return nil, nil, err
	}

	b := &MetadataBundle{Format: bundleFormat, ContainerFmt: f.Format.String()}
	app1, _, err := appSegments(data)
	if err != nil {
		return nil, nil, err
	}
	b.PrimaryXMP = findXMP(app1)

	gmApp1, gmApp2, err := appSegments(f.GainMapJPEG)
	if err != nil {
		return nil, nil, err
	}
	b.GainMapXMP = findXMP(gmApp1)
	b.GainMapISO = findISO(gmApp2)

	if b.EXIF, b.ICC, err = ExtractEXIFAndICC(f.PrimaryJPEG); err != nil {
		return nil, nil, err
	}
	return f, b, nil
}

// Validate checks that the bundle can rebuild a container.
func (b *MetadataBundle) Validate() error {
	if b == nil {
		return errors.New("jpegr: metadata bundle is nil")
	}
	if b.Format != bundleFormat {
		return errors.New("jpegr: unsupported metadata bundle format")
	}
	if len(b.GainMapXMP) == 0 && len(b.GainMapISO) == 0 {
		return ErrNoMetadata
	}
	return nil
}

// Join reassembles a container from component JPEGs and a bundle,
// preserving the original metadata segments verbatim and updating the
// container directory's advertised gain map length.
func Join(primaryJPEG, gainMapJPEG []byte, b *MetadataBundle) ([]byte, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	if !hasSOI(primaryJPEG) || !hasSOI(gainMapJPEG) {
		return nil, ErrNotJPEG
	}

	primary, err := stripMetadataSegments(primaryJPEG)
	if err != nil {
		return nil, err
	}
	gm, err := stripMetadataSegments(gainMapJPEG)
	if err != nil {
		return nil, err
	}

	if b.ContainerFmt == FormatAdobe.String() {
		return joinAdobe(primary, gm, b)
	}
	return joinUltraHDR(primary, gm, b)
}

func joinAdobe(primary, gm []byte, b *MetadataBundle) ([]byte, error) {
	var out bytes.Buffer
	out.Write(primary)
	writeSOI(&out)
	if len(b.GainMapXMP) > 0 {
		writeSegment(&out, markerAPP1, b.GainMapXMP)
	}
	if len(b.GainMapISO) > 0 {
		writeSegment(&out, markerAPP2, b.GainMapISO)
	}
	out.Write(gm[2:])
	return out.Bytes(), nil
}

func joinUltraHDR(primary, gm []byte, b *MetadataBundle) ([]byte, error) {
	secondarySize := len(gm) + segSize(b.GainMapXMP) + segSize(b.GainMapISO)

	var out bytes.Buffer
	writeSOI(&out)
	if len(b.EXIF) > 0 {
		writeSegment(&out, markerAPP1, b.EXIF)
	}
	primaryXMP := b.PrimaryXMP
	if len(primaryXMP) > 0 {
		primaryXMP = updateContainerLength(primaryXMP, secondarySize)
	} else {
		primaryXMP = buildContainerXMP(secondarySize)
	}
	writeSegment(&out, markerAPP1, primaryXMP)
	for _, seg := range b.ICC {
		writeSegment(&out, markerAPP2, seg)
	}

	mpfSegLen := 4 + mpfSize()
	primarySize := out.Len() + mpfSegLen + len(primary) - 2
	secondaryOffset := primarySize - out.Len() - 8
	writeSegment(&out, markerAPP2, buildMPF(primarySize, secondarySize, secondaryOffset))

	out.Write(primary[2:])

	writeSOI(&out)
	if len(b.GainMapXMP) > 0 {
		writeSegment(&out, markerAPP1, b.GainMapXMP)
	}
	if len(b.GainMapISO) > 0 {
		writeSegment(&out, markerAPP2, b.GainMapISO)
	}
	out.Write(gm[2:])
	return out.Bytes(), nil
}

func segSize(payload []byte) int {
	if len(payload) == 0 {
		return 0
	}
	return 4 + len(payload)
}

// Rebase replaces the primary SDR image of a container with a new JPEG
// of the same dimensions, recomputing the gain map so the reconstructed
// HDR is preserved.
func Rebase(data []byte, newPrimaryJPEG []byte, opts *WriteOptions) ([]byte, error) {
	f, err := Read(data)
	if err != nil {
		return nil, err
	}
	res, err := f.DecodeResult()
	if err != nil {
		return nil, err
	}
	hdr, err := gainmap.Decode(res)
	if err != nil {
		return nil, err
	}

	newSDR, w, h, err := decodeBaselineJPEG(newPrimaryJPEG)
	if err != nil {
		return nil, err
	}
	if w != res.Width || h != res.Height {
		return nil, gainmap.ErrDimensionMismatch
	}

	rebased, err := gainmap.EncodeWithBase(hdr, newSDR, w, h, nil)
	if err != nil {
		return nil, err
	}

	var o WriteOptions
	if opts != nil {
		o = *opts
	}
	if o.Quality <= 0 || o.Quality > 100 {
		o.Quality = defaultQuality
	}
	o.Format = f.Format
	gm, err := encodeBaselineJPEG(rebased.GainMap, w, h, o.Quality)
	if err != nil {
		return nil, err
	}
	return Assemble(newPrimaryJPEG, gm, &rebased.Metadata, &o)
}
