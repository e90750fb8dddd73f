package jpegr

import (
	"bytes"
	"image"
	gocolor "image/color"
	"image/jpeg"

	"github.com/bhouston/hdrforge/gainmap"
)

// Format selects the emitted container layout.
type Format int

const (
	// FormatUltraHDR writes the Google Ultra HDR layout: container XMP
	// plus an MPF index pointing at both images.
	FormatUltraHDR Format = iota
	// FormatAdobe writes the plain Adobe gain map layout: the primary
	// JPEG untouched, with the gain map JPEG appended.
	FormatAdobe
)

func (f Format) String() string {
	if f == FormatAdobe {
		return "adobe-gainmap"
	}
	return "ultrahdr"
}

// WriteOptions controls container assembly.
type WriteOptions struct {
	// Quality is the baseline JPEG quality for both images (0 uses 90).
	Quality int
	Format  Format
	// EXIF, when set, is written as the primary EXIF APP1 payload
	// (including the "Exif\0\0" prefix). Assembly fails with
	// ErrDuplicateEXIF if the primary JPEG already carries EXIF.
	EXIF []byte
	// ICC payloads (including the "ICC_PROFILE\0" prefix and chunk
	// numbers) written as APP2 segments after the container XMP.
	ICC [][]byte
}

const defaultQuality = 90

// File is the parsed form of a gain map container.
type File struct {
	Format      Format
	PrimaryJPEG []byte
	GainMapJPEG []byte
	Metadata    *gainmap.Metadata
}

// Write encodes the SDR base and gain map planes of an encoding result
// as baseline JPEGs and assembles the container.
func Write(res *gainmap.Result, opts *WriteOptions) ([]byte, error) {
	var o WriteOptions
	if opts != nil {
		o = *opts
	}
	if o.Quality <= 0 || o.Quality > 100 {
		o.Quality = defaultQuality
	}

	primary, err := encodeBaselineJPEG(res.SDR, res.Width, res.Height, o.Quality)
	if err != nil {
		return nil, err
	}
	gm, err := encodeBaselineJPEG(res.GainMap, res.Width, res.Height, o.Quality)
	if err != nil {
		return nil, err
	}
	return Assemble(primary, gm, &res.Metadata, &o)
}

// Assemble builds the container from two already-encoded JPEGs.
func Assemble(primaryJPEG, gainMapJPEG []byte, m *gainmap.Metadata, opts *WriteOptions) ([]byte, error) {
	if !hasSOI(primaryJPEG) || !hasSOI(gainMapJPEG) {
		return nil, ErrNotJPEG
	}
	var o WriteOptions
	if opts != nil {
		o = *opts
	}
	if len(o.EXIF) > 0 && hasEXIF(primaryJPEG) {
		return nil, ErrDuplicateEXIF
	}
	if o.Format == FormatAdobe {
		return assembleAdobe(primaryJPEG, gainMapJPEG, m)
	}
	return assembleUltraHDR(primaryJPEG, gainMapJPEG, m, &o)
}

// assembleUltraHDR emits: SOI, optional EXIF APP1, container XMP APP1,
// version-only ISO APP2, optional ICC APP2, MPF APP2, primary data
// (minus SOI), then the
// secondary image: SOI, hdrgm XMP APP1, ISO APP2, gain map data (minus
// its SOI).
func assembleUltraHDR(primaryJPEG, gainMapJPEG []byte, m *gainmap.Metadata, o *WriteOptions) ([]byte, error) {
	gmXMP := buildGainMapXMP(m)
	iso, err := isoPayload(m)
	if err != nil {
		return nil, err
	}
	// Secondary size counts its SOI, both metadata segments, and the
	// entropy data; segment overhead is 4 bytes each.
	secondarySize := len(gainMapJPEG) + (4 + len(gmXMP)) + (4 + len(iso))

	var out bytes.Buffer
	writeSOI(&out)
	if len(o.EXIF) > 0 {
		writeSegment(&out, markerAPP1, o.EXIF)
	}
	writeSegment(&out, markerAPP1, buildContainerXMP(secondarySize))
	// Version-only ISO marker on the primary, mirroring the full
	// metadata stored with the gain map image.
	writeSegment(&out, markerAPP2, isoVersionOnlyPayload())
	for _, seg := range o.ICC {
		writeSegment(&out, markerAPP2, seg)
	}

	// The MPF secondary offset is relative to its TIFF header, which
	// sits 8 bytes into the MPF segment (marker, length, "MPF\0").
	mpfSegLen := 4 + mpfSize()
	primarySize := out.Len() + mpfSegLen + len(primaryJPEG) - 2
	secondaryOffset := primarySize - out.Len() - 8
	writeSegment(&out, markerAPP2, buildMPF(primarySize, secondarySize, secondaryOffset))

	out.Write(primaryJPEG[2:])

	writeSOI(&out)
	writeSegment(&out, markerAPP1, gmXMP)
	writeSegment(&out, markerAPP2, iso)
	out.Write(gainMapJPEG[2:])

	return out.Bytes(), nil
}

// assembleAdobe appends the gain map image after the untouched primary:
// SOI, hdrgm XMP APP1, gain map data (minus its SOI). No MPF, no
// container directory.
func assembleAdobe(primaryJPEG, gainMapJPEG []byte, m *gainmap.Metadata) ([]byte, error) {
	var out bytes.Buffer
	out.Write(primaryJPEG)
	writeSOI(&out)
	writeSegment(&out, markerAPP1, buildGainMapXMP(m))
	out.Write(gainMapJPEG[2:])
	return out.Bytes(), nil
}

// Read parses a gain map container: it locates the two JPEG images via
// the container directory's Item:Length, the MPF index, or a raw SOI
// scan, and extracts the hdrgm metadata stored with the gain map image.
func Read(data []byte) (*File, error) {
	if !hasSOI(data) {
		return nil, ErrNotJPEG
	}

	f := &File{Format: FormatAdobe}
	var ranges [][2]int

	// Ultra HDR: the container XMP advertises the gain map image's
	// byte length; the secondary is the file's last Length bytes.
	app1, _, err := appSegments(data)
	if err != nil {
		return nil, err
	}
	if xmp := findXMP(app1); xmp != nil {
		if length, ok := containerGainMapLength(xmp); ok && length < len(data) {
			start := len(data) - length
			if hasSOI(data[start:]) {
				ranges = [][2]int{{0, start}, {start, len(data)}}
				f.Format = FormatUltraHDR
			}
		}
	}
	if ranges == nil {
		if r, ok := imagesFromMPF(data); ok {
			ranges = r
			f.Format = FormatUltraHDR
		}
	}
	if ranges == nil {
		r, err := scanImages(data)
		if err != nil {
			return nil, err
		}
		ranges = r
	}
	if len(ranges) < 2 {
		return nil, ErrNoGainMap
	}

	f.PrimaryJPEG = append([]byte(nil), data[ranges[0][0]:ranges[0][1]]...)
	f.GainMapJPEG = append([]byte(nil), data[ranges[1][0]:ranges[1][1]]...)

	gmApp1, gmApp2, err := appSegments(f.GainMapJPEG)
	if err != nil {
		return nil, err
	}
	if xmp := findXMP(gmApp1); xmp != nil {
		if m, err := parseGainMapXMP(xmp); err == nil {
			f.Metadata = m
			return f, nil
		}
	}
	if iso := findISO(gmApp2); iso != nil {
		m, err := decodeISO(iso[len(isoSig):])
		if err != nil {
			return nil, err
		}
		f.Metadata = m
		return f, nil
	}
	return nil, ErrNoMetadata
}

// DecodeResult decodes both embedded JPEGs of a parsed file back into a
// gainmap.Result, ready for gainmap.Decode.
func (f *File) DecodeResult() (*gainmap.Result, error) {
	if f.Metadata == nil {
		return nil, ErrNoMetadata
	}
	sdr, w, h, err := decodeBaselineJPEG(f.PrimaryJPEG)
	if err != nil {
		return nil, err
	}
	gm, gw, gh, err := decodeBaselineJPEG(f.GainMapJPEG)
	if err != nil {
		return nil, err
	}
	if gw != w || gh != h {
		gm = resampleNearest(gm, gw, gh, w, h)
	}
	return &gainmap.Result{
		Width:    w,
		Height:   h,
		SDR:      sdr,
		GainMap:  gm,
		Metadata: *f.Metadata,
	}, nil
}

// encodeBaselineJPEG compresses a row-major RGBA plane.
func encodeBaselineJPEG(rgba []uint8, width, height, quality int) ([]byte, error) {
	img := &image.RGBA{
		Pix:    rgba,
		Stride: 4 * width,
		Rect:   image.Rect(0, 0, width, height),
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodeBaselineJPEG decompresses to a row-major RGBA plane.
func decodeBaselineJPEG(data []byte) ([]uint8, int, int, error) {
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, 0, 0, err
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := make([]uint8, 4*w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := gocolor.RGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(gocolor.RGBA)
			i := 4 * (y*w + x)
			out[i], out[i+1], out[i+2], out[i+3] = c.R, c.G, c.B, c.A
		}
	}
	return out, w, h, nil
}

// resampleNearest scales an RGBA plane to new dimensions; used when the
// stored gain map is smaller than the primary.
func resampleNearest(src []uint8, sw, sh, dw, dh int) []uint8 {
	out := make([]uint8, 4*dw*dh)
	for y := 0; y < dh; y++ {
		sy := y * sh / dh
		for x := 0; x < dw; x++ {
			sx := x * sw / dw
			copy(out[4*(y*dw+x):4*(y*dw+x)+4], src[4*(sy*sw+sx):4*(sy*sw+sx)+4])
		}
	}
	return out
}
