package hdrforge

import (
	"github.com/bhouston/hdrforge/color"
	"github.com/bhouston/hdrforge/exr"
)

// EXR compression selectors for WriteEXR, mirroring the on-disk codes.
const (
	EXRCompressionNone  = exr.CompressionNone
	EXRCompressionRLE   = exr.CompressionRLE
	EXRCompressionZIPS  = exr.CompressionZIPS
	EXRCompressionZIP   = exr.CompressionZIP
	EXRCompressionPIZ   = exr.CompressionPIZ
	EXRCompressionPXR24 = exr.CompressionPXR24
)

// EXRWriteOptions controls WriteEXR.
type EXRWriteOptions struct {
	Compression int
}

// ReadEXR decodes a single-part scanline EXR stream into a FloatImage.
// Channels named R, G, and B map to the color planes, A to alpha (1.0
// when absent); other channels are skipped. Unknown header attributes
// are preserved in the metadata map.
func ReadEXR(data []byte) (*FloatImage, error) {
	decoded, err := exr.Decode(data)
	if err != nil {
		return nil, err
	}
	h := decoded.Header
	width, height := h.Width(), h.Height()

	img := NewFloatImage(width, height, LinearRec709)
	img.Metadata[KeyCompression] = MetaInt(h.Compression)

	for c, ch := range h.Channels {
		var offset int
		switch ch.Name {
		case "R":
			offset = 0
		case "G":
			offset = 1
		case "B":
			offset = 2
		case "A":
			offset = 3
		default:
			continue
		}
		plane := decoded.Channels[c]
		for i := 0; i < width*height; i++ {
			img.Pixels[4*i+offset] = plane[i]
		}
	}

	if h.Chromaticities != nil {
		img.Metadata[KeyChromaticities] = MetaChromaticities(*h.Chromaticities)
		if s := color.Classify(*h.Chromaticities); s != color.SpaceUnspecified {
			img.ColorSpace = s
		}
	}
	for name, attr := range h.Extra {
		img.Metadata[name] = MetaRaw{TypeName: attr.TypeName, Data: attr.Raw}
	}
	return img, nil
}

// WriteEXR encodes a FloatImage as a single-part scanline EXR stream.
// Uncompressed and RLE files store full float32; ZIPS, ZIP, PIZ and
// PXR24 store half floats. The image is sanitized in place first.
func WriteEXR(img *FloatImage, opts *EXRWriteOptions) ([]byte, error) {
	if err := img.Validate(); err != nil {
		return nil, err
	}
	Sanitize(img)

	compression := exr.CompressionNone
	if opts != nil {
		compression = opts.Compression
	} else if c, ok := img.Metadata.Int(KeyCompression); ok {
		compression = c
	}
	switch compression {
	case exr.CompressionNone, exr.CompressionRLE, exr.CompressionZIPS,
		exr.CompressionZIP, exr.CompressionPIZ, exr.CompressionPXR24:
	default:
		return nil, exr.ErrUnsupportedCompression
	}

	pixelType := int32(exr.PixelHalf)
	if compression == exr.CompressionNone || compression == exr.CompressionRLE {
		pixelType = exr.PixelFloat
	}

	width, height := img.Width, img.Height
	h := &exr.Header{
		DataWindow:    exr.Box2i{XMin: 0, YMin: 0, XMax: int32(width - 1), YMax: int32(height - 1)},
		DisplayWindow: exr.Box2i{XMin: 0, YMin: 0, XMax: int32(width - 1), YMax: int32(height - 1)},
		Channels: []exr.ChannelRecord{
			{Name: "A", PixelType: pixelType, XSampling: 1, YSampling: 1},
			{Name: "B", PixelType: pixelType, XSampling: 1, YSampling: 1},
			{Name: "G", PixelType: pixelType, XSampling: 1, YSampling: 1},
			{Name: "R", PixelType: pixelType, XSampling: 1, YSampling: 1},
		},
		Compression:       compression,
		PixelAspectRatio:  1,
		ScreenWindowWidth: 1,
		Extra:             map[string]exr.Attribute{},
	}

	if ch, ok := img.Metadata.Chromaticities(); ok {
		c := ch
		h.Chromaticities = &c
	} else if img.ColorSpace != color.SpaceUnspecified && img.ColorSpace != color.SpaceRec709 {
		c := color.ForSpace(img.ColorSpace)
		h.Chromaticities = &c
	}
	for name, v := range img.Metadata {
		if raw, ok := v.(MetaRaw); ok {
			h.Extra[name] = exr.Attribute{Kind: exr.AttrUnknown, TypeName: raw.TypeName, Raw: raw.Data}
		}
	}

	channels := make([][]float32, 4)
	order := [4]int{3, 2, 1, 0} // A, B, G, R planes from RGBA samples
	for c, offset := range order {
		plane := make([]float32, width*height)
		for i := 0; i < width*height; i++ {
			plane[i] = img.Pixels[4*i+offset]
		}
		channels[c] = plane
	}

	return exr.Encode(&exr.Image{Header: h, Channels: channels})
}
