package hdrforge

import (
	"errors"

	"github.com/bhouston/hdrforge/color"
	"github.com/bhouston/hdrforge/gainmap"
	"github.com/bhouston/hdrforge/jpegr"
	"github.com/bhouston/hdrforge/tonemap"
)

// ErrWideColorSpace reports source chromaticities that match no space
// this package can convert to Rec.709 for gain map encoding.
var ErrWideColorSpace = errors.New("hdrforge: wide_color_space_unsupported")

// GainMapEncodeOptions configures EncodeGainMap.
type GainMapEncodeOptions struct {
	MaxContentBoost float64
	MinContentBoost float64
	Gamma           [3]float64
	Exposure        float64
	ToneMapping     string // "aces" (default), "reinhard", "neutral", "agx"
	ReuseMetadata   *gainmap.Metadata
	// ConvertMismatched gamut-converts sources whose chromaticities
	// match a known wide space other than their ColorSpace tag, using
	// the space the chromaticities name; when false such sources are
	// rejected.
	ConvertMismatched bool
}

// EncodeGainMap renders a linear HDR image into an 8-bit SDR base plus
// gain map. Sources in P3 or Rec.2020 are converted to Rec.709 first;
// unrecognized chromaticities are rejected with ErrWideColorSpace.
func EncodeGainMap(img *FloatImage, opts *GainMapEncodeOptions) (*gainmap.Result, error) {
	if err := img.Validate(); err != nil {
		return nil, err
	}
	var o GainMapEncodeOptions
	if opts != nil {
		o = *opts
	}

	src := img
	from := img.ColorSpace
	if ch, ok := img.Metadata.Chromaticities(); ok {
		space := color.Classify(ch)
		if space == color.SpaceUnspecified {
			return nil, ErrWideColorSpace
		}
		if space != color.SpaceRec709 && space != img.ColorSpace {
			if !o.ConvertMismatched {
				return nil, ErrWideColorSpace
			}
			from = space
		}
	}
	if from != LinearRec709 && from != color.SpaceUnspecified {
		src = img.Clone()
		color.ConvertLinearBuffer(src.Pixels, from, LinearRec709)
		src.ColorSpace = LinearRec709
	}
	Sanitize(src)

	return gainmap.Encode(src.Pixels, src.Width, src.Height, &gainmap.EncodeOptions{
		MaxContentBoost: o.MaxContentBoost,
		MinContentBoost: o.MinContentBoost,
		Gamma:           o.Gamma,
		Exposure:        o.Exposure,
		ToneMapping:     tonemap.OperatorNamed(o.ToneMapping),
		ReuseMetadata:   o.ReuseMetadata,
	})
}

// DecodeGainMap reconstructs the linear Rec.709 HDR image from an
// encoding result.
func DecodeGainMap(res *gainmap.Result) (*FloatImage, error) {
	pixels, err := gainmap.Decode(res)
	if err != nil {
		return nil, err
	}
	return &FloatImage{
		Width:      res.Width,
		Height:     res.Height,
		Pixels:     pixels,
		ColorSpace: LinearRec709,
		Metadata:   Metadata{},
	}, nil
}

// JPEGGainMapWriteOptions configures WriteJPEGGainMap.
type JPEGGainMapWriteOptions struct {
	Quality int
	// Format is "ultrahdr" (default) or "adobe-gainmap".
	Format string
	EXIF   []byte
}

// WriteJPEGGainMap assembles an encoding result into a JPEG container
// carrying the SDR base and the gain map image.
func WriteJPEGGainMap(res *gainmap.Result, opts *JPEGGainMapWriteOptions) ([]byte, error) {
	var o JPEGGainMapWriteOptions
	if opts != nil {
		o = *opts
	}
	format := jpegr.FormatUltraHDR
	if o.Format == "adobe-gainmap" {
		format = jpegr.FormatAdobe
	}
	return jpegr.Write(res, &jpegr.WriteOptions{Quality: o.Quality, Format: format, EXIF: o.EXIF})
}

// ReadJPEGGainMap parses a gain map container and reconstructs the HDR
// image. The metadata map records the detected container layout under
// the "format" key.
func ReadJPEGGainMap(data []byte) (*FloatImage, error) {
	f, err := jpegr.Read(data)
	if err != nil {
		return nil, err
	}
	res, err := f.DecodeResult()
	if err != nil {
		return nil, err
	}
	img, err := DecodeGainMap(res)
	if err != nil {
		return nil, err
	}
	img.Metadata[KeyFormat] = MetaString(f.Format.String())
	return img, nil
}
