package hdrforge

import (
	"github.com/bhouston/hdrforge/color"
	"github.com/bhouston/hdrforge/tonemap"
)

// ToneMapOptions configures ApplyToneMapping.
type ToneMapOptions struct {
	// Tone is "aces" (default), "reinhard", "neutral", or "agx".
	Tone string
	// Exposure multiplies linear values before mapping; 0 means 1.
	Exposure float64
}

// ApplyToneMapping renders a FloatImage for an sRGB display: sanitize,
// gamut convert to Rec.709, exposure, tone map, sRGB encode. The result
// is packed 8-bit RGB, 3 bytes per pixel.
func ApplyToneMapping(img *FloatImage, opts *ToneMapOptions) ([]uint8, error) {
	if err := img.Validate(); err != nil {
		return nil, err
	}
	var o ToneMapOptions
	if opts != nil {
		o = *opts
	}
	Sanitize(img)
	return tonemap.Render(img.Pixels, img.Width, img.Height, tonemap.Options{
		Operator:    tonemap.OperatorNamed(o.Tone),
		Exposure:    o.Exposure,
		SourceSpace: img.ColorSpace,
	}), nil
}

// ConvertLinearColorSpace converts the image's pixels between linear
// color spaces in place and retags it.
func ConvertLinearColorSpace(img *FloatImage, target ColorSpace) error {
	if err := img.Validate(); err != nil {
		return err
	}
	if img.ColorSpace == target {
		return nil
	}
	from := img.ColorSpace
	if from == color.SpaceUnspecified {
		from = LinearRec709
	}
	color.ConvertLinearBuffer(img.Pixels, from, target)
	img.ColorSpace = target
	if _, ok := img.Metadata.Chromaticities(); ok {
		img.Metadata[KeyChromaticities] = MetaChromaticities(color.ForSpace(target))
	}
	return nil
}
