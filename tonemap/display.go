package tonemap

import (
	"math"

	"github.com/bhouston/hdrforge/color"
)

// Options controls the full display pipeline.
type Options struct {
	Operator Operator
	// Exposure is a linear multiplier applied before the operator;
	// 0 means 1.
	Exposure float64
	// SourceSpace is the linear color space of the input pixels; they
	// are gamut-converted to Rec.709 before mapping.
	SourceSpace color.Space
}

// Render runs the display pipeline over a row-major RGBA float buffer:
// sanitize, gamut convert to linear Rec.709, exposure, tone map, sRGB
// encode, quantize. The result is packed 8-bit RGB (3 bytes per pixel);
// the input is left untouched.
func Render(pixels []float32, width, height int, opts Options) []uint8 {
	exposure := opts.Exposure
	if exposure == 0 {
		exposure = 1
	}
	convert := opts.SourceSpace != color.SpaceUnspecified && opts.SourceSpace != color.SpaceRec709

	out := make([]uint8, 3*width*height)
	for i := 0; i < width*height; i++ {
		r := finiteNonNegative(float64(pixels[4*i]))
		g := finiteNonNegative(float64(pixels[4*i+1]))
		b := finiteNonNegative(float64(pixels[4*i+2]))
		if convert {
			r, g, b, _ = color.ConvertLinearRGBA(r, g, b, 1, opts.SourceSpace, color.SpaceRec709)
			r, g, b = finiteNonNegative(r), finiteNonNegative(g), finiteNonNegative(b)
		}
		r, g, b = opts.Operator.Map(r*exposure, g*exposure, b*exposure)
		out[3*i] = quantizeSRGB(r)
		out[3*i+1] = quantizeSRGB(g)
		out[3*i+2] = quantizeSRGB(b)
	}
	return out
}

func quantizeSRGB(linear float64) uint8 {
	v := math.Round(color.SRGBEOTFInverse(linear) * 255)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
