package hdrforge

import (
	"bytes"
	"image"

	_ "golang.org/x/image/tiff"

	"github.com/bhouston/hdrforge/color"
)

// DecodeTIFF decodes an 8/16-bit integer TIFF into a FloatImage,
// treating the stored values as sRGB-encoded and linearizing them.
func DecodeTIFF(data []byte) (*FloatImage, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return nil, ErrDimensionMismatch
	}

	img := NewFloatImage(w, h, LinearRec709)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, bl, a := src.At(b.Min.X+x, b.Min.Y+y).RGBA()
			i := 4 * (y*w + x)
			img.Pixels[i] = float32(color.SRGBEOTF(float64(r) / 65535))
			img.Pixels[i+1] = float32(color.SRGBEOTF(float64(g) / 65535))
			img.Pixels[i+2] = float32(color.SRGBEOTF(float64(bl) / 65535))
			img.Pixels[i+3] = float32(a) / 65535
		}
	}
	return img, nil
}
