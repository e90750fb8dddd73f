// Package hdrforge moves high-dynamic-range floating-point images
// between OpenEXR, Radiance HDR, and JPEG-with-gain-map byte streams,
// and renders them for 8-bit sRGB displays. All readers and writers are
// pure functions over byte buffers; files never touch this package.
package hdrforge

import (
	"errors"

	"github.com/bhouston/hdrforge/color"
)

// ColorSpace identifies the linear color space of a FloatImage.
type ColorSpace = color.Space

// Linear color spaces a FloatImage may be tagged with.
const (
	LinearRec709  = color.SpaceRec709
	LinearP3      = color.SpaceP3
	LinearRec2020 = color.SpaceRec2020
)

// ErrDimensionMismatch reports pixel data whose length does not match
// the declared dimensions.
var ErrDimensionMismatch = errors.New("hdrforge: dimension_mismatch")

// FloatImage is the universal in-memory image: row-major RGBA float32,
// linear light, scene-referred, unbounded. Alpha is 1 when the source
// format carries none.
type FloatImage struct {
	Width, Height int
	Pixels        []float32 // 4*Width*Height
	ColorSpace    ColorSpace
	Metadata      Metadata
}

// NewFloatImage allocates a black, fully opaque image.
func NewFloatImage(width, height int, space ColorSpace) *FloatImage {
	img := &FloatImage{
		Width:      width,
		Height:     height,
		Pixels:     make([]float32, 4*width*height),
		ColorSpace: space,
		Metadata:   Metadata{},
	}
	for i := 3; i < len(img.Pixels); i += 4 {
		img.Pixels[i] = 1
	}
	return img
}

// Validate checks the pixel-count invariant.
func (img *FloatImage) Validate() error {
	if img.Width <= 0 || img.Height <= 0 || len(img.Pixels) != 4*img.Width*img.Height {
		return ErrDimensionMismatch
	}
	return nil
}

// At returns the RGBA value at (x, y).
func (img *FloatImage) At(x, y int) (r, g, b, a float32) {
	i := 4 * (y*img.Width + x)
	return img.Pixels[i], img.Pixels[i+1], img.Pixels[i+2], img.Pixels[i+3]
}

// Set stores the RGBA value at (x, y).
func (img *FloatImage) Set(x, y int, r, g, b, a float32) {
	i := 4 * (y*img.Width + x)
	img.Pixels[i], img.Pixels[i+1], img.Pixels[i+2], img.Pixels[i+3] = r, g, b, a
}

// Clone deep-copies the image, including metadata.
func (img *FloatImage) Clone() *FloatImage {
	out := &FloatImage{
		Width:      img.Width,
		Height:     img.Height,
		Pixels:     append([]float32(nil), img.Pixels...),
		ColorSpace: img.ColorSpace,
		Metadata:   img.Metadata.Clone(),
	}
	return out
}
