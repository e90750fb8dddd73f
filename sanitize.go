package hdrforge

import "math"

// Sanitize maps NaN, infinities, and negative samples to 0, in place.
// Writers and the tone mapping pipeline apply it on entry, restoring
// the "finite and non-negative" precondition; the pass is idempotent.
func Sanitize(img *FloatImage) {
	SanitizePixels(img.Pixels)
}

// SanitizePixels is Sanitize over a bare sample slice.
func SanitizePixels(pixels []float32) {
	for i, v := range pixels {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) || v < 0 {
			pixels[i] = 0
		}
	}
}
