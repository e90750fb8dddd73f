package gainmap

import (
	"math"

	"github.com/bhouston/hdrforge/color"
)

// Decode reconstructs linear Rec.709 RGBA floats from an SDR base, gain
// map, and metadata. The reconstruction uses only the stored ratio, so
// it does not depend on which tone mapper produced the SDR rendition.
func Decode(res *Result) ([]float32, error) {
	n := res.Width * res.Height
	if res.Width <= 0 || res.Height <= 0 || len(res.SDR) != 4*n || len(res.GainMap) != 4*n {
		return nil, ErrDimensionMismatch
	}
	if err := res.Metadata.Validate(); err != nil {
		return nil, err
	}
	m := &res.Metadata

	out := make([]float32, 4*n)
	for i := 0; i < n; i++ {
		for c := 0; c < 3; c++ {
			sdr := color.SRGBEOTF(float64(res.SDR[4*i+c]) / 255)
			out[4*i+c] = float32(applyGain(sdr, float64(res.GainMap[4*i+c])/255, m, c))
		}
		out[4*i+3] = float32(res.SDR[4*i+3]) / 255
	}
	return out, nil
}

// DecodeFloat reconstructs HDR from the unquantized planes produced by
// EncodeFloat.
func DecodeFloat(sdrLinear, gain []float64, width, height int, m *Metadata) ([]float32, error) {
	n := width * height
	if width <= 0 || height <= 0 || len(sdrLinear) != 4*n || len(gain) != 4*n {
		return nil, ErrDimensionMismatch
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}

	out := make([]float32, 4*n)
	for i := 0; i < n; i++ {
		for c := 0; c < 3; c++ {
			out[4*i+c] = float32(applyGain(sdrLinear[4*i+c], gain[4*i+c], m, c))
		}
		out[4*i+3] = float32(sdrLinear[4*i+3])
	}
	return out, nil
}

// applyGain maps one stored gain sample back to linear HDR for channel c.
func applyGain(sdrLinear, stored float64, m *Metadata, c int) float64 {
	t := stored
	if m.Gamma[c] != 1 {
		t = math.Pow(t, 1/m.Gamma[c])
	}
	logRatio := m.GainMapMin[c] + t*(m.GainMapMax[c]-m.GainMapMin[c])
	return (sdrLinear+m.OffsetSDR[c])*math.Exp2(logRatio) - m.OffsetHDR[c]
}
