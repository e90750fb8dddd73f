package gainmap

import (
	"math"
	"testing"

	"github.com/bhouston/hdrforge/tonemap"
)

// rainbow fills a w*h RGBA image with hue sweeping horizontally and
// intensity ramping vertically up to the given peak.
func rainbow(w, h int, peak float64) []float32 {
	pixels := make([]float32, 4*w*h)
	for y := 0; y < h; y++ {
		scale := peak * (0.1 + 0.9*float64(y)/float64(maxInt(h-1, 1)))
		for x := 0; x < w; x++ {
			hue := 6 * float64(x) / float64(maxInt(w-1, 1))
			r, g, b := hueToRGB(hue)
			i := 4 * (y*w + x)
			pixels[i] = float32(r * scale)
			pixels[i+1] = float32(g * scale)
			pixels[i+2] = float32(b * scale)
			pixels[i+3] = 1
		}
	}
	return pixels
}

func hueToRGB(h float64) (float64, float64, float64) {
	c := 1.0
	x := 1 - math.Abs(math.Mod(h, 2)-1)
	switch {
	case h < 1:
		return c, x, 0
	case h < 2:
		return x, c, 0
	case h < 3:
		return 0, c, x
	case h < 4:
		return 0, x, c
	case h < 5:
		return x, 0, c
	default:
		return c, 0, x
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func maxRelError(t *testing.T, got, want []float32, floor float32) float64 {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("length mismatch: %d vs %d", len(got), len(want))
	}
	worst := 0.0
	for i := 0; i < len(want); i += 4 {
		for c := 0; c < 3; c++ {
			w := want[i+c]
			if w <= floor {
				continue
			}
			rel := math.Abs(float64(got[i+c]-w)) / float64(w)
			if rel > worst {
				worst = rel
			}
		}
	}
	return worst
}

func TestQuantizedRoundTripRainbow(t *testing.T) {
	const w, h = 16, 16
	pixels := rainbow(w, h, 4)

	res, err := Encode(pixels, w, h, &EncodeOptions{ToneMapping: tonemap.OperatorReinhard})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := Decode(res)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if worst := maxRelError(t, decoded, pixels, 0.01); worst > 0.005 {
		t.Fatalf("rainbow round trip: worst relative error %.5f > 0.005", worst)
	}
}

func TestQuantizedRoundTripGradient(t *testing.T) {
	const w, h = 64, 4
	pixels := make([]float32, 4*w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := float32(0.05 + (1.5-0.05)*float64(x)/float64(w-1))
			i := 4 * (y*w + x)
			pixels[i], pixels[i+1], pixels[i+2], pixels[i+3] = v, v, v, 1
		}
	}
	res, err := Encode(pixels, w, h, nil)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := Decode(res)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if worst := maxRelError(t, decoded, pixels, 0.01); worst > 0.02 {
		t.Fatalf("gradient round trip: worst relative error %.5f > 0.02", worst)
	}
}

func TestFloatRoundTrip(t *testing.T) {
	const w, h = 16, 16
	pixels := rainbow(w, h, 4)

	res, sdrLinear, gain, err := EncodeFloat(pixels, w, h, &EncodeOptions{ToneMapping: tonemap.OperatorACES})
	if err != nil {
		t.Fatalf("EncodeFloat: %v", err)
	}
	decoded, err := DecodeFloat(sdrLinear, gain, w, h, &res.Metadata)
	if err != nil {
		t.Fatalf("DecodeFloat: %v", err)
	}
	if worst := maxRelError(t, decoded, pixels, 0.01); worst > 0.005 {
		t.Fatalf("float round trip: worst relative error %.5f > 0.005", worst)
	}
}

// The decoder must recover the same HDR regardless of which tone mapper
// produced the SDR base.
func TestDecodeToneMapAgnostic(t *testing.T) {
	const w, h = 16, 16
	pixels := rainbow(w, h, 4)

	for _, op := range []tonemap.Operator{tonemap.OperatorReinhard, tonemap.OperatorACES, tonemap.OperatorNeutral} {
		res, sdrLinear, gain, err := EncodeFloat(pixels, w, h, &EncodeOptions{ToneMapping: op})
		if err != nil {
			t.Fatalf("%v EncodeFloat: %v", op, err)
		}
		decoded, err := DecodeFloat(sdrLinear, gain, w, h, &res.Metadata)
		if err != nil {
			t.Fatalf("%v DecodeFloat: %v", op, err)
		}
		if worst := maxRelError(t, decoded, pixels, 0.01); worst > 0.005 {
			t.Fatalf("%v: worst relative error %.5f > 0.005", op, worst)
		}
	}
}

func TestReuseMetadata(t *testing.T) {
	const w, h = 8, 8
	pixels := rainbow(w, h, 2)

	first, err := Encode(pixels, w, h, nil)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	second, err := Encode(pixels, w, h, &EncodeOptions{ReuseMetadata: &first.Metadata})
	if err != nil {
		t.Fatalf("re-Encode: %v", err)
	}
	if second.Metadata != first.Metadata {
		t.Fatalf("metadata changed on re-encode:\n%+v\n%+v", first.Metadata, second.Metadata)
	}
	for i := range first.GainMap {
		if first.GainMap[i] != second.GainMap[i] {
			t.Fatalf("gain map byte %d changed on re-encode", i)
		}
	}
}

func TestContentBoostOverrides(t *testing.T) {
	const w, h = 8, 8
	pixels := rainbow(w, h, 4)

	res, err := Encode(pixels, w, h, &EncodeOptions{MinContentBoost: 1, MaxContentBoost: 8})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	for c := 0; c < 3; c++ {
		if res.Metadata.GainMapMin[c] != 0 {
			t.Fatalf("GainMapMin[%d] = %v, want 0", c, res.Metadata.GainMapMin[c])
		}
		if res.Metadata.GainMapMax[c] != 3 {
			t.Fatalf("GainMapMax[%d] = %v, want 3", c, res.Metadata.GainMapMax[c])
		}
	}
}

func TestEncodeRejectsBadDimensions(t *testing.T) {
	if _, err := Encode(make([]float32, 12), 2, 2, nil); err != ErrDimensionMismatch {
		t.Fatalf("got %v want ErrDimensionMismatch", err)
	}
}

func TestDecodeRejectsBadMetadata(t *testing.T) {
	res := &Result{Width: 1, Height: 1, SDR: make([]uint8, 4), GainMap: make([]uint8, 4)}
	res.Metadata.Gamma = [3]float64{1, 1, 0} // gamma must be positive
	res.Metadata.HDRCapacityMax = 1
	if _, err := Decode(res); err != ErrInvalidMetadata {
		t.Fatalf("got %v want ErrInvalidMetadata", err)
	}
}
