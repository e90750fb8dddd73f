package radiance

import (
	"bytes"
	"fmt"
	"math"
	"sort"
)

// WriteOptions controls the emitted header.
type WriteOptions struct {
	// Comment is written as a "# ..." line after the signature.
	Comment string
	// Vars are extra KEY=VALUE header lines (EXPOSURE, GAMMA, ...).
	// FORMAT is always written by the encoder and ignored here.
	Vars map[string]string
}

// Encode serializes a linear RGBA float buffer as a Radiance HDR stream.
// Pixels must be finite and non-negative; the scanlines are written
// without run-length coding (readers accept both forms).
func Encode(pixels []float32, width, height int, opts *WriteOptions) ([]byte, error) {
	if width <= 0 || height <= 0 || len(pixels) != 4*width*height {
		return nil, fmt.Errorf("radiance: dimension_mismatch: %dx%d with %d samples", width, height, len(pixels))
	}
	var o WriteOptions
	if opts != nil {
		o = *opts
	}

	var out bytes.Buffer
	out.WriteString("#?RADIANCE\n")
	comment := o.Comment
	if comment == "" {
		comment = "written by hdrforge"
	}
	fmt.Fprintf(&out, "# %s\n", comment)
	keys := make([]string, 0, len(o.Vars))
	for k := range o.Vars {
		if k == "FORMAT" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&out, "%s=%s\n", k, o.Vars[k])
	}
	fmt.Fprintf(&out, "FORMAT=%s\n\n-Y %d +X %d\n", formatRGBE, height, width)

	for i := 0; i < width*height; i++ {
		r, g, b, e := encodeRGBE(pixels[4*i], pixels[4*i+1], pixels[4*i+2])
		out.WriteByte(r)
		out.WriteByte(g)
		out.WriteByte(b)
		out.WriteByte(e)
	}
	return out.Bytes(), nil
}

// encodeRGBE packs one linear RGB pixel into shared-exponent RGBE using
// quantization-aware rounding: the exponent is chosen so the largest
// channel lands in (127.5, 255.5] and mantissas round with
// round(v/factor*255 - 0.5), the exact pairing for a midpoint decoder.
func encodeRGBE(r, g, b float32) (byte, byte, byte, byte) {
	m := r
	if g > m {
		m = g
	}
	if b > m {
		m = b
	}
	if m < 1e-32 {
		return 0, 0, 0, 0
	}

	e := int(math.Ceil(math.Log2(float64(m)))) + 128
	if e < 128 {
		e = 128
	}
	if e > 255 {
		e = 255
	}
	for {
		factor := float32(math.Ldexp(1, e-128))
		mr := quantize(r / factor)
		mg := quantize(g / factor)
		mb := quantize(b / factor)
		if (mr > 255 || mg > 255 || mb > 255) && e < 255 {
			e++
			continue
		}
		return clampByte(mr), clampByte(mg), clampByte(mb), byte(e)
	}
}

func quantize(v float32) int {
	return int(math.Round(float64(v)*255 - 0.5))
}

func clampByte(v int) byte {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v)
}
