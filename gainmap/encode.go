package gainmap

import (
	"math"

	"github.com/bhouston/hdrforge/color"
	"github.com/bhouston/hdrforge/tonemap"
)

const defaultOffset = 1.0 / 64.0

// gainRangeFloor keeps the normalization denominator usable on flat
// images where min and max log ratios coincide.
const gainRangeFloor = 1e-6

// EncodeOptions controls gain map generation. Zero values select the
// defaults noted per field.
type EncodeOptions struct {
	// MaxContentBoost pins GainMapMax to log2 of this value instead of
	// the observed per-channel maximum. 0 derives it from the image.
	MaxContentBoost float64
	// MinContentBoost pins GainMapMin likewise; 0 derives it.
	MinContentBoost float64
	// OffsetSDR and OffsetHDR default to 1/64 per channel.
	OffsetSDR *[3]float64
	OffsetHDR *[3]float64
	// Gamma defaults to 1 per channel.
	Gamma [3]float64
	// Exposure multiplies the input before tone mapping; 0 means 1.
	Exposure float64
	// ToneMapping selects the SDR rendition curve (default ACES).
	ToneMapping tonemap.Operator
	// ReuseMetadata, when set, takes GainMapMin/Max, offsets, and gamma
	// from a previous encode so a decode/re-encode cycle is lossless.
	ReuseMetadata *Metadata
}

func (o *EncodeOptions) withDefaults() EncodeOptions {
	var opt EncodeOptions
	if o != nil {
		opt = *o
	}
	if opt.OffsetSDR == nil {
		opt.OffsetSDR = &[3]float64{defaultOffset, defaultOffset, defaultOffset}
	}
	if opt.OffsetHDR == nil {
		opt.OffsetHDR = &[3]float64{defaultOffset, defaultOffset, defaultOffset}
	}
	for c := 0; c < 3; c++ {
		if opt.Gamma[c] <= 0 {
			opt.Gamma[c] = 1
		}
	}
	if opt.Exposure == 0 {
		opt.Exposure = 1
	}
	if opt.ReuseMetadata != nil {
		m := opt.ReuseMetadata
		opt.OffsetSDR = &m.OffsetSDR
		opt.OffsetHDR = &m.OffsetHDR
		opt.Gamma = m.Gamma
	}
	return opt
}

// floatPlanes is the unquantized intermediate the float-only encoder
// variant exposes for round-trip testing: linear SDR values and the
// normalized, gamma-encoded gain samples before 8-bit quantization.
type floatPlanes struct {
	sdrLinear []float64 // 4*w*h RGBA, linear light
	gain      []float64 // 4*w*h RGBA, normalized [0,1] log-ratio raised to Gamma
}

// Encode tone maps a linear Rec.709 RGBA float image to an SDR base and
// computes its gain map. Pixels must be sanitized (finite, non-negative).
func Encode(pixels []float32, width, height int, opts *EncodeOptions) (*Result, error) {
	res, _, err := encode(pixels, width, height, opts, nil, false)
	return res, err
}

// EncodeWithBase computes a gain map against a caller-supplied sRGB SDR
// base instead of a tone-mapped rendition, preserving the base exactly.
// Used when rebasing an existing container onto a new primary image.
func EncodeWithBase(pixels []float32, sdrBase []uint8, width, height int, opts *EncodeOptions) (*Result, error) {
	if len(sdrBase) != 4*width*height {
		return nil, ErrDimensionMismatch
	}
	res, _, err := encode(pixels, width, height, opts, sdrBase, false)
	return res, err
}

// EncodeFloat is the float-only variant: alongside the quantized result
// it returns the unquantized linear SDR and normalized gain planes, so
// tests can separate quantization error from pipeline error.
func EncodeFloat(pixels []float32, width, height int, opts *EncodeOptions) (*Result, []float64, []float64, error) {
	res, planes, err := encode(pixels, width, height, opts, nil, true)
	if err != nil {
		return nil, nil, nil, err
	}
	return res, planes.sdrLinear, planes.gain, nil
}

func encode(pixels []float32, width, height int, opts *EncodeOptions, sdrBase []uint8, keepFloats bool) (*Result, *floatPlanes, error) {
	if width <= 0 || height <= 0 || len(pixels) != 4*width*height {
		return nil, nil, ErrDimensionMismatch
	}
	opt := opts.withDefaults()
	n := width * height

	res := &Result{
		Width:   width,
		Height:  height,
		SDR:     make([]uint8, 4*n),
		GainMap: make([]uint8, 4*n),
	}

	// Pass 1: SDR rendition plus per-pixel log ratios.
	sdrLinear := make([]float64, 4*n)
	logRatio := make([]float64, 3*n)
	minLog := [3]float64{math.Inf(1), math.Inf(1), math.Inf(1)}
	maxLog := [3]float64{math.Inf(-1), math.Inf(-1), math.Inf(-1)}

	for i := 0; i < n; i++ {
		hr := float64(pixels[4*i]) * opt.Exposure
		hg := float64(pixels[4*i+1]) * opt.Exposure
		hb := float64(pixels[4*i+2]) * opt.Exposure
		ha := float64(pixels[4*i+3])

		var sr, sg, sb float64
		if sdrBase != nil {
			copy(res.SDR[4*i:4*i+4], sdrBase[4*i:4*i+4])
			sr = color.SRGBEOTF(float64(sdrBase[4*i]) / 255)
			sg = color.SRGBEOTF(float64(sdrBase[4*i+1]) / 255)
			sb = color.SRGBEOTF(float64(sdrBase[4*i+2]) / 255)
		} else {
			sr, sg, sb = opt.ToneMapping.Map(hr, hg, hb)

			// Quantize the SDR base first: the stored ratio must be
			// taken against the bytes a decoder will actually see.
			res.SDR[4*i] = quantizeByte(color.SRGBEOTFInverse(sr))
			res.SDR[4*i+1] = quantizeByte(color.SRGBEOTFInverse(sg))
			res.SDR[4*i+2] = quantizeByte(color.SRGBEOTFInverse(sb))
			res.SDR[4*i+3] = quantizeByte(ha)
		}

		for c := 0; c < 3; c++ {
			var hdr float64
			switch c {
			case 0:
				hdr = hr
			case 1:
				hdr = hg
			default:
				hdr = hb
			}
			var sdr float64
			if keepFloats {
				switch c {
				case 0:
					sdr = sr
				case 1:
					sdr = sg
				default:
					sdr = sb
				}
			} else {
				sdr = color.SRGBEOTF(float64(res.SDR[4*i+c]) / 255)
			}
			sdrLinear[4*i+c] = sdr
			lr := math.Log2((hdr + opt.OffsetHDR[c]) / (sdr + opt.OffsetSDR[c]))
			logRatio[3*i+c] = lr
			if lr < minLog[c] {
				minLog[c] = lr
			}
			if lr > maxLog[c] {
				maxLog[c] = lr
			}
		}
		sdrLinear[4*i+3] = ha
	}

	meta := Metadata{
		Gamma:     opt.Gamma,
		OffsetSDR: *opt.OffsetSDR,
		OffsetHDR: *opt.OffsetHDR,
	}
	for c := 0; c < 3; c++ {
		meta.GainMapMin[c] = minLog[c]
		meta.GainMapMax[c] = maxLog[c]
		if opt.MinContentBoost > 0 {
			meta.GainMapMin[c] = math.Log2(opt.MinContentBoost)
		}
		if opt.MaxContentBoost > 0 {
			meta.GainMapMax[c] = math.Log2(opt.MaxContentBoost)
		}
		if opt.ReuseMetadata != nil {
			meta.GainMapMin[c] = opt.ReuseMetadata.GainMapMin[c]
			meta.GainMapMax[c] = opt.ReuseMetadata.GainMapMax[c]
		}
		if meta.GainMapMax[c]-meta.GainMapMin[c] < gainRangeFloor {
			meta.GainMapMax[c] = meta.GainMapMin[c] + gainRangeFloor
		}
	}

	meta.HDRCapacityMin = math.Max(0, math.Min(meta.GainMapMin[0], math.Min(meta.GainMapMin[1], meta.GainMapMin[2])))
	meta.HDRCapacityMax = math.Max(meta.GainMapMax[0], math.Max(meta.GainMapMax[1], meta.GainMapMax[2]))
	if meta.HDRCapacityMax <= meta.HDRCapacityMin {
		meta.HDRCapacityMax = meta.HDRCapacityMin + gainRangeFloor
	}

	// Pass 2: normalize, gamma encode, quantize.
	var planes *floatPlanes
	if keepFloats {
		planes = &floatPlanes{sdrLinear: sdrLinear, gain: make([]float64, 4*n)}
	}
	for i := 0; i < n; i++ {
		for c := 0; c < 3; c++ {
			t := (logRatio[3*i+c] - meta.GainMapMin[c]) / (meta.GainMapMax[c] - meta.GainMapMin[c])
			if t < 0 {
				t = 0
			}
			if t > 1 {
				t = 1
			}
			stored := t
			if meta.Gamma[c] != 1 {
				stored = math.Pow(t, meta.Gamma[c])
			}
			res.GainMap[4*i+c] = quantizeByte(stored)
			if planes != nil {
				planes.gain[4*i+c] = stored
			}
		}
		res.GainMap[4*i+3] = 255
		if planes != nil {
			planes.gain[4*i+3] = 1
		}
	}

	res.Metadata = meta
	return res, planes, nil
}

func quantizeByte(v float64) uint8 {
	x := math.Round(v * 255)
	if x < 0 {
		return 0
	}
	if x > 255 {
		return 255
	}
	return uint8(x)
}
