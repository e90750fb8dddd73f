package jpegr

import (
	"encoding/binary"
	"errors"
	"math"

	"github.com/bhouston/hdrforge/gainmap"
)

// ISO/IEC 21496-1 binary gain map metadata: every parameter is stored
// as a rational, with log2-space values for the gain range and the HDR
// headrooms. Files may use a shared denominator (flag bit 3) and a
// single channel when all three agree (flag bit 7 clear).

const (
	isoMultiChannelFlag = 1 << 7
	isoBaseColorFlag    = 1 << 6
	isoBackwardFlag     = 1 << 2
	isoCommonDenomFlag  = 1 << 3
)

var errISOTruncated = errors.New("jpegr: iso metadata truncated")

type isoRationals struct {
	gainMinN  [3]int32
	gainMinD  [3]uint32
	gainMaxN  [3]int32
	gainMaxD  [3]uint32
	gammaN    [3]uint32
	gammaD    [3]uint32
	sdrOffN   [3]int32
	sdrOffD   [3]uint32
	hdrOffN   [3]int32
	hdrOffD   [3]uint32
	baseHeadN uint32
	baseHeadD uint32
	altHeadN  uint32
	altHeadD  uint32
}

// decodeISO parses the ISO payload (after the namespace prefix) into
// gain map metadata.
func decodeISO(data []byte) (*gainmap.Metadata, error) {
	pos := 0
	readU16 := func() (uint16, error) {
		if pos+2 > len(data) {
			return 0, errISOTruncated
		}
		v := binary.BigEndian.Uint16(data[pos:])
		pos += 2
		return v, nil
	}
	readU32 := func() (uint32, error) {
		if pos+4 > len(data) {
			return 0, errISOTruncated
		}
		v := binary.BigEndian.Uint32(data[pos:])
		pos += 4
		return v, nil
	}
	readS32 := func() (int32, error) {
		v, err := readU32()
		return int32(v), err
	}

	minVer, err := readU16()
	if err != nil {
		return nil, err
	}
	if minVer != 0 {
		return nil, errors.New("jpegr: unsupported iso metadata version")
	}
	if _, err = readU16(); err != nil {
		return nil, err
	}
	if pos+1 > len(data) {
		return nil, errISOTruncated
	}
	flags := data[pos]
	pos++

	channels := 1
	if flags&isoMultiChannelFlag != 0 {
		channels = 3
	}

	var r isoRationals
	if flags&isoCommonDenomFlag != 0 {
		common, err := readU32()
		if err != nil {
			return nil, err
		}
		if r.baseHeadN, err = readU32(); err != nil {
			return nil, err
		}
		if r.altHeadN, err = readU32(); err != nil {
			return nil, err
		}
		r.baseHeadD, r.altHeadD = common, common
		for c := 0; c < channels; c++ {
			if r.gainMinN[c], err = readS32(); err != nil {
				return nil, err
			}
			if r.gainMaxN[c], err = readS32(); err != nil {
				return nil, err
			}
			if r.gammaN[c], err = readU32(); err != nil {
				return nil, err
			}
			if r.sdrOffN[c], err = readS32(); err != nil {
				return nil, err
			}
			if r.hdrOffN[c], err = readS32(); err != nil {
				return nil, err
			}
			r.gainMinD[c], r.gainMaxD[c], r.gammaD[c], r.sdrOffD[c], r.hdrOffD[c] = common, common, common, common, common
		}
	} else {
		if r.baseHeadN, err = readU32(); err != nil {
			return nil, err
		}
		if r.baseHeadD, err = readU32(); err != nil {
			return nil, err
		}
		if r.altHeadN, err = readU32(); err != nil {
			return nil, err
		}
		if r.altHeadD, err = readU32(); err != nil {
			return nil, err
		}
		for c := 0; c < channels; c++ {
			if r.gainMinN[c], err = readS32(); err != nil {
				return nil, err
			}
			if r.gainMinD[c], err = readU32(); err != nil {
				return nil, err
			}
			if r.gainMaxN[c], err = readS32(); err != nil {
				return nil, err
			}
			if r.gainMaxD[c], err = readU32(); err != nil {
				return nil, err
			}
			if r.gammaN[c], err = readU32(); err != nil {
				return nil, err
			}
			if r.gammaD[c], err = readU32(); err != nil {
				return nil, err
			}
			if r.sdrOffN[c], err = readS32(); err != nil {
				return nil, err
			}
			if r.sdrOffD[c], err = readU32(); err != nil {
				return nil, err
			}
			if r.hdrOffN[c], err = readS32(); err != nil {
				return nil, err
			}
			if r.hdrOffD[c], err = readU32(); err != nil {
				return nil, err
			}
		}
	}

	if channels == 1 {
		for c := 1; c < 3; c++ {
			r.gainMinN[c], r.gainMinD[c] = r.gainMinN[0], r.gainMinD[0]
			r.gainMaxN[c], r.gainMaxD[c] = r.gainMaxN[0], r.gainMaxD[0]
			r.gammaN[c], r.gammaD[c] = r.gammaN[0], r.gammaD[0]
			r.sdrOffN[c], r.sdrOffD[c] = r.sdrOffN[0], r.sdrOffD[0]
			r.hdrOffN[c], r.hdrOffD[c] = r.hdrOffN[0], r.hdrOffD[0]
		}
	}

	m := &gainmap.Metadata{}
	for c := 0; c < 3; c++ {
		m.GainMapMin[c] = ratio(float64(r.gainMinN[c]), r.gainMinD[c])
		m.GainMapMax[c] = ratio(float64(r.gainMaxN[c]), r.gainMaxD[c])
		m.Gamma[c] = ratio(float64(r.gammaN[c]), r.gammaD[c])
		m.OffsetSDR[c] = ratio(float64(r.sdrOffN[c]), r.sdrOffD[c])
		m.OffsetHDR[c] = ratio(float64(r.hdrOffN[c]), r.hdrOffD[c])
	}
	m.HDRCapacityMin = ratio(float64(r.baseHeadN), r.baseHeadD)
	m.HDRCapacityMax = ratio(float64(r.altHeadN), r.altHeadD)
	return m, nil
}

func ratio(n float64, d uint32) float64 {
	if d == 0 {
		return 0
	}
	return n / float64(d)
}

// encodeISO serializes metadata as an ISO 21496-1 payload (without the
// namespace prefix).
func encodeISO(m *gainmap.Metadata) ([]byte, error) {
	var r isoRationals
	channels := 3
	if uniform(m.GainMapMin) && uniform(m.GainMapMax) && uniform(m.Gamma) &&
		uniform(m.OffsetSDR) && uniform(m.OffsetHDR) {
		channels = 1
	}

	for c := 0; c < channels; c++ {
		var err error
		if r.gainMinN[c], r.gainMinD[c], err = signedFraction(m.GainMapMin[c]); err != nil {
			return nil, err
		}
		if r.gainMaxN[c], r.gainMaxD[c], err = signedFraction(m.GainMapMax[c]); err != nil {
			return nil, err
		}
		if r.gammaN[c], r.gammaD[c], err = unsignedFraction(m.Gamma[c]); err != nil {
			return nil, err
		}
		if r.sdrOffN[c], r.sdrOffD[c], err = signedFraction(m.OffsetSDR[c]); err != nil {
			return nil, err
		}
		if r.hdrOffN[c], r.hdrOffD[c], err = signedFraction(m.OffsetHDR[c]); err != nil {
			return nil, err
		}
	}
	var err error
	if r.baseHeadN, r.baseHeadD, err = unsignedFraction(m.HDRCapacityMin); err != nil {
		return nil, err
	}
	if r.altHeadN, r.altHeadD, err = unsignedFraction(m.HDRCapacityMax); err != nil {
		return nil, err
	}

	flags := byte(isoBaseColorFlag)
	if channels == 3 {
		flags |= isoMultiChannelFlag
	}

	out := make([]byte, 0, 128)
	putU16 := func(v uint16) { out = append(out, byte(v>>8), byte(v)) }
	putU32 := func(v uint32) { out = append(out, byte(v>>24), byte(v>>16), byte(v>>8), byte(v)) }
	putS32 := func(v int32) { putU32(uint32(v)) }

	putU16(0) // minimum reader version
	putU16(0) // writer version
	out = append(out, flags)
	putU32(r.baseHeadN)
	putU32(r.baseHeadD)
	putU32(r.altHeadN)
	putU32(r.altHeadD)
	for c := 0; c < channels; c++ {
		putS32(r.gainMinN[c])
		putU32(r.gainMinD[c])
		putS32(r.gainMaxN[c])
		putU32(r.gainMaxD[c])
		putU32(r.gammaN[c])
		putU32(r.gammaD[c])
		putS32(r.sdrOffN[c])
		putU32(r.sdrOffD[c])
		putS32(r.hdrOffN[c])
		putU32(r.hdrOffD[c])
	}
	return out, nil
}

func isoPayload(m *gainmap.Metadata) ([]byte, error) {
	body, err := encodeISO(m)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(isoSig)+len(body))
	out = append(out, isoSig...)
	out = append(out, body...)
	return out, nil
}

func isoVersionOnlyPayload() []byte {
	out := make([]byte, 0, len(isoSig)+4)
	out = append(out, isoSig...)
	return append(out, 0, 0, 0, 0)
}

func signedFraction(v float64) (int32, uint32, error) {
	const maxN = uint32(math.MaxInt32)
	n, d, ok := continuedFraction(math.Abs(v), maxN)
	if !ok {
		return 0, 0, errors.New("jpegr: value not representable as fraction")
	}
	num := int32(n)
	if v < 0 {
		num = -num
	}
	return num, d, nil
}

func unsignedFraction(v float64) (uint32, uint32, error) {
	n, d, ok := continuedFraction(v, math.MaxUint32)
	if !ok {
		return 0, 0, errors.New("jpegr: value not representable as fraction")
	}
	return n, d, nil
}

// continuedFraction finds numerator/denominator approximating v by
// continued fraction expansion, bounded by maxNumerator.
func continuedFraction(v float64, maxNumerator uint32) (uint32, uint32, bool) {
	if math.IsNaN(v) || v < 0 || v > float64(maxNumerator) {
		return 0, 0, false
	}
	var maxDen uint64
	if v <= 1 {
		maxDen = uint64(math.MaxUint32)
	} else {
		maxDen = uint64(math.Floor(float64(maxNumerator) / v))
	}

	den := uint32(1)
	prevDen := uint32(0)
	frac := v - math.Floor(v)
	for iter := 0; iter < 39; iter++ {
		numF := float64(den) * v
		if numF > float64(maxNumerator) {
			return 0, 0, false
		}
		num := uint32(math.Round(numF))
		if numF == float64(num) || frac == 0 {
			return num, den, true
		}
		frac = 1 / frac
		next := float64(prevDen) + math.Floor(frac)*float64(den)
		if next > float64(maxDen) || next > float64(math.MaxUint32) {
			return num, den, true
		}
		prevDen = den
		den = uint32(next)
		frac -= math.Floor(frac)
	}
	return uint32(math.Round(float64(den) * v)), den, true
}
