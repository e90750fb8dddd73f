// Package pxr24 implements OpenEXR's PXR24 compression: per-segment
// (per-scanline, per-channel) delta encoding, byte transposition, and
// DEFLATE.
package pxr24

import (
	"errors"

	"github.com/bhouston/hdrforge/internal/half"
	"github.com/bhouston/hdrforge/internal/zipc"
)

// ErrShortStream reports an undersized payload after inflate.
var ErrShortStream = errors.New("pxr24: pxr24_short_stream")

// ChannelLayout describes one channel's sample width in bytes within a
// PXR24 block: 2 for HALF, 3 for FLOAT (24-bit packed), 4 for UINT.
type ChannelLayout struct {
	BytesPerSample int // 2 (HALF), 3 (FLOAT->f24), or 4 (UINT)
}

// Encode compresses one block's channel-planar samples. samples[c] holds
// width*height raw sample values for channel c, already converted to the
// channel's on-disk numeric form (half bits, f24 bytes folded into a
// uint32 for convenience, or uint32 for UINT).
func Encode(samples [][]uint32, layouts []ChannelLayout, width, height int) ([]byte, error) {
	var transposed []byte
	for ly := 0; ly < height; ly++ {
		rowStart := ly * width
		for c, layout := range layouts {
			n := layout.BytesPerSample
			chanSamples := samples[c]
			segment := make([]byte, width*n)
			var prev uint32
			for x := 0; x < width; x++ {
				v := chanSamples[rowStart+x]
				delta := v - prev
				prev = v
				writeBytesBE(segment[x*n:x*n+n], delta, n)
			}
			transposed = append(transposed, transposeSegment(segment, n)...)
		}
	}
	return zipc.Compress(transposed)
}

// Decode reverses Encode, filling samples in place; layouts and
// dimensions must match what Encode was called with.
func Decode(data []byte, layouts []ChannelLayout, width, height int) ([][]uint32, error) {
	raw, err := zipc.Decompress(data)
	if err != nil {
		return nil, err
	}
	out := make([][]uint32, len(layouts))
	for c := range out {
		out[c] = make([]uint32, width*height)
	}
	offset := 0
	for ly := 0; ly < height; ly++ {
		for c, layout := range layouts {
			n := layout.BytesPerSample
			chanSamples := out[c]
			segLen := width * n
			if offset+segLen > len(raw) {
				return nil, ErrShortStream
			}
			segment := untransposeSegment(raw[offset:offset+segLen], n)
			offset += segLen
			var prev uint32
			for x := 0; x < width; x++ {
				delta := readBytesBE(segment[x*n:x*n+n], n)
				v := prev + delta
				if n < 4 {
					v &= 1<<(8*uint(n)) - 1
				}
				prev = v
				chanSamples[ly*width+x] = v
			}
		}
	}
	return out, nil
}

// transposeSegment reorders an n-byte-per-sample segment so all
// high-order bytes come first, then all next-order bytes, etc:
// out[b*samples + s] = in[s*n + b].
func transposeSegment(in []byte, n int) []byte {
	samples := len(in) / n
	out := make([]byte, len(in))
	for s := 0; s < samples; s++ {
		for b := 0; b < n; b++ {
			out[b*samples+s] = in[s*n+b]
		}
	}
	return out
}

// untransposeSegment is the inverse of transposeSegment.
func untransposeSegment(in []byte, n int) []byte {
	samples := len(in) / n
	out := make([]byte, len(in))
	for s := 0; s < samples; s++ {
		for b := 0; b < n; b++ {
			out[s*n+b] = in[b*samples+s]
		}
	}
	return out
}

func writeBytesBE(dst []byte, v uint32, n int) {
	for i := 0; i < n; i++ {
		dst[i] = byte(v >> uint(8*(n-1-i)))
	}
}

func readBytesBE(src []byte, n int) uint32 {
	var v uint32
	for i := 0; i < n; i++ {
		v = (v << 8) | uint32(src[i])
	}
	return v
}

// PackHalf converts a HALF sample (stored as its raw 16-bit pattern) into
// the uint32 form Encode expects.
func PackHalf(bits uint16) uint32 { return uint32(bits) }

// UnpackHalfBits extracts the 16-bit pattern back out.
func UnpackHalfBits(v uint32) uint16 { return uint16(v) }

// PackFloatAsF24 converts a float32 sample into the 24-bit PXR24 packed
// form, returned as a uint32 for uniform delta arithmetic.
func PackFloatAsF24(f float32) uint32 {
	b := half.FloatToF24(f)
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16
}

// UnpackF24ToFloat is the inverse of PackFloatAsF24.
func UnpackF24ToFloat(v uint32) float32 {
	return half.F24ToFloat(byte(v), byte(v>>8), byte(v>>16))
}
