// Package rle implements OpenEXR's byte-wise run-length encoding dialect
// and the RLE compression block (reorder + predictor + RLE).
package rle

import (
	"errors"

	"github.com/bhouston/hdrforge/internal/exrdsp"
)

// Sentinel codec errors, matching the taxonomy in the format's error catalog.
var (
	ErrTruncatedLiteralRun = errors.New("rle: truncated literal run")
	ErrTruncatedRepeatRun  = errors.New("rle: truncated repeat run")
	ErrSizeMismatch        = errors.New("rle: size mismatch")
)

const (
	minRunLength = 3
	maxRunLength = 127
)

// Decode decompresses an OpenEXR RLE byte stream into exactly want bytes.
// A run header n is a signed int8: n in [-128,-1] copies -n literal bytes;
// n in [0,127] repeats the next byte n+1 times.
func Decode(src []byte, want int) ([]byte, error) {
	out := make([]byte, 0, want)
	i := 0
	for i < len(src) {
		n := int8(src[i])
		i++
		if n < 0 {
			count := -int(n)
			if i+count > len(src) {
				return nil, ErrTruncatedLiteralRun
			}
			out = append(out, src[i:i+count]...)
			i += count
		} else {
			count := int(n) + 1
			if i >= len(src) {
				return nil, ErrTruncatedRepeatRun
			}
			b := src[i]
			i++
			for k := 0; k < count; k++ {
				out = append(out, b)
			}
		}
	}
	if len(out) != want {
		return nil, ErrSizeMismatch
	}
	return out, nil
}

// Encode compresses raw bytes using the shortest valid sequence of runs,
// capping repeat runs at 128 and literal runs at 127 bytes per header.
func Encode(raw []byte) []byte {
	var out []byte
	n := len(raw)
	i := 0
	for i < n {
		runLen := 1
		for i+runLen < n && raw[i+runLen] == raw[i] && runLen < 128 {
			runLen++
		}
		if runLen >= minRunLength {
			out = append(out, byte(int8(runLen-1)))
			out = append(out, raw[i])
			i += runLen
			continue
		}
		// Accumulate a literal run until a repeat of length >= minRunLength appears.
		litStart := i
		i++
		for i < n {
			run := 1
			for i+run < n && raw[i+run] == raw[i] && run < 128 {
				run++
			}
			if run >= minRunLength {
				break
			}
			i++
			if i-litStart >= maxRunLength {
				break
			}
		}
		litLen := i - litStart
		for litLen > 0 {
			chunk := litLen
			if chunk > maxRunLength {
				chunk = maxRunLength
			}
			out = append(out, byte(int8(-chunk)))
			out = append(out, raw[litStart:litStart+chunk]...)
			litStart += chunk
			litLen -= chunk
		}
	}
	return out
}

// CompressBlock implements compress_rle_block: reorder -> predictor -> rle.
func CompressBlock(interleaved []byte) []byte {
	reordered := make([]byte, len(interleaved))
	exrdsp.ReorderEncode(reordered, interleaved)
	exrdsp.PredictorEncode(reordered)
	return Encode(reordered)
}

// DecompressBlock implements decompress_rle_block: the inverse, in
// reverse order.
func DecompressBlock(src []byte, want int) ([]byte, error) {
	plane, err := Decode(src, want)
	if err != nil {
		return nil, err
	}
	exrdsp.PredictorDecode(plane)
	out := make([]byte, len(plane))
	exrdsp.ReorderDecode(out, plane)
	return out, nil
}
