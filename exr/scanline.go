package exr

import (
	"encoding/binary"
	"errors"
	"math"

	"github.com/bhouston/hdrforge/internal/half"
	"github.com/bhouston/hdrforge/internal/piz"
	"github.com/bhouston/hdrforge/internal/pxr24"
	"github.com/bhouston/hdrforge/internal/rle"
	"github.com/bhouston/hdrforge/internal/zipc"
)

// ErrBlockTruncated reports an offset table entry or block header that
// runs past the end of the file.
var ErrBlockTruncated = errors.New("exr: block_truncated")

// bytesPerSample returns the on-disk sample width for a channel pixel type.
func bytesPerSample(pixelType int32) int {
	switch pixelType {
	case PixelHalf:
		return 2
	case PixelFloat, PixelUint:
		return 4
	default:
		return 4
	}
}

// planeBytes computes the per-block byte count of the uncompressed,
// channel-planar scanline data (channels in declared order, rows
// contiguous, no interleaving) as required by every codec in this package.
func planeBytes(channels []ChannelRecord, width, rows int) int {
	total := 0
	for _, ch := range channels {
		total += bytesPerSample(ch.PixelType) * width * rows
	}
	return total
}

// packPlanar converts float32 samples (one scanline-major, row-major slice
// per channel, length width*rows each) into the raw channel-planar byte
// layout a scanline block holds on disk.
func packPlanar(channels []ChannelRecord, data [][]float32, width, rows int) []byte {
	out := make([]byte, 0, planeBytes(channels, width, rows))
	for c, ch := range channels {
		n := width * rows
		switch ch.PixelType {
		case PixelHalf:
			for i := 0; i < n; i++ {
				h := half.FromFloat32(data[c][i])
				out = append(out, byte(h), byte(h>>8))
			}
		case PixelFloat:
			for i := 0; i < n; i++ {
				var buf [4]byte
				binary.LittleEndian.PutUint32(buf[:], math.Float32bits(data[c][i]))
				out = append(out, buf[:]...)
			}
		default: // PixelUint: round to nearest, clamp to non-negative.
			for i := 0; i < n; i++ {
				v := data[c][i]
				if v < 0 {
					v = 0
				}
				var buf [4]byte
				binary.LittleEndian.PutUint32(buf[:], uint32(v+0.5))
				out = append(out, buf[:]...)
			}
		}
	}
	return out
}

// unpackPlanar is the inverse of packPlanar.
func unpackPlanar(channels []ChannelRecord, raw []byte, width, rows int) [][]float32 {
	out := make([][]float32, len(channels))
	offset := 0
	for c, ch := range channels {
		n := width * rows
		plane := make([]float32, n)
		switch ch.PixelType {
		case PixelHalf:
			for i := 0; i < n; i++ {
				bits := uint16(raw[offset]) | uint16(raw[offset+1])<<8
				plane[i] = half.ToFloat32(bits)
				offset += 2
			}
		case PixelFloat:
			for i := 0; i < n; i++ {
				bits := binary.LittleEndian.Uint32(raw[offset : offset+4])
				plane[i] = math.Float32frombits(bits)
				offset += 4
			}
		default:
			for i := 0; i < n; i++ {
				bits := binary.LittleEndian.Uint32(raw[offset : offset+4])
				plane[i] = float32(bits)
				offset += 4
			}
		}
		out[c] = plane
	}
	return out
}

// pizChannelSamples/pizSamplesToPlanar and pxr24Pack/pxr24Unpack bridge
// the packed-planar byte layout to the
// sample-oriented APIs internal/piz and internal/pxr24 expect.
func pizChannelSamples(channels []ChannelRecord, data [][]float32, width, rows int) ([]uint16, error) {
	n := width * rows
	interleaved := make([]uint16, n*len(channels))
	for c, ch := range channels {
		if ch.PixelType != PixelHalf {
			return nil, errors.New("exr: piz requires half channels")
		}
		for i := 0; i < n; i++ {
			interleaved[i*len(channels)+c] = half.FromFloat32(data[c][i])
		}
	}
	return interleaved, nil
}

func pizSamplesToPlanar(channels []ChannelRecord, interleaved []uint16, width, rows int) [][]float32 {
	n := width * rows
	out := make([][]float32, len(channels))
	for c := range channels {
		plane := make([]float32, n)
		for i := 0; i < n; i++ {
			plane[i] = half.ToFloat32(interleaved[i*len(channels)+c])
		}
		out[c] = plane
	}
	return out
}

func pxr24Pack(channels []ChannelRecord, data [][]float32, width, rows int) ([][]uint32, []pxr24.ChannelLayout) {
	n := width * rows
	samples := make([][]uint32, len(channels))
	layouts := make([]pxr24.ChannelLayout, len(channels))
	for c, ch := range channels {
		vals := make([]uint32, n)
		switch ch.PixelType {
		case PixelHalf:
			layouts[c] = pxr24.ChannelLayout{BytesPerSample: 2}
			for i := 0; i < n; i++ {
				vals[i] = pxr24.PackHalf(half.FromFloat32(data[c][i]))
			}
		case PixelFloat:
			layouts[c] = pxr24.ChannelLayout{BytesPerSample: 3}
			for i := 0; i < n; i++ {
				vals[i] = pxr24.PackFloatAsF24(data[c][i])
			}
		default:
			layouts[c] = pxr24.ChannelLayout{BytesPerSample: 4}
			for i := 0; i < n; i++ {
				v := data[c][i]
				if v < 0 {
					v = 0
				}
				vals[i] = uint32(v + 0.5)
			}
		}
		samples[c] = vals
	}
	return samples, layouts
}

func pxr24Unpack(channels []ChannelRecord, samples [][]uint32, width, rows int) [][]float32 {
	n := width * rows
	out := make([][]float32, len(channels))
	for c, ch := range channels {
		plane := make([]float32, n)
		for i := 0; i < n; i++ {
			switch ch.PixelType {
			case PixelHalf:
				plane[i] = half.ToFloat32(pxr24.UnpackHalfBits(samples[c][i]))
			case PixelFloat:
				plane[i] = pxr24.UnpackF24ToFloat(samples[c][i])
			default:
				plane[i] = float32(samples[c][i])
			}
		}
		out[c] = plane
	}
	return out
}

// EncodeBlock compresses one block of rows (row-major per-channel float32
// data, rows scanlines tall) using the header's compression code.
func EncodeBlock(h *Header, data [][]float32, width, rows int) ([]byte, error) {
	// FLOAT channels are only writable uncompressed or with RLE; ZIP,
	// ZIPS, and PXR24 blocks are HALF-only on the write side.
	switch h.Compression {
	case CompressionZIP, CompressionZIPS, CompressionPXR24:
		for _, ch := range h.Channels {
			if ch.PixelType == PixelFloat {
				return nil, ErrUnsupportedInputFormat
			}
		}
	}
	switch h.Compression {
	case CompressionNone:
		return packPlanar(h.Channels, data, width, rows), nil
	case CompressionRLE:
		raw := packPlanar(h.Channels, data, width, rows)
		return rle.CompressBlock(raw), nil
	case CompressionZIP, CompressionZIPS:
		raw := packPlanar(h.Channels, data, width, rows)
		return zipc.CompressBlock(raw)
	case CompressionPIZ:
		interleaved, err := pizChannelSamples(h.Channels, data, width, rows)
		if err != nil {
			return nil, err
		}
		return piz.Encode(interleaved, len(h.Channels), width, rows), nil
	case CompressionPXR24:
		samples, layouts := pxr24Pack(h.Channels, data, width, rows)
		return pxr24.Encode(samples, layouts, width, rows)
	default:
		return nil, ErrUnsupportedCompression
	}
}

// DecodeBlock reverses EncodeBlock.
func DecodeBlock(h *Header, src []byte, width, rows int) ([][]float32, error) {
	want := planeBytes(h.Channels, width, rows)
	switch h.Compression {
	case CompressionNone:
		if len(src) != want {
			return nil, ErrBlockTruncated
		}
		return unpackPlanar(h.Channels, src, width, rows), nil
	case CompressionRLE:
		raw, err := rle.DecompressBlock(src, want)
		if err != nil {
			return nil, err
		}
		return unpackPlanar(h.Channels, raw, width, rows), nil
	case CompressionZIP, CompressionZIPS:
		raw, err := zipc.DecompressBlock(src, want)
		if err != nil {
			return nil, err
		}
		return unpackPlanar(h.Channels, raw, width, rows), nil
	case CompressionPIZ:
		interleaved, err := piz.Decode(src, len(h.Channels), width, rows)
		if err != nil {
			return nil, err
		}
		return pizSamplesToPlanar(h.Channels, interleaved, width, rows), nil
	case CompressionPXR24:
		_, layouts := pxr24Pack(h.Channels, nil, 0, 0)
		samples, err := pxr24.Decode(src, layouts, width, rows)
		if err != nil {
			return nil, err
		}
		return pxr24Unpack(h.Channels, samples, width, rows), nil
	default:
		return nil, ErrUnsupportedCompression
	}
}
