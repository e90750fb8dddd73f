package exr

import (
	"bytes"
	"encoding/binary"
	"math"
	"math/rand"
	"testing"
)

func makeTestHeader(compression int, width, height int32) *Header {
	return &Header{
		DataWindow:    Box2i{0, 0, width - 1, height - 1},
		DisplayWindow: Box2i{0, 0, width - 1, height - 1},
		Channels: []ChannelRecord{
			{Name: "B", PixelType: PixelHalf, XSampling: 1, YSampling: 1},
			{Name: "G", PixelType: PixelHalf, XSampling: 1, YSampling: 1},
			{Name: "R", PixelType: PixelHalf, XSampling: 1, YSampling: 1},
		},
		Compression:      compression,
		PixelAspectRatio: 1,
		ScreenWindowWidth: 1,
		Extra:            map[string]Attribute{},
	}
}

func randomImage(h *Header, seed int64) *Image {
	r := rand.New(rand.NewSource(seed))
	width, height := h.Width(), h.Height()
	channels := make([][]float32, len(h.Channels))
	for c := range channels {
		plane := make([]float32, width*height)
		for i := range plane {
			plane[i] = float32(r.Intn(2000)) / 100
		}
		channels[c] = plane
	}
	return &Image{Header: h, Channels: channels}
}

func roundTrip(t *testing.T, compression int) {
	t.Helper()
	h := makeTestHeader(compression, 17, 13)
	img := randomImage(h, int64(compression)+1)

	wire, err := Encode(img)
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}
	decoded, err := Decode(wire)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if decoded.Header.Width() != h.Width() || decoded.Header.Height() != h.Height() {
		t.Fatalf("dimension mismatch: got %dx%d", decoded.Header.Width(), decoded.Header.Height())
	}
	for c := range img.Channels {
		for i := range img.Channels[c] {
			got := decoded.Channels[c][i]
			want := img.Channels[c][i]
			// HALF quantization: compare within a 1% relative tolerance.
			if !within(got, want) {
				t.Fatalf("channel %d sample %d: got %v want %v", c, i, got, want)
			}
		}
	}
}

func within(got, want float32) bool {
	diff := got - want
	if diff < 0 {
		diff = -diff
	}
	return diff <= 0.01*(abs32(want)+1)
}

func abs32(f float32) float32 {
	if f < 0 {
		return -f
	}
	return f
}

func TestRoundTripNone(t *testing.T)  { roundTrip(t, CompressionNone) }
func TestRoundTripRLE(t *testing.T)   { roundTrip(t, CompressionRLE) }
func TestRoundTripZIP(t *testing.T)   { roundTrip(t, CompressionZIP) }
func TestRoundTripZIPS(t *testing.T)  { roundTrip(t, CompressionZIPS) }
func TestRoundTripPIZ(t *testing.T)   { roundTrip(t, CompressionPIZ) }
func TestRoundTripPXR24(t *testing.T) { roundTrip(t, CompressionPXR24) }

func TestDecodeRejectsBadMagic(t *testing.T) {
	_, err := Decode([]byte{1, 2, 3, 4})
	if err != ErrBadMagic {
		t.Fatalf("got %v want ErrBadMagic", err)
	}
}

func TestDecodeRejectsTiled(t *testing.T) {
	h := makeTestHeader(CompressionNone, 4, 4)
	img := randomImage(h, 1)
	wire, err := Encode(img)
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}
	// Flip bit 9 (0x200, the tiled flag) in the little-endian version word.
	wire[5] |= 0x02
	_, err = Decode(wire)
	if err != ErrUnsupportedFileKind {
		t.Fatalf("got %v want ErrUnsupportedFileKind", err)
	}
}

// The canonical OpenEXR sample piz_compressed.exr is 610x610; this
// reproduces that shape: decode, bounds-check the red plane, re-encode
// with PIZ, and require the second decode to be pixel-exact.
func TestPIZLargeImageRoundTrip(t *testing.T) {
	const size = 610
	h := makeTestHeader(CompressionPIZ, size, size)
	r := rand.New(rand.NewSource(610))
	channels := make([][]float32, len(h.Channels))
	for c := range channels {
		plane := make([]float32, size*size)
		for i := range plane {
			// Multiples of 1/64 up to 32 are exactly representable in
			// half precision, so the codec must reproduce them bit-exact.
			plane[i] = float32(r.Intn(2048)) / 64
		}
		channels[c] = plane
	}
	img := &Image{Header: h, Channels: channels}

	wire, err := Encode(img)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := Decode(wire)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded.Header.Width() != size || decoded.Header.Height() != size {
		t.Fatalf("dimensions: got %dx%d want %dx%d", decoded.Header.Width(), decoded.Header.Height(), size, size)
	}
	redPlane := decoded.Channels[2] // B, G, R declaration order
	for i, v := range redPlane {
		if v < 0 {
			t.Fatalf("negative red sample %v at %d", v, i)
		}
	}

	rewire, err := Encode(decoded)
	if err != nil {
		t.Fatalf("re-Encode: %v", err)
	}
	again, err := Decode(rewire)
	if err != nil {
		t.Fatalf("re-Decode: %v", err)
	}
	for c := range img.Channels {
		for i := range img.Channels[c] {
			if again.Channels[c][i] != img.Channels[c][i] {
				t.Fatalf("channel %d sample %d: got %v want %v", c, i, again.Channels[c][i], img.Channels[c][i])
			}
		}
	}
}

// TestDecodeHandAssembledStream parses an EXR byte stream laid out by
// hand, independent of this package's writer, so a compensating bug in
// the writer/reader pair cannot mask itself.
func TestDecodeHandAssembledStream(t *testing.T) {
	var b bytes.Buffer
	u32 := func(v uint32) { _ = binary.Write(&b, binary.LittleEndian, v) }
	i32 := func(v int32) { _ = binary.Write(&b, binary.LittleEndian, v) }
	str := func(s string) { b.WriteString(s); b.WriteByte(0) }

	u32(20000630) // magic
	u32(2)        // version: single-part scanline

	str("channels")
	str("chlist")
	i32(19)
	str("R")
	i32(PixelFloat)
	b.WriteByte(0)          // pLinear
	b.Write([]byte{0, 0, 0}) // reserved
	i32(1)                  // xSampling
	i32(1)                  // ySampling
	b.WriteByte(0) // chlist terminator

	str("compression")
	str("compression")
	i32(1)
	b.WriteByte(0) // none

	str("dataWindow")
	str("box2i")
	i32(16)
	i32(0)
	i32(0)
	i32(0)
	i32(0)

	str("displayWindow")
	str("box2i")
	i32(16)
	i32(0)
	i32(0)
	i32(0)
	i32(0)

	b.WriteByte(0) // attribute list terminator

	blockStart := uint64(b.Len() + 8)
	_ = binary.Write(&b, binary.LittleEndian, blockStart)

	i32(0) // y coordinate
	u32(4) // data size
	u32(math.Float32bits(0.25))

	img, err := Decode(b.Bytes())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if img.Header.Width() != 1 || img.Header.Height() != 1 {
		t.Fatalf("dimensions: got %dx%d want 1x1", img.Header.Width(), img.Header.Height())
	}
	if img.Header.Compression != CompressionNone {
		t.Fatalf("compression: got %d want 0", img.Header.Compression)
	}
	if got := img.Channels[0][0]; got != 0.25 {
		t.Fatalf("sample: got %v want 0.25", got)
	}
}
