package pxr24

import (
	"math/rand"
	"testing"

	"github.com/bhouston/hdrforge/internal/half"
)

func TestEncodeDecodeRoundTripHalf(t *testing.T) {
	const width, height = 8, 6
	r := rand.New(rand.NewSource(21))
	layouts := []ChannelLayout{{BytesPerSample: 2}, {BytesPerSample: 2}}
	samples := make([][]uint32, len(layouts))
	for c := range samples {
		samples[c] = make([]uint32, width*height)
		for i := range samples[c] {
			samples[c][i] = PackHalf(half.FromFloat32(float32(r.Intn(1000)) / 10))
		}
	}
	enc, err := Encode(samples, layouts, width, height)
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}
	dec, err := Decode(enc, layouts, width, height)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	for c := range samples {
		for i := range samples[c] {
			if dec[c][i] != samples[c][i] {
				t.Fatalf("channel %d sample %d: got %d want %d", c, i, dec[c][i], samples[c][i])
			}
		}
	}
}

func TestEncodeDecodeRoundTripF24(t *testing.T) {
	const width, height = 5, 5
	layouts := []ChannelLayout{{BytesPerSample: 3}}
	vals := []float32{0, 1.5, -2.25, 100.125, 3.14159}
	samples := [][]uint32{make([]uint32, width*height)}
	for i := range samples[0] {
		samples[0][i] = PackFloatAsF24(vals[i%len(vals)])
	}
	enc, err := Encode(samples, layouts, width, height)
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}
	dec, err := Decode(enc, layouts, width, height)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	for i := range samples[0] {
		got := UnpackF24ToFloat(dec[0][i])
		want := UnpackF24ToFloat(samples[0][i])
		if got != want {
			t.Fatalf("sample %d: got %v want %v", i, got, want)
		}
	}
}

func TestTransposeRoundTrip(t *testing.T) {
	in := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9}
	got := untransposeSegment(transposeSegment(in, 3), 3)
	for i := range in {
		if got[i] != in[i] {
			t.Fatalf("transpose round trip mismatch at %d: got %d want %d", i, got[i], in[i])
		}
	}
}
