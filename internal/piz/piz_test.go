package piz

import (
	"math/rand"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	const width, height, channels = 8, 8, 3
	r := rand.New(rand.NewSource(42))
	samples := make([]uint16, width*height*channels)
	for i := range samples {
		samples[i] = uint16(r.Intn(1000))
	}

	wire := Encode(samples, channels, width, height)
	got, err := Decode(wire, channels, width, height)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if len(got) != len(samples) {
		t.Fatalf("length mismatch: got %d want %d", len(got), len(samples))
	}
	for i := range samples {
		if got[i] != samples[i] {
			t.Fatalf("mismatch at %d: got %d want %d", i, got[i], samples[i])
		}
	}
}

func TestEncodeDecodeConstant(t *testing.T) {
	const width, height, channels = 4, 4, 1
	samples := make([]uint16, width*height*channels)
	for i := range samples {
		samples[i] = 42
	}
	wire := Encode(samples, channels, width, height)
	got, err := Decode(wire, channels, width, height)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	for i := range samples {
		if got[i] != samples[i] {
			t.Fatalf("mismatch at %d: got %d want %d", i, got[i], samples[i])
		}
	}
}

func TestWaveletRoundTrip14(t *testing.T) {
	const w, h = 16, 16
	r := rand.New(rand.NewSource(9))
	buf := make([]uint16, w*h)
	for i := range buf {
		buf[i] = uint16(r.Intn(1 << 14))
	}
	orig := append([]uint16(nil), buf...)
	waveletEncode2D(buf, w, h, false)
	waveletDecode2D(buf, w, h, false)
	for i := range buf {
		if buf[i] != orig[i] {
			t.Fatalf("wavelet14 mismatch at %d: got %d want %d", i, buf[i], orig[i])
		}
	}
}

func TestWaveletRoundTrip16(t *testing.T) {
	const w, h = 16, 16
	r := rand.New(rand.NewSource(11))
	buf := make([]uint16, w*h)
	for i := range buf {
		buf[i] = uint16(r.Intn(1 << 16))
	}
	orig := append([]uint16(nil), buf...)
	waveletEncode2D(buf, w, h, true)
	waveletDecode2D(buf, w, h, true)
	for i := range buf {
		if buf[i] != orig[i] {
			t.Fatalf("wavelet16 mismatch at %d: got %d want %d", i, buf[i], orig[i])
		}
	}
}

func TestHuffmanRoundTrip(t *testing.T) {
	cases := [][]uint16{
		{},
		{5},
		{1, 1, 1, 1, 1},
		{0, 1, 2, 3, 4, 5, 6, 7},
	}
	r := rand.New(rand.NewSource(13))
	sparse := make([]uint16, 200)
	for i := range sparse {
		sparse[i] = uint16(r.Intn(3))
	}
	cases = append(cases, sparse)

	// Symbols separated by thousands of unused code points force both
	// the short and long zero-run markers in the length table.
	cases = append(cases, []uint16{0, 60000, 60000, 0, 31000, 60000, 3})

	full := make([]uint16, 500)
	for i := range full {
		full[i] = uint16(r.Intn(1 << 16))
	}
	cases = append(cases, full)

	for _, c := range cases {
		enc := huffmanEncode(c)
		dec, err := huffmanDecode(enc)
		if err != nil {
			t.Fatalf("huffmanDecode error for %v: %v", c, err)
		}
		if len(dec) != len(c) {
			t.Fatalf("length mismatch for %v: got %d", c, len(dec))
		}
		for i := range c {
			if dec[i] != c[i] {
				t.Fatalf("mismatch at %d for %v: got %d want %d", i, c, dec[i], c[i])
			}
		}
	}
}
