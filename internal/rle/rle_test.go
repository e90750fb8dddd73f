package rle

import (
	"bytes"
	"math/rand"
	"testing"
)

func TestDecodeExplicitHeader(t *testing.T) {
	// A literal pair followed by a repeat run is a valid alternative
	// encoding of [0x01,0x02,0xFF,0xFF].
	got, err := Decode([]byte{0xFE, 0x01, 0x02, 0x01, 0xFF}, 4)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	want := []byte{0x01, 0x02, 0xFF, 0xFF}
	if !bytes.Equal(got, want) {
		t.Errorf("got %v want %v", got, want)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := [][]byte{
		{},
		{0x01, 0x02, 0xFF, 0xFF},
		bytes.Repeat([]byte{0x42}, 500),
		{1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
	}
	r := rand.New(rand.NewSource(7))
	buf := make([]byte, 2048)
	r.Read(buf)
	cases = append(cases, buf)

	for _, c := range cases {
		enc := Encode(c)
		dec, err := Decode(enc, len(c))
		if err != nil {
			t.Fatalf("Decode error for len %d: %v", len(c), err)
		}
		if !bytes.Equal(dec, c) {
			t.Errorf("round trip mismatch for len %d", len(c))
		}
	}
}

func TestDecodeTruncated(t *testing.T) {
	if _, err := Decode([]byte{0xFE, 0x01}, 2); err != ErrTruncatedLiteralRun {
		t.Errorf("expected ErrTruncatedLiteralRun, got %v", err)
	}
	if _, err := Decode([]byte{0x05}, 6); err != ErrTruncatedRepeatRun {
		t.Errorf("expected ErrTruncatedRepeatRun, got %v", err)
	}
}

func TestCompressDecompressBlockRoundTrip(t *testing.T) {
	raw := make([]byte, 256)
	r := rand.New(rand.NewSource(3))
	r.Read(raw)
	compressed := CompressBlock(raw)
	got, err := DecompressBlock(compressed, len(raw))
	if err != nil {
		t.Fatalf("DecompressBlock error: %v", err)
	}
	if !bytes.Equal(got, raw) {
		t.Errorf("block round trip mismatch")
	}
}
