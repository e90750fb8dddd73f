package zipc

import (
	"bytes"
	"math/rand"
	"testing"
)

func TestCompressDecompressRoundTrip(t *testing.T) {
	raw := make([]byte, 4096)
	rand.New(rand.NewSource(2)).Read(raw)
	compressed, err := Compress(raw)
	if err != nil {
		t.Fatalf("Compress error: %v", err)
	}
	got, err := Decompress(compressed)
	if err != nil {
		t.Fatalf("Decompress error: %v", err)
	}
	if !bytes.Equal(got, raw) {
		t.Errorf("round trip mismatch")
	}
}

func TestBlockRoundTrip(t *testing.T) {
	raw := make([]byte, 512)
	rand.New(rand.NewSource(5)).Read(raw)
	compressed, err := CompressBlock(raw)
	if err != nil {
		t.Fatalf("CompressBlock error: %v", err)
	}
	got, err := DecompressBlock(compressed, len(raw))
	if err != nil {
		t.Fatalf("DecompressBlock error: %v", err)
	}
	if !bytes.Equal(got, raw) {
		t.Errorf("block round trip mismatch")
	}
}
