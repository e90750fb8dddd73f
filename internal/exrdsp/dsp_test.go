package exrdsp

import (
	"bytes"
	"math/rand"
	"testing"
)

func TestPredictorRoundTrip(t *testing.T) {
	cases := [][]byte{
		{},
		{0x01},
		{0x01, 0x02},
		{0x01, 0x02, 0xFF, 0xFF},
		{0, 0, 0, 0, 0, 0},
	}
	r := rand.New(rand.NewSource(1))
	buf := make([]byte, 4096)
	r.Read(buf)
	cases = append(cases, buf)

	for _, orig := range cases {
		enc := append([]byte(nil), orig...)
		PredictorEncode(enc)
		dec := append([]byte(nil), enc...)
		PredictorDecode(dec)
		if !bytes.Equal(dec, orig) {
			t.Errorf("round trip mismatch for len %d:\norig=%v\ndec =%v", len(orig), orig, dec)
		}
	}
}

func TestReorderRoundTrip(t *testing.T) {
	src := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06}
	decoded := make([]byte, len(src))
	ReorderDecode(decoded, src)
	reencoded := make([]byte, len(src))
	ReorderEncode(reencoded, decoded)
	if !bytes.Equal(reencoded, src) {
		t.Errorf("reorder round trip mismatch: src=%v got=%v", src, reencoded)
	}
}
