package color

import (
	"math"
	"testing"
)

func TestRGBToXYZRoundTrip(t *testing.T) {
	for _, ch := range []Chromaticities{Rec709, P3, Rec2020} {
		m := RGBToXYZ(ch)
		inv, ok := m.Inverse()
		if !ok {
			t.Fatalf("matrix not invertible for %+v", ch)
		}
		// inv(M) * M should be the identity within floating tolerance.
		id := inv.Mul(m)
		for i, want := range [9]float64{1, 0, 0, 0, 1, 0, 0, 0, 1} {
			if math.Abs(id[i]-want) > 1e-9 {
				t.Errorf("identity[%d] = %v, want %v", i, id[i], want)
			}
		}
	}
}

func TestRGBToXYZWhitePoint(t *testing.T) {
	// White (1,1,1) in RGB must map to the space's own white point XYZ.
	m := RGBToXYZ(Rec709)
	X, Y, Z := m.MulVec3(1, 1, 1)
	wx, wy, wz := XyToXYZ(Rec709.WX, Rec709.WY, 1)
	if math.Abs(X-wx) > 1e-6 || math.Abs(Y-wy) > 1e-6 || math.Abs(Z-wz) > 1e-6 {
		t.Errorf("white point mismatch: got (%v,%v,%v) want (%v,%v,%v)", X, Y, Z, wx, wy, wz)
	}
}

func TestSRGBTransferRoundTrip(t *testing.T) {
	for i := 0; i <= 255; i++ {
		x := float64(i) / 255
		got := SRGBEOTFInverse(SRGBEOTF(x))
		if math.Abs(got-x) > 1e-6 {
			t.Errorf("round trip at %d: got %v want %v", i, got, x)
		}
	}
}

func TestClassifyKnownSpaces(t *testing.T) {
	for _, s := range []Space{SpaceRec709, SpaceP3, SpaceRec2020} {
		if got := Classify(ForSpace(s)); got != s {
			t.Errorf("Classify(%v) = %v, want %v", s, got, s)
		}
	}
}

func TestConvertLinearIdentity(t *testing.T) {
	r, g, b, a := ConvertLinearRGBA(0.5, 0.25, 0.75, 1, SpaceRec709, SpaceRec709)
	if r != 0.5 || g != 0.25 || b != 0.75 || a != 1 {
		t.Errorf("identity conversion changed values: %v %v %v %v", r, g, b, a)
	}
}

func TestGamutRoundTrip(t *testing.T) {
	m1 := GamutMatrix(SpaceRec709, SpaceP3)
	m2 := GamutMatrix(SpaceP3, SpaceRec709)
	id := m2.Mul(m1)
	for i, want := range [9]float64{1, 0, 0, 0, 1, 0, 0, 0, 1} {
		if math.Abs(id[i]-want) > 1e-6 {
			t.Errorf("round-trip gamut identity[%d] = %v, want %v", i, id[i], want)
		}
	}
}
