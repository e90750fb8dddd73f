package tonemap

import "math"

// AgX after Troy Sobotka's reference and Benjamin Wrensch's minimal
// fit: an inset matrix, log2 shaping through a 6th-order sigmoid
// approximation, and the outset matrix back out. The final pow(2.2)
// returns the curve's display-encoded output to linear light so the
// shared sRGB display stage can re-encode it.

var agxInset = [9]float64{
	0.842479062253094, 0.0423282422610123, 0.0423756549057051,
	0.0784335999999992, 0.878468636469772, 0.0784336,
	0.0792237451477643, 0.0791661274605434, 0.879142973793104,
}

var agxOutset = [9]float64{
	1.19687900512017, -0.0528968517574562, -0.0529716355144438,
	-0.0980208811401368, 1.15190312990417, -0.0980434501171241,
	-0.0990297440797205, -0.0989611768448433, 1.15107367264116,
}

// agxNeutralTolerance bounds the channel spread AgX may introduce on a
// neutral input; calibrated empirically at 0.65 for this outset matrix.
const agxNeutralTolerance = 0.65

const (
	agxMinEV = -12.47393
	agxMaxEV = 4.026069
)

// agxContrast approximates the AgX sigmoid on x in [0,1].
func agxContrast(x float64) float64 {
	x2 := x * x
	x4 := x2 * x2
	return 15.5*x4*x2 - 40.14*x4*x + 31.96*x4 - 6.868*x2*x + 0.4298*x2 + 0.1191*x - 0.00232
}

func agxShape(v float64) float64 {
	if v < 1e-10 {
		v = 1e-10
	}
	ev := math.Log2(v)
	if ev < agxMinEV {
		ev = agxMinEV
	}
	if ev > agxMaxEV {
		ev = agxMaxEV
	}
	return agxContrast((ev - agxMinEV) / (agxMaxEV - agxMinEV))
}

func agx(r, g, b float64) (float64, float64, float64) {
	r, g, b = mul3(agxInset, r, g, b)
	r, g, b = agxShape(r), agxShape(g), agxShape(b)
	r, g, b = mul3(agxOutset, r, g, b)
	r, g, b = saturate(r), saturate(g), saturate(b)
	return math.Pow(r, 2.2), math.Pow(g, 2.2), math.Pow(b, 2.2)
}
