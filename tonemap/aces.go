package tonemap

// ACES filmic fit by Stephen Hill: sRGB -> ACEScg-ish input matrix, the
// combined RRT+ODT rational curve, and the output matrix back to sRGB
// primaries.

var acesInput = [9]float64{
	0.59719, 0.35458, 0.04823,
	0.07600, 0.90834, 0.01566,
	0.02840, 0.13383, 0.83777,
}

var acesOutput = [9]float64{
	1.60475, -0.53108, -0.07367,
	-0.10208, 1.10813, -0.00605,
	-0.00327, -0.07276, 1.07602,
}

func rrtAndODTFit(v float64) float64 {
	a := v*(v+0.0245786) - 0.000090537
	b := v*(0.983729*v+0.4329510) + 0.238081
	return a / b
}

func mul3(m [9]float64, r, g, b float64) (float64, float64, float64) {
	return m[0]*r + m[1]*g + m[2]*b,
		m[3]*r + m[4]*g + m[5]*b,
		m[6]*r + m[7]*g + m[8]*b
}

func aces(r, g, b float64) (float64, float64, float64) {
	r, g, b = mul3(acesInput, r, g, b)
	r, g, b = rrtAndODTFit(r), rrtAndODTFit(g), rrtAndODTFit(b)
	r, g, b = mul3(acesOutput, r, g, b)
	return saturate(r), saturate(g), saturate(b)
}
