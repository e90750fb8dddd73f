package color

import "math"

// Matrix3 is a row-major 3x3 matrix.
type Matrix3 [9]float64

// RGBToXYZ derives the RGB->XYZ matrix for a chromaticity set using the
// Bruce Lindbloom method: solve for each primary's luminance scale factor
// from its xy coordinate and the white point, then assemble
// M = [ Sr*Xr  Sg*Xg  Sb*Xb ; Sr*Yr  Sg*Yg  Sb*Yb ; Sr*Zr  Sg*Zg  Sb*Zb ].
func RGBToXYZ(ch Chromaticities) Matrix3 {
	Xr, Yr, Zr := XyToXYZ(ch.RX, ch.RY, 1)
	Xg, Yg, Zg := XyToXYZ(ch.GX, ch.GY, 1)
	Xb, Yb, Zb := XyToXYZ(ch.BX, ch.BY, 1)
	Xw, Yw, Zw := XyToXYZ(ch.WX, ch.WY, 1)

	// Solve [Xr Xg Xb; Yr Yg Yb; Zr Zg Zb] * [Sr;Sg;Sb] = [Xw;Yw;Zw].
	primaries := Matrix3{
		Xr, Xg, Xb,
		Yr, Yg, Yb,
		Zr, Zg, Zb,
	}
	inv, ok := primaries.Inverse()
	if !ok {
		// Degenerate chromaticities (collinear primaries); fall back to identity.
		return Matrix3{1, 0, 0, 0, 1, 0, 0, 0, 1}
	}
	sr, sg, sb := inv.MulVec3(Xw, Yw, Zw)

	return Matrix3{
		sr * Xr, sg * Xg, sb * Xb,
		sr * Yr, sg * Yg, sb * Yb,
		sr * Zr, sg * Zg, sb * Zb,
	}
}

// XYZToRGB returns the inverse of RGBToXYZ.
func XYZToRGB(ch Chromaticities) Matrix3 {
	m, ok := RGBToXYZ(ch).Inverse()
	if !ok {
		return Matrix3{1, 0, 0, 0, 1, 0, 0, 0, 1}
	}
	return m
}

// MulVec3 applies the matrix to a column vector.
func (m Matrix3) MulVec3(x, y, z float64) (float64, float64, float64) {
	return m[0]*x + m[1]*y + m[2]*z,
		m[3]*x + m[4]*y + m[5]*z,
		m[6]*x + m[7]*y + m[8]*z
}

// Mul composes two matrices: (m * n) applied to a vector v is m*(n*v).
func (m Matrix3) Mul(n Matrix3) Matrix3 {
	var r Matrix3
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			var sum float64
			for k := 0; k < 3; k++ {
				sum += m[row*3+k] * n[k*3+col]
			}
			r[row*3+col] = sum
		}
	}
	return r
}

// Inverse computes the matrix inverse via the adjugate method, reporting
// false if the matrix is singular (determinant numerically zero).
func (m Matrix3) Inverse() (Matrix3, bool) {
	a, b, c := m[0], m[1], m[2]
	d, e, f := m[3], m[4], m[5]
	g, h, i := m[6], m[7], m[8]

	det := a*(e*i-f*h) - b*(d*i-f*g) + c*(d*h-e*g)
	if math.Abs(det) < 1e-18 {
		return Matrix3{}, false
	}
	invDet := 1 / det

	return Matrix3{
		(e*i - f*h) * invDet, (c*h - b*i) * invDet, (b*f - c*e) * invDet,
		(f*g - d*i) * invDet, (a*i - c*g) * invDet, (c*d - a*f) * invDet,
		(d*h - e*g) * invDet, (b*g - a*h) * invDet, (a*e - b*d) * invDet,
	}, true
}

// XyToLinearRGB maps a CIE xy chromaticity at unit luminance to linear
// RGB in the given space; used for chromaticity-diagram rendering.
// Returns black when y is numerically zero.
func XyToLinearRGB(x, y float64, s Space) (float64, float64, float64) {
	X, Y, Z := XyToXYZ(x, y, 1)
	if X == 0 && Y == 0 && Z == 0 {
		return 0, 0, 0
	}
	return XYZToRGBMatrixFor(s).MulVec3(X, Y, Z)
}

// RGBToXYZMatrixFor returns the RGB->XYZ matrix for a named space, computed
// from its canonical chromaticities rather than a hardcoded constant.
func RGBToXYZMatrixFor(s Space) Matrix3 { return RGBToXYZ(ForSpace(s)) }

// XYZToRGBMatrixFor returns the XYZ->RGB matrix for a named space.
func XYZToRGBMatrixFor(s Space) Matrix3 { return XYZToRGB(ForSpace(s)) }

// GamutMatrix returns the matrix that converts linear RGB in `from` to
// linear RGB in `to`, applying XYZ as the intermediate space: M_to^-1 * M_from.
func GamutMatrix(from, to Space) Matrix3 {
	if from == to {
		return Matrix3{1, 0, 0, 0, 1, 0, 0, 0, 1}
	}
	return XYZToRGBMatrixFor(to).Mul(RGBToXYZMatrixFor(from))
}
