package piz

// The 2-D wavelet lift used by PIZ. wdec14/wenc14 operate on signed
// 14-bit data (the common case, chosen when maxValue < 2^14); wdec16/
// wenc16 use an unsigned 16-bit modular lift for the rare wide-alphabet
// case. Both run the classic power-of-two pyramid over the rectangle,
// once along rows then once along columns, doubling the stride each
// level until it covers the full dimension.

const aOffset = 1 << 15

// wenc14 is the forward (encode) 14-bit signed lift of a pair of samples.
func wenc14(a, b uint16) (l, h uint16) {
	ai := int16(a)
	bi := int16(b)
	m := (ai + bi) >> 1
	d := ai - bi
	return uint16(m), uint16(d)
}

// wdec14 is the inverse (decode) 14-bit signed lift.
func wdec14(l, h uint16) (a, b uint16) {
	ls := int16(l)
	hi := int16(h)
	ai := ls + (hi & 1) + (hi >> 1)
	bi := ai - hi
	return uint16(ai), uint16(bi)
}

// wenc16 is the forward 16-bit modular (unsigned) lift: a is offset by
// aOffset, h stores the offset difference mod 65536, and l is the floor
// average, shifted by aOffset mod 65536 when the difference is negative.
func wenc16(a, b uint16) (l, h uint16) {
	ao := (int32(a) + aOffset) & 0xFFFF
	m := (ao + int32(b)) >> 1
	d := ao - int32(b)
	if d < 0 {
		m = (m + aOffset) & 0xFFFF
	}
	d &= 0xFFFF
	return uint16(m), uint16(d)
}

// wdec16 is the inverse of wenc16: b is recovered mod 65536 from l and
// h/2, then a from h, b and aOffset.
func wdec16(l, h uint16) (a, b uint16) {
	m := int32(l)
	d := int32(h)
	bb := (m - (d >> 1)) & 0xFFFF
	aa := (d + bb - aOffset) & 0xFFFF
	return uint16(aa), uint16(bb)
}

type liftPair func(a, b uint16) (uint16, uint16)

// waveletEncode2D applies the forward wavelet transform to a w x h plane
// stored row-major in buf, in place.
func waveletEncode2D(buf []uint16, w, h int, wide bool) {
	enc := wenc14
	if wide {
		enc = wenc16
	}
	waveletPyramid(buf, w, h, enc)
}

// waveletDecode2D applies the inverse wavelet transform.
func waveletDecode2D(buf []uint16, w, h int, wide bool) {
	dec := wdec14
	if wide {
		dec = wdec16
	}
	waveletPyramidInverse(buf, w, h, dec)
}

// waveletPyramid performs the forward lift over increasing power-of-two
// strides, first along the row axis then along the column axis, matching
// OpenEXR's two-axis pyramid scheme.
func waveletPyramid(buf []uint16, w, h int, lift liftPair) {
	for level := 1; level < w || level < h; level *= 2 {
		if level < w {
			liftAxis(buf, w, h, level, true, lift)
		}
		if level < h {
			liftAxis(buf, w, h, level, false, lift)
		}
	}
}

func waveletPyramidInverse(buf []uint16, w, h int, lift liftPair) {
	// Determine the sequence of levels used by the forward pass, then
	// invert it in reverse order.
	var levels []int
	for level := 1; level < w || level < h; level *= 2 {
		levels = append(levels, level)
	}
	for i := len(levels) - 1; i >= 0; i-- {
		level := levels[i]
		if level < h {
			liftAxis(buf, w, h, level, false, lift)
		}
		if level < w {
			liftAxis(buf, w, h, level, true, lift)
		}
	}
}

// liftAxis applies one lift pass along rows (horizontal=true) or columns
// (horizontal=false) at the given stride.
func liftAxis(buf []uint16, w, h, stride int, horizontal bool, lift liftPair) {
	if horizontal {
		for y := 0; y < h; y++ {
			rowBase := y * w
			n := (w + stride) / (2 * stride)
			for i := 0; i < n; i++ {
				ia := i * 2 * stride
				ib := ia + stride
				if ib >= w {
					continue
				}
				a, b := buf[rowBase+ia], buf[rowBase+ib]
				na, nb := lift(a, b)
				buf[rowBase+ia], buf[rowBase+ib] = na, nb
			}
		}
		return
	}
	for x := 0; x < w; x++ {
		n := (h + stride) / (2 * stride)
		for i := 0; i < n; i++ {
			ia := i * 2 * stride
			ib := ia + stride
			if ib >= h {
				continue
			}
			a, b := buf[ia*w+x], buf[ib*w+x]
			na, nb := lift(a, b)
			buf[ia*w+x], buf[ib*w+x] = na, nb
		}
	}
}
