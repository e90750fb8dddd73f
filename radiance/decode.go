package radiance

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const formatRGBE = "32-bit_rle_rgbe"
const formatXYZE = "32-bit_rle_xyze"

// Decode parses a complete Radiance HDR byte stream.
func Decode(data []byte, opts *ReadOptions) (*Image, error) {
	var o ReadOptions
	if opts != nil {
		o = *opts
	}

	hdr, rest, err := parseHeader(data, o.Strict)
	if err != nil {
		return nil, err
	}

	img := &Image{
		Width:    hdr.width,
		Height:   hdr.height,
		Pixels:   make([]float32, 4*hdr.width*hdr.height),
		Header:   hdr.vars,
		Exposure: hdr.exposure,
		Gamma:    hdr.gamma,
	}

	row := make([]byte, 4*hdr.width)
	src := rest
	for y := 0; y < hdr.height; y++ {
		src, err = readScanline(src, row, hdr.width)
		if err != nil {
			return nil, err
		}
		decodeRow(img.Pixels[4*y*hdr.width:], row, hdr.width)
	}

	if o.Mode == OutputPhysicalRadiance {
		applyPhysical(img)
	}
	return img, nil
}

type header struct {
	width, height int
	vars          map[string]string
	exposure      float64
	gamma         float64
}

// parseHeader consumes the signature, KEY=VALUE lines, the blank line,
// and the resolution line. Lines end with \n; \r\n is also accepted.
func parseHeader(data []byte, strict bool) (*header, []byte, error) {
	if !bytes.HasPrefix(data, []byte("#?")) {
		return nil, nil, ErrBadSignature
	}
	if strict && !bytes.HasPrefix(data, []byte("#?RADIANCE")) {
		return nil, nil, ErrBadSignature
	}

	h := &header{vars: map[string]string{}, exposure: 1, gamma: 1}
	pos := 0
	format := ""
	for {
		line, next, ok := nextLine(data, pos)
		if !ok {
			return nil, nil, fmt.Errorf("radiance: truncated header at offset %d", pos)
		}
		pos = next
		if strings.HasPrefix(line, "#") {
			continue
		}
		if line == "" {
			break
		}
		eq := strings.IndexByte(line, '=')
		if eq < 0 {
			continue
		}
		key, val := line[:eq], line[eq+1:]
		h.vars[key] = val
		switch key {
		case "FORMAT":
			format = val
		case "EXPOSURE":
			if v, err := strconv.ParseFloat(val, 64); err == nil && v > 0 {
				// Multiple EXPOSURE lines multiply.
				h.exposure *= v
			}
		case "GAMMA":
			if v, err := strconv.ParseFloat(val, 64); err == nil && v > 0 {
				h.gamma = v
			}
		}
	}

	switch format {
	case formatRGBE:
	case formatXYZE:
		return nil, nil, ErrXYZUnsupported
	default:
		return nil, nil, fmt.Errorf("radiance: missing FORMAT=%s line", formatRGBE)
	}

	res, next, ok := nextLine(data, pos)
	if !ok {
		return nil, nil, fmt.Errorf("radiance: truncated header at offset %d", pos)
	}
	fields := strings.Fields(res)
	if len(fields) != 4 || fields[0] != "-Y" || fields[2] != "+X" {
		return nil, nil, ErrUnsupportedResolution
	}
	var err error
	if h.height, err = strconv.Atoi(fields[1]); err != nil || h.height <= 0 {
		return nil, nil, ErrUnsupportedResolution
	}
	if h.width, err = strconv.Atoi(fields[3]); err != nil || h.width <= 0 {
		return nil, nil, ErrUnsupportedResolution
	}
	return h, data[next:], nil
}

func nextLine(data []byte, pos int) (line string, next int, ok bool) {
	i := bytes.IndexByte(data[pos:], '\n')
	if i < 0 {
		return "", pos, false
	}
	raw := data[pos : pos+i]
	if len(raw) > 0 && raw[len(raw)-1] == '\r' {
		raw = raw[:len(raw)-1]
	}
	return string(raw), pos + i + 1, true
}

// readScanline fills row (4*width RGBE bytes) from src and returns the
// remaining bytes. New-style RLE rows start with {2, 2, hi, lo} where
// hi<<8|lo is the width; anything else is a raw (old-format) scanline.
func readScanline(src []byte, row []byte, width int) ([]byte, error) {
	if width >= 8 && width <= 0x7FFF && len(src) >= 4 &&
		src[0] == 2 && src[1] == 2 && int(src[2])<<8|int(src[3]) == width {
		return readRLEScanline(src[4:], row, width)
	}
	if len(src) < 4*width {
		return nil, ErrTruncated
	}
	copy(row, src[:4*width])
	return src[4*width:], nil
}

// readRLEScanline decodes the four channel runs (R, G, B, E planes).
func readRLEScanline(src []byte, row []byte, width int) ([]byte, error) {
	for c := 0; c < 4; c++ {
		x := 0
		for x < width {
			if len(src) < 1 {
				return nil, ErrTruncated
			}
			n := int(src[0])
			src = src[1:]
			if n > 128 {
				// Repeat run.
				n -= 128
				if x+n > width || len(src) < 1 {
					return nil, ErrBadRun
				}
				v := src[0]
				src = src[1:]
				for i := 0; i < n; i++ {
					row[4*(x+i)+c] = v
				}
				x += n
			} else {
				if n == 0 || x+n > width || len(src) < n {
					return nil, ErrBadRun
				}
				for i := 0; i < n; i++ {
					row[4*(x+i)+c] = src[i]
				}
				src = src[n:]
				x += n
			}
		}
	}
	return src, nil
}

// decodeRow converts one RGBE scanline to linear float RGBA using
// midpoint restoration.
func decodeRow(dst []float32, row []byte, width int) {
	for x := 0; x < width; x++ {
		r, g, b, e := row[4*x], row[4*x+1], row[4*x+2], row[4*x+3]
		if e == 0 {
			dst[4*x], dst[4*x+1], dst[4*x+2] = 0, 0, 0
		} else {
			f := float32(math.Ldexp(1/256.0, int(e)-128))
			dst[4*x] = (float32(r) + 0.5) * f
			dst[4*x+1] = (float32(g) + 0.5) * f
			dst[4*x+2] = (float32(b) + 0.5) * f
		}
		dst[4*x+3] = 1
	}
}

func applyPhysical(img *Image) {
	scale := float32(1)
	if img.Exposure > 0 {
		scale = float32(1 / img.Exposure)
	}
	invGamma := 1.0
	if img.Gamma > 0 && img.Gamma != 1 {
		invGamma = img.Gamma
	}
	for i := 0; i < len(img.Pixels); i += 4 {
		for c := 0; c < 3; c++ {
			v := img.Pixels[i+c]
			if invGamma != 1 {
				v = float32(math.Pow(float64(v), invGamma))
			}
			img.Pixels[i+c] = v * scale
		}
	}
}
