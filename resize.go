package hdrforge

import (
	"image"

	"github.com/nfnt/resize"

	"github.com/bhouston/hdrforge/gainmap"
)

// Resize scales a FloatImage to new dimensions with bilinear filtering
// in linear light. Metadata and color space carry over.
func Resize(img *FloatImage, width, height int) (*FloatImage, error) {
	if err := img.Validate(); err != nil {
		return nil, err
	}
	if width <= 0 || height <= 0 {
		return nil, ErrDimensionMismatch
	}
	out := &FloatImage{
		Width:      width,
		Height:     height,
		Pixels:     make([]float32, 4*width*height),
		ColorSpace: img.ColorSpace,
		Metadata:   img.Metadata.Clone(),
	}
	if width == img.Width && height == img.Height {
		copy(out.Pixels, img.Pixels)
		return out, nil
	}

	sx := float64(img.Width) / float64(width)
	sy := float64(img.Height) / float64(height)
	for y := 0; y < height; y++ {
		fy := (float64(y)+0.5)*sy - 0.5
		y0 := int(fy)
		if y0 < 0 {
			y0 = 0
		}
		y1 := y0 + 1
		if y1 >= img.Height {
			y1 = img.Height - 1
		}
		wy := float32(fy - float64(y0))
		if wy < 0 {
			wy = 0
		}
		for x := 0; x < width; x++ {
			fx := (float64(x)+0.5)*sx - 0.5
			x0 := int(fx)
			if x0 < 0 {
				x0 = 0
			}
			x1 := x0 + 1
			if x1 >= img.Width {
				x1 = img.Width - 1
			}
			wx := float32(fx - float64(x0))
			if wx < 0 {
				wx = 0
			}
			dst := 4 * (y*width + x)
			p00 := 4 * (y0*img.Width + x0)
			p01 := 4 * (y0*img.Width + x1)
			p10 := 4 * (y1*img.Width + x0)
			p11 := 4 * (y1*img.Width + x1)
			for c := 0; c < 4; c++ {
				top := img.Pixels[p00+c]*(1-wx) + img.Pixels[p01+c]*wx
				bottom := img.Pixels[p10+c]*(1-wx) + img.Pixels[p11+c]*wx
				out.Pixels[dst+c] = top*(1-wy) + bottom*wy
			}
		}
	}
	return out, nil
}

// ResizeEncoding scales an encoding result's SDR and gain map planes to
// new dimensions with Lanczos resampling.
func ResizeEncoding(res *gainmap.Result, width, height int) (*gainmap.Result, error) {
	if width <= 0 || height <= 0 {
		return nil, ErrDimensionMismatch
	}
	return &gainmap.Result{
		Width:    width,
		Height:   height,
		SDR:      resizePlane(res.SDR, res.Width, res.Height, width, height),
		GainMap:  resizePlane(res.GainMap, res.Width, res.Height, width, height),
		Metadata: res.Metadata,
	}, nil
}

func resizePlane(plane []uint8, sw, sh, dw, dh int) []uint8 {
	src := &image.RGBA{Pix: plane, Stride: 4 * sw, Rect: image.Rect(0, 0, sw, sh)}
	dst := resize.Resize(uint(dw), uint(dh), src, resize.Lanczos3)
	rgba, ok := dst.(*image.RGBA)
	if !ok {
		rgba = image.NewRGBA(image.Rect(0, 0, dw, dh))
		b := dst.Bounds()
		for y := 0; y < dh; y++ {
			for x := 0; x < dw; x++ {
				rgba.Set(x, y, dst.At(b.Min.X+x, b.Min.Y+y))
			}
		}
	}
	out := make([]uint8, 4*dw*dh)
	for y := 0; y < dh; y++ {
		copy(out[4*y*dw:4*(y+1)*dw], rgba.Pix[y*rgba.Stride:y*rgba.Stride+4*dw])
	}
	return out
}
