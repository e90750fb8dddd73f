package hdrforge

import (
	"strconv"

	"github.com/bhouston/hdrforge/color"
	"github.com/bhouston/hdrforge/radiance"
)

// HDRReadOptions controls ReadHDR.
type HDRReadOptions struct {
	// Strict requires the exact "#?RADIANCE" signature.
	Strict bool
	// PhysicalRadiance scales decoded pixels by 1/EXPOSURE (and decodes
	// GAMMA) instead of returning the stored values.
	PhysicalRadiance bool
}

// ReadHDR decodes a Radiance HDR (RGBE) stream. Header variables are
// preserved in the metadata map; EXPOSURE and GAMMA parse as floats.
func ReadHDR(data []byte, opts *HDRReadOptions) (*FloatImage, error) {
	var ro radiance.ReadOptions
	if opts != nil {
		ro.Strict = opts.Strict
		if opts.PhysicalRadiance {
			ro.Mode = radiance.OutputPhysicalRadiance
		}
	}
	decoded, err := radiance.Decode(data, &ro)
	if err != nil {
		return nil, err
	}

	img := &FloatImage{
		Width:      decoded.Width,
		Height:     decoded.Height,
		Pixels:     decoded.Pixels,
		ColorSpace: LinearRec709,
		Metadata:   Metadata{},
	}
	for key, raw := range decoded.Header {
		if key == "FORMAT" {
			continue
		}
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			img.Metadata[key] = MetaFloat(f)
		} else {
			img.Metadata[key] = MetaString(raw)
		}
	}
	return img, nil
}

// WriteHDR encodes a FloatImage as a Radiance HDR stream with
// shared-exponent RGBE pixels. The image is sanitized in place first.
func WriteHDR(img *FloatImage) ([]byte, error) {
	if err := img.Validate(); err != nil {
		return nil, err
	}
	Sanitize(img)

	vars := map[string]string{}
	for key, v := range img.Metadata {
		switch val := v.(type) {
		case MetaFloat:
			vars[key] = strconv.FormatFloat(float64(val), 'g', -1, 64)
		case MetaInt:
			vars[key] = strconv.Itoa(int(val))
		case MetaString:
			if key != KeyFormat {
				vars[key] = string(val)
			}
		}
	}
	pixels := img.Pixels
	if img.ColorSpace != LinearRec709 && img.ColorSpace != color.SpaceUnspecified {
		// Radiance RGBE is Rec.709 by convention; convert a copy.
		pixels = append([]float32(nil), pixels...)
		color.ConvertLinearBuffer(pixels, img.ColorSpace, LinearRec709)
		SanitizePixels(pixels)
	}
	return radiance.Encode(pixels, img.Width, img.Height, &radiance.WriteOptions{Vars: vars})
}
