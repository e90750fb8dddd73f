// Package gainmap converts between linear HDR images and the
// SDR-plus-gain-map representation used by Ultra HDR and Adobe gain map
// files. The encoder tone maps an SDR base image and stores the
// per-pixel log2 ratio between HDR and SDR; the decoder reconstructs
// HDR from the stored ratio alone, independent of which tone mapper
// produced the base.
package gainmap

import "errors"

// Errors reported by the encoder and decoder.
var (
	ErrDimensionMismatch = errors.New("gainmap: dimension_mismatch")
	ErrInvalidMetadata   = errors.New("gainmap: invalid metadata")
)

// Metadata carries the Adobe/Ultra HDR gain map parameters. GainMapMin,
// GainMapMax, HDRCapacityMin, and HDRCapacityMax are in log2 space.
type Metadata struct {
	Gamma      [3]float64
	OffsetSDR  [3]float64
	OffsetHDR  [3]float64
	GainMapMin [3]float64
	GainMapMax [3]float64

	HDRCapacityMin float64
	HDRCapacityMax float64
}

// Validate checks the structural constraints on metadata values.
func (m *Metadata) Validate() error {
	for c := 0; c < 3; c++ {
		if !(m.Gamma[c] > 0) {
			return ErrInvalidMetadata
		}
		if m.OffsetSDR[c] < 0 || m.OffsetHDR[c] < 0 {
			return ErrInvalidMetadata
		}
		if m.GainMapMax[c] < m.GainMapMin[c] {
			return ErrInvalidMetadata
		}
	}
	if m.HDRCapacityMin < 0 || m.HDRCapacityMax <= m.HDRCapacityMin {
		return ErrInvalidMetadata
	}
	return nil
}

// Result is the encoder output: the 8-bit sRGB SDR base, the 8-bit
// post-gamma gain map, and the metadata needed to reconstruct HDR.
type Result struct {
	Width, Height int
	SDR           []uint8 // 4*Width*Height RGBA, sRGB encoded
	GainMap       []uint8 // 4*Width*Height RGBA, alpha always 255
	Metadata      Metadata
}
