package hdrforge

import "github.com/bhouston/hdrforge/color"

// Metadata maps short identifiers to typed values. Keys the package
// understands are listed as Key constants; everything else rides along
// opaquely through read-modify-write cycles.
type Metadata map[string]MetadataValue

// Reserved metadata keys.
const (
	KeyCompression    = "compression"    // MetaInt, EXR compression code
	KeyChromaticities = "chromaticities" // MetaChromaticities
	KeyFormat         = "format"         // MetaString: "ultrahdr" or "adobe-gainmap"
	KeyExposure       = "EXPOSURE"       // MetaFloat, Radiance header
	KeyGamma          = "GAMMA"          // MetaFloat, Radiance header
	KeyMinValue       = "MIN_VALUE"
	KeyMaxValue       = "MAX_VALUE"
	KeyRange          = "RANGE"
	KeyAvgValue       = "AVG_VALUE"
)

// MetadataValue is the tagged variant stored in a Metadata map.
type MetadataValue interface{ metadataValue() }

// MetaInt holds an integer value.
type MetaInt int

// MetaFloat holds a floating-point value.
type MetaFloat float64

// MetaString holds a string value.
type MetaString string

// MetaTriple holds a per-channel float triple.
type MetaTriple [3]float64

// MetaChromaticities holds a color space's primaries.
type MetaChromaticities color.Chromaticities

// MetaRaw holds an uninterpreted value along with its source type name
// (an EXR attribute type, for instance) so writers can reproduce it.
type MetaRaw struct {
	TypeName string
	Data     []byte
}

func (MetaInt) metadataValue()            {}
func (MetaFloat) metadataValue()          {}
func (MetaString) metadataValue()         {}
func (MetaTriple) metadataValue()         {}
func (MetaChromaticities) metadataValue() {}
func (MetaRaw) metadataValue()            {}

// Clone deep-copies the map; MetaRaw data buffers are duplicated.
func (m Metadata) Clone() Metadata {
	if m == nil {
		return Metadata{}
	}
	out := make(Metadata, len(m))
	for k, v := range m {
		if raw, ok := v.(MetaRaw); ok {
			v = MetaRaw{TypeName: raw.TypeName, Data: append([]byte(nil), raw.Data...)}
		}
		out[k] = v
	}
	return out
}

// Int fetches an integer-valued key.
func (m Metadata) Int(key string) (int, bool) {
	v, ok := m[key].(MetaInt)
	return int(v), ok
}

// Float fetches a float-valued key.
func (m Metadata) Float(key string) (float64, bool) {
	v, ok := m[key].(MetaFloat)
	return float64(v), ok
}

// String fetches a string-valued key.
func (m Metadata) String(key string) (string, bool) {
	v, ok := m[key].(MetaString)
	return string(v), ok
}

// Chromaticities fetches the chromaticities key.
func (m Metadata) Chromaticities() (color.Chromaticities, bool) {
	v, ok := m[KeyChromaticities].(MetaChromaticities)
	return color.Chromaticities(v), ok
}
