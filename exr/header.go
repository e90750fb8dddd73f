package exr

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"sort"

	"github.com/bhouston/hdrforge/color"
)

const magic uint32 = 20000630

const (
	flagTiled    = 0x200
	flagNonImage = 0x800
	flagMultiPart = 0x1000
)

// Compression codes understood by this package.
const (
	CompressionNone  = 0
	CompressionRLE   = 1
	CompressionZIPS  = 2
	CompressionZIP   = 3
	CompressionPIZ   = 4
	CompressionPXR24 = 5
)

// BlockHeight returns the number of scanlines per block for a compression
// code.
func BlockHeight(compression int) int {
	switch compression {
	case CompressionZIP:
		return 16
	case CompressionPIZ:
		return 32
	case CompressionPXR24:
		return 16
	default:
		return 1
	}
}

// Header holds a parsed single-part scanline EXR header.
type Header struct {
	DataWindow      Box2i
	DisplayWindow   Box2i
	Channels        []ChannelRecord
	Compression     int
	LineOrder       byte
	PixelAspectRatio float32
	ScreenWindowCenter V2f
	ScreenWindowWidth  float32
	Chromaticities     *color.Chromaticities
	Extra              map[string]Attribute // everything else, preserved verbatim
}

func (h *Header) Width() int  { return int(h.DataWindow.XMax-h.DataWindow.XMin) + 1 }
func (h *Header) Height() int { return int(h.DataWindow.YMax-h.DataWindow.YMin) + 1 }

// ReadHeader parses the magic, version, and attribute list from r,
// leaving r positioned at the start of the offset table.
func ReadHeader(r *bytes.Reader) (*Header, error) {
	var m uint32
	if err := binary.Read(r, binary.LittleEndian, &m); err != nil {
		return nil, ErrBadMagic
	}
	if m != magic {
		return nil, ErrBadMagic
	}
	var version uint32
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, ErrBadMagic
	}
	if version&(flagTiled|flagNonImage|flagMultiPart) != 0 {
		return nil, ErrUnsupportedFileKind
	}
	if version&0xFF != 2 {
		return nil, ErrUnsupportedFileKind
	}

	h := &Header{
		LineOrder:          0,
		PixelAspectRatio:   1,
		ScreenWindowWidth:  1,
		Extra:              map[string]Attribute{},
	}
	var haveDataWindow, haveDisplayWindow, haveChannels, haveCompression bool

	for {
		name, err := readNullString(r)
		if err != nil {
			return nil, errors.New("exr: truncated attribute list")
		}
		if name == "" {
			break
		}
		typ, err := readNullString(r)
		if err != nil {
			return nil, errors.New("exr: truncated attribute list")
		}
		var size int32
		if err := binary.Read(r, binary.LittleEndian, &size); err != nil || size < 0 {
			return nil, errors.New("exr: invalid attribute size")
		}
		payload := make([]byte, size)
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, errors.New("exr: truncated attribute payload")
		}

		switch name {
		case "channels":
			ch, err := ParseChlist(payload)
			if err != nil {
				return nil, err
			}
			h.Channels = ch
			haveChannels = true
		case "dataWindow":
			b, err := parseBox2i(payload)
			if err != nil {
				return nil, err
			}
			h.DataWindow = b
			haveDataWindow = true
		case "displayWindow":
			b, err := parseBox2i(payload)
			if err != nil {
				return nil, err
			}
			h.DisplayWindow = b
			haveDisplayWindow = true
		case "compression":
			if len(payload) < 1 {
				return nil, errors.New("exr: invalid compression attribute")
			}
			h.Compression = int(payload[0])
			haveCompression = true
		case "lineOrder":
			if len(payload) >= 1 {
				h.LineOrder = payload[0]
			}
		case "pixelAspectRatio":
			if len(payload) == 4 {
				h.PixelAspectRatio = float32frombits4(payload)
			}
		case "screenWindowCenter":
			v, err := parseV2f(payload)
			if err == nil {
				h.ScreenWindowCenter = v
			}
		case "screenWindowWidth":
			if len(payload) == 4 {
				h.ScreenWindowWidth = float32frombits4(payload)
			}
		case "chromaticities":
			v, err := parseChromaticities(payload)
			if err == nil {
				c := color.Chromaticities{
					RX: float64(v[0]), RY: float64(v[1]),
					GX: float64(v[2]), GY: float64(v[3]),
					BX: float64(v[4]), BY: float64(v[5]),
					WX: float64(v[6]), WY: float64(v[7]),
				}
				h.Chromaticities = &c
			}
		default:
			h.Extra[name] = Attribute{Kind: AttrUnknown, TypeName: typ, Raw: payload}
		}
	}

	if !haveDataWindow || !haveDisplayWindow || !haveChannels || !haveCompression {
		return nil, ErrMissingRequiredAttribute
	}
	for _, ch := range h.Channels {
		if ch.XSampling != 1 || ch.YSampling != 1 {
			return nil, ErrUnsupportedFileKind
		}
	}
	switch h.Compression {
	case CompressionNone, CompressionRLE, CompressionZIPS, CompressionZIP, CompressionPIZ, CompressionPXR24:
	default:
		return nil, ErrUnsupportedCompression
	}
	return h, nil
}

// WriteHeader emits the magic, version, and a canonical attribute list in
// a stable canonical order: displayWindow, dataWindow,
// lineOrder, pixelAspectRatio, screenWindowCenter, screenWindowWidth,
// compression, chromaticities (if set), extras, channels.
func WriteHeader(w *bytes.Buffer, h *Header) {
	binary.Write(w, binary.LittleEndian, magic)
	binary.Write(w, binary.LittleEndian, uint32(2))

	writeAttr(w, "displayWindow", "box2i", encodeBox2i(h.DisplayWindow))
	writeAttr(w, "dataWindow", "box2i", encodeBox2i(h.DataWindow))
	writeAttr(w, "lineOrder", "lineOrder", []byte{h.LineOrder})
	writeAttr(w, "pixelAspectRatio", "float", float32tobits4(h.PixelAspectRatio))
	writeAttr(w, "screenWindowCenter", "v2f", encodeV2f(h.ScreenWindowCenter))
	writeAttr(w, "screenWindowWidth", "float", float32tobits4(h.ScreenWindowWidth))
	writeAttr(w, "compression", "compression", []byte{byte(h.Compression)})
	if h.Chromaticities != nil {
		c := h.Chromaticities
		writeAttr(w, "chromaticities", "chromaticities", encodeChromaticities([8]float32{
			float32(c.RX), float32(c.RY), float32(c.GX), float32(c.GY),
			float32(c.BX), float32(c.BY), float32(c.WX), float32(c.WY),
		}))
	}
	names := make([]string, 0, len(h.Extra))
	for name := range h.Extra {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		attr := h.Extra[name]
		writeAttr(w, name, attr.TypeName, attr.Raw)
	}
	writeAttr(w, "channels", "chlist", EncodeChlist(h.Channels))
	w.WriteByte(0)
}

func writeAttr(w *bytes.Buffer, name, typ string, payload []byte) {
	writeNullString(w, name)
	writeNullString(w, typ)
	binary.Write(w, binary.LittleEndian, int32(len(payload)))
	w.Write(payload)
}

func float32frombits4(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}

func float32tobits4(f float32) []byte {
	out := make([]byte, 4)
	binary.LittleEndian.PutUint32(out, math.Float32bits(f))
	return out
}
