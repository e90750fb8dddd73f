package exr

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"
)

// Format and semantics errors surfaced while parsing a header.
var (
	ErrBadMagic                  = errors.New("exr: bad_magic")
	ErrUnsupportedFileKind       = errors.New("exr: unsupported_file_kind")
	ErrMissingRequiredAttribute  = errors.New("exr: missing_required_attribute")
	ErrUnsupportedCompression    = errors.New("exr: unsupported_compression")
	ErrChlistTruncated           = errors.New("exr: chlist_truncated")
	ErrDimensionMismatch         = errors.New("exr: dimension_mismatch")
	ErrUnsupportedInputFormat    = errors.New("exr: unsupported_input_format")
)

// AttrKind tags the variant held by an Attribute.
type AttrKind int

const (
	AttrUnknown AttrKind = iota
	AttrInt
	AttrFloat
	AttrString
	AttrV2i
	AttrV2f
	AttrBox2i
	AttrChlist
	AttrCompression
	AttrLineOrder
	AttrChromaticities
)

// Attribute is one EXR header attribute, preserved losslessly on
// read-modify-write even when its type is not natively understood.
type Attribute struct {
	Kind     AttrKind
	TypeName string
	Raw      []byte // verbatim value bytes, always populated
}

// Box2i is an inclusive integer rectangle (xMin,yMin,xMax,yMax).
type Box2i struct{ XMin, YMin, XMax, YMax int32 }

// V2f is a 2D float vector.
type V2f struct{ X, Y float32 }

// ChannelRecord is one 18-byte chlist entry.
type ChannelRecord struct {
	Name      string
	PixelType int32 // 0=UINT 1=HALF 2=FLOAT
	PLinear   byte
	XSampling int32
	YSampling int32
}

const (
	PixelUint  = 0
	PixelHalf  = 1
	PixelFloat = 2
)

func readNullString(r *bytes.Reader) (string, error) {
	var buf []byte
	for {
		b, err := r.ReadByte()
		if err != nil {
			return "", err
		}
		if b == 0 {
			break
		}
		buf = append(buf, b)
	}
	return string(buf), nil
}

func writeNullString(w *bytes.Buffer, s string) {
	w.WriteString(s)
	w.WriteByte(0)
}

// ParseChlist parses a chlist attribute payload: repeated 18-byte-plus-name
// records terminated by an empty name.
func ParseChlist(data []byte) ([]ChannelRecord, error) {
	r := bytes.NewReader(data)
	var out []ChannelRecord
	for {
		name, err := readNullString(r)
		if err != nil {
			return nil, ErrChlistTruncated
		}
		if name == "" {
			break
		}
		var rec ChannelRecord
		rec.Name = name
		var pt int32
		if err := binary.Read(r, binary.LittleEndian, &pt); err != nil {
			return nil, ErrChlistTruncated
		}
		rec.PixelType = pt
		pLinear, err := r.ReadByte()
		if err != nil {
			return nil, ErrChlistTruncated
		}
		rec.PLinear = pLinear
		if _, err := r.Seek(3, io.SeekCurrent); err != nil {
			return nil, ErrChlistTruncated
		}
		if err := binary.Read(r, binary.LittleEndian, &rec.XSampling); err != nil {
			return nil, ErrChlistTruncated
		}
		if err := binary.Read(r, binary.LittleEndian, &rec.YSampling); err != nil {
			return nil, ErrChlistTruncated
		}
		out = append(out, rec)
	}
	return out, nil
}

// EncodeChlist serializes channel records back into chlist wire form,
// preserving the reserved bytes as zero (the reference writer never sets
// them).
func EncodeChlist(channels []ChannelRecord) []byte {
	var buf bytes.Buffer
	for _, ch := range channels {
		writeNullString(&buf, ch.Name)
		binary.Write(&buf, binary.LittleEndian, ch.PixelType)
		buf.WriteByte(ch.PLinear)
		buf.Write([]byte{0, 0, 0})
		binary.Write(&buf, binary.LittleEndian, ch.XSampling)
		binary.Write(&buf, binary.LittleEndian, ch.YSampling)
	}
	buf.WriteByte(0)
	return buf.Bytes()
}

func parseBox2i(data []byte) (Box2i, error) {
	if len(data) != 16 {
		return Box2i{}, errors.New("exr: invalid box2i payload")
	}
	return Box2i{
		XMin: int32(binary.LittleEndian.Uint32(data[0:4])),
		YMin: int32(binary.LittleEndian.Uint32(data[4:8])),
		XMax: int32(binary.LittleEndian.Uint32(data[8:12])),
		YMax: int32(binary.LittleEndian.Uint32(data[12:16])),
	}, nil
}

func encodeBox2i(b Box2i) []byte {
	out := make([]byte, 16)
	binary.LittleEndian.PutUint32(out[0:4], uint32(b.XMin))
	binary.LittleEndian.PutUint32(out[4:8], uint32(b.YMin))
	binary.LittleEndian.PutUint32(out[8:12], uint32(b.XMax))
	binary.LittleEndian.PutUint32(out[12:16], uint32(b.YMax))
	return out
}

func parseV2f(data []byte) (V2f, error) {
	if len(data) != 8 {
		return V2f{}, errors.New("exr: invalid v2f payload")
	}
	return V2f{
		X: math.Float32frombits(binary.LittleEndian.Uint32(data[0:4])),
		Y: math.Float32frombits(binary.LittleEndian.Uint32(data[4:8])),
	}, nil
}

func encodeV2f(v V2f) []byte {
	out := make([]byte, 8)
	binary.LittleEndian.PutUint32(out[0:4], math.Float32bits(v.X))
	binary.LittleEndian.PutUint32(out[4:8], math.Float32bits(v.Y))
	return out
}

// parseChromaticities reads 8 consecutive float32 LE values: rx,ry,gx,gy,bx,by,wx,wy.
func parseChromaticities(data []byte) ([8]float32, error) {
	var out [8]float32
	if len(data) != 32 {
		return out, errors.New("exr: invalid chromaticities payload")
	}
	for i := 0; i < 8; i++ {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4 : i*4+4]))
	}
	return out, nil
}

func encodeChromaticities(v [8]float32) []byte {
	out := make([]byte, 32)
	for i := 0; i < 8; i++ {
		binary.LittleEndian.PutUint32(out[i*4:i*4+4], math.Float32bits(v[i]))
	}
	return out
}
