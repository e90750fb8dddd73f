package jpegr

import (
	"bytes"
	"encoding/binary"
	"errors"
)

// Multi-Picture Format (CIPA DC-007): a little TIFF structure inside an
// APP2 segment indexing the images stored in one file. Two entries are
// written, the primary SDR image and the gain map.

const (
	mpfPictureCount = 2
	mpfTagCount     = 3
	mpfTagSize      = 12

	mpfTypeLong      = 0x4
	mpfTypeUndefined = 0x7

	mpfVersionTag  = 0xB000
	mpfImagesTag   = 0xB001
	mpfEntryTag    = 0xB002
	mpfEntryLength = 16

	mpfAttrFormatJPEG = 0x0000000
	mpfAttrPrimary    = 0x030000
)

var (
	mpfSig     = []byte{'M', 'P', 'F', 0}
	mpfVersion = []byte{'0', '1', '0', '0'}
)

// mpfSize is the byte length of the MPF APP2 payload this package emits.
func mpfSize() int {
	return len(mpfSig) + 4 + 4 + 2 + mpfTagCount*mpfTagSize + 4 + mpfPictureCount*mpfEntryLength
}

// buildMPF serializes an MPF index. primarySize counts from the file
// start to the end of the primary image; secondaryOffset is relative to
// the MPF TIFF header (the byte after the "MPF\0" signature).
func buildMPF(primarySize, secondarySize, secondaryOffset int) []byte {
	var buf bytes.Buffer
	buf.Grow(mpfSize())
	putU16 := func(v uint16) { _ = binary.Write(&buf, binary.BigEndian, v) }
	putU32 := func(v uint32) { _ = binary.Write(&buf, binary.BigEndian, v) }

	buf.Write(mpfSig)
	buf.Write([]byte{0x4D, 0x4D, 0x00, 0x2A}) // big-endian TIFF header
	putU32(8)                                 // index IFD follows immediately

	putU16(mpfTagCount)

	putU16(mpfVersionTag)
	putU16(mpfTypeUndefined)
	putU32(uint32(len(mpfVersion)))
	buf.Write(mpfVersion)

	putU16(mpfImagesTag)
	putU16(mpfTypeLong)
	putU32(1)
	putU32(mpfPictureCount)

	putU16(mpfEntryTag)
	putU16(mpfTypeUndefined)
	putU32(mpfEntryLength * mpfPictureCount)
	putU32(8 + 2 + mpfTagCount*mpfTagSize + 4) // entries follow the IFD

	putU32(0) // no attribute IFD

	putU32(mpfAttrFormatJPEG | mpfAttrPrimary)
	putU32(uint32(primarySize))
	putU32(0) // primary offset is always 0
	putU16(0)
	putU16(0)

	putU32(mpfAttrFormatJPEG)
	putU32(uint32(secondarySize))
	putU32(uint32(secondaryOffset))
	putU16(0)
	putU16(0)

	return buf.Bytes()
}

type mpfIndex struct {
	primarySize     int
	secondarySize   int
	secondaryOffset int
}

// parseMPF reads the sizes and offsets back out of an MPF APP2 payload.
func parseMPF(payload []byte) (*mpfIndex, error) {
	if len(payload) < len(mpfSig)+8 || !bytes.HasPrefix(payload, mpfSig) {
		return nil, errors.New("jpegr: MPF signature missing")
	}
	tiff := payload[len(mpfSig):]
	var order binary.ByteOrder
	switch {
	case tiff[0] == 0x4D && tiff[1] == 0x4D:
		order = binary.BigEndian
	case tiff[0] == 0x49 && tiff[1] == 0x49:
		order = binary.LittleEndian
	default:
		return nil, errors.New("jpegr: MPF byte order invalid")
	}
	if order.Uint16(tiff[2:4]) != 0x002A {
		return nil, errors.New("jpegr: MPF TIFF magic invalid")
	}
	ifd := int(order.Uint32(tiff[4:8]))
	if ifd < 0 || ifd+2 > len(tiff) {
		return nil, errors.New("jpegr: MPF IFD offset invalid")
	}
	tags := int(order.Uint16(tiff[ifd : ifd+2]))
	pos := ifd + 2
	entryOffset := -1
	for i := 0; i < tags; i++ {
		if pos+mpfTagSize > len(tiff) {
			return nil, errors.New("jpegr: MPF IFD truncated")
		}
		tag := order.Uint16(tiff[pos : pos+2])
		typ := order.Uint16(tiff[pos+2 : pos+4])
		count := order.Uint32(tiff[pos+4 : pos+8])
		value := order.Uint32(tiff[pos+8 : pos+12])
		if tag == mpfEntryTag && typ == mpfTypeUndefined && count >= mpfEntryLength {
			entryOffset = int(value)
			break
		}
		pos += mpfTagSize
	}
	if entryOffset < 0 || entryOffset+mpfEntryLength*mpfPictureCount > len(tiff) {
		return nil, errors.New("jpegr: MPF entry table invalid")
	}

	idx := &mpfIndex{}
	pos = entryOffset
	for i := 0; i < mpfPictureCount; i++ {
		attr := order.Uint32(tiff[pos : pos+4])
		size := int(order.Uint32(tiff[pos+4 : pos+8]))
		offset := int(order.Uint32(tiff[pos+8 : pos+12]))
		if attr&mpfAttrPrimary != 0 {
			idx.primarySize = size
		} else {
			idx.secondarySize = size
			idx.secondaryOffset = offset
		}
		pos += mpfEntryLength
	}
	if idx.primarySize == 0 || idx.secondarySize == 0 {
		return nil, errors.New("jpegr: MPF entries incomplete")
	}
	return idx, nil
}
