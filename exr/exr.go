// Package exr implements a single-part scanline OpenEXR reader and writer
// supporting the uncompressed, RLE, ZIP/ZIPS, PIZ, and PXR24 codecs.
package exr

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

// ErrOffsetTableTruncated reports a file too short to hold its own offset table.
var ErrOffsetTableTruncated = errors.New("exr: offset_table_truncated")

// Image is this package's self-contained decoded representation: one
// float32 plane per channel, in header declaration order, each
// width*height samples, row-major from the top of the data window.
type Image struct {
	Header   *Header
	Channels [][]float32 // len(Header.Channels) planes
}

// Decode parses a complete EXR byte stream into an Image.
func Decode(data []byte) (*Image, error) {
	r := bytes.NewReader(data)
	h, err := ReadHeader(r)
	if err != nil {
		return nil, err
	}

	width := h.Width()
	height := h.Height()
	blockHeight := BlockHeight(h.Compression)
	numBlocks := (height + blockHeight - 1) / blockHeight

	offsets := make([]uint64, numBlocks)
	if err := binary.Read(r, binary.LittleEndian, &offsets); err != nil {
		return nil, ErrOffsetTableTruncated
	}

	channels := make([][]float32, len(h.Channels))
	for c := range channels {
		channels[c] = make([]float32, width*height)
	}

	for b := 0; b < numBlocks; b++ {
		if _, err := r.Seek(int64(offsets[b]), 0); err != nil {
			return nil, ErrBlockTruncated
		}
		var yCoord int32
		if err := binary.Read(r, binary.LittleEndian, &yCoord); err != nil {
			return nil, ErrBlockTruncated
		}
		var dataSize uint32
		if err := binary.Read(r, binary.LittleEndian, &dataSize); err != nil {
			return nil, ErrBlockTruncated
		}
		payload := make([]byte, dataSize)
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, ErrBlockTruncated
		}

		rowStart := int(yCoord - h.DataWindow.YMin)
		rows := blockHeight
		if rowStart+rows > height {
			rows = height - rowStart
		}
		if rows <= 0 {
			return nil, ErrDimensionMismatch
		}

		planes, err := DecodeBlock(h, payload, width, rows)
		if err != nil {
			return nil, err
		}
		for c, plane := range planes {
			copy(channels[c][rowStart*width:(rowStart+rows)*width], plane)
		}
	}

	return &Image{Header: h, Channels: channels}, nil
}

// Encode serializes img back into a complete EXR byte stream using
// img.Header.Compression.
func Encode(img *Image) ([]byte, error) {
	h := img.Header
	width := h.Width()
	height := h.Height()
	blockHeight := BlockHeight(h.Compression)
	numBlocks := (height + blockHeight - 1) / blockHeight

	var hdrBuf bytes.Buffer
	WriteHeader(&hdrBuf, h)

	offsetTableSize := numBlocks * 8
	bodyStart := hdrBuf.Len() + offsetTableSize

	offsets := make([]uint64, numBlocks)
	var body bytes.Buffer
	for b := 0; b < numBlocks; b++ {
		rowStart := b * blockHeight
		rows := blockHeight
		if rowStart+rows > height {
			rows = height - rowStart
		}
		data := make([][]float32, len(h.Channels))
		for c := range h.Channels {
			data[c] = img.Channels[c][rowStart*width : (rowStart+rows)*width]
		}

		payload, err := EncodeBlock(h, data, width, rows)
		if err != nil {
			return nil, err
		}

		offsets[b] = uint64(bodyStart + body.Len())
		yCoord := int32(rowStart) + h.DataWindow.YMin
		binary.Write(&body, binary.LittleEndian, yCoord)
		binary.Write(&body, binary.LittleEndian, uint32(len(payload)))
		body.Write(payload)
	}

	var out bytes.Buffer
	out.Write(hdrBuf.Bytes())
	binary.Write(&out, binary.LittleEndian, offsets)
	out.Write(body.Bytes())
	return out.Bytes(), nil
}
