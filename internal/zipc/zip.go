// Package zipc implements OpenEXR's ZIP/ZIPS compression: DEFLATE plus
// the predictor/reorder byte-plane transform.
package zipc

import (
	"bytes"
	"compress/zlib"
	"errors"
	"io"

	"github.com/bhouston/hdrforge/internal/exrdsp"
)

// ErrInflateFailed is returned in place of any zlib error encountered
// during decompression.
var ErrInflateFailed = errors.New("zipc: inflate failed")

// deflateLevel matches the level OpenEXR uses for ZIP scanline blocks.
const deflateLevel = 4

// Compress deflates raw bytes directly (no predictor/reorder transform),
// returning the raw zlib stream.
func Compress(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, deflateLevel)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(raw); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decompress inflates a ZIP/ZIPS-compressed buffer.
func Decompress(data []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, ErrInflateFailed
	}
	defer zr.Close()
	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, ErrInflateFailed
	}
	return out, nil
}

// CompressBlock implements the ZIP/ZIPS block variant: reorder -> predictor
// -> deflate.
func CompressBlock(interleaved []byte) ([]byte, error) {
	reordered := make([]byte, len(interleaved))
	exrdsp.ReorderEncode(reordered, interleaved)
	exrdsp.PredictorEncode(reordered)
	return Compress(reordered)
}

// DecompressBlock is the inverse of CompressBlock.
func DecompressBlock(data []byte, want int) ([]byte, error) {
	plane, err := Decompress(data)
	if err != nil {
		return nil, err
	}
	if want > 0 && len(plane) != want {
		return nil, errors.New("zipc: unexpected decompressed size")
	}
	exrdsp.PredictorDecode(plane)
	out := make([]byte, len(plane))
	exrdsp.ReorderDecode(out, plane)
	return out, nil
}
