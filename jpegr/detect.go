package jpegr

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

// IsGainMapContainer reports whether the stream looks like a JPEG
// carrying a gain map, without reading the whole image: it skips the
// primary image's entropy data, then checks the second image's header
// segments for hdrgm XMP or ISO 21496-1 metadata.
func IsGainMapContainer(r io.Reader) (bool, error) {
	br := bufio.NewReader(r)
	if ok, err := seekSOI(br); err != nil || !ok {
		return false, err
	}
	if err := skipToEOI(br); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return false, nil
		}
		return false, err
	}
	if ok, err := seekSOI(br); err != nil || !ok {
		return false, err
	}
	return secondImageHasGainMapMetadata(br)
}

func seekSOI(br *bufio.Reader) (bool, error) {
	var prev byte
	for {
		b, err := br.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return false, nil
			}
			return false, err
		}
		if prev == markerPrefix && b == markerSOI {
			return true, nil
		}
		prev = b
	}
}

// skipToEOI consumes the current JPEG up to and including its EOI.
func skipToEOI(br *bufio.Reader) error {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return err
		}
		if b != markerPrefix {
			continue
		}
		marker, err := br.ReadByte()
		if err != nil {
			return err
		}
		switch {
		case marker == markerEOI:
			return nil
		case marker == 0x00 || marker == markerPrefix || marker == 0x01:
			continue
		case marker >= 0xD0 && marker <= 0xD7:
			continue
		default:
			if err := skipSegmentBody(br); err != nil {
				return err
			}
		}
	}
}

func skipSegmentBody(br *bufio.Reader) error {
	var lenBytes [2]byte
	if _, err := io.ReadFull(br, lenBytes[:]); err != nil {
		return err
	}
	segLen := int(binary.BigEndian.Uint16(lenBytes[:]))
	if segLen < 2 {
		return ErrInvalidSegment
	}
	_, err := br.Discard(segLen - 2)
	return err
}

// secondImageHasGainMapMetadata reads header segments after the second
// SOI, looking for hdrgm XMP (APP1) or ISO 21496-1 (APP2) payloads.
func secondImageHasGainMapMetadata(br *bufio.Reader) (bool, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return false, nil
			}
			return false, err
		}
		if b != markerPrefix {
			return false, nil
		}
		marker, err := br.ReadByte()
		if err != nil {
			return false, err
		}
		if marker == markerPrefix {
			continue
		}
		if marker == markerSOS || marker == markerEOI {
			return false, nil
		}
		var lenBytes [2]byte
		if _, err := io.ReadFull(br, lenBytes[:]); err != nil {
			return false, err
		}
		segLen := int(binary.BigEndian.Uint16(lenBytes[:]))
		if segLen < 2 {
			return false, ErrInvalidSegment
		}
		payload := make([]byte, segLen-2)
		if _, err := io.ReadFull(br, payload); err != nil {
			return false, err
		}
		switch marker {
		case markerAPP1:
			if bytes.HasPrefix(payload, xmpSig) && bytes.Contains(payload, []byte(hdrgmNamespaceURI)) {
				return true, nil
			}
		case markerAPP2:
			if bytes.HasPrefix(payload, isoSig) {
				return true, nil
			}
		}
	}
}
