package replay

import (
	"encoding/binary"
	"fmt"
)

const (
	// Magic opens every replay container (bytes 12 32 34 11 on disk).
	Magic uint32 = 0x11343212
	// HeaderSize is the fixed prefix: magic plus declared segment count.
	HeaderSize = 8
	// MaxSegments bounds the declared segment count.
	MaxSegments = 8
	// MaxSegmentSize caps a single segment payload as stored on disk.
	MaxSegmentSize = 64 << 20
)

// Header represents the fixed container prefix.
type Header struct {
	Magic        uint32
	SegmentCount uint32
}

// Validate ensures the header describes a container this reader understands.
func (h Header) Validate() error {
	if h.Magic != Magic {
		return fmt.Errorf("bad magic 0x%08x, want 0x%08x", h.Magic, Magic)
	}
	//1.- Reject counts that cannot hold the mandatory start segment or exceed the layout.
	if h.SegmentCount == 0 || h.SegmentCount > MaxSegments {
		return fmt.Errorf("segment count %d outside 1..%d", h.SegmentCount, MaxSegments)
	}
	return nil
}

// MarshalBinary encodes the header in its little-endian on-disk form.
func (h Header) MarshalBinary() ([]byte, error) {
	buf := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], h.Magic)
	binary.LittleEndian.PutUint32(buf[4:8], h.SegmentCount)
	return buf, nil
}

// UnmarshalBinary decodes and validates the on-disk header.
func (h *Header) UnmarshalBinary(data []byte) error {
	if len(data) < HeaderSize {
		return fmt.Errorf("container too short: %d bytes, header needs %d", len(data), HeaderSize)
	}
	h.Magic = binary.LittleEndian.Uint32(data[0:4])
	h.SegmentCount = binary.LittleEndian.Uint32(data[4:8])
	//1.- Reuse validation so callers receive consistent error semantics.
	return h.Validate()
}
