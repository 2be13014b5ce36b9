package replay

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"replayvault/parser/internal/codec"
	"replayvault/parser/internal/tree"
)

// Writer assembles replay containers, mainly for fixtures and the forge command.
type Writer struct {
	segments [][]byte
	declared int
	trailing []byte
	cut      int
}

// NewWriter returns an empty container writer.
func NewWriter() *Writer {
	return &Writer{declared: -1}
}

// AddTree serialises v as JSON, compresses it with c and appends it as a segment.
func (w *Writer) AddTree(v tree.Value, c codec.Compressor) error {
	if w == nil {
		return fmt.Errorf("writer not initialised")
	}
	payload, err := v.MarshalJSON()
	if err != nil {
		return fmt.Errorf("encode segment %d: %w", len(w.segments), err)
	}
	if c == nil {
		w.AddRaw(payload)
		return nil
	}
	compressed, err := c.Compress(payload)
	if err != nil {
		return fmt.Errorf("compress segment %d: %w", len(w.segments), err)
	}
	w.AddRaw(compressed)
	return nil
}

// AddRaw appends an already-encoded segment payload.
func (w *Writer) AddRaw(payload []byte) {
	w.segments = append(w.segments, append([]byte(nil), payload...))
}

// Declare overrides the segment count written to the header.
func (w *Writer) Declare(n int) {
	w.declared = n
}

// SetTrailing appends bytes after the last segment, like a recorded packet stream.
func (w *Writer) SetTrailing(p []byte) {
	w.trailing = append([]byte(nil), p...)
}

// Truncate drops the final n bytes of the encoded container to imitate a partial write.
func (w *Writer) Truncate(n int) {
	w.cut = n
}

// Bytes encodes the container.
func (w *Writer) Bytes() []byte {
	declared := w.declared
	if declared < 0 {
		declared = len(w.segments)
	}
	var buf bytes.Buffer
	header, _ := Header{Magic: Magic, SegmentCount: uint32(declared)}.MarshalBinary()
	buf.Write(header)
	//1.- Write length-prefixed segments so readers can step over each block.
	var prefix [4]byte
	for _, segment := range w.segments {
		binary.LittleEndian.PutUint32(prefix[:], uint32(len(segment)))
		buf.Write(prefix[:])
		buf.Write(segment)
	}
	buf.Write(w.trailing)
	out := buf.Bytes()
	if w.cut > 0 {
		if w.cut >= len(out) {
			return nil
		}
		out = out[:len(out)-w.cut]
	}
	return out
}

// WriteFile persists the container, creating parent directories as needed.
func (w *Writer) WriteFile(path string) error {
	dir := filepath.Dir(path)
	//1.- Ensure the directory hierarchy exists even when tooling supplies nested paths.
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, w.Bytes(), 0o644)
}
