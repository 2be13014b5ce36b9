package replay

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Segment is one length-prefixed block as stored on disk.
type Segment struct {
	Index  int
	Offset int64
	Raw    []byte
}

// Container holds the segments read from a replay file.
type Container struct {
	Header   Header
	Segments []Segment
	// Dropped counts declared segments that were missing or truncated.
	Dropped int
	// Trailing is the number of bytes after the last declared segment.
	Trailing int64
}

// Declared reports how many segments the header announced.
func (c *Container) Declared() int {
	if c == nil {
		return 0
	}
	return int(c.Header.SegmentCount)
}

// ReadContainer opens path and splits it into segments.
//
// Only segment 0 is mandatory: a container whose later segments are missing or
// cut short is returned with those segments dropped.
func ReadContainer(path string) (*Container, error) {
	if strings.TrimSpace(path) == "" {
		return nil, ioError(errors.New("replay path must be provided"))
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, ioError(err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, ioError(err)
	}
	if info.IsDir() {
		return nil, ioError(fmt.Errorf("%s is a directory", path))
	}
	size := info.Size()

	reader := bufio.NewReader(file)
	prefix := make([]byte, HeaderSize)
	n, err := io.ReadFull(reader, prefix)
	if err != nil && !isShortRead(err) {
		return nil, ioError(err)
	}
	var header Header
	if err := header.UnmarshalBinary(prefix[:n]); err != nil {
		return nil, &Error{Stage: StageFormat, Segment: -1, Err: err}
	}

	container := &Container{Header: header}
	offset := int64(HeaderSize)
	declared := int(header.SegmentCount)
	for i := 0; i < declared; i++ {
		segment, err := readSegment(reader, i, offset, size)
		if err != nil {
			var replayErr *Error
			if errors.As(err, &replayErr) && replayErr.Stage == StageIO {
				return nil, err
			}
			//1.- Segment 0 carries the match-start record; without it nothing can be summarised.
			if i == 0 {
				return nil, err
			}
			//2.- Later segments are post-match annotations; a cut-off file keeps what it has.
			container.Dropped = declared - i
			break
		}
		container.Segments = append(container.Segments, segment)
		offset += 4 + int64(len(segment.Raw))
	}
	if container.Dropped == 0 && size > offset {
		container.Trailing = size - offset
	}
	return container, nil
}

func readSegment(r io.Reader, index int, offset, size int64) (Segment, error) {
	var prefix [4]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		if isShortRead(err) {
			return Segment{}, formatError(index, "length prefix truncated at offset %d", offset)
		}
		return Segment{}, ioError(err)
	}
	length := int64(binary.LittleEndian.Uint32(prefix[:]))
	available := size - offset - 4
	switch {
	case length == 0:
		return Segment{}, formatError(index, "empty segment at offset %d", offset)
	case length > MaxSegmentSize:
		return Segment{}, formatError(index, "segment declares %d bytes, limit is %d", length, MaxSegmentSize)
	case length > available:
		return Segment{}, formatError(index, "segment declares %d bytes, %d available", length, available)
	}
	raw := make([]byte, length)
	if _, err := io.ReadFull(r, raw); err != nil {
		if isShortRead(err) {
			return Segment{}, formatError(index, "segment payload truncated at offset %d", offset+4)
		}
		return Segment{}, ioError(err)
	}
	return Segment{Index: index, Offset: offset, Raw: raw}, nil
}

func isShortRead(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}
