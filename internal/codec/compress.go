package codec

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

// MaxDecodedSize caps the inflated size of a single segment.
const MaxDecodedSize = 256 << 20

// Compressor applies symmetric compression to replay segment payloads.
type Compressor interface {
	//1.- Name returns the codec identifier reported by inspection tooling.
	Name() string
	//2.- Match reports whether the payload starts with the codec signature.
	Match(data []byte) bool
	//3.- Compress encodes the provided payload into a compressed representation.
	Compress(data []byte) ([]byte, error)
	//4.- Decompress restores the original payload from its compressed form.
	Decompress(data []byte) ([]byte, error)
}

// DecompressError reports a corrupt or truncated compressed stream.
type DecompressError struct {
	Codec string
	Err   error
}

func (e *DecompressError) Error() string {
	return fmt.Sprintf("%s decompress: %v", e.Codec, e.Err)
}

func (e *DecompressError) Unwrap() error { return e.Err }

var errEmptyPayload = errors.New("empty payload")

var (
	zstdMagic   = []byte{0x28, 0xb5, 0x2f, 0xfd}
	gzipMagic   = []byte{0x1f, 0x8b}
	snappyMagic = []byte("\xff\x06\x00\x00sNaPpY")
)

// registry lists codecs in detection order; raw is the fallback and must stay last.
var registry = []Compressor{
	zstdCompressor{},
	gzipCompressor{},
	snappyCompressor{},
	zlibCompressor{},
	rawCompressor{},
}

// Detect returns the codec whose signature matches the payload.
func Detect(data []byte) Compressor {
	for _, c := range registry {
		if c.Match(data) {
			return c
		}
	}
	return rawCompressor{}
}

// Lookup resolves a codec by name.
func Lookup(name string) (Compressor, error) {
	wanted := strings.ToLower(strings.TrimSpace(name))
	for _, c := range registry {
		if c.Name() == wanted {
			return c, nil
		}
	}
	return nil, fmt.Errorf("unknown codec %q", name)
}

// Names lists the registered codec identifiers.
func Names() []string {
	names := make([]string, 0, len(registry))
	for _, c := range registry {
		names = append(names, c.Name())
	}
	return names
}

// Decompress sniffs the payload codec and inflates it.
func Decompress(data []byte) ([]byte, string, error) {
	c := Detect(data)
	out, err := c.Decompress(data)
	if err != nil {
		var de *DecompressError
		if !errors.As(err, &de) {
			err = &DecompressError{Codec: c.Name(), Err: err}
		}
		return nil, c.Name(), err
	}
	return out, c.Name(), nil
}

// readAllLimited drains r and fails once MaxDecodedSize is exceeded.
func readAllLimited(r io.Reader) ([]byte, error) {
	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(r, MaxDecodedSize+1))
	if err != nil {
		return nil, err
	}
	if n > MaxDecodedSize {
		return nil, fmt.Errorf("decoded size exceeds %d bytes", MaxDecodedSize)
	}
	return buf.Bytes(), nil
}

// zstdCompressor wraps the klauspost zstd implementation.
type zstdCompressor struct{}

func (zstdCompressor) Name() string { return "zstd" }

func (zstdCompressor) Match(data []byte) bool { return bytes.HasPrefix(data, zstdMagic) }

func (zstdCompressor) Compress(data []byte) ([]byte, error) {
	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("zstd writer: %w", err)
	}
	defer encoder.Close()
	return encoder.EncodeAll(data, nil), nil
}

func (zstdCompressor) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, &DecompressError{Codec: "zstd", Err: errEmptyPayload}
	}
	//1.- Build a single-threaded decoder per call so concurrent parses share nothing.
	decoder, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1), zstd.WithDecoderMaxMemory(MaxDecodedSize))
	if err != nil {
		return nil, &DecompressError{Codec: "zstd", Err: err}
	}
	defer decoder.Close()
	out, err := decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, &DecompressError{Codec: "zstd", Err: err}
	}
	return out, nil
}

// gzipCompressor wraps the klauspost gzip implementation.
type gzipCompressor struct{}

func (gzipCompressor) Name() string { return "gzip" }

func (gzipCompressor) Match(data []byte) bool { return bytes.HasPrefix(data, gzipMagic) }

func (gzipCompressor) Compress(data []byte) ([]byte, error) {
	//1.- Allocate a buffer so we can reuse the compressed bytes without copying.
	var buf bytes.Buffer
	writer := gzip.NewWriter(&buf)
	if _, err := writer.Write(data); err != nil {
		writer.Close()
		return nil, fmt.Errorf("gzip write: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("gzip close: %w", err)
	}
	return buf.Bytes(), nil
}

func (gzipCompressor) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, &DecompressError{Codec: "gzip", Err: errEmptyPayload}
	}
	reader, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, &DecompressError{Codec: "gzip", Err: err}
	}
	defer reader.Close()
	out, err := readAllLimited(reader)
	if err != nil {
		return nil, &DecompressError{Codec: "gzip", Err: err}
	}
	return out, nil
}

// snappyCompressor uses the framed snappy stream format so payloads carry a signature.
type snappyCompressor struct{}

func (snappyCompressor) Name() string { return "snappy" }

func (snappyCompressor) Match(data []byte) bool { return bytes.HasPrefix(data, snappyMagic) }

func (snappyCompressor) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := snappy.NewBufferedWriter(&buf)
	if _, err := writer.Write(data); err != nil {
		writer.Close()
		return nil, fmt.Errorf("snappy write: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("snappy close: %w", err)
	}
	return buf.Bytes(), nil
}

func (snappyCompressor) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, &DecompressError{Codec: "snappy", Err: errEmptyPayload}
	}
	out, err := readAllLimited(snappy.NewReader(bytes.NewReader(data)))
	if err != nil {
		return nil, &DecompressError{Codec: "snappy", Err: err}
	}
	return out, nil
}

// zlibCompressor handles deflate streams with a zlib header.
type zlibCompressor struct{}

func (zlibCompressor) Name() string { return "zlib" }

// Match accepts only the 32K-window CMF byte; other CMF values collide with msgpack markers.
func (zlibCompressor) Match(data []byte) bool {
	if len(data) < 2 || data[0] != 0x78 {
		return false
	}
	return (uint16(data[0])<<8|uint16(data[1]))%31 == 0
}

func (zlibCompressor) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := zlib.NewWriter(&buf)
	if _, err := writer.Write(data); err != nil {
		writer.Close()
		return nil, fmt.Errorf("zlib write: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("zlib close: %w", err)
	}
	return buf.Bytes(), nil
}

func (zlibCompressor) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, &DecompressError{Codec: "zlib", Err: errEmptyPayload}
	}
	reader, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, &DecompressError{Codec: "zlib", Err: err}
	}
	defer reader.Close()
	out, err := readAllLimited(reader)
	if err != nil {
		return nil, &DecompressError{Codec: "zlib", Err: err}
	}
	return out, nil
}

// rawCompressor passes payloads through untouched.
type rawCompressor struct{}

func (rawCompressor) Name() string { return "raw" }

func (rawCompressor) Match([]byte) bool { return true }

func (rawCompressor) Compress(data []byte) ([]byte, error) {
	return append([]byte(nil), data...), nil
}

func (rawCompressor) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, &DecompressError{Codec: "raw", Err: errEmptyPayload}
	}
	return data, nil
}
