// Package boundary turns replay parses into caller-owned strings for foreign callers.
package boundary

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"unicode/utf8"
	"unsafe"

	"replayvault/parser/internal/logging"
	"replayvault/parser/internal/replay"
	"replayvault/parser/internal/summary"
)

// Handle is an opaque reference to a string owned by the caller until released.
type Handle unsafe.Pointer

// Allocator owns the memory behind handles.
type Allocator interface {
	// Alloc copies s into memory the caller owns and returns a non-nil handle.
	Alloc(s string) Handle
	// Free releases a handle previously returned by Alloc.
	Free(h Handle)
	// Read copies the string behind a live handle.
	Read(h Handle) string
}

// Diagnostic prefixes. Callers tell failures from summaries by these.
const (
	PrefixPath      = "Failed to convert path to string: "
	PrefixParse     = "Failed to parse replay: "
	PrefixSerialize = "Failed to serialize to JSON: "
)

var errNilPath = errors.New("null path pointer")

// parseReplay is swapped in tests to exercise panic recovery.
var parseReplay = replay.Parse

// Adapter renders parse outcomes and hands them out through an Allocator.
type Adapter struct {
	alloc       Allocator
	outstanding atomic.Int64
}

// NewAdapter binds an adapter to alloc.
func NewAdapter(alloc Allocator) *Adapter {
	return &Adapter{alloc: alloc}
}

// Parse runs the replay pipeline for path and returns an owned handle holding
// either the pretty JSON summary or a diagnostic. It never returns a nil handle.
func (a *Adapter) Parse(path string) Handle {
	return a.Emit(Render(path))
}

// ParseMissing reports a nil path pointer as a conversion failure.
func (a *Adapter) ParseMissing() Handle {
	return a.Emit(PrefixPath + errNilPath.Error())
}

// Emit copies text into a new owned handle.
func (a *Adapter) Emit(text string) Handle {
	h := a.alloc.Alloc(text)
	a.outstanding.Add(1)
	return h
}

// Release frees a handle from Parse or Emit. A nil handle is a no-op.
// Releasing a handle twice, or one this adapter did not produce, is undefined.
func (a *Adapter) Release(h Handle) {
	if h == nil {
		return
	}
	a.alloc.Free(h)
	a.outstanding.Add(-1)
}

// Text reads the string behind a live handle.
func (a *Adapter) Text(h Handle) string {
	if h == nil {
		return ""
	}
	return a.alloc.Read(h)
}

// Outstanding reports how many handles have been emitted and not yet released.
func (a *Adapter) Outstanding() int64 {
	return a.outstanding.Load()
}

// Render produces the boundary text for path without allocating a handle.
func Render(path string) (text string) {
	defer func() {
		if r := recover(); r != nil {
			logging.L().Error("replay parse panicked", logging.String("path", path), logging.String("panic", fmt.Sprint(r)))
			text = fmt.Sprintf("%sinternal error: %v", PrefixParse, r)
		}
	}()
	if !utf8.ValidString(path) {
		return PrefixPath + "invalid UTF-8 sequence"
	}
	outcome := parseReplay(path)
	if !outcome.OK() {
		return PrefixParse + outcome.Failure.Error()
	}
	data, err := summary.Marshal(*outcome.Summary)
	if err != nil {
		return PrefixSerialize + err.Error()
	}
	return string(data)
}

// IsDiagnostic reports whether text is a failure message rather than a summary.
func IsDiagnostic(text string) bool {
	for _, prefix := range []string{PrefixPath, PrefixParse, PrefixSerialize} {
		if strings.HasPrefix(text, prefix) {
			return true
		}
	}
	return false
}
