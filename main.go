// Command parser builds the replay summary shared library:
//
//	go build -buildmode=c-shared -o libwot_parser.so .
//
// It exports parse_replay and free_string for C callers.
package main

/*
#include <stdlib.h>
*/
import "C"

import (
	"unsafe"

	"replayvault/parser/internal/boundary"
)

// cAllocator hands out strings from the C heap so callers may hold them past the call.
type cAllocator struct{}

func (cAllocator) Alloc(s string) boundary.Handle {
	return boundary.Handle(unsafe.Pointer(C.CString(s)))
}

func (cAllocator) Free(h boundary.Handle) {
	C.free(unsafe.Pointer(h))
}

func (cAllocator) Read(h boundary.Handle) string {
	return C.GoString((*C.char)(unsafe.Pointer(h)))
}

var adapter = boundary.NewAdapter(cAllocator{})

// parse_replay returns a newly allocated, NUL-terminated string holding either
// the pretty JSON summary of the replay at path or a diagnostic beginning with
// "Failed to". It never returns NULL. The caller owns the result and must pass
// it to free_string exactly once.
//
//export parse_replay
func parse_replay(path *C.char) *C.char {
	if path == nil {
		return (*C.char)(unsafe.Pointer(adapter.ParseMissing()))
	}
	return (*C.char)(unsafe.Pointer(adapter.Parse(C.GoString(path))))
}

// free_string releases a string returned by parse_replay. NULL is ignored.
// Freeing the same pointer twice, or a pointer parse_replay did not return,
// is undefined behaviour.
//
//export free_string
func free_string(s *C.char) {
	adapter.Release(boundary.Handle(unsafe.Pointer(s)))
}

func main() {}
