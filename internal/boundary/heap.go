package boundary

import (
	"sync"
	"unsafe"
)

// HeapAllocator keeps handle memory on the Go heap. The CLI and tests use it
// in place of the C allocator; it also detects releases of unknown handles.
type HeapAllocator struct {
	mu   sync.Mutex
	live map[Handle][]byte
	// invalid counts Free calls on handles that were not live.
	invalid int
}

// NewHeapAllocator returns an empty allocator.
func NewHeapAllocator() *HeapAllocator {
	return &HeapAllocator{live: make(map[Handle][]byte)}
}

// Alloc copies s plus a NUL terminator and returns its address.
func (h *HeapAllocator) Alloc(s string) Handle {
	buf := make([]byte, len(s)+1)
	copy(buf, s)
	handle := Handle(unsafe.Pointer(&buf[0]))
	h.mu.Lock()
	h.live[handle] = buf
	h.mu.Unlock()
	return handle
}

// Free drops the handle's backing memory.
func (h *HeapAllocator) Free(handle Handle) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.live[handle]; !ok {
		h.invalid++
		return
	}
	delete(h.live, handle)
}

// Read returns the string behind a live handle, or "" when it is unknown.
func (h *HeapAllocator) Read(handle Handle) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	buf, ok := h.live[handle]
	if !ok {
		return ""
	}
	return string(buf[:len(buf)-1])
}

// Live reports how many handles are allocated.
func (h *HeapAllocator) Live() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.live)
}

// Invalid reports how many frees targeted unknown or already freed handles.
func (h *HeapAllocator) Invalid() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.invalid
}
