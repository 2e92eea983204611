// Package source tracks where entry data lives between open and save.
//
// A container opened lazily keeps its backing file open and hands every
// unloaded entry a Locator pointing into it. The file is shared through a
// single reference-counted Handle: reads are serialized under its lock, and
// the descriptor closes itself once the last locator lets go.
package source

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/spf13/afero"
)

// ErrClosed reports a read against a handle whose file has been closed,
// either because every locator released it or because the container was
// shut down.
var ErrClosed = errors.New("pack: source file closed")

// Handle is an open container file shared by every lazy entry read from it.
// The zero value is not usable; obtain handles from Open.
type Handle struct {
	mu     sync.Mutex
	f      afero.File
	name   string
	refs   int
	closed bool
}

// Open opens name on fsys for reading and returns a handle holding one
// reference on behalf of the caller.
func Open(fsys afero.Fs, name string) (*Handle, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	return &Handle{f: f, name: name, refs: 1}, nil
}

// Name reports the path the handle was opened with.
func (h *Handle) Name() string { return h.name }

// Retain adds a reference. Each locator pointing into the file holds one.
func (h *Handle) Retain() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.refs++
}

// Release drops a reference and closes the file when the count reaches
// zero. Releasing an already-closed handle is a no-op.
func (h *Handle) Release() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.refs--
	if h.refs > 0 {
		return nil
	}
	return h.closeLocked()
}

// Close closes the file immediately regardless of the reference count.
// Outstanding locators observe ErrClosed afterwards.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	return h.closeLocked()
}

func (h *Handle) closeLocked() error {
	h.closed = true
	if err := h.f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", h.name, err)
	}
	return nil
}

// ReadRange reads exactly n bytes starting at off. The seek and read happen
// under the handle lock, so concurrent entry reads never interleave.
func (h *Handle) ReadRange(off int64, n int) ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, fmt.Errorf("read %s: %w", h.name, ErrClosed)
	}
	if _, err := h.f.Seek(off, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek %s to %d: %w", h.name, off, err)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(h.f, buf); err != nil {
		return nil, fmt.Errorf("read %s at %d: %w", h.name, off, err)
	}
	return buf, nil
}

// Locator records where one entry's data lives: either a byte slice already
// in memory, or an offset range inside a shared container file.
type Locator struct {
	data     []byte
	h        *Handle
	off      int64
	size     uint32
	released bool
}

// Memory returns a locator holding data directly.
func Memory(data []byte) Locator {
	return Locator{data: data}
}

// OnDisk returns a locator for size bytes at off inside h, taking a
// reference on the handle.
func OnDisk(h *Handle, off int64, size uint32) Locator {
	h.Retain()
	return Locator{h: h, off: off, size: size}
}

// InMemory reports whether the locator holds its bytes directly.
func (l *Locator) InMemory() bool { return l.h == nil }

// Bytes returns the in-memory bytes, or nil for an on-disk locator.
func (l *Locator) Bytes() []byte { return l.data }

// Offset reports the data offset inside the container file. Zero for
// in-memory locators.
func (l *Locator) Offset() int64 { return l.off }

// Source reports the path of the backing container file, or "" for
// in-memory locators.
func (l *Locator) Source() string {
	if l.h == nil {
		return ""
	}
	return l.h.Name()
}

// ReadStored reads the stored form of the data from the container file.
// The bytes come back exactly as written, before any decompression or
// decryption.
func (l *Locator) ReadStored() ([]byte, error) {
	if l.h == nil {
		return nil, errors.New("pack: locator holds no file reference")
	}
	if l.released {
		return nil, fmt.Errorf("read %s: %w", l.h.Name(), ErrClosed)
	}
	return l.h.ReadRange(l.off, int(l.size))
}

// Release drops the locator's reference on the shared handle. Safe to call
// more than once and on in-memory locators.
func (l *Locator) Release() {
	if l.h == nil || l.released {
		return
	}
	l.released = true
	l.h.Release() //nolint:errcheck // descriptor teardown; read paths surface their own errors
}
