package pack

import (
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/modforge/pack/internal/source"
	"github.com/modforge/pack/internal/transform"
)

// Entry is one packed file inside a Container. Entries read from disk
// stay lazy: the data remains in the container file until Data or Load
// resolves it. Entries hold their raw content once resolved or replaced;
// compression and masking apply only to the stored form.
type Entry struct {
	path       Path
	size       uint32
	modTime    int64
	compressed bool
	cipher     transform.Key
	loc        source.Locator
	owner      *Container
}

// NewEntry returns an in-memory entry holding data. The entry takes
// ownership of the slice.
func NewEntry(p Path, data []byte) *Entry {
	e := &Entry{path: p.clone(), loc: source.Memory(data)}
	if len(data) <= math.MaxUint32 {
		e.size = uint32(len(data))
	}
	return e
}

// Path returns a copy of the entry's path.
func (e *Entry) Path() Path { return e.path.clone() }

// Size reports the declared size of the entry's stored form: the on-disk
// byte count for lazy entries, the raw byte count once resolved. Save
// refreshes it to the size actually written.
func (e *Entry) Size() uint32 { return e.size }

// ModTime reports the entry's last-modified timestamp, or the zero time
// when the container revision stores none.
func (e *Entry) ModTime() time.Time {
	if e.modTime == 0 {
		return time.Time{}
	}
	return time.Unix(e.modTime, 0).UTC()
}

// SetModTime sets the entry's last-modified timestamp. Only revisions
// with index timestamps persist it.
func (e *Entry) SetModTime(t time.Time) {
	if t.IsZero() {
		e.modTime = 0
		return
	}
	e.modTime = t.Unix()
}

// Compressed reports whether the entry's stored form is compressed, or
// will be on the next save to a revision that supports it.
func (e *Entry) Compressed() bool { return e.compressed }

// SetCompressed marks the entry for compression on the next save.
// Revisions without per-entry compression store it raw regardless.
func (e *Entry) SetCompressed(v bool) { e.compressed = v }

// Encrypted reports whether the entry's stored form is masked.
func (e *Entry) Encrypted() bool { return e.cipher != transform.KeyNone }

// InMemory reports whether the entry's data is held in memory rather
// than left in the container file.
func (e *Entry) InMemory() bool { return e.loc.InMemory() }

// Type classifies the entry by its path, using the owning container's
// classifier when there is one.
func (e *Entry) Type() EntryType {
	if e.owner != nil && e.owner.classifier != nil {
		return e.owner.classifier.Classify(e.path)
	}
	return classify(e.path)
}

// Data returns the entry's raw content. Lazy entries resolve on demand:
// the stored bytes are read from the container file, unmasked, and
// decompressed, without changing the entry's state. The returned slice is
// the caller's to keep.
func (e *Entry) Data() ([]byte, error) {
	if e.loc.InMemory() {
		return slices.Clone(e.loc.Bytes()), nil
	}
	if e.owner != nil {
		return e.owner.resolveEntry(e)
	}
	raw, err := e.resolveStored()
	if err != nil {
		return nil, err
	}
	return raw, nil
}

// Load resolves a lazy entry and keeps the raw bytes in memory, dropping
// the entry's claim on the container file. Entries already in memory are
// untouched.
func (e *Entry) Load() error {
	if e.loc.InMemory() {
		return nil
	}
	raw, err := e.Data()
	if err != nil {
		return err
	}
	e.materialize(raw)
	return nil
}

// SetData replaces the entry's content with raw bytes held in memory. The
// entry takes ownership of the slice.
func (e *Entry) SetData(data []byte) {
	e.materialize(data)
}

// materialize swaps the locator to an in-memory one, releasing any file
// reference the entry held.
func (e *Entry) materialize(raw []byte) {
	e.loc.Release()
	e.loc = source.Memory(raw)
	if len(raw) <= math.MaxUint32 {
		e.size = uint32(len(raw))
	}
}

// resolveStored reads and decodes the stored form straight from the
// container file, bypassing any cache.
func (e *Entry) resolveStored() ([]byte, error) {
	stored, err := e.loc.ReadStored()
	if err != nil {
		return nil, fmt.Errorf("entry %s: %w", e.path, err)
	}
	return e.decodeStored(stored)
}

// decodeStored undoes the stored-form transforms: unmask first, then
// decompress, the reverse of how saving applies them.
func (e *Entry) decodeStored(stored []byte) ([]byte, error) {
	data := stored
	if e.cipher != transform.KeyNone {
		data = transform.Mask(data, e.cipher)
	}
	if !e.compressed {
		return data, nil
	}
	raw, err := transform.Decompress(data)
	if err != nil {
		return nil, fmt.Errorf("entry %s: %w", e.path, err)
	}
	return raw, nil
}

// rawBytes returns the in-memory content, or nil for lazy entries. Save
// materializes entries before calling it.
func (e *Entry) rawBytes() []byte {
	return e.loc.Bytes()
}

// release drops any file reference and detaches the entry from its
// container.
func (e *Entry) release() {
	e.loc.Release()
	e.owner = nil
}
