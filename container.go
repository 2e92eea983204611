package pack

import (
	"fmt"
	"iter"
	"log/slog"
	"strconv"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/spf13/afero"
	"golang.org/x/sync/singleflight"

	"github.com/modforge/pack/internal/source"
)

// defaultToolTag marks containers authored by this library in the
// revisions whose subheader records an authoring tool.
const defaultToolTag = "modforge"

// fileTypeMask covers the low nibble of the type-and-flags word.
const fileTypeMask = 0xF

// Container is a pack file held in memory: its identity (revision, type,
// flags), its dependency list, and its entries. Entries opened lazily
// keep pointing into the backing file until resolved; everything else
// lives on the struct.
//
// A Container is not safe for concurrent mutation. Concurrent Data calls
// on its entries are fine.
type Container struct {
	version    Version
	bits       uint32
	timestamp  int64
	deps       []string
	entries    []*Entry
	byPath     map[string]*Entry
	notes      string
	settings   Settings
	sub        Subheader
	filePath   string
	fsys       afero.Fs
	handle     *source.Handle
	classifier Classifier
	logger     *slog.Logger
	cache      *lru.Cache[string, []byte]
	flight     singleflight.Group
}

// New returns an empty container of the given revision, typed as a mod.
// It is not bound to a file until SaveAs. Of the open options, the
// filesystem, classifier, logger, and data cache apply here; the rest
// only shape how an existing file is read.
func New(v Version, opts ...OpenOption) *Container {
	cfg := openConfig{lazy: true}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.fsys == nil {
		cfg.fsys = afero.NewOsFs()
	}
	if cfg.classifier == nil {
		cfg.classifier = DefaultClassifier()
	}
	c := &Container{
		version:    v,
		bits:       uint32(FileTypeMod),
		byPath:     make(map[string]*Entry),
		settings:   NewSettings(),
		fsys:       cfg.fsys,
		classifier: cfg.classifier,
		logger:     cfg.logger,
	}
	if cfg.cacheSize > 0 {
		c.cache, _ = lru.New[string, []byte](cfg.cacheSize) //nolint:errcheck // only fails for non-positive sizes
	}
	if v == V6 {
		c.sub.Tool = defaultToolTag
	}
	return c
}

// log returns the logger, falling back to a discard logger if nil.
func (c *Container) log() *slog.Logger {
	if c.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.logger
}

// Version reports the container's revision. The revision is fixed when
// the container is constructed; converting a file means building a new
// container of the target revision and moving the entries over.
func (c *Container) Version() Version { return c.version }

// FileType reports the container's role in the load order.
func (c *Container) FileType() FileType { return FileType(c.bits & fileTypeMask) }

// SetFileType sets the container's role, preserving the capability flags.
func (c *Container) SetFileType(t FileType) {
	c.bits = c.bits&^fileTypeMask | uint32(t)&fileTypeMask
}

// Flags reports the container's capability flags.
func (c *Container) Flags() Flags { return Flags(c.bits) &^ fileTypeMask }

// SetFlags sets the capability flags, preserving the file type.
func (c *Container) SetFlags(f Flags) {
	c.bits = c.bits&fileTypeMask | uint32(f)&^fileTypeMask
}

// Timestamp reports when the container was last saved, or the zero time
// for revisions and containers without one.
func (c *Container) Timestamp() time.Time {
	if c.timestamp == 0 {
		return time.Time{}
	}
	return time.Unix(c.timestamp, 0).UTC()
}

// Dependencies returns a copy of the container's load-order dependencies.
func (c *Container) Dependencies() []string {
	return append([]string(nil), c.deps...)
}

// SetDependencies replaces the container's load-order dependencies.
func (c *Container) SetDependencies(deps []string) {
	c.deps = append([]string(nil), deps...)
}

// Notes returns the container's free-form notes. Empty means none.
func (c *Container) Notes() string { return c.notes }

// SetNotes replaces the container's notes. Empty clears them.
func (c *Container) SetNotes(notes string) { c.notes = notes }

// Settings returns the container's live settings for reading and
// mutation. They persist inside the container on save.
func (c *Container) Settings() *Settings { return &c.settings }

// Subheader reports the revision-specific header tail.
func (c *Container) Subheader() Subheader { return c.sub }

// SetSubheader replaces the revision-specific header tail.
func (c *Container) SetSubheader(sub Subheader) { c.sub = sub }

// Path reports the file the container is bound to, or "" before the
// first SaveAs.
func (c *Container) Path() string { return c.filePath }

// Len reports the number of entries.
func (c *Container) Len() int { return len(c.entries) }

// Lookup finds the entry at p. Matching is case-sensitive.
func (c *Container) Lookup(p Path) (*Entry, bool) {
	e, ok := c.byPath[p.String()]
	return e, ok
}

// Insert adds e to the container. The path must be free: inserting over
// an existing entry fails with ErrAlreadyExists, and matching is
// case-sensitive, so paths differing only in case coexist. Reserved
// names are rejected; use SetNotes and Settings for those.
func (c *Container) Insert(e *Entry) error {
	if err := e.path.validate(); err != nil {
		return err
	}
	if isReservedPath(e.path) {
		return fmt.Errorf("%w: %s is reserved", ErrInvalidPath, e.path)
	}
	if _, ok := c.byPath[e.path.String()]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, e.path)
	}
	c.put(e)
	return nil
}

// put adds e without validating, replacing and releasing any entry
// already at its path.
func (c *Container) put(e *Entry) {
	key := e.path.String()
	if old, ok := c.byPath[key]; ok {
		for i, cur := range c.entries {
			if cur == old {
				c.entries[i] = e
				break
			}
		}
		old.release()
	} else {
		c.entries = append(c.entries, e)
	}
	c.byPath[key] = e
	e.owner = c
}

// Remove deletes the entry at p, reporting whether one existed.
func (c *Container) Remove(p Path) bool {
	key := p.String()
	e, ok := c.byPath[key]
	if !ok {
		return false
	}
	delete(c.byPath, key)
	for i, cur := range c.entries {
		if cur == e {
			c.entries = append(c.entries[:i], c.entries[i+1:]...)
			break
		}
	}
	e.release()
	return true
}

// Rename moves the entry at from to to. The target path must be free.
func (c *Container) Rename(from, to Path) error {
	if err := to.validate(); err != nil {
		return err
	}
	if isReservedPath(to) {
		return fmt.Errorf("%w: %s is reserved", ErrInvalidPath, to)
	}
	e, ok := c.byPath[from.String()]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, from)
	}
	toKey := to.String()
	if _, taken := c.byPath[toKey]; taken {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, to)
	}
	delete(c.byPath, from.String())
	c.byPath[toKey] = e
	e.path = to.clone()
	return nil
}

// Entries iterates the container's entries in insertion order, which for
// opened containers is the order of the on-disk index.
func (c *Container) Entries() iter.Seq[*Entry] {
	return func(yield func(*Entry) bool) {
		for _, e := range c.entries {
			if !yield(e) {
				return
			}
		}
	}
}

// EntriesOfType iterates entries the container's classifier assigns to t.
func (c *Container) EntriesOfType(t EntryType) iter.Seq[*Entry] {
	return func(yield func(*Entry) bool) {
		for _, e := range c.entries {
			if c.classifier.Classify(e.path) != t {
				continue
			}
			if !yield(e) {
				return
			}
		}
	}
}

// EntriesWithPrefix iterates entries under the folder named by prefix.
func (c *Container) EntriesWithPrefix(prefix Path) iter.Seq[*Entry] {
	return func(yield func(*Entry) bool) {
		for _, e := range c.entries {
			if !e.path.HasPrefix(prefix) {
				continue
			}
			if !yield(e) {
				return
			}
		}
	}
}

// Editable reports whether the container may be saved. Encrypted
// containers never are: their stored forms cannot be faithfully
// re-encoded. Vendor-protected file types require allowProtected, and
// unknown types are refused outright.
func (c *Container) Editable(allowProtected bool) bool {
	if c.Flags().Has(FlagEncryptedData) || c.Flags().Has(FlagEncryptedIndex) {
		return false
	}
	t := c.FileType()
	switch {
	case t == FileTypeMod || t == FileTypeMovie:
		return true
	case t.vendorProtected():
		return allowProtected
	default:
		return false
	}
}

// Close releases the container's hold on its backing file. Entries not
// yet materialized cannot resolve afterwards and report ErrDataNotOnDisk.
// Safe to call on containers that never had a backing file.
func (c *Container) Close() error {
	if c.cache != nil {
		c.cache.Purge()
	}
	if c.handle == nil {
		return nil
	}
	err := c.handle.Close()
	c.handle = nil
	return err
}

// resolveEntry reads and decodes a lazy entry's data, deduplicating
// concurrent reads of the same range and consulting the data cache when
// one is configured. The returned slice is private to the caller.
func (c *Container) resolveEntry(e *Entry) ([]byte, error) {
	key := e.loc.Source() + ":" + strconv.FormatInt(e.loc.Offset(), 10)
	if c.cache != nil {
		if data, ok := c.cache.Get(key); ok {
			return append([]byte(nil), data...), nil
		}
	}
	v, err, _ := c.flight.Do(key, func() (any, error) {
		raw, err := e.resolveStored()
		if err != nil {
			return nil, err
		}
		c.log().Debug("resolved entry", "path", e.path.String(), "bytes", len(raw))
		if c.cache != nil {
			c.cache.Add(key, raw)
		}
		return raw, nil
	})
	if err != nil {
		return nil, err
	}
	data, ok := v.([]byte)
	if !ok {
		return nil, fmt.Errorf("entry %s: unexpected resolve result", e.path)
	}
	return append([]byte(nil), data...), nil
}
