package pack

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/spf13/afero"

	"github.com/modforge/pack/internal/batch"
	"github.com/modforge/pack/internal/layout"
	"github.com/modforge/pack/internal/sizing"
	"github.com/modforge/pack/internal/source"
	"github.com/modforge/pack/internal/transform"
)

// containerExt is the extension container files carry on disk.
const containerExt = ".pack"

// Open reads the container at path. Entries stay lazy by default: their
// data remains in the file, which is held open until every entry is
// resolved or the container is closed. WithPreload loads everything up
// front instead and releases the file before returning.
//
// Reserved notes and settings entries are lifted out of the entry list
// and surface through Notes and Settings.
func Open(path string, opts ...OpenOption) (*Container, error) {
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

	if !strings.EqualFold(filepath.Ext(path), containerExt) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidExtension, path)
	}

	info, err := cfg.fsys.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	h, err := source.Open(cfg.fsys, path)
	if err != nil {
		return nil, err
	}

	c, err := readContainer(h, path, info.Size(), &cfg)
	if err != nil {
		h.Close() //nolint:errcheck // the parse error is the one worth reporting
		return nil, err
	}

	if !cfg.lazy {
		if err := preload(c); err != nil {
			h.Close() //nolint:errcheck // the resolve error is the one worth reporting
			return nil, err
		}
	}

	// Drop the opener's reference. Lazy entries keep the file open through
	// their own references; a fully preloaded container closes it here.
	if err := h.Release(); err != nil {
		return nil, err
	}
	c.log().Info("opened container", "container", path, "version", c.version, "entries", c.Len(), "dependencies", len(c.deps))
	return c, nil
}

// readContainer parses the header and indexes and builds the container,
// leaving entry data in the file.
func readContainer(h *source.Handle, path string, fileLen int64, cfg *openConfig) (*Container, error) {
	headLen := int(min(int64(layout.MaxHeaderLen), fileLen))
	head, err := h.ReadRange(0, headLen)
	if err != nil {
		return nil, err
	}
	hdr, err := layout.ParseHeader(head, fileLen)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cdc, _ := layout.ForVersion(hdr.Version)
	caps := cdc.Caps()

	entryOff, ok := sizing.AddUint64(uint64(hdr.Len), uint64(hdr.DepSize))
	if !ok {
		return nil, fmt.Errorf("%w: index sizes overflow", ErrIndexesIncomplete)
	}
	dataStart, ok := sizing.AddUint64(entryOff, uint64(hdr.EntrySize))
	if !ok {
		return nil, fmt.Errorf("%w: index sizes overflow", ErrIndexesIncomplete)
	}
	if dataStart > uint64(fileLen) {
		return nil, fmt.Errorf("%w: indexes end at %d, file has %d bytes", ErrIndexesIncomplete, dataStart, fileLen)
	}

	var depBuf []byte
	if hdr.DepSize > 0 {
		if depBuf, err = h.ReadRange(int64(hdr.Len), int(hdr.DepSize)); err != nil {
			return nil, err
		}
	}
	deps, err := layout.DecodeDependencies(depBuf, hdr.DepCount)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	var entryBuf []byte
	if hdr.EntrySize > 0 {
		if entryBuf, err = h.ReadRange(int64(entryOff), int(hdr.EntrySize)); err != nil {
			return nil, err
		}
	}
	recs, err := layout.DecodeRecords(cdc, hdr.Flags(), entryBuf, hdr.EntryCount)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	// Every record claims a data region in index order. Walk them before
	// touching any data so a truncated or padded file fails cleanly.
	offsets := make([]int64, len(recs))
	cursor := dataStart
	for i, rec := range recs {
		offsets[i] = int64(cursor)
		if cursor, ok = sizing.AddUint64(cursor, uint64(rec.Size)); !ok {
			return nil, fmt.Errorf("%w: entry sizes overflow", ErrIndexesIncomplete)
		}
	}
	if cursor != uint64(fileLen) {
		return nil, &SizeMismatchError{Actual: fileLen, Expected: int64(cursor)}
	}

	var key transform.Key
	if hdr.Flags().Has(layout.FlagEncryptedData) && caps.Encryption {
		key = transform.Key(uint8(hdr.Version))
	}

	c := &Container{
		version:    hdr.Version,
		bits:       hdr.Bits,
		timestamp:  hdr.Timestamp,
		deps:       deps,
		byPath:     make(map[string]*Entry, len(recs)),
		settings:   NewSettings(),
		sub:        hdr.Sub,
		filePath:   path,
		fsys:       cfg.fsys,
		handle:     h,
		classifier: cfg.classifier,
		logger:     cfg.logger,
	}
	if cfg.cacheSize > 0 {
		if c.cache, err = lru.New[string, []byte](cfg.cacheSize); err != nil {
			return nil, fmt.Errorf("create data cache: %w", err)
		}
	}

	for i, rec := range recs {
		p := ParsePath(rec.Path)
		if len(p) == 0 {
			c.log().Warn("skipping entry with empty path", "container", path)
			continue
		}
		if cfg.types != nil {
			if _, want := cfg.types[cfg.classifier.Classify(p)]; !want {
				continue
			}
		}
		if isReservedPath(p) {
			if err := c.liftReserved(h, p, rec, offsets[i], key); err != nil {
				return nil, err
			}
			continue
		}
		e := &Entry{
			path:       p,
			size:       rec.Size,
			modTime:    rec.Timestamp,
			compressed: rec.Compressed,
			cipher:     key,
			loc:        source.OnDisk(h, offsets[i], rec.Size),
		}
		if _, dup := c.byPath[p.String()]; dup {
			c.log().Warn("duplicate entry path, keeping the later one", "container", path, "path", p.String())
		}
		c.put(e)
	}
	return c, nil
}

// liftReserved resolves a reserved entry's data during open and folds it
// into the container's notes or settings. A reserved entry that fails to
// decode is dropped with a warning rather than failing the open.
func (c *Container) liftReserved(h *source.Handle, p Path, rec layout.Record, off int64, key transform.Key) error {
	tmp := &Entry{path: p, size: rec.Size, compressed: rec.Compressed, cipher: key, loc: source.OnDisk(h, off, rec.Size)}
	defer tmp.release()

	data, err := tmp.resolveStored()
	if err != nil {
		c.log().Warn("dropping unreadable reserved entry", "container", c.filePath, "path", p.String(), "error", err)
		return nil
	}
	switch p[0] {
	case reservedNotesName:
		if !utf8.Valid(data) {
			c.log().Warn("dropping notes that are not valid UTF-8", "container", c.filePath)
			return nil
		}
		c.notes = string(data)
	case reservedSettingsName:
		c.settings = decodeSettings(data)
	}
	return nil
}

// preload materializes every entry, fanning out across workers when the
// batch is large enough to be worth it.
func preload(c *Container) error {
	var total uint64
	for _, e := range c.entries {
		total += uint64(e.size)
	}
	workers := batch.Suggest(total, len(c.entries))
	return batch.Each(workers, len(c.entries), func(i int) error {
		return c.entries[i].Load()
	})
}
