package pack

import (
	"bufio"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/modforge/pack/internal/batch"
	"github.com/modforge/pack/internal/layout"
	"github.com/modforge/pack/internal/sizing"
	"github.com/modforge/pack/internal/transform"
)

// Save writes the container back to the file it is bound to. Containers
// built with New must use SaveAs first.
func (c *Container) Save(opts ...SaveOption) error {
	if c.filePath == "" {
		return ErrNoPath
	}
	return c.saveTo(c.filePath, false, opts)
}

// SaveAs writes the container to path and binds it there on success.
// The original file, if any, is left untouched.
func (c *Container) SaveAs(path string, opts ...SaveOption) error {
	if !strings.EqualFold(filepath.Ext(path), containerExt) {
		return fmt.Errorf("%w: %s", ErrInvalidExtension, path)
	}
	return c.saveTo(path, true, opts)
}

// saveTo encodes the container and writes it atomically: into a temp file
// in the target directory, renamed over path once complete.
func (c *Container) saveTo(path string, rebind bool, opts []SaveOption) error {
	cfg := saveConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	if !c.Editable(cfg.protected) {
		return fmt.Errorf("%w: %s container", ErrNotEditable, c.FileType())
	}
	if !rebind {
		// Saving in place replaces the bound file, which must still exist.
		info, err := c.fsys.Stat(path)
		if err != nil || info.IsDir() {
			return fmt.Errorf("%w: %s", ErrNotAFile, path)
		}
	}
	cdc, ok := layout.ForVersion(c.version)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownVersion, c.version)
	}
	caps := cdc.Caps()
	scheme := saveScheme(&cfg, c.version, caps)

	// Everything must be in memory before the old file can be replaced.
	if err := preload(c); err != nil {
		return err
	}

	list := c.saveList()
	slices.SortStableFunc(list, func(a, b *Entry) int {
		return strings.Compare(a.path.sortKey(), b.path.sortKey())
	})

	stored, recs, err := encodeEntries(list, scheme, caps)
	if err != nil {
		return err
	}
	flags := c.saveFlags(caps, recs)

	now := time.Now().Unix()
	hdr := layout.Header{
		Version:   c.version,
		Bits:      c.bits&fileTypeMask | uint32(flags),
		Timestamp: now,
		Sub:       c.sub,
	}
	depBuf, err := layout.EncodeDependencies(c.deps)
	if err != nil {
		return err
	}
	entryBuf, err := layout.EncodeRecords(cdc, flags, recs)
	if err != nil {
		return err
	}
	if hdr.DepCount, err = sizing.ToUint32(len(c.deps), ErrSizeOverflow); err != nil {
		return err
	}
	if hdr.DepSize, err = sizing.ToUint32(len(depBuf), ErrSizeOverflow); err != nil {
		return err
	}
	if hdr.EntryCount, err = sizing.ToUint32(len(list), ErrSizeOverflow); err != nil {
		return err
	}
	if hdr.EntrySize, err = sizing.ToUint32(len(entryBuf), ErrSizeOverflow); err != nil {
		return err
	}
	head, err := layout.EncodeHeader(hdr)
	if err != nil {
		return err
	}

	if err := c.writeAtomic(path, head, depBuf, entryBuf, stored); err != nil {
		return err
	}

	// The write is durable; fold the save back into the container state.
	c.bits = hdr.Bits
	c.timestamp = now
	if c.version == V0 {
		c.timestamp = 0
	}
	for i, e := range list {
		e.size = recs[i].Size
	}
	if rebind {
		c.filePath = path
	}
	if c.cache != nil {
		c.cache.Purge()
	}
	if c.handle != nil {
		c.handle.Close() //nolint:errcheck // all entries are in memory; the old file is superseded
		c.handle = nil
	}
	c.log().Info("saved container", "container", path, "version", c.version, "entries", len(list))
	return nil
}

// saveScheme resolves the compression stream format for this save.
func saveScheme(cfg *saveConfig, v Version, caps layout.Caps) Scheme {
	if !caps.Compression {
		return SchemeNone
	}
	switch {
	case cfg.schemeSet:
		return cfg.scheme
	case v == V6:
		return SchemeZstd
	default:
		return SchemeLzma
	}
}

// saveList snapshots the entries to write, appending the reserved
// pseudo-entries: notes when present, settings always.
func (c *Container) saveList() []*Entry {
	list := make([]*Entry, 0, len(c.entries)+2)
	list = append(list, c.entries...)
	if c.notes != "" {
		list = append(list, NewEntry(Path{reservedNotesName}, []byte(c.notes)))
	}
	if data, err := c.settings.encode(); err == nil {
		list = append(list, NewEntry(Path{reservedSettingsName}, data))
	} else {
		c.log().Warn("dropping unencodable settings", "error", err)
	}
	return list
}

// encodeEntries builds each entry's stored form and index record.
// Compression fans out across workers when the batch is large enough.
func encodeEntries(list []*Entry, scheme Scheme, caps layout.Caps) ([][]byte, []layout.Record, error) {
	stored := make([][]byte, len(list))
	recs := make([]layout.Record, len(list))

	var total uint64
	for _, e := range list {
		total += uint64(e.size)
	}
	workers := batch.Suggest(total, len(list))
	err := batch.Each(workers, len(list), func(i int) error {
		e := list[i]
		raw := e.rawBytes()
		out := raw
		compressed := false
		if e.compressed && scheme != SchemeNone && len(raw) > 0 {
			enc, err := transform.Compress(raw, scheme)
			if err != nil {
				return fmt.Errorf("entry %s: %w", e.path, err)
			}
			out = enc
			compressed = true
		}
		size, err := sizing.ToUint32(len(out), ErrSizeOverflow)
		if err != nil {
			return fmt.Errorf("entry %s: %w", e.path, err)
		}
		stored[i] = out
		recs[i] = layout.Record{
			Size:       size,
			Timestamp:  e.modTime,
			Compressed: compressed,
			Path:       e.path.String(),
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return stored, recs, nil
}

// saveFlags sanitizes the container flags for the target revision and
// recomputes the compressed-data hint from what was actually written.
func (c *Container) saveFlags(caps layout.Caps, recs []layout.Record) Flags {
	flags := c.Flags() &^ FlagCompressedData
	if !caps.IndexTimestamps {
		flags &^= FlagIndexTimestamps
	}
	if c.version != V4 && c.version != V5 {
		flags &^= FlagExtendedHeader
	}
	for _, rec := range recs {
		if rec.Compressed {
			flags |= FlagCompressedData
			break
		}
	}
	return flags
}

// writeAtomic writes the container image to a temp file beside path and
// renames it into place. The temp file is removed on any failure.
func (c *Container) writeAtomic(path string, head, depBuf, entryBuf []byte, stored [][]byte) error {
	f, err := afero.TempFile(c.fsys, filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := f.Name()

	if err := writeImage(f, head, depBuf, entryBuf, stored); err != nil {
		f.Close()              //nolint:errcheck // the write error is the one worth reporting
		c.fsys.Remove(tmpName) //nolint:errcheck // best-effort cleanup
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := f.Close(); err != nil {
		c.fsys.Remove(tmpName) //nolint:errcheck // best-effort cleanup
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := c.fsys.Rename(tmpName, path); err != nil {
		c.fsys.Remove(tmpName) //nolint:errcheck // best-effort cleanup
		return fmt.Errorf("rename %s to %s: %w", tmpName, path, err)
	}
	return nil
}

// writeImage streams the container parts in on-disk order: header, both
// indexes, then each entry's stored form in index order.
func writeImage(f afero.File, head, depBuf, entryBuf []byte, stored [][]byte) error {
	w := bufio.NewWriter(f)
	for _, part := range [][]byte{head, depBuf, entryBuf} {
		if _, err := w.Write(part); err != nil {
			return err
		}
	}
	for _, data := range stored {
		if _, err := w.Write(data); err != nil {
			return err
		}
	}
	return w.Flush()
}
