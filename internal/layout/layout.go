// Package layout knows the fixed header and index geometry of every
// container revision. Each revision implements the Codec interface; the
// shared drivers in this file handle the 24-byte prefix common to all of
// them and delegate the revision-specific tail and record shapes.
package layout

import (
	"errors"
	"fmt"

	"github.com/modforge/pack/internal/codec"
)

var (
	// ErrHeaderIncomplete reports a file too short or too malformed to
	// hold the fixed header its revision requires.
	ErrHeaderIncomplete = errors.New("pack: file too short for a complete header")
	// ErrIndexesIncomplete reports a file too short to hold the index
	// bytes its header declares.
	ErrIndexesIncomplete = errors.New("pack: file too short for its declared indexes")
	// ErrUnknownVersion reports a magic that matches no known revision.
	ErrUnknownVersion = errors.New("pack: unrecognized container version magic")
	// ErrEncryptedIndex reports a container whose index is encrypted.
	// Encrypted indexes are read-protected by the vendor and not
	// supported.
	ErrEncryptedIndex = errors.New("pack: encrypted index is not supported")
)

// Version identifies one historical container revision. The numeric value
// is the revision digit from the on-disk magic.
type Version uint8

const (
	// V0 is the earliest revision: no timestamps anywhere.
	V0 Version = 0
	// V2 added a container timestamp and optional per-entry timestamps,
	// both stored as 100ns ticks.
	V2 Version = 2
	// V3 kept V2's geometry for a new generation of titles.
	V3 Version = 3
	// V4 moved timestamps to 32-bit epoch seconds and added the optional
	// extended header block.
	V4 Version = 4
	// V5 added the per-entry compression marker.
	V5 Version = 5
	// V6 replaced the optional extension with a structured subheader
	// carrying game version, build, and authoring tool.
	V6 Version = 6
)

// Versions lists every revision this package reads and writes, oldest
// first.
func Versions() []Version {
	return []Version{V0, V2, V3, V4, V5, V6}
}

// Magic returns the 4-byte magic that opens a container of this revision.
func (v Version) Magic() string {
	switch v {
	case V0:
		return "PFH0"
	case V2:
		return "PFH2"
	case V3:
		return "PFH3"
	case V4:
		return "PFH4"
	case V5:
		return "PFH5"
	case V6:
		return "PFH6"
	default:
		return ""
	}
}

func (v Version) String() string {
	if m := v.Magic(); m != "" {
		return m
	}
	return fmt.Sprintf("PFH?(%d)", uint8(v))
}

// VersionFromMagic resolves a 4-byte magic to its revision.
func VersionFromMagic(magic []byte) (Version, bool) {
	v, ok := byMagic[string(magic)]
	return v, ok
}

var byMagic = map[string]Version{
	"PFH0": V0,
	"PFH2": V2,
	"PFH3": V3,
	"PFH4": V4,
	"PFH5": V5,
	"PFH6": V6,
}

// Flags is the capability bitmask stored in the second header word,
// alongside the low-nibble file type.
type Flags uint32

const (
	// FlagEncryptedData marks every entry's stored data as masked.
	FlagEncryptedData Flags = 0x10
	// FlagCompressedData hints that at least one entry is compressed.
	// Recomputed on save; readers trust the per-entry markers instead.
	FlagCompressedData Flags = 0x20
	// FlagIndexTimestamps marks entry records as carrying a last-modified
	// timestamp.
	FlagIndexTimestamps Flags = 0x40
	// FlagEncryptedIndex marks the entry index itself as encrypted.
	FlagEncryptedIndex Flags = 0x80
	// FlagExtendedHeader marks the optional 20-byte header extension on
	// the revisions that allow one.
	FlagExtendedHeader Flags = 0x100
)

// Has reports whether every bit in mask is set.
func (f Flags) Has(mask Flags) bool { return f&mask == mask }

const (
	// MagicLen is the length of the version magic.
	MagicLen = 4
	// MinHeaderLen is the shared prefix every revision starts with:
	// magic, type-and-flags word, and the four index counts and sizes.
	MinHeaderLen = 24
	// MaxHeaderLen is the largest fixed header any revision uses.
	MaxHeaderLen = 48

	// fileTypeMask covers the low nibble of the type-and-flags word.
	fileTypeMask = 0xF
)

// Windows FILETIME keeps 100ns ticks since 1601-01-01; the container's
// tick-era revisions store container and entry timestamps that way.
const (
	ticksPerSecond     = 10_000_000
	epochOffsetSeconds = 11_644_473_600
)

// ticksToUnix converts 100ns ticks since 1601 to Unix seconds.
func ticksToUnix(ticks int64) int64 {
	return ticks/ticksPerSecond - epochOffsetSeconds
}

// unixToTicks converts Unix seconds to 100ns ticks since 1601.
func unixToTicks(unix int64) int64 {
	return (unix + epochOffsetSeconds) * ticksPerSecond
}

// Header holds the decoded fixed header of a container.
type Header struct {
	Version    Version
	Bits       uint32 // raw type-and-flags word, preserved verbatim
	DepCount   uint32
	DepSize    uint32
	EntryCount uint32
	EntrySize  uint32
	Timestamp  int64 // unix seconds; zero when the revision stores none
	Sub        Subheader
	Len        int // full fixed header length for this revision and flags
}

// Flags returns the capability bits of the type-and-flags word.
func (h *Header) Flags() Flags { return Flags(h.Bits) &^ fileTypeMask }

// TypeBits returns the low-nibble file type of the type-and-flags word.
func (h *Header) TypeBits() uint32 { return h.Bits & fileTypeMask }

// Subheader carries the revision-specific header tail past the timestamp.
type Subheader struct {
	// Data is the opaque 20-byte extension some revisions attach behind
	// FlagExtendedHeader. Preserved verbatim.
	Data []byte
	// GameVersion, Build, and Tool form the structured subheader of the
	// latest revision.
	GameVersion uint32
	Build       uint32
	Tool        string
}

// Record is one decoded entry index record.
type Record struct {
	Size       uint32
	Timestamp  int64 // unix seconds; zero when absent
	Compressed bool
	Path       string // folder segments joined by backslashes
}

// Caps reports which optional capabilities a revision can represent on
// disk. Writers drop what the target revision cannot store.
type Caps struct {
	IndexTimestamps bool
	Compression     bool
	Encryption      bool
	Subheader       bool
}

// Codec is the strategy for one container revision: how long its fixed
// header is, how its header tail and entry records are shaped, and which
// capabilities it supports.
type Codec interface {
	Version() Version
	// HeaderLen reports the fixed header length for the given flags.
	HeaderLen(flags Flags) int
	// ReadHeader decodes the revision tail that follows the shared
	// 24-byte prefix.
	ReadHeader(r *codec.Reader, h *Header) error
	// WriteHeader encodes the revision tail.
	WriteHeader(w *codec.Writer, h *Header)
	// ReadRecord decodes one entry index record.
	ReadRecord(r *codec.Reader, flags Flags) (Record, error)
	// WriteRecord encodes one entry index record.
	WriteRecord(w *codec.Writer, flags Flags, rec Record) error
	Caps() Caps
}

var codecs = map[Version]Codec{
	V0: pfh0{},
	V2: pfh2{},
	V3: pfh3{},
	V4: pfh4{},
	V5: pfh5{},
	V6: pfh6{},
}

// ForVersion returns the codec for a revision.
func ForVersion(v Version) (Codec, bool) {
	c, ok := codecs[v]
	return c, ok
}

// ParseHeader decodes the fixed header from the start of a container file.
// buf holds the file's first MaxHeaderLen bytes (or the whole file when
// shorter); fileLen is the file's total length and drives the
// completeness checks.
func ParseHeader(buf []byte, fileLen int64) (Header, error) {
	if fileLen < MinHeaderLen {
		return Header{}, fmt.Errorf("%w: %d bytes", ErrHeaderIncomplete, fileLen)
	}
	r := codec.NewReader(buf)
	magic, err := r.Bytes(MagicLen)
	if err != nil {
		return Header{}, fmt.Errorf("%w: %d bytes", ErrHeaderIncomplete, len(buf))
	}
	v, ok := VersionFromMagic(magic)
	if !ok {
		return Header{}, fmt.Errorf("%w: %q", ErrUnknownVersion, magic)
	}
	cdc, _ := ForVersion(v)

	h := Header{Version: v}
	if h.Bits, err = r.U32(); err != nil {
		return Header{}, fmt.Errorf("%s header: %w", v, err)
	}
	if h.Flags().Has(FlagEncryptedIndex) {
		return Header{}, fmt.Errorf("%w (%s)", ErrEncryptedIndex, v)
	}
	h.Len = cdc.HeaderLen(h.Flags())
	if fileLen < int64(h.Len) {
		return Header{}, fmt.Errorf("%w: %s needs %d bytes, file has %d", ErrHeaderIncomplete, v, h.Len, fileLen)
	}

	for _, dst := range []*uint32{&h.DepCount, &h.DepSize, &h.EntryCount, &h.EntrySize} {
		if *dst, err = r.U32(); err != nil {
			return Header{}, fmt.Errorf("%s header: %w", v, err)
		}
	}
	if err := cdc.ReadHeader(r, &h); err != nil {
		return Header{}, fmt.Errorf("%s header: %w", v, err)
	}
	return h, nil
}

// EncodeHeader encodes a fixed header. The caller fills the counts and
// sizes before calling.
func EncodeHeader(h Header) ([]byte, error) {
	cdc, ok := ForVersion(h.Version)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownVersion, h.Version)
	}
	var w codec.Writer
	w.Raw([]byte(h.Version.Magic()))
	w.U32(h.Bits)
	w.U32(h.DepCount)
	w.U32(h.DepSize)
	w.U32(h.EntryCount)
	w.U32(h.EntrySize)
	cdc.WriteHeader(&w, &h)
	return w.Bytes(), nil
}

// DecodeDependencies decodes count null-terminated dependency names from
// the dependency index bytes.
func DecodeDependencies(buf []byte, count uint32) ([]string, error) {
	r := codec.NewReader(buf)
	deps := make([]string, 0, prealloc(count, len(buf), 1))
	for i := uint32(0); i < count; i++ {
		s, err := r.StringZ()
		if err != nil {
			return nil, fmt.Errorf("dependency %d: %w", i, err)
		}
		deps = append(deps, s)
	}
	return deps, nil
}

// EncodeDependencies encodes dependency names as a null-terminated run.
func EncodeDependencies(deps []string) ([]byte, error) {
	var w codec.Writer
	for i, d := range deps {
		if err := w.StringZ(d); err != nil {
			return nil, fmt.Errorf("dependency %d: %w", i, err)
		}
	}
	return w.Bytes(), nil
}

// DecodeRecords decodes count entry records from the entry index bytes.
func DecodeRecords(cdc Codec, flags Flags, buf []byte, count uint32) ([]Record, error) {
	r := codec.NewReader(buf)
	recs := make([]Record, 0, prealloc(count, len(buf), 5))
	for i := uint32(0); i < count; i++ {
		rec, err := cdc.ReadRecord(r, flags)
		if err != nil {
			return nil, fmt.Errorf("entry record %d: %w", i, err)
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// EncodeRecords encodes entry records in the order given.
func EncodeRecords(cdc Codec, flags Flags, recs []Record) ([]byte, error) {
	var w codec.Writer
	for i, rec := range recs {
		if err := cdc.WriteRecord(&w, flags, rec); err != nil {
			return nil, fmt.Errorf("entry record %d: %w", i, err)
		}
	}
	return w.Bytes(), nil
}

// prealloc bounds an allocation hint by what the buffer could actually
// hold, so a hostile count cannot force a huge allocation.
func prealloc(count uint32, buflen, minItem int) int {
	limit := buflen/minItem + 1
	if int64(count) < int64(limit) {
		return int(count)
	}
	return limit
}

// decodeTickRecord decodes the record shape of the tick-era revisions:
// size, optional tick timestamp, path.
func decodeTickRecord(r *codec.Reader, flags Flags) (Record, error) {
	var rec Record
	var err error
	if rec.Size, err = r.U32(); err != nil {
		return rec, err
	}
	if flags.Has(FlagIndexTimestamps) {
		ticks, err := r.I64()
		if err != nil {
			return rec, err
		}
		rec.Timestamp = ticksToUnix(ticks)
	}
	rec.Path, err = r.StringZ()
	return rec, err
}

// encodeTickRecord mirrors decodeTickRecord.
func encodeTickRecord(w *codec.Writer, flags Flags, rec Record) error {
	w.U32(rec.Size)
	if flags.Has(FlagIndexTimestamps) {
		w.I64(unixToTicks(rec.Timestamp))
	}
	return w.StringZ(rec.Path)
}

// decodeEpochRecord decodes the record shape of the epoch-era revisions:
// size, optional 32-bit epoch timestamp, optional compression marker,
// path.
func decodeEpochRecord(r *codec.Reader, flags Flags, marker bool) (Record, error) {
	var rec Record
	var err error
	if rec.Size, err = r.U32(); err != nil {
		return rec, err
	}
	if flags.Has(FlagIndexTimestamps) {
		epoch, err := r.U32()
		if err != nil {
			return rec, err
		}
		rec.Timestamp = int64(epoch)
	}
	if marker {
		if rec.Compressed, err = r.Bool(); err != nil {
			return rec, err
		}
	}
	rec.Path, err = r.StringZ()
	return rec, err
}

// encodeEpochRecord mirrors decodeEpochRecord.
func encodeEpochRecord(w *codec.Writer, flags Flags, marker bool, rec Record) error {
	w.U32(rec.Size)
	if flags.Has(FlagIndexTimestamps) {
		w.U32(uint32(rec.Timestamp))
	}
	if marker {
		w.Bool(rec.Compressed)
	}
	return w.StringZ(rec.Path)
}
