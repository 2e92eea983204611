package pack

import (
	"fmt"

	"github.com/modforge/pack/internal/layout"
	"github.com/modforge/pack/internal/transform"
)

// Re-export layout types for the public API.
type (
	// Version identifies one historical container revision.
	Version = layout.Version

	// Flags is the capability bitmask stored beside the file type in the
	// container header.
	Flags = layout.Flags

	// Subheader carries the revision-specific header tail: the opaque
	// extension block of the middle revisions, or the structured game
	// version, build, and tool tag of the latest one.
	Subheader = layout.Subheader

	// Scheme identifies a compression stream format for stored entry
	// data.
	Scheme = transform.Scheme
)

// Container revisions, oldest to newest.
const (
	V0 = layout.V0
	V2 = layout.V2
	V3 = layout.V3
	V4 = layout.V4
	V5 = layout.V5
	V6 = layout.V6
)

// Capability flags.
const (
	FlagEncryptedData   = layout.FlagEncryptedData
	FlagCompressedData  = layout.FlagCompressedData
	FlagIndexTimestamps = layout.FlagIndexTimestamps
	FlagEncryptedIndex  = layout.FlagEncryptedIndex
	FlagExtendedHeader  = layout.FlagExtendedHeader
)

// Compression schemes.
const (
	SchemeNone = transform.SchemeNone
	SchemeLzma = transform.SchemeLzma
	SchemeLz4  = transform.SchemeLz4
	SchemeZstd = transform.SchemeZstd
)

// FileType classifies a container's role in a title's load order. It is
// the low nibble of the header's type-and-flags word; values past
// FileTypeMovie belong to vendor tooling and are preserved but never
// editable.
type FileType uint32

const (
	// FileTypeBoot containers load first and ship engine fundamentals.
	FileTypeBoot FileType = 0
	// FileTypeRelease containers hold the shipped game data.
	FileTypeRelease FileType = 1
	// FileTypePatch containers override release data.
	FileTypePatch FileType = 2
	// FileTypeMod containers hold user content. The default for new
	// containers.
	FileTypeMod FileType = 3
	// FileTypeMovie containers hold video assets.
	FileTypeMovie FileType = 4
)

func (t FileType) String() string {
	switch t {
	case FileTypeBoot:
		return "boot"
	case FileTypeRelease:
		return "release"
	case FileTypePatch:
		return "patch"
	case FileTypeMod:
		return "mod"
	case FileTypeMovie:
		return "movie"
	default:
		return fmt.Sprintf("other(%d)", uint32(t))
	}
}

// vendorProtected reports whether the type belongs to the titles' own
// load order rather than user content.
func (t FileType) vendorProtected() bool {
	return t == FileTypeBoot || t == FileTypeRelease || t == FileTypePatch
}

// EntryType is the coarse content classification the default classifier
// assigns from an entry's path. Open can filter on it, and iteration can
// group by it.
type EntryType uint8

const (
	// TypeOther is anything the classifier does not recognize.
	TypeOther EntryType = iota
	// TypeDB is a database table fragment under the db folder.
	TypeDB
	// TypeLoc is a localization table.
	TypeLoc
	// TypeText is script or config text.
	TypeText
	// TypeImage is a texture or UI image.
	TypeImage
	// TypeAnim is an animation table.
	TypeAnim
	// TypeVideo is a video asset.
	TypeVideo
)

func (t EntryType) String() string {
	switch t {
	case TypeOther:
		return "other"
	case TypeDB:
		return "db"
	case TypeLoc:
		return "loc"
	case TypeText:
		return "text"
	case TypeImage:
		return "image"
	case TypeAnim:
		return "anim"
	case TypeVideo:
		return "video"
	default:
		return fmt.Sprintf("type(%d)", uint8(t))
	}
}
