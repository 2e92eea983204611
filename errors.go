package pack

import (
	"errors"
	"fmt"

	"github.com/modforge/pack/internal/codec"
	"github.com/modforge/pack/internal/layout"
	"github.com/modforge/pack/internal/source"
	"github.com/modforge/pack/internal/transform"
)

// Sentinel errors re-exported from the internal layers.
var (
	// ErrHeaderIncomplete is returned when a file is too short or too
	// malformed to hold the fixed header its revision requires.
	ErrHeaderIncomplete = layout.ErrHeaderIncomplete

	// ErrIndexesIncomplete is returned when a file is too short to hold
	// the index bytes its header declares.
	ErrIndexesIncomplete = layout.ErrIndexesIncomplete

	// ErrUnknownVersion is returned when the magic matches no known
	// container revision.
	ErrUnknownVersion = layout.ErrUnknownVersion

	// ErrEncryptedIndex is returned when a container's index is
	// encrypted. Such containers are vendor read-protected and cannot be
	// opened.
	ErrEncryptedIndex = layout.ErrEncryptedIndex

	// ErrDecompression is returned when a compressed entry's stored form
	// cannot be decoded.
	ErrDecompression = transform.ErrDecompression

	// ErrSizeOverflow is returned when byte counts exceed the 32-bit
	// limits the container format records.
	ErrSizeOverflow = transform.ErrSizeOverflow

	// ErrDataNotOnDisk is returned when a lazy entry's data is requested
	// after its backing file was closed.
	ErrDataNotOnDisk = source.ErrClosed

	// ErrOutOfBounds is returned when an index declares more content
	// than its bytes hold.
	ErrOutOfBounds = codec.ErrOutOfBounds

	// ErrInvalidEncoding is returned when index strings are not valid
	// UTF-8 or UTF-16.
	ErrInvalidEncoding = codec.ErrInvalidEncoding
)

// Sentinel errors specific to container operations.
var (
	// ErrNotFound is returned when no entry exists at a path.
	ErrNotFound = errors.New("pack: entry not found")

	// ErrAlreadyExists is returned when an insert or rename would land on
	// an occupied path.
	ErrAlreadyExists = errors.New("pack: entry path already exists")

	// ErrInvalidPath is returned for empty paths or paths whose segments
	// cannot be stored.
	ErrInvalidPath = errors.New("pack: invalid entry path")

	// ErrNotEditable is returned when saving a container whose type or
	// flags forbid modification.
	ErrNotEditable = errors.New("pack: container is not editable")

	// ErrInvalidExtension is returned when a container path does not end
	// in .pack.
	ErrInvalidExtension = errors.New("pack: container files use the .pack extension")

	// ErrNoPath is returned by Save on a container that was never bound
	// to a file. Use SaveAs.
	ErrNoPath = errors.New("pack: container has no file path")

	// ErrNotAFile is returned by Save when the bound path no longer names
	// a regular file. SaveAs rebinds without this check.
	ErrNotAFile = errors.New("pack: not a regular file")
)

// SizeMismatchError is returned when a container's entry data does not end
// exactly at the end of the file: the sum of the header, indexes, and
// declared entry sizes must account for every byte. Anything else means
// truncation or trailing garbage.
type SizeMismatchError struct {
	// Actual is the file's real length in bytes.
	Actual int64
	// Expected is where the declared entry data ends.
	Expected int64
}

func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("pack: file is %d bytes but header and indexes account for %d", e.Actual, e.Expected)
}
