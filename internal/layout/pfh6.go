package layout

import (
	"bytes"
	"fmt"

	"github.com/modforge/pack/internal/codec"
)

const (
	// pfh6SubLen is the fixed length of the structured subheader: game
	// version, build number, and the authoring tool tag.
	pfh6SubLen = 16
	// pfh6ToolLen is the zero-padded width of the tool tag.
	pfh6ToolLen = 8
)

// pfh6 replaced the opaque extension with a structured subheader that is
// always present: its length word, the game version and build the
// container was authored against, and an 8-byte tool tag.
type pfh6 struct{}

func (pfh6) Version() Version { return V6 }

func (pfh6) HeaderLen(Flags) int { return MinHeaderLen + 4 + 4 + pfh6SubLen }

func (pfh6) ReadHeader(r *codec.Reader, h *Header) error {
	epoch, err := r.U32()
	if err != nil {
		return err
	}
	h.Timestamp = int64(epoch)

	n, err := r.U32()
	if err != nil {
		return err
	}
	if n != pfh6SubLen {
		return fmt.Errorf("%w: subheader length %d, want %d", ErrHeaderIncomplete, n, pfh6SubLen)
	}
	if h.Sub.GameVersion, err = r.U32(); err != nil {
		return err
	}
	if h.Sub.Build, err = r.U32(); err != nil {
		return err
	}
	tool, err := r.Bytes(pfh6ToolLen)
	if err != nil {
		return err
	}
	h.Sub.Tool = string(bytes.TrimRight(tool, "\x00"))
	return nil
}

func (pfh6) WriteHeader(w *codec.Writer, h *Header) {
	w.U32(uint32(h.Timestamp))
	w.U32(pfh6SubLen)
	w.U32(h.Sub.GameVersion)
	w.U32(h.Sub.Build)
	tag := make([]byte, pfh6ToolLen)
	copy(tag, h.Sub.Tool)
	w.Raw(tag)
}

func (pfh6) ReadRecord(r *codec.Reader, flags Flags) (Record, error) {
	return decodeEpochRecord(r, flags, true)
}

func (pfh6) WriteRecord(w *codec.Writer, flags Flags, rec Record) error {
	return encodeEpochRecord(w, flags, true, rec)
}

func (pfh6) Caps() Caps {
	return Caps{IndexTimestamps: true, Compression: true, Encryption: true, Subheader: true}
}
