package layout

import "github.com/modforge/pack/internal/codec"

// pfh5 kept pfh4's header and added the per-entry compression marker byte
// to index records.
type pfh5 struct{}

func (pfh5) Version() Version { return V5 }

func (pfh5) HeaderLen(flags Flags) int { return epochHeaderLen(flags) }

func (pfh5) ReadHeader(r *codec.Reader, h *Header) error {
	return readEpochHeader(r, h)
}

func (pfh5) WriteHeader(w *codec.Writer, h *Header) {
	writeEpochHeader(w, h)
}

func (pfh5) ReadRecord(r *codec.Reader, flags Flags) (Record, error) {
	return decodeEpochRecord(r, flags, true)
}

func (pfh5) WriteRecord(w *codec.Writer, flags Flags, rec Record) error {
	return encodeEpochRecord(w, flags, true, rec)
}

func (pfh5) Caps() Caps {
	return Caps{IndexTimestamps: true, Compression: true, Encryption: true, Subheader: true}
}
