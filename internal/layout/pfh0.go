package layout

import "github.com/modforge/pack/internal/codec"

// pfh0 is the earliest revision: the shared prefix is the whole header,
// and records carry nothing but a size and a path.
type pfh0 struct{}

func (pfh0) Version() Version { return V0 }

func (pfh0) HeaderLen(Flags) int { return MinHeaderLen }

func (pfh0) ReadHeader(*codec.Reader, *Header) error { return nil }

func (pfh0) WriteHeader(*codec.Writer, *Header) {}

func (pfh0) ReadRecord(r *codec.Reader, _ Flags) (Record, error) {
	// No timestamps in this era, whatever the flags claim.
	return decodeTickRecord(r, 0)
}

func (pfh0) WriteRecord(w *codec.Writer, _ Flags, rec Record) error {
	return encodeTickRecord(w, 0, rec)
}

func (pfh0) Caps() Caps { return Caps{} }
