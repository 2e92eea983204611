package layout

import "github.com/modforge/pack/internal/codec"

// pfh2 introduced timestamps, stored as 100ns ticks: a 64-bit container
// timestamp behind the prefix and optional per-entry timestamps in the
// index.
type pfh2 struct{}

func (pfh2) Version() Version { return V2 }

func (pfh2) HeaderLen(Flags) int { return MinHeaderLen + 8 }

func (pfh2) ReadHeader(r *codec.Reader, h *Header) error {
	ticks, err := r.I64()
	if err != nil {
		return err
	}
	h.Timestamp = ticksToUnix(ticks)
	return nil
}

func (pfh2) WriteHeader(w *codec.Writer, h *Header) {
	w.I64(unixToTicks(h.Timestamp))
}

func (pfh2) ReadRecord(r *codec.Reader, flags Flags) (Record, error) {
	return decodeTickRecord(r, flags)
}

func (pfh2) WriteRecord(w *codec.Writer, flags Flags, rec Record) error {
	return encodeTickRecord(w, flags, rec)
}

func (pfh2) Caps() Caps { return Caps{IndexTimestamps: true} }
