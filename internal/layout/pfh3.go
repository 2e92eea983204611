package layout

import "github.com/modforge/pack/internal/codec"

// pfh3 kept the tick-era geometry unchanged for the next generation of
// titles; only the magic moved.
type pfh3 struct{}

func (pfh3) Version() Version { return V3 }

func (pfh3) HeaderLen(Flags) int { return MinHeaderLen + 8 }

func (pfh3) ReadHeader(r *codec.Reader, h *Header) error {
	ticks, err := r.I64()
	if err != nil {
		return err
	}
	h.Timestamp = ticksToUnix(ticks)
	return nil
}

func (pfh3) WriteHeader(w *codec.Writer, h *Header) {
	w.I64(unixToTicks(h.Timestamp))
}

func (pfh3) ReadRecord(r *codec.Reader, flags Flags) (Record, error) {
	return decodeTickRecord(r, flags)
}

func (pfh3) WriteRecord(w *codec.Writer, flags Flags, rec Record) error {
	return encodeTickRecord(w, flags, rec)
}

func (pfh3) Caps() Caps { return Caps{IndexTimestamps: true} }
