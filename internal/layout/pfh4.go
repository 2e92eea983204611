package layout

import "github.com/modforge/pack/internal/codec"

// extendedHeaderLen is the opaque block some epoch-era containers attach
// behind FlagExtendedHeader. Its contents are vendor bookkeeping and are
// preserved verbatim.
const extendedHeaderLen = 20

// pfh4 moved timestamps to 32-bit epoch seconds, cut the container
// timestamp to four bytes, and introduced the optional extended header.
type pfh4 struct{}

func (pfh4) Version() Version { return V4 }

func (pfh4) HeaderLen(flags Flags) int { return epochHeaderLen(flags) }

func (pfh4) ReadHeader(r *codec.Reader, h *Header) error {
	return readEpochHeader(r, h)
}

func (pfh4) WriteHeader(w *codec.Writer, h *Header) {
	writeEpochHeader(w, h)
}

func (pfh4) ReadRecord(r *codec.Reader, flags Flags) (Record, error) {
	return decodeEpochRecord(r, flags, false)
}

func (pfh4) WriteRecord(w *codec.Writer, flags Flags, rec Record) error {
	return encodeEpochRecord(w, flags, false, rec)
}

func (pfh4) Caps() Caps {
	return Caps{IndexTimestamps: true, Encryption: true, Subheader: true}
}

// epochHeaderLen is HeaderLen for the revisions with a 32-bit timestamp
// and the flag-gated extension.
func epochHeaderLen(flags Flags) int {
	n := MinHeaderLen + 4
	if flags.Has(FlagExtendedHeader) {
		n += extendedHeaderLen
	}
	return n
}

// readEpochHeader decodes the 32-bit timestamp and, when flagged, the
// opaque extension block.
func readEpochHeader(r *codec.Reader, h *Header) error {
	epoch, err := r.U32()
	if err != nil {
		return err
	}
	h.Timestamp = int64(epoch)
	if h.Flags().Has(FlagExtendedHeader) {
		b, err := r.Bytes(extendedHeaderLen)
		if err != nil {
			return err
		}
		h.Sub.Data = append([]byte(nil), b...)
	}
	return nil
}

// writeEpochHeader mirrors readEpochHeader. A missing or short extension
// block is zero-padded to its fixed length.
func writeEpochHeader(w *codec.Writer, h *Header) {
	w.U32(uint32(h.Timestamp))
	if h.Flags().Has(FlagExtendedHeader) {
		block := make([]byte, extendedHeaderLen)
		copy(block, h.Sub.Data)
		w.Raw(block)
	}
}
