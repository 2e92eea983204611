// Package codec implements the little-endian primitive layer shared by every
// container revision: fixed-width integers, floats, booleans, and the three
// string encodings that appear in container indexes (null-terminated UTF-8,
// length-prefixed UTF-16, and packed RGB colors rendered as hex strings).
//
// Reader walks a byte buffer with an explicit cursor and fails with
// ErrOutOfBounds instead of panicking when a value would run past the end.
// Writer appends to a growing buffer and never fails on numeric types; only
// string encodings can reject their input.
package codec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

var (
	// ErrOutOfBounds reports a read past the end of the buffer.
	ErrOutOfBounds = errors.New("pack: decode past end of buffer")
	// ErrInvalidEncoding reports string bytes that do not form valid UTF-8,
	// UTF-16, or hex color text.
	ErrInvalidEncoding = errors.New("pack: invalid string encoding")
)

// Reader decodes primitives from buf at a moving cursor. All multi-byte
// values are little-endian. Reader never copies buf; slices returned by
// Bytes alias it.
type Reader struct {
	buf []byte
	off int
}

// NewReader returns a Reader positioned at the start of buf.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Offset reports the current cursor position.
func (r *Reader) Offset() int { return r.off }

// Remaining reports the number of bytes left to decode.
func (r *Reader) Remaining() int { return len(r.buf) - r.off }

// take advances the cursor by n and returns the bytes it moved over.
func (r *Reader) take(n int) ([]byte, error) {
	if n < 0 || r.Remaining() < n {
		return nil, fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrOutOfBounds, n, r.off, r.Remaining())
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

// Bytes returns the next n bytes without copying them.
func (r *Reader) Bytes(n int) ([]byte, error) {
	return r.take(n)
}

// Skip advances the cursor by n bytes.
func (r *Reader) Skip(n int) error {
	_, err := r.take(n)
	return err
}

// U8 decodes an unsigned 8-bit integer.
func (r *Reader) U8() (uint8, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// U16 decodes an unsigned 16-bit integer.
func (r *Reader) U16() (uint16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// U32 decodes an unsigned 32-bit integer.
func (r *Reader) U32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// U64 decodes an unsigned 64-bit integer.
func (r *Reader) U64() (uint64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// I8 decodes a signed 8-bit integer.
func (r *Reader) I8() (int8, error) {
	v, err := r.U8()
	return int8(v), err
}

// I16 decodes a signed 16-bit integer.
func (r *Reader) I16() (int16, error) {
	v, err := r.U16()
	return int16(v), err
}

// I32 decodes a signed 32-bit integer.
func (r *Reader) I32() (int32, error) {
	v, err := r.U32()
	return int32(v), err
}

// I64 decodes a signed 64-bit integer.
func (r *Reader) I64() (int64, error) {
	v, err := r.U64()
	return int64(v), err
}

// F32 decodes a 32-bit IEEE 754 float.
func (r *Reader) F32() (float32, error) {
	v, err := r.U32()
	return math.Float32frombits(v), err
}

// F64 decodes a 64-bit IEEE 754 float.
func (r *Reader) F64() (float64, error) {
	v, err := r.U64()
	return math.Float64frombits(v), err
}

// Bool decodes a single byte as a boolean. Any nonzero value is true; the
// format's own writers only ever emit 0 or 1.
func (r *Reader) Bool() (bool, error) {
	v, err := r.U8()
	return v != 0, err
}

// StringZ decodes a null-terminated UTF-8 string and consumes the
// terminator. A missing terminator reads past the buffer and fails with
// ErrOutOfBounds; malformed UTF-8 fails with ErrInvalidEncoding.
func (r *Reader) StringZ() (string, error) {
	rest := r.buf[r.off:]
	end := bytes.IndexByte(rest, 0)
	if end < 0 {
		return "", fmt.Errorf("%w: unterminated string at offset %d", ErrOutOfBounds, r.off)
	}
	b := rest[:end]
	if !utf8.Valid(b) {
		return "", fmt.Errorf("%w: malformed utf-8 at offset %d", ErrInvalidEncoding, r.off)
	}
	r.off += end + 1
	return string(b), nil
}

// StringU16 decodes a UTF-16LE string prefixed by its length in code units.
// Unpaired surrogates fail with ErrInvalidEncoding.
func (r *Reader) StringU16() (string, error) {
	n, err := r.U16()
	if err != nil {
		return "", err
	}
	start := r.off
	b, err := r.take(int(n) * 2)
	if err != nil {
		return "", err
	}
	units := make([]uint16, n)
	for i := range units {
		units[i] = binary.LittleEndian.Uint16(b[i*2:])
	}
	if !validUTF16(units) {
		return "", fmt.Errorf("%w: unpaired surrogate at offset %d", ErrInvalidEncoding, start)
	}
	return string(utf16.Decode(units)), nil
}

// ColorRGB decodes a packed 32-bit color and renders it as a six-digit
// uppercase hex string. The high byte is padding and ignored.
func (r *Reader) ColorRGB() (string, error) {
	v, err := r.U32()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06X", v&0xFFFFFF), nil
}

// ColorRGB24 decodes the compact three-byte color form: the packed value
// without its padding byte.
func (r *Reader) ColorRGB24() (string, error) {
	b, err := r.take(3)
	if err != nil {
		return "", err
	}
	v := uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16
	return fmt.Sprintf("%06X", v), nil
}

// validUTF16 reports whether every surrogate in units is part of a
// high/low pair in the right order.
func validUTF16(units []uint16) bool {
	for i := 0; i < len(units); i++ {
		switch u := units[i]; {
		case u >= 0xD800 && u <= 0xDBFF:
			if i+1 >= len(units) || units[i+1] < 0xDC00 || units[i+1] > 0xDFFF {
				return false
			}
			i++
		case u >= 0xDC00 && u <= 0xDFFF:
			return false
		}
	}
	return true
}

// Writer encodes primitives into a growing buffer. The zero value is ready
// to use.
type Writer struct {
	buf []byte
}

// Bytes returns the encoded buffer. The slice is owned by the Writer until
// the caller stops appending.
func (w *Writer) Bytes() []byte { return w.buf }

// Len reports the number of bytes written so far.
func (w *Writer) Len() int { return len(w.buf) }

// Raw appends b verbatim.
func (w *Writer) Raw(b []byte) {
	w.buf = append(w.buf, b...)
}

// U8 encodes an unsigned 8-bit integer.
func (w *Writer) U8(v uint8) {
	w.buf = append(w.buf, v)
}

// U16 encodes an unsigned 16-bit integer.
func (w *Writer) U16(v uint16) {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
}

// U32 encodes an unsigned 32-bit integer.
func (w *Writer) U32(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

// U64 encodes an unsigned 64-bit integer.
func (w *Writer) U64(v uint64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
}

// I8 encodes a signed 8-bit integer.
func (w *Writer) I8(v int8) { w.U8(uint8(v)) }

// I16 encodes a signed 16-bit integer.
func (w *Writer) I16(v int16) { w.U16(uint16(v)) }

// I32 encodes a signed 32-bit integer.
func (w *Writer) I32(v int32) { w.U32(uint32(v)) }

// I64 encodes a signed 64-bit integer.
func (w *Writer) I64(v int64) { w.U64(uint64(v)) }

// F32 encodes a 32-bit IEEE 754 float.
func (w *Writer) F32(v float32) { w.U32(math.Float32bits(v)) }

// F64 encodes a 64-bit IEEE 754 float.
func (w *Writer) F64(v float64) { w.U64(math.Float64bits(v)) }

// Bool encodes a boolean as a single 0 or 1 byte.
func (w *Writer) Bool(v bool) {
	if v {
		w.U8(1)
	} else {
		w.U8(0)
	}
}

// StringZ encodes s as null-terminated UTF-8. Strings holding malformed
// UTF-8 or an embedded NUL cannot be represented and fail with
// ErrInvalidEncoding.
func (w *Writer) StringZ(s string) error {
	if !utf8.ValidString(s) {
		return fmt.Errorf("%w: malformed utf-8 in %q", ErrInvalidEncoding, s)
	}
	if strings.IndexByte(s, 0) >= 0 {
		return fmt.Errorf("%w: embedded NUL in %q", ErrInvalidEncoding, s)
	}
	w.buf = append(w.buf, s...)
	w.buf = append(w.buf, 0)
	return nil
}

// StringU16 encodes s as UTF-16LE prefixed by its length in code units.
func (w *Writer) StringU16(s string) error {
	if !utf8.ValidString(s) {
		return fmt.Errorf("%w: malformed utf-8 in %q", ErrInvalidEncoding, s)
	}
	units := utf16.Encode([]rune(s))
	if len(units) > math.MaxUint16 {
		return fmt.Errorf("%w: string of %d code units exceeds 16-bit length prefix", ErrInvalidEncoding, len(units))
	}
	w.U16(uint16(len(units)))
	for _, u := range units {
		w.U16(u)
	}
	return nil
}

// ColorRGB encodes a six-digit hex color string as a packed 32-bit value.
func (w *Writer) ColorRGB(s string) error {
	v, err := parseColor(s)
	if err != nil {
		return err
	}
	w.U32(v)
	return nil
}

// ColorRGB24 encodes a six-digit hex color string in the compact
// three-byte form.
func (w *Writer) ColorRGB24(s string) error {
	v, err := parseColor(s)
	if err != nil {
		return err
	}
	w.U8(uint8(v))
	w.U8(uint8(v >> 8))
	w.U8(uint8(v >> 16))
	return nil
}

func parseColor(s string) (uint32, error) {
	if len(s) != 6 {
		return 0, fmt.Errorf("%w: color %q is not six hex digits", ErrInvalidEncoding, s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: color %q is not six hex digits", ErrInvalidEncoding, s)
	}
	return uint32(v), nil
}
