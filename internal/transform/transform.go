// Package transform converts entry data between its raw form and the form
// stored inside a container: an optional compression envelope, optionally
// masked by the per-revision cipher.
//
// A compressed entry is stored as a 4-byte little-endian uncompressed size
// followed by the compressed stream. Three stream formats appear in the
// wild and are told apart by their leading magic: zstd frames, LZ4 frames,
// and headerless LZMA (whose 13-byte standalone header is split, the first
// five bytes stored and the size field reconstructed from the envelope).
package transform

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz/lzma"
)

var (
	// ErrDecompression reports a compressed entry whose envelope or stream
	// could not be decoded.
	ErrDecompression = errors.New("pack: entry decompression failed")
	// ErrSizeOverflow reports data too large for the 32-bit sizes the
	// container format records.
	ErrSizeOverflow = errors.New("pack: size exceeds 32-bit container limit")
)

// Scheme identifies the compression stream format used inside the stored
// envelope.
type Scheme uint8

const (
	// SchemeNone stores entry data verbatim.
	SchemeNone Scheme = iota
	// SchemeLzma stores a headerless LZMA stream. The oldest scheme, and
	// the only one legacy tooling reads.
	SchemeLzma
	// SchemeLz4 stores an LZ4 frame.
	SchemeLz4
	// SchemeZstd stores a zstd frame. The default for current revisions.
	SchemeZstd
)

func (s Scheme) String() string {
	switch s {
	case SchemeNone:
		return "none"
	case SchemeLzma:
		return "lzma"
	case SchemeLz4:
		return "lz4"
	case SchemeZstd:
		return "zstd"
	default:
		return fmt.Sprintf("scheme(%d)", uint8(s))
	}
}

// minCompressedLen is the smallest viable stored form: the 4-byte size
// prefix plus a 5-byte LZMA property block.
const minCompressedLen = 9

// lzmaHeaderLen is the length of a standalone LZMA header: one properties
// byte, a 4-byte dictionary size, and an 8-byte uncompressed size.
const lzmaHeaderLen = 13

var (
	zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}
	lz4Magic  = []byte{0x04, 0x22, 0x4D, 0x18}
)

// Decompress decodes the stored form of a compressed entry back to its raw
// bytes. The scheme is sniffed from the stream's leading magic; anything
// that is neither zstd nor LZ4 is treated as headerless LZMA.
func Decompress(data []byte) ([]byte, error) {
	if len(data) < minCompressedLen {
		return nil, fmt.Errorf("%w: block of %d bytes is below the %d-byte minimum", ErrDecompression, len(data), minCompressedLen)
	}
	size := int(binary.LittleEndian.Uint32(data))
	payload := data[4:]

	var (
		out []byte
		err error
	)
	switch {
	case bytes.HasPrefix(payload, zstdMagic):
		out, err = decodeZstd(payload, size)
	case bytes.HasPrefix(payload, lz4Magic):
		out, err = decodeLz4(payload, size)
	default:
		out, err = decodeLzma(payload, size)
	}
	if err != nil {
		return nil, err
	}
	if len(out) != size {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrDecompression, size, len(out))
	}
	return out, nil
}

// Compress encodes raw into the stored form for the given scheme.
func Compress(raw []byte, s Scheme) ([]byte, error) {
	if len(raw) > math.MaxUint32 {
		return nil, fmt.Errorf("%w: %d bytes", ErrSizeOverflow, len(raw))
	}

	switch s {
	case SchemeZstd:
		return encodeZstd(raw)
	case SchemeLz4:
		return encodeLz4(raw)
	case SchemeLzma:
		return encodeLzma(raw)
	default:
		return nil, fmt.Errorf("pack: cannot compress with scheme %s", s)
	}
}

// sizePrefix returns a buffer seeded with the envelope's 4-byte size field.
func sizePrefix(rawLen int) []byte {
	buf := make([]byte, 4, rawLen/2+16)
	binary.LittleEndian.PutUint32(buf, uint32(rawLen))
	return buf
}

var zstdDecoders = sync.Pool{
	New: func() any {
		dec, err := zstd.NewReader(nil,
			zstd.WithDecoderConcurrency(1),
			zstd.WithDecoderLowmem(true),
			zstd.WithDecoderMaxMemory(math.MaxUint32))
		if err != nil {
			return nil
		}
		return dec
	},
}

func decodeZstd(payload []byte, size int) ([]byte, error) {
	dec, ok := zstdDecoders.Get().(*zstd.Decoder)
	if !ok {
		return nil, fmt.Errorf("%w: zstd decoder unavailable", ErrDecompression)
	}
	defer zstdDecoders.Put(dec)

	out, err := dec.DecodeAll(payload, make([]byte, 0, size))
	if err != nil {
		return nil, fmt.Errorf("%w: zstd: %v", ErrDecompression, err)
	}
	return out, nil
}

var zstdEncoders = sync.Pool{
	New: func() any {
		enc, err := zstd.NewWriter(io.Discard,
			zstd.WithEncoderConcurrency(1),
			zstd.WithLowerEncoderMem(true))
		if err != nil {
			return nil
		}
		return enc
	},
}

func encodeZstd(raw []byte) ([]byte, error) {
	enc, ok := zstdEncoders.Get().(*zstd.Encoder)
	if !ok {
		return nil, errors.New("pack: zstd encoder unavailable")
	}
	defer zstdEncoders.Put(enc)

	return enc.EncodeAll(raw, sizePrefix(len(raw))), nil
}

func decodeLz4(payload []byte, size int) ([]byte, error) {
	out := make([]byte, size)
	if _, err := io.ReadFull(lz4.NewReader(bytes.NewReader(payload)), out); err != nil {
		return nil, fmt.Errorf("%w: lz4: %v", ErrDecompression, err)
	}
	return out, nil
}

func encodeLz4(raw []byte) ([]byte, error) {
	buf := bytes.NewBuffer(sizePrefix(len(raw)))
	zw := lz4.NewWriter(buf)
	if _, err := zw.Write(raw); err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeLzma(payload []byte, size int) ([]byte, error) {
	if len(payload) < 5 {
		return nil, fmt.Errorf("%w: lzma properties truncated", ErrDecompression)
	}
	// Rebuild the standalone header the stored form strips: the five
	// stored property bytes plus the size the envelope declares.
	hdr := make([]byte, 0, lzmaHeaderLen+len(payload)-5)
	hdr = append(hdr, payload[:5]...)
	hdr = binary.LittleEndian.AppendUint64(hdr, uint64(size))
	hdr = append(hdr, payload[5:]...)

	zr, err := lzma.NewReader(bytes.NewReader(hdr))
	if err != nil {
		return nil, fmt.Errorf("%w: lzma: %v", ErrDecompression, err)
	}
	out := make([]byte, size)
	if _, err := io.ReadFull(zr, out); err != nil {
		return nil, fmt.Errorf("%w: lzma: %v", ErrDecompression, err)
	}
	return out, nil
}

func encodeLzma(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	cfg := lzma.WriterConfig{
		SizeInHeader: true,
		Size:         int64(len(raw)),
	}
	zw, err := cfg.NewWriter(&buf)
	if err != nil {
		return nil, fmt.Errorf("lzma compress: %w", err)
	}
	if _, err := zw.Write(raw); err != nil {
		return nil, fmt.Errorf("lzma compress: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("lzma compress: %w", err)
	}

	// Drop the 8-byte size field from the standalone header; the envelope
	// carries the size instead.
	stream := buf.Bytes()
	out := sizePrefix(len(raw))
	out = append(out, stream[:5]...)
	out = append(out, stream[lzmaHeaderLen:]...)
	return out, nil
}
