// Package testutil hand-assembles container file images byte by byte, so
// tests exercise the real readers against bytes built independently of
// the production encoders.
package testutil

import (
	"encoding/binary"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

// Windows FILETIME epoch offset, duplicated here on purpose so fixture
// bytes are not derived from the code under test.
const (
	ticksPerSecond     = 10_000_000
	epochOffsetSeconds = 11_644_473_600
)

// Rec describes one entry of a fixture image. Data is the stored form and
// is written verbatim; compress or mask it first when the fixture needs
// that.
type Rec struct {
	Path       string
	Data       []byte
	Timestamp  int64 // unix seconds; written only when the image flags say so
	Compressed bool  // marker byte, PFH5 and PFH6 only
}

// Image describes a whole container file. Build assembles it.
type Image struct {
	Magic     string
	Bits      uint32
	Timestamp int64 // unix seconds; ignored for PFH0
	Deps      []string
	Recs      []Rec

	// Ext is the extension block for PFH4 and PFH5 images whose Bits
	// carry the extended-header flag. Padded or clipped to 20 bytes.
	Ext []byte

	// PFH6 subheader fields.
	GameVersion uint32
	BuildNum    uint32
	Tool        string
}

// Build assembles the image into container file bytes.
func (im Image) Build(tb testing.TB) []byte {
	tb.Helper()

	depIndex := buildDeps(im.Deps)
	entryIndex := im.buildRecs(tb)

	var out []byte
	out = append(out, im.Magic...)
	out = binary.LittleEndian.AppendUint32(out, im.Bits)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(im.Deps)))
	out = binary.LittleEndian.AppendUint32(out, uint32(len(depIndex)))
	out = binary.LittleEndian.AppendUint32(out, uint32(len(im.Recs)))
	out = binary.LittleEndian.AppendUint32(out, uint32(len(entryIndex)))
	out = im.appendHeaderTail(tb, out)
	out = append(out, depIndex...)
	out = append(out, entryIndex...)
	for _, rec := range im.Recs {
		out = append(out, rec.Data...)
	}
	return out
}

func (im Image) appendHeaderTail(tb testing.TB, out []byte) []byte {
	tb.Helper()
	switch im.Magic {
	case "PFH0":
		return out
	case "PFH2", "PFH3":
		return binary.LittleEndian.AppendUint64(out, uint64(toTicks(im.Timestamp)))
	case "PFH4", "PFH5":
		out = binary.LittleEndian.AppendUint32(out, uint32(im.Timestamp))
		if im.Bits&0x100 != 0 {
			out = append(out, pad(im.Ext, 20)...)
		}
		return out
	case "PFH6":
		out = binary.LittleEndian.AppendUint32(out, uint32(im.Timestamp))
		out = binary.LittleEndian.AppendUint32(out, 16)
		out = binary.LittleEndian.AppendUint32(out, im.GameVersion)
		out = binary.LittleEndian.AppendUint32(out, im.BuildNum)
		return append(out, pad([]byte(im.Tool), 8)...)
	default:
		tb.Fatalf("unknown fixture magic %q", im.Magic)
		return nil
	}
}

func (im Image) buildRecs(tb testing.TB) []byte {
	tb.Helper()
	timestamps := im.Bits&0x40 != 0
	marker := im.Magic == "PFH5" || im.Magic == "PFH6"

	var out []byte
	for _, rec := range im.Recs {
		out = binary.LittleEndian.AppendUint32(out, uint32(len(rec.Data)))
		if timestamps {
			switch im.Magic {
			case "PFH2", "PFH3":
				out = binary.LittleEndian.AppendUint64(out, uint64(toTicks(rec.Timestamp)))
			default:
				out = binary.LittleEndian.AppendUint32(out, uint32(rec.Timestamp))
			}
		}
		if marker {
			if rec.Compressed {
				out = append(out, 1)
			} else {
				out = append(out, 0)
			}
		}
		out = append(out, rec.Path...)
		out = append(out, 0)
	}
	return out
}

func buildDeps(deps []string) []byte {
	var out []byte
	for _, d := range deps {
		out = append(out, d...)
		out = append(out, 0)
	}
	return out
}

func toTicks(unix int64) int64 {
	return (unix + epochOffsetSeconds) * ticksPerSecond
}

func pad(b []byte, n int) []byte {
	out := make([]byte, n)
	copy(out, b)
	return out
}

// Mask applies the per-revision keystream cipher, reimplemented here so
// encrypted fixtures do not lean on the production cipher.
func Mask(data []byte, key uint8) []byte {
	state := uint32(len(data))*0x9E3779B1 ^ uint32(key)*0x85EBCA77
	state |= 1
	out := make([]byte, len(data))
	for i, b := range data {
		state ^= state << 13
		state ^= state >> 17
		state ^= state << 5
		out[i] = b ^ byte(state)
	}
	return out
}

// WriteFile writes a fixture image to fsys, failing the test on error.
func WriteFile(tb testing.TB, fsys afero.Fs, name string, data []byte) {
	tb.Helper()
	require.NoError(tb, afero.WriteFile(fsys, name, data, 0o644))
}
