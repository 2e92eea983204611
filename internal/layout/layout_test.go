package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modforge/pack/internal/codec"
)

func TestVersionMagic(t *testing.T) {
	t.Parallel()

	for _, v := range Versions() {
		got, ok := VersionFromMagic([]byte(v.Magic()))
		require.True(t, ok, "magic %s", v.Magic())
		assert.Equal(t, v, got)
	}

	_, ok := VersionFromMagic([]byte("PFH1"))
	assert.False(t, ok)
	assert.Equal(t, "PFH?(9)", Version(9).String())
}

func TestHeaderRoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		h       Header
		wantLen int
	}{
		{
			name:    "v0 bare",
			h:       Header{Version: V0, Bits: 3, DepCount: 1, DepSize: 10, EntryCount: 2, EntrySize: 40},
			wantLen: 24,
		},
		{
			name:    "v2 with timestamp",
			h:       Header{Version: V2, Bits: 1, Timestamp: 1_234_567_890},
			wantLen: 32,
		},
		{
			name:    "v3 with timestamp",
			h:       Header{Version: V3, Bits: uint32(FlagIndexTimestamps) | 2, Timestamp: 1_600_000_000},
			wantLen: 32,
		},
		{
			name:    "v4 plain",
			h:       Header{Version: V4, Bits: 3, Timestamp: 1_500_000_000},
			wantLen: 28,
		},
		{
			name: "v4 extended",
			h: Header{
				Version:   V4,
				Bits:      uint32(FlagExtendedHeader) | 3,
				Timestamp: 1_500_000_000,
				Sub:       Subheader{Data: []byte("exactly-twenty-bytes")},
			},
			wantLen: 48,
		},
		{
			name:    "v5 plain",
			h:       Header{Version: V5, Bits: 3, DepCount: 0, DepSize: 0, EntryCount: 1, EntrySize: 27, Timestamp: 1_700_000_000},
			wantLen: 28,
		},
		{
			name: "v6 structured",
			h: Header{
				Version:   V6,
				Bits:      3,
				Timestamp: 1_750_000_000,
				Sub:       Subheader{GameVersion: 11, Build: 40233, Tool: "modforge"},
			},
			wantLen: 48,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			buf, err := EncodeHeader(tc.h)
			require.NoError(t, err)
			require.Len(t, buf, tc.wantLen)

			got, err := ParseHeader(buf, int64(tc.wantLen)+100)
			require.NoError(t, err)

			want := tc.h
			want.Len = tc.wantLen
			assert.Equal(t, want, got)
		})
	}
}

func TestParseHeaderTooShort(t *testing.T) {
	t.Parallel()

	// Below the shared prefix the magic is not even inspected.
	_, err := ParseHeader([]byte("PFH5"), 4)
	assert.ErrorIs(t, err, ErrHeaderIncomplete)

	_, err = ParseHeader(nil, 0)
	assert.ErrorIs(t, err, ErrHeaderIncomplete)

	_, err = ParseHeader([]byte("garbage-not-a-head"), 18)
	assert.ErrorIs(t, err, ErrHeaderIncomplete)
}

func TestParseHeaderUnknownMagic(t *testing.T) {
	t.Parallel()

	buf := make([]byte, 24)
	copy(buf, "PFH1")
	_, err := ParseHeader(buf, 24)
	assert.ErrorIs(t, err, ErrUnknownVersion)

	copy(buf, "ZIP!")
	_, err = ParseHeader(buf, 24)
	assert.ErrorIs(t, err, ErrUnknownVersion)
}

func TestParseHeaderRevisionTailMissing(t *testing.T) {
	t.Parallel()

	// 24 bytes satisfy the prefix but not pfh3's timestamp tail.
	buf, err := EncodeHeader(Header{Version: V3})
	require.NoError(t, err)
	_, err = ParseHeader(buf[:24], 24)
	assert.ErrorIs(t, err, ErrHeaderIncomplete)
}

func TestParseHeaderEncryptedIndex(t *testing.T) {
	t.Parallel()

	buf, err := EncodeHeader(Header{Version: V5, Bits: uint32(FlagEncryptedIndex) | 3})
	require.NoError(t, err)
	_, err = ParseHeader(buf, int64(len(buf)))
	assert.ErrorIs(t, err, ErrEncryptedIndex)
}

func TestParseHeaderBadSubheaderLen(t *testing.T) {
	t.Parallel()

	buf, err := EncodeHeader(Header{Version: V6, Sub: Subheader{Tool: "modforge"}})
	require.NoError(t, err)
	// Corrupt the subheader length word at offset 28.
	buf[28] = 20
	_, err = ParseHeader(buf, int64(len(buf)))
	assert.ErrorIs(t, err, ErrHeaderIncomplete)
}

func TestTickConversion(t *testing.T) {
	t.Parallel()

	// The unix epoch sits 11,644,473,600s past the tick epoch.
	assert.Equal(t, int64(0), ticksToUnix(epochOffsetSeconds*ticksPerSecond))

	for _, unix := range []int64{0, 1, 1_234_567_890, 2_000_000_000} {
		assert.Equal(t, unix, ticksToUnix(unixToTicks(unix)))
	}

	// Sub-second tick precision truncates toward the earlier second.
	assert.Equal(t, int64(1), ticksToUnix(unixToTicks(1)+9_999_999))
}

func TestExtendedHeaderPreserved(t *testing.T) {
	t.Parallel()

	block := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20}
	h := Header{Version: V5, Bits: uint32(FlagExtendedHeader) | 3, Sub: Subheader{Data: block}}

	buf, err := EncodeHeader(h)
	require.NoError(t, err)
	require.Len(t, buf, 48)

	got, err := ParseHeader(buf, 48)
	require.NoError(t, err)
	assert.Equal(t, block, got.Sub.Data)
}

func TestExtendedHeaderPadsShortBlock(t *testing.T) {
	t.Parallel()

	h := Header{Version: V4, Bits: uint32(FlagExtendedHeader), Sub: Subheader{Data: []byte("abc")}}
	buf, err := EncodeHeader(h)
	require.NoError(t, err)
	require.Len(t, buf, 48)

	got, err := ParseHeader(buf, 48)
	require.NoError(t, err)
	want := make([]byte, extendedHeaderLen)
	copy(want, "abc")
	assert.Equal(t, want, got.Sub.Data)
}

func TestToolTagTruncated(t *testing.T) {
	t.Parallel()

	h := Header{Version: V6, Sub: Subheader{Tool: "much-too-long-tag"}}
	buf, err := EncodeHeader(h)
	require.NoError(t, err)

	got, err := ParseHeader(buf, int64(len(buf)))
	require.NoError(t, err)
	assert.Equal(t, "much-too", got.Sub.Tool)
}

func TestRecordRoundTrip(t *testing.T) {
	t.Parallel()

	rec := Record{Size: 1234, Timestamp: 1_650_000_000, Compressed: true, Path: `db\units_tables\data`}

	tests := []struct {
		name     string
		version  Version
		flags    Flags
		wantTS   bool
		wantComp bool
	}{
		{"v0 drops everything", V0, FlagIndexTimestamps, false, false},
		{"v2 timestamped", V2, FlagIndexTimestamps, true, false},
		{"v2 unflagged", V2, 0, false, false},
		{"v3 timestamped", V3, FlagIndexTimestamps, true, false},
		{"v4 timestamped no marker", V4, FlagIndexTimestamps, true, false},
		{"v5 full", V5, FlagIndexTimestamps, true, true},
		{"v5 marker only", V5, 0, false, true},
		{"v6 full", V6, FlagIndexTimestamps, true, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cdc, ok := ForVersion(tc.version)
			require.True(t, ok)

			var w codec.Writer
			require.NoError(t, cdc.WriteRecord(&w, tc.flags, rec))

			got, err := cdc.ReadRecord(codec.NewReader(w.Bytes()), tc.flags)
			require.NoError(t, err)

			want := rec
			if !tc.wantTS {
				want.Timestamp = 0
			}
			if !tc.wantComp {
				want.Compressed = false
			}
			assert.Equal(t, want, got)
		})
	}
}

func TestRecordWidths(t *testing.T) {
	t.Parallel()

	rec := Record{Size: 10, Timestamp: 1_650_000_000, Path: "a"}

	tests := []struct {
		version Version
		flags   Flags
		want    int // size + timestamp + marker + path + NUL
	}{
		{V0, 0, 4 + 2},
		{V2, FlagIndexTimestamps, 4 + 8 + 2},
		{V4, FlagIndexTimestamps, 4 + 4 + 2},
		{V5, 0, 4 + 1 + 2},
		{V5, FlagIndexTimestamps, 4 + 4 + 1 + 2},
		{V6, FlagIndexTimestamps, 4 + 4 + 1 + 2},
	}

	for _, tc := range tests {
		cdc, ok := ForVersion(tc.version)
		require.True(t, ok)

		var w codec.Writer
		require.NoError(t, cdc.WriteRecord(&w, tc.flags, rec))
		assert.Equal(t, tc.want, w.Len(), "%s flags %#x", tc.version, tc.flags)
	}
}

func TestDependenciesRoundTrip(t *testing.T) {
	t.Parallel()

	deps := []string{"boot.pack", "data.pack", "local_en.pack"}
	buf, err := EncodeDependencies(deps)
	require.NoError(t, err)

	got, err := DecodeDependencies(buf, uint32(len(deps)))
	require.NoError(t, err)
	assert.Equal(t, deps, got)

	empty, err := EncodeDependencies(nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestDecodeDependenciesTruncated(t *testing.T) {
	t.Parallel()

	buf, err := EncodeDependencies([]string{"boot.pack"})
	require.NoError(t, err)

	// Count claims more names than the bytes hold.
	_, err = DecodeDependencies(buf, 2)
	assert.ErrorIs(t, err, codec.ErrOutOfBounds)
}

func TestDecodeRecordsTruncated(t *testing.T) {
	t.Parallel()

	cdc, _ := ForVersion(V5)
	recs := []Record{{Size: 10, Path: "a"}, {Size: 20, Path: "b"}}
	buf, err := EncodeRecords(cdc, 0, recs)
	require.NoError(t, err)

	_, err = DecodeRecords(cdc, 0, buf[:len(buf)-3], 2)
	assert.ErrorIs(t, err, codec.ErrOutOfBounds)
	assert.ErrorContains(t, err, "entry record 1")
}

func TestRecordsRoundTripMany(t *testing.T) {
	t.Parallel()

	cdc, _ := ForVersion(V6)
	recs := []Record{
		{Size: 0, Path: "empty"},
		{Size: 7, Timestamp: 1_600_000_001, Compressed: true, Path: `text\readme.txt`},
		{Size: 1 << 20, Timestamp: 1_600_000_002, Path: `db\land_units_tables\data__`},
	}

	buf, err := EncodeRecords(cdc, FlagIndexTimestamps, recs)
	require.NoError(t, err)

	got, err := DecodeRecords(cdc, FlagIndexTimestamps, buf, uint32(len(recs)))
	require.NoError(t, err)
	assert.Equal(t, recs, got)
}

func TestCaps(t *testing.T) {
	t.Parallel()

	for _, v := range []Version{V0} {
		cdc, _ := ForVersion(v)
		assert.Equal(t, Caps{}, cdc.Caps())
	}
	for _, v := range []Version{V2, V3} {
		cdc, _ := ForVersion(v)
		assert.Equal(t, Caps{IndexTimestamps: true}, cdc.Caps(), "%s", v)
	}
	cdc, _ := ForVersion(V4)
	assert.Equal(t, Caps{IndexTimestamps: true, Encryption: true, Subheader: true}, cdc.Caps())
	for _, v := range []Version{V5, V6} {
		cdc, _ := ForVersion(v)
		assert.Equal(t, Caps{IndexTimestamps: true, Compression: true, Encryption: true, Subheader: true}, cdc.Caps(), "%s", v)
	}
}

func TestHeaderFlagsAndTypeBits(t *testing.T) {
	t.Parallel()

	h := Header{Bits: uint32(FlagEncryptedData|FlagIndexTimestamps) | 4}
	assert.Equal(t, FlagEncryptedData|FlagIndexTimestamps, h.Flags())
	assert.Equal(t, uint32(4), h.TypeBits())
	assert.True(t, h.Flags().Has(FlagEncryptedData))
	assert.False(t, h.Flags().Has(FlagCompressedData))
}
