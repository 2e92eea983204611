package pack

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	t.Parallel()

	c := New(V6)
	assert.Equal(t, V6, c.Version())
	assert.Equal(t, FileTypeMod, c.FileType())
	assert.Zero(t, c.Flags())
	assert.Equal(t, 0, c.Len())
	assert.Empty(t, c.Path())
	assert.True(t, c.Timestamp().IsZero())
	assert.Equal(t, "modforge", c.Subheader().Tool)

	assert.Empty(t, New(V5).Subheader().Tool)
}

func TestContainerLookupIsCaseSensitive(t *testing.T) {
	t.Parallel()

	c := New(V5)
	require.NoError(t, c.Insert(NewEntry(ParsePath(`db\units\data`), []byte("x"))))

	_, ok := c.Lookup(ParsePath(`db\units\data`))
	assert.True(t, ok)
	_, ok = c.Lookup(ParsePath(`DB\units\data`))
	assert.False(t, ok)
}

func TestContainerInsertRejectsDuplicates(t *testing.T) {
	t.Parallel()

	c := New(V5)
	require.NoError(t, c.Insert(NewEntry(ParsePath("a.lua"), []byte("first"))))
	require.ErrorIs(t, c.Insert(NewEntry(ParsePath("a.lua"), []byte("second"))), ErrAlreadyExists)

	// The original entry is untouched; paths differing in case are free.
	assert.Equal(t, 1, c.Len())
	e, ok := c.Lookup(ParsePath("a.lua"))
	require.True(t, ok)
	data, err := e.Data()
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), data)

	require.NoError(t, c.Insert(NewEntry(ParsePath("A.lua"), []byte("upper"))))
	assert.Equal(t, 2, c.Len())
}

func TestContainerInsertRejectsReservedNames(t *testing.T) {
	t.Parallel()

	c := New(V5)
	err := c.Insert(NewEntry(ParsePath("notes.modforge-reserved"), []byte("x")))
	require.ErrorIs(t, err, ErrInvalidPath)
	err = c.Insert(NewEntry(ParsePath("settings.modforge-reserved"), []byte("x")))
	require.ErrorIs(t, err, ErrInvalidPath)
	assert.Equal(t, 0, c.Len())
}

func TestContainerInsertRejectsInvalidPaths(t *testing.T) {
	t.Parallel()

	c := New(V5)
	require.ErrorIs(t, c.Insert(NewEntry(nil, []byte("x"))), ErrInvalidPath)
	require.ErrorIs(t, c.Insert(NewEntry(Path{"a", ""}, []byte("x"))), ErrInvalidPath)
	require.ErrorIs(t, c.Insert(NewEntry(Path{"a\x00b"}, []byte("x"))), ErrInvalidPath)
}

func TestContainerRemove(t *testing.T) {
	t.Parallel()

	c := New(V5)
	require.NoError(t, c.Insert(NewEntry(ParsePath("a.lua"), []byte("x"))))

	assert.True(t, c.Remove(ParsePath("a.lua")))
	assert.Equal(t, 0, c.Len())
	assert.False(t, c.Remove(ParsePath("a.lua")))
}

func TestContainerRename(t *testing.T) {
	t.Parallel()

	c := New(V5)
	require.NoError(t, c.Insert(NewEntry(ParsePath("old.lua"), []byte("x"))))
	require.NoError(t, c.Insert(NewEntry(ParsePath("taken.lua"), []byte("y"))))

	require.NoError(t, c.Rename(ParsePath("old.lua"), ParsePath(`dir\new.lua`)))
	_, ok := c.Lookup(ParsePath("old.lua"))
	assert.False(t, ok)
	e, ok := c.Lookup(ParsePath(`dir\new.lua`))
	require.True(t, ok)
	assert.Equal(t, `dir\new.lua`, e.Path().String())

	require.ErrorIs(t, c.Rename(ParsePath("missing.lua"), ParsePath("x.lua")), ErrNotFound)
	require.ErrorIs(t, c.Rename(ParsePath(`dir\new.lua`), ParsePath("taken.lua")), ErrAlreadyExists)
	require.ErrorIs(t, c.Rename(ParsePath(`dir\new.lua`), ParsePath("notes.modforge-reserved")), ErrInvalidPath)
}

func TestContainerIterators(t *testing.T) {
	t.Parallel()

	c := New(V5)
	require.NoError(t, c.Insert(NewEntry(ParsePath(`db\units\data`), []byte("1"))))
	require.NoError(t, c.Insert(NewEntry(ParsePath(`db\buildings\data`), []byte("2"))))
	require.NoError(t, c.Insert(NewEntry(ParsePath(`scripts\init.lua`), []byte("3"))))

	var all []string
	for e := range c.Entries() {
		all = append(all, e.Path().String())
	}
	assert.Equal(t, []string{`db\units\data`, `db\buildings\data`, `scripts\init.lua`}, all)

	var dbs []string
	for e := range c.EntriesOfType(TypeDB) {
		dbs = append(dbs, e.Path().String())
	}
	assert.Equal(t, []string{`db\units\data`, `db\buildings\data`}, dbs)

	var under []string
	for e := range c.EntriesWithPrefix(ParsePath(`db\units`)) {
		under = append(under, e.Path().String())
	}
	assert.Equal(t, []string{`db\units\data`}, under)

	// Early break must not panic or leak.
	for range c.Entries() {
		break
	}
}

func TestContainerEditable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		fileType       FileType
		flags          Flags
		allowProtected bool
		want           bool
	}{
		{"mod", FileTypeMod, 0, false, true},
		{"movie", FileTypeMovie, 0, false, true},
		{"boot", FileTypeBoot, 0, false, false},
		{"boot protected", FileTypeBoot, 0, true, true},
		{"release", FileTypeRelease, 0, false, false},
		{"release protected", FileTypeRelease, 0, true, true},
		{"patch protected", FileTypePatch, 0, true, true},
		{"unknown type", FileType(12), 0, true, false},
		{"encrypted data", FileTypeMod, FlagEncryptedData, true, false},
		{"encrypted index", FileTypeMod, FlagEncryptedIndex, true, false},
		{"index timestamps ok", FileTypeMod, FlagIndexTimestamps, false, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			c := New(V5)
			c.SetFileType(tc.fileType)
			c.SetFlags(tc.flags)
			assert.Equal(t, tc.want, c.Editable(tc.allowProtected))
		})
	}
}

func TestContainerTypeAndFlagsIndependent(t *testing.T) {
	t.Parallel()

	c := New(V5)
	c.SetFlags(FlagIndexTimestamps)
	c.SetFileType(FileTypeMovie)
	assert.Equal(t, FileTypeMovie, c.FileType())
	assert.True(t, c.Flags().Has(FlagIndexTimestamps))

	c.SetFlags(FlagCompressedData)
	assert.Equal(t, FileTypeMovie, c.FileType())
	assert.False(t, c.Flags().Has(FlagIndexTimestamps))
}

func TestContainerSettingsAreLive(t *testing.T) {
	t.Parallel()

	c := New(V5)
	c.Settings().Bools["experimental"] = true
	assert.True(t, c.Settings().Bools["experimental"])
}

func TestContainerDependenciesCopied(t *testing.T) {
	t.Parallel()

	c := New(V5)
	in := []string{"base.pack"}
	c.SetDependencies(in)
	in[0] = "mutated"

	deps := c.Dependencies()
	assert.Equal(t, []string{"base.pack"}, deps)
	deps[0] = "mutated again"
	assert.Equal(t, []string{"base.pack"}, c.Dependencies())
}

func TestContainerCloseWithoutFile(t *testing.T) {
	t.Parallel()

	c := New(V5)
	require.NoError(t, c.Close())
}
