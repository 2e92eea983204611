package pack

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEntryOwnsItsPath(t *testing.T) {
	t.Parallel()

	p := ParsePath(`db\units\data`)
	e := NewEntry(p, []byte("x"))
	p[0] = "mutated"

	assert.Equal(t, `db\units\data`, e.Path().String())
	assert.True(t, e.InMemory())
	assert.Equal(t, uint32(1), e.Size())
}

func TestEntryPathReturnsCopy(t *testing.T) {
	t.Parallel()

	e := NewEntry(ParsePath("a.lua"), nil)
	got := e.Path()
	got[0] = "mutated"
	assert.Equal(t, "a.lua", e.Path().String())
}

func TestEntryDataReturnsCopy(t *testing.T) {
	t.Parallel()

	e := NewEntry(ParsePath("a.lua"), []byte("stable"))
	first, err := e.Data()
	require.NoError(t, err)
	first[0] = 'X'

	second, err := e.Data()
	require.NoError(t, err)
	assert.Equal(t, []byte("stable"), second)
}

func TestEntrySetData(t *testing.T) {
	t.Parallel()

	e := NewEntry(ParsePath("a.lua"), []byte("old"))
	e.SetData([]byte("brand new"))

	assert.Equal(t, uint32(9), e.Size())
	data, err := e.Data()
	require.NoError(t, err)
	assert.Equal(t, []byte("brand new"), data)
}

func TestEntryModTime(t *testing.T) {
	t.Parallel()

	e := NewEntry(ParsePath("a.lua"), nil)
	assert.True(t, e.ModTime().IsZero())

	e.SetModTime(time.Unix(1_650_000_000, 0))
	assert.Equal(t, int64(1_650_000_000), e.ModTime().Unix())

	e.SetModTime(time.Time{})
	assert.True(t, e.ModTime().IsZero())
}

func TestEntryTypeUsesOwnerClassifier(t *testing.T) {
	t.Parallel()

	everythingIsText := ClassifierFunc(func(Path) EntryType { return TypeText })
	c := New(V5, WithClassifier(everythingIsText))
	e := NewEntry(ParsePath(`db\units\data`), nil)
	require.NoError(t, c.Insert(e))

	assert.Equal(t, TypeText, e.Type())
	assert.Equal(t, TypeDB, NewEntry(ParsePath(`db\units\data`), nil).Type())
}

func TestEntryLoadOnMemoryEntryIsNoop(t *testing.T) {
	t.Parallel()

	e := NewEntry(ParsePath("a.lua"), []byte("x"))
	require.NoError(t, e.Load())
	assert.True(t, e.InMemory())
}
