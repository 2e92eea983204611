package pack

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsRoundTrip(t *testing.T) {
	t.Parallel()

	s := NewSettings()
	s.Text["description"] = "line one\nline two"
	s.Strings["author"] = "someone"
	s.Bools["beta"] = true
	s.Numbers["revision"] = -4

	data, err := s.encode()
	require.NoError(t, err)

	got := decodeSettings(data)
	assert.Equal(t, s, got)
}

func TestDecodeSettingsBadJSON(t *testing.T) {
	t.Parallel()

	for _, data := range [][]byte{
		nil,
		[]byte("{truncated"),
		[]byte(`"just a string"`),
	} {
		s := decodeSettings(data)
		assert.NotNil(t, s.Text)
		assert.NotNil(t, s.Strings)
		assert.NotNil(t, s.Bools)
		assert.NotNil(t, s.Numbers)
		assert.Empty(t, s.Strings)
	}
}

func TestDecodeSettingsNullMaps(t *testing.T) {
	t.Parallel()

	s := decodeSettings([]byte(`{"text":null,"strings":{"k":"v"}}`))
	assert.NotNil(t, s.Text)
	assert.Equal(t, "v", s.Strings["k"])
	assert.NotNil(t, s.Bools)
	assert.NotNil(t, s.Numbers)
}

func TestSettingsEncodeDeterministic(t *testing.T) {
	t.Parallel()

	s := NewSettings()
	s.Strings["b"] = "2"
	s.Strings["a"] = "1"
	s.Numbers["z"] = 26
	s.Numbers["m"] = 13

	first, err := s.encode()
	require.NoError(t, err)
	second, err := s.encode()
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSettingsClone(t *testing.T) {
	t.Parallel()

	s := NewSettings()
	s.Bools["original"] = true

	c := s.clone()
	c.Bools["original"] = false
	c.Bools["added"] = true

	assert.True(t, s.Bools["original"])
	assert.NotContains(t, s.Bools, "added")
}

func TestIsReservedPath(t *testing.T) {
	t.Parallel()

	assert.True(t, isReservedPath(ParsePath("notes.modforge-reserved")))
	assert.True(t, isReservedPath(ParsePath("settings.modforge-reserved")))
	assert.False(t, isReservedPath(ParsePath("notes.txt")))
	assert.False(t, isReservedPath(ParsePath(`dir\notes.modforge-reserved`)), "reserved names are root-level only")
}
