package pack

import (
	"encoding/json"
	"fmt"
)

// Reserved single-segment entry names the engine claims for its own
// persistence. They are lifted out of the entry list when opening and
// written back transparently when saving.
const (
	reservedNotesName    = "notes.modforge-reserved"
	reservedSettingsName = "settings.modforge-reserved"
)

// isReservedPath reports whether p names a reserved entry.
func isReservedPath(p Path) bool {
	if len(p) != 1 {
		return false
	}
	return p[0] == reservedNotesName || p[0] == reservedSettingsName
}

// Settings are per-container preferences persisted inside the container
// itself, so they travel with the file. Four typed key spaces exist: Text
// for multi-line blobs, Strings for one-line values, Bools and Numbers
// for switches and counters.
type Settings struct {
	Text    map[string]string `json:"text"`
	Strings map[string]string `json:"strings"`
	Bools   map[string]bool   `json:"bools"`
	Numbers map[string]int32  `json:"numbers"`
}

// NewSettings returns empty initialized settings.
func NewSettings() Settings {
	return Settings{
		Text:    make(map[string]string),
		Strings: make(map[string]string),
		Bools:   make(map[string]bool),
		Numbers: make(map[string]int32),
	}
}

// decodeSettings parses a stored settings entry. A settings entry that
// does not parse resets to defaults instead of failing the open; losing
// preferences beats losing the container.
func decodeSettings(data []byte) Settings {
	s := NewSettings()
	if err := json.Unmarshal(data, &s); err != nil {
		return NewSettings()
	}
	// Unmarshal may have nilled maps that were explicit nulls.
	if s.Text == nil {
		s.Text = make(map[string]string)
	}
	if s.Strings == nil {
		s.Strings = make(map[string]string)
	}
	if s.Bools == nil {
		s.Bools = make(map[string]bool)
	}
	if s.Numbers == nil {
		s.Numbers = make(map[string]int32)
	}
	return s
}

// encode renders the stored form. Map keys marshal sorted, so the bytes
// are deterministic for a given state.
func (s Settings) encode() ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode settings: %w", err)
	}
	return data, nil
}

// clone returns an independent copy of s.
func (s Settings) clone() Settings {
	out := NewSettings()
	for k, v := range s.Text {
		out.Text[k] = v
	}
	for k, v := range s.Strings {
		out.Strings[k] = v
	}
	for k, v := range s.Bools {
		out.Bools[k] = v
	}
	for k, v := range s.Numbers {
		out.Numbers[k] = v
	}
	return out
}
