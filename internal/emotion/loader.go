package emotion

import (
	"encoding/json"
	"fmt"
	"os"
)

// Table is a profile list together with its default emotion, as stored on disk.
type Table struct {
	Default  string    `json:"default"`
	Profiles []Profile `json:"profiles"`
}

// LoadTable reads a profile table from a JSON file.
// A missing default falls back to DefaultEmotion.
func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile file: %w", err)
	}
	return ParseTable(data)
}

// ParseTable decodes a JSON profile table. Validation happens in New.
func ParseTable(data []byte) (*Table, error) {
	var t Table
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("%w: failed to parse profile JSON: %v", ErrConfig, err)
	}
	if t.Default == "" {
		t.Default = DefaultEmotion
	}
	return &t, nil
}
