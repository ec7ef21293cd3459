package receipt

import (
	"encoding/json"
	"fmt"
	"os"
)

// Parse parses a receipt from JSON and validates it.
func Parse(data []byte) (*Receipt, error) {
	var r Receipt
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to parse receipt: %w", err)
	}

	if err := Validate(&r); err != nil {
		return nil, err
	}

	return &r, nil
}

// ParseFile parses a receipt JSON file from disk.
func ParseFile(path string) (*Receipt, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read receipt file: %w", err)
	}

	return Parse(data)
}

// ToJSON converts a Receipt to indented JSON bytes.
func (r *Receipt) ToJSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// SaveToFile saves a Receipt to a file.
func (r *Receipt) SaveToFile(path string) error {
	data, err := r.ToJSON()
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
