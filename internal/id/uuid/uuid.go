// Package uuid provides scan identifiers.
package uuid

import (
	"fmt"

	"github.com/google/uuid"
)

// Generator creates UUIDv7 scan IDs, which sort by creation time.
type Generator struct{}

// New creates a new Generator.
func New() *Generator {
	return &Generator{}
}

// NewID returns a UUIDv7 string.
func (Generator) NewID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate uuid7: %w", err)
	}
	return id.String(), nil
}

// Short returns the first block of id, used to name report files.
func Short(id string) string {
	if parsed, err := uuid.Parse(id); err == nil {
		return parsed.String()[:8]
	}
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
