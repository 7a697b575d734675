// Package uuid includes tests for the scan ID generator.
package uuid

import (
	"testing"

	goUUID "github.com/google/uuid"
)

// TestGeneratorNewID ensures generated IDs are unique, time ordered UUIDs.
func TestGeneratorNewID(t *testing.T) {
	t.Parallel()

	gen := New()
	id1, err := gen.NewID()
	if err != nil {
		t.Fatalf("NewID() error = %v", err)
	}
	id2, err := gen.NewID()
	if err != nil {
		t.Fatalf("NewID() error = %v", err)
	}
	if id1 == id2 {
		t.Fatalf("expected unique IDs, got %s and %s", id1, id2)
	}
	parsed, err := goUUID.Parse(id1)
	if err != nil {
		t.Fatalf("id1 not valid UUID: %v", err)
	}
	if parsed.Version() != 7 {
		t.Fatalf("expected version 7, got %d", parsed.Version())
	}
	if id2 < id1 {
		t.Fatalf("expected %s to sort after %s", id2, id1)
	}
}

func TestShort(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"0192f0c4-6a1e-7c3b-9d2e-5f6a7b8c9d0e": "0192f0c4",
		"scan-123456789":                       "scan-123",
		"abc":                                  "abc",
	}
	for in, want := range cases {
		if got := Short(in); got != want {
			t.Fatalf("Short(%q) = %q, want %q", in, got, want)
		}
	}
}
