package rules

import (
	_ "embed"
	"fmt"
)

//go:embed default.yaml
var defaultCatalog []byte

// Default returns the built-in catalog.
func Default() (*Catalog, error) {
	cat, err := Parse(defaultCatalog)
	if err != nil {
		return nil, fmt.Errorf("built-in catalog: %w", err)
	}
	return cat, nil
}
