// Package fixture provides the canned search response used when a search is run
// without the live API.
package fixture

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

var (
	//go:embed data/mock_data.json
	embeddedFixture []byte

	//go:embed data/response.schema.json
	responseSchema []byte
)

// ErrInvalidFixture is returned when a fixture does not satisfy the response contract.
var ErrInvalidFixture = errors.New("fixture does not match response schema")

// Default returns a copy of the embedded fixture.
func Default() []byte {
	out := make([]byte, len(embeddedFixture))
	copy(out, embeddedFixture)
	return out
}

// Load returns the fixture at path, or the embedded fixture when path is empty.
// The result is validated against the response schema.
func Load(path string) ([]byte, error) {
	data := Default()
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read fixture %s: %w", path, err)
		}
	}

	if err := Validate(data); err != nil {
		return nil, err
	}
	return data, nil
}

// Validate checks data against the canonical search response schema.
func Validate(data []byte) error {
	schemaLoader := gojsonschema.NewBytesLoader(responseSchema)
	documentLoader := gojsonschema.NewBytesLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFixture, err)
	}

	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return fmt.Errorf("%w: %s", ErrInvalidFixture, strings.Join(errs, "; "))
	}

	return nil
}
