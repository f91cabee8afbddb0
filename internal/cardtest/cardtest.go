// Package cardtest provides system card fixtures shared by tests across the
// module: a Draft 2020-12 schema, a complete card, a card that omits optional
// sections, and a card with several schema violations.
package cardtest

import (
	_ "embed"
	"os"
	"path/filepath"
	"testing"
)

var (
	//go:embed testdata/system_card.schema.json
	schemaJSON []byte

	//go:embed testdata/valid.yaml
	validYAML []byte

	//go:embed testdata/minimal.yaml
	minimalYAML []byte

	//go:embed testdata/invalid.yaml
	invalidYAML []byte
)

// InvalidCardPaths lists, in report order, the instance paths at which
// InvalidCard violates Schema.
var InvalidCardPaths = []string{
	"metadata",
	"purpose",
	"references/0",
	"references/1/url",
	"technical_information/development_stack/2",
}

// Schema returns the system card JSON Schema.
func Schema() []byte { return clone(schemaJSON) }

// ValidCard returns a card with every catalog section populated.
func ValidCard() []byte { return clone(validYAML) }

// MinimalCard returns a valid card without a references section.
func MinimalCard() []byte { return clone(minimalYAML) }

// InvalidCard returns a card that violates Schema at InvalidCardPaths.
func InvalidCard() []byte { return clone(invalidYAML) }

// WriteFile writes data to name inside a per-test temporary directory and
// returns the full path.
func WriteFile(t testing.TB, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, data, 0o644); err != nil {
		t.Fatalf("write fixture %s: %v", name, err)
	}
	return p
}

// WriteFixtures writes card and the schema to disk and returns their paths.
func WriteFixtures(t testing.TB, card []byte) (cardPath, schemaPath string) {
	t.Helper()
	return WriteFile(t, "system_card.yaml", card), WriteFile(t, "system_card.schema.json", schemaJSON)
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
