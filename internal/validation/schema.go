// Package validation checks system card documents against a JSON Schema
// (Draft 2020-12 unless the schema declares otherwise) and reports every
// violation with the instance path it applies to.
package validation

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/santhosh-tekuri/jsonschema/v6/kind"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// schemaURL names the compiled schema resource. Schemas are always supplied
// in memory so the URL is never fetched.
const schemaURL = "https://systemcard.invalid/schema.json"

var printer = message.NewPrinter(language.English)

// Schema is a compiled JSON Schema. It is immutable and safe for concurrent
// use.
type Schema struct {
	compiled *jsonschema.Schema
}

// LoadSchemaFile reads and compiles the JSON Schema stored at path.
func LoadSchemaFile(path string) (*Schema, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open schema: %w", err)
	}
	defer f.Close()

	s, err := CompileSchema(f)
	if err != nil {
		return nil, fmt.Errorf("schema %s: %w", path, err)
	}
	return s, nil
}

// CompileSchema parses a JSON Schema document from r and compiles it.
func CompileSchema(r io.Reader) (*Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(r)
	if err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}

	c := jsonschema.NewCompiler()
	c.DefaultDraft(jsonschema.Draft2020)
	if err := c.AddResource(schemaURL, doc); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}

	compiled, err := c.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Schema{compiled: compiled}, nil
}

// Validate checks doc against the schema and returns every violation, sorted
// by instance path. The result is empty when doc is valid. doc must be a
// JSON-compatible tree (maps with string keys, slices, strings, booleans,
// json.Number or Go numeric types, nil).
func (s *Schema) Validate(doc any) []ValidationError {
	err := s.compiled.Validate(doc)
	if err == nil {
		return nil
	}

	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return []ValidationError{{Path: Path{}, Message: err.Error()}}
	}

	var out []ValidationError
	collect(doc, ve, &out)
	slices.SortStableFunc(out, func(a, b ValidationError) int {
		if c := ComparePaths(a.Path, b.Path); c != 0 {
			return c
		}
		return strings.Compare(a.Message, b.Message)
	})
	return out
}

// collect walks the error tree and appends one entry per reported violation.
// Combinator failures are kept whole instead of listing every failed branch.
func collect(doc any, ve *jsonschema.ValidationError, out *[]ValidationError) {
	switch ve.ErrorKind.(type) {
	case *kind.AnyOf, *kind.OneOf:
		*out = append(*out, newError(doc, ve))
		return
	}

	if len(ve.Causes) == 0 {
		*out = append(*out, newError(doc, ve))
		return
	}
	for _, cause := range ve.Causes {
		collect(doc, cause, out)
	}
}

func newError(doc any, ve *jsonschema.ValidationError) ValidationError {
	k := ve.ErrorKind
	// The validator lists unexpected properties in map iteration order.
	if ap, ok := k.(*kind.AdditionalProperties); ok {
		props := slices.Clone(ap.Properties)
		slices.Sort(props)
		k = &kind.AdditionalProperties{Properties: props}
	}
	return ValidationError{
		Path:    resolvePath(doc, ve.InstanceLocation),
		Message: k.LocalizedString(printer),
	}
}

// resolvePath converts JSON pointer tokens into typed path elements by
// walking the instance: tokens addressing an array become indices.
func resolvePath(doc any, tokens []string) Path {
	p := make(Path, 0, len(tokens))
	cur := doc
	for _, tok := range tokens {
		switch c := cur.(type) {
		case []any:
			if i, err := strconv.Atoi(tok); err == nil {
				p = append(p, Index(i))
				if i >= 0 && i < len(c) {
					cur = c[i]
				} else {
					cur = nil
				}
				continue
			}
			p = append(p, Key(tok))
			cur = nil
		case map[string]any:
			p = append(p, Key(tok))
			cur = c[tok]
		default:
			p = append(p, Key(tok))
			cur = nil
		}
	}
	return p
}

// ValidationError is a single schema violation.
type ValidationError struct {
	Path    Path
	Message string
}

func (e ValidationError) String() string {
	return e.Path.String() + ": " + e.Message
}

// Report is returned by Check when a document violates its schema.
type Report struct {
	Errors []ValidationError
}

func (r *Report) Error() string {
	var sb strings.Builder
	sb.WriteString("system card validation failed:")
	for _, e := range r.Errors {
		sb.WriteString("\n- ")
		sb.WriteString(e.String())
	}
	return sb.String()
}

// Check validates doc and returns a *Report describing every violation, or
// nil when doc conforms.
func Check(doc any, s *Schema) error {
	if errs := s.Validate(doc); len(errs) > 0 {
		return &Report{Errors: errs}
	}
	return nil
}
