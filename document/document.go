// Package document loads a system card from YAML and exposes its top-level
// sections. A Document is immutable once loaded and safe for concurrent
// readers.
package document

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadError reports that a system card could not be read or parsed.
type LoadError struct {
	// Path is the source file, empty when parsing from a reader.
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("load system card: %v", e.Err)
	}
	return fmt.Sprintf("load system card %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

var (
	ErrEmptyDocument     = errors.New("document is empty")
	ErrNotMapping        = errors.New("top-level value must be a mapping")
	ErrMultipleDocuments = errors.New("expected a single YAML document")
)

// Document is a loaded system card. Values are JSON-compatible: mappings are
// map[string]any, sequences []any, numbers json.Number, plus string, bool and
// nil.
type Document struct {
	path string
	tree map[string]any
}

// Load reads and parses the system card at path.
func Load(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	defer f.Close()

	doc, err := Parse(f)
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			le.Path = path
		}
		return nil, err
	}
	doc.path = path
	return doc, nil
}

// Parse decodes a single YAML document from r.
func Parse(r io.Reader) (*Document, error) {
	dec := yaml.NewDecoder(r)

	var raw any
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &LoadError{Err: ErrEmptyDocument}
		}
		return nil, &LoadError{Err: err}
	}

	var extra any
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		if err == nil {
			err = ErrMultipleDocuments
		}
		return nil, &LoadError{Err: err}
	}

	if raw == nil {
		return nil, &LoadError{Err: ErrEmptyDocument}
	}

	norm, err := normalize(raw)
	if err != nil {
		return nil, &LoadError{Err: err}
	}

	tree, ok := norm.(map[string]any)
	if !ok {
		return nil, &LoadError{Err: ErrNotMapping}
	}
	return &Document{tree: tree}, nil
}

// Section returns the value stored under a top-level key. ok is false when
// the key is absent; a key holding an explicit null returns (nil, true).
func (d *Document) Section(name string) (value any, ok bool) {
	if d == nil {
		return nil, false
	}
	value, ok = d.tree[name]
	return value, ok
}

// Loaded reports whether d holds a parsed card.
func (d *Document) Loaded() bool {
	return d != nil && d.tree != nil
}

// Tree returns the whole document. Callers must not modify it.
func (d *Document) Tree() map[string]any {
	if d == nil {
		return nil
	}
	return d.tree
}

// Path returns the file the document was loaded from, if any.
func (d *Document) Path() string {
	if d == nil {
		return ""
	}
	return d.path
}

// normalize converts a yaml.v3 decoded value into a JSON-compatible tree.
func normalize(v any) (any, error) {
	switch t := v.(type) {
	case nil, string, bool:
		return t, nil
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			n, err := normalize(vv)
			if err != nil {
				return nil, err
			}
			out[k] = n
		}
		return out, nil
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			n, err := normalize(vv)
			if err != nil {
				return nil, err
			}
			out[fmt.Sprint(k)] = n
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i, vv := range t {
			n, err := normalize(vv)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	case int:
		return json.Number(strconv.Itoa(t)), nil
	case int64:
		return json.Number(strconv.FormatInt(t, 10)), nil
	case uint64:
		return json.Number(strconv.FormatUint(t, 10)), nil
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return nil, fmt.Errorf("non-finite number %v cannot be represented", t)
		}
		return json.Number(strconv.FormatFloat(t, 'g', -1, 64)), nil
	case time.Time:
		return t.Format(time.RFC3339Nano), nil
	default:
		return fmt.Sprint(t), nil
	}
}
