package validation

import (
	"cmp"
	"strconv"
	"strings"
)

// RootMarker renders the empty path.
const RootMarker = "<root>"

// PathElem is one step from the document root: either a mapping key or a
// sequence index.
type PathElem struct {
	key     string
	index   int
	isIndex bool
}

// Key returns a path element addressing a mapping key.
func Key(k string) PathElem { return PathElem{key: k} }

// Index returns a path element addressing a sequence position.
func Index(i int) PathElem { return PathElem{index: i, isIndex: true} }

// IsIndex reports whether the element addresses a sequence position.
func (e PathElem) IsIndex() bool { return e.isIndex }

func (e PathElem) String() string {
	if e.isIndex {
		return strconv.Itoa(e.index)
	}
	return e.key
}

// Path is the ordered sequence of keys and indices from the document root to
// a node.
type Path []PathElem

func (p Path) String() string {
	if len(p) == 0 {
		return RootMarker
	}
	parts := make([]string, len(p))
	for i, e := range p {
		parts[i] = e.String()
	}
	return strings.Join(parts, "/")
}

// ComparePaths orders paths element by element. Indices compare numerically,
// keys lexically, and an index sorts before a key at the same depth. A path
// sorts before every path it prefixes.
func ComparePaths(a, b Path) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := compareElems(a[i], b[i]); c != 0 {
			return c
		}
	}
	return cmp.Compare(len(a), len(b))
}

func compareElems(a, b PathElem) int {
	switch {
	case a.isIndex && b.isIndex:
		return cmp.Compare(a.index, b.index)
	case a.isIndex:
		return -1
	case b.isIndex:
		return 1
	default:
		return strings.Compare(a.key, b.key)
	}
}
