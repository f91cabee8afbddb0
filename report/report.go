package report

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ggoodman/systemcard-mcp/catalog"
	"github.com/ggoodman/systemcard-mcp/document"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

//go:embed templates/*.html
var templateFS embed.FS

const defaultTemplate = "system_card.html"

// ErrNoDocument is returned when rendering a nil or empty document.
var ErrNoDocument = errors.New("report: no system card to render")

// Page is the data passed to the template.
type Page struct {
	// Card is the whole document keyed by top-level section.
	Card map[string]any
	// Sections lists the catalogued sections present in Card, in catalog
	// order.
	Sections []Section
}

// Section is one top-level part of the card.
type Section struct {
	Key   string
	Title string
	Value any
}

// Option configures Render.
type Option func(*config)

type config struct {
	templatePath string
}

// WithTemplateFile renders with the html/template file at path instead of the
// embedded default.
func WithTemplateFile(path string) Option {
	return func(c *config) { c.templatePath = path }
}

var md = goldmark.New(goldmark.WithExtensions(extension.GFM))

var titleCaser = cases.Title(language.English)

var funcs = template.FuncMap{
	"markdown": renderMarkdown,
	"title":    titleize,
	"json":     prettyJSON,
	"kind":     kindOf,
}

func renderMarkdown(v any) (template.HTML, error) {
	var src string
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		src = t
	default:
		src = fmt.Sprint(t)
	}
	var buf bytes.Buffer
	if err := md.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	// goldmark omits raw HTML unless configured otherwise.
	return template.HTML(buf.String()), nil
}

func titleize(s string) string {
	return titleCaser.String(strings.ReplaceAll(strings.TrimSpace(s), "_", " "))
}

func prettyJSON(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

func kindOf(v any) string {
	switch v.(type) {
	case map[string]any:
		return "map"
	case []any:
		return "list"
	default:
		return "scalar"
	}
}

func newPage(doc *document.Document) Page {
	p := Page{Card: doc.Tree()}
	for _, e := range catalog.Entries() {
		v, ok := doc.Section(e.Section)
		if !ok || v == nil {
			continue
		}
		p.Sections = append(p.Sections, Section{
			Key:   e.Section,
			Title: e.Resource.Name,
			Value: v,
		})
	}
	return p
}

func loadTemplate(cfg config) (*template.Template, error) {
	if cfg.templatePath == "" {
		return template.New(defaultTemplate).Funcs(funcs).ParseFS(templateFS, "templates/"+defaultTemplate)
	}
	t, err := template.New(filepath.Base(cfg.templatePath)).Funcs(funcs).ParseFiles(cfg.templatePath)
	if err != nil {
		return nil, fmt.Errorf("parse template %s: %w", cfg.templatePath, err)
	}
	return t, nil
}

// Render writes the HTML report for doc to w.
func Render(w io.Writer, doc *document.Document, opts ...Option) error {
	if !doc.Loaded() {
		return ErrNoDocument
	}

	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}

	t, err := loadTemplate(cfg)
	if err != nil {
		return err
	}
	if err := t.Execute(w, newPage(doc)); err != nil {
		return fmt.Errorf("execute template: %w", err)
	}
	return nil
}

// WriteFile renders doc into the file at path, creating parent directories as
// needed. Nothing is written if rendering fails.
func WriteFile(path string, doc *document.Document, opts ...Option) error {
	var buf bytes.Buffer
	if err := Render(&buf, doc, opts...); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
