// Package report renders a system card as a standalone HTML page.
//
// The default template is embedded in the binary. A custom html/template file
// can be supplied with WithTemplateFile; it receives the same data and
// function map:
//
//   - markdown: renders a narrative field with GitHub-flavored markdown.
//     Raw HTML in the source is dropped.
//   - title: turns a snake_case key into a heading ("data_lineage" becomes
//     "Data Lineage").
//   - json: pretty-prints a nested value.
//   - kind: reports "map", "list" or "scalar" for generic traversal.
//
// The template data is a Page. Callers are expected to validate the document
// before rendering.
package report
