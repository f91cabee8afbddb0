package mcpservice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ggoodman/systemcard-mcp/catalog"
	"github.com/ggoodman/systemcard-mcp/mcp"
)

func (s *Server) listResources(ctx context.Context) (*mcp.ListResourcesResult, error) {
	if !s.Loaded() {
		return nil, ErrDocumentUnavailable
	}
	return &mcp.ListResourcesResult{Resources: catalog.List()}, nil
}

func (s *Server) readResource(ctx context.Context, params json.RawMessage) (*mcp.ReadResourceResult, error) {
	if !s.Loaded() {
		return nil, ErrDocumentUnavailable
	}

	uri, err := uriParam(params)
	if err != nil {
		return nil, err
	}

	contents, err := s.ReadResource(uri)
	if err != nil {
		return nil, err
	}
	s.log.DebugContext(ctx, "rpc.resources.read", slog.String("uri", uri), slog.Int("bytes", len(contents.Text)))
	return &mcp.ReadResourceResult{Contents: []mcp.ResourceContents{contents}}, nil
}

// ReadResource resolves uri against the catalog and renders the matching
// document section.
func (s *Server) ReadResource(uri string) (mcp.ResourceContents, error) {
	if !s.Loaded() {
		return mcp.ResourceContents{}, ErrDocumentUnavailable
	}

	entry, ok := catalog.Resolve(uri)
	if !ok {
		return mcp.ResourceContents{}, &UnknownResourceError{URI: uri}
	}

	value, ok := s.doc.Section(entry.Section)
	if !ok || value == nil {
		return mcp.ResourceContents{}, &ResourceNotFoundError{URI: uri}
	}

	text, err := renderSection(entry.Resource.MimeType, value)
	if err != nil {
		return mcp.ResourceContents{}, fmt.Errorf("render %s: %w", uri, err)
	}

	return mcp.ResourceContents{
		URI:      uri,
		MimeType: entry.Resource.MimeType,
		Text:     text,
	}, nil
}

// uriParam extracts the required string "uri" member from the params object.
func uriParam(params json.RawMessage) (string, error) {
	if len(params) == 0 {
		return "", &MissingParamError{Name: "uri"}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(params, &fields); err != nil || fields == nil {
		return "", &MissingParamError{Name: "uri"}
	}

	raw, ok := fields["uri"]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return "", &MissingParamError{Name: "uri"}
	}

	var uri string
	if err := json.Unmarshal(raw, &uri); err != nil {
		return "", &InvalidParamsError{Field: "uri", Reason: "must be a string"}
	}
	return uri, nil
}

// renderSection serializes a section according to its MIME type.
func renderSection(mimeType string, value any) (string, error) {
	if mimeType == mcp.MimeTypeText {
		return renderText(value)
	}
	return renderJSON(value, "  ")
}

func renderText(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case json.Number:
		return v.String(), nil
	case bool:
		return fmt.Sprint(v), nil
	default:
		return renderJSON(v, "")
	}
}

func renderJSON(value any, indent string) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent != "" {
		enc.SetIndent("", indent)
	}
	if err := enc.Encode(value); err != nil {
		return "", err
	}
	return string(bytes.TrimSuffix(buf.Bytes(), []byte("\n"))), nil
}
