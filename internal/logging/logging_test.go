package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/ggoodman/systemcard-mcp/internal/logctx"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		if err != nil {
			t.Errorf("ParseLevel(%q): %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("ParseLevel(%q): want %v got %v", in, want, got)
		}
	}

	if _, err := ParseLevel("chatty"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, FormatJSON, "info")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := logctx.WithRequestData(context.Background(), &logctx.RequestData{RequestID: "req-1", Path: "/mcp"})
	logger.DebugContext(ctx, "hidden")
	logger.InfoContext(ctx, "http.post.start")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("want 1 record, got %d: %q", len(lines), buf.String())
	}

	var rec struct {
		Msg string `json:"msg"`
		Req struct {
			ID   string `json:"id"`
			Path string `json:"path"`
		} `json:"req"`
	}
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatal(err)
	}
	if rec.Msg != "http.post.start" || rec.Req.ID != "req-1" || rec.Req.Path != "/mcp" {
		t.Errorf("unexpected record: %+v", rec)
	}
}

func TestNewText(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, FormatText, "debug")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Debug("startup.schema.ok", slog.String("path", "schema.json"))

	out := buf.String()
	if !strings.Contains(out, "startup.schema.ok") || !strings.Contains(out, "schema.json") {
		t.Errorf("unexpected text output: %q", out)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(&bytes.Buffer{}, "xml", "info"); err == nil {
		t.Fatal("expected error")
	}
}
