package streaminghttp_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/ggoodman/systemcard-mcp/document"
	"github.com/ggoodman/systemcard-mcp/internal/cardtest"
	"github.com/ggoodman/systemcard-mcp/mcp"
	"github.com/ggoodman/systemcard-mcp/mcpservice"
	"github.com/ggoodman/systemcard-mcp/streaminghttp"
	"github.com/google/go-cmp/cmp"
)

// recordingHandler captures slog records for assertions.
type recordingHandler struct {
	mu      sync.Mutex
	records []slog.Record
}

func (h *recordingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *recordingHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, r.Clone())
	return nil
}

func (h *recordingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *recordingHandler) WithGroup(string) slog.Handler      { return h }

func (h *recordingHandler) messages() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(h.records))
	for _, r := range h.records {
		out = append(out, r.Message)
	}
	return out
}

type fixture struct {
	srv       *httptest.Server
	serverLog *recordingHandler
	httpLog   *recordingHandler
}

func mustParse(t *testing.T, card []byte) *document.Document {
	t.Helper()
	doc, err := document.Parse(bytes.NewReader(card))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return doc
}

func mustServer(t *testing.T, doc mcpservice.Document, opts ...streaminghttp.Option) *fixture {
	t.Helper()
	f := &fixture{serverLog: &recordingHandler{}, httpLog: &recordingHandler{}}
	server := mcpservice.NewServer(doc, mcpservice.WithLogger(slog.New(f.serverLog)))

	opts = append([]streaminghttp.Option{streaminghttp.WithLogger(slog.New(f.httpLog))}, opts...)
	h, err := streaminghttp.New(server, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	f.srv = httptest.NewServer(h)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fixture) post(t *testing.T, body string, headers map[string]string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, f.srv.URL+"/mcp", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(mcp.ProtocolVersionHeader, mcp.ProtocolVersion)
	for k, v := range headers {
		if v == "" {
			req.Header.Del(k)
			continue
		}
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST /mcp: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (f *fixture) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(f.srv.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return out
}

func TestPostMCP(t *testing.T) {
	f := mustServer(t, mustParse(t, cardtest.ValidCard()))

	t.Run("resources/list", func(t *testing.T) {
		resp := f.post(t, `{"jsonrpc":"2.0","id":"1","method":"resources/list"}`, nil)
		if want, got := http.StatusOK, resp.StatusCode; want != got {
			t.Fatalf("unexpected status: want %d got %d", want, got)
		}
		if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
			t.Errorf("unexpected content type %q", ct)
		}
		if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
			t.Errorf("missing CORS header, got %q", got)
		}

		var body struct {
			JSONRPC string                  `json:"jsonrpc"`
			ID      string                  `json:"id"`
			Result  mcp.ListResourcesResult `json:"result"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			t.Fatal(err)
		}
		if body.JSONRPC != "2.0" || body.ID != "1" {
			t.Errorf("unexpected envelope: %+v", body)
		}
		if len(body.Result.Resources) != 7 {
			t.Errorf("want 7 resources, got %d", len(body.Result.Resources))
		}
	})

	t.Run("protocol error stays 200", func(t *testing.T) {
		resp := f.post(t, `{"jsonrpc":"2.0","id":7,"method":"ping"}`, nil)
		if want, got := http.StatusOK, resp.StatusCode; want != got {
			t.Fatalf("unexpected status: want %d got %d", want, got)
		}
		raw, _ := io.ReadAll(resp.Body)
		want := `{"jsonrpc":"2.0","id":7,"error":{"code":-32601,"message":"Method not found: ping"}}`
		if got := strings.TrimSpace(string(raw)); got != want {
			t.Errorf("unexpected body:\nwant %s\ngot  %s", want, got)
		}
	})

	t.Run("omitted id echoes null", func(t *testing.T) {
		resp := f.post(t, `{"jsonrpc":"2.0","method":"resources/read"}`, nil)
		body := decodeBody(t, resp)
		id, ok := body["id"]
		if !ok || id != nil {
			t.Errorf("expected null id, got %#v (present=%v)", id, ok)
		}
		errObj, _ := body["error"].(map[string]any)
		if errObj["code"] != float64(-32602) || !strings.Contains(errObj["message"].(string), "uri") {
			t.Errorf("unexpected error: %#v", errObj)
		}
	})

	t.Run("read round trip", func(t *testing.T) {
		resp := f.post(t, `{"jsonrpc":"2.0","id":2,"method":"resources/read","params":{"uri":"system-card://metadata"}}`, nil)
		var body struct {
			Result mcp.ReadResourceResult `json:"result"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			t.Fatal(err)
		}
		if len(body.Result.Contents) != 1 {
			t.Fatalf("want 1 content item, got %d", len(body.Result.Contents))
		}
		var got map[string]any
		if err := json.Unmarshal([]byte(body.Result.Contents[0].Text), &got); err != nil {
			t.Fatal(err)
		}
		want := map[string]any{
			"name":         "Support Copilot",
			"version":      "2.3.0",
			"developer":    "Example Labs",
			"release_date": "2025-03-01",
			"contact": map[string]any{
				"email": "ai-governance@example.com",
				"url":   "https://example.com/ai",
			},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("metadata mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestPostMCPRequiresProtocolVersion(t *testing.T) {
	f := mustServer(t, mustParse(t, cardtest.ValidCard()))

	resp := f.post(t, `{"jsonrpc":"2.0","id":1,"method":"resources/list"}`, map[string]string{
		mcp.ProtocolVersionHeader: "",
	})
	if want, got := http.StatusBadRequest, resp.StatusCode; want != got {
		t.Fatalf("unexpected status: want %d got %d", want, got)
	}

	body := decodeBody(t, resp)
	want := map[string]any{"error": map[string]any{
		"code":    float64(400),
		"message": "missing MCP-Protocol-Version header",
	}}
	if diff := cmp.Diff(want, body); diff != "" {
		t.Errorf("body mismatch (-want +got):\n%s", diff)
	}

	if msgs := f.serverLog.messages(); len(msgs) != 0 {
		t.Errorf("protocol handler was invoked: %v", msgs)
	}

	// Sanity check that the recorder sees dispatches at all.
	f.post(t, `{"jsonrpc":"2.0","id":1,"method":"resources/list"}`, nil)
	if msgs := f.serverLog.messages(); len(msgs) == 0 {
		t.Errorf("expected dispatch log entries after a valid request")
	}
}

func TestPostMCPHeaderIsCaseInsensitive(t *testing.T) {
	f := mustServer(t, mustParse(t, cardtest.MinimalCard()))

	req, _ := http.NewRequest(http.MethodPost, f.srv.URL+"/mcp", strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"initialize"}`))
	req.Header["mcp-protocol-version"] = []string{"2024-11-05"}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if want, got := http.StatusOK, resp.StatusCode; want != got {
		t.Fatalf("unexpected status: want %d got %d", want, got)
	}
}

func TestPostMCPTransportFaults(t *testing.T) {
	f := mustServer(t, mustParse(t, cardtest.ValidCard()), streaminghttp.WithMaxBodyBytes(256))

	tests := []struct {
		name    string
		body    string
		headers map[string]string
		status  int
	}{
		{"malformed json", `{"jsonrpc":`, nil, http.StatusInternalServerError},
		{"batch array", `[{"jsonrpc":"2.0","id":1,"method":"resources/list"}]`, nil, http.StatusInternalServerError},
		{"non-string method", `{"jsonrpc":"2.0","id":1,"method":5}`, nil, http.StatusInternalServerError},
		{"trailing garbage", `{"jsonrpc":"2.0","id":1,"method":"resources/list"} garbage`, nil, http.StatusInternalServerError},
		{"concatenated envelopes", `{"jsonrpc":"2.0","id":1,"method":"resources/list"}{"jsonrpc":"2.0","id":2,"method":"resources/list"}`, nil, http.StatusInternalServerError},
		{"oversized body", `{"jsonrpc":"2.0","id":"` + strings.Repeat("x", 512) + `","method":"resources/list"}`, nil, http.StatusInternalServerError},
		{"unsupported content type", `{}`, map[string]string{"Content-Type": "text/xml"}, http.StatusUnsupportedMediaType},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp := f.post(t, tc.body, tc.headers)
			if want, got := tc.status, resp.StatusCode; want != got {
				t.Fatalf("unexpected status: want %d got %d", want, got)
			}
			body := decodeBody(t, resp)
			errObj, _ := body["error"].(map[string]any)
			if errObj["code"] != float64(tc.status) {
				t.Errorf("unexpected error body: %#v", body)
			}
			if tc.status == http.StatusInternalServerError && errObj["message"] != "internal server error" {
				t.Errorf("internal detail leaked: %#v", errObj["message"])
			}
		})
	}
}

func TestPostMCPTrailingWhitespaceAccepted(t *testing.T) {
	f := mustServer(t, mustParse(t, cardtest.ValidCard()))

	resp := f.post(t, "{\"jsonrpc\":\"2.0\",\"id\":1,\"method\":\"resources/list\"}\r\n\t ", nil)
	if want, got := http.StatusOK, resp.StatusCode; want != got {
		t.Fatalf("unexpected status: want %d got %d", want, got)
	}
}

type panickingDoc struct{}

func (panickingDoc) Section(string) (any, bool) { panic("section lookup exploded") }

func TestPostMCPRecoversFromPanic(t *testing.T) {
	f := mustServer(t, panickingDoc{})

	resp := f.post(t, `{"jsonrpc":"2.0","id":1,"method":"resources/read","params":{"uri":"system-card://purpose"}}`, nil)
	if want, got := http.StatusInternalServerError, resp.StatusCode; want != got {
		t.Fatalf("unexpected status: want %d got %d", want, got)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	want := `{"error":{"code":500,"message":"internal server error"}}` + "\n"
	if diff := cmp.Diff(want, string(raw)); diff != "" {
		t.Errorf("body mismatch (-want +got):\n%s", diff)
	}
	if strings.Contains(string(raw), "exploded") {
		t.Errorf("panic detail leaked: %s", raw)
	}
}

func TestPostMCPDocumentUnavailable(t *testing.T) {
	f := mustServer(t, nil)

	resp := f.post(t, `{"jsonrpc":"2.0","id":1,"method":"resources/list"}`, nil)
	if want, got := http.StatusOK, resp.StatusCode; want != got {
		t.Fatalf("unexpected status: want %d got %d", want, got)
	}
	body := decodeBody(t, resp)
	errObj, _ := body["error"].(map[string]any)
	if errObj["code"] != float64(-32603) {
		t.Errorf("unexpected error: %#v", body)
	}
}

func TestGetRoutes(t *testing.T) {
	t.Run("health loaded", func(t *testing.T) {
		f := mustServer(t, mustParse(t, cardtest.ValidCard()))
		got := decodeBody(t, f.get(t, "/health"))
		want := map[string]any{"status": "healthy", "system_card_loaded": true}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("health mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("health not loaded", func(t *testing.T) {
		f := mustServer(t, nil)
		got := decodeBody(t, f.get(t, "/health"))
		if got["system_card_loaded"] != false {
			t.Errorf("expected system_card_loaded=false, got %#v", got)
		}
	})

	t.Run("mcp hint", func(t *testing.T) {
		f := mustServer(t, mustParse(t, cardtest.ValidCard()))
		got := decodeBody(t, f.get(t, "/mcp"))
		want := map[string]any{
			"message": "Use POST /mcp with a JSON-RPC 2.0 payload",
			"example": map[string]any{"jsonrpc": "2.0", "id": "1", "method": "resources/list"},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("hint mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("root identity", func(t *testing.T) {
		f := mustServer(t, mustParse(t, cardtest.ValidCard()), streaminghttp.WithServerName("Card Server"))
		got := decodeBody(t, f.get(t, "/"))
		if got["name"] != "Card Server" || got["protocol"] != "MCP" || got["transport"] != "HTTP" {
			t.Errorf("unexpected identity: %#v", got)
		}
		security, _ := got["security"].(map[string]any)
		if security["protocol_version_header"] != "required" || security["authentication"] != "none" {
			t.Errorf("unexpected security block: %#v", security)
		}
	})

	t.Run("unknown path", func(t *testing.T) {
		f := mustServer(t, mustParse(t, cardtest.ValidCard()))
		resp := f.get(t, "/nope")
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("want 404, got %d", resp.StatusCode)
		}
		if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
			t.Errorf("CORS header missing on 404")
		}
	})
}

func TestCORSPreflight(t *testing.T) {
	f := mustServer(t, mustParse(t, cardtest.ValidCard()))

	req, _ := http.NewRequest(http.MethodOptions, f.srv.URL+"/mcp", nil)
	req.Header.Set("Origin", "https://client.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "content-type, mcp-protocol-version")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("want 200, got %d", resp.StatusCode)
	}
	for header, want := range map[string]string{
		"Access-Control-Allow-Origin":  "*",
		"Access-Control-Allow-Methods": "DELETE, GET, HEAD, OPTIONS, PATCH, POST, PUT",
		"Access-Control-Allow-Headers": "content-type, mcp-protocol-version",
		"Access-Control-Max-Age":       "600",
	} {
		if got := resp.Header.Get(header); got != want {
			t.Errorf("%s: want %q got %q", header, want, got)
		}
	}
	if got := resp.Header.Get("Access-Control-Allow-Credentials"); got != "" {
		t.Errorf("credentials must not be allowed, got %q", got)
	}
}

func TestNewRequiresServer(t *testing.T) {
	if _, err := streaminghttp.New(nil); err == nil {
		t.Fatal("expected error for nil server")
	}
}
