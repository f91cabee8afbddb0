package streaminghttp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/elnormous/contenttype"
	"github.com/ggoodman/systemcard-mcp/internal/jsonrpc"
	"github.com/ggoodman/systemcard-mcp/internal/logctx"
	"github.com/ggoodman/systemcard-mcp/mcp"
	"github.com/ggoodman/systemcard-mcp/mcpservice"
	"github.com/google/uuid"
)

// DefaultMaxBodyBytes bounds POST /mcp request bodies unless overridden.
const DefaultMaxBodyBytes int64 = 1 << 20

// DefaultServerName is the name reported by GET /.
const DefaultServerName = "AI System Card MCP Server"

const (
	mcpPath = "/mcp"

	corsAllowMethods = "DELETE, GET, HEAD, OPTIONS, PATCH, POST, PUT"
	corsMaxAge       = "600"
)

var jsonMediaType = contenttype.NewMediaType("application/json")

var errInternal = errors.New("internal server error")

// writeJSONError emits a minimal JSON body for HTTP-layer rejections. This is
// not JSON-RPC framing. Shape: {"error":{"code":<httpStatus>,"message":"<reason>"}}
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", jsonMediaType.String())
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"code": status, "message": msg}})
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", jsonMediaType.String())
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// Option configures the Handler.
type Option func(*newConfig)

type newConfig struct {
	serverName   string
	logger       *slog.Logger
	maxBodyBytes int64
}

// WithServerName sets the human-readable server name reported by GET /.
func WithServerName(name string) Option {
	return func(c *newConfig) { c.serverName = strings.TrimSpace(name) }
}

// WithLogger sets the slog logger used by the handler. If not provided, logs
// are discarded.
func WithLogger(log *slog.Logger) Option {
	return func(c *newConfig) { c.logger = log }
}

// WithMaxBodyBytes bounds the size of POST /mcp bodies. Values <= 0 select
// DefaultMaxBodyBytes.
func WithMaxBodyBytes(n int64) Option {
	return func(c *newConfig) { c.maxBodyBytes = n }
}

// Handler serves the MCP HTTP transport.
type Handler struct {
	server       *mcpservice.Server
	log          *slog.Logger
	serverName   string
	maxBodyBytes int64
	mux          *http.ServeMux
}

var _ http.Handler = (*Handler)(nil)

// New builds a Handler that dispatches POST /mcp to server.
func New(server *mcpservice.Server, opts ...Option) (*Handler, error) {
	if server == nil {
		return nil, fmt.Errorf("streaminghttp: server is required")
	}

	cfg := newConfig{
		serverName:   DefaultServerName,
		maxBodyBytes: DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.serverName == "" {
		cfg.serverName = DefaultServerName
	}
	if cfg.maxBodyBytes <= 0 {
		cfg.maxBodyBytes = DefaultMaxBodyBytes
	}

	log := cfg.logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	h := &Handler{
		server:       server,
		log:          log,
		serverName:   cfg.serverName,
		maxBodyBytes: cfg.maxBodyBytes,
		mux:          http.NewServeMux(),
	}

	h.mux.HandleFunc("POST "+mcpPath, h.handlePostMCP)
	h.mux.HandleFunc("GET "+mcpPath, h.handleGetMCP)
	h.mux.HandleFunc("GET /health", h.handleHealth)
	h.mux.HandleFunc("GET /{$}", h.handleRoot)

	return h, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	r = r.WithContext(logctx.WithRequestData(r.Context(), &logctx.RequestData{
		RequestID:  uuid.NewString(),
		Method:     r.Method,
		UserAgent:  r.UserAgent(),
		RemoteAddr: r.RemoteAddr,
		Path:       r.URL.Path,
	}))

	w.Header().Set("Access-Control-Allow-Origin", "*")
	if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
		h.handlePreflight(w, r)
		return
	}

	h.mux.ServeHTTP(w, r)
}

func (h *Handler) handlePreflight(w http.ResponseWriter, r *http.Request) {
	allowHeaders := r.Header.Get("Access-Control-Request-Headers")
	if allowHeaders == "" {
		allowHeaders = "*"
	}
	w.Header().Set("Access-Control-Allow-Methods", corsAllowMethods)
	w.Header().Set("Access-Control-Allow-Headers", allowHeaders)
	w.Header().Set("Access-Control-Max-Age", corsMaxAge)
	w.Header().Add("Vary", "Access-Control-Request-Headers")
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
	h.log.DebugContext(r.Context(), "http.preflight.ok")
}

// handlePostMCP handles the POST /mcp endpoint: one JSON-RPC request in, one
// JSON-RPC response out.
func (h *Handler) handlePostMCP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	h.log.InfoContext(ctx, "http.post.start")

	if r.Header.Get(mcp.ProtocolVersionHeader) == "" {
		writeJSONError(w, http.StatusBadRequest, "missing "+mcp.ProtocolVersionHeader+" header")
		h.log.WarnContext(ctx, "protocol.version.missing")
		return
	}

	if r.Header.Get("Content-Type") != "" {
		ctype, err := contenttype.GetMediaType(r)
		if err != nil || !ctype.Matches(jsonMediaType) {
			writeJSONError(w, http.StatusUnsupportedMediaType, "content-type must be application/json")
			h.log.WarnContext(ctx, "content_type.unsupported")
			return
		}
	}

	ctx, res, err := h.dispatch(ctx, http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, errInternal.Error())
		h.log.ErrorContext(ctx, "rpc.dispatch.fail", slog.String("err", err.Error()))
		return
	}

	if err := writeJSON(w, http.StatusOK, res); err != nil {
		h.log.ErrorContext(ctx, "http.response.write.fail", slog.String("err", err.Error()))
		return
	}

	h.log.InfoContext(ctx, "http.post.ok", slog.Duration("dur", time.Since(start)))
}

// dispatch decodes exactly one request envelope from body and hands it to the
// server. Trailing data after the envelope, decode failures and panics are
// all reported as errors; nothing has been written to the client yet.
func (h *Handler) dispatch(ctx context.Context, body io.Reader) (rctx context.Context, res *jsonrpc.Response, err error) {
	rctx = ctx
	defer func() {
		if v := recover(); v != nil {
			res, err = nil, fmt.Errorf("panic: %v", v)
		}
	}()

	data, err := io.ReadAll(body)
	if err != nil {
		return ctx, nil, fmt.Errorf("read body: %w", err)
	}

	var req jsonrpc.Request
	if err := json.Unmarshal(data, &req); err != nil {
		return ctx, nil, fmt.Errorf("decode request: %w", err)
	}

	rctx = logctx.WithRPCMessage(ctx, &logctx.RPCMessage{
		Method: req.Method,
		ID:     req.ID.String(),
	})

	res, err = h.server.Handle(rctx, &req)
	return rctx, res, err
}

type usageHint struct {
	Message string           `json:"message"`
	Example *jsonrpc.Request `json:"example"`
}

// handleGetMCP answers browser navigation to the JSON-RPC endpoint.
func (h *Handler) handleGetMCP(w http.ResponseWriter, r *http.Request) {
	hint := usageHint{
		Message: "Use POST " + mcpPath + " with a JSON-RPC 2.0 payload",
		Example: &jsonrpc.Request{
			JSONRPCVersion: jsonrpc.ProtocolVersion,
			ID:             jsonrpc.NewRequestID("1"),
			Method:         string(mcp.ResourcesListMethod),
		},
	}
	if err := writeJSON(w, http.StatusOK, hint); err != nil {
		h.log.ErrorContext(r.Context(), "http.response.write.fail", slog.String("err", err.Error()))
	}
}

type healthStatus struct {
	Status           string `json:"status"`
	SystemCardLoaded bool   `json:"system_card_loaded"`
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := writeJSON(w, http.StatusOK, healthStatus{
		Status:           "healthy",
		SystemCardLoaded: h.server.Loaded(),
	}); err != nil {
		h.log.ErrorContext(r.Context(), "http.response.write.fail", slog.String("err", err.Error()))
	}
}

type serverIdentity struct {
	Name            string            `json:"name"`
	Version         string            `json:"version"`
	Protocol        string            `json:"protocol"`
	ProtocolVersion string            `json:"protocol_version"`
	Transport       string            `json:"transport"`
	Endpoints       map[string]string `json:"endpoints"`
	Security        map[string]string `json:"security"`
}

func (h *Handler) handleRoot(w http.ResponseWriter, r *http.Request) {
	id := serverIdentity{
		Name:            h.serverName,
		Version:         h.server.Info().Version,
		Protocol:        "MCP",
		ProtocolVersion: h.server.ProtocolVersion(),
		Transport:       "HTTP",
		Endpoints: map[string]string{
			"mcp":    mcpPath,
			"health": "/health",
		},
		Security: map[string]string{
			"authentication":          "none",
			"origin_validation":       "disabled",
			"protocol_version_header": "required",
		},
	}
	if err := writeJSON(w, http.StatusOK, id); err != nil {
		h.log.ErrorContext(r.Context(), "http.response.write.fail", slog.String("err", err.Error()))
	}
}
