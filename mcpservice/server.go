package mcpservice

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ggoodman/systemcard-mcp/internal/jsonrpc"
	"github.com/ggoodman/systemcard-mcp/internal/logctx"
	"github.com/ggoodman/systemcard-mcp/mcp"
)

// Document is the read side of a loaded system card.
type Document interface {
	// Section returns the value under a top-level key; ok is false when the
	// key is absent.
	Section(name string) (value any, ok bool)
}

// loadedReporter is implemented by documents that can report an incomplete
// load (for example a nil *document.Document stored in the interface).
type loadedReporter interface {
	Loaded() bool
}

// DefaultServerInfo identifies the server in initialize responses.
var DefaultServerInfo = mcp.ImplementationInfo{
	Name:    "ai-system-card-mcp-server",
	Version: "1.0.0",
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithServerInfo overrides the implementation info returned by initialize.
func WithServerInfo(info mcp.ImplementationInfo) ServerOption {
	return func(s *Server) { s.info = info }
}

// WithProtocolVersion overrides the protocol version returned by initialize.
func WithProtocolVersion(version string) ServerOption {
	return func(s *Server) { s.protocolVersion = version }
}

// WithLogger sets the logger used for dispatch diagnostics. If not provided,
// logs are discarded.
func WithLogger(log *slog.Logger) ServerOption {
	return func(s *Server) {
		if log != nil {
			s.log = log
		}
	}
}

// Server dispatches MCP requests against a single system card.
type Server struct {
	doc             Document
	info            mcp.ImplementationInfo
	protocolVersion string
	log             *slog.Logger
}

// NewServer builds a Server for doc. A nil doc yields a server that answers
// every method with an internal error until it is replaced by one built
// around a loaded card.
func NewServer(doc Document, opts ...ServerOption) *Server {
	s := &Server{
		doc:             doc,
		info:            DefaultServerInfo,
		protocolVersion: mcp.ProtocolVersion,
		log:             slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Loaded reports whether the server holds a loaded system card.
func (s *Server) Loaded() bool {
	if s == nil || s.doc == nil {
		return false
	}
	if lr, ok := s.doc.(loadedReporter); ok {
		return lr.Loaded()
	}
	return true
}

// Info returns the implementation info reported by initialize.
func (s *Server) Info() mcp.ImplementationInfo { return s.info }

// ProtocolVersion returns the protocol version reported by initialize.
func (s *Server) ProtocolVersion() string { return s.protocolVersion }

// Handle dispatches req by method name. Protocol failures are returned as
// JSON-RPC error envelopes; the error result is reserved for internal faults.
func (s *Server) Handle(ctx context.Context, req *jsonrpc.Request) (*jsonrpc.Response, error) {
	if req == nil {
		return nil, fmt.Errorf("nil request")
	}
	ctx = logctx.WithRPCMessage(ctx, &logctx.RPCMessage{Method: req.Method, ID: req.ID.String()})

	var (
		result any
		err    error
	)
	switch mcp.Method(req.Method) {
	case mcp.InitializeMethod:
		result, err = s.initialize(ctx, req)
	case mcp.ResourcesListMethod:
		result, err = s.listResources(ctx)
	case mcp.ResourcesReadMethod:
		result, err = s.readResource(ctx, req.Params)
	default:
		err = &MethodNotFoundError{Method: req.Method}
	}

	if err != nil {
		rpcErr, ok := toJSONRPCError(err)
		if !ok {
			s.log.ErrorContext(ctx, "rpc.dispatch.fail", slog.String("err", err.Error()))
			return nil, fmt.Errorf("%s: %w", req.Method, err)
		}
		s.log.InfoContext(ctx, "rpc.dispatch.error", slog.Int("code", int(rpcErr.Code)), slog.String("message", rpcErr.Message))
		return jsonrpc.NewErrorResponse(req.ID, rpcErr.Code, rpcErr.Message), nil
	}

	res, err := jsonrpc.NewResultResponse(req.ID, result)
	if err != nil {
		s.log.ErrorContext(ctx, "rpc.result.encode.fail", slog.String("err", err.Error()))
		return nil, err
	}
	s.log.DebugContext(ctx, "rpc.dispatch.ok")
	return res, nil
}

func (s *Server) initialize(ctx context.Context, req *jsonrpc.Request) (*mcp.InitializeResult, error) {
	if !s.Loaded() {
		return nil, ErrDocumentUnavailable
	}

	// Client parameters are informational only; nothing is negotiated.
	var initReq mcp.InitializeRequest
	if len(req.Params) > 0 && json.Unmarshal(req.Params, &initReq) == nil {
		s.log.InfoContext(ctx, "rpc.initialize",
			slog.String("client_name", initReq.ClientInfo.Name),
			slog.String("client_version", initReq.ClientInfo.Version),
			slog.String("client_protocol_version", initReq.ProtocolVersion),
		)
	}

	return &mcp.InitializeResult{
		ProtocolVersion: s.protocolVersion,
		Capabilities: mcp.ServerCapabilities{
			Resources: &mcp.ResourcesCapability{
				Subscribe:   false,
				ListChanged: false,
			},
		},
		ServerInfo: s.info,
	}, nil
}
