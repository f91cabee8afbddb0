package stdio

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/ggoodman/systemcard-mcp/internal/jsonrpc"
	"github.com/ggoodman/systemcard-mcp/internal/logctx"
	"github.com/ggoodman/systemcard-mcp/mcpservice"
	"github.com/google/uuid"
)

// DefaultMaxMessageBytes bounds a single inbound line unless overridden.
const DefaultMaxMessageBytes = 1 << 20

// Handler is a single-connection stdio transport that reads JSON-RPC messages
// from an io.Reader and writes responses to an io.Writer. By default, it uses
// os.Stdin and os.Stdout.
//
// The handler is transport-only; it delegates all MCP semantics to the
// provided mcpservice.Server.
type Handler struct {
	srv             *mcpservice.Server
	r               io.Reader
	w               io.Writer
	l               *slog.Logger
	maxMessageBytes int

	writeMu sync.Mutex
}

// NewHandler constructs a stdio Handler with defaults and applies options.
func NewHandler(srv *mcpservice.Server, opts ...Option) *Handler {
	h := &Handler{
		srv:             srv,
		r:               os.Stdin,
		w:               os.Stdout,
		l:               slog.New(slog.DiscardHandler),
		maxMessageBytes: DefaultMaxMessageBytes,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type inbound struct {
	line []byte
	err  error
}

// Serve runs the stdio loop until EOF on the reader or ctx is canceled. EOF
// is a clean shutdown and returns nil. It is safe to call at most once per
// Handler.
func (h *Handler) Serve(ctx context.Context) error {
	if h.srv == nil {
		return errors.New("stdio: server is required")
	}

	lines := make(chan inbound)
	go h.readLoop(ctx, lines)

	h.l.InfoContext(ctx, "stdio.serve.start")
	for {
		select {
		case <-ctx.Done():
			h.l.InfoContext(ctx, "stdio.serve.cancel")
			return ctx.Err()
		case in, ok := <-lines:
			if !ok {
				h.l.InfoContext(ctx, "stdio.serve.eof")
				return nil
			}
			if in.err != nil {
				h.l.ErrorContext(ctx, "stdio.read.fail", slog.String("err", in.err.Error()))
				return fmt.Errorf("stdio: read: %w", in.err)
			}
			if err := h.handleLine(ctx, in.line); err != nil {
				return err
			}
		}
	}
}

func (h *Handler) readLoop(ctx context.Context, out chan<- inbound) {
	defer close(out)

	sc := bufio.NewScanner(h.r)
	sc.Buffer(make([]byte, 0, 64*1024), h.maxMessageBytes)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		select {
		case out <- inbound{line: bytes.Clone(line)}:
		case <-ctx.Done():
			return
		}
	}
	if err := sc.Err(); err != nil {
		select {
		case out <- inbound{err: err}:
		case <-ctx.Done():
		}
	}
}

// handleLine dispatches one message. The returned error is reserved for
// failures writing to the peer.
func (h *Handler) handleLine(ctx context.Context, line []byte) error {
	ctx = logctx.WithRequestData(ctx, &logctx.RequestData{
		RequestID: uuid.NewString(),
		Method:    "STDIO",
	})

	var req jsonrpc.Request
	if err := json.Unmarshal(line, &req); err != nil {
		h.l.WarnContext(ctx, "jsonrpc.decode.fail", slog.String("err", err.Error()))
		code, msg := jsonrpc.ErrorCodeInvalidRequest, "Invalid Request"
		if !json.Valid(line) {
			code, msg = jsonrpc.ErrorCodeParseError, "Parse error"
		}
		return h.write(jsonrpc.NewErrorResponse(nil, code, msg))
	}

	// Messages without an id are notifications and never get a reply.
	if req.ID.IsNil() {
		h.l.DebugContext(ctx, "jsonrpc.notification.ignored", slog.String("method", req.Method))
		return nil
	}

	res, err := h.srv.Handle(ctx, &req)
	if err != nil {
		h.l.ErrorContext(ctx, "rpc.dispatch.fail", slog.String("err", err.Error()))
		res = jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInternalError, "Internal error")
	}
	return h.write(res)
}

func (h *Handler) write(res *jsonrpc.Response) error {
	b, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("stdio: encode response: %w", err)
	}
	b = append(b, '\n')

	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	if _, err := h.w.Write(b); err != nil {
		return fmt.Errorf("stdio: write: %w", err)
	}
	return nil
}
