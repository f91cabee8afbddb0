package stdio

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/ggoodman/systemcard-mcp/document"
	"github.com/ggoodman/systemcard-mcp/internal/cardtest"
	"github.com/ggoodman/systemcard-mcp/internal/jsonrpc"
	"github.com/ggoodman/systemcard-mcp/mcp"
	"github.com/ggoodman/systemcard-mcp/mcpservice"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testHarness encapsulates pipes for stdio handler tests.
type testHarness struct {
	t      *testing.T
	stdinW io.WriteCloser
	lines  chan string
	done   chan error
}

func newServer(t *testing.T) *mcpservice.Server {
	t.Helper()
	doc, err := document.Parse(bytes.NewReader(cardtest.ValidCard()))
	require.NoError(t, err)
	return mcpservice.NewServer(doc)
}

func newHarness(t *testing.T, srv *mcpservice.Server) *testHarness {
	t.Helper()

	inR, inW := io.Pipe()
	outR, outW := io.Pipe()

	h := NewHandler(srv, WithIO(inR, outW))
	ctx, cancel := context.WithCancel(context.Background())

	th := &testHarness{t: t, stdinW: inW, lines: make(chan string, 16), done: make(chan error, 1)}
	go func() {
		th.done <- h.Serve(ctx)
		_ = outW.Close()
	}()

	// stdout collector
	go func() {
		defer close(th.lines)
		sc := bufio.NewScanner(outR)
		for sc.Scan() {
			th.lines <- sc.Text()
		}
	}()

	t.Cleanup(func() {
		cancel()
		_ = inW.Close()
		_ = outR.Close()
	})
	return th
}

func (th *testHarness) send(line string) {
	th.t.Helper()
	_, err := io.WriteString(th.stdinW, line+"\n")
	require.NoError(th.t, err)
}

func (th *testHarness) recv() *jsonrpc.Response {
	th.t.Helper()
	select {
	case line, ok := <-th.lines:
		require.True(th.t, ok, "stdout closed")
		var res jsonrpc.Response
		require.NoError(th.t, json.Unmarshal([]byte(line), &res), "decode %q", line)
		return &res
	case <-time.After(2 * time.Second):
		th.t.Fatal("timed out waiting for response")
	}
	return nil
}

func TestServeRoundTrip(t *testing.T) {
	th := newHarness(t, newServer(t))

	th.send(`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05"}}`)
	res := th.recv()
	require.Nil(t, res.Error)

	var init mcp.InitializeResult
	require.NoError(t, json.Unmarshal(res.Result, &init))
	assert.Equal(t, mcpservice.DefaultServerInfo, init.ServerInfo)
	assert.Equal(t, mcp.ProtocolVersion, init.ProtocolVersion)

	// Notifications produce no output; the next line must answer the read.
	th.send(`{"jsonrpc":"2.0","method":"notifications/initialized"}`)
	th.send(`{"jsonrpc":"2.0","id":"r","method":"resources/read","params":{"uri":"system-card://purpose"}}`)
	res = th.recv()
	assert.Equal(t, "r", res.ID.String())

	var read mcp.ReadResourceResult
	require.NoError(t, json.Unmarshal(res.Result, &read))
	require.Len(t, read.Contents, 1)
	assert.Equal(t, mcp.MimeTypeText, read.Contents[0].MimeType)
	assert.True(t, strings.HasPrefix(read.Contents[0].Text, "Support Copilot drafts"))
}

func TestServeErrors(t *testing.T) {
	th := newHarness(t, newServer(t))

	tests := []struct {
		name string
		line string
		code jsonrpc.ErrorCode
	}{
		{"parse error", `{"jsonrpc":`, jsonrpc.ErrorCodeParseError},
		{"invalid envelope", `{"jsonrpc":"2.0","id":1,"method":7}`, jsonrpc.ErrorCodeInvalidRequest},
		{"unknown method", `{"jsonrpc":"2.0","id":2,"method":"ping"}`, jsonrpc.ErrorCodeMethodNotFound},
		{"unknown uri", `{"jsonrpc":"2.0","id":3,"method":"resources/read","params":{"uri":"system-card://nonexistent"}}`, jsonrpc.ErrorCodeInvalidParams},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			th.send(tc.line)
			res := th.recv()
			require.NotNil(t, res.Error)
			assert.Equal(t, tc.code, res.Error.Code)
		})
	}
}

func TestServeReturnsOnEOF(t *testing.T) {
	th := newHarness(t, newServer(t))
	require.NoError(t, th.stdinW.Close())

	select {
	case err := <-th.done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return on EOF")
	}
}

func TestServeCancel(t *testing.T) {
	inR, _ := io.Pipe()
	h := NewHandler(newServer(t), WithIO(inR, io.Discard))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Serve(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return on cancel")
	}
}

func TestServeRejectsOversizedLine(t *testing.T) {
	in := strings.NewReader(`{"jsonrpc":"2.0","id":"` + strings.Repeat("x", 256) + `","method":"resources/list"}` + "\n")
	h := NewHandler(newServer(t), WithIO(in, io.Discard), WithMaxMessageBytes(64))
	assert.Error(t, h.Serve(context.Background()))
}

func TestServeRequiresServer(t *testing.T) {
	h := NewHandler(nil, WithIO(strings.NewReader(""), io.Discard))
	assert.Error(t, h.Serve(context.Background()))
}
