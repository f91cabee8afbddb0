// Package streaminghttp implements the HTTP transport for the system card
// MCP server. It mounts as a standard net/http handler and exchanges one
// JSON-RPC request for one JSON-RPC response per POST.
//
// Routes
//   - POST /mcp: JSON-RPC entry point. Requires the MCP-Protocol-Version header.
//   - GET /mcp: usage hint for browsers.
//   - GET /health: liveness, including whether the system card loaded.
//   - GET /: server identity and advertised security posture.
//
// Construction
//
//	h, err := streaminghttp.New(server,
//	    streaminghttp.WithLogger(log),
//	    streaminghttp.WithMaxBodyBytes(1<<20),
//	)
//
// # Error Handling
//
// Transport-level rejections (missing header, unsupported content type,
// undecodable bodies, internal faults) map to HTTP status codes with a body of
// the form {"error":{"code":<status>,"message":"<reason>"}}. Internal detail
// is logged and never returned. Protocol errors are serialized as JSON-RPC
// error responses with HTTP 200.
//
// # CORS
//
// Every response allows any origin without credentials. Preflight requests
// are answered directly and never reach the route handlers.
package streaminghttp
