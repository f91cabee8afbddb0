// Package mcpservice implements the JSON-RPC methods of the system card
// server: initialize, resources/list and resources/read.
//
// A Server is built around a loaded document and answers each request
// independently; it keeps no state between calls and is safe for concurrent
// use.
//
//	srv := mcpservice.NewServer(doc,
//	    mcpservice.WithLogger(log),
//	)
//	res, err := srv.Handle(ctx, req)
//
// Handle returns a JSON-RPC envelope for every protocol outcome, including
// protocol errors (unknown method, bad params, unknown resource). A non-nil
// error means an unexpected internal fault that the transport should report
// without leaking detail to the client.
//
// # Resources
//
// The resource set is the fixed catalog in package catalog. Reads resolve the
// URI against the catalog, fetch the matching top-level section from the
// document and serialize it according to the descriptor's MIME type: the
// purpose narrative as plain text, every other section as indented JSON.
// A section that is absent or null yields an invalid-params error; a section
// that is present but empty is returned as-is.
package mcpservice
