// Package mcp contains the protocol data types and constants exchanged by the
// system card server. It mirrors the wire representation of the Model Context
// Protocol subset the server speaks (initialize, resources/list,
// resources/read) while keeping the surface Go-friendly: exported structs
// with json tags and string constants for method names.
//
// The package is free of transport logic. The streaminghttp transport and the
// mcpservice dispatcher import these types and handle framing and error
// mapping themselves.
//
// # Method Names
//
// JSON-RPC method names are enumerated as Method constants (e.g.
// ResourcesReadMethod). Anything else is answered with a method-not-found
// error by the dispatcher.
//
// # Capabilities
//
// ServerCapabilities advertises resource support only. The server is
// read-only and single-document, so Subscribe and ListChanged are always
// false.
//
// # Compatibility
//
// ProtocolVersion is the protocol date reported by initialize. Clients must
// send some value in the MCP-Protocol-Version header on POST requests; the
// value itself is not negotiated.
package mcp
