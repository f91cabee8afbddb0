package mcp

// Method is an MCP method identifier used in JSON-RPC messages.
type Method string

const (
	// Lifecycle
	InitializeMethod Method = "initialize"

	// Resources
	ResourcesListMethod Method = "resources/list"
	ResourcesReadMethod Method = "resources/read"
)

// InitializeRequest starts the MCP initialization handshake. The server does
// not negotiate on its contents; it is decoded leniently for logging only.
type InitializeRequest struct {
	ProtocolVersion string             `json:"protocolVersion,omitzero"`
	ClientInfo      ImplementationInfo `json:"clientInfo,omitzero"`
}

// InitializeResult returns capabilities and server info.
type InitializeResult struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    ServerCapabilities `json:"capabilities"`
	ServerInfo      ImplementationInfo `json:"serverInfo"`
}

// Resources
// ListResourcesResult returns the resource catalog.
type ListResourcesResult struct {
	Resources []Resource `json:"resources"`
}

// ReadResourceResult returns resource contents.
type ReadResourceResult struct {
	Contents []ResourceContents `json:"contents"`
}
