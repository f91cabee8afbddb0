package mcp

// Capabilities
// ResourcesCapability describes the optional resource features a server
// supports.
type ResourcesCapability struct {
	Subscribe   bool `json:"subscribe"`
	ListChanged bool `json:"listChanged"`
}

// ServerCapabilities advertises server features.
type ServerCapabilities struct {
	Resources *ResourcesCapability `json:"resources,omitempty"`
}

// ImplementationInfo describes the implementation name and version.
type ImplementationInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Resources
// Resource represents an addressable resource.
type Resource struct {
	URI         string `json:"uri"`
	Name        string `json:"name"`
	Description string `json:"description,omitzero"`
	MimeType    string `json:"mimeType,omitzero"`
}

// ResourceContents is the value of a resource read.
type ResourceContents struct {
	URI      string `json:"uri"`
	MimeType string `json:"mimeType,omitzero"`
	Text     string `json:"text"`
}

// MIME types used by resource contents.
const (
	MimeTypeText = "text/plain"
	MimeTypeJSON = "application/json"
)

// ProtocolVersion is the protocol revision reported by initialize.
const ProtocolVersion = "2024-11-05"

// ProtocolVersionHeader is the HTTP header clients use to announce the
// protocol revision they speak.
const ProtocolVersionHeader = "MCP-Protocol-Version"
