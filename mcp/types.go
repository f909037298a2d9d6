package mcp

// LatestProtocolVersion is the protocol revision advertised during initialize.
const LatestProtocolVersion = "2024-11-05"

// ContentTypeText is the type of a plain text content block.
const ContentTypeText = "text"

// Capabilities
// ServerCapabilities advertises server features. Experimental is always
// present (as an empty object) on this server.
type ServerCapabilities struct {
	Experimental *struct{} `json:"experimental,omitempty"`
	Tools        *struct {
		ListChanged bool `json:"listChanged"`
	} `json:"tools,omitempty"`
}

// ImplementationInfo describes the implementation name and version.
type ImplementationInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Content types
// ContentBlock is a typed content part of a message.
type ContentBlock struct {
	Type string `json:"type"`
	// For TextContent
	Text string `json:"text"`
}

// Tools
// Tool describes a callable tool and its schemas as they appear in
// tools/list.
type Tool struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	InputSchema SchemaNode `json:"inputSchema"`
	// OutputSchema optionally declares the structure of the tool's result.
	OutputSchema *SchemaNode `json:"outputSchema,omitempty"`
}
