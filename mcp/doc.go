// Package mcp contains the Model Context Protocol data types exchanged over
// the link: method names, the initialize handshake, tool descriptors and
// call results, plus SchemaNode, the compact JSON Schema subset used to
// describe tool input and output.
//
// The package is free of transport logic. The link package moves bytes,
// internal/engine decodes JSON-RPC and builds these values, and mcpservice
// owns the tool registry that produces Tool descriptors.
//
// # Schemas
//
// SchemaNode serializes only the members that are populated, which keeps
// tools/list responses small enough to cross a 23-byte MTU link in a
// reasonable number of frames. AdditionalProperties is a *bool so that
// "unset" and "false" stay distinct.
//
// Example:
//
//	in := mcp.SchemaNode{
//	    Type:       "object",
//	    Properties: map[string]mcp.SchemaNode{"pin": {Type: "integer"}},
//	    Required:   []string{"pin"},
//	}
//	fmt.Println(in) // {"type":"object","properties":{"pin":{"type":"integer"}},"required":["pin"]}
//
// # Compatibility
//
// LatestProtocolVersion is the protocol revision this server advertises in
// its initialize result.
package mcp
