package mcpservice

import (
	"context"
	"encoding/json"

	"github.com/ggoodman/mcp-ble-go/mcp"
)

// ServerCapabilities is what the dispatcher needs from a server: identity for
// the initialize result and the tools capability.
//
// Conventions:
//   - Capability discovery methods return (cap, ok, err). A false ok indicates
//     that the capability is not supported; err is reserved for unexpected
//     failures while determining support.
//   - Implementations MUST be safe for concurrent use.
type ServerCapabilities interface {
	// GetServerInfo returns the name and version surfaced in initialize
	// results.
	GetServerInfo(ctx context.Context) (mcp.ImplementationInfo, error)

	// GetPreferredProtocolVersion returns the protocol revision advertised in
	// the initialize result. If ok is false, mcp.LatestProtocolVersion is used.
	GetPreferredProtocolVersion(ctx context.Context) (version string, ok bool, err error)

	// GetInstructions returns optional human-readable instructions. If ok is
	// false, no instructions are included in the initialize result.
	GetInstructions(ctx context.Context) (instructions string, ok bool, err error)

	// GetToolsCapability returns the tools capability. If ok is false,
	// tools/list returns an empty list and every tools/call is unknown.
	GetToolsCapability(ctx context.Context) (cap ToolsCapability, ok bool, err error)
}

// ToolsCapability exposes the tool registry to the dispatcher.
type ToolsCapability interface {
	// ListTools returns every tool descriptor in a stable order.
	ListTools(ctx context.Context) ([]mcp.Tool, error)

	// LookupTool returns the tool registered under name.
	LookupTool(ctx context.Context, name string) (Tool, bool)

	// ValidateArguments checks args against the tool's input schema. Errors
	// wrapping ErrInvalidArguments are reported as invalid params.
	ValidateArguments(ctx context.Context, tool Tool, args json.RawMessage) error
}
