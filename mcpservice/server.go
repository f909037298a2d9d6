package mcpservice

import (
	"context"
	"log/slog"

	"github.com/ggoodman/mcp-ble-go/mcp"
)

const (
	// DefaultServerName is advertised when no server info is configured.
	DefaultServerName = "ESP32-MCP-BLE"
	// DefaultServerVersion is advertised when no server info is configured.
	DefaultServerVersion = "1.0.0"
)

// ServerOption configures a concrete ServerCapabilities implementation.
type ServerOption func(*server)

type server struct {
	info            mcp.ImplementationInfo
	protocolVersion string
	instructions    string

	tools    *ToolsContainer
	validate bool
	log      *slog.Logger
}

// NewServer builds a ServerCapabilities using functional options. Without
// options it advertises DefaultServerName/DefaultServerVersion and an empty
// tool registry.
func NewServer(opts ...ServerOption) ServerCapabilities {
	s := &server{
		info: mcp.ImplementationInfo{Name: DefaultServerName, Version: DefaultServerVersion},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tools == nil {
		s.tools = NewToolsContainer()
	}
	if s.log != nil {
		s.tools.SetLogger(s.log)
	}
	if s.validate {
		s.tools.SetArgumentValidation(true)
	}
	return s
}

// WithServerInfo sets a static server info value.
func WithServerInfo(info mcp.ImplementationInfo) ServerOption {
	return func(s *server) { s.info = info }
}

// WithProtocolVersion overrides the advertised protocol revision.
func WithProtocolVersion(version string) ServerOption {
	return func(s *server) { s.protocolVersion = version }
}

// WithInstructions sets static human-readable instructions returned during initialize.
func WithInstructions(instr string) ServerOption {
	return func(s *server) { s.instructions = instr }
}

// WithToolsContainer serves tools from an existing registry.
func WithToolsContainer(tc *ToolsContainer) ServerOption {
	return func(s *server) { s.tools = tc }
}

// WithTools registers tools into the server's registry, creating it if
// needed.
func WithTools(defs ...Tool) ServerOption {
	return func(s *server) {
		if s.tools == nil {
			s.tools = NewToolsContainer()
		}
		if s.log != nil {
			s.tools.SetLogger(s.log)
		}
		for _, d := range defs {
			s.tools.Register(d)
		}
	}
}

// WithArgumentValidation validates tools/call arguments against each tool's
// input schema before the handler runs.
func WithArgumentValidation() ServerOption {
	return func(s *server) { s.validate = true }
}

// WithLogger sets the logger used by the tool registry.
func WithLogger(l *slog.Logger) ServerOption {
	return func(s *server) { s.log = l }
}

// GetServerInfo implements ServerCapabilities.
func (s *server) GetServerInfo(ctx context.Context) (mcp.ImplementationInfo, error) {
	return s.info, nil
}

// GetPreferredProtocolVersion implements ServerCapabilities.
func (s *server) GetPreferredProtocolVersion(ctx context.Context) (string, bool, error) {
	if s.protocolVersion != "" {
		return s.protocolVersion, true, nil
	}
	return "", false, nil
}

// GetInstructions implements ServerCapabilities.
func (s *server) GetInstructions(ctx context.Context) (string, bool, error) {
	if s.instructions != "" {
		return s.instructions, true, nil
	}
	return "", false, nil
}

// GetToolsCapability implements ServerCapabilities.
func (s *server) GetToolsCapability(ctx context.Context) (ToolsCapability, bool, error) {
	return s.tools, true, nil
}
