package mcpservice

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"sync"

	"github.com/ggoodman/mcp-ble-go/internal/validation"
	"github.com/ggoodman/mcp-ble-go/mcp"
	"github.com/google/jsonschema-go/jsonschema"
)

// ToolsContainer is the tool registry: a name-keyed set of tools with their
// handlers. Tools are meant to be registered during setup, before serving
// begins; lookups are safe for concurrent use.
type ToolsContainer struct {
	mu       sync.RWMutex
	tools    map[string]Tool
	log      *slog.Logger
	validate bool

	// resolved input schemas, built lazily when validation is enabled
	resolved map[string]*jsonschema.Resolved
}

// NewToolsContainer constructs a new ToolsContainer with the given tool definitions.
func NewToolsContainer(defs ...Tool) *ToolsContainer {
	st := &ToolsContainer{
		tools:    make(map[string]Tool, len(defs)),
		resolved: make(map[string]*jsonschema.Resolved),
		log:      slog.Default().With(slog.String("component", "registry")),
	}
	for _, d := range defs {
		st.Register(d)
	}
	return st
}

// SetLogger overrides the registry logger.
func (st *ToolsContainer) SetLogger(l *slog.Logger) {
	if l == nil {
		return
	}
	st.mu.Lock()
	st.log = l.With(slog.String("component", "registry"))
	st.mu.Unlock()
}

// SetArgumentValidation enables validation of tools/call arguments against
// each tool's input schema.
func (st *ToolsContainer) SetArgumentValidation(enabled bool) {
	st.mu.Lock()
	st.validate = enabled
	st.mu.Unlock()
}

// Register inserts tool, replacing any tool with the same name. The schemas
// are deep-copied so later changes by the caller do not affect the registry,
// and normalized; a malformed schema is logged but still registered.
func (st *ToolsContainer) Register(tool Tool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	_, replaced := st.tools[tool.Name]
	tool = tool.clone()
	if err := validation.SchemaNode(&tool.InputSchema); err != nil {
		st.log.Warn("registry.input_schema_invalid", slog.String("tool", tool.Name), slog.String("err", err.Error()))
	}
	if !tool.OutputSchema.IsZero() {
		if err := validation.SchemaNode(&tool.OutputSchema); err != nil {
			st.log.Warn("registry.output_schema_invalid", slog.String("tool", tool.Name), slog.String("err", err.Error()))
		}
	}
	// last write wins on duplicate names
	st.tools[tool.Name] = tool
	delete(st.resolved, tool.Name)
	st.log.Info("registry.tool_registered",
		slog.String("tool", tool.Name),
		slog.Bool("replaced", replaced),
		slog.Bool("has_handler", tool.Handler != nil))
}

// Lookup returns the tool registered under name.
func (st *ToolsContainer) Lookup(name string) (Tool, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	t, ok := st.tools[name]
	return t, ok
}

// Len reports the number of registered tools.
func (st *ToolsContainer) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.tools)
}

// Snapshot returns the descriptors of all tools ordered by name. The result is
// never nil.
func (st *ToolsContainer) Snapshot() []mcp.Tool {
	st.mu.RLock()
	defer st.mu.RUnlock()
	out := make([]mcp.Tool, 0, len(st.tools))
	for _, t := range st.tools {
		out = append(out, t.Descriptor())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// --- ToolsCapability implementation ---

// ListTools implements ToolsCapability.
func (st *ToolsContainer) ListTools(ctx context.Context) ([]mcp.Tool, error) {
	return st.Snapshot(), nil
}

// LookupTool implements ToolsCapability.
func (st *ToolsContainer) LookupTool(ctx context.Context, name string) (Tool, bool) {
	return st.Lookup(name)
}

// ValidateArguments implements ToolsCapability. It is a no-op unless argument
// validation was enabled.
func (st *ToolsContainer) ValidateArguments(ctx context.Context, tool Tool, args json.RawMessage) error {
	st.mu.RLock()
	enabled := st.validate
	rs := st.resolved[tool.Name]
	st.mu.RUnlock()
	if !enabled {
		return nil
	}
	if rs == nil {
		var err error
		if rs, err = compileSchema(tool.InputSchema); err != nil {
			return err
		}
		st.mu.Lock()
		st.resolved[tool.Name] = rs
		st.mu.Unlock()
	}
	return validateArgs(rs, tool.InputSchema.Type, args)
}
