package mcpservice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/ggoodman/mcp-ble-go/mcp"
)

// ToolHandler executes a tool invocation. args is the raw "arguments" member
// of the tools/call params and is nil when the caller sent none. The returned
// value is serialized to JSON and carried as the text of the result's single
// content block, unless it is already a *mcp.CallToolResult.
type ToolHandler interface {
	Call(ctx context.Context, args json.RawMessage) (any, error)
}

// ToolHandlerFunc adapts a function to ToolHandler.
type ToolHandlerFunc func(ctx context.Context, args json.RawMessage) (any, error)

func (f ToolHandlerFunc) Call(ctx context.Context, args json.RawMessage) (any, error) {
	return f(ctx, args)
}

// Tool is a registered tool: its descriptor fields plus the handler that
// serves it. A Tool with a nil Handler is listed but cannot be called.
type Tool struct {
	Name         string
	Description  string
	InputSchema  mcp.SchemaNode
	OutputSchema mcp.SchemaNode
	Handler      ToolHandler
}

// Descriptor returns the tools/list form of t. OutputSchema is included only
// when it declares a type.
func (t Tool) Descriptor() mcp.Tool {
	d := mcp.Tool{
		Name:        t.Name,
		Description: t.Description,
		InputSchema: t.InputSchema.Clone(),
	}
	if t.OutputSchema.Type != "" {
		out := t.OutputSchema.Clone()
		d.OutputSchema = &out
	}
	return d
}

func (t Tool) clone() Tool {
	t.InputSchema = t.InputSchema.Clone()
	t.OutputSchema = t.OutputSchema.Clone()
	return t
}

// ToolOption configures NewTool behavior.
type ToolOption func(*toolConfig)

type toolConfig struct {
	description               string
	allowAdditionalProperties bool // default false (strict)
}

// WithToolDescription sets the tool description used in listings.
func WithToolDescription(desc string) ToolOption {
	return func(c *toolConfig) { c.description = desc }
}

// WithToolAllowAdditionalProperties controls whether unknown fields are allowed.
// When false (default), the generated schema sets additionalProperties=false and
// runtime decoding rejects unknown fields.
func WithToolAllowAdditionalProperties(allow bool) ToolOption {
	return func(c *toolConfig) { c.allowAdditionalProperties = allow }
}

// NewTool constructs a Tool from a typed args struct A. The input schema is
// reflected from A and the handler decodes the arguments into A before
// calling fn.
func NewTool[A any](name string, fn func(ctx context.Context, args A) (any, error), opts ...ToolOption) Tool {
	cfg := toolConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	return Tool{
		Name:        name,
		Description: cfg.description,
		InputSchema: ReflectSchema[A](cfg.allowAdditionalProperties),
		Handler: ToolHandlerFunc(func(ctx context.Context, raw json.RawMessage) (any, error) {
			a, res := decodeArgs[A](raw, cfg.allowAdditionalProperties)
			if res != nil {
				return res, nil
			}
			return fn(ctx, a)
		}),
	}
}

// NewToolWithOutput constructs a typed-input, typed-output tool. The output
// schema is reflected from O.
func NewToolWithOutput[A, O any](name string, fn func(ctx context.Context, args A) (O, error), opts ...ToolOption) Tool {
	cfg := toolConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	return Tool{
		Name:         name,
		Description:  cfg.description,
		InputSchema:  ReflectSchema[A](cfg.allowAdditionalProperties),
		OutputSchema: ReflectSchema[O](true),
		Handler: ToolHandlerFunc(func(ctx context.Context, raw json.RawMessage) (any, error) {
			a, res := decodeArgs[A](raw, cfg.allowAdditionalProperties)
			if res != nil {
				return res, nil
			}
			return fn(ctx, a)
		}),
	}
}

// decodeArgs mirrors the strict/lenient decoding policy of the reflected
// schema. A decoding failure is reported as a tool error result.
func decodeArgs[A any](raw json.RawMessage, allowAdditional bool) (A, *mcp.CallToolResult) {
	var a A
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return a, nil
	}
	if allowAdditional {
		if err := json.Unmarshal(raw, &a); err != nil {
			return a, Errorf("invalid arguments: %v", err)
		}
		return a, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&a); err != nil {
		return a, Errorf("invalid arguments: %v", err)
	}
	return a, nil
}

// ResultFromValue converts a handler's return value into a CallToolResult.
// A *mcp.CallToolResult is used as-is; anything else is serialized to JSON
// text.
func ResultFromValue(v any) (*mcp.CallToolResult, error) {
	if res, ok := v.(*mcp.CallToolResult); ok && res != nil {
		if res.Content == nil {
			res.Content = []mcp.ContentBlock{}
		}
		return res, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("serialize tool result: %w", err)
	}
	return TextResult(string(b)), nil
}

// TextResult is a small helper to build a text CallToolResult.
func TextResult(s string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.ContentBlock{{Type: mcp.ContentTypeText, Text: s}}}
}

// Errorf returns an error CallToolResult with a single text block and IsError=true.
func Errorf(format string, a ...any) *mcp.CallToolResult {
	msg := fmt.Sprintf(format, a...)
	return &mcp.CallToolResult{Content: []mcp.ContentBlock{{Type: mcp.ContentTypeText, Text: msg}}, IsError: true}
}
