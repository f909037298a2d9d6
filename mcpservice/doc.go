// Package mcpservice provides the server side building blocks consumed by the
// dispatcher: server identity, the tool registry and helpers for declaring
// tools with reflected schemas.
//
// Quick start:
//
//	type AddArgs struct {
//	    A int `json:"a"`
//	    B int `json:"b"`
//	}
//	srv := mcpservice.NewServer(
//	    mcpservice.WithServerInfo(mcp.ImplementationInfo{Name: "sensor-node", Version: "0.1.0"}),
//	    mcpservice.WithTools(
//	        mcpservice.Tool{
//	            Name:        "echo",
//	            InputSchema: mcp.SchemaNode{Type: "string"},
//	            Handler: mcpservice.ToolHandlerFunc(func(ctx context.Context, args json.RawMessage) (any, error) {
//	                return args, nil
//	            }),
//	        },
//	        mcpservice.NewTool("add", func(ctx context.Context, a AddArgs) (any, error) {
//	            return a.A + a.B, nil
//	        }, mcpservice.WithToolDescription("Add two integers")),
//	    ),
//	)
//
// Registration is last-write-wins by name and is expected to happen before
// the server starts serving. tools/list output is ordered by tool name so
// repeated listings are byte-identical.
//
// Handler results are serialized to JSON and returned as the text of a single
// content block. A handler error becomes a result with isError=true; protocol
// errors are reserved for unknown tools, missing handlers and, when
// WithArgumentValidation is set, arguments rejected by the input schema.
package mcpservice
