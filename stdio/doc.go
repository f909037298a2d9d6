// Package stdio implements a minimal single-connection MCP transport over
// stdin/stdout. It serves the same dispatcher as the BLE link and is intended
// for local development, CI, and host-side bridges where spawning a child
// process and piping JSON is simpler than attaching a radio.
//
// Characteristics
//
//	Connection model : 1 process <-> 1 client
//	Framing          : newline-delimited JSON-RPC
//	Ordering         : one message at a time, in arrival order
//	Notifications    : acknowledged silently (nothing written)
//
// Options allow supplying alternate io.Reader / io.Writer or a custom logger.
//
// Example:
//
//	srv := mcpservice.NewServer(
//	    mcpservice.WithServerInfo(mcp.ImplementationInfo{Name: "my-stdio-server", Version: "0.1.0"}),
//	    mcpservice.WithTools(tools...),
//	)
//	h := stdio.NewHandler(srv)
//	if err := h.Serve(context.Background()); err != nil { log.Fatal(err) }
package stdio
