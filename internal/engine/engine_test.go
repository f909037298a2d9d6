package engine

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/ggoodman/mcp-ble-go/internal/jsonrpc"
	"github.com/ggoodman/mcp-ble-go/mcp"
	"github.com/ggoodman/mcp-ble-go/mcpservice"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEngine(t *testing.T, opts ...mcpservice.ServerOption) *Engine {
	t.Helper()
	opts = append([]mcpservice.ServerOption{mcpservice.WithLogger(quietLogger())}, opts...)
	return NewEngine(mcpservice.NewServer(opts...), WithLogger(quietLogger()))
}

func echoTool() mcpservice.Tool {
	return mcpservice.Tool{
		Name:        "echo",
		InputSchema: mcp.SchemaNode{Type: "string"},
		Handler: mcpservice.ToolHandlerFunc(func(ctx context.Context, args json.RawMessage) (any, error) {
			return args, nil
		}),
	}
}

func process(t *testing.T, e *Engine, raw string) (string, int) {
	t.Helper()
	out, status, err := e.Process(context.Background(), []byte(raw))
	if err != nil {
		t.Fatalf("Process(%s): %v", raw, err)
	}
	return string(out), status
}

func decodeResponse(t *testing.T, raw string) map[string]json.RawMessage {
	t.Helper()
	var m map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		t.Fatalf("response is not JSON: %v\n%s", err, raw)
	}
	return m
}

func errorOf(t *testing.T, raw string) jsonrpc.Error {
	t.Helper()
	m := decodeResponse(t, raw)
	if _, ok := m["result"]; ok {
		t.Fatalf("expected error response, got %s", raw)
	}
	var e jsonrpc.Error
	if err := json.Unmarshal(m["error"], &e); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	return e
}

func TestEchoToolCall(t *testing.T) {
	e := newTestEngine(t, mcpservice.WithTools(echoTool()))
	got, status := process(t, e, `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"echo","arguments":"hi"}}`)
	want := `{"jsonrpc":"2.0","id":1,"result":{"content":[{"type":"text","text":"\"hi\""}]}}`
	if got != want {
		t.Fatalf("got  %s\nwant %s", got, want)
	}
	if status != http.StatusOK {
		t.Fatalf("expected status 200, got %d", status)
	}
}

func TestToolsListEmpty(t *testing.T) {
	e := newTestEngine(t)
	got, _ := process(t, e, `{"method":"tools/list"}`)
	want := `{"jsonrpc":"2.0","id":null,"result":{"tools":[]}}`
	if got != want {
		t.Fatalf("got  %s\nwant %s", got, want)
	}
}

func TestToolsListIsIdempotent(t *testing.T) {
	e := newTestEngine(t, mcpservice.WithTools(
		echoTool(),
		mcpservice.Tool{Name: "add", Description: "sum", InputSchema: mcp.SchemaNode{
			Type:       "object",
			Properties: map[string]mcp.SchemaNode{"a": {Type: "number"}, "b": {Type: "number"}},
			Required:   []string{"a", "b"},
		}},
	))
	req := `{"jsonrpc":"2.0","id":"l","method":"tools/list"}`
	first, _ := process(t, e, req)
	second, _ := process(t, e, req)
	if first != second {
		t.Fatalf("tools/list not stable:\n%s\n%s", first, second)
	}
	if !strings.Contains(first, `{"name":"echo","description":"","inputSchema":{"type":"string"}}`) {
		t.Fatalf("echo descriptor missing: %s", first)
	}
	if strings.Index(first, `"add"`) > strings.Index(first, `"echo"`) {
		t.Fatalf("tools should be ordered by name: %s", first)
	}
}

func TestInitialize(t *testing.T) {
	e := newTestEngine(t)
	got, status := process(t, e, `{"jsonrpc":"2.0","id":null,"method":"initialize","params":{"protocolVersion":"2024-11-05","clientInfo":{"name":"c","version":"1"}}}`)
	want := `{"jsonrpc":"2.0","id":null,"result":{"protocolVersion":"2024-11-05","capabilities":{"experimental":{},"tools":{"listChanged":false}},"serverInfo":{"name":"ESP32-MCP-BLE","version":"1.0.0"}}}`
	if got != want {
		t.Fatalf("got  %s\nwant %s", got, want)
	}
	if status != http.StatusOK {
		t.Fatalf("expected status 200, got %d", status)
	}
}

func TestInitializeWithOverrides(t *testing.T) {
	e := newTestEngine(t,
		mcpservice.WithServerInfo(mcp.ImplementationInfo{Name: "bench-node", Version: "2.1"}),
		mcpservice.WithProtocolVersion("2025-06-18"),
		mcpservice.WithInstructions("call echo"),
	)
	got, _ := process(t, e, `{"jsonrpc":"2.0","id":"init","method":"initialize"}`)
	var resp struct {
		ID     string               `json:"id"`
		Result mcp.InitializeResult `json:"result"`
	}
	if err := json.Unmarshal([]byte(got), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	r := resp.Result
	if resp.ID != "init" || r.ProtocolVersion != "2025-06-18" || r.ServerInfo.Name != "bench-node" || r.Instructions != "call echo" {
		t.Fatalf("unexpected initialize result %s", got)
	}
}

func TestInitializedNotificationAck(t *testing.T) {
	e := newTestEngine(t)
	got, status := process(t, e, `{"jsonrpc":"2.0","method":"notifications/initialized"}`)
	if got != `{"jsonrpc":"2.0","id":null,"result":{}}` {
		t.Fatalf("unexpected ack %s", got)
	}
	if status != http.StatusAccepted {
		t.Fatalf("expected status 202, got %d", status)
	}
}

func TestDispatchErrors(t *testing.T) {
	missing := mcpservice.Tool{Name: "ghost", InputSchema: mcp.SchemaNode{Type: "object"}}
	e := newTestEngine(t, mcpservice.WithTools(echoTool(), missing))

	cases := []struct {
		name string
		req  string
		code jsonrpc.ErrorCode
		msg  string
	}{
		{"parse error", `{not json`, jsonrpc.ErrorCodeParseError, "Parse error: Invalid JSON"},
		{"empty input", ``, jsonrpc.ErrorCodeParseError, "Parse error: Invalid JSON"},
		{"no method", `{"jsonrpc":"2.0","id":3}`, jsonrpc.ErrorCodeParseError, "Parse error: Invalid JSON"},
		{"unknown method", `{"jsonrpc":"2.0","id":4,"method":"resources/list"}`, jsonrpc.ErrorCodeMethodNotFound, "Method not found: resources/list"},
		{"call without params", `{"jsonrpc":"2.0","id":5,"method":"tools/call"}`, jsonrpc.ErrorCodeInvalidParams, "Missing or invalid 'name' parameter"},
		{"call with numeric name", `{"jsonrpc":"2.0","id":6,"method":"tools/call","params":{"name":7}}`, jsonrpc.ErrorCodeInvalidParams, "Missing or invalid 'name' parameter"},
		{"call unknown tool", `{"jsonrpc":"2.0","id":7,"method":"tools/call","params":{"name":"nope"}}`, jsonrpc.ErrorCodeMethodNotFound, "Method not supported: nope"},
		{"call empty name", `{"jsonrpc":"2.0","id":8,"method":"tools/call","params":{"name":""}}`, jsonrpc.ErrorCodeMethodNotFound, "Method not supported: "},
		{"call without handler", `{"jsonrpc":"2.0","id":9,"method":"tools/call","params":{"name":"ghost"}}`, jsonrpc.ErrorCodeInternalError, "Tool handler not initialized: ghost"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, _ := process(t, e, tc.req)
			rpcErr := errorOf(t, got)
			if rpcErr.Code != tc.code || rpcErr.Message != tc.msg {
				t.Fatalf("got (%d, %q), want (%d, %q)", rpcErr.Code, rpcErr.Message, tc.code, tc.msg)
			}
		})
	}
}

func TestErrorEchoesID(t *testing.T) {
	e := newTestEngine(t)
	got, _ := process(t, e, `{"jsonrpc":"2.0","id":"abc","method":"bogus"}`)
	want := `{"jsonrpc":"2.0","id":"abc","error":{"code":-32601,"message":"Method not found: bogus"}}`
	if got != want {
		t.Fatalf("got  %s\nwant %s", got, want)
	}
}

func TestNonStringVersionStillDispatches(t *testing.T) {
	e := newTestEngine(t)
	got, _ := process(t, e, `{"jsonrpc":2,"id":5,"method":"tools/list"}`)
	want := `{"jsonrpc":"2.0","id":5,"result":{"tools":[]}}`
	if got != want {
		t.Fatalf("got  %s\nwant %s", got, want)
	}

	got, _ = process(t, e, `{"jsonrpc":"2.0","id":6,"method":7}`)
	want = `{"jsonrpc":"2.0","id":6,"error":{"code":-32700,"message":"Parse error: Invalid JSON"}}`
	if got != want {
		t.Fatalf("got  %s\nwant %s", got, want)
	}
}

func TestToolCallNullArguments(t *testing.T) {
	var seen json.RawMessage
	tool := mcpservice.Tool{
		Name: "inspect",
		Handler: mcpservice.ToolHandlerFunc(func(ctx context.Context, args json.RawMessage) (any, error) {
			seen = args
			return map[string]int{"n": 1}, nil
		}),
	}
	e := newTestEngine(t, mcpservice.WithTools(tool))
	got, _ := process(t, e, `{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"inspect"}}`)
	if len(seen) != 0 {
		t.Fatalf("expected absent arguments, got %s", seen)
	}
	want := `{"jsonrpc":"2.0","id":2,"result":{"content":[{"type":"text","text":"{\"n\":1}"}]}}`
	if got != want {
		t.Fatalf("got  %s\nwant %s", got, want)
	}
}

func TestToolCallHandlerErrorIsToolResult(t *testing.T) {
	tool := mcpservice.Tool{
		Name: "fail",
		Handler: mcpservice.ToolHandlerFunc(func(ctx context.Context, args json.RawMessage) (any, error) {
			return nil, errors.New("sensor offline")
		}),
	}
	e := newTestEngine(t, mcpservice.WithTools(tool))
	got, _ := process(t, e, `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"fail"}}`)
	want := `{"jsonrpc":"2.0","id":1,"result":{"content":[{"type":"text","text":"sensor offline"}],"isError":true}}`
	if got != want {
		t.Fatalf("got  %s\nwant %s", got, want)
	}
}

func TestToolCallUnserializableResult(t *testing.T) {
	tool := mcpservice.Tool{
		Name: "chan",
		Handler: mcpservice.ToolHandlerFunc(func(ctx context.Context, args json.RawMessage) (any, error) {
			return make(chan int), nil
		}),
	}
	e := newTestEngine(t, mcpservice.WithTools(tool))
	got, _ := process(t, e, `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"chan"}}`)
	if rpcErr := errorOf(t, got); rpcErr.Code != jsonrpc.ErrorCodeInternalError {
		t.Fatalf("expected internal error, got %+v", rpcErr)
	}
}

func TestToolCallArgumentValidation(t *testing.T) {
	e := newTestEngine(t, mcpservice.WithTools(echoTool()), mcpservice.WithArgumentValidation())

	got, _ := process(t, e, `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"echo","arguments":42}}`)
	rpcErr := errorOf(t, got)
	if rpcErr.Code != jsonrpc.ErrorCodeInvalidParams || !strings.Contains(rpcErr.Message, "invalid arguments") {
		t.Fatalf("expected invalid params, got %+v", rpcErr)
	}

	got, _ = process(t, e, `{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"echo","arguments":"ok"}}`)
	if !strings.Contains(got, `"text":"\"ok\""`) {
		t.Fatalf("valid call rejected: %s", got)
	}
}

func TestTypedToolCall(t *testing.T) {
	type addArgs struct {
		A float64 `json:"a"`
		B float64 `json:"b"`
	}
	add := mcpservice.NewTool("add", func(ctx context.Context, a addArgs) (any, error) {
		return a.A + a.B, nil
	})
	e := newTestEngine(t, mcpservice.WithTools(add))
	got, _ := process(t, e, `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"add","arguments":{"a":2,"b":3.5}}}`)
	want := `{"jsonrpc":"2.0","id":1,"result":{"content":[{"type":"text","text":"5.5"}]}}`
	if got != want {
		t.Fatalf("got  %s\nwant %s", got, want)
	}
}

func TestServeSuppressesAcks(t *testing.T) {
	e := newTestEngine(t)
	var written []string
	w := MessageWriterFunc(func(ctx context.Context, msg []byte) error {
		written = append(written, string(msg))
		return nil
	})
	ctx := context.Background()
	if err := e.Serve(ctx, []byte(`{"method":"notifications/initialized"}`), w, false); err != nil {
		t.Fatalf("Serve: %v", err)
	}
	if len(written) != 0 {
		t.Fatalf("ack should be suppressed, got %v", written)
	}
	if err := e.Serve(ctx, []byte(`{"method":"notifications/initialized"}`), w, true); err != nil {
		t.Fatalf("Serve: %v", err)
	}
	if err := e.Serve(ctx, []byte(`{"id":1,"method":"tools/list"}`), w, false); err != nil {
		t.Fatalf("Serve: %v", err)
	}
	if len(written) != 2 {
		t.Fatalf("expected ack and list response, got %v", written)
	}
}

func TestServeReturnsWriterError(t *testing.T) {
	e := newTestEngine(t)
	boom := errors.New("link down")
	w := MessageWriterFunc(func(ctx context.Context, msg []byte) error { return boom })
	if err := e.Serve(context.Background(), []byte(`{"id":1,"method":"tools/list"}`), w, false); !errors.Is(err, boom) {
		t.Fatalf("expected writer error, got %v", err)
	}
}

func TestEngineIDUnique(t *testing.T) {
	a, b := newTestEngine(t), newTestEngine(t)
	if a.ID() == "" || a.ID() == b.ID() {
		t.Fatalf("engine ids should be unique: %q %q", a.ID(), b.ID())
	}
}
