package ble

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/ggoodman/mcp-ble-go/mcpservice"
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

type addArgs struct {
	A float64 `json:"a" jsonschema:"description=first addend"`
	B float64 `json:"b" jsonschema:"description=second addend"`
}

// decodeResult unmarshals the result member of a response into v using the
// reference SDK types.
func decodeResult(t *testing.T, raw string, v any) {
	t.Helper()
	var env struct {
		Result json.RawMessage `json:"result"`
		Error  json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		t.Fatalf("decode envelope: %v\n%s", err, raw)
	}
	if env.Error != nil {
		t.Fatalf("unexpected error response %s", raw)
	}
	if err := json.Unmarshal(env.Result, v); err != nil {
		t.Fatalf("decode result into %T: %v\n%s", v, err, env.Result)
	}
}

func TestSDKClientTypesDecodeResponses(t *testing.T) {
	add := mcpservice.NewTool("add", func(ctx context.Context, a addArgs) (any, error) {
		return a.A + a.B, nil
	}, mcpservice.WithToolDescription("adds two numbers"))
	th := newHarness(t, 185, mcpservice.WithTools(echoTool(), add))
	th.h.Connected()

	th.send(`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","capabilities":{},"clientInfo":{"name":"sdk","version":"0"}}}`)
	th.send(`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`)
	th.send(`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"add","arguments":{"a":1,"b":2}}}`)
	got := th.waitResponses(3)

	var init sdk.InitializeResult
	decodeResult(t, got[0], &init)
	if init.ProtocolVersion != "2024-11-05" || init.ServerInfo == nil || init.ServerInfo.Name != "ESP32-MCP-BLE" {
		t.Fatalf("unexpected initialize result %+v", init)
	}
	if init.Capabilities == nil || init.Capabilities.Tools == nil || init.Capabilities.Tools.ListChanged {
		t.Fatalf("tools capability should be declared without listChanged: %s", got[0])
	}

	var list sdk.ListToolsResult
	decodeResult(t, got[1], &list)
	if len(list.Tools) != 2 || list.Tools[0].Name != "add" || list.Tools[1].Name != "echo" {
		t.Fatalf("unexpected tools %s", got[1])
	}
	if list.Tools[0].Description != "adds two numbers" {
		t.Fatalf("unexpected add description %q", list.Tools[0].Description)
	}

	var call sdk.CallToolResult
	decodeResult(t, got[2], &call)
	if call.IsError || len(call.Content) != 1 {
		t.Fatalf("unexpected call result %s", got[2])
	}
	text, ok := call.Content[0].(*sdk.TextContent)
	if !ok || text.Text != "3" {
		t.Fatalf("expected text content \"3\", got %s", got[2])
	}
}
