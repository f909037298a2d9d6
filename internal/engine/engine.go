package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ggoodman/mcp-ble-go/internal/jsonrpc"
	"github.com/ggoodman/mcp-ble-go/internal/logctx"
	"github.com/ggoodman/mcp-ble-go/mcp"
	"github.com/ggoodman/mcp-ble-go/mcpservice"
	"github.com/google/uuid"
)

var ErrInternal = errors.New("internal error")

// Engine dispatches MCP JSON-RPC requests to a ServerCapabilities
// implementation. It is stateless across requests: every message is parsed,
// handled and serialized on its own. The engine does no I/O; transports feed
// it raw messages and send back what Process returns.
type Engine struct {
	srv mcpservice.ServerCapabilities
	log *slog.Logger
	id  string // process-unique engine ID for log correlation
}

// EngineOption configures a Engine.
type EngineOption func(*Engine)

// WithLogger sets a custom logger for the Engine.
func WithLogger(l *slog.Logger) EngineOption {
	return func(m *Engine) {
		if l != nil {
			m.log = l
		}
	}
}

func NewEngine(srv mcpservice.ServerCapabilities, opts ...EngineOption) *Engine {
	e := &Engine{
		srv: srv,
		log: slog.Default(),
		id:  uuid.NewString(),
	}

	// Apply options (order matters; later options override earlier ones).
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	e.log = e.log.With(slog.String("component", "engine"), slog.String("engine_id", e.id))
	return e
}

// ID returns the engine's process-unique identifier.
func (e *Engine) ID() string { return e.id }

// Parse decodes a raw message. Malformed input yields a Request with an empty
// Method, which HandleRequest answers with a parse error.
func (e *Engine) Parse(raw []byte) *jsonrpc.Request {
	return jsonrpc.ParseRequest(raw)
}

// Serialize encodes a response for the wire.
func (e *Engine) Serialize(resp *jsonrpc.Response) ([]byte, error) {
	if resp == nil {
		return nil, fmt.Errorf("serialize: %w", ErrInternal)
	}
	b, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("serialize response: %w", err)
	}
	return b, nil
}

// Process runs parse, handle and serialize for one raw message and returns
// the encoded response with its status hint.
func (e *Engine) Process(ctx context.Context, raw []byte) ([]byte, int, error) {
	req := e.Parse(raw)
	resp := e.HandleRequest(ctx, req)
	out, err := e.Serialize(resp)
	if err != nil {
		e.log.ErrorContext(ctx, "engine.serialize.fail", slog.String("err", err.Error()))
		return nil, 0, err
	}
	return out, resp.StatusHint, nil
}

// HandleRequest produces exactly one response for req. JSON-RPC failures are
// carried in the response, never returned as Go errors.
func (e *Engine) HandleRequest(ctx context.Context, req *jsonrpc.Request) *jsonrpc.Response {
	start := time.Now()
	msgType := "request"
	if req.IsNotification() {
		msgType = "notification"
	}
	ctx = logctx.WithRPCMessage(ctx, &logctx.RPCMessage{
		Method: req.Method,
		ID:     req.ID.String(),
		Type:   msgType,
	})

	var resp *jsonrpc.Response
	switch mcp.Method(req.Method) {
	case "":
		e.log.InfoContext(ctx, "engine.handle_request.parse_error")
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeParseError, "Parse error: Invalid JSON", nil)
	case mcp.InitializeMethod:
		resp = e.handleInitialize(ctx, req)
	case mcp.InitializedNotificationMethod:
		e.log.InfoContext(ctx, "engine.client_initialized")
		resp = jsonrpc.NewAckResponse(req.ID)
	case mcp.ToolsListMethod:
		resp = e.handleToolsList(ctx, req)
	case mcp.ToolsCallMethod:
		resp = e.handleToolCall(ctx, req)
	default:
		e.log.InfoContext(ctx, "engine.handle_request.unknown_method")
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeMethodNotFound, "Method not found: "+req.Method, nil)
	}

	if resp.Error != nil {
		e.log.InfoContext(ctx, "engine.handle_request.error",
			slog.Int("code", int(resp.Error.Code)),
			slog.String("err", resp.Error.Message),
			slog.Int64("dur_ms", time.Since(start).Milliseconds()))
	} else {
		e.log.DebugContext(ctx, "engine.handle_request.ok", slog.Int64("dur_ms", time.Since(start).Milliseconds()))
	}
	return resp
}

func (e *Engine) handleInitialize(ctx context.Context, req *jsonrpc.Request) *jsonrpc.Response {
	info, err := e.srv.GetServerInfo(ctx)
	if err != nil {
		e.log.ErrorContext(ctx, "engine.handle_request.fail", slog.String("err", err.Error()))
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInternalError, "internal error", nil)
	}
	version, ok, err := e.srv.GetPreferredProtocolVersion(ctx)
	if err != nil {
		e.log.ErrorContext(ctx, "engine.handle_request.fail", slog.String("err", err.Error()))
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInternalError, "internal error", nil)
	}
	if !ok || version == "" {
		version = mcp.LatestProtocolVersion
	}
	instructions, _, err := e.srv.GetInstructions(ctx)
	if err != nil {
		e.log.ErrorContext(ctx, "engine.handle_request.fail", slog.String("err", err.Error()))
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInternalError, "internal error", nil)
	}

	var params mcp.InitializeRequest
	if len(req.Params) > 0 && json.Unmarshal(req.Params, &params) == nil && params.ClientInfo.Name != "" {
		e.log.InfoContext(ctx, "engine.initialize",
			slog.String("client", params.ClientInfo.Name),
			slog.String("client_version", params.ClientInfo.Version),
			slog.String("requested_protocol", params.ProtocolVersion))
	}

	res := &mcp.InitializeResult{
		ProtocolVersion: version,
		ServerInfo:      info,
		Instructions:    instructions,
	}
	res.Capabilities.Experimental = &struct{}{}
	res.Capabilities.Tools = &struct {
		ListChanged bool `json:"listChanged"`
	}{ListChanged: false}

	return e.result(ctx, req, res)
}

func (e *Engine) handleToolsList(ctx context.Context, req *jsonrpc.Request) *jsonrpc.Response {
	log := e.log.With(slog.String("method", req.Method))

	tools := []mcp.Tool{}
	tc, ok, err := e.srv.GetToolsCapability(ctx)
	if err != nil {
		log.ErrorContext(ctx, "engine.handle_request.fail", slog.String("err", err.Error()))
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInternalError, "internal error", nil)
	}
	if ok && tc != nil {
		listed, err := tc.ListTools(ctx)
		if err != nil {
			log.ErrorContext(ctx, "engine.handle_request.fail", slog.String("err", err.Error()))
			return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInternalError, "internal error", nil)
		}
		if listed != nil {
			tools = listed
		}
	}
	return e.result(ctx, req, &mcp.ListToolsResult{Tools: tools})
}

// callParams keeps name as a pointer so that a missing name and a non-string
// name are both reported as invalid params.
type callParams struct {
	Name      *string         `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

func (e *Engine) handleToolCall(ctx context.Context, req *jsonrpc.Request) *jsonrpc.Response {
	start := time.Now()
	log := e.log.With(slog.String("method", req.Method))

	var params callParams
	if len(req.Params) == 0 || json.Unmarshal(req.Params, &params) != nil || params.Name == nil {
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInvalidParams, "Missing or invalid 'name' parameter", nil)
	}
	name := *params.Name

	ctx = logctx.WithToolCallData(ctx, &logctx.ToolCallData{ToolName: name})

	tc, ok, err := e.srv.GetToolsCapability(ctx)
	if err != nil {
		log.ErrorContext(ctx, "engine.handle_request.fail", slog.String("err", err.Error()))
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInternalError, "internal error", nil)
	}
	var tool mcpservice.Tool
	if ok && tc != nil {
		tool, ok = tc.LookupTool(ctx, name)
	}
	if !ok {
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeMethodNotFound, "Method not supported: "+name, nil)
	}
	if tool.Handler == nil {
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInternalError, "Tool handler not initialized: "+name, nil)
	}

	if err := tc.ValidateArguments(ctx, tool, params.Arguments); err != nil {
		if errors.Is(err, mcpservice.ErrInvalidArguments) {
			return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInvalidParams, err.Error(), nil)
		}
		log.ErrorContext(ctx, "engine.handle_request.fail", slog.String("err", err.Error()))
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInternalError, "internal error", nil)
	}

	out, err := tool.Handler.Call(ctx, params.Arguments)
	var res *mcp.CallToolResult
	if err != nil {
		log.InfoContext(ctx, "engine.tool_call.error", slog.String("err", err.Error()), slog.Int64("dur_ms", time.Since(start).Milliseconds()))
		res = mcpservice.Errorf("%v", err)
	} else if res, err = mcpservice.ResultFromValue(out); err != nil {
		log.ErrorContext(ctx, "engine.handle_request.fail", slog.String("err", err.Error()))
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInternalError, "internal error", nil)
	}

	log.DebugContext(ctx, "engine.tool_call.ok", slog.Int64("dur_ms", time.Since(start).Milliseconds()))
	return e.result(ctx, req, res)
}

func (e *Engine) result(ctx context.Context, req *jsonrpc.Request, v any) *jsonrpc.Response {
	resp, err := jsonrpc.NewResultResponse(req.ID, v)
	if err != nil {
		e.log.ErrorContext(ctx, "engine.handle_request.fail", slog.String("err", err.Error()))
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInternalError, "internal error", nil)
	}
	return resp
}
