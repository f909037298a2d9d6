package logctx

import (
	"context"
	"log/slog"
)

// Handler wraps a slog.Handler and adds the link, rpc and tool groups found on
// the record's context.
type Handler struct {
	slog.Handler
}

// New wraps h.
func New(h slog.Handler) Handler {
	return Handler{Handler: h}
}

func (h Handler) Handle(ctx context.Context, r slog.Record) error {
	if lm, ok := ctx.Value(linkMessageKey{}).(*LinkMessage); ok {
		r.AddAttrs(slog.Group("link",
			slog.String("msg_id", lm.ID),
			slog.Int("size", lm.Size),
		))
	}

	if msg, ok := ctx.Value(rpcMsg{}).(*RPCMessage); ok {
		r.AddAttrs(slog.Group("rpc",
			slog.String("method", msg.Method),
			slog.String("id", msg.ID),
			slog.String("type", msg.Type),
		))
	}

	if td, ok := ctx.Value(toolCallDataKey{}).(*ToolCallData); ok {
		r.AddAttrs(slog.Group("tool",
			slog.String("name", td.ToolName),
		))
	}

	return h.Handler.Handle(ctx, r)
}

func (h Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return Handler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h Handler) WithGroup(name string) slog.Handler {
	return Handler{Handler: h.Handler.WithGroup(name)}
}

type rpcMsg struct{}

type RPCMessage struct {
	Method string
	ID     string
	Type   string
}

func WithRPCMessage(ctx context.Context, msg *RPCMessage) context.Context {
	return context.WithValue(ctx, rpcMsg{}, msg)
}

type linkMessageKey struct{}

// LinkMessage identifies one reassembled inbound message.
type LinkMessage struct {
	ID   string
	Size int
}

func WithLinkMessage(ctx context.Context, data *LinkMessage) context.Context {
	return context.WithValue(ctx, linkMessageKey{}, data)
}

// LinkMessageFrom returns the link message attached to ctx, if any.
func LinkMessageFrom(ctx context.Context) (*LinkMessage, bool) {
	lm, ok := ctx.Value(linkMessageKey{}).(*LinkMessage)
	return lm, ok
}

type toolCallDataKey struct{}

type ToolCallData struct {
	ToolName string
}

func WithToolCallData(ctx context.Context, data *ToolCallData) context.Context {
	return context.WithValue(ctx, toolCallDataKey{}, data)
}
