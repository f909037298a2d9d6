package ble

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/ggoodman/mcp-ble-go/internal/engine"
	"github.com/ggoodman/mcp-ble-go/internal/ingress"
	"github.com/ggoodman/mcp-ble-go/link"
	"github.com/ggoodman/mcp-ble-go/mcpservice"
)

// ErrNotConnected is returned by the packet sink while no central is
// connected.
var ErrNotConnected = errors.New("ble: not connected")

// Handler serves MCP over one BLE-style packet link. Inbound packets are
// reassembled by a link.Transport, queued by an ingress pump and dispatched
// on a single worker; responses are fragmented back through the sink.
//
// The carrier calls Connected, Receive, SetMTU and Disconnected from its
// event context. Serve runs the worker.
type Handler struct {
	log        *slog.Logger
	deviceName string
	capacity   int
	linkOpts   []link.Option

	connected atomic.Bool
	transport *link.Transport
	pump      *ingress.Pump
	engine    *engine.Engine
}

// Option customizes a Handler.
type Option func(*Handler)

// WithLogger overrides the logger. The link, ingress and engine loggers are
// derived from it.
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.log = l
		}
	}
}

// WithDeviceName sets the advertised device name.
func WithDeviceName(name string) Option {
	return func(h *Handler) {
		if name != "" {
			h.deviceName = name
		}
	}
}

// WithQueueCapacity sets how many reassembled messages may wait for the
// worker before new ones are dropped.
func WithQueueCapacity(n int) Option {
	return func(h *Handler) {
		if n > 0 {
			h.capacity = n
		}
	}
}

// WithLinkOptions passes options to the underlying link.Transport.
func WithLinkOptions(opts ...link.Option) Option {
	return func(h *Handler) { h.linkOpts = append(h.linkOpts, opts...) }
}

// NewHandler wires srv to a packet sink. The handler starts disconnected.
func NewHandler(srv mcpservice.ServerCapabilities, sink link.PacketSink, opts ...Option) *Handler {
	h := &Handler{
		log:        slog.Default(),
		deviceName: DefaultDeviceName,
		capacity:   ingress.DefaultCapacity,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}

	h.engine = engine.NewEngine(srv, engine.WithLogger(h.log))
	h.pump = ingress.New(h.process, ingress.WithCapacity(h.capacity), ingress.WithLogger(h.log))

	var gate link.PacketSink
	if sink != nil {
		gate = link.PacketSinkFunc(func(ctx context.Context, pkt []byte) error {
			if !h.connected.Load() {
				return ErrNotConnected
			}
			return sink.SendPacket(ctx, pkt)
		})
	}
	linkOpts := append([]link.Option{
		link.WithLogger(h.log),
		link.WithLocker(&sync.Mutex{}),
	}, h.linkOpts...)
	linkOpts = append(linkOpts, link.WithMessageHandler(func(msg []byte) { h.pump.Enqueue(msg) }))
	h.transport = link.New(gate, linkOpts...)

	h.log = h.log.With(slog.String("component", "ble"))
	return h
}

// Connected marks the central as connected.
func (h *Handler) Connected() {
	h.connected.Store(true)
	h.log.Info("ble.connected", slog.Int("mtu", int(h.transport.MTU())))
}

// Disconnected marks the central as gone, restores the default MTU and drops
// any partially reassembled message.
func (h *Handler) Disconnected() {
	h.connected.Store(false)
	h.transport.SetMTU(0)
	h.transport.Reset()
	h.log.Info("ble.disconnected")
}

// IsConnected reports whether a central is connected.
func (h *Handler) IsConnected() bool { return h.connected.Load() }

// Receive feeds one packet written to the RX characteristic. Empty writes are
// ignored.
func (h *Handler) Receive(pkt []byte) {
	if len(pkt) == 0 {
		return
	}
	h.transport.Receive(pkt)
}

// SetMTU records a negotiated MTU.
func (h *Handler) SetMTU(mtu uint16) { h.transport.SetMTU(mtu) }

// MTU returns the current MTU.
func (h *Handler) MTU() uint16 { return h.transport.MTU() }

// Send transmits a server-initiated message. It is serialized against
// responses written by the worker.
func (h *Handler) Send(ctx context.Context, msg []byte) error {
	return h.transport.SendMessage(ctx, msg)
}

// Serve runs the dispatch worker until ctx is canceled or Close is called.
func (h *Handler) Serve(ctx context.Context) error {
	h.log.InfoContext(ctx, "ble.serve",
		slog.String("device", h.deviceName),
		slog.String("service", ServiceUUID),
		slog.String("rx", RXCharUUID),
		slog.String("tx", TXCharUUID),
		slog.String("engine_id", h.engine.ID()))
	err := h.pump.Run(ctx)
	if errors.Is(err, ingress.ErrClosed) {
		return nil
	}
	return err
}

// Close stops the worker and releases the link buffers.
func (h *Handler) Close() error {
	h.pump.Close()
	if err := h.transport.Close(); err != nil {
		return fmt.Errorf("close transport: %w", err)
	}
	return nil
}

func (h *Handler) process(ctx context.Context, msg []byte) {
	err := h.engine.Serve(ctx, msg, engine.MessageWriterFunc(h.transport.SendMessage), true)
	if err != nil {
		h.log.WarnContext(ctx, "ble.reply.fail", slog.String("err", err.Error()))
	}
}
