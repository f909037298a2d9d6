// Package ingress moves reassembled messages off the link's receive path and
// onto a single worker goroutine.
//
// Enqueue never blocks: when the queue is full the newest message is dropped
// and logged. Run drains the queue in FIFO order and hands each message to the
// process function, one at a time.
package ingress

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/ggoodman/mcp-ble-go/internal/logctx"
	"github.com/google/uuid"
)

// DefaultCapacity is the number of reassembled messages that may wait for the
// worker.
const DefaultCapacity = 4

var (
	ErrAlreadyRunning = errors.New("ingress: worker already running")
	ErrClosed         = errors.New("ingress: pump closed")
)

// ProcessFunc handles one message on the worker goroutine. The context carries
// a logctx.LinkMessage describing the message.
type ProcessFunc func(ctx context.Context, msg []byte)

// Pump is a bounded FIFO with a single consumer.
type Pump struct {
	process  ProcessFunc
	log      *slog.Logger
	capacity int

	queue   chan []byte
	running atomic.Bool
	closed  atomic.Bool
	done    chan struct{}
	dropped atomic.Uint64
}

// Option configures a Pump.
type Option func(*Pump)

// WithCapacity sets the queue capacity. Values below one are ignored.
func WithCapacity(n int) Option {
	return func(p *Pump) {
		if n > 0 {
			p.capacity = n
		}
	}
}

// WithLogger sets a custom logger for the Pump.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pump) {
		if l != nil {
			p.log = l
		}
	}
}

// New constructs a Pump that calls process for each queued message.
func New(process ProcessFunc, opts ...Option) *Pump {
	p := &Pump{
		process:  process,
		log:      slog.Default(),
		capacity: DefaultCapacity,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	p.log = p.log.With(slog.String("component", "ingress"))
	p.queue = make(chan []byte, p.capacity)
	return p
}

// Enqueue copies msg onto the queue. It reports false when the message was
// dropped because the queue is full or the pump is closed. The caller keeps
// ownership of msg.
func (p *Pump) Enqueue(msg []byte) bool {
	if p.closed.Load() {
		return false
	}
	cp := make([]byte, len(msg))
	copy(cp, msg)

	select {
	case p.queue <- cp:
		return true
	default:
		n := p.dropped.Add(1)
		p.log.Warn("ingress.enqueue.dropped",
			slog.Int("size", len(msg)),
			slog.Int("capacity", p.capacity),
			slog.Uint64("dropped_total", n))
		return false
	}
}

// Len reports the number of messages waiting for the worker.
func (p *Pump) Len() int { return len(p.queue) }

// Dropped reports how many messages were discarded because the queue was full.
func (p *Pump) Dropped() uint64 { return p.dropped.Load() }

// Close stops accepting messages and makes Run return once it finishes the
// message in hand. Queued messages are discarded.
func (p *Pump) Close() {
	if p.closed.CompareAndSwap(false, true) {
		close(p.done)
	}
}

// Run consumes the queue until ctx is canceled or Close is called. Only one
// Run may be active at a time.
func (p *Pump) Run(ctx context.Context) error {
	if !p.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer p.running.Store(false)

	p.log.DebugContext(ctx, "ingress.worker.start", slog.Int("capacity", p.capacity))
	for {
		select {
		case <-ctx.Done():
			p.log.DebugContext(ctx, "ingress.worker.stop", slog.String("reason", ctx.Err().Error()))
			return ctx.Err()
		case <-p.done:
			p.log.DebugContext(ctx, "ingress.worker.stop", slog.String("reason", "closed"))
			return ErrClosed
		case msg := <-p.queue:
			p.handle(ctx, msg)
		}
	}
}

func (p *Pump) handle(ctx context.Context, msg []byte) {
	ctx = logctx.WithLinkMessage(ctx, &logctx.LinkMessage{
		ID:   uuid.NewString(),
		Size: len(msg),
	})
	defer func() {
		if r := recover(); r != nil {
			p.log.ErrorContext(ctx, "ingress.process.panic", slog.Any("panic", r))
		}
	}()
	p.process(ctx, msg)
}
