package link

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// MaxMessageSize bounds a reassembled or transmitted message.
	MaxMessageSize = 8192
	// DefaultMTU is the BLE ATT default before any exchange.
	DefaultMTU uint16 = 23
	// MaxPacketLen caps a single packet, header included.
	MaxPacketLen = 512

	linkOverhead = 3
	minPacketLen = 2

	defaultSendRetries = 3
	defaultRetryDelay  = time.Millisecond
	defaultTxGap       = time.Millisecond
)

var (
	ErrClosed          = errors.New("link: transport closed")
	ErrNotReady        = errors.New("link: no packet sink")
	ErrMessageTooLarge = errors.New("link: message too large")
	ErrMTUTooSmall     = errors.New("link: mtu too small for multi-frame message")
	ErrSendFailed      = errors.New("link: packet send failed")
)

// PacketSink transmits one packet over the carrier. Implementations must not
// retain pkt after returning.
type PacketSink interface {
	SendPacket(ctx context.Context, pkt []byte) error
}

// PacketSinkFunc adapts a function to PacketSink.
type PacketSinkFunc func(ctx context.Context, pkt []byte) error

func (f PacketSinkFunc) SendPacket(ctx context.Context, pkt []byte) error { return f(ctx, pkt) }

// Clock supplies the time and sleep primitives used for the inter-frame gap,
// retry back-off and the optional reassembly timeout.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

// MessageHandler receives a complete inbound message. msg aliases the
// reassembly buffer and is only valid for the duration of the call.
type MessageHandler func(msg []byte)

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Transport is the state of one link endpoint: reassembly buffer, transmit
// scratch buffer, MTU and send policy. Receive must be called from a single
// carrier context; SendMessage is serialized by the configured Locker.
type Transport struct {
	sink  PacketSink
	clock Clock
	lock  sync.Locker
	log   *slog.Logger

	mtu        atomic.Uint32
	txGap      time.Duration
	maxRetries int
	retryDelay time.Duration
	rxTimeout  time.Duration

	rxMu      sync.Mutex
	rx        reassembly
	onMessage MessageHandler

	tx     []byte
	closed atomic.Bool
}

// Option configures a Transport.
type Option func(*Transport)

// New allocates the reassembly and transmit buffers and applies options.
func New(sink PacketSink, opts ...Option) *Transport {
	t := &Transport{
		sink:       sink,
		clock:      realClock{},
		log:        slog.Default(),
		txGap:      defaultTxGap,
		maxRetries: defaultSendRetries,
		retryDelay: defaultRetryDelay,
	}
	t.mtu.Store(uint32(DefaultMTU))
	for _, opt := range opts {
		if opt != nil {
			opt(t)
		}
	}
	t.log = t.log.With(slog.String("component", "link"))
	t.rx.buf = make([]byte, MaxMessageSize)
	t.tx = make([]byte, 0, MaxPacketLen)
	t.log.Debug("link.init", slog.Int("mtu", int(t.MTU())))
	return t
}

// WithMTU sets the initial MTU. Zero selects DefaultMTU.
func WithMTU(mtu uint16) Option {
	return func(t *Transport) {
		if mtu == 0 {
			mtu = DefaultMTU
		}
		t.mtu.Store(uint32(mtu))
	}
}

// WithTxGap sets the pause between consecutive frames of one message.
// Zero disables the pause.
func WithTxGap(d time.Duration) Option {
	return func(t *Transport) {
		if d >= 0 {
			t.txGap = d
		}
	}
}

// WithSendRetry sets how many times a failed packet is retried and the delay
// between attempts.
func WithSendRetry(maxRetries int, delay time.Duration) Option {
	return func(t *Transport) {
		if maxRetries >= 0 {
			t.maxRetries = maxRetries
		}
		if delay >= 0 {
			t.retryDelay = delay
		}
	}
}

// WithClock overrides the time source.
func WithClock(c Clock) Option {
	return func(t *Transport) {
		if c != nil {
			t.clock = c
		}
	}
}

// WithLocker brackets every whole-message send with l.
func WithLocker(l sync.Locker) Option {
	return func(t *Transport) { t.lock = l }
}

// WithLogger overrides the logger.
func WithLogger(l *slog.Logger) Option {
	return func(t *Transport) {
		if l != nil {
			t.log = l
		}
	}
}

// WithMessageHandler sets the callback for complete inbound messages.
func WithMessageHandler(fn MessageHandler) Option {
	return func(t *Transport) { t.onMessage = fn }
}

// WithReassemblyTimeout discards an in-flight message when its next frame
// arrives more than d after the previous one. Zero (default) keeps partial
// state until the next START or SINGLE.
func WithReassemblyTimeout(d time.Duration) Option {
	return func(t *Transport) {
		if d >= 0 {
			t.rxTimeout = d
		}
	}
}

// SetMessageHandler replaces the inbound message callback.
func (t *Transport) SetMessageHandler(fn MessageHandler) {
	t.rxMu.Lock()
	t.onMessage = fn
	t.rxMu.Unlock()
}

// SetMTU records a negotiated MTU. Zero restores DefaultMTU.
func (t *Transport) SetMTU(mtu uint16) {
	if mtu == 0 {
		mtu = DefaultMTU
	}
	t.mtu.Store(uint32(mtu))
	t.log.Debug("link.mtu", slog.Int("mtu", int(mtu)), slog.Int("max_packet_len", t.MaxPacketLen()))
}

// MTU returns the current MTU.
func (t *Transport) MTU() uint16 { return uint16(t.mtu.Load()) }

// MaxPacketLen is the largest packet, header included, the sender will emit
// at the current MTU.
func (t *Transport) MaxPacketLen() int {
	n := int(t.mtu.Load()) - linkOverhead
	if n > MaxPacketLen {
		n = MaxPacketLen
	}
	if n < minPacketLen {
		n = minPacketLen
	}
	return n
}

// Reset discards any partially reassembled message.
func (t *Transport) Reset() {
	t.rxMu.Lock()
	t.rx.reset()
	t.rxMu.Unlock()
}

// Close releases the buffers. Receive becomes a no-op and SendMessage
// returns ErrClosed.
func (t *Transport) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}
	t.rxMu.Lock()
	t.rx.reset()
	t.rx.expectedSeq = 0
	t.rx.buf = nil
	t.rxMu.Unlock()
	t.log.Debug("link.closed")
	return nil
}
