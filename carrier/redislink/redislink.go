// Package redislink carries link packets through Redis streams. It lets a
// radio gateway (or a test bench) that owns the GATT connection relay packets
// to a ble.Handler running elsewhere.
//
// Inbound events are read from <prefix>rx and outbound packets are appended
// to <prefix>tx. Every entry carries an event type in field "t" and, for
// packets, the raw bytes in field "d".
package redislink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/ggoodman/mcp-ble-go/ble"
	"github.com/joeshaw/envdecode"
	"github.com/redis/go-redis/v9"
)

// Config for a Redis-backed carrier. Defaults can be loaded via envdecode.
type Config struct {
	// RedisAddr like "localhost:6379". ENV: REDIS_ADDR
	RedisAddr string `env:"REDIS_ADDR,default=localhost:6379"`
	// KeyPrefix for both streams. ENV: MCP_LINK_KEY_PREFIX
	KeyPrefix string `env:"MCP_LINK_KEY_PREFIX,default=mcp:ble:"`
}

// Event types carried in field "t".
const (
	EventPacket     = "packet"
	EventMTU        = "mtu"
	EventConnect    = "connect"
	EventDisconnect = "disconnect"
)

// Event is one entry of the inbound stream.
type Event struct {
	Type   string
	Packet []byte
	MTU    uint16
}

// Receiver is the peripheral side of the link, implemented by *ble.Handler.
type Receiver interface {
	Connected()
	Disconnected()
	Receive(pkt []byte)
	SetMTU(mtu uint16)
}

var _ Receiver = (*ble.Handler)(nil)

var ErrUnknownEvent = errors.New("redislink: unknown event type")

const readBlock = 500 * time.Millisecond

// Carrier implements link.PacketSink over Redis streams.
type Carrier struct {
	client    *redis.Client
	keyPrefix string
	log       *slog.Logger
}

// Option customizes a Carrier.
type Option func(*Carrier)

// WithLogger overrides the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Carrier) {
		if l != nil {
			c.log = l
		}
	}
}

// New connects to Redis and verifies the connection.
func New(cfg Config, opts ...Option) (*Carrier, error) {
	addr := cfg.RedisAddr
	if addr == "" {
		addr = "localhost:6379"
	}
	cl := redis.NewClient(&redis.Options{Addr: addr})
	if err := cl.Ping(context.Background()).Err(); err != nil {
		_ = cl.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "mcp:ble:"
	}
	c := &Carrier{client: cl, keyPrefix: prefix, log: slog.Default()}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	c.log = c.log.With(slog.String("component", "redislink"))
	return c, nil
}

// ConfigFromEnv builds a Config using envdecode.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := envdecode.StrictDecode(&cfg); err != nil {
		return Config{}, fmt.Errorf("redislink config: %w", err)
	}
	return cfg, nil
}

// NewFromEnv builds a Carrier using envdecode to populate Config.
func NewFromEnv(opts ...Option) (*Carrier, error) {
	cfg, err := ConfigFromEnv()
	if err != nil {
		return nil, err
	}
	return New(cfg, opts...)
}

// Close releases the Redis client.
func (c *Carrier) Close() error { return c.client.Close() }

// RxKey is the stream of inbound events.
func (c *Carrier) RxKey() string { return c.keyPrefix + "rx" }

// TxKey is the stream of outbound packets.
func (c *Carrier) TxKey() string { return c.keyPrefix + "tx" }

// SendPacket implements link.PacketSink.
func (c *Carrier) SendPacket(ctx context.Context, pkt []byte) error {
	err := c.client.XAdd(ctx, &redis.XAddArgs{
		Stream: c.TxKey(),
		Values: map[string]interface{}{"t": EventPacket, "d": pkt, "char": ble.TXCharUUID},
	}).Err()
	if err != nil {
		return fmt.Errorf("xadd %s: %w", c.TxKey(), err)
	}
	return nil
}

// Emit appends an inbound event. Gateways call it for every write to the RX
// characteristic and every connection or MTU change.
func (c *Carrier) Emit(ctx context.Context, ev Event) error {
	values := map[string]interface{}{"t": ev.Type, "char": ble.RXCharUUID}
	switch ev.Type {
	case EventPacket:
		values["d"] = ev.Packet
	case EventMTU:
		values["mtu"] = strconv.Itoa(int(ev.MTU))
	case EventConnect, EventDisconnect:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEvent, ev.Type)
	}
	if err := c.client.XAdd(ctx, &redis.XAddArgs{Stream: c.RxKey(), Values: values}).Err(); err != nil {
		return fmt.Errorf("xadd %s: %w", c.RxKey(), err)
	}
	return nil
}

// Run reads inbound events written after it starts and applies them to r in
// stream order until ctx is canceled. Events are delivered from this
// goroutine only, so r sees a single caller.
func (c *Carrier) Run(ctx context.Context, r Receiver) error {
	start := "$"
	c.log.InfoContext(ctx, "redislink.run.start", slog.String("rx", c.RxKey()), slog.String("tx", c.TxKey()))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		res, err := c.client.XRead(ctx, &redis.XReadArgs{Streams: []string{c.RxKey(), start}, Count: 16, Block: readBlock}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("xread %s: %w", c.RxKey(), err)
		}
		for _, stream := range res {
			for _, m := range stream.Messages {
				start = m.ID
				ev, err := decodeEvent(m.Values)
				if err != nil {
					c.log.WarnContext(ctx, "redislink.rx.bad_event", slog.String("id", m.ID), slog.String("err", err.Error()))
					continue
				}
				apply(r, ev)
			}
		}
	}
}

func apply(r Receiver, ev Event) {
	switch ev.Type {
	case EventPacket:
		r.Receive(ev.Packet)
	case EventMTU:
		r.SetMTU(ev.MTU)
	case EventConnect:
		r.Connected()
	case EventDisconnect:
		r.Disconnected()
	}
}

func decodeEvent(values map[string]interface{}) (Event, error) {
	typ := valueString(values["t"])
	if typ == "" {
		typ = EventPacket
	}
	ev := Event{Type: typ}
	switch typ {
	case EventPacket:
		ev.Packet = []byte(valueString(values["d"]))
	case EventMTU:
		n, err := strconv.ParseUint(valueString(values["mtu"]), 10, 16)
		if err != nil {
			return Event{}, fmt.Errorf("redislink: bad mtu: %w", err)
		}
		ev.MTU = uint16(n)
	case EventConnect, EventDisconnect:
	default:
		return Event{}, fmt.Errorf("%w: %q", ErrUnknownEvent, typ)
	}
	return ev, nil
}

// valueString accepts the string or []byte forms go-redis may return.
func valueString(v interface{}) string {
	switch v := v.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}
