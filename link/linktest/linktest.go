// Package linktest provides in-memory carriers, clocks and frame builders for
// exercising link transports without a radio.
package linktest

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ggoodman/mcp-ble-go/internal/frame"
)

// ErrInjected is returned by Sink for scheduled failures.
var ErrInjected = errors.New("linktest: injected send failure")

// Sink records every packet it is asked to send. Failures can be scheduled
// with FailNext or FailAlways.
type Sink struct {
	mu         sync.Mutex
	packets    [][]byte
	attempts   int
	failNext   int
	failAlways bool

	// Deliver, when set, is called with a copy of every accepted packet.
	Deliver func(pkt []byte)
}

func (s *Sink) SendPacket(ctx context.Context, pkt []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.attempts++
	if s.failAlways {
		s.mu.Unlock()
		return ErrInjected
	}
	if s.failNext > 0 {
		s.failNext--
		s.mu.Unlock()
		return ErrInjected
	}
	cp := append([]byte(nil), pkt...)
	s.packets = append(s.packets, cp)
	deliver := s.Deliver
	s.mu.Unlock()

	if deliver != nil {
		deliver(cp)
	}
	return nil
}

// FailNext makes the next n sends fail.
func (s *Sink) FailNext(n int) {
	s.mu.Lock()
	s.failNext = n
	s.mu.Unlock()
}

// FailAlways toggles permanent failure.
func (s *Sink) FailAlways(v bool) {
	s.mu.Lock()
	s.failAlways = v
	s.mu.Unlock()
}

// Packets returns copies of the accepted packets in send order.
func (s *Sink) Packets() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]byte, len(s.packets))
	copy(out, s.packets)
	return out
}

// Attempts counts every SendPacket call, including failed ones.
func (s *Sink) Attempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}

// Reset forgets recorded packets and scheduled failures.
func (s *Sink) Reset() {
	s.mu.Lock()
	s.packets = nil
	s.attempts = 0
	s.failNext = 0
	s.failAlways = false
	s.mu.Unlock()
}

// Clock is a manual clock. Sleep advances it instantly and records the
// requested duration.
type Clock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

// NewClock returns a Clock starting at start.
func NewClock(start time.Time) *Clock { return &Clock{now: start} }

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.sleeps = append(c.sleeps, d)
	c.mu.Unlock()
	return nil
}

// Advance moves the clock forward without recording a sleep.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// Sleeps returns the durations passed to Sleep.
func (c *Clock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}

// Locker counts acquisitions so tests can assert the send bracket.
type Locker struct {
	mu      sync.Mutex
	stateMu sync.Mutex
	locks   int
	unlocks int
	held    bool
}

func (l *Locker) Lock() {
	l.mu.Lock()
	l.stateMu.Lock()
	l.locks++
	l.held = true
	l.stateMu.Unlock()
}

func (l *Locker) Unlock() {
	l.stateMu.Lock()
	l.unlocks++
	l.held = false
	l.stateMu.Unlock()
	l.mu.Unlock()
}

// IsHeld reports whether the lock is currently held.
func (l *Locker) IsHeld() bool {
	l.stateMu.Lock()
	defer l.stateMu.Unlock()
	return l.held
}

// Counts returns the number of Lock and Unlock calls so far.
func (l *Locker) Counts() (locks, unlocks int) {
	l.stateMu.Lock()
	defer l.stateMu.Unlock()
	return l.locks, l.unlocks
}

// Single builds a SINGLE packet.
func Single(payload []byte) []byte {
	return frame.Append(nil, frame.Header{Type: frame.TypeSingle}, payload)
}

// Start builds a START packet declaring total bytes.
func Start(seq uint8, total uint32, chunk []byte) []byte {
	return frame.AppendStart(nil, seq, total, chunk)
}

// Cont builds a CONT packet.
func Cont(seq uint8, payload []byte) []byte {
	return frame.Append(nil, frame.Header{Type: frame.TypeCont, Seq: seq}, payload)
}

// End builds an END packet.
func End(seq uint8, payload []byte) []byte {
	return frame.Append(nil, frame.Header{Type: frame.TypeEnd, Seq: seq}, payload)
}

// Collector gathers copies of delivered messages.
type Collector struct {
	mu   sync.Mutex
	msgs [][]byte
}

// Handle copies msg; pass it as a link message handler.
func (c *Collector) Handle(msg []byte) {
	c.mu.Lock()
	c.msgs = append(c.msgs, append([]byte(nil), msg...))
	c.mu.Unlock()
}

// Messages returns the collected messages in delivery order.
func (c *Collector) Messages() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.msgs))
	copy(out, c.msgs)
	return out
}
