package link

import (
	"log/slog"
	"time"

	"github.com/ggoodman/mcp-ble-go/internal/frame"
)

// reassembly is the single in-flight inbound message slot.
// Invariant while inProgress: receivedLen <= totalLen <= MaxMessageSize.
type reassembly struct {
	inProgress  bool
	totalLen    int
	receivedLen int
	expectedSeq uint8
	lastFrameAt time.Time
	buf         []byte
}

func (r *reassembly) reset() {
	r.inProgress = false
	r.totalLen = 0
	r.receivedLen = 0
}

// Receive consumes one inbound packet in carrier delivery order. Complete
// messages are passed synchronously to the MessageHandler. Framing violations
// are logged and reset the reassembly state; they are never returned.
func (t *Transport) Receive(pkt []byte) {
	t.rxMu.Lock()
	defer t.rxMu.Unlock()

	if t.rx.buf == nil {
		return
	}
	f, err := frame.Decode(pkt)
	if err != nil {
		return
	}

	switch f.Type {
	case frame.TypeSingle:
		t.receiveSingle(f)
	case frame.TypeStart:
		t.receiveStart(f)
	case frame.TypeCont, frame.TypeEnd:
		t.receiveContinuation(f)
	}
}

func (t *Transport) receiveSingle(f frame.Frame) {
	n := len(f.Payload)
	if n >= MaxMessageSize {
		t.log.Error("link.rx.too_large", slog.String("type", f.Type.String()), slog.Int("len", n))
		return
	}
	if t.rx.inProgress {
		t.log.Warn("link.rx.abandoned",
			slog.Int("received", t.rx.receivedLen),
			slog.Int("total", t.rx.totalLen))
	}
	copy(t.rx.buf, f.Payload)
	t.log.Debug("link.rx.single", slog.Int("len", n))
	t.deliver(t.rx.buf[:n])
	t.rx.reset()
}

func (t *Transport) receiveStart(f frame.Frame) {
	total, chunk, err := frame.DecodeStart(f.Payload)
	if err != nil {
		t.log.Error("link.rx.short_start", slog.Int("len", len(f.Payload)))
		t.rx.reset()
		return
	}
	if total > MaxMessageSize {
		t.log.Error("link.rx.too_large", slog.String("type", f.Type.String()), slog.Uint64("len", uint64(total)))
		t.rx.reset()
		return
	}
	if len(chunk) > int(total) {
		t.log.Error("link.rx.start_overflow", slog.Int("chunk", len(chunk)), slog.Uint64("total", uint64(total)))
		t.rx.reset()
		return
	}

	t.rx.totalLen = int(total)
	t.rx.receivedLen = copy(t.rx.buf, chunk)
	t.rx.inProgress = true
	t.rx.expectedSeq = frame.NextSeq(f.Seq)
	t.rx.lastFrameAt = t.clock.Now()
}

func (t *Transport) receiveContinuation(f frame.Frame) {
	if t.rx.inProgress && t.rxTimeout > 0 {
		if idle := t.clock.Now().Sub(t.rx.lastFrameAt); idle > t.rxTimeout {
			t.log.Warn("link.rx.stale", slog.Duration("idle", idle), slog.Int("received", t.rx.receivedLen))
			t.rx.reset()
		}
	}
	if !t.rx.inProgress || t.rx.totalLen == 0 {
		t.log.Debug("link.rx.orphan", slog.String("type", f.Type.String()), slog.Int("seq", int(f.Seq)))
		return
	}
	if f.Seq != t.rx.expectedSeq {
		t.log.Error("link.rx.sequence_mismatch",
			slog.String("type", f.Type.String()),
			slog.Int("want", int(t.rx.expectedSeq)),
			slog.Int("got", int(f.Seq)))
		t.rx.reset()
		return
	}
	if t.rx.receivedLen+len(f.Payload) > t.rx.totalLen {
		t.log.Error("link.rx.overflow",
			slog.Int("received", t.rx.receivedLen),
			slog.Int("chunk", len(f.Payload)),
			slog.Int("total", t.rx.totalLen))
		t.rx.reset()
		return
	}

	t.rx.receivedLen += copy(t.rx.buf[t.rx.receivedLen:], f.Payload)
	t.rx.expectedSeq = frame.NextSeq(t.rx.expectedSeq)
	t.rx.lastFrameAt = t.clock.Now()

	if f.Type != frame.TypeEnd {
		return
	}
	if t.rx.receivedLen == t.rx.totalLen {
		t.log.Debug("link.rx.complete", slog.Int("len", t.rx.receivedLen))
		t.deliver(t.rx.buf[:t.rx.receivedLen])
	} else {
		t.log.Error("link.rx.length_mismatch", slog.Int("want", t.rx.totalLen), slog.Int("got", t.rx.receivedLen))
	}
	t.rx.reset()
}

func (t *Transport) deliver(msg []byte) {
	if t.onMessage == nil {
		t.log.Error("link.rx.no_handler", slog.Int("len", len(msg)))
		return
	}
	t.onMessage(msg)
}
