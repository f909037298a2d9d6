package ingress

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/ggoodman/mcp-ble-go/internal/logctx"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recorder struct {
	mu   sync.Mutex
	msgs []string
	ids  []string
	got  chan struct{}
}

func newRecorder() *recorder {
	return &recorder{got: make(chan struct{}, 64)}
}

func (r *recorder) process(ctx context.Context, msg []byte) {
	r.mu.Lock()
	r.msgs = append(r.msgs, string(msg))
	if lm, ok := logctx.LinkMessageFrom(ctx); ok {
		r.ids = append(r.ids, lm.ID)
	}
	r.mu.Unlock()
	r.got <- struct{}{}
}

func (r *recorder) wait(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-r.got:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for message %d of %d", i+1, n)
		}
	}
}

func (r *recorder) snapshot() ([]string, []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.msgs...), append([]string(nil), r.ids...)
}

func startPump(t *testing.T, p *Pump) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- p.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-errc:
		case <-time.After(2 * time.Second):
			t.Errorf("worker did not stop")
		}
	})
}

func TestPumpFIFO(t *testing.T) {
	rec := newRecorder()
	p := New(rec.process, WithLogger(quietLogger()))
	for _, m := range []string{"a", "b", "c"} {
		if !p.Enqueue([]byte(m)) {
			t.Fatalf("enqueue %q rejected", m)
		}
	}
	startPump(t, p)
	rec.wait(t, 3)

	msgs, ids := rec.snapshot()
	if len(msgs) != 3 || msgs[0] != "a" || msgs[1] != "b" || msgs[2] != "c" {
		t.Fatalf("unexpected order %v", msgs)
	}
	if len(ids) != 3 || ids[0] == "" || ids[0] == ids[1] {
		t.Fatalf("each message should carry a distinct id, got %v", ids)
	}
}

func TestPumpDropsNewestWhenFull(t *testing.T) {
	rec := newRecorder()
	p := New(rec.process, WithCapacity(2), WithLogger(quietLogger()))
	if !p.Enqueue([]byte("1")) || !p.Enqueue([]byte("2")) {
		t.Fatalf("queue should accept up to capacity")
	}
	if p.Enqueue([]byte("3")) {
		t.Fatalf("third message should be dropped")
	}
	if p.Len() != 2 || p.Dropped() != 1 {
		t.Fatalf("len=%d dropped=%d", p.Len(), p.Dropped())
	}

	startPump(t, p)
	rec.wait(t, 2)
	msgs, _ := rec.snapshot()
	if len(msgs) != 2 || msgs[0] != "1" || msgs[1] != "2" {
		t.Fatalf("expected the oldest messages to survive, got %v", msgs)
	}
}

func TestPumpCopiesMessage(t *testing.T) {
	rec := newRecorder()
	p := New(rec.process, WithLogger(quietLogger()))
	buf := []byte("hello")
	p.Enqueue(buf)
	copy(buf, "XXXXX")

	startPump(t, p)
	rec.wait(t, 1)
	if msgs, _ := rec.snapshot(); msgs[0] != "hello" {
		t.Fatalf("pump must own its copy, got %q", msgs[0])
	}
}

func TestPumpDefaultCapacity(t *testing.T) {
	p := New(func(context.Context, []byte) {}, WithCapacity(0), WithLogger(quietLogger()))
	for i := 0; i < DefaultCapacity; i++ {
		if !p.Enqueue([]byte{byte(i)}) {
			t.Fatalf("enqueue %d rejected", i)
		}
	}
	if p.Enqueue([]byte{0xff}) {
		t.Fatalf("expected drop beyond default capacity")
	}
}

func TestPumpSingleRunner(t *testing.T) {
	p := New(func(context.Context, []byte) {}, WithLogger(quietLogger()))
	startPump(t, p)

	deadline := time.Now().Add(2 * time.Second)
	for !p.running.Load() {
		if time.Now().After(deadline) {
			t.Fatalf("worker never started")
		}
		time.Sleep(time.Millisecond)
	}
	if err := p.Run(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
}

func TestPumpClose(t *testing.T) {
	p := New(func(context.Context, []byte) {}, WithLogger(quietLogger()))
	p.Close()
	p.Close()
	if p.Enqueue([]byte("late")) {
		t.Fatalf("closed pump should reject messages")
	}
	if err := p.Run(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestPumpRecoversFromPanic(t *testing.T) {
	rec := newRecorder()
	p := New(func(ctx context.Context, msg []byte) {
		if string(msg) == "boom" {
			panic("handler exploded")
		}
		rec.process(ctx, msg)
	}, WithLogger(quietLogger()))
	p.Enqueue([]byte("boom"))
	p.Enqueue([]byte("after"))

	startPump(t, p)
	rec.wait(t, 1)
	if msgs, _ := rec.snapshot(); msgs[0] != "after" {
		t.Fatalf("worker should survive a panicking handler, got %v", msgs)
	}
}
