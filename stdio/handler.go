package stdio

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/ggoodman/mcp-ble-go/internal/engine"
	"github.com/ggoodman/mcp-ble-go/mcpservice"
)

// maxLineSize bounds a single inbound JSON-RPC line.
const maxLineSize = 1 << 20

var ErrAlreadyServing = errors.New("stdio: Serve already called")

// Handler is a single-connection stdio transport that reads JSON-RPC messages
// from an io.Reader and writes responses to an io.Writer. By default, it uses
// os.Stdin and os.Stdout.
//
// The handler is transport-only; it delegates all MCP semantics to the provided
// mcpservice.ServerCapabilities.
type Handler struct {
	r io.Reader
	w io.Writer
	l *slog.Logger

	srv     mcpservice.ServerCapabilities
	engine  *engine.Engine
	writeMu sync.Mutex
	served  atomic.Bool
}

// NewHandler constructs a stdio Handler with defaults and applies options.
func NewHandler(srv mcpservice.ServerCapabilities, opts ...Option) *Handler {
	h := &Handler{
		r:   os.Stdin,
		w:   os.Stdout,
		l:   slog.Default(),
		srv: srv,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	h.engine = engine.NewEngine(srv, engine.WithLogger(h.l))
	h.l = h.l.With(slog.String("component", "stdio"))
	return h
}

// Serve runs the stdio event loop until EOF on the reader or the context is
// canceled. It is safe to call at most once per Handler. Messages are
// newline-delimited and handled one at a time in arrival order; notification
// acknowledgements are not written.
func (h *Handler) Serve(ctx context.Context) error {
	if !h.served.CompareAndSwap(false, true) {
		return ErrAlreadyServing
	}

	lines := make(chan []byte)
	readErr := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)
	go func() {
		defer close(lines)
		readErr <- readLines(ctx, h.r, lines, done)
	}()

	h.l.InfoContext(ctx, "stdio.serve.start", slog.String("engine_id", h.engine.ID()))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-lines:
			if !ok {
				if err := ctx.Err(); err != nil {
					return err
				}
				var err error
				select {
				case err = <-readErr:
				default:
				}
				if err != nil {
					return fmt.Errorf("stdio read: %w", err)
				}
				h.l.InfoContext(ctx, "stdio.serve.eof")
				return nil
			}
			if err := h.engine.Serve(ctx, msg, engine.MessageWriterFunc(h.writeLine), false); err != nil {
				return fmt.Errorf("stdio write: %w", err)
			}
		}
	}
}

// readLines sends each non-blank line of r to lines until r is exhausted or
// either ctx or done ends.
func readLines(ctx context.Context, r io.Reader, lines chan<- []byte, done <-chan struct{}) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		msg := append([]byte(nil), line...)
		select {
		case lines <- msg:
		case <-ctx.Done():
			return nil
		case <-done:
			return nil
		}
	}
	return sc.Err()
}

func (h *Handler) writeLine(ctx context.Context, msg []byte) error {
	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	buf := make([]byte, 0, len(msg)+1)
	buf = append(buf, msg...)
	buf = append(buf, '\n')
	_, err := h.w.Write(buf)
	return err
}
