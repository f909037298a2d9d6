package engine

import (
	"context"
	"net/http"
)

// MessageWriter delivers one encoded response back to the peer.
type MessageWriter interface {
	WriteMessage(ctx context.Context, msg []byte) error
}

type MessageWriterFunc func(ctx context.Context, msg []byte) error

func (f MessageWriterFunc) WriteMessage(ctx context.Context, msg []byte) error {
	return f(ctx, msg)
}

// Serve processes raw and writes the encoded response to w. Responses whose
// status hint is 202 are acknowledgements and are written only when
// writeAcks is set.
func (e *Engine) Serve(ctx context.Context, raw []byte, w MessageWriter, writeAcks bool) error {
	out, status, err := e.Process(ctx, raw)
	if err != nil {
		return err
	}
	if status == http.StatusAccepted && !writeAcks {
		return nil
	}
	return w.WriteMessage(ctx, out)
}
