package link

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ggoodman/mcp-ble-go/internal/frame"
)

// startOverhead is the header byte plus the total-length prefix.
const startOverhead = frame.HeaderLen + frame.LengthPrefixLen

// SendMessage transmits msg as a SINGLE frame when it fits in one packet and
// as START, CONT*, END otherwise. The configured Locker is held for the whole
// message. Any packet that still fails after its retries aborts the message.
func (t *Transport) SendMessage(ctx context.Context, msg []byte) error {
	if t.closed.Load() {
		return ErrClosed
	}
	if t.sink == nil {
		t.log.ErrorContext(ctx, "link.tx.not_ready")
		return ErrNotReady
	}
	if len(msg) > MaxMessageSize {
		t.log.ErrorContext(ctx, "link.tx.too_large", slog.Int("len", len(msg)))
		return fmt.Errorf("%w: %d bytes", ErrMessageTooLarge, len(msg))
	}

	if t.lock != nil {
		t.lock.Lock()
		defer t.lock.Unlock()
	}

	maxLen := t.MaxPacketLen()
	if len(msg)+frame.HeaderLen <= maxLen {
		pkt := frame.Append(t.tx[:0], frame.Header{Type: frame.TypeSingle}, msg)
		return t.sendPacket(ctx, frame.TypeSingle, 0, pkt)
	}
	if maxLen <= startOverhead {
		t.log.ErrorContext(ctx, "link.tx.mtu_too_small", slog.Int("mtu", int(t.MTU())), slog.Int("len", len(msg)))
		return fmt.Errorf("%w: mtu %d", ErrMTUTooSmall, t.MTU())
	}

	var seq uint8
	off := maxLen - startOverhead
	pkt := frame.AppendStart(t.tx[:0], seq, uint32(len(msg)), msg[:off])
	if err := t.sendPacket(ctx, frame.TypeStart, seq, pkt); err != nil {
		return err
	}
	seq = frame.NextSeq(seq)

	frames := 1
	for off < len(msg) {
		if t.txGap > 0 {
			if err := t.clock.Sleep(ctx, t.txGap); err != nil {
				return err
			}
		}

		typ := frame.TypeEnd
		chunk := msg[off:]
		if len(chunk) > maxLen-frame.HeaderLen {
			typ = frame.TypeCont
			chunk = chunk[:maxLen-frame.HeaderLen]
		}
		pkt = frame.Append(t.tx[:0], frame.Header{Type: typ, Seq: seq}, chunk)
		if err := t.sendPacket(ctx, typ, seq, pkt); err != nil {
			return err
		}
		off += len(chunk)
		seq = frame.NextSeq(seq)
		frames++
	}

	t.log.DebugContext(ctx, "link.tx.sent", slog.Int("len", len(msg)), slog.Int("frames", frames))
	return nil
}

// sendPacket hands one packet to the sink, retrying up to maxRetries times.
func (t *Transport) sendPacket(ctx context.Context, typ frame.Type, seq uint8, pkt []byte) error {
	var err error
	for attempt := 0; attempt <= t.maxRetries; attempt++ {
		if attempt > 0 {
			if serr := t.clock.Sleep(ctx, t.retryDelay); serr != nil {
				return serr
			}
		}
		if err = t.sink.SendPacket(ctx, pkt); err == nil {
			return nil
		}
		t.log.WarnContext(ctx, "link.tx.retry",
			slog.String("type", typ.String()),
			slog.Int("seq", int(seq)),
			slog.Int("attempt", attempt+1),
			slog.String("err", err.Error()))
	}
	t.log.ErrorContext(ctx, "link.tx.failed",
		slog.String("type", typ.String()),
		slog.Int("seq", int(seq)),
		slog.String("err", err.Error()))
	return fmt.Errorf("%w: %s seq %d: %w", ErrSendFailed, typ, seq, err)
}
