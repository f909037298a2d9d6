// Package link carries arbitrarily large messages over a packet carrier whose
// link layer only delivers small, discrete packets (a BLE GATT characteristic,
// typically 23-517 bytes).
//
// A Transport owns the state of one endpoint:
//
//   - the reassembly engine, fed one inbound packet at a time through Receive,
//     which rebuilds complete messages and hands them to a MessageHandler;
//   - the fragmentation sender, SendMessage, which splits an outbound message
//     into SINGLE or START/CONT*/END frames sized to the current MTU, retries
//     each packet a bounded number of times, and holds an optional lock for the
//     whole message so concurrent senders never interleave frames.
//
// Characteristics
//
//	Max message     : 8192 bytes
//	Packet payload  : clamp(MTU-3, 2, 512) bytes, header included
//	In-flight rx    : 1 message (a new START or SINGLE supersedes it)
//	Failure model   : framing violations are logged and reset; never surfaced
//
// The carrier itself (connection handling, MTU negotiation, notify/write
// primitives) is external: it implements PacketSink for outbound packets and
// calls Receive and SetMTU from its own callback context.
//
// Example:
//
//	t := link.New(sink,
//	    link.WithMTU(185),
//	    link.WithTxGap(time.Millisecond),
//	    link.WithMessageHandler(func(msg []byte) { queue.Enqueue(msg) }),
//	)
//	defer t.Close()
//	carrier.OnWrite(t.Receive)
//	carrier.OnMTU(t.SetMTU)
//	_ = t.SendMessage(ctx, []byte(`{"jsonrpc":"2.0","id":1,"result":{}}`))
package link
