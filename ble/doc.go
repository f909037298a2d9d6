// Package ble serves MCP over a BLE-style packet link: a GATT service with
// one characteristic written by the client (RX) and one notifying the client
// (TX), where every write or notification is one small packet.
//
// Characteristics
//
//	Connection model : 1 peripheral <-> 1 central
//	Framing          : 1-byte header, START/CONT/END fragmentation, 8 KiB messages
//	Dispatch         : single worker behind a bounded ingress queue
//	Backpressure     : newest message dropped when the queue is full
//
// The radio itself is outside this package. A carrier adapts it by sending
// packets through a link.PacketSink and calling the Handler's Connected,
// Receive, SetMTU and Disconnected hooks.
//
// Example:
//
//	srv := mcpservice.NewServer(
//	    mcpservice.WithTools(mcpservice.NewTool("add", add)),
//	)
//	h := ble.NewHandler(srv, carrier)
//	carrier.OnWrite(h.Receive)
//	go h.Serve(ctx)
package ble
