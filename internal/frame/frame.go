// Package frame encodes and decodes the one-byte link frame header used to
// carry JSON-RPC messages over small, MTU-bounded packets.
//
// Wire layout:
//
//	+--------+--------+---------------------------+
//	| type:2 | seq:6  | payload ...               |
//	+--------+--------+---------------------------+
//
// START payloads begin with a 4-byte big-endian total message length. The
// codec does no semantic validation beyond bit masking.
package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Type is the 2-bit frame type stored in the top bits of the header byte.
type Type byte

const (
	TypeSingle Type = 0x00
	TypeStart  Type = 0x40
	TypeCont   Type = 0x80
	TypeEnd    Type = 0xC0
)

const (
	TypeMask byte = 0xC0
	SeqMask  byte = 0x3F

	// HeaderLen is the size of the encoded header.
	HeaderLen = 1
	// LengthPrefixLen is the size of the total-length field carried by START.
	LengthPrefixLen = 4
	// SeqModulus is the number of distinct sequence values.
	SeqModulus = 64
)

var (
	ErrEmpty      = errors.New("frame: empty packet")
	ErrShortStart = errors.New("frame: start payload shorter than length prefix")
)

var typeNames = map[Type]string{
	TypeSingle: "SINGLE",
	TypeStart:  "START",
	TypeCont:   "CONT",
	TypeEnd:    "END",
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Type(0x%02x)", byte(t))
}

// Header is the decoded form of the header byte.
type Header struct {
	Type Type
	Seq  uint8
}

// Frame is one decoded link packet. Payload aliases the packet it was
// decoded from.
type Frame struct {
	Header
	Payload []byte
}

// EncodeHeader packs h into a single byte. Out-of-range sequence bits are
// masked off.
func EncodeHeader(h Header) byte {
	return (byte(h.Type) & TypeMask) | (h.Seq & SeqMask)
}

// DecodeHeader unpacks a header byte.
func DecodeHeader(b byte) Header {
	return Header{Type: Type(b & TypeMask), Seq: b & SeqMask}
}

// Decode splits a packet into header and payload.
func Decode(pkt []byte) (Frame, error) {
	if len(pkt) < HeaderLen {
		return Frame{}, ErrEmpty
	}
	return Frame{Header: DecodeHeader(pkt[0]), Payload: pkt[HeaderLen:]}, nil
}

// Append encodes a frame onto dst and returns the extended slice.
func Append(dst []byte, h Header, payload []byte) []byte {
	dst = append(dst, EncodeHeader(h))
	return append(dst, payload...)
}

// AppendStart encodes a START frame carrying total as its length prefix
// followed by the first chunk.
func AppendStart(dst []byte, seq uint8, total uint32, chunk []byte) []byte {
	dst = append(dst, EncodeHeader(Header{Type: TypeStart, Seq: seq}))
	dst = binary.BigEndian.AppendUint32(dst, total)
	return append(dst, chunk...)
}

// DecodeStart reads the total-length prefix from a START payload and returns
// the remaining chunk.
func DecodeStart(payload []byte) (uint32, []byte, error) {
	if len(payload) < LengthPrefixLen {
		return 0, nil, ErrShortStart
	}
	return binary.BigEndian.Uint32(payload[:LengthPrefixLen]), payload[LengthPrefixLen:], nil
}

// NextSeq returns the sequence number following s, wrapping modulo 64.
func NextSeq(s uint8) uint8 {
	return (s + 1) & SeqMask
}
