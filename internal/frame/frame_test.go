package frame

import (
	"bytes"
	"errors"
	"testing"
)

func TestHeaderRoundTrip(t *testing.T) {
	for _, typ := range []Type{TypeSingle, TypeStart, TypeCont, TypeEnd} {
		for seq := uint8(0); seq < SeqModulus; seq++ {
			b := EncodeHeader(Header{Type: typ, Seq: seq})
			got := DecodeHeader(b)
			if got.Type != typ || got.Seq != seq {
				t.Fatalf("round trip mismatch: type=%s seq=%d got=%+v", typ, seq, got)
			}
		}
	}
}

func TestEncodeHeaderMasksSequence(t *testing.T) {
	b := EncodeHeader(Header{Type: TypeCont, Seq: 65})
	if b != 0x81 {
		t.Fatalf("expected 0x81, got 0x%02x", b)
	}
}

func TestHeaderWireValues(t *testing.T) {
	cases := []struct {
		b    byte
		want Header
	}{
		{0x00, Header{Type: TypeSingle, Seq: 0}},
		{0x41, Header{Type: TypeStart, Seq: 1}},
		{0xBF, Header{Type: TypeCont, Seq: 63}},
		{0xC5, Header{Type: TypeEnd, Seq: 5}},
	}
	for _, tc := range cases {
		if got := DecodeHeader(tc.b); got != tc.want {
			t.Fatalf("DecodeHeader(0x%02x) = %+v, want %+v", tc.b, got, tc.want)
		}
	}
}

func TestDecodeEmpty(t *testing.T) {
	_, err := Decode(nil)
	if !errors.Is(err, ErrEmpty) {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
}

func TestDecodeSplitsPayload(t *testing.T) {
	pkt := Append(nil, Header{Type: TypeEnd, Seq: 3}, []byte("tail"))
	f, err := Decode(pkt)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if f.Type != TypeEnd || f.Seq != 3 {
		t.Fatalf("unexpected header %+v", f.Header)
	}
	if string(f.Payload) != "tail" {
		t.Fatalf("unexpected payload %q", f.Payload)
	}
}

func TestStartRoundTrip(t *testing.T) {
	pkt := AppendStart(nil, 0, 300, []byte("head"))
	want := []byte{0x40, 0x00, 0x00, 0x01, 0x2C, 'h', 'e', 'a', 'd'}
	if !bytes.Equal(pkt, want) {
		t.Fatalf("encoded start = %x, want %x", pkt, want)
	}
	f, err := Decode(pkt)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	total, chunk, err := DecodeStart(f.Payload)
	if err != nil {
		t.Fatalf("decode start: %v", err)
	}
	if total != 300 || string(chunk) != "head" {
		t.Fatalf("got total=%d chunk=%q", total, chunk)
	}
}

func TestDecodeStartShort(t *testing.T) {
	_, _, err := DecodeStart([]byte{0, 0, 1})
	if !errors.Is(err, ErrShortStart) {
		t.Fatalf("expected ErrShortStart, got %v", err)
	}
}

func TestNextSeqWraps(t *testing.T) {
	if NextSeq(62) != 63 || NextSeq(63) != 0 {
		t.Fatalf("sequence did not wrap: %d %d", NextSeq(62), NextSeq(63))
	}
}

func TestTypeString(t *testing.T) {
	if TypeStart.String() != "START" {
		t.Fatalf("unexpected name %q", TypeStart.String())
	}
	if Type(0x12).String() != "Type(0x12)" {
		t.Fatalf("unexpected name %q", Type(0x12).String())
	}
}
