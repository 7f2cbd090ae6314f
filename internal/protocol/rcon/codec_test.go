package rcon

import (
	"bytes"
	"errors"
	"testing"

	"github.com/danmuck/rconctl/internal/protocol/segment"
	"github.com/danmuck/rconctl/internal/testutil/segtest"
)

func packet(length, id, typ byte, body string) []byte {
	out := []byte{length, 0, 0, 0, id, 0, 0, 0, typ, 0, 0, 0}
	out = append(out, body...)
	return append(out, 0, 0)
}

func encodeBytes(t *testing.T, msg Message) []byte {
	t.Helper()
	w := segment.NewArrayWriter(0)
	if err := Encode(msg, w); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return w.Bytes()
}

func TestEncodeAuthWithPassword(t *testing.T) {
	got := encodeBytes(t, Message{ID: 0, Type: Auth, Body: "passwrd"})
	want := packet(0x11, 0, 3, "passwrd")
	if !bytes.Equal(got, want) {
		t.Fatalf("unexpected bytes:\n got=% x\nwant=% x", got, want)
	}
	if len(got) != 21 {
		t.Fatalf("unexpected size: %d", len(got))
	}
}

func TestEncodeEmptyBodyIsMinimumSize(t *testing.T) {
	got := encodeBytes(t, Message{ID: 0, Type: Auth})
	want := []byte{0x0a, 0, 0, 0, 0, 0, 0, 0, 0x03, 0, 0, 0, 0, 0}
	if !bytes.Equal(got, want) {
		t.Fatalf("unexpected bytes: % x", got)
	}
	if (Message{}).Size() != MinPacketSize {
		t.Fatalf("unexpected empty size: %d", (Message{}).Size())
	}
}

func TestEncodeNegativeIDAndReusedSink(t *testing.T) {
	w := segment.NewArrayWriter(64)
	if err := Encode(Message{ID: 7, Type: ExecCommand, Body: "status"}, w); err != nil {
		t.Fatalf("encode: %v", err)
	}
	w.Reset()
	if err := Encode(Message{ID: -1, Type: AuthResponse}, w); err != nil {
		t.Fatalf("encode: %v", err)
	}
	want := []byte{0x0a, 0, 0, 0, 0xff, 0xff, 0xff, 0xff, 0x02, 0, 0, 0, 0, 0}
	if !bytes.Equal(w.Bytes(), want) {
		t.Fatalf("stale sink bytes leaked: % x", w.Bytes())
	}
}

func TestEncodeSinkExhausted(t *testing.T) {
	w := segment.NewArrayWriter(0)
	w.Limit = 13
	err := Encode(Message{Type: Auth}, w)
	if !errors.Is(err, segment.ErrSinkExhausted) {
		t.Fatalf("expected ErrSinkExhausted, got %v", err)
	}
	if w.Len() != 0 {
		t.Fatalf("failed encode committed %d bytes", w.Len())
	}
}

func TestEncodeNonASCIIIsLossy(t *testing.T) {
	got := encodeBytes(t, Message{Type: ExecCommand, Body: "say héllo"})
	if got[0] != byte(MinLength+9) {
		t.Fatalf("unexpected declared length: %d", got[0])
	}
	if string(got[HeaderSize:len(got)-2]) != "say h?llo" {
		t.Fatalf("unexpected body: %q", got[HeaderSize:len(got)-2])
	}
}

func TestAppendEncodeMatchesEncode(t *testing.T) {
	msg := Message{ID: 42, Type: ExecCommand, Body: "list"}
	prefix := []byte("xx")
	got := AppendEncode(prefix, msg)
	if !bytes.Equal(got[:2], prefix) || !bytes.Equal(got[2:], encodeBytes(t, msg)) {
		t.Fatalf("unexpected append output: % x", got)
	}
}

func TestTryDecodeSingleSegmentEmptyBody(t *testing.T) {
	in := segment.New([]byte{0x0A, 0, 0, 0, 0, 0, 0, 0, 0x02, 0, 0, 0, 0, 0})
	msg, consumed, examined, ok := TryDecode(in)
	if !ok {
		t.Fatalf("expected decode")
	}
	if msg != (Message{ID: 0, Type: AuthResponse, Body: ""}) {
		t.Fatalf("unexpected message: %+v", msg)
	}
	if in.Offset(consumed) != in.Len() || in.Offset(examined) != in.Len() {
		t.Fatalf("unexpected cursors: consumed=%d examined=%d", in.Offset(consumed), in.Offset(examined))
	}
}

func TestTryDecodeSingleSegment(t *testing.T) {
	in := segment.New(packet(0x15, 0, 0, "HLSW : Test"))
	msg, consumed, _, ok := TryDecode(in)
	if !ok {
		t.Fatalf("expected decode")
	}
	if msg.ID != 0 || msg.Type != ResponseValue || msg.Body != "HLSW : Test" {
		t.Fatalf("unexpected message: %+v", msg)
	}
	if in.Offset(consumed) != 25 {
		t.Fatalf("unexpected consumed: %d", in.Offset(consumed))
	}
}

func TestTryDecodeMultiSegment(t *testing.T) {
	cases := []struct {
		name string
		in   segment.Sequence
		body string
	}{
		{
			name: "three segments empty body",
			in:   segment.New([]byte{0x0A, 0, 0, 0}, []byte{0, 0, 0, 0, 0x02, 0, 0}, []byte{0, 0, 0}),
		},
		{
			name: "body split",
			in:   segtest.Split(packet(0x15, 0, 0, "HLSW : Test"), 16),
			body: "HLSW : Test",
		},
		{
			name: "three segments",
			in:   segtest.Split(packet(0x15, 0, 0, "HLSW : Test"), 3, 16),
			body: "HLSW : Test",
		},
		{
			name: "after length split",
			in:   segtest.Split(packet(0x15, 0, 0, "HLSW : Test"), 4),
			body: "HLSW : Test",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			msg, consumed, examined, ok := TryDecode(tc.in)
			if !ok {
				t.Fatalf("expected decode")
			}
			if msg.Body != tc.body {
				t.Fatalf("unexpected body: %q", msg.Body)
			}
			if tc.in.Offset(consumed) != tc.in.Len() || tc.in.Offset(examined) != tc.in.Len() {
				t.Fatalf("unexpected cursors: consumed=%d examined=%d len=%d",
					tc.in.Offset(consumed), tc.in.Offset(examined), tc.in.Len())
			}
		})
	}
}

func TestTryDecodeEmptyInputFails(t *testing.T) {
	in := segment.New()
	msg, consumed, examined, ok := TryDecode(in)
	if ok {
		t.Fatalf("expected failure")
	}
	if msg != (Message{}) {
		t.Fatalf("expected zero message, got %+v", msg)
	}
	if in.Offset(consumed) != 0 || in.Offset(examined) != 0 {
		t.Fatalf("unexpected cursors: consumed=%d examined=%d", in.Offset(consumed), in.Offset(examined))
	}
}

func TestTryDecodeTooShortInputFails(t *testing.T) {
	prefix := []byte{0x15, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}
	for name, in := range map[string]segment.Sequence{
		"single segment": segment.New(prefix),
		"multi segment":  segtest.Split(prefix, 3),
	} {
		t.Run(name, func(t *testing.T) {
			_, consumed, examined, ok := TryDecode(in)
			if ok {
				t.Fatalf("expected failure")
			}
			if in.Offset(consumed) != 0 {
				t.Fatalf("unexpected consumed: %d", in.Offset(consumed))
			}
			if in.Offset(examined) != 4 {
				t.Fatalf("unexpected examined: %d", in.Offset(examined))
			}
		})
	}
}

func TestTryDecodeUndersizedLengthNeverDecodes(t *testing.T) {
	for length := byte(0); length < MinLength; length++ {
		raw := packet(length, 1, 0, "")
		raw = append(raw, make([]byte, 32)...)
		for _, in := range []segment.Sequence{segment.New(raw), segtest.Split(raw, 2)} {
			if _, consumed, examined, ok := TryDecode(in); ok {
				t.Fatalf("length=%d decoded", length)
			} else if in.Offset(consumed) != 0 || in.Offset(examined) != 4 {
				t.Fatalf("length=%d unexpected cursors: consumed=%d examined=%d",
					length, in.Offset(consumed), in.Offset(examined))
			}
		}
	}
}

func TestTryDecodeNegativeLengthFails(t *testing.T) {
	raw := []byte{0xff, 0xff, 0xff, 0xff, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}
	if _, _, _, ok := TryDecode(segment.New(raw)); ok {
		t.Fatalf("negative length decoded")
	}
}

func TestTryDecodeNonASCIIIsLossy(t *testing.T) {
	raw := []byte{0x0d, 0, 0, 0, 5, 0, 0, 0, 0, 0, 0, 0, 'a', 0xe9, 'b', 0, 0}
	msg, _, _, ok := TryDecode(segment.New(raw))
	if !ok {
		t.Fatalf("expected decode")
	}
	if msg.Body != "a?b" {
		t.Fatalf("unexpected body: %q", msg.Body)
	}
}

func TestTryDecodeMissingTerminatorInsideDeclaredSpan(t *testing.T) {
	// declared length 12 but no zero byte before the final one
	raw := []byte{0x0c, 0, 0, 0, 1, 0, 0, 0, 0, 0, 0, 0, 'a', 'b', 'c', 0, 0, 0}
	for _, in := range []segment.Sequence{segment.New(raw), segtest.Split(raw, 13)} {
		_, consumed, examined, ok := TryDecode(in)
		if ok {
			t.Fatalf("decoded packet without terminator")
		}
		if in.Offset(consumed) != 0 || in.Offset(examined) != HeaderSize {
			t.Fatalf("unexpected cursors: consumed=%d examined=%d", in.Offset(consumed), in.Offset(examined))
		}
	}
}

func TestPeekLength(t *testing.T) {
	if _, ok := PeekLength(segment.New([]byte{1, 0})); ok {
		t.Fatalf("expected short peek to fail")
	}
	v, ok := PeekLength(segtest.Split(packet(0x11, 0, 3, "passwrd"), 1))
	if !ok || v != 0x11 {
		t.Fatalf("unexpected length: %d ok=%v", v, ok)
	}
}

func TestPeekSecondTerminator(t *testing.T) {
	raw := packet(0x0b, 0, 0, "x")
	raw[len(raw)-1] = 0x7f
	in := segtest.Split(raw, 14)
	_, consumed, _, ok := TryDecode(in)
	if !ok {
		t.Fatalf("expected lenient decode")
	}
	b, ok := PeekSecondTerminator(in, consumed)
	if !ok || b != 0x7f {
		t.Fatalf("unexpected terminator: %x ok=%v", b, ok)
	}
}

func TestPacketTypeNameByRole(t *testing.T) {
	if AuthResponse != ExecCommand {
		t.Fatalf("expected aliased tags")
	}
	if got := AuthResponse.Name(RoleClient); got != "auth_response" {
		t.Fatalf("unexpected client name: %q", got)
	}
	if got := ExecCommand.Name(RoleServer); got != "exec_command" {
		t.Fatalf("unexpected server name: %q", got)
	}
	if got := PacketType(9).Name(RoleClient); got != "type(9)" {
		t.Fatalf("unexpected unknown name: %q", got)
	}
}
