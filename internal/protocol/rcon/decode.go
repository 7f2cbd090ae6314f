package rcon

import (
	"bytes"
	"encoding/binary"

	"github.com/danmuck/rconctl/internal/protocol/segment"
)

// cursor is the read capability the packet parser needs. sliceCursor serves
// the contiguous fast path, seqCursor the segmented fallback.
type cursor interface {
	readInt32() (int32, bool)
	remaining() int64
	// readBody returns the bytes before the first terminator found within
	// limit bytes and advances past that terminator.
	readBody(limit int) ([]byte, bool)
	skip(n int) bool
}

// parse reads one packet from c. On failure c rests where reading stalled.
func parse(c cursor) (Message, bool) {
	length, ok := c.readInt32()
	if !ok || length < MinLength || c.remaining() < int64(length) {
		return Message{}, false
	}
	id, _ := c.readInt32()
	typ, _ := c.readInt32()

	// The body terminator must leave room for the trailing one.
	body, ok := c.readBody(int(length) - 8 - 1)
	if !ok {
		return Message{}, false
	}
	// The second terminator is skipped, not checked.
	c.skip(1)
	return Message{ID: id, Type: PacketType(typ), Body: decodeASCII(body)}, true
}

// TryDecode extracts one packet from the start of in.
//
// On success consumed and examined both point one byte past the packet's
// second terminator. On failure consumed is in.Start() and examined marks
// how far the decoder got before running out of bytes; the caller should
// not retry until bytes arrive past it.
func TryDecode(in segment.Sequence) (msg Message, consumed, examined segment.Position, ok bool) {
	if first := in.First(); len(first) >= MinPacketSize {
		length := int32(binary.LittleEndian.Uint32(first))
		if length >= MinLength && int64(len(first)-LengthFieldSize) >= int64(length) {
			c := &sliceCursor{b: first[:LengthFieldSize+int(length)]}
			if msg, ok := parse(c); ok {
				end, _ := in.PositionAt(int64(c.off))
				return msg, end, end, true
			}
		}
	}

	r := segment.NewReader(in)
	c := &seqCursor{r: r}
	msg, ok = parse(c)
	if !ok {
		return Message{}, in.Start(), r.Position(), false
	}
	end := r.Position()
	return msg, end, end, true
}

// PeekLength returns the declared length field without consuming it.
func PeekLength(in segment.Sequence) (int32, bool) {
	return segment.NewReader(in).ReadInt32LE()
}

// PeekSecondTerminator reports the byte right before consumed, which for a
// successfully decoded packet is the second terminator.
func PeekSecondTerminator(in segment.Sequence, consumed segment.Position) (byte, bool) {
	off := in.Offset(consumed) - 1
	if off < 0 {
		return 0, false
	}
	r := segment.NewReader(in)
	if !r.Advance(int(off)) {
		return 0, false
	}
	return r.Peek()
}

type sliceCursor struct {
	b   []byte
	off int
}

func (c *sliceCursor) readInt32() (int32, bool) {
	if len(c.b)-c.off < 4 {
		return 0, false
	}
	v := int32(binary.LittleEndian.Uint32(c.b[c.off:]))
	c.off += 4
	return v, true
}

func (c *sliceCursor) remaining() int64 { return int64(len(c.b) - c.off) }

func (c *sliceCursor) readBody(limit int) ([]byte, bool) {
	window := c.b[c.off:]
	if limit < len(window) {
		window = window[:limit]
	}
	i := bytes.IndexByte(window, terminator)
	if i < 0 {
		return nil, false
	}
	body := window[:i]
	c.off += i + 1
	return body, true
}

func (c *sliceCursor) skip(n int) bool {
	if len(c.b)-c.off < n {
		return false
	}
	c.off += n
	return true
}

type seqCursor struct {
	r *segment.Reader
}

func (c *seqCursor) readInt32() (int32, bool) { return c.r.ReadInt32LE() }

func (c *seqCursor) remaining() int64 { return c.r.Remaining() }

func (c *seqCursor) readBody(limit int) ([]byte, bool) {
	return c.r.ReadTo(terminator, limit)
}

func (c *seqCursor) skip(n int) bool { return c.r.Advance(n) }
