package rcon

import (
	"encoding/binary"
	"fmt"

	"github.com/danmuck/rconctl/internal/protocol/segment"
)

// Encode writes msg to w in one reserve/commit pass. The only failure is a
// sink that cannot provide the capacity.
func Encode(msg Message, w segment.Writer) error {
	declared := msg.DeclaredLength()
	size := LengthFieldSize + declared

	buf, err := w.Reserve(size)
	if err != nil {
		return fmt.Errorf("rcon: reserve %d bytes: %w", size, err)
	}
	buf = buf[:size]

	buf[size-2] = terminator
	buf[size-1] = terminator
	binary.LittleEndian.PutUint32(buf[0:4], uint32(declared))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(msg.ID))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(msg.Type))
	encodeASCII(buf[HeaderSize:], msg.Body)

	w.Commit(size)
	return nil
}

// AppendEncode appends the wire form of msg to dst.
func AppendEncode(dst []byte, msg Message) []byte {
	w := &sliceWriter{buf: dst}
	// sliceWriter never fails to reserve.
	_ = Encode(msg, w)
	return w.buf
}

type sliceWriter struct {
	buf []byte
}

func (w *sliceWriter) Reserve(n int) ([]byte, error) {
	w.buf = append(w.buf, make([]byte, n)...)
	w.buf = w.buf[:len(w.buf)-n]
	return w.buf[len(w.buf) : len(w.buf)+n], nil
}

func (w *sliceWriter) Commit(n int) { w.buf = w.buf[:len(w.buf)+n] }
