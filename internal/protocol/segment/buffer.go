package segment

import (
	"errors"
	"io"
)

var ErrDiscardRange = errors.New("segment: discard out of range")

// Buffer accumulates received bytes as a list of segments. The head of the
// buffer is released with Discard once a consumer is done with it.
type Buffer struct {
	segs   [][]byte
	length int64
}

// Append copies p into a new tail segment.
func (b *Buffer) Append(p []byte) {
	if len(p) == 0 {
		return
	}
	seg := make([]byte, len(p))
	copy(seg, p)
	b.segs = append(b.segs, seg)
	b.length += int64(len(p))
}

// ReadFrom performs a single Read of at most chunk bytes from r into a new
// tail segment.
func (b *Buffer) ReadFrom(r io.Reader, chunk int) (int, error) {
	if chunk <= 0 {
		chunk = 4096
	}
	seg := make([]byte, chunk)
	n, err := r.Read(seg)
	if n > 0 {
		b.segs = append(b.segs, seg[:n])
		b.length += int64(n)
	}
	return n, err
}

func (b *Buffer) Len() int64 { return b.length }

// Sequence returns a read-only view of the buffered bytes. The view stays
// valid until the next Discard.
func (b *Buffer) Sequence() Sequence {
	return Sequence{segs: b.segs, length: b.length}
}

// Discard releases the first n bytes.
func (b *Buffer) Discard(n int64) error {
	if n < 0 || n > b.length {
		return ErrDiscardRange
	}
	b.length -= n
	for n > 0 {
		head := b.segs[0]
		if int64(len(head)) <= n {
			n -= int64(len(head))
			b.segs[0] = nil
			b.segs = b.segs[1:]
			continue
		}
		b.segs[0] = head[n:]
		n = 0
	}
	if len(b.segs) == 0 {
		b.segs = nil
	}
	return nil
}
