package segment

import "errors"

var ErrSinkExhausted = errors.New("segment: sink cannot reserve requested capacity")

// Writer is a two-phase output sink. Reserve hands out a writable region of
// at least n bytes; Commit marks the first n bytes of the most recently
// reserved region as written.
type Writer interface {
	Reserve(n int) ([]byte, error)
	Commit(n int)
}

// ArrayWriter is a growable Writer backed by one slice. A positive Limit
// caps the total written size.
type ArrayWriter struct {
	buf   []byte
	Limit int
}

func NewArrayWriter(capacity int) *ArrayWriter {
	return &ArrayWriter{buf: make([]byte, 0, capacity)}
}

func (w *ArrayWriter) Reserve(n int) ([]byte, error) {
	if n < 0 {
		return nil, ErrSinkExhausted
	}
	need := len(w.buf) + n
	if w.Limit > 0 && need > w.Limit {
		return nil, ErrSinkExhausted
	}
	if need > cap(w.buf) {
		grown := make([]byte, len(w.buf), max(need, 2*cap(w.buf)))
		copy(grown, w.buf)
		w.buf = grown
	}
	return w.buf[len(w.buf):need:need], nil
}

func (w *ArrayWriter) Commit(n int) {
	if n < 0 || len(w.buf)+n > cap(w.buf) {
		panic("segment: commit past reserved region")
	}
	w.buf = w.buf[:len(w.buf)+n]
}

// Bytes returns the committed output. It aliases the internal buffer.
func (w *ArrayWriter) Bytes() []byte { return w.buf }

func (w *ArrayWriter) Len() int { return len(w.buf) }

func (w *ArrayWriter) Reset() { w.buf = w.buf[:0] }
