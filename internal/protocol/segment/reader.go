package segment

import (
	"bytes"
	"encoding/binary"
)

// Reader is a forward-only cursor over a Sequence. Reads that cannot be
// satisfied by the available bytes leave the cursor where it was.
type Reader struct {
	seq      Sequence
	seg      int
	off      int
	consumed int64
}

func NewReader(seq Sequence) *Reader {
	return &Reader{seq: seq}
}

func (r *Reader) Remaining() int64 { return r.seq.length - r.consumed }

func (r *Reader) Consumed() int64 { return r.consumed }

func (r *Reader) Position() Position {
	if r.seg >= len(r.seq.segs) {
		return r.seq.End()
	}
	return Position{seg: r.seg, off: r.off, abs: r.consumed}
}

// Peek returns the next byte without advancing.
func (r *Reader) Peek() (byte, bool) {
	r.normalize()
	if r.seg >= len(r.seq.segs) {
		return 0, false
	}
	return r.seq.segs[r.seg][r.off], true
}

// Advance moves the cursor n bytes forward.
func (r *Reader) Advance(n int) bool {
	if n < 0 || int64(n) > r.Remaining() {
		return false
	}
	for n > 0 {
		r.normalize()
		avail := len(r.seq.segs[r.seg]) - r.off
		step := min(avail, n)
		r.off += step
		r.consumed += int64(step)
		n -= step
	}
	r.normalize()
	return true
}

// ReadInt32LE reads a little-endian int32, crossing segments if needed.
func (r *Reader) ReadInt32LE() (int32, bool) {
	if r.Remaining() < 4 {
		return 0, false
	}
	r.normalize()
	cur := r.seq.segs[r.seg][r.off:]
	if len(cur) >= 4 {
		v := int32(binary.LittleEndian.Uint32(cur))
		r.Advance(4)
		return v, true
	}
	var tmp [4]byte
	r.copyTo(tmp[:])
	r.Advance(4)
	return int32(binary.LittleEndian.Uint32(tmp[:])), true
}

// ReadTo returns the bytes before the first delim found within the next
// limit bytes and advances past the delimiter. The result borrows the
// underlying segment when the run does not cross a boundary.
func (r *Reader) ReadTo(delim byte, limit int) ([]byte, bool) {
	if limit < 0 {
		return nil, false
	}
	limit = int(min(int64(limit), r.Remaining()))
	r.normalize()
	if r.seg >= len(r.seq.segs) {
		return nil, false
	}

	cur := r.seq.segs[r.seg][r.off:]
	if len(cur) >= limit {
		i := bytes.IndexByte(cur[:limit], delim)
		if i < 0 {
			return nil, false
		}
		out := cur[:i]
		r.Advance(i + 1)
		return out, true
	}

	seg, off, scanned := r.seg, r.off, 0
	for scanned < limit && seg < len(r.seq.segs) {
		run := r.seq.segs[seg][off:]
		run = run[:min(len(run), limit-scanned)]
		if i := bytes.IndexByte(run, delim); i >= 0 {
			out := make([]byte, scanned+i)
			r.copyTo(out)
			r.Advance(scanned + i + 1)
			return out, true
		}
		scanned += len(run)
		seg++
		off = 0
	}
	return nil, false
}

func (r *Reader) copyTo(dst []byte) {
	seg, off, n := r.seg, r.off, 0
	for n < len(dst) {
		n += copy(dst[n:], r.seq.segs[seg][off:])
		seg++
		off = 0
	}
}

// normalize steps over exhausted segments so the cursor always rests on
// readable data or on the end.
func (r *Reader) normalize() {
	for r.seg < len(r.seq.segs) && r.off >= len(r.seq.segs[r.seg]) {
		r.seg++
		r.off = 0
	}
}
