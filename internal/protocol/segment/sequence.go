package segment

// Position is an opaque location inside the Sequence that produced it.
type Position struct {
	seg int
	off int
	abs int64
}

// Sequence is an immutable, ordered view over one or more byte segments.
// Segments are borrowed, never copied or mutated.
type Sequence struct {
	segs   [][]byte
	length int64
}

// New builds a Sequence over segs. Empty segments are dropped.
func New(segs ...[]byte) Sequence {
	out := make([][]byte, 0, len(segs))
	var n int64
	for _, s := range segs {
		if len(s) == 0 {
			continue
		}
		out = append(out, s)
		n += int64(len(s))
	}
	return Sequence{segs: out, length: n}
}

func (s Sequence) Len() int64 { return s.length }

func (s Sequence) IsEmpty() bool { return s.length == 0 }

func (s Sequence) IsSingleSegment() bool { return len(s.segs) <= 1 }

// First returns the first contiguous region, or nil when empty.
func (s Sequence) First() []byte {
	if len(s.segs) == 0 {
		return nil
	}
	return s.segs[0]
}

func (s Sequence) Start() Position { return Position{} }

func (s Sequence) End() Position {
	if len(s.segs) == 0 {
		return Position{}
	}
	last := len(s.segs) - 1
	return Position{seg: last, off: len(s.segs[last]), abs: s.length}
}

// Offset returns the number of bytes between the start of s and p.
func (s Sequence) Offset(p Position) int64 { return p.abs }

// PositionAt returns the position offset bytes past the start.
func (s Sequence) PositionAt(offset int64) (Position, bool) {
	if offset < 0 || offset > s.length {
		return Position{}, false
	}
	if offset == s.length {
		return s.End(), true
	}
	rem := offset
	for i, seg := range s.segs {
		if rem < int64(len(seg)) {
			return Position{seg: i, off: int(rem), abs: offset}, true
		}
		rem -= int64(len(seg))
	}
	return s.End(), true
}

// Slice returns the sub-sequence starting at from.
func (s Sequence) Slice(from Position) Sequence {
	if from.abs >= s.length {
		return Sequence{}
	}
	segs := make([][]byte, 0, len(s.segs)-from.seg)
	head := s.segs[from.seg][from.off:]
	if len(head) > 0 {
		segs = append(segs, head)
	}
	segs = append(segs, s.segs[from.seg+1:]...)
	return Sequence{segs: segs, length: s.length - from.abs}
}

// Bytes copies the sequence into one contiguous slice.
func (s Sequence) Bytes() []byte {
	out := make([]byte, 0, s.length)
	for _, seg := range s.segs {
		out = append(out, seg...)
	}
	return out
}

// Segments returns the number of non-empty segments.
func (s Sequence) Segments() int { return len(s.segs) }
