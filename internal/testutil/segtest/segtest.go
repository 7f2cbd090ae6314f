// Package segtest builds fragmented sequences for decoder tests.
package segtest

import "github.com/danmuck/rconctl/internal/protocol/segment"

// Split cuts data at the given offsets and returns a Sequence whose
// segments live in separate, padded backing arrays so no two segments are
// adjacent in memory.
func Split(data []byte, cuts ...int) segment.Sequence {
	parts := make([][]byte, 0, len(cuts)+1)
	prev := 0
	for _, c := range cuts {
		parts = append(parts, isolate(data[prev:c]))
		prev = c
	}
	parts = append(parts, isolate(data[prev:]))
	return segment.New(parts...)
}

// Splits returns every way of cutting data into one, two and three
// segments.
func Splits(data []byte) []segment.Sequence {
	out := []segment.Sequence{Split(data)}
	for i := 1; i < len(data); i++ {
		out = append(out, Split(data, i))
	}
	for i := 1; i < len(data); i++ {
		for j := i + 1; j < len(data); j++ {
			out = append(out, Split(data, i, j))
		}
	}
	return out
}

// Bytewise returns data with every byte in its own segment.
func Bytewise(data []byte) segment.Sequence {
	cuts := make([]int, 0, len(data))
	for i := 1; i < len(data); i++ {
		cuts = append(cuts, i)
	}
	return Split(data, cuts...)
}

func isolate(p []byte) []byte {
	backing := make([]byte, 2*len(p))
	copy(backing[len(p):], p)
	return backing[len(p) : 2*len(p) : 2*len(p)]
}
