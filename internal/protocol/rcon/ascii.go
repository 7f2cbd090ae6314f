package rcon

import "unicode/utf8"

const replacement = '?'

func asciiByteCount(s string) int {
	return utf8.RuneCountInString(s)
}

// decodeASCII maps every byte outside 7-bit ASCII to '?'.
func decodeASCII(b []byte) string {
	clean := true
	for _, c := range b {
		if c >= utf8.RuneSelf {
			clean = false
			break
		}
	}
	if clean {
		return string(b)
	}
	out := make([]byte, len(b))
	for i, c := range b {
		if c >= utf8.RuneSelf {
			c = replacement
		}
		out[i] = c
	}
	return string(out)
}

// encodeASCII writes one byte per rune of s into dst, substituting '?' for
// runes outside 7-bit ASCII and for invalid UTF-8 bytes.
func encodeASCII(dst []byte, s string) int {
	n := 0
	for _, r := range s {
		if r >= utf8.RuneSelf {
			r = replacement
		}
		dst[n] = byte(r)
		n++
	}
	return n
}
