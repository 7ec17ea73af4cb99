package address

import "strings"

const upperHex = "0123456789ABCDEF"

// Quote percent-encodes every byte of s except ASCII letters, digits and
// the characters '.', '@', '_', '+' and '-'. A leading '.' is encoded as
// %2e so the segment can never name a hidden or special entry such as "..".
func Quote(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isSafe(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperHex[c>>4])
		b.WriteByte(upperHex[c&0x0f])
	}

	out := b.String()
	if strings.HasPrefix(out, ".") {
		out = "%2e" + out[1:]
	}
	return out
}

// Unquote reverses Quote. Sequences that are not a '%' followed by two hex
// digits are kept as they are, so Unquote never fails.
func Unquote(s string) string {
	if !strings.Contains(s, "%") {
		return s
	}

	buf := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '%' && i+2 < len(s) {
			hi, okHi := unhex(s[i+1])
			lo, okLo := unhex(s[i+2])
			if okHi && okLo {
				buf = append(buf, hi<<4|lo)
				i += 2
				continue
			}
		}
		buf = append(buf, c)
	}
	return string(buf)
}

func isSafe(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	case c == '.', c == '@', c == '_', c == '+', c == '-':
		return true
	}
	return false
}

func unhex(c byte) (byte, bool) {
	switch {
	case '0' <= c && c <= '9':
		return c - '0', true
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10, true
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}
