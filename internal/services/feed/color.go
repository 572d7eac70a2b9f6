package feed

import "fmt"

// completedBlend is how far completed jobs are faded toward white.
const completedBlend = 0.3

// Lighten blends a #RRGGBB (or #RGB) hex color toward white by the
// given factor in [0,1], per channel. Unparseable input is returned
// unchanged so a bad stored color degrades to itself rather than
// failing a feed read.
func Lighten(hex string, factor float64) string {
	r, g, b, ok := parseHex(hex)
	if !ok {
		return hex
	}
	blend := func(c int) int {
		return c + int(float64(255-c)*factor)
	}
	return fmt.Sprintf("#%02x%02x%02x", blend(r), blend(g), blend(b))
}

func parseHex(hex string) (r, g, b int, ok bool) {
	if len(hex) == 0 || hex[0] != '#' {
		return 0, 0, 0, false
	}
	s := hex[1:]
	switch len(s) {
	case 3:
		digits := make([]int, 3)
		for i := 0; i < 3; i++ {
			d, valid := hexDigit(s[i])
			if !valid {
				return 0, 0, 0, false
			}
			digits[i] = d*16 + d
		}
		return digits[0], digits[1], digits[2], true
	case 6:
		vals := make([]int, 3)
		for i := 0; i < 3; i++ {
			hi, okHi := hexDigit(s[i*2])
			lo, okLo := hexDigit(s[i*2+1])
			if !okHi || !okLo {
				return 0, 0, 0, false
			}
			vals[i] = hi*16 + lo
		}
		return vals[0], vals[1], vals[2], true
	default:
		return 0, 0, 0, false
	}
}

func hexDigit(c byte) (int, bool) {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0'), true
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10, true
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10, true
	}
	return 0, false
}
