package palette

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// ParseHex reads #RGB, #RGBA, #RRGGBB or #RRGGBBAA.
func ParseHex(s string) (color.NRGBA, error) {
	digits, ok := strings.CutPrefix(s, "#")
	if !ok {
		return color.NRGBA{}, fmt.Errorf("invalid color %q, should start with #", s)
	}

	var short bool
	switch len(digits) {
	case 3, 4:
		short = true
	case 6, 8:
	default:
		return color.NRGBA{}, fmt.Errorf("invalid color %q, should be #RGB, #RGBA, #RRGGBB or #RRGGBBAA", s)
	}

	v, err := strconv.ParseUint(digits, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("could not read color %q: %w", s, err)
	}

	fields := len(digits)
	if !short {
		fields /= 2
	}
	var ch [4]uint8
	ch[3] = 0xff
	for i := range fields {
		shift := uint(fields - 1 - i)
		if short {
			n := uint8(v>>(4*shift)) & 0xf
			ch[i] = n | n<<4
		} else {
			ch[i] = uint8(v >> (8 * shift))
		}
	}

	return color.NRGBA{R: ch[0], G: ch[1], B: ch[2], A: ch[3]}, nil
}
