package indexed

import (
	"math/rand/v2"
	"testing"
)

// bufferOf lays colors out row-major in a width-wide buffer.
func bufferOf(t *testing.T, width int, colors ...RGB) *PixelBuffer {
	t.Helper()
	if len(colors)%width != 0 {
		t.Fatalf("%d colors do not fill rows of %d", len(colors), width)
	}
	buf := NewPixelBuffer(width, len(colors)/width)
	for i, c := range colors {
		buf.Set(i%width, i/width, c)
	}
	return buf
}

func randomBuffer(seed uint64, width, height int) *PixelBuffer {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	buf := NewPixelBuffer(width, height)
	for i := 0; i < len(buf.Pix); i += 4 {
		buf.Pix[i] = uint8(rng.IntN(256))
		buf.Pix[i+1] = uint8(rng.IntN(256))
		buf.Pix[i+2] = uint8(rng.IntN(256))
		buf.Pix[i+3] = 0xff
	}
	return buf
}

func gray(v uint8) RGB {
	return RGB{R: v, G: v, B: v}
}

func assertNoDuplicates(t *testing.T, pal Palette) {
	t.Helper()
	seen := make(map[RGB]int)
	for i, c := range pal {
		if j, ok := seen[c]; ok {
			t.Fatalf("palette entries %d and %d are both %v", j, i, c)
		}
		seen[c] = i
	}
}
