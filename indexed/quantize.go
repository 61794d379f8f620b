package indexed

import (
	"fmt"

	"labelconv/parallel"
)

func checkPalette(pal Palette, capacity int) error {
	switch {
	case len(pal) == 0:
		return fmt.Errorf("%w: empty palette", ErrInvalidInput)
	case len(pal) > capacity:
		return fmt.Errorf("%w: palette has %d colors, at most %d fit", ErrInvalidInput, len(pal), capacity)
	}
	seen := make(map[RGB]int, len(pal))
	for i, c := range pal {
		if j, dup := seen[c]; dup {
			return fmt.Errorf("%w: palette entries %d and %d are both %v", ErrInvalidInput, j, i, c)
		}
		seen[c] = i
	}
	return nil
}

func newIndexBuffer(width, height int) *IndexBuffer {
	return &IndexBuffer{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height),
	}
}

// Quantize maps every pixel to its nearest palette entry under m. Row bands
// run in parallel on pool and each writes only its own rows.
func Quantize(src *PixelBuffer, pal Palette, m Metric, pool *parallel.Pool) (*IndexBuffer, error) {
	if err := src.validate(); err != nil {
		return nil, err
	}
	if err := checkPalette(pal, 256); err != nil {
		return nil, err
	}
	if m == nil {
		m = WeightedRGB
	}

	dst := newIndexBuffer(src.Width, src.Height)
	rows(pool, src.Height, func(lo, hi int) {
		memo := make(map[uint32]uint8)
		for y := lo; y < hi; y++ {
			row := dst.Pix[y*dst.Width : (y+1)*dst.Width]
			for x := range row {
				c := src.At(x, y)
				k, ok := memo[c.key()]
				if !ok {
					k = uint8(pal.Index(c, m))
					memo[c.key()] = k
				}
				row[x] = k
			}
		}
	})
	return dst, nil
}

// Floyd-Steinberg weights, in sixteenths.
const (
	fsRight      = 7.0 / 16
	fsBelowLeft  = 3.0 / 16
	fsBelow      = 5.0 / 16
	fsBelowRight = 1.0 / 16
)

// Diffuse maps pixels to palette entries with Floyd-Steinberg error
// diffusion. Each pixel is matched after adding the error carried from
// already processed neighbours, clamped to the channel range; error pushed
// past the image edges is dropped. With serpentine set, odd rows are walked
// right to left. The error chain makes this strictly sequential.
func Diffuse(src *PixelBuffer, pal Palette, m Metric, serpentine bool) (*IndexBuffer, error) {
	if err := src.validate(); err != nil {
		return nil, err
	}
	if err := checkPalette(pal, 256); err != nil {
		return nil, err
	}
	if m == nil {
		m = WeightedRGB
	}

	w, h := src.Width, src.Height
	dst := newIndexBuffer(w, h)

	// column x lives at x+1; the outer slots catch error leaving the image
	cur := make([][3]float64, w+2)
	next := make([][3]float64, w+2)
	memo := make(map[uint32]uint8)

	for y := range h {
		dir := 1
		if serpentine && y%2 == 1 {
			dir = -1
		}
		for i := range w {
			x := i
			if dir < 0 {
				x = w - 1 - i
			}

			c := src.At(x, y)
			e := cur[x+1]
			var adj [3]float64
			for ch := range 3 {
				adj[ch] = max(0, min(255, float64(channel(c, ch))+e[ch]))
			}
			// matched at 8 bits so the memo applies; the error below keeps
			// the fractional part
			q := RGB{R: uint8(adj[0] + 0.5), G: uint8(adj[1] + 0.5), B: uint8(adj[2] + 0.5)}

			k, ok := memo[q.key()]
			if !ok {
				k = uint8(pal.Index(q, m))
				memo[q.key()] = k
			}
			dst.Pix[y*w+x] = k

			p := pal[k]
			for ch := range 3 {
				d := adj[ch] - float64(channel(p, ch))
				cur[x+1+dir][ch] += d * fsRight
				next[x+1-dir][ch] += d * fsBelowLeft
				next[x+1][ch] += d * fsBelow
				next[x+1+dir][ch] += d * fsBelowRight
			}
		}

		cur, next = next, cur
		clear(next)
		cur[0], cur[w+1] = [3]float64{}, [3]float64{}
	}
	return dst, nil
}
