package indexed

import (
	"cmp"
	"fmt"
	"maps"
	"slices"
	"sync"

	"labelconv/parallel"
)

func checkDepth(depth int) error {
	switch depth {
	case 1, 4, 8:
		return nil
	}
	return fmt.Errorf("%w: %d (want 1, 4 or 8)", ErrUnsupportedDepth, depth)
}

// Capacity returns the number of palette entries addressable at depth.
func Capacity(depth int) int {
	return 1 << depth
}

func rows(pool *parallel.Pool, n int, fn func(lo, hi int)) {
	if pool == nil {
		fn(0, n)
		return
	}
	pool.Rows(n, fn)
}

// Histogram counts the pixels of every distinct color in src.
func Histogram(src *PixelBuffer, pool *parallel.Pool) map[uint32]uint64 {
	var mu sync.Mutex
	var parts []map[uint32]uint64
	rows(pool, src.Height, func(lo, hi int) {
		part := make(map[uint32]uint64)
		for y := lo; y < hi; y++ {
			for x := range src.Width {
				part[src.At(x, y).key()]++
			}
		}
		mu.Lock()
		parts = append(parts, part)
		mu.Unlock()
	})

	if len(parts) == 0 {
		return map[uint32]uint64{}
	}
	hist := parts[0]
	for _, part := range parts[1:] {
		for k, n := range part {
			hist[k] += n
		}
	}
	return hist
}

// BuildPalette derives at most 2^depth colors from src. When src has few
// enough distinct colors they are returned as is, sorted by 0xRRGGBB value.
// Otherwise the colors are grouped to minimize the total error under m (nil
// means WeightedRGB): small populations are searched exhaustively, larger
// ones are reduced by median cut and then refined by Lloyd iterations.
func BuildPalette(src *PixelBuffer, depth int, m Metric, pool *parallel.Pool) (Palette, error) {
	if err := checkDepth(depth); err != nil {
		return nil, err
	}
	if err := src.validate(); err != nil {
		return nil, err
	}
	if m == nil {
		m = WeightedRGB
	}

	hist := Histogram(src, pool)
	keys := slices.Sorted(maps.Keys(hist))

	if len(keys) <= Capacity(depth) {
		pal := make(Palette, len(keys))
		for i, k := range keys {
			pal[i] = rgbFromKey(k)
		}
		return pal, nil
	}

	entries := make([]colorCount, len(keys))
	for i, k := range keys {
		entries[i] = colorCount{c: rgbFromKey(k), n: hist[k]}
	}
	if searchable(len(entries), Capacity(depth)) {
		if pal := bestGrouping(entries, Capacity(depth), m); pal != nil {
			return pal, nil
		}
	}
	// medianCut reorders entries within buckets, so it gets its own copy
	pal := medianCut(slices.Clone(entries), Capacity(depth))
	return refine(entries, pal, m), nil
}

type colorCount struct {
	c RGB
	n uint64
}

func channel(c RGB, ch int) uint8 {
	switch ch {
	case 0:
		return c.R
	case 1:
		return c.G
	}
	return c.B
}

// bucket is a box of the RGB cube holding part of the color population.
type bucket struct {
	entries []colorCount
	pop     uint64
	lo, hi  [3]uint8
}

func newBucket(entries []colorCount) *bucket {
	b := &bucket{entries: entries, lo: [3]uint8{255, 255, 255}}
	for _, e := range entries {
		b.pop += e.n
		for ch := range 3 {
			v := channel(e.c, ch)
			b.lo[ch] = min(b.lo[ch], v)
			b.hi[ch] = max(b.hi[ch], v)
		}
	}
	return b
}

// widest returns the largest channel range and its channel, preferring R
// over G over B.
func (b *bucket) widest() (int, int) {
	spread, ch := -1, 0
	for i := range 3 {
		if r := int(b.hi[i]) - int(b.lo[i]); r > spread {
			spread, ch = r, i
		}
	}
	return spread, ch
}

// split cuts b at the population median along its widest channel, moved to
// the nearest point where that channel changes value, so that both halves
// are non-empty and separated by a plane.
func (b *bucket) split() (*bucket, *bucket) {
	_, ch := b.widest()
	slices.SortFunc(b.entries, func(x, y colorCount) int {
		if d := cmp.Compare(channel(x.c, ch), channel(y.c, ch)); d != 0 {
			return d
		}
		return cmp.Compare(x.c.key(), y.c.key())
	})

	half := (b.pop + 1) / 2
	cut := len(b.entries) - 1
	var acc uint64
	for i, e := range b.entries {
		acc += e.n
		if acc >= half {
			cut = i + 1
			break
		}
	}
	cut = max(1, min(cut, len(b.entries)-1))

	boundary := func(k int) bool {
		return k >= 1 && k < len(b.entries) &&
			channel(b.entries[k-1].c, ch) != channel(b.entries[k].c, ch)
	}
	for d := 0; ; d++ {
		if boundary(cut - d) {
			cut -= d
			break
		}
		if boundary(cut + d) {
			cut += d
			break
		}
	}

	return newBucket(b.entries[:cut]), newBucket(b.entries[cut:])
}

// mean returns the population weighted centroid, rounded to 8 bits.
func (b *bucket) mean() RGB {
	var sum [3]uint64
	for _, e := range b.entries {
		for ch := range 3 {
			sum[ch] += uint64(channel(e.c, ch)) * e.n
		}
	}
	round := func(s uint64) uint8 { return uint8((s + b.pop/2) / b.pop) }
	return RGB{R: round(sum[0]), G: round(sum[1]), B: round(sum[2])}
}

// medianCut reduces entries to n representative colors. The bucket with the
// largest channel range is split first (ties: larger population, then
// earlier bucket). A split bucket keeps its slot for the lower half and the
// upper half is appended.
func medianCut(entries []colorCount, n int) Palette {
	buckets := []*bucket{newBucket(entries)}
	for len(buckets) < n {
		pick, bestSpread := -1, 0
		for i, b := range buckets {
			spread, _ := b.widest()
			if spread == 0 {
				continue
			}
			if pick < 0 || spread > bestSpread || (spread == bestSpread && b.pop > buckets[pick].pop) {
				pick, bestSpread = i, spread
			}
		}
		if pick < 0 {
			break
		}
		low, high := buckets[pick].split()
		buckets[pick] = low
		buckets = append(buckets, high)
	}

	pal := make(Palette, len(buckets))
	for i, b := range buckets {
		pal[i] = b.mean()
	}
	return pal
}
