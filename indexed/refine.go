package indexed

import "math"

const (
	// searchBudget bounds the metric evaluations of the exhaustive search
	// over groupings of a small color population.
	searchBudget = 1 << 22
	// refineBudget bounds the metric evaluations spent on Lloyd iterations.
	refineBudget = 1 << 25
	maxRefine    = 16
)

// partitionCount returns the number of ways to split n items into k
// non-empty groups, saturating at limit+1.
func partitionCount(n, k, limit int) int {
	s := make([]int, k+1)
	s[0] = 1
	for i := 1; i <= n; i++ {
		for j := min(i, k); j >= 1; j-- {
			s[j] = min(limit+1, j*s[j]+s[j-1])
		}
		s[0] = 0
	}
	return s[k]
}

// searchable reports whether every grouping of n colors into k entries can
// be scored within searchBudget.
func searchable(n, k int) bool {
	cost := n * k
	if cost > searchBudget {
		return false
	}
	return partitionCount(n, k, searchBudget/cost) <= searchBudget/cost
}

// paletteError is the population weighted error of mapping every entry to
// its nearest palette color under m.
func paletteError(entries []colorCount, pal Palette, m Metric) float64 {
	var total float64
	for _, e := range entries {
		total += float64(e.n) * m(e.c, pal[pal.Index(e.c, m)])
	}
	return total
}

// centroids returns the weighted mean of each of the k groups. A
// group without colors keeps its prev entry, or fails when prev is nil.
// It also fails when two groups end up on the same color.
func centroids(entries []colorCount, group []int, k int, prev Palette) (Palette, bool) {
	sum := make([][3]uint64, k)
	pop := make([]uint64, k)
	for i, e := range entries {
		g := group[i]
		pop[g] += e.n
		for ch := range 3 {
			sum[g][ch] += uint64(channel(e.c, ch)) * e.n
		}
	}

	pal := make(Palette, k)
	seen := make(map[RGB]bool, k)
	for g := range pal {
		switch {
		case pop[g] > 0:
			round := func(s uint64) uint8 { return uint8((s + pop[g]/2) / pop[g]) }
			pal[g] = RGB{R: round(sum[g][0]), G: round(sum[g][1]), B: round(sum[g][2])}
		case prev != nil:
			pal[g] = prev[g]
		default:
			return nil, false
		}
		if seen[pal[g]] {
			return nil, false
		}
		seen[pal[g]] = true
	}
	return pal, true
}

// bestGrouping tries every split of entries into k non-empty groups, in
// lexicographic order of group labels, and returns the centroids with the
// lowest error under m. The first minimum wins.
func bestGrouping(entries []colorCount, k int, m Metric) Palette {
	group := make([]int, len(entries))
	var best Palette
	bestErr := math.Inf(1)

	var walk func(i, used int)
	walk = func(i, used int) {
		if len(entries)-i < k-used {
			return
		}
		if i == len(entries) {
			pal, ok := centroids(entries, group, k, nil)
			if !ok {
				return
			}
			if e := paletteError(entries, pal, m); e < bestErr {
				best, bestErr = pal, e
			}
			return
		}
		for g := 0; g <= min(used, k-1); g++ {
			group[i] = g
			if g == used {
				walk(i+1, used+1)
			} else {
				walk(i+1, used)
			}
		}
	}
	walk(0, 0)
	return best
}

// refine runs Lloyd iterations on pal: every color joins its nearest entry
// under m and each entry moves to the weighted mean of its colors. An
// iteration is kept only when it lowers the error and leaves no duplicate
// entries, so the result is never worse than pal.
func refine(entries []colorCount, pal Palette, m Metric) Palette {
	iterations := min(maxRefine, refineBudget/(len(entries)*len(pal))-1)
	if iterations <= 0 {
		return pal
	}

	group := make([]int, len(entries))
	assign := func(p Palette) float64 {
		var total float64
		for i, e := range entries {
			g := p.Index(e.c, m)
			group[i] = g
			total += float64(e.n) * m(e.c, p[g])
		}
		return total
	}

	cur := assign(pal)
	for range iterations {
		next, ok := centroids(entries, group, len(pal), pal)
		if !ok {
			break
		}
		e := assign(next)
		if e >= cur {
			break
		}
		pal, cur = next, e
	}
	return pal
}
