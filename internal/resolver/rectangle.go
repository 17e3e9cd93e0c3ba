package resolver

import (
	"svw.info/playfair/internal/domain"
	"svw.info/playfair/internal/grid"
	"svw.info/playfair/internal/ports"
)

// corners names the rectangle's two rows and two columns: d1 sits at (r1, c1),
// e1 at (r1, c2), d2 at (r2, c2) and e2 at (r2, c1). -1 is unpinned.
type corners struct {
	r1, r2, c1, c2 int
}

// ResolveRectangle tests that d1 and d2 sit on different rows and columns
// with e1 at (row d1, col d2) and e2 at (row d2, col d1).
func ResolveRectangle(g *grid.Store, p domain.Pair, rng ports.Rand) bool {
	// the four corners are four distinct cells
	ls := p.Letters()
	for i := range ls {
		if containsRune(ls[:i], ls[i]) {
			return false
		}
	}

	k := corners{-1, -1, -1, -1}
	pin := func(letter rune, row, col *int) bool {
		cell, ok := g.CellOf(letter)
		if !ok {
			return true
		}
		if (*row >= 0 && *row != grid.RowOf(cell)) || (*col >= 0 && *col != grid.ColOf(cell)) {
			return false
		}
		*row, *col = grid.RowOf(cell), grid.ColOf(cell)
		return true
	}
	if !pin(p.D1, &k.r1, &k.c1) || !pin(p.E1, &k.r1, &k.c2) ||
		!pin(p.D2, &k.r2, &k.c2) || !pin(p.E2, &k.r2, &k.c1) {
		return false
	}
	if (k.r1 >= 0 && k.r1 == k.r2) || (k.c1 >= 0 && k.c1 == k.c2) {
		return false
	}

	if countPending(g, ls[:]...) == 0 {
		return true
	}

	// a pinned line must hold every pending corner that lands on it
	need := struct{ r1, r2, c1, c2 int }{
		r1: countPending(g, p.D1, p.E1),
		r2: countPending(g, p.D2, p.E2),
		c1: countPending(g, p.D1, p.E2),
		c2: countPending(g, p.E1, p.D2),
	}
	if (k.r1 >= 0 && g.RowCapacity(k.r1) < need.r1) || (k.r2 >= 0 && g.RowCapacity(k.r2) < need.r2) ||
		(k.c1 >= 0 && g.ColCapacity(k.c1) < need.c1) || (k.c2 >= 0 && g.ColCapacity(k.c2) < need.c2) {
		return false
	}

	if k.r1 >= 0 && k.r2 >= 0 && k.c1 >= 0 && k.c2 >= 0 {
		var pl placement
		if !rectPlacement(g, p, k, &pl) {
			return false
		}
		pl.commit(g)
		return true
	}

	rowOrder := byCapacity(g.RowCapacity, rng)
	colOrder := byCapacity(g.ColCapacity, rng)
	candidates := func(pinned int, order []int, capacity func(int) int, need int) []int {
		if pinned >= 0 {
			return []int{pinned}
		}
		out := make([]int, 0, len(order))
		for _, l := range order {
			if capacity(l) >= need {
				out = append(out, l)
			}
		}
		return out
	}
	r1s := candidates(k.r1, rowOrder, g.RowCapacity, need.r1)
	r2s := candidates(k.r2, rowOrder, g.RowCapacity, need.r2)
	c1s := candidates(k.c1, colOrder, g.ColCapacity, need.c1)
	c2s := candidates(k.c2, colOrder, g.ColCapacity, need.c2)

	for _, r1 := range r1s {
		for _, r2 := range r2s {
			if r1 == r2 {
				continue
			}
			for _, c1 := range c1s {
				for _, c2 := range c2s {
					if c1 == c2 {
						continue
					}
					var pl placement
					if rectPlacement(g, p, corners{r1, r2, c1, c2}, &pl) {
						pl.commit(g)
						return true
					}
				}
			}
		}
	}
	return false
}

func rectPlacement(g *grid.Store, p domain.Pair, k corners, pl *placement) bool {
	return pl.add(g, p.D1, grid.CellAt(k.r1, k.c1)) &&
		pl.add(g, p.E1, grid.CellAt(k.r1, k.c2)) &&
		pl.add(g, p.D2, grid.CellAt(k.r2, k.c2)) &&
		pl.add(g, p.E2, grid.CellAt(k.r2, k.c1))
}
