// Package resolver tests a relation hypothesis against a digraph pair and, when
// the hypothesis is consistent with the grid, commits the implied placement.
//
// Every resolver computes the whole placement before touching the grid, so a
// failed attempt leaves the store unchanged. Positions that the already-placed
// letters determine are forced and never consume randomness; the remaining
// positions are searched in descending-capacity order.
package resolver

import (
	"svw.info/playfair/internal/domain"
	"svw.info/playfair/internal/grid"
	"svw.info/playfair/internal/ports"
)

// Resolve dispatches rel to its resolver and reports whether the pair was
// consistent with it. Unknown relations fail.
func Resolve(rel domain.Relation, g *grid.Store, p domain.Pair, rng ports.Rand) bool {
	switch rel {
	case domain.Row:
		return ResolveRow(g, p, rng)
	case domain.Column:
		return ResolveColumn(g, p, rng)
	case domain.Rectangle:
		return ResolveRectangle(g, p, rng)
	}
	return false
}

// Pending returns the distinct letters of p not yet placed, in d1, d2, e1, e2 order.
func Pending(g *grid.Store, p domain.Pair) []rune {
	out := make([]rune, 0, 4)
	for _, l := range p.Letters() {
		if _, ok := g.CellOf(l); ok || containsRune(out, l) {
			continue
		}
		out = append(out, l)
	}
	return out
}

func containsRune(rs []rune, r rune) bool {
	for _, x := range rs {
		if x == r {
			return true
		}
	}
	return false
}

// placement is a tentative letter->cell mapping for one pair.
type placement struct {
	n       int
	letters [4]rune
	cells   [4]int
}

// add records letter at cell. It rejects a letter mapped to two cells, two
// letters on one cell, a placed letter away from its cell and a pending letter
// on an occupied cell.
func (pl *placement) add(g *grid.Store, letter rune, cell int) bool {
	for i := 0; i < pl.n; i++ {
		if pl.letters[i] == letter {
			return pl.cells[i] == cell
		}
		if pl.cells[i] == cell {
			return false
		}
	}
	if at, ok := g.CellOf(letter); ok {
		if at != cell {
			return false
		}
	} else if !g.IsFree(cell) {
		return false
	}
	pl.letters[pl.n] = letter
	pl.cells[pl.n] = cell
	pl.n++
	return true
}

func (pl *placement) commit(g *grid.Store) {
	for i := 0; i < pl.n; i++ {
		if _, ok := g.CellOf(pl.letters[i]); !ok {
			g.Assign(pl.letters[i], pl.cells[i])
		}
	}
}

// byCapacity orders the five lines by descending capacity. When rng is non-nil
// lines of equal capacity are visited in random order, otherwise by index.
func byCapacity(capacity func(int) int, rng ports.Rand) []int {
	order := []int{0, 1, 2, 3, 4}
	if rng != nil {
		for i := len(order) - 1; i > 0; i-- {
			j := rng.IntN(i + 1)
			order[i], order[j] = order[j], order[i]
		}
	}
	// insertion sort keeps equal capacities in their shuffled order
	for i := 1; i < len(order); i++ {
		for j := i; j > 0 && capacity(order[j]) > capacity(order[j-1]); j-- {
			order[j], order[j-1] = order[j-1], order[j]
		}
	}
	return order
}

// countPending counts how many of letters are still unplaced, counting a
// repeated letter once.
func countPending(g *grid.Store, letters ...rune) int {
	n := 0
	for i, l := range letters {
		if _, ok := g.CellOf(l); ok || containsRune(letters[:i], l) {
			continue
		}
		n++
	}
	return n
}

func mod5(x int) int { return ((x % domain.Size) + domain.Size) % domain.Size }
