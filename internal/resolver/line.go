package resolver

import (
	"svw.info/playfair/internal/domain"
	"svw.info/playfair/internal/grid"
	"svw.info/playfair/internal/ports"
)

// axis abstracts rows and columns: a line index, a position along the line
// and the capacity of a line. The successor of a letter is the next position
// along the same line, wrapping from 4 to 0.
type axis struct {
	line     func(cell int) int
	pos      func(cell int) int
	cell     func(line, pos int) int
	capacity func(g *grid.Store, line int) int
}

var rows = axis{
	line:     grid.RowOf,
	pos:      grid.ColOf,
	cell:     grid.CellAt,
	capacity: (*grid.Store).RowCapacity,
}

var cols = axis{
	line:     grid.ColOf,
	pos:      grid.RowOf,
	cell:     func(line, pos int) int { return grid.CellAt(pos, line) },
	capacity: (*grid.Store).ColCapacity,
}

// ResolveRow tests that d1 and d2 share a row with e1 right of d1 and e2 right of d2.
func ResolveRow(g *grid.Store, p domain.Pair, rng ports.Rand) bool {
	return resolveLine(rows, g, p, rng)
}

// ResolveColumn tests that d1 and d2 share a column with e1 below d1 and e2 below d2.
func ResolveColumn(g *grid.Store, p domain.Pair, rng ports.Rand) bool {
	return resolveLine(cols, g, p, rng)
}

func resolveLine(ax axis, g *grid.Store, p domain.Pair, rng ports.Rand) bool {
	// a letter is never its own neighbour on a five-wide line
	if p.D1 == p.E1 || p.D2 == p.E2 {
		return false
	}

	line, p1, p2 := -1, -1, -1
	pin := func(letter rune, offset int, slot *int) bool {
		cell, ok := g.CellOf(letter)
		if !ok {
			return true
		}
		if line >= 0 && ax.line(cell) != line {
			return false
		}
		line = ax.line(cell)
		pos := mod5(ax.pos(cell) - offset)
		if *slot >= 0 && *slot != pos {
			return false
		}
		*slot = pos
		return true
	}
	if !pin(p.D1, 0, &p1) || !pin(p.E1, 1, &p1) || !pin(p.D2, 0, &p2) || !pin(p.E2, 1, &p2) {
		return false
	}

	pending := Pending(g, p)
	if len(pending) == 0 {
		// every letter is placed and the pins agreed
		return true
	}
	if line >= 0 && ax.capacity(g, line) < len(pending) {
		return false
	}

	if line >= 0 && p1 >= 0 && p2 >= 0 {
		var pl placement
		if !linePlacement(ax, g, p, line, p1, p2, &pl) {
			return false
		}
		pl.commit(g)
		return true
	}

	var lines []int
	if line >= 0 {
		lines = []int{line}
	} else {
		lines = byCapacity(func(l int) int { return ax.capacity(g, l) }, nil)
	}
	firsts, seconds := positions(p1), positions(p2)

	// collect every placement in the highest-capacity tier that has one
	var cands []placement
	tier := -1
	for _, l := range lines {
		c := ax.capacity(g, l)
		if c < len(pending) || (len(cands) > 0 && c < tier) {
			break
		}
		for _, a := range firsts {
			for _, b := range seconds {
				var pl placement
				if linePlacement(ax, g, p, l, a, b, &pl) {
					cands = append(cands, pl)
					tier = c
				}
			}
		}
	}
	if len(cands) == 0 {
		return false
	}
	choice := cands[0]
	if len(cands) > 1 {
		choice = cands[rng.IntN(len(cands))]
	}
	choice.commit(g)
	return true
}

func linePlacement(ax axis, g *grid.Store, p domain.Pair, line, a, b int, pl *placement) bool {
	return pl.add(g, p.D1, ax.cell(line, a)) &&
		pl.add(g, p.E1, ax.cell(line, mod5(a+1))) &&
		pl.add(g, p.D2, ax.cell(line, b)) &&
		pl.add(g, p.E2, ax.cell(line, mod5(b+1)))
}

// positions is the pinned position or every position when unpinned.
func positions(pinned int) []int {
	if pinned >= 0 {
		return []int{pinned}
	}
	return []int{0, 1, 2, 3, 4}
}
