package validator

import (
	"context"
	"fmt"

	"svw.info/playfair/internal/cipher"
	"svw.info/playfair/internal/domain"
	"svw.info/playfair/internal/grid"
)

// Violation is a broken grid invariant at a cell, or -1 for line-level problems.
type Violation struct {
	Cell   int    `json:"cell"`
	Reason string `json:"reason"`
}

type FastValidator struct{}

func New() *FastValidator { return &FastValidator{} }

// Validate cross-checks the store's bookkeeping: letter map against cells,
// capacities against occupancy, free list against empty cells.
func (v *FastValidator) Validate(ctx context.Context, g *grid.Store) (bool, []Violation, error) {
	if err := ctx.Err(); err != nil {
		return false, nil, err
	}
	conf := make([]Violation, 0, 4)
	var rows, cols [domain.Size]int
	seen := make(map[rune]int, domain.Cells)
	for cell := 0; cell < domain.Cells; cell++ {
		l := g.LetterAt(cell)
		if l == 0 {
			if !g.IsFree(cell) {
				conf = append(conf, Violation{cell, "empty cell not free"})
			}
			continue
		}
		if prev, dup := seen[l]; dup {
			conf = append(conf, Violation{cell, fmt.Sprintf("letter %q also at cell %d", l, prev)})
		}
		seen[l] = cell
		if at, ok := g.CellOf(l); !ok || at != cell {
			conf = append(conf, Violation{cell, fmt.Sprintf("letter map disagrees for %q", l)})
		}
		rows[grid.RowOf(cell)]++
		cols[grid.ColOf(cell)]++
	}
	for i := 0; i < domain.Size; i++ {
		if got, want := g.RowCapacity(i), domain.Size-rows[i]; got != want || got < 0 {
			conf = append(conf, Violation{-1, fmt.Sprintf("row %d capacity %d, want %d", i, got, want)})
		}
		if got, want := g.ColCapacity(i), domain.Size-cols[i]; got != want || got < 0 {
			conf = append(conf, Violation{-1, fmt.Sprintf("col %d capacity %d, want %d", i, got, want)})
		}
	}
	if len(seen) != g.Placed() {
		conf = append(conf, Violation{-1, fmt.Sprintf("%d letters in cells, %d mapped", len(seen), g.Placed())})
	}
	if free := len(g.FreeCells()); free+len(seen) != domain.Cells {
		conf = append(conf, Violation{-1, fmt.Sprintf("%d free and %d occupied cells", free, len(seen))})
	}
	return len(conf) == 0, conf, nil
}

// Agreement counts the placed letters of snap that sit where key puts them,
// maximized over the tables that encipher identically to key: every cyclic
// row and column rotation, with and without transposition.
func Agreement(key cipher.Key, snap domain.Snapshot) int {
	best := 0
	for _, transpose := range []bool{false, true} {
		for dr := 0; dr < domain.Size; dr++ {
			for dc := 0; dc < domain.Size; dc++ {
				n := 0
				for cell, l := range snap {
					if l == domain.Unused {
						continue
					}
					r, c := grid.RowOf(cell), grid.ColOf(cell)
					if transpose {
						r, c = c, r
					}
					if key[grid.CellAt((r+dr)%domain.Size, (c+dc)%domain.Size)] == l {
						n++
					}
				}
				if n > best {
					best = n
				}
			}
		}
	}
	return best
}
