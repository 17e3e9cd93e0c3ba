// Package grid holds the occupancy state of a partially reconstructed 5x5 key table.
package grid

import (
	"errors"
	"fmt"

	"svw.info/playfair/internal/domain"
)

var (
	ErrCellRange      = errors.New("cell out of range")
	ErrCellOccupied   = errors.New("cell already occupied")
	ErrLetterAssigned = errors.New("letter already assigned")
	ErrFreeMarker     = errors.New("letter collides with the free-cell marker")
)

// InvariantError is the panic value raised when a caller breaks the store's
// occupancy or injectivity precondition. It always indicates a resolver bug.
type InvariantError struct {
	Letter rune
	Cell   int
	Err    error
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("grid invariant violated assigning %q to cell %d: %v", e.Letter, e.Cell, e.Err)
}

func (e *InvariantError) Unwrap() error { return e.Err }

// Store is the 25-cell table. The zero value is not usable; call New.
type Store struct {
	cells   [domain.Cells]rune // 0 = free
	letters map[rune]int
	rowCap  [domain.Size]int
	colCap  [domain.Size]int
}

func New() *Store {
	s := &Store{letters: make(map[rune]int, domain.Cells)}
	for i := 0; i < domain.Size; i++ {
		s.rowCap[i] = domain.Size
		s.colCap[i] = domain.Size
	}
	return s
}

func RowOf(cell int) int       { return cell / domain.Size }
func ColOf(cell int) int       { return cell % domain.Size }
func CellAt(row, col int) int { return row*domain.Size + col }

// Assign places letter on a free cell. It panics with *InvariantError when the
// cell is occupied or the letter is already placed.
func (s *Store) Assign(letter rune, cell int) {
	if err := s.check(letter, cell); err != nil {
		panic(&InvariantError{Letter: letter, Cell: cell, Err: err})
	}
	s.cells[cell] = letter
	s.letters[letter] = cell
	s.rowCap[RowOf(cell)]--
	s.colCap[ColOf(cell)]--
}

func (s *Store) check(letter rune, cell int) error {
	if cell < 0 || cell >= domain.Cells {
		return ErrCellRange
	}
	if letter == 0 {
		return ErrFreeMarker
	}
	if s.cells[cell] != 0 {
		return ErrCellOccupied
	}
	if _, ok := s.letters[letter]; ok {
		return ErrLetterAssigned
	}
	return nil
}

func (s *Store) IsFree(cell int) bool { return s.cells[cell] == 0 }

func (s *Store) RowCapacity(r int) int { return s.rowCap[r] }

func (s *Store) ColCapacity(c int) int { return s.colCap[c] }

// CellOf reports where letter sits; ok is false when it is not placed yet.
func (s *Store) CellOf(letter rune) (cell int, ok bool) {
	cell, ok = s.letters[letter]
	return cell, ok
}

// LetterAt returns the letter in cell, or 0 when free.
func (s *Store) LetterAt(cell int) rune { return s.cells[cell] }

// Placed is the number of occupied cells.
func (s *Store) Placed() int { return len(s.letters) }

// FreeCells lists free cells in ascending order.
func (s *Store) FreeCells() []int {
	out := make([]int, 0, domain.Cells-len(s.letters))
	for i, l := range s.cells {
		if l == 0 {
			out = append(out, i)
		}
	}
	return out
}

func (s *Store) Snapshot() domain.Snapshot {
	out := domain.EmptySnapshot()
	for i, l := range s.cells {
		if l != 0 {
			out[i] = l
		}
	}
	return out
}
