package grid

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"svw.info/playfair/internal/domain"
)

// checkInvariants verifies capacities against occupancy and that free and
// occupied cells partition the table.
func checkInvariants(t *testing.T, s *Store) {
	t.Helper()
	var rows, cols [domain.Size]int
	free := map[int]bool{}
	for _, c := range s.FreeCells() {
		free[c] = true
	}
	seen := map[rune]int{}
	for cell := 0; cell < domain.Cells; cell++ {
		l := s.LetterAt(cell)
		if l == 0 {
			require.True(t, free[cell], "cell %d is empty but not free", cell)
			continue
		}
		require.False(t, free[cell], "cell %d is occupied and free", cell)
		_, dup := seen[l]
		require.False(t, dup, "letter %q appears twice", l)
		seen[l] = cell
		got, ok := s.CellOf(l)
		require.True(t, ok)
		require.Equal(t, cell, got)
		rows[RowOf(cell)]++
		cols[ColOf(cell)]++
	}
	for i := 0; i < domain.Size; i++ {
		assert.Equal(t, domain.Size-rows[i], s.RowCapacity(i), "row %d capacity", i)
		assert.Equal(t, domain.Size-cols[i], s.ColCapacity(i), "col %d capacity", i)
		assert.GreaterOrEqual(t, s.RowCapacity(i), 0)
	}
	assert.Equal(t, len(seen), s.Placed())
	assert.Equal(t, domain.Cells, len(free)+s.Placed())
}

func TestNewIsEmpty(t *testing.T) {
	s := New()
	checkInvariants(t, s)
	assert.Len(t, s.FreeCells(), domain.Cells)
	assert.Equal(t, domain.EmptySnapshot(), s.Snapshot())
	_, ok := s.CellOf('a')
	assert.False(t, ok)
}

func TestAssignUpdatesCapacities(t *testing.T) {
	s := New()
	s.Assign('a', CellAt(1, 3))
	s.Assign('b', CellAt(1, 4))
	s.Assign('c', CellAt(4, 3))
	checkInvariants(t, s)

	assert.Equal(t, 3, s.RowCapacity(1))
	assert.Equal(t, 4, s.RowCapacity(4))
	assert.Equal(t, 3, s.ColCapacity(3))
	assert.Equal(t, 4, s.ColCapacity(4))
	assert.False(t, s.IsFree(8))
	assert.True(t, s.IsFree(0))

	snap := s.Snapshot()
	assert.Equal(t, 'a', snap[8])
	assert.Equal(t, rune(domain.Unused), snap[0])
}

func TestFillWholeTable(t *testing.T) {
	s := New()
	letters := []rune("abcdefghiklmnopqrstuvwxyz")
	for i, l := range letters {
		s.Assign(l, i)
		checkInvariants(t, s)
	}
	for i := 0; i < domain.Size; i++ {
		assert.Zero(t, s.RowCapacity(i))
		assert.Zero(t, s.ColCapacity(i))
	}
	assert.Empty(t, s.FreeCells())
}

func TestAssignPanicsOnInvariantViolation(t *testing.T) {
	cases := []struct {
		name   string
		letter rune
		cell   int
		want   error
	}{
		{"occupied cell", 'z', 0, ErrCellOccupied},
		{"letter placed twice", 'a', 1, ErrLetterAssigned},
		{"out of range", 'q', domain.Cells, ErrCellRange},
		{"free-cell marker", 0, 7, ErrFreeMarker},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := New()
			s.Assign('a', 0)
			defer func() {
				r := recover()
				require.NotNil(t, r, "expected panic")
				err, ok := r.(error)
				require.True(t, ok)
				var ie *InvariantError
				require.True(t, errors.As(err, &ie))
				assert.ErrorIs(t, err, tc.want)
				checkInvariants(t, s)
			}()
			s.Assign(tc.letter, tc.cell)
		})
	}
}
