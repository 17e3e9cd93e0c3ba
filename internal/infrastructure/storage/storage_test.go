package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"svw.info/playfair/internal/domain"
	"svw.info/playfair/internal/ports"
)

func sampleRecord(id string, status domain.Status, created int64) *domain.Record {
	snap := domain.EmptySnapshot()
	snap[0], snap[1], snap[5] = 'a', 'b', 'c'
	return &domain.Record{
		ID:     id,
		Seed:   42,
		Status: status,
		Reward: -10,
		Steps: []domain.Step{
			{Pos: 0, Relation: domain.Row, Reward: 10},
			{Pos: 2, Relation: domain.Rectangle, Reward: -20},
		},
		Length:    100,
		Key:       "monarchybdefgiklpqstuvwxz",
		Snapshot:  snap,
		Placed:    3,
		Agreement: 2,
		CreatedAt: created,
	}
}

func exerciseStorage(t *testing.T, st ports.Storage) {
	ctx := context.Background()
	first := sampleRecord("ep-1", domain.TerminalFailure, 100)
	second := sampleRecord("ep-2", domain.TerminalSuccess, 200)
	second.Steps = nil

	require.NoError(t, st.Save(ctx, first))
	require.NoError(t, st.Save(ctx, second))
	assert.Error(t, st.Save(ctx, &domain.Record{}))

	got, err := st.Load(ctx, "ep-1")
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(first, got))

	got, err = st.Load(ctx, "ep-2")
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(second, got))

	_, err = st.Load(ctx, "nope")
	assert.ErrorIs(t, err, os.ErrNotExist)

	metas, err := st.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.RecordMeta{
		{ID: "ep-2", Status: domain.TerminalSuccess, Reward: -10, CreatedAt: 200},
		{ID: "ep-1", Status: domain.TerminalFailure, Reward: -10, CreatedAt: 100},
	}, metas)
}

func TestFS(t *testing.T) {
	dir := t.TempDir()
	exerciseStorage(t, NewFS(dir))
	_, err := os.Stat(filepath.Join(dir, "failure", "ep-1.json"))
	assert.NoError(t, err)
}

func TestFSRejectsPathIDs(t *testing.T) {
	st := NewFS(t.TempDir())
	assert.Error(t, st.Save(context.Background(), sampleRecord("../x", domain.TerminalSuccess, 1)))
}

func TestFSMovesRecordBetweenBuckets(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	st := NewFS(dir)

	require.NoError(t, st.Save(ctx, sampleRecord("ep-1", domain.Running, 100)))
	require.NoError(t, st.Save(ctx, sampleRecord("ep-1", domain.TerminalSuccess, 100)))

	metas, err := st.List(ctx)
	require.NoError(t, err)
	require.Len(t, metas, 1)
	assert.Equal(t, domain.TerminalSuccess, metas[0].Status)

	_, err = os.Stat(filepath.Join(dir, "running", "ep-1.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
	got, err := st.Load(ctx, "ep-1")
	require.NoError(t, err)
	assert.Equal(t, domain.TerminalSuccess, got.Status)
}

func TestSQLite(t *testing.T) {
	st, err := NewSQLite(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer st.Close()
	exerciseStorage(t, st)
}

func TestSQLiteReplacesOnSave(t *testing.T) {
	st, err := NewSQLite(":memory:")
	require.NoError(t, err)
	defer st.Close()
	ctx := context.Background()

	r := sampleRecord("ep", domain.TerminalFailure, 1)
	require.NoError(t, st.Save(ctx, r))
	r.Reward = 1000
	r.Status = domain.TerminalSuccess
	require.NoError(t, st.Save(ctx, r))

	got, err := st.Load(ctx, "ep")
	require.NoError(t, err)
	assert.Equal(t, 1000, got.Reward)
	assert.Equal(t, domain.TerminalSuccess, got.Status)
	metas, err := st.List(ctx)
	require.NoError(t, err)
	assert.Len(t, metas, 1)
}

func TestSQLiteReopenKeepsRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	ctx := context.Background()

	st, err := NewSQLite(path)
	require.NoError(t, err)
	require.NoError(t, st.Save(ctx, sampleRecord("ep", domain.TerminalSuccess, 1)))
	require.NoError(t, st.Close())

	// second open finds the schema already migrated
	st, err = NewSQLite(path)
	require.NoError(t, err)
	defer st.Close()
	got, err := st.Load(ctx, "ep")
	require.NoError(t, err)
	assert.Equal(t, domain.TerminalSuccess, got.Status)
}
