package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"svw.info/playfair/internal/domain"
)

// SQLite keeps episode records in a single table; steps are stored as JSON.
// The schema is versioned with golang-migrate from the embedded migrations.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (and if needed creates) the database at path. Use ":memory:" for tests.
func NewSQLite(path string) (*SQLite, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one connection keeps ":memory:" databases shared
	db.SetMaxOpenConns(1)
	s := &SQLite{db: db}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

//go:embed migrations/*.sql
var migrationsFS embed.FS

// initialize brings the schema to the latest migration.
func (s *SQLite) initialize() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to read migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(s.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create sqlite driver: %w", err)
	}
	// m is not closed: closing it would close s.db
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

func (s *SQLite) Close() error { return s.db.Close() }

func (s *SQLite) Save(ctx context.Context, r *domain.Record) error {
	if r == nil || r.ID == "" {
		return errMissingID
	}
	steps, err := json.Marshal(r.Steps)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO episodes
			(id, seed, status, reward, length, key, snapshot, placed, agreement, steps, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, int64(r.Seed), r.Status.String(), r.Reward, r.Length, r.Key,
		string(r.Snapshot[:]), r.Placed, r.Agreement, string(steps), r.CreatedAt)
	if err != nil {
		return fmt.Errorf("save episode %s: %w", r.ID, err)
	}
	return nil
}

func (s *SQLite) Load(ctx context.Context, id string) (*domain.Record, error) {
	var (
		r              domain.Record
		seed           int64
		status, snap   string
		key, stepsJSON sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, seed, status, reward, length, key, snapshot, placed, agreement, steps, created_at
		FROM episodes WHERE id = ?`, id).
		Scan(&r.ID, &seed, &status, &r.Reward, &r.Length, &key, &snap, &r.Placed, &r.Agreement, &stepsJSON, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, os.ErrNotExist
	}
	if err != nil {
		return nil, err
	}
	r.Seed = uint64(seed)
	r.Key = key.String
	if err := r.Status.UnmarshalText([]byte(status)); err != nil {
		return nil, err
	}
	if err := r.Snapshot.UnmarshalText([]byte(snap)); err != nil {
		return nil, err
	}
	if stepsJSON.Valid && stepsJSON.String != "" && stepsJSON.String != "null" {
		if err := json.Unmarshal([]byte(stepsJSON.String), &r.Steps); err != nil {
			return nil, err
		}
	}
	return &r, nil
}

func (s *SQLite) List(ctx context.Context) ([]domain.RecordMeta, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, status, reward, created_at FROM episodes ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.RecordMeta
	for rows.Next() {
		var (
			m      domain.RecordMeta
			status string
		)
		if err := rows.Scan(&m.ID, &status, &m.Reward, &m.CreatedAt); err != nil {
			return nil, err
		}
		if err := m.Status.UnmarshalText([]byte(status)); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
