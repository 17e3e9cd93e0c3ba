package storage

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"svw.info/playfair/internal/domain"
)

// FS stores one JSON file per episode, bucketed by outcome:
// {dir}/success/{id}.json and {dir}/failure/{id}.json.
type FS struct{ dir string }

func NewFS(dir string) *FS { return &FS{dir: dir} }

var errMissingID = errors.New("invalid record: missing ID")

func statusDir(s domain.Status) string {
	switch s {
	case domain.TerminalSuccess:
		return "success"
	case domain.TerminalFailure:
		return "failure"
	default:
		return "running"
	}
}

var buckets = []domain.Status{domain.TerminalSuccess, domain.TerminalFailure, domain.Running}

func (s *FS) pathFor(id string, st domain.Status) string {
	return filepath.Join(s.dir, statusDir(st), strings.TrimSpace(id)+".json")
}

func (s *FS) Save(ctx context.Context, r *domain.Record) error {
	if r == nil || r.ID == "" {
		return errMissingID
	}
	if strings.ContainsAny(r.ID, `/\`) {
		return errors.New("invalid record: ID contains a path separator")
	}
	target := s.pathFor(r.ID, r.Status)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	f, err := os.Create(target)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	// a record lives in exactly one bucket
	for _, st := range buckets {
		if statusDir(st) == statusDir(r.Status) {
			continue
		}
		if err := os.Remove(s.pathFor(r.ID, st)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}

func (s *FS) Load(ctx context.Context, id string) (*domain.Record, error) {
	if strings.ContainsAny(id, `/\`) {
		return nil, os.ErrNotExist
	}
	for _, st := range buckets {
		data, err := os.ReadFile(s.pathFor(id, st))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		var out domain.Record
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, err
		}
		return &out, nil
	}
	return nil, os.ErrNotExist
}

// List returns every stored record's metadata, newest first.
func (s *FS) List(ctx context.Context) ([]domain.RecordMeta, error) {
	type m struct {
		ID        string        `json:"id"`
		Status    domain.Status `json:"status"`
		Reward    int           `json:"reward"`
		CreatedAt int64         `json:"createdAt"`
	}
	var out []domain.RecordMeta
	for _, st := range buckets {
		dir := filepath.Join(s.dir, statusDir(st))
		ents, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		for _, e := range ents {
			if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
				continue
			}
			data, err := os.ReadFile(filepath.Join(dir, e.Name()))
			if err != nil {
				continue
			}
			var mm m
			if err := json.Unmarshal(data, &mm); err != nil || mm.ID == "" {
				continue
			}
			out = append(out, domain.RecordMeta(mm))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	return out, nil
}
