package usecase

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"svw.info/playfair/internal/domain"
	"svw.info/playfair/internal/ports"
	"svw.info/playfair/internal/runner"
)

type Service struct {
	Source  ports.StreamSource
	Runner  *runner.Runner
	Storage ports.Storage
	Logger  *zap.Logger
}

func NewService(src ports.StreamSource, r *runner.Runner, st ports.Storage, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{Source: src, Runner: r, Storage: st, Logger: logger}
}

var errNotConfigured = errors.New("usecase dependency not configured")

// Samples draws n streams from the configured source.
func (u *Service) Samples(ctx context.Context, n int) ([]domain.Sample, error) {
	if u.Source == nil {
		return nil, errNotConfigured
	}
	return u.Source.Samples(ctx, n)
}

// RunBatch draws n samples, plays them and persists every record when storage is configured.
func (u *Service) RunBatch(ctx context.Context, n int, sel ports.SelectorFactory, seed uint64) ([]domain.Record, runner.Summary, error) {
	if u.Runner == nil {
		return nil, runner.Summary{}, errNotConfigured
	}
	samples, err := u.Samples(ctx, n)
	if err != nil {
		return nil, runner.Summary{}, err
	}
	records, sum, err := u.Runner.Run(ctx, samples, sel, seed)
	if err != nil {
		return nil, runner.Summary{}, err
	}
	if u.Storage != nil {
		for i := range records {
			if err := u.Storage.Save(ctx, &records[i]); err != nil {
				return records, sum, fmt.Errorf("save %s: %w", records[i].ID, err)
			}
		}
		u.Logger.Debug("records saved", zap.Int("count", len(records)))
	}
	return records, sum, nil
}

// Persistence
func (u *Service) Save(ctx context.Context, r *domain.Record) error {
	if u.Storage == nil {
		return errNotConfigured
	}
	return u.Storage.Save(ctx, r)
}
func (u *Service) Load(ctx context.Context, id string) (*domain.Record, error) {
	if u.Storage == nil {
		return nil, errNotConfigured
	}
	return u.Storage.Load(ctx, id)
}
func (u *Service) List(ctx context.Context) ([]domain.RecordMeta, error) {
	if u.Storage == nil {
		return nil, errNotConfigured
	}
	return u.Storage.List(ctx)
}
