package ports

import (
	"context"

	"svw.info/playfair/internal/domain"
)

// Rand is the random source threaded into resolvers. *math/rand/v2.Rand satisfies it.
type Rand interface {
	IntN(n int) int
}

// Observation is what a learner sees after each step.
type Observation struct {
	State    domain.Vector `json:"state"`
	Reward   int           `json:"reward"`
	Terminal bool          `json:"terminal"`
	Status   domain.Status `json:"status"`
}

// Selector chooses the relation to try at the current state.
type Selector interface {
	Select(ctx context.Context, obs Observation) (domain.Relation, error)
}

// SelectorFactory builds one selector per episode so selectors can hold per-episode state.
type SelectorFactory func(sample domain.Sample, rng Rand) Selector

// StreamSource supplies training samples.
type StreamSource interface {
	Samples(ctx context.Context, n int) ([]domain.Sample, error)
}

// Storage persists and retrieves finished episodes.
type Storage interface {
	Save(ctx context.Context, r *domain.Record) error
	Load(ctx context.Context, id string) (*domain.Record, error)
	List(ctx context.Context) ([]domain.RecordMeta, error)
}
