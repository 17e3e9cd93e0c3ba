// Package runner plays batches of independent episodes in parallel.
package runner

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"svw.info/playfair/internal/cipher"
	"svw.info/playfair/internal/domain"
	"svw.info/playfair/internal/episode"
	"svw.info/playfair/internal/ports"
	"svw.info/playfair/internal/validator"
)

var ErrInvariant = errors.New("grid invariant violated")

// Runner owns no episode state; every episode gets its own grid and random sources.
type Runner struct {
	Workers int
	Rewards domain.Rewards
	Logger  *zap.Logger
	Metrics *Metrics

	validator *validator.FastValidator
}

func New(workers int, rewards domain.Rewards, logger *zap.Logger, metrics *Metrics) *Runner {
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{Workers: workers, Rewards: rewards, Logger: logger, Metrics: metrics, validator: validator.New()}
}

// Summary aggregates a batch.
type Summary struct {
	Episodes      int           `json:"episodes"`
	Successes     int           `json:"successes"`
	MeanReward    float64       `json:"meanReward"`
	StdReward     float64       `json:"stdReward"`
	MeanSteps     float64       `json:"meanSteps"`
	MeanPlaced    float64       `json:"meanPlaced"`
	MeanAgreement float64       `json:"meanAgreement"`
	Duration      time.Duration `json:"duration"`
}

// Run plays one episode per sample. Episode i is seeded with seed+i, so a batch
// replays identically regardless of worker count.
func (r *Runner) Run(ctx context.Context, samples []domain.Sample, newSelector ports.SelectorFactory, seed uint64) ([]domain.Record, Summary, error) {
	start := time.Now()
	records := make([]domain.Record, len(samples))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.Workers)
	for i := range samples {
		g.Go(func() error {
			rec, err := r.playIndexed(gctx, i, samples[i], newSelector, seed+uint64(i))
			if err != nil {
				return fmt.Errorf("episode %d: %w", i, err)
			}
			records[i] = rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, Summary{}, err
	}
	sum := Summarize(records)
	sum.Duration = time.Since(start)
	r.Logger.Info("batch finished",
		zap.Int("episodes", sum.Episodes),
		zap.Int("successes", sum.Successes),
		zap.Float64("mean_reward", sum.MeanReward),
		zap.Float64("mean_agreement", sum.MeanAgreement),
		zap.Duration("dur", sum.Duration),
	)
	return records, sum, nil
}

// EpisodePanic carries a panic raised while playing one episode of a batch,
// tagged with what is needed to replay it.
type EpisodePanic struct {
	Index int
	Seed  uint64
	Value any
}

func (p *EpisodePanic) Error() string {
	return fmt.Sprintf("episode %d (seed %d) panicked: %v", p.Index, p.Seed, p.Value)
}

func (p *EpisodePanic) Unwrap() error {
	err, _ := p.Value.(error)
	return err
}

// playIndexed plays episode i of a batch. A panic inside the episode is
// re-raised as *EpisodePanic so the crash names the episode and its seed.
func (r *Runner) playIndexed(ctx context.Context, i int, sample domain.Sample, newSelector ports.SelectorFactory, seed uint64) (rec domain.Record, err error) {
	defer func() {
		if p := recover(); p != nil {
			r.Logger.Error("episode panicked", zap.Int("index", i), zap.Uint64("seed", seed), zap.Any("panic", p))
			panic(&EpisodePanic{Index: i, Seed: seed, Value: p})
		}
	}()
	sel := newSelector(sample, rand.New(rand.NewPCG(seed, 1)))
	return r.RunOne(ctx, sample, sel, seed)
}

// RunOne plays a single episode to a terminal state with sel choosing relations.
func (r *Runner) RunOne(ctx context.Context, sample domain.Sample, sel ports.Selector, seed uint64) (domain.Record, error) {
	c, err := episode.New(sample.Stream, rand.New(rand.NewPCG(seed, seed)), episode.WithRewards(r.Rewards))
	if err != nil {
		return domain.Record{}, err
	}
	log := r.Logger.With(zap.String("episode", c.ID()), zap.Uint64("seed", seed))

	obs := c.Observe(0)
	for !obs.Terminal {
		if err := ctx.Err(); err != nil {
			return domain.Record{}, err
		}
		rel, err := sel.Select(ctx, obs)
		if err != nil {
			return domain.Record{}, fmt.Errorf("select at pos %d: %w", c.Pos(), err)
		}
		if obs, err = c.Step(rel); err != nil {
			return domain.Record{}, err
		}
		log.Debug("step", zap.Int("pos", c.Pos()), zap.Stringer("relation", rel), zap.Int("reward", obs.Reward))
	}

	return r.Complete(ctx, c, sample.Key, seed)
}

// Complete validates the final grid of a finished episode and turns it into a
// scored record. Every finished episode passes through here, batch or HTTP, so
// metrics see all of them.
func (r *Runner) Complete(ctx context.Context, c *episode.Controller, key string, seed uint64) (domain.Record, error) {
	log := r.Logger.With(zap.String("episode", c.ID()), zap.Uint64("seed", seed))
	if ok, conf, err := r.validator.Validate(ctx, c.Grid()); err != nil {
		return domain.Record{}, err
	} else if !ok {
		if r.Metrics != nil {
			r.Metrics.Violations.Inc()
		}
		log.Error("grid invariant violated", zap.Any("violations", conf), zap.Stringer("grid", c.Snapshot()))
		return domain.Record{}, fmt.Errorf("%w: %v", ErrInvariant, conf)
	}

	rec := c.Record()
	rec.Seed = seed
	rec.Key = key
	rec.CreatedAt = time.Now().UnixNano()
	if k, err := cipher.ParseKey(key); err == nil {
		rec.Agreement = validator.Agreement(k, rec.Snapshot)
	}
	r.Metrics.Observe(rec)
	log.Debug("episode finished", zap.Stringer("status", rec.Status), zap.Int("reward", rec.Reward), zap.Int("placed", rec.Placed))
	return rec, nil
}

// Summarize computes batch statistics over records.
func Summarize(records []domain.Record) Summary {
	s := Summary{Episodes: len(records)}
	if len(records) == 0 {
		return s
	}
	rewards := make([]float64, len(records))
	steps := make([]float64, len(records))
	placed := make([]float64, len(records))
	agree := make([]float64, len(records))
	for i, r := range records {
		if r.Status == domain.TerminalSuccess {
			s.Successes++
		}
		rewards[i] = float64(r.Reward)
		steps[i] = float64(len(r.Steps))
		placed[i] = float64(r.Placed)
		agree[i] = float64(r.Agreement)
	}
	s.MeanReward = stat.Mean(rewards, nil)
	if len(rewards) > 1 {
		s.StdReward = stat.StdDev(rewards, nil)
	}
	s.MeanSteps = stat.Mean(steps, nil)
	s.MeanPlaced = stat.Mean(placed, nil)
	s.MeanAgreement = stat.Mean(agree, nil)
	return s
}
