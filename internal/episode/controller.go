// Package episode drives one reconstruction attempt over a digraph stream.
package episode

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"svw.info/playfair/internal/domain"
	"svw.info/playfair/internal/grid"
	"svw.info/playfair/internal/ports"
	"svw.info/playfair/internal/resolver"
)

var ErrTerminal = errors.New("episode already finished")

// Controller is a single-use state machine: Running(pos) until a resolver
// fails or the stream is exhausted. Start a new controller for a new attempt.
type Controller struct {
	id      string
	stream  domain.Stream
	grid    *grid.Store
	rng     ports.Rand
	rewards domain.Rewards

	pos    int
	status domain.Status
	total  int
	steps  []domain.Step
}

type Option func(*Controller)

// WithRewards overrides the default reward constants.
func WithRewards(r domain.Rewards) Option { return func(c *Controller) { c.rewards = r } }

// WithID sets the episode id instead of a random one.
func WithID(id string) Option { return func(c *Controller) { c.id = id } }

// New starts an episode at Running(0) on an empty grid.
func New(stream domain.Stream, rng ports.Rand, opts ...Option) (*Controller, error) {
	if err := stream.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, errors.New("episode: nil random source")
	}
	c := &Controller{
		stream:  stream,
		grid:    grid.New(),
		rng:     rng,
		rewards: domain.DefaultRewards(),
		status:  domain.Running,
	}
	for _, o := range opts {
		o(c)
	}
	if c.id == "" {
		c.id = uuid.NewString()
	}
	return c, nil
}

// Step tries rel against the current pair and applies the transition.
func (c *Controller) Step(rel domain.Relation) (ports.Observation, error) {
	if c.status.Terminal() {
		return ports.Observation{}, ErrTerminal
	}
	if !rel.Valid() {
		return ports.Observation{}, fmt.Errorf("%w: %d", domain.ErrUnknownRelation, int(rel))
	}

	pos := c.pos
	var reward int
	switch ok := resolver.Resolve(rel, c.grid, c.stream.PairAt(pos), c.rng); {
	case !ok:
		c.status = domain.TerminalFailure
		reward = c.rewards.Bad
	case pos+2 == c.stream.Len():
		c.pos += 2
		c.status = domain.TerminalSuccess
		reward = c.rewards.Good
	default:
		c.pos += 2
		reward = c.rewards.Living
	}
	c.total += reward
	c.steps = append(c.steps, domain.Step{Pos: pos, Relation: rel, Reward: reward})
	return c.Observe(reward), nil
}

// Observe packages the current state with the given reward.
func (c *Controller) Observe(reward int) ports.Observation {
	return ports.Observation{
		State:    c.State(),
		Reward:   reward,
		Terminal: c.status.Terminal(),
		Status:   c.status,
	}
}

// State encodes the current pair and table for the learner.
func (c *Controller) State() domain.Vector { return Encode(c.Pending(), c.grid.Snapshot()) }

// Pending is the pair at the cursor, or nil once the stream is exhausted.
func (c *Controller) Pending() *domain.Pair {
	if c.pos >= c.stream.Len() {
		return nil
	}
	p := c.stream.PairAt(c.pos)
	return &p
}

func (c *Controller) ID() string                { return c.id }
func (c *Controller) Pos() int                  { return c.pos }
func (c *Controller) Status() domain.Status     { return c.status }
func (c *Controller) Snapshot() domain.Snapshot { return c.grid.Snapshot() }
func (c *Controller) Grid() *grid.Store         { return c.grid }
func (c *Controller) Reward() int               { return c.total }
func (c *Controller) Steps() []domain.Step      { return append([]domain.Step(nil), c.steps...) }

// Record summarizes the episode for storage.
func (c *Controller) Record() domain.Record {
	return domain.Record{
		ID:       c.id,
		Status:   c.status,
		Reward:   c.total,
		Steps:    c.Steps(),
		Length:   c.stream.Len(),
		Snapshot: c.grid.Snapshot(),
		Placed:   c.grid.Placed(),
	}
}
