// Package hint provides baseline relation selectors that stand in for a learner.
package hint

import (
	"context"
	"errors"
	"fmt"

	"svw.info/playfair/internal/cipher"
	"svw.info/playfair/internal/domain"
	"svw.info/playfair/internal/ports"
)

var errNoPair = errors.New("observation carries no pending pair")

// Oracle answers with the relation the true key induces for the pending pair.
type Oracle struct {
	Key cipher.Key
}

func NewOracle(key cipher.Key) *Oracle { return &Oracle{Key: key} }

// Select reads the plaintext digraph from the first two state slots.
func (h *Oracle) Select(ctx context.Context, obs ports.Observation) (domain.Relation, error) {
	a, b := rune(obs.State[0]), rune(obs.State[1])
	if a == domain.Unused || b == domain.Unused {
		return 0, errNoPair
	}
	rel, err := cipher.Relation(h.Key, a, b)
	if err != nil {
		return 0, fmt.Errorf("oracle: %w", err)
	}
	return rel, nil
}

// Uniform picks a relation uniformly at random, the exploration baseline.
type Uniform struct {
	Rand ports.Rand
}

func NewUniform(rng ports.Rand) *Uniform { return &Uniform{Rand: rng} }

func (h *Uniform) Select(ctx context.Context, obs ports.Observation) (domain.Relation, error) {
	return domain.Relations[h.Rand.IntN(len(domain.Relations))], nil
}

// Factory returns a selector factory by name: "oracle" or "uniform".
func Factory(name string) (ports.SelectorFactory, error) {
	switch name {
	case "oracle":
		return func(s domain.Sample, _ ports.Rand) ports.Selector {
			key, err := cipher.ParseKey(s.Key)
			if err != nil {
				return failing{err}
			}
			return NewOracle(key)
		}, nil
	case "uniform", "random":
		return func(_ domain.Sample, rng ports.Rand) ports.Selector { return NewUniform(rng) }, nil
	}
	return nil, fmt.Errorf("unknown selector %q", name)
}

// failing reports a construction error on first use.
type failing struct{ err error }

func (f failing) Select(context.Context, ports.Observation) (domain.Relation, error) {
	return 0, f.err
}
