package generator

import (
	"context"
	"errors"
	"math/rand/v2"

	"svw.info/playfair/internal/domain"
)

// RandomStreams produces synthetic samples: uniformly random plaintext under a
// fresh random key per sample.
type RandomStreams struct {
	Seed   uint64
	Length int

	rng *rand.Rand
}

// NewRandomStreams wires a seeded source of samples of the given stream length.
func NewRandomStreams(seed uint64, length int) *RandomStreams {
	return &RandomStreams{Seed: seed, Length: length, rng: rand.New(rand.NewPCG(seed, 0))}
}

var errLength = errors.New("stream length must be positive and even")

// Samples returns n fresh samples. Successive calls continue the same random sequence.
func (g *RandomStreams) Samples(ctx context.Context, n int) ([]domain.Sample, error) {
	if g.Length <= 0 || g.Length%2 != 0 {
		return nil, errLength
	}
	if g.rng == nil {
		g.rng = rand.New(rand.NewPCG(g.Seed, 0))
	}
	out := make([]domain.Sample, 0, n)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s, err := NewSample(GenerateKey(g.rng), randomText(g.rng, g.Length))
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
