package trip

import (
	"math/rand/v2"
	"sync"
)

// RandomSource supplies uniform values in [0, 1) for the stochastic parts of the
// duration model. Implementations must be safe for concurrent use.
type RandomSource interface {
	Float64() float64
}

type globalRandom struct{}

func (globalRandom) Float64() float64 { return rand.Float64() }

// DefaultRandom returns the process-wide generator, seeded from system entropy.
func DefaultRandom() RandomSource {
	return globalRandom{}
}

type seededRandom struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSeededRandom returns a deterministic generator for reproducible estimates.
func NewSeededRandom(seed uint64) RandomSource {
	return &seededRandom{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (s *seededRandom) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

// FixedRandom always returns the same value. 0 pins every jitter to its lower
// bound; values close to 1 pin them near the upper bound.
type FixedRandom float64

func (f FixedRandom) Float64() float64 { return float64(f) }

// uniform draws from [lo, hi].
func uniform(rnd RandomSource, lo, hi float64) float64 {
	return lo + rnd.Float64()*(hi-lo)
}
