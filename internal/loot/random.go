package loot

import "math/rand/v2"

// RandomSource is the randomness Draw depends on. Tests supply fixed rolls.
type RandomSource interface {
	// Uniform returns a value in [lo, hi).
	Uniform(lo, hi float64) float64
	// Intn returns a value in [0, n).
	Intn(n int) int
}

type globalRandom struct{}

// NewRandom returns a RandomSource backed by the runtime's shared generator,
// which is safe for concurrent use.
func NewRandom() RandomSource {
	return globalRandom{}
}

func (globalRandom) Uniform(lo, hi float64) float64 {
	return lo + (hi-lo)*rand.Float64()
}

func (globalRandom) Intn(n int) int {
	return rand.IntN(n)
}
