package lockstep

import "math/rand"

// RNG is the sole source of randomness usable inside the simulation. One
// instance per match, seeded with the shared match seed before tick 0 and
// never reseeded; identical seed and call sequence produce identical output
// on every peer. It must only be driven from command processing or other
// deterministic tick events, never from rendering or timer callbacks.
//
// RNG is not safe for concurrent use; the single simulation goroutine owns it.
type RNG struct {
	src *rand.Rand
}

// NewRNG creates a match RNG from the shared seed.
func NewRNG(seed int64) *RNG {
	return &RNG{src: rand.New(rand.NewSource(seed))}
}

// Float returns a uniform float64 in [min, max).
func (r *RNG) Float(min, max float64) float64 {
	if max <= min {
		return min
	}
	return min + r.src.Float64()*(max-min)
}

// Int returns a uniform int in [min, max].
func (r *RNG) Int(min, max int) int {
	if max <= min {
		return min
	}
	return min + r.src.Intn(max-min+1)
}
