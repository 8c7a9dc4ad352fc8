package persona

import (
	"math/rand/v2"
	"sync"

	"github.com/edgard/mediadesk/internal/pick"
	"github.com/edgard/mediadesk/internal/recent"
)

// Policy selects how persona weights are used.
type Policy string

const (
	PolicyWeighted Policy = "weighted"
	PolicyUniform  Policy = "uniform"
)

// Selector rotates personas, avoiding the ones used most recently while
// other candidates remain.
type Selector struct {
	personas []Persona
	policy   Policy
	used     *recent.FIFO

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSelector creates a selector remembering the last memory personas used.
// A nil rng uses the global source.
func NewSelector(personas []Persona, policy Policy, memory int, rng *rand.Rand) *Selector {
	return &Selector{
		personas: personas,
		policy:   policy,
		used:     recent.NewFIFO(memory),
		rng:      rng,
	}
}

// Choose picks a persona without recording it. ok is false when no personas
// are configured.
func (s *Selector) Choose() (Persona, bool) {
	candidates := make([]pick.Candidate[Persona], len(s.personas))
	for i, p := range s.personas {
		w := p.Weight
		if s.policy == PolicyUniform {
			w = 1
		}
		candidates[i] = pick.Candidate[Persona]{Item: p, Weight: w}
	}

	// rand.Rand is not safe for concurrent use.
	s.mu.Lock()
	defer s.mu.Unlock()
	return pick.Weighted(s.rng, candidates, func(p Persona) bool { return s.used.Contains(p.Name) })
}

// MarkUsed records p as recently used. Call it after the post went out.
func (s *Selector) MarkUsed(p Persona) {
	s.used.Add(p.Name)
}
