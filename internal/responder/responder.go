// Package responder chooses the reply text for a resolved intent. Replies
// are drawn pseudo-randomly from the intent's candidate pool so repeated
// questions do not read identically; flow prompts bypass this package.
package responder

import (
	"math/rand"
	"sort"
	"sync"

	"github.com/ziadkadry99/convobot/internal/corpus"
)

// Selector picks responses from intent pools. The randomness source is
// injected so tests can pin the draw.
type Selector struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a Selector from a randomness source.
func New(src rand.Source) *Selector {
	return &Selector{rng: rand.New(src)}
}

// Select returns a response for the intent. discriminator filters
// keyed response pools (e.g. a recognized product type); when no keyed
// pool matches, the unfiltered pool is used instead.
func (s *Selector) Select(in corpus.Intent, discriminator string) string {
	pool := s.pool(in.Responses, discriminator)
	if len(pool) == 0 {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return pool[s.rng.Intn(len(pool))]
}

func (s *Selector) pool(rs corpus.ResponseSet, discriminator string) []string {
	if discriminator != "" {
		if keyed, ok := rs.ByKey[discriminator]; ok && len(keyed) > 0 {
			return keyed
		}
	}
	if len(rs.Pool) > 0 {
		return rs.Pool
	}
	// A purely keyed set with no matching key: flatten it in stable order
	// so selection stays well-defined.
	keys := make([]string, 0, len(rs.ByKey))
	for k := range rs.ByKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var flat []string
	for _, k := range keys {
		flat = append(flat, rs.ByKey[k]...)
	}
	return flat
}
