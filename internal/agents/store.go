package agents

import (
	"errors"
	"fmt"
	"math"
)

// ErrCapacityExceeded is returned when growth would pass the store's hard limit.
var ErrCapacityExceeded = errors.New("agent store capacity exceeded")

// Store is the growable sequence of agents. Len is the logical count and Cap
// the allocated capacity; 0 <= Len <= Cap always holds. Indices are only
// valid until the next Append or Compact.
type Store struct {
	agents []Agent
	growth float64
	max    int
}

// NewStore creates an empty store with the given initial capacity, growth
// factor (> 1) and hard capacity limit (0 means unlimited).
func NewStore(capacity int, growth float64, max int) *Store {
	if capacity < 0 {
		capacity = 0
	}
	if growth <= 1 {
		growth = 1.5
	}
	return &Store{
		agents: make([]Agent, 0, capacity),
		growth: growth,
		max:    max,
	}
}

// Len returns the number of agents (living or dead) in the store.
func (s *Store) Len() int { return len(s.agents) }

// Cap returns the allocated capacity.
func (s *Store) Cap() int { return cap(s.agents) }

// At returns the agent at index i.
func (s *Store) At(i int) *Agent { return &s.agents[i] }

// All returns the agents as a mutable slice. The slice is invalidated by the
// next Append or Compact.
func (s *Store) All() []Agent { return s.agents }

// Living counts agents with Alive set.
func (s *Store) Living() int {
	n := 0
	for i := range s.agents {
		if s.agents[i].Alive {
			n++
		}
	}
	return n
}

// EnsureCapacity grows the backing storage so that at least required agents
// fit. New capacity is ceil(required * growth), clamped to the hard limit.
// On failure the store is left unchanged.
func (s *Store) EnsureCapacity(required int) error {
	if required <= cap(s.agents) {
		return nil
	}
	if s.max > 0 && required > s.max {
		return fmt.Errorf("grow to %d (limit %d): %w", required, s.max, ErrCapacityExceeded)
	}
	newCap := int(math.Ceil(float64(required) * s.growth))
	if s.max > 0 && newCap > s.max {
		newCap = s.max
	}
	grown := make([]Agent, len(s.agents), newCap)
	copy(grown, s.agents)
	s.agents = grown
	return nil
}

// Append adds agents to the end of the store, growing it if needed.
// Nothing is appended when growth fails.
func (s *Store) Append(batch ...Agent) error {
	if err := s.EnsureCapacity(len(s.agents) + len(batch)); err != nil {
		return err
	}
	s.agents = append(s.agents, batch...)
	return nil
}

// Compact moves living agents into a prefix, preserving their relative
// order, and drops the dead. Capacity is unchanged. It returns the number of
// agents removed.
func (s *Store) Compact() int {
	w := 0
	for r := range s.agents {
		if !s.agents[r].Alive {
			continue
		}
		if w != r {
			s.agents[w] = s.agents[r]
		}
		w++
	}
	removed := len(s.agents) - w
	clear(s.agents[w:])
	s.agents = s.agents[:w]
	return removed
}

// Reset empties the store without releasing capacity.
func (s *Store) Reset() {
	clear(s.agents)
	s.agents = s.agents[:0]
}
