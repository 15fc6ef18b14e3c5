// Package tally keeps the per-category counters of the current accounting
// epoch.
package tally

import (
	"sync"

	"github.com/lox/cardcounter/internal/outcome"
)

// Category is one counter and the games recorded in it, in arrival order.
type Category struct {
	Count int   `json:"count"`
	Games []int `json:"games"`
}

func (c *Category) add(game int, hasGame bool) {
	c.Count++
	if hasGame {
		c.Games = append(c.Games, game)
	}
}

func (c Category) clone() Category {
	games := make([]int, len(c.Games))
	copy(games, c.Games)
	return Category{Count: c.Count, Games: games}
}

// Snapshot is an immutable copy of the store at one instant.
type Snapshot struct {
	Pairs    [outcome.NumPairs]Category    `json:"pairs"`
	Winners  [outcome.NumWinners]Category  `json:"winners"`
	Parities [outcome.NumParities]Category `json:"parities"`
}

// Pair returns the counter of one pairing category.
func (s Snapshot) Pair(p outcome.PairCategory) Category { return s.Pairs[p] }

// Winner returns the counter of one winner category.
func (s Snapshot) Winner(w outcome.WinnerCategory) Category { return s.Winners[w] }

// Parity returns the counter of one parity category.
func (s Snapshot) Parity(p outcome.ParityCategory) Category { return s.Parities[p] }

// PairTotal is the number of messages with a valid pairing this epoch.
func (s Snapshot) PairTotal() int { return sum(s.Pairs[:]) }

// WinnerTotal is the number of messages with a winner this epoch.
func (s Snapshot) WinnerTotal() int { return sum(s.Winners[:]) }

// ParityTotal is the number of messages with a ticket number this epoch.
func (s Snapshot) ParityTotal() int { return sum(s.Parities[:]) }

// PlayerKCounts returns the three-card and two-card totals of the player hand.
func (s Snapshot) PlayerKCounts() (three, two int) {
	three = s.Pairs[outcome.Pair32].Count + s.Pairs[outcome.Pair33].Count
	two = s.Pairs[outcome.Pair22].Count + s.Pairs[outcome.Pair23].Count
	return three, two
}

// BankerKCounts returns the three-card and two-card totals of the banker hand.
func (s Snapshot) BankerKCounts() (three, two int) {
	three = s.Pairs[outcome.Pair23].Count + s.Pairs[outcome.Pair33].Count
	two = s.Pairs[outcome.Pair22].Count + s.Pairs[outcome.Pair32].Count
	return three, two
}

func sum(cs []Category) int {
	n := 0
	for _, c := range cs {
		n += c.Count
	}
	return n
}

// Store owns every counter of the process. All methods are safe for
// concurrent use; Update and ReadAndReset share one lock so that no update
// lands between the read and the clear.
type Store struct {
	mu   sync.Mutex
	data Snapshot
}

// NewStore returns a store at the start of an empty epoch.
func NewStore() *Store {
	return &Store{}
}

// Update commits one classified message. Each present dimension increments
// its own category and records the game number when there is one.
func (s *Store) Update(c outcome.Classification) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.HasPair {
		s.data.Pairs[c.Pair].add(c.Game, c.HasGame)
	}
	if c.HasWinner {
		s.data.Winners[c.Winner].add(c.Game, c.HasGame)
	}
	if c.HasParity {
		s.data.Parities[c.Parity].add(c.Game, c.HasGame)
	}
}

// Snapshot returns a copy of the current counters.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// ResetAll clears every counter and starts a new epoch.
func (s *Store) ResetAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = Snapshot{}
}

// ReadAndReset returns the counters and clears them as one step.
func (s *Store) ReadAndReset() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshotLocked()
	s.data = Snapshot{}
	return snap
}

func (s *Store) snapshotLocked() Snapshot {
	var snap Snapshot
	for i, c := range s.data.Pairs {
		snap.Pairs[i] = c.clone()
	}
	for i, c := range s.data.Winners {
		snap.Winners[i] = c.clone()
	}
	for i, c := range s.data.Parities {
		snap.Parities[i] = c.clone()
	}
	return snap
}
