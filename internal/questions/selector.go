// Package questions selects the frozen defense question set for each
// submission from a category-partitioned bank.
package questions

import (
	"math/rand"

	"viva/internal/store"
)

// CategoryContent and CategoryProcess label the two bank partitions.
const (
	CategoryContent = "content"
	CategoryProcess = "process"
)

// Selector draws uniformly random question subsets from a bank.
type Selector struct {
	rng *rand.Rand
}

// NewSelector returns a selector backed by its own randomly seeded source.
func NewSelector() *Selector {
	return &Selector{rng: rand.New(rand.NewSource(rand.Int63()))}
}

// NewSeededSelector returns a deterministic selector for tests.
func NewSeededSelector(seed1, seed2 uint64) *Selector {
	return &Selector{rng: rand.New(rand.NewSource(int64(seed1)<<32 ^ int64(seed2)))}
}

// Select draws contentCount content questions and processCount process
// questions without replacement. Each category is shuffled independently with
// an unbiased shuffle and the prefix taken, so every subset of the requested
// size is equally likely. The bank itself is never mutated. Requested counts
// larger than the pool are capped at the pool size.
func (s *Selector) Select(bank Bank, contentCount, processCount int) []store.Question {
	selected := make([]store.Question, 0, contentCount+processCount)
	selected = append(selected, s.draw(bank.Content, CategoryContent, contentCount)...)
	selected = append(selected, s.draw(bank.Process, CategoryProcess, processCount)...)
	return selected
}

func (s *Selector) draw(pool []BankEntry, category string, count int) []store.Question {
	if count <= 0 || len(pool) == 0 {
		return nil
	}
	if count > len(pool) {
		count = len(pool)
	}

	shuffled := make([]BankEntry, len(pool))
	copy(shuffled, pool)
	s.rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	out := make([]store.Question, 0, count)
	for _, entry := range shuffled[:count] {
		out = append(out, store.Question{Category: category, Text: entry.Text})
	}
	return out
}
