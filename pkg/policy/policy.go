// Package policy implements eviction victim selection for the cache store.
// A Policy only orders candidates; the store owns the entries and performs
// the actual removal.
package policy

import (
	"math/rand"
	"sort"
	"time"
)

// Name identifies an eviction policy.
type Name string

const (
	// LRU evicts the entry with the oldest last access first.
	LRU Name = "lru"

	// LFU evicts the entry with the fewest accesses first.
	LFU Name = "lfu"

	// FIFO evicts the oldest inserted entry first.
	FIFO Name = "fifo"

	// Random evicts entries in shuffled order.
	Random Name = "random"
)

// Candidate is a snapshot of the entry fields a policy needs to rank
// eviction victims. The store builds candidates under its read lock.
type Candidate struct {
	Key            string
	Size           int64
	CreatedAt      time.Time
	LastAccessedAt time.Time
	AccessCount    int64

	// Seq is the entry's insertion sequence number. It breaks ties within
	// a policy's ordering so victim selection is deterministic.
	Seq uint64
}

// Policy orders eviction candidates, victims first.
type Policy interface {
	// Name returns the policy identifier.
	Name() Name

	// Rank sorts candidates in eviction order (first element is the first
	// victim). Rank may reorder the slice in place and returns it.
	Rank(candidates []Candidate) []Candidate
}

// New returns the policy for the given name. Unknown names fall back to LRU.
func New(name Name) Policy {
	switch name {
	case LFU:
		return lfuPolicy{}
	case FIFO:
		return fifoPolicy{}
	case Random:
		return &randomPolicy{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
	default:
		return lruPolicy{}
	}
}

// SelectVictims ranks candidates with the policy and accumulates victims
// until both the byte and item requirements are satisfied. Either
// requirement may be zero. The returned slice preserves eviction order.
func SelectVictims(p Policy, candidates []Candidate, needBytes int64, needItems int) []Candidate {
	if needBytes <= 0 && needItems <= 0 {
		return nil
	}

	ranked := p.Rank(candidates)

	var victims []Candidate
	var freedBytes int64
	for _, c := range ranked {
		if freedBytes >= needBytes && len(victims) >= needItems {
			break
		}
		victims = append(victims, c)
		freedBytes += c.Size
	}
	return victims
}

type lruPolicy struct{}

func (lruPolicy) Name() Name { return LRU }

func (lruPolicy) Rank(candidates []Candidate) []Candidate {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].LastAccessedAt.Equal(candidates[j].LastAccessedAt) {
			return candidates[i].Seq < candidates[j].Seq
		}
		return candidates[i].LastAccessedAt.Before(candidates[j].LastAccessedAt)
	})
	return candidates
}

type lfuPolicy struct{}

func (lfuPolicy) Name() Name { return LFU }

func (lfuPolicy) Rank(candidates []Candidate) []Candidate {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].AccessCount == candidates[j].AccessCount {
			return candidates[i].Seq < candidates[j].Seq
		}
		return candidates[i].AccessCount < candidates[j].AccessCount
	})
	return candidates
}

type fifoPolicy struct{}

func (fifoPolicy) Name() Name { return FIFO }

func (fifoPolicy) Rank(candidates []Candidate) []Candidate {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].CreatedAt.Equal(candidates[j].CreatedAt) {
			return candidates[i].Seq < candidates[j].Seq
		}
		return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
	})
	return candidates
}

type randomPolicy struct {
	rng *rand.Rand
}

func (*randomPolicy) Name() Name { return Random }

func (p *randomPolicy) Rank(candidates []Candidate) []Candidate {
	p.rng.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	return candidates
}
