package policy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCandidates(base time.Time) []Candidate {
	return []Candidate{
		{Key: "a", Size: 100, CreatedAt: base, LastAccessedAt: base.Add(3 * time.Minute), AccessCount: 5, Seq: 1},
		{Key: "b", Size: 200, CreatedAt: base.Add(1 * time.Minute), LastAccessedAt: base.Add(1 * time.Minute), AccessCount: 1, Seq: 2},
		{Key: "c", Size: 300, CreatedAt: base.Add(2 * time.Minute), LastAccessedAt: base.Add(2 * time.Minute), AccessCount: 9, Seq: 3},
	}
}

func keys(cs []Candidate) []string {
	out := make([]string, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.Key)
	}
	return out
}

func TestLRU_Rank(t *testing.T) {
	base := time.Now()
	ranked := New(LRU).Rank(testCandidates(base))
	assert.Equal(t, []string{"b", "c", "a"}, keys(ranked))
}

func TestLFU_Rank(t *testing.T) {
	base := time.Now()
	ranked := New(LFU).Rank(testCandidates(base))
	assert.Equal(t, []string{"b", "a", "c"}, keys(ranked))
}

func TestFIFO_Rank(t *testing.T) {
	base := time.Now()
	ranked := New(FIFO).Rank(testCandidates(base))
	assert.Equal(t, []string{"a", "b", "c"}, keys(ranked))
}

func TestRank_TieBreakByInsertionOrder(t *testing.T) {
	base := time.Now()
	candidates := []Candidate{
		{Key: "late", LastAccessedAt: base, AccessCount: 1, CreatedAt: base, Seq: 9},
		{Key: "early", LastAccessedAt: base, AccessCount: 1, CreatedAt: base, Seq: 2},
	}

	for _, name := range []Name{LRU, LFU, FIFO} {
		t.Run(string(name), func(t *testing.T) {
			cs := make([]Candidate, len(candidates))
			copy(cs, candidates)
			ranked := New(name).Rank(cs)
			assert.Equal(t, []string{"early", "late"}, keys(ranked))
		})
	}
}

func TestRandom_RankKeepsAllCandidates(t *testing.T) {
	base := time.Now()
	ranked := New(Random).Rank(testCandidates(base))
	assert.ElementsMatch(t, []string{"a", "b", "c"}, keys(ranked))
}

func TestNew_UnknownFallsBackToLRU(t *testing.T) {
	p := New(Name("unknown"))
	assert.Equal(t, LRU, p.Name())
}

func TestSelectVictims_ByBytes(t *testing.T) {
	base := time.Now()

	victims := SelectVictims(New(LRU), testCandidates(base), 250, 0)

	// b (200) alone is not enough, b+c (500) satisfies 250 bytes.
	require.Len(t, victims, 2)
	assert.Equal(t, []string{"b", "c"}, keys(victims))
}

func TestSelectVictims_ByItems(t *testing.T) {
	base := time.Now()

	victims := SelectVictims(New(FIFO), testCandidates(base), 0, 1)

	require.Len(t, victims, 1)
	assert.Equal(t, "a", victims[0].Key)
}

func TestSelectVictims_NoRequirement(t *testing.T) {
	base := time.Now()
	assert.Nil(t, SelectVictims(New(LRU), testCandidates(base), 0, 0))
}

func TestSelectVictims_RequirementExceedsCandidates(t *testing.T) {
	base := time.Now()

	victims := SelectVictims(New(LRU), testCandidates(base), 1<<20, 0)

	// Everything is selected even though the requirement cannot be met.
	assert.Len(t, victims, 3)
}
