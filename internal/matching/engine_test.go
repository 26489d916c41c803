package matching_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/muzz-match-cycle/internal/matching"
)

// scenario population: A(man), B(woman), C(woman)
func scenarioUsers() []matching.UserSnapshot {
	return []matching.UserSnapshot{
		{ID: 1, Gender: "man", Hobbies: []string{"chess", "hiking"}},
		{ID: 2, Gender: "woman", Hobbies: []string{"chess", "yoga"}},
		{ID: 3, Gender: "woman", Hobbies: []string{"hiking"}},
	}
}

func newEngine() *matching.Engine {
	return matching.NewEngine(matching.NewWeightedScorer(matching.DefaultWeights))
}

func TestComputeCycleMatches_ScenarioBestScore(t *testing.T) {
	// chess vs hiking score equally, so the tie goes to the earliest candidate (B)
	pairs := newEngine().ComputeCycleMatches(scenarioUsers(), nil)

	require.Len(t, pairs, 1)
	assert.Equal(t, uint64(1), pairs[0].A)
	assert.Equal(t, uint64(2), pairs[0].B)
	assert.Equal(t, 10.0, pairs[0].Score)
}

func TestComputeCycleMatches_PrefersHigherScore(t *testing.T) {
	users := []matching.UserSnapshot{
		{ID: 1, Gender: "man", Hobbies: []string{"chess", "hiking"}, Traits: []string{"calm"}},
		{ID: 2, Gender: "woman", Hobbies: []string{"hiking"}},
		{ID: 3, Gender: "woman", Hobbies: []string{"chess"}, Traits: []string{"calm"}},
	}

	pairs := newEngine().ComputeCycleMatches(users, nil)

	require.Len(t, pairs, 1)
	assert.Equal(t, uint64(3), pairs[0].B)
	assert.Equal(t, 15.0, pairs[0].Score)
}

func TestComputeCycleMatches_HistoryExcludesPair(t *testing.T) {
	history := []matching.Couple{{A: 2, B: 1}} // stored in either order

	pairs := newEngine().ComputeCycleMatches(scenarioUsers(), history)

	require.Len(t, pairs, 1)
	assert.Equal(t, matching.Pair{A: 1, B: 3, Score: 10}, pairs[0])
}

func TestComputeCycleMatches_ExcludedAndNoOtherCandidate(t *testing.T) {
	history := []matching.Couple{{A: 1, B: 2}, {A: 1, B: 3}}

	pairs := newEngine().ComputeCycleMatches(scenarioUsers(), history)

	assert.Empty(t, pairs)
}

func TestComputeCycleMatches_CandidateAlreadyUsed(t *testing.T) {
	// man 1 takes woman 3, man 4 is excluded with woman 2 and ends up unmatched
	users := []matching.UserSnapshot{
		{ID: 1, Gender: "man"},
		{ID: 3, Gender: "woman"},
		{ID: 4, Gender: "man"},
		{ID: 2, Gender: "woman"},
	}
	history := []matching.Couple{{A: 1, B: 2}, {A: 4, B: 2}}

	pairs := newEngine().ComputeCycleMatches(users, history)

	require.Len(t, pairs, 1)
	assert.Equal(t, uint64(1), pairs[0].A)
	assert.Equal(t, uint64(3), pairs[0].B)
}

func TestComputeCycleMatches_RegressionNoRepeat(t *testing.T) {
	engine := newEngine()
	users := scenarioUsers()

	first := engine.ComputeCycleMatches(users, nil)
	require.Len(t, first, 1)

	history := []matching.Couple{{A: first[0].A, B: first[0].B}}
	second := engine.ComputeCycleMatches(users, history)

	for _, p := range second {
		assert.NotEqual(t, matching.NewPairKey(first[0].A, first[0].B), matching.NewPairKey(p.A, p.B))
	}
}

func TestComputeCycleMatches_SingleUser(t *testing.T) {
	pairs := newEngine().ComputeCycleMatches([]matching.UserSnapshot{{ID: 1, Gender: "man"}}, nil)
	assert.Empty(t, pairs)
}

func TestComputeCycleMatches_EmptyGroupB(t *testing.T) {
	users := []matching.UserSnapshot{
		{ID: 1, Gender: "man"},
		{ID: 2, Gender: "man"},
	}
	assert.Empty(t, newEngine().ComputeCycleMatches(users, nil))
}

func TestComputeCycleMatches_UnclassifiedAndDuplicatesSkipped(t *testing.T) {
	users := []matching.UserSnapshot{
		{ID: 1, Gender: "Man"},
		{ID: 1, Gender: "man"},
		{ID: 5, Gender: "nonbinary"},
		{ID: 6, Gender: ""},
		{ID: 2, Gender: " WOMAN "},
	}

	pairs := newEngine().ComputeCycleMatches(users, nil)

	require.Len(t, pairs, 1)
	assert.Equal(t, uint64(1), pairs[0].A)
	assert.Equal(t, uint64(2), pairs[0].B)
}

func TestComputeCycleMatches_CustomPartition(t *testing.T) {
	engine := matching.NewEngine(
		matching.NewWeightedScorer(matching.DefaultWeights),
		matching.WithPartition(matching.Partition{Attribute: "Religion", GroupA: "hindu", GroupB: "jewish"}),
	)
	users := []matching.UserSnapshot{
		{ID: 10, Religion: "jewish"},
		{ID: 11, Religion: "hindu"},
		{ID: 12, Religion: "none"},
	}

	pairs := engine.ComputeCycleMatches(users, nil)

	require.Len(t, pairs, 1)
	assert.Equal(t, matching.Pair{A: 11, B: 10}, pairs[0])
}

func TestComputeCycleMatches_DisjointAcrossLargerPopulation(t *testing.T) {
	hobbies := []string{"chess", "hiking", "yoga", "cinema", "cooking"}
	var users []matching.UserSnapshot
	for i := 1; i <= 40; i++ {
		g := "man"
		if i%3 == 0 {
			g = "woman"
		}
		users = append(users, matching.UserSnapshot{
			ID:      uint64(i),
			Gender:  g,
			Hobbies: []string{hobbies[i%len(hobbies)], hobbies[(i*7)%len(hobbies)]},
		})
	}
	history := []matching.Couple{{A: 1, B: 3}, {A: 2, B: 6}, {A: 4, B: 9}}

	pairs := newEngine().ComputeCycleMatches(users, history)
	require.NotEmpty(t, pairs)

	seen := map[uint64]bool{}
	excluded := map[matching.PairKey]bool{}
	for _, c := range history {
		excluded[c.Key()] = true
	}
	for _, p := range pairs {
		assert.NotEqual(t, p.A, p.B)
		assert.False(t, seen[p.A], fmt.Sprintf("user %d paired twice", p.A))
		assert.False(t, seen[p.B], fmt.Sprintf("user %d paired twice", p.B))
		assert.False(t, excluded[matching.NewPairKey(p.A, p.B)])
		seen[p.A], seen[p.B] = true, true
	}

	// deterministic across runs
	assert.Equal(t, pairs, newEngine().ComputeCycleMatches(users, history))
}

func TestNewPairKey_Unordered(t *testing.T) {
	assert.Equal(t, matching.NewPairKey(7, 3), matching.NewPairKey(3, 7))
	assert.Equal(t, matching.PairKey{Low: 3, High: 7}, matching.Couple{A: 7, B: 3}.Key())
}
