package matching

import (
	"log/slog"
	"sort"
	"strings"
)

// Couple is an unordered pair of user ids taken from match history.
type Couple struct {
	A, B uint64
}

// Key returns the order-independent identity of the couple.
func (c Couple) Key() PairKey { return NewPairKey(c.A, c.B) }

// PairKey identifies an unordered pair: Low <= High.
type PairKey struct {
	Low, High uint64
}

func NewPairKey(x, y uint64) PairKey {
	if x > y {
		x, y = y, x
	}
	return PairKey{Low: x, High: y}
}

// Pair is one pairing emitted by a run. A belongs to group A, B to group B.
type Pair struct {
	A     uint64
	B     uint64
	Score float64
}

// Partition splits candidates into the two groups that get paired with each
// other.
type Partition struct {
	Attribute string // user attribute to look at, e.g. "gender"
	GroupA    string // value selecting group A, e.g. "man"
	GroupB    string // value selecting group B, e.g. "woman"
}

// DefaultPartition pairs men with women, as the product does today.
var DefaultPartition = Partition{Attribute: "gender", GroupA: "man", GroupB: "woman"}

// classify returns 'A', 'B' or 0 when the user fits neither group.
func (p Partition) classify(u UserSnapshot) byte {
	v := normalize(u.Attribute(p.Attribute))
	switch {
	case v == "":
		return 0
	case v == normalize(p.GroupA):
		return 'A'
	case v == normalize(p.GroupB):
		return 'B'
	}
	return 0
}

// Engine computes the pairs for one weekly cycle.
//
// It is a one-sided greedy heuristic: every group A member, in id order, takes
// its best still-free group B candidate. The result is deterministic but not a
// globally optimal matching.
type Engine struct {
	scorer    Scorer
	partition Partition
	log       *slog.Logger
}

type EngineOption func(*Engine)

// WithPartition overrides DefaultPartition.
func WithPartition(p Partition) EngineOption {
	return func(e *Engine) { e.partition = p }
}

// WithLogger sets the logger used for run summaries.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

func NewEngine(scorer Scorer, opts ...EngineOption) *Engine {
	if scorer == nil {
		scorer = NewWeightedScorer(DefaultWeights)
	}
	e := &Engine{
		scorer:    scorer,
		partition: DefaultPartition,
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.partition.Attribute = strings.ToLower(strings.TrimSpace(e.partition.Attribute))
	return e
}

// ComputeCycleMatches pairs users while never repeating a couple found in
// history. Each user appears in at most one returned pair.
func (e *Engine) ComputeCycleMatches(users []UserSnapshot, history []Couple) []Pair {
	if len(users) < 2 {
		e.log.Debug("not enough users to pair", "users", len(users))
		return nil
	}

	groupA, groupB, unclassified := e.split(users)
	if len(groupA) == 0 || len(groupB) == 0 {
		e.log.Debug("empty candidate group",
			"group_a", len(groupA), "group_b", len(groupB), "unclassified", unclassified)
		return nil
	}

	excluded := make(map[PairKey]struct{}, len(history))
	for _, c := range history {
		excluded[c.Key()] = struct{}{}
	}

	used := make(map[uint64]struct{}, len(groupA)+len(groupB))
	pairs := make([]Pair, 0, min(len(groupA), len(groupB)))
	skipped := 0

	for _, a := range groupA {
		if _, taken := used[a.ID]; taken {
			continue
		}

		best := -1
		bestScore := 0.0
		for i, b := range groupB {
			if _, taken := used[b.ID]; taken {
				continue
			}
			if _, seen := excluded[NewPairKey(a.ID, b.ID)]; seen {
				continue
			}
			// strict > keeps the earliest candidate on ties
			if s := e.scorer.Score(a, b); best < 0 || s > bestScore {
				best, bestScore = i, s
			}
		}

		if best < 0 {
			skipped++
			e.log.Debug("no available new match", "user_id", a.ID)
			continue
		}

		b := groupB[best]
		used[a.ID] = struct{}{}
		used[b.ID] = struct{}{}
		pairs = append(pairs, Pair{A: a.ID, B: b.ID, Score: bestScore})
	}

	e.log.Debug("pairing finished",
		"group_a", len(groupA),
		"group_b", len(groupB),
		"unclassified", unclassified,
		"excluded_couples", len(excluded),
		"pairs", len(pairs),
		"skipped", skipped,
	)

	return pairs
}

// split partitions users into id-sorted groups, dropping duplicates and users
// that fit neither group.
func (e *Engine) split(users []UserSnapshot) (groupA, groupB []UserSnapshot, unclassified int) {
	seen := make(map[uint64]struct{}, len(users))
	for _, u := range users {
		if _, dup := seen[u.ID]; dup {
			continue
		}
		seen[u.ID] = struct{}{}

		switch e.partition.classify(u) {
		case 'A':
			groupA = append(groupA, u)
		case 'B':
			groupB = append(groupB, u)
		default:
			unclassified++
		}
	}

	byID := func(g []UserSnapshot) func(i, j int) bool {
		return func(i, j int) bool { return g[i].ID < g[j].ID }
	}
	sort.SliceStable(groupA, byID(groupA))
	sort.SliceStable(groupB, byID(groupB))
	return groupA, groupB, unclassified
}
