// Package matching holds the weekly pairing algorithm: a compatibility scorer
// and a greedy engine that pairs two disjoint candidate groups.
package matching

import "strings"

// UserSnapshot is the immutable view of an opted-in user taken at the start of
// a create run.
type UserSnapshot struct {
	ID       uint64
	Gender   string
	Religion string
	Hobbies  []string
	Traits   []string
}

// Attribute returns the single-valued attribute used for partitioning.
// Unknown names yield "".
func (u UserSnapshot) Attribute(name string) string {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "gender":
		return u.Gender
	case "religion":
		return u.Religion
	}
	return ""
}

// Scorer rates how compatible two users are. Implementations must be pure,
// symmetric and never return a negative value.
type Scorer interface {
	Score(a, b UserSnapshot) float64
}

// Weights tune WeightedScorer.
type Weights struct {
	Category float64 // bonus for the same religion
	Hobby    float64 // per shared hobby
	Trait    float64 // per shared personality trait
}

// DefaultWeights are the production reference weights.
var DefaultWeights = Weights{Category: 50, Hobby: 10, Trait: 5}

// WeightedScorer sums independent signals:
//
//	score = W_cat·[same religion] + W_hobby·|hobbies∩| + W_trait·|traits∩|
type WeightedScorer struct {
	w Weights
}

// NewWeightedScorer builds a scorer. Negative weights are treated as zero.
func NewWeightedScorer(w Weights) *WeightedScorer {
	return &WeightedScorer{w: Weights{
		Category: nonNegative(w.Category),
		Hobby:    nonNegative(w.Hobby),
		Trait:    nonNegative(w.Trait),
	}}
}

// Weights returns the effective weights.
func (s *WeightedScorer) Weights() Weights { return s.w }

func (s *WeightedScorer) Score(a, b UserSnapshot) float64 {
	var score float64

	if ra, rb := normalize(a.Religion), normalize(b.Religion); ra != "" && ra == rb {
		score += s.w.Category
	}
	score += s.w.Hobby * float64(overlap(a.Hobbies, b.Hobbies))
	score += s.w.Trait * float64(overlap(a.Traits, b.Traits))

	return score
}

// overlap counts distinct normalized values present in both slices.
func overlap(a, b []string) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(a))
	for _, v := range a {
		if n := normalize(v); n != "" {
			set[n] = struct{}{}
		}
	}

	n := 0
	for _, v := range b {
		key := normalize(v)
		if _, ok := set[key]; ok {
			n++
			delete(set, key) // count duplicates in b once
		}
	}
	return n
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func nonNegative(f float64) float64 {
	if f < 0 {
		return 0
	}
	return f
}
