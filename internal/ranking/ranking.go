// Package ranking turns raw engine output into the caller-facing candidate
// list and classifies it against the decision thresholds. It is pure: no
// engine, no filesystem, only the in-memory result of one search call.
package ranking

import (
	"golang.org/x/exp/slices"
)

// Candidate is one (identity, score) pair as reported by the engine.
// Scores are engine-defined non-negative reals, higher means more similar,
// with no guaranteed upper bound.
type Candidate struct {
	ID    int
	Score float64
}

// Ranked is a candidate after filtering and sorting, carrying its 1-based
// rank and the file name resolved through the gallery registry.
type Ranked struct {
	Rank  int
	ID    int
	File  string
	Score float64
}

// Resolver maps an identity to a file name. gallery.Registry.Resolve
// satisfies it in production.
type Resolver func(id int) string

// Pair zips the engine's two parallel result sequences into candidates.
// A length mismatch is a malformed result and yields nil, which downstream
// code treats as "no candidates".
func Pair(ids []int, scores []float64) []Candidate {
	if len(ids) != len(scores) {
		return nil
	}
	out := make([]Candidate, len(ids))
	for i, id := range ids {
		out[i] = Candidate{ID: id, Score: scores[i]}
	}
	return out
}

// Filter drops candidates scoring strictly below minScore. A candidate
// scoring exactly minScore is retained.
func Filter(raw []Candidate, minScore float64) []Candidate {
	kept := make([]Candidate, 0, len(raw))
	for _, c := range raw {
		if c.Score < minScore {
			continue
		}
		kept = append(kept, c)
	}
	return kept
}

// Rank filters raw by minScore, sorts by score descending with ascending
// identity as the tie-break, truncates to topN and assigns ranks 1..k.
// Fewer survivors than topN returns all of them. Empty or nil input yields
// an empty result, never an error.
func Rank(raw []Candidate, minScore float64, topN int, resolve Resolver) []Ranked {
	kept := Filter(raw, minScore)
	slices.SortStableFunc(kept, func(a, b Candidate) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return a.ID - b.ID
		}
	})

	if topN >= 0 && len(kept) > topN {
		kept = kept[:topN]
	}

	out := make([]Ranked, len(kept))
	for i, c := range kept {
		name := ""
		if resolve != nil {
			name = resolve(c.ID)
		}
		out[i] = Ranked{Rank: i + 1, ID: c.ID, File: name, Score: c.Score}
	}
	return out
}
