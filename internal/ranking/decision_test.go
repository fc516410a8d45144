package ranking

import "testing"

func ranked(scores ...float64) []Ranked {
	out := make([]Ranked, len(scores))
	for i, s := range scores {
		out[i] = Ranked{Rank: i + 1, ID: i, Score: s}
	}
	return out
}

func TestDecideEmptyIsNotFound(t *testing.T) {
	out := Decide(nil, 0.8, 0.1)
	if out.Status != StatusNotFound {
		t.Fatalf("Status = %s, want %s", out.Status, StatusNotFound)
	}
	if out.ID != nil || out.Score != nil {
		t.Fatal("NOT_FOUND must not carry identity or score")
	}
}

func TestDecideBelowThreshold(t *testing.T) {
	out := Decide(ranked(0.5), 0.8, 0.1)
	if out.Status != StatusBelowThreshold {
		t.Fatalf("Status = %s, want %s", out.Status, StatusBelowThreshold)
	}
	if out.Score == nil || *out.Score != 0.5 {
		t.Fatalf("Score = %v, want 0.5 for diagnostics", out.Score)
	}
	if out.ID != nil {
		t.Fatal("BELOW_THRESHOLD must not carry an identity")
	}
}

func TestDecideAmbiguous(t *testing.T) {
	out := Decide(ranked(0.9, 0.85), 0.8, 0.1)
	if out.Status != StatusAmbiguous {
		t.Fatalf("Status = %s, want %s", out.Status, StatusAmbiguous)
	}
	if out.ID != nil {
		t.Fatal("AMBIGUO must not carry an identity")
	}
}

func TestDecideMatch(t *testing.T) {
	out := Decide(ranked(0.9, 0.5), 0.8, 0.1)
	if out.Status != StatusMatch {
		t.Fatalf("Status = %s, want %s", out.Status, StatusMatch)
	}
	if out.ID == nil || *out.ID != 0 {
		t.Fatalf("ID = %v, want 0", out.ID)
	}
	if out.Score == nil || *out.Score != 0.9 {
		t.Fatalf("Score = %v, want 0.9", out.Score)
	}
}

func TestDecideSingleCandidateSkipsAmbiguity(t *testing.T) {
	out := Decide(ranked(0.9), 0.8, 0.1)
	if out.Status != StatusMatch {
		t.Fatalf("Status = %s, want %s (no runner-up, no ambiguity)", out.Status, StatusMatch)
	}
}

func TestDecideThresholdBeforeAmbiguity(t *testing.T) {
	// Top below threshold and within the margin of the runner-up: the
	// threshold stage fires first.
	out := Decide(ranked(0.5, 0.48), 0.8, 0.1)
	if out.Status != StatusBelowThreshold {
		t.Fatalf("Status = %s, want %s", out.Status, StatusBelowThreshold)
	}
}

func TestDecideExactGapIsAmbiguous(t *testing.T) {
	// Gap strictly below the margin is ambiguous; an exact gap is not.
	out := Decide(ranked(0.75, 0.5), 0.5, 0.25)
	if out.Status != StatusMatch {
		t.Fatalf("Status = %s, want %s for gap equal to margin", out.Status, StatusMatch)
	}
}
