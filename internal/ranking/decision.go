package ranking

import "fmt"

// Status classifies a search outcome. The values are the wire strings the
// original service exposed, kept for client compatibility.
type Status string

const (
	StatusNotFound       Status = "NAO_ENCONTRADO"
	StatusBelowThreshold Status = "ABAIXO_LIMIAR"
	StatusAmbiguous      Status = "AMBIGUO"
	StatusMatch          Status = "MATCH"
)

// Outcome is the result of applying the decision policy to one search.
// ID and Score are set only for StatusMatch, except that Score also carries
// the rejected top score for StatusBelowThreshold diagnostics.
type Outcome struct {
	Status     Status
	ID         *int
	Score      *float64
	Candidates []Ranked
	Message    string
}

// Decide applies the three-tier decision policy to an already-sorted
// candidate list: existence, then match threshold, then ambiguity margin.
// Each stage is terminal once triggered. The list must come from Rank with
// a zero minimum score so that the runner-up used by the ambiguity check
// was not filtered away.
func Decide(ranked []Ranked, matchThreshold, ambiguityMargin float64) Outcome {
	out := Outcome{Candidates: ranked}

	if len(ranked) == 0 {
		out.Status = StatusNotFound
		out.Message = "Nenhum candidato no índice"
		return out
	}

	top := ranked[0]
	if top.Score < matchThreshold {
		out.Status = StatusBelowThreshold
		out.Score = &top.Score
		out.Message = fmt.Sprintf("Score %.3f < limiar %g", top.Score, matchThreshold)
		return out
	}

	// Ambiguity needs a runner-up; a single candidate skips this stage.
	if len(ranked) > 1 {
		second := ranked[1]
		if diff := top.Score - second.Score; diff < ambiguityMargin {
			out.Status = StatusAmbiguous
			out.Message = fmt.Sprintf("Ambíguo: %.3f vs %.3f (diff=%.3f)", top.Score, second.Score, diff)
			return out
		}
	}

	out.Status = StatusMatch
	out.ID = &top.ID
	out.Score = &top.Score
	out.Message = fmt.Sprintf("Match confirmado: score %.3f", top.Score)
	return out
}
