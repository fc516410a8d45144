package server

// SearchRequest is the /search body. Pointers distinguish "absent" from
// zero so configured defaults apply only when the field is missing.
type SearchRequest struct {
	ProbeFile   string   `json:"probe_file"`
	TopN        *int     `json:"top_n"`
	ScoreMinimo *float64 `json:"score_minimo"`
}

// IdentifyRequest is the /identify body.
type IdentifyRequest struct {
	ProbeFile         string   `json:"probe_file"`
	LimiarMatch       *float64 `json:"limiar_match"`
	LimiarAmbiguidade *float64 `json:"limiar_ambiguidade"`
	MaxCandidatos     *int     `json:"max_candidatos"`
}

// SearchCandidate is one ranked entry on the /search wire.
type SearchCandidate struct {
	Rank     int     `json:"rank"`
	ID       int     `json:"id"`
	Arquivo  string  `json:"arquivo"`
	ScoreMCC float64 `json:"score_mcc"`
}

// SearchResponse is the /search success envelope. TotalEncontrados counts
// the candidates that survived the score filter, before truncation.
type SearchResponse struct {
	Status           string            `json:"status"`
	ProbeArquivo     string            `json:"probe_arquivo"`
	TotalEncontrados int               `json:"total_encontrados"`
	TempoMs          float64           `json:"tempo_ms"`
	Candidatos       []SearchCandidate `json:"candidatos"`
}

// ErrorResponse is the generic erro envelope. Candidatos is always present
// (possibly empty) for client compatibility.
type ErrorResponse struct {
	Status     string            `json:"status"`
	Mensagem   string            `json:"mensagem"`
	Candidatos []SearchCandidate `json:"candidatos"`
}

// SetupResponse reports an index rebuild.
type SetupResponse struct {
	Status       string     `json:"status"`
	Mensagem     string     `json:"mensagem"`
	Estatisticas SetupStats `json:"estatisticas"`
}

type SetupStats struct {
	Total         int     `json:"total"`
	Sucessos      int     `json:"sucessos"`
	Erros         int     `json:"erros"`
	TempoSegundos float64 `json:"tempo_segundos"`
}

// IdentifyCandidate is one ranked entry on the /identify wire.
type IdentifyCandidate struct {
	Rank    int     `json:"rank"`
	ID      int     `json:"id"`
	Arquivo string  `json:"arquivo"`
	Score   float64 `json:"score"`
}

// IdentifyResponse carries the decision outcome. ID and Score are null
// unless the policy set them.
type IdentifyResponse struct {
	Status     string              `json:"status"`
	ID         *int                `json:"id"`
	Score      *float64            `json:"score"`
	Candidatos []IdentifyCandidate `json:"candidatos"`
	Mensagem   string              `json:"mensagem"`
}
