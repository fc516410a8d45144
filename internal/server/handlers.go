package server

import (
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/high-horse/afis-search/internal/gallery"
	"github.com/high-horse/afis-search/internal/index"
	"github.com/high-horse/afis-search/internal/ranking"
)

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":        "online",
		"templates":     s.registry().Size(),
		"indice_existe": s.mgr.IndexExists(),
	})
}

func (s *Server) handleSearch(c *fiber.Ctx) error {
	var req SearchRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Status:     "erro",
			Mensagem:   "Corpo da requisição inválido: " + err.Error(),
			Candidatos: []SearchCandidate{},
		})
	}
	if req.ProbeFile == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Status:     "erro",
			Mensagem:   `Campo "probe_file" obrigatório`,
			Candidatos: []SearchCandidate{},
		})
	}

	topN := s.cfg.Search.TopN
	if req.TopN != nil {
		topN = *req.TopN
	}
	minScore := s.cfg.Search.ScoreMinimo
	if req.ScoreMinimo != nil {
		minScore = *req.ScoreMinimo
	}

	// Probes are confined to the gallery directory; the client sends a
	// name, never a path.
	probeName := filepath.Base(req.ProbeFile)
	reg := s.registry()
	probePath := filepath.Join(reg.Dir(), probeName)

	log.Printf("search: probe=%s top_n=%d score_minimo=%g", probeName, topN, minScore)
	start := time.Now()

	raw, err := s.mgr.SearchOne(c.Context(), reg, probePath)
	if err != nil {
		return c.JSON(ErrorResponse{
			Status:     "erro",
			Mensagem:   searchErrorMessage(err, probeName),
			Candidatos: []SearchCandidate{},
		})
	}

	kept := ranking.Filter(raw, minScore)
	ranked := ranking.Rank(raw, minScore, topN, reg.Resolve)

	candidatos := make([]SearchCandidate, len(ranked))
	for i, r := range ranked {
		candidatos[i] = SearchCandidate{Rank: r.Rank, ID: r.ID, Arquivo: r.File, ScoreMCC: r.Score}
	}

	return c.JSON(SearchResponse{
		Status:           "sucesso",
		ProbeArquivo:     probeName,
		TotalEncontrados: len(kept),
		TempoMs:          float64(time.Since(start).Microseconds()) / 1000.0,
		Candidatos:       candidatos,
	})
}

func (s *Server) handleSetup(c *fiber.Ctx) error {
	reg, err := gallery.Build(s.cfg.Paths.TemplatesDir, s.cfg.Paths.TemplateExt)
	if err != nil {
		return c.JSON(ErrorResponse{
			Status:     "erro",
			Mensagem:   err.Error(),
			Candidatos: []SearchCandidate{},
		})
	}

	report, err := s.mgr.Create(c.Context(), reg)
	if err != nil {
		msg := err.Error()
		if errors.Is(err, index.ErrBuildBusy) {
			msg = "Índice em reconstrução. Tente novamente."
		}
		return c.JSON(ErrorResponse{
			Status:     "erro",
			Mensagem:   msg,
			Candidatos: []SearchCandidate{},
		})
	}

	s.reg.Store(reg)

	return c.JSON(SetupResponse{
		Status:   "sucesso",
		Mensagem: "Índice criado",
		Estatisticas: SetupStats{
			Total:         report.Total,
			Sucessos:      report.Succeeded,
			Erros:         len(report.Failures),
			TempoSegundos: report.Elapsed.Seconds(),
		},
	})
}

func (s *Server) handleIdentify(c *fiber.Ctx) error {
	var req IdentifyRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Status:     "erro",
			Mensagem:   "Corpo da requisição inválido: " + err.Error(),
			Candidatos: []SearchCandidate{},
		})
	}
	if req.ProbeFile == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Status:     "erro",
			Mensagem:   `Campo "probe_file" obrigatório`,
			Candidatos: []SearchCandidate{},
		})
	}

	limiarMatch := s.cfg.Decision.LimiarMatch
	if req.LimiarMatch != nil {
		limiarMatch = *req.LimiarMatch
	}
	limiarAmb := s.cfg.Decision.LimiarAmbiguidade
	if req.LimiarAmbiguidade != nil {
		limiarAmb = *req.LimiarAmbiguidade
	}
	maxCand := s.cfg.Decision.MaxCandidatos
	if req.MaxCandidatos != nil {
		maxCand = *req.MaxCandidatos
	}

	probeName := filepath.Base(req.ProbeFile)
	reg := s.registry()
	probePath := filepath.Join(reg.Dir(), probeName)

	raw, err := s.mgr.SearchOne(c.Context(), reg, probePath)
	if err != nil {
		return c.JSON(ErrorResponse{
			Status:     "erro",
			Mensagem:   searchErrorMessage(err, probeName),
			Candidatos: []SearchCandidate{},
		})
	}

	// The decision policy needs the unfiltered runner-up, so rank with a
	// zero minimum score.
	ranked := ranking.Rank(raw, 0, maxCand, reg.Resolve)
	outcome := ranking.Decide(ranked, limiarMatch, limiarAmb)

	candidatos := make([]IdentifyCandidate, len(outcome.Candidates))
	for i, r := range outcome.Candidates {
		candidatos[i] = IdentifyCandidate{Rank: r.Rank, ID: r.ID, Arquivo: r.File, Score: r.Score}
	}

	return c.JSON(IdentifyResponse{
		Status:     string(outcome.Status),
		ID:         outcome.ID,
		Score:      outcome.Score,
		Candidatos: candidatos,
		Mensagem:   outcome.Message,
	})
}

// searchErrorMessage converts manager errors to the Portuguese wire
// messages the original service produced.
func searchErrorMessage(err error, probeName string) string {
	switch {
	case errors.Is(err, index.ErrProbeNotFound):
		return fmt.Sprintf("Arquivo não encontrado: %s", probeName)
	case errors.Is(err, index.ErrIndexNotFound):
		return "Índice não encontrado. Execute setup primeiro."
	case errors.Is(err, index.ErrBuildBusy):
		return "Índice em reconstrução. Tente novamente."
	case errors.Is(err, index.ErrGalleryDesync):
		return "Galeria alterada desde a criação do índice. Execute setup novamente."
	default:
		return err.Error()
	}
}
