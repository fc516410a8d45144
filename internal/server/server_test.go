package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/mcuadros/go-defaults"

	"github.com/high-horse/afis-search/internal/config"
	"github.com/high-horse/afis-search/internal/engine/enginetest"
	"github.com/high-horse/afis-search/internal/gallery"
	"github.com/high-horse/afis-search/internal/index"
)

type fixture struct {
	srv  *Server
	fake *enginetest.Fake
	cfg  *config.Config
}

func newFixture(t *testing.T, fake *enginetest.Fake, names ...string) *fixture {
	t.Helper()

	dir := t.TempDir()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("minutiae"), 0o644); err != nil {
			t.Fatalf("writing %s: %v", name, err)
		}
	}

	cfg := new(config.Config)
	defaults.SetDefaults(cfg)
	cfg.Paths.TemplatesDir = dir
	cfg.Paths.IndexFile = filepath.Join(t.TempDir(), "gallery.idx")
	cfg.Index.VerifyManifest = false

	reg, err := gallery.Build(dir, cfg.Paths.TemplateExt)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	mgr := index.NewManager(fake, index.Config{
		IndexPath: cfg.Paths.IndexFile,
		Params:    index.Params{Sectors: 8, Directions: 6, Seed: 17},
	})

	return &fixture{srv: New(cfg, mgr, reg, io.Discard), fake: fake, cfg: cfg}
}

func (f *fixture) touchIndex(t *testing.T) {
	t.Helper()
	if err := os.WriteFile(f.cfg.Paths.IndexFile, []byte("idx"), 0o644); err != nil {
		t.Fatalf("writing index artifact: %v", err)
	}
}

func (f *fixture) request(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encoding body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := f.srv.App().Test(req, 5000)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
}

func TestHealth(t *testing.T) {
	f := newFixture(t, &enginetest.Fake{}, "a.txt", "b.txt")

	resp := f.request(t, http.MethodGet, "/health", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var body struct {
		Status       string `json:"status"`
		Templates    int    `json:"templates"`
		IndiceExiste bool   `json:"indice_existe"`
	}
	decodeJSON(t, resp, &body)
	if body.Status != "online" || body.Templates != 2 || body.IndiceExiste {
		t.Fatalf("body = %+v", body)
	}
}

func TestSearchRequiresProbeFile(t *testing.T) {
	f := newFixture(t, &enginetest.Fake{}, "a.txt")

	resp := f.request(t, http.MethodPost, "/search", map[string]any{"top_n": 3})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}

	var body ErrorResponse
	decodeJSON(t, resp, &body)
	if body.Status != "erro" || body.Mensagem != `Campo "probe_file" obrigatório` {
		t.Fatalf("body = %+v", body)
	}
}

func TestSearchSuccess(t *testing.T) {
	fake := &enginetest.Fake{IDs: []int{1, 0}, Scores: []float64{0.02, 0.9}}
	f := newFixture(t, fake, "b.txt", "a.txt")
	f.touchIndex(t)

	resp := f.request(t, http.MethodPost, "/search", map[string]any{
		"probe_file":   "a.txt",
		"top_n":        5,
		"score_minimo": 0.01,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var body SearchResponse
	decodeJSON(t, resp, &body)
	if body.Status != "sucesso" || body.ProbeArquivo != "a.txt" {
		t.Fatalf("body = %+v", body)
	}
	if body.TotalEncontrados != 2 || len(body.Candidatos) != 2 {
		t.Fatalf("candidatos = %+v", body)
	}
	top := body.Candidatos[0]
	if top.Rank != 1 || top.ID != 0 || top.Arquivo != "a.txt" || top.ScoreMCC != 0.9 {
		t.Fatalf("top = %+v", top)
	}
	if fake.Releases != 1 {
		t.Fatalf("Releases = %d, want 1", fake.Releases)
	}
}

func TestSearchConfinesProbeToGallery(t *testing.T) {
	fake := &enginetest.Fake{IDs: []int{0}, Scores: []float64{0.9}}
	f := newFixture(t, fake, "a.txt")
	f.touchIndex(t)

	resp := f.request(t, http.MethodPost, "/search", map[string]any{
		"probe_file": "../../etc/a.txt",
	})

	var body SearchResponse
	decodeJSON(t, resp, &body)
	if body.Status != "sucesso" || body.ProbeArquivo != "a.txt" {
		t.Fatalf("body = %+v, want traversal stripped to base name", body)
	}
}

func TestSearchMissingProbeIsErrorEnvelope(t *testing.T) {
	f := newFixture(t, &enginetest.Fake{}, "a.txt")
	f.touchIndex(t)

	resp := f.request(t, http.MethodPost, "/search", map[string]any{"probe_file": "absent.txt"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200 with erro envelope", resp.StatusCode)
	}

	var body ErrorResponse
	decodeJSON(t, resp, &body)
	if body.Status != "erro" || body.Mensagem != "Arquivo não encontrado: absent.txt" {
		t.Fatalf("body = %+v", body)
	}
}

func TestSearchMissingIndexIsErrorEnvelope(t *testing.T) {
	f := newFixture(t, &enginetest.Fake{}, "a.txt")

	resp := f.request(t, http.MethodPost, "/search", map[string]any{"probe_file": "a.txt"})

	var body ErrorResponse
	decodeJSON(t, resp, &body)
	if body.Status != "erro" || body.Mensagem != "Índice não encontrado. Execute setup primeiro." {
		t.Fatalf("body = %+v", body)
	}
}

func TestSetupBuildsIndex(t *testing.T) {
	fake := &enginetest.Fake{}
	f := newFixture(t, fake, "a.txt", "b.txt")

	resp := f.request(t, http.MethodPost, "/setup", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var body SetupResponse
	decodeJSON(t, resp, &body)
	if body.Status != "sucesso" || body.Mensagem != "Índice criado" {
		t.Fatalf("body = %+v", body)
	}
	if body.Estatisticas.Total != 2 || body.Estatisticas.Sucessos != 2 || body.Estatisticas.Erros != 0 {
		t.Fatalf("estatisticas = %+v", body.Estatisticas)
	}
	if fake.SavedPath != f.cfg.Paths.IndexFile {
		t.Fatalf("SavedPath = %q", fake.SavedPath)
	}
}

func TestSetupPicksUpNewTemplates(t *testing.T) {
	fake := &enginetest.Fake{}
	f := newFixture(t, fake, "a.txt")

	if err := os.WriteFile(filepath.Join(f.cfg.Paths.TemplatesDir, "b.txt"), []byte("m"), 0o644); err != nil {
		t.Fatalf("adding template: %v", err)
	}

	resp := f.request(t, http.MethodPost, "/setup", nil)
	var body SetupResponse
	decodeJSON(t, resp, &body)
	if body.Estatisticas.Total != 2 {
		t.Fatalf("Total = %d, want 2 after rescan", body.Estatisticas.Total)
	}

	// The served registry was swapped for the fresh one.
	health := f.request(t, http.MethodGet, "/health", nil)
	var h struct {
		Templates int `json:"templates"`
	}
	decodeJSON(t, health, &h)
	if h.Templates != 2 {
		t.Fatalf("templates = %d, want 2", h.Templates)
	}
}

func TestIdentifyMatch(t *testing.T) {
	fake := &enginetest.Fake{IDs: []int{0, 1}, Scores: []float64{0.9, 0.5}}
	f := newFixture(t, fake, "a.txt", "b.txt")
	f.touchIndex(t)

	resp := f.request(t, http.MethodPost, "/identify", map[string]any{"probe_file": "a.txt"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var body IdentifyResponse
	decodeJSON(t, resp, &body)
	if body.Status != "MATCH" {
		t.Fatalf("Status = %s, body = %+v", body.Status, body)
	}
	if body.ID == nil || *body.ID != 0 || body.Score == nil || *body.Score != 0.9 {
		t.Fatalf("id/score = %v/%v", body.ID, body.Score)
	}
	if len(body.Candidatos) != 2 || body.Candidatos[0].Arquivo != "a.txt" {
		t.Fatalf("candidatos = %+v", body.Candidatos)
	}
}

func TestIdentifyAmbiguous(t *testing.T) {
	fake := &enginetest.Fake{IDs: []int{0, 1}, Scores: []float64{0.9, 0.85}}
	f := newFixture(t, fake, "a.txt", "b.txt")
	f.touchIndex(t)

	resp := f.request(t, http.MethodPost, "/identify", map[string]any{"probe_file": "a.txt"})

	var body IdentifyResponse
	decodeJSON(t, resp, &body)
	if body.Status != "AMBIGUO" {
		t.Fatalf("Status = %s", body.Status)
	}
	if body.ID != nil {
		t.Fatal("AMBIGUO must not carry an identity")
	}
}

func TestIdentifyUsesUnfilteredCandidates(t *testing.T) {
	// Runner-up below the search score filter must still trigger
	// ambiguity: the decision path ranks with a zero minimum.
	fake := &enginetest.Fake{IDs: []int{0, 1}, Scores: []float64{0.9, 0.8999}}
	f := newFixture(t, fake, "a.txt", "b.txt")
	f.touchIndex(t)

	resp := f.request(t, http.MethodPost, "/identify", map[string]any{
		"probe_file": "a.txt",
	})

	var body IdentifyResponse
	decodeJSON(t, resp, &body)
	if body.Status != "AMBIGUO" {
		t.Fatalf("Status = %s", body.Status)
	}
}

func TestIdentifyNotFound(t *testing.T) {
	fake := &enginetest.Fake{}
	f := newFixture(t, fake, "a.txt")
	f.touchIndex(t)

	resp := f.request(t, http.MethodPost, "/identify", map[string]any{"probe_file": "a.txt"})

	var body IdentifyResponse
	decodeJSON(t, resp, &body)
	if body.Status != "NAO_ENCONTRADO" {
		t.Fatalf("Status = %s", body.Status)
	}
}

func TestIdentifyCustomThresholds(t *testing.T) {
	fake := &enginetest.Fake{IDs: []int{0}, Scores: []float64{0.6}}
	f := newFixture(t, fake, "a.txt")
	f.touchIndex(t)

	resp := f.request(t, http.MethodPost, "/identify", map[string]any{
		"probe_file":   "a.txt",
		"limiar_match": 0.5,
	})

	var body IdentifyResponse
	decodeJSON(t, resp, &body)
	if body.Status != "MATCH" {
		t.Fatalf("Status = %s, want MATCH with lowered threshold", body.Status)
	}
}
