// Package afis is the embedded matching backend. It runs sourceafis
// in-process: the "index" artifact is the enrolled file list plus the build
// parameters, and a search extracts the probe template and matches it
// against every enrolled image.
package afis

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jtejido/sourceafis"
	sfconfig "github.com/jtejido/sourceafis/config"
	"golang.org/x/exp/slices"

	"github.com/high-horse/afis-search/internal/index"
)

var initOnce sync.Once

func initSourceafis() {
	sfconfig.LoadDefaultConfig()
	sfconfig.Config.Workers = runtime.NumCPU()
}

// Options tune the embedded backend.
type Options struct {
	// Params are the tuning constants the deployment searches with.
	// Artifacts built with different values are rejected at load time.
	Params index.Params
	// MaxCandidates caps the optimized search result length.
	MaxCandidates int
	// ImageCache is the decoded-image LRU size.
	ImageCache int
}

type noopTransparency struct{}

func (noopTransparency) Accepts(key string) bool                    { return false }
func (noopTransparency) Accept(key, mime string, data []byte) error { return nil }

// Engine implements index.Engine on top of sourceafis. It mirrors the MCC
// SDK's single-index discipline: one artifact in memory at a time,
// create/load paired with release.
type Engine struct {
	opts   Options
	images *lru.Cache[string, *sourceafis.Image]

	mu       sync.Mutex
	building *artifact
	loaded   *artifact
}

// New constructs the embedded backend.
func New(opts Options) (*Engine, error) {
	initOnce.Do(initSourceafis)
	if opts.MaxCandidates <= 0 {
		opts.MaxCandidates = 50
	}
	if opts.ImageCache <= 0 {
		opts.ImageCache = 128
	}
	images, err := lru.New[string, *sourceafis.Image](opts.ImageCache)
	if err != nil {
		return nil, fmt.Errorf("creating image cache: %w", err)
	}
	return &Engine{opts: opts, images: images}, nil
}

func (e *Engine) CreateIndex(ctx context.Context, params index.Params) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.building != nil || e.loaded != nil {
		return index.ErrIndexLoaded
	}
	e.building = newArtifact(params)
	return nil
}

// AddTemplate enrolls one gallery image, validating it by decoding up
// front so that an unreadable file fails the build step, not a later
// search.
func (e *Engine) AddTemplate(ctx context.Context, path string, id int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.building == nil {
		return index.ErrNoIndexLoaded
	}
	if _, err := e.loadImage(path); err != nil {
		return fmt.Errorf("template %s: %w", path, err)
	}
	return e.building.add(id, path)
}

func (e *Engine) SaveIndex(ctx context.Context, path string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.building == nil {
		return index.ErrNoIndexLoaded
	}
	return e.building.write(path)
}

// LoadIndex reads a persisted artifact. Artifacts built with different
// parameters are rejected: build and search must agree.
func (e *Engine) LoadIndex(ctx context.Context, path string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.building != nil || e.loaded != nil {
		return index.ErrIndexLoaded
	}
	art, err := readArtifact(path)
	if err != nil {
		return err
	}
	if e.opts.Params != (index.Params{}) {
		if err := art.checkParams(e.opts.Params); err != nil {
			return err
		}
	}
	e.loaded = art
	return nil
}

// Search matches the probe against every enrolled image and returns
// identities and scores sorted by score descending. Optimized mode
// truncates to the candidate cap; exhaustive mode returns everything.
func (e *Engine) Search(ctx context.Context, probePath string, exhaustive bool) ([]int, []float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.loaded == nil {
		return nil, nil, index.ErrNoIndexLoaded
	}

	probeImg, err := e.loadImage(probePath)
	if err != nil {
		return nil, nil, fmt.Errorf("probe %s: %w", probePath, err)
	}
	l := sourceafis.NewTransparencyLogger(noopTransparency{})
	tc := sourceafis.NewTemplateCreator(l)
	probe, err := tc.Template(probeImg)
	if err != nil {
		return nil, nil, fmt.Errorf("extracting probe template: %w", err)
	}
	matcher, err := sourceafis.NewMatcher(l, probe)
	if err != nil {
		return nil, nil, fmt.Errorf("creating matcher: %w", err)
	}

	type scored struct {
		id    int
		score float64
	}
	results := make([]scored, 0, len(e.loaded.Entries))
	for _, entry := range e.loaded.Entries {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		img, err := e.loadImage(entry.File)
		if err != nil {
			return nil, nil, fmt.Errorf("candidate %s: %w", entry.File, err)
		}
		candidate, err := tc.Template(img)
		if err != nil {
			return nil, nil, fmt.Errorf("extracting template for %s: %w", entry.File, err)
		}
		results = append(results, scored{id: entry.ID, score: matcher.Match(ctx, candidate)})
	}

	slices.SortFunc(results, func(a, b scored) int {
		switch {
		case a.score > b.score:
			return -1
		case a.score < b.score:
			return 1
		default:
			return a.id - b.id
		}
	})
	if !exhaustive && len(results) > e.opts.MaxCandidates {
		results = results[:e.opts.MaxCandidates]
	}

	ids := make([]int, len(results))
	scores := make([]float64, len(results))
	for i, r := range results {
		ids[i] = r.id
		scores[i] = r.score
	}
	return ids, scores, nil
}

// ReleaseIndex drops the in-memory artifact. Releasing when nothing is
// loaded is a no-op, matching the SDK this backend stands in for.
func (e *Engine) ReleaseIndex(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.building = nil
	e.loaded = nil
	return nil
}
