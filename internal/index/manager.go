// Package index owns the external engine's build/persist/load/release
// cycle. The engine exposes a single mutable in-memory index, so every
// create or load is scoped: acquired, used and released within one call,
// under a lock that serializes concurrent requests.
package index

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/high-horse/afis-search/internal/gallery"
	"github.com/high-horse/afis-search/internal/ranking"
)

var (
	// ErrIndexNotFound reports a missing persisted index artifact.
	ErrIndexNotFound = errors.New("index not found")
	// ErrProbeNotFound reports a missing probe template file.
	ErrProbeNotFound = errors.New("probe not found")
	// ErrBuildBusy reports that another process holds the index lock.
	ErrBuildBusy = errors.New("index is busy")
	// ErrGalleryDesync reports a gallery listing that no longer matches the
	// manifest the index was built from.
	ErrGalleryDesync = errors.New("gallery out of sync with index")
)

// Config fixes a manager's artifact location and engine parameters.
type Config struct {
	// IndexPath is where the persisted index artifact lives.
	IndexPath string
	// Params are passed to the engine on every build.
	Params Params
	// VerifyManifest enables the gallery manifest check before a search.
	VerifyManifest bool
}

// Manager serializes all engine index access. The engine supports one
// loaded index at a time, so concurrent callers queue on the manager's
// mutex; a file lock extends the same exclusion across processes.
type Manager struct {
	mu  sync.Mutex
	eng Engine
	cfg Config
}

// NewManager wraps an engine with the scoped lifecycle discipline.
func NewManager(eng Engine, cfg Config) *Manager {
	return &Manager{eng: eng, cfg: cfg}
}

// IndexPath returns the persisted artifact location.
func (m *Manager) IndexPath() string { return m.cfg.IndexPath }

// IndexExists reports whether the persisted artifact is present.
func (m *Manager) IndexExists() bool {
	_, err := os.Stat(m.cfg.IndexPath)
	return err == nil
}

// AddFailure records one template that the engine refused during a build.
type AddFailure struct {
	ID   int
	File string
	Err  string
}

// BuildReport aggregates one index build. A build is not atomic across
// files: per-file failures are recorded and the build continues.
type BuildReport struct {
	Total     int
	Succeeded int
	Failures  []AddFailure
	Elapsed   time.Duration
	Saved     bool
}

// Create builds a fresh index from every template in the registry and
// persists it. The artifact is saved only when at least one template was
// added; the in-memory index is released on every path.
func (m *Manager) Create(ctx context.Context, reg *gallery.Registry) (*BuildReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	fl := flock.New(m.cfg.IndexPath + ".lock")
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("locking index: %w", err)
	}
	if !locked {
		return nil, ErrBuildBusy
	}
	defer fl.Unlock()

	start := time.Now()
	files := reg.Files()
	report := &BuildReport{Total: len(files)}

	if err := m.eng.CreateIndex(ctx, m.cfg.Params); err != nil {
		return nil, fmt.Errorf("creating index: %w", err)
	}
	defer m.release(ctx)

	log.Printf("indexing %d templates from %s", len(files), reg.Dir())
	for id, name := range files {
		if err := m.eng.AddTemplate(ctx, reg.Path(id), id); err != nil {
			log.Printf("[%d/%d] %s: %v", id+1, len(files), name, err)
			report.Failures = append(report.Failures, AddFailure{ID: id, File: name, Err: err.Error()})
			continue
		}
		log.Printf("[%d/%d] %s", id+1, len(files), name)
		report.Succeeded++
	}

	if report.Succeeded > 0 {
		if err := m.eng.SaveIndex(ctx, m.cfg.IndexPath); err != nil {
			return report, fmt.Errorf("saving index: %w", err)
		}
		if err := gallery.NewManifest(reg).Write(gallery.ManifestPath(m.cfg.IndexPath)); err != nil {
			return report, err
		}
		report.Saved = true
	} else {
		log.Printf("no template added, index not saved")
	}

	report.Elapsed = time.Since(start)
	return report, nil
}

// SearchOne loads the persisted index, runs a single optimized search for
// the probe and releases the index again, returning the raw candidates.
// A malformed engine result (mismatched sequences) degrades to an empty
// candidate list, not an error.
func (m *Manager) SearchOne(ctx context.Context, reg *gallery.Registry, probePath string) ([]ranking.Candidate, error) {
	if _, err := os.Stat(probePath); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrProbeNotFound, probePath)
	}
	if _, err := os.Stat(m.cfg.IndexPath); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrIndexNotFound, m.cfg.IndexPath)
	}

	if m.cfg.VerifyManifest {
		if err := m.verifyManifest(reg); err != nil {
			return nil, err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	fl := flock.New(m.cfg.IndexPath + ".lock")
	locked, err := fl.TryRLock()
	if err != nil {
		return nil, fmt.Errorf("locking index: %w", err)
	}
	if !locked {
		return nil, ErrBuildBusy
	}
	defer fl.Unlock()

	if err := m.eng.LoadIndex(ctx, m.cfg.IndexPath); err != nil {
		return nil, fmt.Errorf("loading index: %w", err)
	}
	defer m.release(ctx)

	ids, scores, err := m.eng.Search(ctx, probePath, false)
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}

	raw := ranking.Pair(ids, scores)
	if raw == nil {
		log.Printf("malformed engine result: %d ids, %d scores", len(ids), len(scores))
		return []ranking.Candidate{}, nil
	}
	return raw, nil
}

// release frees the engine index, logging instead of propagating: resource
// safety must not depend on the surrounding error path.
func (m *Manager) release(ctx context.Context) {
	if err := m.eng.ReleaseIndex(ctx); err != nil {
		log.Printf("releasing index: %v", err)
	}
}

func (m *Manager) verifyManifest(reg *gallery.Registry) error {
	path := gallery.ManifestPath(m.cfg.IndexPath)
	man, err := gallery.LoadManifest(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			// Artifact predates manifest support; search as the original did.
			log.Printf("no gallery manifest at %s, skipping verification", path)
			return nil
		}
		return err
	}
	if err := man.Verify(reg); err != nil {
		return fmt.Errorf("%w: %v", ErrGalleryDesync, err)
	}
	return nil
}
