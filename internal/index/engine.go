package index

import (
	"context"
	"errors"
)

// Engine is the external matching engine as the lifecycle manager consumes
// it. An engine holds at most one in-memory index at a time; create/load and
// release are paired, non-reentrant operations. Releasing when nothing is
// loaded is a no-op.
type Engine interface {
	// CreateIndex starts a fresh in-memory index with the given tuning
	// parameters.
	CreateIndex(ctx context.Context, params Params) error
	// AddTemplate enrolls one template file under the given identity.
	AddTemplate(ctx context.Context, path string, id int) error
	// SaveIndex persists the in-memory index to path.
	SaveIndex(ctx context.Context, path string) error
	// LoadIndex loads a persisted index into memory.
	LoadIndex(ctx context.Context, path string) error
	// Search matches the probe against the loaded index and returns two
	// parallel sequences of identities and scores. The exhaustive flag
	// selects full traversal over the optimized top-N walk.
	Search(ctx context.Context, probePath string, exhaustive bool) (ids []int, scores []float64, err error)
	// ReleaseIndex frees the in-memory index.
	ReleaseIndex(ctx context.Context) error
}

// Params are the engine tuning constants. Build and search must use the
// same values; they are fixed per deployment, never varied per request.
type Params struct {
	Sectors          int
	Directions       int
	CellHeight       int
	CellWidth        int
	MinValidCells    int
	MinPairs         int
	AngularTolerance float64
	SpatialTolerance float64
	Seed             int
}

var (
	// ErrNoIndexLoaded reports an engine operation that needs a loaded index.
	ErrNoIndexLoaded = errors.New("no index loaded")
	// ErrIndexLoaded reports a create/load on an engine that already holds one.
	ErrIndexLoaded = errors.New("an index is already loaded")
)
