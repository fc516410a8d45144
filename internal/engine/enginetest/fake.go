// Package enginetest provides a scripted engine for package tests.
package enginetest

import (
	"context"
	"sync"
	"time"

	"github.com/high-horse/afis-search/internal/index"
)

// Add records one AddTemplate call.
type Add struct {
	Path string
	ID   int
}

// Fake is a programmable index.Engine. Zero value is usable: every call
// succeeds and Search returns the scripted IDs/Scores.
type Fake struct {
	mu sync.Mutex

	// Scripted results and failures.
	IDs       []int
	Scores    []float64
	AddErrs   map[int]error
	CreateErr error
	SaveErr   error
	LoadErr   error
	SearchErr error

	// SearchDelay stretches Search to make overlap observable.
	SearchDelay time.Duration

	// Recorded calls.
	Params    index.Params
	Added     []Add
	SavedPath string
	LoadPath  string
	Loads     int
	Searches  int
	Releases  int

	loaded      bool
	inFlight    int
	MaxInFlight int
}

var _ index.Engine = (*Fake)(nil)

func (f *Fake) CreateIndex(ctx context.Context, params index.Params) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CreateErr != nil {
		return f.CreateErr
	}
	if f.loaded {
		return index.ErrIndexLoaded
	}
	f.Params = params
	f.loaded = true
	return nil
}

func (f *Fake) AddTemplate(ctx context.Context, path string, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.AddErrs[id]; err != nil {
		return err
	}
	f.Added = append(f.Added, Add{Path: path, ID: id})
	return nil
}

func (f *Fake) SaveIndex(ctx context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SaveErr != nil {
		return f.SaveErr
	}
	f.SavedPath = path
	return nil
}

func (f *Fake) LoadIndex(ctx context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.LoadErr != nil {
		return f.LoadErr
	}
	if f.loaded {
		return index.ErrIndexLoaded
	}
	f.LoadPath = path
	f.Loads++
	f.loaded = true
	return nil
}

func (f *Fake) Search(ctx context.Context, probePath string, exhaustive bool) ([]int, []float64, error) {
	f.mu.Lock()
	if !f.loaded {
		f.mu.Unlock()
		return nil, nil, index.ErrNoIndexLoaded
	}
	f.Searches++
	f.inFlight++
	if f.inFlight > f.MaxInFlight {
		f.MaxInFlight = f.inFlight
	}
	delay := f.SearchDelay
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	f.mu.Lock()
	f.inFlight--
	ids, scores, err := f.IDs, f.Scores, f.SearchErr
	f.mu.Unlock()
	return ids, scores, err
}

func (f *Fake) ReleaseIndex(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Releases++
	f.loaded = false
	return nil
}
