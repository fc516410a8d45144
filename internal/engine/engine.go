// Package engine selects and constructs a matching engine backend from
// configuration.
package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/high-horse/afis-search/internal/config"
	"github.com/high-horse/afis-search/internal/engine/afis"
	"github.com/high-horse/afis-search/internal/engine/mcc"
	"github.com/high-horse/afis-search/internal/index"
)

// ErrUnknownKind reports an engine kind no backend implements.
var ErrUnknownKind = errors.New("unknown engine kind")

// New builds the configured engine backend.
func New(cfg config.Engine) (index.Engine, error) {
	switch cfg.Kind {
	case config.KindAfis:
		return afis.New(afis.Options{
			Params:        IndexParams(cfg),
			MaxCandidates: cfg.MaxCandidates,
			ImageCache:    cfg.ImageCache,
		})
	case config.KindMCC:
		return mcc.New(cfg.Bridge.BaseURL, time.Duration(cfg.Bridge.TimeoutSeconds)*time.Second), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, cfg.Kind)
	}
}

// IndexParams maps the configured tuning constants to the engine parameter
// block handed to every build.
func IndexParams(cfg config.Engine) index.Params {
	return index.Params{
		Sectors:          cfg.MCC.Sectors,
		Directions:       cfg.MCC.Directions,
		CellHeight:       cfg.MCC.CellHeight,
		CellWidth:        cfg.MCC.CellWidth,
		MinValidCells:    cfg.MCC.MinValidCells,
		MinPairs:         cfg.MCC.MinPairs,
		AngularTolerance: cfg.MCC.AngularTolerance,
		SpatialTolerance: cfg.MCC.SpatialTolerance,
		Seed:             cfg.MCC.Seed,
	}
}
