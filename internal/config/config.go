// Package config loads the TOML service configuration and fills unset
// fields with defaults.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/mcuadros/go-defaults"
)

// DefaultPath is consulted when no --config flag is given.
const DefaultPath = "afis-search.toml"

// Engine backend kinds.
const (
	KindAfis = "afis"
	KindMCC  = "mcc"
)

type Config struct {
	Server   Server   `toml:"server"`
	Paths    Paths    `toml:"paths"`
	Engine   Engine   `toml:"engine"`
	Search   Search   `toml:"search"`
	Decision Decision `toml:"decision"`
	Index    Index    `toml:"index"`
	Log      Log      `toml:"log"`
}

type Server struct {
	Address string `toml:"address" default:":5001"`
}

type Paths struct {
	TemplatesDir string `toml:"templates_dir" default:"./templates"`
	IndexFile    string `toml:"index_file" default:"./mcc_index.idx"`
	TemplateExt  string `toml:"template_ext" default:".txt"`
}

type Engine struct {
	Kind string `toml:"kind" default:"mcc"`
	// MaxCandidates caps how many candidates the optimized search walk
	// reports.
	MaxCandidates int       `toml:"max_candidates" default:"50"`
	ImageCache    int       `toml:"image_cache" default:"128"`
	MCC           MCCParams `toml:"mcc"`
	Bridge        Bridge    `toml:"bridge"`
}

// MCCParams are the nine engine tuning constants. Build and search must use
// identical values.
type MCCParams struct {
	Sectors          int     `toml:"sectors" default:"8"`
	Directions       int     `toml:"directions" default:"6"`
	CellHeight       int     `toml:"cell_height" default:"24"`
	CellWidth        int     `toml:"cell_width" default:"32"`
	MinValidCells    int     `toml:"min_valid_cells" default:"30"`
	MinPairs         int     `toml:"min_pairs" default:"2"`
	AngularTolerance float64 `toml:"angular_tolerance" default:"0.7853975"`
	SpatialTolerance float64 `toml:"spatial_tolerance" default:"256"`
	Seed             int     `toml:"seed" default:"17"`
}

type Bridge struct {
	BaseURL        string `toml:"base_url" default:"http://127.0.0.1:8871"`
	TimeoutSeconds int    `toml:"timeout_seconds" default:"300"`
}

type Search struct {
	TopN        int     `toml:"top_n" default:"5"`
	ScoreMinimo float64 `toml:"score_minimo" default:"0.001"`
}

type Decision struct {
	LimiarMatch       float64 `toml:"limiar_match" default:"0.80"`
	LimiarAmbiguidade float64 `toml:"limiar_ambiguidade" default:"0.10"`
	MaxCandidatos     int     `toml:"max_candidatos" default:"10"`
}

type Index struct {
	VerifyManifest bool `toml:"verify_manifest" default:"true"`
}

type Log struct {
	// Dir enables rotating file output when set; empty logs to stdout only.
	Dir         string `toml:"dir"`
	RotateHours int    `toml:"rotate_hours" default:"24"`
	MaxAgeDays  int    `toml:"max_age_days" default:"7"`
}

// Load reads the configuration at path. An empty path falls back to
// DefaultPath if that file exists, otherwise pure defaults are returned. An
// explicit path that cannot be read is an error.
func Load(path string) (*Config, error) {
	cfg := new(Config)
	defaults.SetDefaults(cfg)

	explicit := path != ""
	if path == "" {
		path = DefaultPath
	}
	if _, err := os.Stat(path); err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return cfg, cfg.Validate()
		}
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate rejects configurations the service cannot run with.
func (c *Config) Validate() error {
	if c.Paths.TemplatesDir == "" {
		return errors.New("paths.templates_dir must not be empty")
	}
	if c.Paths.IndexFile == "" {
		return errors.New("paths.index_file must not be empty")
	}
	if c.Paths.TemplateExt == "" {
		return errors.New("paths.template_ext must not be empty")
	}
	switch c.Engine.Kind {
	case KindAfis, KindMCC:
	default:
		return fmt.Errorf("engine.kind %q is not supported", c.Engine.Kind)
	}
	if c.Engine.Kind == KindMCC {
		if _, err := url.Parse(c.Engine.Bridge.BaseURL); err != nil || c.Engine.Bridge.BaseURL == "" {
			return fmt.Errorf("engine.bridge.base_url %q is not a valid URL", c.Engine.Bridge.BaseURL)
		}
	}
	if c.Engine.MaxCandidates <= 0 {
		return errors.New("engine.max_candidates must be positive")
	}
	if c.Engine.ImageCache <= 0 {
		return errors.New("engine.image_cache must be positive")
	}
	if c.Search.TopN <= 0 {
		return errors.New("search.top_n must be positive")
	}
	if c.Search.ScoreMinimo < 0 {
		return errors.New("search.score_minimo must not be negative")
	}
	if c.Decision.LimiarMatch < 0 || c.Decision.LimiarAmbiguidade < 0 {
		return errors.New("decision thresholds must not be negative")
	}
	if c.Decision.MaxCandidatos <= 0 {
		return errors.New("decision.max_candidatos must be positive")
	}
	return nil
}
