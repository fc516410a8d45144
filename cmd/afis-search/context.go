package main

import (
	"github.com/high-horse/afis-search/internal/config"
	"github.com/high-horse/afis-search/internal/engine"
	"github.com/high-horse/afis-search/internal/gallery"
	"github.com/high-horse/afis-search/internal/index"
)

// commandContext defers config loading until a command actually runs, so
// --config is parsed first and help never needs a valid file.
type commandContext struct {
	configFlag *string
	cfg        *config.Config
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	cfg, err := config.Load(*c.configFlag)
	if err != nil {
		return nil, err
	}
	c.cfg = cfg
	return cfg, nil
}

// components builds the registry, engine and lifecycle manager a command
// needs to talk to the gallery.
func (c *commandContext) components() (*config.Config, *gallery.Registry, *index.Manager, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	reg, err := gallery.Build(cfg.Paths.TemplatesDir, cfg.Paths.TemplateExt)
	if err != nil {
		return nil, nil, nil, err
	}
	eng, err := engine.New(cfg.Engine)
	if err != nil {
		return nil, nil, nil, err
	}
	mgr := index.NewManager(eng, index.Config{
		IndexPath:      cfg.Paths.IndexFile,
		Params:         engine.IndexParams(cfg.Engine),
		VerifyManifest: cfg.Index.VerifyManifest,
	})
	return cfg, reg, mgr, nil
}
