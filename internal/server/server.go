// Package server exposes the gallery search workflow over HTTP, keeping
// the original service's wire shapes.
package server

import (
	"context"
	"io"
	"log"
	"sync/atomic"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	recoverer "github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"github.com/high-horse/afis-search/internal/config"
	"github.com/high-horse/afis-search/internal/gallery"
	"github.com/high-horse/afis-search/internal/index"
)

// Server wires the fiber app, the index manager and the current registry.
// The registry pointer is swapped atomically after a rebuild so in-flight
// requests keep a consistent view.
type Server struct {
	cfg *config.Config
	mgr *index.Manager
	reg atomic.Pointer[gallery.Registry]
	app *fiber.App
}

// New assembles the HTTP service. logOut is shared with the process logger
// so request lines land in the same rotating file.
func New(cfg *config.Config, mgr *index.Manager, reg *gallery.Registry, logOut io.Writer) *Server {
	s := &Server{cfg: cfg, mgr: mgr}
	s.reg.Store(reg)

	s.app = fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(ErrorResponse{
				Status:     "erro",
				Mensagem:   err.Error(),
				Candidatos: []SearchCandidate{},
			})
		},
	})

	s.app.Use(recoverer.New())
	s.app.Use(requestid.New())
	if logOut != nil {
		s.app.Use(logger.New(logger.Config{Output: logOut}))
	} else {
		s.app.Use(logger.New())
	}
	s.app.Use(cors.New())

	s.app.Get("/health", s.handleHealth)
	s.app.Post("/search", s.handleSearch)
	s.app.Post("/setup", s.handleSetup)
	s.app.Post("/identify", s.handleIdentify)

	return s
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App { return s.app }

func (s *Server) registry() *gallery.Registry { return s.reg.Load() }

// EnsureIndex builds the index when no persisted artifact exists yet,
// mirroring the original service's startup.
func (s *Server) EnsureIndex(ctx context.Context) error {
	if s.mgr.IndexExists() {
		log.Printf("index exists at %s, %d templates mapped", s.mgr.IndexPath(), s.registry().Size())
		return nil
	}
	log.Printf("no index at %s, building", s.mgr.IndexPath())
	report, err := s.mgr.Create(ctx, s.registry())
	if err != nil {
		return err
	}
	log.Printf("index built: %d/%d templates in %s", report.Succeeded, report.Total, report.Elapsed)
	return nil
}

// Listen serves until the context is canceled, then shuts down gracefully.
func (s *Server) Listen(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.app.Listen(addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Printf("shutting down")
		return s.app.ShutdownWithTimeout(10 * time.Second)
	}
}
