package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/high-horse/afis-search/internal/logging"
	"github.com/high-horse/afis-search/internal/server"
)

func newServeCommand(cctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP search service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, reg, mgr, err := cctx.components()
			if err != nil {
				return err
			}

			logOut, closeLog, err := logging.Setup(cfg.Log)
			if err != nil {
				return err
			}
			defer closeLog()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			srv := server.New(cfg, mgr, reg, logOut)
			if err := srv.EnsureIndex(ctx); err != nil {
				return err
			}

			log.Printf("serving on %s, %d templates", cfg.Server.Address, reg.Size())
			return srv.Listen(ctx, cfg.Server.Address)
		},
	}
}
