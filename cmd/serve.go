package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/scalpel-qa/internal/config"
	"github.com/xkilldash9x/scalpel-qa/internal/jobs"
	"github.com/xkilldash9x/scalpel-qa/internal/observability"
	"github.com/xkilldash9x/scalpel-qa/internal/server"
)

func newServeCmd() *cobra.Command {
	var addr string

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the run submission API",
		Long: `Starts an HTTP server that accepts runs on POST /api/run, reports their
status on GET /api/status/{jobID} and serves captured screenshots.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFrom(cmd.Context())
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			return serve(cmd.Context(), cfg, observability.GetLogger())
		},
	}

	serveCmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")
	return serveCmd
}

// serve runs the HTTP server until ctx is canceled, then drains in-flight
// runs within the shutdown timeout.
func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	if err := cfg.ValidateCredentials(); err != nil {
		return err
	}

	comps, err := assemble(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := comps.close(); cerr != nil {
			logger.Warn("Failed to close reasoning client.", zap.Error(cerr))
		}
	}()

	g, gctx := errgroup.WithContext(ctx)

	manager := jobs.NewManager(gctx, jobs.NewMemoryRegistry(), comps.runner.Run, logger)
	srv := server.New(cfg.Server, cfg.Evidence, comps.evidenceDir, manager, logger)

	g.Go(func() error {
		return srv.Serve(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		drainCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := manager.Wait(drainCtx); err != nil {
			return fmt.Errorf("in-flight runs did not finish: %w", err)
		}
		logger.Info("All in-flight runs drained.")
		return nil
	})

	err = g.Wait()
	if err == nil || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
