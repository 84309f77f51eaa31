package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mesh-intelligence/qadesk/internal/api"
	"github.com/mesh-intelligence/qadesk/internal/service"
)

const shutdownGrace = 10 * time.Second

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON/HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = a.cfg.HTTPAddr
			}
			backend, err := a.attach()
			if err != nil {
				return err
			}
			defer backend.Detach()

			svc := service.New(backend,
				service.WithLogger(a.logger),
				service.WithTimeout(a.cfg.OperationTimeout),
				service.WithMaxNestingDepth(a.cfg.MaxNestingDepth),
			)
			srv := api.NewServer(svc, a.logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error { return srv.Start(addr) })
			g.Go(func() error {
				<-gctx.Done()
				a.logger.Info("Shutting down HTTP server")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			})
			if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Error("server stopped", zap.Error(err))
				return fmt.Errorf("serve: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: http.addr from config)")
	return cmd
}
