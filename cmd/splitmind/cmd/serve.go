package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/hugo-lorenzo-mato/splitmind/internal/adapters/store"
	"github.com/hugo-lorenzo-mato/splitmind/internal/api"
	"github.com/hugo-lorenzo-mato/splitmind/internal/settings"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the settings API",
		Long: `Start the HTTP API the dashboard and orchestrator use to read and replace
the settings.

Examples:
  # Start with defaults (127.0.0.1:8080)
  splitmind serve

  # Listen on all interfaces
  splitmind serve --addr 0.0.0.0:8080`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr == "" {
				addr = opts.cfg.Server.Addr
			}
			return opts.runServe(cmd.Context(), addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from server.addr)")
	return cmd
}

func (o *rootOptions) runServe(parent context.Context, addr string) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := o.logger.WithComponent("serve")
	st, err := o.openStore(o.cfg.Server.Metrics)
	if err != nil {
		return err
	}

	serverOpts := []api.ServerOption{
		api.WithLogger(o.logger.WithComponent("api").Slog()),
		api.WithCatalog(o.catalog),
		api.WithAuthToken(o.cfg.Server.AuthToken),
		api.WithRedactKeys(o.cfg.Server.RedactKeys),
		api.WithCORSOrigins(o.cfg.Server.CORSOrigins),
	}
	if o.cfg.Server.Metrics {
		serverOpts = append(serverOpts, api.WithMetrics(prometheus.DefaultGatherer))
	}
	server := api.NewServer(st, serverOpts...)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := server.ListenAndServe(gctx, addr); err != nil {
			return fmt.Errorf("serving %s: %w", addr, err)
		}
		return nil
	})

	if w, ok := store.AsWatcher(st); ok && o.cfg.Server.Watch {
		changes, err := w.Watch(gctx)
		if err != nil {
			logger.Warn("settings watch unavailable", "error", err)
		} else {
			g.Go(func() error {
				watchSettings(gctx, st, changes, logger.Slog())
				return nil
			})
		}
	}

	logger.Info("settings API ready",
		"addr", addr,
		"backend", o.cfg.Store.Backend,
		"auth", o.cfg.Server.AuthToken != "",
		"metrics", o.cfg.Server.Metrics,
	)
	return g.Wait()
}

// watchSettings logs every external modification of the settings store.
func watchSettings(ctx context.Context, st settings.Store, changes <-chan struct{}, logger *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-changes:
			if !ok {
				return
			}
			snap, err := st.Read(ctx)
			if err != nil {
				logger.Warn("settings changed externally but could not be read", "error", err)
				continue
			}
			logger.Info("settings changed externally",
				"provider", snap.Config.APIProvider,
				"model", snap.Config.APIModel,
				"etag", snap.ETag,
			)
		}
	}
}
