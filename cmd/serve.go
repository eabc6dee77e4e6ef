package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/docextract/internal/config"
	"github.com/sells-group/docextract/internal/monitoring"
	"github.com/sells-group/docextract/internal/server"
)

var servePort int

// sessionSweepInterval is how often idle sessions are checked.
const sessionSweepInterval = time.Minute

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the extraction backend and session API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		// The backend endpoint must call the vendors itself.
		if cfg.Extraction.Mode == config.ModeBackend {
			zap.L().Warn("serve: ignoring backend extraction mode, calling providers directly")
			cfg.Extraction.Mode = config.ModeDirect
		}

		metrics := monitoring.NewMetrics()
		env, err := initEnv(cfg, metrics)
		if err != nil {
			return err
		}

		srv := server.New(cfg, server.Deps{
			Gateway:   env.Gateway,
			Pipeline:  env.Pipeline,
			Presenter: env.Presenter,
			Metrics:   metrics,
		})

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return startServer(gctx, srv.Handler(), resolvePort(servePort, cfg.Server.Port))
		})
		g.Go(func() error {
			srv.SweepSessions(gctx, sessionSweepInterval, cfg.Server.SessionIdle())
			return nil
		})
		if cfg.Monitoring.Enabled {
			collector := monitoring.NewCollector(metrics, env.Breakers, srv.Sessions())
			checker := monitoring.NewChecker(collector, monitoring.NewAlerter(cfg.Monitoring), cfg.Monitoring)
			g.Go(func() error {
				checker.Run(gctx)
				return nil
			})
		}

		return g.Wait()
	},
}

// resolvePort prefers the flag value over the configured port.
func resolvePort(flagPort, cfgPort int) int {
	if flagPort != 0 {
		return flagPort
	}
	return cfgPort
}

// startServer serves h on port until ctx is done, then shuts down gracefully.
func startServer(ctx context.Context, h http.Handler, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("starting server", zap.Int("port", port))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}
		return nil
	case <-ctx.Done():
	}

	zap.L().Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return eris.Wrap(err, "server shutdown")
	}
	return nil
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
