package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"hesapkit.com/internal/cache"
	"hesapkit.com/internal/engagement"
	"hesapkit.com/internal/logging"
	"hesapkit.com/internal/web"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(opts *rootOptions) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer logging.SafeCloseWithLogging(closerFunc(a.Close), a.Logger, "close application")

			if port != 0 {
				a.Config.Port = port
			}
			srv, err := web.New(a)
			if err != nil {
				return err
			}
			httpServer := &http.Server{
				Addr:         fmt.Sprintf(":%d", a.Config.Port),
				Handler:      srv.Handler(),
				IdleTimeout:  time.Minute,
				ReadTimeout:  5 * time.Second,
				WriteTimeout: 10 * time.Second,
				ErrorLog:     slog.NewLogLogger(a.Logger.Handler(), slog.LevelError),
			}
			var sweepers []sweeper
			if mem, ok := a.Cache.(*cache.Memory); ok {
				sweepers = append(sweepers, mem)
			}
			if mem, ok := a.Store.(*engagement.Memory); ok {
				sweepers = append(sweepers, mem)
			}
			return serve(cmd.Context(), a.Logger, httpServer, srv, sweepers...)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "Listen port, overrides the config file")
	return cmd
}

// sweeper is an in-memory store that expires entries in the background.
type sweeper interface {
	Run(ctx context.Context, interval time.Duration)
}

// serve runs the HTTP server and background sweepers until ctx is done,
// then drains in-flight requests.
func serve(ctx context.Context, logger *slog.Logger, httpServer *http.Server, srv *web.Server, sweepers ...sweeper) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting server", slog.String("addr", httpServer.Addr), slog.String("component", "http_server"))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		srv.Run(gctx)
		return nil
	})
	for _, sw := range sweepers {
		g.Go(func() error {
			sw.Run(gctx, time.Minute)
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("shutting down server", slog.String("component", "http_server"))
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
