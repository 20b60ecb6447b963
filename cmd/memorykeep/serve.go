package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/youssefsiam38/memorykeep/server"
)

func (a *app) serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rt, err := a.open(ctx)
			if err != nil {
				return err
			}
			defer rt.Close()

			if addr != "" {
				rt.cfg.Server.Addr = addr
			}
			return rt.serve(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	return cmd
}

// serve runs the HTTP API until ctx is done, then drains in-flight requests.
func (r *runtime) serve(ctx context.Context) error {
	srv := &http.Server{
		Addr: r.cfg.Server.Addr,
		Handler: server.NewRouter(r.chat, r.engine, r.domain, &server.Config{
			Logger: r.logger.Named("http"),
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		r.logger.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		r.logger.Info("shutting down http server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), r.cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
