package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hupe1980/appforge"
	"github.com/hupe1980/appforge/stream/websocket"
)

func newServeCommand(c *cli) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve chats over websocket and expose metrics",
		Long: `serve accepts websocket connections on /ws. Every connection owns one
session; a "session" query parameter continues a session started earlier
by the same process. Prometheus metrics are exposed on the configured
metrics path.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := c.load()
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Server.Listen = listen
			}

			app, err := appforge.New(cfg)
			if err != nil {
				return err
			}
			defer app.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return serve(ctx, app)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "listen address (overrides server.listen)")

	return cmd
}

func newMux(app *appforge.App) *http.ServeMux {
	cfg := app.Config()

	mux := http.NewServeMux()
	mux.Handle("/ws", websocket.NewHandler(func(r *http.Request) (websocket.Chatter, error) {
		return app.Runner().Conversation(r.URL.Query().Get("session")), nil
	}, func(o *websocket.Options) {
		o.Logger = app.Logger().WithComponent("websocket")
	}))
	if cfg.Metrics.Enabled {
		mux.Handle(cfg.Metrics.Path, app.MetricsHandler())
	}
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return mux
}

func serve(ctx context.Context, app *appforge.App) error {
	srv := &http.Server{
		Addr:              app.Config().Server.Listen,
		Handler:           newMux(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		app.Logger().Info("server.started", "listen", srv.Addr, "provider", app.Config().Provider.Name)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	app.Logger().Info("server.shutdown")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
