package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"exambank/internal/handler"
	"exambank/internal/hub"
	"exambank/internal/service"
	"exambank/internal/watcher"
)

func (a *app) serveCmd() *cobra.Command {
	var addr, inbox string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Serves the JSON API under /api and streams change events at /api/events.
Stops gracefully on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				a.cfg.Server.Addr = addr
			}
			return a.serve(cmd.Context(), inbox)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address (overrides server.addr)")
	cmd.Flags().StringVar(&inbox, "inbox", "", "Also ingest analysis files dropped into this directory")
	return cmd
}

func (a *app) serve(parent context.Context, inbox string) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bus := service.NewEventBus()
	svc, closeFn, err := a.open(ctx, bus)
	if err != nil {
		return err
	}
	defer closeFn()

	sseHub := hub.New(a.logger.Named("hub"))
	hubDone := make(chan struct{})
	go func() {
		sseHub.Run(ctx)
		close(hubDone)
	}()

	// Forward service events to SSE clients
	events := make(chan service.Event, 100)
	bus.Subscribe(events)
	defer bus.Unsubscribe(events)
	go func() {
		for {
			select {
			case ev := <-events:
				sseHub.Broadcast(ev)
			case <-ctx.Done():
				return
			}
		}
	}()

	if inbox != "" {
		in := watcher.NewInbox(inbox, svc, a.logger.Named("inbox"))
		inboxDone := make(chan struct{})
		go func() {
			defer close(inboxDone)
			if err := in.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Error("inbox stopped", zap.Error(err))
			}
		}()
		// The inbox writes through svc, so it must stop before closeFn runs.
		defer func() {
			stop()
			<-inboxDone
		}()
	}

	if !a.cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := handler.NewRouter(handler.NewExamHandler(svc, a.logger.Named("http")), sseHub)

	server := &http.Server{
		Addr:              a.cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	a.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout.Duration())
	defer cancel()

	// SSE streams end when the hub stops, so Shutdown does not wait on them.
	<-hubDone
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	a.logger.Info("server stopped")
	return nil
}
