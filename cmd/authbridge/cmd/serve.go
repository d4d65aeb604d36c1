package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the background host with an HTTP API for authorization requests",
	Long: `Run the background host. Apps post requests to the HTTP API and the call
returns once the user decides in the popup.

Endpoints:
  POST /auth/request   flattened request {"type":"connect","url":"...","tabID":1,...}
  GET  /auth/pending   number of requests waiting for the user
  GET  /health
  GET  /metrics        Prometheus metrics`,
	RunE: runServeCmd,
}

var serveAddr string

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (defaults to metrics.addr)")
}

func runServeCmd(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	rt, err := newRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()
	decide, err := decider("")
	if err != nil {
		return err
	}
	coordinator, err := newHostCoordinator(ctx, rt, decide)
	if err != nil {
		return err
	}
	addr := serveAddr
	if addr == "" {
		addr = rt.config.Metrics.Addr
	}
	handler := newRequestHandler(coordinator, rt.logger)
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/request", handler.request)
	mux.HandleFunc("GET /auth/pending", handler.pending)
	mux.HandleFunc("GET /health", handler.health)
	mux.Handle("GET /metrics", promhttp.HandlerFor(rt.registry, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		rt.logger.Info("listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return group.Wait()
}
