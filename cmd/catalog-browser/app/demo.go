package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/stacklok/catalog-browser/internal/catalog"
	"github.com/stacklok/catalog-browser/internal/catalogtest"
)

const (
	defaultGracefulTimeout = 10 * time.Second
	serverReadTimeout      = 10 * time.Second
	serverWriteTimeout     = 15 * time.Second
	serverIdleTimeout      = 60 * time.Second
)

func newDemoServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "demo-server",
		Short: "Serve an in-memory catalog API for trying the browser out",
		Long: `Serve the artifact list, artifact detail, metadata and login endpoints from an
in-memory catalog.

The data is a built-in sample unless --data names a JSON file holding an array of
artifacts. Prometheus metrics are served on /metrics.`,
		Args: cobra.NoArgs,
		RunE: runDemoServer,
	}
	cmd.Flags().String("address", "127.0.0.1:8000", "Address to listen on")
	cmd.Flags().String("data", "", "JSON file with the artifacts to serve")
	cmd.Flags().Int("page-size", catalogtest.DefaultPageSize, "Artifacts per page")
	cmd.Flags().Duration("latency", 0, "Delay added to every response")
	cmd.Flags().String("token", "", "Require this bearer token")
	cmd.Flags().String("account", "", "Accept logins as email:password, handing out --token")
	return cmd
}

// parseAccount reads an email:password pair. Without a required token the
// login hands out a fixed one that the server ignores.
func parseAccount(raw, token string) (catalogtest.Account, error) {
	email, password, ok := strings.Cut(raw, ":")
	if !ok || email == "" || password == "" {
		return catalogtest.Account{}, fmt.Errorf("invalid account %q, expected email:password", raw)
	}
	if token == "" {
		token = "demo-token"
	}
	username, _, _ := strings.Cut(email, "@")
	return catalogtest.Account{
		ID:       1,
		Username: username,
		Email:    email,
		Password: password,
		Token:    token,
	}, nil
}

func loadArtifacts(path string) ([]catalog.Artifact, error) {
	if path == "" {
		return catalogtest.SampleArtifacts(), nil
	}
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read artifacts: %w", err)
	}
	var artifacts []catalog.Artifact
	if err := json.Unmarshal(data, &artifacts); err != nil {
		return nil, fmt.Errorf("failed to parse artifacts: %w", err)
	}
	return artifacts, nil
}

// newDemoHandler builds the demo catalog router with request metrics
// registered on reg
func newDemoHandler(artifacts []catalog.Artifact, reg *prometheus.Registry, opts ...catalogtest.Option) http.Handler {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_demo_requests_total",
		Help: "Requests served by the demo catalog, by method and status code.",
	}, []string{"method", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "catalog_demo_request_duration_seconds",
		Help:    "Time taken to serve demo catalog requests.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "code"})
	reg.MustRegister(requests, duration, collectors.NewGoCollector())

	opts = append(opts,
		catalogtest.WithoutRecording(),
		catalogtest.WithLogger(slog.Default()),
		catalogtest.WithRoutes(func(r chi.Router) {
			r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		}),
	)
	backend := catalogtest.NewBackend(artifacts, opts...)

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Mount("/", promhttp.InstrumentHandlerDuration(duration,
		promhttp.InstrumentHandlerCounter(requests, backend.Router())))
	return r
}

func runDemoServer(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	address, _ := flags.GetString("address")
	dataPath, _ := flags.GetString("data")
	pageSize, _ := flags.GetInt("page-size")
	latency, _ := flags.GetDuration("latency")
	token, _ := flags.GetString("token")

	artifacts, err := loadArtifacts(dataPath)
	if err != nil {
		return err
	}

	opts := []catalogtest.Option{catalogtest.WithPageSize(pageSize)}
	if latency > 0 {
		opts = append(opts, catalogtest.WithLatency(func(*http.Request) time.Duration { return latency }))
	}
	if token != "" {
		opts = append(opts, catalogtest.WithRequiredToken(token))
	}
	if raw, _ := flags.GetString("account"); raw != "" {
		account, err := parseAccount(raw, token)
		if err != nil {
			return err
		}
		opts = append(opts, catalogtest.WithAccount(account))
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	listener, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", address, err)
	}

	server := &http.Server{
		Handler:      newDemoHandler(artifacts, prometheus.NewRegistry(), opts...),
		ReadTimeout:  serverReadTimeout,
		WriteTimeout: serverWriteTimeout,
		IdleTimeout:  serverIdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Demo catalog listening", "address", listener.Addr().String(), "artifacts", len(artifacts))
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Serving %d artifacts on http://%s\n", len(artifacts), listener.Addr())

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("demo server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("Shutting down demo catalog")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultGracefulTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down demo server: %w", err)
	}
	return nil
}
