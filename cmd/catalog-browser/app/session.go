package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/viper"

	"github.com/stacklok/catalog-browser/internal/alert"
	"github.com/stacklok/catalog-browser/internal/auth"
	"github.com/stacklok/catalog-browser/internal/catalog"
	"github.com/stacklok/catalog-browser/internal/config"
	"github.com/stacklok/catalog-browser/internal/filtering"
	"github.com/stacklok/catalog-browser/internal/httpclient"
	"github.com/stacklok/catalog-browser/internal/metadata"
	"github.com/stacklok/catalog-browser/internal/paging"
	"github.com/stacklok/catalog-browser/internal/telemetry"
	"github.com/stacklok/catalog-browser/internal/versions"
	"github.com/stacklok/catalog-browser/internal/view"
)

const (
	formatJSON  = "json"
	formatTable = "table"

	telemetryShutdownTimeout = 5 * time.Second
)

// session holds what every catalog command needs
type session struct {
	cfg       *config.Config
	tokens    *auth.KeyringStore
	client    httpclient.Client
	telemetry *telemetry.Telemetry
	logger    *slog.Logger
}

// loadConfig reads the configuration file, if any, and applies flag overrides.
// Without --config the file is looked up in the XDG config directories.
func loadConfig(v *viper.Viper) (*config.Config, error) {
	var opts []config.Option
	path := v.GetString("config")
	if path == "" {
		path = config.FindDefaultConfig()
	}
	if path != "" {
		slog.Debug("Using configuration file", "path", path)
		opts = append(opts, config.WithConfigPath(path))
	}

	cfg, err := config.LoadConfig(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if baseURL := v.GetString("base-url"); baseURL != "" {
		cfg.BaseURL = baseURL
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
	}
	return cfg, nil
}

func newKeyringStore(cfg *config.Config) *auth.KeyringStore {
	service, user := cfg.GetKeyringAccount()
	return auth.NewKeyringStore(auth.WithKeyringAccount(service, user))
}

func newSession(ctx context.Context, v *viper.Viper) (*session, error) {
	cfg, err := loadConfig(v)
	if err != nil {
		return nil, err
	}

	telemetryCfg := cfg.Telemetry
	if telemetryCfg != nil && telemetryCfg.ServiceVersion == "" {
		withVersion := *telemetryCfg
		withVersion.ServiceVersion = versions.GetVersionInfo().Version
		telemetryCfg = &withVersion
	}
	tel, err := telemetry.New(ctx, telemetryCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	logger := slog.Default()
	slog.Debug("Loaded configuration", "base_url", cfg.BaseURL, "debounce", cfg.GetDebounce())

	return &session{
		cfg:       cfg,
		tokens:    newKeyringStore(cfg),
		client:    httpclient.NewDefaultClient(cfg.GetRequestTimeout()),
		telemetry: tel,
		logger:    logger,
	}, nil
}

// newView creates a catalog view bound to loc. The selector options are
// only loaded when withOptions is set.
func (s *session) newView(loc filtering.Location, withOptions bool) (*view.View[catalog.Artifact], error) {
	items, err := s.cfg.ArtifactsURL()
	if err != nil {
		return nil, err
	}
	var optionsURL string
	if withOptions {
		if optionsURL, err = s.cfg.MetadataURL(); err != nil {
			return nil, err
		}
	}

	return view.New[catalog.Artifact](view.Config{
		Location:         loc,
		ItemsEndpoint:    items,
		MetadataEndpoint: optionsURL,
		Client:           s.client,
		Tokens:           s.tokens,
		FetchOptions: []paging.Option{
			paging.WithDebounce(s.cfg.GetDebounce()),
			paging.WithRequestTimeout(s.cfg.GetRequestTimeout()),
			paging.WithMetrics(s.telemetry.FetchMetrics()),
			paging.WithTracer(s.telemetry.Tracer()),
		},
		LoaderOptions: []metadata.LoaderOption{
			metadata.WithMaxTries(s.cfg.GetMetadataRetries()),
			metadata.WithTracer(s.telemetry.Tracer()),
		},
		QueueOptions: []alert.QueueOption{alert.WithDismissAfter(s.cfg.GetAlertDismiss())},
		Logger:       s.logger,
	})
}

// newLoader creates a metadata loader for the configured endpoint
func (s *session) newLoader() (*metadata.Loader, error) {
	endpoint, err := s.cfg.MetadataURL()
	if err != nil {
		return nil, err
	}
	return metadata.NewLoader(endpoint, s.client, s.tokens, alert.LogAlerter{Logger: s.logger},
		metadata.WithMaxTries(s.cfg.GetMetadataRetries()),
		metadata.WithTracer(s.telemetry.Tracer()),
		metadata.WithLogger(s.logger),
	), nil
}

// close flushes telemetry
func (s *session) close() {
	ctx, cancel := context.WithTimeout(context.Background(), telemetryShutdownTimeout)
	defer cancel()
	if err := s.telemetry.Shutdown(ctx); err != nil {
		s.logger.Warn("Failed to shut down telemetry", "error", err)
	}
}
