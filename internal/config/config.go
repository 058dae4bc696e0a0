// Package config provides configuration loading for the catalog browser.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"

	"github.com/stacklok/catalog-browser/internal/alert"
	"github.com/stacklok/catalog-browser/internal/auth"
	"github.com/stacklok/catalog-browser/internal/metadata"
	"github.com/stacklok/catalog-browser/internal/paging"
	"github.com/stacklok/catalog-browser/internal/telemetry"
)

const (
	// EnvPrefix is the prefix of environment variables read by the CLI
	EnvPrefix = "CATALOG_BROWSER"

	// DefaultBaseURL is the catalog API served by a local development backend
	DefaultBaseURL = "http://localhost:8000"

	// DefaultArtifactsPath is the artifact list endpoint, relative to the base URL
	DefaultArtifactsPath = "/api/catalog/artifacts/"

	// DefaultMetadataPath is the filter metadata endpoint, relative to the base URL
	DefaultMetadataPath = "/api/catalog/metadata/"

	// DefaultArtifactPath is the artifact detail endpoint, relative to the base URL.
	// "{id}" is replaced by the artifact id.
	DefaultArtifactPath = "/api/catalog/artifact/{id}/"

	// DefaultAuthPath is the credential exchange endpoint, relative to the base URL
	DefaultAuthPath = "/api/auth/"

	artifactIDPlaceholder = "{id}"

	// DefaultConfigFile is looked up in the XDG config directories when no
	// configuration path is given
	DefaultConfigFile = "catalog-browser/config.yaml"
)

// Option defines the interface for configuration options
type Option func(*loaderConfig) error

// loaderConfig defines the configuration for loading a configuration
type loaderConfig struct {
	path string
}

// WithConfigPath loads configuration from a YAML file
func WithConfigPath(path string) Option {
	return func(cfg *loaderConfig) error {
		if path == "" {
			return fmt.Errorf("path is required")
		}

		// Resolve symlinks to prevent symlink attacks.
		// Note that this calls filepath.Clean internally.
		realPath, err := filepath.EvalSymlinks(path)
		if err != nil {
			return fmt.Errorf("failed to evaluate symlinks: %w", err)
		}

		if !filepath.IsAbs(realPath) && !filepath.IsLocal(realPath) {
			return fmt.Errorf("path is not local or contains invalid traversal: %s", path)
		}

		cfg.path = realPath
		return nil
	}
}

// FindDefaultConfig returns the first DefaultConfigFile found under
// $XDG_CONFIG_HOME or $XDG_CONFIG_DIRS, or "" when there is none
func FindDefaultConfig() string {
	path, err := xdg.SearchConfigFile(DefaultConfigFile)
	if err != nil {
		return ""
	}
	return path
}

// Config represents the root configuration structure
type Config struct {
	// BaseURL is the scheme and host of the catalog API
	BaseURL string `yaml:"baseURL,omitempty"`

	Endpoints EndpointsConfig `yaml:"endpoints,omitempty"`

	// Debounce is the quiet period before a page request, e.g. "500ms"
	Debounce string `yaml:"debounce,omitempty"`

	// RequestTimeout bounds a single request, e.g. "15s"
	RequestTimeout string `yaml:"requestTimeout,omitempty"`

	// AlertDismiss is how long an alert stays visible, e.g. "5s"
	AlertDismiss string `yaml:"alertDismiss,omitempty"`

	// MetadataRetries is the number of attempts made to load the filter options
	MetadataRetries uint `yaml:"metadataRetries,omitempty"`

	Keyring *KeyringConfig `yaml:"keyring,omitempty"`

	Telemetry *telemetry.Config `yaml:"telemetry,omitempty"`
}

// EndpointsConfig holds the API paths, relative to BaseURL or absolute
type EndpointsConfig struct {
	Artifacts string `yaml:"artifacts,omitempty"`
	Metadata  string `yaml:"metadata,omitempty"`
	// Artifact is the detail endpoint; it must contain "{id}"
	Artifact string `yaml:"artifact,omitempty"`
	Auth     string `yaml:"auth,omitempty"`
}

// KeyringConfig selects the keyring entry the API token is stored under
type KeyringConfig struct {
	Service string `yaml:"service,omitempty"`
	User    string `yaml:"user,omitempty"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		BaseURL: DefaultBaseURL,
		Endpoints: EndpointsConfig{
			Artifacts: DefaultArtifactsPath,
			Metadata:  DefaultMetadataPath,
		},
	}
}

// LoadConfig loads and parses configuration from a YAML file.
// Without WithConfigPath it returns Default().
func LoadConfig(opts ...Option) (*Config, error) {
	loaderCfg := &loaderConfig{}
	for _, opt := range opts {
		if err := opt(loaderCfg); err != nil {
			return nil, err
		}
	}

	if loaderCfg.path == "" {
		return Default(), nil
	}

	// Read the entire file into memory
	data, err := os.ReadFile(loaderCfg.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse YAML content
	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	// Validate the config
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Validate checks a configuration assembled outside LoadConfig, e.g. after
// command-line overrides
func (c *Config) Validate() error {
	return c.validate()
}

func (c *Config) validate() error {
	if c == nil {
		return fmt.Errorf("config cannot be nil")
	}

	var errs []error
	if _, err := c.ArtifactsURL(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.MetadataURL(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.ArtifactURL(1); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.AuthURL(); err != nil {
		errs = append(errs, err)
	}
	for name, raw := range map[string]string{
		"debounce":       c.Debounce,
		"requestTimeout": c.RequestTimeout,
		"alertDismiss":   c.AlertDismiss,
	} {
		if err := validateDuration(name, raw); err != nil {
			errs = append(errs, err)
		}
	}
	if err := c.Telemetry.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("telemetry: %w", err))
	}
	return errors.Join(errs...)
}

func validateDuration(name, raw string) error {
	if raw == "" {
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("%s: invalid duration %q: %w", name, raw, err)
	}
	if d < 0 {
		return fmt.Errorf("%s: must not be negative, got %s", name, raw)
	}
	return nil
}

// ArtifactsURL returns the absolute artifact list URL
func (c *Config) ArtifactsURL() (string, error) {
	return c.resolve("endpoints.artifacts", c.Endpoints.Artifacts, DefaultArtifactsPath)
}

// MetadataURL returns the absolute metadata URL
func (c *Config) MetadataURL() (string, error) {
	return c.resolve("endpoints.metadata", c.Endpoints.Metadata, DefaultMetadataPath)
}

// ArtifactURL returns the absolute detail URL of the artifact with id
func (c *Config) ArtifactURL(id int) (string, error) {
	endpoint := c.Endpoints.Artifact
	if endpoint == "" {
		endpoint = DefaultArtifactPath
	}
	if !strings.Contains(endpoint, artifactIDPlaceholder) {
		return "", fmt.Errorf("endpoints.artifact: %q does not contain %s", endpoint, artifactIDPlaceholder)
	}
	// Substituted before parsing; the placeholder braces would be escaped
	endpoint = strings.ReplaceAll(endpoint, artifactIDPlaceholder, strconv.Itoa(id))
	return c.resolve("endpoints.artifact", endpoint, DefaultArtifactPath)
}

// AuthURL returns the absolute credential exchange URL
func (c *Config) AuthURL() (string, error) {
	return c.resolve("endpoints.auth", c.Endpoints.Auth, DefaultAuthPath)
}

// resolve joins an endpoint onto BaseURL unless it is already absolute
func (c *Config) resolve(name, endpoint, fallback string) (string, error) {
	if endpoint == "" {
		endpoint = fallback
	}
	ref, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("%s: invalid URL %q: %w", name, endpoint, err)
	}
	if ref.IsAbs() {
		return ref.String(), nil
	}

	baseURL := c.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("baseURL: invalid URL %q: %w", baseURL, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return "", fmt.Errorf("baseURL: scheme must be http or https, got %q", baseURL)
	}
	if base.Host == "" {
		return "", fmt.Errorf("baseURL: host is required, got %q", baseURL)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}
	// A leading slash would discard any path prefix of the base URL
	return base.ResolveReference(&url.URL{Path: strings.TrimPrefix(ref.Path, "/"), RawQuery: ref.RawQuery}).String(), nil
}

// GetDebounce returns the debounce period, paging.DefaultDebounce when unset
func (c *Config) GetDebounce() time.Duration {
	return durationOr(c.Debounce, paging.DefaultDebounce)
}

// GetRequestTimeout returns the request timeout, paging.DefaultRequestTimeout when unset
func (c *Config) GetRequestTimeout() time.Duration {
	return durationOr(c.RequestTimeout, paging.DefaultRequestTimeout)
}

// GetAlertDismiss returns the alert lifetime, alert.DefaultDismissAfter when unset
func (c *Config) GetAlertDismiss() time.Duration {
	return durationOr(c.AlertDismiss, alert.DefaultDismissAfter)
}

// GetMetadataRetries returns the metadata attempts, metadata.DefaultMaxTries when unset
func (c *Config) GetMetadataRetries() uint {
	if c.MetadataRetries == 0 {
		return metadata.DefaultMaxTries
	}
	return c.MetadataRetries
}

// GetKeyringAccount returns the keyring service and user for the API token
func (c *Config) GetKeyringAccount() (string, string) {
	service, user := auth.DefaultKeyringService, auth.DefaultKeyringUser
	if c.Keyring != nil {
		if c.Keyring.Service != "" {
			service = c.Keyring.Service
		}
		if c.Keyring.User != "" {
			user = c.Keyring.User
		}
	}
	return service, user
}

func durationOr(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		return fallback
	}
	return d
}
