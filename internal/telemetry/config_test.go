package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestConfig_Defaults(t *testing.T) {
	t.Parallel()

	var nilCfg *Config
	assert.Equal(t, DefaultServiceName, nilCfg.GetServiceName())
	assert.Equal(t, "unknown", nilCfg.GetServiceVersion())
	assert.Equal(t, DefaultEndpoint, nilCfg.GetEndpoint())
	assert.False(t, nilCfg.TracingEnabled())
	assert.False(t, nilCfg.MetricsEnabled())
	assert.NoError(t, nilCfg.Validate())

	var nilTracing *TracingConfig
	assert.Equal(t, DefaultSampling, nilTracing.GetSampling())
}

func TestConfig_Enabled(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		cfg           Config
		expectTracing bool
		expectMetrics bool
	}{
		{
			name: "globally disabled",
			cfg: Config{
				Tracing: &TracingConfig{Enabled: true},
				Metrics: &MetricsConfig{Enabled: true},
			},
		},
		{
			name: "enabled without sections",
			cfg:  Config{Enabled: true},
		},
		{
			name:          "tracing only",
			cfg:           Config{Enabled: true, Tracing: &TracingConfig{Enabled: true}},
			expectTracing: true,
		},
		{
			name: "both",
			cfg: Config{
				Enabled: true,
				Tracing: &TracingConfig{Enabled: true},
				Metrics: &MetricsConfig{Enabled: true},
			},
			expectTracing: true,
			expectMetrics: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expectTracing, tt.cfg.TracingEnabled())
			assert.Equal(t, tt.expectMetrics, tt.cfg.MetricsEnabled())
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		cfg           *Config
		errorContains string
	}{
		{name: "disabled skips validation", cfg: &Config{Tracing: &TracingConfig{Enabled: true, Sampling: 7}}},
		{name: "valid sampling", cfg: &Config{Enabled: true, Tracing: &TracingConfig{Enabled: true, Sampling: 0.5}}},
		{
			name:          "sampling above one",
			cfg:           &Config{Enabled: true, Tracing: &TracingConfig{Enabled: true, Sampling: 1.5}},
			errorContains: "sampling must be between 0.0 and 1.0",
		},
		{
			name:          "negative sampling",
			cfg:           &Config{Enabled: true, Tracing: &TracingConfig{Enabled: true, Sampling: -0.1}},
			errorContains: "tracing:",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.cfg.Validate()
			if tt.errorContains == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorContains)
		})
	}
}

func TestConfig_YAML(t *testing.T) {
	t.Parallel()

	raw := `
enabled: true
serviceName: my-browser
endpoint: collector:4318
insecure: true
tracing:
  enabled: true
  sampling: 0.25
metrics:
  enabled: true
`
	var cfg Config
	require.NoError(t, yaml.Unmarshal([]byte(raw), &cfg))

	assert.Equal(t, "my-browser", cfg.GetServiceName())
	assert.Equal(t, "collector:4318", cfg.GetEndpoint())
	assert.True(t, cfg.Insecure)
	assert.Equal(t, 0.25, cfg.Tracing.GetSampling())
	assert.True(t, cfg.MetricsEnabled())
}
