// Copyright (c) 2026 Codeforge Contributors
// Licensed under the GNU Affero General Public License v3.0.
// See https://www.gnu.org/licenses/agpl-3.0.html for the full license text.

// Package config defines CoordinatorConfig, the single explicit record the
// Coordinator and its collaborators are constructed with. There is no
// package-level state here and no viper dependency: a CoordinatorConfig is
// built with functional options the way services/code_buddy/graph.Builder
// is, and the YAML loader below only ever produces one of these records,
// never a global.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Provider selects which LLMClient backend the pipeline talks to.
type Provider string

const (
	ProviderAuto   Provider = "auto"
	ProviderOpenAI Provider = "openai"
	ProviderOllama Provider = "ollama"
	ProviderMock   Provider = "mock"
)

// CoordinatorConfig holds every recognized option from SPEC_FULL.md §6,
// plus the additive cache/telemetry/exemplar options from §2.3/§2.2.
type CoordinatorConfig struct {
	MaxSkeletonBatch     int
	DetailDelay          time.Duration
	SkeletonBatchDelay   time.Duration
	Provider             Provider
	UseMock              bool
	ProviderAPIKeys       map[Provider]string
	ProviderEndpoints     map[Provider]string
	LLMCallTimeout        time.Duration

	CacheDir          string // empty disables the LLM response cache
	ExemplarEndpoint  string // empty disables the Weaviate exemplar lookup
	TelemetryEndpoint string // empty disables the InfluxDB telemetry sink
}

// Option mutates a CoordinatorConfig under construction.
type Option func(*CoordinatorConfig)

// DefaultCoordinatorConfig returns the defaults named in SPEC_FULL.md §6.
func DefaultCoordinatorConfig() CoordinatorConfig {
	return CoordinatorConfig{
		MaxSkeletonBatch:   30,
		DetailDelay:        1500 * time.Millisecond,
		SkeletonBatchDelay: 0,
		Provider:           ProviderAuto,
		ProviderAPIKeys:    map[Provider]string{},
		ProviderEndpoints:  map[Provider]string{},
		LLMCallTimeout:     5 * time.Minute,
	}
}

// New builds a CoordinatorConfig from defaults plus options, validating that
// the skeleton batch size is at least 1. No upper bound is checked.
func New(opts ...Option) (CoordinatorConfig, error) {
	cfg := DefaultCoordinatorConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.MaxSkeletonBatch < 1 {
		return cfg, fmt.Errorf("config: max skeleton batch must be >= 1, got %d", cfg.MaxSkeletonBatch)
	}
	return cfg, nil
}

func WithMaxSkeletonBatch(n int) Option {
	return func(c *CoordinatorConfig) { c.MaxSkeletonBatch = n }
}

func WithDetailDelay(d time.Duration) Option {
	return func(c *CoordinatorConfig) { c.DetailDelay = d }
}

func WithSkeletonBatchDelay(d time.Duration) Option {
	return func(c *CoordinatorConfig) { c.SkeletonBatchDelay = d }
}

func WithProvider(p Provider) Option {
	return func(c *CoordinatorConfig) { c.Provider = p }
}

func WithUseMock(v bool) Option {
	return func(c *CoordinatorConfig) { c.UseMock = v }
}

func WithProviderCredential(p Provider, apiKey, endpoint string) Option {
	return func(c *CoordinatorConfig) {
		if c.ProviderAPIKeys == nil {
			c.ProviderAPIKeys = map[Provider]string{}
		}
		if c.ProviderEndpoints == nil {
			c.ProviderEndpoints = map[Provider]string{}
		}
		c.ProviderAPIKeys[p] = apiKey
		c.ProviderEndpoints[p] = endpoint
	}
}

func WithLLMCallTimeout(d time.Duration) Option {
	return func(c *CoordinatorConfig) { c.LLMCallTimeout = d }
}

func WithCacheDir(dir string) Option {
	return func(c *CoordinatorConfig) { c.CacheDir = dir }
}

func WithExemplarEndpoint(endpoint string) Option {
	return func(c *CoordinatorConfig) { c.ExemplarEndpoint = endpoint }
}

func WithTelemetryEndpoint(endpoint string) Option {
	return func(c *CoordinatorConfig) { c.TelemetryEndpoint = endpoint }
}

// fileConfig is the on-disk shape read by LoadFile. Provider API keys are
// deliberately absent here (§2.1: "secrets are never read from that file");
// they come only from environment variables via WithProviderCredential at
// the call site.
type fileConfig struct {
	MaxSkeletonBatch   int    `yaml:"max_skeleton_batch"`
	DetailDelayMs      int    `yaml:"detail_delay_ms"`
	SkeletonBatchDelay int    `yaml:"skeleton_batch_delay_ms"`
	Provider           string `yaml:"llm_provider"`
	UseMock            bool   `yaml:"use_mock"`
	CacheDir           string `yaml:"cache_dir"`
	ExemplarEndpoint   string `yaml:"exemplar_endpoint"`
	TelemetryEndpoint  string `yaml:"telemetry_endpoint"`
}

// LoadFile reads a YAML configuration file and returns the options derived
// from it, to be composed with provider-credential options from the
// environment at the call site.
func LoadFile(path string) ([]Option, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	var opts []Option
	if fc.MaxSkeletonBatch > 0 {
		opts = append(opts, WithMaxSkeletonBatch(fc.MaxSkeletonBatch))
	}
	if fc.DetailDelayMs > 0 {
		opts = append(opts, WithDetailDelay(time.Duration(fc.DetailDelayMs)*time.Millisecond))
	}
	if fc.SkeletonBatchDelay > 0 {
		opts = append(opts, WithSkeletonBatchDelay(time.Duration(fc.SkeletonBatchDelay)*time.Millisecond))
	}
	if fc.Provider != "" {
		opts = append(opts, WithProvider(Provider(fc.Provider)))
	}
	if fc.UseMock {
		opts = append(opts, WithUseMock(true))
	}
	if fc.CacheDir != "" {
		opts = append(opts, WithCacheDir(fc.CacheDir))
	}
	if fc.ExemplarEndpoint != "" {
		opts = append(opts, WithExemplarEndpoint(fc.ExemplarEndpoint))
	}
	if fc.TelemetryEndpoint != "" {
		opts = append(opts, WithTelemetryEndpoint(fc.TelemetryEndpoint))
	}
	return opts, nil
}
