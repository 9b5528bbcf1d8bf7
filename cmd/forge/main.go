// Copyright (c) 2026 Codeforge Contributors
// Licensed under the GNU Affero General Public License v3.0.
// See https://www.gnu.org/licenses/agpl-3.0.html for the full license text.

// Command forge is the CLI/HTTP surface for the codeforge generation
// pipeline: "forge generate" drives one Coordinator.Generate call from a
// ProjectSpec file, "forge serve" exposes it over HTTP with a progress
// websocket, and "forge watch" re-runs generate whenever a watched spec
// file changes. None of this package is part of the core pipeline itself
// (SPEC_FULL.md §1 names the interactive surface as an out-of-scope
// external collaborator); it exists to make services/forge runnable.
package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/codeforge-dev/codeforge/pkg/logging"
	"github.com/codeforge-dev/codeforge/services/forge/config"
)

// --- Global Command Variables ---
var (
	cfgFile          string
	provider         string
	useMock          bool
	cacheDir         string
	exemplarEndpoint string
	telemetryEndpt   string
	logLevel         string
	logDir           string
	logJSON          bool

	rootCmd = &cobra.Command{
		Use:   "forge",
		Short: "Generate a multi-file source project from a natural-language requirement",
		Long: `forge drives the layered skeleton-then-detail code generation pipeline:
it turns a ProjectSpec (a requirement plus a target file list) into a
directory of cross-file-consistent source files.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			initLogger()
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to a forge.yaml configuration file")
	rootCmd.PersistentFlags().StringVar(&provider, "provider", "", "LLM provider: auto, openai, ollama, mock")
	rootCmd.PersistentFlags().BoolVar(&useMock, "mock", false, "bypass the LLM entirely (deterministic, for tests)")
	rootCmd.PersistentFlags().StringVar(&cacheDir, "cache-dir", "", "on-disk LLM response cache directory (empty disables it)")
	rootCmd.PersistentFlags().StringVar(&exemplarEndpoint, "exemplar-endpoint", "", "Weaviate endpoint for exemplar lookup (empty disables it)")
	rootCmd.PersistentFlags().StringVar(&telemetryEndpt, "telemetry-endpoint", "", "InfluxDB endpoint for phase telemetry (empty disables it)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "debug, info, warn, or error")
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", "", "also write JSON logs to this directory (empty disables file logging)")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "emit stderr logs as JSON instead of text")

	rootCmd.AddCommand(generateCmd, serveCmd, watchCmd)
}

// initLogger builds the process-wide slog.Logger from the reference
// multi-destination Logger (stderr plus an optional log file), tagging
// every entry with "forge" as its "service" attribute.
func initLogger() {
	var level logging.Level
	switch logLevel {
	case "debug":
		level = logging.LevelDebug
	case "warn":
		level = logging.LevelWarn
	case "error":
		level = logging.LevelError
	default:
		level = logging.LevelInfo
	}
	logger := logging.New(logging.Config{
		Level:   level,
		LogDir:  logDir,
		Service: "forge",
		JSON:    logJSON,
	})
	slog.SetDefault(logger.Slog())
}

// buildConfig composes a CoordinatorConfig from the config file (if any),
// environment-sourced provider credentials, and flag overrides, in that
// precedence order (flags win).
func buildConfig() (config.CoordinatorConfig, error) {
	var opts []config.Option
	if cfgFile != "" {
		fileOpts, err := config.LoadFile(cfgFile)
		if err != nil {
			return config.CoordinatorConfig{}, err
		}
		opts = append(opts, fileOpts...)
	}

	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		opts = append(opts, config.WithProviderCredential(config.ProviderOpenAI, key, ""))
	}
	if endpoint := os.Getenv("OLLAMA_ENDPOINT"); endpoint != "" {
		opts = append(opts, config.WithProviderCredential(config.ProviderOllama, "", endpoint))
	}

	if provider != "" {
		opts = append(opts, config.WithProvider(config.Provider(provider)))
	}
	if useMock {
		opts = append(opts, config.WithUseMock(true))
	}
	if cacheDir != "" {
		opts = append(opts, config.WithCacheDir(cacheDir))
	}
	if exemplarEndpoint != "" {
		opts = append(opts, config.WithExemplarEndpoint(exemplarEndpoint))
	}
	if telemetryEndpt != "" {
		opts = append(opts, config.WithTelemetryEndpoint(telemetryEndpt))
	}

	return config.New(opts...)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("forge: command failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
