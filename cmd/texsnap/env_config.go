package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/alnah/go-texsnap/internal/config"
	"github.com/alnah/go-texsnap/internal/hints"
)

// envPrefix starts every texsnap environment variable.
const envPrefix = "TEXSNAP_"

// toolEnvPrefix starts the per-tool path overrides, e.g. TEXSNAP_TOOL_PDFLATEX.
const toolEnvPrefix = envPrefix + "TOOL_"

// envConfig holds configuration from environment variables.
// Provides container-friendly overrides without requiring YAML files.
type envConfig struct {
	ConfigPath  string // TEXSNAP_CONFIG: config file name or path
	ScratchRoot string // TEXSNAP_SCRATCH_ROOT: workspace parent directory
	Resolution  int    // TEXSNAP_RESOLUTION: DPI
	Workers     int    // TEXSNAP_WORKERS: concurrent renders
	Addr        string // TEXSNAP_ADDR: serve listen address
	LogLevel    string // TEXSNAP_LOG_LEVEL: logrus level
	LogFormat   string // TEXSNAP_LOG_FORMAT: text or json

	// TEXSNAP_TOOL_<NAME>: executable for tool <name>, keyed by upper-case name.
	ToolPaths map[string]string
}

// knownEnvVars lists valid TEXSNAP_* environment variables other than the
// TEXSNAP_TOOL_* family. Used to detect typos and warn users about unknown variables.
var knownEnvVars = map[string]bool{
	"TEXSNAP_CONFIG":       true,
	"TEXSNAP_SCRATCH_ROOT": true,
	"TEXSNAP_RESOLUTION":   true,
	"TEXSNAP_WORKERS":      true,
	"TEXSNAP_ADDR":         true,
	"TEXSNAP_LOG_LEVEL":    true,
	"TEXSNAP_LOG_FORMAT":   true,
}

// loadEnvConfig reads configuration from environment variables.
// Malformed numbers are ignored, leaving the config value in place.
func loadEnvConfig(env *Environment) *envConfig {
	cfg := &envConfig{
		ConfigPath:  env.Getenv("TEXSNAP_CONFIG"),
		ScratchRoot: env.Getenv("TEXSNAP_SCRATCH_ROOT"),
		Addr:        env.Getenv("TEXSNAP_ADDR"),
		LogLevel:    env.Getenv("TEXSNAP_LOG_LEVEL"),
		LogFormat:   env.Getenv("TEXSNAP_LOG_FORMAT"),
	}

	if v := env.Getenv("TEXSNAP_RESOLUTION"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Resolution = n
		}
	}
	if v := env.Getenv("TEXSNAP_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Workers = n
		}
	}

	for _, kv := range env.Environ() {
		name, value, _ := strings.Cut(kv, "=")
		if tool, ok := strings.CutPrefix(name, toolEnvPrefix); ok && tool != "" && value != "" {
			if cfg.ToolPaths == nil {
				cfg.ToolPaths = map[string]string{}
			}
			cfg.ToolPaths[tool] = value
		}
	}

	return cfg
}

// warnUnknownEnvVars logs warnings for unrecognized TEXSNAP_* variables.
// Helps catch typos like TEXSNAP_WORKER instead of TEXSNAP_WORKERS.
func warnUnknownEnvVars(w io.Writer, environ []string) {
	for _, kv := range environ {
		name, _, _ := strings.Cut(kv, "=")
		if !strings.HasPrefix(name, envPrefix) || strings.HasPrefix(name, toolEnvPrefix) {
			continue
		}
		if !knownEnvVars[name] {
			fmt.Fprintf(w, "warning: unknown environment variable %s (typo?)\n", name)
		}
	}
}

// applyEnvConfig applies environment variable values to config.
// Set variables override the file, giving: CLI flags > env vars > config file > defaults
// (CLI flags are applied afterwards by each command).
func applyEnvConfig(env *envConfig, cfg *config.Config) {
	if env.ScratchRoot != "" {
		cfg.ScratchRoot = env.ScratchRoot
	}
	if env.Resolution > 0 {
		cfg.Resolution = env.Resolution
	}
	if env.Workers > 0 {
		cfg.Workers = env.Workers
	}
	if env.Addr != "" {
		cfg.Server.Addr = env.Addr
	}
	if env.LogLevel != "" {
		cfg.Log.Level = env.LogLevel
	}
	if env.LogFormat != "" {
		cfg.Log.Format = env.LogFormat
	}

	if len(env.ToolPaths) == 0 {
		return
	}
	// Variable names are upper-case; match them to the configured tool names.
	names := toolNames(cfg)
	for upper, path := range env.ToolPaths {
		name, ok := names[upper]
		if !ok {
			name = strings.ToLower(upper)
		}
		if cfg.Tools.Paths == nil {
			cfg.Tools.Paths = map[string]string{}
		}
		cfg.Tools.Paths[name] = path
	}
}

// toolNames maps the override variable suffix of every configured tool to its name.
func toolNames(cfg *config.Config) map[string]string {
	ts := cfg.Toolset()
	names := map[string]string{}
	for _, n := range append([]string{ts.Compiler, ts.ModernBibliography, ts.LegacyBibliography, ts.Rasterizer, ts.Cropper}, ts.ImageTools...) {
		names[strings.TrimPrefix(hints.ToolEnvVar(n), toolEnvPrefix)] = n
	}
	return names
}
