// Package config loads texsnap configuration files.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/sirupsen/logrus"

	"github.com/alnah/go-texsnap"
	"github.com/alnah/go-texsnap/internal/fileutil"
	"github.com/alnah/go-texsnap/internal/logging"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrInvalidValue    = errors.New("invalid config value")
	ErrInputTooLarge   = errors.New("config file exceeds maximum size")
)

// MaxInputSize limits config files to prevent memory exhaustion.
var MaxInputSize = 1 << 20

// Defaults.
const (
	DefaultAddr = "127.0.0.1:5000"
	AppDirName  = "texsnap"
)

// Config holds all configuration for rendering, serving and logging.
type Config struct {
	ScratchRoot string         `yaml:"scratchRoot"` // Empty = system temp dir
	Resolution  int            `yaml:"resolution"`  // DPI, 36..1200
	Crop        bool           `yaml:"crop"`
	Workers     int            `yaml:"workers"` // 0 = auto from GOMAXPROCS
	Preamble    string         `yaml:"preamble"` // Replaces the built-in base preamble
	Timeouts    TimeoutsConfig `yaml:"timeouts"`
	Tools       ToolsConfig    `yaml:"tools"`
	Server      ServerConfig   `yaml:"server"`
	Log         LogConfig      `yaml:"log"`
}

// TimeoutsConfig holds tool timeouts in seconds. Zero keeps the default.
type TimeoutsConfig struct {
	Compile      int `yaml:"compile"`
	Bibliography int `yaml:"bibliography"`
	Convert      int `yaml:"convert"`
	Trim         int `yaml:"trim"`
	Probe        int `yaml:"probe"`
}

// ToolsConfig renames tools per role and pins tools to executables.
type ToolsConfig struct {
	Compiler           string            `yaml:"compiler"`
	ModernBibliography string            `yaml:"modernBibliography"`
	LegacyBibliography string            `yaml:"legacyBibliography"`
	Rasterizer         string            `yaml:"rasterizer"`
	ImageTools         []string          `yaml:"imageTools"`
	Cropper            string            `yaml:"cropper"`
	Paths              map[string]string `yaml:"paths"` // tool name -> executable
}

// ServerConfig defines the HTTP adapter.
type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowedOrigins"`
}

// LogConfig defines logger output.
type LogConfig struct {
	Level  string `yaml:"level"`  // logrus level name
	Format string `yaml:"format"` // "text" or "json"
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Resolution: texsnap.DefaultResolution,
		Crop:       true,
		Server: ServerConfig{
			Addr:           DefaultAddr,
			AllowedOrigins: []string{"*"},
		},
		Log: LogConfig{Level: "info", Format: logging.FormatText},
	}
}

// Validate checks ranges and enumerations.
// Called automatically by LoadConfig, but available for callers that apply
// overrides after loading.
func (c *Config) Validate() error {
	if c.Resolution < texsnap.MinResolution || c.Resolution > texsnap.MaxResolution {
		return fmt.Errorf("%w: resolution must be between %d and %d, got %d",
			ErrInvalidValue, texsnap.MinResolution, texsnap.MaxResolution, c.Resolution)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must be >= 0, got %d", ErrInvalidValue, c.Workers)
	}

	for name, secs := range map[string]int{
		"compile":      c.Timeouts.Compile,
		"bibliography": c.Timeouts.Bibliography,
		"convert":      c.Timeouts.Convert,
		"trim":         c.Timeouts.Trim,
		"probe":        c.Timeouts.Probe,
	} {
		if secs < 0 {
			return fmt.Errorf("%w: timeouts.%s must be positive, got %d", ErrInvalidValue, name, secs)
		}
	}

	for name, path := range c.Tools.Paths {
		if name == "" || path == "" {
			return fmt.Errorf("%w: tools.paths entries need a name and a path", ErrInvalidValue)
		}
	}

	if c.Log.Level != "" {
		if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
			return fmt.Errorf("%w: log.level %q", ErrInvalidValue, c.Log.Level)
		}
	}
	switch c.Log.Format {
	case "", logging.FormatText, logging.FormatJSON:
	default:
		return fmt.Errorf("%w: log.format %q (must be text or json)", ErrInvalidValue, c.Log.Format)
	}

	return nil
}

// Toolset returns the configured tool names over the defaults.
func (c *Config) Toolset() texsnap.Toolset {
	return texsnap.Toolset{
		Compiler:           c.Tools.Compiler,
		ModernBibliography: c.Tools.ModernBibliography,
		LegacyBibliography: c.Tools.LegacyBibliography,
		Rasterizer:         c.Tools.Rasterizer,
		ImageTools:         c.Tools.ImageTools,
		Cropper:            c.Tools.Cropper,
	}.WithDefaults()
}

// RenderTimeouts converts the configured seconds to durations over the defaults.
func (c *Config) RenderTimeouts() texsnap.Timeouts {
	secs := func(n int) time.Duration { return time.Duration(n) * time.Second }
	return texsnap.Timeouts{
		Compile:      secs(c.Timeouts.Compile),
		Bibliography: secs(c.Timeouts.Bibliography),
		Convert:      secs(c.Timeouts.Convert),
		Trim:         secs(c.Timeouts.Trim),
		Probe:        secs(c.Timeouts.Probe),
	}
}

// RendererOptions returns the texsnap options this configuration describes.
func (c *Config) RendererOptions() []texsnap.Option {
	opts := []texsnap.Option{
		texsnap.WithResolution(c.Resolution),
		texsnap.WithCrop(c.Crop),
		texsnap.WithToolset(c.Toolset()),
		texsnap.WithTimeouts(c.RenderTimeouts()),
	}
	if c.ScratchRoot != "" {
		opts = append(opts, texsnap.WithScratchRoot(c.ScratchRoot))
	}
	if len(c.Tools.Paths) > 0 {
		opts = append(opts, texsnap.WithToolPaths(c.Tools.Paths))
	}
	if c.Preamble != "" {
		opts = append(opts, texsnap.WithBasePreamble(c.Preamble))
	}
	return opts
}

// LoadConfig loads configuration from a file path or config name over
// DefaultConfig. If nameOrPath contains a path separator, it's treated as a
// file path. Otherwise it's searched in standard locations.
// Returns error if the file is not found (no silent fallback).
func LoadConfig(nameOrPath string) (*Config, error) {
	if nameOrPath == "" {
		return nil, ErrEmptyConfigName
	}

	configPath := nameOrPath
	if !fileutil.IsFilePath(nameOrPath) {
		var err error
		configPath, err = resolveConfigPath(nameOrPath)
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- config path is user-provided
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", configPath, err)
	}
	return cfg, nil
}

// Parse decodes YAML over DefaultConfig, rejecting unknown fields, and validates the result.
func Parse(data []byte) (*Config, error) {
	if len(data) > MaxInputSize {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrInputTooLarge, len(data), MaxInputSize)
	}
	cfg := DefaultConfig()
	if len(strings.TrimSpace(string(data))) > 0 {
		if err := yaml.UnmarshalWithOptions(data, cfg, yaml.Strict()); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// resolveConfigPath searches for a config file by name in standard locations.
// Tries extensions in order: .yaml, .yml
// Tries locations in order: current directory, ~/.config/texsnap/
func resolveConfigPath(name string) (string, error) {
	extensions := []string{".yaml", ".yml"}
	triedPaths := make([]string, 0, len(extensions)*2)

	for _, ext := range extensions {
		localPath := name + ext
		if fileutil.FileExists(localPath) {
			return localPath, nil
		}
		triedPaths = append(triedPaths, localPath)
	}

	userConfigDir, err := os.UserConfigDir()
	if err == nil {
		for _, ext := range extensions {
			userPath := filepath.Join(userConfigDir, AppDirName, name+ext)
			if fileutil.FileExists(userPath) {
				return userPath, nil
			}
			triedPaths = append(triedPaths, userPath)
		}
	}

	return "", fmt.Errorf("%w: tried %s", ErrConfigNotFound, strings.Join(triedPaths, ", "))
}
