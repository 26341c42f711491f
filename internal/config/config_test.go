package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alnah/go-texsnap"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()

	if cfg.Resolution != texsnap.DefaultResolution {
		t.Errorf("Resolution = %d, want %d", cfg.Resolution, texsnap.DefaultResolution)
	}
	if !cfg.Crop {
		t.Error("Crop = false, want true")
	}
	if cfg.Server.Addr != DefaultAddr {
		t.Errorf("Server.Addr = %q, want %q", cfg.Server.Addr, DefaultAddr)
	}
	if len(cfg.Server.AllowedOrigins) != 1 || cfg.Server.AllowedOrigins[0] != "*" {
		t.Errorf("Server.AllowedOrigins = %v, want [*]", cfg.Server.AllowedOrigins)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"minimum resolution", func(c *Config) { c.Resolution = texsnap.MinResolution }, false},
		{"resolution too low", func(c *Config) { c.Resolution = texsnap.MinResolution - 1 }, true},
		{"resolution too high", func(c *Config) { c.Resolution = texsnap.MaxResolution + 1 }, true},
		{"negative workers", func(c *Config) { c.Workers = -1 }, true},
		{"zero timeout keeps default", func(c *Config) { c.Timeouts.Compile = 0 }, false},
		{"negative timeout", func(c *Config) { c.Timeouts.Convert = -5 }, true},
		{"empty tool path", func(c *Config) { c.Tools.Paths = map[string]string{"pdflatex": ""} }, true},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, true},
		{"debug log level", func(c *Config) { c.Log.Level = "debug" }, false},
		{"json log format", func(c *Config) { c.Log.Format = "json" }, false},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr && !errors.Is(err, ErrInvalidValue) {
				t.Errorf("Validate() = %v, want ErrInvalidValue", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Validate() unexpected error: %v", err)
			}
		})
	}
}

func TestParse(t *testing.T) {
	t.Parallel()

	t.Run("full document", func(t *testing.T) {
		t.Parallel()

		cfg, err := Parse([]byte(`scratchRoot: /var/tmp/texsnap
resolution: 600
crop: false
workers: 3
timeouts:
  compile: 60
  probe: 2
tools:
  compiler: lualatex
  imageTools: [magick]
  paths:
    pdftoppm: /opt/poppler/bin/pdftoppm
server:
  addr: ":8080"
  allowedOrigins: ["https://slides.example.com"]
log:
  level: debug
  format: json
`))
		if err != nil {
			t.Fatalf("Parse() error: %v", err)
		}
		if cfg.ScratchRoot != "/var/tmp/texsnap" || cfg.Resolution != 600 || cfg.Crop || cfg.Workers != 3 {
			t.Errorf("top-level fields = %+v", cfg)
		}
		if cfg.Server.Addr != ":8080" || cfg.Server.AllowedOrigins[0] != "https://slides.example.com" {
			t.Errorf("Server = %+v", cfg.Server)
		}

		ts := cfg.Toolset()
		if ts.Compiler != "lualatex" {
			t.Errorf("Compiler = %q, want lualatex", ts.Compiler)
		}
		if ts.Rasterizer != "pdftoppm" {
			t.Errorf("Rasterizer = %q, want default pdftoppm", ts.Rasterizer)
		}
		if len(ts.ImageTools) != 1 || ts.ImageTools[0] != "magick" {
			t.Errorf("ImageTools = %v, want [magick]", ts.ImageTools)
		}

		to := cfg.RenderTimeouts()
		if to.Compile != time.Minute || to.Probe != 2*time.Second || to.Convert != 0 {
			t.Errorf("RenderTimeouts() = %+v", to)
		}
	})

	t.Run("partial document keeps defaults", func(t *testing.T) {
		t.Parallel()

		cfg, err := Parse([]byte("workers: 2\n"))
		if err != nil {
			t.Fatalf("Parse() error: %v", err)
		}
		if cfg.Resolution != texsnap.DefaultResolution || !cfg.Crop || cfg.Server.Addr != DefaultAddr {
			t.Errorf("defaults lost: %+v", cfg)
		}
	})

	t.Run("empty document is the default", func(t *testing.T) {
		t.Parallel()

		cfg, err := Parse([]byte("\n"))
		if err != nil {
			t.Fatalf("Parse() error: %v", err)
		}
		if cfg.Resolution != texsnap.DefaultResolution {
			t.Errorf("Resolution = %d", cfg.Resolution)
		}
	})

	t.Run("unknown field rejected", func(t *testing.T) {
		t.Parallel()

		_, err := Parse([]byte("resolutoin: 300\n"))
		if !errors.Is(err, ErrConfigParse) {
			t.Errorf("error = %v, want ErrConfigParse", err)
		}
	})

	t.Run("invalid value rejected", func(t *testing.T) {
		t.Parallel()

		_, err := Parse([]byte("resolution: 5000\n"))
		if !errors.Is(err, ErrInvalidValue) {
			t.Errorf("error = %v, want ErrInvalidValue", err)
		}
	})

	t.Run("oversized input rejected", func(t *testing.T) {
		t.Parallel()

		_, err := Parse([]byte(strings.Repeat("#", MaxInputSize+1)))
		if !errors.Is(err, ErrInputTooLarge) {
			t.Errorf("error = %v, want ErrInputTooLarge", err)
		}
	})
}

func TestConfig_RendererOptions(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	base := len(cfg.RendererOptions())

	cfg.ScratchRoot = t.TempDir()
	cfg.Tools.Paths = map[string]string{"pdflatex": "/opt/tex/pdflatex"}
	cfg.Preamble = `\documentclass{article}`
	if got := len(cfg.RendererOptions()); got != base+3 {
		t.Errorf("len(RendererOptions()) = %d, want %d", got, base+3)
	}

	r, err := texsnap.NewRenderer(cfg.RendererOptions()...)
	if err != nil {
		t.Fatalf("NewRenderer() error: %v", err)
	}
	if r.ScratchRoot() != cfg.ScratchRoot {
		t.Errorf("ScratchRoot() = %q, want %q", r.ScratchRoot(), cfg.ScratchRoot)
	}
}

func TestLoadConfig(t *testing.T) {
	t.Run("empty name returns ErrEmptyConfigName", func(t *testing.T) {
		_, err := LoadConfig("")
		if !errors.Is(err, ErrEmptyConfigName) {
			t.Errorf("error = %v, want ErrEmptyConfigName", err)
		}
	})

	t.Run("valid file path loads config", func(t *testing.T) {
		dir := t.TempDir()
		configPath := filepath.Join(dir, "test.yaml")
		if err := os.WriteFile(configPath, []byte("resolution: 150\n"), 0600); err != nil {
			t.Fatalf("setup: %v", err)
		}

		cfg, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("LoadConfig() error = %v", err)
		}
		if cfg.Resolution != 150 {
			t.Errorf("Resolution = %d, want 150", cfg.Resolution)
		}
	})

	t.Run("nonexistent file path returns ErrConfigNotFound", func(t *testing.T) {
		_, err := LoadConfig("/nonexistent/path/config.yaml")
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("error = %v, want ErrConfigNotFound", err)
		}
	})

	t.Run("parse errors name the file", func(t *testing.T) {
		dir := t.TempDir()
		configPath := filepath.Join(dir, "invalid.yaml")
		if err := os.WriteFile(configPath, []byte("resolution: [unclosed"), 0600); err != nil {
			t.Fatalf("setup: %v", err)
		}

		_, err := LoadConfig(configPath)
		if !errors.Is(err, ErrConfigParse) {
			t.Errorf("error = %v, want ErrConfigParse", err)
		}
		if err != nil && !strings.Contains(err.Error(), configPath) {
			t.Errorf("error %q does not name %s", err, configPath)
		}
	})

	t.Run("name resolves in current directory", func(t *testing.T) {
		dir := t.TempDir()
		t.Chdir(dir)
		if err := os.WriteFile("texsnap-test.yml", []byte("workers: 4\n"), 0600); err != nil {
			t.Fatalf("setup: %v", err)
		}

		cfg, err := LoadConfig("texsnap-test")
		if err != nil {
			t.Fatalf("LoadConfig() error = %v", err)
		}
		if cfg.Workers != 4 {
			t.Errorf("Workers = %d, want 4", cfg.Workers)
		}
	})

	t.Run("unknown name lists tried paths", func(t *testing.T) {
		t.Chdir(t.TempDir())

		_, err := LoadConfig("does-not-exist")
		if !errors.Is(err, ErrConfigNotFound) {
			t.Fatalf("error = %v, want ErrConfigNotFound", err)
		}
		if !strings.Contains(err.Error(), "does-not-exist.yaml") {
			t.Errorf("error %q does not list tried paths", err)
		}
	})
}
