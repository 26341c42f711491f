package main

// Notes:
// - loadEnvConfig and applyEnvConfig are tested through an injected
//   Environment; no process environment is modified.

import (
	"bytes"
	"strings"
	"testing"

	"github.com/alnah/go-texsnap/internal/config"
)

// ---------------------------------------------------------------------------
// TestLoadEnvConfig - Variable parsing
// ---------------------------------------------------------------------------

func TestLoadEnvConfig(t *testing.T) {
	t.Parallel()

	te := newTestEnv(t, &fakeRenderer{}, map[string]string{
		"TEXSNAP_CONFIG":        "work",
		"TEXSNAP_SCRATCH_ROOT":  "/var/tmp/texsnap",
		"TEXSNAP_RESOLUTION":    "600",
		"TEXSNAP_WORKERS":       "3",
		"TEXSNAP_ADDR":          ":8080",
		"TEXSNAP_LOG_LEVEL":     "debug",
		"TEXSNAP_LOG_FORMAT":    "json",
		"TEXSNAP_TOOL_PDFLATEX": "/opt/texlive/bin/pdflatex",
		"TEXSNAP_TOOL_":         "/ignored",
	})

	got := loadEnvConfig(te.Environment)

	if got.ConfigPath != "work" || got.ScratchRoot != "/var/tmp/texsnap" || got.Addr != ":8080" {
		t.Errorf("string fields = %+v", got)
	}
	if got.Resolution != 600 || got.Workers != 3 {
		t.Errorf("Resolution = %d, Workers = %d", got.Resolution, got.Workers)
	}
	if got.LogLevel != "debug" || got.LogFormat != "json" {
		t.Errorf("log = %q/%q", got.LogLevel, got.LogFormat)
	}
	if len(got.ToolPaths) != 1 || got.ToolPaths["PDFLATEX"] != "/opt/texlive/bin/pdflatex" {
		t.Errorf("ToolPaths = %v", got.ToolPaths)
	}
}

func TestLoadEnvConfig_MalformedNumbers(t *testing.T) {
	t.Parallel()

	te := newTestEnv(t, &fakeRenderer{}, map[string]string{
		"TEXSNAP_RESOLUTION": "high",
		"TEXSNAP_WORKERS":    "-2",
	})

	got := loadEnvConfig(te.Environment)
	if got.Resolution != 0 || got.Workers != 0 {
		t.Errorf("malformed values parsed: Resolution = %d, Workers = %d", got.Resolution, got.Workers)
	}
}

// ---------------------------------------------------------------------------
// TestApplyEnvConfig - Precedence over the config file
// ---------------------------------------------------------------------------

func TestApplyEnvConfig(t *testing.T) {
	t.Parallel()

	t.Run("set variables override the file", func(t *testing.T) {
		t.Parallel()

		cfg := config.DefaultConfig()
		cfg.Resolution = 150
		cfg.Server.Addr = "0.0.0.0:9000"

		applyEnvConfig(&envConfig{Resolution: 600, LogFormat: "json"}, cfg)

		if cfg.Resolution != 600 {
			t.Errorf("Resolution = %d, want 600", cfg.Resolution)
		}
		if cfg.Server.Addr != "0.0.0.0:9000" {
			t.Errorf("unset variable changed Addr to %q", cfg.Server.Addr)
		}
		if cfg.Log.Format != "json" {
			t.Errorf("Log.Format = %q, want json", cfg.Log.Format)
		}
	})

	t.Run("tool variables map to configured names", func(t *testing.T) {
		t.Parallel()

		cfg := config.DefaultConfig()
		cfg.Tools.Compiler = "lualatex"

		applyEnvConfig(&envConfig{ToolPaths: map[string]string{
			"LUALATEX": "/opt/lualatex",
			"PDFTOPPM": "/opt/pdftoppm",
			"XELATEX":  "/opt/xelatex",
		}}, cfg)

		want := map[string]string{
			"lualatex": "/opt/lualatex",
			"pdftoppm": "/opt/pdftoppm",
			"xelatex":  "/opt/xelatex",
		}
		for name, path := range want {
			if cfg.Tools.Paths[name] != path {
				t.Errorf("Tools.Paths[%q] = %q, want %q", name, cfg.Tools.Paths[name], path)
			}
		}
	})
}

// ---------------------------------------------------------------------------
// TestWarnUnknownEnvVars - Typo detection
// ---------------------------------------------------------------------------

func TestWarnUnknownEnvVars(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	warnUnknownEnvVars(&buf, []string{
		"TEXSNAP_WORKER=2",
		"TEXSNAP_WORKERS=2",
		"TEXSNAP_TOOL_PDFLATEX=/x",
		"HOME=/root",
	})

	out := buf.String()
	if !strings.Contains(out, "TEXSNAP_WORKER ") {
		t.Errorf("missing warning for typo, got %q", out)
	}
	if strings.Count(out, "warning:") != 1 {
		t.Errorf("expected exactly one warning, got %q", out)
	}
}
