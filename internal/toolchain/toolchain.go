// Package toolchain locates the external tools the render pipeline shells out to.
//
// Resolution never fails: an unresolvable tool is returned by its bare name
// and the failure surfaces later, when the tool is invoked.
package toolchain

import (
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/alnah/go-texsnap/internal/process"
)

// Default tool names.
const (
	Pdflatex = "pdflatex"
	Biber    = "biber"
	Bibtex   = "bibtex"
	Pdftoppm = "pdftoppm"
	Convert  = "convert"
	Magick   = "magick"
	Pdfcrop  = "pdfcrop"
)

// DefaultProbeTimeout bounds the --version probe.
const DefaultProbeTimeout = 5 * time.Second

// Toolset names the tool filling each role in the pipeline.
type Toolset struct {
	Compiler           string
	ModernBibliography string
	LegacyBibliography string
	Rasterizer         string
	ImageTools         []string // tried in order
	Cropper            string
}

// DefaultToolset returns the TeX Live / poppler / ImageMagick toolset.
func DefaultToolset() Toolset {
	return Toolset{
		Compiler:           Pdflatex,
		ModernBibliography: Biber,
		LegacyBibliography: Bibtex,
		Rasterizer:         Pdftoppm,
		ImageTools:         []string{Convert, Magick},
		Cropper:            Pdfcrop,
	}
}

// WithDefaults fills empty roles from DefaultToolset.
func (t Toolset) WithDefaults() Toolset {
	def := DefaultToolset()
	if t.Compiler == "" {
		t.Compiler = def.Compiler
	}
	if t.ModernBibliography == "" {
		t.ModernBibliography = def.ModernBibliography
	}
	if t.LegacyBibliography == "" {
		t.LegacyBibliography = def.LegacyBibliography
	}
	if t.Rasterizer == "" {
		t.Rasterizer = def.Rasterizer
	}
	if len(t.ImageTools) == 0 {
		t.ImageTools = def.ImageTools
	}
	if t.Cropper == "" {
		t.Cropper = def.Cropper
	}
	return t
}

// Resolver maps tool names to executables. Safe for concurrent use.
type Resolver struct {
	runner       process.Runner
	lookPath     func(string) (string, error)
	overrides    map[string]string
	probeTimeout time.Duration
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLookPath replaces exec.LookPath.
func WithLookPath(fn func(string) (string, error)) Option {
	return func(r *Resolver) {
		if fn != nil {
			r.lookPath = fn
		}
	}
}

// WithOverrides sets explicit executable paths keyed by tool name.
// They take priority over the search path.
func WithOverrides(paths map[string]string) Option {
	return func(r *Resolver) {
		for name, path := range paths {
			if name = strings.TrimSpace(name); name != "" && path != "" {
				r.overrides[name] = path
			}
		}
	}
}

// WithProbeTimeout bounds the --version probe.
func WithProbeTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.probeTimeout = d
		}
	}
}

// NewResolver creates a Resolver running probes through runner.
func NewResolver(runner process.Runner, opts ...Option) *Resolver {
	r := &Resolver{
		runner:       runner,
		lookPath:     exec.LookPath,
		overrides:    make(map[string]string),
		probeTimeout: DefaultProbeTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Locate returns the executable path for name, or name itself when it
// cannot be resolved.
func (r *Resolver) Locate(name string) string {
	if path, ok := r.overrides[name]; ok {
		return path
	}
	if path, err := r.lookPath(name); err == nil {
		return path
	}
	return name
}

// IsAvailable reports whether name can be run. A tool found on the search
// path is available; otherwise a "--version" probe that exits zero within
// the probe timeout also counts. Results are never cached.
func (r *Resolver) IsAvailable(ctx context.Context, name string) bool {
	target := r.Locate(name)
	if _, err := r.lookPath(target); err == nil {
		return true
	}
	if r.runner == nil {
		return false
	}
	_, err := r.runner.Run(ctx, process.Command{
		Name:    target,
		Args:    []string{"--version"},
		Timeout: r.probeTimeout,
	})
	return err == nil
}
