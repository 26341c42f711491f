package texsnap

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/alnah/go-texsnap/internal/process"
	"github.com/alnah/go-texsnap/internal/toolchain"
)

// Resolution bounds in dots per inch.
const (
	MinResolution     = 36
	MaxResolution     = 1200
	DefaultResolution = 300
)

// Toolset names the external tool filling each pipeline role.
type Toolset = toolchain.Toolset

// DefaultToolset returns pdflatex, biber, bibtex, pdftoppm, convert/magick and pdfcrop.
func DefaultToolset() Toolset {
	return toolchain.DefaultToolset()
}

// Runner executes external commands. Command and CommandResult are its
// argument and result.
type (
	Runner        = process.Runner
	Command       = process.Command
	CommandResult = process.Result
)

// Timeouts bound each kind of external tool run.
type Timeouts struct {
	Compile      time.Duration
	Bibliography time.Duration
	Convert      time.Duration
	Trim         time.Duration
	Probe        time.Duration
}

// DefaultTimeouts returns 30s for compiler, bibliography and rasterizer runs,
// 20s for trimming and 5s for availability probes.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Compile:      30 * time.Second,
		Bibliography: 30 * time.Second,
		Convert:      30 * time.Second,
		Trim:         20 * time.Second,
		Probe:        5 * time.Second,
	}
}

// withDefaults fills zero timeouts from DefaultTimeouts.
func (t Timeouts) withDefaults() Timeouts {
	def := DefaultTimeouts()
	if t.Compile <= 0 {
		t.Compile = def.Compile
	}
	if t.Bibliography <= 0 {
		t.Bibliography = def.Bibliography
	}
	if t.Convert <= 0 {
		t.Convert = def.Convert
	}
	if t.Trim <= 0 {
		t.Trim = def.Trim
	}
	if t.Probe <= 0 {
		t.Probe = def.Probe
	}
	return t
}

// rendererConfig holds Renderer configuration.
type rendererConfig struct {
	scratchRoot  string
	resolution   int
	crop         bool
	toolset      Toolset
	toolPaths    map[string]string
	timeouts     Timeouts
	basePreamble string
	logger       logrus.FieldLogger
	runner       Runner
	lookPath     func(string) (string, error)
}

// Option configures a Renderer.
type Option func(*rendererConfig)

// WithScratchRoot sets the directory under which per-request workspaces are created.
func WithScratchRoot(dir string) Option {
	return func(c *rendererConfig) {
		c.scratchRoot = dir
	}
}

// WithResolution sets the raster resolution in dots per inch.
func WithResolution(dpi int) Option {
	return func(c *rendererConfig) {
		c.resolution = dpi
	}
}

// WithCrop enables or disables cropping the image to its content (default on).
func WithCrop(crop bool) Option {
	return func(c *rendererConfig) {
		c.crop = crop
	}
}

// WithToolset replaces tool names. Empty roles keep their defaults.
func WithToolset(ts Toolset) Option {
	return func(c *rendererConfig) {
		c.toolset = ts.WithDefaults()
	}
}

// WithToolPaths pins tools to explicit executables, keyed by tool name.
func WithToolPaths(paths map[string]string) Option {
	return func(c *rendererConfig) {
		c.toolPaths = paths
	}
}

// WithTimeouts sets tool timeouts. Zero fields keep their defaults.
func WithTimeouts(t Timeouts) Option {
	return func(c *rendererConfig) {
		c.timeouts = t.withDefaults()
	}
}

// WithBasePreamble replaces the built-in document class and package set.
func WithBasePreamble(preamble string) Option {
	return func(c *rendererConfig) {
		if preamble != "" {
			c.basePreamble = preamble
		}
	}
}

// WithLogger sets the logger. Renderers are silent by default.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *rendererConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithRunner replaces the external command runner.
func WithRunner(r Runner) Option {
	return func(c *rendererConfig) {
		if r != nil {
			c.runner = r
		}
	}
}

// WithLookPath replaces exec.LookPath for tool resolution.
func WithLookPath(fn func(string) (string, error)) Option {
	return func(c *rendererConfig) {
		if fn != nil {
			c.lookPath = fn
		}
	}
}
