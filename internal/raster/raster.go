// Package raster turns a compiled PDF into a PNG image.
//
// Conversion is a chain of ordered strategies: an optional vector crop, then
// rasterizers tried in turn until one produces a non-empty image, then an
// optional pixel trim. Only the rasterizer step can fail the conversion.
package raster

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/png" // DecodeConfig
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/alnah/go-texsnap/internal/fileutil"
	"github.com/alnah/go-texsnap/internal/logging"
	"github.com/alnah/go-texsnap/internal/process"
	"github.com/alnah/go-texsnap/internal/toolchain"
)

// Sentinel errors for conversion.
var (
	ErrConversionFailed  = errors.New("PDF to PNG conversion failed")
	ErrConversionTimeout = errors.New("PDF to PNG conversion timed out")
	ErrNoOutput          = errors.New("tool produced no output")
)

// Defaults.
const (
	DefaultResolution  = 300
	DefaultTimeout     = 30 * time.Second
	DefaultTrimTimeout = 20 * time.Second

	// CropMargin is the pdfcrop safety margin in points; tighter clips descenders.
	CropMargin = 3
)

// Prober locates tools and probes their availability.
type Prober interface {
	Locate(name string) string
	IsAvailable(ctx context.Context, name string) bool
}

// Options control one conversion.
type Options struct {
	Resolution int // dots per inch; zero means DefaultResolution
	Crop       bool
}

// Attempt records one failed rasterizer.
type Attempt struct {
	Tool string
	Err  error
}

// Result describes a successful conversion, or the attempts of a failed one.
type Result struct {
	Path     string
	Tool     string
	Cropped  bool
	Trimmed  bool
	Width    int
	Height   int
	Attempts []Attempt
}

// Config configures a Converter. Zero values take defaults.
type Config struct {
	Toolset     toolchain.Toolset
	Timeout     time.Duration
	TrimTimeout time.Duration
	Logger      logrus.FieldLogger
}

// Converter runs the crop/rasterize/trim chain. Safe for concurrent use.
type Converter struct {
	runner      process.Runner
	tools       Prober
	cropper     string
	rasterizers []rasterizer
	trimmers    []trimmer
	timeout     time.Duration
	trimTimeout time.Duration
	log         logrus.FieldLogger
}

// NewConverter creates a Converter for the toolset in cfg.
func NewConverter(runner process.Runner, tools Prober, cfg Config) *Converter {
	ts := cfg.Toolset.WithDefaults()
	c := &Converter{
		runner:      runner,
		tools:       tools,
		cropper:     ts.Cropper,
		rasterizers: rasterizers(ts),
		trimmers:    trimmers(ts),
		timeout:     cfg.Timeout,
		trimTimeout: cfg.TrimTimeout,
		log:         cfg.Logger,
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.trimTimeout <= 0 {
		c.trimTimeout = DefaultTrimTimeout
	}
	if c.log == nil {
		c.log = logging.Discard()
	}
	return c
}

// Convert rasterizes the first page of artifact into output, which must end
// in ".png". A failed conversion returns a Result listing every attempt.
func (c *Converter) Convert(ctx context.Context, artifact, output string, opts Options) (*Result, error) {
	res := &Result{}
	if !strings.EqualFold(filepath.Ext(output), ".png") {
		return res, fmt.Errorf("%w: output %q must have a .png extension", ErrConversionFailed, output)
	}
	dpi := opts.Resolution
	if dpi <= 0 {
		dpi = DefaultResolution
	}

	src := artifact
	if opts.Crop {
		if cropped, ok := c.crop(ctx, artifact); ok {
			src = cropped
			res.Cropped = true
		}
	}

	timedOut := false
	for _, r := range c.rasterizers {
		_ = os.Remove(output) // a failed strategy may leave a partial file
		_, err := c.runner.Run(ctx, process.Command{
			Name:    c.tools.Locate(r.tool),
			Args:    r.args(src, output, dpi),
			Dir:     filepath.Dir(output),
			Timeout: c.timeout,
		})
		if err == nil && !fileutil.NonEmptyFile(output) {
			err = fmt.Errorf("%w: %s", ErrNoOutput, r.tool)
		}
		if err != nil {
			timedOut = timedOut || errors.Is(err, process.ErrTimeout)
			res.Attempts = append(res.Attempts, Attempt{Tool: r.tool, Err: err})
			c.log.WithField("tool", r.tool).WithError(err).Debug("rasterizer failed, trying next")
			continue
		}
		res.Tool = r.tool
		break
	}

	if res.Tool == "" {
		kind := ErrConversionFailed
		if timedOut {
			kind = ErrConversionTimeout
		}
		return res, fmt.Errorf("%w: %s", kind, describe(res.Attempts))
	}

	if opts.Crop && !res.Cropped {
		res.Trimmed = c.trim(ctx, output)
	}

	cfg, err := decodeConfig(output)
	if err != nil {
		return res, fmt.Errorf("%w: %s wrote an unreadable image: %v", ErrConversionFailed, res.Tool, err)
	}
	res.Path = output
	res.Width, res.Height = cfg.Width, cfg.Height
	return res, nil
}

// crop writes a tightly cropped copy of artifact next to it. Any failure
// leaves the original artifact as the source.
func (c *Converter) crop(ctx context.Context, artifact string) (string, bool) {
	if !c.tools.IsAvailable(ctx, c.cropper) {
		return "", false
	}
	cropped := strings.TrimSuffix(artifact, filepath.Ext(artifact)) + "-cropped.pdf"
	_, err := c.runner.Run(ctx, process.Command{
		Name:    c.tools.Locate(c.cropper),
		Args:    []string{"--margins", fmt.Sprint(CropMargin), artifact, cropped},
		Dir:     filepath.Dir(artifact),
		Timeout: c.timeout,
	})
	if err != nil || !fileutil.NonEmptyFile(cropped) {
		c.log.WithField("tool", c.cropper).WithError(err).Debug("crop failed, using uncropped artifact")
		return "", false
	}
	return cropped, true
}

// trim removes uniform borders from output in place, trying each trimmer
// until one succeeds.
func (c *Converter) trim(ctx context.Context, output string) bool {
	for _, t := range c.trimmers {
		if err := t.run(ctx, c, output); err != nil {
			c.log.WithField("tool", t.name).WithError(err).Debug("trim failed")
			continue
		}
		return true
	}
	return false
}

func describe(attempts []Attempt) string {
	if len(attempts) == 0 {
		return "no rasterizer configured"
	}
	parts := make([]string, len(attempts))
	for i, a := range attempts {
		parts[i] = a.Err.Error()
	}
	return strings.Join(parts, "; ")
}

func decodeConfig(path string) (image.Config, error) {
	f, err := os.Open(path) // #nosec G304 -- path is inside the workspace
	if err != nil {
		return image.Config{}, err
	}
	defer func() { _ = f.Close() }()
	cfg, _, err := image.DecodeConfig(f)
	return cfg, err
}
