package texsnap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime/debug"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/alnah/go-texsnap/internal/compile"
	"github.com/alnah/go-texsnap/internal/logging"
	"github.com/alnah/go-texsnap/internal/metrics"
	"github.com/alnah/go-texsnap/internal/process"
	"github.com/alnah/go-texsnap/internal/raster"
	"github.com/alnah/go-texsnap/internal/readiness"
	"github.com/alnah/go-texsnap/internal/texdoc"
	"github.com/alnah/go-texsnap/internal/texlog"
	"github.com/alnah/go-texsnap/internal/toolchain"
	"github.com/alnah/go-texsnap/internal/workspace"
)

// Renderer turns LaTeX snippets into PNG images. Create with NewRenderer.
// A Renderer holds no per-request state and is safe for concurrent use.
type Renderer struct {
	workspaces   *workspace.Manager
	compiler     *compile.Engine
	converter    *raster.Converter
	checker      *readiness.Checker
	basePreamble string
	resolution   int
	crop         bool
	log          logrus.FieldLogger
	now          func() time.Time
}

// NewRenderer creates a Renderer. The scratch root is created if missing.
func NewRenderer(opts ...Option) (*Renderer, error) {
	cfg := rendererConfig{
		scratchRoot:  workspace.DefaultRoot(),
		resolution:   DefaultResolution,
		crop:         true,
		toolset:      DefaultToolset(),
		timeouts:     DefaultTimeouts(),
		basePreamble: texdoc.BasePreamble,
		logger:       logging.Discard(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.resolution < MinResolution || cfg.resolution > MaxResolution {
		return nil, fmt.Errorf("%w: %d (must be between %d and %d)", ErrInvalidResolution, cfg.resolution, MinResolution, MaxResolution)
	}

	workspaces, err := workspace.NewManager(cfg.scratchRoot)
	if err != nil {
		return nil, err
	}

	runner := cfg.runner
	if runner == nil {
		runner = process.NewExecRunner()
	}
	runner = metrics.InstrumentRunner(runner)

	resolverOpts := []toolchain.Option{
		toolchain.WithOverrides(cfg.toolPaths),
		toolchain.WithProbeTimeout(cfg.timeouts.Probe),
	}
	if cfg.lookPath != nil {
		resolverOpts = append(resolverOpts, toolchain.WithLookPath(cfg.lookPath))
	}
	resolver := toolchain.NewResolver(runner, resolverOpts...)

	return &Renderer{
		workspaces: workspaces,
		compiler: compile.NewEngine(runner, resolver, compile.Config{
			Toolset:             cfg.toolset,
			Timeout:             cfg.timeouts.Compile,
			BibliographyTimeout: cfg.timeouts.Bibliography,
			Logger:              cfg.logger,
		}),
		converter: raster.NewConverter(runner, resolver, raster.Config{
			Toolset:     cfg.toolset,
			Timeout:     cfg.timeouts.Convert,
			TrimTimeout: cfg.timeouts.Trim,
			Logger:      cfg.logger,
		}),
		checker:      readiness.NewChecker(resolver, cfg.toolset),
		basePreamble: cfg.basePreamble,
		resolution:   cfg.resolution,
		crop:         cfg.crop,
		log:          cfg.logger,
		now:          time.Now,
	}, nil
}

// ScratchRoot returns the absolute directory holding request workspaces.
func (r *Renderer) ScratchRoot() string {
	return r.workspaces.Root()
}

// Render compiles req and rasterizes the result. Failures are returned as
// *RenderError. The request's workspace is removed before Render returns,
// whatever the outcome.
//
// ctx is checked between stages; a compiler or rasterizer already running
// is never interrupted by it and stops only at its own timeout.
func (r *Renderer) Render(ctx context.Context, req RenderRequest) (res *RenderResult, err error) {
	start := r.now()
	log := r.log

	defer func() {
		if rec := recover(); rec != nil {
			log.WithField("panic", rec).Errorf("render panicked\n%s", debug.Stack())
			res, err = nil, newRenderError(KindUnexpected, fmt.Errorf("internal error: %v", rec))
		}
		kind := KindOf(err)
		if kind == "" {
			kind = "Success"
		}
		elapsed := r.now().Sub(start)
		metrics.ObserveRender(string(kind), elapsed)
		log.WithFields(logrus.Fields{"kind": kind, "duration": elapsed}).Debug("render finished")
	}()

	if err := req.Validate(); err != nil {
		return nil, newRenderError(KindInvalidRequest, err)
	}

	ws, err := r.workspaces.Allocate()
	if err != nil {
		return nil, newRenderError(KindUnexpected, err)
	}
	log = log.WithField("workspace", ws.ID)
	defer func() {
		if relErr := r.workspaces.Release(ws); relErr != nil {
			log.WithError(relErr).Warn("workspace cleanup failed")
		}
	}()

	mode := req.bibliographyMode()
	source := texdoc.Assemble(r.basePreamble, req.PreambleExtra, req.Body, mode)
	if err := r.workspaces.WriteSource(ws, source); err != nil {
		return nil, newRenderError(KindUnexpected, err)
	}
	if mode != texdoc.NoBibliography {
		if err := r.workspaces.WriteBibliography(ws, req.Bibliography); err != nil {
			return nil, newRenderError(KindUnexpected, err)
		}
	}

	compiled, err := r.compiler.Compile(ctx, ws, req.passCount(), mode)
	if err != nil {
		return nil, compileError(err, compiled, source, req.SuppressWarnings)
	}

	if err := ctx.Err(); err != nil {
		return nil, newRenderError(KindUnexpected, fmt.Errorf("render interrupted before conversion: %w", err))
	}

	converted, err := r.converter.Convert(ctx, compiled.Artifact, ws.Path(workspace.RasterFile), raster.Options{
		Resolution: r.resolution,
		Crop:       r.crop,
	})
	if err != nil {
		return nil, convertError(err)
	}

	image, err := os.ReadFile(converted.Path)
	if err != nil {
		return nil, newRenderError(KindUnexpected, fmt.Errorf("reading image: %w", err))
	}

	return &RenderResult{
		Image:    image,
		Width:    converted.Width,
		Height:   converted.Height,
		Log:      compiled.Log,
		Tool:     converted.Tool,
		Duration: r.now().Sub(start),
	}, nil
}

// Readiness probes the toolchain. Every call probes again.
func (r *Renderer) Readiness(ctx context.Context) *Readiness {
	return r.checker.Check(ctx)
}

func compileError(err error, compiled *compile.Result, source string, suppressWarnings bool) *RenderError {
	var kind Kind
	switch {
	case errors.Is(err, compile.ErrToolNotFound):
		return newRenderError(KindToolNotFound, err)
	case errors.Is(err, compile.ErrCompilationTimeout):
		kind = KindCompilationTimeout
	case errors.Is(err, compile.ErrCompilationFailed):
		kind = KindCompilationFailure
	default:
		return newRenderError(KindUnexpected, err)
	}

	re := newRenderError(kind, err)
	re.Source = source
	if compiled != nil {
		re.Log = compiled.Log
		re.Diagnostics = texlog.Parse(compiled.Log)
		if suppressWarnings {
			re.Log = texlog.StripWarnings(re.Log)
		}
	}
	return re
}

func convertError(err error) *RenderError {
	switch {
	case errors.Is(err, raster.ErrConversionTimeout):
		return newRenderError(KindConversionTimeout, err)
	case errors.Is(err, raster.ErrConversionFailed):
		return newRenderError(KindConversionFailure, err)
	}
	return newRenderError(KindUnexpected, err)
}
