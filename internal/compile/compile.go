// Package compile runs the typesetting compiler over a workspace.
package compile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/alnah/go-texsnap/internal/fileutil"
	"github.com/alnah/go-texsnap/internal/logging"
	"github.com/alnah/go-texsnap/internal/process"
	"github.com/alnah/go-texsnap/internal/texdoc"
	"github.com/alnah/go-texsnap/internal/toolchain"
	"github.com/alnah/go-texsnap/internal/workspace"
)

// Sentinel errors for compilation.
var (
	ErrCompilationFailed  = errors.New("LaTeX compilation failed")
	ErrCompilationTimeout = errors.New("LaTeX compilation timed out")
	ErrToolNotFound       = errors.New("compiler not found")
)

// Default timeouts.
const (
	DefaultTimeout             = 30 * time.Second
	DefaultBibliographyTimeout = 30 * time.Second
)

// compilerArgs never enable shell escape: snippets come from untrusted callers.
var compilerArgs = []string{"-interaction=nonstopmode", "-no-shell-escape", workspace.SourceFile}

// Locator resolves tool names to executables.
type Locator interface {
	Locate(name string) string
}

// Config configures an Engine. Zero values take defaults.
type Config struct {
	Toolset             toolchain.Toolset
	Timeout             time.Duration
	BibliographyTimeout time.Duration
	Logger              logrus.FieldLogger
}

// Engine runs compiler passes. Safe for concurrent use across workspaces.
type Engine struct {
	runner     process.Runner
	tools      Locator
	toolset    toolchain.Toolset
	timeout    time.Duration
	bibTimeout time.Duration
	log        logrus.FieldLogger
}

// NewEngine creates an Engine.
func NewEngine(runner process.Runner, tools Locator, cfg Config) *Engine {
	e := &Engine{
		runner:     runner,
		tools:      tools,
		toolset:    cfg.Toolset.WithDefaults(),
		timeout:    cfg.Timeout,
		bibTimeout: cfg.BibliographyTimeout,
		log:        cfg.Logger,
	}
	if e.timeout <= 0 {
		e.timeout = DefaultTimeout
	}
	if e.bibTimeout <= 0 {
		e.bibTimeout = DefaultBibliographyTimeout
	}
	if e.log == nil {
		e.log = logging.Discard()
	}
	return e
}

// Result describes a compilation. On failure it still carries the log of
// every pass that ran, including the failing one.
type Result struct {
	Artifact        string
	Log             string
	Passes          int
	BibliographyRan bool
}

// Compile runs the compiler passes times (minimum one) in ws. When ws holds a
// bibliography file, the mode's bibliography tool runs once after the first
// pass; its outcome never fails the compilation. Cancellation of ctx is
// honored between passes only.
func (e *Engine) Compile(ctx context.Context, ws *workspace.Workspace, passes int, mode texdoc.Bibliography) (*Result, error) {
	if passes < 1 {
		passes = 1
	}

	res := &Result{}
	var log strings.Builder
	compiler := e.tools.Locate(e.toolset.Compiler)
	logger := e.log.WithField("workspace", ws.ID)

	for pass := 1; pass <= passes; pass++ {
		if pass > 1 {
			if err := ctx.Err(); err != nil {
				res.Log = log.String()
				return res, fmt.Errorf("compilation interrupted before pass %d: %w", pass, err)
			}
		}

		out, err := e.runner.Run(ctx, process.Command{
			Name:    compiler,
			Args:    compilerArgs,
			Dir:     ws.Dir,
			Timeout: e.timeout,
		})
		appendOutput(&log, out)
		res.Passes = pass
		logger.WithFields(logrus.Fields{
			"pass":     pass,
			"tool":     e.toolset.Compiler,
			"duration": durationOf(out),
		}).Debug("compiler pass finished")

		if err != nil {
			res.Log = log.String()
			return res, classify(err, pass)
		}

		if pass == 1 && ws.HasBibliography() {
			res.BibliographyRan = e.runBibliography(ctx, ws, mode, logger)
		}
	}

	res.Log = log.String()
	artifact := ws.Path(workspace.ArtifactFile)
	// pdflatex exits zero with "No pages of output." for an empty body.
	if !fileutil.NonEmptyFile(artifact) {
		return res, fmt.Errorf("%w: compiler produced no %s", ErrCompilationFailed, workspace.ArtifactFile)
	}
	res.Artifact = artifact
	return res, nil
}

// runBibliography runs bibtex or biber on the job. Failures are logged only:
// a broken citation still typesets, with "?" in place of the reference.
func (e *Engine) runBibliography(ctx context.Context, ws *workspace.Workspace, mode texdoc.Bibliography, logger logrus.FieldLogger) bool {
	tool := e.toolset.LegacyBibliography
	if mode == texdoc.ModernBibliography {
		tool = e.toolset.ModernBibliography
	}

	out, err := e.runner.Run(ctx, process.Command{
		Name:    e.tools.Locate(tool),
		Args:    []string{workspace.JobName},
		Dir:     ws.Dir,
		Timeout: e.bibTimeout,
	})
	entry := logger.WithFields(logrus.Fields{"tool": tool, "duration": durationOf(out)})
	if err != nil {
		entry.WithError(err).Debug("bibliography tool failed, continuing")
		return false
	}
	entry.Debug("bibliography tool finished")
	return true
}

func classify(err error, pass int) error {
	switch {
	case errors.Is(err, process.ErrTimeout):
		return fmt.Errorf("%w: pass %d: %v", ErrCompilationTimeout, pass, err)
	case errors.Is(err, process.ErrNotFound):
		return fmt.Errorf("%w: %v", ErrToolNotFound, err)
	}
	return fmt.Errorf("%w: pass %d: %v", ErrCompilationFailed, pass, err)
}

func appendOutput(b *strings.Builder, out *process.Result) {
	text := out.Output()
	if text == "" {
		return
	}
	if b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
		b.WriteByte('\n')
	}
	b.WriteString(text)
}

func durationOf(out *process.Result) time.Duration {
	if out == nil {
		return 0
	}
	return out.Duration
}
