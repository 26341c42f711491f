package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	flag "github.com/spf13/pflag"

	"github.com/alnah/go-texsnap"
	"github.com/alnah/go-texsnap/internal/fileutil"
	"github.com/alnah/go-texsnap/internal/texlog"
)

// defaultOutput names the image when the snippet has no file name.
const defaultOutput = "texsnap.png"

// excerptRadius is the number of source lines shown around a failing line.
const excerptRadius = 2

// runRenderCmd renders one snippet from a file, stdin or --expr.
func runRenderCmd(ctx context.Context, args []string, env *Environment) error {
	flags, positional, err := parseRenderFlags(args, env.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	s, err := loadSettings(flags.common, env)
	if err != nil {
		return err
	}
	if flags.dpi != 0 {
		s.cfg.Resolution = flags.dpi
	}
	if flags.noCrop {
		s.cfg.Crop = false
	}
	if err := s.finish(env.Stderr); err != nil {
		return err
	}

	req, defaultOut, err := buildRenderRequest(flags, positional, env)
	if err != nil {
		return err
	}
	// Reject bad requests before probing any tool.
	if err := req.Validate(); err != nil {
		return fmt.Errorf("%w: %w", texsnap.ErrInvalidRequest, err)
	}

	r, err := s.renderer(env)
	if err != nil {
		return err
	}

	start := env.Now()
	res, renderErr := r.Render(ctx, req)

	if flags.json {
		enc := json.NewEncoder(env.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(texsnap.NewResponse(res, renderErr))
	}
	if renderErr != nil {
		reportRenderError(env.Stderr, renderErr, flags)
		return renderErr
	}

	out := flags.output
	if out == "" && !flags.json {
		out = defaultOut
	}
	if out != "" {
		if err := fileutil.WriteFileAtomic(out, res.Image); err != nil {
			return fmt.Errorf("%w: %w", ErrWriteImage, err)
		}
	}

	if flags.common.quiet || flags.json || out == "" {
		return nil
	}
	if flags.common.verbose {
		fmt.Fprintf(env.Stdout, "Created %s (%dx%d, %s, %v)\n", out, res.Width, res.Height, res.Tool,
			env.Now().Sub(start).Round(time.Millisecond))
	} else {
		fmt.Fprintf(env.Stdout, "Created %s\n", out)
	}
	return nil
}

// buildRenderRequest reads the snippet and its side files, returning the
// request and the default output path.
func buildRenderRequest(flags *renderFlags, positional []string, env *Environment) (texsnap.RenderRequest, string, error) {
	req := texsnap.RenderRequest{
		BibliographyEngine: texsnap.BibliographyEngine(flags.engine),
		Passes:             flags.passes,
		SuppressWarnings:   flags.hideWarnings,
	}

	switch {
	case len(positional) > 1:
		return req, "", usageError(errUnexpectedArgs(positional[1:]))
	case flags.expr != "" && len(positional) > 0:
		return req, "", ErrTooManyInputs
	case flags.expr != "":
		req.Body = flags.expr
	case len(positional) == 0:
		return req, "", ErrNoInput
	case positional[0] == "-":
		data, err := io.ReadAll(env.Stdin)
		if err != nil {
			return req, "", fmt.Errorf("%w: stdin: %w", ErrReadInput, err)
		}
		req.Body = string(data)
	default:
		body, err := readTextFile(positional[0])
		if err != nil {
			return req, "", err
		}
		req.Body = body
	}

	defaultOut := defaultOutput
	if len(positional) == 1 && positional[0] != "-" {
		defaultOut = strings.TrimSuffix(positional[0], filepath.Ext(positional[0])) + ".png"
	}

	if flags.preamble != "" {
		text, err := readTextFile(flags.preamble)
		if err != nil {
			return req, "", err
		}
		req.PreambleExtra = text
	}
	if flags.bib != "" {
		text, err := readTextFile(flags.bib)
		if err != nil {
			return req, "", err
		}
		req.Bibliography = text
	}
	return req, defaultOut, nil
}

func readTextFile(path string) (string, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is user-provided
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrReadInput, err)
	}
	return string(data), nil
}

// reportRenderError prints compiler diagnostics, source excerpts with
// --show-source and the full log with --verbose.
func reportRenderError(w io.Writer, err error, flags *renderFlags) {
	var re *texsnap.RenderError
	if !errors.As(err, &re) {
		return
	}

	for _, d := range re.Diagnostics {
		fmt.Fprintf(w, "  %s\n", d)
		if !flags.showSource || d.Line == 0 || re.Source == "" {
			continue
		}
		_ = texlog.Excerpt(w, re.Source, d.Line, texlog.ExcerptOptions{
			Radius: excerptRadius,
			Color:  isTerminal(w),
		})
	}

	if flags.common.verbose && re.Log != "" {
		fmt.Fprintln(w, "compiler output:")
		fmt.Fprintln(w, strings.TrimRight(re.Log, "\n"))
	}
}

// isTerminal reports whether w is a terminal that understands ANSI colours.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}
