package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	flag "github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/alnah/go-texsnap"
	"github.com/alnah/go-texsnap/internal/fileutil"
	"github.com/alnah/go-texsnap/internal/mdsnippet"
)

// snippetResult is the outcome of one batch render.
type snippetResult struct {
	Snippet    mdsnippet.Snippet
	OutputPath string
	Image      []byte
	Duration   time.Duration
	Err        error
}

// runBatchCmd renders every LaTeX fence of a Markdown file.
func runBatchCmd(ctx context.Context, args []string, env *Environment) error {
	flags, positional, err := parseBatchFlags(args, env.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}
	switch {
	case len(positional) == 0:
		return ErrNoInput
	case len(positional) > 1:
		return usageError(errUnexpectedArgs(positional[1:]))
	}
	input := positional[0]

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
	if flags.workers != 0 {
		s.cfg.Workers = flags.workers
	}
	if err := s.finish(env.Stderr); err != nil {
		return err
	}

	source, err := os.ReadFile(input) // #nosec G304 -- path is user-provided
	if err != nil {
		return fmt.Errorf("%w: %w", ErrReadInput, err)
	}
	doc := mdsnippet.Parse(source)
	snippets := doc.Snippets()
	if len(snippets) == 0 {
		return fmt.Errorf("%w in %s", ErrNoSnippets, input)
	}

	outDir := flags.output
	if outDir == "" {
		outDir = filepath.Dir(input)
	}
	if err := os.MkdirAll(outDir, 0o750); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteImage, err)
	}

	r, err := s.renderer(env)
	if err != nil {
		return err
	}

	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	limiter := texsnap.NewLimiter(texsnap.ResolvePoolSize(s.cfg.Workers))
	results := renderSnippets(ctx, r, limiter, snippets, func(sn mdsnippet.Snippet) string {
		return filepath.Join(outDir, fmt.Sprintf("%s-%d.png", base, sn.Index+1))
	}, env)

	failed, firstErr := printSnippetResults(results, input, flags.common.quiet, flags.common.verbose, env)

	if flags.html != "" {
		if err := writePreview(doc, results, flags.html, base); err != nil {
			return err
		}
		if !flags.common.quiet {
			fmt.Fprintf(env.Stdout, "Created %s\n", flags.html)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d snippets failed: %w", failed, len(results), firstErr)
	}
	return nil
}

// renderSnippets renders snippets concurrently, at most limiter.Size() at a
// time, and writes each image. Results keep the snippets' order.
func renderSnippets(ctx context.Context, r Renderer, limiter *texsnap.Limiter, snippets []mdsnippet.Snippet, outPath func(mdsnippet.Snippet) string, env *Environment) []snippetResult {
	results := make([]snippetResult, len(snippets))
	var g errgroup.Group
	for i, sn := range snippets {
		results[i] = snippetResult{Snippet: sn, OutputPath: outPath(sn)}
		g.Go(func() error {
			if err := limiter.Acquire(ctx); err != nil {
				results[i].Err = err
				return nil
			}
			defer limiter.Release()

			start := env.Now()
			res, err := r.Render(ctx, snippetRequest(sn))
			results[i].Duration = env.Now().Sub(start)
			if err != nil {
				results[i].Err = err
				return nil
			}
			results[i].Image = res.Image
			if err := fileutil.WriteFileAtomic(results[i].OutputPath, res.Image); err != nil {
				results[i].Err = fmt.Errorf("%w: %w", ErrWriteImage, err)
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// snippetRequest maps a fence and its attributes to a render request.
func snippetRequest(sn mdsnippet.Snippet) texsnap.RenderRequest {
	return texsnap.RenderRequest{
		Body:               sn.Body,
		Passes:             sn.Int("passes", 0),
		BibliographyEngine: texsnap.BibliographyEngine(sn.Attrs["engine"]),
	}
}

// printSnippetResults reports each result and returns the failure count and
// the first failure.
func printSnippetResults(results []snippetResult, input string, quiet, verbose bool, env *Environment) (int, error) {
	var failed int
	var firstErr error
	for _, r := range results {
		if r.Err != nil {
			failed++
			if firstErr == nil {
				firstErr = r.Err
			}
			fmt.Fprintf(env.Stderr, "FAILED %s:%d: %v\n", input, r.Snippet.Line, r.Err)
			continue
		}
		if quiet {
			continue
		}
		if verbose {
			fmt.Fprintf(env.Stdout, "%s:%d -> %s (%v)\n", input, r.Snippet.Line, r.OutputPath, r.Duration.Round(time.Millisecond))
		} else {
			fmt.Fprintf(env.Stdout, "Created %s\n", r.OutputPath)
		}
	}
	if !quiet && len(results) > 1 {
		fmt.Fprintf(env.Stdout, "\n%d succeeded, %d failed\n", len(results)-failed, failed)
	}
	return failed, firstErr
}

// writePreview writes the HTML page with every fence replaced by its outcome.
func writePreview(doc *mdsnippet.Document, results []snippetResult, path, title string) error {
	outcomes := make(map[int]mdsnippet.Outcome, len(results))
	for _, r := range results {
		o := mdsnippet.Outcome{Image: r.Image}
		if r.Err != nil {
			o = mdsnippet.Outcome{Error: r.Err.Error()}
		}
		outcomes[r.Snippet.Index] = o
	}

	var b strings.Builder
	if err := doc.RenderHTML(&b, outcomes, mdsnippet.HTMLOptions{Title: title}); err != nil {
		return err
	}
	if err := fileutil.WriteFileAtomic(path, []byte(b.String())); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteImage, err)
	}
	return nil
}
