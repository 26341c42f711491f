package main

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alnah/go-texsnap"
)

// ---------------------------------------------------------------------------
// Test Infrastructure - Fake renderer and environment
// ---------------------------------------------------------------------------

// fakePNG stands in for rendered images; the CLI writes them verbatim.
var fakePNG = []byte("\x89PNG fake")

// fakeRenderer records requests and answers them with render.
type fakeRenderer struct {
	mu       sync.Mutex
	requests []texsnap.RenderRequest
	render   func(req texsnap.RenderRequest) (*texsnap.RenderResult, error)
	report   *texsnap.Readiness
	scratch  string
}

func (f *fakeRenderer) Render(_ context.Context, req texsnap.RenderRequest) (*texsnap.RenderResult, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.render != nil {
		return f.render(req)
	}
	return &texsnap.RenderResult{Image: fakePNG, Width: 64, Height: 32, Tool: "pdftoppm"}, nil
}

func (f *fakeRenderer) Readiness(context.Context) *texsnap.Readiness {
	if f.report != nil {
		return f.report
	}
	return &texsnap.Readiness{Ready: true, Tools: allTools(true)}
}

func (f *fakeRenderer) ScratchRoot() string {
	return f.scratch
}

func (f *fakeRenderer) Requests() []texsnap.RenderRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]texsnap.RenderRequest(nil), f.requests...)
}

// allTools returns a readiness tool map with every default tool set to ok.
func allTools(ok bool) map[string]bool {
	return map[string]bool{
		"pdflatex": ok,
		"biber":    ok,
		"bibtex":   ok,
		"pdftoppm": ok,
		"convert":  ok,
		"pdfcrop":  ok,
	}
}

// testEnv bundles an Environment with its captured output.
type testEnv struct {
	*Environment
	stdout      *bytes.Buffer
	stderr      *bytes.Buffer
	renderer    *fakeRenderer
	newRenderer int
}

// newTestEnv returns an Environment backed by r and the given variables.
func newTestEnv(t *testing.T, r *fakeRenderer, vars map[string]string) *testEnv {
	t.Helper()
	if r.scratch == "" {
		r.scratch = t.TempDir()
	}
	te := &testEnv{
		stdout:   &bytes.Buffer{},
		stderr:   &bytes.Buffer{},
		renderer: r,
	}
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	te.Environment = &Environment{
		Now:    func() time.Time { return now },
		Stdin:  strings.NewReader(""),
		Stdout: te.stdout,
		Stderr: te.stderr,
		Getenv: func(k string) string { return vars[k] },
		Environ: func() []string {
			out := make([]string, 0, len(vars))
			for k, v := range vars {
				out = append(out, k+"="+v)
			}
			return out
		},
		NewRenderer: func(...texsnap.Option) (Renderer, error) {
			te.newRenderer++
			return r, nil
		},
	}
	return te
}
