// Package readiness reports whether the toolchain can serve renders.
package readiness

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/alnah/go-texsnap/internal/toolchain"
)

// Prober probes tool availability.
type Prober interface {
	IsAvailable(ctx context.Context, name string) bool
}

// Report is the availability of every tool plus the overall verdict.
type Report struct {
	Ready bool            `json:"ready"`
	Tools map[string]bool `json:"tools"`
}

// Missing returns the required roles that are not available, as tool names.
// The image-tool role is reported only when the rasterizer is missing too.
func (r *Report) Missing(ts toolchain.Toolset) []string {
	ts = ts.WithDefaults()
	var missing []string
	if !r.Tools[ts.Compiler] {
		missing = append(missing, ts.Compiler)
	}
	if !r.Tools[ts.Rasterizer] && !r.Tools[imageToolKey(ts)] {
		missing = append(missing, ts.Rasterizer, imageToolKey(ts))
	}
	return missing
}

// Checker probes a fixed toolset.
type Checker struct {
	probe   Prober
	toolset toolchain.Toolset
}

// NewChecker creates a Checker for ts.
func NewChecker(probe Prober, ts toolchain.Toolset) *Checker {
	return &Checker{probe: probe, toolset: ts.WithDefaults()}
}

// Check probes every tool concurrently. Bibliography engines and the cropper
// are reported but never affect Ready.
func (c *Checker) Check(ctx context.Context) *Report {
	ts := c.toolset
	tools := map[string]bool{}
	var mu sync.Mutex
	set := func(key string, ok bool) {
		mu.Lock()
		defer mu.Unlock()
		tools[key] = tools[key] || ok
	}

	var g errgroup.Group
	for _, name := range []string{ts.Compiler, ts.ModernBibliography, ts.LegacyBibliography, ts.Rasterizer, ts.Cropper} {
		g.Go(func() error {
			set(name, c.probe.IsAvailable(ctx, name))
			return nil
		})
	}
	// The image tools share one role: any candidate satisfies it.
	g.Go(func() error {
		ok := false
		for _, name := range ts.ImageTools {
			if c.probe.IsAvailable(ctx, name) {
				ok = true
				break
			}
		}
		set(imageToolKey(ts), ok)
		return nil
	})
	_ = g.Wait()

	return &Report{
		Ready: tools[ts.Compiler] && (tools[ts.Rasterizer] || tools[imageToolKey(ts)]),
		Tools: tools,
	}
}

func imageToolKey(ts toolchain.Toolset) string {
	return ts.ImageTools[0]
}
