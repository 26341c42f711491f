// Package texsnap renders LaTeX snippets to PNG images using a local TeX
// installation.
//
// # Quick Start
//
// Create a renderer and render a snippet:
//
//	r, err := texsnap.NewRenderer()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	res, err := r.Render(ctx, texsnap.RenderRequest{
//	    Body: `$E=mc^2$`,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	os.WriteFile("formula.png", res.Image, 0644)
//
// # Render Pipeline
//
// Each request runs in its own scratch workspace, removed before Render
// returns:
//
//  1. Document assembly (base preamble, extra preamble, body, bibliography directives)
//  2. Compilation with pdflatex, one or more passes, with bibtex or biber after the first
//  3. Optional vector crop with pdfcrop
//  4. Rasterization with pdftoppm, falling back to ImageMagick
//  5. Optional trim of uniform borders when the vector crop was unavailable
//
// # Errors
//
// Render failures are *RenderError values carrying a Kind. They match the
// kind sentinels with errors.Is:
//
//	_, err := r.Render(ctx, req)
//	switch {
//	case errors.Is(err, texsnap.ErrCompilation):
//	    var re *texsnap.RenderError
//	    errors.As(err, &re)
//	    fmt.Println(re.Log)
//	case errors.Is(err, texsnap.ErrToolNotFound):
//	    // install a TeX distribution
//	}
//
// NewResponse turns an outcome into the JSON envelope served over HTTP.
//
// # Configuration
//
// Use functional options to customize the renderer:
//
//	r, err := texsnap.NewRenderer(
//	    texsnap.WithScratchRoot("/var/tmp/texsnap"),
//	    texsnap.WithResolution(600),
//	    texsnap.WithToolPaths(map[string]string{"pdflatex": "/opt/texlive/bin/pdflatex"}),
//	)
//
// # Concurrency
//
// A Renderer is safe for concurrent use. Use a Limiter to bound the number
// of renders running at once:
//
//	lim := texsnap.NewLimiter(texsnap.ResolvePoolSize(0))
//	if err := lim.Acquire(ctx); err != nil {
//	    return err
//	}
//	defer lim.Release()
//
// # Readiness
//
// Readiness reports which tools are installed and whether renders can
// succeed at all:
//
//	if rep := r.Readiness(ctx); !rep.Ready {
//	    fmt.Println("missing:", rep.Missing(texsnap.DefaultToolset()))
//	}
package texsnap
