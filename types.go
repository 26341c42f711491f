package texsnap

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alnah/go-texsnap/internal/readiness"
	"github.com/alnah/go-texsnap/internal/texdoc"
)

// BibliographyEngine selects the citation toolchain.
type BibliographyEngine string

// Bibliography engines.
const (
	EngineLegacy BibliographyEngine = "legacy" // natbib + bibtex
	EngineModern BibliographyEngine = "modern" // biblatex + biber
)

// Request limits.
const (
	DefaultPasses = 1
	MaxPasses     = 5

	MaxBodyLength         = 256 << 10
	MaxPreambleLength     = 64 << 10
	MaxBibliographyLength = 256 << 10
)

// RenderRequest is one snippet to render. An empty Bibliography means none.
type RenderRequest struct {
	Body               string             `json:"body"`
	PreambleExtra      string             `json:"preambleExtra,omitempty"`
	Bibliography       string             `json:"bibliographyEntries,omitempty"`
	BibliographyEngine BibliographyEngine `json:"bibliographyEngine,omitempty"`
	Passes             int                `json:"passCount,omitempty"` // 0 means DefaultPasses
	SuppressWarnings   bool               `json:"suppressWarnings,omitempty"`
}

// Validate checks the request without touching the toolchain.
func (r RenderRequest) Validate() error {
	if strings.TrimSpace(r.Body) == "" {
		return ErrEmptyBody
	}
	switch r.BibliographyEngine {
	case "", EngineLegacy, EngineModern:
	default:
		return fmt.Errorf("%w: %q (want %s or %s)", ErrInvalidEngine, r.BibliographyEngine, EngineLegacy, EngineModern)
	}
	if r.Passes < 0 || r.Passes > MaxPasses {
		return fmt.Errorf("%w: %d (must be between 1 and %d, or 0 for %d)", ErrInvalidPasses, r.Passes, MaxPasses, DefaultPasses)
	}
	if err := checkLength("body", r.Body, MaxBodyLength); err != nil {
		return err
	}
	if err := checkLength("preambleExtra", r.PreambleExtra, MaxPreambleLength); err != nil {
		return err
	}
	return checkLength("bibliographyEntries", r.Bibliography, MaxBibliographyLength)
}

func (r RenderRequest) passCount() int {
	if r.Passes == 0 {
		return DefaultPasses
	}
	return r.Passes
}

func (r RenderRequest) bibliographyMode() texdoc.Bibliography {
	switch {
	case r.Bibliography == "":
		return texdoc.NoBibliography
	case r.BibliographyEngine == EngineModern:
		return texdoc.ModernBibliography
	}
	return texdoc.LegacyBibliography
}

func checkLength(field, value string, limit int) error {
	if len(value) > limit {
		return fmt.Errorf("%w: %s (%d bytes, max %d)", ErrFieldTooLong, field, len(value), limit)
	}
	return nil
}

// RenderResult is a rendered snippet.
type RenderResult struct {
	Image    []byte // PNG
	Width    int
	Height   int
	Log      string // compiler output of every pass
	Tool     string // rasterizer that produced Image
	Duration time.Duration
}

// Readiness reports tool availability and whether renders can succeed.
type Readiness = readiness.Report

// Response is the JSON envelope for a render outcome.
type Response struct {
	Success   bool   `json:"success"`
	ImageData string `json:"imageData,omitempty"` // base64 PNG
	Error     string `json:"error,omitempty"`
	Kind      Kind   `json:"kind,omitempty"`
	Log       string `json:"log,omitempty"`
}

// NewResponse builds the envelope for the outcome of Render.
func NewResponse(res *RenderResult, err error) Response {
	if err == nil && res != nil {
		return Response{Success: true, ImageData: base64.StdEncoding.EncodeToString(res.Image)}
	}
	if err == nil {
		err = newRenderError(KindUnexpected, nil)
	}
	resp := Response{Success: false, Error: err.Error(), Kind: KindOf(err)}
	var re *RenderError
	if errors.As(err, &re) {
		resp.Error = re.Message
		resp.Log = re.Log
	}
	return resp
}
