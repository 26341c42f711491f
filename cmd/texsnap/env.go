package main

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/alnah/go-texsnap"
)

// Renderer is the part of *texsnap.Renderer the commands use.
type Renderer interface {
	Render(ctx context.Context, req texsnap.RenderRequest) (*texsnap.RenderResult, error)
	Readiness(ctx context.Context) *texsnap.Readiness
	ScratchRoot() string
}

// Compile-time interface implementation check.
var _ Renderer = (*texsnap.Renderer)(nil)

// Environment holds injectable dependencies for testability.
type Environment struct {
	Now         func() time.Time
	Stdin       io.Reader
	Stdout      io.Writer
	Stderr      io.Writer
	Getenv      func(string) string
	Environ     func() []string
	NewRenderer func(opts ...texsnap.Option) (Renderer, error)
}

// DefaultEnv returns the production environment.
func DefaultEnv() *Environment {
	return &Environment{
		Now:     time.Now,
		Stdin:   os.Stdin,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
		Getenv:  os.Getenv,
		Environ: os.Environ,
		NewRenderer: func(opts ...texsnap.Option) (Renderer, error) {
			r, err := texsnap.NewRenderer(opts...)
			if err != nil {
				return nil, err
			}
			return r, nil
		},
	}
}
