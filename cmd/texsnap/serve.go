package main

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"

	"github.com/alnah/go-texsnap"
	"github.com/alnah/go-texsnap/internal/server"
)

// runServeCmd runs the HTTP adapter until ctx is canceled.
func runServeCmd(ctx context.Context, args []string, env *Environment) error {
	flags, err := parseServeFlags(args, env.Stderr)
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
	if flags.addr != "" {
		s.cfg.Server.Addr = flags.addr
	}
	if flags.workers != 0 {
		s.cfg.Workers = flags.workers
	}
	if err := s.finish(env.Stderr); err != nil {
		return err
	}

	r, err := s.renderer(env)
	if err != nil {
		return err
	}

	limiter := texsnap.NewLimiter(texsnap.ResolvePoolSize(s.cfg.Workers))
	s.log.WithFields(logrus.Fields{
		"addr":    s.cfg.Server.Addr,
		"workers": limiter.Size(),
		"scratch": r.ScratchRoot(),
	}).Info("starting server")

	srv := server.New(r, server.Config{
		Addr:           s.cfg.Server.Addr,
		AllowedOrigins: s.cfg.Server.AllowedOrigins,
		Limiter:        limiter,
		Logger:         s.log,
	})
	return srv.Run(ctx)
}
