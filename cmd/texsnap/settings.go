package main

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/alnah/go-texsnap"
	"github.com/alnah/go-texsnap/internal/config"
	"github.com/alnah/go-texsnap/internal/logging"
)

// settings is the resolved configuration shared by every command.
type settings struct {
	cfg *config.Config
	log *logrus.Logger
}

// loadSettings resolves configuration with precedence
// flags > env vars > config file > defaults. Command-specific flags are
// applied by the caller before building the renderer.
func loadSettings(common commonFlags, env *Environment) (*settings, error) {
	warnUnknownEnvVars(env.Stderr, env.Environ())
	envCfg := loadEnvConfig(env)

	cfg := config.DefaultConfig()
	name := common.config
	if name == "" {
		name = envCfg.ConfigPath
	}
	if name != "" {
		var err error
		cfg, err = config.LoadConfig(name)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
	}

	applyEnvConfig(envCfg, cfg)

	switch {
	case common.verbose:
		cfg.Log.Level = logrus.DebugLevel.String()
	case common.quiet:
		cfg.Log.Level = logrus.ErrorLevel.String()
	}

	return &settings{cfg: cfg}, nil
}

// finish validates the merged configuration and builds the logger.
func (s *settings) finish(w io.Writer) error {
	if err := s.cfg.Validate(); err != nil {
		return err
	}
	log, err := logging.New(s.cfg.Log.Level, s.cfg.Log.Format, w)
	if err != nil {
		return fmt.Errorf("%w: %w", config.ErrInvalidValue, err)
	}
	s.log = log
	return nil
}

// renderer builds a Renderer from the merged configuration.
func (s *settings) renderer(env *Environment) (Renderer, error) {
	opts := append(s.cfg.RendererOptions(), texsnap.WithLogger(s.log))
	r, err := env.NewRenderer(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating renderer: %w", err)
	}
	return r, nil
}
