package main

import (
	"context"
	"log/slog"
	"os"

	"PaperCast/internal/app"
	"PaperCast/internal/config"
	"PaperCast/internal/logging"
)

type globalFlags struct {
	configPath string
	logLevel   string
	logFormat  string
}

// commandContext loads configuration once and builds the application on demand.
type commandContext struct {
	flags  *globalFlags
	cfg    *config.Config
	logger *slog.Logger
}

func newCommandContext(flags *globalFlags) *commandContext {
	return &commandContext{flags: flags}
}

func (c *commandContext) ensureConfig() (config.Config, error) {
	if c.cfg != nil {
		return *c.cfg, nil
	}

	cfg, err := config.Load(c.flags.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if c.flags.logLevel != "" {
		cfg.Logging.Level = c.flags.logLevel
	}
	if c.flags.logFormat != "" {
		cfg.Logging.Format = c.flags.logFormat
	}
	c.cfg = &cfg
	return cfg, nil
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	if c.logger != nil {
		return c.logger, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	c.logger = logging.New(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)
	return c.logger, nil
}

// pipelineApp builds the full application for run and serve.
func (c *commandContext) pipelineApp(ctx context.Context) (*app.Application, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg, logger)
}

// storageApp builds an application limited to the local data files.
func (c *commandContext) storageApp() (*app.Application, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	return app.NewOffline(cfg, logger)
}
