// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"log/slog"
	"os"

	"github.com/oklog/run"
)

// Run runs all services that implement the Runner interface until the first
// one returns, then interrupts and shuts down the others. It returns the error
// of the first service to return.
func Run(outer context.Context, logger *slog.Logger, services []Service) error {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}

	logger.Debug("Running all services")
	ctx, cancel := context.WithCancel(outer)
	defer cancel()
	// Create run group
	var g run.Group

	// Add services to run group
	for _, s := range services {
		runner, ok := s.(Runner)
		if !ok {
			logger.Debug("skipping service", "service", s.Name(),
				"reason", "service does not implement Runner")
			continue
		}

		g.Add(
			func() error {
				logger.Debug("Running service", "service", s.Name())
				return runner.Run(ctx)
			},
			func(err error) {
				cancel()
				if err != nil {
					logger.Warn("service terminated", "service", s.Name(), "reason", err)
				}

				shutdowner, ok := s.(Shutdowner)
				if !ok {
					logger.Debug("skipping service shutting down", "service", s.Name(),
						"reason", "service does not implement Shutdowner interface")
					return
				}

				logger.Debug("shutting down", "service", s.Name())
				if shutdownErr := shutdowner.Shutdown(); shutdownErr != nil {
					logger.Warn("service shutdown failed with error", "service", s.Name(), "error", shutdownErr)
				}
			},
		)
	}

	return g.Run()
}
