// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
)

// Init initializes all services that implement the Initializer interface.
// If any service fails to initialize, it will shut down all previously initialized services
// that implement the Shutdowner interface, in reverse order.
func Init(logger *slog.Logger, services []Service) error {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}

	initialized := make([]Service, 0, len(services))

	for _, s := range services {
		srv, ok := s.(Initializer)
		if !ok {
			logger.Debug("skipping service initialization", "service", s.Name(),
				"reason", "service does not implement Initializer")
			continue
		}

		logger.Debug("Initializing service", "service", s.Name())
		if err := srv.Init(); err != nil {
			logger.Info("Shutting down initialized services")
			if shutdownErr := shutdown(logger, initialized); shutdownErr != nil {
				logger.Error("failed to shutdown services", "error", shutdownErr)
			}
			return fmt.Errorf("failed to initialize service %s: %w", s.Name(), err)
		}
		initialized = append(initialized, s)
	}

	return nil
}

// Shutdown shuts down, in reverse order, the services that implement Shutdowner
// but not Runner; Run takes care of the latter.
func Shutdown(logger *slog.Logger, services []Service) error {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	idle := slices.DeleteFunc(slices.Clone(services), func(s Service) bool {
		_, ok := s.(Runner)
		return ok
	})
	return shutdown(logger, idle)
}

func shutdown(logger *slog.Logger, services []Service) error {
	var errs []error
	for _, s := range slices.Backward(services) {
		srv, ok := s.(Shutdowner)
		if !ok {
			logger.Debug("skipping service shutdown", "service", s.Name(),
				"reason", "service does not implement Shutdowner")
			continue
		}
		if err := srv.Shutdown(); err != nil {
			logger.Error("failed to shutdown service", "service", s.Name(), "error", err)
			errs = append(errs, fmt.Errorf("failed to shutdown service %s: %w", s.Name(), err))
			continue
		}
		logger.Debug("service shutdown successfully", "service", s.Name())
	}
	return errors.Join(errs...)
}
