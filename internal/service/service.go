// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package service

import "context"

// Service is a named component of the profiler; what else it does is
// discovered through the optional interfaces below
type Service interface {
	// Name returns the name of the service
	Name() string
}

// Initializer is implemented by services that must validate their settings
// or acquire resources (counters, output files) before anything is measured
type Initializer interface {
	Service
	Init() error
}

// Runner is implemented by services that do their work in Run
type Runner interface {
	Service
	// Run blocks until the work is done or ctx is canceled; it must be safe to
	// call from its own goroutine
	Run(ctx context.Context) error
}

// Shutdowner is implemented by services holding resources that must be
// released, such as open files
type Shutdowner interface {
	Service
	// Shutdown releases the resources of the service
	Shutdown() error
}
