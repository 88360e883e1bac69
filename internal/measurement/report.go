// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package measurement

import (
	"github.com/sustainable-computing-io/joule-profiler/internal/host"
)

// Mode is the windowing policy of a profile run
type Mode string

const (
	SimpleMode Mode = "simple"
	PhasesMode Mode = "phases"
)

// Report gathers the results of every iteration of a profile run
type Report struct {
	Command      []string
	Mode         Mode
	TokenPattern string
	Host         host.Info

	// Simple holds one result per iteration in SimpleMode
	Simple []*Result
	// Phases holds one result per iteration in PhasesMode
	Phases []*PhaseMeasurementResult
}

// Iterations returns the number of iterations held by the report
func (r *Report) Iterations() int {
	if r.Mode == PhasesMode {
		return len(r.Phases)
	}
	return len(r.Simple)
}

// Kind returns the mode, suffixed with "-iterations" when the report holds
// more than one iteration
func (r *Report) Kind() string {
	if r.Iterations() > 1 {
		return string(r.Mode) + "-iterations"
	}
	return string(r.Mode)
}
