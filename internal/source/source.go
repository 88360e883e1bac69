// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package source

import (
	"time"
)

// Event is a command sent to a source worker
type Event int

const (
	// Start resumes periodic sampling
	Start Event = iota
	// Pause suspends periodic sampling; other events are still processed
	Pause
	// Measure takes a sample immediately
	Measure
	// Phase takes a sample and closes the current window
	Phase
	// Stop terminates the worker which then reports its result
	Stop
)

func (e Event) String() string {
	switch e {
	case Start:
		return "start"
	case Pause:
		return "pause"
	case Measure:
		return "measure"
	case Phase:
		return "phase"
	case Stop:
		return "stop"
	default:
		return "unknown"
	}
}

// Metric is a single named value reported by a source
type Metric struct {
	Name   string `json:"name" csv:"metric"`
	Value  uint64 `json:"value" csv:"value"`
	Unit   string `json:"unit" csv:"unit"`
	Source string `json:"source" csv:"source"`
}

// Metrics holds the metrics of one window
type Metrics []Metric

// Total returns the sum of all values
func (m Metrics) Total() uint64 {
	var total uint64
	for _, metric := range m {
		total += metric.Value
	}
	return total
}

// Sensor describes a metric a source can report
type Sensor struct {
	Name   string `json:"name" csv:"sensor"`
	Unit   string `json:"unit" csv:"unit"`
	Source string `json:"source" csv:"source"`
}

// Result is the outcome of a source run: the metrics of every closed window in
// order, the number of samples taken and the average interval between them
type Result struct {
	Measures     []Metrics
	Count        uint64
	MeasureDelta time.Duration
}

// Reader is a live, stateful measurement source. A Reader is owned by a single
// worker and is not safe for concurrent use.
type Reader interface {
	// Measure takes a sample and adds the difference to the previous sample to the
	// open window. The first call only establishes a baseline.
	Measure() error

	// Phase takes a sample and closes the open window, even if it is empty
	Phase() error

	// Retrieve closes the open window if it has values and returns all windows
	Retrieve() (*Result, error)
}

// Template is the immutable configuration of a source from which a fresh Reader
// is created for every measurement run
type Template interface {
	// Name returns the tag attached to every metric of the source
	Name() string

	// Sensors returns the static list of metrics the source reports
	Sensors() []Sensor

	// PollingInterval returns the sampling period; zero disables periodic sampling
	PollingInterval() time.Duration

	// NewReader returns a Reader with zeroed state
	NewReader() Reader
}
