// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package exporter

import (
	"github.com/sustainable-computing-io/joule-profiler/internal/measurement"
	"github.com/sustainable-computing-io/joule-profiler/internal/service"
	"github.com/sustainable-computing-io/joule-profiler/internal/source"
)

// Exporter renders profile results
type Exporter interface {
	service.Service

	// Export writes the results of a profile run
	Export(report *measurement.Report) error

	// ExportSensors writes the list of available sensors
	ExportSensors(sensors []source.Sensor) error
}
