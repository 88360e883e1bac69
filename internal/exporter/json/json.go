// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package json

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sustainable-computing-io/joule-profiler/internal/exporter"
	"github.com/sustainable-computing-io/joule-profiler/internal/host"
	"github.com/sustainable-computing-io/joule-profiler/internal/measurement"
	"github.com/sustainable-computing-io/joule-profiler/internal/source"
)

const formatName = "JSON"

// Exporter writes results as an indented JSON document
type Exporter struct {
	*exporter.File
	logger *slog.Logger
}

var _ exporter.Exporter = (*Exporter)(nil)

// NewExporter returns an exporter writing to path; a timestamped file in the
// working directory when path is empty
func NewExporter(path string, logger *slog.Logger, opts ...exporter.FileOptionFn) *Exporter {
	logger = logger.With("service", "json")
	opts = append([]exporter.FileOptionFn{exporter.WithLogger(logger)}, opts...)
	return &Exporter{
		File:   exporter.NewFile(path, "json", opts...),
		logger: logger,
	}
}

func (e *Exporter) Name() string {
	return "json"
}

type simpleIteration struct {
	Iteration      int            `json:"iteration,omitempty"`
	Metrics        source.Metrics `json:"metrics"`
	DurationMs     int64          `json:"duration_ms"`
	ExitCode       int            `json:"exit_code"`
	MeasureCount   uint64         `json:"measure_count"`
	MeasureDeltaUs int64          `json:"measure_delta_us"`
}

type phase struct {
	Name       string         `json:"name"`
	StartToken *string        `json:"start_token,omitempty"`
	EndToken   *string        `json:"end_token,omitempty"`
	StartLine  *int           `json:"start_line,omitempty"`
	EndLine    *int           `json:"end_line,omitempty"`
	Metrics    source.Metrics `json:"metrics"`
	DurationMs int64          `json:"duration_ms"`
}

type phasesIteration struct {
	Iteration  int     `json:"iteration,omitempty"`
	ExitCode   int     `json:"exit_code"`
	DurationMs int64   `json:"duration_ms"`
	Phases     []phase `json:"phases"`
}

type header struct {
	Command      string    `json:"command"`
	Mode         string    `json:"mode"`
	TokenPattern string    `json:"token_pattern,omitempty"`
	Host         host.Info `json:"host"`
}

type simpleDocument struct {
	header
	simpleIteration
}

type phasesDocument struct {
	header
	ExitCode   int     `json:"exit_code"`
	DurationMs int64   `json:"duration_ms"`
	Phases     []phase `json:"phases"`
}

type iterationsDocument struct {
	header
	Iterations any `json:"iterations"`
}

func milliseconds(d time.Duration) int64 {
	return d.Milliseconds()
}

func toSimple(idx int, r *measurement.Result) *simpleIteration {
	return &simpleIteration{
		Iteration:      idx,
		Metrics:        nonNil(r.Metrics),
		DurationMs:     milliseconds(r.Duration),
		ExitCode:       r.ExitCode,
		MeasureCount:   r.MeasureCount,
		MeasureDeltaUs: r.MeasureDelta.Microseconds(),
	}
}

func toPhases(r *measurement.PhaseMeasurementResult) []phase {
	phases := make([]phase, 0, len(r.Phases))
	for _, p := range r.Phases {
		phases = append(phases, phase{
			Name:       p.Name,
			StartToken: p.StartToken,
			EndToken:   p.EndToken,
			StartLine:  p.StartLine,
			EndLine:    p.EndLine,
			Metrics:    nonNil(p.Metrics),
			DurationMs: milliseconds(p.Duration),
		})
	}
	return phases
}

func nonNil(m source.Metrics) source.Metrics {
	if m == nil {
		return source.Metrics{}
	}
	return m
}

// Document returns the JSON representation of report
func Document(report *measurement.Report) any {
	h := header{
		Command: strings.Join(report.Command, " "),
		Mode:    report.Kind(),
		Host:    report.Host,
	}
	if report.Mode == measurement.PhasesMode {
		h.TokenPattern = report.TokenPattern
	}

	switch {
	case report.Mode == measurement.SimpleMode && len(report.Simple) == 1:
		return simpleDocument{header: h, simpleIteration: *toSimple(0, report.Simple[0])}

	case report.Mode == measurement.SimpleMode:
		iterations := make([]*simpleIteration, 0, len(report.Simple))
		for i, r := range report.Simple {
			iterations = append(iterations, toSimple(i+1, r))
		}
		return iterationsDocument{header: h, Iterations: iterations}

	case len(report.Phases) == 1:
		r := report.Phases[0]
		return phasesDocument{
			header:     h,
			ExitCode:   r.ExitCode,
			DurationMs: milliseconds(r.Duration),
			Phases:     toPhases(r),
		}

	default:
		iterations := make([]phasesIteration, 0, len(report.Phases))
		for i, r := range report.Phases {
			iterations = append(iterations, phasesIteration{
				Iteration:  i + 1,
				ExitCode:   r.ExitCode,
				DurationMs: milliseconds(r.Duration),
				Phases:     toPhases(r),
			})
		}
		return iterationsDocument{header: h, Iterations: iterations}
	}
}

func (e *Exporter) Export(report *measurement.Report) error {
	e.logger.Info("Formatting report", "mode", report.Kind(), "iterations", report.Iterations())
	return e.write(Document(report))
}

func (e *Exporter) ExportSensors(sensors []source.Sensor) error {
	if sensors == nil {
		sensors = []source.Sensor{}
	}
	return e.write(sensors)
}

func (e *Exporter) write(v any) error {
	enc := json.NewEncoder(e.Writer())
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to write JSON output: %w", err)
	}
	e.Written(formatName)
	return nil
}
