// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package csv

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jszwec/csvutil"
	"github.com/sustainable-computing-io/joule-profiler/internal/exporter"
	"github.com/sustainable-computing-io/joule-profiler/internal/measurement"
	"github.com/sustainable-computing-io/joule-profiler/internal/source"
)

const (
	formatName = "CSV"
	separator  = ';'
)

// Exporter writes results as semicolon separated values, one row per metric
type Exporter struct {
	*exporter.File
	logger *slog.Logger
}

var _ exporter.Exporter = (*Exporter)(nil)

// NewExporter returns an exporter writing to path; a timestamped file in the
// working directory when path is empty
func NewExporter(path string, logger *slog.Logger, opts ...exporter.FileOptionFn) *Exporter {
	logger = logger.With("service", "csv")
	opts = append([]exporter.FileOptionFn{exporter.WithLogger(logger)}, opts...)
	return &Exporter{
		File:   exporter.NewFile(path, "csv", opts...),
		logger: logger,
	}
}

func (e *Exporter) Name() string {
	return "csv"
}

type simpleRow struct {
	Command   string `csv:"command"`
	Iteration int    `csv:"iteration"`
	source.Metric
	DurationMs     int64  `csv:"duration_ms"`
	MeasureCount   uint64 `csv:"measure_count"`
	MeasureDeltaUs int64  `csv:"measure_delta_us"`
	ExitCode       int    `csv:"exit_code"`
}

type phaseRow struct {
	Command    string  `csv:"command"`
	Iteration  int     `csv:"iteration"`
	Phase      string  `csv:"phase_name"`
	StartToken *string `csv:"start_token"`
	EndToken   *string `csv:"end_token"`
	StartLine  *int    `csv:"start_line"`
	EndLine    *int    `csv:"end_line"`
	source.Metric
	DurationMs int64 `csv:"duration_ms"`
	ExitCode   int   `csv:"exit_code"`
}

// Rows returns the CSV rows of report, iterations numbered from 1
func Rows(report *measurement.Report) any {
	command := strings.Join(report.Command, " ")

	if report.Mode == measurement.PhasesMode {
		rows := []phaseRow{}
		for i, r := range report.Phases {
			for _, p := range r.Phases {
				for _, m := range p.Metrics {
					rows = append(rows, phaseRow{
						Command:    command,
						Iteration:  i + 1,
						Phase:      p.Name,
						StartToken: p.StartToken,
						EndToken:   p.EndToken,
						StartLine:  p.StartLine,
						EndLine:    p.EndLine,
						Metric:     m,
						DurationMs: p.Duration.Milliseconds(),
						ExitCode:   r.ExitCode,
					})
				}
			}
		}
		return rows
	}

	rows := []simpleRow{}
	for i, r := range report.Simple {
		for _, m := range r.Metrics {
			rows = append(rows, simpleRow{
				Command:        command,
				Iteration:      i + 1,
				Metric:         m,
				DurationMs:     r.Duration.Milliseconds(),
				MeasureCount:   r.MeasureCount,
				MeasureDeltaUs: r.MeasureDelta.Microseconds(),
				ExitCode:       r.ExitCode,
			})
		}
	}
	return rows
}

func (e *Exporter) Export(report *measurement.Report) error {
	rows := Rows(report)
	e.logger.Info("Formatting report", "mode", report.Kind(), "iterations", report.Iterations())

	var header any = simpleRow{}
	if report.Mode == measurement.PhasesMode {
		header = phaseRow{}
	}
	return e.write(header, rows)
}

func (e *Exporter) ExportSensors(sensors []source.Sensor) error {
	return e.write(source.Sensor{}, sensors)
}

func (e *Exporter) write(header, rows any) error {
	w := csv.NewWriter(e.Writer())
	w.Comma = separator

	enc := csvutil.NewEncoder(w)
	if err := enc.EncodeHeader(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	if err := enc.Encode(rows); err != nil {
		return fmt.Errorf("failed to write CSV rows: %w", err)
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to write CSV output: %w", err)
	}
	e.Written(formatName)
	return nil
}
