// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package prometheus

import (
	"fmt"
	"log/slog"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sustainable-computing-io/joule-profiler/internal/exporter"
	collector "github.com/sustainable-computing-io/joule-profiler/internal/exporter/prometheus/collector"
	"github.com/sustainable-computing-io/joule-profiler/internal/measurement"
	"github.com/sustainable-computing-io/joule-profiler/internal/source"
)

const formatName = "Prometheus metrics"

type Opts struct {
	logger          *slog.Logger
	debugCollectors map[string]bool
	fileOpts        []exporter.FileOptionFn
}

// DefaultOpts() returns a new Opts with defaults set
func DefaultOpts() Opts {
	return Opts{
		logger:          slog.Default(),
		debugCollectors: map[string]bool{},
	}
}

// OptionFn is a function sets one more more options in Opts struct
type OptionFn func(*Opts)

// WithLogger sets the logger for the Exporter
func WithLogger(logger *slog.Logger) OptionFn {
	return func(o *Opts) {
		o.logger = logger
	}
}

// WithDebugCollectors sets the debug collectors
func WithDebugCollectors(c []string) OptionFn {
	return func(o *Opts) {
		// Reset existing collectors
		o.debugCollectors = make(map[string]bool)

		// Add each collector from the list
		for _, name := range c {
			o.debugCollectors[name] = true
		}
	}
}

// WithFileOptions sets the options of the output file
func WithFileOptions(opts ...exporter.FileOptionFn) OptionFn {
	return func(o *Opts) {
		o.fileOpts = append(o.fileOpts, opts...)
	}
}

// Exporter writes results in the Prometheus text exposition format, suitable
// for the node exporter textfile collector
type Exporter struct {
	*exporter.File
	logger          *slog.Logger
	debugCollectors map[string]bool
}

var _ exporter.Exporter = (*Exporter)(nil)

// NewExporter returns an exporter writing to path; a timestamped file in the
// working directory when path is empty
func NewExporter(path string, applyOpts ...OptionFn) *Exporter {
	opts := DefaultOpts()
	for _, apply := range applyOpts {
		apply(&opts)
	}

	logger := opts.logger.With("service", "prometheus")
	fileOpts := append([]exporter.FileOptionFn{exporter.WithLogger(logger)}, opts.fileOpts...)

	return &Exporter{
		File:            exporter.NewFile(path, "prom", fileOpts...),
		logger:          logger,
		debugCollectors: opts.debugCollectors,
	}
}

// Name implements service.Name
func (e *Exporter) Name() string {
	return "prometheus"
}

func collectorForName(name string) (prom.Collector, error) {
	switch name {
	case "go":
		return collectors.NewGoCollector(), nil
	case "process":
		return collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}), nil
	default:
		return nil, fmt.Errorf("unknown collector: %s", name)
	}
}

// Init creates the output file and validates the debug collectors
func (e *Exporter) Init() error {
	for c := range e.debugCollectors {
		if _, err := collectorForName(c); err != nil {
			e.logger.Error("Error creating collector", "collector", c, "error", err)
			return err
		}
	}
	return e.File.Init()
}

// CreateCollectors returns the collectors exposing report
func CreateCollectors(report *measurement.Report, logger *slog.Logger) map[string]prom.Collector {
	return map[string]prom.Collector{
		"build_info": collector.NewBuildInfoCollector(),
		"host_info":  collector.NewHostInfoCollector(report.Host),
		"report":     collector.NewReportCollector(report, logger),
	}
}

func (e *Exporter) Export(report *measurement.Report) error {
	e.logger.Info("Formatting report", "mode", report.Kind(), "iterations", report.Iterations())
	return e.write(CreateCollectors(report, e.logger))
}

func (e *Exporter) ExportSensors(sensors []source.Sensor) error {
	return e.write(map[string]prom.Collector{
		"build_info": collector.NewBuildInfoCollector(),
		"sensors":    collector.NewSensorCollector(sensors),
	})
}

func (e *Exporter) write(cs map[string]prom.Collector) error {
	registry := prom.NewRegistry()

	for c := range e.debugCollectors {
		debug, err := collectorForName(c)
		if err != nil {
			return err
		}
		e.logger.Debug("Enabling debug collector", "collector", c)
		registry.MustRegister(debug)
	}

	for name, c := range cs {
		e.logger.Debug("Enabling collector", "collector", name)
		if err := registry.Register(c); err != nil {
			return fmt.Errorf("failed to register collector %s: %w", name, err)
		}
	}

	if err := prom.WriteToTextfile(e.Path(), registry); err != nil {
		return fmt.Errorf("failed to write Prometheus output: %w", err)
	}
	if err := e.SetUserPermissions(); err != nil {
		return err
	}
	e.Written(formatName)
	return nil
}
