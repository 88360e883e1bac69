// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package stdout

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/sustainable-computing-io/joule-profiler/internal/device"
	"github.com/sustainable-computing-io/joule-profiler/internal/exporter"
	"github.com/sustainable-computing-io/joule-profiler/internal/measurement"
	"github.com/sustainable-computing-io/joule-profiler/internal/source"
)

// Exporter renders results as tables on a terminal
type Exporter struct {
	logger *slog.Logger
	out    io.Writer
	colors *ColorScheme
}

var _ exporter.Exporter = (*Exporter)(nil)

type Opts struct {
	logger *slog.Logger
	out    io.Writer
	colors *ColorScheme
}

// DefaultOpts() returns a new Opts with defaults set
func DefaultOpts() Opts {
	return Opts{
		logger: slog.Default(),
		out:    os.Stdout,
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

// WithOutput sets the writer the tables are rendered to
func WithOutput(out io.Writer) OptionFn {
	return func(o *Opts) {
		o.out = out
	}
}

// WithColorScheme overrides the color scheme detected from the output
func WithColorScheme(colors *ColorScheme) OptionFn {
	return func(o *Opts) {
		o.colors = colors
	}
}

func NewExporter(applyOpts ...OptionFn) *Exporter {
	opts := DefaultOpts()
	for _, apply := range applyOpts {
		apply(&opts)
	}

	colors := opts.colors
	if colors == nil {
		f, _ := opts.out.(*os.File)
		colors = SchemeFor(f, false)
	}

	return &Exporter{
		logger: opts.logger.With("service", "stdout"),
		out:    opts.out,
		colors: colors,
	}
}

// Name implements service.Name
func (e *Exporter) Name() string {
	return "stdout"
}

func (e *Exporter) Export(report *measurement.Report) error {
	e.logger.Debug("Rendering report", "mode", report.Kind(), "iterations", report.Iterations())

	e.colors.Title.Fprintf(e.out, "\nEnergy profile (%s)\n", report.Kind())
	e.label("Command", e.colors.Command.Sprint(strings.Join(report.Command, " ")))
	if report.Host.Hostname != "" {
		e.label("Host", fmt.Sprintf("%s, %d socket(s), %d cpu(s)",
			report.Host.Hostname, report.Host.Sockets, report.Host.CPUs))
	}
	if report.Mode == measurement.PhasesMode {
		e.label("Token pattern", report.TokenPattern)
	}

	many := report.Iterations() > 1
	switch report.Mode {
	case measurement.PhasesMode:
		for i, r := range report.Phases {
			if many {
				e.colors.Highlight.Fprintf(e.out, "\nIteration %d/%d\n", i+1, len(report.Phases))
			}
			if err := e.writePhases(r); err != nil {
				return err
			}
		}
		if many {
			return e.writeStats(phasesSeries(report.Phases))
		}
	default:
		for i, r := range report.Simple {
			if many {
				e.colors.Highlight.Fprintf(e.out, "\nIteration %d/%d\n", i+1, len(report.Simple))
			}
			if err := e.writeSimple(r); err != nil {
				return err
			}
		}
		if many {
			return e.writeStats(simpleSeries(report.Simple))
		}
	}
	return nil
}

func (e *Exporter) ExportSensors(sensors []source.Sensor) error {
	if len(sensors) == 0 {
		fmt.Fprintln(e.out, "No sensors available.")
		return nil
	}

	rows := make([][]string, 0, len(sensors))
	for _, s := range sensors {
		rows = append(rows, []string{s.Name, s.Unit, s.Source})
	}
	return e.render([]string{"Sensor", "Unit", "Source"}, rows, tw.AlignLeft)
}

func (e *Exporter) writeSimple(r *measurement.Result) error {
	fmt.Fprintln(e.out)
	if err := e.writeMetrics(r.Metrics, r.Duration); err != nil {
		return err
	}

	e.label("Duration", r.Duration.Round(time.Millisecond).String())
	e.exitCode(r.ExitCode)
	e.label("Samples", strconv.FormatUint(r.MeasureCount, 10))
	e.label("Average interval", r.MeasureDelta.String())
	return nil
}

func (e *Exporter) writePhases(r *measurement.PhaseMeasurementResult) error {
	for _, p := range r.Phases {
		e.colors.Phase.Fprintf(e.out, "\n%s", p.Name)
		if bounds := lines(p.StartLine, p.EndLine); bounds != "" {
			fmt.Fprintf(e.out, " (%s)", bounds)
		}
		fmt.Fprintf(e.out, "  %s\n", p.Duration.Round(time.Millisecond))

		if err := e.writeMetrics(p.Metrics, p.Duration); err != nil {
			return err
		}
	}

	fmt.Fprintln(e.out)
	e.label("Duration", r.Duration.Round(time.Millisecond).String())
	e.exitCode(r.ExitCode)
	return nil
}

func (e *Exporter) writeMetrics(metrics source.Metrics, d time.Duration) error {
	if len(metrics) == 0 {
		fmt.Fprintln(e.out, "No metrics.")
		return nil
	}

	// domains nest, so the counters are not summed
	rows := make([][]string, 0, len(metrics))
	for _, m := range metrics {
		rows = append(rows, metricRow(m.Name, m.Value, m.Unit, m.Source, d))
	}
	return e.render([]string{"Metric", "Energy (J)", "Value", "Power (W)", "Source"}, rows, tw.AlignRight)
}

func metricRow(name string, value uint64, unit, src string, d time.Duration) []string {
	joules, watts := "-", "-"
	if unit == device.EnergyUnit {
		energy := device.Energy(value)
		joules = fmt.Sprintf("%.6f", energy.Joules())
		watts = fmt.Sprintf("%.3f", energy.Over(d).Watts())
	}
	return []string{name, joules, fmt.Sprintf("%d %s", value, unit), watts, src}
}

func (e *Exporter) writeStats(s *series) error {
	e.colors.Title.Fprintln(e.out, "\nStatistics across iterations (µJ)")

	summary := s.summarize()
	rows := make([][]string, 0, len(summary))
	for _, st := range summary {
		rows = append(rows, []string{
			st.Key,
			strconv.FormatInt(st.Samples, 10),
			fmt.Sprintf("%.0f", st.Mean),
			fmt.Sprintf("%.0f", st.StdDev),
			strconv.FormatUint(st.Min, 10),
			strconv.FormatUint(st.Max, 10),
			strconv.FormatUint(st.P50, 10),
			strconv.FormatUint(st.P95, 10),
		})
	}
	return e.render([]string{"Metric", "N", "Mean", "StdDev", "Min", "Max", "~P50", "~P95"}, rows, tw.AlignRight)
}

func (e *Exporter) render(header []string, rows [][]string, align tw.Align) error {
	table := tablewriter.NewWriter(e.out)
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = align
	})
	table.Header(header)
	if err := table.Bulk(rows); err != nil {
		return fmt.Errorf("failed to build table: %w", err)
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}
	return nil
}

func (e *Exporter) label(name, value string) {
	fmt.Fprintf(e.out, "%s %s\n", e.colors.Label.Sprint(name+":"), value)
}

func (e *Exporter) exitCode(code int) {
	c := e.colors.Success
	if code != 0 {
		c = e.colors.Failure
	}
	e.label("Exit code", c.Sprint(code))
}

func lines(start, end *int) string {
	switch {
	case start != nil && end != nil:
		return fmt.Sprintf("lines %d-%d", *start, *end)
	case start != nil:
		return fmt.Sprintf("from line %d", *start)
	case end != nil:
		return fmt.Sprintf("to line %d", *end)
	default:
		return ""
	}
}
