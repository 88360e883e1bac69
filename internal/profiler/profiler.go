// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package profiler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/sustainable-computing-io/joule-profiler/internal/device"
	"github.com/sustainable-computing-io/joule-profiler/internal/exporter"
	"github.com/sustainable-computing-io/joule-profiler/internal/host"
	"github.com/sustainable-computing-io/joule-profiler/internal/measurement"
	"github.com/sustainable-computing-io/joule-profiler/internal/service"
	"github.com/sustainable-computing-io/joule-profiler/internal/source"
	"k8s.io/utils/clock"
)

// Command selects what the profiler does when run
type Command string

const (
	// Simple measures the workload as a single window
	Simple Command = "simple"
	// Phases splits the measurement at the tokens printed by the workload
	Phases Command = "phases"
	// ListSensors reports the available sensors without running a workload
	ListSensors Command = "list-sensors"
)

// ErrInvalidIterations is returned when fewer than one iteration is requested
var ErrInvalidIterations = errors.New("iterations must be at least 1")

type Opts struct {
	logger         *slog.Logger
	clock          clock.WithTicker
	raplPath       string
	sockets        []int
	polling        time.Duration
	procfs         string
	iterations     int
	tokenPattern   string
	args           []string
	workloadOutput string
	stdout         io.Writer
	getenv         func(string) string
	zones          []device.EnergyZone
}

// DefaultOpts() returns a new Opts with defaults set
func DefaultOpts() Opts {
	return Opts{
		logger:       slog.Default(),
		clock:        clock.RealClock{},
		raplPath:     "/sys/" + device.DefaultRaplPath,
		procfs:       "/proc",
		iterations:   1,
		tokenPattern: measurement.DefaultTokenPattern,
		stdout:       os.Stdout,
		getenv:       os.Getenv,
	}
}

// OptionFn is a function sets one more more options in Opts struct
type OptionFn func(*Opts)

// WithLogger sets the logger for the Profiler
func WithLogger(logger *slog.Logger) OptionFn {
	return func(o *Opts) {
		o.logger = logger
	}
}

// WithClock sets the clock used for sampling and timestamps
func WithClock(c clock.WithTicker) OptionFn {
	return func(o *Opts) {
		o.clock = c
	}
}

// WithRaplPath sets the powercap root to discover RAPL domains in
func WithRaplPath(path string) OptionFn {
	return func(o *Opts) {
		o.raplPath = path
	}
}

// WithSockets restricts measurements to sockets; nil measures all of them
func WithSockets(sockets []int) OptionFn {
	return func(o *Opts) {
		o.sockets = sockets
	}
}

// WithPollingInterval enables periodic sampling of the counters; 0 disables it
func WithPollingInterval(d time.Duration) OptionFn {
	return func(o *Opts) {
		o.polling = d
	}
}

// WithProcFSPath sets the procfs mount point used to describe the host
func WithProcFSPath(procfs string) OptionFn {
	return func(o *Opts) {
		o.procfs = procfs
	}
}

// WithIterations sets how many times the workload is measured
func WithIterations(n int) OptionFn {
	return func(o *Opts) {
		o.iterations = n
	}
}

// WithTokenPattern sets the pattern of phase tokens
func WithTokenPattern(pattern string) OptionFn {
	return func(o *Opts) {
		o.tokenPattern = pattern
	}
}

// WithCommand sets the workload command line
func WithCommand(args []string) OptionFn {
	return func(o *Opts) {
		o.args = args
	}
}

// WithWorkloadOutput redirects the standard output of the workload to path
func WithWorkloadOutput(path string) OptionFn {
	return func(o *Opts) {
		o.workloadOutput = path
	}
}

// WithStdout sets where the workload output goes when it is not redirected
func WithStdout(w io.Writer) OptionFn {
	return func(o *Opts) {
		o.stdout = w
	}
}

// WithGetenv sets the environment lookup used to find the sudo user
func WithGetenv(getenv func(string) string) OptionFn {
	return func(o *Opts) {
		o.getenv = getenv
	}
}

// withZones skips discovery and measures zones
func withZones(zones []device.EnergyZone) OptionFn {
	return func(o *Opts) {
		o.zones = zones
	}
}

// Profiler discovers the energy counters of the host, measures a workload
// with them and hands the results to an exporter
type Profiler struct {
	logger   *slog.Logger
	command  Command
	exporter exporter.Exporter
	opts     Opts

	host     host.Info
	manager  *source.Manager
	matcher  measurement.TokenMatcher
	workload measurement.Workload
	output   *os.File
	report   *measurement.Report
}

var (
	_ service.Initializer = (*Profiler)(nil)
	_ service.Runner      = (*Profiler)(nil)
	_ service.Shutdowner  = (*Profiler)(nil)
)

// NewProfiler returns a profiler running command and exporting to exp
func NewProfiler(command Command, exp exporter.Exporter, applyOpts ...OptionFn) *Profiler {
	opts := DefaultOpts()
	for _, apply := range applyOpts {
		apply(&opts)
	}

	return &Profiler{
		logger:   opts.logger.With("service", "profiler"),
		command:  command,
		exporter: exp,
		opts:     opts,
	}
}

// Name implements service.Name
func (p *Profiler) Name() string {
	return "profiler"
}

// Init discovers the energy counters and prepares the workload
func (p *Profiler) Init() error {
	switch p.command {
	case Simple, Phases:
		if len(p.opts.args) == 0 {
			return measurement.ErrNoCommand
		}
		if p.opts.iterations < 1 {
			return fmt.Errorf("%w: got %d", ErrInvalidIterations, p.opts.iterations)
		}
	case ListSensors:
	default:
		return fmt.Errorf("unknown command: %q", p.command)
	}

	zones, err := p.discover()
	if err != nil {
		return err
	}

	rapl := source.NewRaplSource(zones,
		source.WithPollingInterval(p.opts.polling),
		source.WithRaplClock(p.opts.clock),
		source.WithRaplLogger(p.opts.logger),
	)
	p.manager = source.NewManager([]source.Template{rapl},
		source.WithLogger(p.opts.logger),
		source.WithClock(p.opts.clock),
	)

	if p.command == ListSensors {
		return nil
	}

	p.host = p.describeHost()

	if p.command == Phases {
		matcher, err := measurement.NewRegexpMatcher(p.opts.tokenPattern)
		if err != nil {
			return err
		}
		p.matcher = matcher
	}

	return p.prepareWorkload()
}

func (p *Profiler) discover() ([]device.EnergyZone, error) {
	if p.opts.zones != nil {
		return p.opts.zones, nil
	}

	opts := []device.OptionFn{device.WithRaplLogger(p.opts.logger)}
	// every sensor is listed regardless of the socket filter
	if p.command != ListSensors && p.opts.sockets != nil {
		opts = append(opts, device.WithSocketFilter(p.opts.sockets))
	}

	zones, err := device.Discover(p.opts.raplPath, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to discover RAPL domains: %w", err)
	}
	p.logger.Info("Discovered RAPL domains", "count", len(zones), "sockets", device.Sockets(zones))
	return zones, nil
}

// describeHost returns what can be learned about the host; failures only
// leave fields empty
func (p *Profiler) describeHost() host.Info {
	info, err := host.Describe(p.opts.procfs)
	if err == nil {
		return info
	}

	p.logger.Warn("Failed to describe host", "error", err)
	if name, err := os.Hostname(); err == nil {
		info.Hostname = name
	}
	return info
}

func (p *Profiler) prepareWorkload() error {
	stdout := p.opts.stdout
	if p.opts.workloadOutput != "" {
		f, err := measurement.CreateUserFile(p.opts.workloadOutput, p.opts.getenv)
		if err != nil {
			return fmt.Errorf("failed to create workload output file: %w", err)
		}
		p.logger.Info("Redirecting workload output", "path", p.opts.workloadOutput)
		p.output = f
		stdout = f
	}

	workload, err := measurement.NewCommandWorkload(p.opts.args, stdout, p.opts.logger)
	if err != nil {
		return err
	}
	p.workload = workload
	return nil
}

// Run performs the command and exports its results
func (p *Profiler) Run(ctx context.Context) error {
	if p.command == ListSensors {
		sensors := p.manager.Sensors()
		p.logger.Info("Listing sensors", "count", len(sensors))
		return p.exporter.ExportSensors(sensors)
	}

	report, err := p.profile(ctx)
	if err != nil {
		return err
	}
	p.report = report
	return p.exporter.Export(report)
}

func (p *Profiler) profile(ctx context.Context) (*measurement.Report, error) {
	report := &measurement.Report{
		Command: p.opts.args,
		Mode:    measurement.SimpleMode,
		Host:    p.host,
	}
	if p.command == Phases {
		report.Mode = measurement.PhasesMode
		report.TokenPattern = p.matcher.Pattern()
	}

	p.logger.Info("Profiling workload",
		"command", strings.Join(p.opts.args, " "),
		"mode", report.Mode,
		"iterations", p.opts.iterations)

	for i := range p.opts.iterations {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		runner := measurement.NewRunner(p.manager, p.workload,
			measurement.WithLogger(p.opts.logger.With("iteration", i+1)),
			measurement.WithClock(p.opts.clock),
		)

		switch p.command {
		case Phases:
			r, err := runner.RunPhases(ctx, p.matcher)
			if err != nil {
				return nil, fmt.Errorf("iteration %d failed: %w", i+1, err)
			}
			report.Phases = append(report.Phases, r)
		default:
			r, err := runner.RunSimple(ctx)
			if err != nil {
				return nil, fmt.Errorf("iteration %d failed: %w", i+1, err)
			}
			report.Simple = append(report.Simple, r)
		}
	}
	return report, nil
}

// Report returns the report of the last Run; nil before it completes
func (p *Profiler) Report() *measurement.Report {
	return p.report
}

// Shutdown closes the workload output file
func (p *Profiler) Shutdown() error {
	if p.output == nil {
		return nil
	}
	err := p.output.Close()
	p.output = nil
	return err
}
