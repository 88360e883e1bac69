// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package measurement

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"

	"github.com/sustainable-computing-io/joule-profiler/internal/source"
	"k8s.io/utils/clock"
	"k8s.io/utils/ptr"
)

// Sources is the command protocol of the source manager
type Sources interface {
	StartWorkers()
	Start(ctx context.Context) error
	Measure(ctx context.Context) error
	Phase(ctx context.Context) error
	Join(ctx context.Context) (*source.Result, error)
}

var _ Sources = (*source.Manager)(nil)

type Opts struct {
	logger *slog.Logger
	clock  clock.PassiveClock
}

func DefaultOpts() Opts {
	return Opts{
		logger: slog.Default(),
		clock:  clock.RealClock{},
	}
}

// OptionFn is a function sets one more more options in Opts struct
type OptionFn func(*Opts)

// WithLogger sets the logger of the Runner
func WithLogger(logger *slog.Logger) OptionFn {
	return func(o *Opts) {
		o.logger = logger
	}
}

// WithClock sets the clock used to timestamp boundaries
func WithClock(c clock.PassiveClock) OptionFn {
	return func(o *Opts) {
		o.clock = c
	}
}

// Runner measures a workload using sources
type Runner struct {
	logger   *slog.Logger
	clock    clock.PassiveClock
	sources  Sources
	workload Workload
}

// NewRunner returns a Runner measuring workload with sources
func NewRunner(sources Sources, workload Workload, applyOpts ...OptionFn) *Runner {
	opts := DefaultOpts()
	for _, apply := range applyOpts {
		apply(&opts)
	}
	return &Runner{
		logger:   opts.logger.With("service", "runner"),
		clock:    opts.clock,
		sources:  sources,
		workload: workload,
	}
}

// send issues a command to the sources. Workers that already stopped are
// reported by Join, so failing to reach them only warrants a warning here.
func (r *Runner) send(ctx context.Context, ev source.Event, fn func(context.Context) error) error {
	err := fn(ctx)
	if err != nil && errors.Is(err, source.ErrWorkerStopped) && ctx.Err() == nil {
		r.logger.Warn("Command not delivered to every source", "event", ev, "error", err)
		return nil
	}
	return err
}

// abort joins the workers of a failed iteration so that none is left running,
// also when the failure is a canceled ctx
func (r *Runner) abort(ctx context.Context, cause error) error {
	if _, err := r.sources.Join(context.WithoutCancel(ctx)); err != nil {
		r.logger.Debug("Join after failure", "error", err)
	}
	return cause
}

// RunSimple measures the workload as a single window
func (r *Runner) RunSimple(ctx context.Context) (*Result, error) {
	r.logger.Info("Running simple measurement", "command", strings.Join(r.workload.Command(), " "))

	r.sources.StartWorkers()
	if err := r.send(ctx, source.Start, r.sources.Start); err != nil {
		return nil, r.abort(ctx, err)
	}

	begin := r.clock.Now()
	if err := r.send(ctx, source.Measure, r.sources.Measure); err != nil {
		return nil, r.abort(ctx, err)
	}

	exitCode, err := r.workload.Run(nil)
	if err != nil {
		return nil, r.abort(ctx, err)
	}

	if err := r.send(ctx, source.Measure, r.sources.Measure); err != nil {
		return nil, r.abort(ctx, err)
	}
	end := r.clock.Now()

	joined, err := r.sources.Join(ctx)
	if err != nil {
		return nil, err
	}

	var metrics source.Metrics
	for _, m := range joined.Measures {
		metrics = append(metrics, m...)
	}
	slices.SortStableFunc(metrics, func(a, b source.Metric) int {
		return strings.Compare(a.Name, b.Name)
	})

	return &Result{
		Metrics:      metrics,
		Duration:     end.Sub(begin),
		ExitCode:     exitCode,
		MeasureCount: joined.Count,
		MeasureDelta: joined.MeasureDelta,
	}, nil
}

// RunPhases measures the workload as consecutive windows bounded by the tokens
// that matcher finds in its output
func (r *Runner) RunPhases(ctx context.Context, matcher TokenMatcher) (*PhaseMeasurementResult, error) {
	r.logger.Info("Running phase measurement",
		"command", strings.Join(r.workload.Command(), " "),
		"pattern", matcher.Pattern())

	r.sources.StartWorkers()
	if err := r.send(ctx, source.Start, r.sources.Start); err != nil {
		return nil, r.abort(ctx, err)
	}

	begin := r.clock.Now()
	phases := []Phase{{Token: StartToken(), Timestamp: begin}}
	if err := r.send(ctx, source.Measure, r.sources.Measure); err != nil {
		return nil, r.abort(ctx, err)
	}

	exitCode, err := r.workload.Run(func(line string, number int) error {
		token, ok := matcher.Match(line)
		if !ok {
			return nil
		}

		ts := r.clock.Now()
		if err := r.send(ctx, source.Phase, r.sources.Phase); err != nil {
			return err
		}
		r.logger.Debug("Detected token", "token", token, "line", number)
		phases = append(phases, Phase{Token: NamedToken(token), Timestamp: ts, Line: ptr.To(number)})
		return nil
	})
	if err != nil {
		return nil, r.abort(ctx, err)
	}

	if err := r.send(ctx, source.Measure, r.sources.Measure); err != nil {
		return nil, r.abort(ctx, err)
	}
	end := r.clock.Now()
	phases = append(phases, Phase{Token: EndToken(), Timestamp: end})

	joined, err := r.sources.Join(ctx)
	if err != nil {
		return nil, err
	}

	windows := len(phases) - 1
	if len(joined.Measures) < windows {
		r.logger.Warn("Sources reported fewer windows than boundaries",
			"windows", windows, "reported", len(joined.Measures))
	}

	results := make([]PhaseResult, 0, windows)
	for i := range windows {
		metrics := source.Metrics{}
		if i < len(joined.Measures) {
			metrics = joined.Measures[i]
		}
		results = append(results, NewPhaseResult(phases[i], phases[i+1], metrics))
	}

	return &PhaseMeasurementResult{
		Phases:   results,
		Duration: end.Sub(begin),
		ExitCode: exitCode,
	}, nil
}
