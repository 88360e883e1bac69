// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"k8s.io/utils/clock"
)

// commandBuffer is the capacity of each worker's command channel
const commandBuffer = 4

var (
	// ErrWorkerStopped is returned when a command is sent to a worker that has terminated
	ErrWorkerStopped = errors.New("source worker stopped")

	// ErrNoWorkers is returned when commands are sent before StartWorkers
	ErrNoWorkers = errors.New("no source workers running")

	// ErrNoSurvivingSources is returned by Join when every worker failed
	ErrNoSurvivingSources = errors.New("no source completed successfully")

	// ErrWorkerPanicked wraps a panic raised by a source reader
	ErrWorkerPanicked = errors.New("source worker panicked")
)

type Opts struct {
	logger *slog.Logger
	clock  clock.WithTicker
}

// DefaultOpts returns the default options of a Manager
func DefaultOpts() Opts {
	return Opts{
		logger: slog.Default(),
		clock:  clock.RealClock{},
	}
}

// OptionFn is a function sets one more more options in Opts struct
type OptionFn func(*Opts)

// WithLogger sets the logger of the Manager
func WithLogger(logger *slog.Logger) OptionFn {
	return func(o *Opts) {
		o.logger = logger
	}
}

// WithClock sets the clock driving the polling tickers
func WithClock(c clock.WithTicker) OptionFn {
	return func(o *Opts) {
		o.clock = c
	}
}

// Manager runs one worker per source template and merges their results
type Manager struct {
	logger    *slog.Logger
	clock     clock.WithTicker
	templates []Template
	workers   []*worker
}

// worker drives a single Reader from its own goroutine
type worker struct {
	name string
	cmds chan Event
	done chan struct{}

	// written by the worker goroutine before done is closed
	result *Result
	err    error
}

// NewManager returns a Manager over templates. Workers are not started.
func NewManager(templates []Template, applyOpts ...OptionFn) *Manager {
	opts := DefaultOpts()
	for _, apply := range applyOpts {
		apply(&opts)
	}

	return &Manager{
		logger:    opts.logger.With("service", "source-manager"),
		clock:     opts.clock,
		templates: templates,
	}
}

// Sensors returns the sensors of every source
func (m *Manager) Sensors() []Sensor {
	var sensors []Sensor
	for _, t := range m.templates {
		sensors = append(sensors, t.Sensors()...)
	}
	return sensors
}

// StartWorkers launches one worker per template, each owning a fresh Reader.
// Workers of a previous call must be joined first; they are otherwise leaked.
func (m *Manager) StartWorkers() {
	if len(m.workers) > 0 {
		m.logger.Warn("Starting workers while previous workers were not joined", "count", len(m.workers))
	}

	m.workers = make([]*worker, 0, len(m.templates))
	for i, t := range m.templates {
		w := &worker{
			name: fmt.Sprintf("%s-%d", t.Name(), i),
			cmds: make(chan Event, commandBuffer),
			done: make(chan struct{}),
		}
		m.workers = append(m.workers, w)

		go m.run(w, t.NewReader(), t.PollingInterval())
	}
	m.logger.Debug("Started source workers", "count", len(m.workers))
}

// run executes the worker loop and records its outcome
func (m *Manager) run(w *worker, reader Reader, interval time.Duration) {
	logger := m.logger.With("source", w.name)
	defer close(w.done)
	defer func() {
		if r := recover(); r != nil {
			w.result = nil
			w.err = fmt.Errorf("%w: %v", ErrWorkerPanicked, r)
		}
	}()

	w.result, w.err = m.loop(w, reader, interval, logger)
	if w.err != nil {
		logger.Error("Source worker failed", "error", w.err)
	}
}

// loop applies commands as they arrive and, when interval is set, samples on
// every tick while active
func (m *Manager) loop(w *worker, reader Reader, interval time.Duration, logger *slog.Logger) (*Result, error) {
	var tick <-chan time.Time
	if interval > 0 {
		ticker := m.clock.NewTicker(interval)
		defer ticker.Stop()
		tick = ticker.C()
	}

	// ticks only sample between Start and Pause
	active := false
	for {
		select {
		case ev, ok := <-w.cmds:
			if !ok {
				ev = Stop
			}
			logger.Debug("Received command", "event", ev)

			switch ev {
			case Start:
				active = true
			case Pause:
				active = false
			case Measure:
				if err := reader.Measure(); err != nil {
					return nil, err
				}
			case Phase:
				if err := reader.Phase(); err != nil {
					return nil, err
				}
			case Stop:
				return reader.Retrieve()
			default:
				logger.Warn("Ignoring unknown command", "event", ev)
			}

		case <-tick:
			if !active {
				continue
			}
			if err := reader.Measure(); err != nil {
				return nil, err
			}
		}
	}
}

// send delivers ev to the worker unless it has already terminated
func (w *worker) send(ctx context.Context, ev Event) error {
	select {
	case <-w.done:
		return fmt.Errorf("%w: %s: %s", ErrWorkerStopped, w.name, ev)
	default:
	}

	select {
	case w.cmds <- ev:
		return nil
	case <-w.done:
		return fmt.Errorf("%w: %s: %s", ErrWorkerStopped, w.name, ev)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Send delivers ev to every worker. Failed deliveries don't prevent delivery
// to the remaining workers and are returned joined.
func (m *Manager) Send(ctx context.Context, ev Event) error {
	if len(m.workers) == 0 {
		return ErrNoWorkers
	}

	var errs []error
	for _, w := range m.workers {
		if err := w.send(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Manager) Start(ctx context.Context) error {
	return m.Send(ctx, Start)
}

func (m *Manager) Pause(ctx context.Context) error {
	return m.Send(ctx, Pause)
}

func (m *Manager) Measure(ctx context.Context) error {
	return m.Send(ctx, Measure)
}

func (m *Manager) Phase(ctx context.Context) error {
	return m.Send(ctx, Phase)
}

// Join stops every worker, waits for them and merges the results of the workers
// that completed successfully. Failed workers are logged and left out.
func (m *Manager) Join(ctx context.Context) (*Result, error) {
	if len(m.workers) == 0 {
		return nil, ErrNoWorkers
	}
	workers := m.workers
	m.workers = nil

	for _, w := range workers {
		err := w.send(ctx, Stop)
		switch {
		case errors.Is(err, ErrWorkerStopped):
			// its outcome is collected below
		case err != nil:
			return nil, err
		}
	}

	results := make([]*Result, 0, len(workers))
	for _, w := range workers {
		select {
		case <-w.done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}

		if w.err != nil {
			m.logger.Warn("Excluding source from results", "source", w.name, "error", w.err)
			continue
		}
		results = append(results, w.result)
	}

	if len(results) == 0 {
		return nil, ErrNoSurvivingSources
	}
	if len(results) < len(workers) {
		m.logger.Warn("Reporting partial results", "surviving", len(results), "configured", len(workers))
	}
	return mergeResults(results), nil
}

// mergeResults concatenates the i-th window of every result into the i-th merged
// window. Sample count and interval are averaged across results.
func mergeResults(results []*Result) *Result {
	phases := 0
	var count uint64
	var delta time.Duration
	for _, r := range results {
		phases = max(phases, len(r.Measures))
		count += r.Count
		delta += r.MeasureDelta
	}

	merged := &Result{
		Measures:     make([]Metrics, phases),
		Count:        count / uint64(len(results)),
		MeasureDelta: delta / time.Duration(len(results)),
	}
	for i := range merged.Measures {
		merged.Measures[i] = Metrics{}
		for _, r := range results {
			if i < len(r.Measures) {
				merged.Measures[i] = append(merged.Measures[i], r.Measures[i]...)
			}
		}
	}
	return merged
}
