// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package source

import (
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/sustainable-computing-io/joule-profiler/internal/device"
	"k8s.io/utils/clock"
)

// RaplSourceName is the source tag of metrics read from the powercap interface
const RaplSourceName = "powercap"

// RaplSource is the template of a source reading RAPL domains
type RaplSource struct {
	zones    []device.EnergyZone
	interval time.Duration
	clock    clock.PassiveClock
	logger   *slog.Logger
}

var _ Template = (*RaplSource)(nil)

// RaplOptionFn configures a RaplSource
type RaplOptionFn func(*RaplSource)

// WithPollingInterval enables periodic sampling every d
func WithPollingInterval(d time.Duration) RaplOptionFn {
	return func(s *RaplSource) {
		s.interval = d
	}
}

// WithRaplClock sets the clock used to timestamp samples
func WithRaplClock(c clock.PassiveClock) RaplOptionFn {
	return func(s *RaplSource) {
		s.clock = c
	}
}

// WithRaplLogger sets the logger of the source
func WithRaplLogger(logger *slog.Logger) RaplOptionFn {
	return func(s *RaplSource) {
		s.logger = logger
	}
}

// NewRaplSource returns a source template over zones
func NewRaplSource(zones []device.EnergyZone, opts ...RaplOptionFn) *RaplSource {
	s := &RaplSource{
		zones:  slices.Clone(zones),
		clock:  clock.RealClock{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("source", RaplSourceName)
	return s
}

func (s *RaplSource) Name() string {
	return RaplSourceName
}

func (s *RaplSource) PollingInterval() time.Duration {
	return s.interval
}

// Sensors returns one sensor per counter name, in discovery order
func (s *RaplSource) Sensors() []Sensor {
	sensors := make([]Sensor, 0, len(s.zones))
	seen := make(map[string]bool, len(s.zones))
	for _, zone := range s.zones {
		name := device.ZoneCounterName(zone)
		if seen[name] {
			continue
		}
		seen[name] = true
		sensors = append(sensors, Sensor{Name: name, Unit: device.EnergyUnit, Source: RaplSourceName})
	}
	return sensors
}

// NewReader returns a reader with no baseline, no open window and no samples
func (s *RaplSource) NewReader() Reader {
	return &raplReader{
		zones:    s.zones,
		clock:    s.clock,
		logger:   s.logger,
		counters: map[string]device.Energy{},
	}
}

// raplReader accumulates RAPL counter differences into windows
type raplReader struct {
	zones  []device.EnergyZone
	clock  clock.PassiveClock
	logger *slog.Logger

	last     *device.Snapshot
	counters map[string]device.Energy
	measures []map[string]device.Energy
	count    uint64
	elapsed  time.Duration
}

func (r *raplReader) Measure() error {
	snapshot, err := device.TakeSnapshot(r.zones, r.clock)
	if err != nil {
		return err
	}

	if r.last != nil {
		deltas, err := device.Diff(r.zones, r.last, snapshot)
		if err != nil {
			return err
		}
		for name, delta := range deltas {
			r.counters[name] += delta
		}
		r.elapsed += snapshot.Timestamp.Sub(r.last.Timestamp)
	}

	r.last = snapshot
	r.count++
	return nil
}

func (r *raplReader) Phase() error {
	if err := r.Measure(); err != nil {
		return err
	}
	r.closeWindow()
	return nil
}

func (r *raplReader) closeWindow() {
	r.measures = append(r.measures, r.counters)
	r.counters = map[string]device.Energy{}
	r.logger.Debug("Closed window", "index", len(r.measures)-1)
}

func (r *raplReader) Retrieve() (*Result, error) {
	if len(r.counters) > 0 {
		r.closeWindow()
	}

	result := &Result{
		Measures: make([]Metrics, 0, len(r.measures)),
		Count:    r.count,
	}
	if r.count >= 2 {
		result.MeasureDelta = r.elapsed / time.Duration(r.count-1)
	}

	for _, counters := range r.measures {
		metrics := make(Metrics, 0, len(counters))
		for name, value := range counters {
			metrics = append(metrics, Metric{
				Name:   name,
				Value:  value.MicroJoules(),
				Unit:   device.EnergyUnit,
				Source: RaplSourceName,
			})
		}
		slices.SortFunc(metrics, func(a, b Metric) int {
			return strings.Compare(a.Name, b.Name)
		})
		result.Measures = append(result.Measures, metrics)
	}
	return result, nil
}
