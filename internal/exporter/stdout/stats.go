// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package stdout

import (
	"math"
	"slices"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/sustainable-computing-io/joule-profiler/internal/measurement"
)

// significantFigures is the precision of the percentiles
const significantFigures = 4

// stats summarizes the values of one counter across iterations, in µJ
type stats struct {
	Key     string
	Samples int64
	Mean    float64
	StdDev  float64
	Min     uint64
	Max     uint64
	// P50 and P95 are approximate
	P50 uint64
	P95 uint64
}

// series collects the values of several counters in insertion order
type series struct {
	keys   []string
	values map[string][]uint64
}

func newSeries() *series {
	return &series{values: map[string][]uint64{}}
}

func (s *series) add(key string, value uint64) {
	if _, ok := s.values[key]; !ok {
		s.keys = append(s.keys, key)
	}
	s.values[key] = append(s.values[key], value)
}

// summarize returns the statistics of every counter of s
func (s *series) summarize() []stats {
	summary := make([]stats, 0, len(s.keys))
	for _, key := range s.keys {
		summary = append(summary, summarize(key, s.values[key]))
	}
	return summary
}

func summarize(key string, values []uint64) stats {
	st := stats{Key: key, Samples: int64(len(values))}
	if len(values) == 0 {
		return st
	}

	sorted := slices.Clone(values)
	slices.Sort(sorted)
	st.Min = sorted[0]
	st.Max = sorted[len(sorted)-1]

	var sum float64
	for _, v := range sorted {
		sum += float64(v)
	}
	st.Mean = sum / float64(len(sorted))

	var squares float64
	for _, v := range sorted {
		d := float64(v) - st.Mean
		squares += d * d
	}
	st.StdDev = math.Sqrt(squares / float64(len(sorted)))

	// percentiles are approximated within the histogram precision
	h := hdrhistogram.New(1, max(int64(st.Max), 2), significantFigures)
	for _, v := range sorted {
		_ = h.RecordValue(int64(v))
	}
	st.P50 = clamp(h.ValueAtQuantile(50), st.Min, st.Max)
	st.P95 = clamp(h.ValueAtQuantile(95), st.Min, st.Max)
	return st
}

// clamp keeps a histogram bucket value within the measured range
func clamp(v int64, lo, hi uint64) uint64 {
	if v < 0 {
		return lo
	}
	return min(max(uint64(v), lo), hi)
}

// simpleSeries returns the per counter values of every simple iteration
func simpleSeries(results []*measurement.Result) *series {
	s := newSeries()
	for _, r := range results {
		for _, m := range r.Metrics {
			s.add(m.Name, m.Value)
		}
	}
	return s
}

// phasesSeries returns the per window and counter values of every phase iteration
func phasesSeries(results []*measurement.PhaseMeasurementResult) *series {
	s := newSeries()
	for _, r := range results {
		for _, p := range r.Phases {
			for _, m := range p.Metrics {
				s.add(p.Name+" / "+m.Name, m.Value)
			}
		}
	}
	return s
}
