// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package stdout

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sustainable-computing-io/joule-profiler/internal/measurement"
	"github.com/sustainable-computing-io/joule-profiler/internal/source"
)

func TestSummarize(t *testing.T) {
	st := summarize("PACKAGE-0_0", []uint64{400, 100, 300, 200})

	assert.Equal(t, "PACKAGE-0_0", st.Key)
	assert.EqualValues(t, 4, st.Samples)
	assert.InEpsilon(t, 250.0, st.Mean, 0.0001)
	assert.InEpsilon(t, 111.8034, st.StdDev, 0.0001)
	assert.EqualValues(t, 100, st.Min)
	assert.EqualValues(t, 400, st.Max)
	assert.InEpsilon(t, 200, float64(st.P50), 0.01)
	assert.InEpsilon(t, 400, float64(st.P95), 0.01)
}

func TestSummarizeExactBounds(t *testing.T) {
	values := []uint64{12_349_999, 12_345_678, 98_765_432_101}
	st := summarize("PACKAGE-0_0", values)

	assert.EqualValues(t, 12_345_678, st.Min)
	assert.EqualValues(t, 98_765_432_101, st.Max)
	assert.InEpsilon(t, float64(12_349_999+12_345_678+98_765_432_101)/3, st.Mean, 1e-9)

	for _, p := range []uint64{st.P50, st.P95} {
		assert.GreaterOrEqual(t, p, st.Min)
		assert.LessOrEqual(t, p, st.Max)
	}
	assert.InEpsilon(t, 12_349_999, float64(st.P50), 0.001)
	assert.Equal(t, []uint64{12_349_999, 12_345_678, 98_765_432_101}, values, "input is left unsorted")
}

func TestSummarizeTwoCloseValues(t *testing.T) {
	st := summarize("PACKAGE_0", []uint64{12_345_678, 12_349_999})

	assert.EqualValues(t, 12_345_678, st.Min)
	assert.EqualValues(t, 12_349_999, st.Max)
	assert.LessOrEqual(t, st.P50, st.Max)
	assert.LessOrEqual(t, st.P95, st.Max)
}

func TestSummarizeZeros(t *testing.T) {
	st := summarize("CORE_0", []uint64{0, 0})

	assert.EqualValues(t, 2, st.Samples)
	assert.Zero(t, st.Mean)
	assert.Zero(t, st.StdDev)
	assert.Zero(t, st.Min)
	assert.Zero(t, st.Max)
	assert.Zero(t, st.P50)
}

func TestSummarizeEmpty(t *testing.T) {
	st := summarize("CORE_0", nil)

	assert.Zero(t, st.Samples)
	assert.Zero(t, st.Max)
}

func TestSimpleSeries(t *testing.T) {
	results := []*measurement.Result{
		{Metrics: source.Metrics{metric("CORE_0", 10), metric("PACKAGE-0_0", 20)}},
		{Metrics: source.Metrics{metric("PACKAGE-0_0", 40)}},
	}

	summary := simpleSeries(results).summarize()
	require.Len(t, summary, 2)
	assert.Equal(t, "CORE_0", summary[0].Key)
	assert.EqualValues(t, 1, summary[0].Samples)
	assert.Equal(t, "PACKAGE-0_0", summary[1].Key)
	assert.EqualValues(t, 2, summary[1].Samples)
	assert.InEpsilon(t, 30.0, summary[1].Mean, 0.01)
}

func TestPhasesSeries(t *testing.T) {
	iteration := func(v uint64) *measurement.PhaseMeasurementResult {
		return &measurement.PhaseMeasurementResult{
			Phases: []measurement.PhaseResult{{
				Name:     "START -> END",
				Metrics:  source.Metrics{metric("PACKAGE-0_0", v)},
				Duration: time.Second,
			}},
		}
	}

	summary := phasesSeries([]*measurement.PhaseMeasurementResult{iteration(1000), iteration(3000)}).summarize()
	require.Len(t, summary, 1)
	assert.Equal(t, "START -> END / PACKAGE-0_0", summary[0].Key)
	assert.InEpsilon(t, 2000.0, summary[0].Mean, 0.01)
}
