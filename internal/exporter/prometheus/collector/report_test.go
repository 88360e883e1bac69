// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package collector

import (
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sustainable-computing-io/joule-profiler/internal/device"
	"github.com/sustainable-computing-io/joule-profiler/internal/measurement"
	"github.com/sustainable-computing-io/joule-profiler/internal/source"
)

func gather(t *testing.T, c prometheus.Collector) map[string]*dto.MetricFamily {
	t.Helper()
	registry := prometheus.NewPedanticRegistry()
	require.NoError(t, registry.Register(c))

	families, err := registry.Gather()
	require.NoError(t, err)

	byName := map[string]*dto.MetricFamily{}
	for _, mf := range families {
		byName[mf.GetName()] = mf
	}
	return byName
}

func labels(m *dto.Metric) map[string]string {
	l := map[string]string{}
	for _, lp := range m.GetLabel() {
		l[lp.GetName()] = lp.GetValue()
	}
	return l
}

func energyMetric(name string, value uint64) source.Metric {
	return source.Metric{Name: name, Value: value, Unit: device.EnergyUnit, Source: source.RaplSourceName}
}

func TestReportCollectorSimple(t *testing.T) {
	report := &measurement.Report{
		Command: []string{"sleep", "2"},
		Mode:    measurement.SimpleMode,
		Simple: []*measurement.Result{{
			Metrics: source.Metrics{
				energyMetric("PACKAGE-0_0", 4_000_000),
				{Name: "TEMP", Value: 40, Unit: "°C", Source: "hwmon"},
			},
			Duration:     2 * time.Second,
			ExitCode:     3,
			MeasureCount: 5,
			MeasureDelta: 500 * time.Millisecond,
		}},
	}

	families := gather(t, NewReportCollector(report, slog.New(slog.DiscardHandler)))

	energy := families["joule_profiler_energy_joules"]
	require.NotNil(t, energy)
	require.Len(t, energy.GetMetric(), 1, "metrics with other units are skipped")
	m := energy.GetMetric()[0]
	assert.InDelta(t, 4.0, m.GetGauge().GetValue(), 1e-9)
	assert.Equal(t, map[string]string{
		"command":   "sleep 2",
		"mode":      "simple",
		"iteration": "1",
		"window":    "1",
		"phase":     "START -> END",
		"counter":   "PACKAGE-0_0",
		"source":    source.RaplSourceName,
	}, labels(m))

	power := families["joule_profiler_power_watts"]
	require.NotNil(t, power)
	assert.InDelta(t, 2.0, power.GetMetric()[0].GetGauge().GetValue(), 1e-9)

	assert.InDelta(t, 3.0, families["joule_profiler_exit_code"].GetMetric()[0].GetGauge().GetValue(), 1e-9)
	assert.InDelta(t, 2.0, families["joule_profiler_duration_seconds"].GetMetric()[0].GetGauge().GetValue(), 1e-9)
	assert.InDelta(t, 5.0, families["joule_profiler_samples"].GetMetric()[0].GetGauge().GetValue(), 1e-9)
	assert.InDelta(t, 0.5, families["joule_profiler_sample_interval_seconds"].GetMetric()[0].GetGauge().GetValue(), 1e-9)
}

func TestReportCollectorPhasesIterations(t *testing.T) {
	iteration := func(v uint64) *measurement.PhaseMeasurementResult {
		return &measurement.PhaseMeasurementResult{
			Phases: []measurement.PhaseResult{
				{Name: "START -> __A__", Metrics: source.Metrics{energyMetric("PACKAGE-0_0", v)}, Duration: time.Second},
				{Name: "__A__ -> __A__", Metrics: source.Metrics{energyMetric("PACKAGE-0_0", v)}, Duration: time.Second},
				{Name: "__A__ -> __A__", Metrics: source.Metrics{energyMetric("PACKAGE-0_0", v)}, Duration: time.Second},
				{Name: "__A__ -> END", Duration: 0},
			},
			Duration: 3 * time.Second,
		}
	}
	report := &measurement.Report{
		Command:      []string{"./bench"},
		Mode:         measurement.PhasesMode,
		TokenPattern: measurement.DefaultTokenPattern,
		Phases:       []*measurement.PhaseMeasurementResult{iteration(1000), iteration(2000)},
	}

	families := gather(t, NewReportCollector(report, slog.New(slog.DiscardHandler)))

	assert.Len(t, families["joule_profiler_energy_joules"].GetMetric(), 6)
	assert.Len(t, families["joule_profiler_phase_duration_seconds"].GetMetric(), 8)
	assert.Len(t, families["joule_profiler_duration_seconds"].GetMetric(), 2)
	assert.NotContains(t, families, "joule_profiler_samples")

	m := families["joule_profiler_exit_code"].GetMetric()[0]
	assert.Equal(t, "phases-iterations", labels(m)["mode"])
}

func TestSensorCollector(t *testing.T) {
	sensors := []source.Sensor{
		{Name: "CORE_0", Unit: device.EnergyUnit, Source: source.RaplSourceName},
		{Name: "PACKAGE-0_0", Unit: device.EnergyUnit, Source: source.RaplSourceName},
	}

	families := gather(t, NewSensorCollector(sensors))

	info := families["joule_profiler_sensor_info"]
	require.NotNil(t, info)
	require.Len(t, info.GetMetric(), 2)
	assert.Equal(t, "CORE_0", labels(info.GetMetric()[0])["counter"])
	assert.Equal(t, device.EnergyUnit, labels(info.GetMetric()[0])["unit"])
}
