// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package prometheus

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sustainable-computing-io/joule-profiler/internal/device"
	"github.com/sustainable-computing-io/joule-profiler/internal/exporter"
	"github.com/sustainable-computing-io/joule-profiler/internal/host"
	"github.com/sustainable-computing-io/joule-profiler/internal/measurement"
	"github.com/sustainable-computing-io/joule-profiler/internal/source"
	"k8s.io/utils/clock"
	testingclock "k8s.io/utils/clock/testing"
)

func newTestExporter(path string, announce *bytes.Buffer, opts ...OptionFn) *Exporter {
	opts = append([]OptionFn{
		WithLogger(slog.New(slog.DiscardHandler)),
		WithFileOptions(
			exporter.WithAnnounce(announce),
			exporter.WithGetenv(func(string) string { return "" }),
		),
	}, opts...)
	return NewExporter(path, opts...)
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestNewExporter(t *testing.T) {
	tests := []struct {
		name string
		opts []OptionFn
	}{{
		name: "default options",
		opts: []OptionFn{},
	}, {
		name: "with custom logger",
		opts: []OptionFn{WithLogger(slog.Default().With("test", "custom"))},
	}, {
		name: "with debug collectors",
		opts: []OptionFn{WithDebugCollectors([]string{"go", "process"})},
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewExporter("out.prom", tt.opts...)

			assert.NotNil(t, e)
			assert.Equal(t, "prometheus", e.Name())
			assert.NotNil(t, e.logger)
			assert.Equal(t, "out.prom", e.Path())
		})
	}
}

func TestExporter_Init(t *testing.T) {
	t.Run("creates the output file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out.prom")
		e := newTestExporter(path, &bytes.Buffer{})

		require.NoError(t, e.Init())
		assert.FileExists(t, path)
		assert.NoError(t, e.Shutdown())
	})

	t.Run("names the file after the clock", func(t *testing.T) {
		t.Chdir(t.TempDir())
		now := time.Unix(1700000000, 0)
		e := newTestExporter("", &bytes.Buffer{},
			WithFileOptions(exporter.WithClock(clock.PassiveClock(testingclock.NewFakePassiveClock(now)))))

		require.NoError(t, e.Init())
		assert.Equal(t, "data1700000000.prom", filepath.Base(e.Path()))
		assert.NoError(t, e.Shutdown())
	})

	t.Run("with invalid collector", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out.prom")
		e := newTestExporter(path, &bytes.Buffer{}, WithDebugCollectors([]string{"unknown_collector"}))

		err := e.Init()
		assert.ErrorContains(t, err, "unknown collector: unknown_collector")
		assert.NoFileExists(t, path)
	})
}

func TestExporter_Export(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.prom")
	announce := &bytes.Buffer{}
	e := newTestExporter(path, announce)
	require.NoError(t, e.Init())
	t.Cleanup(func() { _ = e.Shutdown() })

	report := &measurement.Report{
		Command: []string{"sleep", "1"},
		Mode:    measurement.SimpleMode,
		Host:    host.Info{Hostname: "bench", Sockets: 1, CPUs: 8},
		Simple: []*measurement.Result{{
			Metrics: source.Metrics{{
				Name: "PACKAGE-0_0", Value: 2_500_000, Unit: device.EnergyUnit, Source: source.RaplSourceName,
			}},
			Duration:     time.Second,
			MeasureCount: 2,
			MeasureDelta: time.Second,
		}},
	}
	require.NoError(t, e.Export(report))

	got := readFile(t, path)
	assert.Contains(t, got, "# TYPE joule_profiler_energy_joules gauge")
	assert.Contains(t, got, `joule_profiler_energy_joules{command="sleep 1",counter="PACKAGE-0_0",iteration="1",mode="simple",phase="START -> END",source="powercap",window="1"} 2.5`)
	assert.Contains(t, got, `joule_profiler_host_info{cpu_model="",cpus="8",hostname="bench",sockets="1"} 1`)
	assert.Contains(t, got, "joule_profiler_build_info")
	assert.NotContains(t, got, "go_goroutines")
	assert.Equal(t, "✔ Prometheus metrics written to: "+path+"\n", announce.String())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o664), info.Mode().Perm())
}

func TestExporter_ExportSensors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sensors.prom")
	e := newTestExporter(path, &bytes.Buffer{}, WithDebugCollectors([]string{"go"}))
	require.NoError(t, e.Init())
	t.Cleanup(func() { _ = e.Shutdown() })

	require.NoError(t, e.ExportSensors([]source.Sensor{
		{Name: "CORE_0", Unit: device.EnergyUnit, Source: source.RaplSourceName},
	}))

	got := readFile(t, path)
	assert.Contains(t, got, `joule_profiler_sensor_info{counter="CORE_0",source="powercap",unit="µJ"} 1`)
	assert.Contains(t, got, "go_goroutines")
}
