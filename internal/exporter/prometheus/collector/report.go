// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package collector

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sustainable-computing-io/joule-profiler/internal/device"
	"github.com/sustainable-computing-io/joule-profiler/internal/measurement"
	"github.com/sustainable-computing-io/joule-profiler/internal/source"
)

const (
	// these labels should remain the same across all descriptors to ease querying
	iterationLabel = "iteration"
	windowLabel    = "window"
	phaseLabel     = "phase"
	counterLabel   = "counter"
	sourceLabel    = "source"
)

// simplePhase names the single window of a simple run
const simplePhase = "START -> END"

// ReportCollector exposes the results of a profile run
type ReportCollector struct {
	report *measurement.Report
	logger *slog.Logger

	energyDesc        *prometheus.Desc
	powerDesc         *prometheus.Desc
	phaseDurationDesc *prometheus.Desc
	durationDesc      *prometheus.Desc
	exitCodeDesc      *prometheus.Desc
	samplesDesc       *prometheus.Desc
	intervalDesc      *prometheus.Desc
}

func reportDesc(name, help string, report *measurement.Report, labels ...string) *prometheus.Desc {
	return prometheus.NewDesc(
		prometheus.BuildFQName(profilerNS, "", name),
		help,
		labels,
		prometheus.Labels{
			"command": strings.Join(report.Command, " "),
			"mode":    report.Kind(),
		})
}

// NewReportCollector creates a collector for report
func NewReportCollector(report *measurement.Report, logger *slog.Logger) *ReportCollector {
	window := []string{iterationLabel, windowLabel, phaseLabel, counterLabel, sourceLabel}

	return &ReportCollector{
		report: report,
		logger: logger.With("collector", "report"),

		energyDesc: reportDesc("energy_joules",
			"Energy consumed by the workload during a window in joules", report, window...),
		powerDesc: reportDesc("power_watts",
			"Average power drawn by the workload during a window in watts", report, window...),
		phaseDurationDesc: reportDesc("phase_duration_seconds",
			"Duration of a window in seconds", report, iterationLabel, windowLabel, phaseLabel),
		durationDesc: reportDesc("duration_seconds",
			"Duration of an iteration in seconds", report, iterationLabel),
		exitCodeDesc: reportDesc("exit_code",
			"Exit code of the workload", report, iterationLabel),
		samplesDesc: reportDesc("samples",
			"Number of counter samples taken during an iteration", report, iterationLabel),
		intervalDesc: reportDesc("sample_interval_seconds",
			"Average interval between counter samples in seconds", report, iterationLabel),
	}
}

func (c *ReportCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.energyDesc
	ch <- c.powerDesc
	ch <- c.phaseDurationDesc
	ch <- c.durationDesc
	ch <- c.exitCodeDesc
	ch <- c.samplesDesc
	ch <- c.intervalDesc
}

func (c *ReportCollector) Collect(ch chan<- prometheus.Metric) {
	for i, r := range c.report.Simple {
		iteration := strconv.Itoa(i + 1)
		c.collectWindow(ch, iteration, 1, simplePhase, r.Metrics, r.Duration)
		c.collectIteration(ch, iteration, r.Duration, r.ExitCode)

		ch <- prometheus.MustNewConstMetric(c.samplesDesc, prometheus.GaugeValue,
			float64(r.MeasureCount), iteration)
		ch <- prometheus.MustNewConstMetric(c.intervalDesc, prometheus.GaugeValue,
			r.MeasureDelta.Seconds(), iteration)
	}

	for i, r := range c.report.Phases {
		iteration := strconv.Itoa(i + 1)
		// window names repeat when a token is printed more than once
		for j, p := range r.Phases {
			c.collectWindow(ch, iteration, j+1, p.Name, p.Metrics, p.Duration)
		}
		c.collectIteration(ch, iteration, r.Duration, r.ExitCode)
	}
}

func (c *ReportCollector) collectIteration(ch chan<- prometheus.Metric, iteration string, d time.Duration, exitCode int) {
	ch <- prometheus.MustNewConstMetric(c.durationDesc, prometheus.GaugeValue, d.Seconds(), iteration)
	ch <- prometheus.MustNewConstMetric(c.exitCodeDesc, prometheus.GaugeValue, float64(exitCode), iteration)
}

func (c *ReportCollector) collectWindow(ch chan<- prometheus.Metric, iteration string, idx int, phase string, metrics source.Metrics, d time.Duration) {
	window := strconv.Itoa(idx)
	ch <- prometheus.MustNewConstMetric(c.phaseDurationDesc, prometheus.GaugeValue, d.Seconds(), iteration, window, phase)

	for _, m := range metrics {
		if m.Unit != device.EnergyUnit {
			c.logger.Debug("Skipping metric with unsupported unit", "metric", m.Name, "unit", m.Unit)
			continue
		}
		energy := device.Energy(m.Value)
		ch <- prometheus.MustNewConstMetric(c.energyDesc, prometheus.GaugeValue,
			energy.Joules(), iteration, window, phase, m.Name, m.Source)
		ch <- prometheus.MustNewConstMetric(c.powerDesc, prometheus.GaugeValue,
			energy.Over(d).Watts(), iteration, window, phase, m.Name, m.Source)
	}
}

// SensorCollector exposes the sensors available on the host
type SensorCollector struct {
	sensors []source.Sensor
	desc    *prometheus.Desc
}

// NewSensorCollector creates a collector for sensors
func NewSensorCollector(sensors []source.Sensor) *SensorCollector {
	return &SensorCollector{
		sensors: sensors,
		desc: prometheus.NewDesc(
			prometheus.BuildFQName(profilerNS, "sensor", "info"),
			fmt.Sprintf("A metric with a constant '1' value for every sensor, in %s unless labeled otherwise", device.EnergyUnit),
			[]string{counterLabel, "unit", sourceLabel},
			nil,
		),
	}
}

func (c *SensorCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.desc
}

func (c *SensorCollector) Collect(ch chan<- prometheus.Metric) {
	for _, s := range c.sensors {
		ch <- prometheus.MustNewConstMetric(c.desc, prometheus.GaugeValue, 1, s.Name, s.Unit, s.Source)
	}
}
