// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package collector

import (
	"strconv"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/sustainable-computing-io/joule-profiler/internal/host"
)

// hostInfoCollector exposes the description of the profiled machine
type hostInfoCollector struct {
	info host.Info
	desc *prom.Desc
}

// NewHostInfoCollector creates a collector for the host a profile was taken on
func NewHostInfoCollector(info host.Info) *hostInfoCollector {
	return &hostInfoCollector{
		info: info,
		desc: prom.NewDesc(
			prom.BuildFQName(profilerNS, "host", "info"),
			"Host information from procfs",
			[]string{"hostname", "cpu_model", "sockets", "cpus"},
			nil,
		),
	}
}

func (c *hostInfoCollector) Describe(ch chan<- *prom.Desc) {
	ch <- c.desc
}

func (c *hostInfoCollector) Collect(ch chan<- prom.Metric) {
	ch <- prom.MustNewConstMetric(
		c.desc,
		prom.GaugeValue,
		1,
		c.info.Hostname,
		c.info.CPUModel,
		strconv.Itoa(c.info.Sockets),
		strconv.Itoa(c.info.CPUs),
	)
}
