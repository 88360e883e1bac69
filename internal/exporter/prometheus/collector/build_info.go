// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package collector

import (
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/sustainable-computing-io/joule-profiler/internal/version"
)

const profilerNS = "joule_profiler"

// BuildInfoCollector reports the version of the profiler that wrote a textfile
type BuildInfoCollector struct {
	desc *prom.Desc
	info func() version.VersionInfo
}

var _ prom.Collector = (*BuildInfoCollector)(nil)

// NewBuildInfoCollector creates a new collector for build information
func NewBuildInfoCollector() *BuildInfoCollector {
	return &BuildInfoCollector{
		desc: prom.NewDesc(
			prom.BuildFQName(profilerNS, "build", "info"),
			"A metric with a constant '1' value labeled with version information",
			[]string{"version", "revision", "branch", "built", "goversion", "goos", "goarch"},
			nil,
		),
		info: version.Info,
	}
}

func (c *BuildInfoCollector) Describe(ch chan<- *prom.Desc) {
	ch <- c.desc
}

func (c *BuildInfoCollector) Collect(ch chan<- prom.Metric) {
	v := c.info()
	ch <- prom.MustNewConstMetric(c.desc, prom.GaugeValue, 1,
		v.Version, v.GitCommit, v.GitBranch, v.BuildTime, v.GoVersion, v.GoOS, v.GoArch)
}
