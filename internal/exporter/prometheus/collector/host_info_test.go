// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package collector

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sustainable-computing-io/joule-profiler/internal/host"
)

func TestHostInfoCollector(t *testing.T) {
	c := NewHostInfoCollector(host.Info{
		Hostname: "bench",
		CPUModel: "Intel(R) Xeon(R) Gold 6230",
		Sockets:  2,
		CPUs:     80,
	})

	descs := make(chan *prometheus.Desc, 1)
	c.Describe(descs)
	assert.Contains(t, (<-descs).String(), "joule_profiler_host_info")

	families := gather(t, c)
	info := families["joule_profiler_host_info"]
	require.NotNil(t, info)
	require.Len(t, info.GetMetric(), 1)

	m := info.GetMetric()[0]
	assert.Equal(t, 1.0, m.GetGauge().GetValue())
	assert.Equal(t, map[string]string{
		"hostname":  "bench",
		"cpu_model": "Intel(R) Xeon(R) Gold 6230",
		"sockets":   "2",
		"cpus":      "80",
	}, labels(m))
}
