// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package collector

import (
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sustainable-computing-io/joule-profiler/internal/version"
)

func TestBuildInfo_Describe(t *testing.T) {
	ch := make(chan *prometheus.Desc, 1)
	NewBuildInfoCollector().Describe(ch)
	assert.Len(t, ch, 1, "expected one metric description")
}

func TestBuildInfo_Collect(t *testing.T) {
	c := NewBuildInfoCollector()
	c.info = func() version.VersionInfo {
		return version.VersionInfo{
			Version:   "v0.3.0",
			GitCommit: "abc123",
			GitBranch: "main",
			BuildTime: "2025-06-01T00:00:00Z",
			GoVersion: "go1.24.0",
			GoOS:      "linux",
			GoArch:    "amd64",
		}
	}

	families := gather(t, c)
	mf := families["joule_profiler_build_info"]
	require.NotNil(t, mf)
	require.Len(t, mf.GetMetric(), 1)

	m := mf.GetMetric()[0]
	assert.Equal(t, 1.0, m.GetGauge().GetValue())
	assert.Equal(t, map[string]string{
		"version":   "v0.3.0",
		"revision":  "abc123",
		"branch":    "main",
		"built":     "2025-06-01T00:00:00Z",
		"goversion": "go1.24.0",
		"goos":      "linux",
		"goarch":    "amd64",
	}, labels(m))
}

func TestBuildInfo_ParallelCollect(t *testing.T) {
	collector := NewBuildInfoCollector()
	parallelCalls := 10

	ch := make(chan prometheus.Metric, parallelCalls)

	var wg sync.WaitGroup
	wg.Add(parallelCalls)
	for range parallelCalls {
		go func() {
			defer wg.Done()
			collector.Collect(ch)
		}()
	}
	wg.Wait()
	close(ch)

	assert.Len(t, ch, parallelCalls, "should have received one metric per call")
}
