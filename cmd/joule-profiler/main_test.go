// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sustainable-computing-io/joule-profiler/config"
	"github.com/sustainable-computing-io/joule-profiler/internal/exporter/csv"
	"github.com/sustainable-computing-io/joule-profiler/internal/exporter/json"
	"github.com/sustainable-computing-io/joule-profiler/internal/exporter/prometheus"
	"github.com/sustainable-computing-io/joule-profiler/internal/exporter/stdout"
	"github.com/sustainable-computing-io/joule-profiler/internal/profiler"
)

func TestParseArgsAndConfig(t *testing.T) {
	t.Run("simple", func(t *testing.T) {
		inv, err := parseArgsAndConfig([]string{"--json", "simple", "-n", "3", "--", "sleep", "1"})
		require.NoError(t, err)

		assert.Equal(t, profiler.Simple, inv.command)
		assert.Equal(t, []string{"sleep", "1"}, inv.args)
		assert.Equal(t, 3, inv.cfg.Profile.Iterations)
		assert.Equal(t, config.JSONFormat, inv.cfg.Output.Format)
	})

	t.Run("phases", func(t *testing.T) {
		inv, err := parseArgsAndConfig([]string{"phases", "--token-pattern", `#(\w+)#`, "--", "./bench.sh", "-v"})
		require.NoError(t, err)

		assert.Equal(t, profiler.Phases, inv.command)
		assert.Equal(t, []string{"./bench.sh", "-v"}, inv.args)
		assert.Equal(t, `#(\w+)#`, inv.cfg.Profile.TokenPattern)
	})

	t.Run("list sensors", func(t *testing.T) {
		inv, err := parseArgsAndConfig([]string{"--rapl.sockets=1", "list-sensors"})
		require.NoError(t, err)

		assert.Equal(t, profiler.ListSensors, inv.command)
		assert.Empty(t, inv.args)
		assert.Equal(t, []int{1}, inv.cfg.Rapl.Sockets)
	})

	t.Run("config file with flag override", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("log:\n  level: debug\nprofile:\n  iterations: 4\n"), 0o600))

		inv, err := parseArgsAndConfig([]string{"--config.file", path, "simple", "-n", "2", "--", "true"})
		require.NoError(t, err)
		assert.Equal(t, "debug", inv.cfg.Log.Level)
		assert.Equal(t, 2, inv.cfg.Profile.Iterations)
	})

	t.Run("errors", func(t *testing.T) {
		_, err := parseArgsAndConfig([]string{"simple"})
		assert.Error(t, err, "command is required")

		_, err = parseArgsAndConfig([]string{"simple", "-n", "0", "--", "true"})
		assert.ErrorContains(t, err, "invalid iterations")

		_, err = parseArgsAndConfig([]string{"--config.file", filepath.Join(t.TempDir(), "missing.yaml"), "list-sensors"})
		assert.ErrorContains(t, err, "failed to read config file")
	})
}

func TestCreateExporter(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)

	tests := []struct {
		format string
		check  func(t *testing.T, v any)
	}{
		{config.TerminalFormat, func(t *testing.T, v any) { assert.IsType(t, &stdout.Exporter{}, v) }},
		{config.JSONFormat, func(t *testing.T, v any) { assert.IsType(t, &json.Exporter{}, v) }},
		{config.CSVFormat, func(t *testing.T, v any) { assert.IsType(t, &csv.Exporter{}, v) }},
		{config.PrometheusFormat, func(t *testing.T, v any) { assert.IsType(t, &prometheus.Exporter{}, v) }},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			cfg := config.DefaultConfig()
			cfg.Output.Format = tt.format
			tt.check(t, createExporter(logger, cfg))
		})
	}
}
