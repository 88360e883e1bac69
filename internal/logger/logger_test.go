// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		format   string
		logLevel string

		shouldLogInfo bool // indicate if info should be logged or not
		withSource    bool
	}{{
		name:          "json format debug level",
		format:        "json",
		logLevel:      "debug",
		shouldLogInfo: true,
		withSource:    true,
	}, {
		name:          "json format info level",
		format:        "json",
		logLevel:      "info",
		shouldLogInfo: true,
	}, {
		name:     "json format warn level",
		format:   "json",
		logLevel: "warn",
	}, {
		name:          "text format debug level",
		format:        "text",
		logLevel:      "debug",
		shouldLogInfo: true,
		withSource:    true,
	}, {
		name:          "text format info level",
		format:        "text",
		logLevel:      "info",
		shouldLogInfo: true,
	}, {
		name:     "text format error level",
		format:   "text",
		logLevel: "error",
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := &bytes.Buffer{}
			logger := New(tt.logLevel, tt.format, out)
			logger.Info("test message", "key", "value")

			output := out.String()
			if !tt.shouldLogInfo {
				assert.Empty(t, output)
				return
			}
			assert.Contains(t, output, "test message")

			if tt.format == "text" {
				if tt.withSource {
					assert.Contains(t, output, "source=internal/logger/logger_test.go")
				} else {
					assert.NotContains(t, output, "source=")
				}
				return
			}

			logParts := map[string]any{}
			require.NoError(t, json.Unmarshal(out.Bytes(), &logParts))
			assert.Contains(t, logParts, "time")
			assert.Equal(t, "test message", logParts["msg"])
			assert.Equal(t, "value", logParts["key"])
			if tt.withSource {
				assert.Contains(t, logParts, "source")
			} else {
				assert.NotContains(t, logParts, "source")
			}
		})
	}

	t.Run("invalid format panics", func(t *testing.T) {
		assert.Panics(t, func() {
			_ = New("info", "invalid", &bytes.Buffer{})
		})
	})
}

func TestLogLevel(t *testing.T) {
	_ = New("warn", "text", &bytes.Buffer{})
	assert.Equal(t, slog.LevelWarn, LogLevel())
}

func TestShortPath(t *testing.T) {
	assert.Equal(t, "internal/source/manager.go", shortPath("/home/user/src/joule-profiler/internal/source/manager.go"))
	assert.Equal(t, "cmd/main.go", shortPath("cmd/main.go"))
	assert.Equal(t, "main.go", shortPath("main.go"))
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"invalid", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLogLevel(tt.level))
		})
	}
}
