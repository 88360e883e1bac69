// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
)

// SignalHandler absorbs signals for as long as it runs. The profiled workload
// shares the terminal's process group and receives them itself, so the
// profiler outlives it and still reports what was measured.
type SignalHandler struct {
	logger  *slog.Logger
	signals []os.Signal

	// received is notified of every absorbed signal; used by tests
	received chan<- os.Signal
}

func NewSignalHandler(logger *slog.Logger, signals ...os.Signal) *SignalHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SignalHandler{
		logger:  logger.With("service", "signal-handler"),
		signals: signals,
	}
}

func (sh *SignalHandler) Name() string {
	return "signal-handler"
}

// Run absorbs signals until ctx is done
func (sh *SignalHandler) Run(ctx context.Context) error {
	c := make(chan os.Signal, 1)
	signal.Notify(c, sh.signals...)
	defer signal.Stop(c)

	for {
		select {
		case sig := <-c:
			sh.logger.Warn("Received signal, waiting for the workload to exit", "signal", sig)
			select {
			case sh.received <- sig:
			default:
			}

		case <-ctx.Done():
			return nil
		}
	}
}
