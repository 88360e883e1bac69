// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package measurement

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"strings"
)

// LineFunc is called for every line of workload output with its 1-based number
type LineFunc func(line string, number int) error

// Workload is the program being profiled
type Workload interface {
	// Run executes the workload to completion and returns its exit code. When
	// onLine is set, output is also passed to it line by line.
	Run(onLine LineFunc) (int, error)

	// Command returns the command line of the workload
	Command() []string
}

// CommandWorkload runs an external command. Its standard output goes to Stdout,
// stderr is inherited.
type CommandWorkload struct {
	args   []string
	stdout io.Writer
	logger *slog.Logger
}

var _ Workload = (*CommandWorkload)(nil)

// NewCommandWorkload returns a workload running args. Output is written to stdout.
func NewCommandWorkload(args []string, stdout io.Writer, logger *slog.Logger) (*CommandWorkload, error) {
	if len(args) == 0 {
		return nil, ErrNoCommand
	}
	if stdout == nil {
		stdout = os.Stdout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CommandWorkload{
		args:   args,
		stdout: stdout,
		logger: logger.With("service", "workload"),
	}, nil
}

func (w *CommandWorkload) Command() []string {
	return w.args
}

func (w *CommandWorkload) Run(onLine LineFunc) (int, error) {
	cmd := exec.Command(w.args[0], w.args[1:]...)
	cmd.Stdin = os.Stdin
	cmd.Stderr = os.Stderr

	if onLine == nil {
		cmd.Stdout = w.stdout
		if err := w.start(cmd); err != nil {
			return 0, err
		}
		return w.wait(cmd)
	}

	pipe, err := cmd.StdoutPipe()
	if err != nil {
		return 0, fmt.Errorf("failed to capture output of %s: %w", w.args[0], err)
	}
	if err := w.start(cmd); err != nil {
		return 0, err
	}

	scanErr := w.scan(pipe, onLine)
	code, err := w.wait(cmd)
	if scanErr != nil {
		return code, scanErr
	}
	return code, err
}

func (w *CommandWorkload) start(cmd *exec.Cmd) error {
	w.logger.Debug("Starting workload", "command", strings.Join(w.args, " "))
	err := cmd.Start()
	switch {
	case err == nil:
		return nil
	case errors.Is(err, exec.ErrNotFound), errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %s", ErrCommandNotFound, w.args[0])
	default:
		return fmt.Errorf("failed to execute %s: %w", w.args[0], err)
	}
}

// scan echoes every line to stdout and hands it to onLine. After a callback
// failure the rest of the output is only echoed so that the workload can finish.
func (w *CommandWorkload) scan(r io.Reader, onLine LineFunc) error {
	reader := bufio.NewReader(r)
	var cbErr error
	for number := 1; ; number++ {
		line, err := reader.ReadString('\n')
		if len(line) > 0 {
			if _, werr := io.WriteString(w.stdout, line); werr != nil && cbErr == nil {
				cbErr = fmt.Errorf("failed to write workload output: %w", werr)
			}
			if cbErr == nil {
				cbErr = onLine(strings.TrimRight(line, "\r\n"), number)
			}
		}
		if errors.Is(err, io.EOF) {
			return cbErr
		}
		if err != nil {
			return errors.Join(cbErr, fmt.Errorf("failed to read line %d of workload output: %w", number, err))
		}
	}
}

// wait returns the exit code of the command; 1 when it can't be determined
func (w *CommandWorkload) wait(cmd *exec.Cmd) (int, error) {
	err := cmd.Wait()
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return 0, nil
	case errors.As(err, &exitErr):
		code := exitErr.ExitCode()
		if code < 0 {
			code = 1
		}
		w.logger.Debug("Workload exited", "code", code)
		return code, nil
	default:
		return 1, fmt.Errorf("failed to wait for %s: %w", w.args[0], err)
	}
}
