// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package measurement

import "errors"

var (
	// ErrNoCommand is returned when no workload command was given
	ErrNoCommand = errors.New("no command specified")

	// ErrCommandNotFound is returned when the workload executable does not exist
	ErrCommandNotFound = errors.New("command not found")

	// ErrInvalidPattern is returned when the token pattern does not compile
	ErrInvalidPattern = errors.New("invalid token pattern")
)
