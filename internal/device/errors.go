// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package device

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
)

var (
	// ErrPlatformUnsupported is returned when the host has no powercap interface
	ErrPlatformUnsupported = errors.New("platform does not support RAPL powercap counters")

	// ErrPathUnavailable is returned when the RAPL root does not exist
	ErrPathUnavailable = errors.New("RAPL path not available")

	// ErrInvalidPath is returned when the RAPL root is not a directory
	ErrInvalidPath = errors.New("invalid RAPL path")

	// ErrInsufficientPermissions is returned when the RAPL hierarchy or a counter can't be read
	// by the current user
	ErrInsufficientPermissions = errors.New("insufficient permissions to read RAPL counters")

	// ErrNoDomainsFound is returned when the scan of the RAPL root found no usable domain
	ErrNoDomainsFound = errors.New("no RAPL domains found")

	// ErrRead is returned when a counter or directory read failed. It is also used for
	// snapshots missing a domain, which is a programming error rather than an environment one
	ErrRead = errors.New("RAPL read error")

	// ErrParse is returned when a counter file holds a non numeric value
	ErrParse = errors.New("invalid energy value")
)

// classifyReadErr maps an error from reading path into one of the sentinel errors
func classifyReadErr(what string, err error) error {
	if errors.Is(err, fs.ErrPermission) {
		return fmt.Errorf("%w: %s: %v", ErrInsufficientPermissions, what, err)
	}

	var numErr *strconv.NumError
	if errors.As(err, &numErr) {
		return fmt.Errorf("%w %q in %s", ErrParse, numErr.Num, what)
	}

	return fmt.Errorf("%w: failed to read %s: %v", ErrRead, what, err)
}
