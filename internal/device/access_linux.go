// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

//go:build linux

package device

import (
	"errors"

	"golang.org/x/sys/unix"
)

// canList reports whether the current user may list and traverse dir
func canList(dir string) error {
	err := unix.Access(dir, unix.R_OK|unix.X_OK)
	if errors.Is(err, unix.EACCES) || errors.Is(err, unix.EPERM) {
		return ErrInsufficientPermissions
	}
	return err
}
