// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !linux

package device

import (
	"errors"
	"io/fs"
	"os"
)

func canList(dir string) error {
	_, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrPermission) {
		return ErrInsufficientPermissions
	}
	return err
}
