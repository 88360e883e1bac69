// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package measurement

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	sudoUIDEnv = "SUDO_UID"
	sudoGIDEnv = "SUDO_GID"

	userFileMode = 0o664
)

// DefaultFileName returns the name of an output file created at now
func DefaultFileName(ext string, now time.Time) string {
	return fmt.Sprintf("data%d.%s", now.Unix(), ext)
}

// CreateUserFile creates or truncates path with mode 0664. When running under
// sudo the file is handed over to the invoking user.
func CreateUserFile(path string, getenv func(string) string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, userFileMode)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file %s: %w", path, err)
	}

	if err := SetUserPermissions(path, getenv); err != nil {
		_ = f.Close()
		return nil, err
	}
	return f, nil
}

// SetUserPermissions sets mode 0664 on path and, when SUDO_UID and SUDO_GID are
// set, makes it owned by that user and group
func SetUserPermissions(path string, getenv func(string) string) error {
	// umask may have narrowed the mode
	if err := os.Chmod(path, userFileMode); err != nil {
		return fmt.Errorf("failed to set permissions of %s: %w", path, err)
	}

	uid, uidErr := strconv.Atoi(getenv(sudoUIDEnv))
	gid, gidErr := strconv.Atoi(getenv(sudoGIDEnv))
	if uidErr != nil || gidErr != nil {
		return nil
	}

	if err := os.Chown(path, uid, gid); err != nil {
		return fmt.Errorf("failed to change owner of %s to %d:%d: %w", path, uid, gid, err)
	}
	return nil
}
