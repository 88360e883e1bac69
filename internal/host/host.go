// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package host

import (
	"fmt"
	"os"
	"slices"

	"github.com/prometheus/procfs"
)

// Info describes the machine a profile was taken on
type Info struct {
	Hostname string `json:"hostname"`
	CPUModel string `json:"cpu_model,omitempty"`
	Sockets  int    `json:"sockets"`
	CPUs     int    `json:"cpus"`
}

type cpuInfoReader interface {
	CPUInfo() ([]procfs.CPUInfo, error)
}

// Describe reads host information from the proc filesystem mounted at procfsPath
func Describe(procfsPath string) (Info, error) {
	fs, err := procfs.NewFS(procfsPath)
	if err != nil {
		return Info{}, fmt.Errorf("failed to open procfs at %s: %w", procfsPath, err)
	}
	return describe(fs, os.Hostname)
}

func describe(r cpuInfoReader, hostname func() (string, error)) (Info, error) {
	var info Info

	name, err := hostname()
	if err != nil {
		return info, fmt.Errorf("failed to read hostname: %w", err)
	}
	info.Hostname = name

	cpus, err := r.CPUInfo()
	if err != nil {
		return info, fmt.Errorf("failed to read cpuinfo: %w", err)
	}

	var sockets []string
	for _, cpu := range cpus {
		if info.CPUModel == "" {
			info.CPUModel = cpu.ModelName
		}
		if !slices.Contains(sockets, cpu.PhysicalID) {
			sockets = append(sockets, cpu.PhysicalID)
		}
	}
	info.CPUs = len(cpus)
	info.Sockets = len(sockets)
	return info, nil
}
