// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package device

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"
	"strings"
)

const (
	// DefaultRaplPath is the powercap root relative to the sysfs mount point
	DefaultRaplPath = "devices/virtual/powercap/intel-rapl"

	raplDirPrefix = "intel-rapl:"
	energyFile    = "energy_uj"
	nameFile      = "name"
	maxEnergyFile = "max_energy_range_uj"

	unknownZoneName = "unknown"
)

// discovery finds the RAPL domains below a powercap root
type discovery struct {
	root    string
	goos    string
	logger  *slog.Logger
	sockets []int
}

type OptionFn func(*discovery)

// WithRaplLogger sets the logger used during discovery
func WithRaplLogger(logger *slog.Logger) OptionFn {
	return func(d *discovery) {
		d.logger = logger.With("service", "rapl")
	}
}

// WithSocketFilter restricts discovery to the given sockets.
// Sockets that don't exist on the host are ignored; a nil filter keeps all sockets.
func WithSocketFilter(sockets []int) OptionFn {
	return func(d *discovery) {
		d.sockets = sockets
	}
}

// withGOOS overrides the operating system used for the platform check
func withGOOS(goos string) OptionFn {
	return func(d *discovery) {
		d.goos = goos
	}
}

// Discover returns the RAPL domains found under root. It fails if the platform
// has no powercap interface, if root can't be used, or if no domain was found.
func Discover(root string, opts ...OptionFn) ([]EnergyZone, error) {
	d := &discovery{
		root:   root,
		goos:   runtime.GOOS,
		logger: slog.Default().With("service", "rapl"),
	}
	for _, opt := range opts {
		opt(d)
	}

	if err := d.checkPlatform(); err != nil {
		return nil, err
	}
	if err := d.checkRoot(); err != nil {
		return nil, err
	}

	zones, err := d.scan()
	if err != nil {
		return nil, err
	}

	return d.filterSockets(zones), nil
}

func (d *discovery) checkPlatform() error {
	if d.goos != "linux" {
		return fmt.Errorf("%w: %s", ErrPlatformUnsupported, d.goos)
	}
	return nil
}

// checkRoot verifies that the root exists, is a directory and can be listed
func (d *discovery) checkRoot() error {
	d.logger.Debug("Checking RAPL root", "path", d.root)

	info, err := os.Stat(d.root)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %s", ErrPathUnavailable, d.root)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %s", ErrInsufficientPermissions, d.root)
	case err != nil:
		return fmt.Errorf("%w: %s: %v", ErrPathUnavailable, d.root, err)
	}

	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrInvalidPath, d.root)
	}

	if err := canList(d.root); err != nil {
		if errors.Is(err, ErrInsufficientPermissions) {
			return fmt.Errorf("%w: %s", ErrInsufficientPermissions, d.root)
		}
		return classifyReadErr(d.root, err)
	}

	d.logger.Info("RAPL interface found", "path", d.root)
	return nil
}

// scan walks the top level "intel-rapl:*" directories of the root and their
// immediate sub directories
func (d *discovery) scan() ([]EnergyZone, error) {
	entries, err := os.ReadDir(d.root)
	if err != nil {
		return nil, classifyReadErr(d.root, err)
	}

	var zones []EnergyZone
	for _, entry := range entries {
		if !strings.HasPrefix(entry.Name(), raplDirPrefix) {
			d.logger.Debug("Skipping unrelated entry", "name", entry.Name())
			continue
		}

		dir := filepath.Join(d.root, entry.Name())
		if !isDir(dir) {
			continue
		}
		zones = d.appendZone(zones, dir)

		subEntries, err := os.ReadDir(dir)
		if err != nil {
			return nil, classifyReadErr(dir, err)
		}
		for _, sub := range subEntries {
			subDir := filepath.Join(dir, sub.Name())
			if isDir(subDir) {
				zones = d.appendZone(zones, subDir)
			}
		}
	}

	if len(zones) == 0 {
		d.logger.Warn("No RAPL domains found", "path", d.root)
		return nil, fmt.Errorf("%w in %s", ErrNoDomainsFound, d.root)
	}

	d.logger.Info("Discovered RAPL domains", "count", len(zones))
	return zones, nil
}

// appendZone appends the zone stored in dir when it exposes an energy counter.
// Zones without a readable max_energy_range_uj are skipped.
func (d *discovery) appendZone(zones []EnergyZone, dir string) []EnergyZone {
	if _, err := os.Stat(filepath.Join(dir, energyFile)); err != nil {
		d.logger.Debug("No energy counter", "path", dir)
		return zones
	}

	name := unknownZoneName
	if data, err := os.ReadFile(filepath.Join(dir, nameFile)); err == nil {
		if n := strings.TrimSpace(string(data)); n != "" {
			name = n
		}
	}

	socket := d.socketOf(dir)

	maxEnergy, err := readEnergyFile(filepath.Join(dir, maxEnergyFile))
	if err != nil {
		d.logger.Warn("Skipping RAPL domain without energy range", "path", dir, "error", err)
		return zones
	}

	d.logger.Debug("Found RAPL domain",
		"name", name,
		"socket", socket,
		"max_energy_uj", maxEnergy.MicroJoules(),
		"path", dir)

	return append(zones, newSysfsRaplZone(name, socket, dir, maxEnergy))
}

// socketOf returns the socket embedded in the first "intel-rapl:<socket>[:<sub>]"
// component of dir below the root; 0 when none can be parsed
func (d *discovery) socketOf(dir string) int {
	rel, err := filepath.Rel(d.root, dir)
	if err != nil {
		rel = dir
	}
	return parseSocket(rel)
}

func parseSocket(path string) int {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		rest, ok := strings.CutPrefix(part, raplDirPrefix)
		if !ok {
			continue
		}
		idx, _, _ := strings.Cut(rest, ":")
		if n, err := strconv.ParseUint(idx, 10, 31); err == nil {
			return int(n)
		}
	}
	return 0
}

// filterSockets keeps only the zones of the requested sockets. Requested sockets
// that were not discovered are dropped without error.
func (d *discovery) filterSockets(zones []EnergyZone) []EnergyZone {
	if d.sockets == nil {
		return zones
	}

	effective := EffectiveSockets(zones, d.sockets)
	var dropped []int
	for _, s := range d.sockets {
		if !slices.Contains(effective, s) {
			dropped = append(dropped, s)
		}
	}
	if len(dropped) > 0 {
		d.logger.Debug("Ignoring unknown sockets", "sockets", dropped)
	}

	filtered := make([]EnergyZone, 0, len(zones))
	var included, excluded []string
	for _, zone := range zones {
		if slices.Contains(effective, zone.Index()) {
			filtered = append(filtered, zone)
			included = append(included, zone.Path())
		} else {
			excluded = append(excluded, zone.Path())
		}
	}
	d.logger.Debug("Filtered RAPL domains", "included", included, "excluded", excluded)

	if len(filtered) == 0 {
		d.logger.Warn("Socket filter matched no RAPL domain", "sockets", d.sockets)
	}
	return filtered
}

// Sockets returns the sorted set of sockets of zones
func Sockets(zones []EnergyZone) []int {
	sockets := make([]int, 0, len(zones))
	for _, zone := range zones {
		if !slices.Contains(sockets, zone.Index()) {
			sockets = append(sockets, zone.Index())
		}
	}
	slices.Sort(sockets)
	return sockets
}

// EffectiveSockets intersects the requested sockets with the sockets of zones
func EffectiveSockets(zones []EnergyZone, requested []int) []int {
	available := Sockets(zones)
	effective := make([]int, 0, len(requested))
	for _, s := range requested {
		if slices.Contains(available, s) && !slices.Contains(effective, s) {
			effective = append(effective, s)
		}
	}
	slices.Sort(effective)
	return effective
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func readEnergyFile(path string) (Energy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, err
	}
	return Energy(v), nil
}
