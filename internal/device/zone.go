// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package device

import (
	"fmt"
	"strings"

	"github.com/prometheus/procfs/sysfs"
)

// EnergyZone represents a measurable energy domain exposed by the powercap
// interface, e.g. cpu core, cpu package, dram, uncore etc.
// Reference: https://www.kernel.org/doc/Documentation/power/powercap/powercap.txt
type EnergyZone interface {
	// Name() returns the domain name as read from its "name" file
	Name() string

	// Index() returns the socket the domain belongs to
	Index() int

	// Path() returns the directory from which the energy usage value is read.
	// It uniquely identifies the zone within a snapshot.
	Path() string

	// Energy() returns the raw counter value of the zone.
	Energy() (Energy, error)

	// MaxEnergy returns the maximum value of energy usage that can be read.
	// When energy usage reaches this value, the energy value returned by Energy()
	// will wrap around and start again from zero.
	MaxEnergy() Energy
}

// CounterName returns the name under which zones sharing (name, socket) are
// reported, e.g. PACKAGE_0 or DRAM_1
func CounterName(name string, socket int) string {
	return fmt.Sprintf("%s_%d", strings.ToUpper(name), socket)
}

// ZoneCounterName returns the merged counter name of zone
func ZoneCounterName(zone EnergyZone) string {
	return CounterName(zone.Name(), zone.Index())
}

// sysfsRaplZone implements EnergyZone using sysfs.RaplZone.
// The zone index holds the socket number parsed from the powercap directory name.
type sysfsRaplZone struct {
	zone sysfs.RaplZone
}

var _ EnergyZone = (*sysfsRaplZone)(nil)

func newSysfsRaplZone(name string, socket int, dir string, maxEnergy Energy) *sysfsRaplZone {
	return &sysfsRaplZone{
		zone: sysfs.RaplZone{
			Name:           name,
			Index:          socket,
			Path:           dir,
			MaxMicrojoules: uint64(maxEnergy),
		},
	}
}

// Name returns the name of the zone
func (s sysfsRaplZone) Name() string {
	return s.zone.Name
}

// Index returns the socket of the zone
func (s sysfsRaplZone) Index() int {
	return s.zone.Index
}

// Path returns the path of the zone
func (s sysfsRaplZone) Path() string {
	return s.zone.Path
}

// Energy returns the current energy value
func (s sysfsRaplZone) Energy() (Energy, error) {
	uj, err := s.zone.GetEnergyMicrojoules()
	if err != nil {
		return 0, classifyReadErr(fmt.Sprintf("domain %s (%s)", s.zone.Name, s.zone.Path), err)
	}
	return Energy(uj), nil
}

// MaxEnergy returns the maximum energy value before wraparound
func (s sysfsRaplZone) MaxEnergy() Energy {
	return Energy(s.zone.MaxMicrojoules)
}
