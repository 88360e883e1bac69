// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package device

import (
	"fmt"
	"time"

	"k8s.io/utils/clock"
)

// Snapshot holds the raw counter value of every zone at a point in time,
// keyed by zone path
type Snapshot struct {
	Energies  map[string]Energy
	Timestamp time.Time
}

// TakeSnapshot reads every zone once. Any read failure aborts the snapshot.
func TakeSnapshot(zones []EnergyZone, clk clock.PassiveClock) (*Snapshot, error) {
	energies := make(map[string]Energy, len(zones))
	for _, zone := range zones {
		e, err := zone.Energy()
		if err != nil {
			return nil, err
		}
		energies[zone.Path()] = e
	}
	return &Snapshot{Energies: energies, Timestamp: clk.Now()}, nil
}

// Diff computes the energy consumed by zones between begin and end, correcting
// wraparounds. Zones sharing a name and socket are summed under their counter name.
func Diff(zones []EnergyZone, begin, end *Snapshot) (map[string]Energy, error) {
	deltas := make(map[string]Energy, len(zones))
	for _, zone := range zones {
		start, ok := begin.Energies[zone.Path()]
		if !ok {
			return nil, fmt.Errorf("%w: missing start energy snapshot for domain %q", ErrRead, zone.Path())
		}
		stop, ok := end.Energies[zone.Path()]
		if !ok {
			return nil, fmt.Errorf("%w: missing end energy snapshot for domain %q", ErrRead, zone.Path())
		}
		deltas[ZoneCounterName(zone)] += EnergyDelta(start, stop, zone.MaxEnergy())
	}
	return deltas, nil
}
