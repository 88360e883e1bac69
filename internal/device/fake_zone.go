// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package device

import (
	"fmt"
	"sync"
)

// NOTE: FakeZone is not intended to be used in production and is for testing only

// FakeZone implements EnergyZone with scripted counter readings.
// Each call to Energy returns the next reading; the last one is repeated once the
// script is exhausted.
type FakeZone struct {
	name      string
	socket    int
	path      string
	maxEnergy Energy

	mu       sync.Mutex
	readings []Energy
	errs     map[int]error
	calls    int
}

var _ EnergyZone = (*FakeZone)(nil)

// NewFakeZone returns a fake zone named name on socket with the given readings
func NewFakeZone(name string, socket int, maxEnergy Energy, readings ...Energy) *FakeZone {
	return &FakeZone{
		name:      name,
		socket:    socket,
		path:      fmt.Sprintf("/fake/intel-rapl:%d/%s", socket, name),
		maxEnergy: maxEnergy,
		readings:  readings,
		errs:      map[int]error{},
	}
}

// WithPath overrides the path of the zone
func (z *FakeZone) WithPath(path string) *FakeZone {
	z.path = path
	return z
}

// FailAt makes the n-th call (0 based) to Energy return err
func (z *FakeZone) FailAt(n int, err error) *FakeZone {
	z.mu.Lock()
	defer z.mu.Unlock()
	z.errs[n] = err
	return z
}

// Calls returns the number of times Energy was called
func (z *FakeZone) Calls() int {
	z.mu.Lock()
	defer z.mu.Unlock()
	return z.calls
}

func (z *FakeZone) Name() string {
	return z.name
}

func (z *FakeZone) Index() int {
	return z.socket
}

func (z *FakeZone) Path() string {
	return z.path
}

func (z *FakeZone) Energy() (Energy, error) {
	z.mu.Lock()
	defer z.mu.Unlock()

	n := z.calls
	z.calls++
	if err, ok := z.errs[n]; ok {
		return 0, err
	}
	if len(z.readings) == 0 {
		return 0, nil
	}
	if n >= len(z.readings) {
		n = len(z.readings) - 1
	}
	return z.readings[n], nil
}

func (z *FakeZone) MaxEnergy() Energy {
	return z.maxEnergy
}
