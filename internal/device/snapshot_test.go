// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package device

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	testingclock "k8s.io/utils/clock/testing"
)

func TestTakeSnapshot(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	clk := testingclock.NewFakeClock(now)

	pkg := NewFakeZone("package", 0, 1000, 10, 20)
	dram := NewFakeZone("dram", 0, 1000, 5, 7)
	zones := []EnergyZone{pkg, dram}

	snap, err := TakeSnapshot(zones, clk)
	require.NoError(t, err)
	assert.Equal(t, now, snap.Timestamp)
	assert.Equal(t, map[string]Energy{pkg.Path(): 10, dram.Path(): 5}, snap.Energies)
}

func TestTakeSnapshot_FailsFast(t *testing.T) {
	clk := testingclock.NewFakeClock(time.Now())
	boom := errors.New("boom")

	first := NewFakeZone("package", 0, 1000, 10).FailAt(0, boom)
	second := NewFakeZone("dram", 0, 1000, 5)

	snap, err := TakeSnapshot([]EnergyZone{first, second}, clk)
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, snap)
	assert.Equal(t, 0, second.Calls(), "no zone is read after a failure")
}

func TestDiff(t *testing.T) {
	pkg := NewFakeZone("package", 0, 1000)
	core := NewFakeZone("core", 0, 1000)
	dram1 := NewFakeZone("dram", 1, 500)
	zones := []EnergyZone{pkg, core, dram1}

	begin := &Snapshot{Energies: map[string]Energy{pkg.Path(): 100, core.Path(): 900, dram1.Path(): 10}}
	end := &Snapshot{Energies: map[string]Energy{pkg.Path(): 150, core.Path(): 100, dram1.Path(): 10}}

	deltas, err := Diff(zones, begin, end)
	require.NoError(t, err)
	assert.Equal(t, map[string]Energy{
		"PACKAGE_0": 50,
		"CORE_0":    200,
		"DRAM_1":    0,
	}, deltas)
}

func TestDiff_SumsSharedCounterNames(t *testing.T) {
	a := NewFakeZone("dram", 0, 1000).WithPath("/a")
	b := NewFakeZone("dram", 0, 1000).WithPath("/b")
	zones := []EnergyZone{a, b}

	begin := &Snapshot{Energies: map[string]Energy{"/a": 10, "/b": 20}}
	end := &Snapshot{Energies: map[string]Energy{"/a": 15, "/b": 50}}

	deltas, err := Diff(zones, begin, end)
	require.NoError(t, err)
	assert.Equal(t, map[string]Energy{"DRAM_0": 35}, deltas)
}

func TestDiff_MissingDomain(t *testing.T) {
	pkg := NewFakeZone("package", 0, 1000)
	zones := []EnergyZone{pkg}
	full := &Snapshot{Energies: map[string]Energy{pkg.Path(): 1}}
	empty := &Snapshot{Energies: map[string]Energy{}}

	_, err := Diff(zones, empty, full)
	assert.ErrorIs(t, err, ErrRead)
	assert.ErrorContains(t, err, "missing start energy snapshot")

	_, err = Diff(zones, full, empty)
	assert.ErrorIs(t, err, ErrRead)
	assert.ErrorContains(t, err, "missing end energy snapshot")
}
