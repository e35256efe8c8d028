package frame

import (
	"testing"

	"vmpager/internal/defs"
	"vmpager/internal/mmu"
	"vmpager/internal/vmstats"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFixture(t *testing.T, pages, frames int) (*Manager, *mmu.Sim, *vmstats.Stats) {
	t.Helper()
	sim := mmu.NewSim(4096, pages, frames)
	stats := vmstats.New()
	fm := NewManager(sim, stats)
	require.Equal(t, defs.Success, fm.Init(pages, frames))
	return fm, sim, stats
}

func TestInitIdempotentGuard(t *testing.T) {
	fm, _, _ := newFixture(t, 4, 2)
	assert.Equal(t, defs.AlreadyInitialized, fm.Init(4, 2))
}

func TestShutdownTwiceReturnsNotInitialized(t *testing.T) {
	fm, _, _ := newFixture(t, 4, 2)
	require.Equal(t, defs.Success, fm.Shutdown())
	assert.Equal(t, defs.NotInitialized, fm.Shutdown())
}

func TestClaimThenFinalizeThenFreeAll(t *testing.T) {
	fm, sim, stats := newFixture(t, 4, 2)

	frameIdx, ok := fm.Claim(1, 0)
	require.True(t, ok)
	assert.Equal(t, 1, stats.Snapshot().TotalFrames-stats.Snapshot().FreeFrames)

	fm.Finalize(frameIdx, 1, 0)
	table := sim.GetPageTable(1)
	table[0] = mmu.PTE{Read: true, Write: true, Incore: true, Frame: frameIdx}
	sim.SetPageTable(1, table)

	require.Equal(t, defs.Success, fm.FreeAll(1))
	assert.Equal(t, Unowned, fm.Entry(frameIdx).OwnerPid)
	assert.Equal(t, stats.Snapshot().TotalFrames, stats.Snapshot().FreeFrames)
}

func TestMapUnmapRoundTrip(t *testing.T) {
	fm, sim, _ := newFixture(t, 4, 2)
	pagerPid := 99

	before := sim.GetPageTable(pagerPid)
	buf, rc := fm.Map(pagerPid, 0)
	require.Equal(t, defs.Success, rc)
	buf[0] = 0x42

	require.Equal(t, defs.Success, fm.Unmap(pagerPid, 0))
	after := sim.GetPageTable(pagerPid)
	assert.Equal(t, before, after, "page table must be bitwise unchanged after map/unmap")
	assert.Equal(t, byte(0x42), fm.Phys.Page(0)[0])
}

func TestMapFrameBoundary(t *testing.T) {
	fm, _, _ := newFixture(t, 4, 2)
	_, rc := fm.Map(1, 2)
	assert.Equal(t, defs.InvalidFrame, rc)

	_, rc = fm.Map(1, 1)
	assert.Equal(t, defs.Success, rc)
}

func TestMapOutOfPages(t *testing.T) {
	fm, sim, _ := newFixture(t, 1, 2)
	table := sim.GetPageTable(1)
	table[0] = mmu.PTE{Incore: true, Frame: 0}
	sim.SetPageTable(1, table)

	_, rc := fm.Map(1, 1)
	assert.Equal(t, defs.OutOfPages, rc)
}

func TestUnmapNotMapped(t *testing.T) {
	fm, _, _ := newFixture(t, 4, 2)
	assert.Equal(t, defs.FrameNotMapped, fm.Unmap(1, 0))
}
