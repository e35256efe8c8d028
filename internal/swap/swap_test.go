package swap

import (
	"testing"

	"vmpager/internal/defs"
	"vmpager/internal/frame"
	"vmpager/internal/mmu"
	"vmpager/internal/swapdisk"
	"vmpager/internal/vmstats"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pagerPid = 1000

func newFixture(t *testing.T, pages, frames int) (*Manager, *frame.Manager, *mmu.Sim, *vmstats.Stats) {
	t.Helper()
	sim := mmu.NewSim(4096, pages, frames)
	stats := vmstats.New()
	fm := frame.NewManager(sim, stats)
	require.Equal(t, defs.Success, fm.Init(pages, frames))

	disk := swapdisk.NewMemDisk(swapdisk.Geometry{SectorBytes: 512, SectorsPerTrack: 16, Tracks: 4})
	sw := NewManager(disk, sim, fm, stats)
	require.Equal(t, defs.Success, sw.Init(pages, frames))
	return sw, fm, sim, stats
}

func TestSwapInFirstTouchReservesThenFills(t *testing.T) {
	sw, _, _, stats := newFixture(t, 4, 2)

	rc := sw.SwapIn(pagerPid, 1, 0, 0)
	assert.Equal(t, defs.EmptyPage, rc)
	assert.Equal(t, stats.Snapshot().TotalBlocks-1, stats.Snapshot().FreeBlocks)

	// Simulate the pager writing then evicting so the block becomes allocated.
	sw.tableMu.Lock()
	sw.blocks[0].allocated = true
	sw.tableMu.Unlock()

	rc = sw.SwapIn(pagerPid, 1, 0, 0)
	assert.Equal(t, defs.Success, rc)
	assert.Equal(t, 1, stats.Snapshot().PageIns)
}

func TestSwapInOutOfSwap(t *testing.T) {
	sw, _, _, _ := newFixture(t, 4, 2)
	// Exhaust all 8 blocks the 512*16*4/4096 = 8-block geometry provides.
	for i := 0; i < 8; i++ {
		rc := sw.SwapIn(pagerPid, i, 0, 0)
		assert.Equal(t, defs.EmptyPage, rc)
	}
	rc := sw.SwapIn(pagerPid, 99, 0, 0)
	assert.Equal(t, defs.OutOfSwap, rc)
}

func TestSwapInInvalidPid(t *testing.T) {
	sw, _, _, _ := newFixture(t, 4, 2)
	assert.Equal(t, defs.InvalidPid, sw.SwapIn(pagerPid, -1, 0, 0))
}

func TestSwapOutSelectsUnreferencedFrame(t *testing.T) {
	sw, fm, sim, _ := newFixture(t, 4, 2)

	fm.Finalize(0, 1, 0)
	fm.Finalize(1, 2, 0)
	table1 := sim.GetPageTable(1)
	table1[0] = mmu.PTE{Incore: true, Frame: 0, Read: true, Write: true}
	sim.SetPageTable(1, table1)
	table2 := sim.GetPageTable(2)
	table2[0] = mmu.PTE{Incore: true, Frame: 1, Read: true, Write: true}
	sim.SetPageTable(2, table2)

	sim.Touch(0, false) // frame 0 referenced, frame 1 not

	victim, rc := sw.SwapOut(pagerPid)
	require.Equal(t, defs.Success, rc)
	assert.Equal(t, 1, victim, "clock must pick the frame whose reference bit is clear")
	assert.True(t, fm.IsBusy(victim))
}

func TestClockHandAdvancesMonotonically(t *testing.T) {
	sw, fm, _, _ := newFixture(t, 4, 4)
	for i := 0; i < 4; i++ {
		fm.Finalize(i, i+1, 0)
	}

	first, rc := sw.SwapOut(pagerPid)
	require.Equal(t, defs.Success, rc)
	fm.Finalize(first, first+1, 0) // release busy so the next SwapOut can proceed

	second, rc := sw.SwapOut(pagerPid)
	require.Equal(t, defs.Success, rc)
	assert.Equal(t, (first+1)%4, second)
}

func TestSwapOutWritesBackDirtyFrame(t *testing.T) {
	sw, fm, sim, stats := newFixture(t, 4, 2)

	require.Equal(t, defs.EmptyPage, sw.SwapIn(pagerPid, 7, 0, 0))
	fm.Finalize(0, 7, 0)
	table := sim.GetPageTable(7)
	table[0] = mmu.PTE{Incore: true, Frame: 0, Read: true, Write: true}
	sim.SetPageTable(7, table)

	buf, rc := fm.Map(pagerPid, 0)
	require.Equal(t, defs.Success, rc)
	copy(buf, []byte("dirty page contents"))
	fm.Unmap(pagerPid, 0)
	sim.SetAccess(0, mmu.Access{Dirty: true})

	victim, rc := sw.SwapOut(pagerPid)
	require.Equal(t, defs.Success, rc)
	assert.Equal(t, 0, victim)
	assert.Equal(t, 1, stats.Snapshot().PageOuts)
	assert.Equal(t, 1, stats.Snapshot().Replaced)
	assert.False(t, sim.GetAccess(0).Dirty, "dirty bit must be cleared after a successful page-out")

	rc = sw.SwapIn(pagerPid, 7, 0, 0)
	require.Equal(t, defs.Success, rc)
	assert.Equal(t, 1, stats.Snapshot().PageIns)

	roundtripped, rc := fm.Map(pagerPid, 0)
	require.Equal(t, defs.Success, rc)
	assert.Equal(t, "dirty page contents", string(roundtripped[:len("dirty page contents")]), "swapped-in content must match what was written out")
}

func TestFreeAllReleasesOwnedBlocks(t *testing.T) {
	sw, _, _, stats := newFixture(t, 4, 2)
	sw.SwapIn(pagerPid, 5, 0, 0)
	sw.SwapIn(pagerPid, 5, 1, 0)
	before := stats.Snapshot().FreeBlocks

	require.Equal(t, defs.Success, sw.FreeAll(5))
	assert.Equal(t, before+2, stats.Snapshot().FreeBlocks)
}
