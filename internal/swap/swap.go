// Package swap implements block allocation on the swap disk, the
// clock-hand second-chance replacement policy, and the disk I/O that
// moves a page's contents between a frame and its backing block
// (spec §4.2). It is grounded on the original course skeleton's swap
// pager (phase3d.c), corrected per spec §9's documented bug fixes: the
// victim's dirty bit is cleared, not set, after a successful page-out,
// and frame-range checks are inclusive of the top frame index.
package swap

import (
	"sync"

	"vmpager/internal/caller"
	"vmpager/internal/defs"
	"vmpager/internal/frame"
	"vmpager/internal/mmu"
	"vmpager/internal/oommsg"
	"vmpager/internal/swapdisk"
	"vmpager/internal/util"
	"vmpager/internal/vmstats"
)

// blockEntry is one swap block's bookkeeping record (spec §3).
type blockEntry struct {
	ownerPid  int
	ownerPage int
	allocated bool
}

func unownedBlock() blockEntry {
	return blockEntry{ownerPid: frame.Unowned, ownerPage: frame.Unowned}
}

// Manager is the swap-table and clock-hand mutex domain: SwapInit/
// SwapShutdown/SwapFreeAll/SwapOut/SwapIn (spec §4.2). The lock order
// is swap-table → clock-hand → frame-table → vm-stats (spec §5); no
// method here ever takes frame-table or vm-stats before releasing
// swap-table or clock-hand, except the brief vm-stats bump at the end
// of SwapOut's page-out, taken last.
type Manager struct {
	tableMu sync.Mutex // guards blocks, sectorsPerPage, pageSize
	clockMu sync.Mutex // guards hand

	initialized    bool
	blocks         []blockEntry
	hand           int
	pageSize       int
	sectorsPerPage int

	disk   swapdisk.Disk
	mmu    mmu.Substrate
	frames *frame.Manager
	stats  *vmstats.Stats
}

// NewManager constructs an uninitialized swap manager wired to the
// given disk, MMU substrate, frame manager, and shared stats block.
func NewManager(disk swapdisk.Disk, m mmu.Substrate, frames *frame.Manager, stats *vmstats.Stats) *Manager {
	return &Manager{disk: disk, mmu: m, frames: frames, stats: stats}
}

// Init queries disk geometry, computes block_count = disk_bytes /
// page_size, allocates the swap table, and records totals in stats.
// pages is unused here (the frame manager owns per-process page
// counts) but kept to mirror the contract's SwapInit(pages, frames)
// signature.
func (sm *Manager) Init(pages, frames int) defs.Err_t {
	sm.tableMu.Lock()
	defer sm.tableMu.Unlock()
	if sm.initialized {
		return defs.AlreadyInitialized
	}

	geo := sm.disk.Size()
	pageSize := sm.mmu.PageSize()
	blockCount := int(geo.Bytes() / int64(pageSize))
	sm.blocks = make([]blockEntry, blockCount)
	for i := range sm.blocks {
		sm.blocks[i] = unownedBlock()
	}
	sm.pageSize = pageSize
	sm.sectorsPerPage = util.Roundup(pageSize, geo.SectorBytes) / geo.SectorBytes
	sm.clockMu.Lock()
	sm.hand = -1
	sm.clockMu.Unlock()

	sm.stats.SetBlockTotal(blockCount)
	sm.initialized = true
	return defs.Success
}

// Shutdown frees the swap table. A second call returns NotInitialized.
func (sm *Manager) Shutdown() defs.Err_t {
	sm.tableMu.Lock()
	defer sm.tableMu.Unlock()
	if !sm.initialized {
		return defs.NotInitialized
	}
	sm.blocks = nil
	sm.initialized = false
	return defs.Success
}

// FreeAll releases every block owned by pid back to unowned, bumping
// free_blocks by the number released (spec §4.1 FrameFreeAll's swap
// counterpart, §4.2 SwapFreeAll).
func (sm *Manager) FreeAll(pid int) defs.Err_t {
	sm.tableMu.Lock()
	defer sm.tableMu.Unlock()
	if !sm.initialized {
		return defs.NotInitialized
	}
	released := 0
	for i := range sm.blocks {
		if sm.blocks[i].ownerPid == pid {
			sm.blocks[i] = unownedBlock()
			released++
		}
	}
	if released > 0 {
		sm.stats.AddFreeBlocks(released)
	}
	return defs.Success
}

// location computes the (track, sector) a block index occupies, given
// the disk's sectors-per-track (spec §4.2 Block layout).
func (sm *Manager) location(index, sectorsPerTrack int) (track, sector int) {
	linear := index * sm.sectorsPerPage
	return linear / sectorsPerTrack, linear % sectorsPerTrack
}

// SwapOut selects a victim frame via the second-chance clock
// algorithm, evicts its resident page if dirty, unmaps it from the
// owner's page table, and returns the frame index still marked busy
// for the caller to finish swapping in. The clock-hand mutex is held
// for the entire victim search and the page-out that follows (spec
// §4.2, §5).
func (sm *Manager) SwapOut(pagerPid int) (victim int, err defs.Err_t) {
	sm.clockMu.Lock()
	defer sm.clockMu.Unlock()

	nframes := sm.mmu.NumFrames()
	victim = -1
	for {
		sm.hand = (sm.hand + 1) % nframes
		if sm.frames.IsBusy(sm.hand) {
			continue
		}
		access := sm.mmu.GetAccess(sm.hand)
		if !access.Ref {
			victim = sm.hand
			sm.frames.MarkBusy(victim)
			break
		}
		access.Ref = false
		sm.mmu.SetAccess(sm.hand, access)
	}

	ownerPid, ownerPage := sm.frames.Owner(victim)
	access := sm.mmu.GetAccess(victim)
	if access.Dirty {
		if e := sm.writeBack(pagerPid, victim, ownerPid, ownerPage); e != defs.Success {
			return victim, e
		}
		access.Dirty = false
		sm.mmu.SetAccess(victim, access)
		sm.stats.IncPageOuts()
		sm.stats.IncReplaced()
	}

	table := sm.mmu.GetPageTable(ownerPid)
	for i := range table {
		if table[i].Incore && table[i].Frame == victim {
			table[i].Incore = false
			table[i].Frame = 0
		}
	}
	sm.mmu.SetPageTable(ownerPid, table)

	return victim, defs.Success
}

// writeBack locates the swap block owned by (pid, page) — it must
// exist, since a dirty frame's page was necessarily touched before and
// therefore already holds an allocated slot — and writes the frame's
// contents there via the frame manager's scratch mapping.
func (sm *Manager) writeBack(pagerPid, frameIdx, pid, page int) defs.Err_t {
	sm.tableMu.Lock()
	idx := -1
	for i := range sm.blocks {
		if sm.blocks[i].ownerPid == pid && sm.blocks[i].ownerPage == page {
			idx = i
			break
		}
	}
	if idx == -1 {
		sm.tableMu.Unlock()
		caller.AssertInvariant(false, "swap: dirty frame has no allocated swap block")
	}
	sm.blocks[idx].allocated = true
	geo := sm.disk.Size()
	track, sector := sm.location(idx, geo.SectorsPerTrack)
	sm.tableMu.Unlock()

	buf, e := sm.frames.Map(pagerPid, frameIdx)
	if e != defs.Success {
		return e
	}
	defer sm.frames.Unmap(pagerPid, frameIdx)

	if err := sm.disk.Write(track, sector, sm.sectorsPerPage, buf); err != nil {
		return defs.OutOfSwap
	}
	return defs.Success
}

// SwapIn populates frame with the content of (pid, page), allocating a
// fresh block reservation the first time this pair is seen (spec §4.2
// SwapIn). The swap-table mutex is held across the entire call.
func (sm *Manager) SwapIn(pagerPid, pid, page, frameIdx int) defs.Err_t {
	sm.tableMu.Lock()
	if !sm.initialized {
		sm.tableMu.Unlock()
		return defs.NotInitialized
	}
	if pid < 0 {
		sm.tableMu.Unlock()
		return defs.InvalidPid
	}
	if page < 0 || page >= sm.mmu.Pages() {
		sm.tableMu.Unlock()
		return defs.InvalidPage
	}
	if frameIdx < 0 || frameIdx >= sm.mmu.NumFrames() {
		sm.tableMu.Unlock()
		return defs.InvalidFrame
	}

	found := -1
	free := -1
	for i := range sm.blocks {
		if sm.blocks[i].ownerPid == pid && sm.blocks[i].ownerPage == page {
			found = i
			break
		}
		if free == -1 && sm.blocks[i].ownerPid == frame.Unowned {
			free = i
		}
	}

	switch {
	case found != -1 && sm.blocks[found].allocated:
		geo := sm.disk.Size()
		track, sector := sm.location(found, geo.SectorsPerTrack)
		defer sm.tableMu.Unlock()

		buf, e := sm.frames.Map(pagerPid, frameIdx)
		if e != defs.Success {
			return e
		}
		defer sm.frames.Unmap(pagerPid, frameIdx)
		if err := sm.disk.Read(track, sector, sm.sectorsPerPage, buf); err != nil {
			return defs.OutOfSwap
		}
		sm.stats.IncPageIns()
		return defs.Success

	case found != -1 && !sm.blocks[found].allocated:
		sm.tableMu.Unlock()
		return defs.EmptyPage

	case free != -1:
		sm.blocks[free] = blockEntry{ownerPid: pid, ownerPage: page, allocated: false}
		sm.stats.AddFreeBlocks(-1)
		sm.tableMu.Unlock()
		return defs.EmptyPage

	default:
		sm.tableMu.Unlock()
		oommsg.Notify(oommsg.Msg_t{Kind: oommsg.OutOfSwap, Pid: pid, Page: page})
		return defs.OutOfSwap
	}
}
