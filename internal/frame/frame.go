// Package frame owns the fixed pool of physical frames and the
// primitives that temporarily map a frame into a caller's address space
// (spec §4.1). It is one of the three subsystems the pager service
// glues together, the other two being internal/swap and the fault
// queue in internal/pager.
package frame

import (
	"sync"

	"vmpager/internal/defs"
	"vmpager/internal/mmu"
	"vmpager/internal/oommsg"
	"vmpager/internal/vmstats"
)

// Unowned marks a frame or swap-block entry with no current owner.
const Unowned = -1

// Entry is one physical frame's bookkeeping record (spec §3). Busy is
// the handoff token between a pager claiming a frame and the PTE
// install that finalizes it; only the owning pager clears it.
type Entry struct {
	OwnerPid  int
	OwnerPage int
	Busy      bool
}

func unownedEntry() Entry { return Entry{OwnerPid: Unowned, OwnerPage: Unowned} }

// Physmem is the byte-addressable backing store for every physical
// frame — the Go-idiomatic stand-in for the kernel's direct-mapped
// physical memory window (dmap): a pager gets a []byte view of a frame
// rather than a raw virtual address, since there is no hardware address
// space to speak of in this substrate.
type Physmem struct {
	pageSize int
	data     [][]byte
}

// NewPhysmem allocates zeroed backing storage for the given frame count.
func NewPhysmem(pageSize, frames int) *Physmem {
	p := &Physmem{pageSize: pageSize, data: make([][]byte, frames)}
	for i := range p.data {
		p.data[i] = make([]byte, pageSize)
	}
	return p
}

// Page returns the byte slice backing frame. Writes through it are
// visible to any other holder of the same frame index; callers must
// coordinate via the frame table's busy flag.
func (p *Physmem) Page(frame int) []byte { return p.data[frame] }

// Zero clears frame's contents.
func (p *Physmem) Zero(frame int) {
	for i := range p.data[frame] {
		p.data[frame][i] = 0
	}
}

// Manager is the frame-table mutex domain: FrameInit/FrameShutdown/
// FrameFreeAll/FrameMap/FrameUnmap (spec §4.1), guarded by a single
// mutex per the lock-ordering rules in spec §5.
type Manager struct {
	mu          sync.Mutex
	initialized bool
	entries     []Entry
	pages       int

	mmu   mmu.Substrate
	stats *vmstats.Stats
	Phys  *Physmem
}

// NewManager constructs an uninitialized frame manager bound to the
// given MMU substrate and shared stats block.
func NewManager(m mmu.Substrate, stats *vmstats.Stats) *Manager {
	return &Manager{mmu: m, stats: stats}
}

// Init allocates the frame table sized for frames physical frames and
// pages pages per process, and records the pool size in stats.
// Idempotent-guarded: a second call returns AlreadyInitialized.
func (fm *Manager) Init(pages, frames int) defs.Err_t {
	fm.mu.Lock()
	defer fm.mu.Unlock()
	if fm.initialized {
		return defs.AlreadyInitialized
	}
	fm.entries = make([]Entry, frames)
	for i := range fm.entries {
		fm.entries[i] = unownedEntry()
	}
	fm.pages = pages
	fm.Phys = NewPhysmem(fm.mmu.PageSize(), frames)
	fm.stats.SetFrameTotal(frames)
	fm.initialized = true
	return defs.Success
}

// Shutdown frees the frame table. A second call returns NotInitialized.
func (fm *Manager) Shutdown() defs.Err_t {
	fm.mu.Lock()
	defer fm.mu.Unlock()
	if !fm.initialized {
		return defs.NotInitialized
	}
	fm.entries = nil
	fm.Phys = nil
	fm.initialized = false
	return defs.Success
}

// Entry returns a copy of frame's bookkeeping entry, for tests and
// invariant checks.
func (fm *Manager) Entry(frame int) Entry {
	fm.mu.Lock()
	defer fm.mu.Unlock()
	return fm.entries[frame]
}

// Claim reserves the first unowned, non-busy frame for (pid, page) and
// marks it busy, used by the pager's frame-acquisition step (spec §4.3
// step 4) when free_frames > 0. ok is false if no frame is free.
func (fm *Manager) Claim(pid, page int) (frame int, ok bool) {
	fm.mu.Lock()
	defer fm.mu.Unlock()
	for i := range fm.entries {
		if fm.entries[i].OwnerPid == Unowned && !fm.entries[i].Busy {
			fm.entries[i] = Entry{OwnerPid: pid, OwnerPage: page, Busy: true}
			fm.stats.AddFreeFrames(-1)
			return i, true
		}
	}
	return 0, false
}

// Finalize installs (pid, page) into frame and clears busy, the last
// step of a successful fault service (spec §4.3 step 9).
func (fm *Manager) Finalize(frame, pid, page int) {
	fm.mu.Lock()
	defer fm.mu.Unlock()
	fm.entries[frame] = Entry{OwnerPid: pid, OwnerPage: page, Busy: false}
}

// Release returns frame to the unowned, non-busy pool, used when a
// fault fails with OutOfSwap after a frame was already claimed
// (spec §4.3 step 7).
func (fm *Manager) Release(frame int) {
	fm.mu.Lock()
	defer fm.mu.Unlock()
	fm.entries[frame] = unownedEntry()
	fm.stats.AddFreeFrames(1)
}

// MarkBusy flags frame busy without changing ownership, used by the
// swap manager's clock algorithm when it selects a victim.
func (fm *Manager) MarkBusy(frame int) {
	fm.mu.Lock()
	defer fm.mu.Unlock()
	fm.entries[frame].Busy = true
}

// IsBusy reports whether frame is currently claimed by a pager.
func (fm *Manager) IsBusy(frame int) bool {
	fm.mu.Lock()
	defer fm.mu.Unlock()
	return fm.entries[frame].Busy
}

// Owner returns the (pid, page) frame currently backs.
func (fm *Manager) Owner(frame int) (pid, page int) {
	fm.mu.Lock()
	defer fm.mu.Unlock()
	return fm.entries[frame].OwnerPid, fm.entries[frame].OwnerPage
}

// FreeAll clears incore for every page of pid's table and releases the
// corresponding frame entries back to unowned, bumping free_frames by
// the number released (spec §4.1 FrameFreeAll). Safe to call from a
// process-exit hook with no other frame-manager state held.
func (fm *Manager) FreeAll(pid int) defs.Err_t {
	fm.mu.Lock()
	initialized := fm.initialized
	fm.mu.Unlock()
	if !initialized {
		return defs.NotInitialized
	}

	table := fm.mmu.GetPageTable(pid)
	released := 0
	for i := range table {
		if !table[i].Incore {
			continue
		}
		frame := table[i].Frame
		fm.mu.Lock()
		if fm.entries[frame].OwnerPid == pid {
			fm.entries[frame] = unownedEntry()
			released++
		}
		fm.mu.Unlock()
		table[i].Incore = false
		table[i].Frame = 0
	}
	fm.mmu.SetPageTable(pid, table)
	if released > 0 {
		fm.stats.AddFreeFrames(released)
	}
	return defs.Success
}

// Map temporarily maps frame into callerPid's address space at the
// lowest-indexed page whose PTE has incore = 0, returning a byte view
// of the frame's contents (the Go-idiomatic out_addr). The mapping is
// transient and must be undone with Unmap before control returns to
// whatever process callerPid represents.
func (fm *Manager) Map(callerPid, frame int) ([]byte, defs.Err_t) {
	fm.mu.Lock()
	initialized := fm.initialized
	nframes := len(fm.entries)
	fm.mu.Unlock()
	if !initialized {
		return nil, defs.NotInitialized
	}
	if frame < 0 || frame >= nframes {
		return nil, defs.InvalidFrame
	}

	table := fm.mmu.GetPageTable(callerPid)
	slot := -1
	for i := range table {
		if !table[i].Incore {
			slot = i
			break
		}
	}
	if slot == -1 {
		oommsg.Notify(oommsg.Msg_t{Kind: oommsg.OutOfFrames, Pid: callerPid, Page: frame})
		return nil, defs.OutOfPages
	}
	table[slot] = mmu.PTE{Read: true, Write: true, Incore: true, Frame: frame}
	fm.mmu.SetPageTable(callerPid, table)
	return fm.Phys.Page(frame), defs.Success
}

// Unmap clears the PTE that mapped frame in callerPid's page table and
// reinstalls it. FrameNotMapped if callerPid did not hold that mapping.
func (fm *Manager) Unmap(callerPid, frame int) defs.Err_t {
	fm.mu.Lock()
	initialized := fm.initialized
	nframes := len(fm.entries)
	fm.mu.Unlock()
	if !initialized {
		return defs.NotInitialized
	}
	if frame < 0 || frame >= nframes {
		return defs.InvalidFrame
	}

	table := fm.mmu.GetPageTable(callerPid)
	for i := range table {
		if table[i].Incore && table[i].Frame == frame {
			table[i] = mmu.PTE{}
			fm.mmu.SetPageTable(callerPid, table)
			return defs.Success
		}
	}
	return defs.FrameNotMapped
}
