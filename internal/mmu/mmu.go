// Package mmu defines the MMU/page-table contract the paging core treats
// as an external substrate (spec §1, §6): translating a virtual page to a
// physical frame, reading/clearing the reference and dirty bits, and
// installing a process's page table. The real driver primitives
// (MmuInit, MmuSetPageTable, ...) are assumed correct; this package also
// supplies Sim, a software reference implementation used by tests and
// cmd/pagersim, grounded on the PTE bookkeeping in the kernel's own
// address-space code.
package mmu

import "sync"

// Cause distinguishes a resolvable page fault from an access violation
// (spec §3 Fault record, §6 MmuGetCause).
type Cause int

const (
	// CauseFault is a fault the pager can resolve by installing a page.
	CauseFault Cause = iota
	// CauseAccessViolation is a permission fault; the faulter is
	// terminated rather than serviced.
	CauseAccessViolation
)

// Access mirrors the MMU's per-frame reference and dirty bits (spec §6
// MmuGetAccess/MmuSetAccess).
type Access struct {
	Ref   bool
	Dirty bool
}

// PTE is one page-table entry. The core owns clearing Incore and
// resetting Frame on eviction/free, and setting Incore/Frame/Read/Write
// on install (spec §3).
type PTE struct {
	Read   bool
	Write  bool
	Incore bool
	Frame  int
}

// Substrate is the MMU + page-table contract consumed by frame, swap,
// and pager. PageSize, NumFrames and Pages are fixed at Init time;
// GetPageTable/SetPageTable install and read back a process's table as a
// whole, mirroring P3PageTableGet/P3PageTableSet in the original
// coursework (themselves substrate calls, not part of this core).
type Substrate interface {
	PageSize() int
	NumFrames() int
	Pages() int

	GetCause(pid int) Cause
	GetAccess(frame int) Access
	SetAccess(frame int, a Access)

	GetPageTable(pid int) []PTE
	SetPageTable(pid int, table []PTE)
}

// Sim is a software reference MMU: one flat PTE slice per pid, and a
// per-frame access-bit array. It is not hardware — Ref/Dirty are set
// explicitly by test code or cmd/pagersim to script fault scenarios —
// but it honors the same GetAccess/SetAccess/SetPageTable contract a
// real driver would.
type Sim struct {
	pageSize int
	frames   int
	pages    int

	mu     sync.Mutex
	tables map[int][]PTE
	access []Access
	causes map[int]Cause
}

// NewSim constructs a reference MMU simulator sized for the given
// per-process page count and physical frame count.
func NewSim(pageSize, pages, frames int) *Sim {
	return &Sim{
		pageSize: pageSize,
		frames:   frames,
		pages:    pages,
		tables:   make(map[int][]PTE),
		access:   make([]Access, frames),
		causes:   make(map[int]Cause),
	}
}

func (s *Sim) PageSize() int  { return s.pageSize }
func (s *Sim) NumFrames() int { return s.frames }
func (s *Sim) Pages() int     { return s.pages }

// SetCause scripts the fault cause GetCause will report for pid's next
// fault; test code and cmd/pagersim use this to drive the Access
// Violation scenario (spec §8 scenario 4).
func (s *Sim) SetCause(pid int, c Cause) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.causes[pid] = c
}

func (s *Sim) GetCause(pid int) Cause {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.causes[pid]
}

func (s *Sim) GetAccess(frame int) Access {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.access[frame]
}

func (s *Sim) SetAccess(frame int, a Access) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access[frame] = a
}

// Touch simulates a user access to frame for test scripting: a read
// sets the reference bit, a write sets both reference and dirty.
func (s *Sim) Touch(frame int, write bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access[frame].Ref = true
	if write {
		s.access[frame].Dirty = true
	}
}

func (s *Sim) GetPageTable(pid int) []PTE {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[pid]
	if !ok {
		t = make([]PTE, s.pages)
		s.tables[pid] = t
	}
	out := make([]PTE, len(t))
	copy(out, t)
	return out
}

func (s *Sim) SetPageTable(pid int, table []PTE) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]PTE, len(table))
	copy(cp, table)
	s.tables[pid] = cp
}
