// Package pager binds the frame and swap managers to a pool of worker
// processes that service page faults (spec §4.3): the fault handler
// captures a fault into a FIFO queue and blocks the faulter, a worker
// dequeues it, acquires a frame, swaps in the page, installs the PTE,
// and wakes the faulter. Grounded on the bounded worker-pool pattern
// the kernel itself doesn't use but the rest of the retrieved corpus
// does for page-fault-style handlers (golang.org/x/sync/errgroup).
package pager

import (
	"fmt"
	"sync"

	"vmpager/internal/caller"
	"vmpager/internal/defs"
	"vmpager/internal/frame"
	"vmpager/internal/mmu"
	"vmpager/internal/procsim"
	"vmpager/internal/swap"
	"vmpager/internal/vmstats"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// MaxPagers bounds num_pagers in PagerInit (spec §4.3 InvalidNumPagers).
const MaxPagers = 64

// PagerPriority is the scheduling priority pager worker processes are
// forked at. This substrate has no real priority classes; the constant
// is kept for parity with the contract's Fork(..., prio, ...) signature;
// Init does not pass it anywhere.
const PagerPriority = -10

// Result is the terminal outcome carried in a fault record's result
// field (spec §3) — distinct from defs.Err_t because AccessViolation is
// an MMU fault cause, not one of the core's stable Init/Shutdown error
// codes in spec §6.
type Result int

const (
	ResultPending Result = iota
	ResultSuccess
	ResultOutOfSwap
	ResultAccessViolation
)

// FaultRecord is one queued page-fault description (spec §3). Sentinel
// records are synthesized by PagerShutdown to wake and retire a worker;
// they never name a real pid.
type FaultRecord struct {
	Pid      int
	Offset   uint64
	Cause    mmu.Cause
	WaitSem  *procsim.BinarySem
	Result   Result
	Sentinel bool
}

type faultQueue struct {
	mu    sync.Mutex
	items []*FaultRecord
}

func (q *faultQueue) push(f *FaultRecord) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, f)
}

func (q *faultQueue) pop() *FaultRecord {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil
	}
	f := q.items[0]
	q.items = q.items[1:]
	return f
}

func (q *faultQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Service is the pager subsystem: PagerInit/PagerShutdown and the
// fault-handler entry point installed on the MMU interrupt vector
// (spec §4.3).
type Service struct {
	mu          sync.Mutex
	initialized bool
	numPagers   int

	pending *procsim.CountingSem
	queue   *faultQueue
	eg      *errgroup.Group

	mmu    mmu.Substrate
	frames *frame.Manager
	swap   *swap.Manager
	stats  *vmstats.Stats
	rt     *procsim.Runtime
	log    *zap.Logger

	hookMu     sync.Mutex
	hookedExit map[int]bool
}

// NewService wires a pager service to its collaborators. Init must be
// called before any fault is handled.
func NewService(m mmu.Substrate, frames *frame.Manager, sw *swap.Manager, stats *vmstats.Stats, rt *procsim.Runtime, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		mmu:        m,
		frames:     frames,
		swap:       sw,
		stats:      stats,
		rt:         rt,
		log:        log,
		hookedExit: make(map[int]bool),
	}
}

// Init forks num_pagers worker processes and opens the fault queue
// (spec §4.3 PagerInit).
func (s *Service) Init(numPagers int) defs.Err_t {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized {
		return defs.AlreadyInitialized
	}
	if numPagers < 1 || numPagers > MaxPagers {
		return defs.InvalidNumPagers
	}

	s.numPagers = numPagers
	s.pending = procsim.NewCountingSem(0)
	s.queue = &faultQueue{}
	s.eg = &errgroup.Group{}

	for i := 0; i < numPagers; i++ {
		pagerPid := s.rt.Spawn()
		s.eg.Go(func() error {
			s.workerLoop(pagerPid)
			return nil
		})
	}
	s.initialized = true
	s.log.Info("pager service initialized", zap.Int("num_pagers", numPagers))
	return defs.Success
}

// Shutdown signals all pagers to terminate via sentinel fault records,
// joins them, and leaves the queue empty (spec §4.3 PagerShutdown).
func (s *Service) Shutdown() defs.Err_t {
	s.mu.Lock()
	if !s.initialized {
		s.mu.Unlock()
		return defs.NotInitialized
	}
	n := s.numPagers
	s.mu.Unlock()

	for i := 0; i < n; i++ {
		s.queue.push(&FaultRecord{Sentinel: true})
		s.pending.V()
	}
	_ = s.eg.Wait()

	s.mu.Lock()
	s.initialized = false
	s.mu.Unlock()
	s.log.Info("pager service shut down")
	return defs.Success
}

// FaultHandler is the fault-type dispatch invoked from the MMU
// interrupt vector (spec §4.3, §6). It runs in the faulter's context:
// it allocates a fault record, enqueues it, wakes a pager, and blocks
// on the record's wait_sem until the pager resolves or fails the
// fault. On a terminal result it terminates pid.
func (s *Service) FaultHandler(pid int, offset uint64) Result {
	rec := &FaultRecord{
		Pid:     pid,
		Offset:  offset,
		Cause:   s.mmu.GetCause(pid),
		WaitSem: procsim.NewBinarySem(),
	}
	s.stats.IncFaults()
	s.ensureExitHook(pid)

	s.queue.push(rec)
	s.pending.V()
	rec.WaitSem.P()

	if rec.Result == ResultAccessViolation || rec.Result == ResultOutOfSwap {
		s.rt.Terminate(pid, int(rec.Result))
	}
	return rec.Result
}

// ensureExitHook registers a frame/swap reclamation hook for pid once;
// repeat registrations from later faults are harmless since FreeAll is
// idempotent, but only the first is needed.
func (s *Service) ensureExitHook(pid int) {
	s.hookMu.Lock()
	defer s.hookMu.Unlock()
	if s.hookedExit[pid] {
		return
	}
	s.hookedExit[pid] = true
	s.rt.OnExit(pid, func() {
		s.frames.FreeAll(pid)
		s.swap.FreeAll(pid)
	})
}

// workerLoop is a single pager's service loop (spec §4.3 step list).
func (s *Service) workerLoop(pagerPid int) {
	pageSize := s.mmu.PageSize()
	for {
		s.pending.P()
		rec := s.queue.pop()
		if rec == nil {
			continue
		}
		if rec.Sentinel {
			return
		}
		s.service(pagerPid, rec, pageSize)
	}
}

func (s *Service) service(pagerPid int, rec *FaultRecord, pageSize int) {
	if rec.Cause == mmu.CauseAccessViolation {
		rec.Result = ResultAccessViolation
		rec.WaitSem.V()
		return
	}

	page := int(rec.Offset) / pageSize

	frameIdx, ok := s.frames.Claim(rec.Pid, page)
	if !ok {
		var e defs.Err_t
		frameIdx, e = s.swap.SwapOut(pagerPid)
		if e != defs.Success {
			s.frames.Release(frameIdx)
			rec.Result = ResultOutOfSwap
			rec.WaitSem.V()
			return
		}
	}

	rc := s.swap.SwapIn(pagerPid, rec.Pid, page, frameIdx)
	switch rc {
	case defs.EmptyPage:
		if buf, e := s.frames.Map(pagerPid, frameIdx); e == defs.Success {
			for i := range buf {
				buf[i] = 0
			}
			s.frames.Unmap(pagerPid, frameIdx)
		}
	case defs.Success:
		// page content already placed in the frame by SwapIn's DiskRead.
	default:
		s.frames.Release(frameIdx)
		rec.Result = ResultOutOfSwap
		rec.WaitSem.V()
		s.log.Warn("swap-in failed", zap.Int("pid", rec.Pid), zap.Int("page", page), zap.String("err", rc.String()))
		return
	}

	table := s.mmu.GetPageTable(rec.Pid)
	caller.AssertInvariant(page < len(table), fmt.Sprintf("pager: page %d out of range for pid %d", page, rec.Pid))
	table[page] = mmu.PTE{Read: true, Write: true, Incore: true, Frame: frameIdx}
	s.mmu.SetPageTable(rec.Pid, table)

	s.frames.Finalize(frameIdx, rec.Pid, page)

	rec.Result = ResultSuccess
	rec.WaitSem.V()
}

// QueueLen reports the number of pending fault records, for tests and
// diagnostics.
func (s *Service) QueueLen() int {
	return s.queue.len()
}
