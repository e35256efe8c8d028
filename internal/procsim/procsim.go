// Package procsim is the reference implementation of the process and
// semaphore substrate the pager service is built on (spec §1, §6:
// Fork, GetPid, Terminate, P/V, SemCreate/SemFree — all "assumed
// correct"). Real callers on the substrate get these from the kernel;
// here we model a process as a goroutine with an explicit pid threaded
// through every call, since Go has no goroutine-local storage
// equivalent to the patched runtime.Gptr/Setgptr the kernel itself
// uses — explicit pid passing is the idiomatic substitute.
package procsim

import (
	"context"
	"sync"
	"sync/atomic"

	"vmpager/internal/defs"
	"vmpager/internal/tinfo"

	"golang.org/x/sync/semaphore"
)

// CountingSem is a classic counting semaphore: P blocks while the count
// is zero, V increments it and wakes one waiter.
type CountingSem struct {
	w *semaphore.Weighted
}

// NewCountingSem creates a semaphore with the given initial count.
func NewCountingSem(initial int) *CountingSem {
	s := &CountingSem{w: semaphore.NewWeighted(1 << 30)}
	// Pre-acquire down to capacity-initial so Acquire only succeeds
	// for the first `initial` callers before a V is needed — i.e.
	// treat unacquired capacity as the current count.
	_ = s.w.Acquire(context.Background(), int64(1<<30-initial))
	return s
}

// P blocks until the count is positive, then decrements it.
func (s *CountingSem) P() {
	_ = s.w.Acquire(context.Background(), 1)
}

// V increments the count, waking at most one blocked P.
func (s *CountingSem) V() {
	s.w.Release(1)
}

// BinarySem is the per-fault semaphore a faulter P()s on and the pager
// V()s exactly once (spec §3 Fault record, §9 design notes). It is
// created fresh per fault and discarded after use.
type BinarySem struct {
	ch chan struct{}
}

// NewBinarySem creates a binary semaphore at 0.
func NewBinarySem() *BinarySem {
	return &BinarySem{ch: make(chan struct{}, 1)}
}

// P blocks until V is called.
func (s *BinarySem) P() {
	<-s.ch
}

// V wakes the single waiter. Safe to call at most once per semaphore.
func (s *BinarySem) V() {
	s.ch <- struct{}{}
}

// Runtime is the reference process substrate: a pid allocator, a
// process-note registry (internal/tinfo), and exit hooks deferred until
// a pending fault completes (spec §5 Cancellation).
type Runtime struct {
	nextPid int64
	notes   *tinfo.Table

	mu    sync.Mutex
	hooks map[int][]func()
}

// NewRuntime constructs an empty process substrate.
func NewRuntime() *Runtime {
	return &Runtime{
		notes: tinfo.NewTable(),
		hooks: make(map[int][]func()),
	}
}

// Spawn registers a new process and returns its pid. It does not start
// any goroutine — callers run their own code and use the returned pid
// for subsequent Terminate/OnExit/Alive calls. This mirrors a normal
// user process faulting; pager.Service.Init also uses it to allocate
// pager pids, running the workers itself rather than through Fork.
func (r *Runtime) Spawn() int {
	pid := int(atomic.AddInt64(&r.nextPid, 1))
	n := &tinfo.Note_t{Pid: pid, Alive: true}
	r.notes.Add(n)
	return pid
}

// Fork starts fn in a new goroutine under a freshly allocated pid,
// modeling PagerInit's "fork num_pagers worker processes" (spec §4.3).
// name and prio are carried for logging/debugging only — this substrate
// has no real scheduling priorities.
func (r *Runtime) Fork(name string, prio int, fn func(pid int)) int {
	pid := r.Spawn()
	go fn(pid)
	return pid
}

// Terminate marks pid dead with the given exit code and runs its
// registered exit hooks. The spec requires process-exit cleanup
// (FrameFreeAll/SwapFreeAll) to run after the process's pending fault,
// if any, has already unblocked it — callers are responsible for that
// ordering; Terminate itself just fires the hooks it's given.
func (r *Runtime) Terminate(pid int, code int) {
	n := r.notes.Get(pid)
	if n == nil {
		return
	}
	n.Kill(defs.Err_t(code))
	r.mu.Lock()
	hooks := r.hooks[pid]
	delete(r.hooks, pid)
	r.mu.Unlock()
	for _, h := range hooks {
		h()
	}
	r.notes.Remove(pid)
}

// OnExit registers hook to run when pid terminates.
func (r *Runtime) OnExit(pid int, hook func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks[pid] = append(r.hooks[pid], hook)
}

// Alive reports whether pid is a known process that hasn't been
// terminated yet.
func (r *Runtime) Alive(pid int) bool {
	n := r.notes.Get(pid)
	if n == nil {
		return false
	}
	killed, _ := n.Killed()
	return !killed
}

// Note returns pid's process note, or nil if unknown.
func (r *Runtime) Note(pid int) *tinfo.Note_t {
	return r.notes.Get(pid)
}
