// Package tinfo stores per-process state for the reference process
// substrate (internal/procsim): whether the process is still alive, has
// been killed, and the most recent fault error pending delivery to it.
package tinfo

import (
	"sync"

	"vmpager/internal/defs"
)

// Note_t is the per-process note threaded through Fork/Terminate/GetPid.
// The mutex protects killed and kerr, which the pager writes and the
// process reads back after waking from its fault wait.
type Note_t struct {
	Pid   int
	Alive bool

	mu     sync.Mutex
	killed bool
	kerr   defs.Err_t
}

// Kill marks the process terminated with the given fault-record result
// code (spec §7: AccessViolation/OutOfSwap terminate the faulter).
func (n *Note_t) Kill(err defs.Err_t) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.killed = true
	n.kerr = err
}

// Killed reports whether the process has been marked for termination and,
// if so, the error code it was terminated with.
func (n *Note_t) Killed() (bool, defs.Err_t) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.killed, n.kerr
}

// Table tracks all live process notes, keyed by pid.
type Table struct {
	mu    sync.Mutex
	notes map[int]*Note_t
}

// NewTable creates an empty process-note table.
func NewTable() *Table {
	return &Table{notes: make(map[int]*Note_t)}
}

// Add records a new process note.
func (t *Table) Add(n *Note_t) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.notes[n.Pid] = n
}

// Remove deletes the note for pid, if present.
func (t *Table) Remove(pid int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.notes, pid)
}

// Get returns the note for pid, or nil if the process is unknown.
func (t *Table) Get(pid int) *Note_t {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.notes[pid]
}
