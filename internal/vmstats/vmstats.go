// Package vmstats holds the shared counters the frame manager, swap
// manager, and pager service all update: total/free frames, total/free
// blocks, page-ins, page-outs, replaced, and faults (spec §3 VmStats),
// behind one dedicated mutex as the lock-ordering rules require
// (spec §5: swap-table → clock-hand → frame-table → vm-stats).
package vmstats

import (
	"fmt"
	"reflect"
	"sync"
)

// Snapshot is a point-in-time, lock-free copy of Stats suitable for
// logging or test assertions.
type Snapshot struct {
	TotalFrames int
	FreeFrames  int
	TotalBlocks int
	FreeBlocks  int
	PageIns     int
	PageOuts    int
	Replaced    int
	Faults      int
}

// Stats is the vm-stats mutex domain. All fields are accessed only
// through its methods.
type Stats struct {
	mu sync.Mutex
	s  Snapshot
}

// New creates a zeroed counter block.
func New() *Stats {
	return &Stats{}
}

// SetFrameTotal records the frame-pool size fixed at FrameInit time and
// initializes free_frames to the same value. Frame and swap managers
// are initialized independently, so this touches only the frame
// fields — never the block fields a concurrent SwapInit is setting.
func (v *Stats) SetFrameTotal(frames int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.s.TotalFrames = frames
	v.s.FreeFrames = frames
}

// SetBlockTotal records the swap-block pool size fixed at SwapInit time
// and initializes free_blocks to the same value.
func (v *Stats) SetBlockTotal(blocks int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.s.TotalBlocks = blocks
	v.s.FreeBlocks = blocks
}

// Reset zeroes every counter. No Shutdown in the core calls it.
func (v *Stats) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.s = Snapshot{}
}

// AddFreeFrames adjusts the free-frame count by delta, positive or
// negative.
func (v *Stats) AddFreeFrames(delta int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.s.FreeFrames += delta
}

// AddFreeBlocks adjusts the free-block count by delta.
func (v *Stats) AddFreeBlocks(delta int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.s.FreeBlocks += delta
}

// IncPageIns bumps the page-in counter.
func (v *Stats) IncPageIns() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.s.PageIns++
}

// IncPageOuts bumps the page-out counter.
func (v *Stats) IncPageOuts() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.s.PageOuts++
}

// IncReplaced bumps the replaced-page counter.
func (v *Stats) IncReplaced() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.s.Replaced++
}

// IncFaults bumps the total-faults counter.
func (v *Stats) IncFaults() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.s.Faults++
}

// Snapshot returns a copy of the current counters.
func (v *Stats) Snapshot() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.s
}

// Dump renders every counter field, name and value, for diagnostic
// logging — walked via reflection so a new counter added to Snapshot
// shows up here without a matching edit.
func (v *Stats) Dump() string {
	snap := v.Snapshot()
	rv := reflect.ValueOf(snap)
	rt := rv.Type()
	out := ""
	for i := 0; i < rt.NumField(); i++ {
		if i > 0 {
			out += " "
		}
		out += fmt.Sprintf("%s=%d", rt.Field(i).Name, rv.Field(i).Int())
	}
	return out
}
