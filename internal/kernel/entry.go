// Package kernel provides the minimal page-fault entry stub that
// dispatches from the MMU interrupt vector into the pager service
// (spec §2 "Page-fault entry stub", §6 "Interrupt vector"). It carries
// no logic of its own beyond argument decoding — everything else is
// internal/pager's fault handler.
package kernel

import (
	"fmt"

	"vmpager/internal/caller"
	"vmpager/internal/pager"
)

// VectorType distinguishes the interrupt classes the MMU can raise.
// Only PageFault is dispatched here; anything else is out of this
// core's scope (spec §1 Out of scope).
type VectorType int

const (
	PageFault VectorType = iota
)

// Vector is the installed interrupt slot. A real kernel knows "the
// current process" implicitly when an interrupt fires; this substrate
// has no equivalent, so the caller — whatever goroutine plays the role
// of the faulting process — supplies pid explicitly.
type Vector struct {
	pager *pager.Service
}

// NewVector installs svc as the page-fault handler behind this vector.
func NewVector(svc *pager.Service) *Vector {
	return &Vector{pager: svc}
}

// Entry is the interrupt entry point: vtype selects the fault class,
// arg is the faulting virtual byte offset. It blocks until the pager
// has resolved or failed the fault, then returns — the retried
// instruction succeeds on ResultSuccess, or pid has already been
// terminated otherwise.
func (v *Vector) Entry(pid int, vtype VectorType, arg uint64) pager.Result {
	caller.AssertInvariant(vtype == PageFault, fmt.Sprintf("kernel: entry stub received unsupported vector type %d", vtype))
	return v.pager.FaultHandler(pid, arg)
}
