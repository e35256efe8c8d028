// Package caller provides a stack-dump helper used when a substrate
// invariant is violated (spec §7: such failures are fatal and the
// implementation asserts and halts rather than trying to recover).
package caller

import (
	"fmt"
	"runtime"
	"strings"
)

// Dump renders the goroutine's call stack starting at depth, one frame
// per line, for inclusion in a panic message.
func Dump(depth int) string {
	i := depth
	var b strings.Builder
	for {
		_, f, l, ok := runtime.Caller(i)
		if !ok {
			break
		}
		i++
		if b.Len() == 0 {
			fmt.Fprintf(&b, "%s:%d\n", f, l)
		} else {
			fmt.Fprintf(&b, "\t<-%s:%d\n", f, l)
		}
	}
	return b.String()
}

// AssertInvariant panics with msg and the current call stack when cond is
// false. Callers use this at substrate-contract boundaries the spec
// declares "assumed correct" — a violation here means programmer error,
// not a recoverable runtime state.
func AssertInvariant(cond bool, msg string) {
	if cond {
		return
	}
	panic(fmt.Sprintf("%s\n%s", msg, Dump(2)))
}
