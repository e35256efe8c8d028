package caller

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDumpIncludesCurrentFrame(t *testing.T) {
	out := Dump(0)
	assert.Contains(t, out, "caller_test.go")
}

func TestAssertInvariantPassesWhenTrue(t *testing.T) {
	assert.NotPanics(t, func() { AssertInvariant(true, "unreachable") })
}

func TestAssertInvariantPanicsWhenFalse(t *testing.T) {
	assert.Panics(t, func() { AssertInvariant(false, "invariant violated") })
}
