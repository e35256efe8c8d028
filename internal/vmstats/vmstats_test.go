package vmstats

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetTotalsAndAdjust(t *testing.T) {
	s := New()
	s.SetFrameTotal(2)
	s.SetBlockTotal(8)

	s.AddFreeFrames(-1)
	s.IncPageIns()
	s.IncPageOuts()
	s.IncReplaced()
	s.IncFaults()

	snap := s.Snapshot()
	assert.Equal(t, 2, snap.TotalFrames)
	assert.Equal(t, 1, snap.FreeFrames)
	assert.Equal(t, 8, snap.TotalBlocks)
	assert.Equal(t, 8, snap.FreeBlocks)
	assert.Equal(t, 1, snap.PageIns)
	assert.Equal(t, 1, snap.PageOuts)
	assert.Equal(t, 1, snap.Replaced)
	assert.Equal(t, 1, snap.Faults)
}

func TestConcurrentIncrementsAreSerialized(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.IncFaults()
		}()
	}
	wg.Wait()
	assert.Equal(t, 100, s.Snapshot().Faults)
}

func TestDumpListsEveryField(t *testing.T) {
	s := New()
	s.SetFrameTotal(4)
	out := s.Dump()
	assert.Contains(t, out, "TotalFrames=4")
	assert.Contains(t, out, "Faults=0")
}
