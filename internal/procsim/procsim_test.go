package procsim

import (
	"sync"
	"testing"
	"time"

	"vmpager/internal/defs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuntimeSpawnAndTerminate(t *testing.T) {
	rt := NewRuntime()
	pid := rt.Spawn()
	require.True(t, rt.Alive(pid))

	var exited bool
	rt.OnExit(pid, func() { exited = true })

	rt.Terminate(pid, int(defs.OutOfSwap))
	assert.False(t, rt.Alive(pid))
	assert.True(t, exited)
	assert.Nil(t, rt.Note(pid))
}

func TestRuntimeForkRunsGoroutine(t *testing.T) {
	rt := NewRuntime()
	done := make(chan int, 1)
	pid := rt.Fork("worker", 0, func(pid int) { done <- pid })
	select {
	case got := <-done:
		assert.Equal(t, pid, got)
	case <-time.After(time.Second):
		t.Fatal("forked goroutine never ran")
	}
}

func TestCountingSemReleasesBlockedWaiters(t *testing.T) {
	s := NewCountingSem(0)
	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup

	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.P()
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	s.V()
	s.V()
	s.V()
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, order, 3)
}

func TestBinarySemSignalsOnce(t *testing.T) {
	s := NewBinarySem()
	done := make(chan struct{})
	go func() {
		s.P()
		close(done)
	}()
	select {
	case <-done:
		t.Fatal("P returned before V")
	case <-time.After(20 * time.Millisecond):
	}
	s.V()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("P never returned after V")
	}
}
