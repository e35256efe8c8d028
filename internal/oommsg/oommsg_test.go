package oommsg

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNotifyDeliversBufferedMessage(t *testing.T) {
	for len(Ch) > 0 {
		<-Ch
	}
	Notify(Msg_t{Kind: OutOfFrames, Pid: 1, Page: 2})
	select {
	case m := <-Ch:
		assert.Equal(t, OutOfFrames, m.Kind)
		assert.Equal(t, 1, m.Pid)
	default:
		t.Fatal("expected a buffered message")
	}
}
