package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoundupRounddown(t *testing.T) {
	assert.Equal(t, 4096, Rounddown(4500, 4096))
	assert.Equal(t, 8192, Roundup(4500, 4096))
	assert.Equal(t, 0, Rounddown(0, 4096))
	assert.Equal(t, 4096, Roundup(4096, 4096))
}
