package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRotationSkipsRemovedPlayers(t *testing.T) {
	r := newRotation(testPlayers(4), 0)
	assert.Equal(t, "p1", r.current())

	r.remove("p2")
	assert.False(t, r.advance())
	assert.Equal(t, "p3", r.current())

	assert.False(t, r.advance())
	assert.Equal(t, "p4", r.current())

	assert.True(t, r.advance())
	assert.Equal(t, "p1", r.current())
	assert.Equal(t, []string{"p1", "p3", "p4"}, r.alive())
	assert.Equal(t, []string{"p2"}, r.removed())
}

func TestRotationStartOffset(t *testing.T) {
	r := newRotation(testPlayers(3), 4)
	assert.Equal(t, "p2", r.current())
	r.remove("p2")
	assert.Equal(t, "", r.current())
	r.advance()
	assert.Equal(t, "p3", r.current())
}
