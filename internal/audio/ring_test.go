package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPushPullRoundTrip(t *testing.T) {
	r := NewRingBuffer(4)
	r.Push(0.1, -0.1)
	r.Push(0.2, -0.2)

	out := r.Pull(2)
	assert.InDelta(t, 0.1, out[0], 1e-6)
	assert.InDelta(t, -0.1, out[1], 1e-6)
	assert.InDelta(t, 0.2, out[2], 1e-6)
	assert.InDelta(t, -0.2, out[3], 1e-6)
}

func TestUnderrunFillsSilence(t *testing.T) {
	r := NewRingBuffer(4)
	r.Push(0.5, 0.5)

	out := r.Pull(4)
	assert.InDelta(t, 0.5, out[0], 1e-6)
	assert.Equal(t, float32(0), out[2])
	assert.Equal(t, float32(0), out[3])
}

func TestOverrunResetsCursorsInsteadOfBlocking(t *testing.T) {
	r := NewRingBuffer(2)
	r.Push(1, 1)
	r.Push(2, 2)
	r.Push(3, 3) // overrun: capacity is 2

	assert.Equal(t, 1, r.Available())
}
