package input

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStrobeLatchesButtonsOnFallingEdge(t *testing.T) {
	c := &Controller{}
	c.SetButtons(ButtonA | ButtonStart)
	c.Strobe(true)
	c.Strobe(false)

	assert.Equal(t, uint8(0), c.ShiftRead()) // bit 15: B, not pressed
	assert.Equal(t, uint8(0), c.ShiftRead()) // bit 14: Y
	assert.Equal(t, uint8(0), c.ShiftRead()) // bit 13: Select
	assert.Equal(t, uint8(1), c.ShiftRead()) // bit 12: Start, pressed
}

func TestStrobeHeldHighRepeatsTopBit(t *testing.T) {
	c := &Controller{}
	c.SetButtons(ButtonB)
	c.Strobe(true)

	first := c.ShiftRead()
	second := c.ShiftRead()
	assert.Equal(t, first, second)
	assert.Equal(t, uint8(1), first)
}
