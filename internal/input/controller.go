// Package input implements the 16-bit shift-register controller protocol.
package input

// Button bit positions within the latched 16-bit controller word.
const (
	ButtonB      = 0x8000
	ButtonY      = 0x4000
	ButtonSelect = 0x2000
	ButtonStart  = 0x1000
	ButtonUp     = 0x0800
	ButtonDown   = 0x0400
	ButtonLeft   = 0x0200
	ButtonRight  = 0x0100
	ButtonA      = 0x0080
	ButtonX      = 0x0040
	ButtonL      = 0x0020
	ButtonR      = 0x0010
)

// Controller is one 16-bit shift-register joypad.
type Controller struct {
	latched uint16
	shift   uint16
	strobed bool
}

// SetButtons latches the live button state; takes effect on the next Strobe
// falling edge, matching hardware's "state as of strobe low" semantics.
func (c *Controller) SetButtons(word uint16) { c.latched = word }

// Strobe drives the controller's strobe line. A high-to-low transition
// reloads the shift register from the latched button state.
func (c *Controller) Strobe(high bool) {
	wasHigh := c.strobed
	c.strobed = high
	if wasHigh && !high {
		c.shift = c.latched
	}
	if high {
		c.shift = c.latched
	}
}

// ShiftRead returns the next bit (in bit 0) and advances the shift register,
// unless strobe is held high, in which case the top bit is repeated.
func (c *Controller) ShiftRead() uint8 {
	if c.strobed {
		return uint8(c.latched>>15) & 1
	}
	bit := uint8(c.shift>>15) & 1
	c.shift <<= 1
	c.shift |= 1 // open-bus fill per documented 16-clocks-then-all-ones behavior
	return bit
}
