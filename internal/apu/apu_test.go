package apu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMailboxObservesLastWriteNotOwnWrite(t *testing.T) {
	a := New()

	// Main CPU writes to port 0; without the audio CPU writing back,
	// a read observes nothing new from the audio side (still zero).
	a.WriteMailbox(0, 0x42)
	assert.Equal(t, uint8(0), a.ReadMailbox(0))

	// Audio side writes its own reply; main CPU now observes that, not 0x42.
	a.write(0x00F4, 0x99)
	assert.Equal(t, uint8(0x99), a.ReadMailbox(0))
}

func TestResetEntersAtIPLVector(t *testing.T) {
	a := New()
	assert.Equal(t, uint16(0xFFC0), a.PC)
	assert.True(t, a.bootROMMapped)
}

func TestMOVImmediateSetsZeroFlag(t *testing.T) {
	a := New()
	a.RAM[0x0200] = 0xE8 // MOV A,#imm
	a.RAM[0x0201] = 0x00
	a.PC = 0x0200
	a.bootROMMapped = false
	a.Step(2)
	assert.Equal(t, uint8(0), a.A)
	assert.NotEqual(t, uint8(0), a.PSW&flagZ)
}

func TestTimerLatchesAndReadClears(t *testing.T) {
	a := New()
	a.bootROMMapped = false
	a.Timers[0].Target = 1
	a.Timers[0].Enabled = true

	for i := 0; i < 300; i++ {
		a.Timers[0].step()
	}
	assert.NotEqual(t, uint8(0), a.Timers[0].Latch)

	v := a.read(0x00FD)
	assert.NotEqual(t, uint8(0), v)
	assert.Equal(t, uint8(0), a.Timers[0].Latch)
}

func TestDIVByZeroSetsSentinel(t *testing.T) {
	a := New()
	a.bootROMMapped = false
	a.Y, a.A, a.X = 0x00, 0x01, 0x00
	a.RAM[0x0300] = 0x9E // DIV YA,X
	a.PC = 0x0300
	a.Step(12)
	assert.Equal(t, uint8(0xFF), a.A)
}

func TestIllegalOpcodeDoesNotHalt(t *testing.T) {
	a := New()
	a.bootROMMapped = false
	a.RAM[0x0400] = 0x01 // unassigned in our table
	a.RAM[0x0401] = 0xE8
	a.RAM[0x0402] = 0x00
	a.PC = 0x0400
	a.Step(4)
	assert.Equal(t, uint16(0x0403), a.PC)
}
