package dma

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeBus struct {
	mem [0x10000]uint8
}

func (f *fakeBus) Read(addr uint32) uint8         { return f.mem[addr&0xFFFF] }
func (f *fakeBus) Write(addr uint32, value uint8) { f.mem[addr&0xFFFF] = value }

func TestGDMANeverLeavesNonZeroCountAfterCompletion(t *testing.T) {
	bus := &fakeBus{}
	e := New(bus)
	e.Channels[0].Count = 16
	e.Channels[0].ABusAddr = 0x1000
	e.Channels[0].BBusAddr = 0x18 // VRAM data write

	e.TriggerGDMA(0x01)

	assert.Equal(t, uint16(0), e.Channels[0].Count)
}

func TestGDMAZeroCountMeansSixtyFourKiB(t *testing.T) {
	bus := &fakeBus{}
	e := New(bus)
	e.Channels[0].Count = 0
	e.Channels[0].ABusAddr = 0x0000
	e.Channels[0].BBusAddr = 0x18

	e.TriggerGDMA(0x01)

	assert.Equal(t, uint16(0), e.Channels[0].Count)
}

func TestHDMATerminatorEndsTransferOnZeroLineCount(t *testing.T) {
	bus := &fakeBus{}
	e := New(bus)

	bus.mem[0x2000] = 0x00 // terminator byte
	e.Channels[0].ABusAddr = 0x2000
	e.ArmHDMA(0x01)

	e.RunHDMALine()

	assert.True(t, e.Channels[0].hdmaDone)
}

func TestHDMADisarmedChannelsDoNotRun(t *testing.T) {
	bus := &fakeBus{}
	e := New(bus)
	e.ArmHDMA(0x00)
	e.RunHDMALine() // must not panic with no table set up
	assert.False(t, e.Channels[0].HDMAArmed)
}

func TestHDMAWithoutRepeatTransfersOnlyOnceAcrossTheEntry(t *testing.T) {
	bus := &fakeBus{}
	e := New(bus)

	bus.mem[0x2000] = 0x03 // header: repeat clear, 3 lines
	bus.mem[0x2001] = 0xAA
	e.Channels[0].ABusAddr = 0x2000
	e.Channels[0].BBusAddr = 0x18
	e.Channels[0].Mode = 0
	e.ArmHDMA(0x01)

	e.RunHDMALine() // line 1: transfers, since this is the header's own line
	assert.Equal(t, uint8(0xAA), bus.mem[0x2100+0x18])

	bus.mem[0x2100+0x18] = 0x00
	e.RunHDMALine() // line 2: repeat clear, no transfer
	assert.Equal(t, uint8(0x00), bus.mem[0x2100+0x18])

	e.RunHDMALine() // line 3: still no transfer
	assert.Equal(t, uint8(0x00), bus.mem[0x2100+0x18])
	assert.False(t, e.Channels[0].hdmaDone)
}

func TestHDMAWithRepeatTransfersEveryLine(t *testing.T) {
	bus := &fakeBus{}
	e := New(bus)

	bus.mem[0x2000] = 0x82 // header: repeat set, 2 lines
	bus.mem[0x2001] = 0x11
	bus.mem[0x2002] = 0x22
	e.Channels[0].ABusAddr = 0x2000
	e.Channels[0].BBusAddr = 0x18
	e.Channels[0].Mode = 0
	e.ArmHDMA(0x01)

	e.RunHDMALine()
	assert.Equal(t, uint8(0x11), bus.mem[0x2100+0x18])

	e.RunHDMALine()
	assert.Equal(t, uint8(0x22), bus.mem[0x2100+0x18])
}
