package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"gosnes/internal/cartridge"
)

type nullBackend struct{}

func (nullBackend) Present(frame []uint32, width, height int) {}

func TestLoadCartridgeRejectsUnsupportedCoprocessor(t *testing.T) {
	rom := cartridge.BuildTestROM(0x8000, 0x8000)
	header := rom[0x7FC0:0x8000]
	header[0x16] = 0x34
	sum := recomputeChecksum(rom)
	header[0x1E] = uint8(sum)
	header[0x1F] = uint8(sum >> 8)
	header[0x1C] = uint8(^sum)
	header[0x1D] = uint8(^sum >> 8)

	_, err := LoadCartridge(rom, nullBackend{})
	assert.Error(t, err)
	var engErr *EngineError
	assert.ErrorAs(t, err, &engErr)
	assert.Equal(t, ErrorUnsupportedCartridge, engErr.Kind)
}

func TestResetPlacesCPUAtCartridgeResetVector(t *testing.T) {
	rom := cartridge.BuildTestROM(0x8000, 0x8123)
	e, err := LoadCartridge(rom, nullBackend{})
	assert.NoError(t, err)
	e.Reset()
	assert.Equal(t, uint16(0x8123), e.CPU.PC)
}

func TestEmulateFrameRunsWithoutPanicking(t *testing.T) {
	rom := cartridge.BuildTestROM(0x8000, 0x8000)
	e, err := LoadCartridge(rom, nullBackend{})
	assert.NoError(t, err)
	e.Reset()
	assert.NotPanics(t, func() { e.EmulateFrame() })
}

func TestSaveLoadStateRoundTripsWRAM(t *testing.T) {
	rom := cartridge.BuildTestROM(0x8000, 0x8000)
	e, err := LoadCartridge(rom, nullBackend{})
	assert.NoError(t, err)

	e.Bus.Write(0x7E1234, 0x42)
	blob := e.SaveState()

	e.Bus.Write(0x7E1234, 0x00)
	assert.NoError(t, e.LoadState(blob))
	assert.Equal(t, uint8(0x42), e.Bus.Read(0x7E1234))
}

func TestLoadStateRejectsCorruptBlob(t *testing.T) {
	rom := cartridge.BuildTestROM(0x8000, 0x8000)
	e, err := LoadCartridge(rom, nullBackend{})
	assert.NoError(t, err)

	err = e.LoadState([]byte{1, 2, 3})
	assert.Error(t, err)
	var engErr *EngineError
	assert.ErrorAs(t, err, &engErr)
	assert.Equal(t, ErrorCorruptSaveState, engErr.Kind)
}

func TestCoprocessorIsNotWiredForCartridgesWithoutOne(t *testing.T) {
	rom := cartridge.BuildTestROM(0x8000, 0x8000)
	e, err := LoadCartridge(rom, nullBackend{})
	assert.NoError(t, err)
	assert.Nil(t, e.Bus.Coproc)
}

func TestHVIRQAssertsCPUIRQLineDuringFrame(t *testing.T) {
	rom := cartridge.BuildTestROM(0x8000, 0x8000)
	e, err := LoadCartridge(rom, nullBackend{})
	assert.NoError(t, err)
	e.Reset()
	e.CPU.SetIRQLine(false)
	e.Bus.Write(0x004200, 0x10) // H-IRQ on every line
	assert.NotPanics(t, func() { e.EmulateFrame() })
	// The engine raises the $4211 IRQ flag together with the CPU's IRQ line.
	assert.Equal(t, uint8(0x80), e.Bus.Read(0x004211))
}

func recomputeChecksum(rom []byte) uint16 {
	var sum uint16
	for i, b := range rom {
		if i >= 0x7FDC && i < 0x7FE0 {
			continue
		}
		sum += uint16(b)
	}
	return sum
}
