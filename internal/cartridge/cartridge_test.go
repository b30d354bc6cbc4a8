package cartridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadScoresValidHeader(t *testing.T) {
	rom := BuildTestROM(0x8000, 0x8000)
	c, err := Load(rom)
	assert.NoError(t, err)
	assert.Equal(t, LoROM, c.Mapping())
	assert.GreaterOrEqual(t, c.score, 10)
}

func TestChecksumInvariant(t *testing.T) {
	rom := BuildTestROM(0x8000, 0x8123)
	c, err := Load(rom)
	assert.NoError(t, err)

	header := rom[0x7FC0:0x8000]
	checksum := uint16(header[0x1E]) | uint16(header[0x1F])<<8
	complement := uint16(header[0x1C]) | uint16(header[0x1D])<<8
	assert.Equal(t, uint16(0xFFFF), checksum+complement)
	assert.GreaterOrEqual(t, c.score, 10)
}

func TestCopierHeaderStripped(t *testing.T) {
	rom := BuildTestROM(0x8000, 0x8000)
	withCopier := append(make([]uint8, 0x200), rom...)
	c, err := Load(withCopier)
	assert.NoError(t, err)
	assert.Equal(t, LoROM, c.Mapping())
}

func TestLoROMAddressing(t *testing.T) {
	rom := BuildTestROM(0x8000, 0x8000)
	c, err := Load(rom)
	assert.NoError(t, err)

	assert.Equal(t, rom[0], c.Read(0x008000))
	assert.Equal(t, rom[0x7FFF], c.Read(0x00FFFF))
}

func TestLoROMSRAMReadWrite(t *testing.T) {
	rom := BuildTestROM(0x8000, 0x8000)
	c, err := Load(rom)
	assert.NoError(t, err)
	c.sram = make([]uint8, 0x2000)

	c.Write(0x700000, 0x42)
	assert.Equal(t, uint8(0x42), c.Read(0x700000))
}

func TestRejectsUnsupportedCoprocessor(t *testing.T) {
	rom := BuildTestROM(0x8000, 0x8000)
	header := rom[0x7FC0:0x8000]
	header[0x16] = 0x34 // "other" accelerator, out of scope

	checksum := computeChecksum(rom, 0x7FDC)
	header[0x1E] = uint8(checksum)
	header[0x1F] = uint8(checksum >> 8)
	header[0x1C] = uint8(^checksum)
	header[0x1D] = uint8(^checksum >> 8)

	_, err := Load(rom)
	assert.Error(t, err)
}
