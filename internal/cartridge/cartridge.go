// Package cartridge implements ROM loading and address mapping for SNES cartridges.
package cartridge

import (
	"errors"
	"io"
)

// MappingMode selects how CPU addresses decode into ROM/SRAM offsets.
type MappingMode uint8

const (
	LoROM MappingMode = iota
	HiROM
	ExHiROM
)

// Coprocessor identifies an onboard chip detected from the header.
type Coprocessor uint8

const (
	CoprocNone Coprocessor = iota
	CoprocMath             // DSP-1 style math coprocessor
	CoprocVector           // SuperFX-class vector coprocessor
	CoprocOther            // detected but unsupported by this engine
)

// Cartridge holds immutable ROM bytes plus a writable battery-backed SRAM region.
type Cartridge struct {
	rom  []uint8
	sram []uint8

	mapping     MappingMode
	coprocessor Coprocessor
	hasBattery  bool
	title       string
	score       int
}

// headerCandidate is one scored guess at the header location.
type headerCandidate struct {
	offset int
	mode   MappingMode
	score  int
}

// candidateOffsets are tried against LoROM, HiROM and ExHiROM header locations.
var candidateOffsets = []struct {
	offset int
	mode   MappingMode
}{
	{0x7FC0, LoROM},
	{0xFFC0, HiROM},
	{0x40FFC0, ExHiROM},
}

// sramSizeFromHeader maps the header's SRAM-size byte to a byte count (0 => none).
func sramSizeFromHeader(b uint8) int {
	if b == 0 {
		return 0
	}
	size := 1 << b
	if size > 128*1024 {
		size = 128 * 1024
	}
	return size
}

// LoadFromReader parses a raw ROM image (with an optional 512-byte copier
// header) and builds a Cartridge using the header-scoring heuristic.
func LoadFromReader(r io.Reader) (*Cartridge, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return Load(data)
}

// Load parses raw ROM bytes already read into memory.
func Load(data []uint8) (*Cartridge, error) {
	if len(data) < 0x8000 {
		return nil, errors.New("cartridge: rom too small")
	}

	// Copier-header stripping: a 512-byte header pushes rom_len%0x8000 to 0x200.
	if len(data)%0x8000 == 0x200 {
		data = data[0x200:]
	}

	best, err := scoreHeaders(data)
	if err != nil {
		return nil, err
	}

	header := data[best.offset : best.offset+0x40]
	sramBytes := sramSizeFromHeader(header[0x18])
	chipset := header[0x16]

	c := &Cartridge{
		rom:         data,
		sram:        make([]uint8, sramBytes),
		mapping:     best.mode,
		coprocessor: coprocessorFromChipset(chipset),
		hasBattery:  chipset&0x02 != 0 && chipset != 0,
		title:       extractTitle(header),
		score:       best.score,
	}

	if c.coprocessor == CoprocOther {
		return nil, errors.New("cartridge: unsupported coprocessor")
	}

	return c, nil
}

// scoreHeaders evaluates each candidate header location and returns the
// highest-scoring one. A reset vector below $8000 disqualifies a candidate
// outright; every other predicate only adds points.
func scoreHeaders(data []uint8) (headerCandidate, error) {
	var best headerCandidate
	best.score = -1

	for _, cand := range candidateOffsets {
		off := cand.offset
		if off+0x40 > len(data) {
			continue
		}
		header := data[off : off+0x40]

		resetLow := header[0x3C]
		resetHigh := header[0x3D]
		resetVector := uint16(resetLow) | uint16(resetHigh)<<8
		if resetVector < 0x8000 {
			continue
		}

		score := 0
		checksum := uint16(header[0x1E]) | uint16(header[0x1F])<<8
		complement := uint16(header[0x1C]) | uint16(header[0x1D])<<8
		if checksum+complement == 0xFFFF {
			score += 10
		}

		mapByte := header[0x15]
		switch mapByte {
		case 0x20, 0x21, 0x23, 0x30, 0x31, 0x35:
			score += 2
		}

		romSizeByte := header[0x17]
		if romSizeByte >= 0x08 && romSizeByte <= 0x0D {
			score += 1
		}

		if score > best.score {
			best = headerCandidate{offset: off, mode: cand.mode, score: score}
		}
	}

	if best.score < 0 {
		return headerCandidate{}, errors.New("cartridge: no valid header found")
	}
	return best, nil
}

func coprocessorFromChipset(chipset uint8) Coprocessor {
	switch chipset {
	case 0x03, 0x04, 0x05:
		return CoprocMath
	case 0x13, 0x14, 0x15, 0x1A:
		return CoprocVector
	case 0x34, 0x35:
		return CoprocOther
	default:
		return CoprocNone
	}
}

func extractTitle(header []uint8) string {
	title := header[0x00:0x15]
	end := len(title)
	for end > 0 && (title[end-1] == 0 || title[end-1] == ' ') {
		end--
	}
	return string(title[:end])
}

// Mapping reports the detected mapping mode.
func (c *Cartridge) Mapping() MappingMode { return c.mapping }

// Coprocessor reports the onboard chip, if any.
func (c *Cartridge) Coprocessor() Coprocessor { return c.coprocessor }

// HasBattery reports whether SRAM should be persisted.
func (c *Cartridge) HasBattery() bool { return c.hasBattery }

// Title returns the printable cartridge title from the header.
func (c *Cartridge) Title() string { return c.title }

// SRAM returns the backing SRAM array for save-state serialization.
func (c *Cartridge) SRAM() []uint8 { return c.sram }

// LoadSRAM overwrites the SRAM contents, truncating or zero-filling to fit.
func (c *Cartridge) LoadSRAM(data []uint8) {
	n := copy(c.sram, data)
	for i := n; i < len(c.sram); i++ {
		c.sram[i] = 0
	}
}

// Read dispatches a 24-bit address to ROM or SRAM according to the mapping mode.
func (c *Cartridge) Read(addr uint32) uint8 {
	bank := uint8(addr >> 16)
	offset := uint16(addr)

	switch c.mapping {
	case LoROM:
		if sramOff, ok := c.loROMSRAM(bank, offset); ok {
			return c.readSRAM(sramOff)
		}
		if romOff, ok := c.loROMROM(bank, offset); ok {
			return c.readROM(romOff)
		}
	case HiROM, ExHiROM:
		if sramOff, ok := c.hiROMSRAM(bank, offset); ok {
			return c.readSRAM(sramOff)
		}
		if romOff, ok := c.hiROMROM(bank, offset); ok {
			return c.readROM(romOff)
		}
	}
	return 0
}

// Write dispatches a 24-bit address write; ROM writes are no-ops, SRAM writes mutate.
func (c *Cartridge) Write(addr uint32, value uint8) {
	bank := uint8(addr >> 16)
	offset := uint16(addr)

	switch c.mapping {
	case LoROM:
		if sramOff, ok := c.loROMSRAM(bank, offset); ok {
			c.writeSRAM(sramOff, value)
		}
	case HiROM, ExHiROM:
		if sramOff, ok := c.hiROMSRAM(bank, offset); ok {
			c.writeSRAM(sramOff, value)
		}
	}
}

func (c *Cartridge) readROM(off int) uint8 {
	if len(c.rom) == 0 {
		return 0
	}
	return c.rom[off%len(c.rom)]
}

func (c *Cartridge) readSRAM(off int) uint8 {
	if len(c.sram) == 0 {
		return 0xFF
	}
	return c.sram[off%len(c.sram)]
}

func (c *Cartridge) writeSRAM(off int, value uint8) {
	if len(c.sram) == 0 {
		return
	}
	c.sram[off%len(c.sram)] = value
}

// loROMROM maps LoROM banks $00-$7D/$80-$FF, offset >=$8000, into a ROM offset.
func (c *Cartridge) loROMROM(bank uint8, offset uint16) (int, bool) {
	b := bank & 0x7F
	if offset < 0x8000 {
		return 0, false
	}
	if b > 0x7D && bank < 0x80 {
		return 0, false
	}
	romOff := int(b)*0x8000 + int(offset-0x8000)
	return romOff, true
}

// loROMSRAM maps banks $70-$7D/$FE-$FF, offset <$8000, into an SRAM offset.
func (c *Cartridge) loROMSRAM(bank uint8, offset uint16) (int, bool) {
	b := bank & 0x7F
	if offset >= 0x8000 {
		return 0, false
	}
	if !((bank >= 0x70 && bank <= 0x7D) || bank >= 0xFE) {
		return 0, false
	}
	sramOff := int(b-0x70)*0x8000 + int(offset)
	return sramOff, true
}

// hiROMROM maps banks $40-$7D/$C0-$FF fully linear (ExHiROM extends the upper half).
func (c *Cartridge) hiROMROM(bank uint8, offset uint16) (int, bool) {
	b := int(bank)
	switch c.mapping {
	case ExHiROM:
		if b >= 0xC0 {
			return (b-0xC0)*0x10000 + int(offset), true
		}
		if b >= 0x40 && b <= 0x7D {
			return 0x400000 + (b-0x40)*0x10000 + int(offset), true
		}
		return 0, false
	default: // HiROM
		if b >= 0xC0 && b <= 0xFF {
			return (b-0xC0)*0x10000 + int(offset), true
		}
		if b >= 0x40 && b <= 0x7D {
			return (b-0x40)*0x10000 + int(offset), true
		}
		return 0, false
	}
}

// hiROMSRAM maps banks $20-$3F, offset $6000-$7FFF, into an SRAM offset.
func (c *Cartridge) hiROMSRAM(bank uint8, offset uint16) (int, bool) {
	b := bank
	if b < 0x20 || b > 0x3F {
		return 0, false
	}
	if offset < 0x6000 || offset > 0x7FFF {
		return 0, false
	}
	return int(b-0x20)*0x2000 + int(offset-0x6000), true
}
