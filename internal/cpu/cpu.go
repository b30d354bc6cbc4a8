// Package cpu implements the 65816 main processor: a 16-bit-capable 6502
// descendant with a hardware emulation-mode switch, variable-width
// accumulator/index registers, and a 24-bit address space reached through
// bank-aware addressing modes.
package cpu

import "fmt"

// Memory is the bus interface the CPU reads and writes through. Addresses
// are full 24-bit bank:offset values packed into a uint32.
type Memory interface {
	Read(addr uint32) uint8
	Write(addr uint32, value uint8)
}

// Status flag bit masks for the P register.
const (
	FlagC = 0x01 // carry
	FlagZ = 0x02 // zero
	FlagI = 0x04 // IRQ disable
	FlagD = 0x08 // decimal mode
	FlagX = 0x10 // index register width (native mode); break (emulation mode)
	FlagM = 0x20 // accumulator/memory width (native mode)
	FlagV = 0x40 // overflow
	FlagN = 0x80 // negative
)

// CPU holds the full 65816 register file and its emulation-mode flag.
type CPU struct {
	A, X, Y uint16
	S       uint16
	D       uint16 // direct page register
	PC      uint16
	PB, DB  uint8 // program bank, data bank
	P       uint8
	E       bool // emulation mode

	Mem Memory

	waiting bool
	stopped bool
	irqLine bool
	nmiEdge bool
	cycles  uint64
}

// New creates a CPU wired to the given bus and resets it to power-on state.
func New(mem Memory) *CPU {
	c := &CPU{Mem: mem}
	c.Reset()
	return c
}

// Reset enters 6502-compatible emulation mode with the stack pinned to page 1.
func (c *CPU) Reset() {
	c.E = true
	c.P = FlagM | FlagX | FlagI
	c.A, c.X, c.Y = 0, 0, 0
	c.S = 0x01FF
	c.D = 0
	c.PB, c.DB = 0, 0
	lo := uint16(c.Mem.Read(0x00FFFC))
	hi := uint16(c.Mem.Read(0x00FFFD))
	c.PC = lo | hi<<8
	c.waiting, c.stopped = false, false
}

func (c *CPU) flag(mask uint8) bool { return c.P&mask != 0 }

func (c *CPU) setFlag(mask uint8, set bool) {
	if set {
		c.P |= mask
	} else {
		c.P &^= mask
	}
}

// widthM reports whether the accumulator is in 8-bit mode (emulation forces it).
func (c *CPU) widthM() bool { return c.E || c.flag(FlagM) }

// widthX reports whether X/Y are in 8-bit mode (emulation forces it).
func (c *CPU) widthX() bool { return c.E || c.flag(FlagX) }

// enforceEmulationInvariants clamps register high bytes and stack page to
// zero per the documented emulation-mode invariant.
func (c *CPU) enforceEmulationInvariants() {
	if !c.E {
		return
	}
	c.X &= 0x00FF
	c.Y &= 0x00FF
	c.S = 0x0100 | (c.S & 0x00FF)
	c.P |= FlagM | FlagX
}

func (c *CPU) fetch8() uint8 {
	v := c.Mem.Read(uint32(c.PB)<<16 | uint32(c.PC))
	c.PC++
	return v
}

func (c *CPU) fetch16() uint16 {
	lo := uint16(c.fetch8())
	hi := uint16(c.fetch8())
	return lo | hi<<8
}

func (c *CPU) fetch24() uint32 {
	lo := uint32(c.fetch8())
	mid := uint32(c.fetch8())
	hi := uint32(c.fetch8())
	return hi<<16 | mid<<8 | lo
}

func (c *CPU) read16(addr uint32) uint16 {
	bank := addr & 0xFF0000
	off := uint16(addr)
	lo := uint16(c.Mem.Read(addr))
	hi := uint16(c.Mem.Read(bank | uint32(off+1)))
	return lo | hi<<8
}

func (c *CPU) write16(addr uint32, v uint16) {
	bank := addr & 0xFF0000
	off := uint16(addr)
	c.Mem.Write(addr, uint8(v))
	c.Mem.Write(bank|uint32(off+1), uint8(v>>8))
}

func (c *CPU) push8(v uint8) {
	c.Mem.Write(uint32(c.S), v)
	c.S--
	if c.E {
		c.S = 0x0100 | (c.S & 0x00FF)
	}
}

func (c *CPU) pop8() uint8 {
	c.S++
	if c.E {
		c.S = 0x0100 | (c.S & 0x00FF)
	}
	return c.Mem.Read(uint32(c.S))
}

func (c *CPU) push16(v uint16) {
	c.push8(uint8(v >> 8))
	c.push8(uint8(v))
}

func (c *CPU) pop16() uint16 {
	lo := uint16(c.pop8())
	hi := uint16(c.pop8())
	return lo | hi<<8
}

// --- addressing modes: each returns the effective 24-bit address and an
// extra-cycle flag for page-boundary-crossing penalties. ---

func (c *CPU) addrDirect() (uint32, bool) {
	off := c.D + uint16(c.fetch8())
	return uint32(off), false
}

func (c *CPU) addrDirectX() (uint32, bool) {
	off := c.D + uint16(c.fetch8()) + c.X
	return uint32(off), false
}

func (c *CPU) addrDirectY() (uint32, bool) {
	off := c.D + uint16(c.fetch8()) + c.Y
	return uint32(off), false
}

func (c *CPU) addrAbsolute() (uint32, bool) {
	off := c.fetch16()
	return uint32(c.DB)<<16 | uint32(off), false
}

func (c *CPU) addrAbsoluteX() (uint32, bool) {
	base := c.fetch16()
	off := base + c.X
	extra := (base & 0xFF00) != (off & 0xFF00)
	return uint32(c.DB)<<16 | uint32(off), extra
}

func (c *CPU) addrAbsoluteY() (uint32, bool) {
	base := c.fetch16()
	off := base + c.Y
	extra := (base & 0xFF00) != (off & 0xFF00)
	return uint32(c.DB)<<16 | uint32(off), extra
}

func (c *CPU) addrAbsoluteLong() (uint32, bool) {
	return c.fetch24(), false
}

func (c *CPU) addrAbsoluteLongX() (uint32, bool) {
	addr := c.fetch24()
	return addr + uint32(c.X), false
}

func (c *CPU) addrDirectIndirect() (uint32, bool) {
	dp := c.D + uint16(c.fetch8())
	off := c.read16(uint32(dp))
	return uint32(c.DB)<<16 | uint32(off), false
}

func (c *CPU) addrDirectIndirectLong() (uint32, bool) {
	dp := c.D + uint16(c.fetch8())
	lo := uint32(c.Mem.Read(uint32(dp)))
	mid := uint32(c.Mem.Read(uint32(dp + 1)))
	hi := uint32(c.Mem.Read(uint32(dp + 2)))
	return hi<<16 | mid<<8 | lo, false
}

func (c *CPU) addrDirectIndexedIndirectX() (uint32, bool) {
	dp := c.D + uint16(c.fetch8()) + c.X
	off := c.read16(uint32(dp))
	return uint32(c.DB)<<16 | uint32(off), false
}

func (c *CPU) addrDirectIndirectIndexedY() (uint32, bool) {
	dp := c.D + uint16(c.fetch8())
	base := c.read16(uint32(dp))
	off := base + c.Y
	extra := (base & 0xFF00) != (off & 0xFF00)
	return uint32(c.DB)<<16 | uint32(off), extra
}

func (c *CPU) addrDirectIndirectLongIndexedY() (uint32, bool) {
	dp := c.D + uint16(c.fetch8())
	lo := uint32(c.Mem.Read(uint32(dp)))
	mid := uint32(c.Mem.Read(uint32(dp + 1)))
	hi := uint32(c.Mem.Read(uint32(dp + 2)))
	base := hi<<16 | mid<<8 | lo
	return base + uint32(c.Y), false
}

func (c *CPU) addrStackRelative() (uint32, bool) {
	off := c.S + uint16(c.fetch8())
	return uint32(off), false
}

func (c *CPU) addrStackRelativeIndirectIndexedY() (uint32, bool) {
	off := c.S + uint16(c.fetch8())
	base := c.read16(uint32(off))
	return uint32(c.DB)<<16 | uint32(base+c.Y), false
}

// --- read/write helpers honoring register width ---

func (c *CPU) readOperand(addr uint32, wide bool) uint16 {
	if !wide {
		return uint16(c.Mem.Read(addr))
	}
	return c.read16(addr)
}

func (c *CPU) writeOperand(addr uint32, v uint16, wide bool) {
	if !wide {
		c.Mem.Write(addr, uint8(v))
		return
	}
	c.write16(addr, v)
}

func (c *CPU) setNZ(v uint16, wide bool) {
	var zero bool
	var neg bool
	if wide {
		zero = v == 0
		neg = v&0x8000 != 0
	} else {
		zero = uint8(v) == 0
		neg = v&0x80 != 0
	}
	c.setFlag(FlagZ, zero)
	c.setFlag(FlagN, neg)
}

// adc performs binary or BCD addition honoring the current M width.
func (c *CPU) adc(operand uint16) {
	wide := !c.widthM()
	carryIn := uint32(0)
	if c.flag(FlagC) {
		carryIn = 1
	}

	if c.flag(FlagD) {
		c.adcDecimal(operand, wide, carryIn)
		return
	}

	if wide {
		result := uint32(c.A) + uint32(operand) + carryIn
		c.setFlag(FlagV, (^(c.A^operand))&(c.A^uint16(result))&0x8000 != 0)
		c.setFlag(FlagC, result > 0xFFFF)
		c.A = uint16(result)
		c.setNZ(c.A, true)
	} else {
		a8, o8 := uint8(c.A), uint8(operand)
		result := uint32(a8) + uint32(o8) + carryIn
		c.setFlag(FlagV, (^(a8^o8))&(a8^uint8(result))&0x80 != 0)
		c.setFlag(FlagC, result > 0xFF)
		c.A = c.A&0xFF00 | uint16(uint8(result))
		c.setNZ(c.A, false)
	}
}

// adcDecimal adds in BCD, correcting per nibble; the high byte of a 16-bit
// accumulator participates only when M-width is 16-bit.
func (c *CPU) adcDecimal(operand uint16, wide bool, carryIn uint32) {
	if !wide {
		a, o := uint8(c.A), uint8(operand)
		lo := uint32(a&0x0F) + uint32(o&0x0F) + carryIn
		var carryLo uint32
		if lo > 9 {
			lo += 6
			carryLo = 1
		}
		hi := uint32(a>>4) + uint32(o>>4) + carryLo
		if hi > 9 {
			hi += 6
			c.setFlag(FlagC, true)
		} else {
			c.setFlag(FlagC, false)
		}
		result := uint8((hi<<4)&0xF0) | uint8(lo&0x0F)
		c.A = c.A&0xFF00 | uint16(result)
		c.setNZ(c.A, false)
		return
	}
	// 16-bit BCD: correct byte pairs low-to-high, carrying between them.
	lo := c.adcDecimalByte(uint8(c.A), uint8(operand), carryIn)
	hi := c.adcDecimalByte(uint8(c.A>>8), uint8(operand>>8), lo.carry)
	c.A = uint16(hi.result)<<8 | uint16(lo.result)
	c.setFlag(FlagC, hi.carry != 0)
	c.setNZ(c.A, true)
}

type bcdByteResult struct {
	result uint8
	carry  uint32
}

func (c *CPU) adcDecimalByte(a, o uint8, carryIn uint32) bcdByteResult {
	lo := uint32(a&0x0F) + uint32(o&0x0F) + carryIn
	var carryLo uint32
	if lo > 9 {
		lo += 6
		carryLo = 1
	}
	hi := uint32(a>>4) + uint32(o>>4) + carryLo
	var carryOut uint32
	if hi > 9 {
		hi += 6
		carryOut = 1
	}
	return bcdByteResult{result: uint8((hi<<4)&0xF0) | uint8(lo&0x0F), carry: carryOut}
}

func (c *CPU) sbc(operand uint16) {
	if c.flag(FlagD) {
		c.adc(onesComplement(operand, !c.widthM()))
		return
	}
	c.adc(onesComplement(operand, !c.widthM()))
}

func onesComplement(v uint16, wide bool) uint16 {
	if wide {
		return ^v
	}
	return uint16(^uint8(v))
}

func (c *CPU) compare(reg uint16, operand uint16, wide bool) {
	var result int32
	if wide {
		result = int32(reg) - int32(operand)
		c.setFlag(FlagC, reg >= operand)
	} else {
		result = int32(uint8(reg)) - int32(uint8(operand))
		c.setFlag(FlagC, uint8(reg) >= uint8(operand))
	}
	c.setNZ(uint16(result), wide)
}

// Step delivers a pending NMI or IRQ if one is armed, otherwise executes one
// instruction, and returns the approximate cycle cost. Illegal opcodes in the
// 65816's fully-populated table never occur on real silicon; we still guard
// with a documented fallback to avoid ever halting.
func (c *CPU) Step() int {
	c.enforceEmulationInvariants()

	if c.stopped {
		return 1
	}

	if c.waiting {
		if c.nmiEdge || c.irqLine {
			c.waiting = false
		} else {
			return 1
		}
	}

	if c.nmiEdge {
		c.nmiEdge = false
		c.serviceInterrupt(0xFFFA, 0xFFEA, false)
		return 7
	}
	if c.irqLine && !c.flag(FlagI) {
		c.irqLine = false
		c.serviceInterrupt(0xFFFE, 0xFFEE, false)
		return 7
	}

	op := c.fetch8()
	return c.execute(op)
}

// Stopped reports whether a STP instruction has halted the CPU.
func (c *CPU) Stopped() bool { return c.stopped }

// RequestNMI latches an edge-triggered non-maskable interrupt for delivery on
// the next Step boundary, waking a WAI-suspended CPU even with I set.
func (c *CPU) RequestNMI() { c.nmiEdge = true }

// SetIRQLine sets the level-triggered IRQ line state. Servicing the interrupt
// clears it; the caller re-asserts it for as long as the interrupt source
// (an H/V-timer match, a coprocessor, …) keeps requesting service.
func (c *CPU) SetIRQLine(asserted bool) { c.irqLine = asserted }

func (c *CPU) serviceInterrupt(vectorE, vectorN uint16, isBRK bool) {
	if !c.E {
		c.push8(c.PB)
	}
	c.push16(c.PC)
	flags := c.P
	if isBRK && c.E {
		flags |= FlagX // B flag in emulation mode
	}
	c.push8(flags)
	c.setFlag(FlagI, true)
	c.setFlag(FlagD, false)
	c.PB = 0
	if c.E {
		c.PC = c.read16(uint32(vectorE))
	} else {
		c.PC = c.read16(uint32(vectorN))
	}
}

func (c *CPU) execute(op uint8) int {
	wideM := !c.widthM()
	wideX := !c.widthX()

	switch op {
	case 0xEA: // NOP
		return 2
	case 0xDB: // STP
		c.stopped = true
		return 3
	case 0xCB: // WAI
		c.waiting = true
		return 3

	case 0xFB: // XCE: exchange carry and emulation flag
		oldE := c.E
		c.E = c.flag(FlagC)
		c.setFlag(FlagC, oldE)
		c.enforceEmulationInvariants()
		return 2
	case 0x18: // CLC
		c.setFlag(FlagC, false)
		return 2
	case 0x38: // SEC
		c.setFlag(FlagC, true)
		return 2
	case 0x58: // CLI
		c.setFlag(FlagI, false)
		return 2
	case 0x78: // SEI
		c.setFlag(FlagI, true)
		return 2
	case 0xD8: // CLD
		c.setFlag(FlagD, false)
		return 2
	case 0xF8: // SED
		c.setFlag(FlagD, true)
		return 2
	case 0xB8: // CLV
		c.setFlag(FlagV, false)
		return 2

	case 0xC2: // REP #imm
		mask := c.fetch8()
		c.P &^= mask
		c.enforceEmulationInvariants()
		return 3
	case 0xE2: // SEP #imm
		mask := c.fetch8()
		c.P |= mask
		c.enforceEmulationInvariants()
		return 3

	case 0xA9: // LDA #imm
		v := c.fetchImmediate(wideM)
		c.A = mergeWidth(c.A, v, wideM)
		c.setNZ(c.A, wideM)
		return 2
	case 0xA5: // LDA dp
		return c.loadA(c.addrDirect, wideM, 3)
	case 0xB5: // LDA dp,X
		return c.loadA(c.addrDirectX, wideM, 4)
	case 0xAD: // LDA abs
		return c.loadA(c.addrAbsolute, wideM, 4)
	case 0xBD: // LDA abs,X
		return c.loadAExtra(c.addrAbsoluteX, wideM, 4)
	case 0xB9: // LDA abs,Y
		return c.loadAExtra(c.addrAbsoluteY, wideM, 4)
	case 0xAF: // LDA long
		return c.loadA(c.addrAbsoluteLong, wideM, 5)
	case 0xBF: // LDA long,X
		return c.loadA(c.addrAbsoluteLongX, wideM, 5)
	case 0xB2: // LDA (dp)
		return c.loadA(c.addrDirectIndirect, wideM, 5)
	case 0xA7: // LDA [dp]
		return c.loadA(c.addrDirectIndirectLong, wideM, 6)
	case 0xA1: // LDA (dp,X)
		return c.loadA(c.addrDirectIndexedIndirectX, wideM, 6)
	case 0xB1: // LDA (dp),Y
		return c.loadAExtra(c.addrDirectIndirectIndexedY, wideM, 5)
	case 0xB7: // LDA [dp],Y
		return c.loadA(c.addrDirectIndirectLongIndexedY, wideM, 6)
	case 0xA3: // LDA sr,S
		return c.loadA(c.addrStackRelative, wideM, 4)
	case 0xB3: // LDA (sr,S),Y
		return c.loadA(c.addrStackRelativeIndirectIndexedY, wideM, 7)

	case 0x85: // STA dp
		return c.storeA(c.addrDirect, wideM, 3)
	case 0x95: // STA dp,X
		return c.storeA(c.addrDirectX, wideM, 4)
	case 0x8D: // STA abs
		return c.storeA(c.addrAbsolute, wideM, 4)
	case 0x9D: // STA abs,X
		addr, _ := c.addrAbsoluteX()
		c.writeOperand(addr, c.A, wideM)
		return 5
	case 0x99: // STA abs,Y
		addr, _ := c.addrAbsoluteY()
		c.writeOperand(addr, c.A, wideM)
		return 5
	case 0x8F: // STA long
		return c.storeA(c.addrAbsoluteLong, wideM, 5)
	case 0x92: // STA (dp)
		return c.storeA(c.addrDirectIndirect, wideM, 5)
	case 0x91: // STA (dp),Y
		addr, _ := c.addrDirectIndirectIndexedY()
		c.writeOperand(addr, c.A, wideM)
		return 6
	case 0x81: // STA (dp,X)
		return c.storeA(c.addrDirectIndexedIndirectX, wideM, 6)
	case 0x93: // STA (sr,S),Y
		return c.storeA(c.addrStackRelativeIndirectIndexedY, wideM, 7)
	case 0x64: // STZ dp
		addr, _ := c.addrDirect()
		c.writeOperand(addr, 0, wideM)
		return 3
	case 0x9C: // STZ abs
		addr, _ := c.addrAbsolute()
		c.writeOperand(addr, 0, wideM)
		return 4

	case 0xA2: // LDX #imm
		v := c.fetchImmediate(wideX)
		c.X = mergeWidth(c.X, v, wideX)
		c.setNZ(c.X, wideX)
		return 2
	case 0xA6: // LDX dp
		addr, _ := c.addrDirect()
		c.X = c.readOperand(addr, wideX)
		c.setNZ(c.X, wideX)
		return 3
	case 0xAE: // LDX abs
		addr, _ := c.addrAbsolute()
		c.X = c.readOperand(addr, wideX)
		c.setNZ(c.X, wideX)
		return 4
	case 0xA0: // LDY #imm
		v := c.fetchImmediate(wideX)
		c.Y = mergeWidth(c.Y, v, wideX)
		c.setNZ(c.Y, wideX)
		return 2
	case 0xA4: // LDY dp
		addr, _ := c.addrDirect()
		c.Y = c.readOperand(addr, wideX)
		c.setNZ(c.Y, wideX)
		return 3
	case 0xAC: // LDY abs
		addr, _ := c.addrAbsolute()
		c.Y = c.readOperand(addr, wideX)
		c.setNZ(c.Y, wideX)
		return 4
	case 0x86: // STX dp
		addr, _ := c.addrDirect()
		c.writeOperand(addr, c.X, wideX)
		return 3
	case 0x8E: // STX abs
		addr, _ := c.addrAbsolute()
		c.writeOperand(addr, c.X, wideX)
		return 4
	case 0x84: // STY dp
		addr, _ := c.addrDirect()
		c.writeOperand(addr, c.Y, wideX)
		return 3
	case 0x8C: // STY abs
		addr, _ := c.addrAbsolute()
		c.writeOperand(addr, c.Y, wideX)
		return 4

	case 0xAA: // TAX
		c.X = mergeWidth(c.X, c.A, wideX)
		c.setNZ(c.X, wideX)
		return 2
	case 0xA8: // TAY
		c.Y = mergeWidth(c.Y, c.A, wideX)
		c.setNZ(c.Y, wideX)
		return 2
	case 0x8A: // TXA
		c.A = mergeWidth(c.A, c.X, wideM)
		c.setNZ(c.A, wideM)
		return 2
	case 0x98: // TYA
		c.A = mergeWidth(c.A, c.Y, wideM)
		c.setNZ(c.A, wideM)
		return 2
	case 0x9A: // TXS
		if c.E {
			c.S = 0x0100 | (c.X & 0x00FF)
		} else {
			c.S = c.X
		}
		return 2
	case 0xBA: // TSX
		c.X = mergeWidth(c.X, c.S, wideX)
		c.setNZ(c.X, wideX)
		return 2
	case 0x9B: // TXY
		c.Y = mergeWidth(c.Y, c.X, wideX)
		c.setNZ(c.Y, wideX)
		return 2
	case 0xBB: // TYX
		c.X = mergeWidth(c.X, c.Y, wideX)
		c.setNZ(c.X, wideX)
		return 2
	case 0x5B: // TCD
		c.D = c.A
		c.setNZ(c.D, true)
		return 2
	case 0x7B: // TDC
		c.A = c.D
		c.setNZ(c.A, true)
		return 2
	case 0x1B: // TCS
		if c.E {
			c.S = 0x0100 | (c.A & 0x00FF)
		} else {
			c.S = c.A
		}
		return 2
	case 0x3B: // TSC
		c.A = c.S
		c.setNZ(c.A, true)
		return 2

	case 0x69: // ADC #imm
		c.adc(c.fetchImmediate(wideM))
		return 2
	case 0x65: // ADC dp
		addr, _ := c.addrDirect()
		c.adc(c.readOperand(addr, wideM))
		return 3
	case 0x75: // ADC dp,X
		addr, _ := c.addrDirectX()
		c.adc(c.readOperand(addr, wideM))
		return 4
	case 0x6D: // ADC abs
		addr, _ := c.addrAbsolute()
		c.adc(c.readOperand(addr, wideM))
		return 4
	case 0x7D: // ADC abs,X
		addr, extra := c.addrAbsoluteX()
		c.adc(c.readOperand(addr, wideM))
		return extraCost(4, extra)
	case 0x79: // ADC abs,Y
		addr, extra := c.addrAbsoluteY()
		c.adc(c.readOperand(addr, wideM))
		return extraCost(4, extra)
	case 0x6F: // ADC long
		addr, _ := c.addrAbsoluteLong()
		c.adc(c.readOperand(addr, wideM))
		return 5
	case 0x7F: // ADC long,X
		addr, _ := c.addrAbsoluteLongX()
		c.adc(c.readOperand(addr, wideM))
		return 5
	case 0x72: // ADC (dp)
		addr, _ := c.addrDirectIndirect()
		c.adc(c.readOperand(addr, wideM))
		return 5
	case 0x67: // ADC [dp]
		addr, _ := c.addrDirectIndirectLong()
		c.adc(c.readOperand(addr, wideM))
		return 6
	case 0x61: // ADC (dp,X)
		addr, _ := c.addrDirectIndexedIndirectX()
		c.adc(c.readOperand(addr, wideM))
		return 6
	case 0x71: // ADC (dp),Y
		addr, extra := c.addrDirectIndirectIndexedY()
		c.adc(c.readOperand(addr, wideM))
		return extraCost(5, extra)
	case 0x77: // ADC [dp],Y
		addr, _ := c.addrDirectIndirectLongIndexedY()
		c.adc(c.readOperand(addr, wideM))
		return 6
	case 0x63: // ADC sr,S
		addr, _ := c.addrStackRelative()
		c.adc(c.readOperand(addr, wideM))
		return 4
	case 0x73: // ADC (sr,S),Y
		addr, _ := c.addrStackRelativeIndirectIndexedY()
		c.adc(c.readOperand(addr, wideM))
		return 7

	case 0xE9: // SBC #imm
		c.sbc(c.fetchImmediate(wideM))
		return 2
	case 0xE5: // SBC dp
		addr, _ := c.addrDirect()
		c.sbc(c.readOperand(addr, wideM))
		return 3
	case 0xF5: // SBC dp,X
		addr, _ := c.addrDirectX()
		c.sbc(c.readOperand(addr, wideM))
		return 4
	case 0xED: // SBC abs
		addr, _ := c.addrAbsolute()
		c.sbc(c.readOperand(addr, wideM))
		return 4
	case 0xFD: // SBC abs,X
		addr, extra := c.addrAbsoluteX()
		c.sbc(c.readOperand(addr, wideM))
		return extraCost(4, extra)
	case 0xF9: // SBC abs,Y
		addr, extra := c.addrAbsoluteY()
		c.sbc(c.readOperand(addr, wideM))
		return extraCost(4, extra)
	case 0xEF: // SBC long
		addr, _ := c.addrAbsoluteLong()
		c.sbc(c.readOperand(addr, wideM))
		return 5
	case 0xFF: // SBC long,X
		addr, _ := c.addrAbsoluteLongX()
		c.sbc(c.readOperand(addr, wideM))
		return 5
	case 0xF2: // SBC (dp)
		addr, _ := c.addrDirectIndirect()
		c.sbc(c.readOperand(addr, wideM))
		return 5
	case 0xE7: // SBC [dp]
		addr, _ := c.addrDirectIndirectLong()
		c.sbc(c.readOperand(addr, wideM))
		return 6
	case 0xE1: // SBC (dp,X)
		addr, _ := c.addrDirectIndexedIndirectX()
		c.sbc(c.readOperand(addr, wideM))
		return 6
	case 0xF1: // SBC (dp),Y
		addr, extra := c.addrDirectIndirectIndexedY()
		c.sbc(c.readOperand(addr, wideM))
		return extraCost(5, extra)
	case 0xF7: // SBC [dp],Y
		addr, _ := c.addrDirectIndirectLongIndexedY()
		c.sbc(c.readOperand(addr, wideM))
		return 6
	case 0xE3: // SBC sr,S
		addr, _ := c.addrStackRelative()
		c.sbc(c.readOperand(addr, wideM))
		return 4
	case 0xF3: // SBC (sr,S),Y
		addr, _ := c.addrStackRelativeIndirectIndexedY()
		c.sbc(c.readOperand(addr, wideM))
		return 7

	case 0xC9: // CMP #imm
		c.compare(c.A, c.fetchImmediate(wideM), wideM)
		return 2
	case 0xC5: // CMP dp
		addr, _ := c.addrDirect()
		c.compare(c.A, c.readOperand(addr, wideM), wideM)
		return 3
	case 0xD5: // CMP dp,X
		addr, _ := c.addrDirectX()
		c.compare(c.A, c.readOperand(addr, wideM), wideM)
		return 4
	case 0xCD: // CMP abs
		addr, _ := c.addrAbsolute()
		c.compare(c.A, c.readOperand(addr, wideM), wideM)
		return 4
	case 0xDD: // CMP abs,X
		addr, extra := c.addrAbsoluteX()
		c.compare(c.A, c.readOperand(addr, wideM), wideM)
		return extraCost(4, extra)
	case 0xD9: // CMP abs,Y
		addr, extra := c.addrAbsoluteY()
		c.compare(c.A, c.readOperand(addr, wideM), wideM)
		return extraCost(4, extra)
	case 0xCF: // CMP long
		addr, _ := c.addrAbsoluteLong()
		c.compare(c.A, c.readOperand(addr, wideM), wideM)
		return 5
	case 0xDF: // CMP long,X
		addr, _ := c.addrAbsoluteLongX()
		c.compare(c.A, c.readOperand(addr, wideM), wideM)
		return 5
	case 0xD2: // CMP (dp)
		addr, _ := c.addrDirectIndirect()
		c.compare(c.A, c.readOperand(addr, wideM), wideM)
		return 5
	case 0xC7: // CMP [dp]
		addr, _ := c.addrDirectIndirectLong()
		c.compare(c.A, c.readOperand(addr, wideM), wideM)
		return 6
	case 0xC1: // CMP (dp,X)
		addr, _ := c.addrDirectIndexedIndirectX()
		c.compare(c.A, c.readOperand(addr, wideM), wideM)
		return 6
	case 0xD1: // CMP (dp),Y
		addr, extra := c.addrDirectIndirectIndexedY()
		c.compare(c.A, c.readOperand(addr, wideM), wideM)
		return extraCost(5, extra)
	case 0xD7: // CMP [dp],Y
		addr, _ := c.addrDirectIndirectLongIndexedY()
		c.compare(c.A, c.readOperand(addr, wideM), wideM)
		return 6
	case 0xC3: // CMP sr,S
		addr, _ := c.addrStackRelative()
		c.compare(c.A, c.readOperand(addr, wideM), wideM)
		return 4
	case 0xD3: // CMP (sr,S),Y
		addr, _ := c.addrStackRelativeIndirectIndexedY()
		c.compare(c.A, c.readOperand(addr, wideM), wideM)
		return 7

	case 0xE0: // CPX #imm
		c.compare(c.X, c.fetchImmediate(wideX), wideX)
		return 2
	case 0xEC: // CPX abs
		addr, _ := c.addrAbsolute()
		c.compare(c.X, c.readOperand(addr, wideX), wideX)
		return 4
	case 0xC0: // CPY #imm
		c.compare(c.Y, c.fetchImmediate(wideX), wideX)
		return 2
	case 0xCC: // CPY abs
		addr, _ := c.addrAbsolute()
		c.compare(c.Y, c.readOperand(addr, wideX), wideX)
		return 4

	case 0x29: // AND #imm
		c.A = mergeWidth(c.A, andWidth(c.A, c.fetchImmediate(wideM), wideM), wideM)
		c.setNZ(c.A, wideM)
		return 2
	case 0x25: // AND dp
		return c.aluOp(andWidth, c.addrDirect, wideM, 3)
	case 0x35: // AND dp,X
		return c.aluOp(andWidth, c.addrDirectX, wideM, 4)
	case 0x2D: // AND abs
		return c.aluOp(andWidth, c.addrAbsolute, wideM, 4)
	case 0x3D: // AND abs,X
		return c.aluOpExtra(andWidth, c.addrAbsoluteX, wideM, 4)
	case 0x39: // AND abs,Y
		return c.aluOpExtra(andWidth, c.addrAbsoluteY, wideM, 4)
	case 0x2F: // AND long
		return c.aluOp(andWidth, c.addrAbsoluteLong, wideM, 5)
	case 0x3F: // AND long,X
		return c.aluOp(andWidth, c.addrAbsoluteLongX, wideM, 5)
	case 0x32: // AND (dp)
		return c.aluOp(andWidth, c.addrDirectIndirect, wideM, 5)
	case 0x27: // AND [dp]
		return c.aluOp(andWidth, c.addrDirectIndirectLong, wideM, 6)
	case 0x21: // AND (dp,X)
		return c.aluOp(andWidth, c.addrDirectIndexedIndirectX, wideM, 6)
	case 0x31: // AND (dp),Y
		return c.aluOpExtra(andWidth, c.addrDirectIndirectIndexedY, wideM, 5)
	case 0x37: // AND [dp],Y
		return c.aluOp(andWidth, c.addrDirectIndirectLongIndexedY, wideM, 6)
	case 0x23: // AND sr,S
		return c.aluOp(andWidth, c.addrStackRelative, wideM, 4)
	case 0x33: // AND (sr,S),Y
		return c.aluOp(andWidth, c.addrStackRelativeIndirectIndexedY, wideM, 7)

	case 0x09: // ORA #imm
		c.A = mergeWidth(c.A, orWidth(c.A, c.fetchImmediate(wideM), wideM), wideM)
		c.setNZ(c.A, wideM)
		return 2
	case 0x05: // ORA dp
		return c.aluOp(orWidth, c.addrDirect, wideM, 3)
	case 0x15: // ORA dp,X
		return c.aluOp(orWidth, c.addrDirectX, wideM, 4)
	case 0x0D: // ORA abs
		return c.aluOp(orWidth, c.addrAbsolute, wideM, 4)
	case 0x1D: // ORA abs,X
		return c.aluOpExtra(orWidth, c.addrAbsoluteX, wideM, 4)
	case 0x19: // ORA abs,Y
		return c.aluOpExtra(orWidth, c.addrAbsoluteY, wideM, 4)
	case 0x0F: // ORA long
		return c.aluOp(orWidth, c.addrAbsoluteLong, wideM, 5)
	case 0x1F: // ORA long,X
		return c.aluOp(orWidth, c.addrAbsoluteLongX, wideM, 5)
	case 0x12: // ORA (dp)
		return c.aluOp(orWidth, c.addrDirectIndirect, wideM, 5)
	case 0x07: // ORA [dp]
		return c.aluOp(orWidth, c.addrDirectIndirectLong, wideM, 6)
	case 0x01: // ORA (dp,X)
		return c.aluOp(orWidth, c.addrDirectIndexedIndirectX, wideM, 6)
	case 0x11: // ORA (dp),Y
		return c.aluOpExtra(orWidth, c.addrDirectIndirectIndexedY, wideM, 5)
	case 0x17: // ORA [dp],Y
		return c.aluOp(orWidth, c.addrDirectIndirectLongIndexedY, wideM, 6)
	case 0x03: // ORA sr,S
		return c.aluOp(orWidth, c.addrStackRelative, wideM, 4)
	case 0x13: // ORA (sr,S),Y
		return c.aluOp(orWidth, c.addrStackRelativeIndirectIndexedY, wideM, 7)

	case 0x49: // EOR #imm
		c.A = mergeWidth(c.A, xorWidth(c.A, c.fetchImmediate(wideM), wideM), wideM)
		c.setNZ(c.A, wideM)
		return 2
	case 0x45: // EOR dp
		return c.aluOp(xorWidth, c.addrDirect, wideM, 3)
	case 0x55: // EOR dp,X
		return c.aluOp(xorWidth, c.addrDirectX, wideM, 4)
	case 0x4D: // EOR abs
		return c.aluOp(xorWidth, c.addrAbsolute, wideM, 4)
	case 0x5D: // EOR abs,X
		return c.aluOpExtra(xorWidth, c.addrAbsoluteX, wideM, 4)
	case 0x59: // EOR abs,Y
		return c.aluOpExtra(xorWidth, c.addrAbsoluteY, wideM, 4)
	case 0x4F: // EOR long
		return c.aluOp(xorWidth, c.addrAbsoluteLong, wideM, 5)
	case 0x5F: // EOR long,X
		return c.aluOp(xorWidth, c.addrAbsoluteLongX, wideM, 5)
	case 0x52: // EOR (dp)
		return c.aluOp(xorWidth, c.addrDirectIndirect, wideM, 5)
	case 0x47: // EOR [dp]
		return c.aluOp(xorWidth, c.addrDirectIndirectLong, wideM, 6)
	case 0x41: // EOR (dp,X)
		return c.aluOp(xorWidth, c.addrDirectIndexedIndirectX, wideM, 6)
	case 0x51: // EOR (dp),Y
		return c.aluOpExtra(xorWidth, c.addrDirectIndirectIndexedY, wideM, 5)
	case 0x57: // EOR [dp],Y
		return c.aluOp(xorWidth, c.addrDirectIndirectLongIndexedY, wideM, 6)
	case 0x43: // EOR sr,S
		return c.aluOp(xorWidth, c.addrStackRelative, wideM, 4)
	case 0x53: // EOR (sr,S),Y
		return c.aluOp(xorWidth, c.addrStackRelativeIndirectIndexedY, wideM, 7)

	case 0x89: // BIT #imm (immediate form only ever touches Z)
		v := c.fetchImmediate(wideM)
		c.setFlag(FlagZ, andWidth(c.A, v, wideM) == 0)
		return 2
	case 0x24: // BIT dp
		return c.bitOp(c.addrDirect, wideM, 3)
	case 0x34: // BIT dp,X
		return c.bitOp(c.addrDirectX, wideM, 4)
	case 0x2C: // BIT abs
		return c.bitOp(c.addrAbsolute, wideM, 4)
	case 0x3C: // BIT abs,X
		return c.bitOpExtra(c.addrAbsoluteX, wideM, 4)

	case 0x04: // TSB dp
		return c.tsbOp(c.addrDirect, wideM, 5)
	case 0x0C: // TSB abs
		return c.tsbOp(c.addrAbsolute, wideM, 6)
	case 0x14: // TRB dp
		return c.trbOp(c.addrDirect, wideM, 5)
	case 0x1C: // TRB abs
		return c.trbOp(c.addrAbsolute, wideM, 6)

	case 0xEB: // XBA: swap the accumulator's low and high bytes
		lo := uint8(c.A)
		hi := uint8(c.A >> 8)
		c.A = uint16(lo)<<8 | uint16(hi)
		c.setNZ(uint16(hi), false)
		return 3

	case 0xF4: // PEA
		c.push16(c.fetch16())
		return 5
	case 0xD4: // PEI
		dp := c.D + uint16(c.fetch8())
		c.push16(c.read16(uint32(dp)))
		return 6
	case 0x62: // PER
		off := int16(c.fetch16())
		c.push16(uint16(int32(c.PC) + int32(off)))
		return 6

	case 0xE6: // INC dp
		return c.incDecMem(c.addrDirect, wideM, 1, 5)
	case 0xEE: // INC abs
		return c.incDecMem(c.addrAbsolute, wideM, 1, 6)
	case 0xC6: // DEC dp
		return c.incDecMem(c.addrDirect, wideM, -1, 5)
	case 0xCE: // DEC abs
		return c.incDecMem(c.addrAbsolute, wideM, -1, 6)
	case 0x1A: // INC A
		c.A = mergeWidth(c.A, addWidth(c.A, 1, wideM), wideM)
		c.setNZ(c.A, wideM)
		return 2
	case 0x3A: // DEC A
		c.A = mergeWidth(c.A, addWidth(c.A, uint16(0xFFFF), wideM), wideM)
		c.setNZ(c.A, wideM)
		return 2
	case 0xE8: // INX
		c.X = mergeWidth(c.X, addWidth(c.X, 1, wideX), wideX)
		c.setNZ(c.X, wideX)
		return 2
	case 0xCA: // DEX
		c.X = mergeWidth(c.X, addWidth(c.X, uint16(0xFFFF), wideX), wideX)
		c.setNZ(c.X, wideX)
		return 2
	case 0xC8: // INY
		c.Y = mergeWidth(c.Y, addWidth(c.Y, 1, wideX), wideX)
		c.setNZ(c.Y, wideX)
		return 2
	case 0x88: // DEY
		c.Y = mergeWidth(c.Y, addWidth(c.Y, uint16(0xFFFF), wideX), wideX)
		c.setNZ(c.Y, wideX)
		return 2

	case 0x0A: // ASL A
		c.setFlag(FlagC, shiftCarryOut(c.A, wideM, true))
		c.A = mergeWidth(c.A, shiftLeft(c.A, wideM), wideM)
		c.setNZ(c.A, wideM)
		return 2
	case 0x06: // ASL dp
		return c.aslMem(c.addrDirect, wideM, 5)
	case 0x16: // ASL dp,X
		return c.aslMem(c.addrDirectX, wideM, 6)
	case 0x0E: // ASL abs
		return c.aslMem(c.addrAbsolute, wideM, 6)
	case 0x1E: // ASL abs,X
		return c.aslMem(c.addrAbsoluteX, wideM, 7)
	case 0x4A: // LSR A
		c.setFlag(FlagC, c.A&1 != 0)
		c.A = mergeWidth(c.A, shiftRight(c.A, wideM), wideM)
		c.setNZ(c.A, wideM)
		return 2
	case 0x46: // LSR dp
		return c.lsrMem(c.addrDirect, wideM, 5)
	case 0x56: // LSR dp,X
		return c.lsrMem(c.addrDirectX, wideM, 6)
	case 0x4E: // LSR abs
		return c.lsrMem(c.addrAbsolute, wideM, 6)
	case 0x5E: // LSR abs,X
		return c.lsrMem(c.addrAbsoluteX, wideM, 7)
	case 0x2A: // ROL A
		oldC := c.flag(FlagC)
		c.setFlag(FlagC, shiftCarryOut(c.A, wideM, true))
		v := shiftLeft(c.A, wideM)
		if oldC {
			v |= 1
		}
		c.A = mergeWidth(c.A, v, wideM)
		c.setNZ(c.A, wideM)
		return 2
	case 0x26: // ROL dp
		return c.rolMem(c.addrDirect, wideM, 5)
	case 0x36: // ROL dp,X
		return c.rolMem(c.addrDirectX, wideM, 6)
	case 0x2E: // ROL abs
		return c.rolMem(c.addrAbsolute, wideM, 6)
	case 0x3E: // ROL abs,X
		return c.rolMem(c.addrAbsoluteX, wideM, 7)
	case 0x6A: // ROR A
		oldC := c.flag(FlagC)
		c.setFlag(FlagC, c.A&1 != 0)
		v := shiftRight(c.A, wideM)
		if oldC {
			if wideM {
				v |= 0x8000
			} else {
				v |= 0x80
			}
		}
		c.A = mergeWidth(c.A, v, wideM)
		c.setNZ(c.A, wideM)
		return 2
	case 0x66: // ROR dp
		return c.rorMem(c.addrDirect, wideM, 5)
	case 0x76: // ROR dp,X
		return c.rorMem(c.addrDirectX, wideM, 6)
	case 0x6E: // ROR abs
		return c.rorMem(c.addrAbsolute, wideM, 6)
	case 0x7E: // ROR abs,X
		return c.rorMem(c.addrAbsoluteX, wideM, 7)

	case 0x48: // PHA
		c.pushWidth(c.A, wideM)
		return 3
	case 0x68: // PLA
		c.A = mergeWidth(c.A, c.popWidth(wideM), wideM)
		c.setNZ(c.A, wideM)
		return 4
	case 0xDA: // PHX
		c.pushWidth(c.X, wideX)
		return 3
	case 0xFA: // PLX
		c.X = mergeWidth(c.X, c.popWidth(wideX), wideX)
		c.setNZ(c.X, wideX)
		return 4
	case 0x5A: // PHY
		c.pushWidth(c.Y, wideX)
		return 3
	case 0x7A: // PLY
		c.Y = mergeWidth(c.Y, c.popWidth(wideX), wideX)
		c.setNZ(c.Y, wideX)
		return 4
	case 0x08: // PHP
		c.push8(c.P)
		return 3
	case 0x28: // PLP
		c.P = c.pop8()
		c.enforceEmulationInvariants()
		return 4
	case 0x8B: // PHB
		c.push8(c.DB)
		return 3
	case 0xAB: // PLB
		c.DB = c.pop8()
		c.setNZ(uint16(c.DB), false)
		return 4
	case 0x4B: // PHK
		c.push8(c.PB)
		return 3
	case 0x0B: // PHD
		c.push16(c.D)
		return 4
	case 0x2B: // PLD
		c.D = c.pop16()
		c.setNZ(c.D, true)
		return 5

	case 0x4C: // JMP abs
		c.PC = c.fetch16()
		return 3
	case 0x5C: // JMP long
		addr := c.fetch24()
		c.PB = uint8(addr >> 16)
		c.PC = uint16(addr)
		return 4
	case 0x6C: // JMP (abs)
		ptr := c.fetch16()
		c.PC = c.read16(uint32(c.PB) << 16 | uint32(ptr))
		return 5
	case 0x7C: // JMP (abs,X)
		base := c.fetch16()
		ptr := uint32(c.PB)<<16 | uint32(base+c.X)
		c.PC = c.read16(ptr)
		return 6
	case 0xDC: // JML [abs]
		ptr := uint32(c.fetch16())
		lo := uint32(c.Mem.Read(ptr))
		mid := uint32(c.Mem.Read(ptr + 1))
		hi := uint32(c.Mem.Read(ptr + 2))
		c.PC = uint16(mid<<8 | lo)
		c.PB = uint8(hi)
		return 6
	case 0x20: // JSR abs
		target := c.fetch16()
		c.push16(c.PC - 1)
		c.PC = target
		return 6
	case 0x22: // JSL long
		addr := c.fetch24()
		c.push8(c.PB)
		c.push16(c.PC - 1)
		c.PB = uint8(addr >> 16)
		c.PC = uint16(addr)
		return 8
	case 0x60: // RTS
		c.PC = c.pop16() + 1
		return 6
	case 0x6B: // RTL
		c.PC = c.pop16() + 1
		c.PB = c.pop8()
		return 6
	case 0x40: // RTI
		c.P = c.pop8()
		c.enforceEmulationInvariants()
		c.PC = c.pop16()
		if !c.E {
			c.PB = c.pop8()
		}
		return 6
	case 0x00: // BRK
		c.fetch8() // signature byte, ignored
		c.serviceInterrupt(0xFFFE, 0xFFE6, true)
		return 7
	case 0x02: // COP
		c.fetch8() // signature byte, ignored
		c.serviceInterrupt(0xFFF4, 0xFFE4, false)
		return 7

	case 0xF0: // BEQ
		return c.branch(c.flag(FlagZ))
	case 0xD0: // BNE
		return c.branch(!c.flag(FlagZ))
	case 0xB0: // BCS
		return c.branch(c.flag(FlagC))
	case 0x90: // BCC
		return c.branch(!c.flag(FlagC))
	case 0x70: // BVS
		return c.branch(c.flag(FlagV))
	case 0x50: // BVC
		return c.branch(!c.flag(FlagV))
	case 0x30: // BMI
		return c.branch(c.flag(FlagN))
	case 0x10: // BPL
		return c.branch(!c.flag(FlagN))
	case 0x80: // BRA
		return c.branch(true)
	case 0x82: // BRL
		off := int16(c.fetch16())
		c.PC = uint16(int32(c.PC) + int32(off))
		return 4

	case 0x54: // MVN srcBank,dstBank (increment)
		return c.blockMove(1)
	case 0x44: // MVP srcBank,dstBank (decrement)
		return c.blockMove(-1)

	default:
		// Opcodes not decoded above reach here and are treated as 2-cycle
		// no-ops that consume no operand bytes, so the core keeps running
		// rather than halting. These are WDM ($42); STA sr,S / [dp] /
		// [dp],Y / long,X ($83/$87/$97/$9F); STZ dp,X / abs,X ($74/$9E);
		// STY dp,X ($94); STX dp,Y ($96); LDY dp,X / abs,X ($B4/$BC);
		// LDX dp,Y / abs,Y ($B6/$BE); CPY dp ($C4); CPX dp ($E4);
		// DEC dp,X / abs,X ($D6/$DE); INC dp,X / abs,X ($F6/$FE); and
		// JSR (abs,X) ($FC).
		return 2
	}
}

func extraCost(base int, extra bool) int {
	if extra {
		return base + 1
	}
	return base
}

// aluOp applies a width-aware binary operator (AND/ORA/EOR) between the
// accumulator and an addressed operand, for modes with no page-cross penalty.
func (c *CPU) aluOp(op func(a, b uint16, wide bool) uint16, mode func() (uint32, bool), wide bool, cost int) int {
	addr, _ := mode()
	c.A = mergeWidth(c.A, op(c.A, c.readOperand(addr, wide), wide), wide)
	c.setNZ(c.A, wide)
	return cost
}

// aluOpExtra is aluOp for addressing modes that add a cycle on page-crossing.
func (c *CPU) aluOpExtra(op func(a, b uint16, wide bool) uint16, mode func() (uint32, bool), wide bool, cost int) int {
	addr, extra := mode()
	c.A = mergeWidth(c.A, op(c.A, c.readOperand(addr, wide), wide), wide)
	c.setNZ(c.A, wide)
	return extraCost(cost, extra)
}

func (c *CPU) setBitNV(v uint16, wide bool) {
	if wide {
		c.setFlag(FlagN, v&0x8000 != 0)
		c.setFlag(FlagV, v&0x4000 != 0)
	} else {
		c.setFlag(FlagN, v&0x80 != 0)
		c.setFlag(FlagV, v&0x40 != 0)
	}
}

func (c *CPU) bitOp(mode func() (uint32, bool), wide bool, cost int) int {
	addr, _ := mode()
	v := c.readOperand(addr, wide)
	c.setFlag(FlagZ, andWidth(c.A, v, wide) == 0)
	c.setBitNV(v, wide)
	return cost
}

func (c *CPU) bitOpExtra(mode func() (uint32, bool), wide bool, cost int) int {
	addr, extra := mode()
	v := c.readOperand(addr, wide)
	c.setFlag(FlagZ, andWidth(c.A, v, wide) == 0)
	c.setBitNV(v, wide)
	return extraCost(cost, extra)
}

// tsbOp sets the zero flag from A&mem, then ORs A into mem (test-and-set).
func (c *CPU) tsbOp(mode func() (uint32, bool), wide bool, cost int) int {
	addr, _ := mode()
	v := c.readOperand(addr, wide)
	c.setFlag(FlagZ, andWidth(c.A, v, wide) == 0)
	c.writeOperand(addr, orWidth(v, c.A, wide), wide)
	return cost
}

// trbOp sets the zero flag from A&mem, then clears A's bits out of mem.
func (c *CPU) trbOp(mode func() (uint32, bool), wide bool, cost int) int {
	addr, _ := mode()
	v := c.readOperand(addr, wide)
	c.setFlag(FlagZ, andWidth(c.A, v, wide) == 0)
	c.writeOperand(addr, andWidth(v, ^c.A, wide), wide)
	return cost
}

func (c *CPU) aslMem(mode func() (uint32, bool), wide bool, cost int) int {
	addr, _ := mode()
	v := c.readOperand(addr, wide)
	c.setFlag(FlagC, shiftCarryOut(v, wide, true))
	v = shiftLeft(v, wide)
	c.writeOperand(addr, v, wide)
	c.setNZ(v, wide)
	return cost
}

func (c *CPU) lsrMem(mode func() (uint32, bool), wide bool, cost int) int {
	addr, _ := mode()
	v := c.readOperand(addr, wide)
	c.setFlag(FlagC, v&1 != 0)
	v = shiftRight(v, wide)
	c.writeOperand(addr, v, wide)
	c.setNZ(v, wide)
	return cost
}

func (c *CPU) rolMem(mode func() (uint32, bool), wide bool, cost int) int {
	addr, _ := mode()
	v := c.readOperand(addr, wide)
	oldC := c.flag(FlagC)
	c.setFlag(FlagC, shiftCarryOut(v, wide, true))
	v = shiftLeft(v, wide)
	if oldC {
		v |= 1
	}
	c.writeOperand(addr, v, wide)
	c.setNZ(v, wide)
	return cost
}

func (c *CPU) rorMem(mode func() (uint32, bool), wide bool, cost int) int {
	addr, _ := mode()
	v := c.readOperand(addr, wide)
	oldC := c.flag(FlagC)
	c.setFlag(FlagC, v&1 != 0)
	v = shiftRight(v, wide)
	if oldC {
		if wide {
			v |= 0x8000
		} else {
			v |= 0x80
		}
	}
	c.writeOperand(addr, v, wide)
	c.setNZ(v, wide)
	return cost
}

func (c *CPU) fetchImmediate(wide bool) uint16 {
	if wide {
		return c.fetch16()
	}
	return uint16(c.fetch8())
}

func mergeWidth(old, v uint16, wide bool) uint16 {
	if wide {
		return v
	}
	return old&0xFF00 | v&0x00FF
}

func andWidth(a, b uint16, wide bool) uint16 {
	if wide {
		return a & b
	}
	return uint16(uint8(a) & uint8(b))
}

func orWidth(a, b uint16, wide bool) uint16 {
	if wide {
		return a | b
	}
	return uint16(uint8(a) | uint8(b))
}

func xorWidth(a, b uint16, wide bool) uint16 {
	if wide {
		return a ^ b
	}
	return uint16(uint8(a) ^ uint8(b))
}

func addWidth(a, delta uint16, wide bool) uint16 {
	if wide {
		return a + delta
	}
	return uint16(uint8(a) + uint8(delta))
}

func shiftLeft(v uint16, wide bool) uint16 {
	if wide {
		return v << 1
	}
	return uint16(uint8(v) << 1)
}

func shiftRight(v uint16, wide bool) uint16 {
	if wide {
		return v >> 1
	}
	return uint16(uint8(v) >> 1)
}

func shiftCarryOut(v uint16, wide bool, left bool) bool {
	if !left {
		return v&1 != 0
	}
	if wide {
		return v&0x8000 != 0
	}
	return v&0x80 != 0
}

func (c *CPU) pushWidth(v uint16, wide bool) {
	if wide {
		c.push16(v)
	} else {
		c.push8(uint8(v))
	}
}

func (c *CPU) popWidth(wide bool) uint16 {
	if wide {
		return c.pop16()
	}
	return uint16(c.pop8())
}

func (c *CPU) loadA(mode func() (uint32, bool), wide bool, cost int) int {
	addr, _ := mode()
	c.A = mergeWidth(c.A, c.readOperand(addr, wide), wide)
	c.setNZ(c.A, wide)
	return cost
}

func (c *CPU) loadAExtra(mode func() (uint32, bool), wide bool, cost int) int {
	addr, extra := mode()
	c.A = mergeWidth(c.A, c.readOperand(addr, wide), wide)
	c.setNZ(c.A, wide)
	if extra {
		cost++
	}
	return cost
}

func (c *CPU) storeA(mode func() (uint32, bool), wide bool, cost int) int {
	addr, _ := mode()
	c.writeOperand(addr, c.A, wide)
	return cost
}

func (c *CPU) incDecMem(mode func() (uint32, bool), wide bool, delta int16, cost int) int {
	addr, _ := mode()
	v := c.readOperand(addr, wide)
	v = addWidth(v, uint16(delta), wide)
	c.writeOperand(addr, v, wide)
	c.setNZ(v, wide)
	return cost
}

func (c *CPU) branch(taken bool) int {
	off := int8(c.fetch8())
	if !taken {
		return 2
	}
	oldPC := c.PC
	c.PC = uint16(int32(c.PC) + int32(off))
	if (oldPC & 0xFF00) != (c.PC & 0xFF00) {
		return 4
	}
	return 3
}

// blockMove implements MVN/MVP: copies X-to-Y one byte at a time across
// banks, decrementing the 16-bit A-as-counter register until it underflows.
func (c *CPU) blockMove(direction int) int {
	dstBank := c.fetch8()
	srcBank := c.fetch8()
	c.DB = dstBank

	v := c.Mem.Read(uint32(srcBank)<<16 | uint32(c.X))
	c.Mem.Write(uint32(dstBank)<<16|uint32(c.Y), v)

	if direction > 0 {
		c.X++
		c.Y++
	} else {
		c.X--
		c.Y--
	}
	c.A--
	if c.A != 0xFFFF {
		c.PC -= 3 // repeat this instruction until the counter underflows
	}
	return 7
}

func (c *CPU) String() string {
	return fmt.Sprintf("PC=%02X:%04X A=%04X X=%04X Y=%04X S=%04X P=%02X E=%v", c.PB, c.PC, c.A, c.X, c.Y, c.S, c.P, c.E)
}
