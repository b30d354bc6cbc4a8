// Package bus implements the 24-bit address decode that ties WRAM, the
// cartridge, and the memory-mapped register files together for the CPU.
package bus

import "errors"

// Cartridge is the subset of the cartridge package the bus needs.
type Cartridge interface {
	Read(addr uint32) uint8
	Write(addr uint32, value uint8)
}

// APU is the subset of the audio co-processor the bus talks to via the
// 4-byte mailbox at $2140-$2143.
type APU interface {
	ReadMailbox(port int) uint8
	WriteMailbox(port int, value uint8)
}

// PPU is the subset of the picture processor reached through $2100-$213F.
type PPU interface {
	ReadRegister(addr uint16) uint8
	WriteRegister(addr uint16, value uint8)
}

// DMA is the subset of the DMA engine reached through $4300-$437F and the
// trigger registers $420B/$420C.
type DMA interface {
	ReadRegister(addr uint16) uint8
	WriteRegister(addr uint16, value uint8)
	TriggerGDMA(mask uint8)
	ArmHDMA(mask uint8)
}

// Controller is a single 16-bit-shift-register joypad.
type Controller interface {
	Strobe(high bool)
	ShiftRead() uint8
}

// Coproc is the subset of the vector coprocessor reached through the
// register window at $3000-$32FF and the RAM window at $6000-$7FFF, in
// banks $00-$3F/$80-$BF.
type Coproc interface {
	ReadRegister(addr uint16) uint8
	WriteRegister(addr uint16, value uint8)
	ReadRAM(addr uint16) uint8
	WriteRAM(addr uint16, value uint8)
}

// Bus owns 128 KiB of work RAM and decodes every CPU-visible address.
type Bus struct {
	wram [0x20000]uint8

	Cart   Cartridge
	APU    APU
	PPU    PPU
	DMA    DMA
	Pad1   Controller
	Pad2   Controller
	Coproc Coproc

	// multiply/divide unit ($4202-$4206 and friends)
	multiplicand uint8
	multiplier   uint8
	dividend     uint16
	divisor      uint8
	mulResult    uint16
	divResult    uint16
	divRemainder uint16

	nmiEnabled bool
	nmiFlag    bool
	irqFlag    bool

	// H/V-timer IRQ ($4200 bits 4-5, $4207-$420A)
	hvIRQMode uint8 // 0=off, 1=H-IRQ, 2=V-IRQ, 3=H+V-IRQ
	hTimer    uint16
	vTimer    uint16

	cheats CheatReader
}

// CheatReader lets the bus consult the active cheat patch table on every
// read without importing the cheat package directly.
type CheatReader interface {
	Patch(addr uint32, original uint8) (uint8, bool)
}

// New creates a bus with the given cartridge attached.
func New(cart Cartridge) *Bus {
	return &Bus{Cart: cart}
}

// SetCheatReader installs (or clears, with nil) the active cheat patch table.
func (b *Bus) SetCheatReader(r CheatReader) { b.cheats = r }

// Read decodes a 24-bit address into WRAM, register files, or the cartridge.
func (b *Bus) Read(addr uint32) uint8 {
	bank := uint8(addr >> 16)
	off := uint16(addr)

	var v uint8
	switch {
	case bank == 0x7E || bank == 0x7F:
		v = b.wram[uint32(bank-0x7E)<<16|uint32(off)]
	case (bank <= 0x3F || (bank >= 0x80 && bank <= 0xBF)) && off < 0x2000:
		v = b.wram[off]
	case (bank <= 0x3F || (bank >= 0x80 && bank <= 0xBF)) && off >= 0x2100 && off <= 0x213F:
		v = b.PPU.ReadRegister(off)
	case (bank <= 0x3F || (bank >= 0x80 && bank <= 0xBF)) && off >= 0x2140 && off <= 0x2143:
		v = b.APU.ReadMailbox(int(off - 0x2140))
	case b.Coproc != nil && (bank <= 0x3F || (bank >= 0x80 && bank <= 0xBF)) && off >= 0x3000 && off <= 0x32FF:
		v = b.Coproc.ReadRegister(off)
	case b.Coproc != nil && (bank <= 0x3F || (bank >= 0x80 && bank <= 0xBF)) && off >= 0x6000 && off <= 0x7FFF:
		v = b.Coproc.ReadRAM(off - 0x6000)
	case (bank <= 0x3F || (bank >= 0x80 && bank <= 0xBF)) && off == 0x4016:
		v = b.Pad1.ShiftRead()
	case (bank <= 0x3F || (bank >= 0x80 && bank <= 0xBF)) && off == 0x4017:
		v = b.Pad2.ShiftRead()
	case (bank <= 0x3F || (bank >= 0x80 && bank <= 0xBF)) && off == 0x4210:
		v = b.readNMIFlag()
	case (bank <= 0x3F || (bank >= 0x80 && bank <= 0xBF)) && off == 0x4211:
		v = b.readIRQFlag()
	case (bank <= 0x3F || (bank >= 0x80 && bank <= 0xBF)) && off >= 0x4214 && off <= 0x4217:
		v = b.readMulDiv(off)
	case (bank <= 0x3F || (bank >= 0x80 && bank <= 0xBF)) && off >= 0x4300 && off <= 0x437F:
		v = b.DMA.ReadRegister(off)
	default:
		v = b.Cart.Read(addr)
	}

	if b.cheats != nil {
		if patched, ok := b.cheats.Patch(addr, v); ok {
			return patched
		}
	}
	return v
}

// Write decodes a 24-bit address write.
func (b *Bus) Write(addr uint32, value uint8) {
	bank := uint8(addr >> 16)
	off := uint16(addr)

	switch {
	case bank == 0x7E || bank == 0x7F:
		b.wram[uint32(bank-0x7E)<<16|uint32(off)] = value
	case (bank <= 0x3F || (bank >= 0x80 && bank <= 0xBF)) && off < 0x2000:
		b.wram[off] = value
	case (bank <= 0x3F || (bank >= 0x80 && bank <= 0xBF)) && off >= 0x2100 && off <= 0x213F:
		b.PPU.WriteRegister(off, value)
	case (bank <= 0x3F || (bank >= 0x80 && bank <= 0xBF)) && off >= 0x2140 && off <= 0x2143:
		b.APU.WriteMailbox(int(off-0x2140), value)
	case b.Coproc != nil && (bank <= 0x3F || (bank >= 0x80 && bank <= 0xBF)) && off >= 0x3000 && off <= 0x32FF:
		b.Coproc.WriteRegister(off, value)
	case b.Coproc != nil && (bank <= 0x3F || (bank >= 0x80 && bank <= 0xBF)) && off >= 0x6000 && off <= 0x7FFF:
		b.Coproc.WriteRAM(off-0x6000, value)
	case (bank <= 0x3F || (bank >= 0x80 && bank <= 0xBF)) && off == 0x4016:
		b.Pad1.Strobe(value&1 != 0)
		b.Pad2.Strobe(value&1 != 0)
	case (bank <= 0x3F || (bank >= 0x80 && bank <= 0xBF)) && off == 0x4200:
		b.nmiEnabled = value&0x80 != 0
		b.hvIRQMode = (value >> 4) & 0x03
	case (bank <= 0x3F || (bank >= 0x80 && bank <= 0xBF)) && off == 0x4207:
		b.hTimer = b.hTimer&0xFF00 | uint16(value)
	case (bank <= 0x3F || (bank >= 0x80 && bank <= 0xBF)) && off == 0x4208:
		b.hTimer = b.hTimer&0x00FF | uint16(value&0x01)<<8
	case (bank <= 0x3F || (bank >= 0x80 && bank <= 0xBF)) && off == 0x4209:
		b.vTimer = b.vTimer&0xFF00 | uint16(value)
	case (bank <= 0x3F || (bank >= 0x80 && bank <= 0xBF)) && off == 0x420A:
		b.vTimer = b.vTimer&0x00FF | uint16(value&0x01)<<8
	case (bank <= 0x3F || (bank >= 0x80 && bank <= 0xBF)) && off == 0x4202:
		b.multiplicand = value
	case (bank <= 0x3F || (bank >= 0x80 && bank <= 0xBF)) && off == 0x4203:
		b.multiplier = value
		b.mulResult = uint16(b.multiplicand) * uint16(b.multiplier)
	case (bank <= 0x3F || (bank >= 0x80 && bank <= 0xBF)) && off == 0x4204:
		b.dividend = b.dividend&0xFF00 | uint16(value)
	case (bank <= 0x3F || (bank >= 0x80 && bank <= 0xBF)) && off == 0x4205:
		b.dividend = b.dividend&0x00FF | uint16(value)<<8
	case (bank <= 0x3F || (bank >= 0x80 && bank <= 0xBF)) && off == 0x4206:
		b.divisor = value
		b.commitDivide()
	case (bank <= 0x3F || (bank >= 0x80 && bank <= 0xBF)) && off == 0x420B:
		b.DMA.TriggerGDMA(value)
	case (bank <= 0x3F || (bank >= 0x80 && bank <= 0xBF)) && off == 0x420C:
		b.DMA.ArmHDMA(value)
	case (bank <= 0x3F || (bank >= 0x80 && bank <= 0xBF)) && off >= 0x4300 && off <= 0x437F:
		b.DMA.WriteRegister(off, value)
	default:
		b.Cart.Write(addr, value)
	}
}

// commitDivide computes dividend/divisor with a documented zero-divisor
// sentinel instead of faulting: result is $FFFF, remainder is the dividend.
func (b *Bus) commitDivide() {
	if b.divisor == 0 {
		b.divResult = 0xFFFF
		b.divRemainder = b.dividend
		return
	}
	b.divResult = b.dividend / uint16(b.divisor)
	b.divRemainder = b.dividend % uint16(b.divisor)
}

func (b *Bus) readMulDiv(addr uint16) uint8 {
	switch addr {
	case 0x4214:
		return uint8(b.divResult)
	case 0x4215:
		return uint8(b.divResult >> 8)
	case 0x4216:
		return uint8(b.mulResult)
	case 0x4217:
		return uint8(b.mulResult >> 8)
	}
	return 0
}

// readNMIFlag reads and clears the VBlank NMI flag register, per the
// documented read-clears semantics of $4210.
func (b *Bus) readNMIFlag() uint8 {
	var v uint8
	if b.nmiFlag {
		v |= 0x80
	}
	b.nmiFlag = false
	return v
}

func (b *Bus) readIRQFlag() uint8 {
	var v uint8
	if b.irqFlag {
		v |= 0x80
	}
	b.irqFlag = false
	return v
}

// SetNMIFlag is called by the scheduler at the start of VBlank.
func (b *Bus) SetNMIFlag() { b.nmiFlag = true }

// SetIRQFlag is called by the scheduler when an H/V-timer IRQ condition fires.
func (b *Bus) SetIRQFlag() { b.irqFlag = true }

// NMIEnabled reports whether $4200 bit 7 requests NMI delivery on VBlank.
func (b *Bus) NMIEnabled() bool { return b.nmiEnabled }

// HVIRQPending reports whether the H/V-timer IRQ programmed through $4200/
// $4207-$420A fires for the given scanline. The engine schedules per
// scanline rather than per dot, so the H-IRQ and H+V-IRQ modes are
// approximated at scanline granularity: an H-IRQ fires once per matching
// line rather than at the exact programmed dot.
func (b *Bus) HVIRQPending(line int) bool {
	switch b.hvIRQMode {
	case 1: // H-IRQ: fires every line, timing within the line is ignored
		return true
	case 2: // V-IRQ: fires once, on the programmed line
		return line == int(b.vTimer)
	case 3: // H+V-IRQ: fires once, on the programmed line; the H position is ignored
		return line == int(b.vTimer)
	default:
		return false
	}
}

// WRAM exposes the raw work-RAM array for save-state serialization.
func (b *Bus) WRAM() []uint8 { return b.wram[:] }

// LoadWRAM restores work RAM from a save state, zero-filling any shortfall.
func (b *Bus) LoadWRAM(data []uint8) error {
	if len(data) > len(b.wram) {
		return errors.New("bus: wram blob larger than physical ram")
	}
	n := copy(b.wram[:], data)
	for i := n; i < len(b.wram); i++ {
		b.wram[i] = 0
	}
	return nil
}
