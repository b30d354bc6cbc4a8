// Package dma implements the 8-channel GDMA/HDMA transfer engine that moves
// bytes between the CPU bus and the PPU/APU register windows without CPU
// instruction fetches.
package dma

// Bus is the subset of the system bus DMA needs to move bytes.
type Bus interface {
	Read(addr uint32) uint8
	Write(addr uint32, value uint8)
}

// transferPatterns lists, per DMA mode (0-7), the B-bus register offset
// added to the base register for each byte of a unit transfer.
var transferPatterns = [8][]uint8{
	{0},
	{0, 1},
	{0, 0},
	{0, 0, 1, 1},
	{0, 1, 2, 3},
	{0, 1, 0, 1},
	{0, 0},
	{0, 0, 1, 1},
}

// Channel is one of the eight GDMA/HDMA channels.
type Channel struct {
	Enabled    bool // GDMA enable bit in $420B
	HDMAArmed  bool // HDMA enable bit in $420C
	Direction  bool // true = PPU-to-CPU
	FixedAddr  bool
	Mode       uint8 // transfer pattern selector, 0-7
	BBusAddr   uint8 // destination/source register, e.g. $21xx low byte
	ABusAddr   uint16
	ABusBank   uint8
	Count      uint16 // 0 means 64 KiB
	IndirectLo uint8
	IndirectHi uint8
	IndirectBk uint8
	LineCount  uint8 // HDMA table line counter, 7 bits, decoded from the header
	Repeat     bool  // header bit 7: transfer on every remaining line, not just the first
	Indirect   bool  // HDMA indirect addressing mode

	hdmaDone   bool
	doTransfer bool // whether the current line actually moves bytes
}

// Engine owns the eight channels and the bus they move bytes across.
type Engine struct {
	Channels [8]Channel
	Bus      Bus
}

// New creates a DMA engine bound to the given bus.
func New(bus Bus) *Engine {
	return &Engine{Bus: bus}
}

// ReadRegister reads one of a channel's $43x0-$43xA registers.
func (e *Engine) ReadRegister(addr uint16) uint8 {
	ch := (addr >> 4) & 0x07
	reg := addr & 0x0F
	c := &e.Channels[ch]
	switch reg {
	case 0x00:
		return c.paramByte()
	case 0x01:
		return c.BBusAddr
	case 0x02:
		return uint8(c.ABusAddr)
	case 0x03:
		return uint8(c.ABusAddr >> 8)
	case 0x04:
		return c.ABusBank
	case 0x05:
		return uint8(c.Count)
	case 0x06:
		return uint8(c.Count >> 8)
	case 0x07:
		return c.IndirectBk
	case 0x0A:
		v := c.LineCount & 0x7F
		if c.Repeat {
			v |= 0x80
		}
		return v
	}
	return 0
}

// WriteRegister writes one of a channel's $43x0-$43xA registers.
func (e *Engine) WriteRegister(addr uint16, value uint8) {
	ch := (addr >> 4) & 0x07
	reg := addr & 0x0F
	c := &e.Channels[ch]
	switch reg {
	case 0x00:
		c.Direction = value&0x80 != 0
		c.Indirect = value&0x40 != 0
		c.FixedAddr = value&0x08 != 0
		c.Mode = value & 0x07
	case 0x01:
		c.BBusAddr = value
	case 0x02:
		c.ABusAddr = c.ABusAddr&0xFF00 | uint16(value)
	case 0x03:
		c.ABusAddr = c.ABusAddr&0x00FF | uint16(value)<<8
	case 0x04:
		c.ABusBank = value
	case 0x05:
		c.Count = c.Count&0xFF00 | uint16(value)
		c.IndirectLo = value
	case 0x06:
		c.Count = c.Count&0x00FF | uint16(value)<<8
		c.IndirectHi = value
	case 0x07:
		c.IndirectBk = value
	case 0x0A:
		c.LineCount = value & 0x7F
		c.Repeat = value&0x80 != 0
	}
}

func (c *Channel) paramByte() uint8 {
	var v uint8
	if c.Direction {
		v |= 0x80
	}
	if c.Indirect {
		v |= 0x40
	}
	if c.FixedAddr {
		v |= 0x08
	}
	v |= c.Mode & 0x07
	return v
}

// TriggerGDMA runs every channel named in mask, in ascending channel order,
// and clears each channel's count to zero on completion.
func (e *Engine) TriggerGDMA(mask uint8) {
	for i := 0; i < 8; i++ {
		if mask&(1<<uint(i)) == 0 {
			continue
		}
		e.runGDMAChannel(&e.Channels[i])
	}
}

func (e *Engine) runGDMAChannel(c *Channel) {
	pattern := transferPatterns[c.Mode]
	remaining := int(c.Count)
	if remaining == 0 {
		remaining = 0x10000
	}

	idx := 0
	for remaining > 0 {
		bReg := uint16(0x2100) + uint16(c.BBusAddr) + uint16(pattern[idx%len(pattern)])
		aAddr := uint32(c.ABusBank)<<16 | uint32(c.ABusAddr)
		if c.Direction {
			e.Bus.Write(aAddr, e.Bus.Read(uint32(bReg)))
		} else {
			e.Bus.Write(uint32(bReg), e.Bus.Read(aAddr))
		}
		if !c.FixedAddr {
			c.ABusAddr++
		}
		idx++
		remaining--
	}
	c.Count = 0
}

// ArmHDMA marks the named channels active for per-scanline HDMA execution
// and clears their finished flag. Table pointers and line counters are not
// reloaded: each channel continues from its current A-bus address, here and
// at the start of every later frame.
func (e *Engine) ArmHDMA(mask uint8) {
	for i := 0; i < 8; i++ {
		c := &e.Channels[i]
		c.HDMAArmed = mask&(1<<uint(i)) != 0
		if c.HDMAArmed {
			c.hdmaDone = false
		}
	}
}

// RunHDMALine executes one scanline's worth of HDMA for every armed channel,
// reloading each channel's line-repeat table entry as needed.
func (e *Engine) RunHDMALine() {
	for i := range e.Channels {
		c := &e.Channels[i]
		if !c.HDMAArmed || c.hdmaDone {
			continue
		}
		e.stepHDMAChannel(c)
	}
}

// stepHDMAChannel runs one scanline of a channel's table entry. A header
// byte's bit 7 controls how many of the entry's lines actually transfer:
// when set, every line up to the count moves bytes; when clear, only the
// line the header was fetched on does, and the remaining lines just count
// down in silence until the next header fetch.
func (e *Engine) stepHDMAChannel(c *Channel) {
	if c.LineCount == 0 {
		header := e.Bus.Read(uint32(c.ABusBank)<<16 | uint32(c.ABusAddr))
		c.ABusAddr++
		if header == 0 {
			c.hdmaDone = true
			return
		}
		c.Repeat = header&0x80 != 0
		c.LineCount = header & 0x7F
		if c.LineCount == 0 {
			c.LineCount = 1
		}
		c.doTransfer = true
		if c.Indirect {
			c.IndirectLo = e.Bus.Read(uint32(c.ABusBank)<<16 | uint32(c.ABusAddr))
			c.ABusAddr++
			c.IndirectHi = e.Bus.Read(uint32(c.ABusBank)<<16 | uint32(c.ABusAddr))
			c.ABusAddr++
		}
	} else {
		c.doTransfer = c.Repeat
	}

	if c.doTransfer {
		pattern := transferPatterns[c.Mode]
		srcBank := c.ABusBank
		srcAddr := c.ABusAddr
		if c.Indirect {
			srcBank = c.IndirectBk
			srcAddr = uint16(c.IndirectLo) | uint16(c.IndirectHi)<<8
		}

		for i, delta := range pattern {
			bReg := uint16(0x2100) + uint16(c.BBusAddr) + uint16(delta)
			aAddr := uint32(srcBank)<<16 | uint32(srcAddr+uint16(i))
			e.Bus.Write(uint32(bReg), e.Bus.Read(aAddr))
		}

		if c.Indirect {
			c.IndirectLo = uint8(uint16(c.IndirectLo) + uint16(len(pattern)))
		} else {
			c.ABusAddr += uint16(len(pattern))
		}
	}

	c.LineCount--
}

// CyclesGDMA estimates the CPU budget a GDMA run of n bytes consumes.
func CyclesGDMA(bytes int) int { return bytes * 8 }

// CyclesHDMALine estimates the cost of one scanline's HDMA for n active channels.
func CyclesHDMALine(activeChannels int) int { return activeChannels * 4 }
