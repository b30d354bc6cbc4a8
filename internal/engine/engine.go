// Package engine wires every subsystem together behind a single owner
// struct and drives them in lockstep, one frame at a time.
package engine

import (
	"fmt"

	"gosnes/internal/apu"
	"gosnes/internal/audio"
	"gosnes/internal/bus"
	"gosnes/internal/cartridge"
	"gosnes/internal/cheat"
	"gosnes/internal/coproc"
	"gosnes/internal/cpu"
	"gosnes/internal/dma"
	"gosnes/internal/input"
	"gosnes/internal/ppu"
	"gosnes/internal/savestate"
)

// audioRingCapacity holds roughly 200ms of stereo audio at the native
// 32kHz DSP output rate, enough to absorb a host scheduling hiccup.
const audioRingCapacity = 32000 / 5

const (
	cyclesPerScanline = 1364
	scanlinesPerFrame = 262
)

// ErrorKind classifies engine errors: only UnsupportedCartridge and
// CorruptSaveState are meant to surface to a user; every other failure mode
// self-heals internally and is never returned from EmulateFrame.
type ErrorKind uint8

const (
	ErrorUnsupportedCartridge ErrorKind = iota
	ErrorCorruptSaveState
)

// EngineError wraps an ErrorKind with a human-readable message.
type EngineError struct {
	Kind ErrorKind
	Err  error
}

func (e *EngineError) Error() string { return e.Err.Error() }
func (e *EngineError) Unwrap() error { return e.Err }

// Engine owns every subsystem and drives the frame loop.
type Engine struct {
	Cart   *cartridge.Cartridge
	Bus    *bus.Bus
	CPU    *cpu.CPU
	APU    *apu.APU
	PPU    *ppu.PPU
	DMA    *dma.Engine
	Coproc *coproc.Coprocessor
	Pad1   *input.Controller
	Pad2   *input.Controller
	Cheats *cheat.Database

	// AudioOut receives mixed DSP samples as EmulateFrame runs; the host
	// audio callback drains it from a separate goroutine.
	AudioOut *audio.RingBuffer

	TurboMultiplier int // cycle-budget multiplier; 1 = normal speed
}

// cartROMView adapts *cartridge.Cartridge to coproc.ROM.
type cartROMView struct{ c *cartridge.Cartridge }

func (v cartROMView) Read(addr uint32) uint8 { return v.c.Read(addr) }

// New builds an Engine around an already-loaded cartridge.
func New(cart *cartridge.Cartridge, backend ppu.Backend) *Engine {
	e := &Engine{
		Cart:            cart,
		TurboMultiplier: 1,
		AudioOut:        audio.NewRingBuffer(audioRingCapacity),
	}
	e.Bus = bus.New(cart)
	e.APU = apu.New()
	e.PPU = ppu.New(backend)
	e.DMA = dma.New(e.Bus)
	e.Coproc = coproc.New(cartROMView{cart})
	e.Pad1 = &input.Controller{}
	e.Pad2 = &input.Controller{}

	e.Bus.APU = e.APU
	e.Bus.PPU = e.PPU
	e.Bus.DMA = e.DMA
	e.Bus.Pad1 = e.Pad1
	e.Bus.Pad2 = e.Pad2
	if cart.Coprocessor() == cartridge.CoprocVector {
		e.Bus.Coproc = e.Coproc
	}

	e.CPU = cpu.New(e.Bus)
	return e
}

// LoadCartridge parses ROM bytes and returns a ready-to-run Engine.
func LoadCartridge(data []byte, backend ppu.Backend) (*Engine, error) {
	cart, err := cartridge.Load(data)
	if err != nil {
		return nil, &EngineError{Kind: ErrorUnsupportedCartridge, Err: fmt.Errorf("engine: %w", err)}
	}
	return New(cart, backend), nil
}

// Reset restores the CPU, the APU (with its DSP) and the coprocessor to
// power-on state. PPU, DMA channel, bus register and work-RAM state are
// left as they are.
func (e *Engine) Reset() {
	e.CPU.Reset()
	e.APU.Reset()
	e.Coproc.Reset()
}

// SetCheats installs an active cheat database, wiring it into the bus's
// read-time patch hook.
func (e *Engine) SetCheats(db *cheat.Database) {
	e.Cheats = db
	e.Bus.SetCheatReader(db)
}

// SaveSRAM returns the cartridge's battery-backed RAM for persistence.
func (e *Engine) SaveSRAM() []byte {
	if !e.Cart.HasBattery() {
		return nil
	}
	return append([]byte(nil), e.Cart.SRAM()...)
}

// LoadSRAM restores battery-backed RAM from a previously saved blob.
func (e *Engine) LoadSRAM(data []byte) {
	e.Cart.LoadSRAM(data)
}

// SaveState snapshots work RAM and cartridge SRAM into a portable blob.
// CPU, PPU, APU, DSP, DMA and coprocessor state are not included.
func (e *Engine) SaveState() []byte {
	s := savestate.NewState()
	s.Set(savestate.TagWRAM, e.Bus.WRAM())
	s.Set(savestate.TagSRAM, e.Cart.SRAM())
	return savestate.Save(s)
}

// LoadState restores subsystem state from a blob produced by SaveState.
func (e *Engine) LoadState(data []byte) error {
	s, err := savestate.Load(data)
	if err != nil {
		return &EngineError{Kind: ErrorCorruptSaveState, Err: fmt.Errorf("engine: %w", err)}
	}
	if wram := s.Get(savestate.TagWRAM); wram != nil {
		if err := e.Bus.LoadWRAM(wram); err != nil {
			return &EngineError{Kind: ErrorCorruptSaveState, Err: err}
		}
	}
	if sram := s.Get(savestate.TagSRAM); sram != nil {
		e.Cart.LoadSRAM(sram)
	}
	return nil
}

// EmulateFrame runs exactly one video frame: per scanline, it checks for
// VBlank/NMI delivery, runs HDMA, and ticks the CPU/APU/coprocessor for a
// fixed cycle budget before advancing the PPU to the next scanline.
func (e *Engine) EmulateFrame() {
	budget := cyclesPerScanline * e.turboMultiplier()

	hasCoproc := e.Cart.Coprocessor() == cartridge.CoprocVector

	// The DSP emits one stereo pair per 1/32000 s of emulated time;
	// sampleAcc carries the remainder between steps in cycles*32000 units.
	const cyclesPerSecond = cyclesPerScanline * scanlinesPerFrame * 60
	sampleAcc := 0

	for line := 0; line < scanlinesPerFrame; line++ {
		e.DMA.RunHDMALine()

		if e.Bus.HVIRQPending(line) {
			e.Bus.SetIRQFlag()
			e.CPU.SetIRQLine(true)
		}

		cyclesLeft := budget
		for cyclesLeft > 0 {
			if e.CPU.Stopped() {
				break
			}
			cost := e.CPU.Step()
			e.APU.Step(cost)
			if hasCoproc {
				e.Coproc.Step()
			}
			sampleAcc += cost * 32000
			for sampleAcc >= cyclesPerSecond {
				left, right := e.APU.DSP.Mix()
				e.AudioOut.Push(left, right)
				sampleAcc -= cyclesPerSecond
			}
			cyclesLeft -= cost
		}

		nmi, _ := e.PPU.StepScanline()
		if nmi && e.Bus.NMIEnabled() {
			e.Bus.SetNMIFlag()
			e.CPU.RequestNMI()
		}
	}
}

func (e *Engine) turboMultiplier() int {
	if e.TurboMultiplier < 1 {
		return 1
	}
	return e.TurboMultiplier
}
