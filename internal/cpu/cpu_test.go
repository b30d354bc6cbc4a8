package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type flatMemory struct {
	mem [0x1000000]uint8
}

func (m *flatMemory) Read(addr uint32) uint8         { return m.mem[addr&0xFFFFFF] }
func (m *flatMemory) Write(addr uint32, value uint8) { m.mem[addr&0xFFFFFF] = value }

func newTestCPU() (*CPU, *flatMemory) {
	mem := &flatMemory{}
	mem.mem[0xFFFC] = 0x00
	mem.mem[0xFFFD] = 0x80
	c := New(mem)
	return c, mem
}

func TestResetEntersEmulationModeAtStackPage1(t *testing.T) {
	c, _ := newTestCPU()
	assert.True(t, c.E)
	assert.Equal(t, uint16(0x8000), c.PC)
	assert.Equal(t, uint8(0), c.PB)
	assert.Equal(t, uint8(0), c.DB)
	assert.Equal(t, uint16(0x01FF), c.S)
	assert.True(t, c.flag(FlagM))
	assert.True(t, c.flag(FlagX))
	assert.True(t, c.flag(FlagI))
}

func TestEmulationModeClampsIndexRegistersToZeroHighByte(t *testing.T) {
	c, _ := newTestCPU()
	c.X = 0x1234
	c.Y = 0xBEEF
	c.enforceEmulationInvariants()
	assert.Equal(t, uint16(0x0034), c.X)
	assert.Equal(t, uint16(0x00EF), c.Y)
}

func TestEmulationModePinsStackToPageOne(t *testing.T) {
	c, _ := newTestCPU()
	c.S = 0x0005
	c.enforceEmulationInvariants()
	assert.Equal(t, uint16(0x0105), c.S)
}

func TestXCESwitchesToNativeModeClearsHighByteClamp(t *testing.T) {
	c, mem := newTestCPU()
	mem.mem[0x8000] = 0x18 // CLC
	mem.mem[0x8001] = 0xFB // XCE
	c.Step()
	c.Step()
	assert.False(t, c.E)

	c.X = 0x1234
	c.enforceEmulationInvariants()
	assert.Equal(t, uint16(0x1234), c.X)
}

func TestSEPSetsRequestedFlagBits(t *testing.T) {
	c, mem := newTestCPU()
	c.E = false
	c.P = 0
	mem.mem[0x8000] = 0xE2 // SEP #imm
	mem.mem[0x8001] = FlagM | FlagX
	c.Step()
	assert.True(t, c.flag(FlagM))
	assert.True(t, c.flag(FlagX))
}

func TestREPClearsRequestedFlagBits(t *testing.T) {
	c, mem := newTestCPU()
	c.E = false
	c.P = FlagM | FlagX | FlagC
	mem.mem[0x8000] = 0xC2 // REP #imm
	mem.mem[0x8001] = FlagM | FlagX
	c.Step()
	assert.False(t, c.flag(FlagM))
	assert.False(t, c.flag(FlagX))
	assert.True(t, c.flag(FlagC))
}

func TestLDAImmediateSetsZeroFlagIn8BitMode(t *testing.T) {
	c, mem := newTestCPU()
	mem.mem[0x8000] = 0xA9 // LDA #imm
	mem.mem[0x8001] = 0x00
	c.Step()
	assert.True(t, c.flag(FlagZ))
}

func TestADCBCDCorrectsPerNibble(t *testing.T) {
	c, mem := newTestCPU()
	c.setFlag(FlagD, true)
	c.A = 0x0009
	mem.mem[0x8000] = 0x69 // ADC #imm
	mem.mem[0x8001] = 0x01
	c.Step()
	assert.Equal(t, uint16(0x0010), c.A&0x00FF)
}

func TestStackPointerStaysWithinPageOneRangeAfterPushPop(t *testing.T) {
	c, _ := newTestCPU()
	for i := 0; i < 300; i++ {
		c.push8(uint8(i))
	}
	assert.GreaterOrEqual(t, c.S, uint16(0x0100))
	assert.LessOrEqual(t, c.S, uint16(0x01FF))
}

func TestRequestNMIVectorsToEmulationNMIHandler(t *testing.T) {
	c, mem := newTestCPU()
	mem.mem[0xFFFA] = 0x00
	mem.mem[0xFFFB] = 0x90
	mem.mem[0x8000] = 0xEA // NOP, never reached

	c.RequestNMI()
	c.Step()

	assert.Equal(t, uint16(0x9000), c.PC)
	assert.True(t, c.flag(FlagI))
}

func TestNMIRequestDeliversOnlyOncePerRequest(t *testing.T) {
	c, mem := newTestCPU()
	mem.mem[0xFFFA] = 0x00
	mem.mem[0xFFFB] = 0x90
	mem.mem[0x9000] = 0xEA // NOP

	c.RequestNMI()
	c.Step() // services the NMI
	c.Step() // executes the NOP at the vector, not another NMI
	assert.Equal(t, uint16(0x9001), c.PC)
}

func TestIRQLineIgnoredWhileInterruptDisableFlagSet(t *testing.T) {
	c, mem := newTestCPU()
	mem.mem[0x8000] = 0xEA // NOP
	c.setFlag(FlagI, true)

	c.SetIRQLine(true)
	c.Step()

	assert.Equal(t, uint16(0x8001), c.PC) // executed the NOP, not the IRQ vector
}

func TestIRQLineVectorsWhenEnabled(t *testing.T) {
	c, mem := newTestCPU()
	mem.mem[0xFFFE] = 0x00
	mem.mem[0xFFFF] = 0xA0
	c.setFlag(FlagI, false)

	c.SetIRQLine(true)
	c.Step()

	assert.Equal(t, uint16(0xA000), c.PC)
}

func TestWAIWakesOnIRQEvenWithInterruptsMasked(t *testing.T) {
	c, mem := newTestCPU()
	c.setFlag(FlagI, true)
	mem.mem[0x8000] = 0xCB // WAI
	mem.mem[0x8001] = 0xEA // NOP
	c.Step()
	assert.Equal(t, 1, func() int {
		if c.waiting {
			return 1
		}
		return 0
	}())

	c.SetIRQLine(true)
	c.Step() // wakes up but I=1 so it just executes the NOP next
	assert.False(t, c.waiting)
	assert.Equal(t, uint16(0x8002), c.PC)
}

func TestBITImmediateOnlyAffectsZeroFlag(t *testing.T) {
	c, mem := newTestCPU()
	c.A = 0x00FF
	c.P |= FlagN | FlagV
	mem.mem[0x8000] = 0x89 // BIT #imm
	mem.mem[0x8001] = 0x00
	c.Step()
	assert.True(t, c.flag(FlagZ))
	assert.True(t, c.flag(FlagN)) // untouched by the immediate form
}

func TestBITAbsoluteSetsNVFromMemory(t *testing.T) {
	c, mem := newTestCPU()
	c.A = 0xFF
	mem.mem[0x8000] = 0x2C // BIT abs
	mem.mem[0x8001] = 0x00
	mem.mem[0x8002] = 0x10
	mem.mem[0x1000] = 0xC0 // N and V bits set in operand
	c.Step()
	assert.False(t, c.flag(FlagZ))
	assert.True(t, c.flag(FlagN))
	assert.True(t, c.flag(FlagV))
}

func TestTSBSetsBitsAndReportsZero(t *testing.T) {
	c, mem := newTestCPU()
	c.A = 0x0F
	mem.mem[0x8000] = 0x04 // TSB dp
	mem.mem[0x8001] = 0x10
	mem.mem[0x0010] = 0xF0
	c.Step()
	assert.True(t, c.flag(FlagZ)) // A & mem was 0 before the OR
	assert.Equal(t, uint8(0xFF), mem.mem[0x0010])
}

func TestTRBClearsABitsOutOfMemory(t *testing.T) {
	c, mem := newTestCPU()
	c.A = 0x0F
	mem.mem[0x8000] = 0x14 // TRB dp
	mem.mem[0x8001] = 0x10
	mem.mem[0x0010] = 0xFF
	c.Step()
	assert.Equal(t, uint8(0xF0), mem.mem[0x0010])
}

func TestXBASwapsAccumulatorBytes(t *testing.T) {
	c, mem := newTestCPU()
	c.A = 0x1234
	mem.mem[0x8000] = 0xEB // XBA
	c.Step()
	assert.Equal(t, uint16(0x3412), c.A)
}

func TestStackRelativeIndirectIndexedYReadsThroughStackPointer(t *testing.T) {
	c, mem := newTestCPU()
	c.E = false
	c.P &^= FlagM
	c.S = 0x01F0
	c.Y = 0x0002
	c.DB = 0x00
	mem.mem[0x01F2] = 0x00 // pointer low, at S+operand
	mem.mem[0x01F3] = 0x20 // pointer hi -> base $2000
	mem.mem[0x2002] = 0xCD // base + Y(2) = $2002
	mem.mem[0x2003] = 0xAB
	mem.mem[0x8000] = 0xB3 // LDA (sr,S),Y
	mem.mem[0x8001] = 0x02
	c.Step()
	assert.Equal(t, uint16(0xABCD), c.A)
}

func TestShiftMemoryASLSetsCarryFromTopBit(t *testing.T) {
	c, mem := newTestCPU()
	mem.mem[0x8000] = 0x06 // ASL dp
	mem.mem[0x8001] = 0x10
	mem.mem[0x0010] = 0x81
	c.Step()
	assert.True(t, c.flag(FlagC))
	assert.Equal(t, uint8(0x02), mem.mem[0x0010])
}

func TestJMPAbsoluteIndexedIndirectFollowsPointerInProgramBank(t *testing.T) {
	c, mem := newTestCPU()
	mem.mem[0x8000] = 0x7C // JMP (abs,X)
	mem.mem[0x8001] = 0x00
	mem.mem[0x8002] = 0x90
	c.X = 0x0002
	mem.mem[0x9002] = 0x00
	mem.mem[0x9003] = 0xA0
	c.Step()
	assert.Equal(t, uint16(0xA000), c.PC)
}
