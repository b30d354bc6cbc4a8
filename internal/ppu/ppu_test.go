package ppu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeBackend struct {
	frames int
	lastW  int
	lastH  int
}

func (f *fakeBackend) Present(frame []uint32, width, height int) {
	f.frames++
	f.lastW, f.lastH = width, height
}

func TestScanlineWrapEmitsFrameAtLine262(t *testing.T) {
	backend := &fakeBackend{}
	p := New(backend)

	for i := 0; i < totalLines; i++ {
		_, ready := p.StepScanline()
		if i < totalLines-1 {
			assert.False(t, ready)
		} else {
			assert.True(t, ready)
		}
	}
	assert.Equal(t, 1, backend.frames)
	assert.Equal(t, screenWidth, backend.lastW)
	assert.Equal(t, visibleLines, backend.lastH)
}

func TestNMIFiresExactlyOnceAtVBlankLine(t *testing.T) {
	p := New(nil)
	nmiCount := 0
	for i := 0; i < totalLines; i++ {
		nmi, _ := p.StepScanline()
		if nmi {
			nmiCount++
		}
	}
	assert.Equal(t, 1, nmiCount)
}

func TestHiResDoublesFrameBufferDimensions(t *testing.T) {
	p := New(nil)
	p.SetHiRes(true)
	assert.Equal(t, 512, p.width)
	assert.Equal(t, 448, p.height)
}

func TestColorMathAddHalfClampsTo31(t *testing.T) {
	main := uint16(31) // full red, no green/blue
	sub := uint16(31)
	result := ColorMath(main, sub, false, true)
	assert.Equal(t, uint8(31), uint8(result&0x1F))
}

func TestColorMathSubtractClampsToZero(t *testing.T) {
	main := uint16(0)
	sub := uint16(31)
	result := ColorMath(main, sub, true, false)
	assert.Equal(t, uint8(0), uint8(result&0x1F))
}

func TestCGRAMColorConversionPreservesWhite(t *testing.T) {
	p := New(nil)
	p.CGRAM[0] = 0xFF
	p.CGRAM[1] = 0x7F // BGR555 white: all five-bit components at max
	argb := p.cgramColor(0)
	assert.Equal(t, uint32(0xFFFFFFFF), argb)
}
