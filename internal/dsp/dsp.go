// Package dsp implements the 8-voice BRR/ADSR sound mixer (the "DSP" half
// of the audio co-processor) and its echo unit.
package dsp

// RAM is the read/write view the DSP needs into the audio CPU's private
// 64 KiB address space: BRR source data and the echo ring both live there.
// The apu package owns the backing array; this keeps ownership explicit
// per the engine's design notes instead of sharing a raw byte slice.
type RAM interface {
	Peek(addr uint16) uint8
	WriteEcho(addr uint16, value uint8)
}

// EnvelopeMode is the current stage of a voice's envelope.
type EnvelopeMode uint8

const (
	EnvOff EnvelopeMode = iota
	EnvAttack
	EnvDecay
	EnvSustain
	EnvRelease
	EnvGainDirect
)

// Voice holds the per-channel playback state described by the DSP register file.
type Voice struct {
	VolL, VolR int8
	Pitch      uint16 // 14-bit pitch, units of 1/4096 sample-rate steps
	SourceNum  uint8
	ADSR1      uint8
	ADSR2      uint8
	Gain       uint8
	UseADSR    bool

	EnvValue int32
	EnvMode  EnvelopeMode

	// BRR decode cursor
	srcAddr    uint16 // directory-resolved block start
	blockAddr  uint16 // current 9-byte block address
	nibbleIdx  int    // 0..15 within the current block's 8 data bytes
	blockHdr   uint8
	loopFlag   bool
	endFlag    bool
	pitchAccum uint32 // fractional phase accumulator, 1.0 == 0x1000

	hist [2]int32 // last two decoded samples, newest first (p1, p2)
	out  int32    // last output sample fed to the mixer

	KeyOn  bool
	KeyOff bool
	Noise  bool
	Echo   bool
}

// DSP is the 8-voice mixer plus echo unit.
type DSP struct {
	Voices [8]Voice

	MasterVolL, MasterVolR int8
	EchoVolL, EchoVolR     int8
	FLG                    uint8 // bit7 soft reset, bit6 mute, bit5 echo disable, bits4-0 noise clock
	ENDX                   uint8
	DirPage                uint8 // source directory page (DIR register)
	ESA                    uint8 // echo start address page
	EDL                    uint8 // echo delay, in units of 2048 bytes
	FIR                    [8]int8
	echoCursor             uint16
	noiseLFSR              uint16

	ram RAM
}

// New creates a DSP bound to the given RAM view, with the noise LFSR seeded
// to a non-zero value as required by the hardware.
func New(ram RAM) *DSP {
	return &DSP{ram: ram, noiseLFSR: 0x4000}
}

// Reset restores power-on DSP state.
func (d *DSP) Reset() {
	*d = DSP{ram: d.ram, noiseLFSR: 0x4000}
}

// gaussLike filter coefficients for BRR prediction (fixed rational, scaled by 64).
const (
	filt1Coef  = 60
	filt2CoefA = 115
	filt2CoefB = -52
	filt3CoefA = 98
	filt3CoefB = -55
)

// brrBlockSize is the number of bytes in one BRR block: 1 header + 8 data.
const brrBlockSize = 9

// decodeNextNibble advances a voice by one BRR nibble, returning the next
// sample. Called from the pitch-driven sample clock in Mix.
func (d *DSP) decodeNextNibble(v *Voice) int32 {
	if v.nibbleIdx == 0 {
		v.blockHdr = d.ram.Peek(v.blockAddr)
	}

	dataByteOffset := 1 + v.nibbleIdx/2
	dataByte := d.ram.Peek(v.blockAddr + uint16(dataByteOffset))

	var nibble uint8
	if v.nibbleIdx%2 == 0 {
		nibble = dataByte >> 4
	} else {
		nibble = dataByte & 0x0F
	}

	shiftRange := v.blockHdr >> 4
	filter := (v.blockHdr >> 2) & 0x03
	v.loopFlag = v.blockHdr&0x02 != 0
	v.endFlag = v.blockHdr&0x01 != 0

	signed := int32(int8(nibble << 4)) >> 4 // sign-extend 4-bit nibble
	var sample int32
	if shiftRange <= 12 {
		sample = (signed << shiftRange) >> 1
	} else {
		// shift ranges above 12 are documented as invalid; clamp to avoid
		// nonsense amplification.
		sample = (signed >> 1) << 11
	}

	p1, p2 := v.hist[0], v.hist[1]
	switch filter {
	case 1:
		sample += (p1 * filt1Coef) >> 6
	case 2:
		sample += (p1*filt2CoefA)>>6 + (p2*filt2CoefB)>>6
	case 3:
		sample += (p1*filt3CoefA)>>6 + (p2*filt3CoefB)>>6
	}

	if sample > 32767 {
		sample = 32767
	} else if sample < -32768 {
		sample = -32768
	}

	v.hist[1] = v.hist[0]
	v.hist[0] = sample

	v.nibbleIdx++
	if v.nibbleIdx >= 16 {
		v.nibbleIdx = 0
		v.blockAddr += brrBlockSize
		if v.endFlag {
			d.onBlockEnd(v)
		}
	}

	return sample
}

// onBlockEnd reloads the loop address from the source directory, or silences
// the voice, and sets the corresponding ENDX bit exactly once.
func (d *DSP) onBlockEnd(v *Voice) {
	voiceIdx := -1
	for i := range d.Voices {
		if &d.Voices[i] == v {
			voiceIdx = i
			break
		}
	}
	if voiceIdx >= 0 {
		d.ENDX |= 1 << uint(voiceIdx)
	}

	if v.loopFlag {
		dirEntry := uint16(d.DirPage)<<8 + uint16(v.SourceNum)*4 + 2
		lo := d.ram.Peek(dirEntry)
		hi := d.ram.Peek(dirEntry + 1)
		v.blockAddr = uint16(lo) | uint16(hi)<<8
	} else {
		v.EnvMode = EnvOff
		v.EnvValue = 0
	}
}

// KeyOnVoice starts a voice: resolves its source directory entry and resets decode state.
func (d *DSP) KeyOnVoice(i int) {
	v := &d.Voices[i]
	dirEntry := uint16(d.DirPage)<<8 + uint16(v.SourceNum)*4
	lo := d.ram.Peek(dirEntry)
	hi := d.ram.Peek(dirEntry + 1)
	v.blockAddr = uint16(lo) | uint16(hi)<<8
	v.nibbleIdx = 0
	v.hist = [2]int32{}
	v.pitchAccum = 0
	v.EnvMode = EnvAttack
	v.EnvValue = 0
	v.endFlag = false
	v.loopFlag = false
}

// KeyOffVoice begins the release envelope stage for a voice.
func (d *DSP) KeyOffVoice(i int) {
	d.Voices[i].EnvMode = EnvRelease
}

// stepEnvelope advances one voice's envelope by one sample tick.
func (d *DSP) stepEnvelope(v *Voice) {
	if v.UseADSR {
		switch v.EnvMode {
		case EnvAttack:
			rate := v.ADSR1 & 0x0F
			step := int32(32)
			if rate == 0x0F {
				step = 1024
			}
			v.EnvValue += step
			if v.EnvValue >= 0x7E0 {
				v.EnvValue = 0x7E0
				v.EnvMode = EnvDecay
			}
		case EnvDecay:
			sustainLevel := int32((v.ADSR2>>5)+1) * 0x100
			v.EnvValue -= (v.EnvValue >> 8) + 1
			if v.EnvValue <= sustainLevel {
				v.EnvValue = sustainLevel
				v.EnvMode = EnvSustain
			}
		case EnvSustain:
			v.EnvValue -= (v.EnvValue >> 8) + 1
			if v.EnvValue < 0 {
				v.EnvValue = 0
			}
		case EnvRelease:
			v.EnvValue -= 8
			if v.EnvValue <= 0 {
				v.EnvValue = 0
				v.EnvMode = EnvOff
			}
		}
	} else {
		mode := v.Gain >> 5
		target := int32(v.Gain&0x7F) * 0x10
		switch {
		case v.Gain&0x80 == 0:
			v.EnvValue = int32(v.Gain&0x7F) * 0x10
		case mode == 4: // linear decrease
			v.EnvValue -= 32
		case mode == 5: // exponential decrease
			v.EnvValue -= (v.EnvValue >> 8) + 1
		case mode == 6: // linear increase
			v.EnvValue += 32
		case mode == 7: // bent-line increase
			if v.EnvValue < 0x600 {
				v.EnvValue += 32
			} else {
				v.EnvValue += 8
			}
		default:
			v.EnvValue = target
		}
	}
	if v.EnvValue < 0 {
		v.EnvValue = 0
	}
	if v.EnvValue > 0x7FF {
		v.EnvValue = 0x7FF
	}
}

// stepNoise advances the Galois-like noise LFSR, tapped at bits 0 and 1.
func (d *DSP) stepNoise() {
	bit := (d.noiseLFSR ^ (d.noiseLFSR >> 1)) & 1
	d.noiseLFSR = (d.noiseLFSR >> 1) | (bit << 14)
}

func clampInt16(v int32) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}

// Mix produces one stereo sample pair, advancing every voice, the noise
// generator, and (if enabled) the echo unit by one sample period.
func (d *DSP) Mix() (left, right float32) {
	d.stepNoise()

	var mixL, mixR int32
	var echoInL, echoInR int32

	for i := range d.Voices {
		v := &d.Voices[i]
		if v.EnvMode == EnvOff && !v.KeyOn {
			continue
		}
		if v.KeyOn {
			d.KeyOnVoice(i)
			v.KeyOn = false
		}
		if v.KeyOff {
			d.KeyOffVoice(i)
			v.KeyOff = false
		}

		v.pitchAccum += uint32(v.Pitch)
		var decoded int32
		for v.pitchAccum >= 0x1000 {
			decoded = d.decodeNextNibble(v)
			v.pitchAccum -= 0x1000
		}

		d.stepEnvelope(v)

		sample := decoded
		if v.Noise {
			sample = int32(int16(d.noiseLFSR)) >> 1
		}
		sample = (sample * v.EnvValue) >> 11
		v.out = sample

		l := (sample * int32(v.VolL)) >> 7
		r := (sample * int32(v.VolR)) >> 7
		mixL += l
		mixR += r
		if v.Echo {
			echoInL += l
			echoInR += r
		}
	}

	if d.FLG&0x20 == 0 && d.EDL > 0 {
		el, er := d.processEcho(echoInL, echoInR)
		mixL += (el * int32(d.EchoVolL)) >> 7
		mixR += (er * int32(d.EchoVolR)) >> 7
	}

	mixL = (mixL * int32(d.MasterVolL)) >> 7
	mixR = (mixR * int32(d.MasterVolR)) >> 7

	if d.FLG&0x40 != 0 { // mute
		mixL, mixR = 0, 0
	}

	left = float32(clampInt16(mixL)) / 32768.0
	right = float32(clampInt16(mixR)) / 32768.0
	return left, right
}

// processEcho applies the 8-tap FIR to echo-buffer history, mixes in the
// voices routed to echo, writes the new pair back, and advances the cursor.
func (d *DSP) processEcho(inL, inR int32) (int32, int32) {
	base := uint16(d.ESA) << 8
	length := uint32(d.EDL) * 2048
	if length == 0 {
		return 0, 0
	}

	pos := base + d.echoCursor

	var firL, firR int32
	for i, coef := range d.FIR {
		tapPos := pos - uint16(i*4)
		tl := int32(int16(uint16(d.ram.Peek(tapPos)) | uint16(d.ram.Peek(tapPos+1))<<8))
		tr := int32(int16(uint16(d.ram.Peek(tapPos+2)) | uint16(d.ram.Peek(tapPos+3))<<8))
		firL += (tl * int32(coef)) >> 6
		firR += (tr * int32(coef)) >> 6
	}

	newL := clampInt16(firL + inL)
	newR := clampInt16(firR + inR)

	d.ram.WriteEcho(pos, uint8(newL))
	d.ram.WriteEcho(pos+1, uint8(uint16(newL)>>8))
	d.ram.WriteEcho(pos+2, uint8(newR))
	d.ram.WriteEcho(pos+3, uint8(uint16(newR)>>8))

	d.echoCursor = uint16((uint32(d.echoCursor) + 4) % length)

	return int32(newL), int32(newR)
}
