// Package savestate implements a tagged-concatenation codec for snapshotting
// every subsystem's mutable state into a single portable blob.
package savestate

import (
	"bytes"
	"encoding/binary"
	"errors"
)

const magic uint32 = 0x534E4553 // "SNES"
const version uint16 = 1

// Tag identifies which subsystem a length-prefixed blob belongs to.
type Tag uint8

const (
	TagCPU Tag = iota
	TagWRAM
	TagPPU
	TagAPU
	TagDSP
	TagSRAM
	TagDMA
	TagCoproc
)

// State is the in-memory form of a save state: one byte blob per subsystem.
type State struct {
	Blobs map[Tag][]byte
}

// NewState creates an empty state ready to have blobs attached.
func NewState() *State {
	return &State{Blobs: make(map[Tag][]byte)}
}

// Set attaches a subsystem's serialized bytes to the state.
func (s *State) Set(tag Tag, data []byte) {
	cp := make([]byte, len(data))
	copy(cp, data)
	s.Blobs[tag] = cp
}

// Get returns a subsystem's blob, or nil if absent (truncated/older state).
func (s *State) Get(tag Tag) []byte { return s.Blobs[tag] }

// Save encodes the state as header + magic + version + one
// length-prefixed blob per tag, in ascending tag order for determinism.
func Save(s *State) []byte {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, magic)
	binary.Write(&buf, binary.LittleEndian, version)
	binary.Write(&buf, binary.LittleEndian, uint16(len(s.Blobs)))

	for tag := TagCPU; tag <= TagCoproc; tag++ {
		data, ok := s.Blobs[tag]
		if !ok {
			continue
		}
		buf.WriteByte(uint8(tag))
		binary.Write(&buf, binary.LittleEndian, uint32(len(data)))
		buf.Write(data)
	}
	return buf.Bytes()
}

// Load decodes a save-state blob. Truncated trailing blobs are tolerated:
// a subsystem missing from the stream is simply absent from the result, and
// callers are expected to zero-fill on restore rather than fail outright.
func Load(data []byte) (*State, error) {
	buf := bytes.NewReader(data)

	var gotMagic uint32
	if err := binary.Read(buf, binary.LittleEndian, &gotMagic); err != nil {
		return nil, errors.New("savestate: corrupt save state")
	}
	if gotMagic != magic {
		return nil, errors.New("savestate: corrupt save state")
	}

	var gotVersion uint16
	if err := binary.Read(buf, binary.LittleEndian, &gotVersion); err != nil {
		return nil, errors.New("savestate: corrupt save state")
	}
	if gotVersion > version {
		return nil, errors.New("savestate: corrupt save state")
	}

	var count uint16
	binary.Read(buf, binary.LittleEndian, &count)

	s := NewState()
	for i := uint16(0); i < count; i++ {
		tagByte, err := buf.ReadByte()
		if err != nil {
			break // truncated: stop, keep what decoded so far
		}
		var length uint32
		if err := binary.Read(buf, binary.LittleEndian, &length); err != nil {
			break
		}
		blob := make([]byte, length)
		n, _ := buf.Read(blob)
		if n < int(length) {
			// Partial blob: zero-fill the remainder per the tolerance rule.
			for i := n; i < int(length); i++ {
				blob[i] = 0
			}
		}
		s.Blobs[Tag(tagByte)] = blob
	}
	return s, nil
}
