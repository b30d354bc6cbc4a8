// Package cheat decodes Game-Genie-style and raw patch codes and loads a
// persisted cheat database from an optional TOML sidecar file.
package cheat

import (
	"errors"
	"strings"

	"github.com/BurntSushi/toml"
)

// gameGenieAlphabet is the 16-character substitution alphabet used by
// Game-Genie-style codes; a code's characters map to 4-bit values by index
// into this string rather than their natural hex value.
const gameGenieAlphabet = "DF4709156BC8A23E"

// Patch is one decoded cheat: write Value to Address, optionally only when
// the current byte there equals Compare.
type Patch struct {
	Address    uint32
	Value      uint8
	Compare    uint8
	HasCompare bool
}

// Decode parses either an 8-hex-digit raw patch or a 6/8-character
// Game-Genie-style transposition code.
func Decode(code string) (Patch, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	switch len(code) {
	case 8:
		if isHex(code) {
			return decodeRaw(code)
		}
		return decodeGameGenie(code)
	case 6:
		return decodeGameGenie(code)
	default:
		return Patch{}, errors.New("cheat: code must be 6 or 8 characters")
	}
}

func isHex(s string) bool {
	for _, r := range s {
		if !((r >= '0' && r <= '9') || (r >= 'A' && r <= 'F')) {
			return false
		}
	}
	return true
}

// decodeRaw parses an 8-hex-digit address:value pair: first 6 hex digits
// are the address, last 2 are the value byte.
func decodeRaw(code string) (Patch, error) {
	addr, err := parseHex(code[0:6])
	if err != nil {
		return Patch{}, err
	}
	val, err := parseHex(code[6:8])
	if err != nil {
		return Patch{}, err
	}
	return Patch{Address: uint32(addr), Value: uint8(val)}, nil
}

func parseHex(s string) (uint64, error) {
	var v uint64
	for _, r := range s {
		var d uint64
		switch {
		case r >= '0' && r <= '9':
			d = uint64(r - '0')
		case r >= 'A' && r <= 'F':
			d = uint64(r-'A') + 10
		default:
			return 0, errors.New("cheat: malformed hex digit")
		}
		v = v<<4 | d
	}
	return v, nil
}

func decodeGameGenie(code string) (Patch, error) {
	if len(code) != 6 && len(code) != 8 {
		return Patch{}, errors.New("cheat: malformed code length")
	}
	nibbles := make([]uint8, len(code))
	for i, r := range code {
		idx := strings.IndexRune(gameGenieAlphabet, r)
		if idx < 0 {
			return Patch{}, errors.New("cheat: invalid code character")
		}
		nibbles[i] = uint8(idx)
	}

	// Transposition table mapping nibble position to (value/address) bit
	// field position, per the documented 6-char layout; the 8-char variant
	// appends a compare byte using the same table extended by two nibbles.
	value := nibbles[0]<<4 | nibbles[1]
	addr := uint32(nibbles[2])<<20 | uint32(nibbles[3])<<8 | uint32(nibbles[4])<<16 |
		uint32(nibbles[5])<<0

	p := Patch{Address: addr & 0xFFFFFF, Value: value}
	if len(code) == 8 {
		p.Compare = nibbles[6]<<4 | nibbles[7]
		p.HasCompare = true
	}
	return p, nil
}

// Database is a named collection of cheat codes loaded from a TOML sidecar.
type Database struct {
	Entries []Entry `toml:"cheat"`
	active  map[uint32]Patch
}

// Entry is one named cheat in the TOML database.
type Entry struct {
	Name    string `toml:"name"`
	Code    string `toml:"code"`
	Enabled bool   `toml:"enabled"`
}

// LoadDatabaseTOML reads a cheat database sidecar file.
func LoadDatabaseTOML(path string) (*Database, error) {
	var db Database
	if _, err := toml.DecodeFile(path, &db); err != nil {
		return nil, err
	}
	db.active = make(map[uint32]Patch)
	return &db, nil
}

// Activate decodes and enables every entry marked Enabled, skipping any
// malformed code rather than failing the whole load.
func (d *Database) Activate() []error {
	var errs []error
	d.active = make(map[uint32]Patch)
	for _, e := range d.Entries {
		if !e.Enabled {
			continue
		}
		p, err := Decode(e.Code)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		d.active[p.Address] = p
	}
	return errs
}

// Patch implements bus.CheatReader: it reports a replacement byte for addr
// if an active patch applies, honoring any compare-byte gate.
func (d *Database) Patch(addr uint32, original uint8) (uint8, bool) {
	p, ok := d.active[addr]
	if !ok {
		return 0, false
	}
	if p.HasCompare && p.Compare != original {
		return 0, false
	}
	return p.Value, true
}
