package models

import (
	"fmt"
	"strings"
)

// EntityIDSize is the length in bytes of an AVDECC entity identifier.
const EntityIDSize = 8

// EntityID is a 64-bit AVDECC entity identifier, stored as raw bytes.
// The text form is eight two-digit hex groups joined by ':'.
type EntityID [EntityIDSize]byte

func hexValue(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10
	}
	return -1
}

// ParseEntityID decodes an identifier such as "AA:BB:CC:DD:EE:FF:00:11".
// Hex digits may be either case. Anything after the eighth byte must be
// whitespace, which lets callers pass a line with its newline still attached.
func ParseEntityID(s string) (EntityID, error) {
	var id EntityID
	pos := 0
	for i := 0; i < EntityIDSize; i++ {
		if pos+2 > len(s) {
			return EntityID{}, fmt.Errorf("%w: entity id %q: short input", ErrParse, s)
		}
		hi, lo := hexValue(s[pos]), hexValue(s[pos+1])
		if hi < 0 || lo < 0 {
			return EntityID{}, fmt.Errorf("%w: entity id %q: bad hex digit at offset %d", ErrParse, s, pos)
		}
		id[i] = byte(hi<<4 | lo)
		pos += 2

		if i < EntityIDSize-1 {
			if pos >= len(s) || s[pos] != ':' {
				return EntityID{}, fmt.Errorf("%w: entity id %q: missing separator at offset %d", ErrParse, s, pos)
			}
			pos++
		}
	}
	if strings.TrimSpace(s[pos:]) != "" {
		return EntityID{}, fmt.Errorf("%w: entity id %q: trailing data", ErrParse, s)
	}
	return id, nil
}

// MustParseEntityID is like ParseEntityID but panics on error.
// Intended for tests and constant tables.
func MustParseEntityID(s string) EntityID {
	id, err := ParseEntityID(s)
	if err != nil {
		panic(err)
	}
	return id
}

// String returns the canonical uppercase form.
func (id EntityID) String() string {
	return fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X:%02X:%02X",
		id[0], id[1], id[2], id[3], id[4], id[5], id[6], id[7])
}

// IsZero reports whether every byte of the identifier is zero.
func (id EntityID) IsZero() bool {
	return id == EntityID{}
}

func (id EntityID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *EntityID) UnmarshalText(text []byte) error {
	parsed, err := ParseEntityID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
