package domain

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// AddressLength is the byte length of an account identifier.
const AddressLength = 20

// Address identifies an account on the simulated ledger.
type Address [AddressLength]byte

// ZeroAddress is the null account used for mint and burn endpoints.
var ZeroAddress Address

// ParseAddress decodes a 0x-prefixed or bare hex string into an Address.
func ParseAddress(s string) (Address, error) {
	var a Address
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	if len(s) != AddressLength*2 {
		return a, fmt.Errorf("parse address %q: want %d hex chars, got %d", s, AddressLength*2, len(s))
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return a, fmt.Errorf("parse address %q: %w", s, err)
	}
	copy(a[:], b)
	return a, nil
}

// MustParseAddress is ParseAddress that panics on error. For fixtures and tests.
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

// Hex returns the 0x-prefixed lowercase hex form.
func (a Address) Hex() string {
	return "0x" + hex.EncodeToString(a[:])
}

// IsZero reports whether a is the null account.
func (a Address) IsZero() bool {
	return a == ZeroAddress
}

// String implements fmt.Stringer.
func (a Address) String() string {
	return a.Hex()
}

// MarshalText implements encoding.TextMarshaler so addresses round-trip
// through JSON scenario files as hex strings.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.Hex()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
