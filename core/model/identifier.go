package model

import (
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	// AddressLength is the width of instance, factory and owner identifiers.
	AddressLength = 20
	// HashLength is the width of digests, user identifiers and salts.
	HashLength = 32
)

// Address identifies a deployed instance, the factory, the controller or an owner.
type Address [AddressLength]byte

// Hash is a keccak256 digest.
type Hash [HashLength]byte

// UserID is the opaque registry key naming a platform user.
type UserID [HashLength]byte

// Salt is chosen by the controller for each creation call.
type Salt [HashLength]byte

// ParseAddress decodes a 0x-prefixed or bare hex string of exactly 20 bytes.
func ParseAddress(s string) (Address, error) {
	var a Address
	err := decodeFixed("address", s, a[:])
	return a, err
}

// ParseHash decodes a 32-byte hex digest.
func ParseHash(s string) (Hash, error) {
	var h Hash
	err := decodeFixed("hash", s, h[:])
	return h, err
}

// ParseUserID decodes a 32-byte hex user identifier.
func ParseUserID(s string) (UserID, error) {
	var u UserID
	err := decodeFixed("user id", s, u[:])
	return u, err
}

// ParseSalt decodes a 32-byte hex salt.
func ParseSalt(s string) (Salt, error) {
	var v Salt
	err := decodeFixed("salt", s, v[:])
	return v, err
}

func decodeFixed(kind, s string, dst []byte) error {
	raw := strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(s), "0x"), "0X")
	b, err := hex.DecodeString(raw)
	if err != nil {
		return fmt.Errorf("%w: parsing %s: %v", ErrInvalidInput, kind, err)
	}
	if len(b) != len(dst) {
		return fmt.Errorf("%w: %s is %d bytes, want %d", ErrInvalidInput, kind, len(b), len(dst))
	}
	copy(dst, b)
	return nil
}

func encodeHex(b []byte) string { return "0x" + hex.EncodeToString(b) }

func (a Address) String() string { return encodeHex(a[:]) }
func (h Hash) String() string    { return encodeHex(h[:]) }
func (u UserID) String() string  { return encodeHex(u[:]) }
func (s Salt) String() string    { return encodeHex(s[:]) }

// IsZero reports whether the address is all zero bytes.
func (a Address) IsZero() bool { return a == Address{} }

// Bytes returns a copy of the address bytes.
func (a Address) Bytes() []byte { return append([]byte(nil), a[:]...) }

// MarshalText implements encoding.TextMarshaler.
func (a Address) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(b []byte) error { return decodeFixed("address", string(b), a[:]) }

func (h Hash) MarshalText() ([]byte, error)    { return []byte(h.String()), nil }
func (h *Hash) UnmarshalText(b []byte) error   { return decodeFixed("hash", string(b), h[:]) }
func (u UserID) MarshalText() ([]byte, error)  { return []byte(u.String()), nil }
func (u *UserID) UnmarshalText(b []byte) error { return decodeFixed("user id", string(b), u[:]) }
func (s Salt) MarshalText() ([]byte, error)    { return []byte(s.String()), nil }
func (s *Salt) UnmarshalText(b []byte) error   { return decodeFixed("salt", string(b), s[:]) }

// SaltFromUint64 returns the big-endian 32-byte encoding of n.
func SaltFromUint64(n uint64) Salt {
	var s Salt
	for i := 0; i < 8; i++ {
		s[HashLength-1-i] = byte(n >> (8 * i))
	}
	return s
}
