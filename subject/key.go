// Package subject holds the per-owner privacy ledger state and the
// cryptographic identity it is keyed by.
//
// A Key is the verify key of the party whose privacy budget is charged.
// A Ledger records, for that key, the accumulated RDP constant of every
// data subject that party has released information about.
package subject

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
)

// KeySize is the byte length of a verify key (an ed25519 public key).
const KeySize = ed25519.PublicKeySize

// Key is a verify key identifying whose budget a ledger charges.
// It is comparable and usable as a map key.
type Key [KeySize]byte

// NilKey is the zero-value Key.
var NilKey Key

// KeyFromBytes builds a Key from raw verify-key bytes.
func KeyFromBytes(b []byte) (Key, error) {
	if len(b) != KeySize {
		return NilKey, fmt.Errorf("subject: verify key must be %d bytes, got %d", KeySize, len(b))
	}
	var k Key
	copy(k[:], b)
	return k, nil
}

// KeyFromVerifyKey builds a Key from an ed25519 public key.
func KeyFromVerifyKey(pub ed25519.PublicKey) (Key, error) {
	return KeyFromBytes(pub)
}

// ParseKey parses the hex form produced by String.
func ParseKey(s string) (Key, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return NilKey, fmt.Errorf("subject: parse key %q: %w", s, err)
	}
	return KeyFromBytes(b)
}

// MustParseKey is like ParseKey but panics on error. Use for hardcoded keys.
func MustParseKey(s string) Key {
	k, err := ParseKey(s)
	if err != nil {
		panic(fmt.Sprintf("subject: must parse key %q: %v", s, err))
	}
	return k
}

// String returns the lowercase hex encoding of the key.
func (k Key) String() string {
	return hex.EncodeToString(k[:])
}

// Bytes returns a copy of the raw key bytes.
func (k Key) Bytes() []byte {
	b := make([]byte, KeySize)
	copy(b, k[:])
	return b
}

// IsNil reports whether this key is the zero value.
func (k Key) IsNil() bool {
	return k == NilKey
}

// MarshalText implements encoding.TextMarshaler.
func (k Key) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Key) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*k = NilKey
		return nil
	}
	parsed, err := ParseKey(string(data))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
