// Package identity holds the device's long-lived keypair and the
// EndpointId derived from it.
//
// The key shape mirrors golang.zx2c4.com/wireguard/device's
// NoisePublicKey/NoisePrivateKey: a fixed-size byte array with
// hex (de)serialization. Ed25519 is used instead of a bare
// Curve25519 DH key because EndpointId must double as a stable,
// globally-unique identifier, which a signature-capable key supports
// more naturally than a DH-only key.
package identity

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
)

// EndpointId is the stable public identifier of a device, derived
// from its Ed25519 public key.
type EndpointId [ed25519.PublicKeySize]byte

// PrivateKey is a device's long-lived Ed25519 private key.
type PrivateKey [ed25519.PrivateKeySize]byte

// ErrZeroKey is returned when an operation is attempted on an
// all-zero (uninitialized) key.
var ErrZeroKey = errors.New("identity: zero key")

// Generate creates a new random identity keypair.
func Generate() (PrivateKey, error) {
	var sk PrivateKey
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return sk, fmt.Errorf("identity: generate key: %w", err)
	}
	copy(sk[:], priv)
	return sk, nil
}

// Public returns the EndpointId derived from this private key.
func (k PrivateKey) Public() EndpointId {
	var id EndpointId
	pub := ed25519.PrivateKey(k[:]).Public().(ed25519.PublicKey)
	copy(id[:], pub)
	return id
}

// IsZero reports whether the key is the zero value.
func (k PrivateKey) IsZero() bool {
	var zero PrivateKey
	return subtle.ConstantTimeCompare(k[:], zero[:]) == 1
}

// Sign signs a message with the private key.
func (k PrivateKey) Sign(message []byte) []byte {
	return ed25519.Sign(ed25519.PrivateKey(k[:]), message)
}

// ToHex returns the hex encoding of the private key, for persistence.
func (k PrivateKey) ToHex() string {
	return hex.EncodeToString(k[:])
}

// PrivateKeyFromHex parses a hex-encoded private key.
func PrivateKeyFromHex(s string) (PrivateKey, error) {
	var k PrivateKey
	b, err := hex.DecodeString(s)
	if err != nil {
		return k, fmt.Errorf("identity: decode private key: %w", err)
	}
	if len(b) != len(k) {
		return k, fmt.Errorf("identity: private key has wrong length %d", len(b))
	}
	copy(k[:], b)
	return k, nil
}

// MarshalText implements encoding.TextMarshaler so a PrivateKey can be
// written directly as a TOML string by the Config Store.
func (k PrivateKey) MarshalText() ([]byte, error) {
	return []byte(k.ToHex()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *PrivateKey) UnmarshalText(text []byte) error {
	parsed, err := PrivateKeyFromHex(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ToHex returns the hex encoding of the endpoint id.
func (id EndpointId) ToHex() string {
	return hex.EncodeToString(id[:])
}

// String implements fmt.Stringer with an abbreviated form, matching
// WireGuard-go's Peer.String() abbreviated-key convention.
func (id EndpointId) String() string {
	full := id.ToHex()
	if len(full) <= 12 {
		return full
	}
	return full[:6] + "…" + full[len(full)-6:]
}

// Equals does a constant-time comparison of two endpoint ids.
func (id EndpointId) Equals(other EndpointId) bool {
	return subtle.ConstantTimeCompare(id[:], other[:]) == 1
}

// IsZero reports whether the id is the zero value.
func (id EndpointId) IsZero() bool {
	var zero EndpointId
	return id.Equals(zero)
}

// EndpointIdFromHex parses a hex-encoded endpoint id.
func EndpointIdFromHex(s string) (EndpointId, error) {
	var id EndpointId
	b, err := hex.DecodeString(s)
	if err != nil {
		return id, fmt.Errorf("identity: decode endpoint id: %w", err)
	}
	if len(b) != len(id) {
		return id, fmt.Errorf("identity: endpoint id has wrong length %d", len(b))
	}
	copy(id[:], b)
	return id, nil
}

// MarshalText implements encoding.TextMarshaler so an EndpointId can
// be written directly as a TOML string by the Config Store.
func (id EndpointId) MarshalText() ([]byte, error) {
	return []byte(id.ToHex()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *EndpointId) UnmarshalText(text []byte) error {
	parsed, err := EndpointIdFromHex(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// Verify checks a signature made by the holder of id over message.
func Verify(id EndpointId, message, signature []byte) bool {
	return ed25519.Verify(ed25519.PublicKey(id[:]), message, signature)
}
