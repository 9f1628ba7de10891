package transport

import (
	"crypto"
	"crypto/ed25519"
	"io"

	"github.com/teleportd/teleport/identity"
)

// ed25519Signer adapts identity.PrivateKey to the crypto.Signer shape
// x509.CreateCertificate requires, without giving the identity package
// a dependency on crypto/x509. x509.CreateCertificate type-switches on
// the concrete public key type, so Public() returns a bare
// ed25519.PublicKey rather than an identity-defined wrapper.
type ed25519Signer struct {
	key identity.PrivateKey
}

func (s ed25519Signer) Public() crypto.PublicKey {
	pub := s.key.Public()
	return ed25519.PublicKey(pub[:])
}

func (s ed25519Signer) Sign(_ io.Reader, message []byte, _ crypto.SignerOpts) ([]byte, error) {
	return s.key.Sign(message), nil
}

func ed25519PublicKey(id identity.EndpointId) ed25519.PublicKey {
	return ed25519.PublicKey(id[:])
}
