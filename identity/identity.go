// Package identity implements the PeerIdentity primitive: an RSA-2048
// keypair whose PEM SubjectPublicKeyInfo encoding doubles as the peer's
// stable network identifier.
package identity

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
)

// KeyBits is the RSA modulus size mandated for peer identities.
const KeyBits = 2048

// Identity holds a peer's asymmetric keypair.
type Identity struct {
	Private *rsa.PrivateKey
	Public  *rsa.PublicKey
}

// Generate creates a fresh RSA-2048 keypair for a newly-started peer.
func Generate() (Identity, error) {
	priv, err := rsa.GenerateKey(rand.Reader, KeyBits)
	if err != nil {
		return Identity{}, fmt.Errorf("generating peer identity: %w", err)
	}

	return Identity{Private: priv, Public: &priv.PublicKey}, nil
}

// PeerID returns the PEM SubjectPublicKeyInfo encoding of the public key.
// This byte string is the stable identifier used everywhere a
// PeerIdentity is required: the directory table key, a transaction's
// sender field, and the key that picks out a peer's own transactions
// for re-queueing after a fork.
func (id Identity) PeerID() (string, error) {
	return EncodePublicKey(id.Public)
}

// EncodePublicKey PEM-encodes a public key as SubjectPublicKeyInfo.
func EncodePublicKey(pub *rsa.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", fmt.Errorf("marshaling public key: %w", err)
	}

	block := &pem.Block{Type: "PUBLIC KEY", Bytes: der}
	return string(pem.EncodeToMemory(block)), nil
}

// DecodePublicKey parses a PEM SubjectPublicKeyInfo string back into an
// RSA public key. Any malformed input is reported as an error rather than
// panicking, since this routinely runs on attacker-controlled bytes that
// arrived over the wire as a transaction's sender field.
func DecodePublicKey(pemStr string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(pemStr))
	if block == nil {
		return nil, fmt.Errorf("no PEM block found in sender key")
	}

	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parsing public key: %w", err)
	}

	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("sender key is not an RSA public key")
	}

	return rsaPub, nil
}
