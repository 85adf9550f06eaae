package chain

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/xytuang/pollchain/identity"
)

// Transaction is a single application record signed by the peer that
// owns its Sender identity. Once Signature is set it must verify against
// Sender over the canonical encoding of (Sender, Timestamp, Data).
type Transaction struct {
	Sender    string  `json:"sender"`
	Timestamp float64 `json:"timestamp"`
	Data      Payload `json:"data"`
	Signature string  `json:"signature"`
}

// signableFields returns the field map used both for signing and for
// verifying; it deliberately excludes Signature.
func (tx Transaction) signableFields() map[string]interface{} {
	data := map[string]interface{}{}
	if tx.Data != nil {
		data = tx.Data.ToMap()
	}

	return map[string]interface{}{
		"sender":    tx.Sender,
		"timestamp": tx.Timestamp,
		"data":      data,
	}
}

// SignableBytes returns the canonical JSON bytes a signature is computed
// over (or verified against).
func (tx Transaction) SignableBytes() ([]byte, error) {
	return canonicalJSON(tx.signableFields())
}

// Sign sets tx.Signature to the PSS-SHA256 signature of the signable
// bytes using priv. Calling Sign again with the same private key after a
// successful call is idempotent: the signable bytes haven't changed, so
// the resulting signature is the same modulo PSS's randomized salt.
func (tx *Transaction) Sign(priv *rsa.PrivateKey) error {
	msg, err := tx.SignableBytes()
	if err != nil {
		return fmt.Errorf("encoding transaction for signing: %w", err)
	}

	digest := sha256.Sum256(msg)

	sig, err := rsa.SignPSS(rand.Reader, priv, crypto.SHA256, digest[:], &rsa.PSSOptions{
		SaltLength: rsa.PSSSaltLengthAuto,
		Hash:       crypto.SHA256,
	})
	if err != nil {
		return fmt.Errorf("signing transaction: %w", err)
	}

	tx.Signature = hex.EncodeToString(sig)

	return nil
}

// Verify reports whether tx.Signature validates against tx.Sender over
// the signable encoding. Any failure along the way — a malformed sender
// key, a missing or malformed signature, or a genuine mismatch — is
// reported as false, never as an error or a panic.
func (tx Transaction) Verify() bool {
	if tx.Signature == "" {
		return false
	}

	pub, err := identity.DecodePublicKey(tx.Sender)
	if err != nil {
		return false
	}

	sig, err := hex.DecodeString(tx.Signature)
	if err != nil {
		return false
	}

	msg, err := tx.SignableBytes()
	if err != nil {
		return false
	}

	digest := sha256.Sum256(msg)

	err = rsa.VerifyPSS(pub, crypto.SHA256, digest[:], sig, &rsa.PSSOptions{
		SaltLength: rsa.PSSSaltLengthAuto,
		Hash:       crypto.SHA256,
	})

	return err == nil
}

// Hash is a content hash of the fully-signed transaction, signature
// included. It is not part of the block hash derivation, which
// re-encodes every transaction inline.
func (tx Transaction) Hash() (string, error) {
	fields := tx.signableFields()
	fields["signature"] = tx.Signature

	b, err := canonicalJSON(fields)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// wireFields is the field map used when a transaction is embedded inside
// a block's canonical encoding: identical to signableFields but with the
// signature included, per spec.
func (tx Transaction) wireFields() map[string]interface{} {
	fields := tx.signableFields()
	fields["signature"] = tx.Signature
	return fields
}
