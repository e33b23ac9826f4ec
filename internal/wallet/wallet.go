// Package wallet provides secp256k1 key pairs for signing transaction text.
// Signatures are informational only: the ledger never checks them.
package wallet

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

// ErrInvalidKey is returned when a hex-encoded key cannot be decoded.
var ErrInvalidKey = errors.New("invalid key")

// Wallet holds a private key and its public key.
type Wallet struct {
	PrivateKey *secp256k1.PrivateKey
	PublicKey  *secp256k1.PublicKey
}

// New generates a fresh random key pair.
func New() (*Wallet, error) {
	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return &Wallet{PrivateKey: priv, PublicKey: priv.PubKey()}, nil
}

// FromHex restores a wallet from a 32-byte hex-encoded private key.
func FromHex(privHex string) (*Wallet, error) {
	raw, err := hex.DecodeString(privHex)
	if err != nil || len(raw) != secp256k1.PrivKeyBytesLen {
		return nil, fmt.Errorf("private key: %w", ErrInvalidKey)
	}
	priv := secp256k1.PrivKeyFromBytes(raw)
	return &Wallet{PrivateKey: priv, PublicKey: priv.PubKey()}, nil
}

// PrivateKeyHex returns the private key as hex.
func (w *Wallet) PrivateKeyHex() string {
	return hex.EncodeToString(w.PrivateKey.Serialize())
}

// PublicKeyHex returns the compressed public key as hex.
func (w *Wallet) PublicKeyHex() string {
	return hex.EncodeToString(w.PublicKey.SerializeCompressed())
}

// Sign returns the DER-encoded ECDSA signature over SHA-256(message).
func (w *Wallet) Sign(message []byte) []byte {
	digest := sha256.Sum256(message)
	return ecdsa.Sign(w.PrivateKey, digest[:]).Serialize()
}

// Verify checks a DER signature produced by Sign against a hex-encoded
// compressed or uncompressed public key.
func Verify(pubHex string, message, sig []byte) (bool, error) {
	rawPub, err := hex.DecodeString(pubHex)
	if err != nil {
		return false, fmt.Errorf("public key: %w", ErrInvalidKey)
	}
	pub, err := secp256k1.ParsePubKey(rawPub)
	if err != nil {
		return false, fmt.Errorf("public key: %w", ErrInvalidKey)
	}
	parsed, err := ecdsa.ParseDERSignature(sig)
	if err != nil {
		return false, fmt.Errorf("parse signature: %w", err)
	}
	digest := sha256.Sum256(message)
	return parsed.Verify(digest[:], pub), nil
}
