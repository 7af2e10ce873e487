package election

import (
	"context"
	"errors"
	"fmt"

	"go.anonvote.io/avote/crypto/kdf"
	"go.anonvote.io/avote/crypto/rsakey"
	"go.anonvote.io/avote/crypto/sealer"
)

// ErrDecryption is returned when the commission private key cannot be
// unsealed, usually because of a wrong election password.
var ErrDecryption = errors.New("cannot decrypt election key")

// KeyMaterial is the commission keypair of an election. The private key is
// only ever held sealed under a key derived from the election password.
type KeyMaterial struct {
	PublicKey  []byte               `json:"publicKey"`
	PrivateKey *sealer.SealedSecret `json:"privateKey"`
}

// NewKeyMaterial generates a commission keypair of the given size and seals
// its private key under password.
func NewKeyMaterial(ctx context.Context, password string, bits int, params kdf.Params) (*KeyMaterial, error) {
	keys, err := rsakey.Generate(bits)
	if err != nil {
		return nil, err
	}
	pub, err := keys.PublicKeyPEM()
	if err != nil {
		return nil, err
	}
	priv, err := keys.PrivateKeyPEM()
	if err != nil {
		return nil, err
	}
	sealed, err := sealer.SealWithPassword(ctx, priv, password, params)
	if err != nil {
		return nil, fmt.Errorf("cannot seal election key: %w", err)
	}
	return &KeyMaterial{PublicKey: pub, PrivateKey: sealed}, nil
}

// Public parses the commission public key.
func (k *KeyMaterial) Public() (*rsakey.PublicKey, error) {
	return rsakey.ParsePublicKeyPEM(k.PublicKey)
}

// Unlock derives the sealing key from password and unseals the commission
// private key. Any failure is reported as ErrDecryption.
func (k *KeyMaterial) Unlock(ctx context.Context, password string) (*rsakey.KeyPair, error) {
	if k == nil || k.PrivateKey == nil {
		return nil, fmt.Errorf("%w: no key material", ErrDecryption)
	}
	priv, err := sealer.OpenWithPassword(ctx, k.PrivateKey, password)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecryption, err)
	}
	keys, err := rsakey.ParsePrivateKeyPEM(priv)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecryption, err)
	}
	return keys, nil
}
