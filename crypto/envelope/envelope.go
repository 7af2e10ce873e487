// Package envelope implements hybrid public key encryption: the payload is
// sealed under a fresh symmetric key and that key is wrapped with the
// recipient's public key.
package envelope

import (
	"errors"
	"fmt"

	"go.anonvote.io/avote/crypto"
	"go.anonvote.io/avote/crypto/sealer"
	"go.anonvote.io/avote/types"
)

// ErrOpen is returned when an envelope cannot be opened, either because the
// key cannot be unwrapped or because the sealed payload does not
// authenticate.
var ErrOpen = errors.New("cannot open envelope")

// Envelope is the wire form of a hybrid encrypted payload.
type Envelope struct {
	EncryptedKey types.HexBytes `json:"encryptedKey"`
	IV           types.HexBytes `json:"iv"`
	AuthTag      types.HexBytes `json:"authTag"`
	Ciphertext   types.HexBytes `json:"ciphertext"`
}

// Seal encrypts plaintext for the holder of the private half of to.
func Seal(plaintext []byte, to crypto.Encrypter) (*Envelope, error) {
	key, err := sealer.NewKey()
	if err != nil {
		return nil, err
	}
	sealed, err := sealer.Seal(plaintext, key)
	if err != nil {
		return nil, err
	}
	wrapped, err := to.Encrypt(key)
	if err != nil {
		return nil, fmt.Errorf("cannot wrap key: %w", err)
	}
	return &Envelope{
		EncryptedKey: wrapped,
		IV:           sealed.IV,
		AuthTag:      sealed.AuthTag,
		Ciphertext:   sealed.Ciphertext,
	}, nil
}

// Open unwraps the symmetric key with with and opens the payload.
func Open(env *Envelope, with crypto.Cipher) ([]byte, error) {
	if env == nil || len(env.EncryptedKey) == 0 {
		return nil, fmt.Errorf("%w: missing encrypted key", ErrOpen)
	}
	key, err := with.Decrypt(env.EncryptedKey)
	if err != nil {
		return nil, fmt.Errorf("%w: unwrap key: %v", ErrOpen, err)
	}
	plaintext, err := sealer.Open(&sealer.Sealed{
		Ciphertext: env.Ciphertext,
		IV:         env.IV,
		AuthTag:    env.AuthTag,
	}, key)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpen, err)
	}
	return plaintext, nil
}
