// Package sealer implements authenticated symmetric encryption of small
// secrets (private keys, tokens, ballots) with ChaCha20-Poly1305.
//
// Every Seal call draws a fresh random 96-bit IV; IVs are never derived from
// the content. The 128-bit authentication tag is kept apart from the
// ciphertext so sealed values can be stored as {ciphertext, iv, authTag}.
package sealer

import (
	cryptorand "crypto/rand"
	"errors"
	"fmt"
	"io"

	"go.anonvote.io/avote/types"
	"golang.org/x/crypto/chacha20poly1305"
)

const (
	// KeySize is the required symmetric key size.
	KeySize = chacha20poly1305.KeySize
	// IVSize is the size of the random nonce.
	IVSize = chacha20poly1305.NonceSize
	// TagSize is the size of the authentication tag.
	TagSize = chacha20poly1305.Overhead
)

var (
	// ErrAuthentication is returned when a sealed value does not verify:
	// the ciphertext, IV or tag were modified, or the key is wrong.
	ErrAuthentication = errors.New("authentication failed")
	// ErrInvalidKey is returned for keys of the wrong size.
	ErrInvalidKey = fmt.Errorf("invalid key: must be %d bytes", KeySize)
)

// Sealed is the output of Seal.
type Sealed struct {
	Ciphertext types.HexBytes `json:"ciphertext"`
	IV         types.HexBytes `json:"iv"`
	AuthTag    types.HexBytes `json:"authTag"`
}

// NewKey returns a random KeySize key.
func NewKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(cryptorand.Reader, key); err != nil {
		return nil, err
	}
	return key, nil
}

// Seal encrypts and authenticates plaintext under key.
func Seal(plaintext, key []byte) (*Sealed, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKey
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	iv := make([]byte, IVSize)
	if _, err := io.ReadFull(cryptorand.Reader, iv); err != nil {
		return nil, fmt.Errorf("cannot read iv: %w", err)
	}
	out := aead.Seal(nil, iv, plaintext, nil)
	split := len(out) - TagSize
	return &Sealed{
		Ciphertext: out[:split:split],
		IV:         iv,
		AuthTag:    out[split:],
	}, nil
}

// Open verifies and decrypts s with key. Any mismatch is reported as
// ErrAuthentication and no plaintext is returned.
func Open(s *Sealed, key []byte) ([]byte, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKey
	}
	if s == nil || len(s.IV) != IVSize || len(s.AuthTag) != TagSize {
		return nil, fmt.Errorf("%w: malformed sealed value", ErrAuthentication)
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	in := make([]byte, 0, len(s.Ciphertext)+TagSize)
	in = append(in, s.Ciphertext...)
	in = append(in, s.AuthTag...)
	plaintext, err := aead.Open(nil, s.IV, in, nil)
	if err != nil {
		return nil, ErrAuthentication
	}
	return plaintext, nil
}
