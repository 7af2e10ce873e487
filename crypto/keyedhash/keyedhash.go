// Package keyedhash computes the anonymous correlation hashes (tokenHash,
// publicKeyHash) shared by the credential issuer and the tally engine.
package keyedhash

import (
	"fmt"

	"go.anonvote.io/avote/crypto"
	"go.anonvote.io/avote/types"
	"golang.org/x/crypto/blake2b"
)

// MaxSecretSize is the largest key accepted by keyed BLAKE2b.
const MaxSecretSize = 64

// Hasher is a keyed BLAKE2b-256 hasher. It is safe for concurrent use.
type Hasher struct {
	secret []byte
}

// New returns a Hasher keyed with secret. The secret must be between
// types.KeyedHashSecretMinSize and MaxSecretSize bytes.
func New(secret []byte) (*Hasher, error) {
	if len(secret) < types.KeyedHashSecretMinSize || len(secret) > MaxSecretSize {
		return nil, fmt.Errorf("keyed hash secret must be %d to %d bytes, got %d",
			types.KeyedHashSecretMinSize, MaxSecretSize, len(secret))
	}
	return &Hasher{secret: append([]byte(nil), secret...)}, nil
}

// Sum returns the 32-byte keyed hash of data.
func (h *Hasher) Sum(data []byte) types.HexBytes {
	mac, err := blake2b.New256(h.secret)
	if err != nil {
		// unreachable: key size is checked by New
		panic(err)
	}
	mac.Write(data)
	return mac.Sum(nil)
}

var _ crypto.Hasher = (*Hasher)(nil)
