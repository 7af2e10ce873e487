package sealer

import (
	"context"
	"fmt"

	"go.anonvote.io/avote/crypto/kdf"
	"go.anonvote.io/avote/types"
)

// KDFHeader records how the sealing key of a SealedSecret was derived.
type KDFHeader struct {
	Algo string `json:"algo"`
	kdf.Params
	Salt types.HexBytes `json:"salt"`
}

// SealedSecret is a secret sealed under a password-derived key. Each secret
// carries its own salt, IV and tag.
type SealedSecret struct {
	KDF KDFHeader `json:"kdf"`
	Sealed
}

// SealWithPassword derives a key from password with a fresh salt and seals
// plaintext under it.
func SealWithPassword(ctx context.Context, plaintext []byte, password string, params kdf.Params) (*SealedSecret, error) {
	key, err := kdf.Derive(ctx, password, nil, params)
	if err != nil {
		return nil, err
	}
	sealed, err := Seal(plaintext, key.Key)
	if err != nil {
		return nil, err
	}
	return &SealedSecret{
		KDF: KDFHeader{
			Algo:   kdf.Algorithm,
			Params: key.Params,
			Salt:   key.Salt,
		},
		Sealed: *sealed,
	}, nil
}

// OpenWithPassword re-derives the key recorded in the secret header and opens
// the secret. A wrong password surfaces as ErrAuthentication.
func OpenWithPassword(ctx context.Context, s *SealedSecret, password string) ([]byte, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: nil secret", ErrAuthentication)
	}
	if s.KDF.Algo != kdf.Algorithm {
		return nil, fmt.Errorf("unsupported key derivation %q", s.KDF.Algo)
	}
	key, err := kdf.Derive(ctx, password, s.KDF.Salt, s.KDF.Params)
	if err != nil {
		return nil, err
	}
	return Open(&s.Sealed, key.Key)
}
