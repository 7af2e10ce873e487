// Package kdf derives symmetric keys from human passwords using Argon2id.
package kdf

import (
	"context"
	cryptorand "crypto/rand"
	"errors"
	"fmt"
	"io"
	"time"

	"golang.org/x/crypto/argon2"
)

const (
	// Algorithm is the name recorded in sealed secret headers.
	Algorithm = "argon2id"
	// SaltSize is the size of a freshly generated salt.
	SaltSize = 16
	// KeySize is the size of the derived key, suitable for AEAD sealing.
	KeySize = 32
	// minSaltSize is the smallest caller-provided salt accepted.
	minSaltSize = 8
	// DefaultTimeout bounds the derivations of one seal or unlock when the
	// caller configures no timeout.
	DefaultTimeout = 30 * time.Second
)

// Params are the Argon2id cost parameters. Memory is expressed in KiB.
type Params struct {
	Time    uint32 `json:"t"`
	Memory  uint32 `json:"m"`
	Threads uint8  `json:"p"`
}

// DefaultParams are the fixed cost parameters used for every new secret.
var DefaultParams = Params{
	Time:    3,
	Memory:  64 * 1024,
	Threads: 4,
}

var (
	// ErrKeyDerivation is returned when a key cannot be derived.
	ErrKeyDerivation = errors.New("key derivation failed")
	// ErrKeyDerivationTimeout is returned when the context expires before
	// the derivation finishes.
	ErrKeyDerivationTimeout = fmt.Errorf("%w: timeout", ErrKeyDerivation)
)

// Key is a derived key together with the salt and parameters that produced it.
type Key struct {
	Key    []byte
	Salt   []byte
	Params Params
}

// Validate checks that the parameters can be fed to Argon2id.
func (p Params) Validate() error {
	if p.Time == 0 || p.Memory == 0 || p.Threads == 0 {
		return fmt.Errorf("%w: invalid parameters %+v", ErrKeyDerivation, p)
	}
	if p.Memory < 8*uint32(p.Threads) {
		return fmt.Errorf("%w: memory must be at least 8*threads KiB", ErrKeyDerivation)
	}
	return nil
}

// NewSalt returns SaltSize random bytes.
func NewSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := io.ReadFull(cryptorand.Reader, salt); err != nil {
		return nil, fmt.Errorf("%w: cannot read salt: %v", ErrKeyDerivation, err)
	}
	return salt, nil
}

// WithTimeout bounds ctx by d, or by DefaultTimeout when d is not positive.
// Every password derivation runs under such a context.
func WithTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = DefaultTimeout
	}
	return context.WithTimeout(ctx, d)
}

// Derive turns password into a KeySize key. If salt is empty a new random
// salt is generated. The result is deterministic for the same password, salt
// and params. The derivation is abandoned with ErrKeyDerivationTimeout when
// ctx is done first.
func Derive(ctx context.Context, password string, salt []byte, params Params) (*Key, error) {
	if password == "" {
		return nil, fmt.Errorf("%w: empty password", ErrKeyDerivation)
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if len(salt) == 0 {
		var err error
		if salt, err = NewSalt(); err != nil {
			return nil, err
		}
	} else if len(salt) < minSaltSize {
		return nil, fmt.Errorf("%w: salt too short (%d bytes)", ErrKeyDerivation, len(salt))
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyDerivationTimeout, err)
	}

	// Argon2 is not interruptible, so run it aside and stop waiting on
	// context expiry. The goroutine finishes on its own.
	done := make(chan []byte, 1)
	go func() {
		done <- argon2.IDKey([]byte(password), salt, params.Time, params.Memory, params.Threads, KeySize)
	}()
	select {
	case key := <-done:
		return &Key{
			Key:    key,
			Salt:   append([]byte(nil), salt...),
			Params: params,
		}, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrKeyDerivationTimeout, ctx.Err())
	}
}
