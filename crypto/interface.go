// Package crypto contains cryptographic interfaces used across the election
// engine. They are a simpler version of similar interfaces found in the
// standard library, such as crypto.Signer.
//
// The implementations should all use crypto/rand.Reader as their source of
// secure randomness.
//
// These interfaces are meant to encrypt, sign, or hash small chunks of bytes:
// ballots, tokens and wrapped keys.
package crypto

import "go.anonvote.io/avote/types"

// Signer signs messages with a private key.
type Signer interface {
	Sign(message []byte) ([]byte, error)
}

// Verifier checks signatures made by the matching Signer.
type Verifier interface {
	Verify(message, signature []byte) error
}

// Encrypter encrypts short messages to a public key.
type Encrypter interface {
	Encrypt(message []byte) ([]byte, error)
}

// Cipher represents public key cryptography algorithm to encrypt and decrypt
// messages.
type Cipher interface {
	Encrypter

	Decrypt(cipher []byte) ([]byte, error)
}

// Hasher represents keyed cryptographic hash algorithms.
type Hasher interface {
	Sum(data []byte) types.HexBytes
}
