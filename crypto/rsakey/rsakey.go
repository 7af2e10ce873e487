// Package rsakey provides the RSA keypairs used by voters (ballot signatures)
// and the election commission (ballot key wrapping).
//
// Signatures always use RSASSA-PSS with SHA-256 and a salt as long as the
// hash; encryption always uses RSA-OAEP with SHA-256. Keys travel as PEM:
// PKCS#8 for private keys and PKIX for public keys.
package rsakey

import (
	"crypto"
	cryptorand "crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"

	avcrypto "go.anonvote.io/avote/crypto"
)

// MinBits is the smallest accepted modulus size.
const MinBits = 2048

const (
	pemPrivateKey = "PRIVATE KEY"
	pemPublicKey  = "PUBLIC KEY"
)

var (
	// ErrInvalidKey is returned when PEM or DER key material cannot be parsed
	// or is not a usable RSA key.
	ErrInvalidKey = errors.New("invalid RSA key")
	// ErrInvalidSignature is returned by Verify on a bad signature.
	ErrInvalidSignature = errors.New("invalid signature")
)

var pssOptions = &rsa.PSSOptions{
	SaltLength: rsa.PSSSaltLengthEqualsHash,
	Hash:       crypto.SHA256,
}

// KeyPair holds an RSA private key.
type KeyPair struct {
	private *rsa.PrivateKey
}

// PublicKey is an RSA public key.
type PublicKey struct {
	public *rsa.PublicKey
}

var (
	_ avcrypto.Signer    = (*KeyPair)(nil)
	_ avcrypto.Cipher    = (*KeyPair)(nil)
	_ avcrypto.Verifier  = (*PublicKey)(nil)
	_ avcrypto.Encrypter = (*PublicKey)(nil)
)

// Generate creates a new keypair. bits below MinBits are rejected.
func Generate(bits int) (*KeyPair, error) {
	if bits < MinBits {
		return nil, fmt.Errorf("%w: modulus must be at least %d bits", ErrInvalidKey, MinBits)
	}
	k, err := rsa.GenerateKey(cryptorand.Reader, bits)
	if err != nil {
		return nil, err
	}
	return &KeyPair{private: k}, nil
}

// NewKeyPair wraps an existing private key.
func NewKeyPair(k *rsa.PrivateKey) *KeyPair {
	return &KeyPair{private: k}
}

// ParsePrivateKeyPEM decodes a PKCS#8 PEM private key.
func ParsePrivateKeyPEM(data []byte) (*KeyPair, error) {
	block, _ := pem.Decode(data)
	if block == nil || block.Type != pemPrivateKey {
		return nil, fmt.Errorf("%w: no %q PEM block", ErrInvalidKey, pemPrivateKey)
	}
	k, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	rk, ok := k.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: not an RSA key (%T)", ErrInvalidKey, k)
	}
	if rk.N.BitLen() < MinBits {
		return nil, fmt.Errorf("%w: modulus too small", ErrInvalidKey)
	}
	return &KeyPair{private: rk}, nil
}

// ParsePublicKeyPEM decodes a PKIX PEM public key.
func ParsePublicKeyPEM(data []byte) (*PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil || block.Type != pemPublicKey {
		return nil, fmt.Errorf("%w: no %q PEM block", ErrInvalidKey, pemPublicKey)
	}
	k, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	rk, ok := k.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: not an RSA key (%T)", ErrInvalidKey, k)
	}
	if rk.N.BitLen() < MinBits {
		return nil, fmt.Errorf("%w: modulus too small", ErrInvalidKey)
	}
	return &PublicKey{public: rk}, nil
}

// PrivateKeyPEM returns the PKCS#8 PEM encoding of the private key.
func (k *KeyPair) PrivateKeyPEM() ([]byte, error) {
	der, err := x509.MarshalPKCS8PrivateKey(k.private)
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(&pem.Block{Type: pemPrivateKey, Bytes: der}), nil
}

// Public returns the public half of the keypair.
func (k *KeyPair) Public() *PublicKey {
	return &PublicKey{public: &k.private.PublicKey}
}

// PublicKeyPEM returns the PKIX PEM encoding of the public key.
func (k *KeyPair) PublicKeyPEM() ([]byte, error) {
	return k.Public().PEM()
}

// Sign returns the PSS signature of SHA-256(message).
func (k *KeyPair) Sign(message []byte) ([]byte, error) {
	digest := sha256.Sum256(message)
	return rsa.SignPSS(cryptorand.Reader, k.private, crypto.SHA256, digest[:], pssOptions)
}

// Encrypt encrypts message to the keypair's own public key.
func (k *KeyPair) Encrypt(message []byte) ([]byte, error) {
	return k.Public().Encrypt(message)
}

// Decrypt reverses an OAEP encryption made with the public key.
func (k *KeyPair) Decrypt(ciphertext []byte) ([]byte, error) {
	return rsa.DecryptOAEP(sha256.New(), cryptorand.Reader, k.private, ciphertext, nil)
}

// PEM returns the PKIX PEM encoding of the public key.
func (p *PublicKey) PEM() ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(p.public)
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(&pem.Block{Type: pemPublicKey, Bytes: der}), nil
}

// Encrypt encrypts a short message with RSA-OAEP/SHA-256.
func (p *PublicKey) Encrypt(message []byte) ([]byte, error) {
	return rsa.EncryptOAEP(sha256.New(), cryptorand.Reader, p.public, message, nil)
}

// Verify checks a PSS signature made by KeyPair.Sign.
func (p *PublicKey) Verify(message, signature []byte) error {
	digest := sha256.Sum256(message)
	if err := rsa.VerifyPSS(p.public, crypto.SHA256, digest[:], signature, pssOptions); err != nil {
		return ErrInvalidSignature
	}
	return nil
}
