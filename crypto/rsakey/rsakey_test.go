package rsakey

import (
	"errors"
	"testing"

	qt "github.com/frankban/quicktest"
	avcrypto "go.anonvote.io/avote/crypto"
	"go.anonvote.io/avote/crypto/internal/cryptotest"
)

func TestGenerateRejectsSmallKeys(t *testing.T) {
	_, err := Generate(1024)
	qt.Assert(t, errors.Is(err, ErrInvalidKey), qt.IsTrue)
}

func TestPEMAndSignatures(t *testing.T) {
	c := qt.New(t)
	k, err := Generate(MinBits)
	c.Assert(err, qt.IsNil)

	privPEM, err := k.PrivateKeyPEM()
	c.Assert(err, qt.IsNil)
	pubPEM, err := k.PublicKeyPEM()
	c.Assert(err, qt.IsNil)

	k2, err := ParsePrivateKeyPEM(privPEM)
	c.Assert(err, qt.IsNil)
	pub, err := ParsePublicKeyPEM(pubPEM)
	c.Assert(err, qt.IsNil)

	msg := []byte(`{"masked":"42","rand":"7"}`)
	sig, err := k2.Sign(msg)
	c.Assert(err, qt.IsNil)
	c.Assert(pub.Verify(msg, sig), qt.IsNil)

	// tampered message and signature
	c.Assert(pub.Verify([]byte(`{"masked":"43","rand":"7"}`), sig), qt.Equals, ErrInvalidSignature)
	sig[0] ^= 0xff
	c.Assert(pub.Verify(msg, sig), qt.Equals, ErrInvalidSignature)

	// another key does not verify
	other, err := Generate(MinBits)
	c.Assert(err, qt.IsNil)
	sig, err = other.Sign(msg)
	c.Assert(err, qt.IsNil)
	c.Assert(pub.Verify(msg, sig), qt.Equals, ErrInvalidSignature)

	// swapped PEM kinds are rejected
	_, err = ParsePrivateKeyPEM(pubPEM)
	c.Assert(errors.Is(err, ErrInvalidKey), qt.IsTrue)
	_, err = ParsePublicKeyPEM(privPEM)
	c.Assert(errors.Is(err, ErrInvalidKey), qt.IsTrue)
	_, err = ParsePublicKeyPEM([]byte("garbage"))
	c.Assert(errors.Is(err, ErrInvalidKey), qt.IsTrue)
}

func TestOAEP(t *testing.T) {
	c := qt.New(t)
	k, err := Generate(MinBits)
	c.Assert(err, qt.IsNil)
	key := []byte("0123456789abcdef0123456789abcdef")

	ct, err := k.Public().Encrypt(key)
	c.Assert(err, qt.IsNil)
	pt, err := k.Decrypt(ct)
	c.Assert(err, qt.IsNil)
	c.Assert(pt, qt.DeepEquals, key)

	other, err := Generate(MinBits)
	c.Assert(err, qt.IsNil)
	_, err = other.Decrypt(ct)
	c.Assert(err, qt.IsNotNil)
}

func TestCipherConformance(t *testing.T) {
	cryptotest.TestGenerateEncryptDecrypt(t, func() (avcrypto.Cipher, error) {
		return Generate(MinBits)
	})
}

func TestSignerConformance(t *testing.T) {
	k, err := Generate(MinBits)
	qt.Assert(t, err, qt.IsNil)
	cryptotest.TestSignVerify(t, k, k.Public())
}
