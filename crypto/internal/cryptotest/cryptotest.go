// Package cryptotest holds conformance tests shared by the implementations of
// the crypto interfaces.
package cryptotest

import (
	"bytes"
	"testing"

	"go.anonvote.io/avote/crypto"
)

var tests = []struct {
	name    string
	message []byte
}{
	{
		name:    "Hello",
		message: []byte("hello world"),
	},
	{
		name:    "Empty",
		message: []byte(""),
	},
	{
		name:    "Accents",
		message: []byte("UTF-8-charsàèìòù"),
	},
	{
		name:    "NonText",
		message: []byte{0x01, 0x02, 0x03, 0x04},
	},
}

// TestGenerateEncryptDecrypt checks that two generated ciphers can each
// decrypt their own messages and not the other's.
func TestGenerateEncryptDecrypt(t *testing.T, gen func() (crypto.Cipher, error)) {
	t.Parallel()

	cipher1, err := gen()
	if err != nil {
		t.Fatal(err)
	}
	cipher2, err := gen()
	if err != nil {
		t.Fatal(err)
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			enc, err := cipher1.Encrypt(test.message)
			if err != nil {
				t.Fatalf("Encrypt error: %v", err)
			}

			if _, err := cipher2.Decrypt(enc); err == nil {
				t.Fatalf("Decrypt with different keys should error")
			}

			dec, err := cipher1.Decrypt(enc)
			if err != nil {
				t.Fatalf("Decrypt error: %v", err)
			}

			if !bytes.Equal(dec, test.message) {
				t.Fatalf("encrypt-decrypt got %q, want %q", dec, test.message)
			}
		})
	}
}

// TestSignVerify checks that signatures verify with the signer's own
// verifier and that altered messages do not.
func TestSignVerify(t *testing.T, signer crypto.Signer, verifier crypto.Verifier) {
	t.Parallel()

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			sig, err := signer.Sign(test.message)
			if err != nil {
				t.Fatalf("Sign error: %v", err)
			}
			if err := verifier.Verify(test.message, sig); err != nil {
				t.Fatalf("Verify error: %v", err)
			}
			altered := append([]byte{0xff}, test.message...)
			if err := verifier.Verify(altered, sig); err == nil {
				t.Fatalf("Verify of an altered message should error")
			}
		})
	}
}

// TestHash checks that hash output has a consistent length and is
// deterministic.
func TestHash(t *testing.T, hash crypto.Hasher) {
	t.Parallel()

	length := len(hash.Sum([]byte{0}))

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			sum := hash.Sum(test.message)
			if len(sum) != length {
				t.Fatalf("hash length must be consistent; got %d and %d", length, len(sum))
			}

			if sum2 := hash.Sum(test.message); !bytes.Equal(sum, sum2) {
				t.Fatalf("Hash must always return the same; got %x and %x", sum, sum2)
			}
		})
	}
}
