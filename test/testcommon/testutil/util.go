// Package testutil holds helpers shared by the package tests.
package testutil

import (
	"encoding/hex"
	"math/rand"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"go.anonvote.io/avote/crypto/kdf"
	"go.anonvote.io/avote/crypto/keyedhash"
	"go.anonvote.io/avote/recordstore"
)

// KDFParams are cheap Argon2id parameters for tests.
var KDFParams = kdf.Params{Time: 1, Memory: 8 * 1024, Threads: 1}

// HashSecret is the keyed hash secret used in tests.
const HashSecret = "avote-test-keyed-hash-secret-000"

// Hex2byte decodes s, failing the test on error.
func Hex2byte(tb testing.TB, s string) []byte {
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		if tb == nil {
			panic(err)
		}
		tb.Fatal(err)
	}
	return b
}

// NewRecordStore opens an empty record store closed at the end of the test.
func NewRecordStore(tb testing.TB) *recordstore.Store {
	s, err := recordstore.New(filepath.Join(tb.TempDir(), "records.sqlite"))
	if err != nil {
		tb.Fatal(err)
	}
	tb.Cleanup(func() { s.Close() })
	return s
}

// NewHasher returns the keyed hasher built from HashSecret.
func NewHasher(tb testing.TB) *keyedhash.Hasher {
	h, err := keyedhash.New([]byte(HashSecret))
	if err != nil {
		tb.Fatal(err)
	}
	return h
}

// Random is a deterministic source of test data.
type Random struct {
	rand *rand.Rand
}

// NewRandom returns a Random seeded with seed.
func NewRandom(seed int64) Random {
	return Random{rand: rand.New(rand.NewSource(seed))}
}

// RandomBytes returns n pseudo-random bytes.
func (r *Random) RandomBytes(n int) []byte {
	b := make([]byte, n)
	if _, err := r.rand.Read(b); err != nil {
		panic(err)
	}
	return b
}

// RandomIntn returns an int in [0, n).
func (r *Random) RandomIntn(n int) int {
	return r.rand.Intn(n)
}

// RandomUUID returns a version 4 UUID built from the pseudo-random stream.
func (r *Random) RandomUUID() uuid.UUID {
	id, err := uuid.FromBytes(r.RandomBytes(16))
	if err != nil {
		panic(err)
	}
	id[6] = (id[6] & 0x0f) | 0x40
	id[8] = (id[8] & 0x3f) | 0x80
	return id
}
