package credential

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/google/uuid"
	"go.anonvote.io/avote/crypto/kdf"
	"go.anonvote.io/avote/crypto/rsakey"
	"go.anonvote.io/avote/crypto/sealer"
	"go.anonvote.io/avote/data"
	"go.anonvote.io/avote/election"
	"go.anonvote.io/avote/recordstore"
	"go.anonvote.io/avote/test/testcommon/testutil"
)

func newElection(t *testing.T, store *recordstore.Store) uuid.UUID {
	ctx := context.Background()
	keys, err := election.NewKeyMaterial(ctx, "commission", rsakey.MinBits, testutil.KDFParams)
	qt.Assert(t, err, qt.IsNil)
	e := &election.Election{ID: uuid.New(), Name: "e", Keys: keys, CreatedAt: time.Now()}
	qt.Assert(t, election.Create(ctx, store.Queries(), e, nil), qt.IsNil)
	return e.ID
}

func TestIssueAndUnlock(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	store := testutil.NewRecordStore(t)
	storage := data.NewDataMockTest()
	hasher := testutil.NewHasher(t)
	electionID := newElection(t, store)

	issuer := NewIssuer(store, storage, hasher)
	issuer.KDFParams = testutil.KDFParams

	cred, reg, uri, err := issuer.Issue(ctx, electionID, "voter-1", "voter-pass")
	c.Assert(err, qt.IsNil)
	c.Assert(strings.HasPrefix(uri, storage.URIprefix()), qt.IsTrue)
	c.Assert(reg.HasVoted, qt.IsFalse)
	c.Assert(reg.TokenHash, qt.HasLen, 32)

	// each secret is sealed with its own salt and IV
	c.Assert(cred.PrivateKey.KDF.Salt.Equal(cred.Token.KDF.Salt), qt.IsFalse)
	c.Assert(cred.PrivateKey.IV.Equal(cred.Token.IV), qt.IsFalse)

	// the published record carries no voter identity
	published, err := storage.Retrieve(ctx, uri, 0)
	c.Assert(err, qt.IsNil)
	c.Assert(strings.Contains(string(published), "voter-1"), qt.IsFalse)
	var got RegistrationRecord
	c.Assert(json.Unmarshal(published, &got), qt.IsNil)
	c.Assert(got.TokenHash.Equal(reg.TokenHash), qt.IsTrue)
	c.Assert(got.PublicKeyHash.Equal(reg.PublicKeyHash), qt.IsTrue)

	stored, err := Get(ctx, store.Queries(), electionID, "voter-1")
	c.Assert(err, qt.IsNil)
	// no clear public key is kept with the credential
	storedJSON, err := json.Marshal(stored)
	c.Assert(err, qt.IsNil)
	c.Assert(strings.Contains(string(storedJSON), "PUBLIC KEY"), qt.IsFalse)
	unlocked, err := Unlock(ctx, stored, "voter-pass")
	c.Assert(err, qt.IsNil)
	c.Assert(unlocked.Token, qt.HasLen, TokenSize)
	c.Assert(hasher.Sum(unlocked.Token).Equal(reg.TokenHash), qt.IsTrue)
	pubPEM, err := unlocked.Keys.PublicKeyPEM()
	c.Assert(err, qt.IsNil)
	c.Assert(hasher.Sum(pubPEM).Equal(reg.PublicKeyHash), qt.IsTrue)

	_, err = Unlock(ctx, stored, "wrong")
	c.Assert(errors.Is(err, sealer.ErrAuthentication), qt.IsTrue)

	_, err = Get(ctx, store.Queries(), electionID, "voter-2")
	c.Assert(err, qt.Equals, ErrNotFound)
}

func TestOneCredentialPerVoterAndElection(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	store := testutil.NewRecordStore(t)
	storage := data.NewDataMockTest()
	issuer := NewIssuer(store, storage, testutil.NewHasher(t))
	issuer.KDFParams = testutil.KDFParams

	e1 := newElection(t, store)
	e2 := newElection(t, store)

	_, reg1, _, err := issuer.Issue(ctx, e1, "voter-1", "pass")
	c.Assert(err, qt.IsNil)
	_, _, _, err = issuer.Issue(ctx, e1, "voter-1", "pass")
	c.Assert(err, qt.Equals, ErrCredentialExists)

	// a new election gets fresh material
	_, reg2, _, err := issuer.Issue(ctx, e2, "voter-1", "pass")
	c.Assert(err, qt.IsNil)
	c.Assert(reg1.TokenHash.Equal(reg2.TokenHash), qt.IsFalse)
	c.Assert(reg1.PublicKeyHash.Equal(reg2.PublicKeyHash), qt.IsFalse)
}

func TestIssueKDFTimeout(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	store := testutil.NewRecordStore(t)
	issuer := NewIssuer(store, data.NewDataMockTest(), testutil.NewHasher(t))
	issuer.KDFTimeout = time.Millisecond
	electionID := newElection(t, store)

	_, _, _, err := issuer.Issue(ctx, electionID, "voter-1", "pass")
	c.Assert(err, qt.ErrorIs, kdf.ErrKeyDerivationTimeout)
	_, err = Get(ctx, store.Queries(), electionID, "voter-1")
	c.Assert(err, qt.Equals, ErrNotFound)
}
