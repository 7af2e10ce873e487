package election

import (
	"context"
	"errors"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/google/uuid"
	"go.anonvote.io/avote/crypto/rsakey"
	"go.anonvote.io/avote/crypto/sealer"
	"go.anonvote.io/avote/test/testcommon/testutil"
	"go.anonvote.io/avote/types"
)

func TestKeyMaterial(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()

	keys, err := NewKeyMaterial(ctx, "election-pass", rsakey.MinBits, testutil.KDFParams)
	c.Assert(err, qt.IsNil)
	c.Assert(keys.PrivateKey, qt.IsNotNil)

	priv, err := keys.Unlock(ctx, "election-pass")
	c.Assert(err, qt.IsNil)
	pub, err := keys.Public()
	c.Assert(err, qt.IsNil)

	ct, err := pub.Encrypt([]byte("wrapped"))
	c.Assert(err, qt.IsNil)
	pt, err := priv.Decrypt(ct)
	c.Assert(err, qt.IsNil)
	c.Assert(string(pt), qt.Equals, "wrapped")

	_, err = keys.Unlock(ctx, "wrong-pass")
	c.Assert(errors.Is(err, ErrDecryption), qt.IsTrue)
	c.Assert(errors.Is(err, sealer.ErrAuthentication), qt.IsTrue)

	var empty *KeyMaterial
	_, err = empty.Unlock(ctx, "election-pass")
	c.Assert(errors.Is(err, ErrDecryption), qt.IsTrue)
}

func TestCreateGet(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	store := testutil.NewRecordStore(t)
	q := store.Queries()

	keys, err := NewKeyMaterial(ctx, "pass", rsakey.MinBits, testutil.KDFParams)
	c.Assert(err, qt.IsNil)
	e := &Election{
		ID:        uuid.New(),
		Name:      "student council",
		Status:    types.StatusNotYetStarted,
		Keys:      keys,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	cands := []*Candidate{
		{ID: uuid.New(), Name: "alice"},
		{ID: uuid.New(), Name: "bob"},
	}
	c.Assert(Create(ctx, q, e, cands), qt.IsNil)

	got, err := Get(ctx, q, e.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(got.Name, qt.Equals, e.Name)
	c.Assert(got.Status, qt.Equals, types.StatusNotYetStarted)
	c.Assert(got.CreatedAt.Equal(e.CreatedAt), qt.IsTrue)
	_, err = got.Keys.Unlock(ctx, "pass")
	c.Assert(err, qt.IsNil)

	c.Assert(SetStatus(ctx, q, e.ID, types.StatusFinished), qt.IsNil)
	got, err = Get(ctx, q, e.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(got.Status, qt.Equals, types.StatusFinished)

	gotCands, err := Candidates(ctx, q, e.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(gotCands, qt.HasLen, 2)
	for _, cand := range gotCands {
		c.Assert(cand.ElectionID, qt.Equals, e.ID)
		c.Assert(cand.Votes, qt.Equals, uint64(0))
	}

	list, err := List(ctx, q)
	c.Assert(err, qt.IsNil)
	c.Assert(list, qt.HasLen, 1)

	_, err = Get(ctx, q, uuid.New())
	c.Assert(errors.Is(err, ErrNotFound), qt.IsTrue)
	c.Assert(errors.Is(SetStatus(ctx, q, uuid.New(), types.StatusActive), ErrNotFound), qt.IsTrue)
}
