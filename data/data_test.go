package data

import (
	"context"
	"errors"
	"testing"

	qt "github.com/frankban/quicktest"
	"go.anonvote.io/avote/types"
)

func TestCID(t *testing.T) {
	c := qt.New(t)
	payload := []byte(`{"tokenHash":"0a0b"}`)

	id, err := CalculateCIDv1json(payload)
	c.Assert(err, qt.IsNil)
	c.Assert(id.Version(), qt.Equals, uint64(1))

	again, err := CalculateCIDv1json(payload)
	c.Assert(err, qt.IsNil)
	c.Assert(again.Equals(id), qt.IsTrue)

	uri := URI(id)
	c.Assert(uri[:len(types.ContentURIPrefix)], qt.Equals, types.ContentURIPrefix)
	parsed, err := ParseURI(uri)
	c.Assert(err, qt.IsNil)
	c.Assert(parsed.Equals(id), qt.IsTrue)
	c.Assert(CIDequals(uri, "/ipfs/"+id.String()), qt.IsTrue)

	c.Assert(VerifyCID(id, payload), qt.IsNil)
	c.Assert(VerifyCID(id, []byte(`{"tokenHash":"0a0c"}`)), qt.IsNotNil)

	_, err = ParseURI("ipfs://not-a-cid")
	c.Assert(err, qt.IsNotNil)
}

func TestDataMockTest(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	store := NewDataMockTest()

	uri, err := store.Publish(ctx, []byte("hello"))
	c.Assert(err, qt.IsNil)
	got, err := store.Retrieve(ctx, uri, 0)
	c.Assert(err, qt.IsNil)
	c.Assert(string(got), qt.Equals, "hello")

	_, err = store.Retrieve(ctx, uri, 2)
	c.Assert(errors.Is(err, ErrObjectTooLarge), qt.IsTrue)

	other, err := CalculateCIDv1json([]byte("missing"))
	c.Assert(err, qt.IsNil)
	_, err = store.Retrieve(ctx, URI(other), 0)
	c.Assert(errors.Is(err, ErrStoreFetch), qt.IsTrue)

	store.FailRetrieve(uri, errors.New("timeout"))
	_, err = store.Retrieve(ctx, uri, 0)
	c.Assert(errors.Is(err, ErrStoreFetch), qt.IsTrue)
}
