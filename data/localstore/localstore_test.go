package localstore

import (
	"context"
	"errors"
	"testing"

	qt "github.com/frankban/quicktest"
	"go.anonvote.io/avote/data"
	"go.anonvote.io/avote/db/metadb"
)

func TestPublishRetrieve(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	h, err := New(metadb.NewTest(t))
	c.Assert(err, qt.IsNil)

	msg := []byte(`{"encryptedVote":{"ciphertext":"00"},"tokenHash":"aa"}`)
	uri, err := h.Publish(ctx, msg)
	c.Assert(err, qt.IsNil)
	c.Assert(uri[:len(h.URIprefix())], qt.Equals, h.URIprefix())

	// same content, same address
	uri2, err := h.Publish(ctx, msg)
	c.Assert(err, qt.IsNil)
	c.Assert(uri2, qt.Equals, uri)

	got, err := h.Retrieve(ctx, uri, 0)
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.DeepEquals, msg)

	// second retrieve is served from cache
	got, err = h.Retrieve(ctx, uri, 0)
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.DeepEquals, msg)
	c.Assert(h.Stats()["objects"], qt.Equals, 1)

	_, err = h.Retrieve(ctx, uri, 4)
	c.Assert(errors.Is(err, data.ErrStoreFetch), qt.IsTrue)
	c.Assert(errors.Is(err, data.ErrObjectTooLarge), qt.IsTrue)

	missing, err := data.CalculateCIDv1json([]byte("nope"))
	c.Assert(err, qt.IsNil)
	_, err = h.Retrieve(ctx, data.URI(missing), 0)
	c.Assert(errors.Is(err, data.ErrStoreFetch), qt.IsTrue)

	_, err = h.Retrieve(ctx, "ipfs://garbage", 0)
	c.Assert(errors.Is(err, data.ErrStoreFetch), qt.IsTrue)
}

func TestRetrieveCancelled(t *testing.T) {
	h, err := New(metadb.NewTest(t))
	qt.Assert(t, err, qt.IsNil)
	uri, err := h.Publish(context.Background(), []byte("x"))
	qt.Assert(t, err, qt.IsNil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = h.Retrieve(ctx, uri, 0)
	qt.Assert(t, errors.Is(err, data.ErrStoreFetch), qt.IsTrue)
	qt.Assert(t, errors.Is(err, context.Canceled), qt.IsTrue)
}
