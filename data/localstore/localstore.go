// Package localstore implements data.Storage on top of a local key-value
// database. Objects are addressed by CIDv1 and stored zstd compressed.
package localstore

import (
	"context"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.anonvote.io/avote/data"
	"go.anonvote.io/avote/data/compressor"
	"go.anonvote.io/avote/db"
	"go.anonvote.io/avote/db/prefixeddb"
	"go.anonvote.io/avote/log"
	"go.anonvote.io/avote/types"
)

const (
	// MaxObjectSizeBytes is the maximum size of a published object.
	MaxObjectSizeBytes = 1024 * 1024 * 10 // 10 MB
	// RetrievedObjectCacheSize is the maximum number of objects cached in memory.
	RetrievedObjectCacheSize = 1024
)

var objectsPrefix = []byte("obj/")

// Handler is the local object store.
type Handler struct {
	db            *prefixeddb.PrefixedDatabase
	compressor    compressor.Compressor
	retrieveCache *lru.Cache[string, []byte]
}

var _ data.Storage = (*Handler)(nil)

// New returns a Handler storing objects in database. The database is closed
// by Stop.
func New(database db.Database) (*Handler, error) {
	cache, err := lru.New[string, []byte](RetrievedObjectCacheSize)
	if err != nil {
		return nil, err
	}
	return &Handler{
		db:            prefixeddb.NewPrefixedDatabase(database, objectsPrefix),
		compressor:    compressor.NewCompressor(),
		retrieveCache: cache,
	}, nil
}

// URIprefix returns the URI prefix which identifies the protocol
func (*Handler) URIprefix() string {
	return types.ContentURIPrefix
}

// Publish stores msg and returns its content URI. Publishing is idempotent.
func (h *Handler) Publish(ctx context.Context, msg []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(msg) > MaxObjectSizeBytes {
		return "", fmt.Errorf("%w: %d bytes", data.ErrObjectTooLarge, len(msg))
	}
	c, err := data.CalculateCIDv1json(msg)
	if err != nil {
		return "", err
	}
	key := c.Bytes()
	if _, err := h.db.Get(key); err == nil {
		return data.URI(c), nil
	}
	wTx := h.db.WriteTx()
	defer wTx.Discard()
	if err := wTx.Set(key, h.compressor.CompressBytes(msg)); err != nil {
		return "", err
	}
	if err := wTx.Commit(); err != nil {
		return "", err
	}
	ObjectsPublished.Inc()
	log.Debugw("published object", "size", len(msg))
	return data.URI(c), nil
}

// Retrieve returns the object addressed by uri, checking that its content
// matches the address.
func (h *Handler) Retrieve(ctx context.Context, uri string, maxSize int64) ([]byte, error) {
	msg, err := h.retrieve(ctx, uri, maxSize)
	if err != nil {
		ObjectsRetrieved.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: %s: %w", data.ErrStoreFetch, uri, err)
	}
	ObjectsRetrieved.WithLabelValues("ok").Inc()
	return msg, nil
}

func (h *Handler) retrieve(ctx context.Context, uri string, maxSize int64) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c, err := data.ParseURI(uri)
	if err != nil {
		return nil, err
	}
	key := c.String()
	if msg, ok := h.retrieveCache.Get(key); ok {
		return checkSize(msg, maxSize)
	}
	stored, err := h.db.Get(c.Bytes())
	if errors.Is(err, db.ErrKeyNotFound) {
		return nil, fmt.Errorf("object %s not found", key)
	}
	if err != nil {
		return nil, err
	}
	msg, err := h.compressor.DecompressBytes(stored)
	if err != nil {
		return nil, err
	}
	if err := data.VerifyCID(c, msg); err != nil {
		return nil, err
	}
	h.retrieveCache.Add(key, msg)
	return checkSize(msg, maxSize)
}

func checkSize(msg []byte, maxSize int64) ([]byte, error) {
	if maxSize > 0 && int64(len(msg)) > maxSize {
		return nil, fmt.Errorf("%w: %d bytes", data.ErrObjectTooLarge, len(msg))
	}
	return append([]byte(nil), msg...), nil
}

// Stats returns the number of stored objects.
func (h *Handler) Stats() map[string]any {
	count := 0
	if err := h.db.Iterate(nil, func(_, _ []byte) bool {
		count++
		return true
	}); err != nil {
		log.Warnw("cannot count stored objects", "error", err)
	}
	return map[string]any{
		"objects": count,
		"cached":  h.retrieveCache.Len(),
	}
}

// Stop closes the underlying database.
func (h *Handler) Stop() error {
	h.retrieveCache.Purge()
	return h.db.Close()
}
