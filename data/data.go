// Package data provides an abstraction layer for content-addressed object
// storage. Objects are published once and retrieved by a URI derived from a
// hash of their content.
package data

import (
	"context"
	"errors"
)

// ErrStoreFetch is returned when an object cannot be retrieved from the store.
// It is meant to be handled per object, not to abort a batch.
var ErrStoreFetch = errors.New("store fetch failed")

// ErrObjectTooLarge is returned when an object exceeds the size limit of a
// Publish or Retrieve call.
var ErrObjectTooLarge = errors.New("object too large")

// Storage is the interface that wraps the basic methods for a content
// addressed storage provider.
type Storage interface {
	// Publish stores data and returns its URI. Publishing the same bytes
	// twice returns the same URI.
	Publish(ctx context.Context, data []byte) (string, error)
	// Retrieve returns the object addressed by uri. Errors wrap
	// ErrStoreFetch. A maxSize of zero means no limit.
	Retrieve(ctx context.Context, uri string, maxSize int64) ([]byte, error)
	// URIprefix returns the scheme prefix of the URIs handed out.
	URIprefix() string
	// Stats returns implementation specific counters.
	Stats() map[string]any
	// Stop releases the storage resources.
	Stop() error
}
