package data

import (
	"context"
	"fmt"
	"maps"
	"os"
	"sync"

	"go.anonvote.io/avote/types"
)

// DataMockTest is an in-memory Storage for tests. Individual URIs can be
// made to fail on Retrieve.
type DataMockTest struct {
	files    map[string][]byte
	failures map[string]error
	filesMu  sync.RWMutex
	prefix   string
}

var _ Storage = (*DataMockTest)(nil)

// NewDataMockTest returns an empty mock store.
func NewDataMockTest() *DataMockTest {
	return &DataMockTest{
		files:    make(map[string][]byte),
		failures: make(map[string]error),
		prefix:   types.ContentURIPrefix,
	}
}

// Publish implements Storage.
func (d *DataMockTest) Publish(_ context.Context, o []byte) (string, error) {
	c, err := CalculateCIDv1json(o)
	if err != nil {
		return "", err
	}
	d.filesMu.Lock()
	defer d.filesMu.Unlock()
	d.files[c.String()] = append([]byte(nil), o...)
	return URI(c), nil
}

// Retrieve implements Storage.
func (d *DataMockTest) Retrieve(ctx context.Context, uri string, maxSize int64) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreFetch, err)
	}
	c, err := ParseURI(uri)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreFetch, err)
	}
	d.filesMu.RLock()
	defer d.filesMu.RUnlock()
	if err, ok := d.failures[c.String()]; ok {
		return nil, fmt.Errorf("%w: %s: %v", ErrStoreFetch, uri, err)
	}
	data, ok := d.files[c.String()]
	if !ok {
		return nil, fmt.Errorf("%w: %s: %v", ErrStoreFetch, uri, os.ErrNotExist)
	}
	if maxSize > 0 && int64(len(data)) > maxSize {
		return nil, fmt.Errorf("%w: %w", ErrStoreFetch, ErrObjectTooLarge)
	}
	return append([]byte(nil), data...), nil
}

// FailRetrieve makes every later Retrieve of uri fail with err.
func (d *DataMockTest) FailRetrieve(uri string, err error) {
	c, perr := ParseURI(uri)
	if perr != nil {
		panic(perr)
	}
	d.filesMu.Lock()
	defer d.filesMu.Unlock()
	d.failures[c.String()] = err
}

// Files returns a copy of the stored objects keyed by CID.
func (d *DataMockTest) Files() map[string][]byte {
	d.filesMu.RLock()
	defer d.filesMu.RUnlock()
	return maps.Clone(d.files)
}

// URIprefix implements Storage.
func (d *DataMockTest) URIprefix() string {
	return d.prefix
}

// Stats implements Storage.
func (d *DataMockTest) Stats() map[string]any {
	d.filesMu.RLock()
	defer d.filesMu.RUnlock()
	return map[string]any{"objects": len(d.files)}
}

// Stop implements Storage.
func (*DataMockTest) Stop() error {
	return nil
}
