// Package goleveldb implements db.Database on top of syndtr/goleveldb.
package goleveldb

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
	"go.anonvote.io/avote/db"
)

// LevelDB implements the db.Database interface.
type LevelDB struct {
	db *leveldb.DB
}

// Ensure that LevelDB implements the db.Database interface
var _ db.Database = (*LevelDB)(nil)

// New returns a LevelDB which implements the db.Database interface
func New(opts db.Options) (*LevelDB, error) {
	db, err := leveldb.OpenFile(opts.Path, &opt.Options{})
	if err != nil {
		return nil, fmt.Errorf("could not open leveldb: %w", err)
	}
	return &LevelDB{
		db: db,
	}, nil
}

// Close closes the LevelDB
func (d *LevelDB) Close() error {
	return d.db.Close()
}

// WriteTx returns a db.WriteTx
func (d *LevelDB) WriteTx() db.WriteTx {
	return &WriteTx{
		db:      d.db,
		batch:   new(leveldb.Batch),
		pending: make(map[string][]byte),
	}
}

// Get implements the db.Database.Get interface method
func (d *LevelDB) Get(key []byte) ([]byte, error) {
	return get(d.db, key)
}

func get(ldb *leveldb.DB, key []byte) ([]byte, error) {
	val, err := ldb.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, db.ErrKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	return val, nil
}

// Iterate implements the db.Database.Iterate interface method
func (d *LevelDB) Iterate(prefix []byte, callback func(key, value []byte) bool) error {
	iter := d.db.NewIterator(util.BytesPrefix(prefix), nil)
	defer iter.Release()
	for iter.Next() {
		if !callback(iter.Key()[len(prefix):], iter.Value()) {
			break
		}
	}
	return iter.Error()
}

// Compact implements the db.Database.Compact interface method.
func (d *LevelDB) Compact() error {
	return d.db.CompactRange(util.Range{})
}

// WriteTx implements the interface db.WriteTx for goleveldb. Writes are kept
// in a batch and mirrored in memory so reads within the transaction observe
// them. A nil value in pending marks a deletion.
type WriteTx struct {
	mu      sync.RWMutex
	batch   *leveldb.Batch
	db      *leveldb.DB
	pending map[string][]byte
}

// check that WriteTx implements the db.WriteTx interface
var _ db.WriteTx = (*WriteTx)(nil)

var errClosedTx = fmt.Errorf("leveldb tx already committed or discarded")

// Get implements the db.WriteTx.Get interface method
func (tx *WriteTx) Get(k []byte) ([]byte, error) {
	tx.mu.RLock()
	val, ok := tx.pending[string(k)]
	tx.mu.RUnlock()
	if !ok {
		return get(tx.db, k)
	}
	if val == nil {
		return nil, db.ErrKeyNotFound
	}
	return db.CopyBytes(val), nil
}

// Iterate implements the db.WriteTx.Iterate interface method. Pending writes
// are merged with the committed state in key order.
func (tx *WriteTx) Iterate(prefix []byte, callback func(k, v []byte) bool) error {
	merged := make(map[string][]byte)
	iter := tx.db.NewIterator(util.BytesPrefix(prefix), nil)
	for iter.Next() {
		merged[string(iter.Key())] = db.CopyBytes(iter.Value())
	}
	iter.Release()
	if err := iter.Error(); err != nil {
		return err
	}
	tx.mu.RLock()
	for k, v := range tx.pending {
		if !bytes.HasPrefix([]byte(k), prefix) {
			continue
		}
		if v == nil {
			delete(merged, k)
			continue
		}
		merged[k] = v
	}
	tx.mu.RUnlock()

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !callback([]byte(k)[len(prefix):], merged[k]) {
			break
		}
	}
	return nil
}

// Set implements the db.WriteTx.Set interface method
func (tx *WriteTx) Set(k, v []byte) error {
	if v == nil {
		v = []byte{}
	}
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.batch == nil {
		return errClosedTx
	}
	tx.batch.Put(k, v)
	tx.pending[string(k)] = db.CopyBytes(v)
	return nil
}

// Delete implements the db.WriteTx.Delete interface method
func (tx *WriteTx) Delete(k []byte) error {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.batch == nil {
		return errClosedTx
	}
	tx.batch.Delete(k)
	tx.pending[string(k)] = nil
	return nil
}

// Commit implements the db.WriteTx.Commit interface method
func (tx *WriteTx) Commit() error {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.batch == nil {
		return errClosedTx
	}
	err := tx.db.Write(tx.batch, nil)
	tx.batch = nil
	tx.pending = nil
	return err
}

// Discard implements the db.WriteTx.Discard interface method
func (tx *WriteTx) Discard() {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	tx.batch = nil
	tx.pending = nil
}
