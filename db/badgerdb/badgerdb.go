// Package badgerdb implements db.Database on top of dgraph's BadgerDB v3.
package badgerdb

import (
	"errors"
	"os"

	"github.com/dgraph-io/badger/v3"
	"go.anonvote.io/avote/db"
)

// MemTableSize defines the BadgerDB maximum size in bytes for memtable table.
// The default is 64<<20 (64MB), this does not pre-allocate enough memory for
// big Txs, that's why we use 128<<20.
const MemTableSize = 128 << 20

// WriteTx implements the interface db.WriteTx
type WriteTx struct {
	tx *badger.Txn
}

// check that WriteTx implements the db.WriteTx interface
var _ db.WriteTx = (*WriteTx)(nil)

func get(tx *badger.Txn, k []byte) ([]byte, error) {
	item, err := tx.Get(k)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, db.ErrKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}

func iterate(tx *badger.Txn, prefix []byte, callback func(k, v []byte) bool) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := tx.NewIterator(opts)
	defer it.Close()
	for it.Rewind(); it.Valid(); it.Next() {
		item := it.Item()
		stopIter := false
		err := item.Value(func(v []byte) error {
			if cont := callback(item.Key()[len(prefix):], v); !cont {
				stopIter = true
			}
			return nil
		})
		if err != nil {
			return err
		}
		if stopIter {
			break
		}
	}
	return nil
}

// Get implements the db.WriteTx.Get interface method
func (tx WriteTx) Get(k []byte) ([]byte, error) {
	return get(tx.tx, k)
}

// Iterate implements the db.WriteTx.Iterate interface method
func (tx WriteTx) Iterate(prefix []byte, callback func(k, v []byte) bool) error {
	return iterate(tx.tx, prefix, callback)
}

// Set implements the db.WriteTx.Set interface method
func (tx WriteTx) Set(k, v []byte) error {
	if err := tx.tx.Set(k, v); errors.Is(err, badger.ErrTxnTooBig) {
		return db.ErrTxnTooBig
	} else {
		return err
	}
}

// Delete implements the db.WriteTx.Delete interface method
func (tx WriteTx) Delete(k []byte) error {
	if err := tx.tx.Delete(k); errors.Is(err, badger.ErrTxnTooBig) {
		return db.ErrTxnTooBig
	} else {
		return err
	}
}

// Commit implements the db.WriteTx.Commit interface method
func (tx WriteTx) Commit() error {
	// badger's Txn.Commit does not discard a transaction with zero pending
	// writes, so always discard.
	defer tx.tx.Discard()

	return tx.tx.Commit()
}

// Discard implements the db.WriteTx.Discard interface method
func (tx WriteTx) Discard() {
	tx.tx.Discard()
}

// BadgerDB implements db.Database interface
type BadgerDB struct {
	db *badger.DB
}

// check that BadgerDB implements the db.Database interface
var _ db.Database = (*BadgerDB)(nil)

// New returns a BadgerDB using the given Options, which implements the
// db.Database interface
func New(opts db.Options) (*BadgerDB, error) {
	if err := os.MkdirAll(opts.Path, os.ModePerm); err != nil {
		return nil, err
	}
	badgerOpts := badger.DefaultOptions(opts.Path).
		WithLogger(nil).
		WithSyncWrites(false).
		WithCompression(0).
		WithBlockCacheSize(0).
		WithNumMemtables(1)

	badgerOpts.MemTableSize = MemTableSize
	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, err
	}
	return &BadgerDB{
		db: db,
	}, nil
}

// Get implements the db.Database.Get interface method
func (db *BadgerDB) Get(k []byte) (v []byte, err error) {
	err = db.db.View(func(txn *badger.Txn) error {
		v, err = get(txn, k)
		return err
	})
	return v, err
}

// WriteTx returns a db.WriteTx
func (db *BadgerDB) WriteTx() db.WriteTx {
	return WriteTx{tx: db.db.NewTransaction(true)}
}

// Close closes the BadgerDB
func (db *BadgerDB) Close() error {
	return db.db.Close()
}

// Iterate implements the db.Database.Iterate interface method
func (db *BadgerDB) Iterate(prefix []byte, callback func(k, v []byte) bool) error {
	return db.db.View(func(txn *badger.Txn) error {
		return iterate(txn, prefix, callback)
	})
}

// Compact implements the db.Database.Compact interface method
func (db *BadgerDB) Compact() error {
	err := db.db.RunValueLogGC(0.5)
	if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrRejected) {
		return nil
	}
	return err
}
