// Package boltdb implements db.Database on top of etcd's bbolt. All keys live
// in a single bucket.
package boltdb

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.anonvote.io/avote/db"
	bbolt "go.etcd.io/bbolt"
)

// FileName is the name of the bolt file created inside Options.Path.
const FileName = "bolt.db"

var bucketName = []byte("kv")

// BoltDB implements the db.Database interface.
type BoltDB struct {
	db *bbolt.DB
}

// check that BoltDB implements the db.Database interface
var _ db.Database = (*BoltDB)(nil)

// New opens or creates a bolt file under opts.Path.
func New(opts db.Options) (*BoltDB, error) {
	if err := os.MkdirAll(opts.Path, os.ModePerm); err != nil {
		return nil, err
	}
	bdb, err := bbolt.Open(filepath.Join(opts.Path, FileName), 0o600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("could not open bolt db: %w", err)
	}
	if err := bdb.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	}); err != nil {
		bdb.Close()
		return nil, err
	}
	return &BoltDB{db: bdb}, nil
}

func get(b *bbolt.Bucket, k []byte) ([]byte, error) {
	v := b.Get(k)
	if v == nil {
		return nil, db.ErrKeyNotFound
	}
	// bolt values are only valid for the life of the transaction
	return db.CopyBytes(v), nil
}

func iterate(b *bbolt.Bucket, prefix []byte, callback func(k, v []byte) bool) {
	c := b.Cursor()
	for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
		if !callback(k[len(prefix):], v) {
			return
		}
	}
}

// Get implements the db.Database.Get interface method
func (d *BoltDB) Get(k []byte) (v []byte, err error) {
	err = d.db.View(func(tx *bbolt.Tx) error {
		v, err = get(tx.Bucket(bucketName), k)
		return err
	})
	return v, err
}

// Iterate implements the db.Database.Iterate interface method
func (d *BoltDB) Iterate(prefix []byte, callback func(k, v []byte) bool) error {
	return d.db.View(func(tx *bbolt.Tx) error {
		iterate(tx.Bucket(bucketName), prefix, callback)
		return nil
	})
}

// WriteTx returns a db.WriteTx. Bolt allows a single writer at a time, so the
// call blocks while another WriteTx is open.
func (d *BoltDB) WriteTx() db.WriteTx {
	tx, err := d.db.Begin(true)
	if err != nil {
		return &WriteTx{err: err}
	}
	return &WriteTx{tx: tx}
}

// Compact is a no-op: bolt reuses freed pages and has no online compaction.
func (*BoltDB) Compact() error {
	return nil
}

// Close closes the BoltDB
func (d *BoltDB) Close() error {
	return d.db.Close()
}

// WriteTx implements the interface db.WriteTx
type WriteTx struct {
	tx  *bbolt.Tx
	err error
}

// check that WriteTx implements the db.WriteTx interface
var _ db.WriteTx = (*WriteTx)(nil)

var errClosedTx = errors.New("bolt tx already committed or discarded")

func (tx *WriteTx) bucket() (*bbolt.Bucket, error) {
	if tx.err != nil {
		return nil, tx.err
	}
	if tx.tx == nil {
		return nil, errClosedTx
	}
	return tx.tx.Bucket(bucketName), nil
}

// Get implements the db.WriteTx.Get interface method
func (tx *WriteTx) Get(k []byte) ([]byte, error) {
	b, err := tx.bucket()
	if err != nil {
		return nil, err
	}
	return get(b, k)
}

// Iterate implements the db.WriteTx.Iterate interface method
func (tx *WriteTx) Iterate(prefix []byte, callback func(k, v []byte) bool) error {
	b, err := tx.bucket()
	if err != nil {
		return err
	}
	iterate(b, prefix, callback)
	return nil
}

// Set implements the db.WriteTx.Set interface method
func (tx *WriteTx) Set(k, v []byte) error {
	b, err := tx.bucket()
	if err != nil {
		return err
	}
	if v == nil {
		v = []byte{}
	}
	return b.Put(k, v)
}

// Delete implements the db.WriteTx.Delete interface method
func (tx *WriteTx) Delete(k []byte) error {
	b, err := tx.bucket()
	if err != nil {
		return err
	}
	return b.Delete(k)
}

// Commit implements the db.WriteTx.Commit interface method
func (tx *WriteTx) Commit() error {
	if _, err := tx.bucket(); err != nil {
		return err
	}
	err := tx.tx.Commit()
	tx.tx = nil
	return err
}

// Discard implements the db.WriteTx.Discard interface method
func (tx *WriteTx) Discard() {
	if tx.tx == nil {
		return
	}
	// Rollback only fails on an already closed tx
	_ = tx.tx.Rollback()
	tx.tx = nil
}
