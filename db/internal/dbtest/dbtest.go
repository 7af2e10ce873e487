// Package dbtest holds conformance tests for db.Database implementations.
package dbtest

import (
	"bytes"
	"strconv"
	"testing"

	qt "github.com/frankban/quicktest"
	"go.anonvote.io/avote/db"
)

// TestWriteTx checks read-your-writes within a tx and visibility after commit.
func TestWriteTx(t *testing.T, database db.Database) {
	wTx := database.WriteTx()

	if _, err := wTx.Get([]byte("a")); err != db.ErrKeyNotFound {
		t.Fatal(err)
	}

	err := wTx.Set([]byte("a"), []byte("b"))
	qt.Assert(t, err, qt.IsNil)

	v, err := wTx.Get([]byte("a"))
	qt.Assert(t, err, qt.IsNil)

	if !bytes.Equal(v, []byte("b")) {
		t.Errorf("expected v (%v) to be equal to %v", v, []byte("b"))
	}
	err = wTx.Commit()
	qt.Assert(t, err, qt.IsNil)

	// Discard should not give any problem
	wTx.Discard()

	v, err = database.Get([]byte("a"))
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, v, qt.DeepEquals, []byte("b"))

	// ensure that WriteTx can be passed into a function that accepts
	// a Reader, and that can be used
	wTx = database.WriteTx()
	useReaderFromWriteTx(t, wTx)

	qt.Assert(t, wTx.Delete([]byte("a")), qt.IsNil)
	_, err = wTx.Get([]byte("a"))
	qt.Assert(t, err, qt.Equals, db.ErrKeyNotFound)
	err = wTx.Commit()
	qt.Assert(t, err, qt.IsNil)

	_, err = database.Get([]byte("a"))
	qt.Assert(t, err, qt.Equals, db.ErrKeyNotFound)
}

func useReaderFromWriteTx(t *testing.T, r db.Reader) {
	v, err := r.Get([]byte("a"))
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, v, qt.DeepEquals, []byte("b"))
}

// TestDiscard checks that discarded writes are never visible.
func TestDiscard(t *testing.T, database db.Database) {
	wTx := database.WriteTx()
	qt.Assert(t, wTx.Set([]byte("discarded"), []byte("x")), qt.IsNil)
	wTx.Discard()
	wTx.Discard()

	_, err := database.Get([]byte("discarded"))
	qt.Assert(t, err, qt.Equals, db.ErrKeyNotFound)
}

// TestIterate checks prefix iteration, ordering and prefix stripping.
func TestIterate(t *testing.T, d db.Database) {
	prefix0 := []byte("a")
	prefix0NumKeys := 20
	prefix1 := []byte("b")
	prefix1NumKeys := 30

	wTx := d.WriteTx()
	for i := 0; i < prefix0NumKeys; i++ {
		qt.Assert(t, wTx.Set(append(prefix0, []byte(strconv.Itoa(i))...), []byte(strconv.Itoa(i))), qt.IsNil)
	}
	for i := 0; i < prefix1NumKeys; i++ {
		qt.Assert(t, wTx.Set(append(prefix1, []byte(strconv.Itoa(i))...), []byte(strconv.Itoa(i))), qt.IsNil)
	}
	err := wTx.Commit()
	qt.Assert(t, err, qt.IsNil)

	noPrefixKeysFound := 0
	err = d.Iterate(nil, func(k, v []byte) bool {
		noPrefixKeysFound++
		return true
	})
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, noPrefixKeysFound, qt.Equals, prefix0NumKeys+prefix1NumKeys)

	prefix0KeysFound := 0
	var last []byte
	err = d.Iterate(prefix0, func(k, v []byte) bool {
		// the prefix is stripped, so the key equals the value
		qt.Assert(t, k, qt.DeepEquals, v)
		if last != nil && bytes.Compare(last, k) >= 0 {
			t.Errorf("keys out of order: %q then %q", last, k)
		}
		last = append([]byte{}, k...)
		prefix0KeysFound++
		return true
	})
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, prefix0KeysFound, qt.Equals, prefix0NumKeys)

	prefix1KeysFound := 0
	err = d.Iterate(prefix1, func(k, v []byte) bool {
		prefix1KeysFound++
		return prefix1KeysFound < 5
	})
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, prefix1KeysFound, qt.Equals, 5)
}
