package pebbledb

import (
	"testing"

	qt "github.com/frankban/quicktest"
	"go.anonvote.io/avote/db"
	"go.anonvote.io/avote/db/internal/dbtest"
)

func TestWriteTx(t *testing.T) {
	database, err := New(db.Options{Path: t.TempDir()})
	qt.Assert(t, err, qt.IsNil)
	defer database.Close()

	dbtest.TestWriteTx(t, database)
}

func TestIterate(t *testing.T) {
	database, err := New(db.Options{Path: t.TempDir()})
	qt.Assert(t, err, qt.IsNil)
	defer database.Close()

	dbtest.TestIterate(t, database)
}

func TestDiscard(t *testing.T) {
	database, err := New(db.Options{Path: t.TempDir()})
	qt.Assert(t, err, qt.IsNil)
	defer database.Close()

	dbtest.TestDiscard(t, database)
}
