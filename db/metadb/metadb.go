// Package metadb opens a db.Database by engine name.
package metadb

import (
	"cmp"
	"fmt"
	"os"
	"testing"

	"go.anonvote.io/avote/db"
	"go.anonvote.io/avote/db/badgerdb"
	"go.anonvote.io/avote/db/boltdb"
	"go.anonvote.io/avote/db/goleveldb"
	"go.anonvote.io/avote/db/pebbledb"
)

// New opens the database engine typ at dir.
func New(typ, dir string) (db.Database, error) {
	opts := db.Options{Path: dir}
	switch typ {
	case db.TypePebble:
		return pebbledb.New(opts)
	case db.TypeLevelDB:
		return goleveldb.New(opts)
	case db.TypeBolt:
		return boltdb.New(opts)
	case db.TypeBadger:
		return badgerdb.New(opts)
	default:
		return nil, fmt.Errorf("invalid dbType: %q. Available types: %q %q %q %q",
			typ, db.TypePebble, db.TypeLevelDB, db.TypeBolt, db.TypeBadger)
	}
}

// ForTest returns the engine used by tests, taken from $AVOTE_DB_TYPE.
func ForTest() (typ string) {
	return cmp.Or(os.Getenv("AVOTE_DB_TYPE"), db.TypePebble)
}

// NewTest opens a temporary database closed at the end of the test.
func NewTest(tb testing.TB) db.Database {
	database, err := New(ForTest(), tb.TempDir())
	if err != nil {
		tb.Fatal(err)
	}
	tb.Cleanup(func() { database.Close() })
	return database
}
