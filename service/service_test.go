package service

import (
	"context"
	"encoding/hex"
	"testing"

	qt "github.com/frankban/quicktest"
	"go.anonvote.io/avote/config"
	"go.anonvote.io/avote/crypto/kdf"
	"go.anonvote.io/avote/db/metadb"
	"go.anonvote.io/avote/test/testcommon/testutil"
	"go.anonvote.io/avote/types"
)

func testConfig(t *testing.T) *config.Config {
	cfg := config.NewConfig()
	cfg.DataDir = t.TempDir()
	cfg.DBType = metadb.ForTest()
	cfg.HashSecret = hex.EncodeToString([]byte(testutil.HashSecret))
	kp := testutil.KDFParams
	cfg.Crypto.KDFTime, cfg.Crypto.KDFMemory, cfg.Crypto.KDFThreads = kp.Time, kp.Memory, kp.Threads
	return cfg
}

func TestNodeReopen(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	cfg := testConfig(t)

	node, err := New(cfg)
	c.Assert(err, qt.IsNil)
	e, _, err := node.Commission.CreateElection(ctx, "council", "pw", []string{"a", "b"})
	c.Assert(err, qt.IsNil)
	c.Assert(node.Close(), qt.IsNil)

	node, err = New(cfg)
	c.Assert(err, qt.IsNil)
	defer node.Close()
	got, err := node.Commission.Election(ctx, e.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(got.Name, qt.Equals, "council")
	c.Assert(got.Status, qt.Equals, types.StatusNotYetStarted)
}

func TestNodeInvalidConfig(t *testing.T) {
	c := qt.New(t)

	cfg := testConfig(t)
	cfg.HashSecret = "zz"
	_, err := New(cfg)
	c.Assert(err, qt.ErrorMatches, "hashSecret is not valid hex.*")

	cfg = testConfig(t)
	cfg.HashSecret = "abcd"
	_, err = New(cfg)
	c.Assert(err, qt.ErrorMatches, "keyed hash secret must be .*")

	cfg = testConfig(t)
	cfg.Crypto.KDFMemory = 0
	_, err = New(cfg)
	c.Assert(err, qt.ErrorIs, kdf.ErrKeyDerivation)
}
