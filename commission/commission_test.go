package commission

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/google/uuid"
	"go.anonvote.io/avote/credential"
	"go.anonvote.io/avote/crypto/kdf"
	"go.anonvote.io/avote/crypto/sealer"
	"go.anonvote.io/avote/data"
	"go.anonvote.io/avote/election"
	"go.anonvote.io/avote/log"
	"go.anonvote.io/avote/tally"
	"go.anonvote.io/avote/test/testcommon/testutil"
	"go.anonvote.io/avote/types"
)

const password = "commission-password"

func newTestCommission(c *qt.C) (*Commission, *data.DataMockTest) {
	storage := data.NewDataMockTest()
	opts := DefaultOptions()
	opts.KDFParams = testutil.KDFParams
	opts.FetchTimeout = 5 * time.Second
	return New(testutil.NewRecordStore(c), storage, testutil.NewHasher(c), opts), storage
}

func TestElectionLifecycle(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	com, storage := newTestCommission(c)

	e, cands, err := com.CreateElection(ctx, "board", password, []string{"ana", "ben", "cai"})
	c.Assert(err, qt.IsNil)
	c.Assert(e.Status, qt.Equals, types.StatusNotYetStarted)
	c.Assert(cands, qt.HasLen, 3)

	got, err := com.Election(ctx, e.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(got.Name, qt.Equals, "board")
	c.Assert(got.Keys.PublicKey, qt.DeepEquals, e.Keys.PublicKey)

	for _, v := range []string{"v1", "v2", "v3"} {
		reg, uri, err := com.RegisterVoter(ctx, e.ID, v, v+"-password")
		c.Assert(err, qt.IsNil)
		c.Assert(reg.HasVoted, qt.IsFalse)
		c.Assert(storage.Files(), qt.Not(qt.HasLen), 0)
		c.Assert(uri, qt.Not(qt.Equals), "")
	}
	_, _, err = com.RegisterVoter(ctx, e.ID, "v1", "v1-password")
	c.Assert(errors.Is(err, credential.ErrCredentialExists), qt.IsTrue)

	// no ballots before the election starts
	_, err = com.CastBallot(ctx, e.ID, "v1", "v1-password", cands[0].ID)
	c.Assert(errors.Is(err, ErrInvalidStatus), qt.IsTrue)

	c.Assert(com.SetStatus(ctx, e.ID, types.StatusActive), qt.IsNil)
	_, err = com.CastBallot(ctx, e.ID, "v1", "v1-password", cands[0].ID)
	c.Assert(err, qt.IsNil)
	_, err = com.CastBallot(ctx, e.ID, "v2", "v2-password", cands[0].ID)
	c.Assert(err, qt.IsNil)
	_, err = com.CastBallot(ctx, e.ID, "v3", "v3-password", cands[1].ID)
	c.Assert(err, qt.IsNil)
	// a second ballot by v1 is accepted for publication and rejected by the tally
	_, err = com.CastBallot(ctx, e.ID, "v1", "v1-password", cands[2].ID)
	c.Assert(err, qt.IsNil)

	_, err = com.CastBallot(ctx, e.ID, "v2", "wrong", cands[0].ID)
	c.Assert(errors.Is(err, sealer.ErrAuthentication), qt.IsTrue)
	_, err = com.CastBallot(ctx, e.ID, "v2", "v2-password", uuid.New())
	c.Assert(errors.Is(err, tally.ErrUnknownCandidate), qt.IsTrue)
	_, err = com.CastBallot(ctx, e.ID, "nobody", "pw", cands[0].ID)
	c.Assert(errors.Is(err, credential.ErrNotFound), qt.IsTrue)

	_, err = com.Tally(ctx, e.ID, password)
	c.Assert(errors.Is(err, tally.ErrElectionNotFinished), qt.IsTrue)

	c.Assert(com.SetStatus(ctx, e.ID, types.StatusFinished), qt.IsNil)
	_, _, err = com.RegisterVoter(ctx, e.ID, "late", "pw")
	c.Assert(errors.Is(err, ErrInvalidStatus), qt.IsTrue)
	c.Assert(errors.Is(com.SetStatus(ctx, e.ID, types.StatusActive), ErrInvalidStatus), qt.IsTrue)

	report, err := com.Tally(ctx, e.ID, password)
	c.Assert(err, qt.IsNil)
	c.Assert(report.Statistics, qt.Equals, tally.Statistics{
		TotalVotesProcessed: 4,
		ValidVotes:          3,
		DuplicateVotes:      1,
	})
	c.Assert(report.Winner.CandidateID, qt.Equals, cands[0].ID)
	c.Assert(report.Margin, qt.Equals, uint64(1))

	stored, err := com.Candidates(ctx, e.ID)
	c.Assert(err, qt.IsNil)
	votes := make(map[uuid.UUID]uint64)
	for _, cand := range stored {
		votes[cand.ID] = cand.Votes
	}
	c.Assert(votes, qt.DeepEquals, map[uuid.UUID]uint64{
		cands[0].ID: 2,
		cands[1].ID: 1,
		cands[2].ID: 0,
	})

	c.Assert(com.Reset(ctx, e.ID), qt.IsNil)
	rk, err := com.Results(ctx, e.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(rk.Winner, qt.IsNil)
}

func TestCreateElectionValidation(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	com, _ := newTestCommission(c)

	_, _, err := com.CreateElection(ctx, " ", password, []string{"a"})
	c.Assert(errors.Is(err, ErrInvalidElection), qt.IsTrue)
	_, _, err = com.CreateElection(ctx, "e", password, nil)
	c.Assert(errors.Is(err, ErrInvalidElection), qt.IsTrue)
	_, _, err = com.CreateElection(ctx, "e", password, []string{"a", "a"})
	c.Assert(errors.Is(err, ErrInvalidElection), qt.IsTrue)

	_, err = com.Election(ctx, uuid.New())
	c.Assert(errors.Is(err, election.ErrNotFound), qt.IsTrue)

	e1, _, err := com.CreateElection(ctx, "first", password, []string{"a"})
	c.Assert(err, qt.IsNil)
	e2, _, err := com.CreateElection(ctx, "second", password, []string{"b"})
	c.Assert(err, qt.IsNil)
	list, err := com.Elections(ctx)
	c.Assert(err, qt.IsNil)
	c.Assert(list, qt.HasLen, 2)
	ids := []uuid.UUID{list[0].ID, list[1].ID}
	c.Assert(ids, qt.Contains, e1.ID)
	c.Assert(ids, qt.Contains, e2.ID)
}

func TestKDFTimeout(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	com, _ := newTestCommission(c)

	e, cands, err := com.CreateElection(ctx, "board", password, []string{"ana"})
	c.Assert(err, qt.IsNil)
	_, _, err = com.RegisterVoter(ctx, e.ID, "v1", "pw-v1")
	c.Assert(err, qt.IsNil)
	c.Assert(com.SetStatus(ctx, e.ID, types.StatusActive), qt.IsNil)

	com.opts.KDFTimeout = time.Nanosecond
	_, err = com.CastBallot(ctx, e.ID, "v1", "pw-v1", cands[0].ID)
	c.Assert(err, qt.ErrorIs, kdf.ErrKeyDerivationTimeout)

	_, _, err = com.CreateElection(ctx, "late", password, []string{"ana"})
	c.Assert(err, qt.ErrorIs, kdf.ErrKeyDerivationTimeout)
	elections, err := com.Elections(ctx)
	c.Assert(err, qt.IsNil)
	c.Assert(elections, qt.HasLen, 1)
}

func TestLogsCarryNoVoterLinks(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	out := filepath.Join(t.TempDir(), "out.log")
	log.Init("debug", out)
	c.Cleanup(func() { log.Init("error", "stderr") })
	com, _ := newTestCommission(c)

	e, cands, err := com.CreateElection(ctx, "board", password, []string{"ana"})
	c.Assert(err, qt.IsNil)
	_, credURI, err := com.RegisterVoter(ctx, e.ID, "voter-7", "pw-7")
	c.Assert(err, qt.IsNil)
	c.Assert(com.SetStatus(ctx, e.ID, types.StatusActive), qt.IsNil)
	ballotURI, err := com.CastBallot(ctx, e.ID, "voter-7", "pw-7", cands[0].ID)
	c.Assert(err, qt.IsNil)
	_ = log.Logger().Sync()

	logs, err := os.ReadFile(out)
	c.Assert(err, qt.IsNil)
	c.Assert(string(logs), qt.Contains, "ballot published")
	for _, secret := range []string{credURI, ballotURI, "voter-7"} {
		c.Assert(strings.Contains(string(logs), secret), qt.IsFalse, qt.Commentf("%q logged", secret))
	}
}
