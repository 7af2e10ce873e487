package recordstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	recorddb "go.anonvote.io/avote/recordstore/db"
)

func newTestStore(t *testing.T) *Store {
	s, err := New(filepath.Join(t.TempDir(), "records.sqlite"))
	qt.Assert(t, err, qt.IsNil)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestElectionsAndCandidates(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	s := newTestStore(t)
	q := s.Queries()

	err := q.CreateElection(ctx, recorddb.CreateElectionParams{
		ID:               "e1",
		Name:             "board",
		PublicKey:        []byte("pub"),
		SealedPrivateKey: []byte("{}"),
		CreatedAt:        time.Now(),
	})
	c.Assert(err, qt.IsNil)

	err = q.CreateElection(ctx, recorddb.CreateElectionParams{
		ID: "e1", Name: "dup", PublicKey: []byte("p"), SealedPrivateKey: []byte("{}"), CreatedAt: time.Now(),
	})
	c.Assert(errors.Is(Err(err), ErrAlreadyExists), qt.IsTrue)

	_, err = q.GetElection(ctx, "missing")
	c.Assert(errors.Is(Err(err), ErrNotFound), qt.IsTrue)

	n, err := q.SetElectionStatus(ctx, recorddb.SetElectionStatusParams{Status: 2, ID: "e1"})
	c.Assert(err, qt.IsNil)
	c.Assert(n, qt.Equals, int64(1))
	e, err := q.GetElection(ctx, "e1")
	c.Assert(err, qt.IsNil)
	c.Assert(e.Status, qt.Equals, int64(2))

	for _, id := range []string{"b", "a", "c"} {
		c.Assert(q.CreateCandidate(ctx, recorddb.CreateCandidateParams{ID: id, ElectionID: "e1", Name: "cand " + id}), qt.IsNil)
	}
	// unknown election violates the foreign key
	c.Assert(q.CreateCandidate(ctx, recorddb.CreateCandidateParams{ID: "x", ElectionID: "nope", Name: "x"}), qt.IsNotNil)

	cands, err := q.ListCandidates(ctx, "e1")
	c.Assert(err, qt.IsNil)
	c.Assert(cands, qt.HasLen, 3)
	c.Assert(cands[0].ID, qt.Equals, "a")
	c.Assert(cands[0].Votes, qt.Equals, int64(0))
}

func TestRegistrationUniqueness(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	s := newTestStore(t)
	q := s.Queries()
	c.Assert(q.CreateElection(ctx, recorddb.CreateElectionParams{
		ID: "e1", Name: "n", PublicKey: []byte("p"), SealedPrivateKey: []byte("{}"), CreatedAt: time.Now(),
	}), qt.IsNil)

	id, err := q.CreateRegistration(ctx, recorddb.CreateRegistrationParams{
		ElectionID: "e1", Uri: "ipfs://a", TokenHash: []byte{1}, PublicKeyHash: []byte{2},
	})
	c.Assert(err, qt.IsNil)
	c.Assert(id > 0, qt.IsTrue)

	_, err = q.CreateRegistration(ctx, recorddb.CreateRegistrationParams{
		ElectionID: "e1", Uri: "ipfs://b", TokenHash: []byte{1}, PublicKeyHash: []byte{3},
	})
	c.Assert(errors.Is(Err(err), ErrAlreadyExists), qt.IsTrue)
	_, err = q.CreateRegistration(ctx, recorddb.CreateRegistrationParams{
		ElectionID: "e1", Uri: "ipfs://c", TokenHash: []byte{4}, PublicKeyHash: []byte{2},
	})
	c.Assert(errors.Is(Err(err), ErrAlreadyExists), qt.IsTrue)

	c.Assert(q.CreateCredential(ctx, recorddb.CreateCredentialParams{
		VoterID: "v1", ElectionID: "e1", SealedPrivateKey: []byte("k"), SealedToken: []byte("t"),
	}), qt.IsNil)
	err = q.CreateCredential(ctx, recorddb.CreateCredentialParams{
		VoterID: "v1", ElectionID: "e1", SealedPrivateKey: []byte("k2"), SealedToken: []byte("t2"),
	})
	c.Assert(errors.Is(Err(err), ErrAlreadyExists), qt.IsTrue)
}

func TestWithTxRollback(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	s := newTestStore(t)
	q := s.Queries()
	c.Assert(q.CreateElection(ctx, recorddb.CreateElectionParams{
		ID: "e1", Name: "n", PublicKey: []byte("p"), SealedPrivateKey: []byte("{}"), CreatedAt: time.Now(),
	}), qt.IsNil)
	c.Assert(q.CreateCandidate(ctx, recorddb.CreateCandidateParams{ID: "a", ElectionID: "e1", Name: "a"}), qt.IsNil)

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(q *recorddb.Queries) error {
		if _, err := q.SetCandidateVotes(ctx, recorddb.SetCandidateVotesParams{Votes: 7, ID: "a", ElectionID: "e1"}); err != nil {
			return err
		}
		return boom
	})
	c.Assert(err, qt.Equals, boom)
	cands, err := q.ListCandidates(ctx, "e1")
	c.Assert(err, qt.IsNil)
	c.Assert(cands[0].Votes, qt.Equals, int64(0))

	err = s.WithTx(ctx, func(q *recorddb.Queries) error {
		_, err := q.SetCandidateVotes(ctx, recorddb.SetCandidateVotesParams{Votes: 7, ID: "a", ElectionID: "e1"})
		return err
	})
	c.Assert(err, qt.IsNil)
	cands, err = q.ListCandidates(ctx, "e1")
	c.Assert(err, qt.IsNil)
	c.Assert(cands[0].Votes, qt.Equals, int64(7))
}
