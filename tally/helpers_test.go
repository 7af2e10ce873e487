package tally

import (
	"context"
	"encoding/json"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/google/uuid"
	"go.anonvote.io/avote/ballot"
	"go.anonvote.io/avote/credential"
	"go.anonvote.io/avote/crypto/keyedhash"
	"go.anonvote.io/avote/crypto/rsakey"
	"go.anonvote.io/avote/data"
	"go.anonvote.io/avote/election"
	"go.anonvote.io/avote/recordstore"
	recorddb "go.anonvote.io/avote/recordstore/db"
	"go.anonvote.io/avote/test/testcommon/testutil"
	"go.anonvote.io/avote/types"
)

const electionPassword = "commission-password"

type testElection struct {
	c          *qt.C
	ctx        context.Context
	store      *recordstore.Store
	storage    *data.DataMockTest
	hasher     *keyedhash.Hasher
	engine     *Engine
	issuer     *credential.Issuer
	sealer     *ballot.Sealer
	id         uuid.UUID
	candidates []uuid.UUID
}

type testVoter struct {
	keys   *rsakey.KeyPair
	pubPEM []byte
	token  []byte
}

func newTestElection(c *qt.C, ncandidates int) *testElection {
	ctx := context.Background()
	te := &testElection{
		c:       c,
		ctx:     ctx,
		store:   testutil.NewRecordStore(c),
		storage: data.NewDataMockTest(),
		hasher:  testutil.NewHasher(c),
		id:      uuid.New(),
	}
	te.engine = New(te.store, te.storage, te.hasher)
	te.issuer = credential.NewIssuer(te.store, te.storage, te.hasher)
	te.issuer.KDFParams = testutil.KDFParams

	keys, err := election.NewKeyMaterial(ctx, electionPassword, rsakey.MinBits, testutil.KDFParams)
	c.Assert(err, qt.IsNil)
	pub, err := keys.Public()
	c.Assert(err, qt.IsNil)
	te.sealer = ballot.NewSealer(pub, te.hasher, te.storage)

	var cands []*election.Candidate
	for i := 0; i < ncandidates; i++ {
		id := uuid.New()
		te.candidates = append(te.candidates, id)
		cands = append(cands, &election.Candidate{ID: id, ElectionID: te.id, Name: id.String()[:8]})
	}
	c.Assert(election.Create(ctx, te.store.Queries(), &election.Election{
		ID:        te.id,
		Name:      "test election",
		Status:    types.StatusActive,
		Keys:      keys,
		CreatedAt: time.Now(),
	}, cands), qt.IsNil)
	return te
}

func (te *testElection) finish() {
	te.c.Assert(election.SetStatus(te.ctx, te.store.Queries(), te.id, types.StatusFinished), qt.IsNil)
}

func (te *testElection) newVoter(voterID string) *testVoter {
	cred, _, _, err := te.issuer.Issue(te.ctx, te.id, voterID, "voter-password")
	te.c.Assert(err, qt.IsNil)
	unlocked, err := credential.Unlock(te.ctx, cred, "voter-password")
	te.c.Assert(err, qt.IsNil)
	pubPEM, err := unlocked.Keys.PublicKeyPEM()
	te.c.Assert(err, qt.IsNil)
	return &testVoter{keys: unlocked.Keys, pubPEM: pubPEM, token: unlocked.Token}
}

// cast seals a ballot signed by signer, claiming pubPEM and token, and
// records its URI.
func (te *testElection) cast(candidate uuid.UUID, signer *rsakey.KeyPair, pubPEM, token []byte) string {
	vote, err := ballot.NewMaskedVote(candidate)
	te.c.Assert(err, qt.IsNil)
	signed, err := ballot.Sign(vote, signer)
	te.c.Assert(err, qt.IsNil)
	payload, err := te.sealer.Seal(vote, signed, pubPEM, token)
	te.c.Assert(err, qt.IsNil)
	uri, err := te.sealer.Publish(te.ctx, payload)
	te.c.Assert(err, qt.IsNil)
	te.record(uri)
	return uri
}

func (te *testElection) vote(v *testVoter, candidate uuid.UUID) string {
	return te.cast(candidate, v.keys, v.pubPEM, v.token)
}

// publishRaw publishes an arbitrary JSON object as a ballot.
func (te *testElection) publishRaw(obj any) string {
	msg, err := json.Marshal(obj)
	te.c.Assert(err, qt.IsNil)
	uri, err := te.storage.Publish(te.ctx, msg)
	te.c.Assert(err, qt.IsNil)
	te.record(uri)
	return uri
}

func (te *testElection) record(uri string) {
	_, err := te.store.Queries().CreateBallot(te.ctx, recorddb.CreateBallotParams{
		ElectionID: te.id.String(),
		Uri:        uri,
	})
	te.c.Assert(err, qt.IsNil)
}

func (te *testElection) votes() map[uuid.UUID]uint64 {
	cands, err := election.Candidates(te.ctx, te.store.Queries(), te.id)
	te.c.Assert(err, qt.IsNil)
	m := make(map[uuid.UUID]uint64)
	for _, c := range cands {
		m[c.ID] = c.Votes
	}
	return m
}

func (te *testElection) votedRegistrations() int {
	rows, err := te.store.Queries().ListRegistrations(te.ctx, te.id.String())
	te.c.Assert(err, qt.IsNil)
	n := 0
	for _, r := range rows {
		if r.HasVoted {
			n++
		}
	}
	return n
}

func outcomeFor(c *qt.C, r *Report, uri string) Outcome {
	for _, o := range r.Outcomes {
		if o.URI == uri {
			return o
		}
	}
	c.Fatalf("no outcome for %s", uri)
	return Outcome{}
}
