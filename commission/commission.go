// Package commission is the entry point of the election engine. It ties the
// record store, the content store and the keyed hash together and exposes
// the operations of an election lifecycle: creation, voter registration,
// ballot casting and tally.
package commission

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.anonvote.io/avote/ballot"
	"go.anonvote.io/avote/credential"
	"go.anonvote.io/avote/crypto"
	"go.anonvote.io/avote/crypto/kdf"
	"go.anonvote.io/avote/crypto/rsakey"
	"go.anonvote.io/avote/data"
	"go.anonvote.io/avote/election"
	"go.anonvote.io/avote/log"
	"go.anonvote.io/avote/recordstore"
	recorddb "go.anonvote.io/avote/recordstore/db"
	"go.anonvote.io/avote/tally"
	"go.anonvote.io/avote/types"
)

var (
	// ErrInvalidStatus is returned when an operation is not allowed in the
	// current status of the election.
	ErrInvalidStatus = errors.New("operation not allowed in current election status")
	// ErrInvalidElection is returned for malformed election definitions.
	ErrInvalidElection = errors.New("invalid election")
)

// Options tune the cryptographic cost and the tally fetch phase.
type Options struct {
	KeyBits          int
	KDFParams        kdf.Params
	FetchTimeout     time.Duration
	FetchConcurrency int
	MaxObjectSize    int64
	// KDFTimeout bounds the password derivations of one seal or unlock.
	KDFTimeout time.Duration
}

// DefaultOptions returns the options used in production.
func DefaultOptions() Options {
	return Options{
		KeyBits:          rsakey.MinBits,
		KDFParams:        kdf.DefaultParams,
		FetchTimeout:     tally.DefaultFetchTimeout,
		FetchConcurrency: tally.DefaultFetchConcurrency,
		MaxObjectSize:    tally.DefaultMaxObjectSize,
		KDFTimeout:       kdf.DefaultTimeout,
	}
}

// Commission runs elections.
type Commission struct {
	store   *recordstore.Store
	storage data.Storage
	hasher  crypto.Hasher
	opts    Options

	issuer *credential.Issuer
	tally  *tally.Engine
}

// New returns a Commission working on store and storage. hasher must be
// built from the server keyed hash secret.
func New(store *recordstore.Store, storage data.Storage, hasher crypto.Hasher, opts Options) *Commission {
	issuer := credential.NewIssuer(store, storage, hasher)
	issuer.KeyBits = opts.KeyBits
	issuer.KDFParams = opts.KDFParams
	issuer.KDFTimeout = opts.KDFTimeout

	engine := tally.New(store, storage, hasher)
	engine.FetchTimeout = opts.FetchTimeout
	engine.FetchConcurrency = opts.FetchConcurrency
	engine.MaxObjectSize = opts.MaxObjectSize
	engine.KDFTimeout = opts.KDFTimeout

	return &Commission{
		store:   store,
		storage: storage,
		hasher:  hasher,
		opts:    opts,
		issuer:  issuer,
		tally:   engine,
	}
}

// CreateElection generates the commission keys of a new election, sealed
// under password, and stores it with its candidates. The election starts
// as NotYetStarted.
func (c *Commission) CreateElection(ctx context.Context, name, password string,
	candidateNames []string,
) (*election.Election, []*election.Candidate, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil, fmt.Errorf("%w: empty name", ErrInvalidElection)
	}
	if len(candidateNames) == 0 {
		return nil, nil, fmt.Errorf("%w: no candidates", ErrInvalidElection)
	}
	seen := make(map[string]bool, len(candidateNames))
	for _, cn := range candidateNames {
		cn = strings.TrimSpace(cn)
		if cn == "" || seen[cn] {
			return nil, nil, fmt.Errorf("%w: empty or repeated candidate %q", ErrInvalidElection, cn)
		}
		seen[cn] = true
	}

	kctx, cancel := kdf.WithTimeout(ctx, c.opts.KDFTimeout)
	keys, err := election.NewKeyMaterial(kctx, password, c.opts.KeyBits, c.opts.KDFParams)
	cancel()
	if err != nil {
		return nil, nil, err
	}
	e := &election.Election{
		ID:        uuid.New(),
		Name:      name,
		Status:    types.StatusNotYetStarted,
		Keys:      keys,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	candidates := make([]*election.Candidate, 0, len(candidateNames))
	for _, cn := range candidateNames {
		candidates = append(candidates, &election.Candidate{
			ID:         uuid.New(),
			ElectionID: e.ID,
			Name:       strings.TrimSpace(cn),
		})
	}
	// the keys are already sealed, store them even if the caller leaves
	txctx := context.WithoutCancel(ctx)
	if err := c.store.WithTx(txctx, func(q *recorddb.Queries) error {
		return election.Create(txctx, q, e, candidates)
	}); err != nil {
		return nil, nil, err
	}
	log.Infow("election created", "election", e.ID.String(), "candidates", len(candidates))
	return e, candidates, nil
}

// SetStatus moves an election to status. Status only moves forward.
func (c *Commission) SetStatus(ctx context.Context, electionID uuid.UUID, status types.ElectionStatus) error {
	e, err := c.Election(ctx, electionID)
	if err != nil {
		return err
	}
	if status < e.Status || status > types.StatusFinished {
		return fmt.Errorf("%w: cannot move from %s to %s", ErrInvalidStatus, e.Status, status)
	}
	if err := election.SetStatus(ctx, c.store.Queries(), electionID, status); err != nil {
		return err
	}
	log.Infow("election status changed", "election", electionID.String(), "status", status.String())
	return nil
}

// Election loads an election.
func (c *Commission) Election(ctx context.Context, electionID uuid.UUID) (*election.Election, error) {
	return election.Get(ctx, c.store.Queries(), electionID)
}

// Elections lists every election.
func (c *Commission) Elections(ctx context.Context) ([]*election.Election, error) {
	return election.List(ctx, c.store.Queries())
}

// Candidates lists the candidates of an election with their stored counts.
func (c *Commission) Candidates(ctx context.Context, electionID uuid.UUID) ([]*election.Candidate, error) {
	if _, err := c.Election(ctx, electionID); err != nil {
		return nil, err
	}
	return election.Candidates(ctx, c.store.Queries(), electionID)
}

// RegisterVoter issues the credential of voterID for an election that has
// not finished. It returns the anonymous registration record and its URI.
func (c *Commission) RegisterVoter(ctx context.Context, electionID uuid.UUID, voterID, password string,
) (*credential.RegistrationRecord, string, error) {
	if strings.TrimSpace(voterID) == "" {
		return nil, "", fmt.Errorf("empty voter id")
	}
	e, err := c.Election(ctx, electionID)
	if err != nil {
		return nil, "", err
	}
	if e.Status == types.StatusFinished {
		return nil, "", fmt.Errorf("%w: election is %s", ErrInvalidStatus, e.Status)
	}
	_, reg, uri, err := c.issuer.Issue(ctx, electionID, voterID, password)
	if err != nil {
		return nil, "", err
	}
	return reg, uri, nil
}

// CastBallot unlocks the credential of voterID with password, masks and
// signs the choice of candidateID, seals it to the commission key and
// publishes it. It returns the ballot URI.
func (c *Commission) CastBallot(ctx context.Context, electionID uuid.UUID, voterID, password string,
	candidateID uuid.UUID,
) (string, error) {
	e, err := c.Election(ctx, electionID)
	if err != nil {
		return "", err
	}
	if e.Status != types.StatusActive {
		return "", fmt.Errorf("%w: election is %s", ErrInvalidStatus, e.Status)
	}
	candidates, err := election.Candidates(ctx, c.store.Queries(), electionID)
	if err != nil {
		return "", err
	}
	known := false
	for _, cand := range candidates {
		if cand.ID == candidateID {
			known = true
			break
		}
	}
	if !known {
		return "", fmt.Errorf("%w: %s", tally.ErrUnknownCandidate, candidateID)
	}

	cred, err := credential.Get(ctx, c.store.Queries(), electionID, voterID)
	if err != nil {
		return "", err
	}
	kctx, cancel := kdf.WithTimeout(ctx, c.opts.KDFTimeout)
	unlocked, err := credential.Unlock(kctx, cred, password)
	cancel()
	if err != nil {
		return "", err
	}
	pubPEM, err := unlocked.Keys.PublicKeyPEM()
	if err != nil {
		return "", err
	}
	vote, err := ballot.NewMaskedVote(candidateID)
	if err != nil {
		return "", err
	}
	signed, err := ballot.Sign(vote, unlocked.Keys)
	if err != nil {
		return "", err
	}

	commissionKey, err := e.Keys.Public()
	if err != nil {
		return "", err
	}
	sealer := ballot.NewSealer(commissionKey, c.hasher, c.storage)
	payload, err := sealer.Seal(vote, signed, pubPEM, unlocked.Token)
	if err != nil {
		return "", err
	}
	uri, err := sealer.Publish(ctx, payload)
	if err != nil {
		return "", fmt.Errorf("cannot publish ballot: %w", err)
	}
	if _, err := c.store.Queries().CreateBallot(ctx, recorddb.CreateBallotParams{
		ElectionID: electionID.String(),
		Uri:        uri,
	}); err != nil {
		if errors.Is(recordstore.Err(err), recordstore.ErrAlreadyExists) {
			return uri, nil
		}
		return "", err
	}
	log.Debugw("ballot published", "election", electionID.String())
	return uri, nil
}

// Tally recounts a finished election.
func (c *Commission) Tally(ctx context.Context, electionID uuid.UUID, password string) (*tally.Report, error) {
	return c.tally.Run(ctx, electionID, password)
}

// Results returns the stored counts of an election.
func (c *Commission) Results(ctx context.Context, electionID uuid.UUID) (*tally.Ranking, error) {
	return c.tally.Results(ctx, electionID)
}

// Reset zeroes the stored counts and hasVoted flags of an election.
func (c *Commission) Reset(ctx context.Context, electionID uuid.UUID) error {
	return c.tally.Reset(ctx, electionID)
}
