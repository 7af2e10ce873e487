// Package tally recounts an election from its published registrations and
// ballots.
//
// A run unlocks the commission key, fetches every published object
// concurrently and then validates the ballots one by one against an in-memory
// registration map. Counters and hasVoted flags are only written to the record
// store once the whole pass is done, in a single transaction, so a failed or
// cancelled run leaves the stored state untouched.
package tally

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.anonvote.io/avote/crypto"
	"go.anonvote.io/avote/crypto/kdf"
	"go.anonvote.io/avote/data"
	"go.anonvote.io/avote/election"
	"go.anonvote.io/avote/log"
	"go.anonvote.io/avote/recordstore"
	recorddb "go.anonvote.io/avote/recordstore/db"
	"go.anonvote.io/avote/types"
)

const (
	// DefaultFetchTimeout bounds each content store read.
	DefaultFetchTimeout = 30 * time.Second
	// DefaultFetchConcurrency is the number of parallel content store reads.
	DefaultFetchConcurrency = 16
	// DefaultMaxObjectSize is the largest registration or ballot accepted.
	DefaultMaxObjectSize = 1 << 20
)

var (
	// ErrElectionNotFinished is returned when a tally is requested for an
	// election whose status is not Finished.
	ErrElectionNotFinished = errors.New("election is not finished")
	// ErrUnknownCredential marks ballots whose token hash has no matching
	// registration, or whose public key does not match it.
	ErrUnknownCredential = errors.New("unknown credential")
	// ErrDuplicateCredential marks ballots cast with a credential that was
	// already counted.
	ErrDuplicateCredential = errors.New("credential already used")
	// ErrUnknownCandidate marks ballots that de-mask to no candidate of the
	// election.
	ErrUnknownCandidate = errors.New("unknown candidate")
)

// OutcomeKind classifies a processed ballot.
type OutcomeKind string

const (
	Valid     OutcomeKind = "Valid"
	Duplicate OutcomeKind = "Duplicate"
	Invalid   OutcomeKind = "Invalid"
)

// Outcome is the verdict on one published ballot. Candidate is only set on
// Valid outcomes.
type Outcome struct {
	URI       string      `json:"uri"`
	Kind      OutcomeKind `json:"kind"`
	Reason    string      `json:"reason,omitempty"`
	Candidate *uuid.UUID  `json:"candidate,omitempty"`
	Err       error       `json:"-"`
}

// Statistics aggregates the outcomes of a run.
type Statistics struct {
	TotalVotesProcessed int `json:"totalVotesProcessed"`
	ValidVotes          int `json:"validVotes"`
	DuplicateVotes      int `json:"duplicateVotes"`
	InvalidVotes        int `json:"invalidVotes"`
}

func (s *Statistics) add(kind OutcomeKind) {
	s.TotalVotesProcessed++
	switch kind {
	case Valid:
		s.ValidVotes++
	case Duplicate:
		s.DuplicateVotes++
	case Invalid:
		s.InvalidVotes++
	}
}

// Report is the full, auditable result of a tally run.
type Report struct {
	ElectionID uuid.UUID  `json:"electionId"`
	Statistics Statistics `json:"statistics"`
	Outcomes   []Outcome  `json:"outcomes"`
	*Ranking
}

// Engine runs tallies against a record store and a content store. The
// hasher must be built from the same secret as the credential issuer's.
type Engine struct {
	store   *recordstore.Store
	storage data.Storage
	hasher  crypto.Hasher

	FetchTimeout     time.Duration
	FetchConcurrency int
	MaxObjectSize    int64
	// KDFTimeout bounds the derivation that unlocks the commission key.
	KDFTimeout time.Duration
}

// New returns an Engine with the default fetch settings.
func New(store *recordstore.Store, storage data.Storage, hasher crypto.Hasher) *Engine {
	return &Engine{
		store:            store,
		storage:          storage,
		hasher:           hasher,
		FetchTimeout:     DefaultFetchTimeout,
		FetchConcurrency: DefaultFetchConcurrency,
		MaxObjectSize:    DefaultMaxObjectSize,
		KDFTimeout:       kdf.DefaultTimeout,
	}
}

// Run recounts electionID. Only a missing or unfinished election, a wrong
// password or a storage failure make it fail; problems with single ballots
// are reported in their outcomes.
func (e *Engine) Run(ctx context.Context, electionID uuid.UUID, password string) (*Report, error) {
	start := time.Now()
	report, err := e.run(ctx, electionID, password)
	RunDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		Runs.WithLabelValues("failed").Inc()
		return nil, err
	}
	Runs.WithLabelValues("ok").Inc()
	log.Infow("tally finished",
		"election", electionID.String(),
		"processed", report.Statistics.TotalVotesProcessed,
		"valid", report.Statistics.ValidVotes,
		"duplicate", report.Statistics.DuplicateVotes,
		"invalid", report.Statistics.InvalidVotes,
		"elapsed", time.Since(start).String())
	return report, nil
}

func (e *Engine) run(ctx context.Context, electionID uuid.UUID, password string) (*Report, error) {
	q := e.store.Queries()
	el, err := election.Get(ctx, q, electionID)
	if err != nil {
		return nil, err
	}
	if el.Status != types.StatusFinished {
		return nil, fmt.Errorf("%w: %s is %s", ErrElectionNotFinished, electionID, el.Status)
	}
	kctx, cancel := kdf.WithTimeout(ctx, e.KDFTimeout)
	keys, err := el.Keys.Unlock(kctx, password)
	cancel()
	if err != nil {
		return nil, err
	}
	candidates, err := election.Candidates(ctx, q, electionID)
	if err != nil {
		return nil, err
	}
	regRows, err := q.ListRegistrations(ctx, electionID.String())
	if err != nil {
		return nil, err
	}
	ballotRows, err := q.ListBallots(ctx, electionID.String())
	if err != nil {
		return nil, err
	}

	regs, ballots, err := e.fetch(ctx, regRows, ballotRows)
	if err != nil {
		return nil, err
	}

	r := newRun(electionID, keys, e.hasher, candidates)
	r.loadRegistrations(regRows, regs)
	for i, b := range ballotRows {
		out := r.process(b.Uri, ballots[i])
		if out.Kind != Valid {
			log.Debugw("ballot rejected", "election", electionID.String(), "uri", b.Uri,
				"kind", out.Kind, "reason", out.Reason)
		}
		r.outcomes = append(r.outcomes, out)
		r.stats.add(out.Kind)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// once started, the transaction is not abandoned halfway
	if err := e.persist(context.WithoutCancel(ctx), r); err != nil {
		return nil, fmt.Errorf("cannot store tally: %w", err)
	}
	for _, out := range r.outcomes {
		Outcomes.WithLabelValues(string(out.Kind)).Inc()
	}

	for _, c := range candidates {
		c.Votes = r.counts[c.ID]
	}
	return &Report{
		ElectionID: electionID,
		Statistics: r.stats,
		Outcomes:   r.outcomes,
		Ranking:    Rank(candidates),
	}, nil
}

// persist replaces the stored counters and flags of the election with the
// ones computed by r.
func (e *Engine) persist(ctx context.Context, r *run) error {
	return e.store.WithTx(ctx, func(q *recorddb.Queries) error {
		id := r.electionID.String()
		if err := q.ResetCandidateVotes(ctx, id); err != nil {
			return err
		}
		if err := q.ResetRegistrations(ctx, id); err != nil {
			return err
		}
		for candidate, votes := range r.counts {
			if votes == 0 {
				continue
			}
			if _, err := q.SetCandidateVotes(ctx, recorddb.SetCandidateVotesParams{
				Votes:      int64(votes),
				ID:         candidate.String(),
				ElectionID: id,
			}); err != nil {
				return err
			}
		}
		for _, reg := range r.registrations {
			if !reg.hasVoted {
				continue
			}
			if _, err := q.SetRegistrationHasVoted(ctx, recorddb.SetRegistrationHasVotedParams{
				HasVoted:   true,
				ID:         reg.id,
				ElectionID: id,
			}); err != nil {
				return err
			}
		}
		return nil
	})
}

// Results returns the stored counters of electionID, ranked, without
// running the pipeline.
func (e *Engine) Results(ctx context.Context, electionID uuid.UUID) (*Ranking, error) {
	q := e.store.Queries()
	if _, err := election.Get(ctx, q, electionID); err != nil {
		return nil, err
	}
	candidates, err := election.Candidates(ctx, q, electionID)
	if err != nil {
		return nil, err
	}
	return Rank(candidates), nil
}

// Reset zeroes the counters and hasVoted flags of electionID.
func (e *Engine) Reset(ctx context.Context, electionID uuid.UUID) error {
	if _, err := election.Get(ctx, e.store.Queries(), electionID); err != nil {
		return err
	}
	err := e.store.WithTx(ctx, func(q *recorddb.Queries) error {
		if err := q.ResetCandidateVotes(ctx, electionID.String()); err != nil {
			return err
		}
		return q.ResetRegistrations(ctx, electionID.String())
	})
	if err != nil {
		return err
	}
	log.Infow("tally reset", "election", electionID.String())
	return nil
}
