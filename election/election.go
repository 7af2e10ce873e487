// Package election holds the election and candidate records as seen by the
// ballot engine, together with the commission key material.
package election

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.anonvote.io/avote/recordstore"
	recorddb "go.anonvote.io/avote/recordstore/db"
	"go.anonvote.io/avote/types"
)

// ErrNotFound is returned when an election does not exist.
var ErrNotFound = errors.New("election not found")

// Election is an election and its commission key material.
type Election struct {
	ID        uuid.UUID            `json:"id"`
	Name      string               `json:"name"`
	Status    types.ElectionStatus `json:"status"`
	Keys      *KeyMaterial         `json:"-"`
	CreatedAt time.Time            `json:"createdAt"`
}

// Candidate is a selectable option of an election. Votes is only written by
// the tally engine.
type Candidate struct {
	ID         uuid.UUID `json:"id"`
	ElectionID uuid.UUID `json:"electionId"`
	Name       string    `json:"name"`
	Votes      uint64    `json:"votes"`
}

// Create stores e and its candidates.
func Create(ctx context.Context, q *recorddb.Queries, e *Election, candidates []*Candidate) error {
	if e.Keys == nil {
		return fmt.Errorf("election %s has no key material", e.ID)
	}
	sealedKey, err := json.Marshal(e.Keys.PrivateKey)
	if err != nil {
		return err
	}
	if err := q.CreateElection(ctx, recorddb.CreateElectionParams{
		ID:               e.ID.String(),
		Name:             e.Name,
		Status:           int64(e.Status),
		PublicKey:        e.Keys.PublicKey,
		SealedPrivateKey: sealedKey,
		CreatedAt:        e.CreatedAt,
	}); err != nil {
		return recordstore.Err(err)
	}
	for _, c := range candidates {
		if err := q.CreateCandidate(ctx, recorddb.CreateCandidateParams{
			ID:         c.ID.String(),
			ElectionID: e.ID.String(),
			Name:       c.Name,
		}); err != nil {
			return recordstore.Err(err)
		}
	}
	return nil
}

// Get loads an election.
func Get(ctx context.Context, q *recorddb.Queries, id uuid.UUID) (*Election, error) {
	row, err := q.GetElection(ctx, id.String())
	if err != nil {
		if errors.Is(recordstore.Err(err), recordstore.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, err
	}
	return fromRecord(row)
}

// List loads all elections, oldest first.
func List(ctx context.Context, q *recorddb.Queries) ([]*Election, error) {
	rows, err := q.ListElections(ctx)
	if err != nil {
		return nil, err
	}
	elections := make([]*Election, 0, len(rows))
	for _, row := range rows {
		e, err := fromRecord(row)
		if err != nil {
			return nil, err
		}
		elections = append(elections, e)
	}
	return elections, nil
}

// SetStatus updates the status of an election.
func SetStatus(ctx context.Context, q *recorddb.Queries, id uuid.UUID, status types.ElectionStatus) error {
	n, err := q.SetElectionStatus(ctx, recorddb.SetElectionStatusParams{
		Status: int64(status),
		ID:     id.String(),
	})
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// Candidates loads the candidates of an election ordered by ID.
func Candidates(ctx context.Context, q *recorddb.Queries, electionID uuid.UUID) ([]*Candidate, error) {
	rows, err := q.ListCandidates(ctx, electionID.String())
	if err != nil {
		return nil, err
	}
	candidates := make([]*Candidate, 0, len(rows))
	for _, row := range rows {
		id, err := uuid.Parse(row.ID)
		if err != nil {
			return nil, fmt.Errorf("candidate %q: %w", row.ID, err)
		}
		candidates = append(candidates, &Candidate{
			ID:         id,
			ElectionID: electionID,
			Name:       row.Name,
			Votes:      uint64(row.Votes),
		})
	}
	return candidates, nil
}

func fromRecord(row recorddb.Election) (*Election, error) {
	id, err := uuid.Parse(row.ID)
	if err != nil {
		return nil, fmt.Errorf("election %q: %w", row.ID, err)
	}
	keys := &KeyMaterial{PublicKey: row.PublicKey}
	if err := json.Unmarshal(row.SealedPrivateKey, &keys.PrivateKey); err != nil {
		return nil, fmt.Errorf("election %s: sealed key: %w", id, err)
	}
	return &Election{
		ID:        id,
		Name:      row.Name,
		Status:    types.ElectionStatus(row.Status),
		Keys:      keys,
		CreatedAt: row.CreatedAt,
	}, nil
}
