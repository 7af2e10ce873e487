package recorddb

import (
	"context"
)

const createCandidate = `
INSERT INTO candidates (
	id, election_id, name, votes
) VALUES (
	?, ?, ?, 0
)
`

type CreateCandidateParams struct {
	ID         string
	ElectionID string
	Name       string
}

func (q *Queries) CreateCandidate(ctx context.Context, arg CreateCandidateParams) error {
	_, err := q.db.ExecContext(ctx, createCandidate, arg.ID, arg.ElectionID, arg.Name)
	return err
}

const listCandidates = `
SELECT id, election_id, name, votes FROM candidates
WHERE election_id = ?
ORDER BY id ASC
`

func (q *Queries) ListCandidates(ctx context.Context, electionID string) ([]Candidate, error) {
	rows, err := q.db.QueryContext(ctx, listCandidates, electionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Candidate
	for rows.Next() {
		var i Candidate
		if err := rows.Scan(
			&i.ID,
			&i.ElectionID,
			&i.Name,
			&i.Votes,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const setCandidateVotes = `
UPDATE candidates
SET votes = ?
WHERE id = ? AND election_id = ?
`

type SetCandidateVotesParams struct {
	Votes      int64
	ID         string
	ElectionID string
}

func (q *Queries) SetCandidateVotes(ctx context.Context, arg SetCandidateVotesParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, setCandidateVotes, arg.Votes, arg.ID, arg.ElectionID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const resetCandidateVotes = `
UPDATE candidates
SET votes = 0
WHERE election_id = ?
`

func (q *Queries) ResetCandidateVotes(ctx context.Context, electionID string) error {
	_, err := q.db.ExecContext(ctx, resetCandidateVotes, electionID)
	return err
}
