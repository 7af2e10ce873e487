package recorddb

import (
	"context"
)

const createRegistration = `
INSERT INTO registrations (
	election_id, uri, token_hash, public_key_hash, has_voted
) VALUES (
	?, ?, ?, ?, FALSE
)
`

type CreateRegistrationParams struct {
	ElectionID    string
	Uri           string
	TokenHash     []byte
	PublicKeyHash []byte
}

func (q *Queries) CreateRegistration(ctx context.Context, arg CreateRegistrationParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, createRegistration,
		arg.ElectionID,
		arg.Uri,
		arg.TokenHash,
		arg.PublicKeyHash,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

const listRegistrations = `
SELECT id, election_id, uri, token_hash, public_key_hash, has_voted FROM registrations
WHERE election_id = ?
ORDER BY id ASC
`

func (q *Queries) ListRegistrations(ctx context.Context, electionID string) ([]Registration, error) {
	rows, err := q.db.QueryContext(ctx, listRegistrations, electionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Registration
	for rows.Next() {
		var i Registration
		if err := rows.Scan(
			&i.ID,
			&i.ElectionID,
			&i.Uri,
			&i.TokenHash,
			&i.PublicKeyHash,
			&i.HasVoted,
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

const setRegistrationHasVoted = `
UPDATE registrations
SET has_voted = ?
WHERE id = ? AND election_id = ?
`

type SetRegistrationHasVotedParams struct {
	HasVoted   bool
	ID         int64
	ElectionID string
}

func (q *Queries) SetRegistrationHasVoted(ctx context.Context, arg SetRegistrationHasVotedParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, setRegistrationHasVoted, arg.HasVoted, arg.ID, arg.ElectionID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const resetRegistrations = `
UPDATE registrations
SET has_voted = FALSE
WHERE election_id = ?
`

func (q *Queries) ResetRegistrations(ctx context.Context, electionID string) error {
	_, err := q.db.ExecContext(ctx, resetRegistrations, electionID)
	return err
}
