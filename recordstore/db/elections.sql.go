package recorddb

import (
	"context"
	"time"
)

const createElection = `
INSERT INTO elections (
	id, name, status, public_key, sealed_private_key, created_at
) VALUES (
	?, ?, ?, ?, ?, ?
)
`

type CreateElectionParams struct {
	ID               string
	Name             string
	Status           int64
	PublicKey        []byte
	SealedPrivateKey []byte
	CreatedAt        time.Time
}

func (q *Queries) CreateElection(ctx context.Context, arg CreateElectionParams) error {
	_, err := q.db.ExecContext(ctx, createElection,
		arg.ID,
		arg.Name,
		arg.Status,
		arg.PublicKey,
		arg.SealedPrivateKey,
		arg.CreatedAt,
	)
	return err
}

const getElection = `
SELECT id, name, status, public_key, sealed_private_key, created_at FROM elections
WHERE id = ?
LIMIT 1
`

func (q *Queries) GetElection(ctx context.Context, id string) (Election, error) {
	row := q.db.QueryRowContext(ctx, getElection, id)
	var i Election
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Status,
		&i.PublicKey,
		&i.SealedPrivateKey,
		&i.CreatedAt,
	)
	return i, err
}

const listElections = `
SELECT id, name, status, public_key, sealed_private_key, created_at FROM elections
ORDER BY created_at ASC, id ASC
`

func (q *Queries) ListElections(ctx context.Context) ([]Election, error) {
	rows, err := q.db.QueryContext(ctx, listElections)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Election
	for rows.Next() {
		var i Election
		if err := rows.Scan(
			&i.ID,
			&i.Name,
			&i.Status,
			&i.PublicKey,
			&i.SealedPrivateKey,
			&i.CreatedAt,
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

const setElectionStatus = `
UPDATE elections
SET status = ?
WHERE id = ?
`

type SetElectionStatusParams struct {
	Status int64
	ID     string
}

func (q *Queries) SetElectionStatus(ctx context.Context, arg SetElectionStatusParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, setElectionStatus, arg.Status, arg.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
