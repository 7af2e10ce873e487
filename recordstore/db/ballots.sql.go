package recorddb

import (
	"context"
)

const createBallot = `
INSERT INTO ballots (
	election_id, uri
) VALUES (
	?, ?
)
`

type CreateBallotParams struct {
	ElectionID string
	Uri        string
}

func (q *Queries) CreateBallot(ctx context.Context, arg CreateBallotParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, createBallot, arg.ElectionID, arg.Uri)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

const listBallots = `
SELECT id, election_id, uri FROM ballots
WHERE election_id = ?
ORDER BY id ASC
`

func (q *Queries) ListBallots(ctx context.Context, electionID string) ([]Ballot, error) {
	rows, err := q.db.QueryContext(ctx, listBallots, electionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Ballot
	for rows.Next() {
		var i Ballot
		if err := rows.Scan(&i.ID, &i.ElectionID, &i.Uri); err != nil {
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
