package recorddb

import (
	"context"
)

const createCredential = `
INSERT INTO credentials (
	voter_id, election_id, sealed_private_key, sealed_token
) VALUES (
	?, ?, ?, ?
)
`

type CreateCredentialParams struct {
	VoterID          string
	ElectionID       string
	SealedPrivateKey []byte
	SealedToken      []byte
}

func (q *Queries) CreateCredential(ctx context.Context, arg CreateCredentialParams) error {
	_, err := q.db.ExecContext(ctx, createCredential,
		arg.VoterID,
		arg.ElectionID,
		arg.SealedPrivateKey,
		arg.SealedToken,
	)
	return err
}

const getCredential = `
SELECT voter_id, election_id, sealed_private_key, sealed_token FROM credentials
WHERE voter_id = ? AND election_id = ?
LIMIT 1
`

type GetCredentialParams struct {
	VoterID    string
	ElectionID string
}

func (q *Queries) GetCredential(ctx context.Context, arg GetCredentialParams) (Credential, error) {
	row := q.db.QueryRowContext(ctx, getCredential, arg.VoterID, arg.ElectionID)
	var i Credential
	err := row.Scan(
		&i.VoterID,
		&i.ElectionID,
		&i.SealedPrivateKey,
		&i.SealedToken,
	)
	return i, err
}
