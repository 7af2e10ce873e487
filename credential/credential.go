// Package credential issues the per voter, per election credentials: an RSA
// keypair and a random anonymous token, both sealed under the voter's
// password, plus the anonymous registration record published for the tally.
package credential

import (
	"context"
	cryptorand "crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.anonvote.io/avote/crypto"
	"go.anonvote.io/avote/crypto/kdf"
	"go.anonvote.io/avote/crypto/rsakey"
	"go.anonvote.io/avote/crypto/sealer"
	"go.anonvote.io/avote/data"
	"go.anonvote.io/avote/log"
	"go.anonvote.io/avote/recordstore"
	recorddb "go.anonvote.io/avote/recordstore/db"
	"go.anonvote.io/avote/types"
)

// TokenSize is the size of the anonymous token.
const TokenSize = 32

var (
	// ErrCredentialExists is returned when the voter already holds a
	// credential for the election.
	ErrCredentialExists = errors.New("credential already exists for this voter and election")
	// ErrNotFound is returned when the voter holds no credential for the
	// election.
	ErrNotFound = errors.New("credential not found")
)

// VoterCredential is the sealed credential of one voter in one election.
// The public key is not kept in clear; it is derived from the private key
// once the credential is unlocked.
type VoterCredential struct {
	VoterID    string               `json:"voterId"`
	ElectionID uuid.UUID            `json:"electionId"`
	PrivateKey *sealer.SealedSecret `json:"privateKey"`
	Token      *sealer.SealedSecret `json:"token"`
}

// RegistrationRecord is the anonymous half of a credential. It carries no
// voter identity. The HasVoted flag of the published copy is always false;
// the live flag is kept by the record store.
type RegistrationRecord struct {
	ElectionID    uuid.UUID      `json:"electionId"`
	TokenHash     types.HexBytes `json:"tokenHash"`
	PublicKeyHash types.HexBytes `json:"publicKeyHash"`
	HasVoted      bool           `json:"hasVoted"`
}

// Unlocked is a credential opened with the voter's password.
type Unlocked struct {
	Keys  *rsakey.KeyPair
	Token []byte
}

// Issuer creates credentials and publishes their registration records.
type Issuer struct {
	store   *recordstore.Store
	storage data.Storage
	hasher  crypto.Hasher

	// KeyBits is the voter key size.
	KeyBits int
	// KDFParams are the cost parameters used to seal new credentials.
	KDFParams kdf.Params
	// KDFTimeout bounds the password derivations of one Issue call.
	KDFTimeout time.Duration
}

// NewIssuer returns an Issuer with default key size and KDF parameters.
func NewIssuer(store *recordstore.Store, storage data.Storage, hasher crypto.Hasher) *Issuer {
	return &Issuer{
		store:     store,
		storage:   storage,
		hasher:    hasher,
		KeyBits:    rsakey.MinBits,
		KDFParams:  kdf.DefaultParams,
		KDFTimeout: kdf.DefaultTimeout,
	}
}

// Issue generates, seals and stores a credential for voterID in electionID,
// publishes its registration record and returns the record URI.
func (i *Issuer) Issue(ctx context.Context, electionID uuid.UUID, voterID, password string,
) (*VoterCredential, *RegistrationRecord, string, error) {
	q := i.store.Queries()
	if _, err := q.GetCredential(ctx, recorddb.GetCredentialParams{
		VoterID:    voterID,
		ElectionID: electionID.String(),
	}); err == nil {
		return nil, nil, "", ErrCredentialExists
	} else if !errors.Is(recordstore.Err(err), recordstore.ErrNotFound) {
		return nil, nil, "", err
	}

	keys, err := rsakey.Generate(i.KeyBits)
	if err != nil {
		return nil, nil, "", err
	}
	privPEM, err := keys.PrivateKeyPEM()
	if err != nil {
		return nil, nil, "", err
	}
	pubPEM, err := keys.PublicKeyPEM()
	if err != nil {
		return nil, nil, "", err
	}
	token := make([]byte, TokenSize)
	if _, err := io.ReadFull(cryptorand.Reader, token); err != nil {
		return nil, nil, "", fmt.Errorf("cannot read token: %w", err)
	}

	kctx, cancel := kdf.WithTimeout(ctx, i.KDFTimeout)
	defer cancel()
	sealedKey, err := sealer.SealWithPassword(kctx, privPEM, password, i.KDFParams)
	if err != nil {
		return nil, nil, "", fmt.Errorf("cannot seal private key: %w", err)
	}
	sealedToken, err := sealer.SealWithPassword(kctx, token, password, i.KDFParams)
	if err != nil {
		return nil, nil, "", fmt.Errorf("cannot seal token: %w", err)
	}
	cred := &VoterCredential{
		VoterID:    voterID,
		ElectionID: electionID,
		PrivateKey: sealedKey,
		Token:      sealedToken,
	}
	reg := &RegistrationRecord{
		ElectionID:    electionID,
		TokenHash:     i.hasher.Sum(token),
		PublicKeyHash: i.hasher.Sum(pubPEM),
	}

	regJSON, err := json.Marshal(reg)
	if err != nil {
		return nil, nil, "", err
	}
	uri, err := i.storage.Publish(ctx, regJSON)
	if err != nil {
		return nil, nil, "", fmt.Errorf("cannot publish registration: %w", err)
	}

	keyJSON, err := json.Marshal(cred.PrivateKey)
	if err != nil {
		return nil, nil, "", err
	}
	tokenJSON, err := json.Marshal(cred.Token)
	if err != nil {
		return nil, nil, "", err
	}
	if err := i.store.WithTx(ctx, func(q *recorddb.Queries) error {
		if err := q.CreateCredential(ctx, recorddb.CreateCredentialParams{
			VoterID:          voterID,
			ElectionID:       electionID.String(),
			SealedPrivateKey: keyJSON,
			SealedToken:      tokenJSON,
		}); err != nil {
			return err
		}
		_, err := q.CreateRegistration(ctx, recorddb.CreateRegistrationParams{
			ElectionID:    electionID.String(),
			Uri:           uri,
			TokenHash:     reg.TokenHash,
			PublicKeyHash: reg.PublicKeyHash,
		})
		return err
	}); err != nil {
		if errors.Is(recordstore.Err(err), recordstore.ErrAlreadyExists) {
			return nil, nil, "", ErrCredentialExists
		}
		return nil, nil, "", err
	}
	log.Debugw("credential issued", "election", electionID.String())
	return cred, reg, uri, nil
}

// Get loads the sealed credential of voterID in electionID.
func Get(ctx context.Context, q *recorddb.Queries, electionID uuid.UUID, voterID string) (*VoterCredential, error) {
	row, err := q.GetCredential(ctx, recorddb.GetCredentialParams{
		VoterID:    voterID,
		ElectionID: electionID.String(),
	})
	if err != nil {
		if errors.Is(recordstore.Err(err), recordstore.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	cred := &VoterCredential{VoterID: voterID, ElectionID: electionID}
	if err := json.Unmarshal(row.SealedPrivateKey, &cred.PrivateKey); err != nil {
		return nil, fmt.Errorf("sealed private key: %w", err)
	}
	if err := json.Unmarshal(row.SealedToken, &cred.Token); err != nil {
		return nil, fmt.Errorf("sealed token: %w", err)
	}
	return cred, nil
}

// Unlock opens the credential with the voter's password. A wrong password
// yields sealer.ErrAuthentication. Callers bound ctx with kdf.WithTimeout.
func Unlock(ctx context.Context, cred *VoterCredential, password string) (*Unlocked, error) {
	privPEM, err := sealer.OpenWithPassword(ctx, cred.PrivateKey, password)
	if err != nil {
		return nil, err
	}
	keys, err := rsakey.ParsePrivateKeyPEM(privPEM)
	if err != nil {
		return nil, err
	}
	token, err := sealer.OpenWithPassword(ctx, cred.Token, password)
	if err != nil {
		return nil, err
	}
	return &Unlocked{Keys: keys, Token: token}, nil
}
