package ballot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.anonvote.io/avote/crypto"
	"go.anonvote.io/avote/crypto/envelope"
	"go.anonvote.io/avote/data"
	"go.anonvote.io/avote/types"
)

var (
	// ErrMalformedPayload is returned when a published payload is not valid
	// JSON or lacks required fields.
	ErrMalformedPayload = errors.New("malformed ballot payload")
	// ErrDecryption is returned when a payload envelope cannot be opened
	// with the commission key.
	ErrDecryption = errors.New("cannot decrypt ballot")
)

// Payload is the object published per ballot. It is immutable once
// published and addressed by its content hash.
type Payload struct {
	EncryptedVote           *envelope.Envelope `json:"encryptedVote"`
	SignedVote              *SignedVote        `json:"signedVote"`
	EncryptedVoterPublicKey *envelope.Envelope `json:"encryptedVoterPublicKey"`
	TokenHash               types.HexBytes     `json:"tokenHash"`
}

// ParsePayload decodes and shape-checks a published payload. Missing fields
// are named in the returned error.
func ParsePayload(msg []byte) (*Payload, error) {
	var p Payload
	dec := json.NewDecoder(bytes.NewReader(msg))
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate reports the required fields missing from p.
func (p *Payload) Validate() error {
	var missing []string
	if p.EncryptedVote == nil || len(p.EncryptedVote.EncryptedKey) == 0 {
		missing = append(missing, "encryptedVote")
	}
	if p.SignedVote == nil {
		missing = append(missing, "signedVote")
	} else {
		if p.SignedVote.MaskedVote == nil {
			missing = append(missing, "signedVote.maskedVote")
		}
		if len(p.SignedVote.Signature) == 0 {
			missing = append(missing, "signedVote.signature")
		}
	}
	if len(p.TokenHash) == 0 {
		missing = append(missing, "tokenHash")
	}
	if p.EncryptedVoterPublicKey == nil || len(p.EncryptedVoterPublicKey.EncryptedKey) == 0 {
		missing = append(missing, "encryptedVoterPublicKey")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrMalformedPayload, strings.Join(missing, ", "))
	}
	return nil
}

// Sealer seals signed votes into payloads for one election and publishes
// them.
type Sealer struct {
	commission crypto.Encrypter
	hasher     crypto.Hasher
	storage    data.Storage
}

// NewSealer returns a Sealer encrypting to the commission public key.
func NewSealer(commission crypto.Encrypter, hasher crypto.Hasher, storage data.Storage) *Sealer {
	return &Sealer{
		commission: commission,
		hasher:     hasher,
		storage:    storage,
	}
}

// Seal builds the payload of a vote. vote must be the pair signed in signed.
// The token is only hashed, never included.
func (s *Sealer) Seal(vote *MaskedVote, signed *SignedVote, voterPublicKeyPEM, token []byte) (*Payload, error) {
	if err := vote.Validate(); err != nil {
		return nil, err
	}
	if signed == nil || !signed.MaskedVote.Equal(vote.Masked) {
		return nil, fmt.Errorf("%w: signed vote does not match", ErrMalformedVote)
	}
	if len(token) == 0 {
		return nil, fmt.Errorf("missing voter token")
	}
	voteJSON, err := json.Marshal(vote)
	if err != nil {
		return nil, err
	}
	encVote, err := envelope.Seal(voteJSON, s.commission)
	if err != nil {
		return nil, fmt.Errorf("cannot seal vote: %w", err)
	}
	encKey, err := envelope.Seal(voterPublicKeyPEM, s.commission)
	if err != nil {
		return nil, fmt.Errorf("cannot seal voter public key: %w", err)
	}
	return &Payload{
		EncryptedVote:           encVote,
		SignedVote:              signed,
		EncryptedVoterPublicKey: encKey,
		TokenHash:               s.hasher.Sum(token),
	}, nil
}

// Publish stores p and returns its content URI.
func (s *Sealer) Publish(ctx context.Context, p *Payload) (string, error) {
	msg, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return s.storage.Publish(ctx, msg)
}

// OpenVoterPublicKey decrypts the voter public key (PEM) of a payload.
func OpenVoterPublicKey(p *Payload, commission crypto.Cipher) ([]byte, error) {
	pub, err := envelope.Open(p.EncryptedVoterPublicKey, commission)
	if err != nil {
		return nil, fmt.Errorf("%w: voter public key: %w", ErrDecryption, err)
	}
	return pub, nil
}

// OpenVote decrypts the masked vote of a payload.
func OpenVote(p *Payload, commission crypto.Cipher) (*MaskedVote, error) {
	msg, err := envelope.Open(p.EncryptedVote, commission)
	if err != nil {
		return nil, fmt.Errorf("%w: vote: %w", ErrDecryption, err)
	}
	var vote MaskedVote
	if err := json.Unmarshal(msg, &vote); err != nil {
		return nil, fmt.Errorf("%w: vote: %v", ErrDecryption, err)
	}
	if err := vote.Validate(); err != nil {
		return nil, err
	}
	return &vote, nil
}
