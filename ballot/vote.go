// Package ballot builds, seals and opens ballots.
//
// A vote is the candidate number masked with a random value. The voter signs
// the canonical {masked, rand} pair with the credential key, then the pair
// and the voter public key are sealed to the commission key. Only the
// commission can recover rand, and with it the candidate.
package ballot

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.anonvote.io/avote/crypto"
	"go.anonvote.io/avote/crypto/rsakey"
	"go.anonvote.io/avote/types"
)

var (
	// ErrSigning is returned when a vote cannot be signed, usually because
	// the key material is malformed.
	ErrSigning = errors.New("cannot sign vote")
	// ErrVerification is returned when a vote signature does not verify.
	ErrVerification = errors.New("vote signature verification failed")
	// ErrMalformedVote is returned for masked votes with missing or out of
	// range values.
	ErrMalformedVote = errors.New("malformed vote")
)

// MaskedVote is the masked candidate selection and its mask.
type MaskedVote struct {
	Masked *types.BigInt `json:"masked"`
	Rand   *types.BigInt `json:"rand"`
}

// NewMaskedVote masks the number of candidate with a fresh random value.
func NewMaskedVote(candidate uuid.UUID) (*MaskedVote, error) {
	rand, err := NewRand()
	if err != nil {
		return nil, err
	}
	return &MaskedVote{
		Masked: types.NewBigInt(Mask(CandidateNumber(candidate), rand)),
		Rand:   types.NewBigInt(rand),
	}, nil
}

// Validate checks that both values are present and in range.
func (v *MaskedVote) Validate() error {
	if v == nil || v.Masked == nil || v.Rand == nil {
		return fmt.Errorf("%w: missing masked or rand", ErrMalformedVote)
	}
	if !inRange(v.Masked.MathBigInt(), 0) {
		return fmt.Errorf("%w: masked out of range", ErrMalformedVote)
	}
	if !inRange(v.Rand.MathBigInt(), 1) {
		return fmt.Errorf("%w: rand out of range", ErrMalformedVote)
	}
	return nil
}

// Candidate de-masks the vote and returns the candidate ID it encodes.
func (v *MaskedVote) Candidate() (uuid.UUID, error) {
	if err := v.Validate(); err != nil {
		return uuid.Nil, err
	}
	return CandidateFromNumber(Mask(v.Masked.MathBigInt(), v.Rand.MathBigInt()))
}

// CanonicalBytes returns the signed representation of the vote: JSON with
// sorted keys and decimal string integers.
func (v *MaskedVote) CanonicalBytes() ([]byte, error) {
	if err := v.Validate(); err != nil {
		return nil, err
	}
	return crypto.SortedMarshalJSON(v)
}

// SignedVote is the published, signed half of a ballot. The mask is not
// included.
type SignedVote struct {
	MaskedVote *types.BigInt  `json:"maskedVote"`
	Signature  types.HexBytes `json:"signature"`
}

// Sign signs the canonical bytes of v.
func Sign(v *MaskedVote, signer crypto.Signer) (*SignedVote, error) {
	msg, err := v.CanonicalBytes()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSigning, err)
	}
	sig, err := signer.Sign(msg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSigning, err)
	}
	return &SignedVote{
		MaskedVote: types.NewBigInt(v.Masked.MathBigInt()),
		Signature:  sig,
	}, nil
}

// Verify checks signature over the canonical bytes of v.
func Verify(v *MaskedVote, signature []byte, verifier crypto.Verifier) error {
	msg, err := v.CanonicalBytes()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrVerification, err)
	}
	if err := verifier.Verify(msg, signature); err != nil {
		return fmt.Errorf("%w: %w", ErrVerification, err)
	}
	return nil
}

// MaskAndSign masks candidate and signs it with the voter private key given
// as PEM.
func MaskAndSign(candidate uuid.UUID, voterPrivateKeyPEM []byte) (*MaskedVote, *SignedVote, error) {
	keys, err := rsakey.ParsePrivateKeyPEM(voterPrivateKeyPEM)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrSigning, err)
	}
	vote, err := NewMaskedVote(candidate)
	if err != nil {
		return nil, nil, err
	}
	signed, err := Sign(vote, keys)
	if err != nil {
		return nil, nil, err
	}
	return vote, signed, nil
}
