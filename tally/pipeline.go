package tally

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.anonvote.io/avote/ballot"
	"go.anonvote.io/avote/credential"
	"go.anonvote.io/avote/crypto"
	"go.anonvote.io/avote/crypto/rsakey"
	"go.anonvote.io/avote/election"
	"go.anonvote.io/avote/log"
	recorddb "go.anonvote.io/avote/recordstore/db"
	"go.anonvote.io/avote/types"
)

// registration is the in-memory view of a published registration record.
type registration struct {
	id            int64
	publicKeyHash types.HexBytes
	hasVoted      bool
}

// run holds the mutable state of one tally pass. It is only touched by the
// sequential validation loop.
type run struct {
	electionID    uuid.UUID
	commission    crypto.Cipher
	hasher        crypto.Hasher
	registrations map[string]*registration
	counts        map[uuid.UUID]uint64
	outcomes      []Outcome
	stats         Statistics
}

func newRun(electionID uuid.UUID, commission crypto.Cipher, hasher crypto.Hasher,
	candidates []*election.Candidate,
) *run {
	r := &run{
		electionID:    electionID,
		commission:    commission,
		hasher:        hasher,
		registrations: make(map[string]*registration),
		counts:        make(map[uuid.UUID]uint64, len(candidates)),
	}
	for _, c := range candidates {
		r.counts[c.ID] = 0
	}
	return r
}

// loadRegistrations builds the token hash map from the fetched records. A
// record that failed to fetch, does not parse or does not match its stored
// row is left out.
func (r *run) loadRegistrations(rows []recorddb.Registration, objs []fetched) {
	for i, row := range rows {
		if objs[i].err != nil {
			log.Warnw("cannot fetch registration", "election", r.electionID.String(),
				"uri", row.Uri, "error", objs[i].err.Error())
			continue
		}
		var rec credential.RegistrationRecord
		if err := json.Unmarshal(objs[i].data, &rec); err != nil {
			log.Warnw("malformed registration", "election", r.electionID.String(),
				"uri", row.Uri, "error", err.Error())
			continue
		}
		if rec.ElectionID != r.electionID ||
			!rec.TokenHash.Equal(row.TokenHash) ||
			!rec.PublicKeyHash.Equal(row.PublicKeyHash) {
			log.Warnw("registration does not match its record", "election", r.electionID.String(),
				"uri", row.Uri)
			continue
		}
		r.registrations[string(rec.TokenHash)] = &registration{
			id:            row.ID,
			publicKeyHash: rec.PublicKeyHash,
		}
	}
}

func invalid(uri string, err error) Outcome {
	return Outcome{URI: uri, Kind: Invalid, Reason: err.Error(), Err: err}
}

// process runs the validation pipeline on one ballot, stopping at the first
// failed check. A Valid outcome is counted and marks its registration.
func (r *run) process(uri string, obj fetched) Outcome {
	if obj.err != nil {
		return invalid(uri, obj.err)
	}
	payload, err := ballot.ParsePayload(obj.data)
	if err != nil {
		return invalid(uri, err)
	}

	pubPEM, err := ballot.OpenVoterPublicKey(payload, r.commission)
	if err != nil {
		return invalid(uri, err)
	}
	reg, ok := r.registrations[string(payload.TokenHash)]
	if !ok {
		return invalid(uri, fmt.Errorf("%w: no registration for token hash %s",
			ErrUnknownCredential, payload.TokenHash))
	}
	if !r.hasher.Sum(pubPEM).Equal(reg.publicKeyHash) {
		return invalid(uri, fmt.Errorf("%w: public key does not match registration",
			ErrUnknownCredential))
	}
	if reg.hasVoted {
		return Outcome{
			URI:    uri,
			Kind:   Duplicate,
			Reason: ErrDuplicateCredential.Error(),
			Err:    ErrDuplicateCredential,
		}
	}

	vote, err := ballot.OpenVote(payload, r.commission)
	if err != nil {
		return invalid(uri, err)
	}
	voterKey, err := rsakey.ParsePublicKeyPEM(pubPEM)
	if err != nil {
		return invalid(uri, fmt.Errorf("%w: %w", ballot.ErrVerification, err))
	}
	if err := ballot.Verify(vote, payload.SignedVote.Signature, voterKey); err != nil {
		return invalid(uri, err)
	}
	if !payload.SignedVote.MaskedVote.Equal(vote.Masked) {
		return invalid(uri, fmt.Errorf("%w: published masked vote differs from sealed one",
			ballot.ErrVerification))
	}

	candidate, err := vote.Candidate()
	if err != nil {
		return invalid(uri, fmt.Errorf("%w: %w", ErrUnknownCandidate, err))
	}
	if _, ok := r.counts[candidate]; !ok {
		return invalid(uri, fmt.Errorf("%w: %s", ErrUnknownCandidate, candidate))
	}

	r.counts[candidate]++
	reg.hasVoted = true
	return Outcome{URI: uri, Kind: Valid, Candidate: &candidate}
}
