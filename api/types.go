package api

import (
	"time"

	"github.com/google/uuid"
	"go.anonvote.io/avote/types"
)

// ElectionCreate is the body of a new election request.
type ElectionCreate struct {
	Name       string   `json:"name"`
	Password   string   `json:"password"`
	Candidates []string `json:"candidates"`
}

// Election is the public view of an election.
type Election struct {
	ElectionID uuid.UUID            `json:"electionId"`
	Name       string               `json:"name"`
	Status     types.ElectionStatus `json:"status"`
	PublicKey  string               `json:"publicKey"`
	CreatedAt  time.Time            `json:"createdAt"`
	Candidates []Candidate          `json:"candidates,omitempty"`
}

// Candidate is the public view of a candidate.
type Candidate struct {
	CandidateID uuid.UUID `json:"candidateId"`
	Name        string    `json:"name"`
	Votes       uint64    `json:"votes"`
}

// ElectionStatus is the body of a status change request.
type ElectionStatus struct {
	Status string `json:"status"`
}

// VoterRequest carries the voter credentials of register and cast requests.
type VoterRequest struct {
	VoterID     string    `json:"voterId"`
	Password    string    `json:"password"`
	CandidateID uuid.UUID `json:"candidateId"`
}

// Registration is the answer to a voter registration.
type Registration struct {
	URI           string         `json:"uri"`
	TokenHash     types.HexBytes `json:"tokenHash"`
	PublicKeyHash types.HexBytes `json:"publicKeyHash"`
}

// BallotReceipt is the answer to a cast ballot.
type BallotReceipt struct {
	URI string `json:"uri"`
}

// TallyRequest is the body of a tally request.
type TallyRequest struct {
	Password string `json:"password"`
}
