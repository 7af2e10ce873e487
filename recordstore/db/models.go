package recorddb

import (
	"time"
)

type Election struct {
	ID               string
	Name             string
	Status           int64
	PublicKey        []byte
	SealedPrivateKey []byte
	CreatedAt        time.Time
}

type Candidate struct {
	ID         string
	ElectionID string
	Name       string
	Votes      int64
}

type Credential struct {
	VoterID          string
	ElectionID       string
	SealedPrivateKey []byte
	SealedToken      []byte
}

type Registration struct {
	ID            int64
	ElectionID    string
	Uri           string
	TokenHash     []byte
	PublicKeyHash []byte
	HasVoted      bool
}

type Ballot struct {
	ID         int64
	ElectionID string
	Uri        string
}
