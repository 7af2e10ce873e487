package ballot

import (
	"fmt"
	"math/big"

	"github.com/google/uuid"
)

// CandidateBits is the width of candidate numbers, masks and masked votes.
const CandidateBits = 128

// maxValue is 2^CandidateBits, the exclusive upper bound of every value.
var maxValue = new(big.Int).Lsh(big.NewInt(1), CandidateBits)

// CandidateNumber maps a candidate ID to its number: the 16 bytes of the
// UUID read as a big-endian unsigned integer. CandidateFromNumber is its
// inverse.
func CandidateNumber(id uuid.UUID) *big.Int {
	return new(big.Int).SetBytes(id[:])
}

// CandidateFromNumber maps a number back to the candidate ID it was derived
// from. Numbers outside [0, 2^128) have no candidate.
func CandidateFromNumber(n *big.Int) (uuid.UUID, error) {
	if n == nil || n.Sign() < 0 || n.Cmp(maxValue) >= 0 {
		return uuid.Nil, fmt.Errorf("candidate number out of range")
	}
	var id uuid.UUID
	n.FillBytes(id[:])
	return id, nil
}
