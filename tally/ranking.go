package tally

import (
	"sort"

	"github.com/google/uuid"
	"go.anonvote.io/avote/election"
)

// Result is the count of one candidate.
type Result struct {
	CandidateID uuid.UUID `json:"candidateId"`
	Name        string    `json:"name"`
	Votes       uint64    `json:"votes"`
}

// Ranking is the ordered result of an election. Equal counts are ordered by
// candidate ID. Winner is nil until a candidate has a vote, and Tie is set
// when the two leading candidates have the same non-zero count.
type Ranking struct {
	Results []Result `json:"results"`
	Winner  *Result  `json:"winner,omitempty"`
	Margin  uint64   `json:"margin"`
	Tie     bool     `json:"tie"`
}

// Rank orders candidates by votes.
func Rank(candidates []*election.Candidate) *Ranking {
	results := make([]Result, 0, len(candidates))
	for _, c := range candidates {
		results = append(results, Result{CandidateID: c.ID, Name: c.Name, Votes: c.Votes})
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Votes != results[j].Votes {
			return results[i].Votes > results[j].Votes
		}
		return results[i].CandidateID.String() < results[j].CandidateID.String()
	})

	rk := &Ranking{Results: results}
	if len(results) == 0 || results[0].Votes == 0 {
		return rk
	}
	winner := results[0]
	rk.Winner = &winner
	if len(results) > 1 && results[1].Votes > 0 {
		rk.Margin = winner.Votes - results[1].Votes
		rk.Tie = rk.Margin == 0
	}
	return rk
}
