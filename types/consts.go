package types

import "fmt"

const (
	// ContentURIPrefix is the scheme used for content addressed object URIs.
	ContentURIPrefix = "ipfs://"

	// KeyedHashSecretMinSize is the minimum size of the server secret shared
	// by the credential issuer and the tally engine.
	KeyedHashSecretMinSize = 16
)

// ElectionStatus is the lifecycle state of an election, owned by the
// administrative workflow.
type ElectionStatus int

const (
	StatusNotYetStarted ElectionStatus = iota
	StatusActive
	StatusFinished
)

var electionStatusNames = map[ElectionStatus]string{
	StatusNotYetStarted: "NotYetStarted",
	StatusActive:        "Active",
	StatusFinished:      "Finished",
}

func (s ElectionStatus) String() string {
	if name, ok := electionStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("ElectionStatus(%d)", int(s))
}

// ParseElectionStatus returns the status named by s.
func ParseElectionStatus(s string) (ElectionStatus, error) {
	for status, name := range electionStatusNames {
		if name == s {
			return status, nil
		}
	}
	return 0, fmt.Errorf("unknown election status %q", s)
}

func (s ElectionStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *ElectionStatus) UnmarshalText(data []byte) error {
	parsed, err := ParseElectionStatus(string(data))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
