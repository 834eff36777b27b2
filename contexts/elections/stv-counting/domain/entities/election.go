package entities

import "time"

type ElectionStatus string

// A closed election takes no more ballots and is waiting on its count.
const (
	ElectionStatusOpen    ElectionStatus = "open"
	ElectionStatusClosed  ElectionStatus = "closed"
	ElectionStatusCounted ElectionStatus = "counted"
)

type Candidate struct {
	CandidateID string
	Name        string
	Position    int
}

type Election struct {
	ElectionID string
	Title      string
	Seats      int
	Candidates []Candidate
	Status     ElectionStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time
	CountedAt  *time.Time
}

// Candidate looks a candidate up by id.
func (e Election) Candidate(candidateID string) (Candidate, bool) {
	for _, c := range e.Candidates {
		if c.CandidateID == candidateID {
			return c, true
		}
	}
	return Candidate{}, false
}

func (e Election) IsOpen() bool {
	return e.Status == ElectionStatusOpen
}

// Ballot stores preferences as candidate ids, most preferred first, with
// duplicates already removed.
type Ballot struct {
	BallotID    string
	ElectionID  string
	VoterID     string
	Preferences []string
	CastAt      time.Time
}

// Vote is an exact rational tally value together with a float for display.
type Vote struct {
	Exact  string  `json:"exact"`
	Approx float64 `json:"approx"`
}

type Standing struct {
	CandidateID string `json:"candidate_id"`
	Votes       Vote   `json:"votes"`
	Ballots     int    `json:"ballots"`
	Elected     bool   `json:"elected"`
}

type SurplusTransfer struct {
	CandidateID string `json:"candidate_id"`
	Surplus     Vote   `json:"surplus"`
}

type RoundSummary struct {
	Number    int               `json:"number"`
	Standings []Standing        `json:"standings"`
	Transfers []SurplusTransfer `json:"transfers"`
	Exhausted Vote              `json:"exhausted"`
	Elected   []string          `json:"elected"`
	Excluded  string            `json:"excluded,omitempty"`
}

type CountResult struct {
	ElectionID      string
	Quota           int
	TotalBallots    int
	Winners         []string
	FilledByDefault bool
	TieBreak        string
	Rounds          []RoundSummary
	CountedAt       time.Time
}
