package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type CreateElectionRequest struct {
	Title      string   `json:"title"`
	Seats      int      `json:"seats"`
	Candidates []string `json:"candidates"`
}

type CandidateResponse struct {
	CandidateID string `json:"candidate_id"`
	Name        string `json:"name"`
	Position    int    `json:"position"`
}

type ElectionResponse struct {
	ElectionID  string              `json:"election_id"`
	Title       string              `json:"title"`
	Seats       int                 `json:"seats"`
	Status      string              `json:"status"`
	Candidates  []CandidateResponse `json:"candidates"`
	BallotCount int                 `json:"ballot_count"`
	CreatedAt   string              `json:"created_at"`
	CountedAt   string              `json:"counted_at,omitempty"`
	Replayed    bool                `json:"replayed,omitempty"`
}

// CastBallotRequest ranks candidate ids, most preferred first.
type CastBallotRequest struct {
	Preferences []string `json:"preferences"`
}

type BallotResponse struct {
	BallotID    string   `json:"ballot_id"`
	ElectionID  string   `json:"election_id"`
	VoterID     string   `json:"voter_id"`
	Preferences []string `json:"preferences"`
	CastAt      string   `json:"cast_at"`
	Replayed    bool     `json:"replayed"`
}

type VoteValue struct {
	Exact  string  `json:"exact"`
	Approx float64 `json:"approx"`
}

type StandingItem struct {
	CandidateID string    `json:"candidate_id"`
	Name        string    `json:"name"`
	Votes       VoteValue `json:"votes"`
	Ballots     int       `json:"ballots"`
	Elected     bool      `json:"elected"`
}

type TransferItem struct {
	CandidateID string    `json:"candidate_id"`
	Name        string    `json:"name"`
	Surplus     VoteValue `json:"surplus"`
}

type RoundItem struct {
	Number    int            `json:"number"`
	Standings []StandingItem `json:"standings"`
	Transfers []TransferItem `json:"transfers"`
	Exhausted VoteValue      `json:"exhausted"`
	Elected   []string       `json:"elected"`
	Excluded  string         `json:"excluded,omitempty"`
}

type WinnerItem struct {
	CandidateID string `json:"candidate_id"`
	Name        string `json:"name"`
}

type CountResultResponse struct {
	ElectionID      string       `json:"election_id"`
	Seats           int          `json:"seats"`
	Quota           int          `json:"quota"`
	TotalBallots    int          `json:"total_ballots"`
	TieBreak        string       `json:"tie_break"`
	FilledByDefault bool         `json:"filled_by_default"`
	Winners         []WinnerItem `json:"winners"`
	Rounds          []RoundItem  `json:"rounds"`
	CountedAt       string       `json:"counted_at"`
	Replayed        bool         `json:"replayed,omitempty"`
}
