package postgresadapter

import (
	"encoding/json"
	"time"

	"wrightstv/contexts/elections/stv-counting/domain/entities"
)

type electionModel struct {
	ID        string     `gorm:"column:id;primaryKey"`
	Title     string     `gorm:"column:title"`
	Seats     int        `gorm:"column:seats"`
	Status    string     `gorm:"column:status"`
	CreatedAt time.Time  `gorm:"column:created_at"`
	UpdatedAt time.Time  `gorm:"column:updated_at"`
	CountedAt *time.Time `gorm:"column:counted_at"`
}

func (electionModel) TableName() string {
	return "stv_elections"
}

type candidateModel struct {
	ID         string `gorm:"column:id;primaryKey"`
	ElectionID string `gorm:"column:election_id;index"`
	Name       string `gorm:"column:name"`
	Position   int    `gorm:"column:position"`
}

func (candidateModel) TableName() string {
	return "stv_election_candidates"
}

type ballotModel struct {
	ID          string    `gorm:"column:id;primaryKey"`
	ElectionID  string    `gorm:"column:election_id;uniqueIndex:idx_stv_ballots_voter"`
	VoterID     string    `gorm:"column:voter_id;uniqueIndex:idx_stv_ballots_voter"`
	Preferences []byte    `gorm:"column:preferences;type:jsonb"`
	CastAt      time.Time `gorm:"column:cast_at"`
}

func (ballotModel) TableName() string {
	return "stv_ballots"
}

type countResultModel struct {
	ElectionID      string    `gorm:"column:election_id;primaryKey"`
	Quota           int       `gorm:"column:quota"`
	TotalBallots    int       `gorm:"column:total_ballots"`
	Winners         []byte    `gorm:"column:winners;type:jsonb"`
	FilledByDefault bool      `gorm:"column:filled_by_default"`
	TieBreak        string    `gorm:"column:tie_break"`
	Rounds          []byte    `gorm:"column:rounds;type:jsonb"`
	CountedAt       time.Time `gorm:"column:counted_at"`
}

func (countResultModel) TableName() string {
	return "stv_count_results"
}

type idempotencyModel struct {
	Key         string    `gorm:"column:key;primaryKey"`
	RequestHash string    `gorm:"column:request_hash"`
	ResourceID  string    `gorm:"column:resource_id"`
	ExpiresAt   time.Time `gorm:"column:expires_at"`
}

func (idempotencyModel) TableName() string {
	return "stv_idempotency"
}

type outboxModel struct {
	OutboxID     string     `gorm:"column:outbox_id;primaryKey"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload;type:jsonb"`
	Status       string     `gorm:"column:status;index"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string {
	return "stv_outbox"
}

func electionModelFromEntity(election entities.Election) electionModel {
	return electionModel{
		ID:        election.ElectionID,
		Title:     election.Title,
		Seats:     election.Seats,
		Status:    string(election.Status),
		CreatedAt: election.CreatedAt.UTC(),
		UpdatedAt: election.UpdatedAt.UTC(),
		CountedAt: normalizeOptionalTime(election.CountedAt),
	}
}

func candidateModelsFromEntity(election entities.Election) []candidateModel {
	rows := make([]candidateModel, 0, len(election.Candidates))
	for _, c := range election.Candidates {
		rows = append(rows, candidateModel{
			ID:         c.CandidateID,
			ElectionID: election.ElectionID,
			Name:       c.Name,
			Position:   c.Position,
		})
	}
	return rows
}

func (m electionModel) toEntity(candidates []candidateModel) entities.Election {
	election := entities.Election{
		ElectionID: m.ID,
		Title:      m.Title,
		Seats:      m.Seats,
		Status:     entities.ElectionStatus(m.Status),
		Candidates: make([]entities.Candidate, 0, len(candidates)),
		CreatedAt:  m.CreatedAt.UTC(),
		UpdatedAt:  m.UpdatedAt.UTC(),
		CountedAt:  normalizeOptionalTime(m.CountedAt),
	}
	for _, c := range candidates {
		election.Candidates = append(election.Candidates, entities.Candidate{
			CandidateID: c.ID,
			Name:        c.Name,
			Position:    c.Position,
		})
	}
	return election
}

func ballotModelFromEntity(ballot entities.Ballot) (ballotModel, error) {
	prefs, err := json.Marshal(ballot.Preferences)
	if err != nil {
		return ballotModel{}, err
	}
	return ballotModel{
		ID:          ballot.BallotID,
		ElectionID:  ballot.ElectionID,
		VoterID:     ballot.VoterID,
		Preferences: prefs,
		CastAt:      ballot.CastAt.UTC(),
	}, nil
}

func (m ballotModel) toEntity() (entities.Ballot, error) {
	var prefs []string
	if err := json.Unmarshal(m.Preferences, &prefs); err != nil {
		return entities.Ballot{}, err
	}
	return entities.Ballot{
		BallotID:    m.ID,
		ElectionID:  m.ElectionID,
		VoterID:     m.VoterID,
		Preferences: prefs,
		CastAt:      m.CastAt.UTC(),
	}, nil
}

func countResultModelFromEntity(result entities.CountResult) (countResultModel, error) {
	winners, err := json.Marshal(result.Winners)
	if err != nil {
		return countResultModel{}, err
	}
	rounds, err := json.Marshal(result.Rounds)
	if err != nil {
		return countResultModel{}, err
	}
	return countResultModel{
		ElectionID:      result.ElectionID,
		Quota:           result.Quota,
		TotalBallots:    result.TotalBallots,
		Winners:         winners,
		FilledByDefault: result.FilledByDefault,
		TieBreak:        result.TieBreak,
		Rounds:          rounds,
		CountedAt:       result.CountedAt.UTC(),
	}, nil
}

func (m countResultModel) toEntity() (entities.CountResult, error) {
	result := entities.CountResult{
		ElectionID:      m.ElectionID,
		Quota:           m.Quota,
		TotalBallots:    m.TotalBallots,
		FilledByDefault: m.FilledByDefault,
		TieBreak:        m.TieBreak,
		CountedAt:       m.CountedAt.UTC(),
	}
	if err := json.Unmarshal(m.Winners, &result.Winners); err != nil {
		return entities.CountResult{}, err
	}
	if err := json.Unmarshal(m.Rounds, &result.Rounds); err != nil {
		return entities.CountResult{}, err
	}
	return result, nil
}
