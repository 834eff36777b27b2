package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"wrightstv/contexts/elections/stv-counting/domain/entities"
	domainerrors "wrightstv/contexts/elections/stv-counting/domain/errors"
	"wrightstv/contexts/elections/stv-counting/ports"

	"github.com/google/uuid"
)

type outboxRecord struct {
	message   ports.OutboxMessage
	published bool
}

type Store struct {
	mu sync.RWMutex

	elections   map[string]entities.Election
	ballots     map[string]entities.Ballot
	voters      map[string]string
	results     map[string]entities.CountResult
	idempotency map[string]ports.IdempotencyRecord
	outbox      map[string]outboxRecord

	now func() time.Time
}

func NewStore(seed []entities.Election) *Store {
	elections := make(map[string]entities.Election, len(seed))
	for _, election := range seed {
		elections[election.ElectionID] = cloneElection(election)
	}
	return &Store{
		elections:   elections,
		ballots:     make(map[string]entities.Ballot),
		voters:      make(map[string]string),
		results:     make(map[string]entities.CountResult),
		idempotency: make(map[string]ports.IdempotencyRecord),
		outbox:      make(map[string]outboxRecord),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// SetClock replaces the store clock; tests use it to expire idempotency keys.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) CreateElection(_ context.Context, election entities.Election) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	electionID := strings.TrimSpace(election.ElectionID)
	if _, exists := s.elections[electionID]; exists {
		return domainerrors.ErrConflict
	}
	s.elections[electionID] = cloneElection(election)
	return nil
}

func (s *Store) GetElection(_ context.Context, electionID string) (entities.Election, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	election, ok := s.elections[strings.TrimSpace(electionID)]
	if !ok {
		return entities.Election{}, domainerrors.ErrElectionNotFound
	}
	return cloneElection(election), nil
}

// CloseElection stops an open election from taking ballots. Elections that
// are already closed or counted are returned unchanged.
func (s *Store) CloseElection(_ context.Context, electionID string, at time.Time) (entities.Election, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	electionID = strings.TrimSpace(electionID)
	election, ok := s.elections[electionID]
	if !ok {
		return entities.Election{}, domainerrors.ErrElectionNotFound
	}
	if election.IsOpen() {
		election.Status = entities.ElectionStatusClosed
		election.UpdatedAt = at.UTC()
		s.elections[electionID] = election
	}
	return cloneElection(election), nil
}

func (s *Store) SaveBallot(_ context.Context, ballot entities.Ballot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	election, ok := s.elections[strings.TrimSpace(ballot.ElectionID)]
	if !ok {
		return domainerrors.ErrElectionNotFound
	}
	if !election.IsOpen() {
		return domainerrors.ErrElectionClosed
	}
	key := voterKey(ballot.ElectionID, ballot.VoterID)
	if existing, voted := s.voters[key]; voted && existing != ballot.BallotID {
		return domainerrors.ErrAlreadyVoted
	}
	ballot.Preferences = append([]string(nil), ballot.Preferences...)
	s.ballots[strings.TrimSpace(ballot.BallotID)] = ballot
	s.voters[key] = ballot.BallotID
	return nil
}

func (s *Store) GetBallot(_ context.Context, ballotID string) (entities.Ballot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ballot, ok := s.ballots[strings.TrimSpace(ballotID)]
	if !ok {
		return entities.Ballot{}, domainerrors.ErrInvalidBallot
	}
	ballot.Preferences = append([]string(nil), ballot.Preferences...)
	return ballot, nil
}

func (s *Store) ListBallots(_ context.Context, electionID string) ([]entities.Ballot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	electionID = strings.TrimSpace(electionID)
	items := make([]entities.Ballot, 0)
	for _, ballot := range s.ballots {
		if ballot.ElectionID != electionID {
			continue
		}
		ballot.Preferences = append([]string(nil), ballot.Preferences...)
		items = append(items, ballot)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].CastAt.Equal(items[j].CastAt) {
			return items[i].BallotID < items[j].BallotID
		}
		return items[i].CastAt.Before(items[j].CastAt)
	})
	return items, nil
}

func (s *Store) CountBallots(_ context.Context, electionID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	electionID = strings.TrimSpace(electionID)
	count := 0
	for _, ballot := range s.ballots {
		if ballot.ElectionID == electionID {
			count++
		}
	}
	return count, nil
}

// RecordCount stores the result and marks the election counted in one step.
func (s *Store) RecordCount(_ context.Context, result entities.CountResult) (entities.Election, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	electionID := strings.TrimSpace(result.ElectionID)
	election, ok := s.elections[electionID]
	if !ok {
		return entities.Election{}, domainerrors.ErrElectionNotFound
	}
	if _, exists := s.results[electionID]; exists {
		return entities.Election{}, domainerrors.ErrConflict
	}
	countedAt := result.CountedAt.UTC()
	election.Status = entities.ElectionStatusCounted
	election.CountedAt = &countedAt
	election.UpdatedAt = countedAt
	s.elections[electionID] = election
	s.results[electionID] = result
	return cloneElection(election), nil
}

func (s *Store) GetResult(_ context.Context, electionID string) (entities.CountResult, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result, ok := s.results[strings.TrimSpace(electionID)]
	return result, ok, nil
}

func (s *Store) Get(_ context.Context, key string, now time.Time) (ports.IdempotencyRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key = strings.TrimSpace(key)
	record, exists := s.idempotency[key]
	if !exists {
		return ports.IdempotencyRecord{}, false, nil
	}
	if !record.ExpiresAt.After(now.UTC()) {
		delete(s.idempotency, key)
		return ports.IdempotencyRecord{}, false, nil
	}
	return record, true, nil
}

func (s *Store) Put(_ context.Context, record ports.IdempotencyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.TrimSpace(record.Key)
	existing, exists := s.idempotency[key]
	if exists {
		if existing.RequestHash != record.RequestHash || existing.ResourceID != record.ResourceID {
			return domainerrors.ErrIdempotencyConflict
		}
		return nil
	}
	s.idempotency[key] = ports.IdempotencyRecord{
		Key:         key,
		RequestHash: strings.TrimSpace(record.RequestHash),
		ResourceID:  strings.TrimSpace(record.ResourceID),
		ExpiresAt:   record.ExpiresAt.UTC(),
	}
	return nil
}

func (s *Store) AppendOutbox(_ context.Context, envelope ports.EventEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	outboxID := strings.TrimSpace(envelope.EventID)
	if outboxID == "" {
		outboxID = uuid.NewString()
	}
	if existing, ok := s.outbox[outboxID]; ok {
		if !bytes.Equal(existing.message.Payload, payload) {
			return domainerrors.ErrIdempotencyConflict
		}
		return nil
	}
	createdAt := envelope.OccurredAt.UTC()
	if createdAt.IsZero() {
		createdAt = s.now()
	}
	s.outbox[outboxID] = outboxRecord{
		message: ports.OutboxMessage{
			OutboxID:     outboxID,
			EventType:    strings.TrimSpace(envelope.EventType),
			PartitionKey: strings.TrimSpace(envelope.PartitionKey),
			Payload:      payload,
			CreatedAt:    createdAt,
		},
	}
	return nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	items := make([]ports.OutboxMessage, 0, len(s.outbox))
	for _, row := range s.outbox {
		if row.published {
			continue
		}
		items = append(items, row.message)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].OutboxID < items[j].OutboxID
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.outbox[strings.TrimSpace(outboxID)]
	if !ok {
		return domainerrors.ErrConflict
	}
	row.published = true
	s.outbox[strings.TrimSpace(outboxID)] = row
	return nil
}

func (s *Store) Now() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.now()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

func voterKey(electionID string, voterID string) string {
	return strings.TrimSpace(electionID) + "|" + strings.TrimSpace(voterID)
}

func cloneElection(election entities.Election) entities.Election {
	election.Candidates = append([]entities.Candidate(nil), election.Candidates...)
	if election.CountedAt != nil {
		countedAt := *election.CountedAt
		election.CountedAt = &countedAt
	}
	return election
}

var _ ports.ElectionRepository = (*Store)(nil)
var _ ports.IdempotencyStore = (*Store)(nil)
var _ ports.OutboxWriter = (*Store)(nil)
var _ ports.OutboxRepository = (*Store)(nil)
var _ ports.Clock = (*Store)(nil)
var _ ports.IDGenerator = (*Store)(nil)
