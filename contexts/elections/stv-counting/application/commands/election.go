package commands

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"
	"time"

	application "wrightstv/contexts/elections/stv-counting/application"
	"wrightstv/contexts/elections/stv-counting/domain/entities"
	domainerrors "wrightstv/contexts/elections/stv-counting/domain/errors"
	"wrightstv/contexts/elections/stv-counting/domain/stv"
	"wrightstv/contexts/elections/stv-counting/ports"
)

// CreateElectionCommand opens a new election. Candidate order is the ballot
// paper order and the final tie-break between otherwise identical tallies.
type CreateElectionCommand struct {
	IdempotencyKey string
	Title          string
	Seats          int
	Candidates     []string
}

type CreateElectionResult struct {
	Election entities.Election
	Replayed bool
}

// CastBallotCommand records one voter's ranking as candidate ids, most
// preferred first.
type CastBallotCommand struct {
	IdempotencyKey string
	ElectionID     string
	VoterID        string
	Preferences    []string
}

type CastBallotResult struct {
	Ballot   entities.Ballot
	Replayed bool
}

// ElectionUseCase owns the election write model: opening elections,
// accepting ballots and running the count.
type ElectionUseCase struct {
	Elections      ports.ElectionRepository
	Idempotency    ports.IdempotencyStore
	Outbox         ports.OutboxWriter
	Clock          ports.Clock
	IDGen          ports.IDGenerator
	IdempotencyTTL time.Duration
	TieBreak       stv.TieBreak
	Logger         *slog.Logger
}

func (uc ElectionUseCase) CreateElection(ctx context.Context, cmd CreateElectionCommand) (CreateElectionResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	title := strings.TrimSpace(cmd.Title)
	logger.Info("election create processing started",
		"event", "stv_election_create_started",
		"module", application.ModuleName,
		"layer", "application",
		"title", title,
		"seats", cmd.Seats,
		"candidate_count", len(cmd.Candidates),
	)

	names, ok := normalizeCandidateNames(cmd.Candidates)
	if title == "" || cmd.Seats < 1 || !ok {
		logger.Warn("election create validation failed",
			"event", "stv_election_create_validation_failed",
			"module", application.ModuleName,
			"layer", "application",
			"title", title,
			"seats", cmd.Seats,
		)
		return CreateElectionResult{}, domainerrors.ErrInvalidElectionInput
	}
	if len(names) < cmd.Seats {
		logger.Warn("election create rejected: not enough candidates",
			"event", "stv_election_create_not_enough_candidates",
			"module", application.ModuleName,
			"layer", "application",
			"seats", cmd.Seats,
			"candidate_count", len(names),
		)
		return CreateElectionResult{}, domainerrors.ErrNotEnoughCandidates
	}
	if strings.TrimSpace(cmd.IdempotencyKey) == "" {
		return CreateElectionResult{}, domainerrors.ErrIdempotencyKeyRequired
	}

	now := uc.now()
	requestHash := hashRequest("create_election", map[string]string{
		"title":      title,
		"seats":      strconv.Itoa(cmd.Seats),
		"candidates": strings.Join(names, "\x1f"),
	})
	if resourceID, found, err := uc.replay(ctx, cmd.IdempotencyKey, requestHash, now); err != nil {
		return CreateElectionResult{}, err
	} else if found {
		election, err := uc.Elections.GetElection(ctx, resourceID)
		if err != nil {
			return CreateElectionResult{}, err
		}
		logger.Info("election create replayed",
			"event", "stv_election_create_replayed",
			"module", application.ModuleName,
			"layer", "application",
			"election_id", election.ElectionID,
		)
		return CreateElectionResult{Election: election, Replayed: true}, nil
	}

	electionID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return CreateElectionResult{}, err
	}
	election := entities.Election{
		ElectionID: electionID,
		Title:      title,
		Seats:      cmd.Seats,
		Candidates: make([]entities.Candidate, 0, len(names)),
		Status:     entities.ElectionStatusOpen,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	for i, name := range names {
		candidateID, err := uc.IDGen.NewID(ctx)
		if err != nil {
			return CreateElectionResult{}, err
		}
		election.Candidates = append(election.Candidates, entities.Candidate{
			CandidateID: candidateID,
			Name:        name,
			Position:    i,
		})
	}
	if err := uc.Elections.CreateElection(ctx, election); err != nil {
		return CreateElectionResult{}, err
	}

	candidateIDs := make([]string, 0, len(election.Candidates))
	for _, c := range election.Candidates {
		candidateIDs = append(candidateIDs, c.CandidateID)
	}
	if err := uc.appendEvent(ctx, EventElectionCreated, election.ElectionID, now, map[string]any{
		"election_id":   election.ElectionID,
		"title":         election.Title,
		"seats":         election.Seats,
		"candidate_ids": candidateIDs,
	}); err != nil {
		return CreateElectionResult{}, err
	}
	if err := uc.remember(ctx, cmd.IdempotencyKey, requestHash, election.ElectionID, now); err != nil {
		return CreateElectionResult{}, err
	}

	logger.Info("election created",
		"event", "stv_election_created",
		"module", application.ModuleName,
		"layer", "application",
		"election_id", election.ElectionID,
		"seats", election.Seats,
		"candidate_count", len(election.Candidates),
	)
	return CreateElectionResult{Election: election}, nil
}

// CastBallot accepts one ballot per voter while the election is open.
// Repeated candidates keep their first position.
func (uc ElectionUseCase) CastBallot(ctx context.Context, cmd CastBallotCommand) (CastBallotResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	electionID := strings.TrimSpace(cmd.ElectionID)
	voterID := strings.TrimSpace(cmd.VoterID)
	logger.Info("ballot cast processing started",
		"event", "stv_ballot_cast_started",
		"module", application.ModuleName,
		"layer", "application",
		"election_id", electionID,
		"voter_id", voterID,
	)
	if electionID == "" || voterID == "" {
		return CastBallotResult{}, domainerrors.ErrInvalidBallot
	}
	if strings.TrimSpace(cmd.IdempotencyKey) == "" {
		return CastBallotResult{}, domainerrors.ErrIdempotencyKeyRequired
	}

	now := uc.now()
	requestHash := hashRequest("cast_ballot", map[string]string{
		"election_id": electionID,
		"voter_id":    voterID,
		"preferences": strings.Join(trimAll(cmd.Preferences), "\x1f"),
	})
	if resourceID, found, err := uc.replay(ctx, cmd.IdempotencyKey, requestHash, now); err != nil {
		return CastBallotResult{}, err
	} else if found {
		ballot, err := uc.Elections.GetBallot(ctx, resourceID)
		if err != nil {
			return CastBallotResult{}, err
		}
		return CastBallotResult{Ballot: ballot, Replayed: true}, nil
	}

	election, err := uc.Elections.GetElection(ctx, electionID)
	if err != nil {
		return CastBallotResult{}, err
	}
	if !election.IsOpen() {
		logger.Warn("ballot rejected: election closed",
			"event", "stv_ballot_cast_election_closed",
			"module", application.ModuleName,
			"layer", "application",
			"election_id", electionID,
			"voter_id", voterID,
		)
		return CastBallotResult{}, domainerrors.ErrElectionClosed
	}
	preferences, err := normalizePreferences(election, cmd.Preferences)
	if err != nil {
		logger.Warn("ballot validation failed",
			"event", "stv_ballot_cast_validation_failed",
			"module", application.ModuleName,
			"layer", "application",
			"election_id", electionID,
			"voter_id", voterID,
			"error", err.Error(),
		)
		return CastBallotResult{}, err
	}

	ballotID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return CastBallotResult{}, err
	}
	ballot := entities.Ballot{
		BallotID:    ballotID,
		ElectionID:  electionID,
		VoterID:     voterID,
		Preferences: preferences,
		CastAt:      now,
	}
	if err := uc.Elections.SaveBallot(ctx, ballot); err != nil {
		return CastBallotResult{}, err
	}
	if err := uc.appendEvent(ctx, EventBallotCast, electionID, now, map[string]any{
		"election_id": electionID,
		"ballot_id":   ballot.BallotID,
		"rank_count":  len(ballot.Preferences),
	}); err != nil {
		return CastBallotResult{}, err
	}
	if err := uc.remember(ctx, cmd.IdempotencyKey, requestHash, ballot.BallotID, now); err != nil {
		return CastBallotResult{}, err
	}

	logger.Info("ballot cast",
		"event", "stv_ballot_cast",
		"module", application.ModuleName,
		"layer", "application",
		"election_id", electionID,
		"ballot_id", ballot.BallotID,
		"rank_count", len(ballot.Preferences),
	)
	return CastBallotResult{Ballot: ballot}, nil
}

func (uc ElectionUseCase) replay(ctx context.Context, key string, requestHash string, now time.Time) (string, bool, error) {
	record, found, err := uc.Idempotency.Get(ctx, strings.TrimSpace(key), now)
	if err != nil || !found {
		return "", false, err
	}
	if record.RequestHash != requestHash {
		return "", false, domainerrors.ErrIdempotencyConflict
	}
	return record.ResourceID, true, nil
}

func (uc ElectionUseCase) remember(ctx context.Context, key string, requestHash string, resourceID string, now time.Time) error {
	return uc.Idempotency.Put(ctx, ports.IdempotencyRecord{
		Key:         strings.TrimSpace(key),
		RequestHash: requestHash,
		ResourceID:  resourceID,
		ExpiresAt:   now.Add(uc.resolveIdempotencyTTL()),
	})
}

func (uc ElectionUseCase) appendEvent(
	ctx context.Context,
	eventType string,
	electionID string,
	occurredAt time.Time,
	data map[string]any,
) error {
	// Outbox is optional for pure read/test wiring, so nil is treated as no-op.
	if uc.Outbox == nil {
		return nil
	}
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return err
	}
	data["occurred_at"] = occurredAt.Format(time.RFC3339)
	envelope, err := newElectionEnvelope(eventID, eventType, electionID, occurredAt, data)
	if err != nil {
		return err
	}
	return uc.Outbox.AppendOutbox(ctx, envelope)
}

func (uc ElectionUseCase) now() time.Time {
	now := time.Now().UTC()
	if uc.Clock != nil {
		now = uc.Clock.Now().UTC()
	}
	return now
}

func (uc ElectionUseCase) resolveIdempotencyTTL() time.Duration {
	if uc.IdempotencyTTL <= 0 {
		return 7 * 24 * time.Hour
	}
	return uc.IdempotencyTTL
}

func normalizeCandidateNames(raw []string) ([]string, bool) {
	if len(raw) == 0 {
		return nil, false
	}
	names := make([]string, 0, len(raw))
	for _, name := range raw {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, false
		}
		names = append(names, name)
	}
	return names, true
}

func normalizePreferences(election entities.Election, raw []string) ([]string, error) {
	seen := make(map[string]struct{}, len(raw))
	preferences := make([]string, 0, len(raw))
	for _, candidateID := range trimAll(raw) {
		if _, ok := election.Candidate(candidateID); !ok {
			return nil, domainerrors.ErrUnknownCandidate
		}
		if _, dup := seen[candidateID]; dup {
			continue
		}
		seen[candidateID] = struct{}{}
		preferences = append(preferences, candidateID)
	}
	if len(preferences) == 0 {
		return nil, domainerrors.ErrInvalidBallot
	}
	return preferences, nil
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, strings.TrimSpace(v))
	}
	return out
}

func hashRequest(op string, fields map[string]string) string {
	payload := map[string]string{"op": op}
	for key, value := range fields {
		payload[key] = value
	}
	raw, _ := json.Marshal(payload)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
