package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"wrightstv/contexts/elections/stv-counting/domain/entities"
	domainerrors "wrightstv/contexts/elections/stv-counting/domain/errors"
	"wrightstv/contexts/elections/stv-counting/ports"
)

func TestStoreElectionIsolation(t *testing.T) {
	store := NewStore(nil)
	election := entities.Election{
		ElectionID: "e1",
		Title:      "Board",
		Seats:      1,
		Status:     entities.ElectionStatusOpen,
		Candidates: []entities.Candidate{{CandidateID: "c1", Name: "Ada"}},
	}
	if err := store.CreateElection(context.Background(), election); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.CreateElection(context.Background(), election); !errors.Is(err, domainerrors.ErrConflict) {
		t.Fatalf("expected conflict on duplicate id, got %v", err)
	}

	loaded, err := store.GetElection(context.Background(), "e1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	loaded.Candidates[0].Name = "mutated"
	again, _ := store.GetElection(context.Background(), "e1")
	if again.Candidates[0].Name != "Ada" {
		t.Fatalf("store leaked internal candidate slice")
	}

	if _, err := store.CloseElection(context.Background(), "missing", time.Now()); !errors.Is(err, domainerrors.ErrElectionNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func openElections(ids ...string) []entities.Election {
	elections := make([]entities.Election, 0, len(ids))
	for _, id := range ids {
		elections = append(elections, entities.Election{ElectionID: id, Seats: 1, Status: entities.ElectionStatusOpen})
	}
	return elections
}

func TestStoreBallotsPerVoter(t *testing.T) {
	store := NewStore(openElections("e1", "e2"))
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	ballot := entities.Ballot{BallotID: "b1", ElectionID: "e1", VoterID: "v1", Preferences: []string{"c1"}, CastAt: now}
	if err := store.SaveBallot(context.Background(), ballot); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.SaveBallot(context.Background(), ballot); err != nil {
		t.Fatalf("re-save of the same ballot should be accepted: %v", err)
	}
	other := ballot
	other.BallotID = "b2"
	if err := store.SaveBallot(context.Background(), other); !errors.Is(err, domainerrors.ErrAlreadyVoted) {
		t.Fatalf("expected already voted, got %v", err)
	}
	elsewhere := other
	elsewhere.ElectionID = "e2"
	if err := store.SaveBallot(context.Background(), elsewhere); err != nil {
		t.Fatalf("same voter in another election: %v", err)
	}

	count, err := store.CountBallots(context.Background(), "e1")
	if err != nil || count != 1 {
		t.Fatalf("expected 1 ballot, got %d err=%v", count, err)
	}
	if _, err := store.GetBallot(context.Background(), "nope"); !errors.Is(err, domainerrors.ErrInvalidBallot) {
		t.Fatalf("expected invalid ballot, got %v", err)
	}
}

func TestStoreIdempotencyExpiry(t *testing.T) {
	store := NewStore(nil)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	record := ports.IdempotencyRecord{Key: "k", RequestHash: "h", ResourceID: "r", ExpiresAt: now.Add(time.Hour)}
	if err := store.Put(context.Background(), record); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, found, _ := store.Get(context.Background(), "k", now); !found {
		t.Fatalf("expected live record")
	}
	conflicting := record
	conflicting.RequestHash = "other"
	if err := store.Put(context.Background(), conflicting); !errors.Is(err, domainerrors.ErrIdempotencyConflict) {
		t.Fatalf("expected idempotency conflict, got %v", err)
	}
	if _, found, _ := store.Get(context.Background(), "k", now.Add(2*time.Hour)); found {
		t.Fatalf("expected expired record to be dropped")
	}
}

func TestStoreClosedElectionRefusesBallots(t *testing.T) {
	store := NewStore(openElections("e1"))
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	ballot := entities.Ballot{BallotID: "b1", ElectionID: "e1", VoterID: "v1", Preferences: []string{"c1"}, CastAt: now}
	if err := store.SaveBallot(context.Background(), ballot); err != nil {
		t.Fatalf("save before close: %v", err)
	}

	closed, err := store.CloseElection(context.Background(), "e1", now)
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if closed.Status != entities.ElectionStatusClosed {
		t.Fatalf("expected closed status, got %q", closed.Status)
	}
	late := entities.Ballot{BallotID: "b2", ElectionID: "e1", VoterID: "v2", Preferences: []string{"c1"}, CastAt: now}
	if err := store.SaveBallot(context.Background(), late); !errors.Is(err, domainerrors.ErrElectionClosed) {
		t.Fatalf("expected closed election error, got %v", err)
	}
	if count, _ := store.CountBallots(context.Background(), "e1"); count != 1 {
		t.Fatalf("expected only the early ballot, got %d", count)
	}
	if err := store.SaveBallot(context.Background(), entities.Ballot{BallotID: "b3", ElectionID: "nope", VoterID: "v1"}); !errors.Is(err, domainerrors.ErrElectionNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestStoreRecordCountIsWriteOnce(t *testing.T) {
	store := NewStore(openElections("e1"))
	countedAt := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	result := entities.CountResult{ElectionID: "e1", Quota: 2, CountedAt: countedAt}
	election, err := store.RecordCount(context.Background(), result)
	if err != nil {
		t.Fatalf("record count: %v", err)
	}
	if election.Status != entities.ElectionStatusCounted || election.CountedAt == nil || !election.CountedAt.Equal(countedAt) {
		t.Fatalf("election not marked counted: %+v", election)
	}
	if _, err := store.RecordCount(context.Background(), result); !errors.Is(err, domainerrors.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if _, found, _ := store.GetResult(context.Background(), "e1"); !found {
		t.Fatalf("expected stored result")
	}
	if _, err := store.RecordCount(context.Background(), entities.CountResult{ElectionID: "missing"}); !errors.Is(err, domainerrors.ErrElectionNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
