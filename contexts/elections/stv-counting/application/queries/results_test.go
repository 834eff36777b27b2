package queries

import (
	"context"
	"errors"
	"testing"
	"time"

	"wrightstv/contexts/elections/stv-counting/adapters/memory"
	"wrightstv/contexts/elections/stv-counting/domain/entities"
	domainerrors "wrightstv/contexts/elections/stv-counting/domain/errors"
)

func seededStore(t *testing.T) *memory.Store {
	t.Helper()
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	store := memory.NewStore([]entities.Election{{
		ElectionID: "election-1",
		Title:      "Board",
		Seats:      1,
		Status:     entities.ElectionStatusOpen,
		Candidates: []entities.Candidate{
			{CandidateID: "c1", Name: "Ada", Position: 0},
			{CandidateID: "c2", Name: "Grace", Position: 1},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}})
	if err := store.SaveBallot(context.Background(), entities.Ballot{
		BallotID:    "b1",
		ElectionID:  "election-1",
		VoterID:     "v1",
		Preferences: []string{"c2"},
		CastAt:      now,
	}); err != nil {
		t.Fatalf("seed ballot: %v", err)
	}
	return store
}

func TestGetElectionIncludesBallotCount(t *testing.T) {
	uc := ResultsUseCase{Elections: seededStore(t)}
	view, err := uc.GetElection(context.Background(), " election-1 ")
	if err != nil {
		t.Fatalf("get election: %v", err)
	}
	if view.BallotCount != 1 || view.Election.Title != "Board" {
		t.Fatalf("unexpected view: %+v", view)
	}
}

func TestGetResultBeforeAndAfterCount(t *testing.T) {
	store := seededStore(t)
	uc := ResultsUseCase{Elections: store}

	if _, err := uc.GetResult(context.Background(), "election-1"); !errors.Is(err, domainerrors.ErrElectionNotCounted) {
		t.Fatalf("expected not counted, got %v", err)
	}
	if _, err := uc.GetResult(context.Background(), "missing"); !errors.Is(err, domainerrors.ErrElectionNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	if _, err := store.RecordCount(context.Background(), entities.CountResult{
		ElectionID: "election-1",
		Quota:      1,
		Winners:    []string{"c2"},
	}); err != nil {
		t.Fatalf("save result: %v", err)
	}
	result, err := uc.GetResult(context.Background(), "election-1")
	if err != nil {
		t.Fatalf("get result: %v", err)
	}
	if len(result.Winners) != 1 || result.Winners[0] != "c2" {
		t.Fatalf("unexpected result: %+v", result)
	}
}
