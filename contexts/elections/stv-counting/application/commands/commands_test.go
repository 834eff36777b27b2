package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"wrightstv/contexts/elections/stv-counting/adapters/memory"
	"wrightstv/contexts/elections/stv-counting/domain/entities"
	domainerrors "wrightstv/contexts/elections/stv-counting/domain/errors"
	"wrightstv/contexts/elections/stv-counting/domain/stv"
)

func newUseCase(store *memory.Store) ElectionUseCase {
	return ElectionUseCase{
		Elections:      store,
		Idempotency:    store,
		Outbox:         store,
		Clock:          store,
		IDGen:          store,
		IdempotencyTTL: 24 * time.Hour,
		TieBreak:       stv.FewerUnitsFirst,
		Logger:         slog.Default(),
	}
}

func openZooElection(t *testing.T, uc ElectionUseCase, seats int) entities.Election {
	t.Helper()
	result, err := uc.CreateElection(context.Background(), CreateElectionCommand{
		IdempotencyKey: fmt.Sprintf("create-%d", seats),
		Title:          "Zoo board",
		Seats:          seats,
		Candidates:     []string{"Horse", "Turtle", "Lion", "Monkey", "Snake"},
	})
	if err != nil {
		t.Fatalf("create election: %v", err)
	}
	return result.Election
}

func idOf(t *testing.T, election entities.Election, name string) string {
	t.Helper()
	for _, c := range election.Candidates {
		if c.Name == name {
			return c.CandidateID
		}
	}
	t.Fatalf("candidate %s missing", name)
	return ""
}

func castMany(t *testing.T, uc ElectionUseCase, electionID string, start int, n int, prefs ...string) int {
	t.Helper()
	for i := 0; i < n; i++ {
		voter := start + i
		if _, err := uc.CastBallot(context.Background(), CastBallotCommand{
			IdempotencyKey: fmt.Sprintf("ballot-%d", voter),
			ElectionID:     electionID,
			VoterID:        fmt.Sprintf("voter-%d", voter),
			Preferences:    prefs,
		}); err != nil {
			t.Fatalf("cast ballot %d: %v", voter, err)
		}
	}
	return start + n
}

func TestCreateElectionAssignsPositions(t *testing.T) {
	uc := newUseCase(memory.NewStore(nil))
	election := openZooElection(t, uc, 3)

	if election.Status != entities.ElectionStatusOpen {
		t.Fatalf("expected open election, got %s", election.Status)
	}
	if len(election.Candidates) != 5 {
		t.Fatalf("expected 5 candidates, got %d", len(election.Candidates))
	}
	for i, c := range election.Candidates {
		if c.Position != i || c.CandidateID == "" {
			t.Fatalf("unexpected candidate %d: %+v", i, c)
		}
	}
}

func TestCreateElectionValidation(t *testing.T) {
	uc := newUseCase(memory.NewStore(nil))
	cases := []struct {
		name string
		cmd  CreateElectionCommand
		want error
	}{
		{"missing title", CreateElectionCommand{IdempotencyKey: "k", Seats: 1, Candidates: []string{"a"}}, domainerrors.ErrInvalidElectionInput},
		{"zero seats", CreateElectionCommand{IdempotencyKey: "k", Title: "t", Candidates: []string{"a"}}, domainerrors.ErrInvalidElectionInput},
		{"blank candidate", CreateElectionCommand{IdempotencyKey: "k", Title: "t", Seats: 1, Candidates: []string{"a", " "}}, domainerrors.ErrInvalidElectionInput},
		{"too few candidates", CreateElectionCommand{IdempotencyKey: "k", Title: "t", Seats: 3, Candidates: []string{"a", "b"}}, domainerrors.ErrNotEnoughCandidates},
		{"missing key", CreateElectionCommand{Title: "t", Seats: 1, Candidates: []string{"a"}}, domainerrors.ErrIdempotencyKeyRequired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := uc.CreateElection(context.Background(), tc.cmd)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestCreateElectionIdempotency(t *testing.T) {
	store := memory.NewStore(nil)
	uc := newUseCase(store)
	cmd := CreateElectionCommand{
		IdempotencyKey: "create-once",
		Title:          "Board",
		Seats:          1,
		Candidates:     []string{"a", "b"},
	}

	first, err := uc.CreateElection(context.Background(), cmd)
	if err != nil {
		t.Fatalf("first create: %v", err)
	}
	second, err := uc.CreateElection(context.Background(), cmd)
	if err != nil {
		t.Fatalf("replayed create: %v", err)
	}
	if !second.Replayed || second.Election.ElectionID != first.Election.ElectionID {
		t.Fatalf("expected replay of %s, got %+v", first.Election.ElectionID, second)
	}

	cmd.Title = "Other board"
	if _, err := uc.CreateElection(context.Background(), cmd); !errors.Is(err, domainerrors.ErrIdempotencyConflict) {
		t.Fatalf("expected idempotency conflict, got %v", err)
	}

	cmd.Title = "Board"
	base := store.Now()
	store.SetClock(func() time.Time { return base.Add(25 * time.Hour) })
	third, err := uc.CreateElection(context.Background(), cmd)
	if err != nil {
		t.Fatalf("create after expiry: %v", err)
	}
	if third.Replayed || third.Election.ElectionID == first.Election.ElectionID {
		t.Fatalf("expected a new election after key expiry, got %+v", third)
	}
}

func TestCastBallotNormalizesPreferences(t *testing.T) {
	uc := newUseCase(memory.NewStore(nil))
	election := openZooElection(t, uc, 2)
	horse, lion := idOf(t, election, "Horse"), idOf(t, election, "Lion")

	result, err := uc.CastBallot(context.Background(), CastBallotCommand{
		IdempotencyKey: "b1",
		ElectionID:     election.ElectionID,
		VoterID:        "voter-1",
		Preferences:    []string{" " + horse, lion, horse},
	})
	if err != nil {
		t.Fatalf("cast ballot: %v", err)
	}
	prefs := result.Ballot.Preferences
	if len(prefs) != 2 || prefs[0] != horse || prefs[1] != lion {
		t.Fatalf("unexpected preferences: %v", prefs)
	}
}

func TestCastBallotRejections(t *testing.T) {
	uc := newUseCase(memory.NewStore(nil))
	election := openZooElection(t, uc, 2)
	horse := idOf(t, election, "Horse")

	cases := []struct {
		name string
		cmd  CastBallotCommand
		want error
	}{
		{"unknown candidate", CastBallotCommand{IdempotencyKey: "r1", ElectionID: election.ElectionID, VoterID: "v", Preferences: []string{"nobody"}}, domainerrors.ErrUnknownCandidate},
		{"empty ranking", CastBallotCommand{IdempotencyKey: "r2", ElectionID: election.ElectionID, VoterID: "v"}, domainerrors.ErrInvalidBallot},
		{"missing voter", CastBallotCommand{IdempotencyKey: "r3", ElectionID: election.ElectionID, Preferences: []string{horse}}, domainerrors.ErrInvalidBallot},
		{"missing key", CastBallotCommand{ElectionID: election.ElectionID, VoterID: "v", Preferences: []string{horse}}, domainerrors.ErrIdempotencyKeyRequired},
		{"missing election", CastBallotCommand{IdempotencyKey: "r5", ElectionID: "nope", VoterID: "v", Preferences: []string{horse}}, domainerrors.ErrElectionNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := uc.CastBallot(context.Background(), tc.cmd)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestCastBallotOncePerVoter(t *testing.T) {
	uc := newUseCase(memory.NewStore(nil))
	election := openZooElection(t, uc, 2)
	horse := idOf(t, election, "Horse")
	cmd := CastBallotCommand{
		IdempotencyKey: "b1",
		ElectionID:     election.ElectionID,
		VoterID:        "voter-1",
		Preferences:    []string{horse},
	}

	first, err := uc.CastBallot(context.Background(), cmd)
	if err != nil {
		t.Fatalf("cast ballot: %v", err)
	}
	replay, err := uc.CastBallot(context.Background(), cmd)
	if err != nil {
		t.Fatalf("replay ballot: %v", err)
	}
	if !replay.Replayed || replay.Ballot.BallotID != first.Ballot.BallotID {
		t.Fatalf("expected replay of %s, got %+v", first.Ballot.BallotID, replay)
	}

	cmd.IdempotencyKey = "b2"
	if _, err := uc.CastBallot(context.Background(), cmd); !errors.Is(err, domainerrors.ErrAlreadyVoted) {
		t.Fatalf("expected already voted, got %v", err)
	}
}

func TestCountElectionSurplusChain(t *testing.T) {
	store := memory.NewStore(nil)
	uc := newUseCase(store)
	election := openZooElection(t, uc, 3)
	horse := idOf(t, election, "Horse")
	turtle := idOf(t, election, "Turtle")
	lion := idOf(t, election, "Lion")
	monkey := idOf(t, election, "Monkey")
	snake := idOf(t, election, "Snake")

	next := castMany(t, uc, election.ElectionID, 0, 20, horse, turtle, lion, monkey, snake)
	next = castMany(t, uc, election.ElectionID, next, 25, turtle, horse, lion, monkey, snake)
	next = castMany(t, uc, election.ElectionID, next, 16, lion, monkey, snake, turtle, horse)
	castMany(t, uc, election.ElectionID, next, 40, snake, lion, turtle, monkey, horse)

	counted, err := uc.CountElection(context.Background(), CountElectionCommand{ElectionID: election.ElectionID})
	if err != nil {
		t.Fatalf("count election: %v", err)
	}
	result := counted.Result
	if result.Quota != 26 || result.TotalBallots != 101 {
		t.Fatalf("unexpected quota/ballots: %d/%d", result.Quota, result.TotalBallots)
	}
	want := []string{snake, lion, turtle}
	if len(result.Winners) != len(want) {
		t.Fatalf("expected winners %v, got %v", want, result.Winners)
	}
	for i := range want {
		if result.Winners[i] != want[i] {
			t.Fatalf("expected winners %v, got %v", want, result.Winners)
		}
	}
	if len(result.Rounds) != 1 || len(result.Rounds[0].Transfers) != 3 {
		t.Fatalf("unexpected round report: %+v", result.Rounds)
	}
	if first := result.Rounds[0].Transfers[0]; first.CandidateID != snake || first.Surplus.Exact != "14" {
		t.Fatalf("expected snake to transfer 14 first, got %+v", first)
	}
	if result.TieBreak != "fewer_units_first" {
		t.Fatalf("unexpected tie break %q", result.TieBreak)
	}
	if counted.Election.Status != entities.ElectionStatusCounted || counted.Election.CountedAt == nil {
		t.Fatalf("expected counted election, got %+v", counted.Election)
	}

	again, err := uc.CountElection(context.Background(), CountElectionCommand{ElectionID: election.ElectionID})
	if err != nil {
		t.Fatalf("recount: %v", err)
	}
	if !again.Replayed || again.Result.Quota != 26 {
		t.Fatalf("expected stored result replay, got %+v", again)
	}

	if _, err := uc.CastBallot(context.Background(), CastBallotCommand{
		IdempotencyKey: "late",
		ElectionID:     election.ElectionID,
		VoterID:        "late-voter",
		Preferences:    []string{horse},
	}); !errors.Is(err, domainerrors.ErrElectionClosed) {
		t.Fatalf("expected closed election, got %v", err)
	}
}

func TestCountElectionWithoutBallotsFillsByDefault(t *testing.T) {
	uc := newUseCase(memory.NewStore(nil))
	election := openZooElection(t, uc, 3)

	counted, err := uc.CountElection(context.Background(), CountElectionCommand{ElectionID: election.ElectionID})
	if err != nil {
		t.Fatalf("count election: %v", err)
	}
	if counted.Result.Quota != 1 || !counted.Result.FilledByDefault {
		t.Fatalf("unexpected result: %+v", counted.Result)
	}
	if len(counted.Result.Winners) != 3 {
		t.Fatalf("expected 3 winners, got %v", counted.Result.Winners)
	}
}

func TestCountElectionEmitsOutboxEvents(t *testing.T) {
	store := memory.NewStore(nil)
	uc := newUseCase(store)
	election := openZooElection(t, uc, 1)
	castMany(t, uc, election.ElectionID, 0, 3, idOf(t, election, "Lion"))

	if _, err := uc.CountElection(context.Background(), CountElectionCommand{ElectionID: election.ElectionID}); err != nil {
		t.Fatalf("count election: %v", err)
	}
	pending, err := store.ListPendingOutbox(context.Background(), 100)
	if err != nil {
		t.Fatalf("list outbox: %v", err)
	}
	counts := map[string]int{}
	for _, row := range pending {
		counts[row.EventType]++
		if row.PartitionKey != election.ElectionID {
			t.Fatalf("expected partition key %s, got %s", election.ElectionID, row.PartitionKey)
		}
	}
	if counts[EventElectionCreated] != 1 || counts[EventBallotCast] != 3 || counts[EventElectionCounted] != 1 {
		t.Fatalf("unexpected outbox events: %v", counts)
	}
}

func TestCountElectionMissing(t *testing.T) {
	uc := newUseCase(memory.NewStore(nil))
	_, err := uc.CountElection(context.Background(), CountElectionCommand{ElectionID: "missing"})
	if !errors.Is(err, domainerrors.ErrElectionNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

type failingRecordStore struct {
	*memory.Store
	failures int
}

func (s *failingRecordStore) RecordCount(ctx context.Context, result entities.CountResult) (entities.Election, error) {
	if s.failures > 0 {
		s.failures--
		return entities.Election{}, errors.New("db down")
	}
	return s.Store.RecordCount(ctx, result)
}

func TestCountElectionRecoversFromFailedRecord(t *testing.T) {
	store := &failingRecordStore{Store: memory.NewStore(nil), failures: 1}
	uc := newUseCase(store.Store)
	uc.Elections = store
	election := openZooElection(t, uc, 1)
	lion := idOf(t, election, "Lion")
	castMany(t, uc, election.ElectionID, 0, 3, lion)

	if _, err := uc.CountElection(context.Background(), CountElectionCommand{ElectionID: election.ElectionID}); err == nil {
		t.Fatalf("expected the first count to fail")
	}
	stuck, err := store.GetElection(context.Background(), election.ElectionID)
	if err != nil {
		t.Fatalf("get election: %v", err)
	}
	if stuck.Status != entities.ElectionStatusClosed {
		t.Fatalf("expected closed election after failed count, got %q", stuck.Status)
	}
	if _, err := uc.CastBallot(context.Background(), CastBallotCommand{
		IdempotencyKey: "after-failure",
		ElectionID:     election.ElectionID,
		VoterID:        "late-voter",
		Preferences:    []string{lion},
	}); !errors.Is(err, domainerrors.ErrElectionClosed) {
		t.Fatalf("expected closed election, got %v", err)
	}

	counted, err := uc.CountElection(context.Background(), CountElectionCommand{ElectionID: election.ElectionID})
	if err != nil {
		t.Fatalf("retry count: %v", err)
	}
	if counted.Replayed || counted.Election.Status != entities.ElectionStatusCounted {
		t.Fatalf("expected a fresh count on retry, got %+v", counted)
	}
	if counted.Result.TotalBallots != 3 || len(counted.Result.Winners) != 1 || counted.Result.Winners[0] != lion {
		t.Fatalf("unexpected result: %+v", counted.Result)
	}
}

// interleavedStore runs onRead after the first GetElection, between the
// caller's status check and its write.
type interleavedStore struct {
	*memory.Store
	onRead func()
}

func (s *interleavedStore) GetElection(ctx context.Context, electionID string) (entities.Election, error) {
	election, err := s.Store.GetElection(ctx, electionID)
	if s.onRead != nil {
		hook := s.onRead
		s.onRead = nil
		hook()
	}
	return election, err
}

func TestCastBallotLosesRaceWithCount(t *testing.T) {
	store := memory.NewStore(nil)
	counter := newUseCase(store)
	election := openZooElection(t, counter, 1)
	lion := idOf(t, election, "Lion")
	castMany(t, counter, election.ElectionID, 0, 2, lion)

	var counted CountElectionResult
	racing := &interleavedStore{Store: store}
	racing.onRead = func() {
		result, err := counter.CountElection(context.Background(), CountElectionCommand{ElectionID: election.ElectionID})
		if err != nil {
			t.Fatalf("count election: %v", err)
		}
		counted = result
	}
	voter := newUseCase(store)
	voter.Elections = racing

	_, err := voter.CastBallot(context.Background(), CastBallotCommand{
		IdempotencyKey: "racing",
		ElectionID:     election.ElectionID,
		VoterID:        "racing-voter",
		Preferences:    []string{idOf(t, election, "Snake")},
	})
	if !errors.Is(err, domainerrors.ErrElectionClosed) {
		t.Fatalf("expected ballot to be refused after the count closed the election, got %v", err)
	}
	if counted.Result.TotalBallots != 2 {
		t.Fatalf("expected the count to cover 2 ballots, got %d", counted.Result.TotalBallots)
	}
	stored, err := store.CountBallots(context.Background(), election.ElectionID)
	if err != nil || stored != counted.Result.TotalBallots {
		t.Fatalf("stored ballots %d differ from counted %d (err=%v)", stored, counted.Result.TotalBallots, err)
	}
}
