package commands

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strings"

	application "wrightstv/contexts/elections/stv-counting/application"
	"wrightstv/contexts/elections/stv-counting/domain/entities"
	domainerrors "wrightstv/contexts/elections/stv-counting/domain/errors"
	"wrightstv/contexts/elections/stv-counting/domain/stv"
)

type CountElectionCommand struct {
	ElectionID string
}

type CountElectionResult struct {
	Election entities.Election
	Result   entities.CountResult
	Replayed bool
}

// CountElection closes the election and runs the Wright STV count over every
// ballot cast. Counting a counted election returns the stored result, and a
// closed election whose count did not finish is counted again.
func (uc ElectionUseCase) CountElection(ctx context.Context, cmd CountElectionCommand) (CountElectionResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	electionID := strings.TrimSpace(cmd.ElectionID)
	logger.Info("election count processing started",
		"event", "stv_election_count_started",
		"module", application.ModuleName,
		"layer", "application",
		"election_id", electionID,
		"tie_break", uc.TieBreak.String(),
	)

	election, err := uc.Elections.GetElection(ctx, electionID)
	if err != nil {
		return CountElectionResult{}, err
	}
	if election.IsOpen() {
		// Ballots are frozen from here on; SaveBallot refuses closed elections.
		election, err = uc.Elections.CloseElection(ctx, electionID, uc.now())
		if err != nil {
			return CountElectionResult{}, err
		}
	}
	if election.Status == entities.ElectionStatusCounted {
		return uc.replayCount(ctx, election)
	}

	ballots, err := uc.Elections.ListBallots(ctx, electionID)
	if err != nil {
		return CountElectionResult{}, err
	}
	now := uc.now()
	result, err := tallyElection(election, ballots, uc.TieBreak)
	if err != nil {
		logger.Error("election count failed",
			"event", "stv_election_count_failed",
			"module", application.ModuleName,
			"layer", "application",
			"election_id", electionID,
			"ballot_count", len(ballots),
			"error", err.Error(),
		)
		return CountElectionResult{}, err
	}
	result.CountedAt = now

	counted, err := uc.Elections.RecordCount(ctx, result)
	if err != nil {
		if errors.Is(err, domainerrors.ErrConflict) {
			return uc.replayCount(ctx, election)
		}
		return CountElectionResult{}, err
	}
	if err := uc.appendEvent(ctx, EventElectionCounted, electionID, now, map[string]any{
		"election_id":       electionID,
		"quota":             result.Quota,
		"total_ballots":     result.TotalBallots,
		"winners":           result.Winners,
		"filled_by_default": result.FilledByDefault,
		"rounds":            len(result.Rounds),
	}); err != nil {
		return CountElectionResult{}, err
	}

	logger.Info("election counted",
		"event", "stv_election_counted",
		"module", application.ModuleName,
		"layer", "application",
		"election_id", electionID,
		"quota", result.Quota,
		"ballot_count", result.TotalBallots,
		"rounds", len(result.Rounds),
		"winners", strings.Join(result.Winners, ","),
	)
	return CountElectionResult{Election: counted, Result: result}, nil
}

func (uc ElectionUseCase) replayCount(ctx context.Context, election entities.Election) (CountElectionResult, error) {
	stored, found, err := uc.Elections.GetResult(ctx, election.ElectionID)
	if err != nil {
		return CountElectionResult{}, err
	}
	if !found {
		return CountElectionResult{}, domainerrors.ErrConflict
	}
	if election.Status != entities.ElectionStatusCounted {
		current, err := uc.Elections.GetElection(ctx, election.ElectionID)
		if err != nil {
			return CountElectionResult{}, err
		}
		election = current
	}
	application.ResolveLogger(uc.Logger).Info("election count replayed",
		"event", "stv_election_count_replayed",
		"module", application.ModuleName,
		"layer", "application",
		"election_id", election.ElectionID,
	)
	return CountElectionResult{Election: election, Result: stored, Replayed: true}, nil
}

// tallyElection maps stored ids onto fresh engine candidates for a single
// count and maps the engine's report back onto ids.
func tallyElection(election entities.Election, ballots []entities.Ballot, tieBreak stv.TieBreak) (entities.CountResult, error) {
	ordered := append([]entities.Candidate(nil), election.Candidates...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Position < ordered[j].Position
	})

	byID := make(map[string]*stv.Candidate, len(ordered))
	ids := make(map[*stv.Candidate]string, len(ordered))
	pool := make([]*stv.Candidate, 0, len(ordered))
	for _, c := range ordered {
		candidate := stv.NewCandidate(c.Name)
		byID[c.CandidateID] = candidate
		ids[candidate] = c.CandidateID
		pool = append(pool, candidate)
	}

	papers := make([]stv.Ballot, 0, len(ballots))
	for _, b := range ballots {
		prefs := make([]*stv.Candidate, 0, len(b.Preferences))
		for _, candidateID := range b.Preferences {
			if candidate, ok := byID[candidateID]; ok {
				prefs = append(prefs, candidate)
			}
		}
		papers = append(papers, stv.NewBallot(prefs...))
	}

	outcome, err := stv.Count(election.Seats, papers, pool, stv.WithTieBreak(tieBreak))
	if err != nil {
		if errors.Is(err, stv.ErrNotEnoughCandidates) {
			return entities.CountResult{}, domainerrors.ErrNotEnoughCandidates
		}
		return entities.CountResult{}, fmt.Errorf("%w: %v", domainerrors.ErrInvalidElectionInput, err)
	}

	result := entities.CountResult{
		ElectionID:      election.ElectionID,
		Quota:           outcome.Quota,
		TotalBallots:    len(ballots),
		Winners:         idsOf(ids, outcome.Winners),
		FilledByDefault: outcome.FilledByDefault,
		TieBreak:        tieBreak.String(),
		Rounds:          make([]entities.RoundSummary, 0, len(outcome.Rounds)),
	}
	for _, round := range outcome.Rounds {
		summary := entities.RoundSummary{
			Number:    round.Number,
			Standings: make([]entities.Standing, 0, len(round.Standings)),
			Transfers: make([]entities.SurplusTransfer, 0, len(round.Transfers)),
			Exhausted: exactVote(round.Exhausted),
			Elected:   idsOf(ids, round.Elected),
		}
		for _, s := range round.Standings {
			summary.Standings = append(summary.Standings, entities.Standing{
				CandidateID: ids[s.Candidate],
				Votes:       exactVote(s.Votes),
				Ballots:     s.Units,
				Elected:     s.Elected,
			})
		}
		for _, tr := range round.Transfers {
			summary.Transfers = append(summary.Transfers, entities.SurplusTransfer{
				CandidateID: ids[tr.From],
				Surplus:     exactVote(tr.Surplus),
			})
		}
		if round.Excluded != nil {
			summary.Excluded = ids[round.Excluded]
		}
		result.Rounds = append(result.Rounds, summary)
	}
	return result, nil
}

func idsOf(ids map[*stv.Candidate]string, candidates []*stv.Candidate) []string {
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, ids[c])
	}
	return out
}

func exactVote(value *big.Rat) entities.Vote {
	approx, _ := value.Float64()
	return entities.Vote{Exact: value.RatString(), Approx: approx}
}
