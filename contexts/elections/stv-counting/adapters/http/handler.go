package httpadapter

import (
	"context"
	"log/slog"
	"time"

	"wrightstv/contexts/elections/stv-counting/application/commands"
	"wrightstv/contexts/elections/stv-counting/application/queries"
	"wrightstv/contexts/elections/stv-counting/domain/entities"
	httptransport "wrightstv/contexts/elections/stv-counting/transport/http"
)

type Handler struct {
	Elections commands.ElectionUseCase
	Results   queries.ResultsUseCase
	Logger    *slog.Logger
}

func (h Handler) CreateElectionHandler(
	ctx context.Context,
	idempotencyKey string,
	req httptransport.CreateElectionRequest,
) (httptransport.ElectionResponse, error) {
	result, err := h.Elections.CreateElection(ctx, commands.CreateElectionCommand{
		IdempotencyKey: idempotencyKey,
		Title:          req.Title,
		Seats:          req.Seats,
		Candidates:     req.Candidates,
	})
	if err != nil {
		return httptransport.ElectionResponse{}, err
	}
	resp := mapElection(result.Election, 0)
	resp.Replayed = result.Replayed
	return resp, nil
}

func (h Handler) GetElectionHandler(ctx context.Context, electionID string) (httptransport.ElectionResponse, error) {
	view, err := h.Results.GetElection(ctx, electionID)
	if err != nil {
		return httptransport.ElectionResponse{}, err
	}
	return mapElection(view.Election, view.BallotCount), nil
}

func (h Handler) CastBallotHandler(
	ctx context.Context,
	voterID string,
	idempotencyKey string,
	electionID string,
	req httptransport.CastBallotRequest,
) (httptransport.BallotResponse, error) {
	result, err := h.Elections.CastBallot(ctx, commands.CastBallotCommand{
		IdempotencyKey: idempotencyKey,
		ElectionID:     electionID,
		VoterID:        voterID,
		Preferences:    req.Preferences,
	})
	if err != nil {
		return httptransport.BallotResponse{}, err
	}
	return httptransport.BallotResponse{
		BallotID:    result.Ballot.BallotID,
		ElectionID:  result.Ballot.ElectionID,
		VoterID:     result.Ballot.VoterID,
		Preferences: result.Ballot.Preferences,
		CastAt:      result.Ballot.CastAt.UTC().Format(time.RFC3339),
		Replayed:    result.Replayed,
	}, nil
}

func (h Handler) CountElectionHandler(ctx context.Context, electionID string) (httptransport.CountResultResponse, error) {
	result, err := h.Elections.CountElection(ctx, commands.CountElectionCommand{
		ElectionID: electionID,
	})
	if err != nil {
		return httptransport.CountResultResponse{}, err
	}
	resp := mapResult(result.Election, result.Result)
	resp.Replayed = result.Replayed
	return resp, nil
}

func (h Handler) GetResultHandler(ctx context.Context, electionID string) (httptransport.CountResultResponse, error) {
	view, err := h.Results.GetElection(ctx, electionID)
	if err != nil {
		return httptransport.CountResultResponse{}, err
	}
	result, err := h.Results.GetResult(ctx, electionID)
	if err != nil {
		return httptransport.CountResultResponse{}, err
	}
	return mapResult(view.Election, result), nil
}

func mapElection(election entities.Election, ballotCount int) httptransport.ElectionResponse {
	resp := httptransport.ElectionResponse{
		ElectionID:  election.ElectionID,
		Title:       election.Title,
		Seats:       election.Seats,
		Status:      string(election.Status),
		Candidates:  make([]httptransport.CandidateResponse, 0, len(election.Candidates)),
		BallotCount: ballotCount,
		CreatedAt:   election.CreatedAt.UTC().Format(time.RFC3339),
	}
	if election.CountedAt != nil {
		resp.CountedAt = election.CountedAt.UTC().Format(time.RFC3339)
	}
	for _, c := range election.Candidates {
		resp.Candidates = append(resp.Candidates, httptransport.CandidateResponse{
			CandidateID: c.CandidateID,
			Name:        c.Name,
			Position:    c.Position,
		})
	}
	return resp
}

func mapResult(election entities.Election, result entities.CountResult) httptransport.CountResultResponse {
	name := func(candidateID string) string {
		c, _ := election.Candidate(candidateID)
		return c.Name
	}
	resp := httptransport.CountResultResponse{
		ElectionID:      result.ElectionID,
		Seats:           election.Seats,
		Quota:           result.Quota,
		TotalBallots:    result.TotalBallots,
		TieBreak:        result.TieBreak,
		FilledByDefault: result.FilledByDefault,
		Winners:         make([]httptransport.WinnerItem, 0, len(result.Winners)),
		Rounds:          make([]httptransport.RoundItem, 0, len(result.Rounds)),
		CountedAt:       result.CountedAt.UTC().Format(time.RFC3339),
	}
	for _, id := range result.Winners {
		resp.Winners = append(resp.Winners, httptransport.WinnerItem{CandidateID: id, Name: name(id)})
	}
	for _, round := range result.Rounds {
		item := httptransport.RoundItem{
			Number:    round.Number,
			Standings: make([]httptransport.StandingItem, 0, len(round.Standings)),
			Transfers: make([]httptransport.TransferItem, 0, len(round.Transfers)),
			Exhausted: httptransport.VoteValue(round.Exhausted),
			Elected:   append([]string{}, round.Elected...),
			Excluded:  round.Excluded,
		}
		for _, s := range round.Standings {
			item.Standings = append(item.Standings, httptransport.StandingItem{
				CandidateID: s.CandidateID,
				Name:        name(s.CandidateID),
				Votes:       httptransport.VoteValue(s.Votes),
				Ballots:     s.Ballots,
				Elected:     s.Elected,
			})
		}
		for _, tr := range round.Transfers {
			item.Transfers = append(item.Transfers, httptransport.TransferItem{
				CandidateID: tr.CandidateID,
				Name:        name(tr.CandidateID),
				Surplus:     httptransport.VoteValue(tr.Surplus),
			})
		}
		resp.Rounds = append(resp.Rounds, item)
	}
	return resp
}
