package queries

import (
	"context"
	"strings"

	"wrightstv/contexts/elections/stv-counting/domain/entities"
	domainerrors "wrightstv/contexts/elections/stv-counting/domain/errors"
	"wrightstv/contexts/elections/stv-counting/ports"
)

type ElectionView struct {
	Election    entities.Election
	BallotCount int
}

type ResultsUseCase struct {
	Elections ports.ElectionRepository
}

func (uc ResultsUseCase) GetElection(ctx context.Context, electionID string) (ElectionView, error) {
	election, err := uc.Elections.GetElection(ctx, strings.TrimSpace(electionID))
	if err != nil {
		return ElectionView{}, err
	}
	count, err := uc.Elections.CountBallots(ctx, election.ElectionID)
	if err != nil {
		return ElectionView{}, err
	}
	return ElectionView{Election: election, BallotCount: count}, nil
}

func (uc ResultsUseCase) GetResult(ctx context.Context, electionID string) (entities.CountResult, error) {
	electionID = strings.TrimSpace(electionID)
	if _, err := uc.Elections.GetElection(ctx, electionID); err != nil {
		return entities.CountResult{}, err
	}
	result, found, err := uc.Elections.GetResult(ctx, electionID)
	if err != nil {
		return entities.CountResult{}, err
	}
	if !found {
		return entities.CountResult{}, domainerrors.ErrElectionNotCounted
	}
	return result, nil
}
