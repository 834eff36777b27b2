package stv

import (
	"math/big"

	"github.com/pkg/errors"
)

// Standing is a candidate's stable tally at the end of a round.
type Standing struct {
	Candidate *Candidate
	Votes     *big.Rat
	Units     int
	Elected   bool
}

// Transfer is one surplus handed on during a round.
type Transfer struct {
	From    *Candidate
	Surplus *big.Rat
}

// Round describes one elimination round. Excluded is nil on the round that
// decided the election.
type Round struct {
	Number    int
	Standings []Standing
	Transfers []Transfer
	Exhausted *big.Rat
	Elected   []*Candidate
	Excluded  *Candidate
}

type Result struct {
	Quota   int
	Winners []*Candidate
	Rounds  []Round
	// Exhausted is the weight that reached no standing candidate in the
	// last round counted, zero when no round ran.
	Exhausted *big.Rat
	// FilledByDefault is set when the last seats went to the only
	// candidates left standing rather than to candidates reaching quota.
	FilledByDefault bool
}

// WrightSTV returns the elected candidates. Candidates reaching quota come
// strongest first; see Count for seats filled by default.
func WrightSTV(seats int, ballots []Ballot, candidates []*Candidate) ([]*Candidate, error) {
	result, err := Count(seats, ballots, candidates)
	if err != nil {
		return nil, err
	}
	return result.Winners, nil
}

// Count runs the election and reports every elimination round.
//
// Each round starts over from the full ballot list at weight one, restricted
// to the candidates still standing. When fewer than seats candidates reach
// quota, the lowest ranked candidate is excluded and the next round begins.
// When exactly seats candidates remain standing they are all elected, weakest
// of the last ranking first (input order if no round was needed).
func Count(seats int, ballots []Ballot, candidates []*Candidate, opts ...Option) (Result, error) {
	cfg := settings{tieBreak: FewerUnitsFirst}
	for _, opt := range opts {
		opt(&cfg)
	}
	if seats < 1 {
		return Result{}, errors.Wrapf(ErrInvalidSeats, "got %d", seats)
	}
	pool, err := newRoster(candidates)
	if err != nil {
		return Result{}, err
	}

	result := Result{Quota: DroopQuota(seats, len(ballots)), Exhausted: new(big.Rat)}
	quota := big.NewRat(int64(result.Quota), 1)
	prefs := pool.resolveAll(ballots)
	standing := pool.allSlots()

	for {
		if len(standing) < seats {
			return Result{}, errors.Wrapf(ErrNotEnoughCandidates, "%d candidates for %d seats", len(standing), seats)
		}
		if len(standing) == seats {
			result.Winners = pool.candidatesAt(standing)
			result.FilledByDefault = true
			return result, nil
		}

		stable := stabilize(quota, newAllocations(prefs), pool.activeSet(standing), cfg.tieBreak)
		ranked := stable.board.ranked(cfg.tieBreak)
		round := pool.describe(len(result.Rounds)+1, quota, ranked, stable)
		result.Exhausted.Set(round.Exhausted)

		var winners []int
		for _, t := range ranked {
			if t.isElected(quota) {
				winners = append(winners, t.slot)
			}
		}
		if len(winners) == seats {
			result.Rounds = append(result.Rounds, round)
			result.Winners = pool.candidatesAt(winners)
			return result, nil
		}

		lowest := ranked[len(ranked)-1]
		round.Excluded = pool.candidates[lowest.slot]
		result.Rounds = append(result.Rounds, round)

		// Survivors are kept weakest first; a default fill returns them so.
		standing = make([]int, 0, len(ranked)-1)
		for i := len(ranked) - 2; i >= 0; i-- {
			standing = append(standing, ranked[i].slot)
		}
	}
}

func (r *roster) describe(number int, quota *big.Rat, ranked []*tally, stable stabilization) Round {
	round := Round{
		Number:    number,
		Standings: make([]Standing, 0, len(ranked)),
		Transfers: make([]Transfer, 0, len(stable.transfers)),
		Exhausted: new(big.Rat).Set(stable.exhausted),
	}
	for _, t := range ranked {
		elected := t.isElected(quota)
		round.Standings = append(round.Standings, Standing{
			Candidate: r.candidates[t.slot],
			Votes:     new(big.Rat).Set(t.sum),
			Units:     len(t.units),
			Elected:   elected,
		})
		if elected {
			round.Elected = append(round.Elected, r.candidates[t.slot])
		}
	}
	for _, tr := range stable.transfers {
		round.Transfers = append(round.Transfers, Transfer{
			From:    r.candidates[tr.slot],
			Surplus: new(big.Rat).Set(tr.surplus),
		})
	}
	return round
}
