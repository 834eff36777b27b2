package stv

import "math/big"

type transfer struct {
	slot    int
	surplus *big.Rat
}

type stabilization struct {
	board     *board
	transfers []transfer
	exhausted *big.Rat
}

// stabilize counts units over the active candidates and transfers
// surpluses until no tally is above quota.
func stabilize(quota *big.Rat, units []*allocation, active activeSet, tieBreak TieBreak) stabilization {
	b := newBoard(active)
	exhausted := b.attributeAll(units, active)
	transfers, lost := b.settle(quota, active, tieBreak)
	return stabilization{
		board:     b,
		transfers: transfers,
		exhausted: exhausted.Add(exhausted, lost),
	}
}

// settle repeatedly takes the highest tally in surplus, drops it from the
// transfer targets and hands its excess to the remaining targets. Every pass
// retires one candidate, so the loop runs at most once per tally.
func (b *board) settle(quota *big.Rat, targets activeSet, tieBreak TieBreak) ([]transfer, *big.Rat) {
	var transfers []transfer
	exhausted := new(big.Rat)
	for {
		top := b.surplusTally(quota, tieBreak)
		if top == nil {
			return transfers, exhausted
		}
		targets = targets.without(top.slot)
		transfers = append(transfers, transfer{
			slot:    top.slot,
			surplus: new(big.Rat).Sub(top.sum, quota),
		})
		moved := top.declareSurplus(quota)
		exhausted.Add(exhausted, b.attributeAll(moved, targets))
	}
}

func (b *board) surplusTally(quota *big.Rat, tieBreak TieBreak) *tally {
	for _, t := range b.ranked(tieBreak) {
		if t.hasSurplus(quota) {
			return t
		}
	}
	return nil
}
