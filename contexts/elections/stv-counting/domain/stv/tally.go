package stv

import (
	"fmt"
	"math/big"
)

// tally accumulates the units attributed to one candidate. sum is always the
// exact total of the units' weights.
type tally struct {
	slot  int
	units []*allocation
	sum   *big.Rat
}

func newTally(slot int) *tally {
	return &tally{slot: slot, sum: new(big.Rat)}
}

func (t *tally) attribute(unit *allocation) {
	t.units = append(t.units, unit)
	t.sum = new(big.Rat).Add(t.sum, unit.weight)
}

func (t *tally) isElected(quota *big.Rat) bool {
	return t.sum.Cmp(quota) >= 0
}

func (t *tally) hasSurplus(quota *big.Rat) bool {
	return t.sum.Cmp(quota) > 0
}

// declareSurplus keeps exactly quota and returns the excess as new units,
// each carrying (sum-quota)/sum of the unit it was split from.
func (t *tally) declareSurplus(quota *big.Rat) []*allocation {
	if !t.hasSurplus(quota) {
		panic(fmt.Sprintf("stv: surplus declared for slot %d holding %s against quota %s",
			t.slot, t.sum.RatString(), quota.RatString()))
	}
	ratio := new(big.Rat).Sub(t.sum, quota)
	ratio.Quo(ratio, t.sum)

	moved := make([]*allocation, 0, len(t.units))
	for _, unit := range t.units {
		moved = append(moved, unit.split(ratio))
	}
	t.sum = new(big.Rat).Set(quota)
	return moved
}

// compareDescending orders tallies by value, highest first. Equal values
// are ordered by tieBreak; a zero result leaves the pair in roster order.
func compareDescending(a, b *tally, tieBreak TieBreak) int {
	if c := b.sum.Cmp(a.sum); c != 0 {
		return c
	}
	if tieBreak == MoreUnitsFirst {
		return len(b.units) - len(a.units)
	}
	return len(a.units) - len(b.units)
}
