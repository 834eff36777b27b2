package stv

import (
	"math/big"
	"sort"
)

// board owns one tally per standing candidate, indexed by slot.
type board struct {
	tallies []*tally
}

func newBoard(active activeSet) *board {
	b := &board{tallies: make([]*tally, len(active))}
	for slot, standing := range active {
		if standing {
			b.tallies[slot] = newTally(slot)
		}
	}
	return b
}

// attributeAll gives every unit to its most preferred target. Exhausted
// units are dropped for the rest of the round; their combined weight is
// returned.
func (b *board) attributeAll(units []*allocation, targets activeSet) *big.Rat {
	exhausted := new(big.Rat)
	for _, unit := range units {
		slot, ok := unit.mostPreferred(targets)
		if !ok || b.tallies[slot] == nil {
			exhausted.Add(exhausted, unit.weight)
			continue
		}
		b.tallies[slot].attribute(unit)
	}
	return exhausted
}

func (b *board) ranked(tieBreak TieBreak) []*tally {
	out := make([]*tally, 0, len(b.tallies))
	for _, t := range b.tallies {
		if t != nil {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return compareDescending(out[i], out[j], tieBreak) < 0
	})
	return out
}

func (b *board) total() *big.Rat {
	sum := new(big.Rat)
	for _, t := range b.tallies {
		if t != nil {
			sum.Add(sum, t.sum)
		}
	}
	return sum
}
