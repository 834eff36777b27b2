package stv

import "math/big"

// allocation is a ballot's current share of the vote within one
// elimination round.
type allocation struct {
	prefs  []int
	weight *big.Rat
}

func newAllocations(ballots [][]int) []*allocation {
	units := make([]*allocation, 0, len(ballots))
	for _, prefs := range ballots {
		units = append(units, &allocation{prefs: prefs, weight: big.NewRat(1, 1)})
	}
	return units
}

// mostPreferred returns the first preference that is still active. ok is
// false when the unit is exhausted.
func (a *allocation) mostPreferred(active activeSet) (slot int, ok bool) {
	for _, pref := range a.prefs {
		if active.has(pref) {
			return pref, true
		}
	}
	return 0, false
}

func (a *allocation) rescale(ratio *big.Rat) {
	a.weight = new(big.Rat).Mul(a.weight, ratio)
}

// split hands ratio of the unit's weight to a new unit over the same ballot
// and keeps the remainder.
func (a *allocation) split(ratio *big.Rat) *allocation {
	moved := &allocation{prefs: a.prefs, weight: a.weight}
	moved.rescale(ratio)
	a.rescale(new(big.Rat).Sub(big.NewRat(1, 1), ratio))
	return moved
}
