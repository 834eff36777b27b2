package stv

import "github.com/pkg/errors"

// Candidate is compared by pointer. Two candidates sharing a name are
// different candidates.
type Candidate struct {
	Name string
}

func NewCandidate(name string) *Candidate {
	return &Candidate{Name: name}
}

func (c *Candidate) String() string {
	if c == nil {
		return "<nil>"
	}
	return c.Name
}

// Ballot is one voter's ranking, most preferred first.
type Ballot struct {
	prefs []*Candidate
}

// NewBallot keeps the first occurrence of each candidate and drops nil
// entries. The ballot is immutable afterwards.
func NewBallot(prefs ...*Candidate) Ballot {
	seen := make(map[*Candidate]struct{}, len(prefs))
	kept := make([]*Candidate, 0, len(prefs))
	for _, c := range prefs {
		if c == nil {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		kept = append(kept, c)
	}
	return Ballot{prefs: kept}
}

func (b Ballot) Preferences() []*Candidate {
	return append([]*Candidate(nil), b.prefs...)
}

func (b Ballot) Len() int {
	return len(b.prefs)
}

// roster assigns each candidate of one count a stable slot. All tallying
// works on slots; the identity table is consulted only when ballots are
// resolved and results are reported.
type roster struct {
	candidates []*Candidate
	slots      map[*Candidate]int
}

func newRoster(candidates []*Candidate) (*roster, error) {
	r := &roster{
		candidates: make([]*Candidate, 0, len(candidates)),
		slots:      make(map[*Candidate]int, len(candidates)),
	}
	for i, c := range candidates {
		if c == nil {
			return nil, errors.Wrapf(ErrNilCandidate, "position %d", i)
		}
		if _, dup := r.slots[c]; dup {
			return nil, errors.Wrapf(ErrDuplicateCandidate, "candidate %q at position %d", c.Name, i)
		}
		r.slots[c] = len(r.candidates)
		r.candidates = append(r.candidates, c)
	}
	return r, nil
}

// resolve maps a ballot onto slots. Preferences for candidates outside the
// pool can never become active and are left out.
func (r *roster) resolve(b Ballot) []int {
	prefs := make([]int, 0, len(b.prefs))
	for _, c := range b.prefs {
		if slot, ok := r.slots[c]; ok {
			prefs = append(prefs, slot)
		}
	}
	return prefs
}

func (r *roster) resolveAll(ballots []Ballot) [][]int {
	out := make([][]int, 0, len(ballots))
	for _, b := range ballots {
		out = append(out, r.resolve(b))
	}
	return out
}

func (r *roster) allSlots() []int {
	slots := make([]int, len(r.candidates))
	for i := range slots {
		slots[i] = i
	}
	return slots
}

func (r *roster) candidatesAt(slots []int) []*Candidate {
	out := make([]*Candidate, 0, len(slots))
	for _, slot := range slots {
		out = append(out, r.candidates[slot])
	}
	return out
}

func (r *roster) activeSet(slots []int) activeSet {
	active := make(activeSet, len(r.candidates))
	for _, slot := range slots {
		active[slot] = true
	}
	return active
}

// activeSet marks the slots a unit may currently be attributed to.
type activeSet []bool

func (s activeSet) has(slot int) bool {
	return slot >= 0 && slot < len(s) && s[slot]
}

func (s activeSet) without(slot int) activeSet {
	next := append(activeSet(nil), s...)
	if slot >= 0 && slot < len(next) {
		next[slot] = false
	}
	return next
}
