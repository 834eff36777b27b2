package stv

import (
	"strings"

	"github.com/pkg/errors"
)

// TieBreak orders tallies holding exactly the same value.
type TieBreak int

const (
	// FewerUnitsFirst ranks the tally built from fewer ballots higher.
	FewerUnitsFirst TieBreak = iota
	// MoreUnitsFirst ranks the tally built from more ballots higher.
	MoreUnitsFirst
)

func (tb TieBreak) String() string {
	switch tb {
	case FewerUnitsFirst:
		return "fewer_units_first"
	case MoreUnitsFirst:
		return "more_units_first"
	default:
		return "unknown"
	}
}

func ParseTieBreak(raw string) (TieBreak, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "fewer_units_first":
		return FewerUnitsFirst, nil
	case "more_units_first":
		return MoreUnitsFirst, nil
	default:
		return FewerUnitsFirst, errors.Errorf("stv: unknown tie-break %q", raw)
	}
}

type settings struct {
	tieBreak TieBreak
}

type Option func(*settings)

func WithTieBreak(tb TieBreak) Option {
	return func(s *settings) {
		s.tieBreak = tb
	}
}
