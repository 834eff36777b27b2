package stv

import "github.com/pkg/errors"

var (
	ErrInvalidSeats        = errors.New("stv: seats must be at least one")
	ErrNotEnoughCandidates = errors.New("stv: fewer candidates than seats")
	ErrNilCandidate        = errors.New("stv: nil candidate in pool")
	ErrDuplicateCandidate  = errors.New("stv: candidate listed more than once in pool")
)
