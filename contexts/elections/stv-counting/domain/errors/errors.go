package errors

import "errors"

var (
	ErrInvalidElectionInput   = errors.New("invalid election input")
	ErrElectionNotFound       = errors.New("election not found")
	ErrElectionClosed         = errors.New("election is closed")
	ErrElectionNotCounted     = errors.New("election has not been counted")
	ErrNotEnoughCandidates    = errors.New("fewer candidates than seats")
	ErrInvalidBallot          = errors.New("invalid ballot")
	ErrUnknownCandidate       = errors.New("ballot names a candidate outside the election")
	ErrAlreadyVoted           = errors.New("voter has already cast a ballot")
	ErrConflict               = errors.New("election conflict")
	ErrIdempotencyKeyRequired = errors.New("idempotency key is required")
	ErrIdempotencyConflict    = errors.New("idempotency key conflict")
)
