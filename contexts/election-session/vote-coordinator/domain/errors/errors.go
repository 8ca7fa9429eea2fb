package errors

import "errors"

var (
	ErrInvalidInput     = errors.New("invalid session input")
	ErrVoterNotFound    = errors.New("voter not found")
	ErrUnknownCandidate = errors.New("candidate not found")
	ErrAlreadyVoted     = errors.New("voter has already voted")
	ErrTokenConflict    = errors.New("identity token already registered")
	ErrStorage          = errors.New("storage failure")
)
