package models

import "errors"

// Common errors for control plane operations.
var (
	// Job errors
	ErrJobNotFound       = errors.New("upload job not found")
	ErrDuplicateJob      = errors.New("upload job already exists")
	ErrInvalidTransition = errors.New("invalid job state transition")
	ErrJobNotResumable   = errors.New("job is not in a resumable state")
	ErrJobNotOwned       = errors.New("job belongs to a different user")

	// Mapping errors
	ErrUnknownMappingField = errors.New("mapping references an unknown destination field")
	ErrEmptyMapping        = errors.New("mapping must contain at least one field")

	// Candidate errors
	ErrCandidateNotFound = errors.New("candidate not found")
)
