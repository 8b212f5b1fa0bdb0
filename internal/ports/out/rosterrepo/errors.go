package rosterrepo

import "errors"

var (
	// ErrNotFound indicates no activity exists with the requested name.
	ErrNotFound = errors.New("activity not found")

	// ErrAlreadyExists indicates an activity with the same name was already provisioned.
	ErrAlreadyExists = errors.New("activity already exists")

	// ErrCapacityExceeded indicates the roster is full.
	ErrCapacityExceeded = errors.New("activity capacity exceeded")

	// ErrAlreadyEnrolled indicates the participant is already in the roster.
	ErrAlreadyEnrolled = errors.New("participant already enrolled")

	// ErrNotInRoster indicates the participant is not currently in the roster.
	ErrNotInRoster = errors.New("participant not in roster")
)
