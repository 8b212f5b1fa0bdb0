package rosterrepo

import (
	"context"

	"github.com/mergington/activities-api/internal/domain"
)

// Repository is the authoritative store of activities and their rosters.
//
// Implementations must make TryAddParticipant and RemoveParticipant linearizable per
// activity: the capacity/membership check and the roster change are one atomic unit, and
// readers never observe a partially applied change. Mutations against different
// activities must not block each other for longer than the local critical section.
type Repository interface {
	// Create provisions an activity with its initial roster.
	// If an activity with the same name exists, ErrAlreadyExists is returned and the
	// existing record is left untouched.
	Create(ctx context.Context, a domain.Activity) error

	// Get returns a copy of the activity. If it does not exist, ErrNotFound is returned.
	Get(ctx context.Context, name domain.ActivityName) (domain.Activity, error)

	// List returns all activities in provisioning order.
	List(ctx context.Context) ([]domain.Activity, error)

	// TryAddParticipant appends id to the roster if it is absent and a spot is free.
	// Errors: ErrNotFound, ErrAlreadyEnrolled, ErrCapacityExceeded.
	TryAddParticipant(ctx context.Context, name domain.ActivityName, id domain.ParticipantID) error

	// RemoveParticipant removes id from the roster.
	// Errors: ErrNotFound, ErrNotInRoster.
	RemoveParticipant(ctx context.Context, name domain.ActivityName, id domain.ParticipantID) error
}
