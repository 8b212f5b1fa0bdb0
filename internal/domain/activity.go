package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidActivity is returned when an activity definition cannot be provisioned.
var ErrInvalidActivity = errors.New("invalid activity")

// Activity is a capacity-bounded enrollment unit.
//
// Participants keeps insertion order so listings are deterministic; membership is a set
// (an identifier never appears twice).
type Activity struct {
	Name            ActivityName
	Description     string
	Schedule        string
	MaxParticipants int
	Participants    []ParticipantID
}

// SpotsLeft is always derived from the roster; it is never stored.
func (a Activity) SpotsLeft() int {
	n := a.MaxParticipants - len(a.Participants)
	if n < 0 {
		return 0
	}
	return n
}

// IsFull reports whether no further participant can be added.
func (a Activity) IsFull() bool {
	return len(a.Participants) >= a.MaxParticipants
}

// HasParticipant reports whether id is currently enrolled.
func (a Activity) HasParticipant(id ParticipantID) bool {
	for _, p := range a.Participants {
		if p == id {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so callers can't mutate a store's roster slice.
func (a Activity) Clone() Activity {
	out := a
	if a.Participants != nil {
		out.Participants = append([]ParticipantID(nil), a.Participants...)
	}
	return out
}

// Validate checks the provisioning invariants: a non-empty name, a positive capacity,
// and an initial roster that is unique and within capacity.
func (a Activity) Validate() error {
	if a.Name == "" {
		return fmt.Errorf("%w: name must be non-empty", ErrInvalidActivity)
	}
	if a.MaxParticipants < 1 {
		return fmt.Errorf("%w: %q max participants must be >= 1", ErrInvalidActivity, a.Name)
	}
	if len(a.Participants) > a.MaxParticipants {
		return fmt.Errorf("%w: %q has %d participants, capacity %d", ErrInvalidActivity, a.Name, len(a.Participants), a.MaxParticipants)
	}
	seen := make(map[ParticipantID]struct{}, len(a.Participants))
	for _, p := range a.Participants {
		if _, dup := seen[p]; dup {
			return fmt.Errorf("%w: %q lists %q twice", ErrInvalidActivity, a.Name, p)
		}
		seen[p] = struct{}{}
	}
	return nil
}
