package events

import (
	"context"
	"time"

	"github.com/mergington/activities-api/internal/domain"
)

type Type string

const (
	TypeParticipantEnrolled   Type = "participant.enrolled"
	TypeParticipantUnenrolled Type = "participant.unenrolled"
)

// EnrollmentEvent describes a committed roster change.
type EnrollmentEvent struct {
	ID          string
	Type        Type
	Activity    domain.ActivityName
	Participant domain.ParticipantID
	OccurredAt  time.Time
}

// Publisher delivers enrollment events to downstream consumers.
// It is only called after the roster change has committed.
type Publisher interface {
	Publish(ctx context.Context, e EnrollmentEvent) error
}
