package enrollment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/mergington/activities-api/internal/domain"
	platformclock "github.com/mergington/activities-api/internal/platform/clock"
	"github.com/mergington/activities-api/internal/platform/logging"
	"github.com/mergington/activities-api/internal/ports/out/clock"
	"github.com/mergington/activities-api/internal/ports/out/events"
	"github.com/mergington/activities-api/internal/ports/out/rosterrepo"
)

const (
	OperationSignup     = "signup"
	OperationUnregister = "unregister"

	outcomeOK = "ok"

	// publishTimeout bounds a single background Publish call.
	publishTimeout = 5 * time.Second
)

// Recorder receives enrollment outcomes; observability.Metrics implements it.
type Recorder interface {
	ObserveEnrollment(operation, outcome string)
	ObserveEventFailure(eventType string)
}

// Service applies signups and unregisters. When a publisher is configured, each
// committed change is handed to a background dispatcher while the activity is still
// locked, so an activity's events reach the publisher in commit order.
// Call Close to drain pending events.
type Service struct {
	roster    rosterrepo.Repository
	publisher events.Publisher
	metrics   Recorder
	clock     clock.Clock

	newEventID func() string

	locks      activityLocks
	dispatcher *dispatcher
}

type Option func(*Service)

func WithPublisher(p events.Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.metrics = r
		}
	}
}

func WithClock(c clock.Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithEventIDs overrides event ID generation for deterministic tests.
func WithEventIDs(fn func() string) Option {
	return func(s *Service) {
		if fn != nil {
			s.newEventID = fn
		}
	}
}

func NewService(roster rosterrepo.Repository, opts ...Option) *Service {
	s := &Service{
		roster:     roster,
		metrics:    discardRecorder{},
		clock:      platformclock.NewSystemClock(),
		newEventID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.publisher != nil {
		s.dispatcher = newDispatcher(s.publisher, s.metrics)
	}
	return s
}

// Close stops accepting events and waits until queued ones are published or ctx ends.
func (s *Service) Close(ctx context.Context) error {
	if s.dispatcher == nil {
		return nil
	}
	return s.dispatcher.close(ctx)
}

// Enrollment identifies the participant and activity a committed change applied to.
type Enrollment struct {
	Activity    domain.ActivityName
	Participant domain.ParticipantID
}

// Signup adds the participant to the activity's roster.
// The identifier is normalized before the capacity and uniqueness checks run.
func (s *Service) Signup(ctx context.Context, name domain.ActivityName, rawID string) (Enrollment, error) {
	id, err := domain.NormalizeParticipantID(rawID)
	if err != nil {
		return Enrollment{}, s.fail(OperationSignup, ErrInvalidIdentifier)
	}
	if err := ctx.Err(); err != nil {
		return Enrollment{}, err
	}

	err = s.commit(ctx, name, id, events.TypeParticipantEnrolled, s.roster.TryAddParticipant)
	if err != nil {
		switch {
		case errors.Is(err, rosterrepo.ErrNotFound):
			return Enrollment{}, s.fail(OperationSignup, ErrActivityNotFound)
		case errors.Is(err, rosterrepo.ErrAlreadyEnrolled):
			return Enrollment{}, s.fail(OperationSignup, ErrAlreadyEnrolled)
		case errors.Is(err, rosterrepo.ErrCapacityExceeded):
			return Enrollment{}, s.fail(OperationSignup, ErrCapacityExceeded)
		default:
			s.metrics.ObserveEnrollment(OperationSignup, "error")
			return Enrollment{}, err
		}
	}

	s.metrics.ObserveEnrollment(OperationSignup, outcomeOK)
	return Enrollment{Activity: name, Participant: id}, nil
}

// Unregister removes the participant from the activity's roster.
func (s *Service) Unregister(ctx context.Context, name domain.ActivityName, rawID string) (Enrollment, error) {
	id, err := domain.NormalizeParticipantID(rawID)
	if err != nil {
		return Enrollment{}, s.fail(OperationUnregister, ErrInvalidIdentifier)
	}
	if err := ctx.Err(); err != nil {
		return Enrollment{}, err
	}

	err = s.commit(ctx, name, id, events.TypeParticipantUnenrolled, s.roster.RemoveParticipant)
	if err != nil {
		switch {
		case errors.Is(err, rosterrepo.ErrNotFound):
			return Enrollment{}, s.fail(OperationUnregister, ErrActivityNotFound)
		case errors.Is(err, rosterrepo.ErrNotInRoster):
			return Enrollment{}, s.fail(OperationUnregister, ErrNotEnrolled)
		default:
			s.metrics.ObserveEnrollment(OperationUnregister, "error")
			return Enrollment{}, err
		}
	}

	s.metrics.ObserveEnrollment(OperationUnregister, outcomeOK)
	return Enrollment{Activity: name, Participant: id}, nil
}

func (s *Service) fail(operation string, e *Error) error {
	s.metrics.ObserveEnrollment(operation, e.Code)
	return e
}

type rosterChange func(ctx context.Context, name domain.ActivityName, id domain.ParticipantID) error

// commit applies change and, on success, queues its event before the activity lock
// is released. Queueing never blocks on the publisher.
func (s *Service) commit(ctx context.Context, name domain.ActivityName, id domain.ParticipantID, typ events.Type, change rosterChange) error {
	if s.dispatcher == nil {
		return change(ctx, name, id)
	}

	unlock := s.locks.lock(name)
	defer unlock()
	if err := change(ctx, name, id); err != nil {
		return err
	}
	s.dispatcher.enqueue(dispatchJob{
		event: events.EnrollmentEvent{
			ID:          s.newEventID(),
			Type:        typ,
			Activity:    name,
			Participant: id,
			OccurredAt:  s.clock.Now().UTC(),
		},
		logger: logging.FromContext(ctx),
	})
	return nil
}

type discardRecorder struct{}

func (discardRecorder) ObserveEnrollment(string, string) {}
func (discardRecorder) ObserveEventFailure(string)       {}
