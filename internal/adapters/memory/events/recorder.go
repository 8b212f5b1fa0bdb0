package events

import (
	"context"
	"sync"

	"github.com/mergington/activities-api/internal/ports/out/events"
)

const defaultCapacity = 1024

// Recorder is an in-memory events.Publisher that keeps the most recent events.
// It is safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	max    int
	events []events.EnrollmentEvent
}

// NewRecorder returns a Recorder bounded to max events (default 1024 when max <= 0).
func NewRecorder(max int) *Recorder {
	if max <= 0 {
		max = defaultCapacity
	}
	return &Recorder{max: max}
}

func (r *Recorder) Publish(ctx context.Context, e events.EnrollmentEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == r.max {
		copy(r.events, r.events[1:])
		r.events = r.events[:r.max-1]
	}
	r.events = append(r.events, e)
	return nil
}

// Events returns a copy of the recorded events, oldest first.
func (r *Recorder) Events() []events.EnrollmentEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.EnrollmentEvent(nil), r.events...)
}
