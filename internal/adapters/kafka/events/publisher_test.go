package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"github.com/mergington/activities-api/internal/ports/out/events"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestPublisher_KeysByActivityAndEncodesJSON(t *testing.T) {
	t.Parallel()

	w := &fakeWriter{}
	p := newPublisherWithWriter(w)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	err := p.Publish(context.Background(), events.EnrollmentEvent{
		ID:          "evt-1",
		Type:        events.TypeParticipantEnrolled,
		Activity:    "Chess Club",
		Participant: "michael@mergington.edu",
		OccurredAt:  at,
	})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	require.Equal(t, "Chess Club", string(msg.Key))
	require.Equal(t, at, msg.Time)

	var got map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	require.Equal(t, "evt-1", got["id"])
	require.Equal(t, "participant.enrolled", got["type"])
	require.Equal(t, "Chess Club", got["activity"])
	require.Equal(t, "michael@mergington.edu", got["participant"])
	require.Equal(t, "2026-03-01T12:00:00Z", got["occurred_at"])

	require.NoError(t, p.Close())
	require.True(t, w.closed)
}

func TestPublisher_WrapsWriteErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("broker down")
	p := newPublisherWithWriter(&fakeWriter{err: boom})

	err := p.Publish(context.Background(), events.EnrollmentEvent{ID: "evt-2", Activity: "Drama Club"})
	require.ErrorIs(t, err, boom)
}

func TestNewPublisher_RequiresBrokersAndTopic(t *testing.T) {
	t.Parallel()

	_, err := NewPublisher(nil, "enrollments")
	require.Error(t, err)
	_, err = NewPublisher([]string{"localhost:9092"}, "")
	require.Error(t, err)

	p, err := NewPublisher([]string{"localhost:9092"}, "enrollments")
	require.NoError(t, err)
	require.NoError(t, p.Close())
}
