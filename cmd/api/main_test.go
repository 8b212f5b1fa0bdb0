package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	kafkaevents "github.com/mergington/activities-api/internal/adapters/kafka/events"
	"github.com/mergington/activities-api/internal/platform/config"
)

func TestNewEventPublisher_NoBrokersProducesNothing(t *testing.T) {
	t.Parallel()

	p, closeFn, err := newEventPublisher(config.Config{KafkaEnrollmentTopic: "activity.enrollments"})
	require.NoError(t, err)
	require.Nil(t, p)
	require.NoError(t, closeFn())
}

func TestNewEventPublisher_Kafka(t *testing.T) {
	t.Parallel()

	p, closeFn, err := newEventPublisher(config.Config{
		KafkaBrokers:         []string{"localhost:9092"},
		KafkaEnrollmentTopic: "activity.enrollments",
	})
	require.NoError(t, err)
	require.IsType(t, &kafkaevents.Publisher{}, p)
	require.NoError(t, closeFn())
}

func TestNewEventPublisher_RejectsEmptyTopic(t *testing.T) {
	t.Parallel()

	_, _, err := newEventPublisher(config.Config{KafkaBrokers: []string{"localhost:9092"}})
	require.Error(t, err)
}
