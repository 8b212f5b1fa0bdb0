package rosterrepo

import (
	"context"
	"testing"
	"time"

	"github.com/mergington/activities-api/internal/domain"
)

func TestRepo_CreateClonesInput(t *testing.T) {
	t.Parallel()

	r := NewRepo()
	in := domain.Activity{Name: "Gym Class", MaxParticipants: 30, Participants: []domain.ParticipantID{"john@mergington.edu"}}
	if err := r.Create(context.Background(), in); err != nil {
		t.Fatalf("Create() err=%v", err)
	}
	in.Participants[0] = "mutated@x.com"

	got, err := r.Get(context.Background(), "Gym Class")
	if err != nil {
		t.Fatalf("Get() err=%v", err)
	}
	if got.Participants[0] != "john@mergington.edu" {
		t.Fatalf("Get().Participants=%v, want caller mutation to be invisible", got.Participants)
	}
}

func TestRepo_LockedActivityDoesNotBlockOthers(t *testing.T) {
	t.Parallel()

	r := NewRepo()
	for _, name := range []domain.ActivityName{"Chess Club", "Art Club"} {
		if err := r.Create(context.Background(), domain.Activity{Name: name, MaxParticipants: 2}); err != nil {
			t.Fatalf("Create(%s) err=%v", name, err)
		}
	}

	// Hold the Chess Club critical section while signing up for Art Club.
	chess, _ := r.lookup("Chess Club")
	chess.mu.Lock()
	defer chess.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		done <- r.TryAddParticipant(context.Background(), "Art Club", "maya@mergington.edu")
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("TryAddParticipant(Art Club) err=%v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("TryAddParticipant(Art Club) blocked on an unrelated activity lock")
	}
}
