package contracttest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/mergington/activities-api/internal/domain"
	idempotencyport "github.com/mergington/activities-api/internal/ports/out/idempotency"
	rosterrepoport "github.com/mergington/activities-api/internal/ports/out/rosterrepo"
)

type CleanupFunc = func()

// RosterRepoFactory must return an empty repository.
type RosterRepoFactory func(t *testing.T) (rosterrepoport.Repository, CleanupFunc)
type IdemStoreFactory func(t *testing.T) (idempotencyport.Store, CleanupFunc)

func RunIdempotencyStore(t *testing.T, newStore IdemStoreFactory) {
	t.Helper()
	ctx := context.Background()

	store, cleanup := newStore(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	fp := idempotencyport.Fingerprint{
		Key:      "k-1",
		Method:   "POST",
		Route:    "/activities/{name}/signup",
		BodyHash: "hash-1",
	}
	rec := idempotencyport.Record{
		StatusCode:  200,
		ContentType: "application/json",
		Body:        []byte(`{"message":"first"}`),
		CreatedAt:   time.Now().UTC().Truncate(time.Second),
	}
	if _, ok, err := store.Get(ctx, fp); err != nil || ok {
		t.Fatalf("Get(before Put) ok=%v err=%v, want ok=false", ok, err)
	}
	if err := store.Put(ctx, fp, rec); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok, err := store.Get(ctx, fp)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatalf("expected ok=true")
	}
	if string(got.Body) != `{"message":"first"}` || got.ContentType != "application/json" || got.StatusCode != 200 {
		t.Fatalf("unexpected record: %+v", got)
	}

	// A different body hash is a different fingerprint.
	other := fp
	other.BodyHash = "hash-2"
	if _, ok, err := store.Get(ctx, other); err != nil || ok {
		t.Fatalf("Get(other body) ok=%v err=%v, want ok=false", ok, err)
	}

	// Overwrite semantics.
	rec2 := rec
	rec2.Body = []byte(`{"message":"second"}`)
	if err := store.Put(ctx, fp, rec2); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}
	got, ok, err = store.Get(ctx, fp)
	if err != nil || !ok || string(got.Body) != `{"message":"second"}` {
		t.Fatalf("expected overwritten record, got ok=%v err=%v body=%q", ok, err, string(got.Body))
	}

	// PutIfAbsent keeps the live record.
	got, inserted, err := store.PutIfAbsent(ctx, fp, idempotencyport.Record{ContentType: "text/plain", Body: []byte("third")})
	if err != nil || inserted || string(got.Body) != `{"message":"second"}` {
		t.Fatalf("PutIfAbsent(existing) inserted=%v err=%v body=%q, want existing record", inserted, err, string(got.Body))
	}

	// Concurrent claims on a fresh fingerprint: exactly one wins and everyone sees its body.
	claim := idempotencyport.Fingerprint{Key: "k-claim", Method: "POST", Route: "/activities/{name}/signup"}
	const claimers = 12
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners []string
		seen    = make(map[string]int)
		errs    []error
	)
	for i := 0; i < claimers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			body := fmt.Sprintf("hash-%d", i)
			got, inserted, err := store.PutIfAbsent(ctx, claim, idempotencyport.Record{
				ContentType: "text/plain",
				Body:        []byte(body),
				CreatedAt:   time.Now().UTC(),
			})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			if inserted {
				winners = append(winners, body)
			}
			seen[string(got.Body)]++
		}(i)
	}
	wg.Wait()

	if len(errs) > 0 {
		t.Fatalf("PutIfAbsent errors: %v", errs)
	}
	if len(winners) != 1 {
		t.Fatalf("PutIfAbsent winners=%v, want exactly one", winners)
	}
	if seen[winners[0]] != claimers || len(seen) != 1 {
		t.Fatalf("PutIfAbsent results=%v, want all %d callers to see %q", seen, claimers, winners[0])
	}
}

// RunRosterRepo exercises the roster store invariants every adapter must uphold.
func RunRosterRepo(t *testing.T, newRepo RosterRepoFactory) {
	t.Helper()

	fresh := func(t *testing.T) rosterrepoport.Repository {
		t.Helper()
		repo, cleanup := newRepo(t)
		if cleanup != nil {
			t.Cleanup(cleanup)
		}
		return repo
	}

	t.Run("create get list", func(t *testing.T) {
		ctx := context.Background()
		repo := fresh(t)

		seed := []domain.Activity{
			{Name: "Chess Club", Description: "Learn strategies", Schedule: "Fridays", MaxParticipants: 12, Participants: []domain.ParticipantID{"michael@mergington.edu", "daniel@mergington.edu"}},
			{Name: "Art Club", Description: "Painting", Schedule: "Wednesdays", MaxParticipants: 18},
			{Name: "Basketball Team", Description: "League play", Schedule: "Mondays", MaxParticipants: 15, Participants: []domain.ParticipantID{"nina@mergington.edu"}},
		}
		for _, a := range seed {
			if err := repo.Create(ctx, a); err != nil {
				t.Fatalf("Create(%s): %v", a.Name, err)
			}
		}
		if err := repo.Create(ctx, domain.Activity{Name: "Chess Club", MaxParticipants: 1}); !errors.Is(err, rosterrepoport.ErrAlreadyExists) {
			t.Fatalf("Create(duplicate) err=%v, want %v", err, rosterrepoport.ErrAlreadyExists)
		}
		if err := repo.Create(ctx, domain.Activity{Name: "Broken", MaxParticipants: 0}); !errors.Is(err, domain.ErrInvalidActivity) {
			t.Fatalf("Create(invalid) err=%v, want %v", err, domain.ErrInvalidActivity)
		}

		got, err := repo.Get(ctx, "Chess Club")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got.Description != "Learn strategies" || got.Schedule != "Fridays" || got.MaxParticipants != 12 {
			t.Fatalf("unexpected activity: %+v", got)
		}
		requireRoster(t, got, "michael@mergington.edu", "daniel@mergington.edu")

		if _, err := repo.Get(ctx, "Nonexistent"); !errors.Is(err, rosterrepoport.ErrNotFound) {
			t.Fatalf("Get(nonexistent) err=%v, want %v", err, rosterrepoport.ErrNotFound)
		}

		list, err := repo.List(ctx)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(list) != 3 {
			t.Fatalf("List len=%d, want 3", len(list))
		}
		for i, want := range []domain.ActivityName{"Chess Club", "Art Club", "Basketball Team"} {
			if list[i].Name != want {
				t.Fatalf("List[%d].Name=%q, want %q (provisioning order)", i, list[i].Name, want)
			}
		}
		if len(list[1].Participants) != 0 {
			t.Fatalf("Art Club roster=%v, want empty", list[1].Participants)
		}
	})

	t.Run("signup and unregister outcomes", func(t *testing.T) {
		ctx := context.Background()
		repo := fresh(t)
		mustCreate(t, repo, domain.Activity{Name: "Chess Club", MaxParticipants: 2})

		if err := repo.TryAddParticipant(ctx, "Nonexistent", "a@x.com"); !errors.Is(err, rosterrepoport.ErrNotFound) {
			t.Fatalf("TryAddParticipant(nonexistent) err=%v, want %v", err, rosterrepoport.ErrNotFound)
		}
		if err := repo.RemoveParticipant(ctx, "Nonexistent", "a@x.com"); !errors.Is(err, rosterrepoport.ErrNotFound) {
			t.Fatalf("RemoveParticipant(nonexistent) err=%v, want %v", err, rosterrepoport.ErrNotFound)
		}

		if err := repo.TryAddParticipant(ctx, "Chess Club", "a@x.com"); err != nil {
			t.Fatalf("TryAddParticipant(a): %v", err)
		}
		if err := repo.TryAddParticipant(ctx, "Chess Club", "a@x.com"); !errors.Is(err, rosterrepoport.ErrAlreadyEnrolled) {
			t.Fatalf("TryAddParticipant(a again) err=%v, want %v", err, rosterrepoport.ErrAlreadyEnrolled)
		}
		requireRoster(t, mustGet(t, repo, "Chess Club"), "a@x.com")

		if err := repo.RemoveParticipant(ctx, "Chess Club", "z@x.com"); !errors.Is(err, rosterrepoport.ErrNotInRoster) {
			t.Fatalf("RemoveParticipant(z) err=%v, want %v", err, rosterrepoport.ErrNotInRoster)
		}
		requireRoster(t, mustGet(t, repo, "Chess Club"), "a@x.com")

		if err := repo.RemoveParticipant(ctx, "Chess Club", "a@x.com"); err != nil {
			t.Fatalf("RemoveParticipant(a): %v", err)
		}
		if err := repo.RemoveParticipant(ctx, "Chess Club", "a@x.com"); !errors.Is(err, rosterrepoport.ErrNotInRoster) {
			t.Fatalf("RemoveParticipant(a again) err=%v, want %v", err, rosterrepoport.ErrNotInRoster)
		}
		requireRoster(t, mustGet(t, repo, "Chess Club"))
	})

	t.Run("capacity scenario", func(t *testing.T) {
		ctx := context.Background()
		repo := fresh(t)
		mustCreate(t, repo, domain.Activity{Name: "Chess Club", MaxParticipants: 2})

		steps := []struct {
			op        string
			id        domain.ParticipantID
			wantErr   error
			spotsLeft int
		}{
			{op: "add", id: "a@x.com", spotsLeft: 1},
			{op: "add", id: "b@x.com", spotsLeft: 0},
			{op: "add", id: "c@x.com", wantErr: rosterrepoport.ErrCapacityExceeded, spotsLeft: 0},
			{op: "remove", id: "a@x.com", spotsLeft: 1},
			{op: "add", id: "c@x.com", spotsLeft: 0},
		}
		for i, s := range steps {
			var err error
			if s.op == "add" {
				err = repo.TryAddParticipant(ctx, "Chess Club", s.id)
			} else {
				err = repo.RemoveParticipant(ctx, "Chess Club", s.id)
			}
			if !errors.Is(err, s.wantErr) {
				t.Fatalf("step %d %s(%s) err=%v, want %v", i, s.op, s.id, err, s.wantErr)
			}
			if got := mustGet(t, repo, "Chess Club").SpotsLeft(); got != s.spotsLeft {
				t.Fatalf("step %d spotsLeft=%d, want %d", i, got, s.spotsLeft)
			}
		}
		// Insertion order is preserved for display.
		requireRoster(t, mustGet(t, repo, "Chess Club"), "b@x.com", "c@x.com")
	})

	t.Run("returned activities are copies", func(t *testing.T) {
		ctx := context.Background()
		repo := fresh(t)
		mustCreate(t, repo, domain.Activity{Name: "Drama Club", MaxParticipants: 3, Participants: []domain.ParticipantID{"zoe@mergington.edu"}})

		got := mustGet(t, repo, "Drama Club")
		got.Participants[0] = "mallory@x.com"
		list, err := repo.List(ctx)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		list[0].Participants = append(list[0].Participants, "eve@x.com")
		requireRoster(t, mustGet(t, repo, "Drama Club"), "zoe@mergington.edu")
	})

	t.Run("concurrent signups respect capacity", func(t *testing.T) {
		ctx := context.Background()
		repo := fresh(t)
		const capacity, attempts = 5, 40
		mustCreate(t, repo, domain.Activity{Name: "Soccer Club", MaxParticipants: capacity})
		mustCreate(t, repo, domain.Activity{Name: "Debate Team", MaxParticipants: attempts})

		var (
			wg       sync.WaitGroup
			mu       sync.Mutex
			ok, full int
			other    []error
		)
		start := make(chan struct{})
		for i := 0; i < attempts; i++ {
			wg.Add(2)
			id := domain.ParticipantID(fmt.Sprintf("student%d@mergington.edu", i))
			go func() {
				defer wg.Done()
				<-start
				err := repo.TryAddParticipant(ctx, "Soccer Club", id)
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					ok++
				case errors.Is(err, rosterrepoport.ErrCapacityExceeded):
					full++
				default:
					other = append(other, err)
				}
			}()
			// Same participant hammering a second activity concurrently.
			go func() {
				defer wg.Done()
				<-start
				if err := repo.TryAddParticipant(ctx, "Debate Team", id); err != nil {
					mu.Lock()
					other = append(other, err)
					mu.Unlock()
				}
			}()
		}
		close(start)
		wg.Wait()

		if len(other) > 0 {
			t.Fatalf("unexpected errors: %v", other)
		}
		if ok != capacity || full != attempts-capacity {
			t.Fatalf("successes=%d capacityExceeded=%d, want %d and %d", ok, full, capacity, attempts-capacity)
		}
		if n := len(mustGet(t, repo, "Soccer Club").Participants); n != capacity {
			t.Fatalf("roster size=%d, want %d", n, capacity)
		}
		if n := len(mustGet(t, repo, "Debate Team").Participants); n != attempts {
			t.Fatalf("Debate Team roster size=%d, want %d", n, attempts)
		}
	})

	t.Run("concurrent duplicate signups enroll once", func(t *testing.T) {
		ctx := context.Background()
		repo := fresh(t)
		mustCreate(t, repo, domain.Activity{Name: "Science Club", MaxParticipants: 20})

		const attempts = 16
		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			ok, dupes int
		)
		for i := 0; i < attempts; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := repo.TryAddParticipant(ctx, "Science Club", "ava@mergington.edu")
				mu.Lock()
				defer mu.Unlock()
				if err == nil {
					ok++
				} else if errors.Is(err, rosterrepoport.ErrAlreadyEnrolled) {
					dupes++
				}
			}()
		}
		wg.Wait()

		if ok != 1 || dupes != attempts-1 {
			t.Fatalf("successes=%d alreadyEnrolled=%d, want 1 and %d", ok, dupes, attempts-1)
		}
		requireRoster(t, mustGet(t, repo, "Science Club"), "ava@mergington.edu")
	})
}

func mustCreate(t *testing.T, repo rosterrepoport.Repository, a domain.Activity) {
	t.Helper()
	if err := repo.Create(context.Background(), a); err != nil {
		t.Fatalf("Create(%s): %v", a.Name, err)
	}
}

func mustGet(t *testing.T, repo rosterrepoport.Repository, name domain.ActivityName) domain.Activity {
	t.Helper()
	a, err := repo.Get(context.Background(), name)
	if err != nil {
		t.Fatalf("Get(%s): %v", name, err)
	}
	return a
}

func requireRoster(t *testing.T, a domain.Activity, want ...domain.ParticipantID) {
	t.Helper()
	if len(a.Participants) != len(want) {
		t.Fatalf("%s roster=%v, want %v", a.Name, a.Participants, want)
	}
	for i := range want {
		if a.Participants[i] != want[i] {
			t.Fatalf("%s roster=%v, want %v", a.Name, a.Participants, want)
		}
	}
}
