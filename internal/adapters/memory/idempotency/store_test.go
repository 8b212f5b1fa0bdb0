package idempotency

import (
	"context"
	"fmt"
	"testing"
	"time"

	memclock "github.com/mergington/activities-api/internal/adapters/memory/clock"
	"github.com/mergington/activities-api/internal/ports/out/idempotency"
)

func TestStore_PutThenGet(t *testing.T) {
	t.Parallel()

	s := NewStore()
	fp := idempotency.Fingerprint{
		Key:      "k1",
		Method:   "POST",
		Route:    "/activities/{name}/signup",
		BodyHash: "abc123",
	}
	rec := idempotency.Record{
		StatusCode:  200,
		ContentType: "application/json",
		Body:        []byte(`{"message":"ok"}`),
	}

	if err := s.Put(context.Background(), fp, rec); err != nil {
		t.Fatalf("Put() err=%v", err)
	}

	got, ok, err := s.Get(context.Background(), fp)
	if err != nil {
		t.Fatalf("Get() err=%v", err)
	}
	if !ok {
		t.Fatalf("Get() ok=false, want true")
	}
	if got.StatusCode != rec.StatusCode || got.ContentType != rec.ContentType || string(got.Body) != string(rec.Body) {
		t.Fatalf("Get()=%+v, want %+v", got, rec)
	}
	if got.CreatedAt.IsZero() {
		t.Fatalf("Get().CreatedAt is zero, want stamped on Put")
	}
}

func TestStore_Expiry(t *testing.T) {
	t.Parallel()

	clk := memclock.NewManualClock(time.Unix(1000, 0).UTC())
	s := NewStore(WithTTL(time.Minute), WithNow(clk.Now))
	fp := idempotency.Fingerprint{Key: "k1", Method: "DELETE", Route: "/activities/{name}/unregister"}

	if err := s.Put(context.Background(), fp, idempotency.Record{StatusCode: 200}); err != nil {
		t.Fatalf("Put() err=%v", err)
	}
	clk.Advance(30 * time.Second)
	if _, ok, _ := s.Get(context.Background(), fp); !ok {
		t.Fatalf("Get() before TTL ok=false, want true")
	}
	clk.Advance(time.Minute)
	if _, ok, _ := s.Get(context.Background(), fp); ok {
		t.Fatalf("Get() after TTL ok=true, want false")
	}
}

func TestStore_SweepsExpiredRecordsPeriodically(t *testing.T) {
	t.Parallel()

	clk := memclock.NewManualClock(time.Unix(1000, 0).UTC())
	s := NewStore(WithTTL(time.Minute), WithNow(clk.Now))
	ctx := context.Background()

	stale := idempotency.Fingerprint{Key: "stale", Method: "POST", Route: "/activities/{name}/signup"}
	if err := s.Put(ctx, stale, idempotency.Record{StatusCode: 200}); err != nil {
		t.Fatalf("Put() err=%v", err)
	}
	clk.Advance(2 * time.Minute)

	// Writes short of a full sweep interval leave the stale record in place.
	for i := 1; i < sweepEvery-1; i++ {
		fp := idempotency.Fingerprint{Key: idempotency.Key(fmt.Sprintf("k%d", i)), Method: "POST", Route: "/activities/{name}/signup"}
		if err := s.Put(ctx, fp, idempotency.Record{StatusCode: 200}); err != nil {
			t.Fatalf("Put(%d) err=%v", i, err)
		}
	}
	if _, ok := s.m[stale]; !ok {
		t.Fatalf("stale record swept before the interval elapsed")
	}

	last := idempotency.Fingerprint{Key: "last", Method: "POST", Route: "/activities/{name}/signup"}
	if err := s.Put(ctx, last, idempotency.Record{StatusCode: 200}); err != nil {
		t.Fatalf("Put(last) err=%v", err)
	}
	if _, ok := s.m[stale]; ok {
		t.Fatalf("stale record still stored after %d writes", sweepEvery)
	}
	if got := len(s.m); got != sweepEvery-1 {
		t.Fatalf("len=%d, want %d live records", got, sweepEvery-1)
	}
}

func TestStore_PutIfAbsentReplacesExpiredRecord(t *testing.T) {
	t.Parallel()

	clk := memclock.NewManualClock(time.Unix(1000, 0).UTC())
	s := NewStore(WithTTL(time.Minute), WithNow(clk.Now))
	ctx := context.Background()
	fp := idempotency.Fingerprint{Key: "k1", Method: "POST", Route: "/activities/{name}/signup"}

	if _, inserted, err := s.PutIfAbsent(ctx, fp, idempotency.Record{Body: []byte("a")}); err != nil || !inserted {
		t.Fatalf("PutIfAbsent(first) inserted=%v err=%v, want true", inserted, err)
	}
	got, inserted, err := s.PutIfAbsent(ctx, fp, idempotency.Record{Body: []byte("b")})
	if err != nil || inserted || string(got.Body) != "a" {
		t.Fatalf("PutIfAbsent(live) body=%q inserted=%v err=%v, want a/false", got.Body, inserted, err)
	}

	clk.Advance(2 * time.Minute)
	got, inserted, err = s.PutIfAbsent(ctx, fp, idempotency.Record{Body: []byte("c")})
	if err != nil || !inserted || string(got.Body) != "c" {
		t.Fatalf("PutIfAbsent(expired) body=%q inserted=%v err=%v, want c/true", got.Body, inserted, err)
	}
}
