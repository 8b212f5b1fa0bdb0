package idempotency

import (
	"context"
	"sync"
	"time"

	"github.com/mergington/activities-api/internal/ports/out/idempotency"
)

// DefaultTTL bounds how long a stored response stays replayable.
const DefaultTTL = 24 * time.Hour

// sweepEvery is the number of writes between sweeps of expired records.
const sweepEvery = 128

// Store is an in-memory implementation of idempotency.Store.
// Records older than the TTL are treated as absent and swept every sweepEvery writes.
// It is safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	m      map[idempotency.Fingerprint]idempotency.Record
	ttl    time.Duration
	now    func() time.Time
	writes int
}

type Option func(*Store)

// WithTTL overrides DefaultTTL. Non-positive values disable expiry.
func WithTTL(d time.Duration) Option {
	return func(s *Store) { s.ttl = d }
}

// WithNow overrides the time source used for expiry.
func WithNow(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

func NewStore(opts ...Option) *Store {
	s := &Store{
		m:   make(map[idempotency.Fingerprint]idempotency.Record),
		ttl: DefaultTTL,
		now: func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Get(ctx context.Context, fp idempotency.Fingerprint) (idempotency.Record, bool, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.m[fp]
	if !ok || s.expired(rec, s.now()) {
		return idempotency.Record{}, false, nil
	}
	return cloneRecord(rec), true, nil
}

func (s *Store) Put(ctx context.Context, fp idempotency.Fingerprint, rec idempotency.Record) error {
	_ = ctx
	now := s.now()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[fp] = cloneRecord(rec)
	s.afterWriteLocked(now)
	return nil
}

func (s *Store) PutIfAbsent(ctx context.Context, fp idempotency.Fingerprint, rec idempotency.Record) (idempotency.Record, bool, error) {
	_ = ctx
	now := s.now()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.m[fp]; ok && !s.expired(cur, now) {
		return cloneRecord(cur), false, nil
	}
	s.m[fp] = cloneRecord(rec)
	s.afterWriteLocked(now)
	return cloneRecord(rec), true, nil
}

func (s *Store) afterWriteLocked(now time.Time) {
	s.writes++
	if s.writes%sweepEvery != 0 {
		return
	}
	for k, v := range s.m {
		if s.expired(v, now) {
			delete(s.m, k)
		}
	}
}

func (s *Store) expired(rec idempotency.Record, now time.Time) bool {
	return s.ttl > 0 && now.Sub(rec.CreatedAt) > s.ttl
}

func cloneRecord(rec idempotency.Record) idempotency.Record {
	out := rec
	out.Body = append([]byte(nil), rec.Body...)
	return out
}
