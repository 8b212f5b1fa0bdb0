package idempotency

import (
	"context"
	"time"
)

// Key is the caller-provided idempotency key (Idempotency-Key header).
type Key string

// Fingerprint identifies a request uniquely for idempotency purposes.
//
// Route is the path template (e.g. "/activities/{name}/signup"); BodyHash
// covers the decoded activity name and participant identifier so a key reused for a different
// enrollment never replays the wrong response.
type Fingerprint struct {
	Key      Key
	Method   string
	Route    string
	BodyHash string
}

// Record is the stored response we can replay for a duplicate request.
type Record struct {
	StatusCode  int
	ContentType string
	Body        []byte
	CreatedAt   time.Time
}

// Store persists idempotency records for replaying safe responses on retries.
type Store interface {
	Get(ctx context.Context, fp Fingerprint) (Record, bool, error)
	Put(ctx context.Context, fp Fingerprint, rec Record) error
	// PutIfAbsent stores rec only if no live record exists for fp, atomically.
	// It returns the record held after the call and whether this call stored it.
	PutIfAbsent(ctx context.Context, fp Fingerprint, rec Record) (Record, bool, error)
}
