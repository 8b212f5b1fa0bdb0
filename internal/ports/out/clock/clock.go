package clock

import "time"

// Clock provides time to the application (event timestamps, idempotency expiry).
// Tests substitute a manual implementation for deterministic output.
type Clock interface {
	Now() time.Time
}
