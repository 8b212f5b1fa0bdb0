package idempotency

import (
	"testing"

	"github.com/mergington/activities-api/internal/adapters/contracttest"
	"github.com/mergington/activities-api/internal/adapters/postgres/testutil"
	idempotencyport "github.com/mergington/activities-api/internal/ports/out/idempotency"
)

func TestContract_PostgresIdempotencyStore(t *testing.T) {
	pool := testutil.OpenMigratedPool(t)
	testutil.TruncateAll(t, pool)

	contracttest.RunIdempotencyStore(t, func(t *testing.T) (idempotencyport.Store, func()) {
		t.Helper()
		return NewStore(pool, 0), nil
	})
}
