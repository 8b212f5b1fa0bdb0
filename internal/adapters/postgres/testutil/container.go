//go:build integration

package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"
)

var (
	containerOnce sync.Once
	containerURL  string
	containerErr  error
)

// containerDSN starts one Postgres container per test binary. It is reaped by
// testcontainers' resource reaper when the process exits.
func containerDSN(t *testing.T) string {
	t.Helper()
	containerOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		var pg *postgrescontainer.PostgresContainer
		pg, containerErr = postgrescontainer.Run(ctx, "postgres:16-alpine",
			postgrescontainer.WithDatabase("activities"),
			postgrescontainer.WithUsername("activities"),
			postgrescontainer.WithPassword("activities"),
			postgrescontainer.BasicWaitStrategies(),
		)
		if containerErr != nil {
			return
		}
		containerURL, containerErr = pg.ConnectionString(ctx, "sslmode=disable")
	})
	if containerErr != nil {
		testcontainers.SkipIfProviderIsNotHealthy(t)
		t.Fatalf("start postgres container: %v", containerErr)
	}
	return containerURL
}
