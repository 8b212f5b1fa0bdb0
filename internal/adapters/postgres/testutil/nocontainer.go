//go:build !integration

package testutil

import "testing"

func containerDSN(t *testing.T) string {
	t.Helper()
	t.Skip("skipping Postgres tests: set TEST_DATABASE_URL or build with -tags integration")
	return ""
}
