package rosterrepo

import (
	"testing"

	"github.com/mergington/activities-api/internal/adapters/contracttest"
	rosterrepoport "github.com/mergington/activities-api/internal/ports/out/rosterrepo"
)

func TestContract_RosterRepo(t *testing.T) {
	contracttest.RunRosterRepo(t, func(t *testing.T) (rosterrepoport.Repository, func()) {
		t.Helper()
		return NewRepo(), nil
	})
}
