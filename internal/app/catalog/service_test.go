package catalog_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	memrosterrepo "github.com/mergington/activities-api/internal/adapters/memory/rosterrepo"
	"github.com/mergington/activities-api/internal/app/catalog"
	"github.com/mergington/activities-api/internal/app/enrollment"
	"github.com/mergington/activities-api/internal/domain"
	"github.com/mergington/activities-api/internal/platform/catalogfile"
)

func TestService_ProvisionDefaultCatalog(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := catalog.NewService(memrosterrepo.NewRepo())

	res, err := svc.Provision(ctx, catalogfile.Default())
	if err != nil {
		t.Fatalf("Provision() err=%v", err)
	}
	if res.Created != 9 || res.Kept != 0 {
		t.Fatalf("Provision()=%+v, want 9 created", res)
	}

	got, err := svc.ListActivities(ctx)
	if err != nil {
		t.Fatalf("ListActivities() err=%v", err)
	}
	if diff := cmp.Diff(catalogfile.Default(), got); diff != "" {
		t.Fatalf("ListActivities() mismatch (-want +got):\n%s", diff)
	}
}

func TestService_ProvisionKeepsExistingRosters(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := memrosterrepo.NewRepo()
	svc := catalog.NewService(repo)
	if _, err := svc.Provision(ctx, catalogfile.Default()); err != nil {
		t.Fatalf("Provision() err=%v", err)
	}
	if _, err := enrollment.NewService(repo).Signup(ctx, "Chess Club", "new@mergington.edu"); err != nil {
		t.Fatalf("Signup() err=%v", err)
	}

	res, err := svc.Provision(ctx, catalogfile.Default())
	if err != nil {
		t.Fatalf("second Provision() err=%v", err)
	}
	if res.Created != 0 || res.Kept != 9 {
		t.Fatalf("second Provision()=%+v, want 9 kept", res)
	}

	a, err := svc.GetActivity(ctx, "Chess Club")
	if err != nil {
		t.Fatalf("GetActivity() err=%v", err)
	}
	want := []domain.ParticipantID{"michael@mergington.edu", "daniel@mergington.edu", "new@mergington.edu"}
	if diff := cmp.Diff(want, a.Participants); diff != "" {
		t.Fatalf("roster mismatch (-want +got):\n%s", diff)
	}
	if a.SpotsLeft() != 9 {
		t.Fatalf("SpotsLeft()=%d, want 9", a.SpotsLeft())
	}
}

func TestService_ProvisionRejectsInvalid(t *testing.T) {
	t.Parallel()

	svc := catalog.NewService(memrosterrepo.NewRepo())
	_, err := svc.Provision(context.Background(), []domain.Activity{{Name: "Broken", MaxParticipants: 0}})
	if !errors.Is(err, domain.ErrInvalidActivity) {
		t.Fatalf("Provision() err=%v, want ErrInvalidActivity", err)
	}
}

func TestService_GetActivity(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := catalog.NewService(memrosterrepo.NewRepo())
	if _, err := svc.Provision(ctx, []domain.Activity{{Name: "Robotics", Schedule: "Mondays", MaxParticipants: 4}}); err != nil {
		t.Fatalf("Provision() err=%v", err)
	}

	a, err := svc.GetActivity(ctx, "Robotics")
	if err != nil {
		t.Fatalf("GetActivity() err=%v", err)
	}
	if a.Participants == nil || len(a.Participants) != 0 {
		t.Fatalf("Participants=%#v, want empty non-nil", a.Participants)
	}

	if _, err := svc.GetActivity(ctx, "Nonexistent"); !errors.Is(err, enrollment.ErrActivityNotFound) {
		t.Fatalf("GetActivity(Nonexistent) err=%v", err)
	}
}
