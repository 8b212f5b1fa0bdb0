package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/mergington/activities-api/internal/app/enrollment"
	"github.com/mergington/activities-api/internal/domain"
	"github.com/mergington/activities-api/internal/platform/logging"
	"github.com/mergington/activities-api/internal/ports/out/rosterrepo"
)

// Service answers read-only queries over the roster store and provisions it at startup.
// Reads go straight to the store; nothing is cached.
type Service struct {
	roster rosterrepo.Repository
}

func NewService(roster rosterrepo.Repository) *Service {
	return &Service{roster: roster}
}

// ListActivities returns every activity in provisioning order.
func (s *Service) ListActivities(ctx context.Context) ([]domain.Activity, error) {
	as, err := s.roster.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range as {
		as[i] = withRoster(as[i])
	}
	return as, nil
}

func (s *Service) GetActivity(ctx context.Context, name domain.ActivityName) (domain.Activity, error) {
	a, err := s.roster.Get(ctx, name)
	if err != nil {
		if errors.Is(err, rosterrepo.ErrNotFound) {
			return domain.Activity{}, enrollment.ErrActivityNotFound
		}
		return domain.Activity{}, err
	}
	return withRoster(a), nil
}

// ProvisionResult counts what Provision did.
type ProvisionResult struct {
	Created int
	Kept    int
}

// Provision creates each activity that does not exist yet. Existing activities keep their
// stored metadata and roster, so restarting against a durable store never resets signups.
func (s *Service) Provision(ctx context.Context, activities []domain.Activity) (ProvisionResult, error) {
	var res ProvisionResult
	logger := logging.FromContext(ctx)
	for _, a := range activities {
		err := s.roster.Create(ctx, a)
		switch {
		case err == nil:
			res.Created++
		case errors.Is(err, rosterrepo.ErrAlreadyExists):
			res.Kept++
			logger.DebugContext(ctx, "activity already provisioned", "activity", string(a.Name))
		default:
			return res, fmt.Errorf("provision %q: %w", a.Name, err)
		}
	}
	return res, nil
}

func withRoster(a domain.Activity) domain.Activity {
	if a.Participants == nil {
		a.Participants = []domain.ParticipantID{}
	}
	return a
}
