package rosterrepo

import (
	"context"
	"sync"

	"github.com/mergington/activities-api/internal/domain"
	"github.com/mergington/activities-api/internal/ports/out/rosterrepo"
)

// entry guards one activity. Mutations of different activities take different locks.
type entry struct {
	mu sync.RWMutex
	a  domain.Activity
}

// Repo is an in-memory implementation of rosterrepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu     sync.RWMutex
	byName map[domain.ActivityName]*entry
	order  []domain.ActivityName
}

func NewRepo() *Repo {
	return &Repo{byName: make(map[domain.ActivityName]*entry)}
}

func (r *Repo) Create(ctx context.Context, a domain.Activity) error {
	_ = ctx
	if err := a.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byName[a.Name]; ok {
		return rosterrepo.ErrAlreadyExists
	}
	r.byName[a.Name] = &entry{a: a.Clone()}
	r.order = append(r.order, a.Name)
	return nil
}

func (r *Repo) Get(ctx context.Context, name domain.ActivityName) (domain.Activity, error) {
	_ = ctx
	e, ok := r.lookup(name)
	if !ok {
		return domain.Activity{}, rosterrepo.ErrNotFound
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.a.Clone(), nil
}

func (r *Repo) List(ctx context.Context) ([]domain.Activity, error) {
	_ = ctx
	r.mu.RLock()
	entries := make([]*entry, 0, len(r.order))
	for _, name := range r.order {
		entries = append(entries, r.byName[name])
	}
	r.mu.RUnlock()

	out := make([]domain.Activity, 0, len(entries))
	for _, e := range entries {
		e.mu.RLock()
		out = append(out, e.a.Clone())
		e.mu.RUnlock()
	}
	return out, nil
}

func (r *Repo) TryAddParticipant(ctx context.Context, name domain.ActivityName, id domain.ParticipantID) error {
	_ = ctx
	e, ok := r.lookup(name)
	if !ok {
		return rosterrepo.ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.a.HasParticipant(id) {
		return rosterrepo.ErrAlreadyEnrolled
	}
	if e.a.IsFull() {
		return rosterrepo.ErrCapacityExceeded
	}
	e.a.Participants = append(e.a.Participants, id)
	return nil
}

func (r *Repo) RemoveParticipant(ctx context.Context, name domain.ActivityName, id domain.ParticipantID) error {
	_ = ctx
	e, ok := r.lookup(name)
	if !ok {
		return rosterrepo.ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	for i, p := range e.a.Participants {
		if p != id {
			continue
		}
		e.a.Participants = append(e.a.Participants[:i], e.a.Participants[i+1:]...)
		return nil
	}
	return rosterrepo.ErrNotInRoster
}

func (r *Repo) lookup(name domain.ActivityName) (*entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byName[name]
	return e, ok
}
