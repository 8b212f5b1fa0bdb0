package rosterrepo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/mergington/activities-api/internal/adapters/postgres"
	"github.com/mergington/activities-api/internal/domain"
	"github.com/mergington/activities-api/internal/ports/out/rosterrepo"
)

// Repo is a Postgres implementation of rosterrepo.Repository.
//
// Mutations lock the activity row (SELECT ... FOR UPDATE) so the capacity check and the
// roster change commit as one unit; other activities' rows stay unlocked.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

func (r *Repo) Create(ctx context.Context, a domain.Activity) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	if err := a.Validate(); err != nil {
		return err
	}

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var id int64
		err := tx.QueryRow(ctx, `
			INSERT INTO activities (name, description, schedule, max_participants)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT ON CONSTRAINT activities_name_unique DO NOTHING
			RETURNING id
		`, string(a.Name), a.Description, a.Schedule, a.MaxParticipants).Scan(&id)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return rosterrepo.ErrAlreadyExists
			}
			return fmt.Errorf("insert activity: %w", err)
		}

		for _, p := range a.Participants {
			if _, err := tx.Exec(ctx, `
				INSERT INTO activity_participants (activity_id, participant)
				VALUES ($1, $2)
			`, id, string(p)); err != nil {
				return fmt.Errorf("insert participant: %w", err)
			}
		}
		return nil
	})
}

func (r *Repo) Get(ctx context.Context, name domain.ActivityName) (domain.Activity, error) {
	if r.pool == nil {
		return domain.Activity{}, errors.New("nil postgres pool")
	}

	var out domain.Activity
	err := pgx.BeginTxFunc(ctx, r.pool, snapshotTxOptions, func(tx pgx.Tx) error {
		var id int64
		row := tx.QueryRow(ctx, `
			SELECT id, name, description, schedule, max_participants
			FROM activities
			WHERE name = $1
		`, string(name))
		a, err := scanActivity(row, &id)
		if err != nil {
			return err
		}
		roster, err := loadRosters(ctx, tx, []int64{id})
		if err != nil {
			return err
		}
		a.Participants = roster[id]
		out = a
		return nil
	})
	if err != nil {
		return domain.Activity{}, err
	}
	return out, nil
}

func (r *Repo) List(ctx context.Context) ([]domain.Activity, error) {
	if r.pool == nil {
		return nil, errors.New("nil postgres pool")
	}

	var out []domain.Activity
	err := pgx.BeginTxFunc(ctx, r.pool, snapshotTxOptions, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			SELECT id, name, description, schedule, max_participants
			FROM activities
			ORDER BY id ASC
		`)
		if err != nil {
			return fmt.Errorf("list activities: %w", err)
		}
		var ids []int64
		activities := make([]domain.Activity, 0)
		for rows.Next() {
			var id int64
			a, err := scanActivity(rows, &id)
			if err != nil {
				rows.Close()
				return err
			}
			ids = append(ids, id)
			activities = append(activities, a)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("list activities: %w", err)
		}

		rosters, err := loadRosters(ctx, tx, ids)
		if err != nil {
			return err
		}
		for i, id := range ids {
			activities[i].Participants = rosters[id]
		}
		out = activities
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) TryAddParticipant(ctx context.Context, name domain.ActivityName, id domain.ParticipantID) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		activityID, maxParticipants, err := lockActivity(ctx, tx, name)
		if err != nil {
			return err
		}

		var enrolled bool
		var count int
		if err := tx.QueryRow(ctx, `
			SELECT
				COALESCE(bool_or(participant = $2), false),
				count(*)
			FROM activity_participants
			WHERE activity_id = $1
		`, activityID, string(id)).Scan(&enrolled, &count); err != nil {
			return fmt.Errorf("count participants: %w", err)
		}
		if enrolled {
			return rosterrepo.ErrAlreadyEnrolled
		}
		if count >= maxParticipants {
			return rosterrepo.ErrCapacityExceeded
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO activity_participants (activity_id, participant)
			VALUES ($1, $2)
		`, activityID, string(id)); err != nil {
			return fmt.Errorf("insert participant: %w", err)
		}
		return nil
	})
	if postgres.IsUniqueViolation(err, "activity_participants_pkey") {
		return rosterrepo.ErrAlreadyEnrolled
	}
	return err
}

func (r *Repo) RemoveParticipant(ctx context.Context, name domain.ActivityName, id domain.ParticipantID) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		activityID, _, err := lockActivity(ctx, tx, name)
		if err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `
			DELETE FROM activity_participants
			WHERE activity_id = $1 AND participant = $2
		`, activityID, string(id))
		if err != nil {
			return fmt.Errorf("delete participant: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return rosterrepo.ErrNotInRoster
		}
		return nil
	})
}

// snapshotTxOptions gives readers one consistent view of activities and rosters.
var snapshotTxOptions = pgx.TxOptions{
	IsoLevel:   pgx.RepeatableRead,
	AccessMode: pgx.ReadOnly,
}

func lockActivity(ctx context.Context, tx pgx.Tx, name domain.ActivityName) (int64, int, error) {
	var id int64
	var maxParticipants int
	err := tx.QueryRow(ctx, `
		SELECT id, max_participants
		FROM activities
		WHERE name = $1
		FOR UPDATE
	`, string(name)).Scan(&id, &maxParticipants)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, 0, rosterrepo.ErrNotFound
		}
		return 0, 0, fmt.Errorf("lock activity: %w", err)
	}
	return id, maxParticipants, nil
}

func scanActivity(row pgx.Row, id *int64) (domain.Activity, error) {
	var (
		a    domain.Activity
		name string
	)
	if err := row.Scan(id, &name, &a.Description, &a.Schedule, &a.MaxParticipants); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Activity{}, rosterrepo.ErrNotFound
		}
		return domain.Activity{}, fmt.Errorf("scan activity: %w", err)
	}
	a.Name = domain.ActivityName(name)
	a.Participants = []domain.ParticipantID{}
	return a, nil
}

func loadRosters(ctx context.Context, tx pgx.Tx, ids []int64) (map[int64][]domain.ParticipantID, error) {
	out := make(map[int64][]domain.ParticipantID, len(ids))
	for _, id := range ids {
		out[id] = []domain.ParticipantID{}
	}
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := tx.Query(ctx, `
		SELECT activity_id, participant
		FROM activity_participants
		WHERE activity_id = ANY($1)
		ORDER BY activity_id ASC, position ASC
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("load rosters: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			activityID int64
			p          string
		)
		if err := rows.Scan(&activityID, &p); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		out[activityID] = append(out[activityID], domain.ParticipantID(p))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load rosters: %w", err)
	}
	return out, nil
}
