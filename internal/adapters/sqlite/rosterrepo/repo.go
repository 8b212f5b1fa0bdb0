package rosterrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/mergington/activities-api/internal/domain"
	"github.com/mergington/activities-api/internal/ports/out/rosterrepo"
)

// Repo is a SQLite implementation of rosterrepo.Repository.
// It expects a handle from sqlite.Open, whose single connection serializes transactions.
type Repo struct {
	db *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) Create(ctx context.Context, a domain.Activity) error {
	if r.db == nil {
		return errors.New("nil sqlite db")
	}
	if err := a.Validate(); err != nil {
		return err
	}

	return r.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO activities (name, description, schedule, max_participants)
			VALUES (?, ?, ?, ?)
		`, string(a.Name), a.Description, a.Schedule, a.MaxParticipants)
		if err != nil {
			if isConstraintError(err) {
				return rosterrepo.ErrAlreadyExists
			}
			return fmt.Errorf("insert activity: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("activity id: %w", err)
		}
		for _, p := range a.Participants {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO activity_participants (activity_id, participant) VALUES (?, ?)
			`, id, string(p)); err != nil {
				return fmt.Errorf("insert participant: %w", err)
			}
		}
		return nil
	})
}

func (r *Repo) Get(ctx context.Context, name domain.ActivityName) (domain.Activity, error) {
	if r.db == nil {
		return domain.Activity{}, errors.New("nil sqlite db")
	}

	var out domain.Activity
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		var id int64
		a, err := scanActivity(tx.QueryRowContext(ctx, `
			SELECT id, name, description, schedule, max_participants
			FROM activities WHERE name = ?
		`, string(name)), &id)
		if err != nil {
			return err
		}
		rosters, err := loadRosters(ctx, tx, id)
		if err != nil {
			return err
		}
		a.Participants = rosterOrEmpty(rosters, id)
		out = a
		return nil
	})
	return out, err
}

func (r *Repo) List(ctx context.Context) ([]domain.Activity, error) {
	if r.db == nil {
		return nil, errors.New("nil sqlite db")
	}

	var out []domain.Activity
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `
			SELECT id, name, description, schedule, max_participants
			FROM activities ORDER BY id ASC
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
				_ = rows.Close()
				return err
			}
			ids = append(ids, id)
			activities = append(activities, a)
		}
		if err := rows.Close(); err != nil {
			return fmt.Errorf("list activities: %w", err)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("list activities: %w", err)
		}

		rosters, err := loadRosters(ctx, tx, 0)
		if err != nil {
			return err
		}
		for i, id := range ids {
			activities[i].Participants = rosterOrEmpty(rosters, id)
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
	if r.db == nil {
		return errors.New("nil sqlite db")
	}

	return r.inTx(ctx, func(tx *sql.Tx) error {
		var activityID int64
		var maxParticipants int
		if err := tx.QueryRowContext(ctx, `
			SELECT id, max_participants FROM activities WHERE name = ?
		`, string(name)).Scan(&activityID, &maxParticipants); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return rosterrepo.ErrNotFound
			}
			return fmt.Errorf("get activity: %w", err)
		}

		var enrolled, count int
		if err := tx.QueryRowContext(ctx, `
			SELECT COALESCE(SUM(participant = ?), 0), COUNT(*)
			FROM activity_participants WHERE activity_id = ?
		`, string(id), activityID).Scan(&enrolled, &count); err != nil {
			return fmt.Errorf("count participants: %w", err)
		}
		if enrolled > 0 {
			return rosterrepo.ErrAlreadyEnrolled
		}
		if count >= maxParticipants {
			return rosterrepo.ErrCapacityExceeded
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO activity_participants (activity_id, participant) VALUES (?, ?)
		`, activityID, string(id)); err != nil {
			if isConstraintError(err) {
				return rosterrepo.ErrAlreadyEnrolled
			}
			return fmt.Errorf("insert participant: %w", err)
		}
		return nil
	})
}

func (r *Repo) RemoveParticipant(ctx context.Context, name domain.ActivityName, id domain.ParticipantID) error {
	if r.db == nil {
		return errors.New("nil sqlite db")
	}

	return r.inTx(ctx, func(tx *sql.Tx) error {
		var activityID int64
		if err := tx.QueryRowContext(ctx, `SELECT id FROM activities WHERE name = ?`, string(name)).Scan(&activityID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return rosterrepo.ErrNotFound
			}
			return fmt.Errorf("get activity: %w", err)
		}
		res, err := tx.ExecContext(ctx, `
			DELETE FROM activity_participants WHERE activity_id = ? AND participant = ?
		`, activityID, string(id))
		if err != nil {
			return fmt.Errorf("delete participant: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("delete participant: %w", err)
		}
		if n == 0 {
			return rosterrepo.ErrNotInRoster
		}
		return nil
	})
}

func (r *Repo) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin sqlite tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit sqlite tx: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanActivity(row rowScanner, id *int64) (domain.Activity, error) {
	var (
		a    domain.Activity
		name string
	)
	if err := row.Scan(id, &name, &a.Description, &a.Schedule, &a.MaxParticipants); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Activity{}, rosterrepo.ErrNotFound
		}
		return domain.Activity{}, fmt.Errorf("scan activity: %w", err)
	}
	a.Name = domain.ActivityName(name)
	return a, nil
}

// loadRosters returns rosters keyed by activity id; onlyID of 0 loads every activity.
func loadRosters(ctx context.Context, tx *sql.Tx, onlyID int64) (map[int64][]domain.ParticipantID, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT activity_id, participant FROM activity_participants
		WHERE ? = 0 OR activity_id = ?
		ORDER BY activity_id ASC, position ASC
	`, onlyID, onlyID)
	if err != nil {
		return nil, fmt.Errorf("load rosters: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]domain.ParticipantID)
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

func rosterOrEmpty(rosters map[int64][]domain.ParticipantID, id int64) []domain.ParticipantID {
	if p, ok := rosters[id]; ok {
		return p
	}
	return []domain.ParticipantID{}
}

func isConstraintError(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	return code == sqlite3.SQLITE_CONSTRAINT || code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}
