package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mergington/activities-api/internal/ports/out/idempotency"
)

// DefaultTTL bounds how long a stored response stays replayable.
const DefaultTTL = 24 * time.Hour

// Store is a Postgres implementation of idempotency.Store.
// Expired rows are ignored on read and pruned on write.
type Store struct {
	pool *pgxpool.Pool
	ttl  time.Duration
}

func NewStore(pool *pgxpool.Pool, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{pool: pool, ttl: ttl}
}

func (s *Store) Get(ctx context.Context, fp idempotency.Fingerprint) (idempotency.Record, bool, error) {
	if s.pool == nil {
		return idempotency.Record{}, false, errors.New("nil postgres pool")
	}
	row := s.pool.QueryRow(ctx, `
		SELECT status_code, content_type, body, created_at
		FROM idempotency_keys
		WHERE idempotency_key = $1
		  AND method = $2
		  AND route = $3
		  AND body_hash = $4
		  AND created_at > $5
	`,
		string(fp.Key),
		fp.Method,
		fp.Route,
		fp.BodyHash,
		time.Now().UTC().Add(-s.ttl),
	)
	var rec idempotency.Record
	if err := row.Scan(&rec.StatusCode, &rec.ContentType, &rec.Body, &rec.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return idempotency.Record{}, false, nil
		}
		return idempotency.Record{}, false, fmt.Errorf("get idempotency record: %w", err)
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	return rec, true, nil
}

func (s *Store) Put(ctx context.Context, fp idempotency.Fingerprint, rec idempotency.Record) error {
	if s.pool == nil {
		return errors.New("nil postgres pool")
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	body := rec.Body
	if body == nil {
		body = []byte{}
	}

	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM idempotency_keys WHERE created_at <= $1`, time.Now().UTC().Add(-s.ttl)); err != nil {
			return fmt.Errorf("prune idempotency records: %w", err)
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO idempotency_keys (
				idempotency_key,
				method,
				route,
				body_hash,
				status_code,
				content_type,
				body,
				created_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
			ON CONFLICT (idempotency_key, method, route, body_hash)
			DO UPDATE SET
				status_code = EXCLUDED.status_code,
				content_type = EXCLUDED.content_type,
				body = EXCLUDED.body,
				created_at = EXCLUDED.created_at
		`,
			string(fp.Key),
			fp.Method,
			fp.Route,
			fp.BodyHash,
			rec.StatusCode,
			rec.ContentType,
			body,
			createdAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("put idempotency record: %w", err)
		}
		return nil
	})
}

// PutIfAbsent inserts rec, or replaces an expired row, and otherwise returns the live row.
// Concurrent callers on one fingerprint are serialized by the primary key.
func (s *Store) PutIfAbsent(ctx context.Context, fp idempotency.Fingerprint, rec idempotency.Record) (idempotency.Record, bool, error) {
	if s.pool == nil {
		return idempotency.Record{}, false, errors.New("nil postgres pool")
	}
	now := time.Now().UTC()
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	body := rec.Body
	if body == nil {
		body = []byte{}
	}

	var (
		out      idempotency.Record
		inserted bool
	)
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO idempotency_keys (
				idempotency_key,
				method,
				route,
				body_hash,
				status_code,
				content_type,
				body,
				created_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
			ON CONFLICT (idempotency_key, method, route, body_hash)
			DO UPDATE SET
				status_code = EXCLUDED.status_code,
				content_type = EXCLUDED.content_type,
				body = EXCLUDED.body,
				created_at = EXCLUDED.created_at
			WHERE idempotency_keys.created_at <= $9
			RETURNING status_code, content_type, body, created_at
		`,
			string(fp.Key),
			fp.Method,
			fp.Route,
			fp.BodyHash,
			rec.StatusCode,
			rec.ContentType,
			body,
			createdAt.UTC(),
			now.Add(-s.ttl),
		).Scan(&out.StatusCode, &out.ContentType, &out.Body, &out.CreatedAt)
		if err == nil {
			inserted = true
			return nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("claim idempotency record: %w", err)
		}

		// A live row already holds the fingerprint.
		if err := tx.QueryRow(ctx, `
			SELECT status_code, content_type, body, created_at
			FROM idempotency_keys
			WHERE idempotency_key = $1 AND method = $2 AND route = $3 AND body_hash = $4
		`, string(fp.Key), fp.Method, fp.Route, fp.BodyHash).Scan(&out.StatusCode, &out.ContentType, &out.Body, &out.CreatedAt); err != nil {
			return fmt.Errorf("read idempotency record: %w", err)
		}
		return nil
	})
	if err != nil {
		return idempotency.Record{}, false, err
	}
	out.CreatedAt = out.CreatedAt.UTC()
	return out, inserted, nil
}
