package idemstore

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Japan-Automation-Technology/Lifecast-sub000/model"
)

type pgStore struct{ db *sql.DB }

// NewPostgres returns the durable store.
func NewPostgres(db *sql.DB) Store { return &pgStore{db: db} }

func (s *pgStore) Lookup(ctx context.Context, routeKey, key string) (*model.IdempotencyRecord, error) {
	const q = `
SELECT route_key, idempotency_key, fingerprint, status_code, body, created_at, expires_at
FROM idempotency_records
WHERE route_key=$1 AND idempotency_key=$2 AND expires_at > NOW()`
	rec := &model.IdempotencyRecord{}
	err := s.db.QueryRowContext(ctx, q, routeKey, key).Scan(
		&rec.RouteKey, &rec.Key, &rec.Fingerprint, &rec.StatusCode, &rec.Body,
		&rec.CreatedAt, &rec.ExpiresAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *pgStore) Save(ctx context.Context, rec *model.IdempotencyRecord) error {
	const q = `
INSERT INTO idempotency_records (route_key, idempotency_key, fingerprint, status_code, body, expires_at)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (route_key, idempotency_key) DO NOTHING`
	_, err := s.db.ExecContext(ctx, q,
		rec.RouteKey, rec.Key, rec.Fingerprint, rec.StatusCode, rec.Body, rec.ExpiresAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return nil
		}
	}
	return err
}
