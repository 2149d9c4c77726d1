package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"erp-service/internal/models"

	"github.com/lib/pq"
)

// ErrNoIdempotencyTable is returned when the idempotency_keys table is
// absent. The storage table is optional; callers degrade to uncached
// execution.
var ErrNoIdempotencyTable = errors.New("idempotency_keys table missing")

// GetIdempotencyRecord retrieves a live record for a key. Expired records
// are treated as absent; a pending claim comes back with status 0.
func (s *Store) GetIdempotencyRecord(ctx context.Context, key, route, method string) (*models.IdempotencyRecord, error) {
	var rec models.IdempotencyRecord
	err := s.db.GetContext(ctx, &rec, `
		SELECT * FROM idempotency_keys
		WHERE key = $1 AND route = $2 AND method = $3 AND expires_at > NOW()`,
		key, route, method)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, mapIdempotencyErr(err)
	}
	return &rec, nil
}

// ReserveIdempotencyRecord claims a key before the guarded handler runs, so
// concurrent first calls race on the unique key index and exactly one of them
// executes. A pending claim has status 0 until CompleteIdempotencyRecord
// fills the response; an expired row is taken over. Returns true when this
// caller won the claim.
func (s *Store) ReserveIdempotencyRecord(ctx context.Context, rec *models.IdempotencyRecord) (bool, error) {
	query := `
		INSERT INTO idempotency_keys (key, route, method, body_hash, status, response, expires_at)
		VALUES ($1, $2, $3, $4, 0, NULL, $5)
		ON CONFLICT (key) DO UPDATE
		SET route = EXCLUDED.route, method = EXCLUDED.method,
			body_hash = EXCLUDED.body_hash, status = 0, response = NULL,
			expires_at = EXCLUDED.expires_at
		WHERE idempotency_keys.expires_at <= NOW()
		RETURNING id, created_at`

	err := s.db.GetContext(ctx, rec, query,
		rec.Key, rec.Route, rec.Method, rec.BodyHash, rec.ExpiresAt)
	if err == sql.ErrNoRows {
		// A live row already holds the key.
		return false, nil
	}
	if err != nil {
		return false, mapIdempotencyErr(err)
	}
	return true, nil
}

// CompleteIdempotencyRecord stores the response produced under a claimed key.
// A claim that never completes blocks the key until it expires.
func (s *Store) CompleteIdempotencyRecord(ctx context.Context, rec *models.IdempotencyRecord) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE idempotency_keys SET status = $1, response = $2 WHERE key = $3",
		rec.Status, rec.Response, rec.Key)
	return mapIdempotencyErr(err)
}

// PurgeExpiredIdempotencyRecords removes records past their TTL.
func (s *Store) PurgeExpiredIdempotencyRecords(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM idempotency_keys WHERE expires_at <= $1", time.Now())
	if err != nil {
		return 0, mapIdempotencyErr(err)
	}
	return res.RowsAffected()
}

func mapIdempotencyErr(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "42P01" { // undefined_table
		return ErrNoIdempotencyTable
	}
	return err
}
