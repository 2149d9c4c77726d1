package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"erp-service/internal/apperr"
	"erp-service/internal/util"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

// txRetryBackoff is the wait before each retry of a transaction aborted by
// deadlock or serialization failure. Attempts past the table reuse the last
// entry.
var txRetryBackoff = []time.Duration{
	10 * time.Millisecond,
	40 * time.Millisecond,
	160 * time.Millisecond,
}

const (
	defaultLockWait      = 5 * time.Second
	defaultRetryAttempts = 3
)

type Store struct {
	db            *sqlx.DB
	lockWait      time.Duration
	retryAttempts int
	logger        *zap.Logger
}

// NewStore creates a new database store. lockWait caps how long any row lock
// is waited on inside a transaction; retryAttempts bounds RunTxRetry. Zero
// values fall back to the defaults (5s, 3).
func NewStore(databaseURL string, lockWait time.Duration, retryAttempts int) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if lockWait <= 0 {
		lockWait = defaultLockWait
	}
	if retryAttempts <= 0 {
		retryAttempts = defaultRetryAttempts
	}

	return &Store{
		db:            db,
		lockWait:      lockWait,
		retryAttempts: retryAttempts,
		logger:        util.GetLogger(),
	}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

// RunTx executes fn inside a single transaction with the configured lock
// wait cap. On error every write is rolled back; no partial effect becomes
// visible.
func (s *Store) RunTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.lockWait.Milliseconds())); err != nil {
		return fmt.Errorf("failed to set lock timeout: %w", err)
	}

	if err := fn(tx); err != nil {
		return classifyErr(err)
	}

	if err := tx.Commit(); err != nil {
		return classifyErr(err)
	}
	return nil
}

// RunTxRetry runs fn via RunTx, retrying deadlock, serialization and lock
// timeout aborts up to the configured attempt count with exponential backoff
// (10ms, 40ms, 160ms). Domain errors are never retried.
func (s *Store) RunTxRetry(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = s.RunTx(ctx, fn)
		if err == nil || !apperr.IsKind(err, apperr.KindRetryable) {
			return err
		}
		if attempt >= s.retryAttempts {
			return err
		}

		s.logger.Warn("Retrying transaction after conflict",
			zap.Int("attempt", attempt+1),
			zap.Error(err))
		util.TxRetriesTotal.Inc()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoffFor(attempt)):
		}
	}
}

// backoffFor returns the wait before retrying the given zero-based attempt.
func backoffFor(attempt int) time.Duration {
	if attempt >= len(txRetryBackoff) {
		return txRetryBackoff[len(txRetryBackoff)-1]
	}
	return txRetryBackoff[attempt]
}

// classifyErr maps driver failures onto the domain error taxonomy. Typed
// domain errors pass through untouched.
func classifyErr(err error) error {
	if _, ok := apperr.AsError(err); ok {
		return err
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001", "40P01", "55P03": // serialization_failure, deadlock_detected, lock_not_available
			return apperr.Retryable(err)
		case "23505": // unique_violation
			return apperr.Wrap(apperr.KindConflict, err, "uniqueness violation on %s", pqErr.Constraint)
		}
	}
	return err
}

// IsNoRows reports whether err is the empty-result sentinel.
func IsNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
