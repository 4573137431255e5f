package swap

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

// TxRunner executes fn inside a database transaction. The Postgres runner
// retries serialization conflicts; tests substitute a pass-through.
type TxRunner interface {
	RunTx(ctx context.Context, fn func(tx *sql.Tx) error) error
}

type pgRunner struct {
	db       *sql.DB
	attempts int
	backoff  time.Duration
}

func NewTxRunner(db *sql.DB) TxRunner {
	return &pgRunner{db: db, attempts: 3, backoff: 25 * time.Millisecond}
}

func (r *pgRunner) RunTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	delay := r.backoff
	var err error
	for attempt := 0; attempt < r.attempts; attempt++ {
		err = r.runOnce(ctx, fn)
		if err == nil || !retryable(err) {
			return err
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay *= 2
	}
	return err
}

func (r *pgRunner) runOnce(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if err = fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func retryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.SerializationFailure ||
			pgErr.Code == pgerrcode.DeadlockDetected
	}
	return false
}
