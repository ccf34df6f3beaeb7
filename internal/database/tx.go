package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// withTxTimeout runs fn inside a database transaction bounded by a
// deadline. If fn returns an error, the deadline expires, or the caller's
// context is cancelled, the transaction rolls back fully; a stalled
// external call can therefore never hold a seat lock past the timeout.
func withTxTimeout(ctx context.Context, db *sqlx.DB, timeout time.Duration, fn func(ctx context.Context, tx *sqlx.Tx) error) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
