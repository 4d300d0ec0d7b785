package sqlutil

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// InTx runs fn with sqlc queries bound to one transaction. An error from fn rolls the
// transaction back and is returned together with any rollback failure; otherwise the
// transaction commits.
func InTx[Q any](
	ctx context.Context,
	db *sql.DB,
	bind func(*sql.Tx) Q,
	fn func(q Q) error,
) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(bind(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("failed to roll back: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
