package sqlstore

import (
	"context"
	"fmt"

	"github.com/learnquest/learnquest/internal/domain"
)

// WithinTx runs fn in a transaction. The repository handed to fn is bound to
// the transaction; the transaction commits when fn returns nil and rolls
// back otherwise, including on panic.
func (d *DB) WithinTx(ctx context.Context, fn func(ctx context.Context, repo domain.Repository) error) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(ctx, &queries{q: tx, dialect: d.dialect, inTx: true}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}
