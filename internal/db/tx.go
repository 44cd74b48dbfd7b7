package db

import (
	"context"
	"database/sql"
)

// InTx runs fn against a transaction-scoped Queries, committing when fn
// returns nil and rolling back otherwise.
func InTx(ctx context.Context, database *sql.DB, fn func(*Queries) error) error {
	tx, err := database.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(New(tx)); err != nil {
		return err
	}
	return tx.Commit()
}
