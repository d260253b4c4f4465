package library

import (
	"context"
	"database/sql"
)

// dbtx is the subset of database/sql shared by *sql.DB and *sql.Tx, so the
// query helpers run both inside and outside a transaction.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// withTx runs fn inside a transaction. It commits when fn returns nil and
// rolls back on error or panic; panics are rethrown.
func withTx(ctx context.Context, db *sql.DB, fn func(ctx context.Context, tx dbtx) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	err = fn(ctx, tx)
	return err
}
