package repository

import (
	"context"
	"database/sql"
	"errors"
)

// ErrCorruptRecord is returned when a stored row cannot be decoded
var ErrCorruptRecord = errors.New("corrupt record")

// DBTX is satisfied by both *sql.DB and *sql.Tx
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}
