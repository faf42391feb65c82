package database

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGXDB is the query surface shared by pgxpool.Pool, pgx.Tx and pgxmock, so
// repositories run unchanged against a pool, a rolled-back test transaction
// or a mock.
type PGXDB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Pinger checks database liveness. Implemented by pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

var (
	_ PGXDB  = (*pgxpool.Pool)(nil)
	_ PGXDB  = (pgx.Tx)(nil)
	_ Pinger = (*pgxpool.Pool)(nil)
)
