// Package db provides the shared database pool abstraction and helpers for
// transactional units of work and bulk COPY loads.
package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the subset of query operations shared by a connection pool and
// an open transaction. Store methods that must run either standalone or
// inside a per-document transaction accept a Querier.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Pool is the connection pool interface used throughout the pipeline.
// It is satisfied by *pgxpool.Pool and by pgxmock.PgxPoolIface, which keeps
// every store unit-testable without a live database.
type Pool interface {
	Querier
	Begin(ctx context.Context) (pgx.Tx, error)
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
	Ping(ctx context.Context) error
	Close()
}
