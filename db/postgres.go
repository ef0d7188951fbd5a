package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// A trace imported into PostgreSQL, table and column names preserved (hence quoted in all queries).
// pgx.Conn is not thread-safe, so every Conn is its own connection.

type postgresSource struct {
	uri string
}

func NewPostgresSource(uri string) Source {
	return &postgresSource{uri: uri}
}

func (s *postgresSource) Name() string {
	return s.uri
}

func (s *postgresSource) Open(ctx context.Context) (Conn, error) {
	connection, err := pgx.Connect(ctx, s.uri)
	if err != nil {
		return nil, fmt.Errorf("Unable to connect to database: %w", err)
	}
	return &postgresConn{connection}, nil
}

type postgresConn struct {
	connection *pgx.Conn
}

func (c *postgresConn) Dialect() Dialect {
	return Postgres
}

func (c *postgresConn) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	return c.connection.Query(ctx, Postgres.Rewrite(query), args...)
}

func (c *postgresConn) Close() error {
	return c.connection.Close(context.Background())
}
