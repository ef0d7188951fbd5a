package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"

	_ "modernc.org/sqlite"
)

// The pure-Go driver keeps the binary free of cgo.  The trace is never written: every connection is
// query-only, with a larger page cache than the default since the raw-sample queries scan the
// activity tables once per entity.

const sqlitePragmas = "_pragma=query_only(1)&_pragma=cache_size(-64000)&_pragma=temp_store(MEMORY)"

type sqliteSource struct {
	path string
}

func NewSQLiteSource(path string) (Source, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("Failed to open trace: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("Trace %s is a directory", path)
	}
	return &sqliteSource{path: path}, nil
}

func (s *sqliteSource) Name() string {
	return s.path
}

func (s *sqliteSource) Open(ctx context.Context) (Conn, error) {
	dsn := "file:" + (&url.URL{Path: s.path}).EscapedPath() + "?" + sqlitePragmas
	handle, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	handle.SetMaxOpenConns(1)
	if err := handle.PingContext(ctx); err != nil {
		handle.Close()
		return nil, fmt.Errorf("Failed to open %s: %w", s.path, err)
	}
	return &sqliteConn{handle}, nil
}

type sqliteConn struct {
	handle *sql.DB
}

func (c *sqliteConn) Dialect() Dialect {
	return SQLite
}

func (c *sqliteConn) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	rows, err := c.handle.QueryContext(ctx, SQLite.Rewrite(query), args...)
	if err != nil {
		return nil, err
	}
	return sqlRows{rows}, nil
}

func (c *sqliteConn) Close() error {
	return c.handle.Close()
}

type sqlRows struct {
	*sql.Rows
}

func (r sqlRows) Close() {
	r.Rows.Close()
}
