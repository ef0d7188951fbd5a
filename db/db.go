// Read-only access to an Nsight Systems trace export.
//
// A Source names one trace and hands out independent connections; the pipeline opens one Conn per
// task and never shares a Conn between goroutines.  Two backends exist: the SQLite file written by
// `nsys export --type sqlite`, and a PostgreSQL database the same tables have been imported into.
// Queries are written once with `?` placeholders and rewritten for the backend by the Dialect.

package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNoTable        = errors.New("Required table not present")
	ErrUnknownBackend = errors.New("Unknown trace store backend")
)

// Rows is the subset of database/sql.Rows and pgx.Rows that the extractors use.  Scan targets are
// pointers to int64, float64, string, or the sql.Null* types for nullable columns.

type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
}

// A Conn is not thread-safe.

type Conn interface {
	Dialect() Dialect
	Query(ctx context.Context, query string, args ...any) (Rows, error)
	Close() error
}

// MT: Implementations must be thread-safe, Open is called concurrently from the worker pool.

type Source interface {
	Name() string
	Open(ctx context.Context) (Conn, error)
}

// OpenSource picks the backend from the URI: postgres:// and postgresql:// URIs name a database,
// anything else is taken to be an SQLite file.

func OpenSource(uri string) (Source, error) {
	switch {
	case strings.HasPrefix(uri, "postgres://") || strings.HasPrefix(uri, "postgresql://"):
		return NewPostgresSource(uri), nil
	case strings.Contains(uri, "://"):
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, uri)
	default:
		return NewSQLiteSource(uri)
	}
}

///////////////////////////////////////////////////////////////////////////////////////////////////
//
// Dialects

type Dialect struct {
	Name string

	// Positional placeholders $1, $2, ... instead of ?
	numbered bool

	// Two-argument maximum, `max` in SQLite and `GREATEST` in PostgreSQL
	greatest string

	tableExists string
}

var (
	SQLite = Dialect{
		Name:        "sqlite",
		greatest:    "max",
		tableExists: `SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = ?`,
	}
	Postgres = Dialect{
		Name:        "postgres",
		numbered:    true,
		greatest:    "GREATEST",
		tableExists: `SELECT count(*) FROM information_schema.tables WHERE table_name = ?`,
	}
)

// Rewrite replaces `?` placeholders and the `greatest(` function name for the dialect.  Question
// marks inside single-quoted literals are left alone.

func (d Dialect) Rewrite(query string) string {
	query = strings.ReplaceAll(query, "greatest(", d.greatest+"(")
	if !d.numbered {
		return query
	}
	var b strings.Builder
	n := 0
	quoted := false
	for _, c := range query {
		switch {
		case c == '\'':
			quoted = !quoted
			b.WriteRune(c)
		case c == '?' && !quoted:
			n++
			fmt.Fprintf(&b, "$%d", n)
		default:
			b.WriteRune(c)
		}
	}
	return b.String()
}

///////////////////////////////////////////////////////////////////////////////////////////////////
//
// Queries shared by all categories

func TableExists(ctx context.Context, conn Conn, name string) (bool, error) {
	rows, err := conn.Query(ctx, conn.Dialect().tableExists, name)
	if err != nil {
		return false, err
	}
	defer rows.Close()
	var n int64
	if rows.Next() {
		if err := rows.Scan(&n); err != nil {
			return false, err
		}
	}
	return n > 0, rows.Err()
}

// MissingTables returns the names among `names` that are not tables in the store, in order.  An
// empty result means all are present.

func MissingTables(ctx context.Context, conn Conn, names []string) ([]string, error) {
	missing := make([]string, 0)
	for _, name := range names {
		exists, err := TableExists(ctx, conn, name)
		if err != nil {
			return nil, fmt.Errorf("Failed to check for table %s: %w", name, err)
		}
		if !exists {
			missing = append(missing, name)
		}
	}
	return missing, nil
}

const AnalysisTable = "ANALYSIS_DETAILS"

// TotalDuration is the traced time span.  Returns ErrNoTable if the trace carries no analysis
// details.

func TotalDuration(ctx context.Context, conn Conn) (int64, error) {
	exists, err := TableExists(ctx, conn, AnalysisTable)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, fmt.Errorf("%w: %s", ErrNoTable, AnalysisTable)
	}
	rows, err := conn.Query(ctx, `SELECT "duration" FROM "`+AnalysisTable+`"`)
	if err != nil {
		return 0, err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return 0, err
		}
		return 0, fmt.Errorf("%s is empty", AnalysisTable)
	}
	var d int64
	if err := rows.Scan(&d); err != nil {
		return 0, err
	}
	return d, rows.Err()
}
