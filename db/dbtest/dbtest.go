// In-memory stand-ins for db.Source and db.Conn.  A query is answered by the first Response whose
// Match is a substring of it; table-existence queries are answered from Tables.

package dbtest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"navstat/db"
)

type Response struct {
	Match string
	Rows  func(args []any) [][]any
	Err   error
}

type Source struct {
	Tables    map[string]bool
	Responses []Response

	// Open fails after this many successful opens, if positive
	FailAfter int

	opens   atomic.Int64
	lock    sync.Mutex
	queries []string
}

var _ = db.Source((*Source)(nil))

func (s *Source) Name() string {
	return "fake"
}

func (s *Source) Open(_ context.Context) (db.Conn, error) {
	n := s.opens.Add(1)
	if s.FailAfter > 0 && n > int64(s.FailAfter) {
		return nil, errors.New("Too many connections")
	}
	return &Conn{source: s}, nil
}

func (s *Source) Opens() int {
	return int(s.opens.Load())
}

func (s *Source) Queries() []string {
	s.lock.Lock()
	defer s.lock.Unlock()
	return append([]string(nil), s.queries...)
}

type Conn struct {
	source *Source
	closed bool
}

func (c *Conn) Dialect() db.Dialect {
	return db.SQLite
}

func (c *Conn) Query(_ context.Context, query string, args ...any) (db.Rows, error) {
	if c.closed {
		return nil, errors.New("Connection closed")
	}
	s := c.source
	s.lock.Lock()
	s.queries = append(s.queries, query)
	s.lock.Unlock()

	if strings.Contains(query, "sqlite_master") {
		n := int64(0)
		if s.Tables[args[0].(string)] {
			n = 1
		}
		return &Rows{data: [][]any{{n}}}, nil
	}
	for _, r := range s.Responses {
		if strings.Contains(query, r.Match) {
			if r.Err != nil {
				return nil, r.Err
			}
			return &Rows{data: r.Rows(args)}, nil
		}
	}
	return nil, fmt.Errorf("No response for query %q", query)
}

func (c *Conn) Close() error {
	c.closed = true
	return nil
}

type Rows struct {
	data [][]any
	next int
}

func (r *Rows) Next() bool {
	if r.next < len(r.data) {
		r.next++
		return true
	}
	return false
}

// Scan assigns row values to the destinations; a nil value is SQL NULL.

func (r *Rows) Scan(dest ...any) error {
	row := r.data[r.next-1]
	if len(row) != len(dest) {
		return fmt.Errorf("Expected %d columns, got %d", len(row), len(dest))
	}
	for i, d := range dest {
		v := row[i]
		var ok bool
		switch p := d.(type) {
		case *int64:
			*p, ok = v.(int64)
		case *float64:
			*p, ok = v.(float64)
		case *string:
			*p, ok = v.(string)
		case *sql.NullInt64:
			ok = true
			*p = sql.NullInt64{}
			if v != nil {
				p.Int64, ok = v.(int64)
				p.Valid = true
			}
		case *sql.NullString:
			ok = true
			*p = sql.NullString{}
			if v != nil {
				p.String, ok = v.(string)
				p.Valid = true
			}
		}
		if !ok {
			return fmt.Errorf("Cannot scan %v (%T) into %T", v, v, d)
		}
	}
	return nil
}

func (r *Rows) Err() error {
	return nil
}

func (r *Rows) Close() {}
