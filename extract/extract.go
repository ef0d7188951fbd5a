// Entity extractors, one per report category.
//
// An extractor enumerates the entities of its category with their totals, fetches the raw event
// records of one entity, and derives that entity's metric blocks from the records.  Enumerate and
// FetchRaw talk to the trace store; Derive is pure and runs on the worker pool.

package extract

import (
	"context"
	"fmt"

	"navstat/db"
	"navstat/report"
	"navstat/stats"
)

// One raw occurrence.  Size is only meaningful for transfers; Overhead and Slack are only set for
// kernels, and are nil when the kernel launch has no runtime record.

type Record struct {
	Duration int64
	Size     int64
	Overhead *int64
	Slack    *int64
}

// Derived holds the per-entity results of Derive.  Every metric of the kind is present in Metrics,
// with a nil block when there were no valid samples.

type Derived struct {
	Metrics   map[string]*stats.Block
	Bandwidth *stats.PairedDistribution
}

type Extractor interface {
	Kind() report.Kind

	// Tables that must all exist for the category to be extracted.
	RequiredTables() []string

	// Entities with Key, Name, TimeTotal, Instance, TimePercent (and MemoryTotal for transfers).
	Enumerate(ctx context.Context, conn db.Conn) ([]*report.Entity, error)

	FetchRaw(ctx context.Context, conn db.Conn, key string) ([]Record, error)

	Derive(records []Record) *Derived
}

// MT: Constant after initialization; thread-safe.
var extractors = map[report.Kind]Extractor{
	report.Kernel:        Kernel{},
	report.Transfer:      Transfer{},
	report.Communication: Communication{},
}

func For(k report.Kind) Extractor {
	return extractors[k]
}

///////////////////////////////////////////////////////////////////////////////////////////////////
//
// Shared helpers

// setTimePercent sets each entity's share of the category time, rounded to one decimal.

func setTimePercent(entities []*report.Entity) {
	var total int64
	for _, e := range entities {
		total += e.TimeTotal
	}
	setTimePercentOf(entities, total)
}

// setTimePercentOf is setTimePercent against a category total that may include rows no entity was
// made for.

func setTimePercentOf(entities []*report.Entity, total int64) {
	if total == 0 {
		return
	}
	for _, e := range entities {
		e.TimePercent = stats.RoundTo(float64(e.TimeTotal)*100/float64(total), 1)
	}
}

// block computes the statistics and the histogram of a metric, or nil if there are no samples.

func block(samples []float64, opts stats.Options) *stats.Block {
	b := stats.ComputeStatistics(samples, true)
	if b != nil {
		b.Distribution = stats.BuildHistogram(samples, opts)
	}
	return b
}

func queryRows(
	ctx context.Context,
	conn db.Conn,
	query string,
	scan func(rows db.Rows) error,
	args ...any,
) error {
	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		if err := scan(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

func wrap(k report.Kind, what string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("Failed to %s %s data: %w", what, k, err)
}
