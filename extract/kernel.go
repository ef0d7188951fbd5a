package extract

import (
	"context"
	"database/sql"
	"strconv"

	"navstat/db"
	"navstat/report"
	"navstat/stats"
	"navstat/units"
)

// Kernels are grouped by short name, or by demangled name when there is no short name.  The key is
// the short-name string id, the display name comes from StringIds.

const kernelEnumerate = `
WITH
    summary AS (
        SELECT
            coalesce("shortName", "demangledName") AS name_id,
            min("shortName") AS kernel_id,
            CAST(sum("end" - "start") AS BIGINT) AS total,
            count(*) AS num
        FROM
            "CUPTI_ACTIVITY_KIND_KERNEL"
        GROUP BY 1
    )
SELECT
    summary.kernel_id,
    summary.total,
    summary.num,
    ids.value
FROM
    summary
LEFT JOIN
    "StringIds" AS ids
    ON ids.id = summary.name_id
`

// Runtime class 67 is not a launch.  The join is on correlation id; kernels without a launch record
// yield NULL overhead and slack.

const kernelRaw = `
WITH
    runtime AS (
        SELECT
            "correlationId" AS correlation_id,
            "end" - "start" AS launch_overhead,
            "end" AS runtime_end
        FROM
            "CUPTI_ACTIVITY_KIND_RUNTIME"
        WHERE
            "eventClass" != 67
    )
SELECT
    k."end" - k."start",
    rt.launch_overhead,
    k."start" - rt.runtime_end
FROM
    "CUPTI_ACTIVITY_KIND_KERNEL" AS k
JOIN
    "StringIds" AS ids
    ON k."shortName" = ids.id
LEFT JOIN
    runtime AS rt
    ON rt.correlation_id = k."correlationId"
WHERE
    k."shortName" = ?
`

type Kernel struct{}

func (Kernel) Kind() report.Kind {
	return report.Kernel
}

func (Kernel) RequiredTables() []string {
	return []string{"CUPTI_ACTIVITY_KIND_KERNEL", "CUPTI_ACTIVITY_KIND_RUNTIME", "StringIds"}
}

func (Kernel) Enumerate(ctx context.Context, conn db.Conn) ([]*report.Entity, error) {
	entities := make([]*report.Entity, 0)
	var categoryTotal int64
	err := queryRows(ctx, conn, kernelEnumerate, func(rows db.Rows) error {
		var id sql.NullInt64
		var name sql.NullString
		var total, num int64
		if err := rows.Scan(&id, &total, &num, &name); err != nil {
			return err
		}
		categoryTotal += total
		// Kernels with only a demangled name cannot be queried by short name, but their time is
		// still part of the category.
		if !id.Valid {
			return nil
		}
		key := strconv.FormatInt(id.Int64, 10)
		if !name.Valid {
			name.String = key
		}
		entities = append(entities, &report.Entity{
			Key:       key,
			Name:      name.String,
			TimeTotal: total,
			Instance:  num,
		})
		return nil
	})
	if err != nil {
		return nil, wrap(report.Kernel, "enumerate", err)
	}
	setTimePercentOf(entities, categoryTotal)
	return entities, nil
}

func (Kernel) FetchRaw(ctx context.Context, conn db.Conn, key string) ([]Record, error) {
	id, err := strconv.ParseInt(key, 10, 64)
	if err != nil {
		return nil, wrap(report.Kernel, "fetch", err)
	}
	records := make([]Record, 0)
	err = queryRows(ctx, conn, kernelRaw, func(rows db.Rows) error {
		var duration int64
		var overhead, slack sql.NullInt64
		if err := rows.Scan(&duration, &overhead, &slack); err != nil {
			return err
		}
		r := Record{Duration: duration}
		if overhead.Valid {
			r.Overhead = &overhead.Int64
		}
		if slack.Valid {
			r.Slack = &slack.Int64
		}
		records = append(records, r)
		return nil
	}, id)
	if err != nil {
		return nil, wrap(report.Kernel, "fetch", err)
	}
	return records, nil
}

// Only positive values are samples.  Overhead and slack are all-or-nothing: if any launch lacks a
// runtime record, the entity has neither.

func (Kernel) Derive(records []Record) *Derived {
	var durations, overheads, slacks []float64
	paired := true
	for _, r := range records {
		if r.Duration > 0 {
			durations = append(durations, float64(r.Duration))
		}
		if r.Overhead == nil || r.Slack == nil {
			paired = false
			continue
		}
		if *r.Overhead > 0 {
			overheads = append(overheads, float64(*r.Overhead))
		}
		if *r.Slack > 0 {
			slacks = append(slacks, float64(*r.Slack))
		}
	}
	opts := stats.Options{Bins: stats.DefaultBins, Scale: units.TIME}
	d := &Derived{
		Metrics: map[string]*stats.Block{
			report.ExecutionDuration: block(durations, opts),
			report.LaunchOverhead:    nil,
			report.Slack:             nil,
		},
	}
	if paired {
		d.Metrics[report.LaunchOverhead] = block(overheads, opts)
		d.Metrics[report.Slack] = block(slacks, opts)
	}
	return d
}
