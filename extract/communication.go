package extract

import (
	"context"
	"database/sql"

	"navstat/db"
	"navstat/report"
	"navstat/stats"
	"navstat/units"
)

// NVTX ranges.  The tag of a range is `domain:value`, `domain:text`, `value` or `text`, whichever
// is available first; the domain of a range is the domain-create event (type 75) for its domain id
// in the same process (global thread id masked to the pid bits, 0x0000FFFFFF000000).  Event types
// 59, 60, 70, 71 are push/pop and start/end ranges.  A range that was never closed ends at the last
// timestamp of the trace.

const nvtx = `
WITH
    maxts AS (
        SELECT greatest(coalesce(max("start"), 0), coalesce(max("end"), 0)) AS m
        FROM "NVTX_EVENTS"
    ),
    domains AS (
        SELECT
            "domainId" AS id,
            "globalTid" AS gtid,
            text AS name
        FROM
            "NVTX_EVENTS"
        WHERE
            "eventType" = 75
        GROUP BY "domainId", "globalTid", text
    ),
    nvtx AS (
        SELECT
            coalesce(ne."end", (SELECT m FROM maxts)) - ne."start" AS duration,
            CASE
                WHEN d.name IS NOT NULL AND sid.value IS NOT NULL THEN d.name || ':' || sid.value
                WHEN d.name IS NOT NULL AND sid.value IS NULL THEN d.name || ':' || ne.text
                WHEN d.name IS NULL AND sid.value IS NOT NULL THEN sid.value
                ELSE ne.text
            END AS tag
        FROM
            "NVTX_EVENTS" AS ne
        LEFT OUTER JOIN
            domains AS d
            ON ne."domainId" = d.id
                AND (ne."globalTid" & 281474959933440) = (d.gtid & 281474959933440)
        LEFT OUTER JOIN
            "StringIds" AS sid
            ON ne."textId" = sid.id
        WHERE
            ne."eventType" IN (59, 60, 70, 71)
    )
`

const communicationEnumerate = nvtx + `
SELECT
    tag,
    CAST(sum(duration) AS BIGINT),
    count(*)
FROM
    nvtx
WHERE
    tag IS NOT NULL
GROUP BY tag
`

const communicationRaw = nvtx + `
SELECT
    duration
FROM
    nvtx
WHERE
    tag = ?
`

type Communication struct{}

func (Communication) Kind() report.Kind {
	return report.Communication
}

func (Communication) RequiredTables() []string {
	return []string{"NVTX_EVENTS", "StringIds"}
}

func (Communication) Enumerate(ctx context.Context, conn db.Conn) ([]*report.Entity, error) {
	entities := make([]*report.Entity, 0)
	err := queryRows(ctx, conn, communicationEnumerate, func(rows db.Rows) error {
		var tag string
		var total, num int64
		if err := rows.Scan(&tag, &total, &num); err != nil {
			return err
		}
		entities = append(entities, &report.Entity{
			Key:       tag,
			Name:      tag,
			TimeTotal: total,
			Instance:  num,
		})
		return nil
	})
	if err != nil {
		return nil, wrap(report.Communication, "enumerate", err)
	}
	setTimePercent(entities)
	return entities, nil
}

func (Communication) FetchRaw(ctx context.Context, conn db.Conn, key string) ([]Record, error) {
	records := make([]Record, 0)
	err := queryRows(ctx, conn, communicationRaw, func(rows db.Rows) error {
		var duration sql.NullInt64
		if err := rows.Scan(&duration); err != nil {
			return err
		}
		if duration.Valid {
			records = append(records, Record{Duration: duration.Int64})
		}
		return nil
	}, key)
	if err != nil {
		return nil, wrap(report.Communication, "fetch", err)
	}
	return records, nil
}

func (Communication) Derive(records []Record) *Derived {
	durations := make([]float64, 0, len(records))
	for _, r := range records {
		durations = append(durations, float64(r.Duration))
	}
	return &Derived{
		Metrics: map[string]*stats.Block{
			report.ExecutionDuration: block(durations, stats.Options{Bins: stats.DefaultBins, Scale: units.TIME}),
		},
	}
}
