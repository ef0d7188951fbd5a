package extract

import (
	"context"
	"fmt"
	"strings"

	"navstat/db"
	"navstat/report"
	"navstat/stats"
	"navstat/units"
)

// CUPTI copy kinds by number.  Anything else is Unknown.
var copyKinds = []string{
	"Unknown",
	"Host-to-Device",
	"Device-to-Host",
	"Host-to-Array",
	"Array-to-Host",
	"Array-to-Array",
	"Array-to-Device",
	"Device-to-Array",
	"Device-to-Device",
	"Host-to-Host",
	"Peer-to-Peer",
	"Unified Host-to-Device",
	"Unified Device-to-Host",
	"Unified Device-to-Device",
}

const Memset = "Memset"

// Trace durations are microseconds, whatever the export says.
const toSeconds = 1e-6

var memops = func() string {
	var b strings.Builder
	b.WriteString(`
WITH
    memops AS (
        SELECT
            CASE`)
	for i, name := range copyKinds {
		fmt.Fprintf(&b, "\n                WHEN mcpy.\"copyKind\" = %d THEN '%s'", i, name)
	}
	b.WriteString(`
                ELSE 'Unknown'
            END AS name,
            mcpy."end" - mcpy."start" AS duration,
            mcpy.bytes AS size
        FROM
            "CUPTI_ACTIVITY_KIND_MEMCPY" AS mcpy
        UNION ALL
        SELECT
            '` + Memset + `' AS name,
            "end" - "start" AS duration,
            bytes AS size
        FROM
            "CUPTI_ACTIVITY_KIND_MEMSET"
    )
`)
	return b.String()
}()

var transferEnumerate = memops + `
SELECT
    name,
    CAST(sum(duration) AS BIGINT),
    CAST(sum(size) AS BIGINT),
    count(*)
FROM
    memops
GROUP BY name
`

var transferRaw = memops + `
SELECT
    duration,
    size
FROM
    memops
WHERE
    name = ?
`

type Transfer struct{}

func (Transfer) Kind() report.Kind {
	return report.Transfer
}

func (Transfer) RequiredTables() []string {
	return []string{"CUPTI_ACTIVITY_KIND_MEMCPY", "CUPTI_ACTIVITY_KIND_MEMSET"}
}

func (Transfer) Enumerate(ctx context.Context, conn db.Conn) ([]*report.Entity, error) {
	entities := make([]*report.Entity, 0)
	err := queryRows(ctx, conn, transferEnumerate, func(rows db.Rows) error {
		var name string
		var total, memory, num int64
		if err := rows.Scan(&name, &total, &memory, &num); err != nil {
			return err
		}
		entities = append(entities, &report.Entity{
			Key:         name,
			Name:        name,
			TimeTotal:   total,
			Instance:    num,
			MemoryTotal: &memory,
		})
		return nil
	})
	if err != nil {
		return nil, wrap(report.Transfer, "enumerate", err)
	}
	setTimePercent(entities)
	return entities, nil
}

func (Transfer) FetchRaw(ctx context.Context, conn db.Conn, key string) ([]Record, error) {
	records := make([]Record, 0)
	err := queryRows(ctx, conn, transferRaw, func(rows db.Rows) error {
		var r Record
		if err := rows.Scan(&r.Duration, &r.Size); err != nil {
			return err
		}
		records = append(records, r)
		return nil
	}, key)
	if err != nil {
		return nil, wrap(report.Transfer, "fetch", err)
	}
	return records, nil
}

// Sizes get power-of-two bins with byte labels, and the bandwidth of each transfer is bucketed by
// the size bin of the transfer.  Zero-duration transfers have no bandwidth.

func (Transfer) Derive(records []Record) *Derived {
	sizes := make([]float64, 0, len(records))
	durations := make([]float64, 0, len(records))
	bandwidth := make([][2]float64, 0, len(records))
	for _, r := range records {
		sizes = append(sizes, float64(r.Size))
		durations = append(durations, float64(r.Duration))
		if r.Duration > 0 {
			bandwidth = append(bandwidth, [2]float64{float64(r.Size), Bandwidth(r.Size, r.Duration)})
		}
	}
	sizeBlock := block(sizes, SizeOptions)
	d := &Derived{
		Metrics: map[string]*stats.Block{
			report.TransferSize:      sizeBlock,
			report.TransferDurations: block(durations, stats.Options{Bins: stats.DefaultBins, Scale: units.TIME}),
		},
	}
	if sizeBlock != nil {
		d.Bandwidth = stats.PairByBucket(sizeBlock.Distribution, bandwidth)
	}
	return d
}

var SizeOptions = stats.Options{Bins: stats.DefaultBins, PowerOfTwo: true, Scale: units.DATA}

// Bandwidth in bytes per second.

func Bandwidth(size, duration int64) float64 {
	return float64(size) / (float64(duration) * toSeconds)
}
