// Category-wide rollups.  For one metric, the raw samples of every entity of a category are pooled
// into one block (raw data not kept) with a default quantile histogram, and each entity's
// (mean, median, instance count) triple goes into the block's cluster dataset.

package rollup

import (
	"context"
	"slices"
	"strings"

	"navstat/engine"
	"navstat/report"
	"navstat/stats"

	. "navstat/common"
)

type Options struct {
	// Remove outliers from the cluster dataset (never from the pooled samples)
	RemoveOutliers bool

	// Binning of the pooled transfer sizes for the category bandwidth distribution
	SizeOptions stats.Options
}

func sortedByKey(entities []*report.Entity) []*report.Entity {
	es := slices.Clone(entities)
	slices.SortFunc(es, func(a, b *report.Entity) int {
		return strings.Compare(a.Key, b.Key)
	})
	return es
}

// Metric pools one metric over the entities.  Returns nil if no entity has samples.  An entity is
// in the cluster dataset only if its mean, median and instance count are all non-zero.

func Metric(metric string, entities []*report.Entity, opts Options) *stats.Block {
	var pooled []float64
	var cluster []stats.Triple
	for _, e := range sortedByKey(entities) {
		b := e.Block(metric)
		if b == nil {
			continue
		}
		pooled = append(pooled, b.Raw...)
		if b.Mean != 0 && b.Median != 0 && e.Instance != 0 {
			cluster = append(cluster, stats.Triple{b.Mean, b.Median, float64(e.Instance)})
		}
	}
	if opts.RemoveOutliers && len(cluster) > 0 {
		cluster = stats.RemoveOutlierTriples(cluster)
	}
	b := stats.ComputeStatistics(pooled, false)
	if b == nil {
		return nil
	}
	b.Distribution = stats.BuildHistogram(pooled, stats.DefaultOptions)
	if len(cluster) > 0 {
		b.Cluster = &stats.Cluster{Raw: cluster}
	}
	return b
}

// Bandwidth pools the (size, bandwidth) pairs of all entities and buckets them by a histogram of
// the pooled transfer sizes.

func Bandwidth(entities []*report.Entity, opts Options) *stats.PairedDistribution {
	var sizes []float64
	var pairs [][2]float64
	for _, e := range sortedByKey(entities) {
		if b := e.Block(report.TransferSize); b != nil {
			sizes = append(sizes, b.Raw...)
		}
		if e.Bandwidth != nil {
			pairs = append(pairs, e.Bandwidth.Raw...)
		}
	}
	return stats.PairByBucket(stats.BuildHistogram(sizes, opts.SizeOptions), pairs)
}

// Category computes all rollups of the category, one task per metric on the pool, and stores them
// in c.Rollups (and c.Bandwidth for transfers).  Entities with no metrics (failed extraction) do
// not contribute.

func Category(ctx context.Context, pool *engine.Pool, c *report.Category, opts Options) error {
	entities := make([]*report.Entity, 0, len(c.Entities))
	for _, e := range c.Entities {
		if e.Metrics != nil {
			entities = append(entities, e)
		}
	}
	var tasks []engine.Task[string, *stats.Block]
	for _, m := range c.Kind.Metrics() {
		tasks = append(tasks, engine.Task[string, *stats.Block]{
			Key: m,
			Run: func(context.Context) (*stats.Block, error) {
				return Metric(m, entities, opts), nil
			},
		})
	}
	blocks, err := engine.Run(ctx, pool, c.Kind.String()+" rollups", tasks)
	for m, b := range blocks {
		if b != nil {
			c.Rollups[m] = b
		}
	}
	if c.Kind == report.Transfer {
		c.Bandwidth = Bandwidth(entities, opts)
	}
	if err != nil {
		Log.Errorf("Rollup failed for %s: %v", c.Kind, err)
	}
	return err
}
