// Cross-trace comparison.  Everything here is trace-vs-trace: results are always per trace label,
// in the order of the collection, and samples from different traces are never merged.

package compare

import (
	"cmp"
	"slices"

	"navstat/report"
	"navstat/stats"
)

type Shared struct {
	Identity string
	Labels   []string
}

// SharedEntities returns the entities of the category found in two or more traces, by identity
// (display name for kernels, key otherwise), sorted by identity.

func SharedEntities(c *report.Collection, kind report.Kind) []Shared {
	labels := make(map[string][]string)
	for _, label := range c.Labels {
		cat := c.Get(label).Category(kind)
		if cat == nil {
			continue
		}
		seen := make(map[string]bool)
		for _, e := range cat.Entities {
			id := e.Identity(kind)
			if !seen[id] {
				seen[id] = true
				labels[id] = append(labels[id], label)
			}
		}
	}
	shared := make([]Shared, 0)
	for id, ls := range labels {
		if len(ls) >= 2 {
			shared = append(shared, Shared{Identity: id, Labels: ls})
		}
	}
	slices.SortFunc(shared, func(a, b Shared) int {
		return cmp.Compare(a.Identity, b.Identity)
	})
	return shared
}

func find(cat *report.Category, kind report.Kind, identity string) *report.Entity {
	if cat == nil {
		return nil
	}
	if kind != report.Kernel {
		return cat.Entities[identity]
	}
	// Kernel keys are per-trace string ids.  Several ids can share a name, take the busiest.
	var found *report.Entity
	for _, e := range cat.SortedEntities() {
		if e.Name == identity {
			found = e
			break
		}
	}
	return found
}

type Side struct {
	Label  string
	Entity *report.Entity
	Block  *stats.Block
}

// CompareEntity returns, for every trace that has the entity, the entity and its block for the
// metric (which may be nil).

func CompareEntity(c *report.Collection, kind report.Kind, identity, metric string) []Side {
	sides := make([]Side, 0)
	for _, label := range c.Labels {
		if e := find(c.Get(label).Category(kind), kind, identity); e != nil {
			sides = append(sides, Side{label, e, e.Block(metric)})
		}
	}
	return sides
}

type Pooled struct {
	Label   string
	Samples []float64
	Block   *stats.Block
}

// PoolCategory pools each trace's raw samples of the metric over all its entities of the category,
// separately per trace, with statistics over each pool.  Traces without samples are omitted.

func PoolCategory(c *report.Collection, kind report.Kind, metric string) []Pooled {
	pools := make([]Pooled, 0)
	for _, label := range c.Labels {
		cat := c.Get(label).Category(kind)
		if cat == nil {
			continue
		}
		es := cat.SortedEntities()
		slices.SortFunc(es, func(a, b *report.Entity) int {
			return cmp.Compare(a.Key, b.Key)
		})
		var samples []float64
		for _, e := range es {
			if b := e.Block(metric); b != nil {
				samples = append(samples, b.Raw...)
			}
		}
		if len(samples) > 0 {
			pools = append(pools, Pooled{label, samples, stats.ComputeStatistics(samples, false)})
		}
	}
	return pools
}

///////////////////////////////////////////////////////////////////////////////////////////////////
//
// Transfer bandwidth.  Bandwidth is not a metric block but (size, bandwidth) pairs, so it has its
// own comparisons; Block holds statistics over the bandwidth values.

// Metrics are the metrics of the kind that can be compared across traces.

func Metrics(kind report.Kind) []string {
	ms := kind.Metrics()
	if kind == report.Transfer {
		ms = append(slices.Clone(ms), report.BandwidthDistribution)
	}
	return ms
}

type BandwidthSide struct {
	Label     string
	Entity    *report.Entity
	Bandwidth *stats.PairedDistribution
	Block     *stats.Block
}

// CompareBandwidth returns, for every trace that has the transfer entity, the entity with its
// bandwidth distribution (which may be nil).

func CompareBandwidth(c *report.Collection, identity string) []BandwidthSide {
	sides := make([]BandwidthSide, 0)
	for _, label := range c.Labels {
		e := find(c.Get(label).Category(report.Transfer), report.Transfer, identity)
		if e == nil {
			continue
		}
		side := BandwidthSide{Label: label, Entity: e, Bandwidth: e.Bandwidth}
		if e.Bandwidth != nil {
			side.Block = bandwidthStatistics(e.Bandwidth.Raw)
		}
		sides = append(sides, side)
	}
	return sides
}

type PooledBandwidth struct {
	Label        string
	Pairs        [][2]float64
	Block        *stats.Block
	Distribution *stats.PairedDistribution
}

// PoolBandwidth pools each trace's (size, bandwidth) pairs over all its transfer entities,
// separately per trace.  Distribution is the trace's category rollup, if it has one.  Traces
// without pairs are omitted.

func PoolBandwidth(c *report.Collection) []PooledBandwidth {
	pools := make([]PooledBandwidth, 0)
	for _, label := range c.Labels {
		cat := c.Get(label).Category(report.Transfer)
		if cat == nil {
			continue
		}
		es := cat.SortedEntities()
		slices.SortFunc(es, func(a, b *report.Entity) int {
			return cmp.Compare(a.Key, b.Key)
		})
		var pairs [][2]float64
		for _, e := range es {
			if e.Bandwidth != nil {
				pairs = append(pairs, e.Bandwidth.Raw...)
			}
		}
		if len(pairs) > 0 {
			pools = append(pools, PooledBandwidth{label, pairs, bandwidthStatistics(pairs), cat.Bandwidth})
		}
	}
	return pools
}

func bandwidthStatistics(pairs [][2]float64) *stats.Block {
	bws := make([]float64, len(pairs))
	for i, p := range pairs {
		bws[i] = p[1]
	}
	return stats.ComputeStatistics(bws, false)
}

///////////////////////////////////////////////////////////////////////////////////////////////////

type Totals struct {
	Label             string
	TimeTotal         int64
	Instance          int64
	RelativeTimeTotal int64
	RelativePercent   float64
	TotalDuration     *int64
}

// CompareTotals gives the category totals of every trace that has the category.

func CompareTotals(c *report.Collection, kind report.Kind) []Totals {
	totals := make([]Totals, 0)
	for _, label := range c.Labels {
		tree := c.Get(label)
		cat := tree.Category(kind)
		if cat == nil {
			continue
		}
		totals = append(totals, Totals{
			Label:             label,
			TimeTotal:         cat.TimeTotal,
			Instance:          cat.Instance,
			RelativeTimeTotal: tree.RelativeTimeTotal,
			RelativePercent:   tree.RelativePercent(kind),
			TotalDuration:     tree.TotalDuration,
		})
	}
	return totals
}
