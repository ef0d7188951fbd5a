package table

import (
	"fmt"

	"navstat/compare"
	"navstat/report"
	"navstat/stats"
)

// Builders for the standard tables of a report tree and of a comparison.  Times are in trace units
// (microseconds), sizes in bytes.

var statHeader = []string{"Mean", "Median", "Minimum", "Maximum", "Standard Deviation"}

func statCells(b *stats.Block) []any {
	if b == nil {
		return []any{nil, nil, nil, nil, nil}
	}
	return []any{b.Mean, b.Median, b.Min, b.Max, b.Std}
}

func withStats(header ...string) []string {
	return append(header, statHeader...)
}

// Overall has one row per category: its share of all category time, its time and its instances.

func Overall(tree *report.Tree) *Table {
	t := New("Overall Application Summary", "Name", "Total Relative Time (%)", "Total Time", "Instances")
	for _, k := range tree.Kinds() {
		c := tree.Category(k)
		t.Add(k.CategoryKey(), tree.RelativePercent(k), c.TimeTotal, c.Instance)
	}
	if tree.TotalDuration != nil {
		t.Add("Total Duration", nil, *tree.TotalDuration, nil)
	}
	return t
}

// General has one row per rollup metric of the category.

func General(tree *report.Tree, kind report.Kind) *Table {
	t := New(kind.CategoryKey()+": General", withStats("Metric")...)
	c := tree.Category(kind)
	if c == nil {
		return t
	}
	for _, m := range kind.Metrics() {
		if b := c.Rollups[m]; b != nil {
			t.Add(append([]any{m}, statCells(b)...)...)
		}
	}
	return t
}

// MetricSummary has one row per entity of the category, for one metric, busiest first.

func MetricSummary(tree *report.Tree, kind report.Kind, metric string) *Table {
	t := New(
		fmt.Sprintf("%s: %s", kind.CategoryKey(), metric),
		withStats(kind.NameKey(), "Total Time (%)", "Total Time", "Instances")...)
	c := tree.Category(kind)
	if c == nil {
		return t
	}
	for _, e := range c.SortedEntities() {
		row := []any{e.Name, e.TimePercent, e.TimeTotal, e.Instance}
		t.Add(append(row, statCells(e.Block(metric))...)...)
	}
	return t
}

// Individual has one row per metric of one entity.

func Individual(kind report.Kind, e *report.Entity) *Table {
	t := New(fmt.Sprintf("%s %s", kind, e.Name), withStats("Metric", "Instances")...)
	for _, m := range kind.Metrics() {
		t.Add(append([]any{m, e.Instance}, statCells(e.Block(m))...)...)
	}
	if e.MemoryTotal != nil {
		t.Add("Memory Total", *e.MemoryTotal, nil, nil, nil, nil, nil)
	}
	return t
}

///////////////////////////////////////////////////////////////////////////////////////////////////
//
// Comparisons.

func CombinedTotals(coll *report.Collection, kind report.Kind) *Table {
	t := New(
		kind.CategoryKey()+": Combined",
		"Label", "Total Time", "Instances", "Relative Time Total", "Total Relative Time (%)")
	for _, x := range compare.CompareTotals(coll, kind) {
		t.Add(x.Label, x.TimeTotal, x.Instance, x.RelativeTimeTotal, x.RelativePercent)
	}
	return t
}

func CombinedDuration(coll *report.Collection) *Table {
	t := New("Total Duration: Combined", "Label", "Total Duration", "Relative Time Total")
	for _, label := range coll.Labels {
		tree := coll.Get(label)
		t.Add(label, tree.TotalDuration, tree.RelativeTimeTotal)
	}
	return t
}

// CombinedMetric compares the category rollup of one metric across traces.

func CombinedMetric(coll *report.Collection, kind report.Kind, metric string) *Table {
	t := New(fmt.Sprintf("%s: %s: Combined", kind.CategoryKey(), metric), withStats("Label", "Samples")...)
	pools := make(map[string]compare.Pooled)
	for _, p := range compare.PoolCategory(coll, kind, metric) {
		pools[p.Label] = p
	}
	for _, label := range coll.Labels {
		c := coll.Get(label).Category(kind)
		if c == nil || c.Rollups[metric] == nil {
			continue
		}
		t.Add(append([]any{label, int64(len(pools[label].Samples))}, statCells(c.Rollups[metric])...)...)
	}
	return t
}

// CombinedEntity compares one shared entity across the traces that have it.

func CombinedEntity(coll *report.Collection, kind report.Kind, identity, metric string) *Table {
	t := New(
		fmt.Sprintf("%s: %s", identity, metric),
		withStats("Label", "Total Time (%)", "Total Time", "Instances")...)
	for _, s := range compare.CompareEntity(coll, kind, identity, metric) {
		row := []any{s.Label, s.Entity.TimePercent, s.Entity.TimeTotal, s.Entity.Instance}
		t.Add(append(row, statCells(s.Block)...)...)
	}
	return t
}

// CombinedBandwidth compares the transfer bandwidths of each trace, pooled over its transfers.

func CombinedBandwidth(coll *report.Collection) *Table {
	t := New(
		fmt.Sprintf("%s: %s: Combined", report.Transfer.CategoryKey(), report.BandwidthDistribution),
		withStats("Label", "Samples")...)
	for _, p := range compare.PoolBandwidth(coll) {
		t.Add(append([]any{p.Label, int64(len(p.Pairs))}, statCells(p.Block)...)...)
	}
	return t
}

// CombinedEntityBandwidth compares the bandwidths of one shared transfer across the traces that
// have it.

func CombinedEntityBandwidth(coll *report.Collection, identity string) *Table {
	t := New(
		fmt.Sprintf("%s: %s", identity, report.BandwidthDistribution),
		withStats("Label", "Total Time (%)", "Total Time", "Instances", "Samples")...)
	for _, s := range compare.CompareBandwidth(coll, identity) {
		var n int64
		if s.Bandwidth != nil {
			n = int64(len(s.Bandwidth.Raw))
		}
		row := []any{s.Label, s.Entity.TimePercent, s.Entity.TimeTotal, s.Entity.Instance, n}
		t.Add(append(row, statCells(s.Block)...)...)
	}
	return t
}
