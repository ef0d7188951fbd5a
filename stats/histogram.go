package stats

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sort"

	"navstat/units"
)

///////////////////////////////////////////////////////////////////////////////////////////////////
//
// Adaptive histograms.
//
// The default binning places Bins+1 edges at evenly spaced quantiles of the data and drops
// duplicate edges, so that heavily skewed trace data still spreads over several bins.  With
// PowerOfTwo, every edge is snapped to the nearest power of two (used for transfer sizes, which
// cluster on such values); if snapping collapses the edges to fewer than Bins/2 while the data have
// more than Bins/2 distinct values, each bin is split once at the power of two closest to the value
// that best halves its membership, provided neither half is left empty.  Bins are half-open except the last, which is closed.
//
// When the edges collapse to a single value the result is one bin holding every sample.

type Options struct {
	Bins       int
	PowerOfTwo bool
	FixedWidth bool
	Scale      units.Scale
}

const DefaultBins = 10

var DefaultOptions = Options{Bins: DefaultBins}

// MT: Immutable once constructed.

type Distribution struct {
	Edges   []float64 `json:"Bin Edges"`
	Centers []float64 `json:"Bin Centers"`
	Counts  []int     `json:"Histogram"`
	Widths  []float64 `json:"Bin Width"`
	Labels  []string  `json:"Bin Labels"`
}

// BuildHistogram returns nil if there are fewer than two samples.

func BuildHistogram(samples []float64, opts Options) *Distribution {
	if len(samples) < 2 {
		return nil
	}
	bins := opts.Bins
	if bins < 1 {
		bins = DefaultBins
	}
	sorted := slices.Clone(samples)
	slices.Sort(sorted)

	var edges []float64
	if opts.FixedWidth {
		edges = fixedEdges(sorted, bins)
		if opts.PowerOfTwo {
			edges = unique(snapAll(edges))
		}
	} else {
		edges = quantileEdges(sorted, bins)
		if opts.PowerOfTwo {
			edges = unique(snapAll(edges))
			if len(edges) > 1 && 2*len(edges) < bins && bins < 2*distinct(sorted) {
				edges = expandPowerOfTwoBins(sorted, edges)
			}
		} else {
			edges = unique(edges)
		}
	}
	if len(edges) < 2 {
		return singleBin(sorted, opts)
	}
	if opts.PowerOfTwo {
		coverPowerOfTwo(edges, sorted)
	}
	return newDistribution(edges, histogram(sorted, edges), opts.Scale)
}

func newDistribution(edges []float64, counts []int, scale units.Scale) *Distribution {
	n := len(edges) - 1
	d := &Distribution{
		Edges:   edges,
		Centers: make([]float64, n),
		Counts:  counts,
		Widths:  make([]float64, n),
		Labels:  make([]string, n),
	}
	for i := 0; i < n; i++ {
		d.Centers[i] = (edges[i] + edges[i+1]) / 2
		d.Widths[i] = edges[i+1] - edges[i]
		d.Labels[i] = units.RangeLabel(scale, edges[i], edges[i+1])
	}
	return d
}

// The single bin spans the data (or the enclosing powers of two).  If all samples are equal the
// upper edge is the next representable value above them, the width is zero and the label names
// the value.

func singleBin(sorted []float64, opts Options) *Distribution {
	n := len(sorted)
	lo, hi := sorted[0], sorted[n-1]
	first, last := lo, hi
	if opts.PowerOfTwo && lo > 0 {
		first, last = floorPow2(lo), ceilPow2(hi)
		if last <= first {
			last = 2 * first
		}
	} else if first == last {
		last = math.Nextafter(first, math.Inf(1))
	}
	d := &Distribution{
		Edges:   []float64{first, last},
		Centers: []float64{(first + last) / 2},
		Counts:  []int{n},
		Widths:  []float64{hi - lo},
		Labels:  []string{units.RangeLabel(opts.Scale, first, last)},
	}
	if lo == hi {
		d.Centers[0] = lo
		d.Labels[0] = units.Label(opts.Scale, lo)
	}
	return d
}

// Bin returns the index of the bin holding v, or -1 if v is outside the histogram.

func (d *Distribution) Bin(v float64) int {
	return binIndex(d.Edges, v)
}

func (d *Distribution) Total() int {
	t := 0
	for _, c := range d.Counts {
		t += c
	}
	return t
}

func (d *Distribution) Validate() error {
	n := len(d.Edges) - 1
	if n < 1 {
		return errors.New("Distribution needs at least two edges")
	}
	if len(d.Centers) != n || len(d.Counts) != n || len(d.Labels) != n || len(d.Widths) != n {
		return fmt.Errorf(
			"Distribution shape mismatch: %d bins, %d centers, %d counts, %d widths, %d labels",
			n, len(d.Centers), len(d.Counts), len(d.Widths), len(d.Labels))
	}
	for i := 0; i < n; i++ {
		if !(d.Edges[i] < d.Edges[i+1]) {
			return fmt.Errorf("Distribution edges not increasing at %d", i)
		}
	}
	return nil
}

func binIndex(edges []float64, v float64) int {
	n := len(edges)
	if n < 2 || v < edges[0] || v > edges[n-1] {
		return -1
	}
	if v == edges[n-1] {
		return n - 2
	}
	return sort.Search(n, func(i int) bool { return edges[i] > v }) - 1
}

func histogram(sorted, edges []float64) []int {
	counts := make([]int, len(edges)-1)
	for _, v := range sorted {
		if i := binIndex(edges, v); i >= 0 {
			counts[i]++
		}
	}
	return counts
}

func quantileEdges(sorted []float64, bins int) []float64 {
	edges := make([]float64, bins+1)
	step := 1 / float64(bins)
	for i := range edges {
		q := float64(i) * step
		if i == bins {
			q = 1
		}
		edges[i] = Quantile(sorted, q)
	}
	return edges
}

func fixedEdges(sorted []float64, bins int) []float64 {
	lo, hi := sorted[0], sorted[len(sorted)-1]
	if lo == hi {
		lo, hi = lo-0.5, hi+0.5
	}
	edges := make([]float64, bins+1)
	step := (hi - lo) / float64(bins)
	for i := range edges {
		edges[i] = lo + float64(i)*step
	}
	edges[bins] = hi
	return edges
}

func unique(xs []float64) []float64 {
	ys := slices.Clone(xs)
	slices.Sort(ys)
	return slices.Compact(ys)
}

func distinct(sorted []float64) int {
	n := 0
	for i, x := range sorted {
		if i == 0 || x != sorted[i-1] {
			n++
		}
	}
	return n
}

///////////////////////////////////////////////////////////////////////////////////////////////////
//
// Powers of two.  Non-positive values snap to zero, which is then the only edge that is not a power
// of two.

func snapPow2(x float64) float64 {
	if x <= 0 || math.IsNaN(x) {
		return 0
	}
	return math.Ldexp(1, int(math.RoundToEven(math.Log2(x))))
}

func floorPow2(x float64) float64 {
	if x <= 0 {
		return 0
	}
	_, exp := math.Frexp(x)
	return math.Ldexp(1, exp-1)
}

func ceilPow2(x float64) float64 {
	if x <= 0 {
		return 0
	}
	frac, exp := math.Frexp(x)
	if frac == 0.5 {
		return x
	}
	return math.Ldexp(1, exp)
}

func IsPowerOfTwo(x float64) bool {
	if x <= 0 || math.IsInf(x, 0) || math.IsNaN(x) {
		return false
	}
	frac, _ := math.Frexp(x)
	return frac == 0.5
}

func snapAll(edges []float64) []float64 {
	ys := make([]float64, len(edges))
	for i, e := range edges {
		ys[i] = snapPow2(e)
	}
	return ys
}

// Snapping can move the outer edges inside the data range; widen them to the enclosing powers of
// two so that every sample is counted.
func coverPowerOfTwo(edges, sorted []float64) {
	n := len(edges)
	if lo := sorted[0]; edges[0] > lo {
		if lo > 0 {
			edges[0] = floorPow2(lo)
		} else {
			edges[0] = lo
		}
	}
	if hi := sorted[len(sorted)-1]; edges[n-1] < hi {
		edges[n-1] = ceilPow2(hi)
	}
}

// Split every bin once.  The split candidate is the first value above the sample at the membership
// midpoint, snapped to a power of two (nearest, then below, then above).  A candidate is used only
// if it leaves samples on both sides of it; bins are half-open except the last, so a sample equal to
// the upper edge belongs to the next bin.  Empty bins and bins that cannot be split stay as they are.
func expandPowerOfTwoBins(sorted, edges []float64) []float64 {
	last := len(edges) - 2
	out := make([]float64, 0, 2*len(edges))
	for i := 0; i+1 < len(edges); i++ {
		lo, hi := edges[i], edges[i+1]
		out = append(out, lo)
		left := sort.SearchFloat64s(sorted, lo)
		right := sort.SearchFloat64s(sorted, hi)
		if i == last {
			right = sort.Search(len(sorted), func(j int) bool { return sorted[j] > hi })
		}
		if right-left < 2 {
			continue
		}
		members := sorted[left:right]
		idx := max(len(members)/2-1, 0)
		base := members[idx]
		idx++
		for idx < len(members) && members[idx] == base {
			idx++
		}
		if idx == len(members) {
			continue
		}
		v := members[idx]
		for _, c := range []float64{snapPow2(v), floorPow2(v), ceilPow2(v)} {
			if c > lo && c < hi && splitsMembers(members, c) {
				out = append(out, c)
				break
			}
		}
	}
	out = append(out, edges[len(edges)-1])
	return unique(out)
}

// True if some but not all of the sorted members are below c.
func splitsMembers(members []float64, c float64) bool {
	k := sort.SearchFloat64s(members, c)
	return k > 0 && k < len(members)
}

///////////////////////////////////////////////////////////////////////////////////////////////////
//
// Paired distributions: a second quantity bucketed by the bins of a first one, e.g. transfer
// bandwidth grouped by the transfer-size bins.

type PairedDistribution struct {
	Edges   []float64    `json:"Bin Edges"`
	Centers []float64    `json:"Bin Centers"`
	Buckets [][]float64  `json:"Histogram"`
	Widths  []float64    `json:"Bin Width"`
	Labels  []string     `json:"Bin Labels"`
	Raw     [][2]float64 `json:"Raw Data"`
}

// PairByBucket assigns each (key, value) pair to the bin of `d` that holds key.  Pairs whose key
// falls outside `d` are kept in Raw but not bucketed.  Returns nil if d is nil.

func PairByBucket(d *Distribution, pairs [][2]float64) *PairedDistribution {
	if d == nil {
		return nil
	}
	pd := &PairedDistribution{
		Edges:   d.Edges,
		Centers: d.Centers,
		Buckets: make([][]float64, len(d.Counts)),
		Widths:  d.Widths,
		Labels:  d.Labels,
		Raw:     pairs,
	}
	for i := range pd.Buckets {
		pd.Buckets[i] = []float64{}
	}
	for _, p := range pairs {
		if i := d.Bin(p[0]); i >= 0 {
			pd.Buckets[i] = append(pd.Buckets[i], p[1])
		}
	}
	return pd
}
