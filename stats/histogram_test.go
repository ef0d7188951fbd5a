package stats

import (
	"math"
	"math/rand"
	"slices"
	"testing"

	"navstat/units"
)

func checkDistribution(t *testing.T, d *Distribution, n int) {
	t.Helper()
	if d == nil {
		t.Fatal("Expected a distribution")
	}
	if err := d.Validate(); err != nil {
		t.Fatal(err)
	}
	if d.Total() != n {
		t.Fatalf("Expected %d samples counted, got %d (edges %v counts %v)", n, d.Total(), d.Edges, d.Counts)
	}
}

func TestHistogramDegenerate(t *testing.T) {
	if BuildHistogram([]float64{5}, DefaultOptions) != nil {
		t.Fatal("Expected nil for one sample")
	}
	if BuildHistogram(nil, DefaultOptions) != nil {
		t.Fatal("Expected nil for no samples")
	}
	d := BuildHistogram([]float64{7, 7, 7}, DefaultOptions)
	checkDistribution(t, d, 3)
	if len(d.Counts) != 1 || d.Centers[0] != 7 || d.Widths[0] != 0 || d.Labels[0] != "7.0" {
		t.Fatalf("Bad single bin %+v", d)
	}
}

func TestHistogramQuantile(t *testing.T) {
	xs := make([]float64, 0, 100)
	for i := 1; i <= 100; i++ {
		xs = append(xs, float64(i))
	}
	d := BuildHistogram(xs, DefaultOptions)
	checkDistribution(t, d, 100)
	if len(d.Counts) != 10 {
		t.Fatalf("Expected 10 bins, got %d", len(d.Counts))
	}
	if d.Edges[0] != 1 || d.Edges[10] != 100 {
		t.Fatalf("Edges must span the data, got %v", d.Edges)
	}
	// Last bin is closed
	if d.Bin(100) != 9 || d.Bin(0.5) != -1 {
		t.Fatal("Bad bin lookup")
	}
}

func TestHistogramDuplicateEdges(t *testing.T) {
	xs := []float64{1, 1, 1, 1, 1, 1, 1, 1, 2, 3}
	d := BuildHistogram(xs, DefaultOptions)
	checkDistribution(t, d, len(xs))
	if len(d.Counts) >= 10 {
		t.Fatalf("Expected duplicate edges to be merged, got %v", d.Edges)
	}
}

func TestHistogramPowerOfTwo(t *testing.T) {
	opts := Options{Bins: 10, PowerOfTwo: true, Scale: units.DATA}
	rng := rand.New(rand.NewSource(42))
	for round := 0; round < 50; round++ {
		n := 2 + rng.Intn(200)
		xs := make([]float64, n)
		for i := range xs {
			xs[i] = math.Floor(math.Exp2(rng.Float64()*24)) + 1
		}
		d := BuildHistogram(xs, opts)
		checkDistribution(t, d, n)
		for _, e := range d.Edges {
			if !IsPowerOfTwo(e) {
				t.Fatalf("Edge %v is not a power of two (edges %v)", e, d.Edges)
			}
		}
	}
	d := BuildHistogram([]float64{3, 3.1}, opts)
	checkDistribution(t, d, 2)
	if d.Edges[0] != 2 || d.Edges[1] != 4 {
		t.Fatalf("Expected [2 4], got %v", d.Edges)
	}
}

func TestHistogramExpansion(t *testing.T) {
	// Quantile edges all snap to 1024 or 2048 except the extremes, leaving few bins.
	xs := []float64{8, 1000, 1010, 1020, 1030, 1040, 1050, 1060, 1070, 1500, 1600, 65536}
	d := BuildHistogram(xs, Options{Bins: 10, PowerOfTwo: true, Scale: units.DATA})
	checkDistribution(t, d, len(xs))
	snapped := unique(snapAll(quantileEdges(xs, 10)))
	if len(d.Edges) <= len(snapped) {
		t.Fatalf("Expected expansion beyond %v, got %v", snapped, d.Edges)
	}
	for _, e := range d.Edges {
		if !IsPowerOfTwo(e) {
			t.Fatalf("Edge %v is not a power of two", e)
		}
	}

	// A split at 4 would leave [4,8) empty, since 8 belongs to the last bin.
	xs = []float64{1, 1, 1, 1, 2, 3, 8, 12, 16}
	d = BuildHistogram(xs, Options{Bins: 10, PowerOfTwo: true, Scale: units.DATA})
	checkDistribution(t, d, len(xs))
	for i, c := range d.Counts {
		if c == 0 {
			t.Fatalf("Empty bin %d in %v (edges %v)", i, d.Counts, d.Edges)
		}
	}
}

func TestSplitsMembers(t *testing.T) {
	members := []float64{2, 3}
	if splitsMembers(members, 4) || splitsMembers(members, 2) {
		t.Fatal("Split must leave samples on both sides")
	}
	if !splitsMembers(members, 2.5) {
		t.Fatal("Expected split at 2.5")
	}
	edges := expandPowerOfTwoBins([]float64{2, 3, 8, 12, 16}, []float64{2, 8, 16})
	if !slices.Equal(edges, []float64{2, 8, 16}) {
		t.Fatalf("Expected no split, got %v", edges)
	}
}

func TestHistogramFixedWidth(t *testing.T) {
	d := BuildHistogram([]float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, Options{Bins: 5, FixedWidth: true})
	checkDistribution(t, d, 11)
	if len(d.Counts) != 5 || d.Widths[0] != 2 {
		t.Fatalf("Bad fixed-width bins %+v", d)
	}
	if d.Counts[4] != 3 {
		t.Fatalf("Expected closed last bin with 3 samples, got %v", d.Counts)
	}
}

func TestPairByBucket(t *testing.T) {
	d := BuildHistogram([]float64{1, 2, 3, 4}, Options{Bins: 2})
	pd := PairByBucket(d, [][2]float64{{1, 10}, {4, 40}, {3, 30}, {99, 1}})
	if len(pd.Buckets) != 2 || len(pd.Buckets[0]) != 1 || len(pd.Buckets[1]) != 2 {
		t.Fatalf("Bad buckets %v (edges %v)", pd.Buckets, d.Edges)
	}
	if len(pd.Raw) != 4 {
		t.Fatal("Raw pairs must be kept")
	}
	if PairByBucket(nil, nil) != nil {
		t.Fatal("Expected nil")
	}
}
