package stats

import (
	"math"
	"slices"
	"testing"
)

func TestComputeStatistics(t *testing.T) {
	if ComputeStatistics(nil, true) != nil {
		t.Fatal("Expected nil block for empty input")
	}
	b := ComputeStatistics([]float64{4, 1, 3, 2}, true)
	if b.Mean != 2.5 || b.Median != 2.5 || b.Min != 1 || b.Max != 4 {
		t.Fatalf("Bad block %+v", b)
	}
	if b.Std != Round(math.Sqrt(1.25)) {
		t.Fatalf("Expected population std, got %v", b.Std)
	}
	if !slices.Equal(b.Raw, []float64{4, 1, 3, 2}) {
		t.Fatalf("Raw data must keep input order, got %v", b.Raw)
	}
	if ComputeStatistics([]float64{1, 2}, false).Raw != nil {
		t.Fatal("Raw data should be suppressed")
	}
}

func TestStatisticsBounds(t *testing.T) {
	sets := [][]float64{
		{5},
		{1, 1, 1},
		{0.1, 0.2, 0.3},
		{1e9, 3, 7, 7, 2.5, 1e-7},
		{-4, 8, 0, 3.3333333333},
	}
	for _, s := range sets {
		b := ComputeStatistics(s, false)
		if !(b.Min <= b.Median && b.Median <= b.Max) {
			t.Fatalf("Median out of range for %v: %+v", s, b)
		}
		if !(b.Min <= b.Mean && b.Mean <= b.Max) {
			t.Fatalf("Mean out of range for %v: %+v", s, b)
		}
		again := ComputeStatistics([]float64{b.Mean, b.Median, b.Std}, true)
		if again.Raw[0] != b.Mean || again.Raw[1] != b.Median || again.Raw[2] != b.Std {
			t.Fatalf("Rounding not idempotent for %v", s)
		}
	}
}

func TestRound(t *testing.T) {
	if Round(1.23456789) != 1.234568 {
		t.Fatalf("Expected 1.234568, got %v", Round(1.23456789))
	}
	if Round(Round(2.0000005)) != Round(2.0000005) {
		t.Fatal("Round not idempotent")
	}
	if RoundTo(2.5, 0) != 2 || RoundTo(3.5, 0) != 4 {
		t.Fatal("Expected ties to even")
	}
}

func TestQuantile(t *testing.T) {
	xs := []float64{1, 2, 3, 4}
	if Quantile(xs, 0) != 1 || Quantile(xs, 1) != 4 {
		t.Fatal("Bad quantile extremes")
	}
	if Quantile(xs, 0.25) != 1.75 || Quantile(xs, 0.75) != 3.25 {
		t.Fatalf("Bad quartiles %v %v", Quantile(xs, 0.25), Quantile(xs, 0.75))
	}
}

func TestRemoveOutliers(t *testing.T) {
	got := RemoveOutliers([]float64{1, 2, 2, 3, 100})
	if !slices.Equal(got, []float64{1, 2, 2, 3}) {
		t.Fatalf("Expected [1 2 2 3], got %v", got)
	}
	got = RemoveOutliers([]float64{3, 1, 2})
	if !slices.Equal(got, []float64{3, 1, 2}) {
		t.Fatalf("Expected input order to be kept, got %v", got)
	}
	if RemoveOutliers(nil) != nil {
		t.Fatal("Expected nil")
	}
}

func TestRemoveOutlierTriples(t *testing.T) {
	in := []Triple{{1, 1, 2}, {2, 2, 2}, {1, 2, 1}, {2, 1, 1000}}
	got := RemoveOutlierTriples(in)
	if len(got) != 3 || got[2] != (Triple{1, 2, 1}) {
		t.Fatalf("Expected the triple with the extreme count to go, got %v", got)
	}
}
