package stats

import (
	"slices"
)

// Tukey fences over the quartiles of the input.

func fences(values []float64) (lo, hi float64) {
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	q1 := Quantile(sorted, 0.25)
	q3 := Quantile(sorted, 0.75)
	iqr := q3 - q1
	return q1 - 1.5*iqr, q3 + 1.5*iqr
}

// RemoveOutliers keeps x where Q1-1.5*IQR <= x <= Q3+1.5*IQR, in input order.

func RemoveOutliers(samples []float64) []float64 {
	if len(samples) == 0 {
		return nil
	}
	lo, hi := fences(samples)
	kept := make([]float64, 0, len(samples))
	for _, x := range samples {
		if x >= lo && x <= hi {
			kept = append(kept, x)
		}
	}
	return kept
}

// RemoveOutlierTriples computes one pair of fences over all components of all triples and keeps a
// triple only when every component is inside them.

func RemoveOutlierTriples(triples []Triple) []Triple {
	if len(triples) == 0 {
		return nil
	}
	flat := make([]float64, 0, 3*len(triples))
	for _, t := range triples {
		flat = append(flat, t[:]...)
	}
	lo, hi := fences(flat)
	kept := make([]Triple, 0, len(triples))
	for _, t := range triples {
		if t[0] >= lo && t[0] <= hi && t[1] >= lo && t[1] <= hi && t[2] >= lo && t[2] <= hi {
			kept = append(kept, t)
		}
	}
	return kept
}
