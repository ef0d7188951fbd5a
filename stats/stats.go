// Descriptive statistics over one metric's samples.
//
// All reported values are rounded to six decimals so that reruns over the same trace produce
// byte-identical reports.  Quantiles use linear interpolation between closest ranks (R-7), and the
// standard deviation is the population deviation.

package stats

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const Precision = 6

// Block summarizes one metric.  Raw is omitted for rollups.  Cluster is only set on rollup blocks.
//
// MT: Immutable once constructed.

type Block struct {
	Mean         float64       `json:"Mean"`
	Median       float64       `json:"Median"`
	Min          float64       `json:"Minimum"`
	Max          float64       `json:"Maximum"`
	Std          float64       `json:"Standard Deviation"`
	Raw          []float64     `json:"Raw Data,omitempty"`
	Distribution *Distribution `json:"Distribution,omitempty"`
	Cluster      *Cluster      `json:"k-mean,omitempty"`
}

// Cluster is per-entity (mean, median, instance count) triples.

type Cluster struct {
	Raw []Triple `json:"Raw Data"`
}

type Triple = [3]float64

// ComputeStatistics returns nil for an empty sample set.  The input is not modified.

func ComputeStatistics(samples []float64, keepRaw bool) *Block {
	if len(samples) == 0 {
		return nil
	}
	sorted := slices.Clone(samples)
	slices.Sort(sorted)
	mean, std := stat.PopMeanStdDev(samples, nil)
	b := &Block{
		Mean:   Round(mean),
		Median: Round(median(sorted)),
		Min:    Round(floats.Min(samples)),
		Max:    Round(floats.Max(samples)),
		Std:    Round(std),
	}
	if keepRaw {
		b.Raw = make([]float64, len(samples))
		for i, x := range samples {
			b.Raw[i] = Round(x)
		}
	}
	return b
}

// Round to Precision decimals, ties to even.

func Round(x float64) float64 {
	return RoundTo(x, Precision)
}

func RoundTo(x float64, places int) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	p := math.Pow(10, float64(places))
	r := math.RoundToEven(x*p) / p
	if math.IsInf(r, 0) || math.IsNaN(r) {
		return x
	}
	return r
}

func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// Quantile of sorted data for q in [0,1], interpolating linearly between closest ranks.

func Quantile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	pos := float64(n-1) * q
	lo := int(math.Floor(pos))
	if lo < 0 {
		return sorted[0]
	}
	if lo >= n-1 {
		return sorted[n-1]
	}
	return lerp(sorted[lo], sorted[lo+1], pos-float64(lo))
}

// Interpolation is anchored at the nearer end so that q=1 reproduces the maximum exactly.
func lerp(a, b, t float64) float64 {
	d := b - a
	if t >= 0.5 {
		return b - d*(1-t)
	}
	return a + d*t
}
