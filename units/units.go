// Human-readable magnitudes for histogram bin labels.  These are for display only; statistics are
// always computed and stored in raw trace units.

package units

import (
	"math"
	"strconv"
	"strings"
)

// Scale selects the suffix family for a label.

type Scale int

const (
	// TIME labels are unitless decimal multiples: 1.5K, 2.0M
	TIME Scale = iota

	// DATA labels are decimal byte multiples: 512.0B, 1.02KB
	DATA
)

var (
	dataSuffixes = []string{"B", "KB", "MB", "GB", "TB", "PB", "EB", "ZB", "YB"}
	timeSuffixes = []string{"", "K", "M", "G", "T", "P", "E", "Z", "Y"}
)

func SizeLabel(bytes float64) string {
	return label(bytes, dataSuffixes)
}

func DurationLabel(d float64) string {
	return label(d, timeSuffixes)
}

func Label(s Scale, x float64) string {
	if s == DATA {
		return SizeLabel(x)
	}
	return DurationLabel(x)
}

func RangeLabel(s Scale, lo, hi float64) string {
	return Label(s, lo) + "-" + Label(s, hi)
}

// The magnitude group is floor(log10(x)/3), clamped to the suffix table, and the mantissa is
// rounded to two decimals.  Values below 1 stay in the base group.

func label(x float64, suffixes []string) string {
	if x == 0 {
		return "0" + suffixes[0]
	}
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return strconv.FormatFloat(x, 'f', -1, 64)
	}
	sign := ""
	if x < 0 {
		sign = "-"
		x = -x
	}
	i := int(math.Floor(math.Log10(x) / 3))
	i = max(0, min(i, len(suffixes)-1))
	m := x / math.Pow(10, float64(3*i))
	return sign + decimal(round2(m)) + suffixes[i]
}

func round2(x float64) float64 {
	v, _ := strconv.ParseFloat(strconv.FormatFloat(x, 'f', 2, 64), 64)
	return v
}

// Shortest representation, but integral values keep a trailing ".0" so that 512 bytes reads
// "512.0B" and is visibly a scaled value.
func decimal(x float64) string {
	s := strconv.FormatFloat(x, 'f', -1, 64)
	if !strings.ContainsAny(s, ".") {
		s += ".0"
	}
	return s
}
