package analysis

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"
)

// StatisticalDistributions wraps the distribution functions used for p-values
type StatisticalDistributions struct{}

// NewDistributions creates a new distributions utility
func NewDistributions() *StatisticalDistributions {
	return &StatisticalDistributions{}
}

// FTestPValue is the upper-tail probability of the F distribution
func (sd *StatisticalDistributions) FTestPValue(fStatistic float64, df1, df2 int) float64 {
	if df1 <= 0 || df2 <= 0 || math.IsNaN(fStatistic) {
		return math.NaN()
	}
	if math.IsInf(fStatistic, 1) {
		return 0
	}

	fDist := distuv.F{D1: float64(df1), D2: float64(df2)}
	return fDist.Survival(fStatistic)
}

// Quantile computes the p-quantile (0 <= p <= 1) with linear interpolation
// between closest ranks, at position (n-1)*p of the sorted data.
func Quantile(data []float64, p float64) float64 {
	if len(data) == 0 || p < 0 || p > 1 {
		return math.NaN()
	}

	sorted := make([]float64, len(data))
	copy(sorted, data)
	sort.Float64s(sorted)

	pos := float64(len(sorted)-1) * p
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}
