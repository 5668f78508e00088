package analysis

import (
	"math"

	domainStats "datalab/domain/stats"
	"datalab/domain/table"

	"github.com/montanaflynn/stats"
)

// BasicStats summarises every numeric column. Text and all-missing columns
// are skipped, and missing cells are ignored within a column.
func (e *StatisticalEngine) BasicStats(t *table.Table) domainStats.StatsResult {
	result := make(domainStats.StatsResult)

	for _, col := range t.Columns() {
		if col.Kind != table.KindNumeric {
			continue
		}
		result[col.Name] = summarize(col.Floats())
	}

	return result
}

func summarize(data []float64) domainStats.ColumnStats {
	mean, _ := stats.Mean(data)
	min, _ := stats.Min(data)
	max, _ := stats.Max(data)
	median, _ := stats.Median(data)

	// sample estimates are undefined for a single observation
	std, variance := math.NaN(), math.NaN()
	if len(data) > 1 {
		std, _ = stats.StandardDeviationSample(data)
		variance, _ = stats.SampleVariance(data)
	}

	return domainStats.ColumnStats{
		Mean:     table.Float(mean),
		Std:      table.Float(std),
		Variance: table.Float(variance),
		Min:      table.Float(min),
		Max:      table.Float(max),
		Median:   table.Float(median),
		Q1:       table.Float(Quantile(data, 0.25)),
		Q3:       table.Float(Quantile(data, 0.75)),
	}
}
