package stats

import (
	"datalab/domain/table"
)

// SignificanceLevel is the alpha used for the ANOVA significance flag
const SignificanceLevel = 0.05

// ColumnStats holds the descriptive statistics of one numeric column.
// Std and Variance are sample (n-1) estimates.
type ColumnStats struct {
	Mean     table.Float `json:"mean"`
	Std      table.Float `json:"std"`
	Variance table.Float `json:"variance"`
	Min      table.Float `json:"min"`
	Max      table.Float `json:"max"`
	Median   table.Float `json:"median"`
	Q1       table.Float `json:"q1"`
	Q3       table.Float `json:"q3"`
}

// StatsResult maps numeric column names to their statistics
type StatsResult map[string]ColumnStats

// AnovaResult is the outcome of a one-way ANOVA
type AnovaResult struct {
	FStatistic  table.Float `json:"f_statistic"`
	PValue      table.Float `json:"p_value"`
	Significant bool        `json:"significant"`

	Groups     int `json:"groups"`
	DFBetween  int `json:"df_between"`
	DFWithin   int `json:"df_within"`
	SampleSize int `json:"sample_size"`
}

// RegressionResult is an ordinary least squares fit with intercept
type RegressionResult struct {
	RSquared     table.Float            `json:"r_squared"`
	Coefficients map[string]table.Float `json:"coefficients"`
	Intercept    table.Float            `json:"intercept"`
	Predictions  []table.Float          `json:"predictions"`
}
