package analysis

import (
	"fmt"

	"datalab/domain/table"
	"datalab/internal/errors"
)

// StatisticalEngine runs the descriptive, ANOVA and regression computations
// over in-memory tables. It holds no per-request state and is safe for
// concurrent use.
type StatisticalEngine struct {
	alpha float64
	dist  *StatisticalDistributions
}

// NewStatisticalEngine creates an engine using the given significance level
func NewStatisticalEngine(alpha float64) *StatisticalEngine {
	return &StatisticalEngine{
		alpha: alpha,
		dist:  NewDistributions(),
	}
}

// numericColumn fetches a column that must exist and hold numbers
func numericColumn(t *table.Table, name string) (*table.Column, error) {
	col, ok := t.Column(name)
	if !ok {
		return nil, errors.ColumnNotFound(name)
	}
	if col.Kind != table.KindNumeric {
		return nil, errors.ValidationError(fmt.Sprintf("column %q is not numeric", name))
	}
	return col, nil
}
