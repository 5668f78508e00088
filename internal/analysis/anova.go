package analysis

import (
	"fmt"
	"log"
	"math"

	domainStats "datalab/domain/stats"
	"datalab/domain/table"
	"datalab/internal/errors"

	"github.com/montanaflynn/stats"
)

// anovaGroup is the response values sharing one factor level
type anovaGroup struct {
	level  string
	values []float64
}

// Anova runs a one-way ANOVA of response across the levels of factor.
// Rows with a missing factor level or a missing response are dropped.
func (e *StatisticalEngine) Anova(t *table.Table, factor, response string) (*domainStats.AnovaResult, error) {
	factorCol, ok := t.Column(factor)
	if !ok {
		return nil, errors.ColumnNotFound(factor)
	}
	responseCol, err := numericColumn(t, response)
	if err != nil {
		return nil, err
	}

	groups := groupBy(factorCol, responseCol)
	if len(groups) < 2 {
		return nil, errors.ValidationError(fmt.Sprintf(
			"at least two groups are required, factor %q has %d", factor, len(groups)))
	}

	n := 0
	for _, g := range groups {
		if len(g.values) == 0 {
			return nil, errors.ValidationError(fmt.Sprintf("group %q has no %s values", g.level, response))
		}
		n += len(g.values)
	}

	k := len(groups)
	dfBetween, dfWithin := k-1, n-k
	if dfWithin <= 0 {
		return nil, errors.ValidationError(fmt.Sprintf(
			"not enough observations: %d values across %d groups", n, k))
	}

	all := make([]float64, 0, n)
	for _, g := range groups {
		all = append(all, g.values...)
	}
	grandMean, _ := stats.Mean(all)

	var ssBetween, ssWithin float64
	for _, g := range groups {
		groupMean, _ := stats.Mean(g.values)
		ssBetween += float64(len(g.values)) * (groupMean - grandMean) * (groupMean - grandMean)
		for _, v := range g.values {
			ssWithin += (v - groupMean) * (v - groupMean)
		}
	}

	var f float64
	switch {
	case ssWithin == 0 && ssBetween == 0:
		f = math.NaN()
	case ssWithin == 0:
		f = math.Inf(1)
	default:
		f = (ssBetween / float64(dfBetween)) / (ssWithin / float64(dfWithin))
	}
	p := e.dist.FTestPValue(f, dfBetween, dfWithin)

	log.Printf("[Analysis] ANOVA %s ~ %s: k=%d n=%d F=%.4g p=%.4g", response, factor, k, n, f, p)

	return &domainStats.AnovaResult{
		FStatistic:  table.Float(f),
		PValue:      table.Float(p),
		Significant: p < e.alpha,
		Groups:      k,
		DFBetween:   dfBetween,
		DFWithin:    dfWithin,
		SampleSize:  n,
	}, nil
}

// groupBy collects response values per distinct factor level, in order of
// first appearance. A level whose responses are all missing still produces
// an (empty) group.
func groupBy(factorCol, responseCol *table.Column) []*anovaGroup {
	var groups []*anovaGroup
	index := make(map[string]*anovaGroup)

	for i, fv := range factorCol.Values {
		if fv.IsMissing() {
			continue
		}
		level := fv.String()
		g, ok := index[level]
		if !ok {
			g = &anovaGroup{level: level}
			index[level] = g
			groups = append(groups, g)
		}
		if rv := responseCol.Values[i]; rv.IsNumeric() {
			g.values = append(g.values, rv.Num)
		}
	}

	return groups
}
