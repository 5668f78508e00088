package analysis

import (
	"fmt"
	"log"
	"math"

	domainStats "datalab/domain/stats"
	"datalab/domain/table"
	"datalab/internal/errors"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// rankTolerance is the singular value cutoff, relative to the largest one,
// below which a direction counts as collinear
const rankTolerance = 1e-10

// Regression fits dependent ~ intercept + independent... by ordinary least
// squares. Every column involved must be numeric with no missing values.
// Collinear or underdetermined designs get the minimum-norm coefficients.
func (e *StatisticalEngine) Regression(t *table.Table, dependent string, independent []string) (*domainStats.RegressionResult, error) {
	if len(independent) == 0 {
		return nil, errors.ValidationError("at least one independent column is required")
	}

	yCol, err := completeNumericColumn(t, dependent)
	if err != nil {
		return nil, err
	}

	features := make([]*table.Column, len(independent))
	seen := make(map[string]bool, len(independent))
	for j, name := range independent {
		if seen[name] {
			return nil, errors.ValidationError(fmt.Sprintf("independent column %q listed twice", name))
		}
		seen[name] = true

		if features[j], err = completeNumericColumn(t, name); err != nil {
			return nil, err
		}
	}

	n, p := t.Len(), len(independent)
	if n == 0 {
		return nil, errors.ValidationError("no rows to fit")
	}

	x := mat.NewDense(n, p, nil)
	for j, col := range features {
		for i, v := range col.Values {
			x.Set(i, j, v.Num)
		}
	}
	yData := yCol.Floats()

	coef, intercept, rank, err := solveLeastSquares(x, yData)
	if err != nil {
		return nil, errors.Wrap(err, "least squares solve failed")
	}
	if rank < p {
		log.Printf("[Analysis] OLS %s: design has rank %d < %d, using minimum-norm coefficients", dependent, rank, p)
	}

	predictions := make([]float64, n)
	for i := range predictions {
		predictions[i] = intercept + floats.Dot(x.RawRowView(i), coef)
	}

	coefficients := make(map[string]table.Float, p)
	for j, name := range independent {
		coefficients[name] = table.Float(coef[j])
	}

	result := &domainStats.RegressionResult{
		RSquared:     table.Float(rSquared(predictions, yData)),
		Coefficients: coefficients,
		Intercept:    table.Float(intercept),
		Predictions:  make([]table.Float, n),
	}
	for i, v := range predictions {
		result.Predictions[i] = table.Float(v)
	}

	log.Printf("[Analysis] OLS %s ~ %v: n=%d R2=%.4f", dependent, independent, n, float64(result.RSquared))
	return result, nil
}

// solveLeastSquares centres the data so the intercept stays out of the norm,
// then takes the minimum-norm least squares coefficients from a thin SVD. For
// a full-rank design this is the ordinary least squares fit.
func solveLeastSquares(x *mat.Dense, y []float64) (coef []float64, intercept float64, rank int, err error) {
	n, p := x.Dims()

	means := make([]float64, p)
	centered := mat.NewDense(n, p, nil)
	for j := 0; j < p; j++ {
		col := mat.Col(nil, j, x)
		means[j] = stat.Mean(col, nil)
		for i, v := range col {
			centered.Set(i, j, v-means[j])
		}
	}
	yMean := stat.Mean(y, nil)
	yc := make([]float64, n)
	for i, v := range y {
		yc[i] = v - yMean
	}

	coef = make([]float64, p)
	var svd mat.SVD
	if !svd.Factorize(centered, mat.SVDThin) {
		return nil, 0, 0, fmt.Errorf("singular value decomposition did not converge")
	}
	// a rank of zero means every predictor is constant: all coefficients stay 0
	if rank = svd.Rank(rankTolerance); rank > 0 {
		var beta mat.VecDense
		svd.SolveVecTo(&beta, mat.NewVecDense(n, yc), rank)
		for j := range coef {
			coef[j] = beta.AtVec(j)
		}
	}

	return coef, yMean - floats.Dot(means, coef), rank, nil
}

// rSquared is 1 - SSres/SStot. A constant response has no variance to
// explain: the score is 1 for a perfect fit and 0 otherwise.
func rSquared(predictions, values []float64) float64 {
	var ssRes, ssY float64
	for i := range values {
		d := values[i] - predictions[i]
		ssRes += d * d
		ssY += values[i] * values[i]
	}

	if stat.Variance(values, nil) == 0 {
		if ssRes <= 1e-12*math.Max(ssY, 1) {
			return 1
		}
		return 0
	}
	return stat.RSquaredFrom(predictions, values, nil)
}

func completeNumericColumn(t *table.Table, name string) (*table.Column, error) {
	col, err := numericColumn(t, name)
	if err != nil {
		return nil, err
	}
	if col.HasMissing() {
		return nil, errors.ValidationError(fmt.Sprintf("column %q contains missing values", name))
	}
	return col, nil
}
