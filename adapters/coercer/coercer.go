package coercer

import (
	"math"
	"strconv"
	"strings"

	"datalab/domain/table"
)

// TypeCoercer turns raw cell text into typed values and decides column kinds
type TypeCoercer struct {
	config CoercionConfig
}

// CoercionConfig defines the coercion thresholds and rules
type CoercionConfig struct {
	NumericThreshold float64         `json:"numeric_threshold"` // share of present values that must parse as numbers
	MissingTokens    map[string]bool `json:"missing_tokens"`    // cell text read as missing
	TrimSpace        bool            `json:"trim_space"`
}

// DefaultCoercionConfig mirrors dataframe readers: a column is numeric only if
// every present cell is a number, and the usual NA spellings are missing.
func DefaultCoercionConfig() CoercionConfig {
	tokens := []string{
		"", "NA", "N/A", "n/a", "NaN", "nan", "-NaN", "-nan",
		"null", "NULL", "None", "#N/A", "#NA", "<NA>", "#N/A N/A", "-1.#IND", "1.#QNAN",
	}
	missing := make(map[string]bool, len(tokens))
	for _, tok := range tokens {
		missing[tok] = true
	}
	return CoercionConfig{
		NumericThreshold: 1.0,
		MissingTokens:    missing,
		TrimSpace:        true,
	}
}

// NewTypeCoercer creates a coercer with the given config
func NewTypeCoercer(config CoercionConfig) *TypeCoercer {
	return &TypeCoercer{config: config}
}

// IsMissing reports whether raw cell text denotes a missing value
func (c *TypeCoercer) IsMissing(raw string) bool {
	if c.config.TrimSpace {
		raw = strings.TrimSpace(raw)
	}
	return c.config.MissingTokens[raw]
}

// CoerceColumn converts a whole column of raw cells. If the column qualifies
// as numeric every present cell becomes a number; otherwise the present cells
// keep their original text.
func (c *TypeCoercer) CoerceColumn(raw []string) []table.Value {
	analysis := c.AnalyzeTypeDistribution(raw)
	numeric := analysis.RecommendedType == table.ValueTypeNumeric

	values := make([]table.Value, len(raw))
	for i, cell := range raw {
		switch {
		case c.IsMissing(cell):
			values[i] = table.NewMissingValue()
		case numeric:
			if n, ok := c.tryParseNumeric(cell); ok {
				values[i] = table.NewNumericValue(n)
			} else {
				values[i] = table.NewMissingValue()
			}
		default:
			values[i] = table.NewTextValue(cell)
		}
	}
	return values
}

// AnalyzeTypeDistribution counts how many present cells parse as numbers
func (c *TypeCoercer) AnalyzeTypeDistribution(raw []string) TypeAnalysis {
	analysis := TypeAnalysis{TotalCount: len(raw)}

	for _, cell := range raw {
		if c.IsMissing(cell) {
			continue
		}
		analysis.ValidCount++
		if _, ok := c.tryParseNumeric(cell); ok {
			analysis.NumericCount++
		}
	}

	if analysis.ValidCount > 0 {
		analysis.NumericRatio = float64(analysis.NumericCount) / float64(analysis.ValidCount)
	}
	analysis.RecommendedType = c.determineRecommendedType(analysis)

	return analysis
}

// tryParseNumeric accepts plain decimal and scientific notation only.
// Thousands separators and currency symbols make a cell text.
func (c *TypeCoercer) tryParseNumeric(raw string) (float64, bool) {
	s := raw
	if c.config.TrimSpace {
		s = strings.TrimSpace(s)
	}
	if s == "" {
		return 0, false
	}

	switch strings.ToLower(strings.TrimLeft(s, "+-")) {
	case "inf", "infinity":
		// ParseFloat accepts these; a cell spelled that way is text
		return 0, false
	}

	val, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(val) || math.IsInf(val, 0) {
		return 0, false
	}
	return val, true
}

func (c *TypeCoercer) determineRecommendedType(analysis TypeAnalysis) table.ValueType {
	if analysis.ValidCount == 0 {
		return table.ValueTypeMissing
	}
	if analysis.NumericRatio >= c.config.NumericThreshold {
		return table.ValueTypeNumeric
	}
	return table.ValueTypeText
}

// TypeAnalysis contains the results of type distribution analysis
type TypeAnalysis struct {
	TotalCount      int             `json:"total_count"`
	ValidCount      int             `json:"valid_count"`
	NumericCount    int             `json:"numeric_count"`
	NumericRatio    float64         `json:"numeric_ratio"`
	RecommendedType table.ValueType `json:"recommended_type"`
}
