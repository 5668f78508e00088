package excel

import (
	"datalab/adapters/coercer"
)

// ExcelConfig holds configuration for the readers and writer
type ExcelConfig struct {
	CoercionConfig coercer.CoercionConfig `json:"coercion_config"`
	SheetName      string                 `json:"sheet_name"` // written by the exporter; the reader always takes the first sheet
	TrimHeaders    bool                   `json:"trim_headers"`
}

// DefaultExcelConfig returns sensible defaults for tabular processing
func DefaultExcelConfig() ExcelConfig {
	return ExcelConfig{
		CoercionConfig: coercer.DefaultCoercionConfig(),
		SheetName:      "Sheet1",
		TrimHeaders:    true,
	}
}
