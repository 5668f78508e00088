package excel

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strings"

	"datalab/domain/table"
	"datalab/internal/errors"

	"github.com/xuri/excelize/v2"
)

// Format is an export format
type Format string

const (
	FormatCSV   Format = "csv"
	FormatExcel Format = "excel"
)

// ParseFormat matches csv/excel case-insensitively
func ParseFormat(format string) (Format, error) {
	switch Format(strings.ToLower(format)) {
	case FormatCSV:
		return FormatCSV, nil
	case FormatExcel:
		return FormatExcel, nil
	}
	return "", errors.UnsupportedFormat(format)
}

// FormatFromFilename maps an upload's extension to its parser
func FormatFromFilename(name string) (Format, error) {
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".csv", ".txt":
		return FormatCSV, nil
	case ".xlsx", ".xlsm":
		return FormatExcel, nil
	default:
		return "", errors.UnsupportedFormat(strings.TrimPrefix(ext, "."))
	}
}

// ContentType returns the MIME type for the format
func (f Format) ContentType() string {
	if f == FormatExcel {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// Extension returns the file extension, including the dot
func (f Format) Extension() string {
	if f == FormatExcel {
		return ".xlsx"
	}
	return ".csv"
}

// DataWriter serializes tables to CSV or xlsx bytes
type DataWriter struct {
	config ExcelConfig
}

// NewDataWriter creates a writer
func NewDataWriter(config ExcelConfig) *DataWriter {
	if config.SheetName == "" {
		config.SheetName = "Sheet1"
	}
	return &DataWriter{config: config}
}

// Export serializes t in the named format ("csv" or "excel", any case)
func (w *DataWriter) Export(t *table.Table, format string) ([]byte, error) {
	f, err := ParseFormat(format)
	if err != nil {
		return nil, err
	}

	switch f {
	case FormatExcel:
		return w.writeXLSX(t)
	default:
		return w.writeCSV(t)
	}
}

func (w *DataWriter) writeCSV(t *table.Table) ([]byte, error) {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)

	if err := cw.Write(t.Names()); err != nil {
		return nil, err
	}
	record := make([]string, len(t.Columns()))
	for i := 0; i < t.Len(); i++ {
		for j, v := range t.Row(i) {
			record[j] = v.String()
		}
		if err := cw.Write(record); err != nil {
			return nil, err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (w *DataWriter) writeXLSX(t *table.Table) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	// NewFile starts with "Sheet1"; rename it when another name is configured
	sheet := w.config.SheetName
	if sheet != "Sheet1" {
		if err := f.SetSheetName("Sheet1", sheet); err != nil {
			return nil, fmt.Errorf("failed to name sheet: %w", err)
		}
	}

	header := make([]interface{}, len(t.Columns()))
	for i, name := range t.Names() {
		header[i] = name
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write header row: %w", err)
	}

	for i := 0; i < t.Len(); i++ {
		cells := make([]interface{}, len(t.Columns()))
		for j, v := range t.Row(i) {
			switch v.Type {
			case table.ValueTypeNumeric:
				cells[j] = v.Num
			case table.ValueTypeText:
				cells[j] = v.Str
			default:
				cells[j] = nil
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}
