package excel

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"datalab/adapters/coercer"
	"datalab/domain/table"

	"github.com/xuri/excelize/v2"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// DataReader parses uploaded CSV and Excel bytes into tables
type DataReader struct {
	config  ExcelConfig
	coercer *coercer.TypeCoercer
}

// NewDataReader creates a reader for both CSV and Excel uploads
func NewDataReader(config ExcelConfig) *DataReader {
	return &DataReader{
		config:  config,
		coercer: coercer.NewTypeCoercer(config.CoercionConfig),
	}
}

// ImportCSV parses CSV bytes and never fails: errors are folded into the result
func (r *DataReader) ImportCSV(data []byte) ImportResult {
	return NewImportResult(r.ReadCSV(data))
}

// ImportExcel parses workbook bytes and never fails: errors are folded into the result
func (r *DataReader) ImportExcel(data []byte) ImportResult {
	return NewImportResult(r.ReadExcel(data))
}

// ReadCSV parses UTF-8 comma-separated text whose first record is the header
func (r *DataReader) ReadCSV(data []byte) (*table.Table, error) {
	readStart := time.Now()

	if !utf8.Valid(data) {
		return nil, &ParseError{Kind: KindEncoding, Message: "input is not valid UTF-8"}
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var csvErr *csv.ParseError
			if errors.As(err, &csvErr) {
				return nil, &ParseError{Kind: KindMalformed, Line: csvErr.Line, Message: "malformed CSV", Cause: csvErr.Err}
			}
			return nil, &ParseError{Kind: KindMalformed, Message: "failed to read CSV", Cause: err}
		}

		if len(rows) > 0 && len(record) != len(rows[0]) {
			line, _ := reader.FieldPos(0)
			return nil, &ParseError{
				Kind:    KindRowLength,
				Line:    line,
				Message: fmt.Sprintf("expected %d fields, saw %d", len(rows[0]), len(record)),
			}
		}
		rows = append(rows, record)
	}

	if len(rows) == 0 {
		return nil, &ParseError{Kind: KindEmpty, Message: "no columns to parse from file"}
	}

	t, err := r.processRows(rows[0], rows[1:])
	if err != nil {
		return nil, err
	}

	log.Printf("[DataReader] CSV parsed in %.2fms (%d columns, %d rows)",
		float64(time.Since(readStart).Nanoseconds())/1e6, len(t.Columns()), t.Len())
	return t, nil
}

// ReadExcel parses the first worksheet of an xlsx workbook
func (r *DataReader) ReadExcel(data []byte) (*table.Table, error) {
	readStart := time.Now()

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, &ParseError{Kind: KindCorrupt, Message: "failed to open Excel file", Cause: err}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &ParseError{Kind: KindEmpty, Message: "workbook has no worksheets"}
	}

	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, &ParseError{Kind: KindCorrupt, Message: fmt.Sprintf("failed to read sheet %q", sheets[0]), Cause: err}
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, &ParseError{Kind: KindEmpty, Message: fmt.Sprintf("sheet %q has no header row", sheets[0])}
	}

	// Spreadsheets drop trailing blank cells, so widen everything to the
	// widest row instead of treating ragged rows as errors.
	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}
	header := pad(rows[0], width)
	body := make([][]string, len(rows)-1)
	for i, row := range rows[1:] {
		body[i] = pad(row, width)
	}

	t, err := r.processRows(header, body)
	if err != nil {
		return nil, err
	}

	log.Printf("[DataReader] Excel sheet %q parsed in %.2fms (%d columns, %d rows)",
		sheets[0], float64(time.Since(readStart).Nanoseconds())/1e6, len(t.Columns()), t.Len())
	return t, nil
}

// processRows turns a header and equal-width string rows into a typed table
func (r *DataReader) processRows(headerRow []string, rows [][]string) (*table.Table, error) {
	headers := make([]string, len(headerRow))
	seen := make(map[string]bool, len(headerRow))
	for i, header := range headerRow {
		if r.config.TrimHeaders {
			header = strings.TrimSpace(header)
		}
		if header == "" {
			header = fmt.Sprintf("Unnamed: %d", i)
		}
		if seen[header] {
			return nil, &ParseError{Kind: KindHeader, Line: 1, Message: fmt.Sprintf("duplicate column name %q", header)}
		}
		seen[header] = true
		headers[i] = header
	}

	columns := make([]table.Column, len(headers))
	cells := make([]string, len(rows))
	for j, name := range headers {
		for i, row := range rows {
			cells[i] = row[j]
		}
		columns[j] = table.Column{Name: name, Values: r.coercer.CoerceColumn(cells)}
	}

	return table.New(columns)
}

func pad(row []string, width int) []string {
	if len(row) >= width {
		return row
	}
	out := make([]string, width)
	copy(out, row)
	return out
}
