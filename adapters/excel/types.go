package excel

import (
	"encoding/json"
	"fmt"
	"strings"

	"datalab/domain/table"
)

// ParseErrorKind classifies why an upload could not be parsed
type ParseErrorKind string

const (
	KindEncoding  ParseErrorKind = "encoding"   // not valid UTF-8
	KindEmpty     ParseErrorKind = "empty"      // no header row
	KindHeader    ParseErrorKind = "header"     // duplicate column names
	KindRowLength ParseErrorKind = "row_length" // record width differs from the header
	KindMalformed ParseErrorKind = "malformed"  // CSV quoting/lexing failure
	KindCorrupt   ParseErrorKind = "corrupt"    // unreadable workbook
)

// ParseError is returned by the readers for any upload that cannot become a table
type ParseError struct {
	Kind    ParseErrorKind
	Line    int // 1-based source line or spreadsheet row; 0 when not applicable
	Message string
	Cause   error
}

func (e *ParseError) Error() string {
	msg := e.Message
	if e.Line > 0 {
		msg = fmt.Sprintf("line %d: %s", e.Line, msg)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// Code is the machine-readable form used in API responses, e.g. ROW_LENGTH_ERROR
func (e *ParseError) Code() string {
	return strings.ToUpper(string(e.Kind)) + "_ERROR"
}

// ImportResult is the response shape of an import: either the parsed records
// and column names, or a failure message.
type ImportResult struct {
	Success bool
	Data    []map[string]table.Value
	Columns []string
	Error   string
	Code    string

	Table *table.Table
}

// MarshalJSON writes {"success":true,"data":[...],"columns":[...]} with both
// arrays always present, or {"success":false,"error":...,"code":...}.
func (r ImportResult) MarshalJSON() ([]byte, error) {
	if !r.Success {
		return json.Marshal(struct {
			Success bool   `json:"success"`
			Error   string `json:"error"`
			Code    string `json:"code,omitempty"`
		}{false, r.Error, r.Code})
	}

	data, columns := r.Data, r.Columns
	if data == nil {
		data = []map[string]table.Value{}
	}
	if columns == nil {
		columns = []string{}
	}
	return json.Marshal(struct {
		Success bool                     `json:"success"`
		Data    []map[string]table.Value `json:"data"`
		Columns []string                 `json:"columns"`
	}{true, data, columns})
}

// NewImportResult folds a reader outcome into an ImportResult
func NewImportResult(t *table.Table, err error) ImportResult {
	if err != nil {
		res := ImportResult{Success: false, Error: err.Error(), Code: "PARSE_ERROR"}
		if pe, ok := err.(*ParseError); ok {
			res.Code = pe.Code()
		}
		return res
	}
	return ImportResult{
		Success: true,
		Data:    t.Records(),
		Columns: t.Names(),
		Table:   t,
	}
}
