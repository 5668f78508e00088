package excel

import (
	"testing"

	"datalab/domain/table"
	"datalab/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExport_CSVRoundTrip(t *testing.T) {
	input := []byte("city,temp,note\nOslo,-3.5,\"cold, windy\"\nRome,18,\nLima,,mild\n")

	reader := newReader()
	tbl, err := reader.ReadCSV(input)
	require.NoError(t, err)

	out, err := NewDataWriter(DefaultExcelConfig()).Export(tbl, "csv")
	require.NoError(t, err)
	assert.Equal(t, string(input), string(out))

	again, err := reader.ReadCSV(out)
	require.NoError(t, err)
	assert.Equal(t, tbl.Names(), again.Names())
	assert.Equal(t, tbl.Records(), again.Records())
}

func TestExport_FormatIsCaseInsensitive(t *testing.T) {
	tbl, err := table.New([]table.Column{{Name: "x", Values: []table.Value{table.NewNumericValue(1)}}})
	require.NoError(t, err)

	out, err := NewDataWriter(DefaultExcelConfig()).Export(tbl, "CSV")
	require.NoError(t, err)
	assert.Equal(t, "x\n1\n", string(out))
}

func TestExport_UnsupportedFormat(t *testing.T) {
	tbl, err := table.New(nil)
	require.NoError(t, err)

	_, err = NewDataWriter(DefaultExcelConfig()).Export(tbl, "pdf")
	require.Error(t, err)
	assert.Equal(t, errors.CodeUnsupportedFormat, errors.GetCode(err))
	assert.Equal(t, "Unsupported format: pdf", err.Error())
}

func TestExport_ExcelRoundTrip(t *testing.T) {
	tbl, err := table.New([]table.Column{
		{Name: "label", Values: []table.Value{table.NewTextValue("a"), table.NewTextValue("b"), table.NewMissingValue()}},
		{Name: "v", Values: []table.Value{table.NewNumericValue(0.5), table.NewMissingValue(), table.NewNumericValue(-2)}},
	})
	require.NoError(t, err)

	out, err := NewDataWriter(DefaultExcelConfig()).Export(tbl, "Excel")
	require.NoError(t, err)
	require.NotEmpty(t, out)

	back, err := newReader().ReadExcel(out)
	require.NoError(t, err)
	assert.Equal(t, tbl.Names(), back.Names())
	assert.Equal(t, tbl.Records(), back.Records())
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("EXCEL")
	require.NoError(t, err)
	assert.Equal(t, FormatExcel, f)
	assert.Equal(t, ".xlsx", f.Extension())
	assert.Equal(t, "text/csv; charset=utf-8", FormatCSV.ContentType())

	_, err = ParseFormat("xlsx")
	assert.Error(t, err)
}

func TestFormatFromFilename(t *testing.T) {
	tests := []struct {
		name string
		want Format
	}{
		{"data.csv", FormatCSV},
		{"DATA.CSV", FormatCSV},
		{"book.xlsx", FormatExcel},
		{"macro.xlsm", FormatExcel},
	}
	for _, tt := range tests {
		got, err := FormatFromFilename(tt.name)
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.want, got, tt.name)
	}

	_, err := FormatFromFilename("report.pdf")
	require.Error(t, err)
	assert.Equal(t, "Unsupported format: pdf", err.Error())
}
