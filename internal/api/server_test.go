package api

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"datalab/adapters/excel"
	domainStats "datalab/domain/stats"
	"datalab/internal/analysis"
	"datalab/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"github.com/xuri/excelize/v2"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T, maxMB int) http.Handler {
	t.Helper()
	cfg := &config.Config{
		Server: config.ServerConfig{Port: "0"},
		CORS:   config.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
		Upload: config.UploadConfig{MaxMB: maxMB},
	}
	srv := NewServer(cfg,
		excel.NewDataReader(excel.DefaultExcelConfig()),
		excel.NewDataWriter(excel.DefaultExcelConfig()),
		analysis.NewStatisticalEngine(domainStats.SignificanceLevel),
	)
	return srv.Handler()
}

func doJSON(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func doUpload(t *testing.T, h http.Handler, path, field, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if field != "" {
		part, err := mw.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	} else {
		require.NoError(t, mw.WriteField("note", "no file"))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRootAndHealth(t *testing.T) {
	h := newTestServer(t, 32)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, welcomeMessage, gjson.Get(rec.Body.String(), "message").String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", gjson.Get(rec.Body.String(), "status").String())
}

func TestRequestIDAndCORS(t *testing.T) {
	h := newTestServer(t, 32)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set(requestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "abc-123", rec.Header().Get(requestIDHeader))
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Len(t, rec.Header().Get(requestIDHeader), 36)
}

func TestImportCSV(t *testing.T) {
	h := newTestServer(t, 32)

	rec := doUpload(t, h, "/api/import/csv", "file", "data.csv", []byte("a,b\n1,x\n2,\n"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := rec.Body.String()
	assert.True(t, gjson.Get(body, "success").Bool())
	assert.Equal(t, `["a","b"]`, gjson.Get(body, "columns").Raw)
	assert.Equal(t, 2.0, gjson.Get(body, "data.1.a").Float())
	assert.Equal(t, "x", gjson.Get(body, "data.0.b").String())
	assert.Equal(t, gjson.Null, gjson.Get(body, "data.1.b").Type)
}

func TestImportCSV_Failures(t *testing.T) {
	h := newTestServer(t, 32)

	tests := []struct {
		name     string
		field    string
		content  string
		wantCode string
	}{
		{name: "row length", field: "file", content: "a,b\n1,2,3\n", wantCode: "ROW_LENGTH_ERROR"},
		{name: "empty", field: "file", content: "", wantCode: "EMPTY_ERROR"},
		{name: "missing file field", field: "", wantCode: "INVALID_INPUT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doUpload(t, h, "/api/import/csv", tt.field, "data.csv", []byte(tt.content))
			require.Equal(t, http.StatusBadRequest, rec.Code)

			body := rec.Body.String()
			assert.False(t, gjson.Get(body, "success").Bool())
			assert.Equal(t, tt.wantCode, gjson.Get(body, "code").String())
			assert.NotEmpty(t, gjson.Get(body, "error").String())
		})
	}
}

func TestImportCSV_HeaderOnly(t *testing.T) {
	h := newTestServer(t, 32)

	rec := doUpload(t, h, "/api/import/csv", "file", "data.csv", []byte("a,b\n"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := rec.Body.String()
	assert.True(t, gjson.Get(body, "success").Bool())
	assert.True(t, gjson.Get(body, "data").IsArray())
	assert.Empty(t, gjson.Get(body, "data").Array())
	assert.Equal(t, `["a","b"]`, gjson.Get(body, "columns").Raw)
}

func TestUpload_PicksFormatFromExtension(t *testing.T) {
	h := newTestServer(t, 32)

	rec := doUpload(t, h, "/upload", "file", "data.csv", []byte("a,b\n1,x\n"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "x", gjson.Get(rec.Body.String(), "data.0.b").String())

	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"score"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{4.5}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	rec = doUpload(t, h, "/upload", "file", "Book1.XLSX", buf.Bytes())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 4.5, gjson.Get(rec.Body.String(), "data.0.score").Float())

	rec = doUpload(t, h, "/upload", "file", "report.pdf", []byte("%PDF-1.4"))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := rec.Body.String()
	assert.False(t, gjson.Get(body, "success").Bool())
	assert.Equal(t, "UNSUPPORTED_FORMAT", gjson.Get(body, "code").String())
	assert.False(t, gjson.Get(body, "data").Exists())
}

func TestNoRoute(t *testing.T) {
	h := newTestServer(t, 32)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", gjson.Get(rec.Body.String(), "code").String())
	assert.Equal(t, "route /nope not found", gjson.Get(rec.Body.String(), "error").String())
}

func TestImportExcel(t *testing.T) {
	h := newTestServer(t, 32)

	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"group", "score"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{"A", 3.5}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	rec := doUpload(t, h, "/api/import/excel", "file", "data.xlsx", buf.Bytes())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 3.5, gjson.Get(rec.Body.String(), "data.0.score").Float())

	rec = doUpload(t, h, "/api/import/excel", "file", "data.xlsx", []byte("not a workbook"))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "CORRUPT_ERROR", gjson.Get(rec.Body.String(), "code").String())
}

func TestExport(t *testing.T) {
	h := newTestServer(t, 32)
	payload := `{"data":[{"a":1,"b":"x"},{"a":2.5,"b":null}],"columns":["a","b"]}`

	rec := doJSON(t, h, "/api/export?format=CSV", payload)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `filename="export.csv"`)
	assert.Equal(t, "a,b\n1,x\n2.5,\n", rec.Body.String())

	rec = doJSON(t, h, "/api/export", `{"format":"excel","data":[{"a":1}]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, excel.FormatExcel.ContentType(), rec.Header().Get("Content-Type"))

	wb, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	rows, err := wb.GetRows("Sheet1")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a"}, {"1"}}, rows)
}

func TestExport_Errors(t *testing.T) {
	h := newTestServer(t, 32)

	rec := doJSON(t, h, "/api/export?format=pdf", `{"data":[]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "UNSUPPORTED_FORMAT", gjson.Get(rec.Body.String(), "code").String())
	assert.Equal(t, "Unsupported format: pdf", gjson.Get(rec.Body.String(), "error").String())

	rec = doJSON(t, h, "/api/export?format=csv", `{"data":[`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_INPUT", gjson.Get(rec.Body.String(), "code").String())
}

func TestBasicStats(t *testing.T) {
	h := newTestServer(t, 32)

	rec := doJSON(t, h, "/api/analysis/stats", `{"data":[{"x":1,"g":"a"},{"x":2,"g":"b"},{"x":3,"g":"a"},{"x":4,"g":"b"}]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := rec.Body.String()
	assert.InDelta(t, 2.5, gjson.Get(body, "stats.x.mean").Float(), 1e-12)
	assert.InDelta(t, 1.75, gjson.Get(body, "stats.x.q1").Float(), 1e-12)
	assert.False(t, gjson.Get(body, "stats.g").Exists())
}

func TestAnova(t *testing.T) {
	h := newTestServer(t, 32)
	data := `"data":[{"g":"A","y":1},{"g":"A","y":1},{"g":"A","y":1},{"g":"B","y":10},{"g":"B","y":10},{"g":"B","y":10}]`

	rec := doJSON(t, h, "/api/analysis/anova", `{`+data+`,"factors":["g"],"response":"y"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := rec.Body.String()
	assert.Equal(t, gjson.Null, gjson.Get(body, "f_statistic").Type)
	assert.Equal(t, 0.0, gjson.Get(body, "p_value").Float())
	assert.True(t, gjson.Get(body, "significant").Bool())

	rec = doJSON(t, h, "/api/analysis/anova", `{`+data+`,"factor":"missing","response":"y"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "COLUMN_NOT_FOUND", gjson.Get(rec.Body.String(), "code").String())

	rec = doJSON(t, h, "/api/analysis/anova", `{`+data+`,"response":"y"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", gjson.Get(rec.Body.String(), "code").String())
}

func TestRegression(t *testing.T) {
	h := newTestServer(t, 32)
	data := `"data":[{"x":1,"d":2,"y":3},{"x":2,"d":4,"y":5},{"x":3,"d":6,"y":7},{"x":4,"d":8,"y":9}]`

	rec := doJSON(t, h, "/api/analysis/regression", `{`+data+`,"dependent":"y","independent":["x"]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := rec.Body.String()
	assert.InDelta(t, 2.0, gjson.Get(body, "coefficients.x").Float(), 1e-9)
	assert.InDelta(t, 1.0, gjson.Get(body, "intercept").Float(), 1e-9)
	assert.InDelta(t, 1.0, gjson.Get(body, "r_squared").Float(), 1e-9)
	assert.Len(t, gjson.Get(body, "predictions").Array(), 4)

	rec = doJSON(t, h, "/api/analysis/regression", `{`+data+`,"dependent":"y","independent":["x","d"]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body = rec.Body.String()
	assert.InDelta(t, 1.0, gjson.Get(body, "r_squared").Float(), 1e-9)
	assert.InDelta(t, 0.4, gjson.Get(body, "coefficients.x").Float(), 1e-9)
	assert.InDelta(t, 0.8, gjson.Get(body, "coefficients.d").Float(), 1e-9)
	for i, want := range []float64{3, 5, 7, 9} {
		assert.InDelta(t, want, gjson.Get(body, "predictions").Array()[i].Float(), 1e-9)
	}

	rec = doJSON(t, h, "/api/analysis/regression", `{"data":[{"x":1,"y":3}],"dependent":"y","independent":["x","nope"]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "COLUMN_NOT_FOUND", gjson.Get(rec.Body.String(), "code").String())

	rec = doJSON(t, h, "/api/analysis/regression", `{`+data+`,"independent":["x"]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", gjson.Get(rec.Body.String(), "code").String())
}

func TestPayloadTooLarge(t *testing.T) {
	h := newTestServer(t, 1)
	big := `{"data":[{"a":"` + strings.Repeat("x", 2<<20) + `"}]}`

	rec := doJSON(t, h, "/api/analysis/stats", big)
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "PAYLOAD_TOO_LARGE", gjson.Get(rec.Body.String(), "code").String())
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusFor(bindError(assert.AnError)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, statusFor(&http.MaxBytesError{Limit: 1}))
	assert.Equal(t, http.StatusInternalServerError, statusFor(assert.AnError))
}
