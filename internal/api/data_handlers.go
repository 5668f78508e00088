package api

import (
	stderrors "errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"datalab/adapters/excel"
	"datalab/domain/table"
	"datalab/internal/errors"

	"github.com/gin-gonic/gin"
)

const uploadField = "file"

// TablePayload is the JSON form of a table: records plus an optional column order
type TablePayload struct {
	Data    []map[string]interface{} `json:"data"`
	Columns []string                 `json:"columns"`
}

// Table builds a table.Table from the payload
func (p TablePayload) Table() (*table.Table, error) {
	return table.FromRecords(p.Columns, p.Data)
}

// ExportRequest carries the table to serialize; the format may also come from ?format=
type ExportRequest struct {
	TablePayload
	Format string `json:"format"`
}

// handleImport parses an uploaded file in the given format
func (s *Server) handleImport(format excel.Format) gin.HandlerFunc {
	return func(c *gin.Context) {
		data, filename, err := readUpload(c)
		if err != nil {
			s.respondImportError(c, err)
			return
		}
		s.importUpload(c, format, data, filename)
	}
}

// handleUpload picks the parser from the uploaded file's extension
func (s *Server) handleUpload(c *gin.Context) {
	data, filename, err := readUpload(c)
	if err != nil {
		s.respondImportError(c, err)
		return
	}

	format, err := excel.FormatFromFilename(filename)
	if err != nil {
		s.respondImportError(c, err)
		return
	}
	s.importUpload(c, format, data, filename)
}

func (s *Server) importUpload(c *gin.Context, format excel.Format, data []byte, filename string) {
	var result excel.ImportResult
	switch format {
	case excel.FormatExcel:
		result = s.reader.ImportExcel(data)
	default:
		result = s.reader.ImportCSV(data)
	}

	if !result.Success {
		log.Printf("[API] Import of %q failed (request %s): %s", filename, requestIDFrom(c), result.Error)
		c.JSON(http.StatusBadRequest, result)
		return
	}

	log.Printf("[API] Imported %q: %d rows, %d columns", filename, result.Table.Len(), len(result.Columns))
	c.JSON(http.StatusOK, result)
}

// respondImportError keeps the import failure shape except for oversized bodies
func (s *Server) respondImportError(c *gin.Context, err error) {
	if statusFor(err) == http.StatusRequestEntityTooLarge {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusBadRequest, excel.ImportResult{
		Success: false,
		Error:   err.Error(),
		Code:    errors.GetCode(err),
	})
}

// readUpload returns the bytes and name of the multipart "file" field
func readUpload(c *gin.Context) ([]byte, string, error) {
	header, err := c.FormFile(uploadField)
	if err != nil {
		var maxErr *http.MaxBytesError
		if stderrors.As(err, &maxErr) {
			return nil, "", err
		}
		return nil, "", errors.InvalidInput(fmt.Sprintf("multipart field %q is required", uploadField))
	}

	f, err := header.Open()
	if err != nil {
		return nil, "", errors.Wrap(err, "failed to open upload")
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, "", errors.Wrap(err, "failed to read upload")
	}
	return data, header.Filename, nil
}

// handleExport serializes the posted table as CSV or XLSX
func (s *Server) handleExport(c *gin.Context) {
	var req ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, bindError(err))
		return
	}

	format := c.Query("format")
	if format == "" {
		format = req.Format
	}
	f, err := excel.ParseFormat(format)
	if err != nil {
		s.respondError(c, err)
		return
	}

	t, err := req.Table()
	if err != nil {
		s.respondError(c, err)
		return
	}

	body, err := s.writer.Export(t, string(f))
	if err != nil {
		s.respondError(c, errors.Wrapf(err, "failed to export %s", f))
		return
	}

	filename := "export" + f.Extension()
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, f.ContentType(), body)
	log.Printf("[API] Exported %d rows as %s", t.Len(), strings.ToUpper(string(f)))
}
