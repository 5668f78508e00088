package api

import (
	stderrors "errors"
	"log"
	"net/http"

	"datalab/internal/errors"

	"github.com/gin-gonic/gin"
)

// statusFor maps an error to its HTTP status: caller mistakes are 4xx,
// anything unclassified is a 500.
func statusFor(err error) int {
	var maxErr *http.MaxBytesError
	if stderrors.As(err, &maxErr) {
		return http.StatusRequestEntityTooLarge
	}

	switch errors.GetCode(err) {
	case errors.CodeValidationError,
		errors.CodeInvalidInput,
		errors.CodeUnsupportedFormat,
		errors.CodeColumnNotFound:
		return http.StatusBadRequest
	case errors.CodePayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case errors.CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes {"error": ..., "code": ...} with the mapped status
func (s *Server) respondError(c *gin.Context, err error) {
	status := statusFor(err)
	code := errors.GetCode(err)
	message := err.Error()

	switch {
	case status == http.StatusRequestEntityTooLarge:
		code = errors.CodePayloadTooLarge
		message = errors.PayloadTooLarge(s.config.Upload.MaxBytes()).Error()
	case status >= http.StatusInternalServerError:
		log.Printf("[API] %s %s failed (request %s): %v", c.Request.Method, c.Request.URL.Path, requestIDFrom(c), err)
		code = errors.CodeInternalError
		message = "Internal Server Error"
	}

	c.AbortWithStatusJSON(status, gin.H{"error": message, "code": code})
}

// bindError classifies a request decoding failure
func bindError(err error) error {
	var maxErr *http.MaxBytesError
	if stderrors.As(err, &maxErr) {
		return err
	}
	return errors.Newf(errors.CodeInvalidInput, "invalid request body: %v", err)
}
