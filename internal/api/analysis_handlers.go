package api

import (
	"log"
	"net/http"

	"datalab/internal/errors"

	"github.com/gin-gonic/gin"
)

// AnovaRequest names the grouping column and the numeric response.
// Factors is accepted for compatibility; only its first entry is used.
type AnovaRequest struct {
	TablePayload
	Factors  []string `json:"factors"`
	Factor   string   `json:"factor"`
	Response string   `json:"response"`
}

func (r AnovaRequest) factor() string {
	if r.Factor != "" {
		return r.Factor
	}
	if len(r.Factors) > 0 {
		return r.Factors[0]
	}
	return ""
}

// RegressionRequest names the dependent column and the predictors
type RegressionRequest struct {
	TablePayload
	Dependent   string   `json:"dependent"`
	Independent []string `json:"independent"`
}

func (s *Server) handleBasicStats(c *gin.Context) {
	var req TablePayload
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, bindError(err))
		return
	}

	t, err := req.Table()
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"stats": s.engine.BasicStats(t)})
}

func (s *Server) handleAnova(c *gin.Context) {
	var req AnovaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, bindError(err))
		return
	}

	factor := req.factor()
	if factor == "" || req.Response == "" {
		s.respondError(c, errors.ValidationError("factor and response are required"))
		return
	}

	t, err := req.Table()
	if err != nil {
		s.respondError(c, err)
		return
	}

	result, err := s.engine.Anova(t, factor, req.Response)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) handleRegression(c *gin.Context) {
	var req RegressionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, bindError(err))
		return
	}

	if req.Dependent == "" {
		s.respondError(c, errors.ValidationError("dependent is required"))
		return
	}

	t, err := req.Table()
	if err != nil {
		s.respondError(c, err)
		return
	}

	result, err := s.engine.Regression(t, req.Dependent, req.Independent)
	if err != nil {
		log.Printf("[API] Regression of %q failed (request %s): %v", req.Dependent, requestIDFrom(c), err)
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
