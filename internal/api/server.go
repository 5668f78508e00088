package api

import (
	"context"
	stderrors "errors"
	"fmt"
	"log"
	"net/http"

	"datalab/adapters/excel"
	"datalab/internal/analysis"
	"datalab/internal/config"
	"datalab/internal/errors"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

const welcomeMessage = "Welcome to JMP-like Data Processing API"

// Server exposes the import, export and analysis services over HTTP
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	config     *config.Config

	reader *excel.DataReader
	writer *excel.DataWriter
	engine *analysis.StatisticalEngine
}

// NewServer wires the services into a gin router. Call Start to listen.
func NewServer(cfg *config.Config, reader *excel.DataReader, writer *excel.DataWriter, engine *analysis.StatisticalEngine) *Server {
	s := &Server{
		router: gin.New(),
		config: cfg,
		reader: reader,
		writer: writer,
		engine: engine,
	}
	s.router.Use(gin.Logger(), gin.CustomRecovery(s.recoverPanic), RequestID())
	s.router.MaxMultipartMemory = cfg.Upload.MaxBytes()
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      s.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return s
}

// setupRoutes configures the application routes
func (s *Server) setupRoutes() {
	s.router.NoRoute(func(c *gin.Context) {
		s.respondError(c, errors.NotFound("route "+c.Request.URL.Path))
	})

	s.router.GET("/", s.handleRoot)
	s.router.GET("/health", s.handleHealth)

	importGroup := s.router.Group("/api/import")
	importGroup.POST("/csv", s.handleImport(excel.FormatCSV))
	importGroup.POST("/excel", s.handleImport(excel.FormatExcel))
	s.router.POST("/upload", s.handleUpload)

	s.router.POST("/api/export", s.handleExport)

	analysisGroup := s.router.Group("/api/analysis")
	analysisGroup.POST("/stats", s.handleBasicStats)
	analysisGroup.POST("/anova", s.handleAnova)
	analysisGroup.POST("/regression", s.handleRegression)
}

// Handler returns the router wrapped in the net/http middleware: CORS
// outermost so preflight requests never reach the size limiter.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.router
	h = middleware.RequestSize(s.config.Upload.MaxBytes())(h)
	h = cors.Handler(cors.Options{
		AllowedOrigins:   s.config.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Content-Disposition", requestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	})(h)
	return h
}

// Start listens until Shutdown is called
func (s *Server) Start() error {
	log.Printf("[API] Listening on http://localhost%s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	log.Printf("[API] Shutting down")
	return s.httpServer.Shutdown(ctx)
}

// recoverPanic answers a panicking handler with the standard 500 body
func (s *Server) recoverPanic(c *gin.Context, recovered any) {
	s.respondError(c, errors.InternalError(fmt.Sprintf("panic: %v", recovered)))
}

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": welcomeMessage})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
