package sources

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pevans/booksrc/migrate"
	"github.com/rs/zerolog"
)

// maxImportBytes caps the size of an import request body.
const maxImportBytes = 16 << 20

// SourceAPIServer represents the HTTP API server for book sources and rule
// migration.
type SourceAPIServer struct {
	store  *SourceStore
	logger zerolog.Logger
}

// NewSourceAPIServer creates a new source API server.
func NewSourceAPIServer(store *SourceStore, logger zerolog.Logger) *SourceAPIServer {
	return &SourceAPIServer{
		store:  store,
		logger: logger,
	}
}

// SetupRouter configures the Gin router with all source API routes. Each
// extra function may register more routes under /api/v1.
func (s *SourceAPIServer) SetupRouter(extra ...func(*gin.RouterGroup)) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger(s.logger))

	// Add CORS middleware
	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	})

	api := router.Group("/api/v1")
	api.POST("/sources/import", s.HandleImport)
	api.GET("/sources", s.HandleListSources)
	api.GET("/sources/lookup", s.HandleGetSource)
	api.DELETE("/sources/lookup", s.HandleDeleteSource)
	api.POST("/migrate/rule", s.HandleMigrateRule)
	api.POST("/migrate/url", s.HandleMigrateURL)
	for _, register := range extra {
		register(api)
	}

	return router
}

// RequestLogger logs every request through logger, at a level that follows
// the response status.
func RequestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		c.Next()

		var event *zerolog.Event
		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			event = logger.Error()
		case status >= http.StatusBadRequest:
			event = logger.Warn()
		default:
			event = logger.Info()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", c.Writer.Status()).
			Str("ip", c.ClientIP()).
			Dur("latency", time.Since(start)).
			Msg("Request processed")
	}
}

// ListSourcesResponse represents the response for GET /api/v1/sources.
type ListSourcesResponse struct {
	Sources []StoredSource `json:"sources"`
	Total   int            `json:"total"`
}

// MigrateRuleRequest represents the request for POST /api/v1/migrate/rule.
type MigrateRuleRequest struct {
	Rule string `json:"rule"`
}

// MigrateURLRequest represents the request for POST /api/v1/migrate/url.
// List treats the URL as a newline or && separated list of URLs.
type MigrateURLRequest struct {
	URL  string `json:"url"`
	List bool   `json:"list,omitempty"`
}

// MigrateResponse carries a migrated rule or URL.
type MigrateResponse struct {
	Result string `json:"result"`
}

// errorResponse creates a standardized error response.
func errorResponse(code, message string) gin.H {
	return gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	}
}

// handleError maps domain errors to HTTP responses.
func (s *SourceAPIServer) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrSourceNotFound):
		c.JSON(http.StatusNotFound, errorResponse("not_found", err.Error()))
	case errors.Is(err, ErrMissingSourceURL), errors.Is(err, ErrInvalidDocument):
		c.JSON(http.StatusBadRequest, errorResponse("validation_error", err.Error()))
	default:
		s.logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Request failed")
		c.JSON(http.StatusInternalServerError, errorResponse("internal_error", "Failed to process request"))
	}
}

// HandleImport handles POST /api/v1/sources/import. The body is a single
// source document or an array of them, in legacy or current form.
func (s *SourceAPIServer) HandleImport(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxImportBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("bad_request", "Failed to read request body"))
		return
	}

	result, err := s.store.Import(body)
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// HandleListSources handles GET /api/v1/sources.
func (s *SourceAPIServer) HandleListSources(c *gin.Context) {
	filter := SourceFilter{}

	if group := c.Query("group"); group != "" {
		filter.Group = &group
	}

	if enabledParam := c.Query("enabled"); enabledParam != "" {
		enabled := enabledParam == "true"
		filter.Enabled = &enabled
	}

	for name, dst := range map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset} {
		if v := c.Query(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				c.JSON(http.StatusBadRequest, errorResponse("validation_error", "invalid "+name))
				return
			}
			*dst = n
		}
	}

	sources, err := s.store.ListSources(filter)
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, ListSourcesResponse{
		Sources: sources,
		Total:   len(sources),
	})
}

// HandleGetSource handles GET /api/v1/sources/lookup?url=.
func (s *SourceAPIServer) HandleGetSource(c *gin.Context) {
	url := c.Query("url")
	if url == "" {
		c.JSON(http.StatusBadRequest, errorResponse("bad_request", "url is required"))
		return
	}

	source, err := s.store.GetSource(url)
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, source)
}

// HandleDeleteSource handles DELETE /api/v1/sources/lookup?url=.
func (s *SourceAPIServer) HandleDeleteSource(c *gin.Context) {
	url := c.Query("url")
	if url == "" {
		c.JSON(http.StatusBadRequest, errorResponse("bad_request", "url is required"))
		return
	}

	if err := s.store.DeleteSource(url); err != nil {
		s.handleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// HandleMigrateRule handles POST /api/v1/migrate/rule.
func (s *SourceAPIServer) HandleMigrateRule(c *gin.Context) {
	var req MigrateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("bad_request", err.Error()))
		return
	}

	c.JSON(http.StatusOK, MigrateResponse{Result: migrate.Rule(req.Rule)})
}

// HandleMigrateURL handles POST /api/v1/migrate/url.
func (s *SourceAPIServer) HandleMigrateURL(c *gin.Context) {
	var req MigrateURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("bad_request", err.Error()))
		return
	}

	result := migrate.URL(req.URL)
	if req.List {
		result = migrate.URLs(req.URL)
	}
	c.JSON(http.StatusOK, MigrateResponse{Result: result})
}
