package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/relinkhq/relink/internal/model"
	"github.com/relinkhq/relink/internal/service"
)

// Handler holds HTTP handlers and dependencies.
// It follows the dependency injection pattern, receiving
// interfaces rather than concrete implementations for testability.
type Handler struct {
	linkService service.LinkServiceInterface
	db          DBInterface
	cache       CacheInterface
	logger      *slog.Logger
}

// DBInterface defines the database operations needed by the handler.
type DBInterface interface {
	Ping(ctx context.Context) error
	Close()
}

// CacheInterface defines the cache operations needed by the handler.
type CacheInterface interface {
	Ping(ctx context.Context) error
}

// NewHandler creates a new handler instance with the provided dependencies.
func NewHandler(linkService service.LinkServiceInterface, db DBInterface, cache CacheInterface, logger *slog.Logger) *Handler {
	return &Handler{
		linkService: linkService,
		db:          db,
		cache:       cache,
		logger:      logger,
	}
}

// RegisterRoutes registers all route definitions on the given Gin engine.
// The caller is responsible for creating the engine and adding middleware
// before calling this method, so middleware runs in the correct order.
// The redirect route is registered last so it never shadows API routes.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/healthz", h.healthCheck)

	links := r.Group("/api/links")
	{
		links.POST("", h.createLink)
		links.GET("", h.listLinks)
		links.GET("/:code", h.getLink)
		links.DELETE("/:code", h.deleteLink)
	}

	// Redirect route (public) - must be last to avoid conflicts
	r.GET("/:code", h.redirect)
}

// healthCheck handles GET /healthz
// Response codes:
//   - 200 OK: All dependencies are healthy
//   - 503 Service Unavailable: One or more dependencies are down
func (h *Handler) healthCheck(c *gin.Context) {
	ctx := c.Request.Context()

	cacheErr := h.cache.Ping(ctx)
	dbErr := h.db.Ping(ctx)

	status := "ok"
	code := http.StatusOK
	deps := gin.H{"cache": "up", "database": "up"}

	if cacheErr != nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
		deps["cache"] = "down"
	}
	if dbErr != nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
		deps["database"] = "down"
	}

	c.JSON(code, gin.H{"status": status, "dependencies": deps})
}

// createLink handles POST /api/links
// Request body: CreateLinkRequest (JSON); code is optional.
// Response codes:
//   - 201 Created: link registered, full record returned
//   - 400 Bad Request: missing or invalid URL
//   - 409 Conflict: code already exists
//   - 500 Internal Server Error: storage failure
func (h *Handler) createLink(c *gin.Context) {
	ctx := c.Request.Context()
	var req model.CreateLinkRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid request body",
			slog.String("error", err.Error()),
			slog.String("path", c.Request.URL.Path))
		h.errorResponse(c, http.StatusBadRequest, "URL required")
		return
	}

	link, err := h.linkService.Create(ctx, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidURL):
			h.errorResponse(c, http.StatusBadRequest, "Invalid URL")
		case errors.Is(err, service.ErrCodeExists):
			h.errorResponse(c, http.StatusConflict, "Code exists")
		case errors.Is(err, service.ErrCodeGeneration):
			h.logger.ErrorContext(ctx, "exhausted code generation retries",
				slog.String("url", req.URL))
			h.errorResponse(c, http.StatusConflict, "Could not allocate a unique code")
		default:
			h.logger.ErrorContext(ctx, "unexpected error creating link",
				slog.String("error", err.Error()))
			h.errorResponse(c, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	c.JSON(http.StatusCreated, link)
}

// listLinks handles GET /api/links
// Returns all links ordered by created_at descending.
// Response codes:
//   - 200 OK: sequence of records
//   - 500 Internal Server Error: storage failure
func (h *Handler) listLinks(c *gin.Context) {
	ctx := c.Request.Context()

	links, err := h.linkService.List(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "unexpected error listing links",
			slog.String("error", err.Error()))
		h.errorResponse(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	if links == nil {
		links = []*model.Link{}
	}
	c.JSON(http.StatusOK, links)
}

// getLink handles GET /api/links/:code
// Retrieves stats for a link without incrementing its click count.
// Response codes:
//   - 200 OK: record returned
//   - 404 Not Found: code does not exist
//   - 500 Internal Server Error: storage failure
func (h *Handler) getLink(c *gin.Context) {
	ctx := c.Request.Context()
	code := c.Param("code")

	link, err := h.linkService.Get(ctx, code)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrLinkNotFound):
			h.errorResponse(c, http.StatusNotFound, "Link not found")
		default:
			h.logger.ErrorContext(ctx, "unexpected error fetching link",
				slog.String("error", err.Error()),
				slog.String("code", code))
			h.errorResponse(c, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	c.JSON(http.StatusOK, link)
}

// deleteLink handles DELETE /api/links/:code
// Response codes:
//   - 200 OK: link deleted, ack returned
//   - 404 Not Found: code does not exist
//   - 500 Internal Server Error: storage failure
func (h *Handler) deleteLink(c *gin.Context) {
	ctx := c.Request.Context()
	code := c.Param("code")

	if _, err := h.linkService.Delete(ctx, code); err != nil {
		switch {
		case errors.Is(err, service.ErrLinkNotFound):
			h.errorResponse(c, http.StatusNotFound, "Link not found")
		default:
			h.logger.ErrorContext(ctx, "unexpected error deleting link",
				slog.String("error", err.Error()),
				slog.String("code", code))
			h.errorResponse(c, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	c.JSON(http.StatusOK, model.DeleteLinkResponse{OK: true})
}

// redirect handles GET /:code
// Resolves the code and redirects; the click counter is incremented
// atomically before the redirect is issued.
// Response codes:
//   - 302 Found: redirect to the destination URL
//   - 404 Not Found: code does not exist
//   - 500 Internal Server Error: storage failure
func (h *Handler) redirect(c *gin.Context) {
	ctx := c.Request.Context()
	code := c.Param("code")

	url, err := h.linkService.Resolve(ctx, code)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrLinkNotFound):
			h.errorResponse(c, http.StatusNotFound, "Link not found")
		default:
			h.logger.ErrorContext(ctx, "unexpected error during redirect",
				slog.String("error", err.Error()),
				slog.String("code", code))
			h.errorResponse(c, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	c.Redirect(http.StatusFound, url)
}

// errorResponse sends a standardized JSON error response.
func (h *Handler) errorResponse(c *gin.Context, status int, message string) {
	c.JSON(status, model.ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
	})
}
