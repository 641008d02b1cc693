package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/SergeiKhy/shortify/internal/middleware"
	"github.com/SergeiKhy/shortify/internal/models"
	"github.com/SergeiKhy/shortify/internal/service"
)

type LinkHandler struct {
	service service.LinkService
	clicks  service.ClickProcessor
	logger  *zap.Logger
}

func NewLinkHandler(linkService service.LinkService, clicks service.ClickProcessor, logger *zap.Logger) *LinkHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LinkHandler{
		service: linkService,
		clicks:  clicks,
		logger:  logger,
	}
}

type CreateLinkRequest struct {
	OriginalURL string `json:"original_url" binding:"required,url"`
	CustomAlias string `json:"custom_alias,omitempty"`
	ExpiresIn   *int   `json:"expires_in,omitempty"`
	UserID      *int64 `json:"user_id,omitempty"`
}

type CreateLinkResponse struct {
	ID           int64      `json:"id"`
	ShortCode    string     `json:"short_code"`
	FullShortURL string     `json:"full_short_url"`
	OriginalURL  string     `json:"original_url"`
	QRCode       string     `json:"qr_code,omitempty"`
	IsActive     bool       `json:"is_active"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// CreateLink shortens a URL. Anonymous creation is allowed; a verified
// bearer identity overrides any user_id in the body.
func (h *LinkHandler) CreateLink(c *gin.Context) {
	var req CreateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid request body", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
		})
		return
	}

	input := &models.CreateLinkInput{
		OriginalURL: req.OriginalURL,
		ExpiresIn:   req.ExpiresIn,
		UserID:      req.UserID,
	}
	if req.CustomAlias != "" {
		input.CustomAlias = &req.CustomAlias
	}
	if identity, ok := middleware.IdentityFromContext(c); ok {
		input.UserID = &identity.UserID
	}

	created, err := h.service.CreateLink(c.Request.Context(), input)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidURL):
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_url",
				Message: "Original URL must be a valid http(s) URL",
			})
		case errors.Is(err, service.ErrInvalidAlias):
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_alias",
				Message: "Custom alias must be 3-20 characters: letters, numbers, hyphens, underscores",
			})
		case errors.Is(err, service.ErrAliasTaken):
			c.JSON(http.StatusConflict, ErrorResponse{
				Error:   "alias_taken",
				Message: "This custom alias is already taken",
			})
		case errors.Is(err, service.ErrGenerationExhausted):
			h.logger.Error("short code generation exhausted", zap.Error(err))
			c.JSON(http.StatusInternalServerError, ErrorResponse{
				Error:   "generation_exhausted",
				Message: "Failed to generate a unique short code",
			})
		default:
			h.logger.Error("failed to create link", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, ErrorResponse{
				Error:   "upstream_unavailable",
				Message: "Failed to create link",
			})
		}
		return
	}

	c.JSON(http.StatusCreated, CreateLinkResponse{
		ID:           created.Link.ID,
		ShortCode:    created.Link.ShortCode,
		FullShortURL: created.FullShortURL,
		OriginalURL:  created.Link.OriginalURL,
		QRCode:       created.QRCode,
		IsActive:     created.Link.IsActive,
		ExpiresAt:    created.Link.ExpiresAt,
		CreatedAt:    created.Link.CreatedAt,
	})
}

// Redirect resolves a short code and answers 307. Click recording is a
// fire-and-forget side channel: it runs after the target is known and its
// outcome never touches the response.
func (h *LinkHandler) Redirect(c *gin.Context) {
	code := c.Param("code")
	if isReservedSegment(code) {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "Not found",
		})
		return
	}

	resolution, err := h.service.Resolve(c.Request.Context(), code)
	if err != nil {
		h.respondResolveError(c, code, err)
		return
	}

	event := &models.ClickEvent{
		ShortCode: code,
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Referrer:  c.Request.Referer(),
	}
	if err := h.clicks.Enqueue(c.Request.Context(), event); err != nil {
		h.logger.Debug("failed to enqueue click", zap.String("code", code), zap.Error(err))
	}

	c.Redirect(http.StatusTemporaryRedirect, resolution.OriginalURL)
}

// ResolveLink is the JSON resolution surface used by sibling services.
func (h *LinkHandler) ResolveLink(c *gin.Context) {
	code := c.Param("code")

	resolution, err := h.service.Resolve(c.Request.Context(), code)
	if err != nil {
		h.respondResolveError(c, code, err)
		return
	}

	c.JSON(http.StatusOK, resolution)
}

func (h *LinkHandler) respondResolveError(c *gin.Context, code string, err error) {
	switch {
	case errors.Is(err, service.ErrLinkNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "Short URL not found",
		})
	case errors.Is(err, service.ErrLinkGone):
		c.JSON(http.StatusGone, ErrorResponse{
			Error:   "gone",
			Message: "This short URL has expired or been deactivated",
		})
	default:
		h.logger.Error("failed to resolve link", zap.String("code", code), zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error:   "upstream_unavailable",
			Message: "Failed to resolve short URL",
		})
	}
}

// DeactivateLink flips the link inactive. Ownership comes from the bearer
// identity, or from the user_id query parameter on service-to-service calls.
func (h *LinkHandler) DeactivateLink(c *gin.Context) {
	code := c.Param("code")

	var userID *int64
	if identity, ok := middleware.IdentityFromContext(c); ok {
		userID = &identity.UserID
	} else if raw := c.Query("user_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_user_id",
				Message: "user_id must be an integer",
			})
			return
		}
		userID = &id
	} else {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: "Deactivation requires a bearer token or user_id",
		})
		return
	}

	err := h.service.Deactivate(c.Request.Context(), code, userID)
	if err != nil {
		if errors.Is(err, service.ErrLinkNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "not_found",
				Message: "Short URL not found or you don't have permission",
			})
			return
		}
		h.logger.Error("failed to deactivate link", zap.String("code", code), zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to deactivate link",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "URL deactivated successfully"})
}

// ListUserLinks returns the caller's links with click totals. Self-only.
func (h *LinkHandler) ListUserLinks(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_user_id",
			Message: "User id must be an integer",
		})
		return
	}

	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: "Authentication required",
		})
		return
	}
	if identity.UserID != userID {
		c.JSON(http.StatusForbidden, ErrorResponse{
			Error:   "forbidden",
			Message: "Access denied",
		})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	links, err := h.service.ListUserLinks(c.Request.Context(), userID, limit, offset)
	if err != nil {
		h.logger.Error("failed to list user links", zap.Int64("user_id", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to fetch links",
		})
		return
	}
	if links == nil {
		links = []models.LinkStats{}
	}

	c.JSON(http.StatusOK, links)
}

// isReservedSegment keeps API and infrastructure paths from being read as
// short codes at the root of the URL space.
func isReservedSegment(segment string) bool {
	switch segment {
	case "api", "health", "docs", "openapi.json":
		return true
	}
	return false
}
