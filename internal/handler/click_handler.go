package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/SergeiKhy/shortify/internal/models"
	"github.com/SergeiKhy/shortify/internal/service"
)

type ClickHandler struct {
	clicks service.ClickProcessor
	logger *zap.Logger
}

func NewClickHandler(clicks service.ClickProcessor, logger *zap.Logger) *ClickHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClickHandler{
		clicks: clicks,
		logger: logger,
	}
}

type TrackRequest struct {
	ShortCode string `json:"short_code" binding:"required"`
	IPAddress string `json:"ip_address,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
	Referrer  string `json:"referrer,omitempty"`
	Country   string `json:"country,omitempty"`
}

// Track records a click synchronously: 201 with the click id, or 404 when
// the short code is unknown.
func (h *ClickHandler) Track(c *gin.Context) {
	var req TrackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
		})
		return
	}

	click, err := h.clicks.Track(c.Request.Context(), &models.ClickEvent{
		ShortCode: req.ShortCode,
		IPAddress: req.IPAddress,
		UserAgent: req.UserAgent,
		Referrer:  req.Referrer,
		Country:   req.Country,
	})
	if err != nil {
		if errors.Is(err, service.ErrLinkNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "not_found",
				Message: "Short URL not found",
			})
			return
		}
		h.logger.Error("failed to track click", zap.String("code", req.ShortCode), zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to track click",
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":    "Click tracked successfully",
		"click_id":   click.ID,
		"clicked_at": click.ClickedAt,
	})
}

// GetStats serves exact statistics derived from the durable click log.
func (h *ClickHandler) GetStats(c *gin.Context) {
	code := c.Param("code")

	stats, err := h.clicks.GetStats(c.Request.Context(), code)
	if err != nil {
		if errors.Is(err, service.ErrLinkNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "not_found",
				Message: "Short URL not found",
			})
			return
		}
		h.logger.Error("failed to get stats", zap.String("code", code), zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to fetch stats",
		})
		return
	}

	c.JSON(http.StatusOK, stats)
}

func (h *ClickHandler) GetDailyStats(c *gin.Context) {
	code := c.Param("code")

	days, err := strconv.Atoi(c.DefaultQuery("days", "7"))
	if err != nil || days < 1 || days > 90 {
		days = 7
	}

	stats, err := h.clicks.GetDailyStats(c.Request.Context(), code, days)
	if err != nil {
		h.logger.Error("failed to get daily stats", zap.String("code", code), zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to fetch daily stats",
		})
		return
	}
	if stats == nil {
		stats = []models.DailyClickStats{}
	}

	c.JSON(http.StatusOK, stats)
}

// GetRealtimeStats serves the best-effort Redis counters. The response is
// approximate: the authoritative numbers live in /stats.
func (h *ClickHandler) GetRealtimeStats(c *gin.Context) {
	code := c.Param("code")

	snapshot, err := h.clicks.GetRealtimeStats(c.Request.Context(), code)
	if err != nil {
		h.logger.Error("failed to read counters", zap.String("code", code), zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to fetch realtime stats",
		})
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

// PurgeClicks deletes a link's click history and resets its counters.
func (h *ClickHandler) PurgeClicks(c *gin.Context) {
	code := c.Param("code")

	deleted, err := h.clicks.PurgeClicks(c.Request.Context(), code)
	if err != nil {
		if errors.Is(err, service.ErrLinkNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "not_found",
				Message: "Short URL not found",
			})
			return
		}
		h.logger.Error("failed to purge clicks", zap.String("code", code), zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to purge clicks",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":         "Analytics data deleted successfully",
		"deleted_records": deleted,
	})
}
