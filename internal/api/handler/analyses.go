package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/deniz/checklens/internal/repository"
)

// AnalysesHandler serves the persisted analysis archive.
type AnalysesHandler struct {
	repo *repository.AnalysisRepository
}

// NewAnalysesHandler creates a new analyses handler.
// Parameters:
//   - repo: analysis archive repository.
// Returns:
//   - *AnalysesHandler: initialized handler.
func NewAnalysesHandler(repo *repository.AnalysisRepository) *AnalysesHandler {
	return &AnalysesHandler{repo: repo}
}

// ListAnalyses handles GET /api/v1/analyses with limit/offset pagination.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *AnalysesHandler) ListAnalyses(c *gin.Context) {
	limit := parseIntParam(c, "limit", 20)
	if limit < 1 || limit > 100 {
		limit = 20
	}
	offset := parseIntParam(c, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	records, err := h.repo.List(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list analyses: " + err.Error(),
		})
		return
	}

	total, err := h.repo.Count(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to count analyses: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"analyses": records,
		"total":    total,
		"limit":    limit,
		"offset":   offset,
	})
}

// GetAnalysis handles GET /api/v1/analyses/:session_id.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *AnalysesHandler) GetAnalysis(c *gin.Context) {
	record, err := h.repo.GetBySessionID(c.Request.Context(), c.Param("session_id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Analysis not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get analysis: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, record)
}

func parseIntParam(c *gin.Context, name string, def int) int {
	raw := c.Query(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}
