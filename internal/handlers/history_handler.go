package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	apierrors "github.com/stwalsh4118/propsearch/internal/errors"
	"github.com/stwalsh4118/propsearch/internal/models"
	"github.com/stwalsh4118/propsearch/internal/repository"
)

// DefaultHistoryLimit is used when the request has no limit.
const DefaultHistoryLimit = 20

// HistoryHandler serves recent search history.
type HistoryHandler struct {
	repo repository.HistoryRepository
}

// NewHistoryHandler creates a HistoryHandler. repo is nil when history is disabled.
func NewHistoryHandler(repo repository.HistoryRepository) *HistoryHandler {
	return &HistoryHandler{repo: repo}
}

// HistoryRequest represents the query parameters for the history endpoint.
type HistoryRequest struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=200"`
}

// HistoryResponse lists recent searches, newest first.
type HistoryResponse struct {
	Searches []models.SearchHistoryEntry `json:"searches"`
	Count    int                         `json:"count"`
}

// Recent handles GET /api/v1/searches/history.
func (h *HistoryHandler) Recent(c *gin.Context) {
	if h.repo == nil {
		apierrors.ServiceUnavailable(c, "Search history is not enabled")
		return
	}

	var req HistoryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			apierrors.ValidationError(c, validationErrors)
			return
		}
		apierrors.BadRequest(c, "Invalid query parameters", nil)
		return
	}
	if req.Limit == 0 {
		req.Limit = DefaultHistoryLimit
	}

	entries, err := h.repo.Recent(c.Request.Context(), req.Limit)
	if err != nil {
		apierrors.InternalServerError(c, "Failed to load search history", err)
		return
	}

	c.JSON(http.StatusOK, HistoryResponse{Searches: entries, Count: len(entries)})
}
