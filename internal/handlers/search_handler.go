package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apierrors "github.com/stwalsh4118/propsearch/internal/errors"
	"github.com/stwalsh4118/propsearch/internal/publisher"
	"github.com/stwalsh4118/propsearch/internal/services"
)

// SearchHandler runs one-shot synchronous searches.
type SearchHandler struct {
	service services.SearchService
}

// NewSearchHandler creates a new SearchHandler instance.
func NewSearchHandler(service services.SearchService) *SearchHandler {
	return &SearchHandler{service: service}
}

// Search handles POST /api/v1/search.
// A successful search, including one with no matches, answers 200 with the outcome.
func (h *SearchHandler) Search(c *gin.Context) {
	params, ok := bindSearchRequest(c)
	if !ok {
		return
	}

	result, err := h.service.Search(c.Request.Context(), params, services.Origin{})
	if err != nil {
		kind := publisher.Classify(err)
		apierrors.SearchFailed(c, kind, publisher.Message(kind, err))
		return
	}

	c.JSON(http.StatusOK, publisher.Succeeded(0, result, time.Now()))
}
