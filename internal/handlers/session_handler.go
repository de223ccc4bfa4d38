package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apierrors "github.com/stwalsh4118/propsearch/internal/errors"
	"github.com/stwalsh4118/propsearch/internal/publisher"
	"github.com/stwalsh4118/propsearch/internal/services"
)

// SessionHandler exposes consumer sessions over HTTP.
type SessionHandler struct {
	manager services.SessionManager
}

// NewSessionHandler creates a new SessionHandler instance.
func NewSessionHandler(manager services.SessionManager) *SessionHandler {
	return &SessionHandler{manager: manager}
}

// SubmitResponse acknowledges an accepted submission.
type SubmitResponse struct {
	SessionID  string `json:"session_id"`
	Submission uint64 `json:"submission"`
}

// NotificationsResponse lists drained notifications.
type NotificationsResponse struct {
	Notifications []publisher.Notification `json:"notifications"`
	Count         int                      `json:"count"`
}

// Create handles POST /api/v1/sessions.
func (h *SessionHandler) Create(c *gin.Context) {
	info, err := h.manager.Create()
	if errors.Is(err, services.ErrManagerClosed) {
		apierrors.ServiceUnavailable(c, "Server is shutting down")
		return
	}
	if err != nil {
		apierrors.InternalServerError(c, "Failed to create search session", err)
		return
	}
	c.JSON(http.StatusCreated, info)
}

// Submit handles POST /api/v1/sessions/:id/searches.
func (h *SessionHandler) Submit(c *gin.Context) {
	sessionID := c.Param("id")

	params, ok := bindSearchRequest(c)
	if !ok {
		return
	}

	generation, err := h.manager.Submit(sessionID, params)
	if err != nil {
		h.sessionError(c, sessionID, err)
		return
	}

	c.JSON(http.StatusAccepted, SubmitResponse{SessionID: sessionID, Submission: generation})
}

// Get handles GET /api/v1/sessions/:id.
func (h *SessionHandler) Get(c *gin.Context) {
	sessionID := c.Param("id")

	outcome, err := h.manager.Outcome(sessionID)
	if err != nil {
		h.sessionError(c, sessionID, err)
		return
	}
	c.JSON(http.StatusOK, outcome)
}

// Notifications handles GET /api/v1/sessions/:id/notifications.
// Each notification is returned by exactly one call.
func (h *SessionHandler) Notifications(c *gin.Context) {
	sessionID := c.Param("id")

	notes, err := h.manager.Notifications(sessionID)
	if err != nil {
		h.sessionError(c, sessionID, err)
		return
	}
	c.JSON(http.StatusOK, NotificationsResponse{Notifications: notes, Count: len(notes)})
}

// Delete handles DELETE /api/v1/sessions/:id.
func (h *SessionHandler) Delete(c *gin.Context) {
	sessionID := c.Param("id")

	if err := h.manager.Teardown(sessionID); err != nil {
		h.sessionError(c, sessionID, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *SessionHandler) sessionError(c *gin.Context, sessionID string, err error) {
	if errors.Is(err, services.ErrSessionNotFound) {
		apierrors.SessionNotFound(c, sessionID)
		return
	}
	apierrors.InternalServerError(c, "Search session operation failed", err)
}
