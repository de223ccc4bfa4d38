// Package errors writes the JSON error envelope shared by every endpoint.
package errors

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/stwalsh4118/propsearch/internal/middleware"
	"github.com/stwalsh4118/propsearch/internal/publisher"
)

// Error code constants for standardized error responses
const (
	ErrNotFound             = "NOT_FOUND"
	ErrBadRequest           = "BAD_REQUEST"
	ErrInternalServer       = "INTERNAL_SERVER_ERROR"
	ErrValidation           = "VALIDATION_ERROR"
	ErrSessionNotFound      = "SESSION_NOT_FOUND"
	ErrSearchFailed         = "SEARCH_FAILED"
	ErrUpstream             = "UPSTREAM_ERROR"
	ErrUnrecognizedResponse = "UNRECOGNIZED_RESPONSE"
	ErrServiceUnavailable   = "SERVICE_UNAVAILABLE"
)

// ErrorResponse is the top-level error response structure.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains the error information.
type ErrorDetail struct {
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
}

func respond(c *gin.Context, status int, code, message string, details map[string]interface{}) {
	c.AbortWithStatusJSON(status, ErrorResponse{
		Error: ErrorDetail{
			Code:      code,
			Message:   message,
			Details:   details,
			RequestID: middleware.GetRequestID(c),
		},
	})
}

func warn(c *gin.Context, msg string, fields map[string]interface{}) {
	log := middleware.GetLogger(c)
	if log == nil {
		return
	}
	fields["path"] = c.Request.URL.Path
	log.Warn(msg, fields)
}

// NotFound returns a 404 Not Found error response.
func NotFound(c *gin.Context, message string) {
	warn(c, "Resource not found", map[string]interface{}{"message": message})
	respond(c, http.StatusNotFound, ErrNotFound, message, nil)
}

// SessionNotFound returns a 404 for an unknown or expired search session.
func SessionNotFound(c *gin.Context, sessionID string) {
	warn(c, "Search session not found", map[string]interface{}{"session_id": sessionID})
	respond(c, http.StatusNotFound, ErrSessionNotFound, "Search session not found or expired",
		map[string]interface{}{"session_id": sessionID})
}

// BadRequest returns a 400 Bad Request error response with optional details.
func BadRequest(c *gin.Context, message string, details map[string]interface{}) {
	fields := map[string]interface{}{"message": message}
	if details != nil {
		fields["details"] = details
	}
	warn(c, "Bad request", fields)
	respond(c, http.StatusBadRequest, ErrBadRequest, message, details)
}

// ServiceUnavailable returns a 503 when an optional feature is switched off
// or the server is shutting down.
func ServiceUnavailable(c *gin.Context, message string) {
	warn(c, "Service unavailable", map[string]interface{}{"message": message})
	respond(c, http.StatusServiceUnavailable, ErrServiceUnavailable, message, nil)
}

// InternalServerError returns a 500 response. err is logged but never sent to
// the client.
func InternalServerError(c *gin.Context, message string, err error) {
	if log := middleware.GetLogger(c); log != nil {
		log.Error("Internal server error", err, map[string]interface{}{
			"message": message,
			"path":    c.Request.URL.Path,
			"method":  c.Request.Method,
		})
	}
	respond(c, http.StatusInternalServerError, ErrInternalServer, message, nil)
}

// SearchFailed maps a failed search to its HTTP status: 400 for requests that
// could not be built, 422 for responses with no property list and 502 for
// every upstream failure.
func SearchFailed(c *gin.Context, kind publisher.ErrorKind, message string) {
	status, code := http.StatusBadGateway, ErrUpstream
	switch kind {
	case publisher.KindBuild:
		status, code = http.StatusBadRequest, ErrSearchFailed
	case publisher.KindNoRecognizedShape:
		status, code = http.StatusUnprocessableEntity, ErrUnrecognizedResponse
	}

	warn(c, "Search failed", map[string]interface{}{
		"error_kind": kind,
		"status":     status,
	})
	respond(c, status, code, message, map[string]interface{}{"error_kind": kind})
}

// ValidationError returns a 400 with one message per invalid field.
func ValidationError(c *gin.Context, validationErrors validator.ValidationErrors) {
	details := make(map[string]interface{}, len(validationErrors))
	for _, fieldErr := range validationErrors {
		details[fieldErr.Field()] = formatValidationError(fieldErr)
	}

	warn(c, "Validation error", map[string]interface{}{"fields": details})
	respond(c, http.StatusBadRequest, ErrValidation, "Validation failed for one or more fields", details)
}

// formatValidationError converts a validator.FieldError to a human-readable message.
func formatValidationError(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "This field is required"
	case "max":
		return "Value is too long (maximum: " + err.Param() + ")"
	case "min":
		return "Value is too short (minimum: " + err.Param() + ")"
	case "oneof":
		return "Must be one of: " + err.Param()
	case "required_with":
		return "Required when " + err.Param() + " is set"
	case "uuid":
		return "Must be a valid UUID"
	default:
		return "Validation failed for tag: " + err.Tag()
	}
}
