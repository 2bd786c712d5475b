// file: internal/server/error_handler.go
// version: 2.1.0
// guid: 5d6e7f8a-9b0c-1d2e-3f4a-5b6c7d8e9f0a

package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/DS09AT/Shelvance-sub001/internal/database"
	"github.com/DS09AT/Shelvance-sub001/internal/engine"
	"github.com/DS09AT/Shelvance-sub001/internal/models"
	"github.com/DS09AT/Shelvance-sub001/internal/operations"
	"github.com/DS09AT/Shelvance-sub001/internal/provider"
)

// statusClientClosedRequest is reported when the caller went away before
// the providers answered.
const statusClientClosedRequest = 499

// ErrorResponse provides a consistent error response format
type ErrorResponse struct {
	Error  string `json:"error"`
	Code   string `json:"code,omitempty"`
	Status int    `json:"status"`
}

// UnavailableResponse explains an AllProvidersUnavailable outcome so the
// caller can tell open circuits from failing providers.
type UnavailableResponse struct {
	ErrorResponse
	Capability models.Capability `json:"capability"`
	Candidates int               `json:"candidates"`
	Skipped    []string          `json:"skipped"`
	Failures   []FailureView     `json:"failures"`
}

// SuccessResponse provides a consistent success response format
type SuccessResponse struct {
	Data any `json:"data,omitempty"`
}

// RespondWithError sends a standardized error response and logs the error
func RespondWithError(c *gin.Context, statusCode int, message string, code string) {
	logErrorWithContext(c, statusCode, message)

	c.JSON(statusCode, ErrorResponse{
		Error:  message,
		Code:   code,
		Status: statusCode,
	})
}

// RespondWithBadRequest sends a 400 Bad Request error response
func RespondWithBadRequest(c *gin.Context, message string) {
	RespondWithError(c, http.StatusBadRequest, message, "BAD_REQUEST")
}

// RespondWithValidationError sends a 400 error for validation failures
func RespondWithValidationError(c *gin.Context, field string, reason string) {
	message := "validation error: " + field
	if reason != "" {
		message = message + " (" + reason + ")"
	}
	RespondWithError(c, http.StatusBadRequest, message, "VALIDATION_ERROR")
}

// RespondWithNotFound sends a 404 Not Found error response
func RespondWithNotFound(c *gin.Context, resourceType string, id string) {
	message := resourceType + " not found"
	if id != "" {
		message = message + ": " + id
	}
	RespondWithError(c, http.StatusNotFound, message, "NOT_FOUND")
}

// RespondWithInternalError sends a 500 Internal Server Error response
func RespondWithInternalError(c *gin.Context, message string) {
	RespondWithError(c, http.StatusInternalServerError, message, "INTERNAL_ERROR")
}

// RespondWithConflict sends a 409 Conflict error response
func RespondWithConflict(c *gin.Context, message string) {
	RespondWithError(c, http.StatusConflict, message, "CONFLICT")
}

// RespondWithUnavailable sends a 503 with the per-provider breakdown, or a
// 500 when every provider asked is misconfigured and retrying cannot help.
func RespondWithUnavailable(c *gin.Context, uerr *engine.UnavailableError) {
	status, code := http.StatusServiceUnavailable, "ALL_PROVIDERS_UNAVAILABLE"
	if uerr.Misconfigured() {
		status, code = http.StatusInternalServerError, "PROVIDERS_MISCONFIGURED"
	}
	logErrorWithContext(c, status, uerr.Error())

	skipped := uerr.Skipped
	if skipped == nil {
		skipped = []string{}
	}
	c.JSON(status, UnavailableResponse{
		ErrorResponse: ErrorResponse{
			Error:  uerr.Error(),
			Code:   code,
			Status: status,
		},
		Capability: uerr.Capability,
		Candidates: uerr.Candidates,
		Skipped:    skipped,
		Failures:   failureViews(uerr.Failures),
	})
}

// RespondWithSuccess sends a successful response with data
func RespondWithSuccess(c *gin.Context, statusCode int, data any) {
	c.JSON(statusCode, SuccessResponse{
		Data: data,
	})
}

// RespondWithCreated sends a 201 Created response
func RespondWithCreated(c *gin.Context, data any) {
	RespondWithSuccess(c, http.StatusCreated, data)
}

// RespondWithOK sends a 200 OK response
func RespondWithOK(c *gin.Context, data any) {
	RespondWithSuccess(c, http.StatusOK, data)
}

// RespondWithNoContent sends a 204 No Content response
func RespondWithNoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// RespondWithErr maps an error from the engine, the registry or the
// operation queue to its HTTP status.
func RespondWithErr(c *gin.Context, err error) {
	var (
		verr *models.ValidationError
		uerr *engine.UnavailableError
	)
	switch {
	case errors.As(err, &verr):
		RespondWithValidationError(c, verr.Field, verr.Reason)
	case errors.As(err, &uerr):
		RespondWithUnavailable(c, uerr)
	case errors.Is(err, engine.ErrAllProvidersUnavailable):
		RespondWithError(c, http.StatusServiceUnavailable, err.Error(), "ALL_PROVIDERS_UNAVAILABLE")
	case errors.Is(err, provider.ErrProviderNotFound):
		RespondWithNotFound(c, "provider", c.Param("id"))
	case errors.Is(err, operations.ErrOperationNotFound):
		RespondWithNotFound(c, "operation", c.Param("id"))
	case errors.Is(err, engine.ErrNotFound):
		RespondWithError(c, http.StatusNotFound, err.Error(), "NO_DATA")
	case errors.Is(err, database.ErrDuplicateName):
		RespondWithConflict(c, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		RespondWithError(c, http.StatusGatewayTimeout, err.Error(), "TIMEOUT")
	case errors.Is(err, context.Canceled):
		RespondWithError(c, statusClientClosedRequest, "request canceled", "CANCELED")
	default:
		RespondWithInternalError(c, err.Error())
	}
}

// logErrorWithContext logs an error with request context for debugging
func logErrorWithContext(c *gin.Context, statusCode int, message string) {
	method := c.Request.Method
	path := c.Request.URL.Path
	clientIP := c.ClientIP()

	logLevel := "WARN"
	if statusCode >= 500 {
		logLevel = "ERROR"
	}

	log.Printf("[%s] %s %s %d - %s (from %s)", logLevel, method, path, statusCode, message, clientIP)
}

// HandleBindError handles JSON binding errors with a consistent response
func HandleBindError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}

	errMsg := err.Error()
	if strings.Contains(errMsg, "required") || strings.Contains(errMsg, "binding") {
		RespondWithValidationError(c, "request body", errMsg)
	} else {
		RespondWithBadRequest(c, "invalid request: "+errMsg)
	}
	return true
}

// ParseQueryInt parses an integer query parameter with a default value
func ParseQueryInt(c *gin.Context, key string, defaultValue int) int {
	valueStr := c.DefaultQuery(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
