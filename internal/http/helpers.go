package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mrlokans/readshelf/internal/auth"
	"github.com/mrlokans/readshelf/internal/backend"
	"github.com/mrlokans/readshelf/internal/library"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
)

// ErrorResponse is the error body of every API failure.
type ErrorResponse struct {
	Error    string `json:"error"`
	Code     string `json:"code,omitempty"`
	Upstream int    `json:"upstream_status,omitempty"`
}

// SuccessResponse is a standard success response with optional data.
type SuccessResponse struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: message, Code: "invalid_input"})
}

func respondSuccess(c *gin.Context, message string) {
	c.JSON(http.StatusOK, SuccessResponse{Message: message})
}

// respondLibraryError maps service errors onto HTTP statuses. Backend
// failures become 502 so callers can tell them from gateway bugs.
func respondLibraryError(c *gin.Context, err error, op string) {
	var schemaErr *library.SchemaError
	var statusErr *backend.StatusError
	var netErr *backend.NetworkError

	switch {
	case errors.Is(err, library.ErrNotAuthenticated):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: err.Error(), Code: "not_authenticated"})
	case errors.Is(err, library.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "invalid_input"})
	case errors.Is(err, library.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error(), Code: "not_found"})
	case errors.Is(err, library.ErrUnconfirmed):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error(), Code: "unconfirmed"})
	case errors.As(err, &schemaErr):
		logger.FromContext(c.Request.Context()).Err(err).Error("backend schema mismatch", logger.Data{"op": op})
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: err.Error(), Code: "schema_mismatch"})
	case errors.As(err, &statusErr):
		logger.FromContext(c.Request.Context()).Err(err).Warn("backend rejected request", logger.Data{"op": op})
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: err.Error(), Code: "upstream_error", Upstream: statusErr.StatusCode})
	case errors.As(err, &netErr):
		logger.FromContext(c.Request.Context()).Err(err).Warn("backend unreachable", logger.Data{"op": op})
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: "backend unreachable", Code: "upstream_unreachable"})
	default:
		logger.FromContext(c.Request.Context()).Err(err).Error("internal error", logger.Data{"op": op})
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}

// bearerToken extracts the token from an "Authorization: Bearer <token>" header.
func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// isAuthFailure reports whether a sign-in error is the caller's fault.
func isAuthFailure(err error) bool {
	return errors.Is(err, auth.ErrInvalidCredentials) ||
		errors.Is(err, auth.ErrRefreshRejected) ||
		errors.Is(err, auth.ErrNoRefreshToken)
}
