package handler

import (
	"errors"
	"log"
	"net/http"

	"stockino/internal/middleware"
	"stockino/internal/service"
	"stockino/pkg/response"

	"github.com/gin-gonic/gin"
)

const unexpectedMessage = "Unexpected error, please try again."

// respondError maps a service error to its HTTP status and a client-safe message.
// Unknown errors are logged and hidden behind a generic 500.
func respondError(c *gin.Context, err error) {
	var (
		validation   *service.ValidationError
		authz        *service.AuthorizationError
		notFound     *service.NotFoundError
		insufficient *service.InsufficientStockError
		external     *service.ExternalDependencyError
	)
	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, validation.Error()))
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, err.Error()))
	case errors.As(err, &authz):
		c.JSON(http.StatusForbidden, response.Error(http.StatusForbidden, authz.Error()))
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, notFound.Error()))
	case errors.As(err, &insufficient):
		c.JSON(http.StatusConflict, response.Error(http.StatusConflict, insufficient.Error()))
	case errors.As(err, &external):
		log.Printf("feature unavailable: %s: %v", external.Feature, external.Err)
		c.JSON(http.StatusServiceUnavailable, response.Error(http.StatusServiceUnavailable, external.Error()))
	default:
		log.Printf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, unexpectedMessage))
	}
}

// badRequest answers a payload that could not be bound.
func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
}

// tenantOf resolves the caller set by middleware.RequireAuth. On failure the
// response is already written and ok is false.
func tenantOf(c *gin.Context, tenants service.TenantService) (service.Tenant, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "authentication required"))
		return service.Tenant{}, false
	}
	t, err := tenants.Resolve(c.Request.Context(), userID)
	if err != nil {
		var authz *service.AuthorizationError
		if errors.As(err, &authz) {
			// A token for a deleted profile is a dead session.
			c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, authz.Error()))
			return service.Tenant{}, false
		}
		respondError(c, err)
		return service.Tenant{}, false
	}
	return t, true
}
