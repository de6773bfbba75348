package handler

import (
	"net/http"

	"stockino/internal/middleware"
	"stockino/internal/service"
	"stockino/pkg/response"

	"github.com/gin-gonic/gin"
)

type OrganizationHandler struct {
	orgService service.OrganizationService
	tenants    service.TenantService
	secret     []byte
}

func NewOrganizationHandler(orgService service.OrganizationService, tenants service.TenantService, secret []byte) *OrganizationHandler {
	return &OrganizationHandler{orgService: orgService, tenants: tenants, secret: secret}
}

func (h *OrganizationHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/organization")
	group.Use(middleware.RequireAuth(h.secret))
	{
		group.GET("", h.GetOrganization)
		group.PUT("", h.UpsertOrganization)
	}
}

// GetOrganization returns the caller's organization
// @Summary      Get organization
// @Tags         organization
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=service.OrganizationResponse}
// @Failure      403  {object}  response.Response
// @Router       /api/organization [get]
func (h *OrganizationHandler) GetOrganization(c *gin.Context) {
	t, ok := tenantOf(c, h.tenants)
	if !ok {
		return
	}
	org, err := h.orgService.GetOrganization(c.Request.Context(), t)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, org))
}

// UpsertOrganization creates or renames the caller's organization
// @Summary      Create or update organization
// @Description  Creates the organization for a caller without one (the caller becomes admin), otherwise updates it (admin only)
// @Tags         organization
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.UpsertOrganizationRequest  true  "Organization payload"
// @Success      200      {object}  response.Response{data=service.OrganizationResponse}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Router       /api/organization [put]
func (h *OrganizationHandler) UpsertOrganization(c *gin.Context) {
	t, ok := tenantOf(c, h.tenants)
	if !ok {
		return
	}
	var req service.UpsertOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	org, err := h.orgService.UpsertOrganization(c.Request.Context(), t, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, org))
}
