package handler

import (
	"net/http"

	"stockino/internal/middleware"
	"stockino/internal/service"
	"stockino/pkg/pagination"
	"stockino/pkg/response"

	"github.com/gin-gonic/gin"
)

type AuditHandler struct {
	auditService service.AuditService
	tenants      service.TenantService
	secret       []byte
}

func NewAuditHandler(auditService service.AuditService, tenants service.TenantService, secret []byte) *AuditHandler {
	return &AuditHandler{auditService: auditService, tenants: tenants, secret: secret}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/audit-logs")
	group.Use(middleware.RequireAuth(h.secret))
	{
		group.GET("", h.GetAuditLogs)
	}
}

// GetAuditLogs lists the organization history, newest first
// @Summary      Get audit logs
// @Description  Paginated audit trail of the caller's organization (admin only)
// @Tags         audit
// @Security     BearerAuth
// @Produce      json
// @Param        page   query     int  false  "Page number (default 1)"
// @Param        limit  query     int  false  "Number of items per page (default 20)"
// @Success      200    {object}  response.Response{data=response.Page{items=[]service.AuditLogResponse}}
// @Failure      403    {object}  response.Response
// @Router       /api/audit-logs [get]
func (h *AuditHandler) GetAuditLogs(c *gin.Context) {
	t, ok := tenantOf(c, h.tenants)
	if !ok {
		return
	}
	p := pagination.Parse(c)
	logs, total, err := h.auditService.GetAuditLogs(c.Request.Context(), t, p.Page, p.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, response.Page{Items: logs, Total: total, Page: p.Page, Limit: p.Limit}))
}
