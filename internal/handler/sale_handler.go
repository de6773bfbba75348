package handler

import (
	"net/http"

	"stockino/internal/middleware"
	"stockino/internal/service"
	"stockino/pkg/pagination"
	"stockino/pkg/response"

	"github.com/gin-gonic/gin"
)

type SaleHandler struct {
	saleService service.SaleService
	tenants     service.TenantService
	secret      []byte
}

func NewSaleHandler(saleService service.SaleService, tenants service.TenantService, secret []byte) *SaleHandler {
	return &SaleHandler{saleService: saleService, tenants: tenants, secret: secret}
}

func (h *SaleHandler) RegisterRoutes(router *gin.RouterGroup) {
	sales := router.Group("/api/sales")
	sales.Use(middleware.RequireAuth(h.secret))
	{
		sales.GET("", h.GetSales)
		sales.POST("", h.CreateSale)
		sales.GET("/:id", h.GetSale)
		sales.DELETE("/:id", h.DeleteSale)
	}
}

// GetSales lists sales, newest first
// @Summary      Get sales
// @Tags         sales
// @Security     BearerAuth
// @Produce      json
// @Param        page   query     int  false  "Page number (default 1)"
// @Param        limit  query     int  false  "Number of items per page (default 20)"
// @Success      200    {object}  response.Response{data=response.Page{items=[]service.SaleResponse}}
// @Router       /api/sales [get]
func (h *SaleHandler) GetSales(c *gin.Context) {
	t, ok := tenantOf(c, h.tenants)
	if !ok {
		return
	}
	p := pagination.Parse(c)
	sales, total, err := h.saleService.GetSales(c.Request.Context(), t, p.Page, p.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, response.Page{Items: sales, Total: total, Page: p.Page, Limit: p.Limit}))
}

// GetSale returns a sale with its lines
// @Summary      Get sale
// @Tags         sales
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Sale ID"
// @Success      200  {object}  response.Response{data=service.SaleResponse}
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/sales/{id} [get]
func (h *SaleHandler) GetSale(c *gin.Context) {
	t, ok := tenantOf(c, h.tenants)
	if !ok {
		return
	}
	sale, err := h.saleService.GetSale(c.Request.Context(), t, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, sale))
}

// CreateSale records a sale and takes its quantities out of stock
// @Summary      Create sale
// @Description  All lines are applied or none; an oversold line returns 409
// @Tags         sales
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateSaleRequest  true  "Sale payload"
// @Success      201      {object}  response.Response{data=service.SaleResponse}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/sales [post]
func (h *SaleHandler) CreateSale(c *gin.Context) {
	t, ok := tenantOf(c, h.tenants)
	if !ok {
		return
	}
	var req service.CreateSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	sale, err := h.saleService.CreateSale(c.Request.Context(), t, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, sale))
}

// DeleteSale removes a sale and restores its quantities
// @Summary      Delete sale
// @Tags         sales
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Sale ID"
// @Success      200  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/sales/{id} [delete]
func (h *SaleHandler) DeleteSale(c *gin.Context) {
	t, ok := tenantOf(c, h.tenants)
	if !ok {
		return
	}
	if err := h.saleService.DeleteSale(c.Request.Context(), t, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Sale deleted"}))
}
