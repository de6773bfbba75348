package handler

import (
	"net/http"

	"stockino/internal/export"
	"stockino/internal/middleware"
	"stockino/internal/service"
	"stockino/pkg/pagination"
	"stockino/pkg/response"

	"github.com/gin-gonic/gin"
)

type ReceiptHandler struct {
	receiptService service.ReceiptService
	tenants        service.TenantService
	secret         []byte
}

func NewReceiptHandler(receiptService service.ReceiptService, tenants service.TenantService, secret []byte) *ReceiptHandler {
	return &ReceiptHandler{receiptService: receiptService, tenants: tenants, secret: secret}
}

func (h *ReceiptHandler) RegisterRoutes(router *gin.RouterGroup) {
	receipts := router.Group("/api/receipts")
	receipts.Use(middleware.RequireAuth(h.secret))
	{
		receipts.GET("", h.GetReceipts)
		receipts.POST("", h.CreateReceipt)
		receipts.GET("/:id", h.GetReceipt)
		receipts.DELETE("/:id", h.DeleteReceipt)
		receipts.GET("/:id/pdf", h.DownloadInvoice)
	}
}

// GetReceipts lists stock receipts
// @Summary      Get receipts
// @Tags         receipts
// @Security     BearerAuth
// @Produce      json
// @Param        type   query     string  false  "entry or exit"
// @Param        page   query     int     false  "Page number (default 1)"
// @Param        limit  query     int     false  "Number of items per page (default 20)"
// @Success      200    {object}  response.Response{data=service.ReceiptList}
// @Router       /api/receipts [get]
func (h *ReceiptHandler) GetReceipts(c *gin.Context) {
	t, ok := tenantOf(c, h.tenants)
	if !ok {
		return
	}
	p := pagination.Parse(c)
	list, err := h.receiptService.GetReceipts(c.Request.Context(), t, c.Query("type"), p.Page, p.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, list))
}

// GetReceipt returns a receipt with its lines
// @Summary      Get receipt
// @Tags         receipts
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Receipt ID"
// @Success      200  {object}  response.Response{data=service.ReceiptResponse}
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/receipts/{id} [get]
func (h *ReceiptHandler) GetReceipt(c *gin.Context) {
	t, ok := tenantOf(c, h.tenants)
	if !ok {
		return
	}
	receipt, err := h.receiptService.GetReceipt(c.Request.Context(), t, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, receipt))
}

// CreateReceipt records a stock entry or exit
// @Summary      Create receipt
// @Description  Computes subtotal, VAT and total, assigns ENT/SOR (and FAC) numbers and moves stock
// @Tags         receipts
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateReceiptRequest  true  "Receipt payload"
// @Success      201      {object}  response.Response{data=service.ReceiptResponse}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/receipts [post]
func (h *ReceiptHandler) CreateReceipt(c *gin.Context) {
	t, ok := tenantOf(c, h.tenants)
	if !ok {
		return
	}
	var req service.CreateReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	receipt, err := h.receiptService.CreateReceipt(c.Request.Context(), t, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, receipt))
}

// DeleteReceipt removes a receipt and reverses its stock effect
// @Summary      Delete receipt
// @Tags         receipts
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Receipt ID"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/receipts/{id} [delete]
func (h *ReceiptHandler) DeleteReceipt(c *gin.Context) {
	t, ok := tenantOf(c, h.tenants)
	if !ok {
		return
	}
	if err := h.receiptService.DeleteReceipt(c.Request.Context(), t, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Receipt deleted"}))
}

// DownloadInvoice renders the receipt as a PDF invoice
// @Summary      Download invoice PDF
// @Tags         receipts
// @Security     BearerAuth
// @Produce      application/pdf
// @Param        id   path  string  true  "Receipt ID"
// @Success      200  {file}    binary
// @Failure      404  {object}  response.Response
// @Router       /api/receipts/{id}/pdf [get]
func (h *ReceiptHandler) DownloadInvoice(c *gin.Context) {
	t, ok := tenantOf(c, h.tenants)
	if !ok {
		return
	}
	filename, data, err := h.receiptService.InvoicePDF(c.Request.Context(), t, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	attachment(c, filename, export.ContentTypePDF, data)
}

func attachment(c *gin.Context, filename, contentType string, data []byte) {
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, contentType, data)
}
