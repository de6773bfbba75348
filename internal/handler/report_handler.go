package handler

import (
	"net/http"
	"time"

	"stockino/internal/middleware"
	"stockino/internal/service"
	"stockino/pkg/response"

	"github.com/gin-gonic/gin"
)

type ReportHandler struct {
	reportService service.ReportService
	tenants       service.TenantService
	secret        []byte
}

func NewReportHandler(reportService service.ReportService, tenants service.TenantService, secret []byte) *ReportHandler {
	return &ReportHandler{reportService: reportService, tenants: tenants, secret: secret}
}

func (h *ReportHandler) RegisterRoutes(router *gin.RouterGroup) {
	reports := router.Group("/api/reports")
	reports.Use(middleware.RequireAuth(h.secret))
	{
		reports.GET("/stock", h.GetStockReport)
		reports.GET("/stock/export", h.ExportStockReport)
		reports.GET("/sales", h.GetSalesReport)
		reports.GET("/sales/export", h.ExportSalesReport)
		reports.GET("/dashboard", h.GetDashboard)
	}
}

// GetStockReport returns every product with its stock value
// @Summary      Stock report
// @Tags         reports
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=model.StockReport}
// @Failure      403  {object}  response.Response
// @Router       /api/reports/stock [get]
func (h *ReportHandler) GetStockReport(c *gin.Context) {
	t, ok := tenantOf(c, h.tenants)
	if !ok {
		return
	}
	report, err := h.reportService.StockReport(c.Request.Context(), t)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, report))
}

// GetSalesReport returns the sales of a date range
// @Summary      Sales report
// @Tags         reports
// @Security     BearerAuth
// @Produce      json
// @Param        start_date  query     string  true  "Start date (YYYY-MM-DD)"
// @Param        end_date    query     string  true  "End date (YYYY-MM-DD)"
// @Success      200         {object}  response.Response{data=model.SalesReport}
// @Failure      400         {object}  response.Response
// @Router       /api/reports/sales [get]
func (h *ReportHandler) GetSalesReport(c *gin.Context) {
	t, ok := tenantOf(c, h.tenants)
	if !ok {
		return
	}
	report, err := h.reportService.SalesReport(c.Request.Context(), t, c.Query("start_date"), c.Query("end_date"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, report))
}

// GetDashboard returns the landing overview
// @Summary      Dashboard
// @Tags         reports
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=model.Dashboard}
// @Router       /api/reports/dashboard [get]
func (h *ReportHandler) GetDashboard(c *gin.Context) {
	t, ok := tenantOf(c, h.tenants)
	if !ok {
		return
	}
	dash, err := h.reportService.Dashboard(c.Request.Context(), t, time.Now().UTC())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, dash))
}

// ExportStockReport downloads the stock report
// @Summary      Export stock report
// @Tags         reports
// @Security     BearerAuth
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet,application/pdf
// @Param        format  query  string  false  "xlsx (default) or pdf"
// @Success      200     {file}    binary
// @Failure      400     {object}  response.Response
// @Router       /api/reports/stock/export [get]
func (h *ReportHandler) ExportStockReport(c *gin.Context) {
	t, ok := tenantOf(c, h.tenants)
	if !ok {
		return
	}
	file, err := h.reportService.ExportStockReport(c.Request.Context(), t, c.Query("format"))
	if err != nil {
		respondError(c, err)
		return
	}
	attachment(c, file.Filename, file.ContentType, file.Data)
}

// ExportSalesReport downloads the sales report of a date range
// @Summary      Export sales report
// @Tags         reports
// @Security     BearerAuth
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet,application/pdf
// @Param        start_date  query  string  true   "Start date (YYYY-MM-DD)"
// @Param        end_date    query  string  true   "End date (YYYY-MM-DD)"
// @Param        format      query  string  false  "xlsx (default) or pdf"
// @Success      200         {file}    binary
// @Failure      400         {object}  response.Response
// @Router       /api/reports/sales/export [get]
func (h *ReportHandler) ExportSalesReport(c *gin.Context) {
	t, ok := tenantOf(c, h.tenants)
	if !ok {
		return
	}
	file, err := h.reportService.ExportSalesReport(c.Request.Context(), t, c.Query("start_date"), c.Query("end_date"), c.Query("format"))
	if err != nil {
		respondError(c, err)
		return
	}
	attachment(c, file.Filename, file.ContentType, file.Data)
}
