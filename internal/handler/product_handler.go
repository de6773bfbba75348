package handler

import (
	"io"
	"net/http"

	"stockino/internal/middleware"
	"stockino/internal/service"
	"stockino/pkg/pagination"
	"stockino/pkg/response"

	"github.com/gin-gonic/gin"
)

// MaxImageSize bounds product image uploads.
const MaxImageSize = 5 << 20

type ProductHandler struct {
	productService service.ProductService
	tenants        service.TenantService
	secret         []byte
}

func NewProductHandler(productService service.ProductService, tenants service.TenantService, secret []byte) *ProductHandler {
	return &ProductHandler{productService: productService, tenants: tenants, secret: secret}
}

func (h *ProductHandler) RegisterRoutes(router *gin.RouterGroup) {
	products := router.Group("/api/products")
	products.Use(middleware.RequireAuth(h.secret))
	{
		products.GET("", h.GetProducts)
		products.POST("", h.CreateProduct)
		products.POST("/images", h.UploadImage)
		products.GET("/:id", h.GetProduct)
		products.PUT("/:id", h.UpdateProduct)
		products.DELETE("/:id", h.DeleteProduct)
		products.GET("/:id/movements", h.GetStockMovements)
	}
}

// GetProducts lists the organization's products
// @Summary      Get products
// @Description  Retrieves a paginated list of products with current stock
// @Tags         products
// @Security     BearerAuth
// @Produce      json
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Number of items per page (default 20)"
// @Param        search  query     string  false  "Search by product name"
// @Success      200    {object}  response.Response{data=response.Page{items=[]service.ProductResponse}}
// @Failure      403    {object}  response.Response
// @Router       /api/products [get]
func (h *ProductHandler) GetProducts(c *gin.Context) {
	t, ok := tenantOf(c, h.tenants)
	if !ok {
		return
	}
	p := pagination.Parse(c)
	products, total, err := h.productService.GetProducts(c.Request.Context(), t, p.Page, p.Limit, c.Query("search"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, response.Page{Items: products, Total: total, Page: p.Page, Limit: p.Limit}))
}

// GetProduct returns one product
// @Summary      Get product
// @Tags         products
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Product ID"
// @Success      200  {object}  response.Response{data=service.ProductResponse}
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/products/{id} [get]
func (h *ProductHandler) GetProduct(c *gin.Context) {
	t, ok := tenantOf(c, h.tenants)
	if !ok {
		return
	}
	product, err := h.productService.GetProduct(c.Request.Context(), t, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, product))
}

// CreateProduct adds a product to the catalog
// @Summary      Create product
// @Description  Status is derived from the quantity unless archived is requested
// @Tags         products
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateProductRequest  true  "Create Product Payload"
// @Success      201      {object}  response.Response{data=service.ProductResponse}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Router       /api/products [post]
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	t, ok := tenantOf(c, h.tenants)
	if !ok {
		return
	}
	var req service.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	product, err := h.productService.CreateProduct(c.Request.Context(), t, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, product))
}

// UpdateProduct edits a product
// @Summary      Update product
// @Tags         products
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                        true  "Product ID"
// @Param        payload  body      service.UpdateProductRequest  true  "Update Product Payload"
// @Success      200      {object}  response.Response{data=service.ProductResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/products/{id} [put]
func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	t, ok := tenantOf(c, h.tenants)
	if !ok {
		return
	}
	var req service.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	product, err := h.productService.UpdateProduct(c.Request.Context(), t, c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, product))
}

// DeleteProduct removes a product
// @Summary      Delete product
// @Tags         products
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Product ID"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/products/{id} [delete]
func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	t, ok := tenantOf(c, h.tenants)
	if !ok {
		return
	}
	if err := h.productService.DeleteProduct(c.Request.Context(), t, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Product deleted"}))
}

// UploadImage stores a product image and returns its public URL
// @Summary      Upload product image
// @Tags         products
// @Security     BearerAuth
// @Accept       multipart/form-data
// @Produce      json
// @Param        file  formData  file  true  "Image (png, jpg, jpeg, gif, webp)"
// @Success      201   {object}  response.Response{data=object}
// @Failure      400   {object}  response.Response
// @Failure      503   {object}  response.Response
// @Router       /api/products/images [post]
func (h *ProductHandler) UploadImage(c *gin.Context) {
	t, ok := tenantOf(c, h.tenants)
	if !ok {
		return
	}
	file, err := c.FormFile("file")
	if err != nil {
		badRequest(c, err)
		return
	}
	if file.Size > MaxImageSize {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "image exceeds 5 MB"))
		return
	}
	f, err := file.Open()
	if err != nil {
		respondError(c, err)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, MaxImageSize+1))
	if err != nil {
		respondError(c, err)
		return
	}

	url, err := h.productService.UploadImage(c.Request.Context(), t, file.Filename, data)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, gin.H{"url": url}))
}

// GetStockMovements lists the stock history of a product
// @Summary      Get stock movements
// @Tags         products
// @Security     BearerAuth
// @Produce      json
// @Param        id     path      string  true   "Product ID"
// @Param        page   query     int     false  "Page number (default 1)"
// @Param        limit  query     int     false  "Number of items per page (default 20)"
// @Success      200    {object}  response.Response{data=response.Page{items=[]service.StockMovementResponse}}
// @Failure      404    {object}  response.Response
// @Router       /api/products/{id}/movements [get]
func (h *ProductHandler) GetStockMovements(c *gin.Context) {
	t, ok := tenantOf(c, h.tenants)
	if !ok {
		return
	}
	p := pagination.Parse(c)
	movements, total, err := h.productService.GetStockMovements(c.Request.Context(), t, c.Param("id"), p.Page, p.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, response.Page{Items: movements, Total: total, Page: p.Page, Limit: p.Limit}))
}
