package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"stockino/internal/database/dbtest"
	"stockino/internal/middleware"
	"stockino/internal/repository"
	"stockino/internal/service"
	"stockino/internal/storage"
	"stockino/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRespondError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		code    int
		message string
	}{
		{"validation", &service.ValidationError{Err: service.ErrValidation, Details: "name is required"}, http.StatusBadRequest, "name is required"},
		{"credentials", service.ErrInvalidCredentials, http.StatusUnauthorized, "invalid email or password"},
		{"authorization", &service.AuthorizationError{Details: "unauthorized for this organization"}, http.StatusForbidden, "unauthorized for this organization"},
		{"not found", &service.NotFoundError{Entity: "product"}, http.StatusNotFound, "product not found"},
		{"insufficient stock", &service.InsufficientStockError{ProductName: "Tea", Requested: 5, Available: 2}, http.StatusConflict, "insufficient stock for Tea: requested 5, available 2"},
		{"external", &service.ExternalDependencyError{Feature: "receipts", Err: errors.New("relation does not exist")}, http.StatusServiceUnavailable, "receipts is currently unavailable"},
		{"wrapped validation", fmt.Errorf("create: %w", &service.ValidationError{Err: service.ErrValidation, Details: "bad"}), http.StatusBadRequest, "bad"},
		{"unknown", errors.New("connection reset by peer"), http.StatusInternalServerError, unexpectedMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/x", nil)

			respondError(c, tt.err)

			if w.Code != tt.code {
				t.Errorf("status = %d, want %d", w.Code, tt.code)
			}
			var body response.Response
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body.Status != "error" || body.Message != tt.message {
				t.Errorf("body = %+v, want message %q", body, tt.message)
			}
		})
	}
}

// testServer wires the handlers the way cmd/api does, on an in-memory database.
func testServer(t *testing.T) *gin.Engine {
	t.Helper()
	db := dbtest.Open(t)
	secret := []byte("handler-secret")
	tx := repository.NewTransactionManager(db)

	profiles := repository.NewProfileRepository(db)
	orgs := repository.NewOrganizationRepository(db)
	products := repository.NewProductRepository(db)
	movements := repository.NewStockMovementRepository(db)
	audits := repository.NewAuditRepository(db)
	sales := repository.NewSaleRepository(db)
	receipts := repository.NewReceiptRepository(db)
	reports := repository.NewReportRepository(db)
	settings := service.LedgerSettings{LowStockThreshold: 10, StickyArchived: true}

	tenants := service.NewTenantService(profiles)
	orgService := service.NewOrganizationService(orgs, profiles, audits, tx, tenants)
	authService := service.NewAuthService(profiles, orgs, tx, orgService, secret)
	productService := service.NewProductService(products, movements, audits, tx, tenants, storage.NewLocalStorage(t.TempDir(), ""), settings, nil)
	saleService := service.NewSaleService(sales, products, movements, audits, tx, tenants, settings, nil)
	receiptService := service.NewReceiptService(receipts, products, movements, repository.NewSequenceRepository(db), orgs, audits, tx, tenants, settings, decimal.NewFromInt(20), nil)
	reportService := service.NewReportService(products, sales, reports, orgs, tenants)

	router := gin.New()
	api := router.Group("")
	for _, h := range []interface{ RegisterRoutes(*gin.RouterGroup) }{
		NewAuthHandler(authService, tenants, secret, middleware.CookieOptions{}),
		NewOrganizationHandler(orgService, tenants, secret),
		NewProductHandler(productService, tenants, secret),
		NewSaleHandler(saleService, tenants, secret),
		NewReceiptHandler(receiptService, tenants, secret),
		NewReportHandler(reportService, tenants, secret),
	} {
		h.RegisterRoutes(api)
	}
	return router
}

func call(t *testing.T, router *gin.Engine, method, path, token string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	out := map[string]interface{}{}
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return w, out
}

func data(t *testing.T, body map[string]interface{}) map[string]interface{} {
	t.Helper()
	d, ok := body["data"].(map[string]interface{})
	if !ok {
		t.Fatalf("response has no data object: %v", body)
	}
	return d
}

func signUp(t *testing.T, router *gin.Engine, email, company string) string {
	t.Helper()
	payload := gin.H{"email": email, "password": "secret1"}
	if company != "" {
		payload["company"] = company
	}
	w, body := call(t, router, http.MethodPost, "/api/auth/signup", "", payload)
	if w.Code != http.StatusCreated {
		t.Fatalf("signup status = %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Header().Get("Set-Cookie"), "access_token=") {
		t.Errorf("signup did not set the session cookie")
	}
	return data(t, body)["token"].(string)
}

func TestInventoryFlow(t *testing.T) {
	router := testServer(t)
	token := signUp(t, router, "owner@shop.test", "Shop")

	w, body := call(t, router, http.MethodPost, "/api/products", token, gin.H{"name": "Coffee", "quantity": 12, "price": 10})
	if w.Code != http.StatusCreated {
		t.Fatalf("create product status = %d: %s", w.Code, w.Body.String())
	}
	productID := data(t, body)["id"].(string)

	sale := gin.H{"sale_date": "2025-03-10", "items": []gin.H{{"product_id": productID, "quantity": 5, "unit_price": 10}}}
	if w, _ := call(t, router, http.MethodPost, "/api/sales", token, sale); w.Code != http.StatusCreated {
		t.Fatalf("create sale status = %d: %s", w.Code, w.Body.String())
	}

	w, body = call(t, router, http.MethodGet, "/api/products/"+productID, token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get product status = %d", w.Code)
	}
	if p := data(t, body); p["quantity"].(float64) != 7 || p["status"] != "low_stock" {
		t.Errorf("product = %v, want 7 low_stock", p)
	}

	stale := gin.H{"name": "Coffee", "price": 10, "quantity": 12, "expected_quantity": 12}
	if w, body := call(t, router, http.MethodPut, "/api/products/"+productID, token, stale); w.Code != http.StatusBadRequest {
		t.Errorf("stale edit status = %d, want 400 (%v)", w.Code, body)
	}
	w, body = call(t, router, http.MethodPut, "/api/products/"+productID, token, gin.H{"name": "Dark Coffee", "price": 10})
	if w.Code != http.StatusOK {
		t.Fatalf("rename status = %d: %s", w.Code, w.Body.String())
	}
	if p := data(t, body); p["name"] != "Dark Coffee" || p["quantity"].(float64) != 7 {
		t.Errorf("renamed product = %v, want Dark Coffee with 7", p)
	}

	tooMuch := gin.H{"type": "exit", "receipt_date": "2025-03-11", "items": []gin.H{{"product_id": productID, "quantity": 15, "unit_price": 10}}}
	if w, body := call(t, router, http.MethodPost, "/api/receipts", token, tooMuch); w.Code != http.StatusConflict {
		t.Errorf("oversized exit status = %d, want 409 (%v)", w.Code, body)
	}

	w, _ = call(t, router, http.MethodGet, "/api/reports/stock/export?format=xlsx", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("export status = %d: %s", w.Code, w.Body.String())
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "attachment") || !strings.Contains(cd, ".xlsx") {
		t.Errorf("Content-Disposition = %q", cd)
	}
}

func TestRequestErrors(t *testing.T) {
	router := testServer(t)
	token := signUp(t, router, "owner@shop.test", "Shop")
	otherToken := signUp(t, router, "owner@other.test", "Other")

	w, body := call(t, router, http.MethodPost, "/api/products", token, gin.H{"name": "Tea", "quantity": 1})
	if w.Code != http.StatusCreated {
		t.Fatalf("create product status = %d", w.Code)
	}
	productID := data(t, body)["id"].(string)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   interface{}
		code   int
	}{
		{"no token", http.MethodGet, "/api/products", "", nil, http.StatusUnauthorized},
		{"garbage token", http.MethodGet, "/api/products", "garbage", nil, http.StatusUnauthorized},
		{"malformed payload", http.MethodPost, "/api/products", token, gin.H{"quantity": "many"}, http.StatusBadRequest},
		{"foreign product", http.MethodGet, "/api/products/" + productID, otherToken, nil, http.StatusForbidden},
		{"unknown product", http.MethodGet, "/api/products/" + uuid.NewString(), token, nil, http.StatusNotFound},
		{"empty sale", http.MethodPost, "/api/sales", token, gin.H{"sale_date": "2025-01-01", "items": []gin.H{}}, http.StatusBadRequest},
		{"wrong password", http.MethodPost, "/api/auth/signin", "", gin.H{"email": "owner@shop.test", "password": "nope123"}, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, body := call(t, router, tt.method, tt.path, tt.token, tt.body)
			if w.Code != tt.code {
				t.Errorf("status = %d, want %d (%v)", w.Code, tt.code, body)
			}
			if body["status"] != "error" {
				t.Errorf("envelope status = %v, want error", body["status"])
			}
		})
	}
}

func TestSessionGuards(t *testing.T) {
	router := testServer(t)
	token := signUp(t, router, "ghost@shop.test", "")

	// A session without organization resolves but is refused by organization routes.
	if w, _ := call(t, router, http.MethodGet, "/api/products", token, nil); w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}

	forged := mintToken(t, []byte("handler-secret"), uuid.NewString())
	if w, _ := call(t, router, http.MethodGet, "/api/organization", forged, nil); w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func mintToken(t *testing.T, secret []byte, sub string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": sub,
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(secret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}
