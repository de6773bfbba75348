package main

import (
	"context"
	"log"
	"net/http"
	"strings"

	_ "stockino/api/swagger" // swagger docs
	"stockino/internal/config"
	"stockino/internal/database"
	"stockino/internal/handler"
	"stockino/internal/middleware"
	"stockino/internal/repository"
	"stockino/internal/service"
	"stockino/internal/storage"
	"stockino/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Stockino API
// @version         1.0
// @description     Multi-tenant inventory, sales and stock receipts backend.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	db, err := database.NewConnection(cfg.DSN(), cfg.DBLogLevel)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	log.Println("Connected to PostgreSQL successfully.")

	wsHub := websocket.NewHub()
	go wsHub.Run()

	objects := storage.NewLocalStorage(cfg.UploadDir, cfg.BaseURL)
	ledger := service.LedgerSettings{
		LowStockThreshold: cfg.LowStockThreshold,
		StickyArchived:    cfg.ArchivedPolicy == config.ArchivedPolicySticky,
	}

	// Repository -> Service -> Handler
	txManager := repository.NewTransactionManager(db)
	profileRepo := repository.NewProfileRepository(db)
	orgRepo := repository.NewOrganizationRepository(db)
	productRepo := repository.NewProductRepository(db)
	movementRepo := repository.NewStockMovementRepository(db)
	saleRepo := repository.NewSaleRepository(db)
	receiptRepo := repository.NewReceiptRepository(db)
	seqRepo := repository.NewSequenceRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	reportRepo := repository.NewReportRepository(db)

	tenants := service.NewTenantService(profileRepo)
	orgService := service.NewOrganizationService(orgRepo, profileRepo, auditRepo, txManager, tenants)
	authService := service.NewAuthService(profileRepo, orgRepo, txManager, orgService, cfg.JWTSecret)
	memberService := service.NewMemberService(profileRepo, auditRepo, txManager, tenants)
	productService := service.NewProductService(productRepo, movementRepo, auditRepo, txManager, tenants, objects, ledger, wsHub)
	saleService := service.NewSaleService(saleRepo, productRepo, movementRepo, auditRepo, txManager, tenants, ledger, wsHub)
	receiptService := service.NewReceiptService(receiptRepo, productRepo, movementRepo, seqRepo, orgRepo, auditRepo, txManager, tenants, ledger, cfg.DefaultVATRate, wsHub)
	reportService := service.NewReportService(productRepo, saleRepo, reportRepo, orgRepo, tenants)
	auditService := service.NewAuditService(auditRepo, tenants)

	secret := cfg.JWTSecret
	handlers := []interface{ RegisterRoutes(*gin.RouterGroup) }{
		handler.NewAuthHandler(authService, tenants, secret, middleware.CookieOptions{Secure: cfg.Release}),
		handler.NewOrganizationHandler(orgService, tenants, secret),
		handler.NewMemberHandler(memberService, tenants, secret),
		handler.NewProductHandler(productService, tenants, secret),
		handler.NewSaleHandler(saleService, tenants, secret),
		handler.NewReceiptHandler(receiptService, tenants, secret),
		handler.NewReportHandler(reportService, tenants, secret),
		handler.NewAuditHandler(auditService, tenants, secret),
	}

	if cfg.Release {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	router.MaxMultipartMemory = handler.MaxImageSize

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.ExposeHeaders = []string{"Content-Disposition"}
	router.Use(cors.New(corsConfig))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.Static(strings.TrimSuffix(storage.URLPrefix, "/"), cfg.UploadDir)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})

	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, secret, func(ctx context.Context, profileID string) (string, error) {
			t, err := tenants.Resolve(ctx, profileID)
			if err != nil {
				return "", err
			}
			orgID, err := tenants.RequireOrganization(t)
			if err != nil {
				return "", err
			}
			return orgID.String(), nil
		})
	})

	for _, h := range handlers {
		h.RegisterRoutes(router.Group(""))
	}

	log.Printf("Server listening on :%s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
