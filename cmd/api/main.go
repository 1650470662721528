package main

import (
	"context"
	"log"
	"os"

	_ "github.com/AniketAku/parking-management-app--sub001/api/swagger" // swagger docs
	"github.com/AniketAku/parking-management-app--sub001/internal/database"
	"github.com/AniketAku/parking-management-app--sub001/internal/handler"
	"github.com/AniketAku/parking-management-app--sub001/internal/middleware"
	"github.com/AniketAku/parking-management-app--sub001/internal/repository"
	"github.com/AniketAku/parking-management-app--sub001/internal/service"
	"github.com/AniketAku/parking-management-app--sub001/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Parking Management API
// @version         1.0
// @description     Parking facility backend: gate entries, fee rules, shifts, reports.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := godotenv.Load("configs/.env"); err != nil {
		log.Println("No configs/.env file found or error loading it")
	}

	dbHost := os.Getenv("DB_HOST")
	dbPort := os.Getenv("DB_PORT")
	dbUser := os.Getenv("DB_USER")
	dbPassword := os.Getenv("DB_PASSWORD")
	dbName := os.Getenv("DB_NAME")
	dbSslMode := os.Getenv("DB_SSLMODE")

	if dbHost == "" {
		dbHost = "localhost"
	}
	if dbPort == "" {
		dbPort = "5432"
	}
	if dbUser == "" {
		dbUser = "postgres"
	}
	if dbPassword == "" {
		dbPassword = "postgres"
	}
	if dbName == "" {
		dbName = "postgres"
	}
	if dbSslMode == "" {
		dbSslMode = "disable"
	}

	dsn := "postgres://" + dbUser + ":" + dbPassword + "@" + dbHost + ":" + dbPort + "/" + dbName + "?sslmode=" + dbSslMode

	db, err := database.NewConnection(dsn)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	log.Println("Connected to PostgreSQL successfully.")

	// Set up WebSocket Hub
	wsHub := websocket.NewHub()
	go wsHub.Run()

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	entryRepo := repository.NewEntryRepository(db)
	rateRuleRepo := repository.NewRateRuleRepository(db)
	shiftRepo := repository.NewShiftRepository(db)
	settingRepo := repository.NewSettingRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	reportRepo := repository.NewReportRepository(db)

	// Seed the rate schedule and well-known settings on first boot
	ctx := context.Background()
	if err := rateRuleRepo.SeedDefaults(ctx); err != nil {
		log.Println("WARNING: Failed to seed rate rules:", err)
	}
	if err := settingRepo.SeedDefaults(ctx); err != nil {
		log.Println("WARNING: Failed to seed settings:", err)
	}

	userService := service.NewUserService(userRepo)
	settingService := service.NewSettingService(settingRepo, auditRepo)
	feeService := service.NewFeeService(rateRuleRepo)
	rateService := service.NewRateService(rateRuleRepo, auditRepo)
	entryService := service.NewEntryService(entryRepo, shiftRepo, auditRepo, feeService, settingService, txManager, wsHub)
	shiftService := service.NewShiftService(shiftRepo, auditRepo, txManager)
	ticketService := service.NewTicketService(entryRepo, feeService, settingService)
	auditService := service.NewAuditService(auditRepo)

	// Cache, overstay threshold and week start come from settings on
	// every request; the config only carries the non-setting tunables.
	reportService := service.NewReportService(reportRepo, settingService, service.DefaultReportConfig())

	// Initialize Handlers
	userHandler := handler.NewUserHandler(userService)
	entryHandler := handler.NewEntryHandler(entryService, ticketService)
	rateHandler := handler.NewRateHandler(rateService, feeService)
	shiftHandler := handler.NewShiftHandler(shiftService)
	reportHandler := handler.NewReportHandler(reportService)
	settingHandler := handler.NewSettingHandler(settingService)
	auditHandler := handler.NewAuditHandler(auditService)

	// Set up Gin Router
	router := gin.Default()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173", "http://localhost:5174"} // Frontend URL
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, middleware.GetJWTSecret())
	})

	// Register API Routes
	userHandler.RegisterRoutes(router.Group(""))
	entryHandler.RegisterRoutes(router.Group(""))
	rateHandler.RegisterRoutes(router.Group(""))
	shiftHandler.RegisterRoutes(router.Group(""))
	reportHandler.RegisterRoutes(router.Group(""))
	settingHandler.RegisterRoutes(router.Group(""))
	auditHandler.RegisterRoutes(router.Group(""))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server listening on :%s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
