package main

import (
	"context"
	"os"

	"carcatalog/internal/database"
	"carcatalog/internal/handler"
	"carcatalog/internal/middleware"
	"carcatalog/internal/repository"
	"carcatalog/internal/service"
	"carcatalog/internal/websocket"

	_ "carcatalog/api/swagger" // swagger docs

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Car Catalog Admin API
// @version         1.0
// @description     Version-scoped automotive catalog administration: staged editing, approval workflow, discount policies and Excel ingestion.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := godotenv.Load("configs/.env"); err != nil {
		logrus.Info("no configs/.env file found, using environment")
	}

	if os.Getenv("GIN_MODE") == "release" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}

	dbHost := envOr("DB_HOST", "localhost")
	dbPort := envOr("DB_PORT", "5432")
	dbUser := envOr("DB_USER", "postgres")
	dbPassword := envOr("DB_PASSWORD", "postgres")
	dbName := envOr("DB_NAME", "carcatalog")
	dbSslMode := envOr("DB_SSLMODE", "disable")

	dsn := "postgres://" + dbUser + ":" + dbPassword + "@" + dbHost + ":" + dbPort + "/" + dbName + "?sslmode=" + dbSslMode

	db, err := database.NewConnection(dsn)
	if err != nil {
		logrus.WithError(err).Fatal("database connection failed")
	}
	logrus.Info("connected to PostgreSQL")

	middleware.InitPermissionMiddleware(db)

	wsHub := websocket.NewHub()
	go wsHub.Run()

	// Repositories
	txManager := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	versionRepo := repository.NewVersionRepository(db)
	catalogRepo := repository.NewCatalogRepository(db)
	discountRepo := repository.NewDiscountRepository(db)
	jobRepo := repository.NewJobRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	// Services
	userService := service.NewUserService(userRepo, db, middleware.GetJWTSecret())
	roleService := service.NewRoleService(roleRepo, txManager, middleware.ClearPermissionCache)
	versionService := service.NewVersionService(db, versionRepo, catalogRepo, discountRepo, jobRepo, userRepo, auditRepo, txManager, wsHub)
	catalogService := service.NewCatalogService(catalogRepo, versionRepo, auditRepo, txManager)
	searchService := service.NewSearchService(db)
	discountService := service.NewDiscountService(discountRepo, catalogRepo, versionRepo, auditRepo, txManager)
	importService := service.NewImportService(db, versionRepo, jobRepo, auditRepo, txManager, wsHub)
	statisticsService := service.NewStatisticsService(db, jobRepo)
	auditService := service.NewAuditService(auditRepo)

	if err := roleService.SeedDefaults(context.Background()); err != nil {
		logrus.WithError(err).Fatal("failed to seed roles and permissions")
	}

	// Handlers
	userHandler := handler.NewUserHandler(userService)
	roleHandler := handler.NewRoleHandler(roleService)
	versionHandler := handler.NewVersionHandler(versionService)
	stagingHandler := handler.NewStagingHandler(catalogService, searchService, importService)
	mainDBHandler := handler.NewMainDBHandler(catalogService, statisticsService)
	discountHandler := handler.NewDiscountHandler(discountService)
	statisticsHandler := handler.NewStatisticsHandler(statisticsService)
	auditHandler := handler.NewAuditHandler(auditService)

	router := gin.Default()

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173", "http://localhost:5174"}
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})

	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, middleware.GetJWTSecret())
	})

	api := router.Group("")
	userHandler.RegisterRoutes(api)
	roleHandler.RegisterRoutes(api)
	versionHandler.RegisterRoutes(api)
	stagingHandler.RegisterRoutes(api)
	mainDBHandler.RegisterRoutes(api)
	discountHandler.RegisterRoutes(api)
	statisticsHandler.RegisterRoutes(api)
	auditHandler.RegisterRoutes(api)

	port := envOr("PORT", "8080")
	logrus.WithField("port", port).Info("server listening")
	if err := router.Run(":" + port); err != nil {
		logrus.WithError(err).Fatal("server failed")
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
