package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chemtrack/internal/config"
	"chemtrack/internal/handlers"
	"chemtrack/internal/middleware"
	"chemtrack/internal/repository"
	"chemtrack/internal/service"
	"chemtrack/pkg/database"
	"chemtrack/pkg/redis"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"golang.org/x/time/rate"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	log.Println("=== ChemTrack Backend Starting ===")

	cfg := config.Load()

	db, err := database.Connect(cfg.DB)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}()

	redisClient, err := redis.Connect(cfg.Redis)
	if err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	defer redisClient.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	// Repositories
	userRepo := repository.NewUserRepository(db)
	batchRepo := repository.NewBatchRepository(db)
	equipmentRepo := repository.NewEquipmentRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient)

	// Services
	secret := []byte(cfg.Auth.JWTSecret)
	authService := service.NewAuthService(userRepo, secret, cfg.Auth.TokenTTL)
	ingestService := service.NewIngestService(batchRepo, cacheRepo, cfg.Retention.MaxBatches)
	statsService := service.NewStatsService(batchRepo, equipmentRepo, cacheRepo, cfg.Cache.DashboardTTL)
	reportService := service.NewReportService(batchRepo, equipmentRepo)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService)
	uploadHandler := handlers.NewUploadHandler(ingestService)
	dashboardHandler := handlers.NewDashboardHandler(statsService)
	reportHandler := handlers.NewReportHandler(reportService)

	if cfg.App.Debug {
		gin.SetMode(gin.DebugMode)
		log.Println("Running in DEBUG mode")
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()
	r.Use(middleware.RequestID())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", cfg.App.FrontendURL},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	if !cfg.App.Debug {
		limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit.RequestsPerSecond), cfg.RateLimit.Burst)
		r.Use(middleware.RateLimitMiddleware(limiter))
		log.Printf("Rate limiting enabled: %d req/sec, burst: %d",
			cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	}

	api := r.Group("/api")

	api.GET("/health/", func(c *gin.Context) {
		redisStats, _ := redis.GetStats(redisClient)

		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"services": gin.H{
				"database": "connected",
				"redis":    redisStats,
			},
		})
	})

	authGroup := api.Group("/auth")
	authGroup.POST("/register/", authHandler.Register)
	authGroup.POST("/token/", authHandler.Login)

	protected := api.Group("")
	protected.Use(middleware.AuthRequired(secret))
	protected.POST("/upload/", uploadHandler.Upload)
	protected.GET("/dashboard/", dashboardHandler.Dashboard)
	protected.GET("/equipment/", dashboardHandler.Equipment)
	protected.GET("/history/", dashboardHandler.History)
	protected.GET("/report/pdf/", reportHandler.PDF)
	protected.GET("/report/excel/", reportHandler.Excel)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	server := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on http://localhost:%s", cfg.App.Port)
		log.Printf("API available at http://localhost:%s/api", cfg.App.Port)

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed to start:", err)
		}
	}()

	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited properly")
}
