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

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/yourusername/spinwin-api/internal/config"
	"github.com/yourusername/spinwin-api/internal/handler"
	"github.com/yourusername/spinwin-api/internal/middleware"
	pgRepo "github.com/yourusername/spinwin-api/internal/repository/postgres"
	redisRepo "github.com/yourusername/spinwin-api/internal/repository/redis"
	"github.com/yourusername/spinwin-api/internal/service"
	"github.com/yourusername/spinwin-api/pkg/database"
)

func main() {
	// Загружаем конфигурацию
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	log.Printf("Загрузка конфигурации из %s", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		os.Exit(1)
	}

	// Инициализируем подключение к PostgreSQL
	db, err := database.NewPostgresDB(cfg.Database.PostgresConnectionString())
	if err != nil {
		log.Printf("Failed to connect to database: %v", err)
		os.Exit(1)
	}

	// Применяем миграции
	if err := database.MigrateDB(db); err != nil {
		log.Printf("Failed to migrate database: %v", err)
		os.Exit(1)
	}

	// Инициализируем подключение к Redis
	redisClient, err := database.NewUniversalRedisClient(cfg.Redis)
	if err != nil {
		log.Printf("Failed to connect to Redis: %v", err)
		os.Exit(1)
	}
	log.Println("Successfully connected to Redis")

	// Инициализируем репозитории
	campaignRepo := pgRepo.NewCampaignRepo(db)
	prizeRepo := pgRepo.NewPrizeRepo(db)
	participantRepo := pgRepo.NewParticipantRepo(db)
	leadRepo := pgRepo.NewLandingLeadRepo(db)

	cacheRepo, err := redisRepo.NewCacheRepo(redisClient)
	if err != nil {
		log.Printf("Failed to initialize CacheRepo: %v", err)
		os.Exit(1)
	}

	// Инициализируем отправку писем: без API ключа работаем в noop-режиме
	var emailService service.EmailService
	if cfg.Email.ResendAPIKey != "" {
		resendService, err := service.NewResendEmailService(cfg.Email.ResendAPIKey, cfg.Email.From, cfg.Email.AppURL)
		if err != nil {
			log.Printf("Failed to initialize ResendEmailService: %v", err)
			os.Exit(1)
		}
		emailService = resendService
		log.Println("Email: используется Resend")
	} else {
		emailService = &service.NoopEmailService{}
		log.Println("Email: RESEND_API_KEY не задан, письма не отправляются (noop)")
	}

	// Инициализируем сервисы
	lotteryService := service.NewLotteryService(nil)
	campaignService := service.NewCampaignService(campaignRepo, prizeRepo, cacheRepo)
	playService := service.NewPlayService(campaignRepo, participantRepo, prizeRepo, lotteryService, emailService)
	playService.SetStrictAccounting(cfg.Play.StrictPrizeLimits)
	if cfg.Play.StrictPrizeLimits {
		log.Println("Play: включён строгий учёт выдачи призов")
	}
	participantService := service.NewParticipantService(campaignRepo, participantRepo, leadRepo, emailService)

	// Инициализируем обработчики
	playHandler := handler.NewPlayHandler(playService, campaignService, participantService)
	campaignHandler := handler.NewCampaignHandler(campaignService, participantService)
	leadHandler := handler.NewLeadHandler(participantService)

	// Инициализируем rate limiter на Redis
	rateLimiter := middleware.NewRateLimiter(redisClient)
	playLimit := middleware.PlayRateLimitConfig(cfg.RateLimit.PlayMaxRequests, cfg.RateLimit.PlayWindowSec)

	isProduction := gin.Mode() == gin.ReleaseMode

	// Инициализируем роутер Gin
	router := gin.Default()

	// Настройка доверенных прокси для корректной работы c.ClientIP()
	// (от него зависит ключ rate limiter'а)
	if isProduction {
		// Production: не доверять прокси-заголовкам
		// Если используете load balancer, замените nil на []string{"IP_БАЛАНСИРОВЩИКА"}
		if err := router.SetTrustedProxies(nil); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	} else {
		// Development: доверяем localhost
		if err := router.SetTrustedProxies([]string{"127.0.0.1", "::1"}); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	}

	// Настройка CORS
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"https://getcontacts.app", "https://www.getcontacts.app", "http://localhost:5173", "http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Настраиваем маршруты API
	api := router.Group("/api")
	{
		// Публичная поверхность: страница игры по QR-коду
		api.GET("/board/:slug", playHandler.GetBoard)
		api.POST("/play", rateLimiter.Limit(playLimit), playHandler.Play)
		api.GET("/unsubscribe", playHandler.Unsubscribe)

		// Форма сбора email на лендинге
		api.POST("/landing-lead", rateLimiter.Limit(middleware.LeadRateLimitConfig()), leadHandler.SaveLead)

		// Управление кампаниями
		campaigns := api.Group("/campaigns")
		{
			campaigns.POST("", campaignHandler.CreateCampaign)
			campaigns.GET("", campaignHandler.ListCampaigns)

			// Группа маршрутов, требующих campaignID
			campaignWithID := campaigns.Group("/:id")
			campaignWithID.Use(middleware.ExtractUintParam("id", "campaignID")) // Применяем middleware
			{
				campaignWithID.GET("", campaignHandler.GetCampaign)
				campaignWithID.PUT("", campaignHandler.UpdateCampaign)
				campaignWithID.PUT("/active", campaignHandler.SetActive)
				campaignWithID.DELETE("", campaignHandler.DeleteCampaign)
				campaignWithID.GET("/participants", campaignHandler.GetParticipants)
				campaignWithID.GET("/participants/export", campaignHandler.ExportParticipants)
				campaignWithID.GET("/stats", campaignHandler.GetStats)
				campaignWithID.POST("/broadcast", campaignHandler.Broadcast)
			}
		}
	}

	// Настраиваем HTTP сервер с тайм-аутами для защиты от slow client attacks
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Запускаем сервер в горутине
	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Failed to start server: %v", err)
		}
	}()

	log.Printf("Server started on port %s", cfg.Server.Port)

	// Ждём SIGINT или SIGTERM для graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Создаем контекст с таймаутом для graceful shutdown сервера
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
		os.Exit(1)
	}

	if err := redisClient.Close(); err != nil {
		log.Printf("Error closing Redis client: %v", err)
	}

	log.Println("Server exited properly")
}
