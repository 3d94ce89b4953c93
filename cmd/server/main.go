package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"anoa.com/ctfarena/internal/cache"
	"anoa.com/ctfarena/internal/config"
	"anoa.com/ctfarena/internal/handler"
	"anoa.com/ctfarena/internal/middleware"
	"anoa.com/ctfarena/internal/model"
	"anoa.com/ctfarena/internal/repository"
	"anoa.com/ctfarena/internal/service"
	"anoa.com/ctfarena/internal/worker"
	"anoa.com/ctfarena/pkg/database"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db := database.Connect()
	if err := migrate(db); err != nil {
		log.Fatalf("migration failed: %v", err)
	}
	if cfg.AppEnv == "development" {
		if err := seedAdminUser(db); err != nil {
			log.Fatalf("failed to seed admin user: %v", err)
		}
	}

	appCache := buildCache(cfg.RedisURL)

	userRepo := repository.NewUserRepository(db)
	challengeRepo := repository.NewChallengeRepository(db)
	bufferRepo := repository.NewBufferRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	configRepo := repository.NewConfigRepository(db)

	guard := service.NewGuard()
	userLocks := service.NewUserLocks()

	settingsService := service.NewSettingsService(configRepo, appCache)
	submissionService := service.NewSubmissionService(userRepo, challengeRepo, bufferRepo, appCache)
	hintService := service.NewHintService(userRepo, challengeRepo, bufferRepo, settingsService, appCache)
	leaderboardService := service.NewLeaderboardService(ledgerRepo, appCache, cfg.RankCacheTTL, cfg.GraphCacheTTL)
	adminService := service.NewAdminService(userRepo, challengeRepo, ledgerRepo, leaderboardService, settingsService, guard, appCache)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	flushWorker := worker.NewFlushWorker(bufferRepo, ledgerRepo, leaderboardService, guard, cfg.FlushPollInterval, cfg.GuardRetryBackoff)
	go flushWorker.Run(ctx)

	repairWorker := worker.NewRepairWorker(ledgerRepo, leaderboardService, settingsService, guard, cfg.RepairInterval)
	go repairWorker.Run(ctx)

	playHandler := handler.NewPlayHandler(submissionService, hintService, userLocks)
	leaderboardHandler := handler.NewLeaderboardHandler(leaderboardService, cfg.PublicLeaderboardCount)
	adminHandler := handler.NewAdminHandler(adminService)

	router := setupRouter(cfg, playHandler, leaderboardHandler, adminHandler)

	log.Printf("🚀 Server listening on :%s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}

func setupRouter(cfg *config.Config, play *handler.PlayHandler, leaderboard *handler.LeaderboardHandler, admin *handler.AdminHandler) *gin.Engine {
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.AllowedOrigins},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-User-ID", "X-Admin-Token"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	identity := middleware.NewIdentityMiddleware()
	api := router.Group("/api")

	// Public leaderboard views
	api.GET("/leaderboard", leaderboard.GetRanks)
	api.GET("/leaderboard/graph/top", leaderboard.GetTopGraph)

	playGroup := api.Group("/play")
	playGroup.Use(identity.RequireUser())
	{
		playGroup.POST("/submit", play.SubmitFlag)
		playGroup.POST("/hints/use", play.UseHint)
		playGroup.GET("/rank", leaderboard.GetMyRank)
		playGroup.GET("/graph", leaderboard.GetMyGraph)
	}

	adminGroup := api.Group("/admin")
	adminGroup.Use(identity.RequireAdmin())
	{
		adminGroup.POST("/users", admin.CreateUser)
		adminGroup.DELETE("/users/:id", admin.DeleteUser)
		adminGroup.POST("/categories", admin.CreateCategory)
		adminGroup.DELETE("/categories/:id", admin.DeleteCategory)
		adminGroup.POST("/challenges", admin.CreateChallenge)
		adminGroup.DELETE("/challenges/:id", admin.DeleteChallenge)
		adminGroup.POST("/hints", admin.CreateHint)
		adminGroup.DELETE("/hints/:id", admin.DeleteHint)
		adminGroup.PUT("/submissions/allow", admin.AllowSubmissions)
		adminGroup.PUT("/submissions/deny", admin.DenySubmissions)
		adminGroup.POST("/recalculate", admin.RecalculateLeaderboards)
	}

	return router
}

func migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.Category{},
		&model.Challenge{},
		&model.Hint{},
		&model.Attempt{},
		&model.Solve{},
		&model.HintUsage{},
		&model.PointsActivity{},
		&model.Configuration{},
		&model.AttemptBuffer{},
		&model.SolveBuffer{},
		&model.HintUsageBuffer{},
	)
}

func buildCache(redisURL string) cache.Cache {
	if redisURL == "" {
		log.Println("⚠️ REDIS_URL not set, using in-memory cache")
		return cache.NewMemoryCache()
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Fatalf("invalid REDIS_URL: %v", err)
	}

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}

	return cache.NewRedisCache(client)
}

func seedAdminUser(db *gorm.DB) error {
	email := os.Getenv("ADMIN_EMAIL")
	if email == "" {
		email = "admin@ctfarena.local"
	}
	password := os.Getenv("ADMIN_PASSWORD")
	if password == "" {
		password = "admin123"
	}

	var existing model.User
	err := db.First(&existing, "email = ?", email).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	admin := &model.User{
		Username:             "admin",
		Email:                email,
		PasswordHash:         string(hashed),
		VisibleOnLeaderboard: false,
	}
	if err := db.Create(admin).Error; err != nil {
		return err
	}

	log.Printf("👤 Seeded admin user %s", email)
	return nil
}
