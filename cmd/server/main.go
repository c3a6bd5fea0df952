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

	"fitcoach/fitness-app/internal/api"
	"fitcoach/fitness-app/internal/cache"
	"fitcoach/fitness-app/internal/config"
	"fitcoach/fitness-app/internal/repository/mongo"
	"fitcoach/fitness-app/internal/service"
	"fitcoach/fitness-app/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron"
)

func main() {
	log.Println("Starting FitCoach scheduling server...")

	// --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("FATAL: Could not load config: %v", err)
	}
	log.Println("Configuration loaded.")

	// --- Database Connection ---
	dbClient, err := mongo.ConnectDB(cfg.Database.URI)
	if err != nil {
		log.Fatalf("FATAL: Could not connect to MongoDB: %v", err)
	}
	defer func() {
		log.Println("Disconnecting MongoDB...")
		if err := mongo.DisconnectDB(dbClient); err != nil {
			log.Printf("ERROR: Failed to disconnect MongoDB: %v", err)
		}
	}()
	appDB := dbClient.Database(cfg.Database.Name)
	log.Println("Database connection established.")

	// --- Ensure Indexes ---
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
		defer cancel()
		mongo.EnsureUserIndexes(ctx, appDB.Collection("users"))
		mongo.EnsureProgramIndexes(ctx, appDB.Collection("programs"))
		mongo.EnsureTemplateIndexes(ctx, appDB.Collection("workout_templates"))
		mongo.EnsureCompletionIndexes(ctx, appDB.Collection("completions"))
		mongo.EnsureNoticeIndexes(ctx, appDB.Collection("notices"))
		mongo.EnsureUploadIndexes(ctx, appDB.Collection("uploads"))
		log.Println("Index creation process completed.")
	}()

	// --- Initialize Storage ---
	fileStorage, err := storage.NewS3Storage(cfg.S3)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize S3 storage: %v", err)
	}

	// --- Initialize Repositories ---
	userRepo := mongo.NewMongoUserRepository(appDB)
	programRepo := mongo.NewMongoProgramRepository(appDB)
	templateRepo := mongo.NewMongoTemplateRepository(appDB)
	completionRepo := mongo.NewMongoCompletionRepository(appDB)
	noticeRepo := mongo.NewMongoNoticeRepository(appDB)
	uploadRepo := mongo.NewMongoUploadRepository(appDB)

	// --- Initialize Cache ---
	programCache := cache.NewManager(programRepo, templateRepo, cfg.Cache.ProgramTTL, cfg.Cache.Dir)

	// --- Initialize Services ---
	anchor := time.Weekday(cfg.Schedule.AnchorWeekday)

	authService := service.NewAuthService(userRepo, cfg.JWT.Secret, cfg.JWT.Expiration)
	trainerService := service.NewTrainerService(userRepo, programRepo, templateRepo, noticeRepo)
	planService := service.NewPlanService(userRepo, programRepo, programCache, anchor)
	scheduleService := service.NewScheduleService(userRepo, completionRepo, programCache, planService, anchor)
	completionService := service.NewCompletionService(userRepo, completionRepo, noticeRepo, programRepo, uploadRepo, scheduleService, fileStorage)

	// --- Promotion Sweep ---
	// Promotions also happen lazily on every read path; the sweep keeps the
	// queue moving for clients who haven't opened the app since their plan
	// ended.
	sweeper := cron.New()
	err = sweeper.AddFunc(cfg.Schedule.PromotionSweep, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		report, err := planService.SweepDuePromotions(ctx)
		if err != nil {
			log.Printf("ERROR: promotion sweep aborted: %v", err)
			return
		}
		log.Printf("Promotion sweep: examined=%d promoted=%d failed=%d", report.Examined, report.Promoted, report.Failed)
	})
	if err != nil {
		log.Fatalf("FATAL: Invalid promotion sweep schedule %q: %v", cfg.Schedule.PromotionSweep, err)
	}
	sweeper.Start()
	defer sweeper.Stop()

	// --- Initialize Gin Engine ---
	router := gin.Default()

	api.SetupRoutes(router, cfg.JWT.Secret, authService, trainerService, planService, scheduleService, completionService, programCache)

	// --- Start HTTP Server ---
	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Server starting on %s", cfg.Server.Address)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("FATAL: ListenAndServe Error: %v", err)
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("FATAL: Server forced to shutdown: %v", err)
	}

	log.Println("Server exited.")
}
