// File: voicedesk/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"voicedesk/config"
	"voicedesk/cron"
	"voicedesk/database"
	businessRepo "voicedesk/database/repository/business"
	callRepo "voicedesk/database/repository/call"
	reservationRepo "voicedesk/database/repository/reservation"
	"voicedesk/handlers"
	"voicedesk/middleware"
	"voicedesk/routes"
	"voicedesk/services/cache"
	"voicedesk/services/cost"
	"voicedesk/services/events"
	ai "voicedesk/services/intelligence"
	"voicedesk/services/orchestrator"
	"voicedesk/services/pipeline"
	"voicedesk/services/reservation"
	"voicedesk/services/speech"
	"voicedesk/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	database.InitDB()
	utils.InitRedis()

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(middleware.RateLimitMiddleware())
	router.Use(cors.Default())

	// repositories.
	db := database.DB()
	businesses := businessRepo.NewMongoBusinessRepo(db)
	calls := callRepo.NewMongoCallRepo(db)
	reservations := reservationRepo.NewMongoReservationRepo(db)
	if err := reservations.EnsureIndexes(context.Background()); err != nil {
		logger.Sugar().Fatalf("main: failed to create reservation indexes: %v", err)
	}

	// caches.
	cacheKV := cache.NewRedisKV(utils.GetCacheClient())
	audioCache := cache.NewAudioCache(cacheKV, time.Duration(config.AppConfig.AudioCacheTTLHours)*time.Hour)
	faqCache := cache.NewFAQCache(cacheKV, time.Duration(config.AppConfig.FAQCacheTTLMinutes)*time.Minute)

	// collaborators.
	synth, err := speech.NewGoogleSynthesizer(context.Background())
	if err != nil {
		logger.Sugar().Fatalf("main: failed to initialize synthesizer: %v", err)
	}
	cachedSynth := &speech.CachedSynthesizer{Inner: synth, Cache: audioCache}

	recognizer, err := speech.NewGoogleRecognizer(context.Background())
	if err != nil {
		logger.Sugar().Fatalf("main: failed to initialize recognizer: %v", err)
	}

	responder := ai.NewGeminiResponder(config.AppConfig.GeminiAPIKey)

	responsePipeline := &pipeline.DefaultPipeline{
		Responder:       responder,
		FAQCache:        faqCache,
		ConfidenceFloor: config.AppConfig.ConfidenceFloor,
		HistoryWindow:   config.AppConfig.HistoryWindow,
	}

	arbitrator := &reservation.DefaultArbitrator{Repo: reservations}
	publisher := events.NewRedisPublisher(utils.GetEventClient())
	scheduler := cron.NewScheduler()

	orch := &orchestrator.DefaultOrchestrator{
		Sessions:   orchestrator.NewRedisSessionStore(utils.GetSessionClient()),
		Businesses: businesses,
		Pipeline:   responsePipeline,
		Arbitrator: arbitrator,
		Calls:      calls,
		Synth:      cachedSynth,
		Bus:        publisher,
		Reaper:     scheduler,
		Retrier:    scheduler,
		Rates:      cost.RatesFromConfig(),
		Settings:   orchestrator.SettingsFromConfig(),
	}

	cron.InitWorker(orch, calls)

	webhookHandler := handlers.NewWebhookHandler(orch, recognizer)
	routes.RegisterWebhookRoutes(router, webhookHandler)

	// Start the HTTP server.
	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Fatalf("main: server forced to shutdown: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
