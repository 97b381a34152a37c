package main

import (
	"collaboard/internal/cache"
	"collaboard/internal/config"
	"collaboard/internal/live"
	"collaboard/internal/repository"
	"collaboard/internal/service"
	"collaboard/internal/transport/rest"
	"collaboard/internal/transport/ws"
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	ctx := context.Background()

	// MongoDB connection
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer mongoClient.Disconnect(ctx)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := mongoClient.Ping(pingCtx, nil); err != nil {
		log.Fatal("Failed to ping MongoDB:", err)
	}
	log.Println("Connected to MongoDB")

	db := mongoClient.Database(cfg.MongoDB)

	// Redis connection
	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
	})
	defer rdb.Close()

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Fatal("Failed to ping Redis:", err)
	}
	log.Println("Connected to Redis")

	// WebSocket hub; session events fan out through its FIFO
	wsHub := ws.NewHub()
	log.Println("WebSocket hub started")

	// Repositories and caches
	meetingRepo := repository.NewMeetingRepo(db)
	answerRepo := repository.NewAnswerRepo(db)
	archiveRepo := repository.NewArchiveRepo(db)
	sessionCache := cache.NewSessionCache(rdb, cfg.CacheTTL)

	// Authoritative live-session store, emitting through the hub
	store := live.NewStore(service.NewEventSink(wsHub))

	// Services
	authSvc := service.NewAuthService(cfg.HostUsername, cfg.HostPassword, cfg.JWTSecret)
	meetingSvc := service.NewMeetingService(meetingRepo)
	sessionSvc := service.NewSessionService(store, meetingRepo, answerRepo, archiveRepo, sessionCache, authSvc)
	sessionSvc.SetBroadcaster(wsHub)

	// Background workers
	workerCtx, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()
	go sessionSvc.RunPersister(workerCtx)
	go sessionSvc.RunSweeper(workerCtx, cfg.SweepInterval, cfg.SessionTTL)

	router := rest.NewRouter(&rest.Container{
		AuthService:    authSvc,
		MeetingService: meetingSvc,
		SessionService: sessionSvc,
		WSHub:          wsHub,
	})

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: router,
	}

	go func() {
		log.Printf("Server starting on %s", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("ListenAndServe:", err)
		}
	}()

	// Wait for interrupt
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}
