package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"erp-service/config"
	"erp-service/internal/api"
	"erp-service/internal/broker"
	"erp-service/internal/redisclient"
	"erp-service/internal/service"
	"erp-service/internal/store"
	"erp-service/internal/util"
	"erp-service/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting ERP service")

	tp, err := util.InitTracer("erp-service", cfg.Observ.JaegerEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	db, err := store.NewStore(cfg.Database.URL,
		time.Duration(cfg.Business.LockWaitSeconds)*time.Second,
		cfg.Business.TxRetryAttempts)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Database connected")

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Redis connected")

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicEvents)
	defer producer.Close()
	log.Println("Kafka producer initialized")

	eventPublisher := broker.NewEventPublisher(producer)

	inventoryService := service.NewInventoryService(db, eventPublisher)
	billingService := service.NewBillingService(db, eventPublisher, cfg.Business.TaxRate)
	purchaseService := service.NewPurchaseService(db, inventoryService, eventPublisher, cfg.Business.DefaultWarehouseID)
	salesService := service.NewSalesService(db, inventoryService, billingService, eventPublisher, cfg.Business.DefaultWarehouseID)
	reservationService := service.NewReservationService(db, inventoryService, salesService, eventPublisher)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	projectionConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicEvents, cfg.Kafka.ConsumerGroup)
	projectionWorker := worker.NewProjectionWorker(projectionConsumer, inventoryService, redisClient)
	go func() {
		if err := projectionWorker.Start(workerCtx); err != nil {
			log.Printf("Projection worker error: %v", err)
		}
	}()

	cleanupWorker := worker.NewCleanupWorker(db, time.Hour)
	go func() {
		if err := cleanupWorker.Start(workerCtx); err != nil {
			log.Printf("Cleanup worker error: %v", err)
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	idemTTL := time.Duration(cfg.Business.IdempotencyTTLHours) * time.Hour
	handler := api.NewHandler(inventoryService, purchaseService, salesService, reservationService, billingService, redisClient, db, idemTTL)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	workerCancel()
	projectionWorker.Stop()

	log.Println("Server exited")
}
