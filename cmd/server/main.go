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

	"agent-storefront/config"
	"agent-storefront/internal/api"
	"agent-storefront/internal/attest"
	"agent-storefront/internal/broker"
	"agent-storefront/internal/chain"
	"agent-storefront/internal/fulfillment"
	"agent-storefront/internal/permastore"
	"agent-storefront/internal/redisclient"
	"agent-storefront/internal/service"
	"agent-storefront/internal/store"
	"agent-storefront/internal/util"
	"agent-storefront/internal/verify"
	"agent-storefront/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting agent storefront")

	tp, err := util.InitTracer("agent-storefront", cfg.Observ.JaegerEndpoint)
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

	db, err := store.NewStore(cfg.Database.URL)
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

	chainClient, err := chain.Dial(cfg.Chain.RPCURL)
	if err != nil {
		log.Fatalf("Failed to connect to chain RPC: %v", err)
	}
	defer chainClient.Close()
	log.Println("Chain RPC connected")

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrders)
	defer producer.Close()
	eventPublisher := broker.NewEventPublisher(producer)
	log.Println("Kafka producer initialized")

	chainTimeout := time.Duration(cfg.Chain.CallTimeoutSeconds) * time.Second

	identityVerifier, err := verify.NewIdentityVerifier(chainClient, cfg.Chain.RegistryAddress, chainTimeout)
	if err != nil {
		log.Fatalf("Failed to create identity verifier: %v", err)
	}

	paymentVerifier, err := verify.NewPaymentVerifier(
		chainClient,
		cfg.Chain.TokenAddress,
		cfg.Chain.ReceivingAddress,
		cfg.Chain.TokenDecimals,
		cfg.Chain.TolerancePercent,
		chainTimeout,
	)
	if err != nil {
		log.Fatalf("Failed to create payment verifier: %v", err)
	}

	fulfillmentClient := fulfillment.NewClient(
		cfg.Fulfillment.APIURL,
		cfg.Fulfillment.APIKey,
		time.Duration(cfg.Fulfillment.TimeoutSeconds)*time.Second,
	)

	attestTimeout := time.Duration(cfg.Attestation.TimeoutSeconds) * time.Second
	permaClient := permastore.NewClient(cfg.Attestation.PermastoreURL, attestTimeout)
	gateway := attest.NewGatewayPublisher(cfg.Attestation.GatewayURL, attestTimeout)

	minter, err := attest.NewMinter(
		permaClient,
		gateway,
		cfg.Attestation.SignerKey,
		cfg.Attestation.SchemaUID,
		cfg.Attestation.StoreName,
		cfg.Attestation.ProviderName,
		cfg.Chain.TokenAddress,
		cfg.Chain.TokenDecimals,
	)
	if err != nil {
		log.Fatalf("Failed to create receipt minter: %v", err)
	}

	customPrice, err := decimal.NewFromString(cfg.Business.CustomItemPrice)
	if err != nil {
		log.Fatalf("Invalid custom item price %q: %v", cfg.Business.CustomItemPrice, err)
	}

	replayGuard := service.NewReplayGuard(redisClient, db)
	orchestrator := service.NewOrchestrator(
		db,
		replayGuard,
		identityVerifier,
		paymentVerifier,
		fulfillmentClient,
		minter,
		eventPublisher,
		service.OrchestratorConfig{
			ChainID:          cfg.Chain.ChainID,
			TokenAddress:     cfg.Chain.TokenAddress,
			TokenDecimals:    cfg.Chain.TokenDecimals,
			ReceivingAddress: cfg.Chain.ReceivingAddress,
			CustomItemPrice:  customPrice,
		},
	)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	attestConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrders, cfg.Kafka.ConsumerGroup)
	attestWorker := worker.NewAttestationWorker(attestConsumer, db, minter)
	go func() {
		if err := attestWorker.Start(workerCtx); err != nil {
			log.Printf("Attestation worker error: %v", err)
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(orchestrator, redisClient, cfg.Business.RateLimitPerMinute)
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
	attestWorker.Stop()

	log.Println("Server exited")
}
