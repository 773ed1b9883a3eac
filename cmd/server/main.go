// cmd/server/main.go
// HTTP Server
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-resty/resty/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/CREDVAULTLIMITED/Sunny-sub004/internal/config"
	"github.com/CREDVAULTLIMITED/Sunny-sub004/internal/dispatcher"
	"github.com/CREDVAULTLIMITED/Sunny-sub004/internal/fees"
	"github.com/CREDVAULTLIMITED/Sunny-sub004/internal/handler"
	"github.com/CREDVAULTLIMITED/Sunny-sub004/internal/ledger"
	"github.com/CREDVAULTLIMITED/Sunny-sub004/internal/models"
	"github.com/CREDVAULTLIMITED/Sunny-sub004/internal/provider"
	"github.com/CREDVAULTLIMITED/Sunny-sub004/internal/provider/momo"
	"github.com/CREDVAULTLIMITED/Sunny-sub004/internal/risk"
	"github.com/CREDVAULTLIMITED/Sunny-sub004/internal/settlement"
	"github.com/CREDVAULTLIMITED/Sunny-sub004/internal/signing"
	"github.com/CREDVAULTLIMITED/Sunny-sub004/internal/validator"
	"github.com/CREDVAULTLIMITED/Sunny-sub004/pkg/database"
	"github.com/CREDVAULTLIMITED/Sunny-sub004/pkg/logger"
	"github.com/CREDVAULTLIMITED/Sunny-sub004/pkg/middleware"
	"github.com/CREDVAULTLIMITED/Sunny-sub004/pkg/redis"
	"github.com/CREDVAULTLIMITED/Sunny-sub004/pkg/tracing"
)

func main() {
	// Initialize logger
	log := logger.NewLogger("payment-core")
	defer log.Sync()

	// Load configuration
	cfg := config.Load()
	secrets := config.RailSecrets()

	// Initialize tracing
	shutdown, err := tracing.InitTracer("payment-core", cfg.OTLPEndpoint)
	if err != nil {
		log.Fatal("failed to initialize tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// The ledger collaborator: postgres when configured, in-process otherwise.
	var txLedger ledger.Ledger = ledger.NewMemoryLedger()
	if cfg.DatabaseURL != "" {
		db, err := database.NewPostgresDB(cfg.DatabaseURL)
		if err != nil {
			log.Fatal("failed to connect to database", zap.Error(err))
		}
		defer db.Close()
		if _, err := db.Exec(models.TransitionSchema); err != nil {
			log.Fatal("failed to apply ledger schema", zap.Error(err))
		}
		txLedger = ledger.NewPostgresLedger(db.DB)
	}

	// Idempotency cache
	var cache dispatcher.IdempotencyCache
	if cfg.RedisURL != "" {
		redisClient := redis.NewRedisClient(cfg.RedisURL)
		defer redisClient.Close()
		cache = dispatcher.NewRedisCache(redisClient, log)
	}

	// Rail adapters
	httpClient := resty.New()
	registry := buildRegistry(cfg, secrets, httpClient, log)

	// Settlement channels
	settler := settlement.NewRouter(log,
		settlement.NewInternalTransfer(txLedger, log),
		settlement.NewBankPayout(httpClient, cfg.PayoutBaseURL, secrets["PAYOUT"]),
		settlement.NewMobileMoneyPayout(httpClient, cfg.PayoutBaseURL, secrets["PAYOUT"]),
		settlement.NewCryptoPayout(httpClient, cfg.PayoutBaseURL, secrets["PAYOUT"]),
	)

	// Core services
	d := dispatcher.New(dispatcher.Config{
		Validator: validator.New(),
		Assessor:  risk.NewRuleEngine(cfg.RiskThreshold, nil, log),
		Fees:      fees.NewCalculator(),
		Registry:  registry,
		Ledger:    txLedger,
		Verifier:  signing.NewVerifier(secrets),
		Cache:     cache,
		Settler:   settler,
		Logger:    log,
	})
	defer d.Close()

	// Initialize handlers
	paymentHandler := handler.NewPaymentHandler(d, txLedger, log)

	// Setup router
	router := setupRouter(paymentHandler, log)

	// Start server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info("starting server", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("server forced to shutdown", zap.Error(err))
	}

	log.Info("server exited")
}

func buildRegistry(cfg *config.Config, secrets map[string][]byte, client *resty.Client, log *zap.Logger) *provider.Registry {
	registry := provider.NewRegistry()

	card := provider.NewCardAdapter(cfg.StripeKey, log)
	registry.Register(models.MethodCard, card)
	registry.RegisterProvider("CARD", card)

	momoSecrets := make(map[string][]byte)
	for _, name := range momo.Providers() {
		if secret, ok := secrets[name]; ok {
			momoSecrets[name] = secret
		}
	}
	mobileMoney := provider.NewMobileMoneyAdapter(client, cfg.MomoBaseURL, momoSecrets, log)
	registry.Register(models.MethodMobileMoney, mobileMoney)
	for _, name := range momo.Providers() {
		registry.RegisterProvider(name, mobileMoney)
	}

	bank := provider.NewBankAdapter(client, cfg.BankBaseURL, secrets["BANK"], log)
	registry.Register(models.MethodBankTransfer, bank)
	registry.RegisterProvider("BANK", bank)

	crypto := provider.NewCryptoAdapter(client, cfg.CryptoBaseURL, secrets["CRYPTO"], defaultRates(), log)
	registry.Register(models.MethodCrypto, crypto)

	wallet := provider.NewWalletAdapter(client, cfg.WalletBaseURL, secrets["WALLET"], log)
	for _, method := range models.KnownMethods {
		if method.IsWallet() {
			registry.Register(method, wallet)
		}
	}
	registry.RegisterProvider("WALLET", wallet)

	return registry
}

func defaultRates() provider.StaticRates {
	return provider.StaticRates{
		"USD/BTC":  decimal.RequireFromString("65000"),
		"USD/ETH":  decimal.RequireFromString("3400"),
		"USD/USDT": decimal.RequireFromString("1"),
		"EUR/BTC":  decimal.RequireFromString("60000"),
		"EUR/ETH":  decimal.RequireFromString("3150"),
	}
}

func setupRouter(paymentHandler *handler.PaymentHandler, log *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	// Middleware
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))
	router.Use(middleware.CORS())
	router.Use(middleware.RateLimiter())

	// Health checks
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	router.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	// Metrics endpoint
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API routes
	v1 := router.Group("/api/v1")
	{
		payments := v1.Group("/payments")
		{
			payments.POST("", paymentHandler.CreatePayment)
			payments.GET("/:id", paymentHandler.GetPayment)
			payments.GET("/:id/history", paymentHandler.GetPaymentHistory)
			payments.POST("/:id/confirm", paymentHandler.ConfirmPayment)
			payments.POST("/:id/cancel", paymentHandler.CancelPayment)
		}

		// Asynchronous provider callbacks
		v1.POST("/webhooks/:provider", paymentHandler.ProviderCallback)
	}

	return router
}
