package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alsaadxx12/fly1234/internal/infra/gateway/accounting"
	"github.com/alsaadxx12/fly1234/internal/infra/gateway/proxy"
	whatsappgw "github.com/alsaadxx12/fly1234/internal/infra/gateway/whatsapp"
	"github.com/alsaadxx12/fly1234/internal/infra/postgres"
	infraRedis "github.com/alsaadxx12/fly1234/internal/infra/redis"
	"github.com/alsaadxx12/fly1234/internal/platform/balancesync"
	"github.com/alsaadxx12/fly1234/internal/platform/broadcast"
	"github.com/alsaadxx12/fly1234/internal/platform/buyer"
	"github.com/alsaadxx12/fly1234/internal/platform/statement"
	"github.com/alsaadxx12/fly1234/internal/platform/sysbrowser"
	"github.com/alsaadxx12/fly1234/internal/platform/ticket"
	"github.com/alsaadxx12/fly1234/internal/platform/user"
	"github.com/alsaadxx12/fly1234/internal/platform/visa"
	"github.com/alsaadxx12/fly1234/internal/platform/whatsapp"
	"github.com/alsaadxx12/fly1234/internal/transport/httpapi"
	"github.com/alsaadxx12/fly1234/internal/transport/httpapi/handler"
	"github.com/alsaadxx12/fly1234/internal/transport/httpapi/middleware"
	"github.com/alsaadxx12/fly1234/pkg/config"
	"github.com/alsaadxx12/fly1234/pkg/logger"
)

func main() {
	// Create context that listens for termination signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewDefault(cfg.Env)
	log.Info("Starting fly1234 back-office API",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	// Initialize database connection pool
	db, err := postgres.NewPool(ctx, postgres.Config{
		URL:             cfg.DatabaseURL,
		MaxConns:        int32(cfg.DBMaxConns),
		MinConns:        int32(cfg.DBMinConns),
		MaxConnLifetime: cfg.DBMaxConnLifetime,
		MaxConnIdleTime: cfg.DBMaxConnIdleTime,
	})
	if err != nil {
		log.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	log.Info("Database connection established", "max_conns", cfg.DBMaxConns)

	// Redis carries the statement cache and the change feed
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	log.Info("Redis connection established")

	feed := infraRedis.NewFeed(redisClient, log)
	statementCache := infraRedis.NewStatementCache(redisClient, cfg.StatementTTL, log)

	// Initialize repositories
	userRepo := postgres.NewUserRepository(db.Pool)
	buyerRepo := postgres.NewBuyerRepository(db.Pool)
	ticketRepo := postgres.NewTicketRepository(db.Pool)
	visaRepo := postgres.NewVisaRepository(db.Pool)
	accountRepo := postgres.NewWhatsAppAccountRepository(db.Pool)
	broadcastRepo := postgres.NewBroadcastRepository(db.Pool)

	// Initialize record services
	userSvc := user.NewService(userRepo, log)
	buyerSvc := buyer.NewService(buyerRepo, feed)
	ticketSvc := ticket.NewService(ticketRepo, feed)
	visaSvc := visa.NewService(visaRepo, feed)
	jwtSvc := middleware.NewJWTService(cfg.JWTSecret)

	// Statements are read from the accounting API page by page
	accountingClient := accounting.NewClient(cfg.AccountingBaseURL, cfg.AccountingToken, log)
	fetcher := statement.NewFetcher(accounting.NewPageSource(accountingClient), statement.FetcherConfig{
		PageSize:   cfg.StatementPageSize,
		RetryDelay: cfg.StatementRetryDelay,
	}, log)
	statementSvc := statement.NewService(fetcher, statementCache, log)
	log.Info("Statement service initialized",
		"page_size", fetcher.PageSize(),
		"cache_ttl", cfg.StatementTTL)

	// Messaging gateway, accounts and broadcasts
	gateway := whatsappgw.NewBroadcastSender(whatsappgw.NewClient(cfg.WhatsAppBaseURL, log))
	accountSvc := whatsapp.NewService(accountRepo, gateway, feed, log)
	runner := broadcast.NewRunner(gateway, broadcastRepo, cfg.BroadcastDelay, log)
	runner.SetPublisher(feed)
	log.Info("Broadcast runner initialized", "delay", cfg.BroadcastDelay)

	// Generic proxy and the system browser built on it
	var proxyHandler *handler.ProxyHandler
	var systemHandler *handler.SystemHandler
	upstreams, err := config.LoadUpstreamsConfig(cfg.UpstreamsConfigPath)
	if err != nil {
		log.Warn("Failed to load upstreams config, proxy and system browser disabled", "error", err)
	} else {
		proxyClient := proxy.NewClient(upstreams, log)
		browser := sysbrowser.NewService(proxyClient, sysbrowser.Config{
			Endpoint: cfg.SystemUsersEndpoint,
			Token:    cfg.SystemUsersToken,
		}, log)
		proxyHandler = handler.NewProxyHandler(proxyClient)
		systemHandler = handler.NewSystemHandler(browser, log)
		log.Info("Upstream proxy initialized", "upstreams", len(upstreams.Upstreams))
	}

	// Balance sync keeps the buyer list's balance column fresh
	var syncSvc *balancesync.Service
	if cfg.AccountingBaseURL != "" {
		syncCfg := balancesync.DefaultConfig()
		syncCfg.Interval = cfg.BalanceSyncInterval
		syncSvc = balancesync.NewService(syncCfg, buyerSvc, statementSvc, log)
	} else {
		log.Warn("ACCOUNTING_BASE_URL not configured, balance sync disabled")
	}

	// Initialize HTTP handlers
	healthHandler := handler.NewHealthHandler(db).
		WithCheck("redis", func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})

	routerCfg := httpapi.Config{
		Logger:           log,
		AllowedOrigins:   cfg.AllowedOrigins,
		AuthHandler:      handler.NewAuthHandler(userSvc, jwtSvc),
		BuyerHandler:     handler.NewBuyerHandler(buyerSvc, statementSvc, log),
		TicketHandler:    handler.NewTicketHandler(ticketSvc),
		VisaHandler:      handler.NewVisaHandler(visaSvc),
		WhatsAppHandler:  handler.NewWhatsAppHandler(accountSvc),
		BroadcastHandler: handler.NewBroadcastHandler(runner, accountSvc, log),
		SystemHandler:    systemHandler,
		ProxyHandler:     proxyHandler,
		ChangesHandler:   handler.NewChangesHandler(feed, log),
		HealthHandler:    healthHandler,
		JWTMiddleware:    middleware.JWTMiddleware(jwtSvc),
	}
	r := httpapi.NewRouter(routerCfg)

	// Statement streams and change feeds stay open, so there is no write timeout
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	if syncSvc != nil {
		go syncSvc.Run(ctx)
		log.Info("Balance sync started", "interval", cfg.BalanceSyncInterval)
	}

	// Start server in a goroutine
	go func() {
		log.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for termination signal
	<-ctx.Done()
	log.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if syncSvc != nil {
		syncSvc.Stop()
		log.Info("Balance sync stopped")
	}

	// Running broadcasts stop between recipients; their state is persisted
	if err := runner.Shutdown(shutdownCtx); err != nil {
		log.Error("Broadcast runner shutdown failed", "error", err)
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown failed", "error", err)
		os.Exit(1)
	}

	log.Info("Server stopped gracefully")
}
