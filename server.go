package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/retail_ledger_backend/config"
	"github.com/mmdatafocus/retail_ledger_backend/middlewares"
	"github.com/mmdatafocus/retail_ledger_backend/models"
	"github.com/mmdatafocus/retail_ledger_backend/models/reports"
	"github.com/mmdatafocus/retail_ledger_backend/utils"
	"github.com/mmdatafocus/retail_ledger_backend/workflow"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const defaultPort = "8080"

// bootHandler serves the startup probe until the application router is
// installed. Every other path answers 503.
type bootHandler struct {
	app atomic.Pointer[gin.Engine]
}

func (h *bootHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if app := h.app.Load(); app != nil {
		app.ServeHTTP(w, r)
		return
	}
	if r.URL.Path == "/healthz" {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.WriteHeader(http.StatusServiceUnavailable)
}

func openingOwnerEquity(logger *logrus.Logger) decimal.Decimal {
	v := config.OpeningOwnerEquity()
	if v == "" {
		return decimal.Zero
	}
	amount, err := utils.ParseAmount(v)
	if err != nil || amount.IsNegative() {
		logger.WithFields(logrus.Fields{"field": "capital"}).Warn("ignoring invalid OPENING_OWNER_EQUITY=" + v)
		return decimal.Zero
	}
	return amount
}

func main() {
	port := os.Getenv("API_PORT")
	if port == "" {
		// Cloud Run standard env var.
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()
	if os.Getenv("GO_ENV") == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Cloud Run sends SIGTERM on revision shutdown; handle it for graceful drain.
	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	// Start listening immediately (Cloud Run startup probe is TCP based).
	// Until DB/Redis are ready, app endpoints return 503.
	boot := &bootHandler{}
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           boot,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		// ListenAndServe returns http.ErrServerClosed on graceful shutdown.
		serverErrCh <- srv.ListenAndServe()
	}()

	// Connect dependencies after the port is open.
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()
	// AutoMigrate can run DDL that blocks tables; run it as a separate job with SKIP_MIGRATIONS=true.
	if !config.SkipMigrations() {
		if err := models.MigrateTable(db); err != nil {
			logger.WithFields(logrus.Fields{"field": "migrations"}).Fatal("migration failed: " + err.Error())
		}
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	var opts routerOptions
	var cache reports.Cache
	if config.RedisConfigured() {
		config.ConnectRedisWithRetry(sigCtx)
		if rdb := config.GetRedisDB(); rdb != nil {
			if config.DashboardCacheEnabled() {
				cache = config.NewRedisCache()
			}
			opts.Idempotency = middlewares.NewRedisIdempotencyStore(rdb, config.GetRedisLock())
			if config.RateLimitEnabled() {
				opts.RateLimiter = middlewares.NewRateLimiter(rdb, config.RateLimitPerMinute(), time.Minute)
			}
		}
	} else {
		logger.WithFields(logrus.Fields{"field": "redis"}).Warn("REDIS_ADDRESS not set; dashboard cache and idempotency keys disabled")
	}

	store := models.NewGormStore(db)
	dashboard := reports.NewDashboardService(store, cache, time.Duration(config.DashboardCacheTTLSeconds())*time.Second, logger)
	engine := workflow.NewEngine(store,
		workflow.WithLogger(logger),
		workflow.WithCommitHook(func(ctx context.Context, op workflow.Operation) {
			dashboard.Invalidate(ctx)
		}),
	)
	if _, err := engine.EnsureCapitalStructure(sigCtx, openingOwnerEquity(logger)); err != nil {
		logger.WithFields(logrus.Fields{"field": "capital"}).Fatal("capital structure: " + err.Error())
	}

	// Start outbox dispatcher (publishes AFTER commit).
	dispatcherCtx, cancelDispatcher := context.WithCancel(context.Background())
	defer cancelDispatcher()
	if config.OutboxPublishingEnabled() {
		if config.PubSubPublishingEnabled() {
			// Without topics.create permission this fails and publishing still
			// works against an existing topic.
			topicCtx, cancelTopic := context.WithTimeout(sigCtx, 30*time.Second)
			if err := config.EnsureLedgerTopic(topicCtx); err != nil {
				logger.WithFields(logrus.Fields{"field": "pubsub"}).Warn("ensure topic: " + err.Error())
			}
			cancelTopic()
		}
		dispatcher := workflow.NewOutboxDispatcher(store, workflow.NewPublisherFromConfig(logger), logger).
			WithRetrySettings(config.GetOutboxRetrySettings())
		go dispatcher.Run(dispatcherCtx)
	}

	boot.app.Store(newRouter(NewAPI(engine, dashboard, logger), logger, opts))
	logger.WithFields(logrus.Fields{
		"info": "Connection Established",
	}).Info("listening on :", port)
	log.Println("Server started successfully")

	// Block until shutdown or server error.
	select {
	case <-sigCtx.Done():
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	// Stop background workers first so they don't start new work while we're draining.
	cancelDispatcher()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}

	// Close Redis (best-effort).
	if rdb := config.GetRedisDB(); rdb != nil {
		_ = rdb.Close()
	}
}
