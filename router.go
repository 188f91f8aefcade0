package main

import (
	"net/http"
	"os"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/retail_ledger_backend/middlewares"
	"github.com/sirupsen/logrus"
)

type routerOptions struct {
	RateLimiter *middlewares.RateLimiter
	Idempotency middlewares.IdempotencyStore
}

func corsConfig() cors.Config {
	corsConfig := cors.DefaultConfig()
	// Production-safe CORS:
	// - In production, require explicit allowlist via CORS_ALLOWED_ORIGINS (comma-separated).
	// - In non-production, allow all (developer convenience).
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			// Safer default: deny all if not configured in production.
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "OPTIONS")
	corsConfig.AddAllowHeaders("Origin", "Content-Type", "Authorization",
		middlewares.IdempotencyKeyHeader, middlewares.CorrelationIdHeader)
	corsConfig.AddExposeHeaders("Content-Length", "Content-Disposition",
		middlewares.IdempotentReplayHeader, middlewares.CorrelationIdHeader)
	corsConfig.AllowCredentials = !corsConfig.AllowAllOrigins
	return corsConfig
}

func newRouter(api *API, logger *logrus.Logger, opts routerOptions) *gin.Engine {
	r := gin.New()
	r.Use(middlewares.CorrelationMiddleware())
	r.Use(cors.New(corsConfig()))
	if opts.RateLimiter != nil {
		r.Use(opts.RateLimiter.RateLimitMiddleware)
	}
	r.Use(customErrorLogger(logger))
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	g := r.Group("/api")
	g.Use(middlewares.IdempotencyMiddleware(opts.Idempotency, logger))
	g.POST("/sell", api.sell)
	g.POST("/restock", api.restock)
	g.POST("/add-expense", api.addExpense)
	g.POST("/distribute-profit", api.distributeProfit)
	g.POST("/reverse-sale", api.reverseSale)
	g.POST("/add-inventory", api.addInventoryItem)
	g.POST("/categories", api.createCategory)

	g.GET("/dashboard-report", api.dashboardReport)
	g.GET("/capital-structure", api.capitalStructure)
	g.GET("/categories", api.listCategories)
	g.GET("/inventory", api.listInventory)
	g.GET("/sales", api.listSales)
	g.GET("/sales/:id", api.getSale)
	g.GET("/sales-archive", api.listSalesArchive)
	g.GET("/expenses", api.listExpenses)
	g.GET("/distributions", api.listDistributions)
	g.GET("/ledger", api.listLedger)
	g.GET("/ledger/trial-balance", api.trialBalance)
	g.GET("/ledger/export", api.exportLedger)

	// Ops tooling: inspect the outbox and replay DEAD/FAILED events.
	ops := r.Group("/internal/ops")
	ops.GET("/outbox", api.listOutbox)
	ops.POST("/outbox/replay", api.replayOutbox)

	r.NoRoute(customNotFoundHandler)
	return r
}

func customNotFoundHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
}

// customErrorLogger is a custom Gin middleware that logs only errors
func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Only log when there are errors
		if len(c.Errors) > 0 {
			logger.Error(c.Errors.String())
		}
	}
}

func splitAndTrim(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
