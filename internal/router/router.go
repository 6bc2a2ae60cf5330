package router

import (
	"fmt"
	"strings"

	"github.com/emmetteckard/smartquote-b2b/internal/cache"
	"github.com/emmetteckard/smartquote-b2b/internal/config"
	apihandlers "github.com/emmetteckard/smartquote-b2b/internal/http/handlers/api"
	"github.com/emmetteckard/smartquote-b2b/internal/logger"
	"github.com/emmetteckard/smartquote-b2b/internal/provider"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	handler := apihandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "sq"
	}
	redisClient := cache.Client()
	writeRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:write", redisPrefix),
		WindowSeconds: cfg.RateLimit.WindowSeconds,
		MaxRequests:   cfg.RateLimit.MaxRequests,
	}
	if !cfg.RateLimit.Enabled {
		writeRule.MaxRequests = 0
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(MetricsMiddleware())
	r.Use(CORSMiddleware(cfg.CORS))
	r.Use(ActorIDMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	apiV1 := r.Group("/api/v1")
	{
		// 商品目录
		apiV1.GET("/products", handler.ListProducts)
		apiV1.GET("/products/:id", handler.GetProduct)
		apiV1.POST("/products", RateLimitMiddleware(redisClient, writeRule, KeyByIP), handler.CreateProduct)
		apiV1.PUT("/products/:id", handler.UpdateProduct)
		apiV1.GET("/products/:id/components", handler.GetComponents)
		apiV1.POST("/products/:id/components", handler.AddComponent)
		apiV1.PUT("/products/:id/components", handler.ReplaceComponents)

		// 价格台账
		apiV1.GET("/products/:id/prices", handler.GetTierPrices)
		apiV1.PUT("/products/:id/prices", handler.SetBasePrice)
		apiV1.GET("/prices/resolve", handler.ResolvePrice)
		apiV1.GET("/prices/changes", handler.ListPriceChanges)

		// 库存
		apiV1.GET("/products/:id/inventory", handler.ListInventory)
		apiV1.PUT("/products/:id/inventory", handler.SetInventory)

		// 客户
		apiV1.GET("/clients", handler.ListClients)
		apiV1.GET("/clients/:id", handler.GetClient)
		apiV1.POST("/clients", handler.CreateClient)
		apiV1.PUT("/clients/:id", handler.UpdateClient)
		apiV1.PUT("/clients/:id/prices", handler.SetClientPrice)

		// 报价单
		apiV1.GET("/quotations", handler.ListQuotations)
		apiV1.GET("/quotations/:id", handler.GetQuotation)
		apiV1.POST("/quotations", RateLimitMiddleware(redisClient, writeRule, KeyByIP), handler.CreateQuotation)
		apiV1.POST("/quotations/:id/send", handler.SendQuotation)
		apiV1.POST("/quotations/:id/cancel", handler.CancelQuotation)
		apiV1.POST("/quotations/:id/convert", handler.ConvertQuotation)

		// 订单
		apiV1.GET("/orders", handler.ListOrders)
		apiV1.GET("/orders/:id", handler.GetOrder)
		apiV1.PUT("/orders/:id/status", handler.UpdateOrderStatus)
		apiV1.POST("/orders/:id/cancel", handler.CancelOrder)
		apiV1.POST("/orders/:id/lock-stock", handler.LockStock)
		apiV1.POST("/orders/:id/release-stock", handler.ReleaseStock)
		apiV1.POST("/orders/:id/fulfill-stock", handler.FulfillStock)
		apiV1.POST("/orders/:id/payments", handler.RecordPayment)
		apiV1.POST("/payments/:payment_id/confirm", handler.ConfirmPayment)
		apiV1.POST("/payments/:payment_id/fail", handler.FailPayment)
	}

	return r
}
