package provider

import (
	"time"

	"github.com/emmetteckard/smartquote-b2b/internal/cache"
	"github.com/emmetteckard/smartquote-b2b/internal/config"
	"github.com/emmetteckard/smartquote-b2b/internal/logger"
	"github.com/emmetteckard/smartquote-b2b/internal/models"
	"github.com/emmetteckard/smartquote-b2b/internal/queue"
	"github.com/emmetteckard/smartquote-b2b/internal/repository"
	"github.com/emmetteckard/smartquote-b2b/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Repositories
	ProductRepo   repository.ProductRepository
	ClientRepo    repository.ClientRepository
	PriceRepo     repository.PriceRepository
	QuotationRepo repository.QuotationRepository
	OrderRepo     repository.OrderRepository
	InventoryRepo repository.InventoryRepository

	// Services
	CatalogService *service.CatalogService
	ClientService  *service.ClientService
	PriceService   *service.PriceService
	PriceResolver  *service.PriceResolver
	QuoteService   *service.QuoteService
	StockService   *service.StockService
	OrderService   *service.OrderService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化 Services
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.ProductRepo = repository.NewProductRepository(db)
	c.ClientRepo = repository.NewClientRepository(db)
	c.PriceRepo = repository.NewPriceRepository(db)
	c.QuotationRepo = repository.NewQuotationRepository(db)
	c.OrderRepo = repository.NewOrderRepository(db)
	c.InventoryRepo = repository.NewInventoryRepository(db)
}

func (c *Container) initServices() {
	c.CatalogService = service.NewCatalogService(c.ProductRepo)
	c.ClientService = service.NewClientService(c.ClientRepo)
	c.PriceService = service.NewPriceService(c.PriceRepo, c.ProductRepo, c.ClientRepo)
	c.PriceResolver = service.NewPriceResolver(c.PriceRepo, c.ProductRepo, c.ClientRepo)
	var expiryScheduler service.QuotationExpiryScheduler
	var timeoutScheduler service.OrderTimeoutScheduler
	if c.QueueClient != nil {
		expiryScheduler = c.QueueClient
		timeoutScheduler = c.QueueClient
	}
	c.QuoteService = service.NewQuoteService(c.QuotationRepo, c.PriceRepo, c.ProductRepo, c.ClientRepo,
		c.PriceResolver, expiryScheduler, c.Config.Quotation.DefaultValidDays)
	c.StockService = service.NewStockService(c.InventoryRepo, c.OrderRepo)

	paymentTTL := time.Duration(c.Config.Order.PaymentExpireHours) * time.Hour
	c.OrderService = service.NewOrderService(c.OrderRepo, c.QuotationRepo, c.StockService, timeoutScheduler, paymentTTL)
}
