package service

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/emmetteckard/smartquote-b2b/internal/models"
	"github.com/emmetteckard/smartquote-b2b/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// testEnv 测试用服务与仓库集合，底层共享一个内存库
type testEnv struct {
	db            *gorm.DB
	productRepo   repository.ProductRepository
	clientRepo    repository.ClientRepository
	priceRepo     repository.PriceRepository
	quotationRepo repository.QuotationRepository
	orderRepo     repository.OrderRepository
	inventoryRepo repository.InventoryRepository

	catalog  *CatalogService
	prices   *PriceService
	resolver *PriceResolver
	quotes   *QuoteService
	stock    *StockService
}

func setupServiceTest(t *testing.T) *testEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Client{},
		&models.Product{},
		&models.ProductComponent{},
		&models.BasePrice{},
		&models.ClientPrice{},
		&models.PriceChangeRecord{},
		&models.Quotation{},
		&models.QuotationItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.Payment{},
		&models.StockLock{},
		&models.Inventory{},
	); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	models.DB = db

	env := &testEnv{
		db:            db,
		productRepo:   repository.NewProductRepository(db),
		clientRepo:    repository.NewClientRepository(db),
		priceRepo:     repository.NewPriceRepository(db),
		quotationRepo: repository.NewQuotationRepository(db),
		orderRepo:     repository.NewOrderRepository(db),
		inventoryRepo: repository.NewInventoryRepository(db),
	}
	env.catalog = NewCatalogService(env.productRepo)
	env.prices = NewPriceService(env.priceRepo, env.productRepo, env.clientRepo)
	env.resolver = NewPriceResolver(env.priceRepo, env.productRepo, env.clientRepo)
	env.quotes = NewQuoteService(env.quotationRepo, env.priceRepo, env.productRepo, env.clientRepo, env.resolver, nil, 0)
	env.stock = NewStockService(env.inventoryRepo, env.orderRepo)
	return env
}

func (env *testEnv) createProduct(t *testing.T, sku, name string) *models.Product {
	t.Helper()
	product := &models.Product{
		SKU:      sku,
		Name:     name,
		Unit:     "pcs",
		IsActive: true,
	}
	if err := env.catalog.CreateProduct(product); err != nil {
		t.Fatalf("create product %s failed: %v", sku, err)
	}
	return product
}

func (env *testEnv) createClient(t *testing.T, name, tier string) *models.Client {
	t.Helper()
	client := &models.Client{
		CompanyName: name,
		Tier:        tier,
		IsActive:    true,
	}
	if err := env.clientRepo.Create(client); err != nil {
		t.Fatalf("create client %s failed: %v", name, err)
	}
	return client
}

func (env *testEnv) setBasePrice(t *testing.T, productID uint, tier string, price float64, from time.Time) *models.BasePrice {
	t.Helper()
	row, err := env.prices.SetBasePrice(SetBasePriceInput{
		ProductID:     productID,
		Tier:          tier,
		Price:         decimal.NewFromFloat(price),
		EffectiveFrom: from,
		ActorID:       1,
	})
	if err != nil {
		t.Fatalf("set base price failed: %v", err)
	}
	return row
}

func (env *testEnv) setClientPrice(t *testing.T, clientID, productID uint, price float64, from time.Time) *models.ClientPrice {
	t.Helper()
	row, err := env.prices.SetClientPrice(SetClientPriceInput{
		ClientID:      clientID,
		ProductID:     productID,
		Price:         decimal.NewFromFloat(price),
		EffectiveFrom: from,
		ActorID:       1,
	})
	if err != nil {
		t.Fatalf("set client price failed: %v", err)
	}
	return row
}

func (env *testEnv) setInventory(t *testing.T, productID uint, warehouse string, qty int) {
	t.Helper()
	if _, err := env.stock.SetInventory(productID, warehouse, qty); err != nil {
		t.Fatalf("set inventory failed: %v", err)
	}
}

func (env *testEnv) inventoryRow(t *testing.T, productID uint, warehouse string) *models.Inventory {
	t.Helper()
	row, err := env.inventoryRepo.GetByProductWarehouse(productID, warehouse)
	if err != nil {
		t.Fatalf("get inventory failed: %v", err)
	}
	if row == nil {
		t.Fatalf("inventory row %d/%s missing", productID, warehouse)
	}
	return row
}

func assertMoney(t *testing.T, got models.Money, want string) {
	t.Helper()
	if got.String() != want {
		t.Fatalf("amount want %s got %s", want, got.String())
	}
}
