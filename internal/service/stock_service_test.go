package service

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/emmetteckard/smartquote-b2b/internal/constants"
	"github.com/emmetteckard/smartquote-b2b/internal/models"

	"github.com/shopspring/decimal"
)

var stockTestQuotationSeq uint32

// createStockOrder 直接落一张待支付订单（绕过报价转化，只测库存台账）
func (env *testEnv) createStockOrder(t *testing.T, clientID uint, items []models.OrderItem) *models.Order {
	t.Helper()
	order := &models.Order{
		OrderNumber:   generateOrderNumber(),
		QuotationID:   uint(atomic.AddUint32(&stockTestQuotationSeq, 1)),
		ClientID:      clientID,
		Status:        constants.OrderStatusPendingPayment,
		TotalAmount:   models.NewMoneyFromDecimal(decimal.NewFromInt(100)),
		Currency:      constants.DefaultCurrency,
		PaymentStatus: constants.PaymentStateUnpaid,
	}
	if err := env.orderRepo.Create(order, items); err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	loaded, err := env.orderRepo.GetByID(order.ID)
	if err != nil {
		t.Fatalf("reload order failed: %v", err)
	}
	return loaded
}

func TestLockStockMovesAvailableToReserved(t *testing.T) {
	env := setupServiceTest(t)
	client := env.createClient(t, "环球贸易", constants.TierA)
	product := env.createProduct(t, "STK-001", "阀体")
	env.setInventory(t, product.ID, "WH-MAIN", 100)

	order := env.createStockOrder(t, client.ID, []models.OrderItem{
		{ProductID: product.ID, Quantity: 30, UnitPrice: models.NewMoneyFromDecimal(decimal.NewFromInt(88))},
	})

	locks, err := env.stock.LockStock(order.ID, 1)
	if err != nil {
		t.Fatalf("lock stock failed: %v", err)
	}
	if len(locks) != 1 || locks[0].Quantity != 30 {
		t.Fatalf("unexpected locks: %+v", locks)
	}

	row := env.inventoryRow(t, product.ID, "WH-MAIN")
	if row.AvailableQty != 70 || row.ReservedQty != 30 {
		t.Fatalf("inventory want 70/30 got %d/%d", row.AvailableQty, row.ReservedQty)
	}

	reloaded, err := env.orderRepo.GetByID(order.ID)
	if err != nil {
		t.Fatalf("reload order failed: %v", err)
	}
	if !reloaded.StockLocked {
		t.Fatalf("order should be marked stock_locked")
	}
}

func TestLockStockSplitsAcrossWarehouses(t *testing.T) {
	env := setupServiceTest(t)
	client := env.createClient(t, "环球贸易", constants.TierA)
	product := env.createProduct(t, "STK-002", "阀体")
	env.setInventory(t, product.ID, "WH-MAIN", 10)
	env.setInventory(t, product.ID, "WH-EAST", 5)

	order := env.createStockOrder(t, client.ID, []models.OrderItem{
		{ProductID: product.ID, Quantity: 12, UnitPrice: models.NewMoneyFromDecimal(decimal.NewFromInt(88))},
	})

	locks, err := env.stock.LockStock(order.ID, 1)
	if err != nil {
		t.Fatalf("lock stock failed: %v", err)
	}
	if len(locks) != 2 {
		t.Fatalf("lock count want 2 got %d", len(locks))
	}
	// 可用量降序：先扣主仓 10，再扣东仓 2
	if locks[0].WarehouseCode != "WH-MAIN" || locks[0].Quantity != 10 {
		t.Fatalf("first lock want WH-MAIN x10 got %s x%d", locks[0].WarehouseCode, locks[0].Quantity)
	}
	if locks[1].WarehouseCode != "WH-EAST" || locks[1].Quantity != 2 {
		t.Fatalf("second lock want WH-EAST x2 got %s x%d", locks[1].WarehouseCode, locks[1].Quantity)
	}

	east := env.inventoryRow(t, product.ID, "WH-EAST")
	if east.AvailableQty != 3 || east.ReservedQty != 2 {
		t.Fatalf("WH-EAST want 3/2 got %d/%d", east.AvailableQty, east.ReservedQty)
	}
}

func TestLockStockAllOrNothing(t *testing.T) {
	env := setupServiceTest(t)
	client := env.createClient(t, "环球贸易", constants.TierA)
	valve := env.createProduct(t, "STK-003", "阀体")
	actuator := env.createProduct(t, "STK-004", "执行器")
	env.setInventory(t, valve.ID, "WH-MAIN", 100)
	env.setInventory(t, actuator.ID, "WH-MAIN", 2)

	order := env.createStockOrder(t, client.ID, []models.OrderItem{
		{ProductID: valve.ID, Quantity: 10, UnitPrice: models.NewMoneyFromDecimal(decimal.NewFromInt(88))},
		{ProductID: actuator.ID, Quantity: 5, UnitPrice: models.NewMoneyFromDecimal(decimal.NewFromInt(172))},
	})

	if _, err := env.stock.LockStock(order.ID, 1); !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("short stock want ErrInsufficientStock got %v", err)
	}

	// 第一行已扣的量必须随整单回滚
	valveRow := env.inventoryRow(t, valve.ID, "WH-MAIN")
	if valveRow.AvailableQty != 100 || valveRow.ReservedQty != 0 {
		t.Fatalf("valve inventory should roll back, got %d/%d", valveRow.AvailableQty, valveRow.ReservedQty)
	}
	locks, err := env.stock.OrderLocks(order.ID, "")
	if err != nil {
		t.Fatalf("list locks failed: %v", err)
	}
	if len(locks) != 0 {
		t.Fatalf("failed lock should leave no lock rows, got %d", len(locks))
	}
	reloaded, err := env.orderRepo.GetByID(order.ID)
	if err != nil {
		t.Fatalf("reload order failed: %v", err)
	}
	if reloaded.StockLocked {
		t.Fatalf("order must not be marked stock_locked after failure")
	}
}

func TestLockStockSequentialContention(t *testing.T) {
	env := setupServiceTest(t)
	client := env.createClient(t, "环球贸易", constants.TierA)
	product := env.createProduct(t, "STK-005", "阀体")
	env.setInventory(t, product.ID, "WH-MAIN", 10)

	first := env.createStockOrder(t, client.ID, []models.OrderItem{
		{ProductID: product.ID, Quantity: 8, UnitPrice: models.NewMoneyFromDecimal(decimal.NewFromInt(88))},
	})
	second := env.createStockOrder(t, client.ID, []models.OrderItem{
		{ProductID: product.ID, Quantity: 5, UnitPrice: models.NewMoneyFromDecimal(decimal.NewFromInt(88))},
	})

	if _, err := env.stock.LockStock(first.ID, 1); err != nil {
		t.Fatalf("first lock failed: %v", err)
	}
	if _, err := env.stock.LockStock(second.ID, 1); !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("second lock want ErrInsufficientStock got %v", err)
	}
}

func TestLockStockConcurrentContention(t *testing.T) {
	env := setupServiceTest(t)
	client := env.createClient(t, "环球贸易", constants.TierA)
	product := env.createProduct(t, "STK-010", "阀体")
	env.setInventory(t, product.ID, "WH-MAIN", 10)

	// 单连接池让两个事务在驱动层排队，避免内存库的 busy 抖动
	sqlDB, err := env.db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	orders := [2]*models.Order{}
	for i := range orders {
		orders[i] = env.createStockOrder(t, client.ID, []models.OrderItem{
			{ProductID: product.ID, Quantity: 6, UnitPrice: models.NewMoneyFromDecimal(decimal.NewFromInt(88))},
		})
	}

	start := make(chan struct{})
	results := make([]error, 2)
	var wg sync.WaitGroup
	for i := range orders {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			<-start
			_, err := env.stock.LockStock(orders[idx].ID, 1)
			results[idx] = err
		}(i)
	}
	close(start)
	wg.Wait()

	succeeded, insufficient := 0, 0
	for _, err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrInsufficientStock):
			insufficient++
		default:
			t.Fatalf("unexpected lock error: %v", err)
		}
	}
	if succeeded != 1 || insufficient != 1 {
		t.Fatalf("want exactly one success and one ErrInsufficientStock, got %d/%d", succeeded, insufficient)
	}

	row := env.inventoryRow(t, product.ID, "WH-MAIN")
	if row.AvailableQty != 4 || row.ReservedQty != 6 {
		t.Fatalf("inventory after contention want 4/6 got %d/%d", row.AvailableQty, row.ReservedQty)
	}
}

func TestLockStockTwiceRejected(t *testing.T) {
	env := setupServiceTest(t)
	client := env.createClient(t, "环球贸易", constants.TierA)
	product := env.createProduct(t, "STK-006", "阀体")
	env.setInventory(t, product.ID, "WH-MAIN", 20)

	order := env.createStockOrder(t, client.ID, []models.OrderItem{
		{ProductID: product.ID, Quantity: 5, UnitPrice: models.NewMoneyFromDecimal(decimal.NewFromInt(88))},
	})
	if _, err := env.stock.LockStock(order.ID, 1); err != nil {
		t.Fatalf("lock failed: %v", err)
	}
	if _, err := env.stock.LockStock(order.ID, 1); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("double lock want ErrInvalidState got %v", err)
	}
}

func TestReleaseStockRestoresAvailable(t *testing.T) {
	env := setupServiceTest(t)
	client := env.createClient(t, "环球贸易", constants.TierA)
	product := env.createProduct(t, "STK-007", "阀体")
	env.setInventory(t, product.ID, "WH-MAIN", 50)

	order := env.createStockOrder(t, client.ID, []models.OrderItem{
		{ProductID: product.ID, Quantity: 20, UnitPrice: models.NewMoneyFromDecimal(decimal.NewFromInt(88))},
	})
	if _, err := env.stock.LockStock(order.ID, 1); err != nil {
		t.Fatalf("lock failed: %v", err)
	}
	if err := env.stock.ReleaseStock(order.ID); err != nil {
		t.Fatalf("release failed: %v", err)
	}

	row := env.inventoryRow(t, product.ID, "WH-MAIN")
	if row.AvailableQty != 50 || row.ReservedQty != 0 {
		t.Fatalf("inventory want 50/0 after release got %d/%d", row.AvailableQty, row.ReservedQty)
	}
	released, err := env.stock.OrderLocks(order.ID, constants.StockLockStatusReleased)
	if err != nil {
		t.Fatalf("list locks failed: %v", err)
	}
	if len(released) != 1 || released[0].ReleasedAt == nil {
		t.Fatalf("lock should be released with timestamp: %+v", released)
	}
	reloaded, err := env.orderRepo.GetByID(order.ID)
	if err != nil {
		t.Fatalf("reload order failed: %v", err)
	}
	if reloaded.StockLocked {
		t.Fatalf("order should not stay stock_locked after release")
	}
}

func TestFulfillStockConsumesReserved(t *testing.T) {
	env := setupServiceTest(t)
	client := env.createClient(t, "环球贸易", constants.TierA)
	product := env.createProduct(t, "STK-008", "阀体")
	env.setInventory(t, product.ID, "WH-MAIN", 50)

	order := env.createStockOrder(t, client.ID, []models.OrderItem{
		{ProductID: product.ID, Quantity: 20, UnitPrice: models.NewMoneyFromDecimal(decimal.NewFromInt(88))},
	})
	if _, err := env.stock.LockStock(order.ID, 1); err != nil {
		t.Fatalf("lock failed: %v", err)
	}
	if err := env.stock.FulfillStock(order.ID); err != nil {
		t.Fatalf("fulfill failed: %v", err)
	}

	// 出库核销：reserved 清零，available 不回补
	row := env.inventoryRow(t, product.ID, "WH-MAIN")
	if row.AvailableQty != 30 || row.ReservedQty != 0 {
		t.Fatalf("inventory want 30/0 after fulfill got %d/%d", row.AvailableQty, row.ReservedQty)
	}
	fulfilled, err := env.stock.OrderLocks(order.ID, constants.StockLockStatusFulfilled)
	if err != nil {
		t.Fatalf("list locks failed: %v", err)
	}
	if len(fulfilled) != 1 {
		t.Fatalf("fulfilled lock count want 1 got %d", len(fulfilled))
	}
}

func TestFulfillStockWithoutLockRejected(t *testing.T) {
	env := setupServiceTest(t)
	client := env.createClient(t, "环球贸易", constants.TierA)
	product := env.createProduct(t, "STK-009", "阀体")
	env.setInventory(t, product.ID, "WH-MAIN", 50)

	order := env.createStockOrder(t, client.ID, []models.OrderItem{
		{ProductID: product.ID, Quantity: 5, UnitPrice: models.NewMoneyFromDecimal(decimal.NewFromInt(88))},
	})
	if err := env.stock.FulfillStock(order.ID); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("fulfill unlocked order want ErrInvalidState got %v", err)
	}
}

func TestSetInventoryValidation(t *testing.T) {
	env := setupServiceTest(t)
	product := env.createProduct(t, "STK-010", "阀体")

	if _, err := env.stock.SetInventory(product.ID, "WH-MAIN", -1); !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("negative qty want ErrInvalidQuantity got %v", err)
	}
	if _, err := env.stock.SetInventory(product.ID, "WH-MAIN", 15); err != nil {
		t.Fatalf("set inventory failed: %v", err)
	}
	// 再次设置走更新路径
	if _, err := env.stock.SetInventory(product.ID, "WH-MAIN", 25); err != nil {
		t.Fatalf("update inventory failed: %v", err)
	}
	row := env.inventoryRow(t, product.ID, "WH-MAIN")
	if row.AvailableQty != 25 {
		t.Fatalf("available want 25 got %d", row.AvailableQty)
	}
	if row.LastSyncAt == nil {
		t.Fatalf("last_sync_at should be stamped")
	}
}
