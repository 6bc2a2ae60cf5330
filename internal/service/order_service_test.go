package service

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/emmetteckard/smartquote-b2b/internal/constants"
	"github.com/emmetteckard/smartquote-b2b/internal/models"

	"github.com/shopspring/decimal"
)

// recordingScheduler 记录超时任务投递调用
type recordingScheduler struct {
	orderIDs []uint
	dueAts   []time.Time
	fail     bool
}

func (s *recordingScheduler) ScheduleOrderTimeout(orderID uint, dueAt time.Time) error {
	if s.fail {
		return errors.New("queue unavailable")
	}
	s.orderIDs = append(s.orderIDs, orderID)
	s.dueAts = append(s.dueAts, dueAt)
	return nil
}

// sentQuotation 建一张已发出的报价单供转化用
func (env *testEnv) sentQuotation(t *testing.T, clientID, productID uint, quantity int) *models.Quotation {
	t.Helper()
	quotation, err := env.quotes.CreateQuotation(CreateQuotationInput{
		ClientID: clientID,
		Items:    []QuoteItemInput{{ProductID: productID, Quantity: quantity}},
		ActorID:  1,
	})
	if err != nil {
		t.Fatalf("create quotation failed: %v", err)
	}
	if _, err := env.quotes.SendQuotation(quotation.ID); err != nil {
		t.Fatalf("send quotation failed: %v", err)
	}
	return quotation
}

// payInFull 登记并确认覆盖订单全额的一笔收款
func (env *testEnv) payInFull(t *testing.T, orders *OrderService, order *models.Order) {
	t.Helper()
	payment, err := orders.RecordPayment(RecordPaymentInput{
		OrderID:       order.ID,
		Amount:        order.TotalAmount.Decimal,
		PaymentMethod: "wire_transfer",
	})
	if err != nil {
		t.Fatalf("record payment failed: %v", err)
	}
	if _, err := orders.ConfirmPayment(payment.ID, 2); err != nil {
		t.Fatalf("confirm payment failed: %v", err)
	}
}

func TestConvertQuotationMirrorsFrozenPrices(t *testing.T) {
	env := setupServiceTest(t)
	client := env.createClient(t, "环球贸易", constants.TierA)
	product := env.createProduct(t, "ORD-001", "阀体")
	env.setBasePrice(t, product.ID, constants.TierA, 88, time.Now().AddDate(0, 0, -1))
	quotation := env.sentQuotation(t, client.ID, product.ID, 10)

	scheduler := &recordingScheduler{}
	orders := NewOrderService(env.orderRepo, env.quotationRepo, env.stock, scheduler, 72*time.Hour)

	order, err := orders.ConvertQuotation(quotation.ID, 1)
	if err != nil {
		t.Fatalf("convert quotation failed: %v", err)
	}
	if !strings.HasPrefix(order.OrderNumber, "SO-") {
		t.Fatalf("order number want SO- prefix got %s", order.OrderNumber)
	}
	if order.Status != constants.OrderStatusPendingPayment {
		t.Fatalf("status want pending_payment got %s", order.Status)
	}
	if order.PaymentStatus != constants.PaymentStateUnpaid {
		t.Fatalf("payment status want unpaid got %s", order.PaymentStatus)
	}
	assertMoney(t, order.TotalAmount, "880.00")
	if len(order.Items) != 1 {
		t.Fatalf("item count want 1 got %d", len(order.Items))
	}
	assertMoney(t, order.Items[0].UnitPrice, "88.00")
	if order.ExpiresAt == nil {
		t.Fatalf("pending order should carry expires_at")
	}

	// 来源报价单同步流转为 confirmed
	confirmed, err := env.quotes.GetQuotation(quotation.ID)
	if err != nil {
		t.Fatalf("reload quotation failed: %v", err)
	}
	if confirmed.Status != constants.QuotationStatusConfirmed {
		t.Fatalf("quotation status want confirmed got %s", confirmed.Status)
	}

	// 超时任务已投递
	if len(scheduler.orderIDs) != 1 || scheduler.orderIDs[0] != order.ID {
		t.Fatalf("timeout task should be scheduled for order %d: %+v", order.ID, scheduler.orderIDs)
	}
}

func TestConvertQuotationRequiresSentStatus(t *testing.T) {
	env := setupServiceTest(t)
	client := env.createClient(t, "环球贸易", constants.TierA)
	product := env.createProduct(t, "ORD-002", "阀体")
	env.setBasePrice(t, product.ID, constants.TierA, 88, time.Now().AddDate(0, 0, -1))

	draft, err := env.quotes.CreateQuotation(CreateQuotationInput{
		ClientID: client.ID,
		Items:    []QuoteItemInput{{ProductID: product.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create quotation failed: %v", err)
	}

	orders := NewOrderService(env.orderRepo, env.quotationRepo, env.stock, nil, 0)
	if _, err := orders.ConvertQuotation(draft.ID, 1); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("convert draft want ErrInvalidState got %v", err)
	}
}

func TestConvertQuotationOnlyOnce(t *testing.T) {
	env := setupServiceTest(t)
	client := env.createClient(t, "环球贸易", constants.TierA)
	product := env.createProduct(t, "ORD-003", "阀体")
	env.setBasePrice(t, product.ID, constants.TierA, 88, time.Now().AddDate(0, 0, -1))
	quotation := env.sentQuotation(t, client.ID, product.ID, 2)

	orders := NewOrderService(env.orderRepo, env.quotationRepo, env.stock, nil, 0)
	if _, err := orders.ConvertQuotation(quotation.ID, 1); err != nil {
		t.Fatalf("first convert failed: %v", err)
	}
	if _, err := orders.ConvertQuotation(quotation.ID, 1); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("second convert want ErrInvalidState got %v", err)
	}
}

func TestConvertQuotationSchedulerFailureNonFatal(t *testing.T) {
	env := setupServiceTest(t)
	client := env.createClient(t, "环球贸易", constants.TierA)
	product := env.createProduct(t, "ORD-004", "阀体")
	env.setBasePrice(t, product.ID, constants.TierA, 88, time.Now().AddDate(0, 0, -1))
	quotation := env.sentQuotation(t, client.ID, product.ID, 1)

	orders := NewOrderService(env.orderRepo, env.quotationRepo, env.stock, &recordingScheduler{fail: true}, 0)
	order, err := orders.ConvertQuotation(quotation.ID, 1)
	if err != nil {
		t.Fatalf("scheduler failure should not block conversion: %v", err)
	}
	if order == nil || order.Status != constants.OrderStatusPendingPayment {
		t.Fatalf("order should still be created, got %+v", order)
	}
}

func TestOrderStatusStateMachine(t *testing.T) {
	env := setupServiceTest(t)
	client := env.createClient(t, "环球贸易", constants.TierA)
	product := env.createProduct(t, "ORD-005", "阀体")
	env.setBasePrice(t, product.ID, constants.TierA, 88, time.Now().AddDate(0, 0, -1))
	quotation := env.sentQuotation(t, client.ID, product.ID, 1)

	orders := NewOrderService(env.orderRepo, env.quotationRepo, env.stock, nil, 0)
	order, err := orders.ConvertQuotation(quotation.ID, 1)
	if err != nil {
		t.Fatalf("convert failed: %v", err)
	}

	// 跳级非法
	if _, err := orders.UpdateOrderStatus(order.ID, constants.OrderStatusShipped); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("skip transition want ErrInvalidTransition got %v", err)
	}

	// 全额收款确认后自动流转为 paid
	env.payInFull(t, orders, order)
	paid, err := orders.GetOrder(order.ID)
	if err != nil {
		t.Fatalf("reload order failed: %v", err)
	}
	if paid.Status != constants.OrderStatusPaid {
		t.Fatalf("status after settled payment want paid got %s", paid.Status)
	}

	for _, status := range []string{
		constants.OrderStatusProcessing,
		constants.OrderStatusShipped,
		constants.OrderStatusCompleted,
	} {
		updated, err := orders.UpdateOrderStatus(order.ID, status)
		if err != nil {
			t.Fatalf("transition to %s failed: %v", status, err)
		}
		if updated.Status != status {
			t.Fatalf("status want %s got %s", status, updated.Status)
		}
	}

	// 终态后不可再动
	if _, err := orders.UpdateOrderStatus(order.ID, constants.OrderStatusPaid); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("transition from completed want ErrInvalidTransition got %v", err)
	}
	if _, err := orders.CancelOrder(order.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("cancel completed want ErrInvalidTransition got %v", err)
	}
}

func TestManualPaidRequiresSettledPayment(t *testing.T) {
	env := setupServiceTest(t)
	client := env.createClient(t, "环球贸易", constants.TierA)
	product := env.createProduct(t, "ORD-011", "阀体")
	env.setBasePrice(t, product.ID, constants.TierA, 88, time.Now().AddDate(0, 0, -1))
	quotation := env.sentQuotation(t, client.ID, product.ID, 2)

	orders := NewOrderService(env.orderRepo, env.quotationRepo, env.stock, nil, 0)
	order, err := orders.ConvertQuotation(quotation.ID, 1)
	if err != nil {
		t.Fatalf("convert failed: %v", err)
	}

	// 未结清不允许手工推到 paid
	if _, err := orders.UpdateOrderStatus(order.ID, constants.OrderStatusPaid); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("manual paid on unpaid order want ErrInvalidState got %v", err)
	}
	reloaded, err := orders.GetOrder(order.ID)
	if err != nil {
		t.Fatalf("reload order failed: %v", err)
	}
	if reloaded.Status != constants.OrderStatusPendingPayment || reloaded.PaymentStatus != constants.PaymentStateUnpaid {
		t.Fatalf("order should stay pending, got status=%s payment=%s", reloaded.Status, reloaded.PaymentStatus)
	}

	// 部分到账仍不放行
	partial, err := orders.RecordPayment(RecordPaymentInput{OrderID: order.ID, Amount: decimal.NewFromInt(10)})
	if err != nil {
		t.Fatalf("record payment failed: %v", err)
	}
	if _, err := orders.ConfirmPayment(partial.ID, 2); err != nil {
		t.Fatalf("confirm payment failed: %v", err)
	}
	if _, err := orders.UpdateOrderStatus(order.ID, constants.OrderStatusPaid); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("manual paid on partial payment want ErrInvalidState got %v", err)
	}
}

func TestCompleteBlockedByLockedStock(t *testing.T) {
	env := setupServiceTest(t)
	client := env.createClient(t, "环球贸易", constants.TierA)
	product := env.createProduct(t, "ORD-006", "阀体")
	env.setBasePrice(t, product.ID, constants.TierA, 88, time.Now().AddDate(0, 0, -1))
	env.setInventory(t, product.ID, "WH-MAIN", 50)
	quotation := env.sentQuotation(t, client.ID, product.ID, 5)

	orders := NewOrderService(env.orderRepo, env.quotationRepo, env.stock, nil, 0)
	order, err := orders.ConvertQuotation(quotation.ID, 1)
	if err != nil {
		t.Fatalf("convert failed: %v", err)
	}
	if _, err := env.stock.LockStock(order.ID, 1); err != nil {
		t.Fatalf("lock stock failed: %v", err)
	}
	env.payInFull(t, orders, order)
	for _, status := range []string{
		constants.OrderStatusProcessing,
		constants.OrderStatusShipped,
	} {
		if _, err := orders.UpdateOrderStatus(order.ID, status); err != nil {
			t.Fatalf("transition to %s failed: %v", status, err)
		}
	}

	// 锁定凭证未了结，不允许完结
	if _, err := orders.UpdateOrderStatus(order.ID, constants.OrderStatusCompleted); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("complete with locked stock want ErrInvalidState got %v", err)
	}

	if err := env.stock.FulfillStock(order.ID); err != nil {
		t.Fatalf("fulfill failed: %v", err)
	}
	if _, err := orders.UpdateOrderStatus(order.ID, constants.OrderStatusCompleted); err != nil {
		t.Fatalf("complete after fulfill failed: %v", err)
	}
}

func TestCancelOrderReleasesLockedStock(t *testing.T) {
	env := setupServiceTest(t)
	client := env.createClient(t, "环球贸易", constants.TierA)
	product := env.createProduct(t, "ORD-007", "阀体")
	env.setBasePrice(t, product.ID, constants.TierA, 88, time.Now().AddDate(0, 0, -1))
	env.setInventory(t, product.ID, "WH-MAIN", 50)
	quotation := env.sentQuotation(t, client.ID, product.ID, 20)

	orders := NewOrderService(env.orderRepo, env.quotationRepo, env.stock, nil, 0)
	order, err := orders.ConvertQuotation(quotation.ID, 1)
	if err != nil {
		t.Fatalf("convert failed: %v", err)
	}
	if _, err := env.stock.LockStock(order.ID, 1); err != nil {
		t.Fatalf("lock stock failed: %v", err)
	}

	cancelled, err := orders.CancelOrder(order.ID)
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if cancelled.Status != constants.OrderStatusCancelled || cancelled.StockLocked {
		t.Fatalf("cancelled order state wrong: %+v", cancelled)
	}

	row := env.inventoryRow(t, product.ID, "WH-MAIN")
	if row.AvailableQty != 50 || row.ReservedQty != 0 {
		t.Fatalf("inventory should be restored on cancel, got %d/%d", row.AvailableQty, row.ReservedQty)
	}
	released, err := env.stock.OrderLocks(order.ID, constants.StockLockStatusReleased)
	if err != nil {
		t.Fatalf("list locks failed: %v", err)
	}
	if len(released) != 1 {
		t.Fatalf("lock should be released on cancel, got %d", len(released))
	}
}

func TestCancelExpiredOrders(t *testing.T) {
	env := setupServiceTest(t)
	client := env.createClient(t, "环球贸易", constants.TierA)
	product := env.createProduct(t, "ORD-008", "阀体")
	env.setBasePrice(t, product.ID, constants.TierA, 88, time.Now().AddDate(0, 0, -1))
	quotation := env.sentQuotation(t, client.ID, product.ID, 1)

	orders := NewOrderService(env.orderRepo, env.quotationRepo, env.stock, nil, 0)
	order, err := orders.ConvertQuotation(quotation.ID, 1)
	if err != nil {
		t.Fatalf("convert failed: %v", err)
	}

	// 把超时时间改到过去
	past := time.Now().Add(-time.Hour)
	if err := env.db.Model(&models.Order{}).Where("id = ?", order.ID).
		Update("expires_at", past).Error; err != nil {
		t.Fatalf("backdate expires_at failed: %v", err)
	}

	cancelled, err := orders.CancelExpiredOrders(time.Now())
	if err != nil {
		t.Fatalf("cancel expired failed: %v", err)
	}
	if cancelled != 1 {
		t.Fatalf("cancelled count want 1 got %d", cancelled)
	}
	reloaded, err := orders.GetOrder(order.ID)
	if err != nil {
		t.Fatalf("reload order failed: %v", err)
	}
	if reloaded.Status != constants.OrderStatusCancelled {
		t.Fatalf("status want cancelled got %s", reloaded.Status)
	}
}

func TestPaymentLifecycle(t *testing.T) {
	env := setupServiceTest(t)
	client := env.createClient(t, "环球贸易", constants.TierA)
	product := env.createProduct(t, "ORD-009", "阀体")
	env.setBasePrice(t, product.ID, constants.TierA, 100, time.Now().AddDate(0, 0, -1))
	quotation := env.sentQuotation(t, client.ID, product.ID, 10)

	orders := NewOrderService(env.orderRepo, env.quotationRepo, env.stock, nil, 0)
	order, err := orders.ConvertQuotation(quotation.ID, 1)
	if err != nil {
		t.Fatalf("convert failed: %v", err)
	}

	// 首笔部分收款
	first, err := orders.RecordPayment(RecordPaymentInput{
		OrderID:       order.ID,
		PaymentMethod: "wire_transfer",
		Amount:        decimal.NewFromInt(400),
	})
	if err != nil {
		t.Fatalf("record first payment failed: %v", err)
	}
	if first.Status != constants.PaymentStatusPending {
		t.Fatalf("new payment want pending got %s", first.Status)
	}
	if first.Currency != order.Currency {
		t.Fatalf("payment currency should mirror order, got %s", first.Currency)
	}

	if _, err := orders.ConfirmPayment(first.ID, 2); err != nil {
		t.Fatalf("confirm first payment failed: %v", err)
	}
	partial, err := orders.GetOrder(order.ID)
	if err != nil {
		t.Fatalf("reload order failed: %v", err)
	}
	if partial.PaymentStatus != constants.PaymentStatePartial {
		t.Fatalf("payment state want partial got %s", partial.PaymentStatus)
	}
	if partial.Status != constants.OrderStatusPendingPayment {
		t.Fatalf("partial payment should not advance status, got %s", partial.Status)
	}

	// 二笔补足全款
	second, err := orders.RecordPayment(RecordPaymentInput{
		OrderID: order.ID,
		Amount:  decimal.NewFromInt(600),
	})
	if err != nil {
		t.Fatalf("record second payment failed: %v", err)
	}
	if _, err := orders.ConfirmPayment(second.ID, 2); err != nil {
		t.Fatalf("confirm second payment failed: %v", err)
	}
	paid, err := orders.GetOrder(order.ID)
	if err != nil {
		t.Fatalf("reload order failed: %v", err)
	}
	if paid.PaymentStatus != constants.PaymentStatePaid {
		t.Fatalf("payment state want paid got %s", paid.PaymentStatus)
	}
	if paid.Status != constants.OrderStatusPaid {
		t.Fatalf("full payment should advance to paid, got %s", paid.Status)
	}
	if paid.ExpiresAt != nil {
		t.Fatalf("paid order should clear expires_at, got %v", paid.ExpiresAt)
	}

	// 已确认的收款不可重复确认
	if _, err := orders.ConfirmPayment(first.ID, 2); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("double confirm want ErrInvalidState got %v", err)
	}
}

func TestRecordPaymentValidation(t *testing.T) {
	env := setupServiceTest(t)
	client := env.createClient(t, "环球贸易", constants.TierA)
	product := env.createProduct(t, "ORD-010", "阀体")
	env.setBasePrice(t, product.ID, constants.TierA, 88, time.Now().AddDate(0, 0, -1))
	quotation := env.sentQuotation(t, client.ID, product.ID, 1)

	orders := NewOrderService(env.orderRepo, env.quotationRepo, env.stock, nil, 0)
	order, err := orders.ConvertQuotation(quotation.ID, 1)
	if err != nil {
		t.Fatalf("convert failed: %v", err)
	}

	if _, err := orders.RecordPayment(RecordPaymentInput{OrderID: order.ID, Amount: decimal.Zero}); !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("zero amount want ErrInvalidQuantity got %v", err)
	}
	if _, err := orders.RecordPayment(RecordPaymentInput{OrderID: 9999, Amount: decimal.NewFromInt(10)}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing order want ErrNotFound got %v", err)
	}

	if _, err := orders.CancelOrder(order.ID); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if _, err := orders.RecordPayment(RecordPaymentInput{OrderID: order.ID, Amount: decimal.NewFromInt(10)}); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("payment on cancelled order want ErrInvalidState got %v", err)
	}
}

func TestFailPayment(t *testing.T) {
	env := setupServiceTest(t)
	client := env.createClient(t, "环球贸易", constants.TierA)
	product := env.createProduct(t, "ORD-011", "阀体")
	env.setBasePrice(t, product.ID, constants.TierA, 88, time.Now().AddDate(0, 0, -1))
	quotation := env.sentQuotation(t, client.ID, product.ID, 1)

	orders := NewOrderService(env.orderRepo, env.quotationRepo, env.stock, nil, 0)
	order, err := orders.ConvertQuotation(quotation.ID, 1)
	if err != nil {
		t.Fatalf("convert failed: %v", err)
	}
	payment, err := orders.RecordPayment(RecordPaymentInput{OrderID: order.ID, Amount: decimal.NewFromInt(50)})
	if err != nil {
		t.Fatalf("record payment failed: %v", err)
	}

	failed, err := orders.FailPayment(payment.ID)
	if err != nil {
		t.Fatalf("fail payment failed: %v", err)
	}
	if failed.Status != constants.PaymentStatusFailed {
		t.Fatalf("status want failed got %s", failed.Status)
	}
	if _, err := orders.ConfirmPayment(payment.ID, 1); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("confirm failed payment want ErrInvalidState got %v", err)
	}
}
