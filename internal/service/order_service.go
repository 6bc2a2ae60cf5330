package service

import (
	"fmt"
	"time"

	"github.com/emmetteckard/smartquote-b2b/internal/constants"
	"github.com/emmetteckard/smartquote-b2b/internal/logger"
	"github.com/emmetteckard/smartquote-b2b/internal/metrics"
	"github.com/emmetteckard/smartquote-b2b/internal/models"
	"github.com/emmetteckard/smartquote-b2b/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderTimeoutScheduler 待支付超时任务投递口。
// 入队失败不阻断下单，后台扫描兜底。
type OrderTimeoutScheduler interface {
	ScheduleOrderTimeout(orderID uint, dueAt time.Time) error
}

// OrderService 订单服务：报价单转化、状态机流转、收款登记与确认。
type OrderService struct {
	orderRepo     repository.OrderRepository
	quotationRepo repository.QuotationRepository
	stockService  *StockService
	scheduler     OrderTimeoutScheduler
	paymentTTL    time.Duration
}

// NewOrderService 创建订单服务。scheduler 可为空（不投递超时任务）。
func NewOrderService(
	orderRepo repository.OrderRepository,
	quotationRepo repository.QuotationRepository,
	stockService *StockService,
	scheduler OrderTimeoutScheduler,
	paymentTTL time.Duration,
) *OrderService {
	if paymentTTL <= 0 {
		paymentTTL = 72 * time.Hour
	}
	return &OrderService{
		orderRepo:     orderRepo,
		quotationRepo: quotationRepo,
		stockService:  stockService,
		scheduler:     scheduler,
		paymentTTL:    paymentTTL,
	}
}

// orderTransitions 订单状态机。cancelled 可从任意非终态进入，单独处理。
var orderTransitions = map[string][]string{
	constants.OrderStatusPendingPayment: {constants.OrderStatusPaid},
	constants.OrderStatusPaid:           {constants.OrderStatusProcessing},
	constants.OrderStatusProcessing:     {constants.OrderStatusShipped},
	constants.OrderStatusShipped:        {constants.OrderStatusCompleted},
}

func orderTerminal(status string) bool {
	return status == constants.OrderStatusCompleted || status == constants.OrderStatusCancelled
}

// ConvertQuotation 把已发出的报价单转化为订单。
// 明细与金额镜像报价单冻结值，报价单同步流转为 confirmed；
// 一张报价单只允许转化一次。
func (s *OrderService) ConvertQuotation(quotationID, actorID uint) (*models.Order, error) {
	quotation, err := s.quotationRepo.GetByID(quotationID)
	if err != nil {
		return nil, err
	}
	if quotation == nil {
		return nil, ErrNotFound
	}
	if quotation.Status != constants.QuotationStatusSent {
		return nil, ErrInvalidState
	}
	existing, err := s.orderRepo.GetByQuotationID(quotationID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrInvalidState
	}

	now := time.Now()
	expiresAt := now.Add(s.paymentTTL)
	order := &models.Order{
		OrderNumber:   generateOrderNumber(),
		QuotationID:   quotation.ID,
		ClientID:      quotation.ClientID,
		Status:        constants.OrderStatusPendingPayment,
		TotalAmount:   quotation.TotalAmount,
		Currency:      quotation.Currency,
		PaymentStatus: constants.PaymentStateUnpaid,
		ExpiresAt:     &expiresAt,
		CreatedBy:     actorID,
	}
	items := make([]models.OrderItem, 0, len(quotation.Items))
	for _, quoteItem := range quotation.Items {
		items = append(items, models.OrderItem{
			ProductID:       quoteItem.ProductID,
			Quantity:        quoteItem.Quantity,
			UnitPrice:       quoteItem.UnitPrice,
			DiscountPercent: quoteItem.DiscountPercent,
			Notes:           quoteItem.Notes,
			CreatedAt:       now,
		})
	}

	err = models.DB.Transaction(func(tx *gorm.DB) error {
		if err := s.orderRepo.WithTx(tx).Create(order, items); err != nil {
			return err
		}
		return s.quotationRepo.WithTx(tx).UpdateStatus(quotation.ID, constants.QuotationStatusConfirmed, nil)
	})
	if err != nil {
		return nil, err
	}

	if s.scheduler != nil {
		if err := s.scheduler.ScheduleOrderTimeout(order.ID, expiresAt); err != nil {
			logger.S().Warnw("订单超时任务投递失败，等待后台扫描兜底",
				"order_number", order.OrderNumber, "err", err)
		}
	}

	metrics.OrdersConvertedTotal.Inc()
	logger.S().Infow("报价单已转化为订单",
		"quotation_number", quotation.QuotationNumber,
		"order_number", order.OrderNumber,
		"total_amount", order.TotalAmount.String())
	return s.orderRepo.GetByID(order.ID)
}

// GetOrder 获取订单详情
func (s *OrderService) GetOrder(id uint) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrNotFound
	}
	return order, nil
}

// GetOrderByNumber 根据订单号获取详情
func (s *OrderService) GetOrderByNumber(number string) (*models.Order, error) {
	order, err := s.orderRepo.GetByNumber(number)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrNotFound
	}
	return order, nil
}

// ListOrders 订单列表
func (s *OrderService) ListOrders(filter repository.OrderListFilter) ([]models.Order, int64, error) {
	return s.orderRepo.List(filter)
}

// UpdateOrderStatus 按状态机推进订单。
// 推进到 paid 要求收款状态已结清（正常路径由确认收款自动推进）；
// 完结前所有库存锁定凭证必须已履约或已释放。
func (s *OrderService) UpdateOrderStatus(id uint, target string) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrNotFound
	}
	if target == constants.OrderStatusCancelled {
		return s.cancel(order, "manual")
	}
	if !transitionAllowed(orderTransitions, order.Status, target) {
		return nil, ErrInvalidTransition
	}
	if target == constants.OrderStatusPaid && order.PaymentStatus != constants.PaymentStatePaid {
		return nil, ErrInvalidState
	}
	if target == constants.OrderStatusCompleted {
		locked, err := s.stockService.OrderLocks(order.ID, constants.StockLockStatusLocked)
		if err != nil {
			return nil, err
		}
		if len(locked) > 0 {
			return nil, ErrInvalidState
		}
	}
	if err := s.orderRepo.UpdateStatus(order.ID, target, nil); err != nil {
		return nil, err
	}
	order.Status = target
	return order, nil
}

// CancelOrder 取消订单。已锁定的库存随取消在同一事务内释放。
func (s *OrderService) CancelOrder(id uint) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrNotFound
	}
	return s.cancel(order, "manual")
}

func (s *OrderService) cancel(order *models.Order, reason string) (*models.Order, error) {
	if orderTerminal(order.Status) {
		return nil, ErrInvalidTransition
	}
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		if order.StockLocked {
			if err := s.stockService.releaseLockedTx(tx, order.ID); err != nil {
				return err
			}
		}
		return s.orderRepo.WithTx(tx).UpdateStatus(order.ID, constants.OrderStatusCancelled,
			map[string]interface{}{"stock_locked": false})
	})
	if err != nil {
		return nil, err
	}
	order.Status = constants.OrderStatusCancelled
	order.StockLocked = false
	metrics.OrdersCancelledTotal.WithLabelValues(reason).Inc()
	logger.S().Infow("订单已取消", "order_number", order.OrderNumber, "reason", reason)
	return order, nil
}

// CancelExpiredOrders 取消待支付超时的订单，返回处理条数。
// 由后台任务周期调用，与单笔超时任务互为兜底。
func (s *OrderService) CancelExpiredOrders(asOf time.Time) (int, error) {
	expired, err := s.orderRepo.ListExpired(asOf)
	if err != nil {
		return 0, err
	}
	cancelled := 0
	for i := range expired {
		if _, err := s.cancel(&expired[i], "payment_timeout"); err != nil {
			logger.S().Errorw("超时订单取消失败",
				"order_number", expired[i].OrderNumber, "err", err)
			continue
		}
		cancelled++
	}
	return cancelled, nil
}

// RecordPaymentInput 收款登记输入
type RecordPaymentInput struct {
	OrderID         uint            `json:"order_id"`
	PaymentMethod   string          `json:"payment_method,omitempty"`
	Amount          decimal.Decimal `json:"amount"`
	PaymentDate     *time.Time      `json:"payment_date,omitempty"`
	ReferenceNumber string          `json:"reference_number,omitempty"`
	Notes           string          `json:"notes,omitempty"`
}

// RecordPayment 登记一笔线下收款（pending，待财务确认）
func (s *OrderService) RecordPayment(input RecordPaymentInput) (*models.Payment, error) {
	if !input.Amount.IsPositive() {
		return nil, ErrInvalidQuantity
	}
	order, err := s.orderRepo.GetByID(input.OrderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrNotFound
	}
	if orderTerminal(order.Status) {
		return nil, ErrInvalidState
	}
	payment := &models.Payment{
		OrderID:         order.ID,
		PaymentMethod:   input.PaymentMethod,
		Amount:          models.NewMoneyFromDecimal(input.Amount),
		Currency:        order.Currency,
		PaymentDate:     input.PaymentDate,
		ReferenceNumber: input.ReferenceNumber,
		Status:          constants.PaymentStatusPending,
		Notes:           input.Notes,
	}
	if err := s.orderRepo.CreatePayment(payment); err != nil {
		return nil, err
	}
	return payment, nil
}

// ConfirmPayment 财务确认收款：重算订单收款状态，
// 确认合计足额时待支付订单自动流转为已支付。
func (s *OrderService) ConfirmPayment(paymentID, actorID uint) (*models.Payment, error) {
	payment, err := s.orderRepo.GetPayment(paymentID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, ErrNotFound
	}
	if payment.Status != constants.PaymentStatusPending {
		return nil, ErrInvalidState
	}
	order, err := s.orderRepo.GetByID(payment.OrderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrNotFound
	}

	now := time.Now()
	payment.Status = constants.PaymentStatusConfirmed
	payment.ConfirmedBy = &actorID
	payment.ConfirmedAt = &now

	err = models.DB.Transaction(func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)
		if err := orderRepo.UpdatePayment(payment); err != nil {
			return err
		}
		confirmed, err := orderRepo.SumConfirmedPayments(order.ID)
		if err != nil {
			return err
		}
		paymentState := constants.PaymentStateUnpaid
		switch {
		case confirmed.Decimal.GreaterThanOrEqual(order.TotalAmount.Decimal):
			paymentState = constants.PaymentStatePaid
		case confirmed.Decimal.IsPositive():
			paymentState = constants.PaymentStatePartial
		}
		updates := map[string]interface{}{"payment_status": paymentState}
		status := order.Status
		if paymentState == constants.PaymentStatePaid && order.Status == constants.OrderStatusPendingPayment {
			status = constants.OrderStatusPaid
			updates["expires_at"] = nil
		}
		return orderRepo.UpdateStatus(order.ID, status, updates)
	})
	if err != nil {
		return nil, err
	}

	metrics.PaymentsConfirmedTotal.Inc()
	logger.S().Infow("收款已确认",
		"order_number", order.OrderNumber,
		"payment_id", payment.ID,
		"amount", payment.Amount.String())
	return payment, nil
}

// FailPayment 收款核验不通过
func (s *OrderService) FailPayment(paymentID uint) (*models.Payment, error) {
	payment, err := s.orderRepo.GetPayment(paymentID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, ErrNotFound
	}
	if payment.Status != constants.PaymentStatusPending {
		return nil, ErrInvalidState
	}
	payment.Status = constants.PaymentStatusFailed
	if err := s.orderRepo.UpdatePayment(payment); err != nil {
		return nil, err
	}
	return payment, nil
}

// generateOrderNumber 生成订单号，如 SO-7B1D22F0
func generateOrderNumber() string {
	id := uuid.New()
	return fmt.Sprintf("SO-%X", id[:4])
}
