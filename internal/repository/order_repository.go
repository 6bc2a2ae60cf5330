package repository

import (
	"errors"
	"time"

	"github.com/emmetteckard/smartquote-b2b/internal/constants"
	"github.com/emmetteckard/smartquote-b2b/internal/models"

	"gorm.io/gorm"
)

// OrderRepository 订单数据访问接口
type OrderRepository interface {
	Create(order *models.Order, items []models.OrderItem) error
	GetByID(id uint) (*models.Order, error)
	GetByNumber(number string) (*models.Order, error)
	GetByQuotationID(quotationID uint) (*models.Order, error)
	List(filter OrderListFilter) ([]models.Order, int64, error)
	UpdateStatus(id uint, status string, updates map[string]interface{}) error
	ListExpired(asOf time.Time) ([]models.Order, error)
	CreatePayment(payment *models.Payment) error
	GetPayment(id uint) (*models.Payment, error)
	UpdatePayment(payment *models.Payment) error
	SumConfirmedPayments(orderID uint) (models.Money, error)
	WithTx(tx *gorm.DB) OrderRepository
}

// GormOrderRepository GORM 实现
type GormOrderRepository struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓库
func NewOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// WithTx 绑定事务
func (r *GormOrderRepository) WithTx(tx *gorm.DB) OrderRepository {
	if tx == nil {
		return r
	}
	return &GormOrderRepository{db: tx}
}

func (r *GormOrderRepository) withDetails(query *gorm.DB) *gorm.DB {
	return query.Preload("Items").Preload("Items.Product").Preload("Payments").Preload("StockLocks").Preload("Client")
}

// Create 创建订单与订单明细
func (r *GormOrderRepository) Create(order *models.Order, items []models.OrderItem) error {
	if err := r.db.Create(order).Error; err != nil {
		return err
	}
	for i := range items {
		items[i].OrderID = order.ID
	}
	if len(items) > 0 {
		if err := r.db.Create(&items).Error; err != nil {
			return err
		}
	}
	return nil
}

// GetByID 根据 ID 获取订单
func (r *GormOrderRepository) GetByID(id uint) (*models.Order, error) {
	var order models.Order
	if err := r.withDetails(r.db).First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// GetByNumber 根据订单号获取订单
func (r *GormOrderRepository) GetByNumber(number string) (*models.Order, error) {
	var order models.Order
	if err := r.withDetails(r.db).Where("order_number = ?", number).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// GetByQuotationID 根据来源报价单获取订单
func (r *GormOrderRepository) GetByQuotationID(quotationID uint) (*models.Order, error) {
	var order models.Order
	if err := r.withDetails(r.db).Where("quotation_id = ?", quotationID).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// List 订单列表
func (r *GormOrderRepository) List(filter OrderListFilter) ([]models.Order, int64, error) {
	var orders []models.Order
	query := r.db.Model(&models.Order{})

	if filter.ClientID != 0 {
		query = query.Where("client_id = ?", filter.ClientID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.PaymentStatus != "" {
		query = query.Where("payment_status = ?", filter.PaymentStatus)
	}
	if filter.Number != "" {
		query = query.Where("order_number = ?", filter.Number)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)
	if err := r.withDetails(query).Order("id desc").Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// UpdateStatus 更新订单状态
func (r *GormOrderRepository) UpdateStatus(id uint, status string, updates map[string]interface{}) error {
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["status"] = status
	return r.db.Model(&models.Order{}).Where("id = ?", id).Updates(updates).Error
}

// ListExpired 查询已超时的待支付订单
func (r *GormOrderRepository) ListExpired(asOf time.Time) ([]models.Order, error) {
	var orders []models.Order
	if err := r.db.Preload("StockLocks").
		Where("status = ?", constants.OrderStatusPendingPayment).
		Where("expires_at IS NOT NULL AND expires_at < ?", asOf).
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// CreatePayment 创建收款记录
func (r *GormOrderRepository) CreatePayment(payment *models.Payment) error {
	return r.db.Create(payment).Error
}

// GetPayment 根据 ID 获取收款记录
func (r *GormOrderRepository) GetPayment(id uint) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.First(&payment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

// UpdatePayment 更新收款记录
func (r *GormOrderRepository) UpdatePayment(payment *models.Payment) error {
	return r.db.Save(payment).Error
}

// SumConfirmedPayments 汇总订单已确认收款金额
func (r *GormOrderRepository) SumConfirmedPayments(orderID uint) (models.Money, error) {
	var payments []models.Payment
	if err := r.db.
		Where("order_id = ? AND status = ?", orderID, constants.PaymentStatusConfirmed).
		Find(&payments).Error; err != nil {
		return models.Money{}, err
	}
	sum := models.Money{}
	for _, payment := range payments {
		sum = models.NewMoneyFromDecimal(sum.Decimal.Add(payment.Amount.Decimal))
	}
	return sum, nil
}
