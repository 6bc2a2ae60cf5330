package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Order 订单表（由已接受的报价单转化而来）
type Order struct {
	ID            uint           `gorm:"primarykey" json:"id"`                                                      // 主键
	OrderNumber   string         `gorm:"type:varchar(50);uniqueIndex;not null" json:"order_number"`                 // 订单号，如 SO-7B1D22F0
	QuotationID   uint           `gorm:"not null;uniqueIndex" json:"quotation_id"`                                  // 来源报价单ID
	ClientID      uint           `gorm:"not null;index" json:"client_id"`                                           // 客户ID
	Status        string         `gorm:"type:varchar(50);not null;default:'pending_payment';index" json:"status"`   // 订单状态
	TotalAmount   Money          `gorm:"type:decimal(15,2);not null;default:0" json:"total_amount"`                 // 总金额
	Currency      string         `gorm:"type:varchar(10);not null;default:'USD'" json:"currency"`                   // 币种
	PaymentStatus string         `gorm:"type:varchar(50);not null;default:'unpaid';index" json:"payment_status"`    // 收款状态
	StockLocked   bool           `gorm:"default:false" json:"stock_locked"`                                         // 库存是否已锁定
	Notes         string         `gorm:"type:text" json:"notes,omitempty"`                                          // 备注
	ExpiresAt     *time.Time     `gorm:"index" json:"expires_at,omitempty"`                                         // 待支付超时时间
	CreatedBy     uint           `json:"created_by,omitempty"`                                                      // 创建人ID
	CreatedAt     time.Time      `gorm:"index" json:"created_at"`                                                   // 创建时间
	UpdatedAt     time.Time      `json:"updated_at"`                                                                // 更新时间
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`                                                            // 软删除时间

	// 关联
	Client     *Client     `gorm:"foreignKey:ClientID" json:"client,omitempty"`                                     // 客户信息
	Quotation  *Quotation  `gorm:"foreignKey:QuotationID" json:"quotation,omitempty"`                               // 来源报价单
	Items      []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items,omitempty"`           // 订单明细
	Payments   []Payment   `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"payments,omitempty"`        // 收款记录
	StockLocks []StockLock `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"stock_locks,omitempty"`     // 库存锁定记录
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}

// OrderItem 订单明细表（镜像报价明细的冻结价格）
type OrderItem struct {
	ID              uint      `gorm:"primarykey" json:"id"`                                          // 主键
	OrderID         uint      `gorm:"not null;index" json:"order_id"`                                // 订单ID
	ProductID       uint      `gorm:"not null;index" json:"product_id"`                              // 商品ID
	Quantity        int       `gorm:"not null" json:"quantity"`                                      // 数量
	UnitPrice       Money     `gorm:"type:decimal(15,2);not null" json:"unit_price"`                 // 冻结单价
	DiscountPercent Money     `gorm:"type:decimal(5,2);not null;default:0" json:"discount_percent"`  // 折扣百分比
	Notes           string    `gorm:"type:text" json:"notes,omitempty"`                              // 备注
	CreatedAt       time.Time `json:"created_at"`                                                    // 创建时间

	// 关联
	Product *Product `gorm:"foreignKey:ProductID" json:"product,omitempty"` // 商品信息
}

// TableName 指定表名
func (OrderItem) TableName() string {
	return "order_items"
}

// LineTotal 明细金额 = 数量 × 单价 × (1 - 折扣/100)
func (i *OrderItem) LineTotal() decimal.Decimal {
	if i == nil {
		return decimal.Zero
	}
	qty := decimal.NewFromInt(int64(i.Quantity))
	factor := decimal.NewFromInt(1).Sub(i.DiscountPercent.Decimal.Div(decimal.NewFromInt(100)))
	return qty.Mul(i.UnitPrice.Decimal).Mul(factor).Round(2)
}

// Payment 收款记录表（线下汇款人工登记）
type Payment struct {
	ID              uint       `gorm:"primarykey" json:"id"`                                           // 主键
	OrderID         uint       `gorm:"not null;index" json:"order_id"`                                 // 订单ID
	PaymentMethod   string     `gorm:"type:varchar(50)" json:"payment_method,omitempty"`               // 收款方式
	Amount          Money      `gorm:"type:decimal(15,2);not null" json:"amount"`                      // 金额
	Currency        string     `gorm:"type:varchar(10);not null;default:'USD'" json:"currency"`        // 币种
	PaymentDate     *time.Time `gorm:"type:date" json:"payment_date,omitempty"`                        // 付款日期
	ReferenceNumber string     `gorm:"type:varchar(100)" json:"reference_number,omitempty"`            // 汇款参考号
	Status          string     `gorm:"type:varchar(50);not null;default:'pending';index" json:"status"` // 状态
	ConfirmedBy     *uint      `json:"confirmed_by,omitempty"`                                         // 确认人ID
	ConfirmedAt     *time.Time `json:"confirmed_at,omitempty"`                                         // 确认时间
	Notes           string     `gorm:"type:text" json:"notes,omitempty"`                               // 备注
	CreatedAt       time.Time  `json:"created_at"`                                                     // 创建时间
}

// TableName 指定表名
func (Payment) TableName() string {
	return "payments"
}

// StockLock 库存锁定记录表（available → reserved 的预占凭证）
type StockLock struct {
	ID            uint       `gorm:"primarykey" json:"id"`                                            // 主键
	OrderID       uint       `gorm:"not null;index" json:"order_id"`                                  // 订单ID
	ProductID     uint       `gorm:"not null;index" json:"product_id"`                                // 商品ID
	WarehouseCode string     `gorm:"type:varchar(50);not null" json:"warehouse_code"`                 // 仓库编码
	Quantity      int        `gorm:"not null" json:"quantity"`                                        // 锁定数量
	Status        string     `gorm:"type:varchar(50);not null;default:'locked';index" json:"status"`  // 状态
	LockedBy      uint       `json:"locked_by,omitempty"`                                             // 锁定人ID
	LockedAt      time.Time  `json:"locked_at"`                                                       // 锁定时间
	ReleasedAt    *time.Time `json:"released_at,omitempty"`                                           // 释放时间
}

// TableName 指定表名
func (StockLock) TableName() string {
	return "stock_locks"
}
