package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Quotation 报价单表
type Quotation struct {
	ID              uint           `gorm:"primarykey" json:"id"`                                             // 主键
	QuotationNumber string         `gorm:"type:varchar(50);uniqueIndex;not null" json:"quotation_number"`    // 报价单号，如 PI-3F2A9C01
	ClientID        uint           `gorm:"not null;index" json:"client_id"`                                  // 客户ID
	Status          string         `gorm:"type:varchar(50);not null;default:'draft';index" json:"status"`    // 状态
	TotalAmount     Money          `gorm:"type:decimal(15,2);not null;default:0" json:"total_amount"`        // 总金额（由明细派生）
	Currency        string         `gorm:"type:varchar(10);not null;default:'USD'" json:"currency"`          // 币种
	ValidUntil      *time.Time     `gorm:"type:date;index" json:"valid_until,omitempty"`                     // 有效期截止
	Notes           string         `gorm:"type:text" json:"notes,omitempty"`                                 // 备注
	CreatedBy       uint           `json:"created_by,omitempty"`                                             // 创建人ID
	CreatedAt       time.Time      `gorm:"index" json:"created_at"`                                          // 创建时间
	UpdatedAt       time.Time      `json:"updated_at"`                                                       // 更新时间
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`                                                   // 软删除时间

	// 关联
	Client *Client         `gorm:"foreignKey:ClientID" json:"client,omitempty"`                                // 客户信息
	Items  []QuotationItem `gorm:"foreignKey:QuotationID;constraint:OnDelete:CASCADE" json:"items,omitempty"` // 报价明细
}

// TableName 指定表名
func (Quotation) TableName() string {
	return "quotations"
}

// QuotationItem 报价明细表（单价冻结后不可修改）
type QuotationItem struct {
	ID              uint      `gorm:"primarykey" json:"id"`                                          // 主键
	QuotationID     uint      `gorm:"not null;index" json:"quotation_id"`                            // 报价单ID
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
func (QuotationItem) TableName() string {
	return "quotation_items"
}

// LineTotal 明细金额 = 数量 × 单价 × (1 - 折扣/100)
func (i *QuotationItem) LineTotal() decimal.Decimal {
	if i == nil {
		return decimal.Zero
	}
	qty := decimal.NewFromInt(int64(i.Quantity))
	factor := decimal.NewFromInt(1).Sub(i.DiscountPercent.Decimal.Div(decimal.NewFromInt(100)))
	return qty.Mul(i.UnitPrice.Decimal).Mul(factor).Round(2)
}
