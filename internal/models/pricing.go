package models

import (
	"time"
)

// BasePrice 基础价格表（按档位分时段版本化，effective_to 为空表示当前生效）
type BasePrice struct {
	ID            uint       `gorm:"primarykey" json:"id"`                                                              // 主键
	ProductID     uint       `gorm:"not null;index;index:idx_base_price_key,priority:1" json:"product_id"`              // 商品ID
	Tier          string     `gorm:"type:varchar(10);not null;index:idx_base_price_key,priority:2" json:"tier"`         // 档位
	Price         Money      `gorm:"type:decimal(15,2);not null" json:"price"`                                          // 价格
	EffectiveFrom time.Time  `gorm:"type:date;not null;index:idx_base_price_key,priority:3" json:"effective_from"`      // 生效日期（含）
	EffectiveTo   *time.Time `gorm:"type:date" json:"effective_to,omitempty"`                                           // 失效日期（不含），为空表示开放区间
	CreatedBy     uint       `json:"created_by,omitempty"`                                                              // 操作人ID
	CreatedAt     time.Time  `json:"created_at"`                                                                        // 创建时间
}

// TableName 指定表名
func (BasePrice) TableName() string {
	return "base_prices"
}

// ActiveAt 判断价格行在指定日期是否生效
func (p *BasePrice) ActiveAt(asOf time.Time) bool {
	if p == nil || asOf.Before(p.EffectiveFrom) {
		return false
	}
	return p.EffectiveTo == nil || asOf.Before(*p.EffectiveTo)
}

// ClientPrice 客户专属价格表（优先于档位基础价）
type ClientPrice struct {
	ID            uint       `gorm:"primarykey" json:"id"`                                                               // 主键
	ClientID      uint       `gorm:"not null;index;index:idx_client_price_key,priority:1" json:"client_id"`              // 客户ID
	ProductID     uint       `gorm:"not null;index;index:idx_client_price_key,priority:2" json:"product_id"`             // 商品ID
	Price         Money      `gorm:"type:decimal(15,2);not null" json:"price"`                                           // 价格
	IsProtected   bool       `gorm:"default:false" json:"is_protected"`                                                  // 低价保护标记
	EffectiveFrom time.Time  `gorm:"type:date;not null;index:idx_client_price_key,priority:3" json:"effective_from"`     // 生效日期（含）
	EffectiveTo   *time.Time `gorm:"type:date" json:"effective_to,omitempty"`                                            // 失效日期（不含）
	CreatedBy     uint       `json:"created_by,omitempty"`                                                               // 操作人ID
	CreatedAt     time.Time  `json:"created_at"`                                                                         // 创建时间
	UpdatedAt     time.Time  `json:"updated_at"`                                                                         // 更新时间
}

// TableName 指定表名
func (ClientPrice) TableName() string {
	return "client_prices"
}

// ActiveAt 判断价格行在指定日期是否生效
func (p *ClientPrice) ActiveAt(asOf time.Time) bool {
	if p == nil || asOf.Before(p.EffectiveFrom) {
		return false
	}
	return p.EffectiveTo == nil || asOf.Before(*p.EffectiveTo)
}

// PriceChangeRecord 价格变更审计表（只追加，不更新不删除）
type PriceChangeRecord struct {
	ID         uint      `gorm:"primarykey" json:"id"`                                   // 主键
	ProductID  uint      `gorm:"not null;index" json:"product_id"`                       // 商品ID
	ClientID   *uint     `gorm:"index" json:"client_id,omitempty"`                       // 客户ID（基础价变更为空）
	Tier       string    `gorm:"type:varchar(10)" json:"tier,omitempty"`                 // 档位（客户价变更为空）
	OldPrice   *Money    `gorm:"type:decimal(15,2)" json:"old_price,omitempty"`          // 旧价格（首次定价为空）
	NewPrice   Money     `gorm:"type:decimal(15,2);not null" json:"new_price"`           // 新价格
	ChangeType string    `gorm:"type:varchar(50);not null;index" json:"change_type"`     // 变更类型
	Reason     string    `gorm:"type:text" json:"reason,omitempty"`                      // 变更原因
	ChangedBy  uint      `json:"changed_by,omitempty"`                                   // 操作人ID
	ChangedAt  time.Time `gorm:"index" json:"changed_at"`                                // 变更时间
}

// TableName 指定表名
func (PriceChangeRecord) TableName() string {
	return "price_change_records"
}
