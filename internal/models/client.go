package models

import (
	"time"

	"gorm.io/gorm"
)

// Client 客户表
type Client struct {
	ID            uint           `gorm:"primarykey" json:"id"`                                  // 主键
	CompanyName   string         `gorm:"type:varchar(255);not null" json:"company_name"`        // 公司名称
	ContactPerson string         `gorm:"type:varchar(255)" json:"contact_person,omitempty"`     // 联系人
	Email         string         `gorm:"type:varchar(255);index" json:"email,omitempty"`        // 邮箱
	Phone         string         `gorm:"type:varchar(50)" json:"phone,omitempty"`               // 电话
	Address       string         `gorm:"type:text" json:"address,omitempty"`                    // 地址
	TaxID         string         `gorm:"type:varchar(100)" json:"tax_id,omitempty"`             // 税号
	PaymentTerms  int            `gorm:"not null;default:30" json:"payment_terms"`              // 账期（天）
	CreditLimit   *Money         `gorm:"type:decimal(15,2)" json:"credit_limit,omitempty"`      // 信用额度
	Tier          string         `gorm:"type:varchar(10);not null;default:'A'" json:"tier"`     // 定价档位
	SalesRepID    *uint          `gorm:"index" json:"sales_rep_id,omitempty"`                   // 负责销售ID
	IsActive      bool           `gorm:"default:true;index" json:"is_active"`                   // 是否启用
	CreatedAt     time.Time      `gorm:"index" json:"created_at"`                               // 创建时间
	UpdatedAt     time.Time      `json:"updated_at"`                                            // 更新时间
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`                                        // 软删除时间
}

// TableName 指定表名
func (Client) TableName() string {
	return "clients"
}
