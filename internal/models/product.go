package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product 商品表
type Product struct {
	ID            uint           `gorm:"primarykey" json:"id"`                                 // 主键
	SKU           string         `gorm:"type:varchar(100);uniqueIndex;not null" json:"sku"`    // 唯一 SKU
	Name          string         `gorm:"type:varchar(255);not null" json:"name"`               // 商品名称
	Description   string         `gorm:"type:text" json:"description,omitempty"`               // 描述
	Category      string         `gorm:"type:varchar(100);index" json:"category,omitempty"`    // 分类
	Unit          string         `gorm:"type:varchar(50);not null;default:'pcs'" json:"unit"`  // 计量单位
	MinOrderQty   int            `gorm:"not null;default:1" json:"min_order_qty"`              // 最小起订量
	ErpProductID  string         `gorm:"type:varchar(100)" json:"erp_product_id,omitempty"`    // ERP 商品引用
	PackageLength *decimal.Decimal `gorm:"type:decimal(10,2)" json:"package_length,omitempty"` // 包装长 cm
	PackageWidth  *decimal.Decimal `gorm:"type:decimal(10,2)" json:"package_width,omitempty"`  // 包装宽 cm
	PackageHeight *decimal.Decimal `gorm:"type:decimal(10,2)" json:"package_height,omitempty"` // 包装高 cm
	PackageWeight *decimal.Decimal `gorm:"type:decimal(10,2)" json:"package_weight,omitempty"` // 包装重 kg
	IsActive      bool           `gorm:"default:true;index" json:"is_active"`                  // 是否在售
	CreatedAt     time.Time      `gorm:"index" json:"created_at"`                              // 创建时间
	UpdatedAt     time.Time      `json:"updated_at"`                                           // 更新时间
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`                                       // 软删除时间

	// 关联
	Components []ProductComponent `gorm:"foreignKey:ParentProductID;constraint:OnDelete:CASCADE" json:"components,omitempty"` // 组合件构成
}

// TableName 指定表名
func (Product) TableName() string {
	return "products"
}

// IsBundle 是否为组合商品（存在构成边）
func (p *Product) IsBundle() bool {
	return p != nil && len(p.Components) > 0
}

// ProductComponent 组合商品构成边（父 → 子，单套用量）
type ProductComponent struct {
	ID              uint      `gorm:"primarykey" json:"id"`                                                       // 主键
	ParentProductID uint      `gorm:"not null;index;uniqueIndex:uq_component_parent_child" json:"parent_product_id"` // 父商品ID
	ChildProductID  uint      `gorm:"not null;index;uniqueIndex:uq_component_parent_child" json:"child_product_id"`  // 子商品ID
	Quantity        int       `gorm:"not null;default:1" json:"quantity"`                                         // 单套用量
	CreatedAt       time.Time `json:"created_at"`                                                                 // 创建时间

	// 关联
	Child *Product `gorm:"foreignKey:ChildProductID" json:"child,omitempty"` // 子商品信息
}

// TableName 指定表名
func (ProductComponent) TableName() string {
	return "product_components"
}
