package models

import (
	"time"
)

// Inventory 库存表：按 (商品, 仓库) 维护 available/reserved 计数对。
// total = available + reserved 为派生值，不单独落库；available 不允许为负。
// 计数只经由库存台账服务的条件更新语句修改，不做直接赋值。
type Inventory struct {
	ID              uint       `gorm:"primarykey" json:"id"`                                                               // 主键
	ProductID       uint       `gorm:"not null;index;uniqueIndex:uq_inventory_product_warehouse" json:"product_id"`        // 商品ID
	WarehouseCode   string     `gorm:"type:varchar(50);not null;uniqueIndex:uq_inventory_product_warehouse" json:"warehouse_code"` // 仓库编码
	AvailableQty    int        `gorm:"not null;default:0" json:"available_qty"`                                            // 可用数量
	ReservedQty     int        `gorm:"not null;default:0" json:"reserved_qty"`                                             // 预占数量
	ErpWarehouseID  string     `gorm:"type:varchar(100)" json:"erp_warehouse_id,omitempty"`                                // ERP 仓库引用
	LastSyncAt      *time.Time `json:"last_sync_at,omitempty"`                                                             // 最近同步时间
	CreatedAt       time.Time  `json:"created_at"`                                                                         // 创建时间
	UpdatedAt       time.Time  `json:"updated_at"`                                                                         // 更新时间
}

// TableName 指定表名
func (Inventory) TableName() string {
	return "inventory"
}

// TotalQty 总数量 = 可用 + 预占
func (i *Inventory) TotalQty() int {
	if i == nil {
		return 0
	}
	return i.AvailableQty + i.ReservedQty
}
