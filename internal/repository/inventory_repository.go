package repository

import (
	"errors"
	"time"

	"github.com/emmetteckard/smartquote-b2b/internal/models"

	"gorm.io/gorm"
)

// InventoryRepository 库存数据访问接口。
// Reserve/Release/Fulfill 均为带数量守卫的条件更新：返回受影响行数，
// 0 行表示守卫不满足（库存不足或并发竞争失败），由调用方决定回滚。
type InventoryRepository interface {
	GetByProductWarehouse(productID uint, warehouseCode string) (*models.Inventory, error)
	ListByProduct(productID uint) ([]models.Inventory, error)
	Upsert(row *models.Inventory) error
	Reserve(productID uint, warehouseCode string, quantity int) (int64, error)
	Release(productID uint, warehouseCode string, quantity int) (int64, error)
	Fulfill(productID uint, warehouseCode string, quantity int) (int64, error)

	CreateLock(lock *models.StockLock) error
	ListLocksByOrder(orderID uint, status string) ([]models.StockLock, error)
	UpdateLockStatus(id uint, status string, releasedAt *time.Time) error
	WithTx(tx *gorm.DB) InventoryRepository
}

// GormInventoryRepository GORM 实现
type GormInventoryRepository struct {
	db *gorm.DB
}

// NewInventoryRepository 创建库存仓库
func NewInventoryRepository(db *gorm.DB) *GormInventoryRepository {
	return &GormInventoryRepository{db: db}
}

// WithTx 绑定事务
func (r *GormInventoryRepository) WithTx(tx *gorm.DB) InventoryRepository {
	if tx == nil {
		return r
	}
	return &GormInventoryRepository{db: tx}
}

// GetByProductWarehouse 获取指定商品在指定仓库的库存行
func (r *GormInventoryRepository) GetByProductWarehouse(productID uint, warehouseCode string) (*models.Inventory, error) {
	var row models.Inventory
	if err := r.db.
		Where("product_id = ? AND warehouse_code = ?", productID, warehouseCode).
		First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// ListByProduct 获取商品的全部库存行，按可用量降序
func (r *GormInventoryRepository) ListByProduct(productID uint) ([]models.Inventory, error) {
	var rows []models.Inventory
	if err := r.db.
		Where("product_id = ?", productID).
		Order("available_qty desc, warehouse_code asc").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Upsert 写入库存行（种子与同步场景）
func (r *GormInventoryRepository) Upsert(row *models.Inventory) error {
	existing, err := r.GetByProductWarehouse(row.ProductID, row.WarehouseCode)
	if err != nil {
		return err
	}
	if existing == nil {
		return r.db.Create(row).Error
	}
	row.ID = existing.ID
	return r.db.Save(row).Error
}

// Reserve 预占库存：available -= qty, reserved += qty。
// WHERE 中的 available_qty >= qty 守卫串行化了并发预占：
// 两个并发请求同时通过读检查时，只有先提交的条件更新会生效。
func (r *GormInventoryRepository) Reserve(productID uint, warehouseCode string, quantity int) (int64, error) {
	if productID == 0 || quantity <= 0 {
		return 0, errors.New("invalid stock reserve params")
	}
	result := r.db.Model(&models.Inventory{}).
		Where("product_id = ? AND warehouse_code = ? AND available_qty >= ?", productID, warehouseCode, quantity).
		Updates(map[string]interface{}{
			"available_qty": gorm.Expr("available_qty - ?", quantity),
			"reserved_qty":  gorm.Expr("reserved_qty + ?", quantity),
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// Release 释放预占：reserved -= qty, available += qty
func (r *GormInventoryRepository) Release(productID uint, warehouseCode string, quantity int) (int64, error) {
	if productID == 0 || quantity <= 0 {
		return 0, errors.New("invalid stock release params")
	}
	result := r.db.Model(&models.Inventory{}).
		Where("product_id = ? AND warehouse_code = ? AND reserved_qty >= ?", productID, warehouseCode, quantity).
		Updates(map[string]interface{}{
			"available_qty": gorm.Expr("available_qty + ?", quantity),
			"reserved_qty":  gorm.Expr("reserved_qty - ?", quantity),
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// Fulfill 出库核销：reserved -= qty，货物离仓不回到可用量
func (r *GormInventoryRepository) Fulfill(productID uint, warehouseCode string, quantity int) (int64, error) {
	if productID == 0 || quantity <= 0 {
		return 0, errors.New("invalid stock fulfill params")
	}
	result := r.db.Model(&models.Inventory{}).
		Where("product_id = ? AND warehouse_code = ? AND reserved_qty >= ?", productID, warehouseCode, quantity).
		Update("reserved_qty", gorm.Expr("reserved_qty - ?", quantity))
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// CreateLock 创建库存锁定记录
func (r *GormInventoryRepository) CreateLock(lock *models.StockLock) error {
	return r.db.Create(lock).Error
}

// ListLocksByOrder 查询订单的锁定记录，可按状态过滤
func (r *GormInventoryRepository) ListLocksByOrder(orderID uint, status string) ([]models.StockLock, error) {
	var locks []models.StockLock
	query := r.db.Where("order_id = ?", orderID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Order("id asc").Find(&locks).Error; err != nil {
		return nil, err
	}
	return locks, nil
}

// UpdateLockStatus 更新锁定记录状态
func (r *GormInventoryRepository) UpdateLockStatus(id uint, status string, releasedAt *time.Time) error {
	updates := map[string]interface{}{"status": status}
	if releasedAt != nil {
		updates["released_at"] = *releasedAt
	}
	return r.db.Model(&models.StockLock{}).Where("id = ?", id).Updates(updates).Error
}
