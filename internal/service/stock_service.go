package service

import (
	"errors"
	"time"

	"github.com/emmetteckard/smartquote-b2b/internal/constants"
	"github.com/emmetteckard/smartquote-b2b/internal/logger"
	"github.com/emmetteckard/smartquote-b2b/internal/metrics"
	"github.com/emmetteckard/smartquote-b2b/internal/models"
	"github.com/emmetteckard/smartquote-b2b/internal/repository"

	"gorm.io/gorm"
)

// StockService 库存台账服务。
// 锁定把数量从 available 挪到 reserved，释放反向，履约从 reserved 扣减。
// 所有计数变更都走带守卫的条件更新，并发竞争下守卫失败即整单回滚。
type StockService struct {
	inventoryRepo repository.InventoryRepository
	orderRepo     repository.OrderRepository
}

// NewStockService 创建库存台账服务
func NewStockService(inventoryRepo repository.InventoryRepository, orderRepo repository.OrderRepository) *StockService {
	return &StockService{
		inventoryRepo: inventoryRepo,
		orderRepo:     orderRepo,
	}
}

// SetInventory 设置商品在指定仓库的可用数量（初始化与 ERP 同步用）
func (s *StockService) SetInventory(productID uint, warehouseCode string, availableQty int) (*models.Inventory, error) {
	if availableQty < 0 {
		return nil, ErrInvalidQuantity
	}
	now := time.Now()
	row, err := s.inventoryRepo.GetByProductWarehouse(productID, warehouseCode)
	if err != nil {
		return nil, err
	}
	if row == nil {
		row = &models.Inventory{
			ProductID:     productID,
			WarehouseCode: warehouseCode,
		}
	}
	row.AvailableQty = availableQty
	row.LastSyncAt = &now
	if err := s.inventoryRepo.Upsert(row); err != nil {
		return nil, err
	}
	return row, nil
}

// ListInventory 查询商品在各仓库的库存
func (s *StockService) ListInventory(productID uint) ([]models.Inventory, error) {
	return s.inventoryRepo.ListByProduct(productID)
}

// LockStock 为订单锁定全部明细的库存，整单要么全部锁上要么一件不动。
// 单仓不足时按可用量降序跨仓凑数，每个扣减点产生一条锁定凭证。
func (s *StockService) LockStock(orderID, actorID uint) ([]models.StockLock, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrNotFound
	}
	if order.StockLocked {
		return nil, ErrInvalidState
	}
	if order.Status == constants.OrderStatusCancelled || order.Status == constants.OrderStatusCompleted {
		return nil, ErrInvalidState
	}

	var created []models.StockLock
	err = models.DB.Transaction(func(tx *gorm.DB) error {
		locks, err := s.lockItemsTx(tx, order, actorID)
		if err != nil {
			return err
		}
		created = locks
		return s.orderRepo.WithTx(tx).UpdateStatus(order.ID, order.Status,
			map[string]interface{}{"stock_locked": true})
	})
	if err != nil {
		if errors.Is(err, ErrInsufficientStock) {
			metrics.StockLockFailuresTotal.WithLabelValues("insufficient").Inc()
		}
		return nil, err
	}
	metrics.StockLocksTotal.Inc()
	logger.S().Infow("订单库存已锁定",
		"order_number", order.OrderNumber, "locks", len(created))
	return created, nil
}

func (s *StockService) lockItemsTx(tx *gorm.DB, order *models.Order, actorID uint) ([]models.StockLock, error) {
	inventoryRepo := s.inventoryRepo.WithTx(tx)
	now := time.Now()
	var created []models.StockLock
	for _, item := range order.Items {
		remaining := item.Quantity
		rows, err := inventoryRepo.ListByProduct(item.ProductID)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			if remaining <= 0 {
				break
			}
			take := remaining
			if take > row.AvailableQty {
				take = row.AvailableQty
			}
			if take <= 0 {
				continue
			}
			affected, err := inventoryRepo.Reserve(item.ProductID, row.WarehouseCode, take)
			if err != nil {
				return nil, err
			}
			if affected == 0 {
				// 并发下可用量被别的事务抢走，视同不足
				return nil, ErrInsufficientStock
			}
			lock := models.StockLock{
				OrderID:       order.ID,
				ProductID:     item.ProductID,
				WarehouseCode: row.WarehouseCode,
				Quantity:      take,
				Status:        constants.StockLockStatusLocked,
				LockedBy:      actorID,
				LockedAt:      now,
			}
			if err := inventoryRepo.CreateLock(&lock); err != nil {
				return nil, err
			}
			created = append(created, lock)
			remaining -= take
		}
		if remaining > 0 {
			return nil, ErrInsufficientStock
		}
	}
	return created, nil
}

// ReleaseStock 释放订单名下全部仍处于锁定态的库存
func (s *StockService) ReleaseStock(orderID uint) error {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return err
	}
	if order == nil {
		return ErrNotFound
	}
	err = models.DB.Transaction(func(tx *gorm.DB) error {
		if err := s.releaseLockedTx(tx, order.ID); err != nil {
			return err
		}
		return s.orderRepo.WithTx(tx).UpdateStatus(order.ID, order.Status,
			map[string]interface{}{"stock_locked": false})
	})
	if err != nil {
		return err
	}
	logger.S().Infow("订单库存已释放", "order_number", order.OrderNumber)
	return nil
}

// releaseLockedTx 在既有事务内释放订单的锁定库存（订单取消复用）
func (s *StockService) releaseLockedTx(tx *gorm.DB, orderID uint) error {
	inventoryRepo := s.inventoryRepo.WithTx(tx)
	locks, err := inventoryRepo.ListLocksByOrder(orderID, constants.StockLockStatusLocked)
	if err != nil {
		return err
	}
	now := time.Now()
	for _, lock := range locks {
		affected, err := inventoryRepo.Release(lock.ProductID, lock.WarehouseCode, lock.Quantity)
		if err != nil {
			return err
		}
		if affected == 0 {
			// reserved 计数对不上锁定凭证，数据已被绕过台账修改
			return ErrInvalidState
		}
		if err := inventoryRepo.UpdateLockStatus(lock.ID, constants.StockLockStatusReleased, &now); err != nil {
			return err
		}
	}
	return nil
}

// FulfillStock 履约出库：锁定量从 reserved 扣减，凭证流转为 fulfilled
func (s *StockService) FulfillStock(orderID uint) error {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return err
	}
	if order == nil {
		return ErrNotFound
	}
	if !order.StockLocked {
		return ErrInvalidState
	}
	err = models.DB.Transaction(func(tx *gorm.DB) error {
		inventoryRepo := s.inventoryRepo.WithTx(tx)
		locks, err := inventoryRepo.ListLocksByOrder(order.ID, constants.StockLockStatusLocked)
		if err != nil {
			return err
		}
		if len(locks) == 0 {
			return ErrInvalidState
		}
		for _, lock := range locks {
			affected, err := inventoryRepo.Fulfill(lock.ProductID, lock.WarehouseCode, lock.Quantity)
			if err != nil {
				return err
			}
			if affected == 0 {
				return ErrInvalidState
			}
			if err := inventoryRepo.UpdateLockStatus(lock.ID, constants.StockLockStatusFulfilled, nil); err != nil {
				return err
			}
		}
		return s.orderRepo.WithTx(tx).UpdateStatus(order.ID, order.Status,
			map[string]interface{}{"stock_locked": false})
	})
	if err != nil {
		return err
	}
	logger.S().Infow("订单库存已履约出库", "order_number", order.OrderNumber)
	return nil
}

// OrderLocks 查询订单的库存锁定凭证
func (s *StockService) OrderLocks(orderID uint, status string) ([]models.StockLock, error) {
	return s.inventoryRepo.ListLocksByOrder(orderID, status)
}
