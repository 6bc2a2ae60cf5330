package repository

import (
	"errors"
	"time"

	"github.com/emmetteckard/smartquote-b2b/internal/models"

	"gorm.io/gorm"
)

// PriceRepository 价格台账数据访问接口。
// 价格行只追加与关闭区间，从不原地改价；审计记录只追加。
type PriceRepository interface {
	ActiveBasePrice(productID uint, tier string, asOf time.Time) (*models.BasePrice, error)
	ActiveBasePrices(productID uint, asOf time.Time) ([]models.BasePrice, error)
	OpenBasePrice(productID uint, tier string) (*models.BasePrice, error)
	LatestBasePriceFrom(productID uint, tier string) (*time.Time, error)
	CloseBasePrice(id uint, effectiveTo time.Time) error
	CreateBasePrice(row *models.BasePrice) error

	ActiveClientPrice(clientID, productID uint, asOf time.Time) (*models.ClientPrice, error)
	OpenClientPrice(clientID, productID uint) (*models.ClientPrice, error)
	LatestClientPriceFrom(clientID, productID uint) (*time.Time, error)
	CloseClientPrice(id uint, effectiveTo time.Time) error
	CreateClientPrice(row *models.ClientPrice) error

	AppendChangeRecord(record *models.PriceChangeRecord) error
	ListChangeRecords(filter PriceChangeListFilter) ([]models.PriceChangeRecord, int64, error)
	WithTx(tx *gorm.DB) PriceRepository
}

// GormPriceRepository GORM 实现
type GormPriceRepository struct {
	db *gorm.DB
}

// NewPriceRepository 创建价格仓库
func NewPriceRepository(db *gorm.DB) *GormPriceRepository {
	return &GormPriceRepository{db: db}
}

// WithTx 绑定事务
func (r *GormPriceRepository) WithTx(tx *gorm.DB) PriceRepository {
	if tx == nil {
		return r
	}
	return &GormPriceRepository{db: tx}
}

// ActiveBasePrice 查询指定日期生效的基础价。
// 不重叠约束下最多一行；防御性地取 effective_from 最新的一行。
func (r *GormPriceRepository) ActiveBasePrice(productID uint, tier string, asOf time.Time) (*models.BasePrice, error) {
	var row models.BasePrice
	if err := r.db.
		Where("product_id = ? AND tier = ? AND effective_from <= ?", productID, tier, asOf).
		Where("effective_to IS NULL OR effective_to > ?", asOf).
		Order("effective_from desc").
		First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// ActiveBasePrices 查询指定日期各档位生效的基础价（档位价视图）
func (r *GormPriceRepository) ActiveBasePrices(productID uint, asOf time.Time) ([]models.BasePrice, error) {
	var rows []models.BasePrice
	if err := r.db.
		Where("product_id = ? AND effective_from <= ?", productID, asOf).
		Where("effective_to IS NULL OR effective_to > ?", asOf).
		Order("tier asc, effective_from desc").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// OpenBasePrice 查询当前开放区间的基础价行
func (r *GormPriceRepository) OpenBasePrice(productID uint, tier string) (*models.BasePrice, error) {
	var row models.BasePrice
	if err := r.db.
		Where("product_id = ? AND tier = ? AND effective_to IS NULL", productID, tier).
		Order("effective_from desc").
		First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// LatestBasePriceFrom 查询该键下最新的 effective_from（历史单调性校验用）
func (r *GormPriceRepository) LatestBasePriceFrom(productID uint, tier string) (*time.Time, error) {
	var row models.BasePrice
	if err := r.db.
		Where("product_id = ? AND tier = ?", productID, tier).
		Order("effective_from desc").
		First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row.EffectiveFrom, nil
}

// CloseBasePrice 关闭基础价行的开放区间
func (r *GormPriceRepository) CloseBasePrice(id uint, effectiveTo time.Time) error {
	return r.db.Model(&models.BasePrice{}).
		Where("id = ?", id).
		Update("effective_to", effectiveTo).Error
}

// CreateBasePrice 写入基础价行
func (r *GormPriceRepository) CreateBasePrice(row *models.BasePrice) error {
	return r.db.Create(row).Error
}

// ActiveClientPrice 查询指定日期生效的客户专属价
func (r *GormPriceRepository) ActiveClientPrice(clientID, productID uint, asOf time.Time) (*models.ClientPrice, error) {
	var row models.ClientPrice
	if err := r.db.
		Where("client_id = ? AND product_id = ? AND effective_from <= ?", clientID, productID, asOf).
		Where("effective_to IS NULL OR effective_to > ?", asOf).
		Order("effective_from desc").
		First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// OpenClientPrice 查询当前开放区间的客户专属价行
func (r *GormPriceRepository) OpenClientPrice(clientID, productID uint) (*models.ClientPrice, error) {
	var row models.ClientPrice
	if err := r.db.
		Where("client_id = ? AND product_id = ? AND effective_to IS NULL", clientID, productID).
		Order("effective_from desc").
		First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// LatestClientPriceFrom 查询该键下最新的 effective_from
func (r *GormPriceRepository) LatestClientPriceFrom(clientID, productID uint) (*time.Time, error) {
	var row models.ClientPrice
	if err := r.db.
		Where("client_id = ? AND product_id = ?", clientID, productID).
		Order("effective_from desc").
		First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row.EffectiveFrom, nil
}

// CloseClientPrice 关闭客户专属价行的开放区间
func (r *GormPriceRepository) CloseClientPrice(id uint, effectiveTo time.Time) error {
	return r.db.Model(&models.ClientPrice{}).
		Where("id = ?", id).
		Update("effective_to", effectiveTo).Error
}

// CreateClientPrice 写入客户专属价行
func (r *GormPriceRepository) CreateClientPrice(row *models.ClientPrice) error {
	return r.db.Create(row).Error
}

// AppendChangeRecord 追加价格变更审计记录
func (r *GormPriceRepository) AppendChangeRecord(record *models.PriceChangeRecord) error {
	return r.db.Create(record).Error
}

// ListChangeRecords 查询价格变更审计
func (r *GormPriceRepository) ListChangeRecords(filter PriceChangeListFilter) ([]models.PriceChangeRecord, int64, error) {
	var records []models.PriceChangeRecord
	query := r.db.Model(&models.PriceChangeRecord{})

	if filter.ProductID != 0 {
		query = query.Where("product_id = ?", filter.ProductID)
	}
	if filter.ClientID != 0 {
		query = query.Where("client_id = ?", filter.ClientID)
	}
	if filter.ChangeType != "" {
		query = query.Where("change_type = ?", filter.ChangeType)
	}
	if filter.ChangedFrom != nil {
		query = query.Where("changed_at >= ?", *filter.ChangedFrom)
	}
	if filter.ChangedTo != nil {
		query = query.Where("changed_at <= ?", *filter.ChangedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)
	if err := query.Order("id desc").Find(&records).Error; err != nil {
		return nil, 0, err
	}
	return records, total, nil
}
