package repository

import (
	"errors"
	"time"

	"github.com/emmetteckard/smartquote-b2b/internal/constants"
	"github.com/emmetteckard/smartquote-b2b/internal/models"

	"gorm.io/gorm"
)

// QuotationRepository 报价单数据访问接口
type QuotationRepository interface {
	Create(quotation *models.Quotation, items []models.QuotationItem) error
	GetByID(id uint) (*models.Quotation, error)
	GetByNumber(number string) (*models.Quotation, error)
	List(filter QuotationListFilter) ([]models.Quotation, int64, error)
	UpdateStatus(id uint, status string, updates map[string]interface{}) error
	ListExpirable(asOf time.Time) ([]models.Quotation, error)
	WithTx(tx *gorm.DB) QuotationRepository
}

// GormQuotationRepository GORM 实现
type GormQuotationRepository struct {
	db *gorm.DB
}

// NewQuotationRepository 创建报价单仓库
func NewQuotationRepository(db *gorm.DB) *GormQuotationRepository {
	return &GormQuotationRepository{db: db}
}

// WithTx 绑定事务
func (r *GormQuotationRepository) WithTx(tx *gorm.DB) QuotationRepository {
	if tx == nil {
		return r
	}
	return &GormQuotationRepository{db: tx}
}

// Create 创建报价单与明细（调用方负责包裹事务）
func (r *GormQuotationRepository) Create(quotation *models.Quotation, items []models.QuotationItem) error {
	if err := r.db.Create(quotation).Error; err != nil {
		return err
	}
	for i := range items {
		items[i].QuotationID = quotation.ID
	}
	if len(items) > 0 {
		if err := r.db.Create(&items).Error; err != nil {
			return err
		}
	}
	return nil
}

// GetByID 根据 ID 获取报价单
func (r *GormQuotationRepository) GetByID(id uint) (*models.Quotation, error) {
	var quotation models.Quotation
	if err := r.db.Preload("Items").Preload("Items.Product").Preload("Client").
		First(&quotation, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &quotation, nil
}

// GetByNumber 根据报价单号获取报价单
func (r *GormQuotationRepository) GetByNumber(number string) (*models.Quotation, error) {
	var quotation models.Quotation
	if err := r.db.Preload("Items").Preload("Items.Product").Preload("Client").
		Where("quotation_number = ?", number).First(&quotation).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &quotation, nil
}

// List 报价单列表
func (r *GormQuotationRepository) List(filter QuotationListFilter) ([]models.Quotation, int64, error) {
	var quotations []models.Quotation
	query := r.db.Model(&models.Quotation{})

	if filter.ClientID != 0 {
		query = query.Where("client_id = ?", filter.ClientID)
	}
	if filter.SalesRepID != 0 {
		query = query.Joins("JOIN clients ON clients.id = quotations.client_id").
			Where("clients.sales_rep_id = ?", filter.SalesRepID)
	}
	if filter.Status != "" {
		query = query.Where("quotations.status = ?", filter.Status)
	}
	if filter.Number != "" {
		query = query.Where("quotation_number = ?", filter.Number)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("quotations.created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("quotations.created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)
	if err := query.Preload("Items").Preload("Client").
		Order("quotations.id desc").Find(&quotations).Error; err != nil {
		return nil, 0, err
	}
	return quotations, total, nil
}

// UpdateStatus 更新报价单状态
func (r *GormQuotationRepository) UpdateStatus(id uint, status string, updates map[string]interface{}) error {
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["status"] = status
	return r.db.Model(&models.Quotation{}).Where("id = ?", id).Updates(updates).Error
}

// ListExpirable 查询有效期已过且仍可流转为过期的报价单
func (r *GormQuotationRepository) ListExpirable(asOf time.Time) ([]models.Quotation, error) {
	var quotations []models.Quotation
	if err := r.db.
		Where("status IN ?", []string{constants.QuotationStatusDraft, constants.QuotationStatusSent}).
		Where("valid_until IS NOT NULL AND valid_until < ?", asOf).
		Find(&quotations).Error; err != nil {
		return nil, err
	}
	return quotations, nil
}
