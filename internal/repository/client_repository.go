package repository

import (
	"errors"

	"github.com/emmetteckard/smartquote-b2b/internal/models"

	"gorm.io/gorm"
)

// ClientRepository 客户数据访问接口
type ClientRepository interface {
	Create(client *models.Client) error
	Update(client *models.Client) error
	GetByID(id uint) (*models.Client, error)
	List(filter ClientListFilter) ([]models.Client, int64, error)
	WithTx(tx *gorm.DB) ClientRepository
}

// GormClientRepository GORM 实现
type GormClientRepository struct {
	db *gorm.DB
}

// NewClientRepository 创建客户仓库
func NewClientRepository(db *gorm.DB) *GormClientRepository {
	return &GormClientRepository{db: db}
}

// WithTx 绑定事务
func (r *GormClientRepository) WithTx(tx *gorm.DB) ClientRepository {
	if tx == nil {
		return r
	}
	return &GormClientRepository{db: tx}
}

// Create 创建客户
func (r *GormClientRepository) Create(client *models.Client) error {
	return r.db.Create(client).Error
}

// Update 更新客户
func (r *GormClientRepository) Update(client *models.Client) error {
	return r.db.Save(client).Error
}

// GetByID 根据 ID 获取客户
func (r *GormClientRepository) GetByID(id uint) (*models.Client, error) {
	var client models.Client
	if err := r.db.First(&client, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &client, nil
}

// List 客户列表
func (r *GormClientRepository) List(filter ClientListFilter) ([]models.Client, int64, error) {
	var clients []models.Client
	query := r.db.Model(&models.Client{})

	if filter.OnlyActive {
		query = query.Where("is_active = ?", true)
	}
	if filter.Tier != "" {
		query = query.Where("tier = ?", filter.Tier)
	}
	if filter.SalesRepID != 0 {
		query = query.Where("sales_rep_id = ?", filter.SalesRepID)
	}
	if filter.Search != "" {
		condition, args := buildSearchCondition(r.db, []string{"company_name", "contact_person", "email"}, filter.Search)
		query = query.Where(condition, args...)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)
	if err := query.Order("id asc").Find(&clients).Error; err != nil {
		return nil, 0, err
	}
	return clients, total, nil
}
