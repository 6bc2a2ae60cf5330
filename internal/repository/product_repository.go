package repository

import (
	"errors"

	"github.com/emmetteckard/smartquote-b2b/internal/models"

	"gorm.io/gorm"
)

// ProductRepository 商品数据访问接口
type ProductRepository interface {
	Create(product *models.Product) error
	Update(product *models.Product) error
	GetByID(id uint) (*models.Product, error)
	GetBySKU(sku string) (*models.Product, error)
	List(filter ProductListFilter) ([]models.Product, int64, error)
	ListComponents(parentID uint) ([]models.ProductComponent, error)
	CreateComponent(edge *models.ProductComponent) error
	DeleteComponents(parentID uint) error
	ComponentParentIDs(childID uint) ([]uint, error)
	WithTx(tx *gorm.DB) ProductRepository
}

// GormProductRepository GORM 实现
type GormProductRepository struct {
	db *gorm.DB
}

// NewProductRepository 创建商品仓库
func NewProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// WithTx 绑定事务
func (r *GormProductRepository) WithTx(tx *gorm.DB) ProductRepository {
	if tx == nil {
		return r
	}
	return &GormProductRepository{db: tx}
}

// Create 创建商品
func (r *GormProductRepository) Create(product *models.Product) error {
	return r.db.Create(product).Error
}

// Update 更新商品
func (r *GormProductRepository) Update(product *models.Product) error {
	return r.db.Save(product).Error
}

// GetByID 根据 ID 获取商品（含构成边）
func (r *GormProductRepository) GetByID(id uint) (*models.Product, error) {
	var product models.Product
	if err := r.db.Preload("Components").Preload("Components.Child").First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &product, nil
}

// GetBySKU 根据 SKU 获取商品
func (r *GormProductRepository) GetBySKU(sku string) (*models.Product, error) {
	var product models.Product
	if err := r.db.Preload("Components").Preload("Components.Child").
		Where("sku = ?", sku).First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &product, nil
}

// List 商品列表
func (r *GormProductRepository) List(filter ProductListFilter) ([]models.Product, int64, error) {
	var products []models.Product
	query := r.db.Model(&models.Product{})

	if filter.OnlyActive {
		query = query.Where("is_active = ?", true)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.Search != "" {
		condition, args := buildSearchCondition(r.db, []string{"sku", "name", "category"}, filter.Search)
		query = query.Where(condition, args...)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)
	if filter.WithComponents {
		query = query.Preload("Components").Preload("Components.Child")
	}
	if err := query.Order("id asc").Find(&products).Error; err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

// ListComponents 获取直接构成边（非递归）
func (r *GormProductRepository) ListComponents(parentID uint) ([]models.ProductComponent, error) {
	var edges []models.ProductComponent
	if parentID == 0 {
		return edges, nil
	}
	if err := r.db.Preload("Child").
		Where("parent_product_id = ?", parentID).
		Order("id asc").
		Find(&edges).Error; err != nil {
		return nil, err
	}
	return edges, nil
}

// CreateComponent 写入一条构成边
func (r *GormProductRepository) CreateComponent(edge *models.ProductComponent) error {
	return r.db.Create(edge).Error
}

// DeleteComponents 删除父商品的全部构成边（导入重建时使用）
func (r *GormProductRepository) DeleteComponents(parentID uint) error {
	if parentID == 0 {
		return nil
	}
	return r.db.Where("parent_product_id = ?", parentID).Delete(&models.ProductComponent{}).Error
}

// ComponentParentIDs 反向查询：包含指定子商品的全部父商品 ID
func (r *GormProductRepository) ComponentParentIDs(childID uint) ([]uint, error) {
	var ids []uint
	if childID == 0 {
		return ids, nil
	}
	if err := r.db.Model(&models.ProductComponent{}).
		Where("child_product_id = ?", childID).
		Pluck("parent_product_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
