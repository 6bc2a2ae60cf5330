package service

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/emmetteckard/smartquote-b2b/internal/models"
	"github.com/emmetteckard/smartquote-b2b/internal/repository"

	"gorm.io/gorm"
)

// CatalogService 商品目录服务：维护组合商品构成图并保证无环
type CatalogService struct {
	productRepo repository.ProductRepository
}

// NewCatalogService 创建目录服务
func NewCatalogService(productRepo repository.ProductRepository) *CatalogService {
	return &CatalogService{productRepo: productRepo}
}

// ComponentRef 构成项引用（导入/导出编码的解析结果）
type ComponentRef struct {
	SKU      string
	Quantity int
}

// CreateProduct 创建商品，SKU 不允许重复
func (s *CatalogService) CreateProduct(product *models.Product) error {
	if product.SKU == "" || product.Name == "" {
		return ErrInvalidQuantity
	}
	existing, err := s.productRepo.GetBySKU(product.SKU)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrInvalidState
	}
	return s.productRepo.Create(product)
}

// UpdateProduct 更新商品
func (s *CatalogService) UpdateProduct(product *models.Product) error {
	existing, err := s.productRepo.GetByID(product.ID)
	if err != nil {
		return err
	}
	if existing == nil {
		return ErrNotFound
	}
	return s.productRepo.Update(product)
}

// GetProduct 获取商品详情（含构成边）
func (s *CatalogService) GetProduct(id uint) (*models.Product, error) {
	product, err := s.productRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrNotFound
	}
	return product, nil
}

// GetProductBySKU 根据 SKU 获取商品
func (s *CatalogService) GetProductBySKU(sku string) (*models.Product, error) {
	product, err := s.productRepo.GetBySKU(sku)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrNotFound
	}
	return product, nil
}

// ListProducts 商品列表
func (s *CatalogService) ListProducts(filter repository.ProductListFilter) ([]models.Product, int64, error) {
	return s.productRepo.List(filter)
}

// AddComponent 为父商品添加构成边。
// 数量必须为正；若新边会使任一商品经构成边可达自身则拒绝写入，目录保持不变。
func (s *CatalogService) AddComponent(parentID, childID uint, quantity int) (*models.ProductComponent, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	parent, err := s.productRepo.GetByID(parentID)
	if err != nil {
		return nil, err
	}
	child, err := s.productRepo.GetByID(childID)
	if err != nil {
		return nil, err
	}
	if parent == nil || child == nil {
		return nil, ErrNotFound
	}
	if parentID == childID {
		return nil, ErrCycleDetected
	}

	// 插入前做可达性检查：child 沿既有构成边能到达 parent 则成环
	reachable, err := s.reachable(childID, parentID)
	if err != nil {
		return nil, err
	}
	if reachable {
		return nil, ErrCycleDetected
	}

	// 已存在同向边则改数量，不重复建边
	for i := range parent.Components {
		if parent.Components[i].ChildProductID == childID {
			edge := parent.Components[i]
			edge.Quantity = quantity
			if err := models.DB.Model(&models.ProductComponent{}).
				Where("id = ?", edge.ID).
				Update("quantity", quantity).Error; err != nil {
				return nil, err
			}
			return &edge, nil
		}
	}

	edge := &models.ProductComponent{
		ParentProductID: parentID,
		ChildProductID:  childID,
		Quantity:        quantity,
	}
	if err := s.productRepo.CreateComponent(edge); err != nil {
		return nil, err
	}
	return edge, nil
}

// Components 获取父商品的直接构成边（非递归）
func (s *CatalogService) Components(parentID uint) ([]models.ProductComponent, error) {
	product, err := s.productRepo.GetByID(parentID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrNotFound
	}
	return s.productRepo.ListComponents(parentID)
}

// ReplaceComponents 按导入编码整体重建父商品的构成边。
// 返回非致命行警告（未知 SKU、畸形数量）；任一边成环则整体失败。
func (s *CatalogService) ReplaceComponents(parentID uint, spec string) ([]string, error) {
	parent, err := s.productRepo.GetByID(parentID)
	if err != nil {
		return nil, err
	}
	if parent == nil {
		return nil, ErrNotFound
	}

	refs, warnings := ParseComponentSpec(spec)

	err = models.DB.Transaction(func(tx *gorm.DB) error {
		repo := s.productRepo.WithTx(tx)
		if err := repo.DeleteComponents(parentID); err != nil {
			return err
		}
		for _, ref := range refs {
			child, err := repo.GetBySKU(ref.SKU)
			if err != nil {
				return err
			}
			if child == nil {
				warnings = append(warnings, fmt.Sprintf("component sku %s not found", ref.SKU))
				continue
			}
			reachable, err := s.reachableWith(repo, child.ID, parentID)
			if err != nil {
				return err
			}
			if reachable || child.ID == parentID {
				return ErrCycleDetected
			}
			edge := &models.ProductComponent{
				ParentProductID: parentID,
				ChildProductID:  child.ID,
				Quantity:        ref.Quantity,
			}
			if err := repo.CreateComponent(edge); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return warnings, nil
}

// reachable 判断从 fromID 沿构成边能否到达 targetID
func (s *CatalogService) reachable(fromID, targetID uint) (bool, error) {
	return s.reachableWith(s.productRepo, fromID, targetID)
}

func (s *CatalogService) reachableWith(repo repository.ProductRepository, fromID, targetID uint) (bool, error) {
	visited := map[uint]bool{fromID: true}
	queue := []uint{fromID}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		edges, err := repo.ListComponents(current)
		if err != nil {
			return false, err
		}
		for _, edge := range edges {
			if edge.ChildProductID == targetID {
				return true, nil
			}
			if !visited[edge.ChildProductID] {
				visited[edge.ChildProductID] = true
				queue = append(queue, edge.ChildProductID)
			}
		}
	}
	return false, nil
}

// ParseComponentSpec 解析构成编码：条目以 ; 分隔，每条 SKU:QTY。
// 缺省数量为 1；数量畸形按 1 处理并记一条行警告。
func ParseComponentSpec(spec string) ([]ComponentRef, []string) {
	var refs []ComponentRef
	var warnings []string
	for _, entry := range strings.Split(spec, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, ":", 2)
		sku := strings.TrimSpace(parts[0])
		if sku == "" {
			continue
		}
		quantity := 1
		if len(parts) == 2 {
			raw := strings.TrimSpace(parts[1])
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed <= 0 {
				warnings = append(warnings, fmt.Sprintf("component %s: malformed quantity %q, defaulting to 1", sku, raw))
			} else {
				quantity = parsed
			}
		}
		refs = append(refs, ComponentRef{SKU: sku, Quantity: quantity})
	}
	return refs, warnings
}

// FormatComponentSpec 序列化构成边为导出编码（SKU:QTY;SKU:QTY）
func FormatComponentSpec(edges []models.ProductComponent) string {
	parts := make([]string, 0, len(edges))
	for _, edge := range edges {
		if edge.Child == nil {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s:%d", edge.Child.SKU, edge.Quantity))
	}
	return strings.Join(parts, ";")
}
