package service

import (
	"time"

	"github.com/emmetteckard/smartquote-b2b/internal/constants"
	"github.com/emmetteckard/smartquote-b2b/internal/models"
	"github.com/emmetteckard/smartquote-b2b/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PriceService 价格台账服务：分时段版本化价格行 + 只追加审计。
// 改价从不原地更新：关闭当前开放行，再开一条新行，历史可按日期回查。
type PriceService struct {
	priceRepo   repository.PriceRepository
	productRepo repository.ProductRepository
	clientRepo  repository.ClientRepository
}

// NewPriceService 创建价格台账服务
func NewPriceService(priceRepo repository.PriceRepository, productRepo repository.ProductRepository, clientRepo repository.ClientRepository) *PriceService {
	return &PriceService{
		priceRepo:   priceRepo,
		productRepo: productRepo,
		clientRepo:  clientRepo,
	}
}

// SetBasePriceInput 基础价更新输入
type SetBasePriceInput struct {
	ProductID     uint
	Tier          string
	Price         decimal.Decimal
	EffectiveFrom time.Time
	Reason        string
	ActorID       uint
	// Batch 批量导入场景，审计记录按 batch_update 归类
	Batch bool
}

// SetClientPriceInput 客户专属价更新输入
type SetClientPriceInput struct {
	ClientID      uint
	ProductID     uint
	Price         decimal.Decimal
	EffectiveFrom time.Time
	IsProtected   bool
	Reason        string
	ActorID       uint
}

// SetBasePrice 更新基础价：关闭当前开放行（effective_to = 新 from），
// 开新行，并追加一条审计记录。整个操作在一个事务内完成。
func (s *PriceService) SetBasePrice(input SetBasePriceInput) (*models.BasePrice, error) {
	if !constants.IsValidTier(input.Tier) {
		return nil, ErrInvalidTier
	}
	if !input.Price.IsPositive() {
		return nil, ErrInvalidQuantity
	}
	product, err := s.productRepo.GetByID(input.ProductID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrNotFound
	}

	effectiveFrom := truncateToDate(input.EffectiveFrom)
	latest, err := s.priceRepo.LatestBasePriceFrom(input.ProductID, input.Tier)
	if err != nil {
		return nil, err
	}
	if latest != nil && effectiveFrom.Before(*latest) {
		return nil, ErrInvalidInterval
	}

	now := time.Now()
	row := &models.BasePrice{
		ProductID:     input.ProductID,
		Tier:          input.Tier,
		Price:         models.NewMoneyFromDecimal(input.Price),
		EffectiveFrom: effectiveFrom,
		CreatedBy:     input.ActorID,
		CreatedAt:     now,
	}

	err = models.DB.Transaction(func(tx *gorm.DB) error {
		priceRepo := s.priceRepo.WithTx(tx)
		open, err := priceRepo.OpenBasePrice(input.ProductID, input.Tier)
		if err != nil {
			return err
		}
		var oldPrice *models.Money
		if open != nil {
			if err := priceRepo.CloseBasePrice(open.ID, effectiveFrom); err != nil {
				return err
			}
			oldPrice = &open.Price
		}
		if err := priceRepo.CreateBasePrice(row); err != nil {
			return err
		}
		changeType := constants.PriceChangeBaseUpdate
		if input.Batch {
			changeType = constants.PriceChangeBatchUpdate
		}
		return priceRepo.AppendChangeRecord(&models.PriceChangeRecord{
			ProductID:  input.ProductID,
			Tier:       input.Tier,
			OldPrice:   oldPrice,
			NewPrice:   row.Price,
			ChangeType: changeType,
			Reason:     input.Reason,
			ChangedBy:  input.ActorID,
			ChangedAt:  now,
		})
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}

// SetClientPrice 更新客户专属价，区间语义与 SetBasePrice 对称
func (s *PriceService) SetClientPrice(input SetClientPriceInput) (*models.ClientPrice, error) {
	if !input.Price.IsPositive() {
		return nil, ErrInvalidQuantity
	}
	client, err := s.clientRepo.GetByID(input.ClientID)
	if err != nil {
		return nil, err
	}
	product, err := s.productRepo.GetByID(input.ProductID)
	if err != nil {
		return nil, err
	}
	if client == nil || product == nil {
		return nil, ErrNotFound
	}

	effectiveFrom := truncateToDate(input.EffectiveFrom)
	latest, err := s.priceRepo.LatestClientPriceFrom(input.ClientID, input.ProductID)
	if err != nil {
		return nil, err
	}
	if latest != nil && effectiveFrom.Before(*latest) {
		return nil, ErrInvalidInterval
	}

	now := time.Now()
	row := &models.ClientPrice{
		ClientID:      input.ClientID,
		ProductID:     input.ProductID,
		Price:         models.NewMoneyFromDecimal(input.Price),
		IsProtected:   input.IsProtected,
		EffectiveFrom: effectiveFrom,
		CreatedBy:     input.ActorID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err = models.DB.Transaction(func(tx *gorm.DB) error {
		priceRepo := s.priceRepo.WithTx(tx)
		open, err := priceRepo.OpenClientPrice(input.ClientID, input.ProductID)
		if err != nil {
			return err
		}
		var oldPrice *models.Money
		if open != nil {
			if err := priceRepo.CloseClientPrice(open.ID, effectiveFrom); err != nil {
				return err
			}
			oldPrice = &open.Price
		}
		if err := priceRepo.CreateClientPrice(row); err != nil {
			return err
		}
		clientID := input.ClientID
		return priceRepo.AppendChangeRecord(&models.PriceChangeRecord{
			ProductID:  input.ProductID,
			ClientID:   &clientID,
			OldPrice:   oldPrice,
			NewPrice:   row.Price,
			ChangeType: constants.PriceChangeClientOverride,
			Reason:     input.Reason,
			ChangedBy:  input.ActorID,
			ChangedAt:  now,
		})
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}

// ActiveBasePrice 查询指定日期生效的基础价行
func (s *PriceService) ActiveBasePrice(productID uint, tier string, asOf time.Time) (*models.BasePrice, error) {
	if !constants.IsValidTier(tier) {
		return nil, ErrInvalidTier
	}
	return s.priceRepo.ActiveBasePrice(productID, tier, truncateToDate(asOf))
}

// ActiveClientPrice 查询指定日期生效的客户专属价行
func (s *PriceService) ActiveClientPrice(clientID, productID uint, asOf time.Time) (*models.ClientPrice, error) {
	return s.priceRepo.ActiveClientPrice(clientID, productID, truncateToDate(asOf))
}

// TierPrices 商品各档位生效价视图（导出用）。未定价档位缺席。
func (s *PriceService) TierPrices(productID uint, asOf time.Time) (map[string]models.Money, error) {
	rows, err := s.priceRepo.ActiveBasePrices(productID, truncateToDate(asOf))
	if err != nil {
		return nil, err
	}
	prices := make(map[string]models.Money, len(rows))
	for _, row := range rows {
		// 同档位多行时按 effective_from 最新优先（查询已按其降序）
		if _, ok := prices[row.Tier]; !ok {
			prices[row.Tier] = row.Price
		}
	}
	return prices, nil
}

// ListChangeRecords 查询价格变更审计
func (s *PriceService) ListChangeRecords(filter repository.PriceChangeListFilter) ([]models.PriceChangeRecord, int64, error) {
	return s.priceRepo.ListChangeRecords(filter)
}

// truncateToDate 归一化到日期边界（as-of 语义按天）
func truncateToDate(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}
