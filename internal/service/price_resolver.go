package service

import (
	"time"

	"github.com/emmetteckard/smartquote-b2b/internal/constants"
	"github.com/emmetteckard/smartquote-b2b/internal/metrics"
	"github.com/emmetteckard/smartquote-b2b/internal/models"
	"github.com/emmetteckard/smartquote-b2b/internal/repository"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

// 价格来源
const (
	PriceSourceClientOverride = "client_override" // 客户专属价
	PriceSourceTierBase       = "tier_base"       // 档位基础价
	PriceSourceBundleSum      = "bundle_sum"      // 组合商品构成合计
	PriceSourceUnpriced       = "unpriced"        // 无任何可用价格
)

// ResolvedPrice 价格解析结果
type ResolvedPrice struct {
	ProductID uint         `json:"product_id"`
	Price     models.Money `json:"price"`
	Source    string       `json:"source"`
	Tier      string       `json:"tier"`
	// Unpriced 解析链路上存在无价可用的商品（结果按零计，需人工定价）
	Unpriced bool `json:"unpriced"`
}

// PriceResolver 价格解析器。
// 解析顺序：客户专属价 > 档位基础价 > 组合商品构成递归合计 > 零。
// 构成图插入时已做环校验，递归仍带路径集合兜底，脏数据下报错而不是栈溢出。
type PriceResolver struct {
	priceRepo   repository.PriceRepository
	productRepo repository.ProductRepository
	clientRepo  repository.ClientRepository
}

// NewPriceResolver 创建价格解析器
func NewPriceResolver(priceRepo repository.PriceRepository, productRepo repository.ProductRepository, clientRepo repository.ClientRepository) *PriceResolver {
	return &PriceResolver{
		priceRepo:   priceRepo,
		productRepo: productRepo,
		clientRepo:  clientRepo,
	}
}

// Resolve 解析商品在指定日期对指定客户的单价。
// clientID 为空时跳过专属价，档位取默认档。
func (r *PriceResolver) Resolve(clientID *uint, productID uint, asOf time.Time) (*ResolvedPrice, error) {
	timer := prometheus.NewTimer(metrics.PriceResolveLatency)
	defer timer.ObserveDuration()

	product, err := r.productRepo.GetByID(productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrNotFound
	}

	tier := constants.DefaultTier
	if clientID != nil {
		client, err := r.clientRepo.GetByID(*clientID)
		if err != nil {
			return nil, err
		}
		if client == nil {
			return nil, ErrNotFound
		}
		if constants.IsValidTier(client.Tier) {
			tier = client.Tier
		}
	}

	asOf = truncateToDate(asOf)
	visited := map[uint]bool{}
	return r.resolve(clientID, tier, productID, asOf, visited)
}

// resolve 按路径递归解析。visited 是当前递归路径上的商品集合：
// 进入子树前加入、返回后移除，菱形构成不会被误判为环。
func (r *PriceResolver) resolve(clientID *uint, tier string, productID uint, asOf time.Time, visited map[uint]bool) (*ResolvedPrice, error) {
	if visited[productID] {
		return nil, ErrCycleDetected
	}

	if clientID != nil {
		override, err := r.priceRepo.ActiveClientPrice(*clientID, productID, asOf)
		if err != nil {
			return nil, err
		}
		if override != nil {
			return &ResolvedPrice{
				ProductID: productID,
				Price:     override.Price,
				Source:    PriceSourceClientOverride,
				Tier:      tier,
			}, nil
		}
	}

	base, err := r.priceRepo.ActiveBasePrice(productID, tier, asOf)
	if err != nil {
		return nil, err
	}
	if base != nil {
		return &ResolvedPrice{
			ProductID: productID,
			Price:     base.Price,
			Source:    PriceSourceTierBase,
			Tier:      tier,
		}, nil
	}

	components, err := r.productRepo.ListComponents(productID)
	if err != nil {
		return nil, err
	}
	if len(components) == 0 {
		return &ResolvedPrice{
			ProductID: productID,
			Price:     models.NewMoneyFromDecimal(decimal.Zero),
			Source:    PriceSourceUnpriced,
			Tier:      tier,
			Unpriced:  true,
		}, nil
	}

	visited[productID] = true
	defer delete(visited, productID)

	total := decimal.Zero
	unpriced := false
	for _, component := range components {
		child, err := r.resolve(clientID, tier, component.ChildProductID, asOf, visited)
		if err != nil {
			return nil, err
		}
		if child.Unpriced {
			unpriced = true
		}
		qty := decimal.NewFromInt(int64(component.Quantity))
		total = total.Add(child.Price.Decimal.Mul(qty))
	}

	return &ResolvedPrice{
		ProductID: productID,
		Price:     models.NewMoneyFromDecimal(total),
		Source:    PriceSourceBundleSum,
		Tier:      tier,
		Unpriced:  unpriced,
	}, nil
}
