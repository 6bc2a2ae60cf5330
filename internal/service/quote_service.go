package service

import (
	"fmt"
	"time"

	"github.com/emmetteckard/smartquote-b2b/internal/constants"
	"github.com/emmetteckard/smartquote-b2b/internal/logger"
	"github.com/emmetteckard/smartquote-b2b/internal/metrics"
	"github.com/emmetteckard/smartquote-b2b/internal/models"
	"github.com/emmetteckard/smartquote-b2b/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// QuotationExpiryScheduler 报价单到期扫描任务投递口。
// 投递失败不阻断发出，周期扫描兜底。
type QuotationExpiryScheduler interface {
	ScheduleQuotationExpire(dueAt time.Time) error
}

// QuoteService 报价单服务。
// 创建时逐行解析并冻结单价，之后价格台账怎么变都不影响已出报价。
type QuoteService struct {
	quotationRepo    repository.QuotationRepository
	priceRepo        repository.PriceRepository
	productRepo      repository.ProductRepository
	clientRepo       repository.ClientRepository
	resolver         *PriceResolver
	scheduler        QuotationExpiryScheduler
	defaultValidDays int
}

// NewQuoteService 创建报价单服务。scheduler 可为空（不投递到期任务）。
func NewQuoteService(
	quotationRepo repository.QuotationRepository,
	priceRepo repository.PriceRepository,
	productRepo repository.ProductRepository,
	clientRepo repository.ClientRepository,
	resolver *PriceResolver,
	scheduler QuotationExpiryScheduler,
	defaultValidDays int,
) *QuoteService {
	if defaultValidDays <= 0 {
		defaultValidDays = 30
	}
	return &QuoteService{
		quotationRepo:    quotationRepo,
		priceRepo:        priceRepo,
		productRepo:      productRepo,
		clientRepo:       clientRepo,
		resolver:         resolver,
		scheduler:        scheduler,
		defaultValidDays: defaultValidDays,
	}
}

// QuoteItemInput 报价明细输入。
// UnitPrice 非空且为正时按手工价冻结并记一条 quote_override 审计，否则按台账解析。
type QuoteItemInput struct {
	ProductID       uint             `json:"product_id"`
	Quantity        int              `json:"quantity"`
	UnitPrice       *decimal.Decimal `json:"unit_price,omitempty"`
	DiscountPercent decimal.Decimal  `json:"discount_percent"`
	Notes           string           `json:"notes,omitempty"`
}

// CreateQuotationInput 创建报价单输入
type CreateQuotationInput struct {
	ClientID  uint             `json:"client_id"`
	Items     []QuoteItemInput `json:"items"`
	Currency  string           `json:"currency,omitempty"`
	ValidDays int              `json:"valid_days,omitempty"`
	Notes     string           `json:"notes,omitempty"`
	ActorID   uint             `json:"-"`
}

// CreateQuotation 创建报价单：解析并冻结每行单价，整单一个事务落库。
// 解析链路上出现无价商品不阻断创建，按零价冻结并告警。
func (s *QuoteService) CreateQuotation(input CreateQuotationInput) (*models.Quotation, error) {
	if len(input.Items) == 0 {
		return nil, ErrInvalidQuantity
	}
	client, err := s.clientRepo.GetByID(input.ClientID)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, ErrNotFound
	}

	now := time.Now()
	today := truncateToDate(now)
	clientID := input.ClientID

	items := make([]models.QuotationItem, 0, len(input.Items))
	overrides := make([]models.PriceChangeRecord, 0)
	total := decimal.Zero
	for _, itemInput := range input.Items {
		if itemInput.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
		if itemInput.DiscountPercent.IsNegative() || itemInput.DiscountPercent.GreaterThan(decimal.NewFromInt(100)) {
			return nil, ErrInvalidQuantity
		}
		product, err := s.productRepo.GetByID(itemInput.ProductID)
		if err != nil {
			return nil, err
		}
		if product == nil {
			return nil, ErrNotFound
		}

		var unitPrice models.Money
		if itemInput.UnitPrice != nil && itemInput.UnitPrice.IsPositive() {
			unitPrice = models.NewMoneyFromDecimal(*itemInput.UnitPrice)
			resolved, err := s.resolver.Resolve(&clientID, itemInput.ProductID, today)
			if err != nil {
				return nil, err
			}
			oldPrice := resolved.Price
			overrides = append(overrides, models.PriceChangeRecord{
				ProductID:  itemInput.ProductID,
				ClientID:   &clientID,
				OldPrice:   &oldPrice,
				NewPrice:   unitPrice,
				ChangeType: constants.PriceChangeQuoteOverride,
				ChangedBy:  input.ActorID,
				ChangedAt:  now,
			})
		} else {
			resolved, err := s.resolver.Resolve(&clientID, itemInput.ProductID, today)
			if err != nil {
				return nil, err
			}
			if resolved.Unpriced {
				logger.S().Warnw("报价包含无价商品，按零价冻结",
					"client_id", input.ClientID,
					"product_id", itemInput.ProductID,
					"sku", product.SKU)
			}
			unitPrice = resolved.Price
		}

		item := models.QuotationItem{
			ProductID:       itemInput.ProductID,
			Quantity:        itemInput.Quantity,
			UnitPrice:       unitPrice,
			DiscountPercent: models.NewMoneyFromDecimal(itemInput.DiscountPercent),
			Notes:           itemInput.Notes,
			CreatedAt:       now,
		}
		total = total.Add(item.LineTotal())
		items = append(items, item)
	}

	currency := input.Currency
	if currency == "" {
		currency = constants.DefaultCurrency
	}
	validDays := input.ValidDays
	if validDays <= 0 {
		validDays = s.defaultValidDays
	}
	validUntil := today.AddDate(0, 0, validDays)

	quotation := &models.Quotation{
		QuotationNumber: generateQuotationNumber(),
		ClientID:        input.ClientID,
		Status:          constants.QuotationStatusDraft,
		TotalAmount:     models.NewMoneyFromDecimal(total),
		Currency:        currency,
		ValidUntil:      &validUntil,
		Notes:           input.Notes,
		CreatedBy:       input.ActorID,
	}

	err = models.DB.Transaction(func(tx *gorm.DB) error {
		if err := s.quotationRepo.WithTx(tx).Create(quotation, items); err != nil {
			return err
		}
		priceRepo := s.priceRepo.WithTx(tx)
		for i := range overrides {
			overrides[i].Reason = fmt.Sprintf("报价单 %s 手工改价", quotation.QuotationNumber)
			if err := priceRepo.AppendChangeRecord(&overrides[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.QuotationsCreatedTotal.Inc()
	logger.S().Infow("报价单已创建",
		"quotation_number", quotation.QuotationNumber,
		"client_id", quotation.ClientID,
		"total_amount", quotation.TotalAmount.String(),
		"item_count", len(items))
	return s.quotationRepo.GetByID(quotation.ID)
}

// GetQuotation 获取报价单详情
func (s *QuoteService) GetQuotation(id uint) (*models.Quotation, error) {
	quotation, err := s.quotationRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if quotation == nil {
		return nil, ErrNotFound
	}
	return quotation, nil
}

// GetQuotationByNumber 根据报价单号获取详情
func (s *QuoteService) GetQuotationByNumber(number string) (*models.Quotation, error) {
	quotation, err := s.quotationRepo.GetByNumber(number)
	if err != nil {
		return nil, err
	}
	if quotation == nil {
		return nil, ErrNotFound
	}
	return quotation, nil
}

// ListQuotations 报价单列表
func (s *QuoteService) ListQuotations(filter repository.QuotationListFilter) ([]models.Quotation, int64, error) {
	return s.quotationRepo.List(filter)
}

// quotationTransitions 报价单状态机。confirmed 由订单转化驱动，不在此表内。
var quotationTransitions = map[string][]string{
	constants.QuotationStatusDraft: {constants.QuotationStatusSent, constants.QuotationStatusCancelled, constants.QuotationStatusExpired},
	constants.QuotationStatusSent:  {constants.QuotationStatusCancelled, constants.QuotationStatusExpired},
}

// SendQuotation 报价单发出（draft → sent），并投递到期扫描任务。
// 有效期当天整天有效，扫描定在次日零点。
func (s *QuoteService) SendQuotation(id uint) (*models.Quotation, error) {
	quotation, err := s.transition(id, constants.QuotationStatusSent)
	if err != nil {
		return nil, err
	}
	if s.scheduler != nil && quotation.ValidUntil != nil {
		dueAt := quotation.ValidUntil.AddDate(0, 0, 1)
		if err := s.scheduler.ScheduleQuotationExpire(dueAt); err != nil {
			logger.S().Warnw("报价单到期任务投递失败，等待周期扫描兜底",
				"quotation_number", quotation.QuotationNumber, "err", err)
		}
	}
	return quotation, nil
}

// CancelQuotation 取消报价单
func (s *QuoteService) CancelQuotation(id uint) (*models.Quotation, error) {
	return s.transition(id, constants.QuotationStatusCancelled)
}

func (s *QuoteService) transition(id uint, target string) (*models.Quotation, error) {
	quotation, err := s.quotationRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if quotation == nil {
		return nil, ErrNotFound
	}
	if !transitionAllowed(quotationTransitions, quotation.Status, target) {
		return nil, ErrInvalidTransition
	}
	if err := s.quotationRepo.UpdateStatus(id, target, nil); err != nil {
		return nil, err
	}
	quotation.Status = target
	return quotation, nil
}

// ExpireQuotations 把有效期已过的 draft/sent 报价单流转为 expired。
// 由后台任务周期调用，返回处理条数。
func (s *QuoteService) ExpireQuotations(asOf time.Time) (int, error) {
	expirable, err := s.quotationRepo.ListExpirable(truncateToDate(asOf))
	if err != nil {
		return 0, err
	}
	expired := 0
	for _, quotation := range expirable {
		if err := s.quotationRepo.UpdateStatus(quotation.ID, constants.QuotationStatusExpired, nil); err != nil {
			logger.S().Errorw("报价单过期流转失败",
				"quotation_number", quotation.QuotationNumber, "err", err)
			continue
		}
		metrics.QuotationsExpiredTotal.Inc()
		expired++
	}
	if expired > 0 {
		logger.S().Infow("报价单过期扫描完成", "expired", expired)
	}
	return expired, nil
}

// transitionAllowed 判断状态流转是否合法
func transitionAllowed(transitions map[string][]string, from, to string) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// generateQuotationNumber 生成报价单号，如 PI-3F2A9C01
func generateQuotationNumber() string {
	id := uuid.New()
	return fmt.Sprintf("PI-%X", id[:4])
}
