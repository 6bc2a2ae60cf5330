package service

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/emmetteckard/smartquote-b2b/internal/constants"
	"github.com/emmetteckard/smartquote-b2b/internal/models"
	"github.com/emmetteckard/smartquote-b2b/internal/repository"

	"github.com/shopspring/decimal"
)

func TestCreateQuotationFreezesPrices(t *testing.T) {
	env := setupServiceTest(t)
	client := env.createClient(t, "环球贸易", constants.TierA)
	product := env.createProduct(t, "QUO-001", "阀体")
	env.setBasePrice(t, product.ID, constants.TierA, 88, time.Now().AddDate(0, 0, -1))

	quotation, err := env.quotes.CreateQuotation(CreateQuotationInput{
		ClientID: client.ID,
		Items: []QuoteItemInput{
			{ProductID: product.ID, Quantity: 10},
		},
		ActorID: 1,
	})
	if err != nil {
		t.Fatalf("create quotation failed: %v", err)
	}
	if quotation.Status != constants.QuotationStatusDraft {
		t.Fatalf("status want draft got %s", quotation.Status)
	}
	if !strings.HasPrefix(quotation.QuotationNumber, "PI-") {
		t.Fatalf("quotation number want PI- prefix got %s", quotation.QuotationNumber)
	}
	if len(quotation.Items) != 1 {
		t.Fatalf("item count want 1 got %d", len(quotation.Items))
	}
	assertMoney(t, quotation.Items[0].UnitPrice, "88.00")
	assertMoney(t, quotation.TotalAmount, "880.00")

	// 之后改价不影响已出报价
	env.setBasePrice(t, product.ID, constants.TierA, 120, time.Now())
	reloaded, err := env.quotes.GetQuotation(quotation.ID)
	if err != nil {
		t.Fatalf("reload quotation failed: %v", err)
	}
	assertMoney(t, reloaded.Items[0].UnitPrice, "88.00")
	assertMoney(t, reloaded.TotalAmount, "880.00")
}

func TestCreateQuotationAppliesDiscount(t *testing.T) {
	env := setupServiceTest(t)
	client := env.createClient(t, "Northwind", constants.TierA)
	product := env.createProduct(t, "QUO-002", "执行器")
	env.setBasePrice(t, product.ID, constants.TierA, 100, time.Now().AddDate(0, 0, -1))

	quotation, err := env.quotes.CreateQuotation(CreateQuotationInput{
		ClientID: client.ID,
		Items: []QuoteItemInput{
			{ProductID: product.ID, Quantity: 3, DiscountPercent: decimal.NewFromFloat(12.5)},
		},
		ActorID: 1,
	})
	if err != nil {
		t.Fatalf("create quotation failed: %v", err)
	}
	// 3 × 100 × 0.875 = 262.50
	assertMoney(t, quotation.TotalAmount, "262.50")
}

func TestCreateQuotationManualOverrideAudit(t *testing.T) {
	env := setupServiceTest(t)
	client := env.createClient(t, "Pacific", constants.TierA)
	product := env.createProduct(t, "QUO-003", "阀体")
	env.setBasePrice(t, product.ID, constants.TierA, 88, time.Now().AddDate(0, 0, -1))

	manual := decimal.NewFromInt(75)
	quotation, err := env.quotes.CreateQuotation(CreateQuotationInput{
		ClientID: client.ID,
		Items: []QuoteItemInput{
			{ProductID: product.ID, Quantity: 2, UnitPrice: &manual},
		},
		ActorID: 7,
	})
	if err != nil {
		t.Fatalf("create quotation failed: %v", err)
	}
	assertMoney(t, quotation.Items[0].UnitPrice, "75.00")

	records, total, err := env.prices.ListChangeRecords(repository.PriceChangeListFilter{
		ProductID:  product.ID,
		ChangeType: constants.PriceChangeQuoteOverride,
	})
	if err != nil {
		t.Fatalf("list change records failed: %v", err)
	}
	if total != 1 {
		t.Fatalf("override audit count want 1 got %d", total)
	}
	record := records[0]
	if record.OldPrice == nil {
		t.Fatalf("override audit should carry resolved old price")
	}
	assertMoney(t, *record.OldPrice, "88.00")
	assertMoney(t, record.NewPrice, "75.00")
	if record.ChangedBy != 7 {
		t.Fatalf("changed_by want 7 got %d", record.ChangedBy)
	}
	if !strings.Contains(record.Reason, quotation.QuotationNumber) {
		t.Fatalf("audit reason should reference quotation number, got %q", record.Reason)
	}
}

func TestCreateQuotationUnpricedFreezesZero(t *testing.T) {
	env := setupServiceTest(t)
	client := env.createClient(t, "环球贸易", constants.TierA)
	product := env.createProduct(t, "QUO-004", "未定价商品")

	quotation, err := env.quotes.CreateQuotation(CreateQuotationInput{
		ClientID: client.ID,
		Items: []QuoteItemInput{
			{ProductID: product.ID, Quantity: 5},
		},
		ActorID: 1,
	})
	if err != nil {
		t.Fatalf("unpriced product should not block creation: %v", err)
	}
	assertMoney(t, quotation.Items[0].UnitPrice, "0.00")
	assertMoney(t, quotation.TotalAmount, "0.00")
}

func TestCreateQuotationValidation(t *testing.T) {
	env := setupServiceTest(t)
	client := env.createClient(t, "环球贸易", constants.TierA)
	product := env.createProduct(t, "QUO-005", "阀体")
	env.setBasePrice(t, product.ID, constants.TierA, 88, time.Now().AddDate(0, 0, -1))

	if _, err := env.quotes.CreateQuotation(CreateQuotationInput{ClientID: client.ID}); !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("empty items want ErrInvalidQuantity got %v", err)
	}
	if _, err := env.quotes.CreateQuotation(CreateQuotationInput{
		ClientID: client.ID,
		Items:    []QuoteItemInput{{ProductID: product.ID, Quantity: 0}},
	}); !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("zero quantity want ErrInvalidQuantity got %v", err)
	}
	if _, err := env.quotes.CreateQuotation(CreateQuotationInput{
		ClientID: client.ID,
		Items:    []QuoteItemInput{{ProductID: product.ID, Quantity: 1, DiscountPercent: decimal.NewFromInt(120)}},
	}); !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("discount over 100 want ErrInvalidQuantity got %v", err)
	}
	if _, err := env.quotes.CreateQuotation(CreateQuotationInput{
		ClientID: 9999,
		Items:    []QuoteItemInput{{ProductID: product.ID, Quantity: 1}},
	}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing client want ErrNotFound got %v", err)
	}
}

func TestQuotationDefaultValidity(t *testing.T) {
	env := setupServiceTest(t)
	client := env.createClient(t, "环球贸易", constants.TierA)
	product := env.createProduct(t, "QUO-006", "阀体")
	env.setBasePrice(t, product.ID, constants.TierA, 88, time.Now().AddDate(0, 0, -1))

	quotation, err := env.quotes.CreateQuotation(CreateQuotationInput{
		ClientID: client.ID,
		Items:    []QuoteItemInput{{ProductID: product.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create quotation failed: %v", err)
	}
	if quotation.ValidUntil == nil {
		t.Fatalf("valid_until should be set")
	}
	want := truncateToDate(time.Now()).AddDate(0, 0, 30)
	if !quotation.ValidUntil.Equal(want) {
		t.Fatalf("valid_until want %v got %v", want, quotation.ValidUntil)
	}
	if quotation.Currency != constants.DefaultCurrency {
		t.Fatalf("currency want %s got %s", constants.DefaultCurrency, quotation.Currency)
	}
}

func TestQuotationConfiguredValidDays(t *testing.T) {
	env := setupServiceTest(t)
	client := env.createClient(t, "环球贸易", constants.TierA)
	product := env.createProduct(t, "QUO-010", "阀体")
	env.setBasePrice(t, product.ID, constants.TierA, 88, time.Now().AddDate(0, 0, -1))

	quotes := NewQuoteService(env.quotationRepo, env.priceRepo, env.productRepo, env.clientRepo, env.resolver, nil, 10)
	quotation, err := quotes.CreateQuotation(CreateQuotationInput{
		ClientID: client.ID,
		Items:    []QuoteItemInput{{ProductID: product.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create quotation failed: %v", err)
	}
	want := truncateToDate(time.Now()).AddDate(0, 0, 10)
	if quotation.ValidUntil == nil || !quotation.ValidUntil.Equal(want) {
		t.Fatalf("valid_until want %v got %v", want, quotation.ValidUntil)
	}
}

// recordingExpiryScheduler 记录到期任务投递调用
type recordingExpiryScheduler struct {
	dueAts []time.Time
	fail   bool
}

func (s *recordingExpiryScheduler) ScheduleQuotationExpire(dueAt time.Time) error {
	if s.fail {
		return errors.New("queue unavailable")
	}
	s.dueAts = append(s.dueAts, dueAt)
	return nil
}

func TestSendQuotationSchedulesExpiry(t *testing.T) {
	env := setupServiceTest(t)
	client := env.createClient(t, "环球贸易", constants.TierA)
	product := env.createProduct(t, "QUO-011", "阀体")
	env.setBasePrice(t, product.ID, constants.TierA, 88, time.Now().AddDate(0, 0, -1))

	scheduler := &recordingExpiryScheduler{}
	quotes := NewQuoteService(env.quotationRepo, env.priceRepo, env.productRepo, env.clientRepo, env.resolver, scheduler, 0)
	quotation, err := quotes.CreateQuotation(CreateQuotationInput{
		ClientID: client.ID,
		Items:    []QuoteItemInput{{ProductID: product.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create quotation failed: %v", err)
	}
	if len(scheduler.dueAts) != 0 {
		t.Fatalf("create should not schedule expiry, got %d calls", len(scheduler.dueAts))
	}

	if _, err := quotes.SendQuotation(quotation.ID); err != nil {
		t.Fatalf("send quotation failed: %v", err)
	}
	if len(scheduler.dueAts) != 1 {
		t.Fatalf("send should schedule one expiry task, got %d", len(scheduler.dueAts))
	}
	// 有效期当天整天有效，扫描定在次日零点
	want := quotation.ValidUntil.AddDate(0, 0, 1)
	if !scheduler.dueAts[0].Equal(want) {
		t.Fatalf("expiry due want %v got %v", want, scheduler.dueAts[0])
	}
}

func TestSendQuotationSchedulerFailureNonFatal(t *testing.T) {
	env := setupServiceTest(t)
	client := env.createClient(t, "环球贸易", constants.TierA)
	product := env.createProduct(t, "QUO-012", "阀体")
	env.setBasePrice(t, product.ID, constants.TierA, 88, time.Now().AddDate(0, 0, -1))

	quotes := NewQuoteService(env.quotationRepo, env.priceRepo, env.productRepo, env.clientRepo, env.resolver,
		&recordingExpiryScheduler{fail: true}, 0)
	quotation, err := quotes.CreateQuotation(CreateQuotationInput{
		ClientID: client.ID,
		Items:    []QuoteItemInput{{ProductID: product.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create quotation failed: %v", err)
	}
	sent, err := quotes.SendQuotation(quotation.ID)
	if err != nil {
		t.Fatalf("scheduler failure should not block send: %v", err)
	}
	if sent.Status != constants.QuotationStatusSent {
		t.Fatalf("status want sent got %s", sent.Status)
	}
}

func TestQuotationStateMachine(t *testing.T) {
	env := setupServiceTest(t)
	client := env.createClient(t, "环球贸易", constants.TierA)
	product := env.createProduct(t, "QUO-007", "阀体")
	env.setBasePrice(t, product.ID, constants.TierA, 88, time.Now().AddDate(0, 0, -1))

	quotation, err := env.quotes.CreateQuotation(CreateQuotationInput{
		ClientID: client.ID,
		Items:    []QuoteItemInput{{ProductID: product.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create quotation failed: %v", err)
	}

	sent, err := env.quotes.SendQuotation(quotation.ID)
	if err != nil {
		t.Fatalf("send quotation failed: %v", err)
	}
	if sent.Status != constants.QuotationStatusSent {
		t.Fatalf("status want sent got %s", sent.Status)
	}

	// 重复发出非法
	if _, err := env.quotes.SendQuotation(quotation.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("resend want ErrInvalidTransition got %v", err)
	}

	cancelled, err := env.quotes.CancelQuotation(quotation.ID)
	if err != nil {
		t.Fatalf("cancel quotation failed: %v", err)
	}
	if cancelled.Status != constants.QuotationStatusCancelled {
		t.Fatalf("status want cancelled got %s", cancelled.Status)
	}

	// 终态不可再流转
	if _, err := env.quotes.SendQuotation(quotation.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("send after cancel want ErrInvalidTransition got %v", err)
	}
}

func TestExpireQuotations(t *testing.T) {
	env := setupServiceTest(t)
	client := env.createClient(t, "环球贸易", constants.TierA)
	product := env.createProduct(t, "QUO-008", "阀体")
	env.setBasePrice(t, product.ID, constants.TierA, 88, time.Now().AddDate(0, 0, -1))

	stale, err := env.quotes.CreateQuotation(CreateQuotationInput{
		ClientID: client.ID,
		Items:    []QuoteItemInput{{ProductID: product.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create stale quotation failed: %v", err)
	}
	fresh, err := env.quotes.CreateQuotation(CreateQuotationInput{
		ClientID: client.ID,
		Items:    []QuoteItemInput{{ProductID: product.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create fresh quotation failed: %v", err)
	}

	// 把第一张的有效期改到过去
	past := time.Now().AddDate(0, 0, -5)
	if err := env.db.Model(&models.Quotation{}).Where("id = ?", stale.ID).
		Update("valid_until", past).Error; err != nil {
		t.Fatalf("backdate valid_until failed: %v", err)
	}

	expired, err := env.quotes.ExpireQuotations(time.Now())
	if err != nil {
		t.Fatalf("expire quotations failed: %v", err)
	}
	if expired != 1 {
		t.Fatalf("expired count want 1 got %d", expired)
	}

	reloaded, err := env.quotes.GetQuotation(stale.ID)
	if err != nil {
		t.Fatalf("reload stale failed: %v", err)
	}
	if reloaded.Status != constants.QuotationStatusExpired {
		t.Fatalf("stale status want expired got %s", reloaded.Status)
	}
	untouched, err := env.quotes.GetQuotation(fresh.ID)
	if err != nil {
		t.Fatalf("reload fresh failed: %v", err)
	}
	if untouched.Status != constants.QuotationStatusDraft {
		t.Fatalf("fresh status want draft got %s", untouched.Status)
	}
}
