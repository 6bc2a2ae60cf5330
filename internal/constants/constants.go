package constants

// 客户定价档位常量（从高到低：X > S > A）
const (
	TierX = "X"
	TierS = "S"
	TierA = "A"
)

// DefaultTier 客户未配置档位时的回退档位
const DefaultTier = TierA

// 报价单状态常量
const (
	QuotationStatusDraft     = "draft"
	QuotationStatusSent      = "sent"
	QuotationStatusConfirmed = "confirmed"
	QuotationStatusExpired   = "expired"
	QuotationStatusCancelled = "cancelled"
)

// 订单状态常量
const (
	OrderStatusPendingPayment = "pending_payment"
	OrderStatusPaid           = "paid"
	OrderStatusProcessing     = "processing"
	OrderStatusShipped        = "shipped"
	OrderStatusCompleted      = "completed"
	OrderStatusCancelled      = "cancelled"
)

// 订单收款状态常量
const (
	PaymentStateUnpaid  = "unpaid"
	PaymentStatePartial = "partial"
	PaymentStatePaid    = "paid"
)

// 收款记录状态常量
const (
	PaymentStatusPending   = "pending"
	PaymentStatusConfirmed = "confirmed"
	PaymentStatusFailed    = "failed"
)

// 库存锁定状态常量
const (
	StockLockStatusLocked    = "locked"
	StockLockStatusReleased  = "released"
	StockLockStatusFulfilled = "fulfilled"
)

// 价格变更类型常量
const (
	PriceChangeBaseUpdate     = "base_update"
	PriceChangeClientOverride = "client_override"
	PriceChangeBatchUpdate    = "batch_update"
	PriceChangeQuoteOverride  = "quote_override"
)

// 异步任务类型常量
const (
	TaskOrderTimeoutCancel = "order:timeout_cancel"
	TaskQuotationExpire    = "quotation:expire"
)

// QueueDefault 默认队列名称
const QueueDefault = "default"

// DefaultCurrency 默认币种
const DefaultCurrency = "USD"

// Tiers 全部定价档位（用于校验与导出视图）
var Tiers = []string{TierX, TierS, TierA}

// IsValidTier 判断档位是否合法
func IsValidTier(tier string) bool {
	for _, t := range Tiers {
		if t == tier {
			return true
		}
	}
	return false
}
