package repository

import "time"

// ProductListFilter 查询商品列表的过滤条件
type ProductListFilter struct {
	Page           int
	PageSize       int
	Category       string
	Search         string
	OnlyActive     bool
	WithComponents bool
}

// ClientListFilter 查询客户列表的过滤条件
type ClientListFilter struct {
	Page       int
	PageSize   int
	Tier       string
	Search     string
	SalesRepID uint
	OnlyActive bool
}

// QuotationListFilter 查询报价单列表的过滤条件
type QuotationListFilter struct {
	Page        int
	PageSize    int
	ClientID    uint
	SalesRepID  uint
	Status      string
	Number      string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// OrderListFilter 查询订单列表的过滤条件
type OrderListFilter struct {
	Page          int
	PageSize      int
	ClientID      uint
	Status        string
	PaymentStatus string
	Number        string
	CreatedFrom   *time.Time
	CreatedTo     *time.Time
}

// PriceChangeListFilter 查询价格变更审计的过滤条件
type PriceChangeListFilter struct {
	Page        int
	PageSize    int
	ProductID   uint
	ClientID    uint
	ChangeType  string
	ChangedFrom *time.Time
	ChangedTo   *time.Time
}
