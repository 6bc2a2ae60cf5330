package api

import (
	"time"

	"github.com/emmetteckard/smartquote-b2b/internal/http/handlers/shared"
	"github.com/emmetteckard/smartquote-b2b/internal/http/response"
	"github.com/emmetteckard/smartquote-b2b/internal/repository"
	"github.com/emmetteckard/smartquote-b2b/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// parseDateQuery 解析日期查询参数，缺省为今天
func parseDateQuery(c *gin.Context, name string) (time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return time.Now(), true
	}
	parsed, err := time.ParseInLocation(dateLayout, raw, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}

type setBasePriceRequest struct {
	Tier          string          `json:"tier" binding:"required"`
	Price         decimal.Decimal `json:"price" binding:"required"`
	EffectiveFrom string          `json:"effective_from"`
	Reason        string          `json:"reason"`
	Batch         bool            `json:"batch"`
}

// SetBasePrice 更新商品某档位的基础价
func (h *Handler) SetBasePrice(c *gin.Context) {
	productID, ok := parseIDParam(c, "id")
	if !ok {
		shared.RespondError(c, response.CodeBadRequest, "invalid product id", nil)
		return
	}
	var req setBasePriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}
	effectiveFrom := time.Now()
	if req.EffectiveFrom != "" {
		parsed, err := time.ParseInLocation(dateLayout, req.EffectiveFrom, time.Local)
		if err != nil {
			shared.RespondError(c, response.CodeBadRequest, "invalid effective_from date", err)
			return
		}
		effectiveFrom = parsed
	}
	row, err := h.PriceService.SetBasePrice(service.SetBasePriceInput{
		ProductID:     productID,
		Tier:          req.Tier,
		Price:         req.Price,
		EffectiveFrom: effectiveFrom,
		Reason:        req.Reason,
		ActorID:       actorID(c),
		Batch:         req.Batch,
	})
	if err != nil {
		respondServiceError(c, err, "failed to set base price")
		return
	}
	response.Success(c, row)
}

type setClientPriceRequest struct {
	ProductID     uint            `json:"product_id" binding:"required"`
	Price         decimal.Decimal `json:"price" binding:"required"`
	EffectiveFrom string          `json:"effective_from"`
	IsProtected   bool            `json:"is_protected"`
	Reason        string          `json:"reason"`
}

// SetClientPrice 更新客户专属价
func (h *Handler) SetClientPrice(c *gin.Context) {
	clientID, ok := parseIDParam(c, "id")
	if !ok {
		shared.RespondError(c, response.CodeBadRequest, "invalid client id", nil)
		return
	}
	var req setClientPriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}
	effectiveFrom := time.Now()
	if req.EffectiveFrom != "" {
		parsed, err := time.ParseInLocation(dateLayout, req.EffectiveFrom, time.Local)
		if err != nil {
			shared.RespondError(c, response.CodeBadRequest, "invalid effective_from date", err)
			return
		}
		effectiveFrom = parsed
	}
	row, err := h.PriceService.SetClientPrice(service.SetClientPriceInput{
		ClientID:      clientID,
		ProductID:     req.ProductID,
		Price:         req.Price,
		EffectiveFrom: effectiveFrom,
		IsProtected:   req.IsProtected,
		Reason:        req.Reason,
		ActorID:       actorID(c),
	})
	if err != nil {
		respondServiceError(c, err, "failed to set client price")
		return
	}
	response.Success(c, row)
}

// GetTierPrices 商品各档位在指定日期的生效价
func (h *Handler) GetTierPrices(c *gin.Context) {
	productID, ok := parseIDParam(c, "id")
	if !ok {
		shared.RespondError(c, response.CodeBadRequest, "invalid product id", nil)
		return
	}
	asOf, ok := parseDateQuery(c, "as_of")
	if !ok {
		shared.RespondError(c, response.CodeBadRequest, "invalid as_of date", nil)
		return
	}
	prices, err := h.PriceService.TierPrices(productID, asOf)
	if err != nil {
		respondServiceError(c, err, "failed to load tier prices")
		return
	}
	response.Success(c, gin.H{
		"product_id": productID,
		"as_of":      asOf.Format(dateLayout),
		"prices":     prices,
	})
}

// ResolvePrice 解析商品对客户的生效单价
func (h *Handler) ResolvePrice(c *gin.Context) {
	productID := uint(parseQueryInt(c, "product_id", 0))
	if productID == 0 {
		shared.RespondError(c, response.CodeBadRequest, "product_id is required", nil)
		return
	}
	var clientID *uint
	if raw := parseQueryInt(c, "client_id", 0); raw > 0 {
		id := uint(raw)
		clientID = &id
	}
	asOf, ok := parseDateQuery(c, "as_of")
	if !ok {
		shared.RespondError(c, response.CodeBadRequest, "invalid as_of date", nil)
		return
	}
	resolved, err := h.PriceResolver.Resolve(clientID, productID, asOf)
	if err != nil {
		respondServiceError(c, err, "failed to resolve price")
		return
	}
	response.Success(c, resolved)
}

// ListPriceChanges 价格变更审计列表
func (h *Handler) ListPriceChanges(c *gin.Context) {
	page, pageSize := shared.NormalizePagination(
		parseQueryInt(c, "page", 1), parseQueryInt(c, "page_size", 20))
	filter := repository.PriceChangeListFilter{
		Page:       page,
		PageSize:   pageSize,
		ProductID:  uint(parseQueryInt(c, "product_id", 0)),
		ClientID:   uint(parseQueryInt(c, "client_id", 0)),
		ChangeType: c.Query("change_type"),
	}
	records, total, err := h.PriceService.ListChangeRecords(filter)
	if err != nil {
		respondServiceError(c, err, "failed to list price changes")
		return
	}
	response.SuccessWithPage(c, records, buildPagination(page, pageSize, total))
}
