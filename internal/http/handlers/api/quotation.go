package api

import (
	"github.com/emmetteckard/smartquote-b2b/internal/http/handlers/shared"
	"github.com/emmetteckard/smartquote-b2b/internal/http/response"
	"github.com/emmetteckard/smartquote-b2b/internal/repository"
	"github.com/emmetteckard/smartquote-b2b/internal/service"

	"github.com/gin-gonic/gin"
)

type createQuotationRequest struct {
	ClientID  uint                     `json:"client_id" binding:"required"`
	Items     []service.QuoteItemInput `json:"items" binding:"required"`
	Currency  string                   `json:"currency"`
	ValidDays int                      `json:"valid_days"`
	Notes     string                   `json:"notes"`
}

// CreateQuotation 创建报价单
func (h *Handler) CreateQuotation(c *gin.Context) {
	var req createQuotationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}
	quotation, err := h.QuoteService.CreateQuotation(service.CreateQuotationInput{
		ClientID:  req.ClientID,
		Items:     req.Items,
		Currency:  req.Currency,
		ValidDays: req.ValidDays,
		Notes:     req.Notes,
		ActorID:   actorID(c),
	})
	if err != nil {
		respondServiceError(c, err, "failed to create quotation")
		return
	}
	response.Success(c, quotation)
}

// GetQuotation 报价单详情
func (h *Handler) GetQuotation(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		// 数字ID解析失败时按报价单号查
		if number := c.Param("id"); number != "" {
			quotation, err := h.QuoteService.GetQuotationByNumber(number)
			if err != nil {
				respondServiceError(c, err, "failed to load quotation")
				return
			}
			response.Success(c, quotation)
			return
		}
		shared.RespondError(c, response.CodeBadRequest, "invalid quotation id", nil)
		return
	}
	quotation, err := h.QuoteService.GetQuotation(id)
	if err != nil {
		respondServiceError(c, err, "failed to load quotation")
		return
	}
	response.Success(c, quotation)
}

// ListQuotations 报价单列表
func (h *Handler) ListQuotations(c *gin.Context) {
	page, pageSize := shared.NormalizePagination(
		parseQueryInt(c, "page", 1), parseQueryInt(c, "page_size", 20))
	filter := repository.QuotationListFilter{
		Page:       page,
		PageSize:   pageSize,
		ClientID:   uint(parseQueryInt(c, "client_id", 0)),
		SalesRepID: uint(parseQueryInt(c, "sales_rep_id", 0)),
		Status:     c.Query("status"),
		Number:     c.Query("number"),
	}
	quotations, total, err := h.QuoteService.ListQuotations(filter)
	if err != nil {
		respondServiceError(c, err, "failed to list quotations")
		return
	}
	response.SuccessWithPage(c, quotations, buildPagination(page, pageSize, total))
}

// SendQuotation 报价单发出
func (h *Handler) SendQuotation(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		shared.RespondError(c, response.CodeBadRequest, "invalid quotation id", nil)
		return
	}
	quotation, err := h.QuoteService.SendQuotation(id)
	if err != nil {
		respondServiceError(c, err, "failed to send quotation")
		return
	}
	response.Success(c, quotation)
}

// CancelQuotation 取消报价单
func (h *Handler) CancelQuotation(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		shared.RespondError(c, response.CodeBadRequest, "invalid quotation id", nil)
		return
	}
	quotation, err := h.QuoteService.CancelQuotation(id)
	if err != nil {
		respondServiceError(c, err, "failed to cancel quotation")
		return
	}
	response.Success(c, quotation)
}

// ConvertQuotation 报价单转订单
func (h *Handler) ConvertQuotation(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		shared.RespondError(c, response.CodeBadRequest, "invalid quotation id", nil)
		return
	}
	order, err := h.OrderService.ConvertQuotation(id, actorID(c))
	if err != nil {
		respondServiceError(c, err, "failed to convert quotation")
		return
	}
	response.Success(c, order)
}
