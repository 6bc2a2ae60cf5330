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

// GetOrder 订单详情
func (h *Handler) GetOrder(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		if number := c.Param("id"); number != "" {
			order, err := h.OrderService.GetOrderByNumber(number)
			if err != nil {
				respondServiceError(c, err, "failed to load order")
				return
			}
			response.Success(c, order)
			return
		}
		shared.RespondError(c, response.CodeBadRequest, "invalid order id", nil)
		return
	}
	order, err := h.OrderService.GetOrder(id)
	if err != nil {
		respondServiceError(c, err, "failed to load order")
		return
	}
	response.Success(c, order)
}

// ListOrders 订单列表
func (h *Handler) ListOrders(c *gin.Context) {
	page, pageSize := shared.NormalizePagination(
		parseQueryInt(c, "page", 1), parseQueryInt(c, "page_size", 20))
	filter := repository.OrderListFilter{
		Page:          page,
		PageSize:      pageSize,
		ClientID:      uint(parseQueryInt(c, "client_id", 0)),
		Status:        c.Query("status"),
		PaymentStatus: c.Query("payment_status"),
		Number:        c.Query("number"),
	}
	orders, total, err := h.OrderService.ListOrders(filter)
	if err != nil {
		respondServiceError(c, err, "failed to list orders")
		return
	}
	response.SuccessWithPage(c, orders, buildPagination(page, pageSize, total))
}

type updateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateOrderStatus 推进订单状态
func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		shared.RespondError(c, response.CodeBadRequest, "invalid order id", nil)
		return
	}
	var req updateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}
	order, err := h.OrderService.UpdateOrderStatus(id, req.Status)
	if err != nil {
		respondServiceError(c, err, "failed to update order status")
		return
	}
	response.Success(c, order)
}

// CancelOrder 取消订单
func (h *Handler) CancelOrder(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		shared.RespondError(c, response.CodeBadRequest, "invalid order id", nil)
		return
	}
	order, err := h.OrderService.CancelOrder(id)
	if err != nil {
		respondServiceError(c, err, "failed to cancel order")
		return
	}
	response.Success(c, order)
}

// LockStock 为订单锁定库存
func (h *Handler) LockStock(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		shared.RespondError(c, response.CodeBadRequest, "invalid order id", nil)
		return
	}
	locks, err := h.StockService.LockStock(id, actorID(c))
	if err != nil {
		respondServiceError(c, err, "failed to lock stock")
		return
	}
	response.Success(c, gin.H{"locks": locks})
}

// ReleaseStock 释放订单锁定的库存
func (h *Handler) ReleaseStock(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		shared.RespondError(c, response.CodeBadRequest, "invalid order id", nil)
		return
	}
	if err := h.StockService.ReleaseStock(id); err != nil {
		respondServiceError(c, err, "failed to release stock")
		return
	}
	response.Success(c, nil)
}

// FulfillStock 订单履约出库
func (h *Handler) FulfillStock(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		shared.RespondError(c, response.CodeBadRequest, "invalid order id", nil)
		return
	}
	if err := h.StockService.FulfillStock(id); err != nil {
		respondServiceError(c, err, "failed to fulfill stock")
		return
	}
	response.Success(c, nil)
}

type recordPaymentRequest struct {
	PaymentMethod   string          `json:"payment_method"`
	Amount          decimal.Decimal `json:"amount" binding:"required"`
	PaymentDate     string          `json:"payment_date"`
	ReferenceNumber string          `json:"reference_number"`
	Notes           string          `json:"notes"`
}

// RecordPayment 登记订单收款
func (h *Handler) RecordPayment(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		shared.RespondError(c, response.CodeBadRequest, "invalid order id", nil)
		return
	}
	var req recordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}
	var paymentDate *time.Time
	if req.PaymentDate != "" {
		parsed, err := time.ParseInLocation(dateLayout, req.PaymentDate, time.Local)
		if err != nil {
			shared.RespondError(c, response.CodeBadRequest, "invalid payment_date", err)
			return
		}
		paymentDate = &parsed
	}
	payment, err := h.OrderService.RecordPayment(service.RecordPaymentInput{
		OrderID:         id,
		PaymentMethod:   req.PaymentMethod,
		Amount:          req.Amount,
		PaymentDate:     paymentDate,
		ReferenceNumber: req.ReferenceNumber,
		Notes:           req.Notes,
	})
	if err != nil {
		respondServiceError(c, err, "failed to record payment")
		return
	}
	response.Success(c, payment)
}

// ConfirmPayment 财务确认收款
func (h *Handler) ConfirmPayment(c *gin.Context) {
	paymentID, ok := parseIDParam(c, "payment_id")
	if !ok {
		shared.RespondError(c, response.CodeBadRequest, "invalid payment id", nil)
		return
	}
	payment, err := h.OrderService.ConfirmPayment(paymentID, actorID(c))
	if err != nil {
		respondServiceError(c, err, "failed to confirm payment")
		return
	}
	response.Success(c, payment)
}

// FailPayment 收款核验不通过
func (h *Handler) FailPayment(c *gin.Context) {
	paymentID, ok := parseIDParam(c, "payment_id")
	if !ok {
		shared.RespondError(c, response.CodeBadRequest, "invalid payment id", nil)
		return
	}
	payment, err := h.OrderService.FailPayment(paymentID)
	if err != nil {
		respondServiceError(c, err, "failed to fail payment")
		return
	}
	response.Success(c, payment)
}
