package api

import (
	"github.com/emmetteckard/smartquote-b2b/internal/http/handlers/shared"
	"github.com/emmetteckard/smartquote-b2b/internal/http/response"
	"github.com/emmetteckard/smartquote-b2b/internal/models"
	"github.com/emmetteckard/smartquote-b2b/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type clientRequest struct {
	CompanyName   string           `json:"company_name" binding:"required"`
	ContactPerson string           `json:"contact_person"`
	Email         string           `json:"email"`
	Phone         string           `json:"phone"`
	Address       string           `json:"address"`
	TaxID         string           `json:"tax_id"`
	PaymentTerms  int              `json:"payment_terms"`
	CreditLimit   *decimal.Decimal `json:"credit_limit"`
	Tier          string           `json:"tier"`
	SalesRepID    *uint            `json:"sales_rep_id"`
	IsActive      *bool            `json:"is_active"`
}

func (req *clientRequest) apply(client *models.Client) {
	client.CompanyName = req.CompanyName
	client.ContactPerson = req.ContactPerson
	client.Email = req.Email
	client.Phone = req.Phone
	client.Address = req.Address
	client.TaxID = req.TaxID
	if req.PaymentTerms > 0 {
		client.PaymentTerms = req.PaymentTerms
	}
	if req.CreditLimit != nil {
		limit := models.NewMoneyFromDecimal(*req.CreditLimit)
		client.CreditLimit = &limit
	}
	if req.Tier != "" {
		client.Tier = req.Tier
	}
	client.SalesRepID = req.SalesRepID
	if req.IsActive != nil {
		client.IsActive = *req.IsActive
	}
}

// CreateClient 创建客户
func (h *Handler) CreateClient(c *gin.Context) {
	var req clientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}
	client := &models.Client{IsActive: true}
	req.apply(client)
	if err := h.ClientService.CreateClient(client); err != nil {
		respondServiceError(c, err, "failed to create client")
		return
	}
	response.Success(c, client)
}

// UpdateClient 更新客户档案
func (h *Handler) UpdateClient(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		shared.RespondError(c, response.CodeBadRequest, "invalid client id", nil)
		return
	}
	client, err := h.ClientService.GetClient(id)
	if err != nil {
		respondServiceError(c, err, "failed to load client")
		return
	}
	var req clientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}
	req.apply(client)
	if err := h.ClientService.UpdateClient(client); err != nil {
		respondServiceError(c, err, "failed to update client")
		return
	}
	response.Success(c, client)
}

// GetClient 客户详情
func (h *Handler) GetClient(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		shared.RespondError(c, response.CodeBadRequest, "invalid client id", nil)
		return
	}
	client, err := h.ClientService.GetClient(id)
	if err != nil {
		respondServiceError(c, err, "failed to load client")
		return
	}
	response.Success(c, client)
}

// ListClients 客户列表
func (h *Handler) ListClients(c *gin.Context) {
	page, pageSize := shared.NormalizePagination(
		parseQueryInt(c, "page", 1), parseQueryInt(c, "page_size", 20))
	filter := repository.ClientListFilter{
		Page:       page,
		PageSize:   pageSize,
		Tier:       c.Query("tier"),
		Search:     c.Query("search"),
		SalesRepID: uint(parseQueryInt(c, "sales_rep_id", 0)),
		OnlyActive: c.Query("only_active") == "true",
	}
	clients, total, err := h.ClientService.ListClients(filter)
	if err != nil {
		respondServiceError(c, err, "failed to list clients")
		return
	}
	response.SuccessWithPage(c, clients, buildPagination(page, pageSize, total))
}
