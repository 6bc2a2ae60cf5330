package api

import (
	"github.com/emmetteckard/smartquote-b2b/internal/http/handlers/shared"
	"github.com/emmetteckard/smartquote-b2b/internal/http/response"
	"github.com/emmetteckard/smartquote-b2b/internal/models"
	"github.com/emmetteckard/smartquote-b2b/internal/repository"
	"github.com/emmetteckard/smartquote-b2b/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type productRequest struct {
	SKU           string           `json:"sku" binding:"required"`
	Name          string           `json:"name" binding:"required"`
	Description   string           `json:"description"`
	Category      string           `json:"category"`
	Unit          string           `json:"unit"`
	MinOrderQty   int              `json:"min_order_qty"`
	ErpProductID  string           `json:"erp_product_id"`
	PackageLength *decimal.Decimal `json:"package_length"`
	PackageWidth  *decimal.Decimal `json:"package_width"`
	PackageHeight *decimal.Decimal `json:"package_height"`
	PackageWeight *decimal.Decimal `json:"package_weight"`
	IsActive      *bool            `json:"is_active"`
}

// CreateProduct 创建商品
func (h *Handler) CreateProduct(c *gin.Context) {
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}
	product := &models.Product{
		SKU:           req.SKU,
		Name:          req.Name,
		Description:   req.Description,
		Category:      req.Category,
		Unit:          req.Unit,
		MinOrderQty:   req.MinOrderQty,
		ErpProductID:  req.ErpProductID,
		PackageLength: req.PackageLength,
		PackageWidth:  req.PackageWidth,
		PackageHeight: req.PackageHeight,
		PackageWeight: req.PackageWeight,
		IsActive:      true,
	}
	if product.Unit == "" {
		product.Unit = "pcs"
	}
	if product.MinOrderQty <= 0 {
		product.MinOrderQty = 1
	}
	if req.IsActive != nil {
		product.IsActive = *req.IsActive
	}
	if err := h.CatalogService.CreateProduct(product); err != nil {
		respondServiceError(c, err, "failed to create product")
		return
	}
	response.Success(c, product)
}

// UpdateProduct 更新商品
func (h *Handler) UpdateProduct(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		shared.RespondError(c, response.CodeBadRequest, "invalid product id", nil)
		return
	}
	product, err := h.CatalogService.GetProduct(id)
	if err != nil {
		respondServiceError(c, err, "failed to load product")
		return
	}
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}
	product.SKU = req.SKU
	product.Name = req.Name
	product.Description = req.Description
	product.Category = req.Category
	if req.Unit != "" {
		product.Unit = req.Unit
	}
	if req.MinOrderQty > 0 {
		product.MinOrderQty = req.MinOrderQty
	}
	product.ErpProductID = req.ErpProductID
	product.PackageLength = req.PackageLength
	product.PackageWidth = req.PackageWidth
	product.PackageHeight = req.PackageHeight
	product.PackageWeight = req.PackageWeight
	if req.IsActive != nil {
		product.IsActive = *req.IsActive
	}
	if err := h.CatalogService.UpdateProduct(product); err != nil {
		respondServiceError(c, err, "failed to update product")
		return
	}
	response.Success(c, product)
}

// GetProduct 商品详情
func (h *Handler) GetProduct(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		shared.RespondError(c, response.CodeBadRequest, "invalid product id", nil)
		return
	}
	product, err := h.CatalogService.GetProduct(id)
	if err != nil {
		respondServiceError(c, err, "failed to load product")
		return
	}
	response.Success(c, product)
}

// ListProducts 商品列表
func (h *Handler) ListProducts(c *gin.Context) {
	page, pageSize := shared.NormalizePagination(
		parseQueryInt(c, "page", 1), parseQueryInt(c, "page_size", 20))
	filter := repository.ProductListFilter{
		Page:       page,
		PageSize:   pageSize,
		Category:   c.Query("category"),
		Search:     c.Query("search"),
		OnlyActive: c.Query("only_active") == "true",
	}
	products, total, err := h.CatalogService.ListProducts(filter)
	if err != nil {
		respondServiceError(c, err, "failed to list products")
		return
	}
	response.SuccessWithPage(c, products, buildPagination(page, pageSize, total))
}

type componentRequest struct {
	ChildProductID uint `json:"child_product_id" binding:"required"`
	Quantity       int  `json:"quantity"`
}

// AddComponent 为组合商品添加构成项
func (h *Handler) AddComponent(c *gin.Context) {
	parentID, ok := parseIDParam(c, "id")
	if !ok {
		shared.RespondError(c, response.CodeBadRequest, "invalid product id", nil)
		return
	}
	var req componentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	edge, err := h.CatalogService.AddComponent(parentID, req.ChildProductID, req.Quantity)
	if err != nil {
		respondServiceError(c, err, "failed to add component")
		return
	}
	response.Success(c, edge)
}

// GetComponents 组合商品构成列表，附带导出编码
func (h *Handler) GetComponents(c *gin.Context) {
	parentID, ok := parseIDParam(c, "id")
	if !ok {
		shared.RespondError(c, response.CodeBadRequest, "invalid product id", nil)
		return
	}
	edges, err := h.CatalogService.Components(parentID)
	if err != nil {
		respondServiceError(c, err, "failed to list components")
		return
	}
	response.Success(c, gin.H{
		"components": edges,
		"encoded":    service.FormatComponentSpec(edges),
	})
}

type replaceComponentsRequest struct {
	Encoded string `json:"encoded"`
}

// ReplaceComponents 按导入编码整体重建构成
func (h *Handler) ReplaceComponents(c *gin.Context) {
	parentID, ok := parseIDParam(c, "id")
	if !ok {
		shared.RespondError(c, response.CodeBadRequest, "invalid product id", nil)
		return
	}
	var req replaceComponentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}
	warnings, err := h.CatalogService.ReplaceComponents(parentID, req.Encoded)
	if err != nil {
		respondServiceError(c, err, "failed to replace components")
		return
	}
	response.Success(c, gin.H{"warnings": warnings})
}

func buildPagination(page, pageSize int, total int64) response.Pagination {
	totalPage := int64(0)
	if pageSize > 0 {
		totalPage = (total + int64(pageSize) - 1) / int64(pageSize)
	}
	return response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: totalPage,
	}
}
