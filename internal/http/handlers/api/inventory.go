package api

import (
	"github.com/emmetteckard/smartquote-b2b/internal/http/handlers/shared"
	"github.com/emmetteckard/smartquote-b2b/internal/http/response"

	"github.com/gin-gonic/gin"
)

type setInventoryRequest struct {
	WarehouseCode string `json:"warehouse_code" binding:"required"`
	AvailableQty  int    `json:"available_qty"`
}

// SetInventory 设置商品在指定仓库的可用数量
func (h *Handler) SetInventory(c *gin.Context) {
	productID, ok := parseIDParam(c, "id")
	if !ok {
		shared.RespondError(c, response.CodeBadRequest, "invalid product id", nil)
		return
	}
	var req setInventoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}
	row, err := h.StockService.SetInventory(productID, req.WarehouseCode, req.AvailableQty)
	if err != nil {
		respondServiceError(c, err, "failed to set inventory")
		return
	}
	response.Success(c, row)
}

// ListInventory 商品在各仓库的库存
func (h *Handler) ListInventory(c *gin.Context) {
	productID, ok := parseIDParam(c, "id")
	if !ok {
		shared.RespondError(c, response.CodeBadRequest, "invalid product id", nil)
		return
	}
	rows, err := h.StockService.ListInventory(productID)
	if err != nil {
		respondServiceError(c, err, "failed to list inventory")
		return
	}
	response.Success(c, rows)
}
