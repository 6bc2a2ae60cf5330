package api

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// actorID 读取中间件写入的操作人ID，缺省为 0（未标识）
func actorID(c *gin.Context) uint {
	value, ok := c.Get("actor_id")
	if !ok {
		return 0
	}
	id, ok := value.(uint)
	if !ok {
		return 0
	}
	return id
}

// parseIDParam 解析路径中的数字ID
func parseIDParam(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// parseQueryInt 解析查询参数中的整数，缺省返回 fallback
func parseQueryInt(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
