package api

import (
	"errors"

	"github.com/emmetteckard/smartquote-b2b/internal/http/handlers/shared"
	"github.com/emmetteckard/smartquote-b2b/internal/http/response"
	"github.com/emmetteckard/smartquote-b2b/internal/service"

	"github.com/gin-gonic/gin"
)

// mappedHandlerError 定义业务错误到接口错误响应的映射关系。
type mappedHandlerError struct {
	target error
	code   int
	msg    string
}

var commonErrorRules = []mappedHandlerError{
	{target: service.ErrNotFound, code: response.CodeNotFound, msg: "record not found"},
	{target: service.ErrInvalidQuantity, code: response.CodeBadRequest, msg: "invalid quantity or amount"},
	{target: service.ErrInvalidTier, code: response.CodeBadRequest, msg: "invalid price tier"},
	{target: service.ErrInvalidInterval, code: response.CodeBadRequest, msg: "effective date precedes existing price history"},
	{target: service.ErrCycleDetected, code: response.CodeConflict, msg: "component cycle detected"},
	{target: service.ErrInvalidState, code: response.CodeConflict, msg: "operation not allowed in current state"},
	{target: service.ErrInvalidTransition, code: response.CodeConflict, msg: "status transition not allowed"},
	{target: service.ErrInsufficientStock, code: response.CodeConflict, msg: "insufficient stock"},
}

func respondServiceError(c *gin.Context, err error, fallbackMsg string) {
	for _, rule := range commonErrorRules {
		if errors.Is(err, rule.target) {
			shared.RespondError(c, rule.code, rule.msg, nil)
			return
		}
	}
	shared.RespondError(c, response.CodeInternal, fallbackMsg, err)
}
