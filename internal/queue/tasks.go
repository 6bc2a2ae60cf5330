package queue

import (
	"encoding/json"

	"github.com/emmetteckard/smartquote-b2b/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskOrderTimeoutCancel 待支付超时取消任务
	TaskOrderTimeoutCancel = constants.TaskOrderTimeoutCancel
	// TaskQuotationExpire 报价单过期扫描任务
	TaskQuotationExpire = constants.TaskQuotationExpire
)

// OrderTimeoutCancelPayload 超时取消任务载荷
type OrderTimeoutCancelPayload struct {
	OrderID uint `json:"order_id"`
}

// QuotationExpirePayload 报价单过期扫描任务载荷（空载荷，扫描按当前日期）
type QuotationExpirePayload struct{}

// NewOrderTimeoutCancelTask 创建超时取消任务
func NewOrderTimeoutCancelTask(payload OrderTimeoutCancelPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOrderTimeoutCancel, body), nil
}

// NewQuotationExpireTask 创建报价单过期扫描任务
func NewQuotationExpireTask() (*asynq.Task, error) {
	body, err := json.Marshal(QuotationExpirePayload{})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskQuotationExpire, body), nil
}
