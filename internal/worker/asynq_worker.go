package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/emmetteckard/smartquote-b2b/internal/constants"
	"github.com/emmetteckard/smartquote-b2b/internal/logger"
	"github.com/emmetteckard/smartquote-b2b/internal/provider"
	"github.com/emmetteckard/smartquote-b2b/internal/queue"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskOrderTimeoutCancel, c.handleOrderTimeoutCancel)
	mux.HandleFunc(queue.TaskQuotationExpire, c.handleQuotationExpire)
}

// handleOrderTimeoutCancel 到期取消待支付订单。
// 订单已支付或已取消时任务落空，直接吞掉不重试。
func (c *Consumer) handleOrderTimeoutCancel(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		return nil
	}
	var payload queue.OrderTimeoutCancelPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_order_timeout_cancel_unmarshal_failed", "error", err)
		return err
	}
	if payload.OrderID == 0 {
		return nil
	}
	order, err := c.OrderRepo.GetByID(payload.OrderID)
	if err != nil {
		logger.Warnw("worker_order_timeout_cancel_fetch_failed", "order_id", payload.OrderID, "error", err)
		return err
	}
	if order == nil {
		logger.Debugw("worker_order_timeout_cancel_skip_not_found", "order_id", payload.OrderID)
		return nil
	}
	if order.Status != constants.OrderStatusPendingPayment {
		logger.Debugw("worker_order_timeout_cancel_skip_status",
			"order_number", order.OrderNumber, "status", order.Status)
		return nil
	}
	if order.ExpiresAt != nil && order.ExpiresAt.After(time.Now()) {
		// 支付期限被延后，任务提前触发
		return nil
	}
	if _, err := c.OrderService.CancelOrder(order.ID); err != nil {
		logger.Warnw("worker_order_timeout_cancel_failed",
			"order_number", order.OrderNumber, "error", err)
		return err
	}
	logger.Infow("worker_order_timeout_cancelled", "order_number", order.OrderNumber)
	return nil
}

// handleQuotationExpire 报价单过期扫描
func (c *Consumer) handleQuotationExpire(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		return nil
	}
	expired, err := c.QuoteService.ExpireQuotations(time.Now())
	if err != nil {
		logger.Warnw("worker_quotation_expire_failed", "error", err)
		return err
	}
	if expired > 0 {
		logger.Infow("worker_quotation_expired", "count", expired)
	}
	return nil
}
