package worker

import (
	"context"
	"errors"
	"time"

	"github.com/emmetteckard/smartquote-b2b/internal/config"
	"github.com/emmetteckard/smartquote-b2b/internal/logger"
	"github.com/emmetteckard/smartquote-b2b/internal/queue"

	"github.com/hibiken/asynq"
	"github.com/robfig/cron/v3"
)

const (
	expiredOrderSweepInterval = 10 * time.Minute
	defaultExpireScanCron     = "0 1 * * *"
)

// Service 异步队列服务。除消费 asynq 任务外还带两个周期扫描：
// 报价单过期按 cron 表达式跑，超时订单兜底扫描按固定间隔跑
// （单笔超时任务投递失败时由它补刀）。
type Service struct {
	name     string
	server   *asynq.Server
	mux      *asynq.ServeMux
	consumer *Consumer
	cron     *cron.Cron
	cronSpec string
}

// NewService 创建异步队列服务
func NewService(cfg *config.QueueConfig, quotationCfg *config.QuotationConfig, consumer *Consumer) (*Service, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, errors.New("queue disabled")
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	opt, serverCfg := queue.BuildServerConfig(cfg)
	server := asynq.NewServer(opt, serverCfg)
	mux := asynq.NewServeMux()
	consumer.Register(mux)
	cronSpec := defaultExpireScanCron
	if quotationCfg != nil && quotationCfg.ExpireScanCron != "" {
		cronSpec = quotationCfg.ExpireScanCron
	}
	return &Service{
		name:     "worker",
		server:   server,
		mux:      mux,
		consumer: consumer,
		cron:     cron.New(),
		cronSpec: cronSpec,
	}, nil
}

// Name 服务名称
func (s *Service) Name() string {
	if s == nil || s.name == "" {
		return "worker"
	}
	return s.name
}

// Start 启动服务
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.server == nil || s.mux == nil {
		return errors.New("worker not initialized")
	}
	if err := s.startCron(); err != nil {
		return err
	}
	go s.runExpiredOrderSweep(ctx)
	return s.server.Run(s.mux)
}

// Stop 停止服务
func (s *Service) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	_ = ctx
	if s.cron != nil {
		s.cron.Stop()
	}
	s.server.Shutdown()
	return nil
}

func (s *Service) startCron() error {
	if s.consumer == nil || s.consumer.QuoteService == nil {
		return nil
	}
	_, err := s.cron.AddFunc(s.cronSpec, func() {
		if _, err := s.consumer.QuoteService.ExpireQuotations(time.Now()); err != nil {
			logger.Warnw("worker_quotation_expire_cron_failed", "error", err)
		}
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

func (s *Service) runExpiredOrderSweep(ctx context.Context) {
	if s == nil || s.consumer == nil || s.consumer.OrderService == nil {
		return
	}
	runOnce := func() {
		cancelled, err := s.consumer.OrderService.CancelExpiredOrders(time.Now())
		if err != nil {
			logger.Warnw("worker_expired_order_sweep_failed", "error", err)
			return
		}
		if cancelled > 0 {
			logger.Infow("worker_expired_orders_cancelled", "count", cancelled)
		}
	}
	runOnce()

	ticker := time.NewTicker(expiredOrderSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}
