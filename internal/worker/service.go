package worker

import (
	"context"
	"errors"
	"time"

	"github.com/setwear/internal/config"
	"github.com/setwear/internal/logger"
	"github.com/setwear/internal/queue"

	"github.com/hibiken/asynq"
)

// Service 异步队列服务
type Service struct {
	name             string
	server           *asynq.Server
	mux              *asynq.ServeMux
	consumer         *Consumer
	trackingInterval time.Duration
}

// NewService 创建异步队列服务
func NewService(cfg *config.QueueConfig, workerCfg config.WorkerConfig, consumer *Consumer) (*Service, error) {
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
	return &Service{
		name:             "worker",
		server:           server,
		mux:              mux,
		consumer:         consumer,
		trackingInterval: workerCfg.TrackingSyncInterval(),
	}, nil
}

// Name 服务名称
func (s *Service) Name() string {
	if s == nil || s.name == "" {
		return "worker"
	}
	return s.name
}

// Start 启动消费者并阻塞到 ctx 结束
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.server == nil || s.mux == nil {
		return errors.New("worker not initialized")
	}
	// server.Start 不监听系统信号，关闭由 app.Runner 调用 Stop
	if err := s.server.Start(s.mux); err != nil {
		return err
	}
	if s.trackingInterval > 0 && s.consumer != nil && s.consumer.Container != nil {
		go s.runTrackingSyncLoop(ctx)
	}
	<-ctx.Done()
	return nil
}

// Stop 停止服务
func (s *Service) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		s.server.Shutdown()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// runTrackingSyncLoop 定时投递轨迹同步任务，多实例部署时由唯一任务窗口去重
func (s *Service) runTrackingSyncLoop(ctx context.Context) {
	if s == nil || s.consumer == nil || s.consumer.Container == nil {
		return
	}
	runOnce := func() {
		payload := queue.ShipmentTrackSyncPayload{Limit: defaultTrackSyncLimit}
		if s.consumer.QueueClient.Enabled() {
			if err := s.consumer.QueueClient.EnqueueShipmentTrackSync(payload, s.trackingInterval); err != nil {
				logger.Warnw("worker_tracking_sync_enqueue_failed", "error", err)
			}
			return
		}
		if s.consumer.DispatchService == nil {
			return
		}
		if _, err := s.consumer.DispatchService.SyncTracking(ctx, payload.Limit); err != nil {
			logger.Warnw("worker_tracking_sync_failed", "error", err)
		}
	}
	runOnce()

	ticker := time.NewTicker(s.trackingInterval)
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
