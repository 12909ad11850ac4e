package worker

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/setwear/internal/logger"
	"github.com/setwear/internal/provider"
	"github.com/setwear/internal/queue"
	"github.com/setwear/internal/service"

	"github.com/hibiken/asynq"
)

// defaultTrackSyncLimit 单次轨迹同步最多处理的订单数
const defaultTrackSyncLimit = 200

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
	mux.HandleFunc(queue.TaskShipmentDispatch, c.handleShipmentDispatch)
	mux.HandleFunc(queue.TaskShipmentTrackSync, c.handleShipmentTrackSync)
}

func (c *Consumer) handleShipmentDispatch(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_shipment_dispatch_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.ShipmentDispatchPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_shipment_dispatch_unmarshal_failed", "error", err)
		return err
	}
	if payload.OrderID == 0 {
		logger.Debugw("worker_shipment_dispatch_skip_invalid_payload", "order_id", payload.OrderID)
		return nil
	}
	if c.Container == nil || c.DispatchService == nil {
		logger.Warnw("worker_shipment_dispatch_skip_service_nil", "order_id", payload.OrderID)
		return nil
	}
	order, err := c.DispatchService.DispatchShipment(ctx, payload.OrderID, service.DispatchOptions{
		Courier:    payload.Courier,
		OperatorID: payload.OperatorID,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			logger.Debugw("worker_shipment_dispatch_skip_order_not_found", "order_id", payload.OrderID)
			return nil
		case errors.Is(err, service.ErrOrderStatusInvalid):
			logger.Debugw("worker_shipment_dispatch_skip_invalid_status", "order_id", payload.OrderID, "error", err)
			return nil
		case errors.Is(err, service.ErrDispatchInProgress):
			logger.Infow("worker_shipment_dispatch_skip_in_progress", "order_id", payload.OrderID)
			return nil
		default:
			logger.Warnw("worker_shipment_dispatch_failed", "order_id", payload.OrderID, "courier", payload.Courier, "error", err)
			return err
		}
	}
	logger.Infow("worker_shipment_dispatched",
		"order_id", order.ID,
		"order_no", order.OrderNo,
		"courier", order.Courier,
		"tracking_id", order.TrackingID,
	)
	return nil
}

func (c *Consumer) handleShipmentTrackSync(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_shipment_track_sync_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.ShipmentTrackSyncPayload
	if len(task.Payload()) > 0 {
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			logger.Warnw("worker_shipment_track_sync_unmarshal_failed", "error", err)
			return err
		}
	}
	if payload.Limit <= 0 {
		payload.Limit = defaultTrackSyncLimit
	}
	if c.Container == nil || c.DispatchService == nil {
		logger.Warnw("worker_shipment_track_sync_skip_service_nil")
		return nil
	}
	updated, err := c.DispatchService.SyncTracking(ctx, payload.Limit)
	if err != nil {
		logger.Warnw("worker_shipment_track_sync_failed", "limit", payload.Limit, "error", err)
		return err
	}
	logger.Debugw("worker_shipment_track_sync_done", "limit", payload.Limit, "updated", updated)
	return nil
}
