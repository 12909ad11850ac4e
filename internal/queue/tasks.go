package queue

import (
	"encoding/json"

	"github.com/setwear/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskShipmentDispatch 异步发货任务
	TaskShipmentDispatch = constants.TaskShipmentDispatch
	// TaskShipmentTrackSync 物流轨迹同步任务
	TaskShipmentTrackSync = constants.TaskShipmentTrackSync
)

// ShipmentDispatchPayload 异步发货任务载荷
type ShipmentDispatchPayload struct {
	OrderID    uint   `json:"order_id"`
	Courier    string `json:"courier,omitempty"`
	OperatorID uint   `json:"operator_id,omitempty"`
}

// ShipmentTrackSyncPayload 轨迹同步任务载荷
type ShipmentTrackSyncPayload struct {
	Limit int `json:"limit"`
}

// NewShipmentDispatchTask 创建异步发货任务
func NewShipmentDispatchTask(payload ShipmentDispatchPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskShipmentDispatch, body), nil
}

// NewShipmentTrackSyncTask 创建轨迹同步任务
func NewShipmentTrackSyncTask(payload ShipmentTrackSyncPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskShipmentTrackSync, body), nil
}
