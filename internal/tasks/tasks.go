// Package tasks defines the asynq task types and payloads shared by the
// enqueuing services and the worker handlers.
package tasks

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

// Task type names.
const (
	// TypeRoomActivity bumps a room's last_active timestamp after a
	// message was persisted.
	TypeRoomActivity = "room:activity"
	// TypeStateSweep periodically drops cached state of rooms that have
	// gone inactive.
	TypeStateSweep = "state:sweep"
)

// RoomActivityPayload carries the data of a TypeRoomActivity task.
type RoomActivityPayload struct {
	RoomID uint      `json:"room_id"`
	At     time.Time `json:"at"`
}

// NewRoomActivityTask builds a TypeRoomActivity task.
func NewRoomActivityTask(roomID uint, at time.Time) (*asynq.Task, error) {
	payload, err := json.Marshal(RoomActivityPayload{RoomID: roomID, At: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeRoomActivity, payload), nil
}

// NewStateSweepTask builds a TypeStateSweep task. It carries no payload;
// the handler scans for inactive rooms itself.
func NewStateSweepTask() *asynq.Task {
	return asynq.NewTask(TypeStateSweep, nil)
}
