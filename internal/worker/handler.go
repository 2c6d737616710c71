package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"realtime-chat/internal/repository"
	"realtime-chat/internal/tasks"
)

// RoomActivityHandler processes room-activity tasks by bumping the
// room's last_active column.
type RoomActivityHandler struct {
	roomRepo repository.RoomRepository
}

// NewRoomActivityHandler creates a RoomActivityHandler.
func NewRoomActivityHandler(roomRepo repository.RoomRepository) *RoomActivityHandler {
	if roomRepo == nil {
		panic("RoomRepository cannot be nil for RoomActivityHandler")
	}
	return &RoomActivityHandler{roomRepo: roomRepo}
}

// ProcessTask implements asynq.Handler.
func (h *RoomActivityHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload tasks.RoomActivityPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		logrus.WithError(err).Error("RoomActivityHandler: failed to unmarshal task payload")
		// A payload that never decodes will never decode; don't retry.
		return fmt.Errorf("unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	if err := h.roomRepo.UpdateLastActive(ctx, payload.RoomID, payload.At); err != nil {
		logrus.WithError(err).WithField("room_id", payload.RoomID).Error("RoomActivityHandler: failed to update last_active")
		return fmt.Errorf("update last_active for room %d: %w", payload.RoomID, err)
	}

	logrus.WithField("room_id", payload.RoomID).Debug("Room activity task processed")
	return nil
}

// stateSweepInactivity is how long a room must be idle before its cached
// state is dropped.
const stateSweepInactivity = 24 * time.Hour

// StateSweepHandler drops cached Redis state of rooms that have gone
// inactive. The database history is untouched; rooms are never deleted.
type StateSweepHandler struct {
	roomRepo  repository.RoomRepository
	stateRepo repository.StateRepository
}

// NewStateSweepHandler creates a StateSweepHandler.
func NewStateSweepHandler(roomRepo repository.RoomRepository, stateRepo repository.StateRepository) *StateSweepHandler {
	if roomRepo == nil {
		panic("RoomRepository cannot be nil for StateSweepHandler")
	}
	if stateRepo == nil {
		panic("StateRepository cannot be nil for StateSweepHandler")
	}
	return &StateSweepHandler{roomRepo: roomRepo, stateRepo: stateRepo}
}

// ProcessTask implements asynq.Handler. Per-room cleanup failures are
// logged and skipped so one bad key cannot stall the whole sweep.
func (h *StateSweepHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	cutoff := time.Now().Add(-stateSweepInactivity)
	rooms, err := h.roomRepo.FindInactiveSince(ctx, cutoff)
	if err != nil {
		logrus.WithError(err).Error("StateSweepHandler: failed to list inactive rooms")
		return fmt.Errorf("list inactive rooms: %w", err)
	}

	swept := 0
	for _, room := range rooms {
		if err := h.stateRepo.CleanupRoomState(ctx, room.ID); err != nil {
			logrus.WithError(err).WithField("room_id", room.ID).Warn("StateSweepHandler: failed to clean up room state")
			continue
		}
		swept++
	}

	logrus.WithFields(logrus.Fields{
		"candidates": len(rooms),
		"swept":      swept,
	}).Info("State sweep completed")
	return nil
}
