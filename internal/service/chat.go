package service

import (
	"context"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"realtime-chat/internal/domain"
	"realtime-chat/internal/repository"
	"realtime-chat/internal/tasks"
)

// TaskQueue is the slice of *asynq.Client the chat service needs; tests
// substitute a mock.
type TaskQueue interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// ChatService persists messages and serves room history. It owns the
// write path of the Message Store: database row first, then best-effort
// cache push and activity enqueue.
type ChatService struct {
	messageRepo repository.MessageRepository
	stateRepo   repository.StateRepository
	taskQueue   TaskQueue
}

// NewChatService creates a ChatService. taskQueue may be nil, in which
// case room-activity bumps are skipped.
func NewChatService(messageRepo repository.MessageRepository, stateRepo repository.StateRepository, taskQueue TaskQueue) *ChatService {
	if messageRepo == nil {
		panic("MessageRepository cannot be nil for ChatService")
	}
	if stateRepo == nil {
		panic("StateRepository cannot be nil for ChatService")
	}
	return &ChatService{
		messageRepo: messageRepo,
		stateRepo:   stateRepo,
		taskQueue:   taskQueue,
	}
}

// SaveMessage durably records one inbound payload for a room. senderID
// is nil for anonymous connections. The timestamp is assigned here, at
// receipt, so arrival order is persisted order. Only the database write
// can fail the call; cache and queue trouble is logged and swallowed.
func (s *ChatService) SaveMessage(ctx context.Context, roomID uint, senderID *uint, content string) (*domain.Message, error) {
	logCtx := logrus.WithField("room_id", roomID)

	message := &domain.Message{
		Content:   content,
		Timestamp: time.Now(),
		SenderID:  senderID,
		RoomID:    roomID,
	}
	if err := s.messageRepo.Create(ctx, message); err != nil {
		logCtx.WithError(err).Error("SaveMessage: failed to persist message")
		return nil, ErrInternalServer
	}

	if err := s.stateRepo.PushMessageToHistory(ctx, roomID, *message); err != nil {
		logCtx.WithError(err).Warn("SaveMessage: failed to push message to history cache")
	}

	if s.taskQueue != nil {
		task, err := tasks.NewRoomActivityTask(roomID, message.Timestamp)
		if err != nil {
			logCtx.WithError(err).Warn("SaveMessage: failed to build room activity task")
		} else if _, err := s.taskQueue.Enqueue(task, asynq.Queue("low")); err != nil {
			logCtx.WithError(err).Warn("SaveMessage: failed to enqueue room activity task")
		}
	}

	return message, nil
}

// RecentMessages returns up to limit recent messages of a room, oldest
// first. The Redis cache is tried first; on a cache miss or error the
// database answers.
func (s *ChatService) RecentMessages(ctx context.Context, roomID uint, limit int) ([]domain.Message, error) {
	if limit <= 0 {
		limit = 50
	}
	logCtx := logrus.WithField("room_id", roomID)

	cached, err := s.stateRepo.GetRecentMessages(ctx, roomID, limit)
	if err != nil {
		logCtx.WithError(err).Warn("RecentMessages: cache read failed, falling back to database")
	} else if len(cached) > 0 {
		return cached, nil
	}

	messages, err := s.messageRepo.FindRecentByRoom(ctx, roomID, limit)
	if err != nil {
		logCtx.WithError(err).Error("RecentMessages: failed to read messages from database")
		return nil, ErrInternalServer
	}
	return messages, nil
}
