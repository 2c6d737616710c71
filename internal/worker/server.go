// Package worker runs the asynq background job server.
package worker

import (
	"context"
	"errors"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"realtime-chat/internal/repository"
	"realtime-chat/internal/tasks"
)

// WorkerServer wraps the asynq server together with its handlers.
type WorkerServer struct {
	server    *asynq.Server
	log       *logrus.Entry
	roomRepo  repository.RoomRepository
	stateRepo repository.StateRepository
}

// NewWorkerServer creates a WorkerServer sharing the application's Redis
// connection options.
func NewWorkerServer(redisOpt asynq.RedisClientOpt, roomRepo repository.RoomRepository, stateRepo repository.StateRepository, logger *logrus.Logger) *WorkerServer {
	logEntry := logger.WithField("component", "worker_server")

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				retryCount, _ := asynq.GetRetryCount(ctx)
				maxRetry, _ := asynq.GetMaxRetry(ctx)
				logEntry.WithFields(logrus.Fields{
					"task_type": task.Type(),
					"retries":   retryCount,
					"max_retry": maxRetry,
				}).Errorf("Task failed: %v", err)
			}),
		},
	)

	return &WorkerServer{
		server:    server,
		log:       logEntry,
		roomRepo:  roomRepo,
		stateRepo: stateRepo,
	}
}

// Start runs the worker server. It blocks, so call it from its own
// goroutine.
func (ws *WorkerServer) Start() {
	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeRoomActivity, NewRoomActivityHandler(ws.roomRepo).ProcessTask)
	mux.HandleFunc(tasks.TypeStateSweep, NewStateSweepHandler(ws.roomRepo, ws.stateRepo).ProcessTask)

	ws.log.Info("Worker server starting...")
	if err := ws.server.Run(mux); err != nil {
		if !errors.Is(err, asynq.ErrServerClosed) {
			ws.log.Fatalf("Could not run worker server: %v", err)
		}
		ws.log.Info("Worker server stopped.")
	}
}

// Shutdown gracefully stops the worker server.
func (ws *WorkerServer) Shutdown() {
	ws.log.Info("Shutting down worker server...")
	ws.server.Shutdown()
	ws.log.Info("Worker server shut down complete.")
}
