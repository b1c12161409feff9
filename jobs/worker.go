package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Worker runs the asynq server processing background tasks.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	logger *slog.Logger
}

// NewWorker builds a worker bound to the given redis address.
func NewWorker(redisAddr string, pool *pgxpool.Pool, logger *slog.Logger) *Worker {
	server := asynq.NewServer(
		asynq.RedisClientOpt{Addr: redisAddr},
		asynq.Config{
			Concurrency: 5,
			Queues:      map[string]int{QueueDefault: 1},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("task failed", slog.String("type", task.Type()), slog.Any("error", err))
			}),
		},
	)

	mux := asynq.NewServeMux()
	recalc := NewGradesRecalculator(pool, logger)
	mux.HandleFunc(TaskGradesRecalc, recalc.HandleGradesRecalc)

	return &Worker{server: server, mux: mux, logger: logger}
}

// Run blocks processing tasks until Shutdown is called.
func (w *Worker) Run() error {
	w.logger.Info("worker started")
	return w.server.Run(w.mux)
}

// Shutdown drains in-flight tasks and stops the server.
func (w *Worker) Shutdown() {
	w.server.Shutdown()
}
