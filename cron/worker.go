package cron

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"courtwise/config"
	"courtwise/services/news"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

const TypeNewsRefresh = "news:refresh"

// Refresher is the news service side the worker drives.
type Refresher interface {
	Refresh(ctx context.Context) (*news.RefreshResult, error)
}

// NewsWorker schedules and processes periodic news refreshes on asynq.
type NewsWorker struct {
	server    *asynq.Server
	scheduler *asynq.Scheduler
	mux       *asynq.ServeMux
	spec      string
	logger    *zap.Logger
}

// RedisOpt builds the asynq connection from the queue database settings.
func RedisOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	}
}

func NewNewsWorker(redisOpt asynq.RedisConnOpt, spec string, refresher Refresher, logger *zap.Logger) *NewsWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 2,
		Queues:      map[string]int{"default": 1},
		Logger:      logger.Sugar(),
	})
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeNewsRefresh, HandleNewsRefresh(refresher, logger))

	return &NewsWorker{
		server:    srv,
		scheduler: asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{Logger: logger.Sugar()}),
		mux:       mux,
		spec:      spec,
		logger:    logger,
	}
}

// Start registers the periodic task and runs the scheduler and server in the background.
func (w *NewsWorker) Start() error {
	task := asynq.NewTask(TypeNewsRefresh, nil)
	entryID, err := w.scheduler.Register(w.spec, task, asynq.Unique(10*time.Minute), asynq.MaxRetry(2))
	if err != nil {
		return err
	}
	w.logger.Info("Scheduled news refresh", zap.String("spec", w.spec), zap.String("entryID", entryID))

	if err := w.scheduler.Start(); err != nil {
		return err
	}
	go func() {
		const maxAttempts = 5
		for attempt := 1; attempt <= maxAttempts; attempt++ {
			err := w.server.Run(w.mux)
			if err == nil || errors.Is(err, asynq.ErrServerClosed) {
				return
			}
			w.logger.Error("News worker failed to start",
				zap.Int("attempt", attempt),
				zap.Int("maxAttempts", maxAttempts),
				zap.Error(err),
			)
			time.Sleep(time.Duration(attempt*2) * time.Second)
		}
		w.logger.Error("News worker gave up after max retry attempts")
	}()
	return nil
}

// Shutdown stops the scheduler and drains the server.
func (w *NewsWorker) Shutdown() {
	w.scheduler.Shutdown()
	w.server.Shutdown()
}

// HandleNewsRefresh runs one refresh. A run with no configured sources is not retried.
func HandleNewsRefresh(refresher Refresher, logger *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		result, err := refresher.Refresh(ctx)
		if errors.Is(err, news.ErrNoSources) {
			logger.Debug("Skipping news refresh, no sources configured")
			return nil
		}
		if err != nil {
			logger.Warn("News refresh failed", zap.Error(err))
			return err
		}
		if rw := task.ResultWriter(); rw != nil {
			payload, _ := json.Marshal(result)
			if _, wErr := rw.Write(payload); wErr != nil {
				logger.Debug("Failed to record news refresh result", zap.Error(wErr))
			}
		}
		return nil
	}
}
