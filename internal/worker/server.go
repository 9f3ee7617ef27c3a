package worker

import (
	"log/slog"

	"culture-booking/internal/pkg/config"

	"github.com/hibiken/asynq"
)

const (
	expireEverySpec   = "@every 1m"
	dispatchEverySpec = "@every 30s"
)

func redisOpt(cfg config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

// NewServer builds the asynq consumer with both task handlers mounted.
func NewServer(cfg config.RedisConfig, handler *Handler) (*asynq.Server, *asynq.ServeMux) {
	srv := asynq.NewServer(
		redisOpt(cfg),
		asynq.Config{
			Concurrency: 5,
			Queues: map[string]int{
				"default": 10,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeExpirePending, handler.HandleExpirePending)
	mux.HandleFunc(TypeDispatchNotifications, handler.HandleDispatchNotifications)
	return srv, mux
}

// NewScheduler registers the periodic sweeps. Entries are idempotent
// per run, so overlapping ticks after a slow sweep are harmless.
func NewScheduler(cfg config.RedisConfig) (*asynq.Scheduler, error) {
	scheduler := asynq.NewScheduler(redisOpt(cfg), nil)

	if _, err := scheduler.Register(expireEverySpec, NewExpirePendingTask()); err != nil {
		return nil, err
	}
	if _, err := scheduler.Register(dispatchEverySpec, NewDispatchNotificationsTask()); err != nil {
		return nil, err
	}

	slog.Info("worker schedules registered",
		"expire", expireEverySpec, "dispatch", dispatchEverySpec)
	return scheduler, nil
}
